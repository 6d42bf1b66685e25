package advquery

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Operator is a bare comparison keyword as it appears in a request.
type Operator string

const (
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpIn  Operator = "in"
)

// Sigil prefixes operators in their store form.
const Sigil = "$"

// Store forms of the comparison operators.
const (
	StoreGT  = Sigil + string(OpGT)
	StoreGTE = Sigil + string(OpGTE)
	StoreLT  = Sigil + string(OpLT)
	StoreLTE = Sigil + string(OpLTE)
	StoreIn  = Sigil + string(OpIn)
)

var operators = map[Operator]struct{}{
	OpGT: {}, OpGTE: {}, OpLT: {}, OpLTE: {}, OpIn: {},
}

// ParseOperator validates a bare operator keyword.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(strings.ToLower(s))
	_, ok := operators[op]
	return op, ok
}

// StoreForm returns the sigil-prefixed operator understood by stores.
func (o Operator) StoreForm() string {
	return Sigil + string(o)
}

// ErrInvalidQuery marks a filter, sort or projection the store cannot serve.
var ErrInvalidQuery = errors.New("invalid query")

// QueryError describes a rejected query parameter.
type QueryError struct {
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid query: %s", e.Reason)
	}
	return fmt.Sprintf("invalid query on %q: %s", e.Field, e.Reason)
}

func (e *QueryError) Unwrap() error {
	return ErrInvalidQuery
}

// InvalidField returns a QueryError for field.
func InvalidField(field, reason string) error {
	return &QueryError{Field: field, Reason: reason}
}

// FilterValue is either a scalar equality or a comparison against an operator.
//
// Op is empty for scalars. Before rewriting it holds the bare keyword ("gt"),
// afterwards the store form ("$gt"). Set is filled for "in" comparisons once
// the comma separated value has been split.
type FilterValue struct {
	Op    string
	Value string
	Set   []string
}

// Scalar builds an equality match.
func Scalar(value string) FilterValue {
	return FilterValue{Value: value}
}

// Comparison builds an operator match with a bare keyword.
func Comparison(op Operator, value string) FilterValue {
	return FilterValue{Op: string(op), Value: value}
}

// IsScalar reports whether v is an equality match.
func (v FilterValue) IsScalar() bool {
	return v.Op == ""
}

// Values returns the operand list: the split set for "in", the single value otherwise.
func (v FilterValue) Values() []string {
	if v.Set != nil {
		return v.Set
	}
	return []string{v.Value}
}

// Filter maps a field to the conditions it must satisfy. All conditions are ANDed.
type Filter map[string][]FilterValue

// Fields returns the filter keys in a stable order.
func (f Filter) Fields() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies the filter.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, vs := range f {
		cp := make([]FilterValue, len(vs))
		for i, v := range vs {
			cp[i] = v
			if v.Set != nil {
				cp[i].Set = append([]string(nil), v.Set...)
			}
		}
		out[k] = cp
	}
	return out
}

// splitSets turns every "in" operand into its comma separated set.
func splitSets(f Filter) Filter {
	out := f.Clone()
	for field, vs := range out {
		for i, v := range vs {
			if v.IsScalar() || strings.TrimPrefix(v.Op, Sigil) != string(OpIn) {
				continue
			}
			var set []string
			for _, part := range strings.Split(v.Value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					set = append(set, part)
				}
			}
			if set == nil {
				set = []string{}
			}
			vs[i].Set = set
		}
		out[field] = vs
	}
	return out
}

// rewriteOperators converts every bare operator keyword into its store form.
// Each occurrence is rewritten, so several comparisons in one request are all honoured.
func rewriteOperators(f Filter) Filter {
	out := f.Clone()
	for field, vs := range out {
		for i, v := range vs {
			if v.IsScalar() || strings.HasPrefix(v.Op, Sigil) {
				continue
			}
			if op, ok := ParseOperator(v.Op); ok {
				vs[i].Op = op.StoreForm()
			}
		}
		out[field] = vs
	}
	return out
}

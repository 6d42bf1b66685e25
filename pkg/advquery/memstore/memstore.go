// Package memstore is an in-memory document collection that serves advquery specs.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Payphone-Digital/devcamper/pkg/advquery"
)

// Document is one record of the collection.
type Document = map[string]any

// Relation describes how a populate path resolves against another collection.
type Relation struct {
	LocalField   string
	Foreign      *Store
	ForeignField string
	Many         bool
}

// Store holds documents in insertion order.
type Store struct {
	mu        sync.RWMutex
	docs      []Document
	relations map[string]Relation
	idField   string
}

// New returns an empty store whose identifier key is idField.
func New(idField string) *Store {
	if idField == "" {
		idField = "id"
	}
	return &Store{idField: idField, relations: map[string]Relation{}}
}

// Relate registers a populate path.
func (s *Store) Relate(path string, rel Relation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations[path] = rel
}

// Insert appends copies of docs.
func (s *Store) Insert(docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs = append(s.docs, clone(d))
	}
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Count returns the number of documents matching filter.
func (s *Store) Count(ctx context.Context, filter advquery.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, d := range s.docs {
		ok, err := matches(d, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// Find returns the window of matching documents described by spec.
func (s *Store) Find(ctx context.Context, spec advquery.QuerySpec) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var matched []Document
	for _, d := range s.docs {
		ok, err := matches(d, spec.Filter)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, clone(d))
		}
	}
	var rel Relation
	var hasRel bool
	if spec.Populate != nil {
		rel, hasRel = s.relations[spec.Populate.Path]
		if !hasRel {
			s.mu.RUnlock()
			return nil, advquery.InvalidField(spec.Populate.Path, "unknown relation")
		}
	}
	s.mu.RUnlock()

	sortDocuments(matched, spec.Sort)

	switch {
	case spec.Skip >= len(matched):
		matched = nil
	case spec.Skip > 0:
		matched = matched[spec.Skip:]
	}
	if spec.Limit > 0 && len(matched) > spec.Limit {
		matched = matched[:spec.Limit]
	}

	out := make([]Document, 0, len(matched))
	for _, d := range matched {
		if hasRel && wants(spec.Fields, spec.Populate.Path) {
			d[spec.Populate.Path] = rel.resolve(d, spec.Populate.Select)
		}
		out = append(out, project(d, spec.Fields, s.idField))
	}
	return out, nil
}

func wants(fields []string, name string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

func (r Relation) resolve(d Document, fields []string) any {
	key := d[r.LocalField]
	r.Foreign.mu.RLock()
	defer r.Foreign.mu.RUnlock()

	var found []Document
	for _, fd := range r.Foreign.docs {
		if compare(fd[r.ForeignField], key) == 0 {
			found = append(found, project(clone(fd), fields, r.Foreign.idField))
			if !r.Many {
				break
			}
		}
	}
	if !r.Many {
		if len(found) == 0 {
			return nil
		}
		return found[0]
	}
	if found == nil {
		found = []Document{}
	}
	return found
}

func project(d Document, fields []string, idField string) Document {
	if len(fields) == 0 {
		return d
	}
	out := Document{}
	if v, ok := d[idField]; ok {
		out[idField] = v
	}
	for _, f := range fields {
		if v, ok := d[f]; ok {
			out[f] = v
		}
	}
	return out
}

func clone(d Document) Document {
	out := make(Document, len(d))
	for k, v := range d {
		switch t := v.(type) {
		case []any:
			out[k] = append([]any(nil), t...)
		case []string:
			out[k] = append([]string(nil), t...)
		case Document:
			out[k] = clone(t)
		default:
			out[k] = v
		}
	}
	return out
}

func sortDocuments(docs []Document, order []advquery.SortField) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range order {
			c := compare(docs[i][o.Field], docs[j][o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func matches(d Document, filter advquery.Filter) (bool, error) {
	for _, field := range filter.Fields() {
		for _, cond := range filter[field] {
			ok, err := satisfies(d[field], cond)
			if err != nil {
				return false, advquery.InvalidField(field, err.Error())
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func satisfies(value any, cond advquery.FilterValue) (bool, error) {
	if elems, ok := elements(value); ok {
		for _, e := range elems {
			hit, err := satisfies(e, cond)
			if err != nil {
				return false, err
			}
			if hit {
				return true, nil
			}
		}
		return false, nil
	}

	switch cond.Op {
	case "":
		c, err := compareOperand(value, cond.Value)
		return err == nil && c == 0, err
	case advquery.StoreIn:
		for _, operand := range cond.Values() {
			c, err := compareOperand(value, operand)
			if err != nil {
				return false, err
			}
			if c == 0 {
				return true, nil
			}
		}
		return false, nil
	case advquery.StoreGT, advquery.StoreGTE, advquery.StoreLT, advquery.StoreLTE:
		if value == nil {
			return false, nil
		}
		c, err := compareOperand(value, cond.Value)
		if err != nil {
			return false, err
		}
		switch cond.Op {
		case advquery.StoreGT:
			return c > 0, nil
		case advquery.StoreGTE:
			return c >= 0, nil
		case advquery.StoreLT:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	default:
		return false, fmt.Errorf("unsupported operator %s", cond.Op)
	}
}

func elements(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// compareOperand compares a stored value with a textual operand, coercing the
// operand to the stored value's type.
func compareOperand(value any, operand string) (int, error) {
	switch v := value.(type) {
	case nil:
		if operand == "null" {
			return 0, nil
		}
		return -1, nil
	case string:
		return strings.Compare(v, operand), nil
	case bool:
		b, err := strconv.ParseBool(operand)
		if err != nil {
			return 0, fmt.Errorf("cannot compare %q with a boolean", operand)
		}
		return compare(v, b), nil
	case time.Time:
		t, err := time.Parse(time.RFC3339, operand)
		if err != nil {
			return 0, fmt.Errorf("cannot compare %q with a timestamp", operand)
		}
		return compare(v, t), nil
	default:
		n, ok := number(value)
		if !ok {
			return 0, fmt.Errorf("unsupported value type %T", value)
		}
		f, err := strconv.ParseFloat(operand, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot compare %q with a number", operand)
		}
		return compare(n, f), nil
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// compare orders two stored values. nil sorts first; mismatched types compare by their text.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

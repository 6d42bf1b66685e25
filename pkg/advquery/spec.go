package advquery

import "context"

// Populate names a relation to embed in each result, optionally limited to some fields.
type Populate struct {
	Path   string
	Select []string
}

// QuerySpec is the store-facing description of one list query.
// Filter operators are already in store form.
type QuerySpec struct {
	Filter   Filter
	Fields   []string
	Sort     []SortField
	Skip     int
	Limit    int
	Populate *Populate
}

// Store executes query specs against a collection.
type Store[T any] interface {
	Find(ctx context.Context, spec QuerySpec) ([]T, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Build translates parsed params into a QuerySpec.
func Build(p Params, populate *Populate) QuerySpec {
	filter := rewriteOperators(splitSets(p.Filter))

	var fields []string
	if len(p.Select) > 0 {
		fields = append([]string(nil), p.Select...)
	}

	var pop *Populate
	if populate != nil {
		cp := *populate
		cp.Select = append([]string(nil), populate.Select...)
		pop = &cp
	}

	return QuerySpec{
		Filter:   filter,
		Fields:   fields,
		Sort:     append([]SortField(nil), p.Sort...),
		Skip:     p.Page.Offset(),
		Limit:    p.Page.Limit,
		Populate: pop,
	}
}

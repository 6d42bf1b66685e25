package advquery

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Reserved query keys. They drive projection and pagination and never reach the filter.
const (
	ParamSelect = "select"
	ParamSort   = "sort"
	ParamPage   = "page"
	ParamLimit  = "limit"
)

const (
	DefaultPage     = 1
	DefaultLimit    = 25
	DefaultMaxLimit = 100
	DefaultSort     = "-created_at"
)

var reserved = map[string]struct{}{
	ParamSelect: {}, ParamSort: {}, ParamPage: {}, ParamLimit: {},
}

// IsReserved reports whether key is one of the reserved directive keys.
func IsReserved(key string) bool {
	_, ok := reserved[key]
	return ok
}

var bracketKey = regexp.MustCompile(`^([A-Za-z0-9_]+)\[([A-Za-z]+)\]$`)
var plainKey = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Params is the parsed form of a list request.
type Params struct {
	Filter Filter
	Select []string
	Sort   []SortField
	Page   Page
}

// ParseQuery splits url values into filter conditions and directives.
// Bracket keys (price[gte]=10) become comparisons, bare keys become scalars.
// Malformed keys or unknown operators yield an error wrapping ErrInvalidQuery;
// malformed page and limit values never fail.
func ParseQuery(values url.Values, maxLimit int) (Params, error) {
	p := Params{Filter: Filter{}}

	for key, vals := range values {
		if IsReserved(key) {
			continue
		}
		if len(vals) == 0 {
			continue
		}
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			op, ok := ParseOperator(m[2])
			if !ok {
				return Params{}, InvalidField(m[1], "unsupported operator "+m[2])
			}
			for _, v := range vals {
				p.Filter[m[1]] = append(p.Filter[m[1]], Comparison(op, v))
			}
			continue
		}
		if !plainKey.MatchString(key) {
			return Params{}, InvalidField(key, "malformed filter key")
		}
		for _, v := range vals {
			p.Filter[key] = append(p.Filter[key], Scalar(v))
		}
	}

	p.Select = splitList(values.Get(ParamSelect))
	p.Sort = ParseSort(values.Get(ParamSort))
	p.Page = ParsePage(values.Get(ParamPage), values.Get(ParamLimit), maxLimit)
	return p, nil
}

// splitList splits a comma separated directive, dropping blanks.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SortField is one ordering key.
type SortField struct {
	Field string
	Desc  bool
}

func (s SortField) String() string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// ParseSort turns "a,-b" into ascending a then descending b.
// An empty directive yields the default newest-first ordering.
func ParseSort(raw string) []SortField {
	parts := splitList(raw)
	if len(parts) == 0 {
		parts = []string{DefaultSort}
	}
	out := make([]SortField, 0, len(parts))
	for _, part := range parts {
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimLeft(part, "-+")
		if field == "" {
			continue
		}
		out = append(out, SortField{Field: field, Desc: desc})
	}
	return out
}

// Page is the requested window.
type Page struct {
	Page  int
	Limit int
}

// Offset is the number of records skipped before the window.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePage parses page and limit, falling back to defaults on anything
// non-numeric or non-positive. limit is capped at maxLimit when maxLimit > 0.
// page is clamped so page*limit fits in an int, keeping the offset and the
// end of the window non-negative.
func ParsePage(page, limit string, maxLimit int) Page {
	p := Page{Page: DefaultPage, Limit: DefaultLimit}
	if n, err := strconv.Atoi(strings.TrimSpace(page)); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil && n > 0 {
		p.Limit = n
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if last := math.MaxInt / p.Limit; p.Page > last {
		p.Page = last
	}
	return p
}

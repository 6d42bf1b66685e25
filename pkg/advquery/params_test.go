package advquery

import (
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	values, err := url.ParseQuery("price[gte]=10&price[lt]=100&name=devworks&select=name,price&sort=-price&page=2&limit=5")
	require.NoError(t, err)

	p, err := ParseQuery(values, DefaultMaxLimit)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "price"}, p.Filter.Fields())
	assert.Equal(t, []FilterValue{Scalar("devworks")}, p.Filter["name"])
	assert.ElementsMatch(t, []FilterValue{Comparison(OpGTE, "10"), Comparison(OpLT, "100")}, p.Filter["price"])
	assert.Equal(t, []string{"name", "price"}, p.Select)
	assert.Equal(t, []SortField{{Field: "price", Desc: true}}, p.Sort)
	assert.Equal(t, Page{Page: 2, Limit: 5}, p.Page)

	for _, key := range []string{ParamSelect, ParamSort, ParamPage, ParamLimit} {
		_, ok := p.Filter[key]
		assert.False(t, ok, "reserved key %s leaked into filter", key)
	}
}

func TestParseQueryRejectsMalformedKeys(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown operator", "price[regex]=x"},
		{"unterminated bracket", "price[gt=1"},
		{"nested path", "location.city=Boston"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			_, err = ParseQuery(values, DefaultMaxLimit)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidQuery))

			var qe *QueryError
			assert.True(t, errors.As(err, &qe))
		})
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		limit    string
		maxLimit int
		want     Page
	}{
		{"defaults", "", "", 100, Page{Page: 1, Limit: 25}},
		{"explicit", "3", "10", 100, Page{Page: 3, Limit: 10}},
		{"non numeric", "abc", "ten", 100, Page{Page: 1, Limit: 25}},
		{"non positive", "0", "-4", 100, Page{Page: 1, Limit: 25}},
		{"capped", "2", "500", 100, Page{Page: 2, Limit: 100}},
		{"uncapped", "1", "500", 0, Page{Page: 1, Limit: 500}},
		{"huge page", "92233720368547760", "100", 100, Page{Page: math.MaxInt / 100, Limit: 100}},
		{"huge page and limit", "9223372036854775807", "9223372036854775807", 0, Page{Page: 1, Limit: math.MaxInt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePage(tt.page, tt.limit, tt.maxLimit)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Offset(), 0)
			assert.GreaterOrEqual(t, got.Offset()+got.Limit, got.Offset())
		})
	}
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, []SortField{{Field: "created_at", Desc: true}}, ParseSort(""))
	assert.Equal(t,
		[]SortField{{Field: "name"}, {Field: "age", Desc: true}},
		ParseSort("name,-age"),
	)
	assert.Equal(t, "-age", SortField{Field: "age", Desc: true}.String())
}

func TestBuildRewritesEveryOperator(t *testing.T) {
	p := Params{
		Filter: Filter{
			"price":   {Comparison(OpGTE, "10"), Comparison(OpLT, "100")},
			"careers": {Comparison(OpIn, "Web Development, UI/UX,,Business")},
			"name":    {Scalar("a")},
		},
		Sort: ParseSort(""),
		Page: Page{Page: 3, Limit: 10},
	}

	spec := Build(p, &Populate{Path: "courses"})

	assert.Equal(t, StoreGTE, spec.Filter["price"][0].Op)
	assert.Equal(t, StoreLT, spec.Filter["price"][1].Op)
	assert.Equal(t, StoreIn, spec.Filter["careers"][0].Op)
	assert.Equal(t, []string{"Web Development", "UI/UX", "Business"}, spec.Filter["careers"][0].Values())
	assert.True(t, spec.Filter["name"][0].IsScalar())
	assert.Equal(t, 20, spec.Skip)
	assert.Equal(t, 10, spec.Limit)
	require.NotNil(t, spec.Populate)
	assert.Equal(t, "courses", spec.Populate.Path)

	// the parsed params stay untouched
	assert.Equal(t, "gte", p.Filter["price"][0].Op)
	assert.Nil(t, p.Filter["careers"][0].Set)
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name  string
		page  Page
		total int64
		prev  *PageRef
		next  *PageRef
	}{
		{"middle page", Page{2, 10}, 25, &PageRef{1, 10}, &PageRef{3, 10}},
		{"first page", Page{1, 10}, 25, nil, &PageRef{2, 10}},
		{"last page", Page{3, 10}, 25, &PageRef{2, 10}, nil},
		{"exact fit", Page{1, 25}, 25, nil, nil},
		{"empty", Page{1, 25}, 0, nil, nil},
		{"past the end", Page{5, 10}, 25, &PageRef{4, 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPagination(tt.page, tt.total)
			assert.Equal(t, tt.prev, got.Prev)
			assert.Equal(t, tt.next, got.Next)
		})
	}
}

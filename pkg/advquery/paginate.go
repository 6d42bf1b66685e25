package advquery

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PageRef points at a neighbouring page.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination carries the neighbours of the current page. Absent sides are omitted.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// NewPagination computes the neighbours of p given the total number of matches.
func NewPagination(p Page, total int64) Pagination {
	var out Pagination
	offset := int64(p.Offset())
	if offset+int64(p.Limit) < total {
		out.Next = &PageRef{Page: p.Page + 1, Limit: p.Limit}
	}
	if offset > 0 {
		out.Prev = &PageRef{Page: p.Page - 1, Limit: p.Limit}
	}
	return out
}

// Envelope is the list response body.
type Envelope struct {
	Success    bool       `json:"success"`
	Count      int        `json:"count"`
	Pagination Pagination `json:"pagination"`
	Data       any        `json:"data"`
}

// Paginator runs list requests against a Store.
type Paginator[T any] struct {
	store    Store[T]
	populate *Populate
	maxLimit int
	idField  string
	log      *zap.Logger
}

// Option configures a Paginator.
type Option func(*options)

type options struct {
	maxLimit int
	idField  string
	log      *zap.Logger
}

// WithMaxLimit caps the page size. Zero or negative disables the cap.
func WithMaxLimit(n int) Option {
	return func(o *options) { o.maxLimit = n }
}

// WithIDField sets the identifier key that projections always keep.
func WithIDField(name string) Option {
	return func(o *options) { o.idField = name }
}

// WithLogger sets the logger used for query diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// New returns a Paginator over store. populate may be nil.
func New[T any](store Store[T], populate *Populate, opts ...Option) *Paginator[T] {
	o := options{maxLimit: DefaultMaxLimit, idField: "id"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return &Paginator[T]{
		store:    store,
		populate: populate,
		maxLimit: o.maxLimit,
		idField:  o.idField,
		log:      o.log,
	}
}

// List parses values, queries the store and assembles the envelope.
// The page and the total count are fetched concurrently against the same filter.
func (p *Paginator[T]) List(ctx context.Context, values url.Values) (*Envelope, error) {
	params, err := ParseQuery(values, p.maxLimit)
	if err != nil {
		return nil, err
	}
	spec := Build(params, p.populate)

	start := time.Now()
	var (
		items []T
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = p.store.Find(gctx, spec)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = p.store.Count(gctx, spec.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		p.log.Warn("List query failed",
			zap.Int("page", params.Page.Page),
			zap.Int("limit", params.Page.Limit),
			zap.Error(err),
		)
		return nil, err
	}

	data, err := Project(items, spec.Fields, p.idField)
	if err != nil {
		return nil, fmt.Errorf("project results: %w", err)
	}

	p.log.Debug("List query executed",
		zap.Int("filters", len(spec.Filter)),
		zap.Int("page", params.Page.Page),
		zap.Int("limit", params.Page.Limit),
		zap.Int("count", len(items)),
		zap.Int64("total", total),
		zap.Duration("duration", time.Since(start)),
	)

	return &Envelope{
		Success:    true,
		Count:      len(items),
		Pagination: NewPagination(params.Page, total),
		Data:       data,
	}, nil
}

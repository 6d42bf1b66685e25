package repository

import (
	"context"
	"errors"
	"net/url"
	"time"

	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/pkg/advquery"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
	"github.com/Payphone-Digital/devcamper/pkg/database"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
	"gorm.io/gorm"
)

const module = "repository"

func enter(ctx context.Context, function string) (context.Context, error) {
	ctx = ctxutil.WithFunction(ctx, module, function)
	if err := ctx.Err(); err != nil {
		logger.WarnWithContext(ctx, "Context cancelled before query").
			Err(err).
			Log()
		return ctx, err
	}
	return ctx, nil
}

// finished logs the outcome of a query and translates its error.
func finished(ctx context.Context, what string, start time.Time, err error, notFound *apperrors.DomainError) error {
	duration := time.Since(start)
	if err != nil {
		entry := logger.ErrorWithContext(ctx, "Failed to "+what)
		switch {
		case notFound != nil && errors.Is(err, gorm.ErrRecordNotFound):
			entry = logger.DebugWithContext(ctx, "Nothing found to "+what)
		case errors.Is(err, advquery.ErrInvalidQuery):
			entry = logger.WarnWithContext(ctx, "Rejected query, cannot "+what)
		}
		entry.Duration(duration).Err(err).Log()
		return apperrors.FromStore(err, notFound)
	}
	logger.DebugWithContext(ctx, "Query succeeded: "+what).
		Duration(duration).
		Log()
	return nil
}

// newLister wires a paginator over the gorm finder for T.
func newLister[T any](db *gorm.DB, populate *advquery.Populate, maxLimit int) (*advquery.Paginator[T], error) {
	finder, err := database.NewFinder[T](db, nil)
	if err != nil {
		return nil, err
	}
	return advquery.New[T](finder, populate,
		advquery.WithMaxLimit(maxLimit),
		advquery.WithLogger(logger.GetLogger()),
	), nil
}

func list[T any](ctx context.Context, p *advquery.Paginator[T], function string, query url.Values) (*advquery.Envelope, error) {
	ctx, err := enter(ctx, function)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	env, err := p.List(ctx, query)
	if err := finished(ctx, "list records", start, err, nil); err != nil {
		return nil, err
	}
	return env, nil
}

package repository

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/pkg/advquery"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository struct {
	db     *gorm.DB
	lister *advquery.Paginator[model.Review]
}

func NewReviewRepository(db *gorm.DB, maxLimit int) (*ReviewRepository, error) {
	lister, err := newLister[model.Review](db, &advquery.Populate{
		Path:   constants.PopulateBootcamp,
		Select: constants.BootcampSummaryFields,
	}, maxLimit)
	if err != nil {
		return nil, err
	}
	return &ReviewRepository{db: db, lister: lister}, nil
}

func (r *ReviewRepository) List(ctx context.Context, query url.Values) (*advquery.Envelope, error) {
	return list(ctx, r.lister, "ListReviews", query)
}

func (r *ReviewRepository) ListByBootcamp(ctx context.Context, bootcampID uint) ([]model.Review, error) {
	ctx, err := enter(ctx, "ListByBootcamp")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reviews := []model.Review{}
	err = r.db.WithContext(ctx).
		Where("bootcamp_id = ?", bootcampID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err := finished(ctx, "list reviews of bootcamp", start, err, nil); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id uint) (*model.Review, error) {
	ctx, err := enter(ctx, "GetByID")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var review model.Review
	err = r.db.WithContext(ctx).
		Preload(constants.PreloadBootcamp, bootcampSummary).
		First(&review, id).Error
	if err := finished(ctx, "get review by ID", start, err, apperrors.ErrReviewNotFound); err != nil {
		return nil, err
	}
	return &review, nil
}

// Create inserts the review and refreshes the bootcamp's average rating.
// A second review by the same user for the same bootcamp violates the unique
// index and surfaces as a duplicate field error.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	ctx, err := enter(ctx, "Create")
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(review).Error; err != nil {
			return err
		}
		return recomputeAverageRating(tx, review.BootcampID)
	})
	if err := finished(ctx, "create review", start, err, nil); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "Review created").
		Uint("review_id", review.ID).
		Uint("bootcamp_id", review.BootcampID).
		Int("rating", review.Rating).
		Log()
	return nil
}

func (r *ReviewRepository) Save(ctx context.Context, review *model.Review) error {
	ctx, err := enter(ctx, "Save")
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(review).Error; err != nil {
			return err
		}
		return recomputeAverageRating(tx, review.BootcampID)
	})
	return finished(ctx, "save review", start, err, apperrors.ErrReviewNotFound)
}

func (r *ReviewRepository) Delete(ctx context.Context, review *model.Review) error {
	ctx, err := enter(ctx, "Delete")
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Review{}, review.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return recomputeAverageRating(tx, review.BootcampID)
	})
	if err := finished(ctx, "delete review", start, err, apperrors.ErrReviewNotFound); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "Review deleted").
		Uint("review_id", review.ID).
		Log()
	return nil
}

func recomputeAverageRating(tx *gorm.DB, bootcampID uint) error {
	var avg sql.NullFloat64
	if err := tx.Model(&model.Review{}).
		Select("AVG(rating)").
		Where("bootcamp_id = ?", bootcampID).
		Scan(&avg).Error; err != nil {
		return err
	}

	var rating *float64
	if avg.Valid {
		rating = &avg.Float64
	}
	return tx.Model(&model.Bootcamp{}).
		Where("id = ?", bootcampID).
		UpdateColumn("average_rating", rating).Error
}

package repository

import (
	"context"
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

type BootcampRepository struct {
	db     *gorm.DB
	lister *advquery.Paginator[model.Bootcamp]
}

func NewBootcampRepository(db *gorm.DB, maxLimit int) (*BootcampRepository, error) {
	lister, err := newLister[model.Bootcamp](db, &advquery.Populate{Path: constants.PopulateCourses}, maxLimit)
	if err != nil {
		return nil, err
	}
	return &BootcampRepository{db: db, lister: lister}, nil
}

func (r *BootcampRepository) List(ctx context.Context, query url.Values) (*advquery.Envelope, error) {
	return list(ctx, r.lister, "ListBootcamps", query)
}

func (r *BootcampRepository) GetByID(ctx context.Context, id uint) (*model.Bootcamp, error) {
	ctx, err := enter(ctx, "GetByID")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var bootcamp model.Bootcamp
	err = r.db.WithContext(ctx).First(&bootcamp, id).Error
	if err := finished(ctx, "get bootcamp by ID", start, err, apperrors.ErrBootcampNotFound); err != nil {
		return nil, err
	}
	return &bootcamp, nil
}

// CountByUser counts the bootcamps owned by a user.
func (r *BootcampRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	ctx, err := enter(ctx, "CountByUser")
	if err != nil {
		return 0, err
	}

	start := time.Now()
	var n int64
	err = r.db.WithContext(ctx).Model(&model.Bootcamp{}).Where("user_id = ?", userID).Count(&n).Error
	if err := finished(ctx, "count bootcamps by user", start, err, nil); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *BootcampRepository) Create(ctx context.Context, bootcamp *model.Bootcamp) error {
	ctx, err := enter(ctx, "Create")
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.db.WithContext(ctx).Omit(clause.Associations).Create(bootcamp).Error
	if err := finished(ctx, "create bootcamp", start, err, nil); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "Bootcamp created").
		Uint("bootcamp_id", bootcamp.ID).
		String("slug", bootcamp.Slug).
		Log()
	return nil
}

// Save writes every column of bootcamp. Related rows are left alone.
func (r *BootcampRepository) Save(ctx context.Context, bootcamp *model.Bootcamp) error {
	ctx, err := enter(ctx, "Save")
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.db.WithContext(ctx).Omit(clause.Associations).Save(bootcamp).Error
	return finished(ctx, "save bootcamp", start, err, apperrors.ErrBootcampNotFound)
}

func (r *BootcampRepository) UpdatePhoto(ctx context.Context, id uint, photo string) error {
	ctx, err := enter(ctx, "UpdatePhoto")
	if err != nil {
		return err
	}

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.Bootcamp{}).Where("id = ?", id).Update("photo", photo)
	err = result.Error
	if err == nil && result.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
	}
	return finished(ctx, "update bootcamp photo", start, err, apperrors.ErrBootcampNotFound)
}

// Delete removes the bootcamp together with its courses and reviews.
func (r *BootcampRepository) Delete(ctx context.Context, id uint) error {
	ctx, err := enter(ctx, "Delete")
	if err != nil {
		return err
	}

	start := time.Now()
	var courses, reviews int64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("bootcamp_id = ?", id).Delete(&model.Course{})
		if res.Error != nil {
			return res.Error
		}
		courses = res.RowsAffected

		res = tx.Where("bootcamp_id = ?", id).Delete(&model.Review{})
		if res.Error != nil {
			return res.Error
		}
		reviews = res.RowsAffected

		res = tx.Delete(&model.Bootcamp{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err := finished(ctx, "delete bootcamp", start, err, apperrors.ErrBootcampNotFound); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "Bootcamp deleted").
		Uint("bootcamp_id", id).
		Int64("courses_deleted", courses).
		Int64("reviews_deleted", reviews).
		Log()
	return nil
}

// WithinRadius returns bootcamps whose location lies within miles of the
// given point, measured along the earth's surface.
func (r *BootcampRepository) WithinRadius(ctx context.Context, lat, lng, miles float64) ([]model.Bootcamp, error) {
	ctx, err := enter(ctx, "WithinRadius")
	if err != nil {
		return nil, err
	}

	// central angle in radians; least() guards acos against rounding above 1
	angle := "acos(least(1, sin(radians(?)) * sin(radians(latitude)) + " +
		"cos(radians(?)) * cos(radians(latitude)) * cos(radians(longitude) - radians(?))))"

	start := time.Now()
	bootcamps := []model.Bootcamp{}
	err = r.db.WithContext(ctx).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where(angle+" <= ?", lat, lat, lng, miles/constants.EarthRadiusMiles).
		Order("id").
		Find(&bootcamps).Error
	if err := finished(ctx, "find bootcamps in radius", start, err, nil); err != nil {
		return nil, err
	}

	logger.DebugWithContext(ctx, "Radius search").
		Float64("latitude", lat).
		Float64("longitude", lng).
		Float64("miles", miles).
		Int("count", len(bootcamps)).
		Log()
	return bootcamps, nil
}

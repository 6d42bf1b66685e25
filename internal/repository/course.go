package repository

import (
	"context"
	"database/sql"
	"math"
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

type CourseRepository struct {
	db     *gorm.DB
	lister *advquery.Paginator[model.Course]
}

func NewCourseRepository(db *gorm.DB, maxLimit int) (*CourseRepository, error) {
	lister, err := newLister[model.Course](db, &advquery.Populate{
		Path:   constants.PopulateBootcamp,
		Select: constants.BootcampSummaryFields,
	}, maxLimit)
	if err != nil {
		return nil, err
	}
	return &CourseRepository{db: db, lister: lister}, nil
}

func (r *CourseRepository) List(ctx context.Context, query url.Values) (*advquery.Envelope, error) {
	return list(ctx, r.lister, "ListCourses", query)
}

func bootcampSummary(db *gorm.DB) *gorm.DB {
	return db.Select(append([]string{"id"}, constants.BootcampSummaryFields...))
}

func (r *CourseRepository) ListByBootcamp(ctx context.Context, bootcampID uint) ([]model.Course, error) {
	ctx, err := enter(ctx, "ListByBootcamp")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	courses := []model.Course{}
	err = r.db.WithContext(ctx).
		Where("bootcamp_id = ?", bootcampID).
		Order("created_at").
		Find(&courses).Error
	if err := finished(ctx, "list courses of bootcamp", start, err, nil); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id uint) (*model.Course, error) {
	ctx, err := enter(ctx, "GetByID")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var course model.Course
	err = r.db.WithContext(ctx).
		Preload(constants.PreloadBootcamp, bootcampSummary).
		First(&course, id).Error
	if err := finished(ctx, "get course by ID", start, err, apperrors.ErrCourseNotFound); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts the course and refreshes the bootcamp's average cost in one transaction.
func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	ctx, err := enter(ctx, "Create")
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(course).Error; err != nil {
			return err
		}
		return recomputeAverageCost(tx, course.BootcampID)
	})
	if err := finished(ctx, "create course", start, err, nil); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "Course created").
		Uint("course_id", course.ID).
		Uint("bootcamp_id", course.BootcampID).
		Log()
	return nil
}

func (r *CourseRepository) Save(ctx context.Context, course *model.Course) error {
	ctx, err := enter(ctx, "Save")
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(course).Error; err != nil {
			return err
		}
		return recomputeAverageCost(tx, course.BootcampID)
	})
	return finished(ctx, "save course", start, err, apperrors.ErrCourseNotFound)
}

func (r *CourseRepository) Delete(ctx context.Context, course *model.Course) error {
	ctx, err := enter(ctx, "Delete")
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Course{}, course.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return recomputeAverageCost(tx, course.BootcampID)
	})
	if err := finished(ctx, "delete course", start, err, apperrors.ErrCourseNotFound); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "Course deleted").
		Uint("course_id", course.ID).
		Log()
	return nil
}

// roundCost rounds an average tuition up to the next multiple of ten.
func roundCost(avg float64) float64 {
	return math.Ceil(avg/10) * 10
}

func recomputeAverageCost(tx *gorm.DB, bootcampID uint) error {
	var avg sql.NullFloat64
	if err := tx.Model(&model.Course{}).
		Select("AVG(tuition)").
		Where("bootcamp_id = ?", bootcampID).
		Scan(&avg).Error; err != nil {
		return err
	}

	var cost *float64
	if avg.Valid {
		v := roundCost(avg.Float64)
		cost = &v
	}
	return tx.Model(&model.Bootcamp{}).
		Where("id = ?", bootcampID).
		UpdateColumn("average_cost", cost).Error
}

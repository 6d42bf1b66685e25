package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/Payphone-Digital/devcamper/internal/dto"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/pkg/advquery"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

type CourseService struct {
	courses   CourseStore
	bootcamps BootcampGetter
}

func NewCourseService(courses CourseStore, bootcamps BootcampGetter) *CourseService {
	return &CourseService{courses: courses, bootcamps: bootcamps}
}

func (s *CourseService) List(ctx context.Context, query url.Values) (*advquery.Envelope, error) {
	return s.courses.List(withFunction(ctx, "ListCourses"), query)
}

// ListByBootcamp returns every course of one bootcamp, unpaginated.
func (s *CourseService) ListByBootcamp(ctx context.Context, bootcampID uint) ([]model.Course, error) {
	ctx = withFunction(ctx, "ListCoursesByBootcamp")
	if _, err := s.bootcamps.GetByID(ctx, bootcampID); err != nil {
		return nil, err
	}
	return s.courses.ListByBootcamp(ctx, bootcampID)
}

func (s *CourseService) Get(ctx context.Context, id uint) (*model.Course, error) {
	return s.courses.GetByID(withFunction(ctx, "GetCourse"), id)
}

// Create adds a course to a bootcamp the actor owns.
func (s *CourseService) Create(ctx context.Context, actor Actor, bootcampID uint, req *dto.CreateCourseRequest) (*model.Course, error) {
	ctx = withFunction(ctx, "CreateCourse")

	bootcamp, err := s.bootcamps.GetByID(ctx, bootcampID)
	if err != nil {
		return nil, err
	}
	if !actor.mayModify(bootcamp.UserID) {
		return nil, forbidden(actor, "add a course to this bootcamp")
	}

	course := &model.Course{
		Title:                strings.TrimSpace(req.Title),
		Description:          req.Description,
		Weeks:                req.Weeks,
		Tuition:              req.Tuition,
		MinimumSkill:         req.MinimumSkill,
		ScholarshipAvailable: req.ScholarshipAvailable,
		BootcampID:           bootcampID,
		UserID:               actor.ID,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) owned(ctx context.Context, actor Actor, id uint, action string) (*model.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.mayModify(course.UserID) {
		logger.WarnWithContext(ctx, "Course access denied").
			Uint("course_id", id).
			Uint("owner_id", course.UserID).
			Log()
		return nil, forbidden(actor, action)
	}
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, actor Actor, id uint, req *dto.UpdateCourseRequest) (*model.Course, error) {
	ctx = withFunction(ctx, "UpdateCourse")

	course, err := s.owned(ctx, actor, id, "update this course")
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Weeks != nil {
		course.Weeks = *req.Weeks
	}
	if req.Tuition != nil {
		course.Tuition = *req.Tuition
	}
	if req.MinimumSkill != nil {
		course.MinimumSkill = *req.MinimumSkill
	}
	if req.ScholarshipAvailable != nil {
		course.ScholarshipAvailable = *req.ScholarshipAvailable
	}
	if course.Title == "" || course.Description == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Please add a course title and description")
	}

	if err := s.courses.Save(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Delete(ctx context.Context, actor Actor, id uint) error {
	ctx = withFunction(ctx, "DeleteCourse")
	course, err := s.owned(ctx, actor, id, "delete this course")
	if err != nil {
		return err
	}
	return s.courses.Delete(ctx, course)
}

package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/Payphone-Digital/devcamper/internal/dto"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/pkg/advquery"
)

type ReviewService struct {
	reviews   ReviewStore
	bootcamps BootcampGetter
}

func NewReviewService(reviews ReviewStore, bootcamps BootcampGetter) *ReviewService {
	return &ReviewService{reviews: reviews, bootcamps: bootcamps}
}

func (s *ReviewService) List(ctx context.Context, query url.Values) (*advquery.Envelope, error) {
	return s.reviews.List(withFunction(ctx, "ListReviews"), query)
}

func (s *ReviewService) ListByBootcamp(ctx context.Context, bootcampID uint) ([]model.Review, error) {
	ctx = withFunction(ctx, "ListReviewsByBootcamp")
	if _, err := s.bootcamps.GetByID(ctx, bootcampID); err != nil {
		return nil, err
	}
	return s.reviews.ListByBootcamp(ctx, bootcampID)
}

func (s *ReviewService) Get(ctx context.Context, id uint) (*model.Review, error) {
	return s.reviews.GetByID(withFunction(ctx, "GetReview"), id)
}

// Create adds the actor's review of a bootcamp. A second review by the same
// user is rejected by the store.
func (s *ReviewService) Create(ctx context.Context, actor Actor, bootcampID uint, req *dto.CreateReviewRequest) (*model.Review, error) {
	ctx = withFunction(ctx, "CreateReview")

	if _, err := s.bootcamps.GetByID(ctx, bootcampID); err != nil {
		return nil, err
	}
	review := &model.Review{
		Title:      strings.TrimSpace(req.Title),
		Text:       req.Text,
		Rating:     req.Rating,
		BootcampID: bootcampID,
		UserID:     actor.ID,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) owned(ctx context.Context, actor Actor, id uint, action string) (*model.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.mayModify(review.UserID) {
		return nil, forbidden(actor, action)
	}
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, actor Actor, id uint, req *dto.UpdateReviewRequest) (*model.Review, error) {
	ctx = withFunction(ctx, "UpdateReview")

	review, err := s.owned(ctx, actor, id, "update this review")
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		review.Title = strings.TrimSpace(*req.Title)
	}
	if req.Text != nil {
		review.Text = *req.Text
	}
	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if review.Title == "" || review.Text == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Please add a title and some text")
	}

	if err := s.reviews.Save(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor Actor, id uint) error {
	ctx = withFunction(ctx, "DeleteReview")
	review, err := s.owned(ctx, actor, id, "delete this review")
	if err != nil {
		return err
	}
	return s.reviews.Delete(ctx, review)
}

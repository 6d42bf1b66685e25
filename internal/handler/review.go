package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/dto"
	"github.com/Payphone-Digital/devcamper/internal/middleware"
	"github.com/Payphone-Digital/devcamper/internal/service"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
}

func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

func (h *ReviewHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "ListReviews")

	envelope, err := h.reviewService.List(ctx, c.Request.URL.Query())
	if err != nil {
		fail(ctx, c, "Failed to list reviews", err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

func (h *ReviewHandler) ListByBootcamp(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "ListReviewsByBootcamp")

	bootcampID, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	reviews, err := h.reviewService.ListByBootcamp(ctx, bootcampID)
	if err != nil {
		fail(ctx, c, "Failed to list bootcamp reviews", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildListResponse(len(reviews), reviews))
}

func (h *ReviewHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "GetReview")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	review, err := h.reviewService.Get(ctx, id)
	if err != nil {
		fail(ctx, c, "Failed to fetch review", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(review))
}

func (h *ReviewHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "CreateReview")

	bootcampID, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	var req dto.CreateReviewRequest
	if !bindJSON(ctx, c, &req) {
		return
	}
	review, err := h.reviewService.Create(ctx, middleware.CurrentActor(c), bootcampID, &req)
	if err != nil {
		fail(ctx, c, "Failed to create review", err)
		return
	}
	c.JSON(http.StatusCreated, constants.BuildDataResponse(review))
}

func (h *ReviewHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "UpdateReview")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	var req dto.UpdateReviewRequest
	if !bindJSON(ctx, c, &req) {
		return
	}
	review, err := h.reviewService.Update(ctx, middleware.CurrentActor(c), id, &req)
	if err != nil {
		fail(ctx, c, "Failed to update review", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(review))
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "DeleteReview")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	if err := h.reviewService.Delete(ctx, middleware.CurrentActor(c), id); err != nil {
		fail(ctx, c, "Failed to delete review", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(gin.H{}))
}

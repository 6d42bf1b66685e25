package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/dto"
	"github.com/Payphone-Digital/devcamper/internal/middleware"
	"github.com/Payphone-Digital/devcamper/internal/service"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
	"github.com/Payphone-Digital/devcamper/pkg/validation"
)

type BootcampHandler struct {
	bootcampService *service.BootcampService
}

func NewBootcampHandler(bootcampService *service.BootcampService) *BootcampHandler {
	return &BootcampHandler{bootcampService: bootcampService}
}

func (h *BootcampHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "ListBootcamps")

	envelope, err := h.bootcampService.List(ctx, c.Request.URL.Query())
	if err != nil {
		fail(ctx, c, "Failed to list bootcamps", err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

func (h *BootcampHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "GetBootcamp")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	bootcamp, err := h.bootcampService.Get(ctx, id)
	if err != nil {
		fail(ctx, c, "Failed to fetch bootcamp", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(bootcamp))
}

func (h *BootcampHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "CreateBootcamp")

	var req dto.CreateBootcampRequest
	if !bindJSON(ctx, c, &req) {
		return
	}
	bootcamp, err := h.bootcampService.Create(ctx, middleware.CurrentActor(c), &req)
	if err != nil {
		fail(ctx, c, "Failed to create bootcamp", err)
		return
	}

	logger.InfoWithContext(ctx, "Bootcamp created").
		Uint("bootcamp_id", bootcamp.ID).
		String("slug", bootcamp.Slug).
		Bool("located", bootcamp.HasLocation()).
		Log()
	c.JSON(http.StatusCreated, constants.BuildDataResponse(bootcamp))
}

func (h *BootcampHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "UpdateBootcamp")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBootcampRequest
	if !bindJSON(ctx, c, &req) {
		return
	}
	bootcamp, err := h.bootcampService.Update(ctx, middleware.CurrentActor(c), id, &req)
	if err != nil {
		fail(ctx, c, "Failed to update bootcamp", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(bootcamp))
}

func (h *BootcampHandler) Delete(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "DeleteBootcamp")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	if err := h.bootcampService.Delete(ctx, middleware.CurrentActor(c), id); err != nil {
		fail(ctx, c, "Failed to delete bootcamp", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(gin.H{}))
}

// WithinRadius serves /bootcamps/radius/:lat/:lng/:distance, distance in miles.
func (h *BootcampHandler) WithinRadius(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "WithinRadius")

	var q dto.RadiusQuery
	if err := c.ShouldBindUri(&q); err != nil {
		msgs := validation.Messages(err)
		logger.WarnWithContext(ctx, "Invalid radius query").
			Strings("validation_errors", msgs).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(msgs[0], msgs))
		return
	}

	bootcamps, err := h.bootcampService.WithinRadius(ctx, &q)
	if err != nil {
		fail(ctx, c, "Radius search failed", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildListResponse(len(bootcamps), bootcamps))
}

// UploadPhoto accepts a multipart "file" field.
func (h *BootcampHandler) UploadPhoto(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "UploadPhoto")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		logger.WarnWithContext(ctx, "Malformed upload").
			Err(err).
			Log()
	}

	name, err := h.bootcampService.UploadPhoto(ctx, middleware.CurrentActor(c), id, file)
	if err != nil {
		fail(ctx, c, "Photo upload failed", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(name))
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/dto"
	"github.com/Payphone-Digital/devcamper/internal/middleware"
	"github.com/Payphone-Digital/devcamper/internal/service"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

type CourseHandler struct {
	courseService *service.CourseService
}

func NewCourseHandler(courseService *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

func (h *CourseHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "ListCourses")

	envelope, err := h.courseService.List(ctx, c.Request.URL.Query())
	if err != nil {
		fail(ctx, c, "Failed to list courses", err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

// ListByBootcamp serves /bootcamps/:id/courses.
func (h *CourseHandler) ListByBootcamp(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "ListCoursesByBootcamp")

	bootcampID, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	courses, err := h.courseService.ListByBootcamp(ctx, bootcampID)
	if err != nil {
		fail(ctx, c, "Failed to list bootcamp courses", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildListResponse(len(courses), courses))
}

func (h *CourseHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "GetCourse")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	course, err := h.courseService.Get(ctx, id)
	if err != nil {
		fail(ctx, c, "Failed to fetch course", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(course))
}

// Create serves POST /bootcamps/:id/courses.
func (h *CourseHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "CreateCourse")

	bootcampID, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if !bindJSON(ctx, c, &req) {
		return
	}
	course, err := h.courseService.Create(ctx, middleware.CurrentActor(c), bootcampID, &req)
	if err != nil {
		fail(ctx, c, "Failed to create course", err)
		return
	}

	logger.InfoWithContext(ctx, "Course created").
		Uint("course_id", course.ID).
		Uint("bootcamp_id", bootcampID).
		Float64("tuition", course.Tuition).
		Log()
	c.JSON(http.StatusCreated, constants.BuildDataResponse(course))
}

func (h *CourseHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "UpdateCourse")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if !bindJSON(ctx, c, &req) {
		return
	}
	course, err := h.courseService.Update(ctx, middleware.CurrentActor(c), id, &req)
	if err != nil {
		fail(ctx, c, "Failed to update course", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(course))
}

func (h *CourseHandler) Delete(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "DeleteCourse")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	if err := h.courseService.Delete(ctx, middleware.CurrentActor(c), id); err != nil {
		fail(ctx, c, "Failed to delete course", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(gin.H{}))
}

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

// UserHandler serves the admin-only user management routes.
type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "ListUsers")

	envelope, err := h.userService.List(ctx, c.Request.URL.Query())
	if err != nil {
		fail(ctx, c, "Failed to list users", err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

func (h *UserHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "GetUser")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(ctx, id)
	if err != nil {
		fail(ctx, c, "Failed to fetch user", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(user))
}

func (h *UserHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "CreateUser")

	var req dto.CreateUserRequest
	if !bindJSON(ctx, c, &req) {
		return
	}
	user, err := h.userService.Create(ctx, &req)
	if err != nil {
		fail(ctx, c, "Failed to create user", err)
		return
	}

	logger.InfoWithContext(ctx, "User created by admin").
		Uint("user_id", user.ID).
		String("role", user.Role).
		Log()
	c.JSON(http.StatusCreated, constants.BuildDataResponse(user))
}

func (h *UserHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "UpdateUser")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !bindJSON(ctx, c, &req) {
		return
	}
	user, err := h.userService.Update(ctx, id, &req)
	if err != nil {
		fail(ctx, c, "Failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(user))
}

func (h *UserHandler) Delete(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "DeleteUser")

	id, ok := paramID(ctx, c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(ctx, middleware.CurrentActor(c), id); err != nil {
		fail(ctx, c, "Failed to delete user", err)
		return
	}

	logger.InfoWithContext(ctx, "User deleted by admin").
		Uint("user_id", id).
		Log()
	c.JSON(http.StatusOK, constants.BuildDataResponse(gin.H{}))
}

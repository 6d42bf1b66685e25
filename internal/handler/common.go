package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
	"github.com/Payphone-Digital/devcamper/pkg/validation"
)

const module = "handler"

// fail logs err and answers with its mapped status. Errors that are not
// domain errors are reported as a generic server error.
func fail(ctx context.Context, c *gin.Context, what string, err error) {
	status := apperrors.ToHTTPStatus(err)
	msg := apperrors.GetErrorMessage(err)
	if !apperrors.IsDomainError(err) {
		msg = constants.MsgInternalError
	}

	b := logger.WarnWithContext(ctx, what)
	if status >= http.StatusInternalServerError {
		b = logger.ErrorWithContext(ctx, what)
	}
	b.Int("http_status", status).Err(err).Log()

	c.JSON(status, constants.BuildErrorResponse(msg, nil))
}

// bindJSON binds and validates the body into req, answering 400 on failure.
func bindJSON(ctx context.Context, c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		msgs := validation.Messages(err)
		logger.WarnWithContext(ctx, "Invalid request body").
			Strings("validation_errors", msgs).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(strings.Join(msgs, ", "), msgs))
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter. Malformed ids are
// answered as a missing resource.
func paramID(ctx context.Context, c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		logger.DebugWithContext(ctx, "Malformed id").
			String("param", name).
			String("raw_id", raw).
			Log()
		c.JSON(http.StatusNotFound, constants.BuildErrorResponse(
			"Resource not found with id of "+raw, nil))
		return 0, false
	}
	return uint(id), true
}

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/internal/service"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

// UserLookup loads the user a token was issued to.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

type JWTMiddleware struct {
	jwtService *service.JWTService
	users      UserLookup
}

func NewJWTMiddleware(jwtService *service.JWTService, users UserLookup) *JWTMiddleware {
	return &JWTMiddleware{
		jwtService: jwtService,
		users:      users,
	}
}

// tokenFromRequest prefers the Authorization bearer header over the cookie.
func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader(constants.HeaderAuthorization); strings.HasPrefix(h, constants.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, constants.BearerPrefix))
	}
	if cookie, err := c.Cookie(constants.TokenCookieName); err == nil && cookie != "none" {
		return cookie
	}
	return ""
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		constants.BuildErrorResponse(apperrors.ErrUnauthorized.Message, nil))
}

// Protect rejects requests without a valid token. Tokens whose version no
// longer matches the user's are treated as revoked.
func (m *JWTMiddleware) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token := tokenFromRequest(c)
		if token == "" {
			logger.DebugWithContext(ctx, "Missing token").
				String("path", c.Request.URL.Path).
				Log()
			unauthorized(c)
			return
		}

		claims, err := m.jwtService.ValidateToken(token)
		if err != nil {
			logger.WarnWithContext(ctx, "Invalid or expired token").
				String("path", c.Request.URL.Path).
				Err(err).
				Log()
			unauthorized(c)
			return
		}

		user, err := m.users.GetByID(ctx, claims.UserID)
		if err != nil {
			logger.WarnWithContext(ctx, "Token user not found").
				Uint("user_id", claims.UserID).
				Err(err).
				Log()
			unauthorized(c)
			return
		}
		if claims.TokenVersion != user.TokenVersion {
			logger.WarnWithContext(ctx, "Token version mismatch, token revoked").
				Uint("user_id", user.ID).
				Int("token_version", claims.TokenVersion).
				Int("current_version", user.TokenVersion).
				Log()
			unauthorized(c)
			return
		}

		c.Set(constants.GinKeyUserID, user.ID)
		c.Set(constants.GinKeyUserRole, user.Role)
		c.Set(constants.GinKeyUser, user)

		ctx = ctxutil.WithUserID(ctx, user.ID)
		ctx = ctxutil.WithUserRole(ctx, user.Role)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Authorize allows only the given roles. It must run after Protect.
func Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(constants.GinKeyUserRole)
		if !slices.Contains(roles, role) {
			logger.WarnWithContext(c.Request.Context(), "Role not authorized").
				String("role", role).
				Strings("allowed", roles).
				String("path", c.Request.URL.Path).
				Log()
			c.AbortWithStatusJSON(http.StatusForbidden, constants.BuildErrorResponse(
				fmt.Sprintf("User role %s is not authorized to access this route", role), nil))
			return
		}
		c.Next()
	}
}

// CurrentActor returns the authenticated caller set by Protect.
func CurrentActor(c *gin.Context) service.Actor {
	id, _ := c.Get(constants.GinKeyUserID)
	uid, _ := id.(uint)
	return service.Actor{ID: uid, Role: c.GetString(constants.GinKeyUserRole)}
}

// CurrentUser returns the user loaded by Protect, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(constants.GinKeyUser)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

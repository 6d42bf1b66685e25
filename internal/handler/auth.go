package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/config"
	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/dto"
	"github.com/Payphone-Digital/devcamper/internal/middleware"
	"github.com/Payphone-Digital/devcamper/internal/service"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

// sendToken answers with the token in the body and in an HttpOnly cookie.
func (h *AuthHandler) sendToken(c *gin.Context, status int, token *dto.TokenResult) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.TokenCookieName, token.Token, int(h.cfg.CookieMaxAge().Seconds()),
		"/", "", h.cfg.IsProduction(), true)
	c.JSON(status, constants.BuildTokenResponse(token.Token))
}

func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "Register")

	var req dto.RegisterRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	token, err := h.authService.Register(ctx, &req)
	if err != nil {
		fail(ctx, c, "Registration failed", err)
		return
	}
	h.sendToken(c, http.StatusOK, token)
}

func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "Login")

	var req dto.LoginRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	logger.InfoWithContext(ctx, "User login attempt").
		String("email", req.Email).
		Log()

	token, err := h.authService.Login(ctx, &req)
	if err != nil {
		fail(ctx, c, "Login failed", err)
		return
	}
	h.sendToken(c, http.StatusOK, token)
}

// Logout revokes the caller's tokens and expires the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "Logout")
	actor := middleware.CurrentActor(c)

	if err := h.authService.Logout(ctx, actor.ID); err != nil {
		fail(ctx, c, "Logout failed", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.TokenCookieName, "none", 10, "/", "", h.cfg.IsProduction(), true)
	c.JSON(http.StatusOK, constants.BuildDataResponse(gin.H{}))
}

func (h *AuthHandler) Me(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "Me")

	user, err := h.authService.Me(ctx, middleware.CurrentActor(c).ID)
	if err != nil {
		fail(ctx, c, "Failed to load current user", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(user))
}

func (h *AuthHandler) UpdateDetails(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "UpdateDetails")

	var req dto.UpdateDetailsRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	user, err := h.authService.UpdateDetails(ctx, middleware.CurrentActor(c).ID, &req)
	if err != nil {
		fail(ctx, c, "Failed to update details", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse(user))
}

func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "UpdatePassword")

	var req dto.UpdatePasswordRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	token, err := h.authService.UpdatePassword(ctx, middleware.CurrentActor(c).ID, &req)
	if err != nil {
		fail(ctx, c, "Failed to update password", err)
		return
	}
	h.sendToken(c, http.StatusOK, token)
}

// ForgotPassword mails a reset link pointing back at this host.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "ForgotPassword")

	var req dto.ForgotPasswordRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	if err := h.authService.ForgotPassword(ctx, &req, baseURL(c)); err != nil {
		fail(ctx, c, "Forgot password failed", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildDataResponse("Email sent"))
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, "ResetPassword")

	var req dto.ResetPasswordRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	token, err := h.authService.ResetPassword(ctx, c.Param("resettoken"), &req)
	if err != nil {
		fail(ctx, c, "Password reset failed", err)
		return
	}
	h.sendToken(c, http.StatusOK, token)
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

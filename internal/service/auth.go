package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/dto"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
	"github.com/Payphone-Digital/devcamper/pkg/mailer"
)

type AuthService struct {
	users  UserStore
	jwt    *JWTService
	mailer mailer.Mailer
	now    func() time.Time
}

func NewAuthService(users UserStore, jwt *JWTService, m mailer.Mailer) *AuthService {
	return &AuthService{users: users, jwt: jwt, mailer: m, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ensureEmailFree fails when email belongs to a user other than excludeID.
func ensureEmailFree(ctx context.Context, users UserStore, email string, excludeID uint) error {
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if existing.ID == excludeID {
		return nil
	}
	return apperrors.ErrEmailExists
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResult, error) {
	ctx = withFunction(ctx, "Register")

	email := normalizeEmail(req.Email)
	logger.InfoWithContext(ctx, "Registering user").
		String("email", email).
		String("role", req.Role).
		Log()

	if err := ensureEmailFree(ctx, s.users, email, 0); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	role := req.Role
	if role == "" {
		role = constants.RoleUser
	}
	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Role:         role,
		Password:     hashed,
		TokenVersion: 1,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.LogAuth(email, "register", true)
	return s.issue(ctx, user)
}

// Login answers unknown e-mails and wrong passwords identically.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResult, error) {
	ctx = withFunction(ctx, "Login")
	email := normalizeEmail(req.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			logger.LogAuth(email, "login", false)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !checkPassword(user.Password, req.Password) {
		logger.LogAuth(email, "login", false)
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		logger.WarnWithContext(ctx, "Failed to record last login").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	logger.LogAuth(email, "login", true)
	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *model.User) (*dto.TokenResult, error) {
	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to generate token").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return token, nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	return s.users.GetByID(withFunction(ctx, "Me"), userID)
}

func (s *AuthService) UpdateDetails(ctx context.Context, userID uint, req *dto.UpdateDetailsRequest) (*model.User, error) {
	ctx = withFunction(ctx, "UpdateDetails")

	fields := map[string]interface{}{}
	if name := strings.TrimSpace(req.Name); name != "" {
		fields["name"] = name
	}
	if req.Email != "" {
		email := normalizeEmail(req.Email)
		if err := ensureEmailFree(ctx, s.users, email, userID); err != nil {
			return nil, err
		}
		fields["email"] = email
	}
	if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// UpdatePassword also revokes every other session of the user.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint, req *dto.UpdatePasswordRequest) (*dto.TokenResult, error) {
	ctx = withFunction(ctx, "UpdatePassword")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !checkPassword(user.Password, req.CurrentPassword) {
		return nil, apperrors.ErrIncorrectPassword
	}
	return s.setPassword(ctx, user, req.NewPassword, nil)
}

func (s *AuthService) setPassword(ctx context.Context, user *model.User, password string, extra map[string]interface{}) (*dto.TokenResult, error) {
	hashed, err := hashPassword(password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	fields := map[string]interface{}{
		"password":      hashed,
		"token_version": user.TokenVersion + 1,
	}
	for k, v := range extra {
		fields[k] = v
	}
	if err := s.users.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	user.Password = hashed
	user.TokenVersion++

	logger.InfoWithContext(ctx, "Password changed").
		Uint("user_id", user.ID).
		Log()
	return s.issue(ctx, user)
}

// ForgotPassword mails a single-use reset link built on baseURL. Only the
// hash of the token is stored; it expires after ten minutes.
func (s *AuthService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, baseURL string) error {
	ctx = withFunction(ctx, "ForgotPassword")

	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return apperrors.WithMessage(apperrors.ErrUserNotFound, "There is no user with that email")
		}
		return err
	}

	token, hash, err := newResetToken()
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	expire := s.now().Add(constants.ResetTokenExpiry)
	if err := s.users.SetResetToken(ctx, user.ID, &hash, &expire); err != nil {
		return err
	}

	body, err := mailer.Render(mailer.TemplateResetPassword, map[string]interface{}{
		"Name":      user.Name,
		"ResetURL":  strings.TrimRight(baseURL, "/") + "/api/v1/auth/resetpassword/" + token,
		"ExpiresAt": expire,
		"AppName":   constants.AppName,
	})
	if err == nil {
		err = s.mailer.Send(ctx, mailer.Message{
			To:      user.Email,
			Subject: "Password reset token",
			Body:    body,
		})
	}
	if err != nil {
		logger.ErrorWithContext(ctx, "Reset email failed, clearing token").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		if clearErr := s.users.SetResetToken(ctx, user.ID, nil, nil); clearErr != nil {
			logger.ErrorWithContext(ctx, "Failed to clear reset token").
				Uint("user_id", user.ID).
				Err(clearErr).
				Log()
		}
		return apperrors.WrapError(apperrors.ErrEmailNotSent, err)
	}

	logger.InfoWithContext(ctx, "Reset email sent").
		Uint("user_id", user.ID).
		Log()
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, resetToken string, req *dto.ResetPasswordRequest) (*dto.TokenResult, error) {
	ctx = withFunction(ctx, "ResetPassword")

	user, err := s.users.GetByResetToken(ctx, hashResetToken(resetToken), s.now())
	if err != nil {
		return nil, err
	}
	return s.setPassword(ctx, user, req.Password, map[string]interface{}{
		"reset_password_token":  nil,
		"reset_password_expire": nil,
	})
}

// Logout revokes every token issued to the user.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	ctx = withFunction(ctx, "Logout")
	if err := s.users.BumpTokenVersion(ctx, userID); err != nil {
		return err
	}
	logger.InfoWithContext(ctx, "User logged out").
		Uint("user_id", userID).
		Log()
	return nil
}

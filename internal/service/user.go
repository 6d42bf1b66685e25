package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/dto"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/pkg/advquery"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

// UserService backs the admin user management routes.
type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context, query url.Values) (*advquery.Envelope, error) {
	return s.users.List(withFunction(ctx, "ListUsers"), query)
}

func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	return s.users.GetByID(withFunction(ctx, "GetUser"), id)
}

func (s *UserService) Create(ctx context.Context, req *dto.CreateUserRequest) (*model.User, error) {
	ctx = withFunction(ctx, "CreateUser")

	email := normalizeEmail(req.Email)
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
	return user, nil
}

// Update changes profile fields. A role change revokes the user's tokens so
// that the new role takes effect immediately.
func (s *UserService) Update(ctx context.Context, id uint, req *dto.UpdateUserRequest) (*model.User, error) {
	ctx = withFunction(ctx, "UpdateUser")

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if name := strings.TrimSpace(req.Name); name != "" {
		fields["name"] = name
	}
	if req.Email != "" {
		email := normalizeEmail(req.Email)
		if err := ensureEmailFree(ctx, s.users, email, id); err != nil {
			return nil, err
		}
		fields["email"] = email
	}
	if req.Role != "" && req.Role != user.Role {
		fields["role"] = req.Role
		fields["token_version"] = user.TokenVersion + 1
	}
	if err := s.users.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "User updated by admin").
		Uint("target_user_id", id).
		Int("fields", len(fields)).
		Log()
	return s.users.GetByID(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, actor Actor, id uint) error {
	ctx = withFunction(ctx, "DeleteUser")
	if actor.ID == id {
		return apperrors.ErrSelfDeletion
	}
	return s.users.Delete(ctx, id)
}

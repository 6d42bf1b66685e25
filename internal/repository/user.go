package repository

import (
	"context"
	"net/url"
	"time"

	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/pkg/advquery"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db     *gorm.DB
	lister *advquery.Paginator[model.User]
}

func NewUserRepository(db *gorm.DB, maxLimit int) (*UserRepository, error) {
	lister, err := newLister[model.User](db, nil, maxLimit)
	if err != nil {
		return nil, err
	}
	return &UserRepository{db: db, lister: lister}, nil
}

func (r *UserRepository) List(ctx context.Context, query url.Values) (*advquery.Envelope, error) {
	return list(ctx, r.lister, "ListUsers", query)
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx, err := enter(ctx, "GetByID")
	if err != nil {
		return nil, err
	}

	logger.DebugWithContext(ctx, "Getting user by ID").
		Uint("user_id", id).
		Log()

	start := time.Now()
	var user model.User
	err = r.db.WithContext(ctx).First(&user, id).Error
	if err := finished(ctx, "get user by ID", start, err, apperrors.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, err := enter(ctx, "GetByEmail")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var user model.User
	err = r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err := finished(ctx, "get user by email", start, err, apperrors.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByResetToken finds the user holding an unexpired reset token hash.
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	ctx, err := enter(ctx, "GetByResetToken")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var user model.User
	err = r.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expire > ?", tokenHash, now).
		First(&user).Error
	if err := finished(ctx, "get user by reset token", start, err, apperrors.ErrInvalidResetToken); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx, err := enter(ctx, "Create")
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.db.WithContext(ctx).Create(user).Error
	if err := finished(ctx, "create user", start, err, nil); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "User created").
		Uint("user_id", user.ID).
		String("role", user.Role).
		Log()
	return nil
}

// UpdateFields applies a partial update keyed by column name.
func (r *UserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	ctx, err := enter(ctx, "UpdateFields")
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	err = result.Error
	if err == nil && result.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
	}
	return finished(ctx, "update user", start, err, apperrors.ErrUserNotFound)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id uint, tokenHash *string, expire *time.Time) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"reset_password_token":  tokenHash,
		"reset_password_expire": expire,
	})
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{"last_login": at})
}

// BumpTokenVersion invalidates every token issued to the user so far.
func (r *UserRepository) BumpTokenVersion(ctx context.Context, id uint) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"token_version": gorm.Expr("token_version + 1"),
	})
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	ctx, err := enter(ctx, "Delete")
	if err != nil {
		return err
	}

	start := time.Now()
	result := r.db.WithContext(ctx).Delete(&model.User{}, id)
	err = result.Error
	if err == nil && result.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
	}
	if err := finished(ctx, "delete user", start, err, apperrors.ErrUserNotFound); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "User deleted").
		Uint("user_id", id).
		Log()
	return nil
}

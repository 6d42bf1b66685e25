package database

import (
	"context"
	"errors"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultAdmin defines the admin account created on first start
type DefaultAdmin struct {
	Name     string
	Email    string
	Password string
}

// SeedAdmin creates the admin user if no user with its e-mail exists.
// It reports whether a user was created.
func SeedAdmin(ctx context.Context, db *gorm.DB, admin DefaultAdmin) (bool, error) {
	var existing model.User
	err := db.WithContext(ctx).Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	user := model.User{
		Name:         admin.Name,
		Email:        admin.Email,
		Role:         constants.RoleAdmin,
		Password:     string(hashedPassword),
		TokenVersion: 1,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}

package database

import (
	"github.com/Payphone-Digital/devcamper/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Bootcamp{},
		&model.Course{},
		&model.Review{},
	)
}

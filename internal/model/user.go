package model

import (
	"time"
)

type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Name                string     `gorm:"column:name;not null" json:"name"`
	Email               string     `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Role                string     `gorm:"column:role;type:varchar(20);default:user;not null;check:role IN ('user','publisher','admin')" json:"role"`
	Password            string     `gorm:"column:password;not null" json:"-"`
	ResetPasswordToken  *string    `gorm:"column:reset_password_token;index:idx_users_reset_token,where:reset_password_token IS NOT NULL" json:"-"`
	ResetPasswordExpire *time.Time `gorm:"column:reset_password_expire" json:"-"`
	TokenVersion        int        `gorm:"column:token_version;default:1;not null" json:"-"`
	LastLogin           *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

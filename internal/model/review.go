package model

import "time"

type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"column:title;size:100;not null" json:"title"`
	Text       string    `gorm:"column:text;not null" json:"text"`
	Rating     int       `gorm:"column:rating;not null;check:rating BETWEEN 1 AND 10" json:"rating"`
	BootcampID uint      `gorm:"column:bootcamp_id;not null;uniqueIndex:idx_reviews_user_bootcamp" json:"bootcamp_id"`
	UserID     uint      `gorm:"column:user_id;not null;uniqueIndex:idx_reviews_user_bootcamp" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Bootcamp *Bootcamp `json:"bootcamp,omitempty"`
}

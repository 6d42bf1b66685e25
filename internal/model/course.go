package model

import "time"

type Course struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Title                string    `gorm:"column:title;not null" json:"title"`
	Description          string    `gorm:"column:description;not null" json:"description"`
	Weeks                int       `gorm:"column:weeks;not null" json:"weeks"`
	Tuition              float64   `gorm:"column:tuition;not null" json:"tuition"`
	MinimumSkill         string    `gorm:"column:minimum_skill;type:varchar(20);not null;check:minimum_skill IN ('beginner','intermediate','advanced')" json:"minimum_skill"`
	ScholarshipAvailable bool      `gorm:"column:scholarship_available;default:false" json:"scholarship_available"`
	BootcampID           uint      `gorm:"column:bootcamp_id;index;not null" json:"bootcamp_id"`
	UserID               uint      `gorm:"column:user_id;index;not null" json:"user_id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	Bootcamp *Bootcamp `json:"bootcamp,omitempty"`
}

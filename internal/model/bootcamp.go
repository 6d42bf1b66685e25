package model

import (
	"time"

	"gorm.io/datatypes"
)

type Bootcamp struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	Name             string                      `gorm:"column:name;size:50;uniqueIndex;not null" json:"name"`
	Slug             string                      `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Description      string                      `gorm:"column:description;size:500;not null" json:"description"`
	Website          string                      `gorm:"column:website" json:"website,omitempty"`
	Phone            string                      `gorm:"column:phone;size:20" json:"phone,omitempty"`
	Email            string                      `gorm:"column:email" json:"email,omitempty"`
	Address          string                      `gorm:"column:address;not null" json:"address"`
	Latitude         *float64                    `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude        *float64                    `gorm:"column:longitude" json:"longitude,omitempty"`
	FormattedAddress string                      `gorm:"column:formatted_address" json:"formatted_address,omitempty"`
	Careers          datatypes.JSONSlice[string] `gorm:"column:careers;not null" json:"careers"`
	AverageRating    *float64                    `gorm:"column:average_rating" json:"average_rating,omitempty"`
	AverageCost      *float64                    `gorm:"column:average_cost" json:"average_cost,omitempty"`
	Photo            string                      `gorm:"column:photo;default:no-photo.jpg" json:"photo"`
	Housing          bool                        `gorm:"column:housing;default:false" json:"housing"`
	JobAssistance    bool                        `gorm:"column:job_assistance;default:false" json:"job_assistance"`
	JobGuarantee     bool                        `gorm:"column:job_guarantee;default:false" json:"job_guarantee"`
	AcceptGI         bool                        `gorm:"column:accept_gi;default:false" json:"accept_gi"`
	UserID           uint                        `gorm:"column:user_id;index;not null" json:"user_id"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`

	Courses []Course `gorm:"foreignKey:BootcampID;constraint:OnDelete:CASCADE" json:"courses,omitempty"`
	Reviews []Review `gorm:"foreignKey:BootcampID;constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}

// HasLocation reports whether both coordinates are set.
func (b *Bootcamp) HasLocation() bool {
	return b.Latitude != nil && b.Longitude != nil
}

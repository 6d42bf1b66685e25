package constants

import "time"

// Field Length Limits
const (
	MinPasswordLength    = 6
	MaxPasswordLength    = 100
	MaxNameLength        = 50
	MaxDescLength        = 500
	MaxPhoneLength       = 20
	MaxEmailLength       = 255
	MaxURLLength         = 2048
	MaxReviewTitleLength = 100
	MinRating            = 1
	MaxRating            = 10
)

// Roles
const (
	RoleUser      = "user"
	RolePublisher = "publisher"
	RoleAdmin     = "admin"
)

// Course skill levels
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

// Password reset
const (
	ResetTokenBytes  = 20
	ResetTokenExpiry = 10 * time.Minute
)

// Geo
const (
	EarthRadiusMiles = 3963.2
)

// Validation Patterns
const (
	EmailPattern = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	URLPattern   = `^https?://[\w.-]+(?:\.[\w.-]+)+[\w\-._~:/?#[\]@!$&'()*+,;=.]*$`
)

// Careers a bootcamp may offer
var Careers = []string{
	"Web Development",
	"Mobile Development",
	"UI/UX",
	"Data Science",
	"Business",
	"Other",
}

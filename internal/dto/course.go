package dto

type CreateCourseRequest struct {
	Title                string  `json:"title" binding:"required"`
	Description          string  `json:"description" binding:"required"`
	Weeks                int     `json:"weeks" binding:"required,gt=0"`
	Tuition              float64 `json:"tuition" binding:"required,gte=0"`
	MinimumSkill         string  `json:"minimum_skill" binding:"required,oneof=beginner intermediate advanced"`
	ScholarshipAvailable bool    `json:"scholarship_available"`
}

type UpdateCourseRequest struct {
	Title                *string  `json:"title"`
	Description          *string  `json:"description"`
	Weeks                *int     `json:"weeks" binding:"omitempty,gt=0"`
	Tuition              *float64 `json:"tuition" binding:"omitempty,gte=0"`
	MinimumSkill         *string  `json:"minimum_skill" binding:"omitempty,oneof=beginner intermediate advanced"`
	ScholarshipAvailable *bool    `json:"scholarship_available"`
}

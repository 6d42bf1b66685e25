package dto

type CreateBootcampRequest struct {
	Name          string   `json:"name" binding:"required,max=50"`
	Description   string   `json:"description" binding:"required,max=500"`
	Website       string   `json:"website" binding:"omitempty,url"`
	Phone         string   `json:"phone" binding:"omitempty,max=20"`
	Email         string   `json:"email" binding:"omitempty,email"`
	Address       string   `json:"address" binding:"required"`
	Latitude      *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude" binding:"omitempty,longitude"`
	Careers       []string `json:"careers" binding:"required,min=1,dive,career"`
	Housing       bool     `json:"housing"`
	JobAssistance bool     `json:"job_assistance"`
	JobGuarantee  bool     `json:"job_guarantee"`
	AcceptGI      bool     `json:"accept_gi"`
}

// UpdateBootcampRequest uses pointers so absent fields are left untouched.
type UpdateBootcampRequest struct {
	Name          *string  `json:"name" binding:"omitempty,max=50"`
	Description   *string  `json:"description" binding:"omitempty,max=500"`
	Website       *string  `json:"website" binding:"omitempty,url"`
	Phone         *string  `json:"phone" binding:"omitempty,max=20"`
	Email         *string  `json:"email" binding:"omitempty,email"`
	Address       *string  `json:"address"`
	Latitude      *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude" binding:"omitempty,longitude"`
	Careers       []string `json:"careers" binding:"omitempty,min=1,dive,career"`
	Housing       *bool    `json:"housing"`
	JobAssistance *bool    `json:"job_assistance"`
	JobGuarantee  *bool    `json:"job_guarantee"`
	AcceptGI      *bool    `json:"accept_gi"`
}

// RadiusQuery is bound from /bootcamps/radius/:lat/:lng/:distance.
type RadiusQuery struct {
	Latitude  float64 `uri:"lat" binding:"latitude"`
	Longitude float64 `uri:"lng" binding:"longitude"`
	Distance  float64 `uri:"distance" binding:"gt=0"`
}

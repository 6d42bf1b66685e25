package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldMessages override the generic text for specific field and tag pairs.
var fieldMessages = map[string]map[string]string{
	"email": {
		"required": "Please add an email",
		"email":    "Please add a valid email",
	},
	"password": {
		"required": "Please add a password",
		"min":      "Password must be at least 6 characters",
	},
	"name": {
		"required": "Please add a name",
		"max":      "Name can not be more than 50 characters",
	},
	"description": {
		"required": "Please add a description",
		"max":      "Description can not be more than 500 characters",
	},
	"rating": {
		"required": "Please add a rating between 1 and 10",
		"min":      "Please add a rating between 1 and 10",
		"max":      "Please add a rating between 1 and 10",
	},
	"minimum_skill": {
		"required": "Please add a minimum skill",
		"oneof":    "Minimum skill must be one of beginner, intermediate, advanced",
	},
	"website": {
		"url": "Please use a valid URL with HTTP or HTTPS",
	},
}

// Message renders one validator failure as a sentence.
func Message(e validator.FieldError) string {
	field := e.Field()
	if msgs, ok := fieldMessages[field]; ok {
		if msg, ok := msgs[e.Tag()]; ok {
			return msg
		}
	}
	return DefaultMessage(field, e.Tag(), e.Param())
}

func DefaultMessage(field, tag, param string) string {
	field = strings.ToLower(field)

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "len":
		return fmt.Sprintf("%s must have length %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "latitude":
		return fmt.Sprintf("%s must be a valid latitude", field)
	case "longitude":
		return fmt.Sprintf("%s must be a valid longitude", field)
	case "career":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(careers, ", "))
	case "boolean":
		return fmt.Sprintf("%s must be true or false", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

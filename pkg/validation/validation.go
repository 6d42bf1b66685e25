// Package validation registers the custom rules and renders validator
// failures as English messages keyed by JSON field names.
package validation

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/go-playground/validator/v10"
)

var careers = constants.Careers

// Register installs JSON field naming and the custom rules on v.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonName)
	return v.RegisterValidation("career", func(fl validator.FieldLevel) bool {
		return slices.Contains(careers, fl.Field().String())
	})
}

func jsonName(f reflect.StructField) string {
	for _, tag := range []string{"json", "uri", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Messages flattens a binding error into user facing sentences. Errors that
// are not validation failures (malformed JSON, wrong types) yield one entry.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, Message(e))
	}
	return out
}

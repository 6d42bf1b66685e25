// Package geocoder resolves street addresses to coordinates.
package geocoder

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNoMatch  = errors.New("address could not be resolved")
	ErrDisabled = errors.New("geocoder is disabled")
)

type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Location, error)
}

// Disabled is used when no upstream is configured.
type Disabled struct{}

func (Disabled) Geocode(context.Context, string) (*Location, error) {
	return nil, ErrDisabled
}

// normalize folds case and whitespace so equivalent addresses share a cache entry.
func normalize(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

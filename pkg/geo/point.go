package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedPoint = errors.New("malformed coordinate")
	ErrOutOfRange     = errors.New("coordinate out of range")
)

// Point is a WGS84 coordinate. Address is filled by reverse geocoding and is
// never used by the calculator.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

func NewPoint(lat, lon float64) Point {
	return Point{Latitude: lat, Longitude: lon}
}

// Validate rejects coordinates outside [-90,90] x [-180,180] and NaN values.
func (p Point) Validate() error {
	if p.Latitude != p.Latitude || p.Longitude != p.Longitude {
		return fmt.Errorf("%w: not a number", ErrMalformedPoint)
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %.6f", ErrOutOfRange, p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %.6f", ErrOutOfRange, p.Longitude)
	}
	return nil
}

// String renders the literal coordinates, which double as the fallback address.
func (p Point) String() string {
	return fmt.Sprintf("%.6f, %.6f", p.Latitude, p.Longitude)
}

// Label returns the resolved address, or the coordinates when none is known.
func (p Point) Label() string {
	if p.Address != "" {
		return p.Address
	}
	return p.String()
}

func (p Point) Equal(o Point) bool {
	return p.Latitude == o.Latitude && p.Longitude == o.Longitude
}

// ParsePoint reads "lat,lon", "lat lon" or "lat;lon" and validates the range.
func ParsePoint(text string) (Point, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Point{}, fmt.Errorf("%w: empty input", ErrMalformedPoint)
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 2 {
		return Point{}, fmt.Errorf("%w: expected two numbers, got %q", ErrMalformedPoint, text)
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: latitude %q", ErrMalformedPoint, fields[0])
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: longitude %q", ErrMalformedPoint, fields[1])
	}

	p := NewPoint(lat, lon)
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

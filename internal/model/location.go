package model

import "fmt"

// ValidationError describes malformed caller input (bad coordinates,
// non-positive seat counts, end time not after start time, ...). Handlers
// translate it into an HTTP 400 response.
type ValidationError string

// Error implements the error interface.
func (e ValidationError) Error() string { return string(e) }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...interface{}) ValidationError {
	return ValidationError(fmt.Sprintf(format, args...))
}

// Location is a geographic point together with a human-readable address.
// The three fields travel as a unit: a location missing any of them is
// invalid. Coordinates are WGS84 degrees.
//
// Fields:
//  Latitude  – degrees north, in [-90, 90].
//  Longitude – degrees east, in [-180, 180].
//  Address   – free-form address string shown to the other party.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// Validate checks that all three parts of the location are present and that
// the coordinates are within range. The name parameter identifies the
// location in the error message ("origin", "pickup", ...).
func (l Location) Validate(name string) error {
	if l.Address == "" {
		return Validationf("%s address is required", name)
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return Validationf("%s latitude %v out of range", name, l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return Validationf("%s longitude %v out of range", name, l.Longitude)
	}
	return nil
}

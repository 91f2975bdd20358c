package model

import "fmt"

// Observer describes the ground location positions are requested for.
// Elevation is metres above sea level; Altitude is carried along for the
// position services that accept it.
type Observer struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Elevation       float64 `json:"elevation"`
	Altitude        float64 `json:"altitude"`
	DurationMinutes int     `json:"duration"`
}

// DefaultMaxDurationMinutes bounds a session window to one day of
// per-second samples.
const DefaultMaxDurationMinutes = 24 * 60

// EndTimeSeconds is the length of the requested position window.
func (o Observer) EndTimeSeconds() int {
	return o.DurationMinutes * 60
}

// Validate checks the observer is on the globe and asks for a positive window
// no longer than DefaultMaxDurationMinutes.
func (o Observer) Validate() error {
	return o.ValidateWithin(DefaultMaxDurationMinutes)
}

// ValidateWithin is Validate with an explicit window limit in minutes.
func (o Observer) ValidateWithin(maxMinutes int) error {
	if o.Latitude < -90 || o.Latitude > 90 {
		return fmt.Errorf("observer latitude %v out of range [-90, 90]", o.Latitude)
	}
	if o.Longitude < -180 || o.Longitude > 180 {
		return fmt.Errorf("observer longitude %v out of range [-180, 180]", o.Longitude)
	}
	if o.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be positive, got %d minutes", o.DurationMinutes)
	}
	if o.DurationMinutes > maxMinutes {
		return fmt.Errorf("duration %d minutes exceeds the %d minute limit", o.DurationMinutes, maxMinutes)
	}
	return nil
}

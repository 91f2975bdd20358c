package model

import "fmt"

// LoadingState reports what the tracking view is busy with.
type LoadingState int

const (
	// Idle means no fetch or animation is active.
	Idle LoadingState = iota
	// Loading means a position fetch is in flight.
	Loading
	// Drawing means an animation session is active.
	Drawing
)

func (s LoadingState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Drawing:
		return "drawing"
	default:
		return fmt.Sprintf("LoadingState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s LoadingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *LoadingState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "loading":
		*s = Loading
	case "drawing":
		*s = Drawing
	default:
		return fmt.Errorf("unknown loading state %q", string(b))
	}
	return nil
}

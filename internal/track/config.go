package track

import "time"

// JSDateLayout renders a time the way a browser's Date.toString does, for
// example "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)".
const JSDateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// Config holds the animation constants. Zero fields take their defaults.
type Config struct {
	// TickInterval is the wall-clock period between frames.
	TickInterval time.Duration
	// FrameStride is how many samples each tick advances. Samples are one
	// simulated second apart, so 60 means one simulated minute per tick.
	FrameStride int
	// Speedup scales elapsed wall time into simulated time for the header.
	Speedup float64
	// TimeLayout formats the header timestamp.
	TimeLayout string
	// Location is the zone the header is printed in; nil means local time.
	Location *time.Location

	MarkerRadius float64
	LabelOffset  float64
	HeaderX      float64
	HeaderY      float64
	HeaderFont   float64
	LabelFont    float64
	HeaderColor  string
}

// DefaultConfig returns the 1 s / 60-sample animation on a 960x600 overlay.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		FrameStride:  60,
		Speedup:      60,
		TimeLayout:   JSDateLayout,
		MarkerRadius: 4,
		LabelOffset:  14,
		HeaderX:      480,
		HeaderY:      10,
		HeaderFont:   14,
		LabelFont:    11,
		HeaderColor:  "#333333",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.FrameStride < 1 {
		c.FrameStride = d.FrameStride
	}
	if c.Speedup <= 0 {
		c.Speedup = d.Speedup
	}
	if c.TimeLayout == "" {
		c.TimeLayout = d.TimeLayout
	}
	if c.MarkerRadius <= 0 {
		c.MarkerRadius = d.MarkerRadius
	}
	if c.LabelOffset == 0 {
		c.LabelOffset = d.LabelOffset
	}
	if c.HeaderX == 0 && c.HeaderY == 0 {
		c.HeaderX, c.HeaderY = d.HeaderX, d.HeaderY
	}
	if c.HeaderFont <= 0 {
		c.HeaderFont = d.HeaderFont
	}
	if c.LabelFont <= 0 {
		c.LabelFont = d.LabelFont
	}
	if c.HeaderColor == "" {
		c.HeaderColor = d.HeaderColor
	}
	return c
}

// Package render defines the drawing surface the map and the animation draw
// on, independent of any UI toolkit.
package render

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Align is the horizontal anchor of drawn text.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Font selects a text face. Size is in canvas units.
type Font struct {
	Size float64
	Bold bool
}

// Surface is a 2D drawing context modelled on the HTML canvas: a current
// path, fill and stroke styles, and a global alpha applied to every draw.
// Fill and Stroke keep the current path; BeginPath discards it.
type Surface interface {
	Width() int
	Height() int

	// Clear makes every pixel fully transparent.
	Clear()

	SetGlobalAlpha(a float64)
	SetFillColor(c color.Color)
	SetStrokeColor(c color.Color)
	SetLineWidth(w float64)
	SetFont(f Font)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	ClosePath()
	// Arc adds a circular arc centred on (x, y) with angles in radians.
	Arc(x, y, r, startAngle, endAngle float64)

	Fill()
	Stroke()

	// FillText draws text with its baseline at y using the fill colour.
	FillText(text string, x, y float64, align Align)
}

// Atomically runs fn while holding the surface's lock when it has one, so
// readers never observe a half-drawn frame.
func Atomically(s Surface, fn func()) {
	if l, ok := s.(interface {
		Lock()
		Unlock()
	}); ok {
		l.Lock()
		defer l.Unlock()
	}
	fn()
}

// Hex parses a #rrggbb colour.
func Hex(s string) (color.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("parse colour %q: %w", s, err)
	}
	return c, nil
}

// MustHex is Hex for package-level colour constants.
func MustHex(s string) color.Color {
	c, err := Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// RGBA builds a colour from 0-255 channels and a 0-1 alpha, like CSS rgba().
func RGBA(r, g, b uint8, a float64) color.Color {
	return color.NRGBA{R: r, G: g, B: b, A: uint8(clamp01(a)*255 + 0.5)}
}

// withAlpha scales c's opacity by a.
func withAlpha(c color.Color, a float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A)*clamp01(a) + 0.5)
	return n
}

func clamp01(a float64) float64 {
	switch {
	case a < 0:
		return 0
	case a > 1:
		return 1
	default:
		return a
	}
}

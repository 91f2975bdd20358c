// Package palette assigns stable display colours to satellites.
package palette

import (
	"image/color"
	"regexp"
	"strings"
	"sync"

	"github.com/signalsfoundry/groundtrack/internal/render"
)

// Category10 is the ten-colour categorical scheme used for satellite markers.
var Category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

var digitGroups = regexp.MustCompile(`\d+`)

// IdentityKey derives the key a satellite is coloured and labelled by: every
// run of digits in its display name, concatenated. A name without digits
// yields the empty string, which is still a valid (shared) key.
func IdentityKey(name string) string {
	return strings.Join(digitGroups.FindAllString(name, -1), "")
}

// Assigner hands out palette colours in first-seen order and remembers them
// for the life of the process. Keys beyond the palette size wrap around.
type Assigner struct {
	mu      sync.Mutex
	palette []color.Color
	index   map[string]int
}

// NewAssigner builds an assigner over hex colours; Category10 when none given.
func NewAssigner(hexColors ...string) *Assigner {
	if len(hexColors) == 0 {
		hexColors = Category10
	}
	colors := make([]color.Color, len(hexColors))
	for i, h := range hexColors {
		colors[i] = render.MustHex(h)
	}
	return &Assigner{
		palette: colors,
		index:   make(map[string]int),
	}
}

// ColorFor returns the colour for key, assigning the next palette entry the
// first time key is seen.
func (a *Assigner) ColorFor(key string) color.Color {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, ok := a.index[key]
	if !ok {
		i = len(a.index)
		a.index[key] = i
	}
	return a.palette[i%len(a.palette)]
}

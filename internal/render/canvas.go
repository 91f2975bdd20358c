package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce    sync.Once
	regularTTF   *truetype.Font
	boldTTF      *truetype.Font
	errFontParse error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularTTF, errFontParse = truetype.Parse(goregular.TTF)
		if errFontParse != nil {
			return
		}
		boldTTF, errFontParse = truetype.Parse(gobold.TTF)
	})
	return errFontParse
}

// Canvas is a raster Surface. Drawing methods do not lock; wrap a batch of
// draws in Atomically (or Lock/Unlock) when other goroutines read the image.
type Canvas struct {
	mu sync.Mutex
	dc *gg.Context

	alpha  float64
	fill   color.Color
	stroke color.Color
	faces  map[Font]font.Face
}

// NewCanvas creates a transparent canvas of the given size.
func NewCanvas(width, height int) (*Canvas, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	c := &Canvas{
		dc:     gg.NewContext(width, height),
		alpha:  1,
		fill:   color.Black,
		stroke: color.Black,
		faces:  make(map[Font]font.Face),
	}
	c.dc.SetLineWidth(1)
	return c, nil
}

func (c *Canvas) Lock()   { c.mu.Lock() }
func (c *Canvas) Unlock() { c.mu.Unlock() }

func (c *Canvas) Width() int  { return c.dc.Width() }
func (c *Canvas) Height() int { return c.dc.Height() }

func (c *Canvas) Clear() {
	c.dc.SetColor(color.Transparent)
	c.dc.Clear()
}

func (c *Canvas) SetGlobalAlpha(a float64)       { c.alpha = clamp01(a) }
func (c *Canvas) SetFillColor(col color.Color)   { c.fill = col }
func (c *Canvas) SetStrokeColor(col color.Color) { c.stroke = col }
func (c *Canvas) SetLineWidth(w float64)         { c.dc.SetLineWidth(w) }

func (c *Canvas) SetFont(f Font) {
	face, ok := c.faces[f]
	if !ok {
		ttf := regularTTF
		if f.Bold {
			ttf = boldTTF
		}
		face = truetype.NewFace(ttf, &truetype.Options{Size: f.Size})
		c.faces[f] = face
	}
	c.dc.SetFontFace(face)
}

func (c *Canvas) BeginPath()          { c.dc.ClearPath() }
func (c *Canvas) MoveTo(x, y float64) { c.dc.MoveTo(x, y) }
func (c *Canvas) LineTo(x, y float64) { c.dc.LineTo(x, y) }
func (c *Canvas) ClosePath()          { c.dc.ClosePath() }

func (c *Canvas) Arc(x, y, r, startAngle, endAngle float64) {
	c.dc.DrawArc(x, y, r, startAngle, endAngle)
}

func (c *Canvas) Fill() {
	c.dc.SetColor(withAlpha(c.fill, c.alpha))
	c.dc.FillPreserve()
}

func (c *Canvas) Stroke() {
	c.dc.SetColor(withAlpha(c.stroke, c.alpha))
	c.dc.StrokePreserve()
}

func (c *Canvas) FillText(text string, x, y float64, align Align) {
	ax := 0.0
	switch align {
	case AlignCenter:
		ax = 0.5
	case AlignRight:
		ax = 1
	}
	c.dc.SetColor(withAlpha(c.fill, c.alpha))
	c.dc.DrawStringAnchored(text, x, y, ax, 0)
}

// Snapshot copies the current pixels under the canvas lock.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	src := c.dc.Image()
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// Compose draws the layers over each other, bottom first, into a new image
// the size of the first layer.
func Compose(layers ...*Canvas) *image.RGBA {
	if len(layers) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	out := layers[0].Snapshot()
	for _, l := range layers[1:] {
		img := l.Snapshot()
		draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)
	}
	return out
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

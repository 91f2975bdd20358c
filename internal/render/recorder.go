package render

import (
	"image/color"
	"sync"
)

// OpKind names a recorded drawing operation.
type OpKind string

const (
	OpFill   OpKind = "fill"
	OpStroke OpKind = "stroke"
	OpArc    OpKind = "arc"
	OpText   OpKind = "text"
)

// Op is one drawing operation captured by a Recorder, together with the
// style in effect when it was issued.
type Op struct {
	Kind      OpKind
	X, Y, R   float64
	Text      string
	Align     Align
	Font      Font
	Color     color.Color
	Alpha     float64
	LineWidth float64
	// Segments is the number of path commands the fill or stroke covered.
	Segments int
}

// Recorder is a Surface that records operations instead of rasterising
// them. Tests use it to assert what a frame drew; Clear discards the ops
// recorded so far, like clearing a real canvas.
type Recorder struct {
	mu sync.Mutex

	width, height int
	ops           []Op
	clears        int

	alpha     float64
	fill      color.Color
	stroke    color.Color
	lineWidth float64
	font      Font
	segments  int
}

// NewRecorder creates a recorder reporting the given size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{
		width:     width,
		height:    height,
		alpha:     1,
		fill:      color.Black,
		stroke:    color.Black,
		lineWidth: 1,
	}
}

func (r *Recorder) Lock()   { r.mu.Lock() }
func (r *Recorder) Unlock() { r.mu.Unlock() }

func (r *Recorder) Width() int  { return r.width }
func (r *Recorder) Height() int { return r.height }

func (r *Recorder) Clear() {
	r.ops = nil
	r.clears++
}

func (r *Recorder) SetGlobalAlpha(a float64)     { r.alpha = clamp01(a) }
func (r *Recorder) SetFillColor(c color.Color)   { r.fill = c }
func (r *Recorder) SetStrokeColor(c color.Color) { r.stroke = c }
func (r *Recorder) SetLineWidth(w float64)       { r.lineWidth = w }
func (r *Recorder) SetFont(f Font)               { r.font = f }

func (r *Recorder) BeginPath()          { r.segments = 0 }
func (r *Recorder) MoveTo(x, y float64) { r.segments++ }
func (r *Recorder) LineTo(x, y float64) { r.segments++ }
func (r *Recorder) ClosePath()          { r.segments++ }

func (r *Recorder) Arc(x, y, radius, startAngle, endAngle float64) {
	r.segments++
	r.ops = append(r.ops, Op{Kind: OpArc, X: x, Y: y, R: radius, Color: r.fill, Alpha: r.alpha})
}

func (r *Recorder) Fill() {
	r.ops = append(r.ops, Op{Kind: OpFill, Color: r.fill, Alpha: r.alpha, Segments: r.segments})
}

func (r *Recorder) Stroke() {
	r.ops = append(r.ops, Op{Kind: OpStroke, Color: r.stroke, Alpha: r.alpha, LineWidth: r.lineWidth, Segments: r.segments})
}

func (r *Recorder) FillText(text string, x, y float64, align Align) {
	r.ops = append(r.ops, Op{Kind: OpText, X: x, Y: y, Text: text, Align: align, Font: r.font, Color: r.fill, Alpha: r.alpha})
}

// Ops returns a copy of the operations recorded since the last Clear.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// OpsOfKind filters Ops by kind.
func (r *Recorder) OpsOfKind(kind OpKind) []Op {
	var out []Op
	for _, op := range r.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Clears reports how many times Clear has been called.
func (r *Recorder) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

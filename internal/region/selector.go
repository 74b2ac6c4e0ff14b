// Package region implements drag-to-select of a rectangle over the video
// display area.
package region

import "math"

// DefaultMinSize is the minimum width and height, exclusive, of an
// acceptable selection.
const DefaultMinSize = 10.0

// State is the selector state.
type State int

const (
	Idle State = iota
	Selecting
	Dragging
	Selected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Dragging:
		return "dragging"
	case Selected:
		return "selected"
	}
	return "unknown"
}

// Point is a position in display coordinates.
type Point struct {
	X, Y float64
}

// Rect is a rectangle in display coordinates relative to the video area.
type Rect struct {
	X, Y, W, H float64
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Bounds returns the bounding box of two points.
func Bounds(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

// Selector is the region selection state machine:
//
//	Idle/Selected --Start--> Selecting --PointerDown--> Dragging
//	Dragging --PointerMove--> Dragging
//	Dragging --PointerUp--> Selected   (both sides > MinSize)
//	Dragging --PointerUp--> Selecting  (too small, discarded)
type Selector struct {
	MinSize float64

	state  State
	anchor Point
	rect   Rect
}

// NewSelector returns an idle selector. A non-positive minSize uses
// DefaultMinSize.
func NewSelector(minSize float64) *Selector {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &Selector{MinSize: minSize}
}

// State returns the current state.
func (s *Selector) State() State { return s.state }

// Rect returns the current rectangle: the finalized selection when Selected,
// the rubber band while Dragging, empty otherwise.
func (s *Selector) Rect() Rect { return s.rect }

// Region returns the finalized selection.
func (s *Selector) Region() (Rect, bool) {
	if s.state != Selected {
		return Rect{}, false
	}
	return s.rect, true
}

// Start arms a new selection and drops any previous one.
func (s *Selector) Start() {
	s.state = Selecting
	s.rect = Rect{}
	s.anchor = Point{}
}

// Cancel abandons selection and returns to Idle.
func (s *Selector) Cancel() {
	s.state = Idle
	s.rect = Rect{}
	s.anchor = Point{}
}

// PointerDown starts a drag at p when armed.
func (s *Selector) PointerDown(p Point) {
	if s.state != Selecting {
		return
	}
	s.state = Dragging
	s.anchor = p
	s.rect = Rect{X: p.X, Y: p.Y}
}

// PointerMove updates the rubber band to span the anchor and p.
func (s *Selector) PointerMove(p Point) {
	if s.state != Dragging {
		return
	}
	s.rect = Bounds(s.anchor, p)
}

// PointerUp ends a drag. It returns the selection and true when it met the
// size threshold; otherwise the attempt is discarded and the selector stays
// armed.
func (s *Selector) PointerUp() (Rect, bool) {
	if s.state != Dragging {
		return Rect{}, false
	}
	if !s.acceptable(s.rect) {
		s.state = Selecting
		s.rect = Rect{}
		return Rect{}, false
	}
	s.state = Selected
	return s.rect, true
}

// Set installs a selection directly, for example from a saved preset. It
// reports false and leaves the selector unchanged when r is too small.
func (s *Selector) Set(r Rect) bool {
	if !s.acceptable(r) {
		return false
	}
	s.rect = r
	s.state = Selected
	return true
}

// Rescale scales a finalized selection when the display area is resized, so
// it keeps covering the same part of the video.
func (s *Selector) Rescale(sx, sy float64) {
	if s.state != Selected || sx <= 0 || sy <= 0 {
		return
	}
	s.rect = Rect{X: s.rect.X * sx, Y: s.rect.Y * sy, W: s.rect.W * sx, H: s.rect.H * sy}
}

func (s *Selector) acceptable(r Rect) bool {
	return r.W > s.MinSize && r.H > s.MinSize
}

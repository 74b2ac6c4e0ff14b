package region

import "testing"

func TestDragSelectsRegion(t *testing.T) {
	s := NewSelector(10)
	s.Start()
	if s.State() != Selecting {
		t.Fatalf("state = %v, want selecting", s.State())
	}

	s.PointerDown(Point{X: 100, Y: 50})
	if s.State() != Dragging {
		t.Fatalf("state = %v, want dragging", s.State())
	}
	s.PointerMove(Point{X: 150, Y: 70})
	s.PointerMove(Point{X: 160, Y: 80})

	r, ok := s.PointerUp()
	if !ok {
		t.Fatal("selection should finalize")
	}
	want := Rect{X: 100, Y: 50, W: 60, H: 30}
	if r != want {
		t.Errorf("rect = %+v, want %+v", r, want)
	}
	if got, ok := s.Region(); !ok || got != want {
		t.Errorf("Region() = %+v, %v", got, ok)
	}
}

func TestDragInAnyDirection(t *testing.T) {
	s := NewSelector(10)
	s.Start()
	s.PointerDown(Point{X: 200, Y: 200})
	s.PointerMove(Point{X: 150, Y: 120})

	r, ok := s.PointerUp()
	if !ok {
		t.Fatal("selection should finalize")
	}
	want := Rect{X: 150, Y: 120, W: 50, H: 80}
	if r != want {
		t.Errorf("rect = %+v, want %+v", r, want)
	}
}

func TestSmallDragIsDiscarded(t *testing.T) {
	tests := []struct {
		name string
		to   Point
	}{
		{"narrow", Point{X: 10, Y: 100}},
		{"short", Point{X: 100, Y: 10}},
		{"exactly threshold", Point{X: 10, Y: 10}},
		{"click", Point{X: 0, Y: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSelector(10)
			s.Start()
			s.PointerDown(Point{})
			s.PointerMove(tc.to)
			if _, ok := s.PointerUp(); ok {
				t.Error("small drag should not finalize")
			}
			if s.State() != Selecting {
				t.Errorf("state = %v, want selecting", s.State())
			}
			if _, ok := s.Region(); ok {
				t.Error("no region should be selected")
			}
		})
	}
}

func TestStartClearsPreviousSelection(t *testing.T) {
	s := NewSelector(10)
	if !s.Set(Rect{X: 1, Y: 1, W: 50, H: 20}) {
		t.Fatal("Set should accept a large rect")
	}
	s.Start()
	if !s.Rect().Empty() {
		t.Errorf("rect = %+v after Start, want empty", s.Rect())
	}
	if _, ok := s.Region(); ok {
		t.Error("region should be cleared by Start")
	}
}

func TestEventsIgnoredOutsideTheirState(t *testing.T) {
	s := NewSelector(10)

	s.PointerDown(Point{X: 5, Y: 5})
	if s.State() != Idle {
		t.Errorf("pointer down while idle changed state to %v", s.State())
	}
	if _, ok := s.PointerUp(); ok {
		t.Error("pointer up while idle should not select")
	}

	s.Start()
	s.PointerMove(Point{X: 100, Y: 100})
	if !s.Rect().Empty() {
		t.Error("move before pointer down should not draw")
	}

	s.Cancel()
	if s.State() != Idle {
		t.Errorf("state = %v after cancel", s.State())
	}
}

func TestSetRejectsSmallRect(t *testing.T) {
	s := NewSelector(0)
	if s.MinSize != DefaultMinSize {
		t.Errorf("MinSize = %v, want default", s.MinSize)
	}
	if s.Set(Rect{W: 5, H: 50}) {
		t.Error("Set should reject a narrow rect")
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 5, H: 5}
	if !r.Contains(Point{X: 10, Y: 14}) {
		t.Error("edge point should be inside")
	}
	if r.Contains(Point{X: 15, Y: 12}) {
		t.Error("right edge is exclusive")
	}
}

func TestRescaleSelected(t *testing.T) {
	s := NewSelector(10)
	s.Rescale(2, 2)
	if !s.Rect().Empty() {
		t.Error("rescale without a selection should do nothing")
	}

	s.Set(Rect{X: 10, Y: 20, W: 40, H: 16})
	s.Rescale(0.5, 2)
	want := Rect{X: 5, Y: 40, W: 20, H: 32}
	if got, _ := s.Region(); got != want {
		t.Errorf("rect = %+v, want %+v", got, want)
	}
}

package clock

import (
	"errors"
	"image"
	"math"

	"github.com/jwulff/sideline/internal/region"
)

// ErrNoDimensions is returned when the display or native frame size is not
// known yet.
var ErrNoDimensions = errors.New("video dimensions unknown")

// Size is a width and height.
type Size struct {
	W, H float64
}

// Project maps a display-relative rectangle into native video pixels.
// The displayed video may be rendered at a different size than the source
// frame, so each axis is scaled by native/display before sampling. The
// result is clipped to the native frame.
func Project(r region.Rect, display, native Size) (image.Rectangle, error) {
	if display.W <= 0 || display.H <= 0 || native.W <= 0 || native.H <= 0 {
		return image.Rectangle{}, ErrNoDimensions
	}
	scaleX := native.W / display.W
	scaleY := native.H / display.H

	x0 := int(math.Floor(r.X * scaleX))
	y0 := int(math.Floor(r.Y * scaleY))
	x1 := int(math.Ceil((r.X + r.W) * scaleX))
	y1 := int(math.Ceil((r.Y + r.H) * scaleY))

	frame := image.Rect(0, 0, int(native.W), int(native.H))
	crop := image.Rect(x0, y0, x1, y1).Intersect(frame)
	if crop.Empty() {
		return image.Rectangle{}, errors.New("region lies outside the video frame")
	}
	return crop, nil
}

package arena

import "breach/server/internal/geom"

// Orientation follows the wider dimension of the wall rectangle.
type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

// Wall is an axis-aligned destructible rectangle divided into SliceCount
// equal slices along its long axis. Boundary walls ring the play field for
// physics containment only; they are indestructible and never serialized.
type Wall struct {
	ID             string
	Rect           geom.Rect
	Material       Material
	SliceHealth    [SliceCount]int
	MaxSliceHealth int
	Boundary       bool
}

// Orientation derives the slice axis from the wider dimension. Square walls
// slice horizontally.
func (w *Wall) Orientation() Orientation {
	if w.Rect.Height > w.Rect.Width {
		return OrientationVertical
	}
	return OrientationHorizontal
}

// SliceRect returns the rectangle of slice i. Slices are uniform:
// sliceLongDim = longDim / SliceCount.
func (w *Wall) SliceRect(i int) geom.Rect {
	if w.Orientation() == OrientationVertical {
		sliceH := w.Rect.Height / SliceCount
		return geom.Rect{X: w.Rect.X, Y: w.Rect.Y + float64(i)*sliceH, Width: w.Rect.Width, Height: sliceH}
	}
	sliceW := w.Rect.Width / SliceCount
	return geom.Rect{X: w.Rect.X + float64(i)*sliceW, Y: w.Rect.Y, Width: sliceW, Height: w.Rect.Height}
}

// SliceAt maps a point inside the wall to its slice index, clamped to the
// valid range so edge hits land on the outermost slice.
func (w *Wall) SliceAt(p geom.Vec2) int {
	var offset, sliceDim float64
	if w.Orientation() == OrientationVertical {
		offset = p.Y - w.Rect.Y
		sliceDim = w.Rect.Height / SliceCount
	} else {
		offset = p.X - w.Rect.X
		sliceDim = w.Rect.Width / SliceCount
	}
	idx := int(offset / sliceDim)
	if idx < 0 {
		idx = 0
	}
	if idx >= SliceCount {
		idx = SliceCount - 1
	}
	return idx
}

// Intact reports whether slice i still blocks movement, bullets and vision.
func (w *Wall) Intact(i int) bool {
	return i >= 0 && i < SliceCount && w.SliceHealth[i] > 0
}

// DestructionMask derives the boolean view: true means destroyed.
func (w *Wall) DestructionMask() [SliceCount]bool {
	var mask [SliceCount]bool
	for i, health := range w.SliceHealth {
		mask[i] = health <= 0
	}
	return mask
}

// IntactRects returns the rectangles of the surviving slices. The wall's
// collision footprint is exactly this union, not the original AABB.
func (w *Wall) IntactRects() []geom.Rect {
	rects := make([]geom.Rect, 0, SliceCount)
	for i := 0; i < SliceCount; i++ {
		if w.Intact(i) {
			rects = append(rects, w.SliceRect(i))
		}
	}
	return rects
}

// Razed reports whether every slice is gone.
func (w *Wall) Razed() bool {
	for i := 0; i < SliceCount; i++ {
		if w.Intact(i) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy for per-lobby mutation.
func (w *Wall) Clone() *Wall {
	copied := *w
	return &copied
}

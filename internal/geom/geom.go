package geom

import "math"

// Vec2 is a 2D point or direction in field pixels.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v multiplied by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Length returns the euclidean length of v.
func (v Vec2) Length() float64 { return math.Hypot(v.X, v.Y) }

// Normalized returns v scaled to unit length, or the zero vector.
func (v Vec2) Normalized() Vec2 {
	length := v.Length()
	if length == 0 {
		return Vec2{}
	}
	return Vec2{v.X / length, v.Y / length}
}

// Angle returns the angle of v in radians.
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }

// FromAngle builds a unit vector pointing along the given angle.
func FromAngle(radians float64) Vec2 {
	return Vec2{math.Cos(radians), math.Sin(radians)}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 { return Vec2{r.X + r.Width/2, r.Y + r.Height/2} }

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Intersects reports AABB overlap between r and o.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width && r.X+r.Width > o.X &&
		r.Y < o.Y+o.Height && r.Y+r.Height > o.Y
}

// Expand grows the rectangle by half extents on every side. Used to reduce
// a moving box vs rect test to a point vs rect test.
func (r Rect) Expand(halfW, halfH float64) Rect {
	return Rect{X: r.X - halfW, Y: r.Y - halfH, Width: r.Width + 2*halfW, Height: r.Height + 2*halfH}
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// CircleRectOverlap reports whether a circle intersects the rectangle.
func CircleRectOverlap(cx, cy, radius float64, rect Rect) bool {
	closestX := Clamp(cx, rect.X, rect.X+rect.Width)
	closestY := Clamp(cy, rect.Y, rect.Y+rect.Height)
	dx := cx - closestX
	dy := cy - closestY
	return dx*dx+dy*dy < radius*radius
}

// SegmentHit describes the first intersection of a segment with a rectangle.
type SegmentHit struct {
	T      float64 // parametric distance along the segment in [0,1]
	Point  Vec2
	Normal Vec2 // unit outward normal of the struck face
}

// SegmentRect computes the first crossing of the segment p0→p1 into rect
// using the slab method. Returns false when the segment misses entirely or
// starts inside (callers treat an inside start as already colliding).
func SegmentRect(p0, p1 Vec2, rect Rect) (SegmentHit, bool) {
	d := p1.Sub(p0)
	tEnter := 0.0
	tExit := 1.0
	normal := Vec2{}

	for axis := 0; axis < 2; axis++ {
		var origin, delta, lo, hi float64
		if axis == 0 {
			origin, delta, lo, hi = p0.X, d.X, rect.X, rect.X+rect.Width
		} else {
			origin, delta, lo, hi = p0.Y, d.Y, rect.Y, rect.Y+rect.Height
		}
		if delta == 0 {
			if origin < lo || origin > hi {
				return SegmentHit{}, false
			}
			continue
		}
		t1 := (lo - origin) / delta
		t2 := (hi - origin) / delta
		sign := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1.0
		}
		if t1 > tEnter {
			tEnter = t1
			if axis == 0 {
				normal = Vec2{X: sign}
			} else {
				normal = Vec2{Y: sign}
			}
		}
		if t2 < tExit {
			tExit = t2
		}
		if tEnter > tExit {
			return SegmentHit{}, false
		}
	}

	if normal == (Vec2{}) {
		// Segment starts inside the rectangle.
		return SegmentHit{}, false
	}
	return SegmentHit{T: tEnter, Point: p0.Add(d.Scale(tEnter)), Normal: normal}, true
}

// SegmentRectSpan returns the parametric entry and exit of an infinite-extent
// clip of the segment against the rectangle, without requiring the segment to
// start outside. Used by penetration and vision code that needs both bounds.
func SegmentRectSpan(p0, p1 Vec2, rect Rect) (enter, exit float64, ok bool) {
	d := p1.Sub(p0)
	enter, exit = 0.0, 1.0
	for axis := 0; axis < 2; axis++ {
		var origin, delta, lo, hi float64
		if axis == 0 {
			origin, delta, lo, hi = p0.X, d.X, rect.X, rect.X+rect.Width
		} else {
			origin, delta, lo, hi = p0.Y, d.Y, rect.Y, rect.Y+rect.Height
		}
		if delta == 0 {
			if origin < lo || origin > hi {
				return 0, 0, false
			}
			continue
		}
		t1 := (lo - origin) / delta
		t2 := (hi - origin) / delta
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > enter {
			enter = t1
		}
		if t2 < exit {
			exit = t2
		}
		if enter > exit {
			return 0, 0, false
		}
	}
	return enter, exit, true
}

// Reflect mirrors v about a collision normal n (unit length).
func Reflect(v, n Vec2) Vec2 {
	return v.Sub(n.Scale(2 * v.Dot(n)))
}

// AngleDiff returns the smallest absolute difference between two angles.
func AngleDiff(a, b float64) float64 {
	diff := math.Mod(a-b, 2*math.Pi)
	if diff > math.Pi {
		diff -= 2 * math.Pi
	}
	if diff < -math.Pi {
		diff += 2 * math.Pi
	}
	return math.Abs(diff)
}

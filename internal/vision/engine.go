// Package vision computes per-player fields of view over the tile grid.
// Rays terminate on the first intact wall slice they would enter; destroyed
// slices are space, so sight lines thread through wall gaps. Smoke
// accumulates opacity along each ray until it blocks.
package vision

import (
	"math"
	"sort"
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/geom"
)

const (
	// ConeHalfAngle is the forward cone's half angle.
	ConeHalfAngle = math.Pi / 3
	// ConeRadius is the forward cone range in pixels.
	ConeRadius = 100.0
	// PeripheralRadius is the close awareness disc around the player.
	PeripheralRadius = 30.0
	// ExtendedRadius applies inside a narrow sector along the aim.
	ExtendedRadius = 130.0
	// ExtendedHalfAngle bounds the narrow long-sight sector.
	ExtendedHalfAngle = math.Pi / 12
	// BehindHalfAngle: no peripheral vision within this angle of straight
	// back (a 90 degree blind arc).
	BehindHalfAngle = math.Pi / 4

	smokeSampleStep     = 5.0
	smokeOpacityPerStep = 0.3
	smokeBlockThreshold = 0.5

	// Cache reuse limits: recompute after moving, turning, wall damage or
	// simple age.
	cacheMoveTolerance = 2.0
	cacheTurnTolerance = 5.0 * math.Pi / 180
	cacheMaxAge        = 100 * time.Millisecond

	arcStep = 6.0 * math.Pi / 180
	edgeEps = 0.0002
)

// Engine computes and caches one lobby's per-player vision fields.
type Engine struct {
	walls  *arena.WallSet
	cached map[string]*Field
}

func NewEngine(walls *arena.WallSet) *Engine {
	return &Engine{walls: walls, cached: make(map[string]*Field)}
}

// Drop forgets a player's cached field (on leave or death).
func (e *Engine) Drop(playerID string) {
	delete(e.cached, playerID)
}

// FieldFor returns the player's current vision field, reusing the cached
// result while the player holds still, no wall changed, and the cache is
// fresh.
func (e *Engine) FieldFor(playerID string, pos geom.Vec2, aim geom.Vec2, smokes []Smoke, now time.Time) *Field {
	aimAngle := aim.Angle()
	if cached, ok := e.cached[playerID]; ok {
		if cached.wallGen == e.walls.Generation() &&
			cached.pos.Sub(pos).Length() <= cacheMoveTolerance &&
			geom.AngleDiff(cached.aimAngle, aimAngle) <= cacheTurnTolerance &&
			now.Sub(cached.computedAt) <= cacheMaxAge {
			return cached
		}
	}
	field := e.compute(pos, aimAngle, smokes, now)
	e.cached[playerID] = field
	return field
}

// rangeAt returns the vision range along a direction relative to the aim.
func rangeAt(diff float64) float64 {
	switch {
	case diff <= ExtendedHalfAngle:
		return ExtendedRadius
	case diff <= ConeHalfAngle:
		return ConeRadius
	case diff < math.Pi-BehindHalfAngle:
		return PeripheralRadius
	default:
		return 0
	}
}

type rayEnd struct {
	angle float64
	dist  float64
	point geom.Vec2
}

func (e *Engine) compute(pos geom.Vec2, aimAngle float64, smokes []Smoke, now time.Time) *Field {
	angles := e.rayAngles(pos, aimAngle)

	ends := make([]rayEnd, 0, len(angles))
	for _, angle := range angles {
		limit := rangeAt(geom.AngleDiff(angle, aimAngle))
		dist := limit
		if limit > 0 {
			dist = e.castRay(pos, angle, limit, smokes)
		}
		ends = append(ends, rayEnd{
			angle: angle,
			dist:  dist,
			point: pos.Add(geom.FromAngle(angle).Scale(dist)),
		})
	}
	sort.Slice(ends, func(i, j int) bool { return ends[i].angle < ends[j].angle })

	field := &Field{
		Tiles:      make([]byte, TileBitmapBytes),
		Polygon:    make([]geom.Vec2, 0, len(ends)),
		pos:        pos,
		aimAngle:   aimAngle,
		wallGen:    e.walls.Generation(),
		computedAt: now,
	}
	for _, end := range ends {
		field.Polygon = append(field.Polygon, end.point)
	}

	e.rasterize(field, pos, ends)
	return field
}

// rayAngles enumerates ray directions: a uniform fan following the circular
// arc boundaries, plus triplets aimed at every candidate edge point of the
// nearby walls. Edge points are the corners of each intact slice run, which
// covers true wall corners and the boundaries between intact and destroyed
// slices.
func (e *Engine) rayAngles(pos geom.Vec2, aimAngle float64) []float64 {
	angles := make([]float64, 0, 128)
	for a := -math.Pi; a < math.Pi; a += arcStep {
		angles = append(angles, normalizeAngle(a))
	}
	for _, wall := range e.walls.WallsNear(geom.Rect{
		X:      pos.X - ExtendedRadius,
		Y:      pos.Y - ExtendedRadius,
		Width:  2 * ExtendedRadius,
		Height: 2 * ExtendedRadius,
	}) {
		for _, corner := range edgePoints(wall) {
			delta := corner.Sub(pos)
			if delta.Length() > ExtendedRadius+arena.TileSize {
				continue
			}
			angle := delta.Angle()
			angles = append(angles, normalizeAngle(angle-edgeEps), angle, normalizeAngle(angle+edgeEps))
		}
	}
	return angles
}

// edgePoints returns the corners of every maximal run of intact slices.
// Run boundaries between an intact and a destroyed slice act as virtual
// wall edges for the visibility polygon.
func edgePoints(wall *arena.Wall) []geom.Vec2 {
	points := make([]geom.Vec2, 0, 8)
	runStart := -1
	flush := func(end int) {
		if runStart < 0 {
			return
		}
		first := wall.SliceRect(runStart)
		last := wall.SliceRect(end)
		minX, minY := first.X, first.Y
		maxX, maxY := last.MaxX(), last.MaxY()
		points = append(points,
			geom.Vec2{X: minX, Y: minY},
			geom.Vec2{X: maxX, Y: minY},
			geom.Vec2{X: minX, Y: maxY},
			geom.Vec2{X: maxX, Y: maxY},
		)
		runStart = -1
	}
	for i := 0; i < arena.SliceCount; i++ {
		if wall.Intact(i) {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flush(i - 1)
		}
	}
	flush(arena.SliceCount - 1)
	return points
}

// castRay returns the sight distance along one direction: the nearest
// intact-slice entry, further capped by accumulated smoke opacity.
func (e *Engine) castRay(pos geom.Vec2, angle, limit float64, smokes []Smoke) float64 {
	dir := geom.FromAngle(angle)
	end := pos.Add(dir.Scale(limit))

	cutoff := limit
	for _, wall := range e.walls.WallsAlongSegment(pos, end) {
		for i := 0; i < arena.SliceCount; i++ {
			if !wall.Intact(i) {
				continue
			}
			enter, _, ok := geom.SegmentRectSpan(pos, end, wall.SliceRect(i))
			if !ok {
				continue
			}
			if d := enter * limit; d < cutoff {
				cutoff = d
			}
		}
	}

	if len(smokes) > 0 {
		opacity := 0.0
		for d := smokeSampleStep; d <= cutoff; d += smokeSampleStep {
			sample := pos.Add(dir.Scale(d))
			density := localSmokeDensity(sample, smokes)
			if density <= 0 {
				continue
			}
			opacity += smokeOpacityPerStep * density
			if opacity >= smokeBlockThreshold {
				return d
			}
		}
	}
	return cutoff
}

func localSmokeDensity(p geom.Vec2, smokes []Smoke) float64 {
	total := 0.0
	for _, smoke := range smokes {
		if smoke.Radius <= 0 {
			continue
		}
		dist := p.Sub(smoke.Center).Length()
		if dist >= smoke.Radius {
			continue
		}
		total += smoke.Density * (1 - 0.5*dist/smoke.Radius)
	}
	return total
}

// rasterize marks every tile whose center falls inside the star-shaped
// visibility polygon. Tiles are tested by bracketing their angle between
// the two adjacent ray endpoints and checking which side of that boundary
// segment the center lies on.
func (e *Engine) rasterize(field *Field, pos geom.Vec2, ends []rayEnd) {
	minTX, minTY := arena.TileAt(geom.Vec2{X: pos.X - ExtendedRadius, Y: pos.Y - ExtendedRadius})
	maxTX, maxTY := arena.TileAt(geom.Vec2{X: pos.X + ExtendedRadius, Y: pos.Y + ExtendedRadius})

	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			center := arena.TileCenter(tx, ty)
			delta := center.Sub(pos)
			dist := delta.Length()
			if dist <= arena.TileSize {
				// The player's own tile neighborhood is always visible.
				field.setTile(tx, ty)
				continue
			}
			if insideVisibility(pos, delta.Angle(), dist, ends) {
				field.setTile(tx, ty)
			}
		}
	}
}

func insideVisibility(pos geom.Vec2, angle, dist float64, ends []rayEnd) bool {
	n := len(ends)
	if n == 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return ends[i].angle >= angle })
	prev := ends[(idx-1+n)%n]
	next := ends[idx%n]
	if prev.dist == 0 && next.dist == 0 {
		return false
	}
	// Near side of the boundary segment between the bracketing endpoints.
	p := pos.Add(geom.FromAngle(angle).Scale(dist))
	a := prev.point
	b := next.point
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	origin := (b.X-a.X)*(pos.Y-a.Y) - (b.Y-a.Y)*(pos.X-a.X)
	if origin == 0 {
		return dist <= math.Max(prev.dist, next.dist)
	}
	return cross*origin > 0 || cross == 0
}

func normalizeAngle(a float64) float64 {
	for a >= math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

package arena

import (
	"breach/server/internal/geom"
)

// SliceEvent records one slice losing health. Destroyed marks the
// transition to zero; callers emit a wall:destroyed alongside the
// wall:damaged for it. Operations return their events to the caller, who
// must consume them — events never go missing inside the engine.
type SliceEvent struct {
	WallID    string
	Slice     int
	Health    int
	Destroyed bool
}

// WallSet is one lobby's mutable destructible state: clones of the map's
// wall templates keyed by ID. Generation increments on every health change
// so the vision cache can invalidate on wall damage.
type WallSet struct {
	source     *Map
	walls      map[string]*Wall
	ordered    []*Wall
	generation uint64
}

// NewWallSet deep-copies the map's walls for a fresh match.
func NewWallSet(m *Map) *WallSet {
	set := &WallSet{
		source:  m,
		walls:   make(map[string]*Wall, len(m.Walls())),
		ordered: make([]*Wall, 0, len(m.Walls())),
	}
	for _, template := range m.Walls() {
		clone := template.Clone()
		set.walls[clone.ID] = clone
		set.ordered = append(set.ordered, clone)
	}
	return set
}

// Reset restores every wall to its map-load health. Used on match reset.
func (s *WallSet) Reset() {
	for _, wall := range s.ordered {
		template := s.sourceWall(wall.ID)
		if template != nil {
			wall.SliceHealth = template.SliceHealth
		}
	}
	s.generation++
}

func (s *WallSet) sourceWall(id string) *Wall {
	for _, w := range s.source.Walls() {
		if w.ID == id {
			return w
		}
	}
	return nil
}

// Wall looks up a wall by ID.
func (s *WallSet) Wall(id string) (*Wall, bool) {
	w, ok := s.walls[id]
	return w, ok
}

// Walls returns the walls in map order, boundary walls included.
func (s *WallSet) Walls() []*Wall { return s.ordered }

// Index exposes the shared tile index of the underlying map.
func (s *WallSet) Index() *TileIndex { return s.source.Index() }

// Generation reports the destruction revision, bumped on any health change.
func (s *WallSet) Generation() uint64 { return s.generation }

// ApplyDamage subtracts health from one slice, clamping at zero. Damage to
// an already-destroyed slice, zero damage, and boundary walls are no-ops
// returning no events.
func (s *WallSet) ApplyDamage(wallID string, slice int, amount int) (destroyed bool, remaining int, events []SliceEvent) {
	wall, ok := s.walls[wallID]
	if !ok || wall.Boundary || amount <= 0 || slice < 0 || slice >= SliceCount {
		return false, 0, nil
	}
	health := wall.SliceHealth[slice]
	if health <= 0 {
		return false, 0, nil
	}
	health -= amount
	if health < 0 {
		health = 0
	}
	wall.SliceHealth[slice] = health
	s.generation++
	return health == 0, health, []SliceEvent{{
		WallID:    wallID,
		Slice:     slice,
		Health:    health,
		Destroyed: health == 0,
	}}
}

// ApplyExplosion damages every intact slice whose rectangle intersects the
// circle, scaling the amount by linear falloff from 1.0 at the center to
// 0.0 at the radius. A single explosion's events are returned as one batch
// in wall/slice order.
func (s *WallSet) ApplyExplosion(center geom.Vec2, radius float64, amount int) []SliceEvent {
	if radius <= 0 || amount <= 0 {
		return nil
	}
	var events []SliceEvent
	for _, id := range s.Index().WallsInCircle(center, radius) {
		wall, ok := s.walls[id]
		if !ok || wall.Boundary {
			continue
		}
		for slice := 0; slice < SliceCount; slice++ {
			if !wall.Intact(slice) {
				continue
			}
			rect := wall.SliceRect(slice)
			if !geom.CircleRectOverlap(center.X, center.Y, radius, rect) {
				continue
			}
			distance := rect.Center().Sub(center).Length()
			falloff := 1.0 - distance/radius
			if falloff <= 0 {
				continue
			}
			scaled := int(float64(amount) * falloff)
			if scaled <= 0 {
				continue
			}
			_, _, sliceEvents := s.ApplyDamage(id, slice, scaled)
			events = append(events, sliceEvents...)
		}
	}
	return events
}

// IntactRectsNear collects intact-slice rectangles of all walls whose
// indexed tiles touch the query rect. This union is the collision geometry.
func (s *WallSet) IntactRectsNear(rect geom.Rect) []geom.Rect {
	var rects []geom.Rect
	for _, id := range s.Index().WallsNear(rect) {
		if wall, ok := s.walls[id]; ok {
			rects = append(rects, wall.IntactRects()...)
		}
	}
	return rects
}

// WallsNear resolves the tile index hits to walls.
func (s *WallSet) WallsNear(rect geom.Rect) []*Wall {
	ids := s.Index().WallsNear(rect)
	walls := make([]*Wall, 0, len(ids))
	for _, id := range ids {
		if wall, ok := s.walls[id]; ok {
			walls = append(walls, wall)
		}
	}
	return walls
}

// WallsAlongSegment resolves index hits along a ray to walls.
func (s *WallSet) WallsAlongSegment(p0, p1 geom.Vec2) []*Wall {
	ids := s.Index().WallsAlongSegment(p0, p1)
	walls := make([]*Wall, 0, len(ids))
	for _, id := range ids {
		if wall, ok := s.walls[id]; ok {
			walls = append(walls, wall)
		}
	}
	return walls
}

// SpawnBlocked reports whether a spawn box at pos overlaps any intact slice.
func (s *WallSet) SpawnBlocked(pos geom.Vec2, half float64) bool {
	box := geom.Rect{X: pos.X - half, Y: pos.Y - half, Width: 2 * half, Height: 2 * half}
	for _, rect := range s.IntactRectsNear(box.Expand(TileSize, TileSize)) {
		if box.Intersects(rect) {
			return true
		}
	}
	return false
}

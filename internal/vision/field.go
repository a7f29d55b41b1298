package vision

import (
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/geom"
)

// TileBitmapBytes is the packed size of a 60×34 tile visibility bitmap.
const TileBitmapBytes = (arena.TilesX*arena.TilesY + 7) / 8

// Field is one player's computed visibility: a packed tile bitmap for
// server-side filtering plus the ordered polygon clients render.
type Field struct {
	Tiles   []byte
	Polygon []geom.Vec2

	// cache keys
	pos        geom.Vec2
	aimAngle   float64
	wallGen    uint64
	computedAt time.Time
}

// VisibleTile reports whether the tile at (tx, ty) is visible.
func (f *Field) VisibleTile(tx, ty int) bool {
	if f == nil || tx < 0 || ty < 0 || tx >= arena.TilesX || ty >= arena.TilesY {
		return false
	}
	bit := ty*arena.TilesX + tx
	return f.Tiles[bit/8]&(1<<(bit%8)) != 0
}

// Visible reports whether a field position lies in a visible tile.
func (f *Field) Visible(p geom.Vec2) bool {
	if f == nil {
		return false
	}
	if p.X < 0 || p.X >= arena.FieldWidth || p.Y < 0 || p.Y >= arena.FieldHeight {
		return false
	}
	tx, ty := arena.TileAt(p)
	return f.VisibleTile(tx, ty)
}

func (f *Field) setTile(tx, ty int) {
	bit := ty*arena.TilesX + tx
	f.Tiles[bit/8] |= 1 << (bit % 8)
}

// Smoke is the occlusion view of a smoke zone: density falls linearly from
// Density at the center to half Density at the edge.
type Smoke struct {
	Center  geom.Vec2
	Radius  float64
	Density float64
}

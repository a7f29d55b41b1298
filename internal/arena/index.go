package arena

import (
	"math"

	"breach/server/internal/geom"
)

// TileIndex is a uniform grid keyed by 8×8 pixel tiles mapping to the IDs
// of walls overlapping each tile. Built once per map and shared read-only
// across lobbies; destruction never moves walls, so queries stay valid and
// callers filter on intact slices.
type TileIndex struct {
	cols  int
	rows  int
	cells [][]string
}

func buildTileIndex(walls []*Wall) *TileIndex {
	// One tile of margin on every side so boundary walls are indexed too.
	cols := TilesX + 2*marginTiles
	rows := TilesY + 2*marginTiles
	idx := &TileIndex{cols: cols, rows: rows, cells: make([][]string, cols*rows)}
	for _, wall := range walls {
		minC, minR := idx.cellCoords(wall.Rect.X, wall.Rect.Y)
		maxC, maxR := idx.cellCoords(wall.Rect.MaxX()-1e-9, wall.Rect.MaxY()-1e-9)
		for r := minR; r <= maxR; r++ {
			for c := minC; c <= maxC; c++ {
				cell := r*cols + c
				idx.cells[cell] = append(idx.cells[cell], wall.ID)
			}
		}
	}
	return idx
}

const marginTiles = 3

func (idx *TileIndex) cellCoords(x, y float64) (int, int) {
	c := int(math.Floor(x/TileSize)) + marginTiles
	r := int(math.Floor(y/TileSize)) + marginTiles
	if c < 0 {
		c = 0
	} else if c >= idx.cols {
		c = idx.cols - 1
	}
	if r < 0 {
		r = 0
	} else if r >= idx.rows {
		r = idx.rows - 1
	}
	return c, r
}

// WallsNear returns the deduplicated IDs of walls whose indexed tiles touch
// the given rectangle.
func (idx *TileIndex) WallsNear(rect geom.Rect) []string {
	minC, minR := idx.cellCoords(rect.X, rect.Y)
	maxC, maxR := idx.cellCoords(rect.MaxX(), rect.MaxY())
	seen := make(map[string]struct{})
	var out []string
	for r := minR; r <= maxR; r++ {
		for c := minC; c <= maxC; c++ {
			for _, id := range idx.cells[r*idx.cols+c] {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

// WallsAlongSegment returns wall IDs indexed anywhere inside the segment's
// bounding box. The field is small enough that the box is a tight-enough
// prefilter; callers run exact parametric tests afterwards.
func (idx *TileIndex) WallsAlongSegment(p0, p1 geom.Vec2) []string {
	rect := geom.Rect{
		X:      math.Min(p0.X, p1.X),
		Y:      math.Min(p0.Y, p1.Y),
		Width:  math.Abs(p1.X - p0.X),
		Height: math.Abs(p1.Y - p0.Y),
	}
	return idx.WallsNear(rect)
}

// WallsInCircle returns wall IDs indexed within the circle's bounding box.
func (idx *TileIndex) WallsInCircle(center geom.Vec2, radius float64) []string {
	return idx.WallsNear(geom.Rect{
		X:      center.X - radius,
		Y:      center.Y - radius,
		Width:  2 * radius,
		Height: 2 * radius,
	})
}

// TileAt converts a field position to tile coordinates, clamped to the
// play-field grid (margin excluded).
func TileAt(p geom.Vec2) (int, int) {
	tx := int(math.Floor(p.X / TileSize))
	ty := int(math.Floor(p.Y / TileSize))
	if tx < 0 {
		tx = 0
	} else if tx >= TilesX {
		tx = TilesX - 1
	}
	if ty < 0 {
		ty = 0
	} else if ty >= TilesY {
		ty = TilesY - 1
	}
	return tx, ty
}

// TileCenter returns the center point of a tile.
func TileCenter(tx, ty int) geom.Vec2 {
	return geom.Vec2{X: (float64(tx) + 0.5) * TileSize, Y: (float64(ty) + 0.5) * TileSize}
}

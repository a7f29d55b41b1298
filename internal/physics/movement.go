// Package physics resolves movement and projectile kinematics against the
// arena's intact-slice geometry. All tests are parametric sweeps; nothing
// step-samples along a path.
package physics

import (
	"breach/server/internal/arena"
	"breach/server/internal/geom"
)

// PlayerHalf is half the extent of the 10×10 player box.
const PlayerHalf = 5.0

// MovePlayer applies the desired displacement with independent-axis
// sliding: full X first, then full Y. A blocked axis clamps to the wall
// surface while the free axis keeps its displacement, so corners never
// catch the player.
func MovePlayer(pos geom.Vec2, delta geom.Vec2, walls *arena.WallSet) geom.Vec2 {
	if delta == (geom.Vec2{}) {
		return pos
	}
	sweep := geom.Rect{
		X:      pos.X - PlayerHalf,
		Y:      pos.Y - PlayerHalf,
		Width:  2 * PlayerHalf,
		Height: 2 * PlayerHalf,
	}
	if delta.X < 0 {
		sweep.X += delta.X
	}
	if delta.Y < 0 {
		sweep.Y += delta.Y
	}
	sweep.Width += absf(delta.X)
	sweep.Height += absf(delta.Y)

	rects := walls.IntactRectsNear(sweep.Expand(arena.TileSize, arena.TileSize))

	pos.X = slideAxis(pos.X, pos.Y, delta.X, true, rects)
	pos.Y = slideAxis(pos.Y, pos.X, delta.Y, false, rects)
	return pos
}

// slideAxis moves one coordinate by d, clamping against every rectangle
// the player box would enter. Rectangles are expanded by the player half
// extent so the test reduces to point-vs-rect.
func slideAxis(coord, other float64, d float64, horizontal bool, rects []geom.Rect) float64 {
	if d == 0 {
		return coord
	}
	candidate := coord + d
	for _, rect := range rects {
		exp := rect.Expand(PlayerHalf, PlayerHalf)
		var lo, hi, otherLo, otherHi float64
		if horizontal {
			lo, hi = exp.X, exp.MaxX()
			otherLo, otherHi = exp.Y, exp.MaxY()
		} else {
			lo, hi = exp.Y, exp.MaxY()
			otherLo, otherHi = exp.X, exp.MaxX()
		}
		if other <= otherLo || other >= otherHi {
			continue
		}
		if candidate <= lo || candidate >= hi {
			continue
		}
		if d > 0 && coord <= lo {
			candidate = lo
		} else if d < 0 && coord >= hi {
			candidate = hi
		}
	}
	return candidate
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ResolveSpawn validates a requested spawn position. Overlapping an intact
// slice or the forbidden origin falls back to the team spawn.
func ResolveSpawn(requested geom.Vec2, team string, walls *arena.WallSet) geom.Vec2 {
	if requested == (geom.Vec2{}) {
		return arena.FallbackSpawn(team)
	}
	if requested.X < PlayerHalf || requested.X > arena.FieldWidth-PlayerHalf ||
		requested.Y < PlayerHalf || requested.Y > arena.FieldHeight-PlayerHalf {
		return arena.FallbackSpawn(team)
	}
	if walls.SpawnBlocked(requested, PlayerHalf) {
		return arena.FallbackSpawn(team)
	}
	return requested
}

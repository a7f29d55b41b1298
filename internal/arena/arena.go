// Package arena owns the static field geometry and the per-lobby
// destructible wall state. The play field is a fixed 480×270 pixel grid of
// 8×8 tiles; every wall is split into five equal slices along its long axis
// and each slice keeps its own health.
package arena

const (
	FieldWidth  = 480.0
	FieldHeight = 270.0

	TileSize = 8.0
	TilesX   = 60
	TilesY   = 34

	// SliceCount is fixed: every wall has exactly five slices.
	SliceCount = 5
)

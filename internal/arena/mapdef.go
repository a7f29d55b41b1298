package arena

import (
	"encoding/json"
	"fmt"
	"os"

	"breach/server/internal/geom"
)

// WallDef is the on-disk description of one wall.
type WallDef struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Material Material `json:"material"`
	// PreDestroyed lists slice indexes loaded with zero health, used to
	// represent partial walls shorter than five full tiles.
	PreDestroyed []int `json:"preDestroyed,omitempty"`
}

// MapDef is the on-disk map format consumed by the core.
type MapDef struct {
	Name       string      `json:"name"`
	Walls      []WallDef   `json:"walls"`
	RedSpawns  []geom.Vec2 `json:"redSpawns"`
	BlueSpawns []geom.Vec2 `json:"blueSpawns"`
}

// Fallback spawns used whenever a requested spawn is invalid.
var (
	RedFallbackSpawn  = geom.Vec2{X: 50, Y: 135}
	BlueFallbackSpawn = geom.Vec2{X: 430, Y: 135}
)

// Map is the immutable geometry shared by every lobby playing it: wall
// templates, spawn points, and the tile index. Mutable slice health lives in
// per-lobby WallSet clones.
type Map struct {
	Name       string
	walls      []*Wall
	redSpawns  []geom.Vec2
	blueSpawns []geom.Vec2
	index      *TileIndex
}

// LoadMapFile reads and compiles a map definition from disk.
func LoadMapFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map file: %w", err)
	}
	var def MapDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse map file %s: %w", path, err)
	}
	return CompileMap(def)
}

// CompileMap validates a definition and produces the shared Map.
func CompileMap(def MapDef) (*Map, error) {
	m := &Map{
		Name:       def.Name,
		redSpawns:  append([]geom.Vec2(nil), def.RedSpawns...),
		blueSpawns: append([]geom.Vec2(nil), def.BlueSpawns...),
	}

	for i, wd := range def.Walls {
		if !wd.Material.Valid() {
			return nil, fmt.Errorf("wall %d: unknown material %q", i, wd.Material)
		}
		if wd.Width <= 0 || wd.Height <= 0 {
			return nil, fmt.Errorf("wall %d: non-positive extent", i)
		}
		if wd.X < 0 || wd.Y < 0 || wd.X+wd.Width > FieldWidth || wd.Y+wd.Height > FieldHeight {
			return nil, fmt.Errorf("wall %d: outside the %gx%g field", i, FieldWidth, FieldHeight)
		}
		wall := &Wall{
			ID:             fmt.Sprintf("wall-%d", i+1),
			Rect:           geom.Rect{X: wd.X, Y: wd.Y, Width: wd.Width, Height: wd.Height},
			Material:       wd.Material,
			MaxSliceHealth: wd.Material.MaxSliceHealth(),
		}
		for s := 0; s < SliceCount; s++ {
			wall.SliceHealth[s] = wall.MaxSliceHealth
		}
		for _, s := range wd.PreDestroyed {
			if s < 0 || s >= SliceCount {
				return nil, fmt.Errorf("wall %d: pre-destroyed slice %d out of range", i, s)
			}
			wall.SliceHealth[s] = 0
		}
		m.walls = append(m.walls, wall)
	}

	m.walls = append(m.walls, boundaryWalls()...)

	if len(m.redSpawns) == 0 {
		m.redSpawns = []geom.Vec2{RedFallbackSpawn}
	}
	if len(m.blueSpawns) == 0 {
		m.blueSpawns = []geom.Vec2{BlueFallbackSpawn}
	}

	m.index = buildTileIndex(m.walls)
	return m, nil
}

// boundaryWalls builds the four invisible containment walls just outside
// the play field. They never appear in client state.
func boundaryWalls() []*Wall {
	const thickness = 16.0
	rects := []geom.Rect{
		{X: -thickness, Y: -thickness, Width: FieldWidth + 2*thickness, Height: thickness}, // top
		{X: -thickness, Y: FieldHeight, Width: FieldWidth + 2*thickness, Height: thickness},
		{X: -thickness, Y: 0, Width: thickness, Height: FieldHeight}, // left
		{X: FieldWidth, Y: 0, Width: thickness, Height: FieldHeight},
	}
	names := []string{"boundary-top", "boundary-bottom", "boundary-left", "boundary-right"}
	walls := make([]*Wall, 0, len(rects))
	for i, rect := range rects {
		wall := &Wall{
			ID:             names[i],
			Rect:           rect,
			Material:       MaterialConcrete,
			MaxSliceHealth: 1 << 30,
			Boundary:       true,
		}
		for s := 0; s < SliceCount; s++ {
			wall.SliceHealth[s] = wall.MaxSliceHealth
		}
		walls = append(walls, wall)
	}
	return walls
}

// Walls exposes the wall templates, boundary walls included.
func (m *Map) Walls() []*Wall { return m.walls }

// Index exposes the read-only tile index.
func (m *Map) Index() *TileIndex { return m.index }

// Spawns returns the configured spawn list for a team color ("red"/"blue").
func (m *Map) Spawns(team string) []geom.Vec2 {
	if team == "blue" {
		return m.blueSpawns
	}
	return m.redSpawns
}

// FallbackSpawn returns the guaranteed-safe spawn for a team.
func FallbackSpawn(team string) geom.Vec2 {
	if team == "blue" {
		return BlueFallbackSpawn
	}
	return RedFallbackSpawn
}

// DefaultMap returns the built-in layout used when no map file is given:
// a symmetric arena with a central glass corridor, wooden cover and
// concrete anchors.
func DefaultMap() *Map {
	def := MapDef{
		Name: "foundry",
		Walls: []WallDef{
			// Concrete anchors near each base.
			{X: 96, Y: 56, Width: 8, Height: 80, Material: MaterialConcrete},
			{X: 96, Y: 152, Width: 8, Height: 80, Material: MaterialConcrete},
			{X: 376, Y: 56, Width: 8, Height: 80, Material: MaterialConcrete},
			{X: 376, Y: 152, Width: 8, Height: 80, Material: MaterialConcrete},
			// Central cross of wood and glass.
			{X: 200, Y: 48, Width: 80, Height: 8, Material: MaterialWood},
			{X: 200, Y: 214, Width: 80, Height: 8, Material: MaterialWood},
			{X: 236, Y: 95, Width: 8, Height: 80, Material: MaterialGlass},
			// Metal flanks.
			{X: 160, Y: 131, Width: 48, Height: 8, Material: MaterialMetal},
			{X: 272, Y: 131, Width: 48, Height: 8, Material: MaterialMetal},
		},
		RedSpawns:  []geom.Vec2{{X: 50, Y: 105}, {X: 50, Y: 135}, {X: 50, Y: 165}},
		BlueSpawns: []geom.Vec2{{X: 430, Y: 105}, {X: 430, Y: 135}, {X: 430, Y: 165}},
	}
	m, err := CompileMap(def)
	if err != nil {
		panic(err)
	}
	return m
}

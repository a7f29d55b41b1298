package sim

import (
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/geom"
	"breach/server/internal/vision"
	"breach/server/internal/weapons"
)

// PlayerView is one player's state as serialized to a recipient. The
// recipient's own view carries reconciliation fields other views omit.
type PlayerView struct {
	ID       string       `json:"id"`
	Name     string       `json:"name,omitempty"`
	Team     Team         `json:"team"`
	Position geom.Vec2    `json:"position"`
	Rotation float64      `json:"rotation"`
	Alive    bool         `json:"alive"`
	Health   int          `json:"health"`
	Armor    int          `json:"armor,omitempty"`
	Kills    int          `json:"kills"`
	Deaths   int          `json:"deaths"`
	Mode     MovementMode `json:"movementMode,omitempty"`

	// Own-view only.
	ActiveWeapon   weapons.Type `json:"activeWeapon,omitempty"`
	AmmoInMagazine int          `json:"ammoInMagazine,omitempty"`
	AmmoReserve    int          `json:"ammoReserve,omitempty"`
	Reloading      bool         `json:"reloading,omitempty"`
	Heat           float64      `json:"heat,omitempty"`
	Invulnerable   bool         `json:"invulnerable,omitempty"`
	FlashIntensity float64      `json:"flashIntensity,omitempty"`
	FlashPhase     string       `json:"flashPhase,omitempty"`
}

// WallView is one wall's serialized state. Boundary walls never appear on
// the wire.
type WallView struct {
	ID          string                 `json:"id"`
	X           float64                `json:"x"`
	Y           float64                `json:"y"`
	Width       float64                `json:"width"`
	Height      float64                `json:"height"`
	Material    arena.Material         `json:"material"`
	SliceHealth [arena.SliceCount]int  `json:"sliceHealth"`
	Destroyed   [arena.SliceCount]bool `json:"destroyed"`
}

// ProjectileView is a projectile visible to the recipient.
type ProjectileView struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	OwnerID  string    `json:"ownerId"`
	Position geom.Vec2 `json:"position"`
	Velocity geom.Vec2 `json:"velocity"`
}

// SmokeView is a smoke zone visible to the recipient.
type SmokeView struct {
	ID      string    `json:"id"`
	Center  geom.Vec2 `json:"center"`
	Radius  float64   `json:"radius"`
	Density float64   `json:"density"`
}

// VisionView carries the recipient's own visibility for client rendering.
type VisionView struct {
	Polygon      []geom.Vec2 `json:"polygon"`
	VisibleTiles []byte      `json:"visibleTiles"`
}

// Snapshot is one recipient's filtered view of the match at a network
// tick.
type Snapshot struct {
	Tick                       uint64           `json:"tick"`
	ServerTime                 int64            `json:"serverTime"`
	LastProcessedInputSequence uint64           `json:"lastProcessedInputSequence"`
	You                        PlayerView       `json:"you"`
	Players                    []PlayerView     `json:"players"`
	Walls                      []WallView       `json:"walls"`
	Projectiles                []ProjectileView `json:"projectiles"`
	SmokeZones                 []SmokeView      `json:"smokeZones"`
	Vision                     VisionView       `json:"vision"`
}

// visionSmokes adapts active smoke zones for the vision engine.
func (m *Match) visionSmokes() []vision.Smoke {
	if len(m.smokes) == 0 {
		return nil
	}
	out := make([]vision.Smoke, 0, len(m.smokes))
	for _, s := range m.smokes {
		out = append(out, vision.Smoke{Center: s.Center, Radius: s.Radius, Density: s.Density})
	}
	return out
}

// SnapshotFor builds the filtered snapshot for one recipient: own state in
// full, other players and effects only inside the recipient's visible
// tiles, walls always.
func (m *Match) SnapshotFor(recipientID string, now time.Time) (Snapshot, bool) {
	recipient, ok := m.players[recipientID]
	if !ok {
		return Snapshot{}, false
	}
	field := m.fov.FieldFor(recipient.ID, recipient.Pos, recipient.Aim, m.visionSmokes(), now)

	snap := Snapshot{
		Tick:                       m.tick,
		ServerTime:                 now.UnixMilli(),
		LastProcessedInputSequence: recipient.LastProcessedInputSequence,
		You:                        m.ownView(recipient, now),
	}

	for _, id := range m.order {
		p := m.players[id]
		if p.ID == recipient.ID {
			continue
		}
		if !field.Visible(p.Pos) {
			continue
		}
		snap.Players = append(snap.Players, m.otherView(p))
	}

	for _, wall := range m.walls.Walls() {
		if wall.Boundary {
			continue
		}
		view := WallView{
			ID:       wall.ID,
			X:        wall.Rect.X,
			Y:        wall.Rect.Y,
			Width:    wall.Rect.Width,
			Height:   wall.Rect.Height,
			Material: wall.Material,
		}
		for i := 0; i < arena.SliceCount; i++ {
			view.SliceHealth[i] = wall.SliceHealth[i]
			view.Destroyed[i] = !wall.Intact(i)
		}
		snap.Walls = append(snap.Walls, view)
	}

	for _, p := range m.projectiles {
		if p.Owner != recipient.ID && !field.Visible(p.Pos) {
			continue
		}
		snap.Projectiles = append(snap.Projectiles, ProjectileView{
			ID:       p.ID,
			Kind:     string(p.Kind),
			OwnerID:  p.Owner,
			Position: p.Pos,
			Velocity: p.Vel,
		})
	}

	for _, s := range m.smokes {
		if !field.Visible(s.Center) {
			continue
		}
		snap.SmokeZones = append(snap.SmokeZones, SmokeView{
			ID:      s.ID,
			Center:  s.Center,
			Radius:  s.Radius,
			Density: s.Density,
		})
	}

	snap.Vision = VisionView{
		Polygon:      field.Polygon,
		VisibleTiles: field.Tiles,
	}
	return snap, true
}

func (m *Match) ownView(p *Player, now time.Time) PlayerView {
	view := PlayerView{
		ID:           p.ID,
		Name:         p.Name,
		Team:         p.Team,
		Position:     p.Pos,
		Rotation:     p.Rotation,
		Alive:        p.Alive,
		Health:       p.Health,
		Armor:        p.Armor,
		Kills:        p.Kills,
		Deaths:       p.Deaths,
		Mode:         p.Mode,
		Invulnerable: p.Invulnerable(now),
	}
	if w := p.ActiveWeapon(); w != nil {
		view.ActiveWeapon = w.Spec.Type
		view.AmmoInMagazine = w.AmmoInMagazine
		view.AmmoReserve = w.AmmoReserve
		view.Reloading = w.Reloading
		view.Heat = w.Heat
	}
	if p.Flash.Active(now) {
		view.FlashIntensity = p.Flash.Intensity * p.Flash.Remaining(now)
		view.FlashPhase = p.Flash.Phase(now)
	}
	return view
}

// otherView hides private fields and clamps dead players to zero health
// regardless of internal bookkeeping.
func (m *Match) otherView(p *Player) PlayerView {
	health := p.Health
	if !p.Alive {
		health = 0
	}
	return PlayerView{
		ID:       p.ID,
		Name:     p.Name,
		Team:     p.Team,
		Position: p.Pos,
		Rotation: p.Rotation,
		Alive:    p.Alive,
		Health:   health,
		Kills:    p.Kills,
		Deaths:   p.Deaths,
	}
}

package sim

import (
	"time"

	"breach/server/internal/geom"
	"breach/server/internal/weapons"
)

// Team labels one of the two sides.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Opposite returns the other team.
func (t Team) Opposite() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// MovementMode is derived from the held modifier keys each input frame.
type MovementMode string

const (
	ModeSneak MovementMode = "sneak"
	ModeWalk  MovementMode = "walk"
	ModeRun   MovementMode = "run"
)

// Movement speed per mode in pixels per second.
const (
	SneakSpeed = 45.0
	WalkSpeed  = 90.0
	RunSpeed   = 150.0
)

func (m MovementMode) speed() float64 {
	switch m {
	case ModeSneak:
		return SneakSpeed
	case ModeRun:
		return RunSpeed
	default:
		return WalkSpeed
	}
}

// FlashState tracks an active flashbang impairment on one player.
type FlashState struct {
	Intensity float64
	Start     time.Time
	Until     time.Time
}

// Active reports whether the impairment is still running.
func (f FlashState) Active(now time.Time) bool {
	return f.Intensity > 0 && now.Before(f.Until)
}

// Remaining is the impairment fraction left in [0,1].
func (f FlashState) Remaining(now time.Time) float64 {
	if !f.Active(now) {
		return 0
	}
	total := f.Until.Sub(f.Start)
	if total <= 0 {
		return 0
	}
	return float64(f.Until.Sub(now)) / float64(total)
}

// Phase is "blind" for the first stretch of the effect, then "fade".
func (f FlashState) Phase(now time.Time) string {
	if !f.Active(now) {
		return ""
	}
	if f.Remaining(now) > 0.6 {
		return "blind"
	}
	return "fade"
}

// Player is one participant's full authoritative state.
type Player struct {
	ID   string
	Name string
	Team Team

	Pos      geom.Vec2
	Vel      geom.Vec2
	Rotation float64
	Aim      geom.Vec2
	Mode     MovementMode
	Keys     KeySet

	Alive  bool
	Health int
	Armor  int
	Kills  int
	Deaths int

	Loadout weapons.Loadout
	Weapons map[weapons.Type]*weapons.Instance
	Active  weapons.Type

	LastProcessedInputSequence uint64
	RespawnDeadline            time.Time
	SpawnInvulnerableUntil     time.Time
	Flash                      FlashState

	LastActivity      time.Time
	lastHeatBroadcast time.Time
}

// MaxHealth is every player's spawn health.
const MaxHealth = 100

func newPlayer(id string, join JoinCommand, now time.Time) *Player {
	loadout := join.Loadout
	if loadout.Primary == "" {
		loadout = weapons.DefaultLoadout()
	}
	p := &Player{
		ID:           id,
		Name:         join.Name,
		Team:         join.Team,
		Aim:          geom.Vec2{X: 1},
		Mode:         ModeWalk,
		Alive:        true,
		Health:       MaxHealth,
		Loadout:      loadout,
		Weapons:      make(map[weapons.Type]*weapons.Instance, 4),
		Active:       loadout.Primary,
		LastActivity: now,
	}
	for _, t := range loadout.All() {
		if spec, ok := weapons.Lookup(t); ok {
			p.Weapons[t] = weapons.NewInstance(spec)
		}
	}
	return p
}

// ActiveWeapon returns the currently held weapon instance.
func (p *Player) ActiveWeapon() *weapons.Instance {
	if p == nil {
		return nil
	}
	return p.Weapons[p.Active]
}

// Invulnerable reports whether spawn protection is still running.
func (p *Player) Invulnerable(now time.Time) bool {
	return now.Before(p.SpawnInvulnerableUntil)
}

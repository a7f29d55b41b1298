package combat

import (
	"context"

	"breach/server/logging"
)

const (
	KillEventType      logging.EventType = "combat.kill"
	OverheatEventType  logging.EventType = "combat.overheat"
	WallRazedEventType logging.EventType = "combat.wall_razed"
)

type KillPayload struct {
	Weapon   string `json:"weapon"`
	TeamKill bool   `json:"teamKill"`
}

// Kill records a lethal hit. Fired exactly once per death from the damage
// authority.
func Kill(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID string, killer, victim logging.EntityRef, weapon string, teamKill bool) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     KillEventType,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    killer,
		Targets:  []logging.EntityRef{victim},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  KillPayload{Weapon: weapon, TeamKill: teamKill},
	})
}

type OverheatPayload struct {
	Weapon string `json:"weapon"`
}

// Overheat records a machine gun locking out at full heat.
func Overheat(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID string, actor logging.EntityRef, weapon string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     OverheatEventType,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  OverheatPayload{Weapon: weapon},
	})
}

type WallRazedPayload struct {
	WallID string `json:"wallId"`
	Slice  int    `json:"slice"`
}

// WallRazed records a slice dropping to zero health.
func WallRazed(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID string, actor logging.EntityRef, wallID string, slice int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     WallRazedEventType,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: wallID, Kind: logging.EntityKindWall}},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  WallRazedPayload{WallID: wallID, Slice: slice},
	})
}

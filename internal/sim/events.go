package sim

import (
	"breach/server/internal/geom"
	"breach/server/internal/weapons"
)

// Event is one ordered entry of a tick's per-lobby event log. The payload
// types below are the wire shapes; the transport encodes them verbatim.
type Event struct {
	Type string `json:"type"`
	Tick uint64 `json:"tick"`
	// Recipient narrows delivery to one player; empty means the whole
	// lobby.
	Recipient string `json:"-"`
	Payload   any    `json:"payload,omitempty"`
}

const (
	EventWeaponFired    = "weapon:fired"
	EventWeaponHit      = "weapon:hit"
	EventWeaponMiss     = "weapon:miss"
	EventWeaponReloaded = "weapon:reloaded"
	EventWeaponSwitched = "weapon:switched"
	EventWeaponHeat     = "weapon:heat:update"

	EventProjectileCreated  = "projectile:created"
	EventProjectileExploded = "projectile:exploded"

	EventWallDamaged   = "wall:damaged"
	EventWallDestroyed = "wall:destroyed"

	EventPlayerDied      = "backend:player:died"
	EventPlayerRespawned = "backend:player:respawned"
	EventRespawnDenied   = "backend:respawn:denied"

	EventFlashbang = "FLASHBANG_EFFECT"
)

type WeaponFiredPayload struct {
	PlayerID   string       `json:"playerId"`
	WeaponType weapons.Type `json:"weaponType"`
	Position   geom.Vec2    `json:"position"`
	Direction  geom.Vec2    `json:"direction"`
	Timestamp  int64        `json:"timestamp"`
}

type WeaponHitPayload struct {
	PlayerID    string       `json:"playerId"`
	WeaponType  weapons.Type `json:"weaponType"`
	TargetID    string       `json:"targetId"`
	Damage      int          `json:"damage"`
	PelletIndex int          `json:"pelletIndex"`
	End         geom.Vec2    `json:"end"`
}

type WeaponMissPayload struct {
	PlayerID    string       `json:"playerId"`
	WeaponType  weapons.Type `json:"weaponType"`
	PelletIndex int          `json:"pelletIndex"`
	End         geom.Vec2    `json:"end"`
}

type WeaponReloadedPayload struct {
	PlayerID       string       `json:"playerId"`
	WeaponType     weapons.Type `json:"weaponType"`
	AmmoInMagazine int          `json:"ammoInMagazine"`
	AmmoReserve    int          `json:"ammoReserve"`
}

type WeaponSwitchedPayload struct {
	PlayerID string       `json:"playerId"`
	From     weapons.Type `json:"fromWeapon"`
	To       weapons.Type `json:"toWeapon"`
}

type WeaponHeatPayload struct {
	PlayerID   string  `json:"playerId"`
	Heat       float64 `json:"heat"`
	Overheated bool    `json:"overheated"`
}

type ProjectileCreatedPayload struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	OwnerID  string    `json:"ownerId"`
	Position geom.Vec2 `json:"position"`
	Velocity geom.Vec2 `json:"velocity"`
}

type ProjectileExplodedPayload struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Position geom.Vec2 `json:"position"`
	Radius   float64   `json:"radius"`
}

type WallDamagedPayload struct {
	WallID     string `json:"wallId"`
	SliceIndex int    `json:"sliceIndex"`
	Health     int    `json:"health"`
}

type PlayerDiedPayload struct {
	PlayerID   string       `json:"playerId"`
	KillerID   string       `json:"killerId,omitempty"`
	KillerTeam Team         `json:"killerTeam,omitempty"`
	VictimTeam Team         `json:"victimTeam"`
	WeaponType weapons.Type `json:"weaponType,omitempty"`
	IsTeamKill bool         `json:"isTeamKill"`
	Position   geom.Vec2    `json:"position"`
	DamageType string       `json:"damageType"`
	Timestamp  int64        `json:"timestamp"`
}

type PlayerRespawnedPayload struct {
	PlayerID          string    `json:"playerId"`
	Position          geom.Vec2 `json:"position"`
	Health            int       `json:"health"`
	Team              Team      `json:"team"`
	InvulnerableUntil int64     `json:"invulnerableUntil"`
	Timestamp         int64     `json:"timestamp"`
}

type RespawnDeniedPayload struct {
	RemainingMillis int64 `json:"remainingTime"`
}

type FlashbangTarget struct {
	PlayerID  string  `json:"playerId"`
	Intensity float64 `json:"intensity"`
	Duration  int64   `json:"duration"`
	Phases    int     `json:"phases"`
}

type FlashbangPayload struct {
	Position        geom.Vec2         `json:"position"`
	AffectedPlayers []FlashbangTarget `json:"affectedPlayers"`
}

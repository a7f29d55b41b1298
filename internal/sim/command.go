package sim

import (
	"time"

	"breach/server/internal/geom"
	"breach/server/internal/weapons"
)

// CommandType enumerates the intents a match processes.
type CommandType string

const (
	CommandJoin         CommandType = "Join"
	CommandInput        CommandType = "Input"
	CommandFire         CommandType = "Fire"
	CommandReload       CommandType = "Reload"
	CommandSwitchWeapon CommandType = "SwitchWeapon"
	CommandRespawn      CommandType = "Respawn"
	CommandRequestState CommandType = "RequestState"
	CommandLeave        CommandType = "Leave"
	CommandHeartbeat    CommandType = "Heartbeat"
)

// KeySet is the held-key state of one input frame.
type KeySet struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Sneak bool `json:"sneak"`
	Run   bool `json:"run"`
}

// InputCommand is one client input frame. Aim accepts game-space or
// screen-space coordinates; validation down-scales the latter.
type InputCommand struct {
	Sequence   uint64    `json:"sequence"`
	ClientTime int64     `json:"timestamp"` // unix millis
	Keys       KeySet    `json:"keys"`
	Aim        geom.Vec2 `json:"aim"`
	FireHeld   bool      `json:"fireHeld"`
}

// FireCommand requests a shot or throw. Position is advisory; resolution
// always uses the server-side player position.
type FireCommand struct {
	WeaponType  weapons.Type `json:"weaponType"`
	Direction   geom.Vec2    `json:"direction"`
	ADS         bool         `json:"isADS"`
	ChargeLevel int          `json:"chargeLevel"`
	Sequence    uint64       `json:"sequence"`
	ClientTime  int64        `json:"timestamp"`
}

// JoinCommand declares a player's loadout and team preference.
type JoinCommand struct {
	Name    string          `json:"name"`
	Team    Team            `json:"team"`
	Loadout weapons.Loadout `json:"loadout"`
}

// SwitchCommand changes the active weapon slot.
type SwitchCommand struct {
	To   weapons.Type `json:"toWeapon"`
	From weapons.Type `json:"fromWeapon"`
}

// HeartbeatCommand keeps an otherwise idle connection alive.
type HeartbeatCommand struct {
	ClientSent int64 `json:"clientSent"`
}

// Command is one staged intent, applied at the top of the next physics
// tick.
type Command struct {
	ActorID  string
	Type     CommandType
	IssuedAt time.Time

	Join      *JoinCommand
	Input     *InputCommand
	Fire      *FireCommand
	Switch    *SwitchCommand
	Heartbeat *HeartbeatCommand
}

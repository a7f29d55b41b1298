// Package intake validates decoded client messages and stages them into
// a lobby's command mailbox. Rejections carry a wire reason; the
// simulation itself never sees a malformed command.
package intake

import (
	"time"

	"breach/server/internal/lobby"
	"breach/server/internal/net/proto"
	"breach/server/internal/sim"
	"breach/server/internal/weapons"
)

// Reject reasons reported back to the client.
const (
	RejectInvalidCommand = "invalid_command"
	RejectUnknownWeapon  = "unknown_weapon"
	RejectNoLobby        = "not_in_lobby"
	RejectQueueLimit     = "queue_limit"
)

// CommandContext carries the session's staging dependencies.
type CommandContext struct {
	Lobby *lobby.Lobby
	Now   func() time.Time
}

// StageClientCommand converts a gameplay message into a staged
// simulation command and pushes it onto the lobby mailbox.
func StageClientCommand(ctx CommandContext, playerID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, RejectInvalidCommand
	}

	switch command.Type {
	case sim.CommandInput:
		if command.Input == nil {
			return zero, false, RejectInvalidCommand
		}
	case sim.CommandFire:
		if command.Fire == nil {
			return zero, false, RejectInvalidCommand
		}
		if _, ok := weapons.Lookup(command.Fire.WeaponType); !ok {
			return zero, false, RejectUnknownWeapon
		}
	case sim.CommandSwitchWeapon:
		if command.Switch == nil {
			return zero, false, RejectInvalidCommand
		}
		if _, ok := weapons.Lookup(command.Switch.To); !ok {
			return zero, false, RejectUnknownWeapon
		}
	case sim.CommandJoin, sim.CommandReload, sim.CommandRespawn,
		sim.CommandRequestState, sim.CommandHeartbeat:
	default:
		return zero, false, RejectInvalidCommand
	}

	command.ActorID = playerID
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Lobby == nil {
		return zero, false, RejectNoLobby
	}
	if !ctx.Lobby.Enqueue(command) {
		return zero, false, RejectQueueLimit
	}
	return command, true, ""
}

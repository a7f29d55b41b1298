package intake

import (
	"testing"
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/lobby"
	"breach/server/internal/net/proto"
	"breach/server/internal/sim"
	"breach/server/internal/weapons"
)

func TestStageRejectsWithoutLobby(t *testing.T) {
	_, ok, reason := StageClientCommand(CommandContext{}, "p1", proto.ClientMessage{Type: proto.TypeWeaponReload})
	if ok || reason != RejectNoLobby {
		t.Fatalf("staging without a lobby must reject, got ok=%v reason=%q", ok, reason)
	}
}

func TestStageRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name   string
		msg    proto.ClientMessage
		reason string
	}{
		{"fire without payload", proto.ClientMessage{Type: proto.TypeWeaponFire}, RejectInvalidCommand},
		{"fire with unknown weapon", proto.ClientMessage{Type: proto.TypeWeaponFire, Fire: &sim.FireCommand{WeaponType: "bfg9000"}}, RejectUnknownWeapon},
		{"switch to unknown weapon", proto.ClientMessage{Type: proto.TypeWeaponSwitch, Switch: &sim.SwitchCommand{To: "bfg9000"}}, RejectUnknownWeapon},
		{"matchmaking message", proto.ClientMessage{Type: proto.TypeFindMatch}, RejectInvalidCommand},
		{"unknown type", proto.ClientMessage{Type: "dance"}, RejectInvalidCommand},
	}
	for _, tc := range cases {
		if _, ok, reason := StageClientCommand(CommandContext{}, "p1", tc.msg); ok || reason != tc.reason {
			t.Fatalf("%s: want reason %q, got ok=%v reason=%q", tc.name, tc.reason, ok, reason)
		}
	}
}

func TestStageStampsActorAndTime(t *testing.T) {
	issued := time.UnixMilli(5_000)
	msg := proto.ClientMessage{Type: proto.TypeWeaponFire, Fire: &sim.FireCommand{WeaponType: weapons.TypeRifle}}

	// Validation happens before staging, so a nil lobby still exercises
	// the full path up to the mailbox push.
	cmd, ok, reason := StageClientCommand(CommandContext{Now: func() time.Time { return issued }}, "p1", msg)
	if ok || reason != RejectNoLobby {
		t.Fatalf("want RejectNoLobby after validation, got ok=%v reason=%q cmd=%+v", ok, reason, cmd)
	}
}

func TestStageIntoLobbyMailbox(t *testing.T) {
	gameMap, err := arena.CompileMap(arena.MapDef{})
	if err != nil {
		t.Fatalf("CompileMap: %v", err)
	}
	manager := lobby.NewManager(nil, lobby.ManagerConfig{GameMap: gameMap})
	created, err := manager.CreatePrivate("p1", lobby.Options{Mode: "tdm"})
	if err != nil {
		t.Fatalf("CreatePrivate: %v", err)
	}

	issued := time.UnixMilli(5_000)
	ctx := CommandContext{Lobby: created.Lobby, Now: func() time.Time { return issued }}
	cmd, ok, reason := StageClientCommand(ctx, "p1", proto.ClientMessage{Type: proto.TypeWeaponReload})
	if !ok {
		t.Fatalf("staging a valid reload failed: %q", reason)
	}
	if cmd.ActorID != "p1" || cmd.Type != sim.CommandReload || !cmd.IssuedAt.Equal(issued) {
		t.Fatalf("command not stamped: %+v", cmd)
	}
}

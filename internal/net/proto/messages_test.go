package proto

import (
	"encoding/json"
	"testing"
	"time"

	"breach/server/internal/sim"
	"breach/server/internal/weapons"
)

func TestDecodeClientMessageVersionGate(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"find_match","mode":"tdm"}`))
	if err != nil {
		t.Fatalf("decode without version: %v", err)
	}
	if msg.Ver != Version || msg.Type != TypeFindMatch || msg.Mode != "tdm" {
		t.Fatalf("unexpected decode: %+v", msg)
	}

	if _, err := DecodeClientMessage([]byte(`{"ver":99,"type":"find_match"}`)); err == nil {
		t.Fatalf("future protocol version must be rejected")
	}
	if _, err := DecodeClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("malformed JSON must be rejected")
	}
}

func TestClientCommandMapping(t *testing.T) {
	fire := &sim.FireCommand{WeaponType: weapons.TypeRifle}
	cmd, ok := ClientCommand(ClientMessage{Type: TypeWeaponFire, Fire: fire})
	if !ok || cmd.Type != sim.CommandFire || cmd.Fire != fire {
		t.Fatalf("fire mapping broken: %+v", cmd)
	}

	if _, ok := ClientCommand(ClientMessage{Type: TypeWeaponFire}); ok {
		t.Fatalf("fire without payload must not map")
	}
	if _, ok := ClientCommand(ClientMessage{Type: TypeFindMatch}); ok {
		t.Fatalf("matchmaking messages are not simulation commands")
	}

	loadout := &weapons.Loadout{Primary: weapons.TypeShotgun, Secondary: weapons.TypePistol, Support: []weapons.Type{weapons.TypeFrag}}
	cmd, ok = ClientCommand(ClientMessage{Type: TypePlayerJoin, Name: "ada", Team: "red", Loadout: loadout})
	if !ok || cmd.Join == nil || cmd.Join.Name != "ada" || cmd.Join.Team != sim.TeamRed || cmd.Join.Loadout.Primary != weapons.TypeShotgun {
		t.Fatalf("join mapping broken: %+v", cmd.Join)
	}

	cmd, ok = ClientCommand(ClientMessage{Type: TypeHeartbeat, SentAt: 42})
	if !ok || cmd.Heartbeat == nil || cmd.Heartbeat.ClientSent != 42 {
		t.Fatalf("heartbeat mapping broken: %+v", cmd)
	}
}

func TestIsMatchmaking(t *testing.T) {
	for _, messageType := range []string{TypeFindMatch, TypeCreatePrivate, TypeJoinLobby, TypeGetLobbyList, TypeLeaveLobby} {
		if !(ClientMessage{Type: messageType}).IsMatchmaking() {
			t.Fatalf("%s should be matchmaking", messageType)
		}
	}
	if (ClientMessage{Type: TypeWeaponFire}).IsMatchmaking() {
		t.Fatalf("weapon:fire is not matchmaking")
	}
}

func TestEncodeEventFrame(t *testing.T) {
	data, err := EncodeEvent(sim.Event{
		Type:    sim.EventWeaponFired,
		Tick:    12,
		Payload: sim.WeaponFiredPayload{PlayerID: "p1", WeaponType: weapons.TypeRifle},
	})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	var frame struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Tick uint64 `json:"t"`
		Data struct {
			PlayerID string `json:"playerId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	if frame.Ver != Version || frame.Type != sim.EventWeaponFired || frame.Tick != 12 || frame.Data.PlayerID != "p1" {
		t.Fatalf("bad frame: %s", data)
	}
}

func TestEncodeSnapshotFrame(t *testing.T) {
	data, err := EncodeSnapshot(sim.Snapshot{Tick: 30})
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	var frame struct {
		Type string `json:"type"`
		Tick uint64 `json:"tick"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	if frame.Type != "game:state" || frame.Tick != 30 {
		t.Fatalf("bad frame: %s", data)
	}
}

func TestHeartbeatRTT(t *testing.T) {
	now := time.UnixMilli(10_000)
	if got := HeartbeatRTT(now, 9_950); got != 50*time.Millisecond {
		t.Fatalf("want 50ms, got %v", got)
	}
	if got := HeartbeatRTT(now, 0); got != 0 {
		t.Fatalf("missing timestamp reports zero, got %v", got)
	}
	if got := HeartbeatRTT(now, 11_000); got != 0 {
		t.Fatalf("future timestamp reports zero, got %v", got)
	}
}

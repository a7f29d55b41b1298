// Package proto is the websocket wire codec: inbound client envelopes
// and outbound event/snapshot frames. It owns no game logic; malformed
// or stale payloads are rejected here so the simulation never sees
// them.
package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"breach/server/internal/sim"
	"breach/server/internal/weapons"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Outbound frame type identifiers.
	typeGameState = "game:state"
	typeHeartbeat = "heartbeat"
)

// Client message type identifiers. Matchmaking types address the lobby
// manager; the rest become staged simulation commands.
const (
	TypeFindMatch     = "find_match"
	TypeCreatePrivate = "create_private_lobby"
	TypeJoinLobby     = "join_lobby"
	TypeGetLobbyList  = "get_lobby_list"
	TypeLeaveLobby    = "leave_lobby"

	TypePlayerJoin       = "player:join"
	TypePlayerInput      = "player:input"
	TypePlayerRespawn    = "player:respawn"
	TypeWeaponFire       = "weapon:fire"
	TypeWeaponReload     = "weapon:reload"
	TypeWeaponSwitch     = "weapon:switch"
	TypeRequestGameState = "request_game_state"
	TypeHeartbeat        = "heartbeat"
)

// ClientMessage captures an inbound websocket message from the client.
// One envelope carries every message type; unset sections stay nil.
type ClientMessage struct {
	Ver  int    `json:"ver,omitempty"`
	Type string `json:"type"`

	// Matchmaking.
	Mode           string `json:"mode,omitempty"`
	LobbyID        string `json:"lobbyId,omitempty"`
	Password       string `json:"password,omitempty"`
	MaxPlayers     int    `json:"maxPlayers,omitempty"`
	ShowPrivate    bool   `json:"showPrivate,omitempty"`
	ShowFull       bool   `json:"showFull,omitempty"`
	ShowInProgress bool   `json:"showInProgress,omitempty"`

	// Gameplay.
	Name    string              `json:"name,omitempty"`
	Team    string              `json:"team,omitempty"`
	Loadout *weapons.Loadout    `json:"loadout,omitempty"`
	Input   *sim.InputCommand   `json:"input,omitempty"`
	Fire    *sim.FireCommand    `json:"fire,omitempty"`
	Switch  *sim.SwitchCommand  `json:"switch,omitempty"`
	SentAt  int64               `json:"sentAt,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured
// message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// IsMatchmaking reports whether the message addresses the lobby manager
// rather than a running match.
func (msg ClientMessage) IsMatchmaking() bool {
	switch msg.Type {
	case TypeFindMatch, TypeCreatePrivate, TypeJoinLobby, TypeGetLobbyList, TypeLeaveLobby:
		return true
	}
	return false
}

// ClientCommand converts a gameplay message into the staged simulation
// command it carries. Actor identity and timing are filled in by the
// intake layer once the command is accepted.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypePlayerJoin:
		join := &sim.JoinCommand{Name: msg.Name, Team: sim.Team(msg.Team)}
		if msg.Loadout != nil {
			join.Loadout = *msg.Loadout
		}
		return sim.Command{Type: sim.CommandJoin, Join: join}, true
	case TypePlayerInput:
		if msg.Input == nil {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CommandInput, Input: msg.Input}, true
	case TypeWeaponFire:
		if msg.Fire == nil {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CommandFire, Fire: msg.Fire}, true
	case TypeWeaponReload:
		return sim.Command{Type: sim.CommandReload}, true
	case TypeWeaponSwitch:
		if msg.Switch == nil {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CommandSwitchWeapon, Switch: msg.Switch}, true
	case TypePlayerRespawn:
		return sim.Command{Type: sim.CommandRespawn}, true
	case TypeRequestGameState:
		return sim.Command{Type: sim.CommandRequestState}, true
	case TypeHeartbeat:
		return sim.Command{Type: sim.CommandHeartbeat, Heartbeat: &sim.HeartbeatCommand{ClientSent: msg.SentAt}}, true
	default:
		return sim.Command{}, false
	}
}

// EncodeEvent renders one simulation or lobby event as an outbound
// frame. The event type doubles as the frame type.
func EncodeEvent(ev sim.Event) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Tick uint64 `json:"t,omitempty"`
		Data any    `json:"data,omitempty"`
	}{
		Ver:  Version,
		Type: ev.Type,
		Tick: ev.Tick,
		Data: ev.Payload,
	}
	return json.Marshal(frame)
}

// EncodeSnapshot renders a per-player filtered state frame.
func EncodeSnapshot(snap sim.Snapshot) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		sim.Snapshot
	}{
		Ver:      Version,
		Type:     typeGameState,
		Snapshot: snap,
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// EncodeLobbyMessage renders a matchmaking response frame.
func EncodeLobbyMessage(messageType string, payload any) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{
		Ver:  Version,
		Type: messageType,
		Data: payload,
	}
	return json.Marshal(frame)
}

// HeartbeatRTT derives the round trip estimate from the client's send
// timestamp. A missing or future timestamp reports zero.
func HeartbeatRTT(now time.Time, clientSentMillis int64) time.Duration {
	if clientSentMillis <= 0 {
		return 0
	}
	rtt := now.Sub(time.UnixMilli(clientSentMillis))
	if rtt < 0 {
		return 0
	}
	return rtt
}

package lifecycle

import (
	"context"

	"breach/server/logging"
)

const (
	LobbyCreatedEventType   logging.EventType = "lifecycle.lobby_created"
	LobbyDestroyedEventType logging.EventType = "lifecycle.lobby_destroyed"
	PlayerJoinedEventType   logging.EventType = "lifecycle.player_joined"
	PlayerLeftEventType     logging.EventType = "lifecycle.player_left"
)

func lobbyRef(lobbyID string) logging.EntityRef {
	return logging.EntityRef{ID: lobbyID, Kind: logging.EntityKindLobby}
}

// LobbyCreated records a new lobby entering the registry.
func LobbyCreated(ctx context.Context, pub logging.Publisher, lobbyID, mode string, private bool) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     LobbyCreatedEventType,
		LobbyID:  lobbyID,
		Actor:    lobbyRef(lobbyID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  map[string]any{"mode": mode, "private": private},
	})
}

// LobbyDestroyed records a lobby leaving the registry.
func LobbyDestroyed(ctx context.Context, pub logging.Publisher, lobbyID, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     LobbyDestroyedEventType,
		LobbyID:  lobbyID,
		Actor:    lobbyRef(lobbyID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  map[string]any{"reason": reason},
	})
}

// PlayerJoined records a player binding to a lobby.
func PlayerJoined(ctx context.Context, pub logging.Publisher, lobbyID string, player logging.EntityRef, lateJoin bool) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     PlayerJoinedEventType,
		LobbyID:  lobbyID,
		Actor:    player,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  map[string]any{"lateJoin": lateJoin},
	})
}

// PlayerLeft records a player detaching from a lobby.
func PlayerLeft(ctx context.Context, pub logging.Publisher, lobbyID string, player logging.EntityRef, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     PlayerLeftEventType,
		LobbyID:  lobbyID,
		Actor:    player,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  map[string]any{"reason": reason},
	})
}

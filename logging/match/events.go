package match

import (
	"context"

	"breach/server/logging"
)

const (
	CountdownEventType logging.EventType = "match.countdown"
	CancelledEventType logging.EventType = "match.cancelled"
	StartedEventType   logging.EventType = "match.started"
	EndedEventType     logging.EventType = "match.ended"
)

func lobbyRef(lobbyID string) logging.EntityRef {
	return logging.EntityRef{ID: lobbyID, Kind: logging.EntityKindLobby}
}

// Countdown records a match-start countdown beginning or resetting.
func Countdown(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID string, seconds int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     CountdownEventType,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    lobbyRef(lobbyID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  map[string]any{"seconds": seconds},
	})
}

// Cancelled records a countdown aborting because the lobby emptied out.
func Cancelled(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     CancelledEventType,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    lobbyRef(lobbyID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  map[string]any{"reason": reason},
	})
}

// Started records the simulation unlocking for play.
func Started(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID string, players int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     StartedEventType,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    lobbyRef(lobbyID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  map[string]any{"players": players},
	})
}

type EndedPayload struct {
	Winner    string `json:"winner"`
	RedKills  int    `json:"redKills"`
	BlueKills int    `json:"blueKills"`
	Duration  int64  `json:"durationMillis"`
}

// Ended records the final score when a match finishes.
func Ended(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID string, payload EndedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EndedEventType,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    lobbyRef(lobbyID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

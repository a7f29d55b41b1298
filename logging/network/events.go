package network

import (
	"context"

	"breach/server/logging"
)

const (
	ConnectedEventType     logging.EventType = "network.connected"
	DisconnectedEventType  logging.EventType = "network.disconnected"
	InputDroppedEventType  logging.EventType = "network.input_dropped"
	QueueSaturatedEventKey logging.EventType = "network.queue_saturated"
)

// Connected records a websocket session binding to a player.
func Connected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, remoteAddr string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     ConnectedEventType,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  map[string]any{"remoteAddr": remoteAddr},
	})
}

// Disconnected records a session closing, with the trigger (read error,
// idle timeout, replaced connection).
func Disconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     DisconnectedEventType,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  map[string]any{"reason": reason},
	})
}

type InputDroppedPayload struct {
	Reason   string `json:"reason"`
	Sequence uint64 `json:"sequence,omitempty"`
}

// InputDropped records a silently discarded client input.
func InputDropped(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID string, actor logging.EntityRef, reason string, sequence uint64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     InputDroppedEventType,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  InputDroppedPayload{Reason: reason, Sequence: sequence},
	})
}

// QueueSaturated records a full lobby mailbox shedding its oldest input.
func QueueSaturated(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID string, actor logging.EntityRef, queueLen int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     QueueSaturatedEventKey,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  map[string]any{"queueLen": queueLen},
	})
}

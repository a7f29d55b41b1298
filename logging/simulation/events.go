package simulation

import (
	"context"
	"time"

	"breach/server/logging"
)

const TickOverrunEventType logging.EventType = "simulation.tick_overrun"

type TickOverrunPayload struct {
	DurationMillis int64 `json:"durationMillis"`
	BudgetMillis   int64 `json:"budgetMillis"`
}

// TickOverrun records a physics step exceeding its tick budget.
func TickOverrun(ctx context.Context, pub logging.Publisher, tick uint64, lobbyID string, duration, budget time.Duration) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     TickOverrunEventType,
		Tick:     tick,
		LobbyID:  lobbyID,
		Actor:    logging.EntityRef{ID: lobbyID, Kind: logging.EntityKindLobby},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload: TickOverrunPayload{
			DurationMillis: duration.Milliseconds(),
			BudgetMillis:   budget.Milliseconds(),
		},
	})
}

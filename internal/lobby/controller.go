package lobby

import (
	"time"

	"breach/server/internal/sim"
)

// State is the lobby's match lifecycle phase.
type State string

const (
	StateWaiting  State = "waiting"
	StateStarting State = "starting"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

const (
	// MinPlayers arms the start countdown.
	MinPlayers = 2
	// FullLobby forces the short countdown.
	FullLobby = 8
	// LongCountdown runs with 2-7 players, resetting on every join.
	LongCountdown = 10 * time.Second
	// ShortCountdown runs once the lobby is full.
	ShortCountdown = time.Second
	// FinishGrace holds the scoreboard before resetting to waiting.
	FinishGrace = 10 * time.Second
)

// Controller is the per-lobby match state machine. It is driven from the
// lobby goroutine only; all timers are deadlines compared in-tick, so a
// transition always cancels whatever countdown preceded it.
type Controller struct {
	lobbyID   string
	state     State
	deadline  time.Time
	startedAt time.Time
	prevCount int
}

func NewController(lobbyID string) *Controller {
	return &Controller{lobbyID: lobbyID, state: StateWaiting}
}

// State returns the current phase.
func (c *Controller) State() State { return c.state }

func countdownFor(count int) time.Duration {
	if count >= FullLobby {
		return ShortCountdown
	}
	return LongCountdown
}

func (c *Controller) startingEvent(tick uint64, countdown time.Duration) sim.Event {
	return sim.Event{Type: EventMatchStarting, Tick: tick, Payload: StartingPayload{
		LobbyID:          c.lobbyID,
		CountdownSeconds: int(countdown / time.Second),
	}}
}

// Tick advances the state machine one step and returns the lobby events
// the transition produced.
func (c *Controller) Tick(m *sim.Match, now time.Time) []sim.Event {
	count := m.PlayerCount()
	prev := c.prevCount
	c.prevCount = count

	var events []sim.Event
	switch c.state {
	case StateWaiting:
		if count >= MinPlayers {
			countdown := countdownFor(count)
			c.state = StateStarting
			c.deadline = now.Add(countdown)
			events = append(events, c.startingEvent(m.Tick(), countdown))
		}

	case StateStarting:
		switch {
		case count < MinPlayers:
			c.state = StateWaiting
			events = append(events, sim.Event{Type: EventMatchStartCancelled, Tick: m.Tick(), Payload: CancelledPayload{
				LobbyID: c.lobbyID,
				Reason:  "not_enough_players",
			}})
		case count > prev:
			// A join during the countdown resets it; reaching capacity
			// shortens it to one second. A leave that keeps the quorum
			// leaves the countdown running.
			countdown := countdownFor(count)
			c.deadline = now.Add(countdown)
			events = append(events, c.startingEvent(m.Tick(), countdown))
		case !now.Before(c.deadline):
			c.state = StatePlaying
			c.startedAt = now
			events = append(events, sim.Event{Type: EventMatchStarted, Tick: m.Tick(), Payload: StartedPayload{
				LobbyID:    c.lobbyID,
				KillTarget: sim.DefaultKillTarget,
			}})
		}

	case StatePlaying:
		if winner, done := m.Winner(); done {
			red, blue := m.TeamScores()
			stats := make([]PlayerStat, 0, m.PlayerCount())
			for _, id := range m.PlayerIDs() {
				if p, ok := m.Player(id); ok {
					stats = append(stats, PlayerStat{ID: p.ID, Team: string(p.Team), Kills: p.Kills, Deaths: p.Deaths})
				}
			}
			c.state = StateFinished
			c.deadline = now.Add(FinishGrace)
			events = append(events, sim.Event{Type: EventMatchEnded, Tick: m.Tick(), Payload: EndedPayload{
				WinnerTeam:  string(winner),
				RedKills:    red,
				BlueKills:   blue,
				Duration:    now.Sub(c.startedAt).Milliseconds(),
				PlayerStats: stats,
			}})
		}

	case StateFinished:
		if !now.Before(c.deadline) {
			m.ResetForRematch(now)
			c.state = StateWaiting
		}
	}
	return events
}

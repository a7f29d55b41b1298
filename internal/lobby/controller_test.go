package lobby

import (
	"testing"
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/geom"
	"breach/server/internal/sim"
	"breach/server/internal/weapons"
)

func testMatch(t *testing.T) *sim.Match {
	t.Helper()
	m, err := arena.CompileMap(arena.MapDef{})
	if err != nil {
		t.Fatalf("CompileMap: %v", err)
	}
	return sim.NewMatch(m, sim.Config{Seed: 1, KillTarget: 1})
}

func typesOf(events []sim.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestControllerCountdownStartsAtTwoPlayers(t *testing.T) {
	m := testMatch(t)
	c := NewController("lobby-1")
	now := time.Now()

	if events := c.Tick(m, now); len(events) != 0 || c.State() != StateWaiting {
		t.Fatalf("empty lobby must stay waiting, got %v", typesOf(events))
	}

	m.AddPlayer("p1", sim.JoinCommand{}, now)
	c.Tick(m, now)
	if c.State() != StateWaiting {
		t.Fatalf("one player is not a quorum")
	}

	m.AddPlayer("p2", sim.JoinCommand{}, now)
	events := c.Tick(m, now)
	if c.State() != StateStarting {
		t.Fatalf("two players must arm the countdown")
	}
	if len(events) != 1 || events[0].Type != EventMatchStarting {
		t.Fatalf("want match_starting, got %v", typesOf(events))
	}
	if payload := events[0].Payload.(StartingPayload); payload.CountdownSeconds != 10 {
		t.Fatalf("partial lobby runs the 10 s countdown, got %d", payload.CountdownSeconds)
	}

	// Not yet.
	if events := c.Tick(m, now.Add(9*time.Second)); len(events) != 0 {
		t.Fatalf("countdown must not fire early: %v", typesOf(events))
	}
	events = c.Tick(m, now.Add(10*time.Second))
	if c.State() != StatePlaying || len(events) != 1 || events[0].Type != EventMatchStarted {
		t.Fatalf("countdown expiry must start the match, got %v", typesOf(events))
	}
}

func TestControllerJoinResetsCountdown(t *testing.T) {
	m := testMatch(t)
	c := NewController("lobby-1")
	now := time.Now()
	m.AddPlayer("p1", sim.JoinCommand{}, now)
	m.AddPlayer("p2", sim.JoinCommand{}, now)
	c.Tick(m, now)

	m.AddPlayer("p3", sim.JoinCommand{}, now.Add(8*time.Second))
	events := c.Tick(m, now.Add(8*time.Second))
	if len(events) != 1 || events[0].Type != EventMatchStarting {
		t.Fatalf("a join during starting must reset the countdown, got %v", typesOf(events))
	}
	// The original deadline passes without a start.
	if events := c.Tick(m, now.Add(11*time.Second)); len(events) != 0 {
		t.Fatalf("reset countdown must not fire on the old deadline: %v", typesOf(events))
	}
	if events := c.Tick(m, now.Add(18*time.Second)); len(events) != 1 || events[0].Type != EventMatchStarted {
		t.Fatalf("reset countdown fires 10 s after the join, got %v", typesOf(events))
	}
}

func TestControllerFullLobbyShortCountdown(t *testing.T) {
	m := testMatch(t)
	c := NewController("lobby-1")
	now := time.Now()
	for i := 0; i < FullLobby; i++ {
		m.AddPlayer(string(rune('a'+i)), sim.JoinCommand{}, now)
	}
	events := c.Tick(m, now)
	if len(events) != 1 {
		t.Fatalf("want match_starting, got %v", typesOf(events))
	}
	if payload := events[0].Payload.(StartingPayload); payload.CountdownSeconds != 1 {
		t.Fatalf("full lobby runs the 1 s countdown, got %d", payload.CountdownSeconds)
	}
	if events := c.Tick(m, now.Add(time.Second)); len(events) != 1 || events[0].Type != EventMatchStarted {
		t.Fatalf("short countdown should fire after 1 s: %v", typesOf(events))
	}
}

func TestControllerCancelsWhenQuorumLost(t *testing.T) {
	m := testMatch(t)
	c := NewController("lobby-1")
	now := time.Now()
	m.AddPlayer("p1", sim.JoinCommand{}, now)
	m.AddPlayer("p2", sim.JoinCommand{}, now)
	c.Tick(m, now)

	m.RemovePlayer("p2")
	events := c.Tick(m, now.Add(time.Second))
	if c.State() != StateWaiting {
		t.Fatalf("losing the quorum must fall back to waiting")
	}
	if len(events) != 1 || events[0].Type != EventMatchStartCancelled {
		t.Fatalf("want match_start_cancelled, got %v", typesOf(events))
	}
	// The stale countdown deadline must never fire after the cancel.
	if events := c.Tick(m, now.Add(11*time.Second)); len(events) != 0 {
		t.Fatalf("cancelled countdown fired late: %v", typesOf(events))
	}
}

func TestControllerFinishesAtKillTargetAndResets(t *testing.T) {
	m := testMatch(t)
	c := NewController("lobby-1")
	now := time.Now()
	killer := m.AddPlayer("p1", sim.JoinCommand{Team: sim.TeamRed}, now)
	victim := m.AddPlayer("p2", sim.JoinCommand{Team: sim.TeamBlue}, now)
	c.Tick(m, now)
	c.Tick(m, now.Add(10*time.Second))
	if c.State() != StatePlaying {
		t.Fatalf("expected playing")
	}

	// Reach the kill target of 1 with a point-blank rifle shot.
	killer.Pos = geom.Vec2{X: 100, Y: 135}
	killer.Aim = geom.Vec2{X: 1}
	killer.SpawnInvulnerableUntil = time.Time{}
	victim.Pos = geom.Vec2{X: 120, Y: 135}
	victim.Health = 1
	victim.SpawnInvulnerableUntil = time.Time{}
	m.Apply([]sim.Command{{
		ActorID: "p1",
		Type:    sim.CommandFire,
		Fire:    &sim.FireCommand{WeaponType: weapons.TypeRifle, Direction: geom.Vec2{X: 1}},
	}}, now.Add(11*time.Second))

	events := c.Tick(m, now.Add(11*time.Second))
	if c.State() != StateFinished {
		t.Fatalf("kill target must finish the match")
	}
	if len(events) != 1 || events[0].Type != EventMatchEnded {
		t.Fatalf("want match_ended, got %v", typesOf(events))
	}
	payload := events[0].Payload.(EndedPayload)
	if payload.WinnerTeam != string(sim.TeamRed) || payload.RedKills != 1 {
		t.Fatalf("bad final score: %+v", payload)
	}
	if len(payload.PlayerStats) != 2 {
		t.Fatalf("per-player stats missing: %+v", payload.PlayerStats)
	}

	c.Tick(m, now.Add(11*time.Second+FinishGrace))
	if c.State() != StateWaiting {
		t.Fatalf("grace expiry must reset to waiting")
	}
	if !victim.Alive || victim.Health != sim.MaxHealth || killer.Kills != 0 {
		t.Fatalf("rematch reset must restore players")
	}
}

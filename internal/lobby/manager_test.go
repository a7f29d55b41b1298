package lobby

import (
	"errors"
	"testing"
	"time"

	"breach/server/internal/arena"
)

func newTestManager(t *testing.T, maxLobbies int) *Manager {
	t.Helper()
	gameMap, err := arena.CompileMap(arena.MapDef{})
	if err != nil {
		t.Fatalf("CompileMap: %v", err)
	}
	// nil context keeps lobby goroutines off; tests drive ticks directly.
	return NewManager(nil, ManagerConfig{MaxLobbies: maxLobbies, GameMap: gameMap})
}

func TestQuickMatchCreatesThenReuses(t *testing.T) {
	m := newTestManager(t, 0)

	first, err := m.QuickMatch("p1", "tdm")
	if err != nil {
		t.Fatalf("QuickMatch p1: %v", err)
	}
	second, err := m.QuickMatch("p2", "tdm")
	if err != nil {
		t.Fatalf("QuickMatch p2: %v", err)
	}
	if first.Lobby.ID != second.Lobby.ID {
		t.Fatalf("p2 should land in p1's lobby, got %s and %s", first.Lobby.ID, second.Lobby.ID)
	}
	if m.Count() != 1 {
		t.Fatalf("one lobby expected, got %d", m.Count())
	}

	other, err := m.QuickMatch("p3", "ctf")
	if err != nil {
		t.Fatalf("QuickMatch p3: %v", err)
	}
	if other.Lobby.ID == first.Lobby.ID {
		t.Fatalf("a different mode must not share the lobby")
	}
}

func TestQuickMatchRejectsDoubleJoin(t *testing.T) {
	m := newTestManager(t, 0)
	if _, err := m.QuickMatch("p1", "tdm"); err != nil {
		t.Fatalf("first QuickMatch: %v", err)
	}
	if _, err := m.QuickMatch("p1", "tdm"); !errors.Is(err, ErrAlreadyInLobby) {
		t.Fatalf("want ErrAlreadyInLobby, got %v", err)
	}
}

func TestPrivateLobbyPassword(t *testing.T) {
	m := newTestManager(t, 0)
	created, err := m.CreatePrivate("p1", Options{Mode: "tdm", Password: "hunter2"})
	if err != nil {
		t.Fatalf("CreatePrivate: %v", err)
	}

	if _, err := m.Join("p2", created.Lobby.ID, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("want ErrWrongPassword, got %v", err)
	}
	joined, err := m.Join("p2", created.Lobby.ID, "hunter2")
	if err != nil {
		t.Fatalf("Join with correct password: %v", err)
	}
	if joined.IsLateJoin {
		t.Fatalf("join before match start is not a late join")
	}
	// Private lobbies never absorb quickmatch traffic.
	stranger, err := m.QuickMatch("p3", "tdm")
	if err != nil {
		t.Fatalf("QuickMatch p3: %v", err)
	}
	if stranger.Lobby.ID == created.Lobby.ID {
		t.Fatalf("quickmatch must skip private lobbies")
	}
}

func TestJoinUnknownLobby(t *testing.T) {
	m := newTestManager(t, 0)
	if _, err := m.Join("p1", "lobby-404", ""); !errors.Is(err, ErrLobbyNotFound) {
		t.Fatalf("want ErrLobbyNotFound, got %v", err)
	}
}

func TestServerAtCapacity(t *testing.T) {
	m := newTestManager(t, 1)
	if _, err := m.CreatePrivate("p1", Options{Mode: "tdm"}); err != nil {
		t.Fatalf("first lobby: %v", err)
	}
	if _, err := m.CreatePrivate("p2", Options{Mode: "tdm"}); !errors.Is(err, ErrServerAtCapacity) {
		t.Fatalf("want ErrServerAtCapacity, got %v", err)
	}
}

func TestLobbyFullRejectsJoin(t *testing.T) {
	m := newTestManager(t, 0)
	created, err := m.CreatePrivate("p1", Options{Mode: "tdm", MaxPlayers: 2})
	if err != nil {
		t.Fatalf("CreatePrivate: %v", err)
	}
	if _, err := m.Join("p2", created.Lobby.ID, ""); err != nil {
		t.Fatalf("second join: %v", err)
	}
	if _, err := m.Join("p3", created.Lobby.ID, ""); !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("want ErrLobbyFull, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	m := newTestManager(t, 0)
	public, err := m.QuickMatch("p1", "tdm")
	if err != nil {
		t.Fatalf("QuickMatch: %v", err)
	}
	if _, err := m.CreatePrivate("p2", Options{Mode: "tdm", Password: "x"}); err != nil {
		t.Fatalf("CreatePrivate: %v", err)
	}

	rows := m.List(ListFilters{})
	if len(rows) != 1 || rows[0].ID != public.Lobby.ID {
		t.Fatalf("default list hides private lobbies, got %+v", rows)
	}
	if rows := m.List(ListFilters{ShowPrivate: true}); len(rows) != 2 {
		t.Fatalf("ShowPrivate should list both, got %d", len(rows))
	}
	if rows := m.List(ListFilters{ShowPrivate: true, Mode: "ctf"}); len(rows) != 0 {
		t.Fatalf("mode filter should empty the list, got %d", len(rows))
	}
}

func TestLeaveThenIdleCleanup(t *testing.T) {
	m := newTestManager(t, 0)
	created, err := m.CreatePrivate("p1", Options{Mode: "tdm"})
	if err != nil {
		t.Fatalf("CreatePrivate: %v", err)
	}
	m.Leave("p1")
	if _, ok := m.LobbyFor("p1"); ok {
		t.Fatalf("leave must unbind the player")
	}
	if created.Lobby.PlayerCount() != 0 {
		t.Fatalf("lobby should be empty after leave")
	}

	m.Cleanup(time.Now().Add(30 * time.Second))
	if m.Count() != 1 {
		t.Fatalf("lobby inside the idle window must survive")
	}
	m.Cleanup(time.Now().Add(LobbyIdleTimeout + time.Second))
	if m.Count() != 0 {
		t.Fatalf("idle empty lobby must be destroyed")
	}
}

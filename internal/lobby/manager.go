package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"breach/server/internal/arena"
	"breach/server/internal/telemetry"
	"breach/server/logging"
	loglifecycle "breach/server/logging/lifecycle"
)

// Typed join and creation failures surfaced to the transport.
var (
	ErrLobbyNotFound    = errors.New("lobby_not_found")
	ErrWrongPassword    = errors.New("wrong_password")
	ErrLobbyFull        = errors.New("lobby_full")
	ErrServerAtCapacity = errors.New("server_at_capacity")
	ErrAlreadyInLobby   = errors.New("already_in_lobby")
)

const (
	// DefaultMaxLobbies caps the fleet per process.
	DefaultMaxLobbies = 100
	// LobbyIdleTimeout destroys lobbies that sit empty.
	LobbyIdleTimeout = 60 * time.Second

	cleanupEvery = 10 * time.Second

	lobbiesActiveMetricKey  = "lobby_active"
	lobbiesCreatedMetricKey = "lobby_created_total"
)

// ManagerConfig tunes the fleet.
type ManagerConfig struct {
	MaxLobbies int
	GameMap    *arena.Map
	Publisher  logging.Publisher
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics
	Seed       int64
}

// Manager owns the lobby registry. The registry itself is mutated only
// under the manager lock; each lobby's simulation runs on its own
// goroutine.
type Manager struct {
	cfg ManagerConfig
	ctx context.Context

	mu       sync.Mutex
	lobbies  map[string]*Lobby
	byPlayer map[string]string
	nextID   uint64
}

// NewManager builds an empty fleet.
func NewManager(ctx context.Context, cfg ManagerConfig) *Manager {
	if cfg.MaxLobbies <= 0 {
		cfg.MaxLobbies = DefaultMaxLobbies
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	return &Manager{
		cfg:      cfg,
		ctx:      ctx,
		lobbies:  make(map[string]*Lobby),
		byPlayer: make(map[string]string),
	}
}

// JoinResult reports a successful bind.
type JoinResult struct {
	Lobby      *Lobby
	IsLateJoin bool
}

// Options configures a private lobby.
type Options struct {
	Mode       string
	MaxPlayers int
	Password   string
}

// QuickMatch binds the player to the first joinable public lobby with the
// mode, creating one when none qualifies.
func (m *Manager) QuickMatch(playerID, mode string) (JoinResult, error) {
	m.mu.Lock()
	if existing, ok := m.byPlayer[playerID]; ok {
		m.mu.Unlock()
		return JoinResult{}, fmt.Errorf("%w: player already in lobby %s", ErrAlreadyInLobby, existing)
	}
	var candidate *Lobby
	for _, l := range m.lobbies {
		if l.Private || l.Mode != mode || l.PasswordRequired() {
			continue
		}
		state := l.State()
		if state != StateWaiting && state != StateStarting && state != StatePlaying {
			continue
		}
		if l.PlayerCount() >= l.MaxPlayers() {
			continue
		}
		candidate = l
		break
	}
	var err error
	if candidate == nil {
		candidate, err = m.createLocked(mode, false, FullLobby, nil)
		if err != nil {
			m.mu.Unlock()
			return JoinResult{}, err
		}
	}
	m.mu.Unlock()

	return m.bind(playerID, candidate, "")
}

// CreatePrivate creates a password-protected lobby and binds the creator.
func (m *Manager) CreatePrivate(playerID string, opts Options) (JoinResult, error) {
	var hash []byte
	if opts.Password != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return JoinResult{}, fmt.Errorf("hash lobby password: %w", err)
		}
	}

	m.mu.Lock()
	if existing, ok := m.byPlayer[playerID]; ok {
		m.mu.Unlock()
		return JoinResult{}, fmt.Errorf("%w: player already in lobby %s", ErrAlreadyInLobby, existing)
	}
	l, err := m.createLocked(opts.Mode, true, opts.MaxPlayers, hash)
	m.mu.Unlock()
	if err != nil {
		return JoinResult{}, err
	}
	return m.bind(playerID, l, opts.Password)
}

// Join binds the player to a specific lobby.
func (m *Manager) Join(playerID, lobbyID, password string) (JoinResult, error) {
	m.mu.Lock()
	if existing, ok := m.byPlayer[playerID]; ok && existing != lobbyID {
		m.mu.Unlock()
		return JoinResult{}, fmt.Errorf("%w: player already in lobby %s", ErrAlreadyInLobby, existing)
	}
	l, ok := m.lobbies[lobbyID]
	m.mu.Unlock()
	if !ok {
		return JoinResult{}, ErrLobbyNotFound
	}
	return m.bind(playerID, l, password)
}

func (m *Manager) bind(playerID string, l *Lobby, password string) (JoinResult, error) {
	if l.PasswordRequired() {
		if err := bcrypt.CompareHashAndPassword(l.passwordHash, []byte(password)); err != nil {
			return JoinResult{}, ErrWrongPassword
		}
	}
	now := time.Now()
	isLate, err := l.reserve(playerID, now)
	if err != nil {
		return JoinResult{}, err
	}

	m.mu.Lock()
	m.byPlayer[playerID] = l.ID
	m.mu.Unlock()

	loglifecycle.PlayerJoined(context.Background(), m.cfg.Publisher, l.ID,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer}, isLate)
	return JoinResult{Lobby: l, IsLateJoin: isLate}, nil
}

// Leave removes the player from their lobby, if any.
func (m *Manager) Leave(playerID string) {
	m.mu.Lock()
	lobbyID, ok := m.byPlayer[playerID]
	var l *Lobby
	if ok {
		l = m.lobbies[lobbyID]
	}
	m.mu.Unlock()
	if l == nil {
		return
	}
	l.release(playerID, "left", time.Now())
}

// LobbyFor returns the player's current lobby.
func (m *Manager) LobbyFor(playerID string) (*Lobby, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lobbyID, ok := m.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	l, ok := m.lobbies[lobbyID]
	return l, ok
}

// ListFilters narrows the lobby browser.
type ListFilters struct {
	ShowPrivate    bool
	ShowFull       bool
	ShowInProgress bool
	Mode           string
}

// List returns browser rows under the filters.
func (m *Manager) List(filters ListFilters) []Info {
	m.mu.Lock()
	lobbies := make([]*Lobby, 0, len(m.lobbies))
	for _, l := range m.lobbies {
		lobbies = append(lobbies, l)
	}
	m.mu.Unlock()

	out := make([]Info, 0, len(lobbies))
	for _, l := range lobbies {
		info := l.Info()
		if info.IsPrivate && !filters.ShowPrivate {
			continue
		}
		if info.PlayerCount >= info.MaxPlayers && !filters.ShowFull {
			continue
		}
		if info.Status == StatePlaying && !filters.ShowInProgress {
			continue
		}
		if filters.Mode != "" && info.Mode != filters.Mode {
			continue
		}
		out = append(out, info)
	}
	return out
}

// Count reports the active lobby count.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lobbies)
}

func (m *Manager) createLocked(mode string, private bool, maxPlayers int, passwordHash []byte) (*Lobby, error) {
	if len(m.lobbies) >= m.cfg.MaxLobbies {
		return nil, ErrServerAtCapacity
	}
	m.nextID++
	id := fmt.Sprintf("lobby-%d", m.nextID)
	l := newLobby(id, mode, private, maxPlayers, passwordHash, lobbyDeps{
		gameMap:   m.cfg.GameMap,
		publisher: m.cfg.Publisher,
		logger:    m.cfg.Logger,
		metrics:   m.cfg.Metrics,
		onRemoved: m.unbindPlayer,
		seed:      m.cfg.Seed + int64(m.nextID),
	})
	m.lobbies[id] = l
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.Add(lobbiesCreatedMetricKey, 1)
		m.cfg.Metrics.Store(lobbiesActiveMetricKey, uint64(len(m.lobbies)))
	}
	if m.ctx != nil {
		l.Start(m.ctx)
	}
	loglifecycle.LobbyCreated(context.Background(), m.cfg.Publisher, id, mode, private)
	return l, nil
}

func (m *Manager) unbindPlayer(lobbyID, playerID string) {
	m.mu.Lock()
	if current, ok := m.byPlayer[playerID]; ok && current == lobbyID {
		delete(m.byPlayer, playerID)
	}
	m.mu.Unlock()
}

// Cleanup destroys lobbies that sit empty past the idle timeout.
func (m *Manager) Cleanup(now time.Time) {
	m.mu.Lock()
	var victims []*Lobby
	for id, l := range m.lobbies {
		if l.PlayerCount() == 0 && now.Sub(l.LastActivity()) > LobbyIdleTimeout {
			victims = append(victims, l)
			delete(m.lobbies, id)
		}
	}
	if m.cfg.Metrics != nil && len(victims) > 0 {
		m.cfg.Metrics.Store(lobbiesActiveMetricKey, uint64(len(m.lobbies)))
	}
	m.mu.Unlock()

	for _, l := range victims {
		l.Stop()
		loglifecycle.LobbyDestroyed(context.Background(), m.cfg.Publisher, l.ID, "idle")
	}
}

// Run drives periodic cleanup until the context ends.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Shutdown()
			return
		case <-ticker.C:
			m.Cleanup(time.Now())
		}
	}
}

// Shutdown stops every lobby goroutine.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	lobbies := make([]*Lobby, 0, len(m.lobbies))
	for id, l := range m.lobbies {
		lobbies = append(lobbies, l)
		delete(m.lobbies, id)
	}
	m.mu.Unlock()
	for _, l := range lobbies {
		l.Stop()
	}
}

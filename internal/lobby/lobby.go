// Package lobby manages the lobby fleet: matchmaking, per-lobby match
// goroutines, the match-start state machine, and fan-out to subscribed
// connections. The isolation rule lives here: every outbound event flows
// through one lobby's subscriber set and nothing else.
package lobby

import (
	"context"
	"sync"
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/sim"
	"breach/server/internal/telemetry"
	"breach/server/internal/weapons"
	"breach/server/logging"
	logcombat "breach/server/logging/combat"
	loglifecycle "breach/server/logging/lifecycle"
	logmatch "breach/server/logging/match"
	lognetwork "breach/server/logging/network"
	logsim "breach/server/logging/simulation"
)

const (
	// commandQueueCapacity bounds the per-lobby inbound mailbox.
	commandQueueCapacity = 256
	// eventQueueCapacity bounds each subscriber's buffered event queue.
	eventQueueCapacity = 512
	// PlayerIdleTimeout removes players with no input or heartbeat.
	PlayerIdleTimeout = 30 * time.Second

	idleScanEvery = uint64(sim.TickRate) // once a second

	eventsDroppedMetricKey = "lobby_subscriber_events_dropped_total"
)

// Subscription is one connection's outbound view of a lobby. Events are
// buffered and never silently reordered; snapshots are latest-wins.
type Subscription struct {
	PlayerID  string
	Events    chan sim.Event
	Snapshots chan sim.Snapshot
}

// Lobby is one independent match room. A single goroutine owns the match;
// membership and subscriptions are guarded for cross-goroutine access.
type Lobby struct {
	ID      string
	Mode    string
	Private bool

	maxPlayers   int
	passwordHash []byte

	buffer     *sim.CommandBuffer
	match      *sim.Match
	controller *Controller

	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics

	mu           sync.Mutex
	members      map[string]bool
	subscribers  map[string]*Subscription
	state        State
	lastActivity time.Time

	cancel context.CancelFunc
	done   chan struct{}

	onPlayerRemoved func(lobbyID, playerID string)
}

type lobbyDeps struct {
	gameMap   *arena.Map
	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	onRemoved func(lobbyID, playerID string)
	seed      int64
}

func newLobby(id, mode string, private bool, maxPlayers int, passwordHash []byte, deps lobbyDeps) *Lobby {
	if maxPlayers <= 0 || maxPlayers > FullLobby {
		maxPlayers = FullLobby
	}
	l := &Lobby{
		ID:              id,
		Mode:            mode,
		Private:         private,
		maxPlayers:      maxPlayers,
		passwordHash:    passwordHash,
		buffer:          sim.NewCommandBuffer(commandQueueCapacity, deps.metrics),
		match:           sim.NewMatch(deps.gameMap, sim.Config{Seed: deps.seed, Logger: deps.logger, Metrics: deps.metrics}),
		controller:      NewController(id),
		publisher:       deps.publisher,
		logger:          deps.logger,
		metrics:         deps.metrics,
		members:         make(map[string]bool, FullLobby),
		subscribers:     make(map[string]*Subscription, FullLobby),
		state:           StateWaiting,
		lastActivity:    time.Now(),
		done:            make(chan struct{}),
		onPlayerRemoved: deps.onRemoved,
	}
	return l
}

// Start launches the lobby's tick goroutine.
func (l *Lobby) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	go l.run(ctx)
}

// Stop terminates the tick goroutine and waits for it to exit.
func (l *Lobby) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

// State reports the lifecycle phase as of the last tick.
func (l *Lobby) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// PlayerCount reports current membership.
func (l *Lobby) PlayerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.members)
}

// PasswordRequired reports whether joins must carry a password.
func (l *Lobby) PasswordRequired() bool { return len(l.passwordHash) > 0 }

// MaxPlayers reports the lobby capacity.
func (l *Lobby) MaxPlayers() int { return l.maxPlayers }

// LastActivity reports when the lobby last saw a command or membership
// change.
func (l *Lobby) LastActivity() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastActivity
}

// Enqueue stages a command for the next physics tick.
func (l *Lobby) Enqueue(cmd sim.Command) bool {
	l.mu.Lock()
	l.lastActivity = time.Now()
	l.mu.Unlock()
	return l.buffer.Push(cmd)
}

// reserve binds a player to the lobby, reporting whether the join is a
// late join into a running match.
func (l *Lobby) reserve(playerID string, now time.Time) (isLateJoin bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.members[playerID] {
		return false, ErrAlreadyInLobby
	}
	if len(l.members) >= l.maxPlayers {
		return false, ErrLobbyFull
	}
	l.members[playerID] = true
	l.lastActivity = now
	isLateJoin = l.state == StatePlaying
	playerCount := len(l.members)

	l.broadcastLocked(sim.Event{Type: EventPlayerJoinedLobby, Payload: PlayerJoinedPayload{
		LobbyID:     l.ID,
		PlayerCount: playerCount,
		PlayerID:    playerID,
		Timestamp:   now.UnixMilli(),
	}})
	return isLateJoin, nil
}

// release unbinds a player. Reports whether the lobby is now empty.
func (l *Lobby) release(playerID, reason string, now time.Time) bool {
	l.mu.Lock()
	if !l.members[playerID] {
		empty := len(l.members) == 0
		l.mu.Unlock()
		return empty
	}
	delete(l.members, playerID)
	if sub, ok := l.subscribers[playerID]; ok {
		delete(l.subscribers, playerID)
		close(sub.Events)
	}
	l.lastActivity = now
	playerCount := len(l.members)
	l.broadcastLocked(sim.Event{Type: EventPlayerLeftLobby, Payload: PlayerLeftPayload{
		LobbyID:     l.ID,
		PlayerCount: playerCount,
		PlayerID:    playerID,
		Timestamp:   now.UnixMilli(),
	}})
	l.mu.Unlock()

	l.buffer.Push(sim.Command{ActorID: playerID, Type: sim.CommandLeave, IssuedAt: now})
	loglifecycle.PlayerLeft(context.Background(), l.publisher, l.ID,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer}, reason)
	if l.onPlayerRemoved != nil {
		l.onPlayerRemoved(l.ID, playerID)
	}
	return playerCount == 0
}

// Subscribe attaches a connection's outbound queues for a member player.
func (l *Lobby) Subscribe(playerID string) (*Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.members[playerID] {
		return nil, ErrLobbyNotFound
	}
	if old, ok := l.subscribers[playerID]; ok {
		close(old.Events)
	}
	sub := &Subscription{
		PlayerID:  playerID,
		Events:    make(chan sim.Event, eventQueueCapacity),
		Snapshots: make(chan sim.Snapshot, 1),
	}
	l.subscribers[playerID] = sub
	return sub, nil
}

// Unsubscribe detaches a connection without removing lobby membership.
func (l *Lobby) Unsubscribe(playerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sub, ok := l.subscribers[playerID]; ok {
		delete(l.subscribers, playerID)
		close(sub.Events)
	}
}

// broadcastLocked fans one event out to the subscribed sockets of this
// lobby and no one else. Events queue; a saturated subscriber drops the
// event with an audit trail rather than blocking the tick.
func (l *Lobby) broadcastLocked(event sim.Event) {
	for playerID, sub := range l.subscribers {
		if event.Recipient != "" && event.Recipient != playerID {
			continue
		}
		select {
		case sub.Events <- event:
		default:
			if l.metrics != nil {
				l.metrics.Add(eventsDroppedMetricKey, 1)
			}
			lognetwork.QueueSaturated(context.Background(), l.publisher, event.Tick, l.ID,
				logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer}, len(sub.Events))
		}
	}
}

func (l *Lobby) broadcast(events []sim.Event) {
	if len(events) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, event := range events {
		l.broadcastLocked(event)
	}
}

// deliverSnapshots pushes per-recipient filtered snapshots, replacing any
// undelivered one.
func (l *Lobby) deliverSnapshots(now time.Time) {
	l.mu.Lock()
	subs := make([]*Subscription, 0, len(l.subscribers))
	for _, sub := range l.subscribers {
		subs = append(subs, sub)
	}
	l.mu.Unlock()

	for _, sub := range subs {
		snap, ok := l.match.SnapshotFor(sub.PlayerID, now)
		if !ok {
			continue
		}
		select {
		case sub.Snapshots <- snap:
		default:
			select {
			case <-sub.Snapshots:
			default:
			}
			select {
			case sub.Snapshots <- snap:
			default:
			}
		}
	}
}

// run is the lobby's two-phase loop: 60 Hz physics, every third tick a
// network flush.
func (l *Lobby) run(ctx context.Context) {
	defer close(l.done)
	// A panic here must not take down the other lobbies; this one goes
	// quiet and its players fall out through the socket teardown path.
	defer func() {
		if r := recover(); r != nil {
			l.logger.Printf("lobby %s: tick loop panicked: %v", l.ID, r)
		}
	}()
	ticker := time.NewTicker(sim.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tickOnce(time.Now())
		}
	}
}

func (l *Lobby) tickOnce(now time.Time) {
	started := time.Now()

	l.match.Apply(l.buffer.Drain(), now)
	l.match.Step(now)

	if l.match.Tick()%idleScanEvery == 0 {
		for _, id := range l.match.IdlePlayers(now, PlayerIdleTimeout) {
			l.release(id, "idle_timeout", now)
		}
	}

	transitions := l.controller.Tick(l.match, now)
	if len(transitions) > 0 {
		l.noteTransitions(transitions, now)
	}

	if l.match.IsNetworkTick() {
		matchEvents := l.match.DrainEvents()
		l.noteCombat(matchEvents)
		l.broadcast(append(transitions, matchEvents...))
		l.deliverSnapshots(now)
	} else if len(transitions) > 0 {
		l.broadcast(transitions)
	}

	l.mu.Lock()
	l.state = l.controller.State()
	l.mu.Unlock()

	if elapsed := time.Since(started); elapsed > sim.TickInterval {
		logsim.TickOverrun(context.Background(), l.publisher, l.match.Tick(), l.ID, elapsed, sim.TickInterval)
	}
}

// noteCombat mirrors notable match events into the logging pipeline.
func (l *Lobby) noteCombat(events []sim.Event) {
	ctx := context.Background()
	for _, event := range events {
		switch event.Type {
		case sim.EventPlayerDied:
			if payload, ok := event.Payload.(sim.PlayerDiedPayload); ok {
				logcombat.Kill(ctx, l.publisher, event.Tick, l.ID,
					logging.EntityRef{ID: payload.KillerID, Kind: logging.EntityKindPlayer},
					logging.EntityRef{ID: payload.PlayerID, Kind: logging.EntityKindPlayer},
					string(payload.WeaponType), payload.IsTeamKill)
			}
		case sim.EventWallDestroyed:
			if payload, ok := event.Payload.(sim.WallDamagedPayload); ok {
				logcombat.WallRazed(ctx, l.publisher, event.Tick, l.ID,
					logging.EntityRef{}, payload.WallID, payload.SliceIndex)
			}
		case sim.EventWeaponHeat:
			if payload, ok := event.Payload.(sim.WeaponHeatPayload); ok && payload.Overheated {
				logcombat.Overheat(ctx, l.publisher, event.Tick, l.ID,
					logging.EntityRef{ID: payload.PlayerID, Kind: logging.EntityKindPlayer},
					string(weapons.TypeMachineGun))
			}
		}
	}
}

// noteTransitions mirrors controller transitions into the logging
// pipeline.
func (l *Lobby) noteTransitions(events []sim.Event, now time.Time) {
	ctx := context.Background()
	for _, event := range events {
		switch event.Type {
		case EventMatchStarting:
			if payload, ok := event.Payload.(StartingPayload); ok {
				logmatch.Countdown(ctx, l.publisher, event.Tick, l.ID, payload.CountdownSeconds)
			}
		case EventMatchStartCancelled:
			if payload, ok := event.Payload.(CancelledPayload); ok {
				logmatch.Cancelled(ctx, l.publisher, event.Tick, l.ID, payload.Reason)
			}
		case EventMatchStarted:
			logmatch.Started(ctx, l.publisher, event.Tick, l.ID, l.match.PlayerCount())
		case EventMatchEnded:
			if payload, ok := event.Payload.(EndedPayload); ok {
				logmatch.Ended(ctx, l.publisher, event.Tick, l.ID, logmatch.EndedPayload{
					Winner:    payload.WinnerTeam,
					RedKills:  payload.RedKills,
					BlueKills: payload.BlueKills,
					Duration:  payload.Duration,
				})
			}
		}
	}
}

// Info is the lobby browser row.
type Info struct {
	ID               string `json:"id"`
	Mode             string `json:"mode"`
	PlayerCount      int    `json:"playerCount"`
	MaxPlayers       int    `json:"maxPlayers"`
	Status           State  `json:"status"`
	IsPrivate        bool   `json:"isPrivate"`
	PasswordRequired bool   `json:"passwordRequired"`
}

// Info snapshots the lobby for the browser list.
func (l *Lobby) Info() Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Info{
		ID:               l.ID,
		Mode:             l.Mode,
		PlayerCount:      len(l.members),
		MaxPlayers:       l.maxPlayers,
		Status:           l.state,
		IsPrivate:        l.Private,
		PasswordRequired: len(l.passwordHash) > 0,
	}
}

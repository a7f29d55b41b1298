// Package sim owns one match's authoritative state: player movement and
// damage, weapon resolution, projectiles, destructible walls, smoke and
// flash effects, and the per-tick event log. One goroutine owns a Match;
// commands arrive through the lobby's CommandBuffer.
package sim

import (
	"fmt"
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/geom"
	"breach/server/internal/physics"
	"breach/server/internal/telemetry"
	"breach/server/internal/vision"
	"breach/server/internal/weapons"
)

const (
	// TickRate is the fixed physics rate; every third tick is a network
	// tick.
	TickRate     = 60
	TickInterval = time.Second / TickRate
	NetworkEvery = 3

	// RespawnCooldown gates manual respawn after death.
	RespawnCooldown = 3 * time.Second
	// SpawnInvulnerability protects fresh spawns and late joiners.
	SpawnInvulnerability = 3 * time.Second

	// DefaultKillTarget ends the match when one team's kills reach it.
	DefaultKillTarget = 50

	inputSkewWindow       = 5 * time.Second
	heatBroadcastInterval = 250 * time.Millisecond

	// Screen-space aim coordinates are scaled down by this factor.
	screenWidth  = 1920.0
	screenHeight = 1080.0

	// FlashRadius bounds flashbang effect application.
	FlashRadius = 80.0

	// Smoke clouds expand to their target radius over one second and fade
	// out over the last three.
	smokeExpandSeconds = 1.0
	smokeFadeWindow    = 3 * time.Second
)

const (
	inputsDroppedMetricKey  = "match_inputs_dropped_total"
	inputsAcceptedMetricKey = "match_inputs_accepted_total"
	shotsRejectedMetricKey  = "match_shots_rejected_total"
)

// Config tunes one match.
type Config struct {
	Seed       int64
	KillTarget int
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics
}

// SmokeZone is an active smoke cloud.
type SmokeZone struct {
	ID           string
	Center       geom.Vec2
	Radius       float64
	TargetRadius float64
	Density      float64
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Match is one lobby's simulation state. Not safe for concurrent use; the
// owning lobby goroutine serializes all access.
type Match struct {
	cfg     Config
	logger  telemetry.Logger
	metrics telemetry.Metrics

	gameMap *arena.Map
	walls   *arena.WallSet
	fov     *vision.Engine
	guns    *weapons.Engine

	players map[string]*Player
	order   []string

	projectiles []*physics.Projectile
	smokes      []*SmokeZone

	teamKills map[Team]int

	events []Event

	tick        uint64
	now         time.Time
	nextSmokeID uint64
}

// NewMatch builds an empty match over the shared map.
func NewMatch(m *arena.Map, cfg Config) *Match {
	if cfg.KillTarget <= 0 {
		cfg.KillTarget = DefaultKillTarget
	}
	walls := arena.NewWallSet(m)
	return &Match{
		cfg:       cfg,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		gameMap:   m,
		walls:     walls,
		fov:       vision.NewEngine(walls),
		guns:      weapons.NewEngine(cfg.Seed),
		players:   make(map[string]*Player, 8),
		teamKills: map[Team]int{TeamRed: 0, TeamBlue: 0},
	}
}

// Tick is the current physics tick counter.
func (m *Match) Tick() uint64 { return m.tick }

// IsNetworkTick reports whether the last Step landed on a broadcast tick.
func (m *Match) IsNetworkTick() bool { return m.tick%NetworkEvery == 0 }

// Walls exposes the match's wall set.
func (m *Match) Walls() *arena.WallSet { return m.walls }

// PlayerCount reports the number of joined players.
func (m *Match) PlayerCount() int { return len(m.players) }

// Player returns one player's state.
func (m *Match) Player(id string) (*Player, bool) {
	p, ok := m.players[id]
	return p, ok
}

// PlayerIDs returns the ids in join order.
func (m *Match) PlayerIDs() []string {
	return append([]string(nil), m.order...)
}

// TeamScores returns the red and blue kill totals.
func (m *Match) TeamScores() (red, blue int) {
	return m.teamKills[TeamRed], m.teamKills[TeamBlue]
}

// Winner returns the team that reached the kill target, if any.
func (m *Match) Winner() (Team, bool) {
	red, blue := m.TeamScores()
	if red >= m.cfg.KillTarget {
		return TeamRed, true
	}
	if blue >= m.cfg.KillTarget {
		return TeamBlue, true
	}
	return "", false
}

func (m *Match) emit(eventType string, payload any) {
	m.events = append(m.events, Event{Type: eventType, Tick: m.tick, Payload: payload})
}

// DrainEvents returns this tick window's ordered event log and clears it.
func (m *Match) DrainEvents() []Event {
	if len(m.events) == 0 {
		return nil
	}
	out := m.events
	m.events = nil
	return out
}

// AddPlayer joins a player to the match. Invalid loadouts fall back to the
// default rather than rejecting the join.
func (m *Match) AddPlayer(id string, join JoinCommand, now time.Time) *Player {
	if p, ok := m.players[id]; ok {
		return p
	}
	if join.Team != TeamRed && join.Team != TeamBlue {
		join.Team = m.balancedTeam()
	}
	if err := join.Loadout.Validate(); err != nil {
		if m.logger != nil {
			m.logger.Printf("match: player %s loadout rejected: %v", id, err)
		}
		join.Loadout = weapons.DefaultLoadout()
	}
	p := newPlayer(id, join, now)
	p.Pos = m.spawnPoint(p.Team)
	p.SpawnInvulnerableUntil = now.Add(SpawnInvulnerability)
	m.players[id] = p
	m.order = append(m.order, id)
	return p
}

// RemovePlayer drops a player and their cached vision.
func (m *Match) RemovePlayer(id string) {
	if _, ok := m.players[id]; !ok {
		return
	}
	delete(m.players, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.fov.Drop(id)
}

// IdlePlayers lists players without input or heartbeat activity inside the
// window.
func (m *Match) IdlePlayers(now time.Time, window time.Duration) []string {
	var out []string
	for _, id := range m.order {
		if now.Sub(m.players[id].LastActivity) > window {
			out = append(out, id)
		}
	}
	return out
}

func (m *Match) balancedTeam() Team {
	red, blue := 0, 0
	for _, p := range m.players {
		if p.Team == TeamRed {
			red++
		} else {
			blue++
		}
	}
	if red <= blue {
		return TeamRed
	}
	return TeamBlue
}

// spawnPoint picks the first unblocked configured spawn, falling back to
// the team's fixed safe point.
func (m *Match) spawnPoint(team Team) geom.Vec2 {
	for _, candidate := range m.gameMap.Spawns(string(team)) {
		resolved := physics.ResolveSpawn(candidate, string(team), m.walls)
		if resolved == candidate {
			return resolved
		}
	}
	return arena.FallbackSpawn(string(team))
}

// Apply routes a batch of drained commands into the match, oldest first.
func (m *Match) Apply(cmds []Command, now time.Time) {
	for _, cmd := range cmds {
		switch cmd.Type {
		case CommandJoin:
			if cmd.Join != nil {
				m.AddPlayer(cmd.ActorID, *cmd.Join, now)
			}
		case CommandInput:
			if cmd.Input != nil {
				m.applyInput(cmd.ActorID, *cmd.Input, now)
			}
		case CommandFire:
			if cmd.Fire != nil {
				m.applyFire(cmd.ActorID, *cmd.Fire, now)
			}
		case CommandReload:
			m.applyReload(cmd.ActorID, now)
		case CommandSwitchWeapon:
			if cmd.Switch != nil {
				m.applySwitch(cmd.ActorID, *cmd.Switch)
			}
		case CommandRespawn:
			m.applyRespawn(cmd.ActorID, now)
		case CommandRequestState, CommandHeartbeat:
			// Snapshots are always complete and flushed every network
			// tick, so a state request only counts as activity.
			if p, ok := m.players[cmd.ActorID]; ok {
				p.LastActivity = now
			}
		case CommandLeave:
			m.RemovePlayer(cmd.ActorID)
		}
	}
}

func (m *Match) dropInput() {
	if m.metrics != nil {
		m.metrics.Add(inputsDroppedMetricKey, 1)
	}
}

// applyInput validates and adopts one input frame. Invalid frames drop
// silently; the sequence highwater only advances on acceptance.
func (m *Match) applyInput(actorID string, in InputCommand, now time.Time) {
	p, ok := m.players[actorID]
	if !ok {
		return
	}
	if in.Sequence <= p.LastProcessedInputSequence {
		m.dropInput()
		return
	}
	clientTime := time.UnixMilli(in.ClientTime)
	if skew := now.Sub(clientTime); skew > inputSkewWindow || skew < -inputSkewWindow {
		m.dropInput()
		return
	}
	aim, ok := normalizeAimPoint(in.Aim)
	if !ok {
		m.dropInput()
		return
	}

	p.LastProcessedInputSequence = in.Sequence
	p.LastActivity = now
	if m.metrics != nil {
		m.metrics.Add(inputsAcceptedMetricKey, 1)
	}
	if !p.Alive {
		return
	}
	p.Keys = in.Keys
	p.Mode = modeFromKeys(in.Keys)
	if dir := aim.Sub(p.Pos); dir.Length() > 0.001 {
		p.Aim = dir.Normalized()
		p.Rotation = p.Aim.Angle()
	}
}

// normalizeAimPoint accepts game-space or screen-space aim coordinates and
// returns game space.
func normalizeAimPoint(aim geom.Vec2) (geom.Vec2, bool) {
	if aim.X < 0 || aim.Y < 0 {
		return geom.Vec2{}, false
	}
	if aim.X <= arena.FieldWidth && aim.Y <= arena.FieldHeight {
		return aim, true
	}
	if aim.X <= screenWidth && aim.Y <= screenHeight {
		return geom.Vec2{
			X: aim.X * arena.FieldWidth / screenWidth,
			Y: aim.Y * arena.FieldHeight / screenHeight,
		}, true
	}
	return geom.Vec2{}, false
}

func modeFromKeys(keys KeySet) MovementMode {
	switch {
	case keys.Sneak:
		return ModeSneak
	case keys.Run:
		return ModeRun
	default:
		return ModeWalk
	}
}

// applyFire resolves one fire request through the weapon engine and routes
// the resulting damage through the single damage authority.
func (m *Match) applyFire(actorID string, fire FireCommand, now time.Time) {
	p, ok := m.players[actorID]
	if !ok || !p.Alive {
		return
	}
	w, ok := p.Weapons[fire.WeaponType]
	if !ok {
		m.dropInput()
		return
	}
	p.LastActivity = now

	shooter := weapons.Target{ID: p.ID, Team: string(p.Team), Pos: p.Pos}
	targets := m.shootableTargets()
	aim := fire.Direction
	if aim == (geom.Vec2{}) {
		aim = p.Aim
	}

	result := m.guns.Fire(w, shooter, aim, fire.ChargeLevel, targets, m.walls, now)
	if !result.Accepted {
		if m.metrics != nil {
			m.metrics.Add(shotsRejectedMetricKey, 1)
		}
		return
	}

	m.emit(EventWeaponFired, WeaponFiredPayload{
		PlayerID:   p.ID,
		WeaponType: fire.WeaponType,
		Position:   p.Pos,
		Direction:  aim.Normalized(),
		Timestamp:  now.UnixMilli(),
	})

	for _, ray := range result.Rays {
		m.emitWallEvents(ray.WallEvents)
		if !ray.Hit() {
			m.emit(EventWeaponMiss, WeaponMissPayload{
				PlayerID:    p.ID,
				WeaponType:  fire.WeaponType,
				PelletIndex: ray.PelletIndex,
				End:         ray.End,
			})
			continue
		}
		for _, hit := range ray.Players {
			m.emit(EventWeaponHit, WeaponHitPayload{
				PlayerID:    p.ID,
				WeaponType:  fire.WeaponType,
				TargetID:    hit.PlayerID,
				Damage:      hit.Damage,
				PelletIndex: ray.PelletIndex,
				End:         ray.End,
			})
			if victim, ok := m.players[hit.PlayerID]; ok {
				m.applyDamage(victim, p, fire.WeaponType, hit.Damage, "bullet", now)
			}
		}
	}

	if result.Projectile != nil {
		m.projectiles = append(m.projectiles, result.Projectile)
		m.emit(EventProjectileCreated, ProjectileCreatedPayload{
			ID:       result.Projectile.ID,
			Kind:     string(result.Projectile.Kind),
			OwnerID:  p.ID,
			Position: result.Projectile.Pos,
			Velocity: result.Projectile.Vel,
		})
	}

	if w.Spec.HeatPerShot > 0 {
		if result.Overheated || now.Sub(p.lastHeatBroadcast) >= heatBroadcastInterval {
			p.lastHeatBroadcast = now
			m.emit(EventWeaponHeat, WeaponHeatPayload{
				PlayerID:   p.ID,
				Heat:       result.HeatAfter,
				Overheated: result.Overheated,
			})
		}
	}
}

func (m *Match) shootableTargets() []weapons.Target {
	targets := make([]weapons.Target, 0, len(m.order))
	for _, id := range m.order {
		p := m.players[id]
		if !p.Alive {
			continue
		}
		targets = append(targets, weapons.Target{ID: p.ID, Team: string(p.Team), Pos: p.Pos})
	}
	return targets
}

func (m *Match) emitWallEvents(events []arena.SliceEvent) {
	for _, ev := range events {
		payload := WallDamagedPayload{WallID: ev.WallID, SliceIndex: ev.Slice, Health: ev.Health}
		if ev.Destroyed {
			m.emit(EventWallDestroyed, payload)
		} else {
			m.emit(EventWallDamaged, payload)
		}
	}
}

func (m *Match) applyReload(actorID string, now time.Time) {
	p, ok := m.players[actorID]
	if !ok || !p.Alive {
		return
	}
	p.LastActivity = now
	if w := p.ActiveWeapon(); w != nil {
		w.StartReload(now)
	}
}

func (m *Match) applySwitch(actorID string, sw SwitchCommand) {
	p, ok := m.players[actorID]
	if !ok || !p.Alive {
		return
	}
	if _, owned := p.Weapons[sw.To]; !owned || p.Active == sw.To {
		return
	}
	from := p.Active
	p.Active = sw.To
	m.emit(EventWeaponSwitched, WeaponSwitchedPayload{PlayerID: p.ID, From: from, To: sw.To})
}

func (m *Match) applyRespawn(actorID string, now time.Time) {
	p, ok := m.players[actorID]
	if !ok || p.Alive {
		return
	}
	p.LastActivity = now
	if now.Before(p.RespawnDeadline) {
		m.events = append(m.events, Event{
			Type:      EventRespawnDenied,
			Tick:      m.tick,
			Recipient: p.ID,
			Payload:   RespawnDeniedPayload{RemainingMillis: p.RespawnDeadline.Sub(now).Milliseconds()},
		})
		return
	}
	p.Pos = m.spawnPoint(p.Team)
	p.Vel = geom.Vec2{}
	p.Alive = true
	p.Health = MaxHealth
	p.Armor = 0
	p.Flash = FlashState{}
	p.SpawnInvulnerableUntil = now.Add(SpawnInvulnerability)
	m.emit(EventPlayerRespawned, PlayerRespawnedPayload{
		PlayerID:          p.ID,
		Position:          p.Pos,
		Health:            p.Health,
		Team:              p.Team,
		InvulnerableUntil: p.SpawnInvulnerableUntil.UnixMilli(),
		Timestamp:         now.UnixMilli(),
	})
}

// Step advances one 60 Hz physics tick: weapon timers, movement,
// projectiles, smoke, flash decay.
func (m *Match) Step(now time.Time) {
	m.tick++
	m.now = now
	dt := 1.0 / TickRate

	for _, id := range m.order {
		p := m.players[id]
		if w := p.ActiveWeapon(); w != nil {
			if out := w.Update(now, dt); out.ReloadCompleted {
				m.emit(EventWeaponReloaded, WeaponReloadedPayload{
					PlayerID:       p.ID,
					WeaponType:     w.Spec.Type,
					AmmoInMagazine: w.AmmoInMagazine,
					AmmoReserve:    w.AmmoReserve,
				})
			}
		}
		for t, w := range p.Weapons {
			if t != p.Active {
				w.Update(now, dt)
			}
		}
		if p.Flash.Intensity > 0 && !p.Flash.Active(now) {
			p.Flash = FlashState{}
		}
		if !p.Alive {
			continue
		}
		m.movePlayer(p, dt)
	}

	m.stepProjectiles(dt, now)
	m.stepSmoke(dt, now)
}

func (m *Match) movePlayer(p *Player, dt float64) {
	dir := geom.Vec2{}
	if p.Keys.Up {
		dir.Y--
	}
	if p.Keys.Down {
		dir.Y++
	}
	if p.Keys.Left {
		dir.X--
	}
	if p.Keys.Right {
		dir.X++
	}
	if dir == (geom.Vec2{}) {
		p.Vel = geom.Vec2{}
		return
	}
	speed := p.Mode.speed()
	if p.Flash.Active(m.now) {
		// Flash impairment slows movement proportionally.
		speed *= 1 - 0.5*p.Flash.Intensity*p.Flash.Remaining(m.now)
	}
	p.Vel = dir.Normalized().Scale(speed)
	p.Pos = physics.MovePlayer(p.Pos, p.Vel.Scale(dt), m.walls)
}

func (m *Match) stepProjectiles(dt float64, now time.Time) {
	kept := m.projectiles[:0]
	for _, p := range m.projectiles {
		out := physics.Step(p, dt, now, m.walls)
		switch {
		case out.Exploded:
			m.explode(p, out.At, now)
		case out.Removed:
			// Out of bounds: silent removal.
		default:
			kept = append(kept, p)
		}
	}
	m.projectiles = kept
}

// explode applies one detonation: wall destruction, radial player damage,
// and smoke or flash side effects by kind.
func (m *Match) explode(p *physics.Projectile, at geom.Vec2, now time.Time) {
	m.emit(EventProjectileExploded, ProjectileExplodedPayload{
		ID:       p.ID,
		Kind:     string(p.Kind),
		Position: at,
		Radius:   p.ExplosionRadius,
	})

	switch p.Kind {
	case physics.KindSmoke:
		m.spawnSmoke(p, at, now)
		return
	case physics.KindFlash:
		m.applyFlash(p, at, now)
		return
	}

	if p.ExplosionRadius <= 0 || p.Damage <= 0 {
		return
	}
	m.emitWallEvents(m.walls.ApplyExplosion(at, p.ExplosionRadius, p.Damage))

	attacker := m.players[p.Owner]
	for _, id := range m.order {
		victim := m.players[id]
		if !victim.Alive {
			continue
		}
		dist := victim.Pos.Sub(at).Length()
		if dist >= p.ExplosionRadius {
			continue
		}
		damage := int(float64(p.Damage) * (1 - dist/p.ExplosionRadius))
		if damage <= 0 {
			continue
		}
		m.applyDamage(victim, attacker, weaponTypeForKind(p.Kind), damage, "explosion", now)
	}
}

func weaponTypeForKind(kind physics.Kind) weapons.Type {
	switch kind {
	case physics.KindRocket:
		return weapons.TypeRocketLauncher
	case physics.KindShell:
		return weapons.TypeGrenadeLauncher
	case physics.KindSmoke:
		return weapons.TypeSmokeGrenade
	case physics.KindFlash:
		return weapons.TypeFlashbang
	default:
		return weapons.TypeFrag
	}
}

func (m *Match) spawnSmoke(p *physics.Projectile, at geom.Vec2, now time.Time) {
	spec, _ := weapons.Lookup(weapons.TypeSmokeGrenade)
	m.nextSmokeID++
	m.smokes = append(m.smokes, &SmokeZone{
		ID:           fmt.Sprintf("smoke-%d", m.nextSmokeID),
		Center:       at,
		Radius:       0,
		TargetRadius: spec.CloudRadius,
		Density:      1,
		CreatedAt:    now,
		ExpiresAt:    now.Add(spec.CloudDuration),
	})
}

func (m *Match) stepSmoke(dt float64, now time.Time) {
	kept := m.smokes[:0]
	for _, s := range m.smokes {
		if !now.Before(s.ExpiresAt) {
			continue
		}
		if s.Radius < s.TargetRadius {
			s.Radius += s.TargetRadius * dt / smokeExpandSeconds
			if s.Radius > s.TargetRadius {
				s.Radius = s.TargetRadius
			}
		}
		if remaining := s.ExpiresAt.Sub(now); remaining < smokeFadeWindow {
			s.Density = float64(remaining) / float64(smokeFadeWindow)
		} else {
			s.Density = 1
		}
		kept = append(kept, s)
	}
	m.smokes = kept
}

// applyFlash rates every alive player by distance and facing and stamps an
// impairment window on the affected ones.
func (m *Match) applyFlash(p *physics.Projectile, at geom.Vec2, now time.Time) {
	spec, _ := weapons.Lookup(weapons.TypeFlashbang)
	var affected []FlashbangTarget
	for _, id := range m.order {
		victim := m.players[id]
		if !victim.Alive {
			continue
		}
		dist := victim.Pos.Sub(at).Length()
		if dist >= FlashRadius {
			continue
		}
		intensity := 1 - dist/FlashRadius
		// Looking away halves the effect.
		toBlast := at.Sub(victim.Pos)
		if toBlast.Length() > 0.001 && victim.Aim.Dot(toBlast.Normalized()) < 0 {
			intensity *= 0.5
		}
		if intensity <= 0 {
			continue
		}
		duration := time.Duration(float64(spec.EffectDuration) * intensity)
		victim.Flash = FlashState{Intensity: intensity, Start: now, Until: now.Add(duration)}
		affected = append(affected, FlashbangTarget{
			PlayerID:  victim.ID,
			Intensity: intensity,
			Duration:  duration.Milliseconds(),
			Phases:    2,
		})
	}
	m.emit(EventFlashbang, FlashbangPayload{Position: at, AffectedPlayers: affected})
}

// ResetForRematch restores a finished match to a fresh state on the same
// map with the same players.
func (m *Match) ResetForRematch(now time.Time) {
	m.walls.Reset()
	m.projectiles = nil
	m.smokes = nil
	m.events = nil
	m.teamKills = map[Team]int{TeamRed: 0, TeamBlue: 0}
	for _, id := range m.order {
		p := m.players[id]
		p.Kills = 0
		p.Deaths = 0
		p.Alive = true
		p.Health = MaxHealth
		p.Armor = 0
		p.Flash = FlashState{}
		p.Pos = m.spawnPoint(p.Team)
		p.Vel = geom.Vec2{}
		p.SpawnInvulnerableUntil = now.Add(SpawnInvulnerability)
		for _, w := range p.Weapons {
			*w = *weapons.NewInstance(w.Spec)
		}
		m.fov.Drop(id)
	}
}

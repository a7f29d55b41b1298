package sim

import (
	"testing"
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/geom"
	"breach/server/internal/weapons"
)

func matchWithWalls(t *testing.T, defs ...arena.WallDef) *Match {
	t.Helper()
	m, err := arena.CompileMap(arena.MapDef{Walls: defs})
	if err != nil {
		t.Fatalf("CompileMap: %v", err)
	}
	return NewMatch(m, Config{Seed: 1})
}

// addCombatant joins a player and strips spawn protection so damage tests
// read cleanly.
func addCombatant(m *Match, id string, team Team, pos geom.Vec2, now time.Time) *Player {
	p := m.AddPlayer(id, JoinCommand{Team: team}, now)
	p.Pos = pos
	p.Aim = geom.Vec2{X: 1}
	p.SpawnInvulnerableUntil = time.Time{}
	return p
}

func eventsOfType(events []Event, eventType string) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestRifleShotThroughWoodWall(t *testing.T) {
	m := matchWithWalls(t, arena.WallDef{X: 200, Y: 100, Width: 8, Height: 80, Material: arena.MaterialWood})
	now := time.Now()
	shooter := addCombatant(m, "p1", TeamRed, geom.Vec2{X: 160, Y: 140}, now)
	victim := addCombatant(m, "p2", TeamBlue, geom.Vec2{X: 228, Y: 140}, now)

	m.Apply([]Command{{
		ActorID: "p1",
		Type:    CommandFire,
		Fire:    &FireCommand{WeaponType: weapons.TypeRifle, Direction: geom.Vec2{X: 1}},
	}}, now)

	events := m.DrainEvents()
	if got := eventsOfType(events, EventWeaponFired); len(got) != 1 {
		t.Fatalf("want one weapon:fired, got %d", len(got))
	}
	damaged := eventsOfType(events, EventWallDamaged)
	if len(damaged) != 1 {
		t.Fatalf("want one wall:damaged, got %d", len(damaged))
	}
	if payload := damaged[0].Payload.(WallDamagedPayload); payload.Health != arena.MaterialWood.MaxSliceHealth()-15 {
		t.Fatalf("slice health should drop by 15, got %d", payload.Health)
	}
	hits := eventsOfType(events, EventWeaponHit)
	if len(hits) != 1 {
		t.Fatalf("want one weapon:hit, got %d", len(hits))
	}
	if payload := hits[0].Payload.(WeaponHitPayload); payload.TargetID != "p2" || payload.Damage != 10 {
		t.Fatalf("hit should land 10 damage on p2: %+v", payload)
	}
	if victim.Health != 90 {
		t.Fatalf("victim health should be 90, got %d", victim.Health)
	}
	if shooter.Kills != 0 {
		t.Fatalf("no kill on a wound")
	}
}

func TestShotgunEmitsEightPelletEvents(t *testing.T) {
	m := matchWithWalls(t, arena.WallDef{X: 200, Y: 100, Width: 8, Height: 80, Material: arena.MaterialConcrete})
	now := time.Now()
	addCombatant(m, "p1", TeamRed, geom.Vec2{X: 170, Y: 140}, now)
	p1 := m.players["p1"]
	p1.Loadout = weapons.Loadout{Primary: weapons.TypeShotgun, Secondary: weapons.TypePistol}
	spec, _ := weapons.Lookup(weapons.TypeShotgun)
	p1.Weapons[weapons.TypeShotgun] = weapons.NewInstance(spec)
	p1.Active = weapons.TypeShotgun

	m.Apply([]Command{{
		ActorID: "p1",
		Type:    CommandFire,
		Fire:    &FireCommand{WeaponType: weapons.TypeShotgun, Direction: geom.Vec2{X: 1}},
	}}, now)

	events := m.DrainEvents()
	if got := eventsOfType(events, EventWeaponFired); len(got) != 1 {
		t.Fatalf("want one weapon:fired, got %d", len(got))
	}
	misses := eventsOfType(events, EventWeaponMiss)
	hits := eventsOfType(events, EventWeaponHit)
	if len(misses)+len(hits) != 8 {
		t.Fatalf("want 8 pellet results, got %d", len(misses)+len(hits))
	}
	seen := map[int]bool{}
	for _, ev := range misses {
		seen[ev.Payload.(WeaponMissPayload).PelletIndex] = true
	}
	for _, ev := range hits {
		seen[ev.Payload.(WeaponHitPayload).PelletIndex] = true
	}
	if len(seen) != 8 {
		t.Fatalf("pellet indexes must cover 0..7, got %v", seen)
	}
	if got := eventsOfType(events, EventWallDamaged); len(got) != 0 {
		t.Fatalf("concrete takes no pellet damage, got %d wall events", len(got))
	}
}

func TestKillAttribution(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	killer := addCombatant(m, "p1", TeamRed, geom.Vec2{X: 60, Y: 140}, now)
	victim := addCombatant(m, "p2", TeamBlue, geom.Vec2{X: 120, Y: 140}, now)
	victim.Health = 10

	m.Apply([]Command{{
		ActorID: "p1",
		Type:    CommandFire,
		Fire:    &FireCommand{WeaponType: weapons.TypeRifle, Direction: geom.Vec2{X: 1}},
	}}, now)

	died := eventsOfType(m.DrainEvents(), EventPlayerDied)
	if len(died) != 1 {
		t.Fatalf("want exactly one death event, got %d", len(died))
	}
	payload := died[0].Payload.(PlayerDiedPayload)
	if payload.PlayerID != "p2" || payload.KillerID != "p1" || payload.IsTeamKill {
		t.Fatalf("bad death payload: %+v", payload)
	}
	if killer.Kills != 1 || victim.Deaths != 1 {
		t.Fatalf("kills/deaths must increment exactly once: %d/%d", killer.Kills, victim.Deaths)
	}
	if red, blue := m.TeamScores(); red != 1 || blue != 0 {
		t.Fatalf("red team score should be 1, got %d/%d", red, blue)
	}
	if victim.Alive || victim.Health != 0 {
		t.Fatalf("victim must be dead at zero health")
	}
}

func TestTeamKillGivesNoScore(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	shooter := addCombatant(m, "p1", TeamRed, geom.Vec2{X: 60, Y: 140}, now)
	mate := addCombatant(m, "p2", TeamRed, geom.Vec2{X: 120, Y: 140}, now)
	mate.Health = 5

	m.Apply([]Command{{
		ActorID: "p1",
		Type:    CommandFire,
		Fire:    &FireCommand{WeaponType: weapons.TypeRifle, Direction: geom.Vec2{X: 1}},
	}}, now)

	died := eventsOfType(m.DrainEvents(), EventPlayerDied)
	if len(died) != 1 || !died[0].Payload.(PlayerDiedPayload).IsTeamKill {
		t.Fatalf("team kill must be flagged")
	}
	if shooter.Kills != 0 {
		t.Fatalf("team kills never increment kills")
	}
	if red, _ := m.TeamScores(); red != 0 {
		t.Fatalf("team kills never score")
	}
	if mate.Deaths != 1 {
		t.Fatalf("victim death still counts")
	}
}

func TestSpawnInvulnerabilityBlocksDamage(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	addCombatant(m, "p1", TeamRed, geom.Vec2{X: 60, Y: 140}, now)
	victim := addCombatant(m, "p2", TeamBlue, geom.Vec2{X: 120, Y: 140}, now)
	victim.SpawnInvulnerableUntil = now.Add(3 * time.Second)

	m.Apply([]Command{{
		ActorID: "p1",
		Type:    CommandFire,
		Fire:    &FireCommand{WeaponType: weapons.TypeRifle, Direction: geom.Vec2{X: 1}},
	}}, now)
	m.DrainEvents()

	if victim.Health != MaxHealth {
		t.Fatalf("invulnerable player took damage: %d", victim.Health)
	}
}

func TestArmorSoaksTwoThirds(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	attacker := addCombatant(m, "p1", TeamRed, geom.Vec2{X: 60, Y: 140}, now)
	victim := addCombatant(m, "p2", TeamBlue, geom.Vec2{X: 120, Y: 140}, now)
	victim.Armor = 60

	m.applyDamage(victim, attacker, weapons.TypeRifle, 30, "bullet", now)
	if victim.Armor != 40 {
		t.Fatalf("armor should absorb 20, got %d left", victim.Armor)
	}
	if victim.Health != 90 {
		t.Fatalf("health should lose the remaining 10, got %d", victim.Health)
	}

	// Armor runs out: the soak clamps to what is left.
	victim.Armor = 5
	m.applyDamage(victim, attacker, weapons.TypeRifle, 30, "bullet", now)
	if victim.Armor != 0 || victim.Health != 90-25 {
		t.Fatalf("depleted armor must pass damage through: armor=%d health=%d", victim.Armor, victim.Health)
	}
}

func TestInputValidation(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	p := addCombatant(m, "p1", TeamRed, geom.Vec2{X: 100, Y: 100}, now)

	input := func(seq uint64, clientTime time.Time, aim geom.Vec2) Command {
		return Command{ActorID: "p1", Type: CommandInput, Input: &InputCommand{
			Sequence:   seq,
			ClientTime: clientTime.UnixMilli(),
			Keys:       KeySet{Right: true},
			Aim:        aim,
		}}
	}

	m.Apply([]Command{input(5, now, geom.Vec2{X: 200, Y: 100})}, now)
	if p.LastProcessedInputSequence != 5 {
		t.Fatalf("accepted input must advance the highwater, got %d", p.LastProcessedInputSequence)
	}

	// Sequence regression: dropped, highwater unchanged.
	m.Apply([]Command{input(4, now, geom.Vec2{X: 200, Y: 100})}, now)
	if p.LastProcessedInputSequence != 5 {
		t.Fatalf("stale sequence must not move the highwater")
	}

	// Clock skew beyond the window: dropped.
	m.Apply([]Command{input(6, now.Add(-6*time.Second), geom.Vec2{X: 200, Y: 100})}, now)
	if p.LastProcessedInputSequence != 5 {
		t.Fatalf("skewed input must be dropped")
	}

	// Screen-space aim is scaled down 1920x1080 -> 480x270.
	m.Apply([]Command{input(7, now, geom.Vec2{X: 960, Y: 540})}, now)
	if p.LastProcessedInputSequence != 7 {
		t.Fatalf("screen-space aim must be accepted")
	}
	want := geom.Vec2{X: 240, Y: 135}.Sub(p.Pos).Normalized()
	if (p.Aim.Sub(want)).Length() > 1e-9 {
		t.Fatalf("aim should point at the scaled coordinate, got %+v", p.Aim)
	}

	// Out of even screen bounds: dropped.
	m.Apply([]Command{input(8, now, geom.Vec2{X: 5000, Y: 100})}, now)
	if p.LastProcessedInputSequence != 7 {
		t.Fatalf("out-of-bounds aim must be dropped")
	}
}

func TestMovementFollowsHeldKeys(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	p := addCombatant(m, "p1", TeamRed, geom.Vec2{X: 100, Y: 100}, now)

	m.Apply([]Command{{ActorID: "p1", Type: CommandInput, Input: &InputCommand{
		Sequence:   1,
		ClientTime: now.UnixMilli(),
		Keys:       KeySet{Right: true, Run: true},
		Aim:        geom.Vec2{X: 200, Y: 100},
	}}}, now)
	m.Step(now)

	wantX := 100 + RunSpeed/TickRate
	if p.Pos.X != wantX {
		t.Fatalf("one run tick should land at %f, got %f", wantX, p.Pos.X)
	}
	if p.Mode != ModeRun {
		t.Fatalf("run modifier should set run mode, got %s", p.Mode)
	}
}

func TestSnapshotFiltersHiddenPlayers(t *testing.T) {
	m := matchWithWalls(t, arena.WallDef{X: 200, Y: 100, Width: 8, Height: 80, Material: arena.MaterialConcrete})
	now := time.Now()
	addCombatant(m, "p1", TeamRed, geom.Vec2{X: 160, Y: 140}, now)
	hidden := addCombatant(m, "p2", TeamBlue, geom.Vec2{X: 260, Y: 140}, now)
	visible := addCombatant(m, "p3", TeamBlue, geom.Vec2{X: 185, Y: 140}, now)
	m.Step(now)

	snap, ok := m.SnapshotFor("p1", now)
	if !ok {
		t.Fatalf("recipient must get a snapshot")
	}
	if snap.You.ID != "p1" {
		t.Fatalf("own view missing")
	}
	ids := map[string]bool{}
	for _, view := range snap.Players {
		ids[view.ID] = true
	}
	if ids[hidden.ID] {
		t.Fatalf("player behind an intact wall must be filtered out")
	}
	if !ids[visible.ID] {
		t.Fatalf("player in the open must be visible")
	}
	if len(snap.Walls) != 1 {
		t.Fatalf("boundary walls must never serialize; want 1 wall, got %d", len(snap.Walls))
	}
}

func TestSnapshotReportsDeadAtZeroHealth(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	addCombatant(m, "p1", TeamRed, geom.Vec2{X: 100, Y: 140}, now)
	dead := addCombatant(m, "p2", TeamBlue, geom.Vec2{X: 140, Y: 140}, now)
	dead.Alive = false
	dead.Health = 57 // internal bookkeeping must not leak

	snap, _ := m.SnapshotFor("p1", now)
	for _, view := range snap.Players {
		if view.ID == "p2" {
			if view.Health != 0 {
				t.Fatalf("dead players report zero health, got %d", view.Health)
			}
			return
		}
	}
	t.Fatalf("dead player in the open should still appear")
}

func TestRespawnCooldownAndProtection(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	p := addCombatant(m, "p1", TeamRed, geom.Vec2{X: 100, Y: 140}, now)
	p.Alive = false
	p.Health = 0
	p.RespawnDeadline = now.Add(RespawnCooldown)

	m.Apply([]Command{{ActorID: "p1", Type: CommandRespawn}}, now.Add(time.Second))
	denied := eventsOfType(m.DrainEvents(), EventRespawnDenied)
	if len(denied) != 1 {
		t.Fatalf("early respawn must be denied")
	}
	if denied[0].Recipient != "p1" {
		t.Fatalf("denial is a private event, recipient %q", denied[0].Recipient)
	}
	if p.Alive {
		t.Fatalf("denied respawn must not revive")
	}

	later := now.Add(RespawnCooldown + time.Millisecond)
	m.Apply([]Command{{ActorID: "p1", Type: CommandRespawn}}, later)
	respawned := eventsOfType(m.DrainEvents(), EventPlayerRespawned)
	if len(respawned) != 1 {
		t.Fatalf("respawn after the cooldown must succeed")
	}
	if !p.Alive || p.Health != MaxHealth {
		t.Fatalf("respawn must restore health")
	}
	if p.Pos == (geom.Vec2{}) {
		t.Fatalf("respawn position must never be the origin")
	}
	if !p.Invulnerable(later.Add(time.Second)) {
		t.Fatalf("fresh spawns carry protection")
	}
}

func TestGrenadeFuseDetonationDamages(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	thrower := addCombatant(m, "p1", TeamRed, geom.Vec2{X: 100, Y: 140}, now)
	bystander := addCombatant(m, "p2", TeamBlue, geom.Vec2{X: 150, Y: 140}, now)

	m.Apply([]Command{{
		ActorID: "p1",
		Type:    CommandFire,
		Fire:    &FireCommand{WeaponType: weapons.TypeFrag, Direction: geom.Vec2{X: 1}, ChargeLevel: 0},
	}}, now)
	created := eventsOfType(m.DrainEvents(), EventProjectileCreated)
	if len(created) != 1 {
		t.Fatalf("throw must spawn a projectile")
	}

	// Step past the 3 s fuse; the slow charge-0 throw stays nearby.
	tickAt := now
	for i := 0; i < 4*TickRate; i++ {
		tickAt = tickAt.Add(TickInterval)
		m.Step(tickAt)
	}
	events := m.DrainEvents()
	exploded := eventsOfType(events, EventProjectileExploded)
	if len(exploded) != 1 {
		t.Fatalf("fuse must detonate exactly once, got %d", len(exploded))
	}
	at := exploded[0].Payload.(ProjectileExplodedPayload).Position
	if at.X < 100 || at.X > 130 {
		t.Fatalf("charge-0 throw should explode near the thrower, at %+v", at)
	}
	if bystander.Health >= MaxHealth {
		t.Fatalf("bystander inside the blast must take damage")
	}
	if thrower.Health >= MaxHealth {
		t.Fatalf("blast damage applies to the thrower too")
	}
	if len(m.projectiles) != 0 {
		t.Fatalf("exploded projectile must be removed")
	}
}

func TestSmokeZoneLifecycle(t *testing.T) {
	m := matchWithWalls(t)
	now := time.Now()
	addCombatant(m, "p1", TeamRed, geom.Vec2{X: 100, Y: 140}, now)

	m.Apply([]Command{{
		ActorID: "p1",
		Type:    CommandFire,
		Fire:    &FireCommand{WeaponType: weapons.TypeSmokeGrenade, Direction: geom.Vec2{X: 1}},
	}}, now)

	tickAt := now
	for i := 0; i < 3*TickRate; i++ {
		tickAt = tickAt.Add(TickInterval)
		m.Step(tickAt)
	}
	if len(m.smokes) != 1 {
		t.Fatalf("smoke cloud should exist after the 2 s fuse, got %d", len(m.smokes))
	}
	spec, _ := weapons.Lookup(weapons.TypeSmokeGrenade)
	if got := m.smokes[0].Radius; got < spec.CloudRadius-0.01 {
		t.Fatalf("cloud should reach its target radius, got %f", got)
	}

	// Past the 15 s cloud duration the zone is gone.
	for i := 0; i < 16*TickRate; i++ {
		tickAt = tickAt.Add(TickInterval)
		m.Step(tickAt)
	}
	if len(m.smokes) != 0 {
		t.Fatalf("expired cloud must be removed")
	}
}

func TestWinnerAtKillTarget(t *testing.T) {
	gameMap, err := arena.CompileMap(arena.MapDef{})
	if err != nil {
		t.Fatalf("CompileMap: %v", err)
	}
	m := NewMatch(gameMap, Config{Seed: 1, KillTarget: 2})
	now := time.Now()
	attacker := addCombatant(m, "p1", TeamRed, geom.Vec2{X: 60, Y: 140}, now)
	victim := addCombatant(m, "p2", TeamBlue, geom.Vec2{X: 120, Y: 140}, now)

	for i := 0; i < 2; i++ {
		victim.Alive = true
		victim.Health = 1
		victim.SpawnInvulnerableUntil = time.Time{}
		m.applyDamage(victim, attacker, weapons.TypeRifle, 50, "bullet", now)
	}
	winner, done := m.Winner()
	if !done || winner != TeamRed {
		t.Fatalf("red should win at the kill target, got %q/%v", winner, done)
	}
}

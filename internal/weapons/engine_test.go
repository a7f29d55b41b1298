package weapons

import (
	"testing"
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/geom"
	"breach/server/internal/physics"
)

func wallsFrom(t *testing.T, defs ...arena.WallDef) *arena.WallSet {
	t.Helper()
	m, err := arena.CompileMap(arena.MapDef{Walls: defs})
	if err != nil {
		t.Fatalf("CompileMap: %v", err)
	}
	return arena.NewWallSet(m)
}

func mustSpec(t *testing.T, typ Type) Spec {
	t.Helper()
	spec, ok := Lookup(typ)
	if !ok {
		t.Fatalf("catalog missing %q", typ)
	}
	return spec
}

func TestRifleThroughSoftWallHitsPlayer(t *testing.T) {
	walls := wallsFrom(t, arena.WallDef{X: 200, Y: 100, Width: 8, Height: 80, Material: arena.MaterialWood})
	engine := NewEngine(1)
	rifle := NewInstance(mustSpec(t, TypeRifle))
	shooter := Target{ID: "p1", Team: "red", Pos: geom.Vec2{X: 160, Y: 140}}
	victim := Target{ID: "p2", Team: "blue", Pos: geom.Vec2{X: 228, Y: 140}}

	out := engine.Fire(rifle, shooter, geom.Vec2{X: 1, Y: 0}, 0, []Target{shooter, victim}, walls, time.Now())
	if !out.Accepted {
		t.Fatalf("fire rejected: %s", out.Reason)
	}
	if len(out.Rays) != 1 {
		t.Fatalf("rifle must resolve one ray, got %d", len(out.Rays))
	}
	ray := out.Rays[0]
	if len(ray.WallEvents) != 1 {
		t.Fatalf("expected one wall damage event, got %d", len(ray.WallEvents))
	}
	if ray.WallEvents[0].Health != arena.MaterialWood.MaxSliceHealth()-15 {
		t.Fatalf("soft slice should lose 15 health, got %d", ray.WallEvents[0].Health)
	}
	if len(ray.Players) != 1 || ray.Players[0].PlayerID != "p2" {
		t.Fatalf("ray should reach the player behind the wall: %+v", ray.Players)
	}
	if ray.Players[0].Damage != 10 {
		t.Fatalf("damage after the penetration tax should be 10, got %d", ray.Players[0].Damage)
	}
	if rifle.AmmoInMagazine != rifle.Spec.Magazine-1 {
		t.Fatalf("shot must spend one round")
	}
}

func TestShotgunPelletsStopAtConcrete(t *testing.T) {
	walls := wallsFrom(t, arena.WallDef{X: 200, Y: 100, Width: 8, Height: 80, Material: arena.MaterialConcrete})
	engine := NewEngine(1)
	shotgun := NewInstance(mustSpec(t, TypeShotgun))
	shooter := Target{ID: "p1", Team: "red", Pos: geom.Vec2{X: 170, Y: 140}}
	victim := Target{ID: "p2", Team: "blue", Pos: geom.Vec2{X: 240, Y: 140}}

	out := engine.Fire(shotgun, shooter, geom.Vec2{X: 1, Y: 0}, 0, []Target{shooter, victim}, walls, time.Now())
	if len(out.Rays) != 8 {
		t.Fatalf("shotgun must resolve 8 pellets, got %d", len(out.Rays))
	}
	for i, ray := range out.Rays {
		if ray.PelletIndex != i {
			t.Fatalf("pellet %d carries index %d", i, ray.PelletIndex)
		}
		if len(ray.WallEvents) != 0 {
			t.Fatalf("hard wall must take no bullet damage")
		}
		if ray.Hit() {
			t.Fatalf("pellet %d penetrated concrete", i)
		}
		if ray.End.X > 201 {
			t.Fatalf("pellet %d terminated beyond the wall face: %+v", i, ray.End)
		}
	}
}

func TestPistolBudgetExhaustsInWood(t *testing.T) {
	// Three wood layers; a 35 damage round affords two full 15 taxes and a
	// 5 point remainder on the third.
	walls := wallsFrom(t,
		arena.WallDef{X: 200, Y: 100, Width: 8, Height: 80, Material: arena.MaterialWood},
		arena.WallDef{X: 220, Y: 100, Width: 8, Height: 80, Material: arena.MaterialWood},
		arena.WallDef{X: 240, Y: 100, Width: 8, Height: 80, Material: arena.MaterialWood},
	)
	engine := NewEngine(1)
	pistol := NewInstance(mustSpec(t, TypePistol))
	shooter := Target{ID: "p1", Team: "red", Pos: geom.Vec2{X: 160, Y: 140}}
	victim := Target{ID: "p2", Team: "blue", Pos: geom.Vec2{X: 260, Y: 140}}

	out := engine.Fire(pistol, shooter, geom.Vec2{X: 1, Y: 0}, 0, []Target{shooter, victim}, walls, time.Now())
	ray := out.Rays[0]
	if len(ray.WallEvents) != 3 {
		t.Fatalf("expected three wall damage events, got %d", len(ray.WallEvents))
	}
	damages := []int{15, 15, 5}
	for i, event := range ray.WallEvents {
		if got := arena.MaterialWood.MaxSliceHealth() - event.Health; got != damages[i] {
			t.Fatalf("layer %d took %d damage, want %d", i, got, damages[i])
		}
	}
	if ray.Hit() {
		t.Fatalf("spent ray must not reach the player")
	}
}

func TestDestroyedSliceIsSpace(t *testing.T) {
	walls := wallsFrom(t, arena.WallDef{X: 200, Y: 100, Width: 8, Height: 80, Material: arena.MaterialConcrete})
	wall, _ := walls.Wall("wall-1")
	slice := wall.SliceAt(geom.Vec2{X: 204, Y: 140})
	walls.ApplyDamage("wall-1", slice, 1<<20)

	engine := NewEngine(1)
	sniper := NewInstance(mustSpec(t, TypeSniper))
	shooter := Target{ID: "p1", Team: "red", Pos: geom.Vec2{X: 160, Y: 140}}
	victim := Target{ID: "p2", Team: "blue", Pos: geom.Vec2{X: 240, Y: 140}}

	out := engine.Fire(sniper, shooter, geom.Vec2{X: 1, Y: 0}, 0, []Target{shooter, victim}, walls, time.Now())
	ray := out.Rays[0]
	if !ray.Hit() {
		t.Fatalf("ray through a destroyed slice must reach the player")
	}
	if ray.Players[0].Damage != sniper.Spec.Damage {
		t.Fatalf("no damage reduction through destroyed slices, got %d", ray.Players[0].Damage)
	}
}

func TestAntiMaterialRiflePenetratesThreePlayers(t *testing.T) {
	walls := wallsFrom(t)
	engine := NewEngine(1)
	amr := NewInstance(mustSpec(t, TypeAntiMaterialRifle))
	shooter := Target{ID: "p1", Team: "red", Pos: geom.Vec2{X: 60, Y: 140}}
	line := []Target{
		shooter,
		{ID: "p2", Team: "blue", Pos: geom.Vec2{X: 120, Y: 140}},
		{ID: "p3", Team: "blue", Pos: geom.Vec2{X: 180, Y: 140}},
		{ID: "p4", Team: "blue", Pos: geom.Vec2{X: 240, Y: 140}},
		{ID: "p5", Team: "blue", Pos: geom.Vec2{X: 300, Y: 140}},
	}

	out := engine.Fire(amr, shooter, geom.Vec2{X: 1, Y: 0}, 0, line, walls, time.Now())
	ray := out.Rays[0]
	if len(ray.Players) != 3 {
		t.Fatalf("extended penetration caps at three players, got %d", len(ray.Players))
	}
	if ray.Players[0].PlayerID != "p2" || ray.Players[2].PlayerID != "p4" {
		t.Fatalf("hits out of distance order: %+v", ray.Players)
	}
}

func TestFireGating(t *testing.T) {
	walls := wallsFrom(t)
	engine := NewEngine(1)
	rifle := NewInstance(mustSpec(t, TypeRifle))
	shooter := Target{ID: "p1", Team: "red", Pos: geom.Vec2{X: 60, Y: 140}}
	now := time.Now()

	if out := engine.Fire(rifle, shooter, geom.Vec2{X: 1}, 0, nil, walls, now); !out.Accepted {
		t.Fatalf("first shot should pass: %s", out.Reason)
	}
	if out := engine.Fire(rifle, shooter, geom.Vec2{X: 1}, 0, nil, walls, now.Add(10*time.Millisecond)); out.Reason != RejectRateLimited {
		t.Fatalf("want rate limit, got %q", out.Reason)
	}
	if out := engine.Fire(rifle, shooter, geom.Vec2{X: 1}, 0, nil, walls, now.Add(rifle.Spec.MinInterval())); !out.Accepted {
		t.Fatalf("shot at the interval boundary should pass: %s", out.Reason)
	}

	rifle.AmmoInMagazine = 0
	if out := engine.Fire(rifle, shooter, geom.Vec2{X: 1}, 0, nil, walls, now.Add(time.Second)); out.Reason != RejectNoAmmo {
		t.Fatalf("want no_ammo, got %q", out.Reason)
	}

	rifle.AmmoInMagazine = 5
	rifle.StartReload(now.Add(time.Second))
	if out := engine.Fire(rifle, shooter, geom.Vec2{X: 1}, 0, nil, walls, now.Add(time.Second+time.Millisecond)); out.Reason != RejectReloading {
		t.Fatalf("want reloading, got %q", out.Reason)
	}
}

func TestMachineGunOverheats(t *testing.T) {
	walls := wallsFrom(t)
	engine := NewEngine(1)
	mg := NewInstance(mustSpec(t, TypeMachineGun))
	shooter := Target{ID: "p1", Team: "red", Pos: geom.Vec2{X: 60, Y: 140}}
	now := time.Now()

	shots := 0
	overheatedAt := -1
	for i := 0; i < 20; i++ {
		now = now.Add(mg.Spec.MinInterval())
		out := engine.Fire(mg, shooter, geom.Vec2{X: 1}, 0, nil, walls, now)
		if out.Reason == RejectOverheated {
			break
		}
		if !out.Accepted {
			t.Fatalf("shot %d rejected: %s", i, out.Reason)
		}
		shots++
		if out.Overheated {
			overheatedAt = shots
			break
		}
	}
	// 8 heat per shot crosses 100 on the 13th.
	if overheatedAt != 13 {
		t.Fatalf("overheat after %d shots, want 13", overheatedAt)
	}
	if out := engine.Fire(mg, shooter, geom.Vec2{X: 1}, 0, nil, walls, now.Add(time.Second)); out.Reason != RejectOverheated {
		t.Fatalf("locked gun must reject fire, got %q", out.Reason)
	}
	if out := engine.Fire(mg, shooter, geom.Vec2{X: 1}, 0, nil, walls, now.Add(OverheatDuration+time.Millisecond)); !out.Accepted {
		t.Fatalf("lockout should expire after %s: %s", OverheatDuration, out.Reason)
	}
}

func TestHeatCoolsWhileIdle(t *testing.T) {
	mg := NewInstance(mustSpec(t, TypeMachineGun))
	now := time.Now()
	mg.Heat = 50
	mg.LastFire = now.Add(-time.Second)

	mg.Update(now, 1.0)
	if mg.Heat != 25 {
		t.Fatalf("one idle second should shed 25 heat, got %f", mg.Heat)
	}
	mg.Update(now, 2.0)
	if mg.Heat != 0 {
		t.Fatalf("heat must clamp at zero, got %f", mg.Heat)
	}
}

func TestReloadLifecycle(t *testing.T) {
	rifle := NewInstance(mustSpec(t, TypeRifle))
	now := time.Now()

	if rifle.StartReload(now) {
		t.Fatalf("full magazine reload must be a no-op")
	}
	rifle.AmmoInMagazine = 3
	if !rifle.StartReload(now) {
		t.Fatalf("partial magazine should reload")
	}
	if rifle.StartReload(now.Add(time.Millisecond)) {
		t.Fatalf("reload while reloading must be a no-op")
	}
	if out := rifle.Update(now.Add(rifle.Spec.Reload/2), 1.0/60); out.ReloadCompleted {
		t.Fatalf("reload finished early")
	}
	out := rifle.Update(now.Add(rifle.Spec.Reload), 1.0/60)
	if !out.ReloadCompleted {
		t.Fatalf("reload should complete at its deadline")
	}
	if rifle.AmmoInMagazine != rifle.Spec.Magazine {
		t.Fatalf("full-mag reload, got %d", rifle.AmmoInMagazine)
	}
	if rifle.AmmoReserve != 90-(30-3) {
		t.Fatalf("reserve should shrink by the refill, got %d", rifle.AmmoReserve)
	}

	rifle.AmmoInMagazine = 0
	rifle.AmmoReserve = 0
	if rifle.StartReload(now.Add(time.Minute)) {
		t.Fatalf("empty reserve reload must be a no-op")
	}
}

func TestThrownChargeScalesSpeed(t *testing.T) {
	walls := wallsFrom(t)
	engine := NewEngine(1)
	frag := NewInstance(mustSpec(t, TypeFrag))
	shooter := Target{ID: "p1", Team: "red", Pos: geom.Vec2{X: 100, Y: 100}}
	now := time.Now()

	out := engine.Fire(frag, shooter, geom.Vec2{X: 1, Y: 0}, 3, nil, walls, now)
	if out.Projectile == nil {
		t.Fatalf("thrown weapon must spawn a projectile")
	}
	p := out.Projectile
	if got := p.Vel.Length(); got != 2+3*6 {
		t.Fatalf("charge 3 speed = base + 3*perLevel = 20, got %f", got)
	}
	if p.Kind != physics.KindFrag {
		t.Fatalf("wrong projectile kind %q", p.Kind)
	}
	if !p.FuseDeadline.Equal(now.Add(3 * time.Second)) {
		t.Fatalf("frag fuse must be 3 s, got %v", p.FuseDeadline.Sub(now))
	}
	if p.ExplodeOnImpact {
		t.Fatalf("frags bounce, they do not impact-detonate")
	}

	rocket := NewInstance(mustSpec(t, TypeRocketLauncher))
	out = engine.Fire(rocket, shooter, geom.Vec2{X: 1, Y: 0}, 0, nil, walls, now)
	if out.Projectile == nil || !out.Projectile.ExplodeOnImpact {
		t.Fatalf("rocket must impact-detonate")
	}
	if out.Projectile.Kind != physics.KindRocket {
		t.Fatalf("wrong rocket kind %q", out.Projectile.Kind)
	}
}

func TestLoadoutValidation(t *testing.T) {
	if err := DefaultLoadout().Validate(); err != nil {
		t.Fatalf("default loadout invalid: %v", err)
	}
	cases := []struct {
		name    string
		loadout Loadout
		ok      bool
	}{
		{"rifle as secondary", Loadout{Primary: TypeRifle, Secondary: TypeRifle}, false},
		{"unknown weapon", Loadout{Primary: "railgun", Secondary: TypePistol}, false},
		{"support over budget", Loadout{Primary: TypeRifle, Secondary: TypePistol, Support: []Type{TypeRocketLauncher, TypeSmokeGrenade}}, false},
		{"support at budget", Loadout{Primary: TypeRifle, Secondary: TypePistol, Support: []Type{TypeRocketLauncher, TypeFrag}}, true},
		{"heavy support alone", Loadout{Primary: TypeShotgun, Secondary: TypeRevolver, Support: []Type{TypeAntiMaterialRifle}}, true},
		{"primary in support", Loadout{Primary: TypeRifle, Secondary: TypePistol, Support: []Type{TypeSMG}}, false},
	}
	for _, tc := range cases {
		err := tc.loadout.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected a validation error", tc.name)
		}
	}
}

func TestCatalogSanity(t *testing.T) {
	types := Types()
	if len(types) != 15 {
		t.Fatalf("catalog should list 15 weapons, got %d", len(types))
	}
	for _, typ := range types {
		spec, _ := Lookup(typ)
		if spec.Type != typ {
			t.Fatalf("catalog key %q disagrees with row type %q", typ, spec.Type)
		}
		if spec.SlotCost < 1 || spec.SlotCost > SupportBudget {
			t.Fatalf("%q: slot cost %d out of range", typ, spec.SlotCost)
		}
		if spec.Class == ClassHitscan && spec.PlayerPenetration < 1 {
			t.Fatalf("%q: hitscan needs a player penetration count", typ)
		}
		if spec.Class != ClassHitscan && spec.Pellets != 0 {
			t.Fatalf("%q: pellets only apply to hitscan", typ)
		}
	}
	if mustSpec(t, TypeRifle).MinInterval() != 100*time.Millisecond {
		t.Fatalf("600 rpm is a 100 ms interval")
	}
}

package weapons

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/geom"
	"breach/server/internal/physics"
)

const (
	// muzzleOffset pushes ray origins in front of the shooter so a ray can
	// never hit its own box.
	muzzleOffset = 8.0
	// hitscanRange exceeds the padded field diagonal; rays that reach it are
	// misses.
	hitscanRange = 600.0
	// softPenetrationTax is the damage a ray spends per intact soft slice it
	// passes through.
	softPenetrationTax = 15
)

// Target is a shootable player box as the simulation sees it this tick.
type Target struct {
	ID   string
	Team string
	Pos  geom.Vec2
}

func (t Target) box() geom.Rect {
	return geom.Rect{
		X:      t.Pos.X - physics.PlayerHalf,
		Y:      t.Pos.Y - physics.PlayerHalf,
		Width:  2 * physics.PlayerHalf,
		Height: 2 * physics.PlayerHalf,
	}
}

// PlayerHit is one ray's damage against one player.
type PlayerHit struct {
	PlayerID string
	Damage   int
}

// RayResult is the resolution of a single hitscan ray. Shotguns produce
// eight, everything else one.
type RayResult struct {
	PelletIndex int
	Origin      geom.Vec2
	End         geom.Vec2
	WallEvents  []arena.SliceEvent
	Players     []PlayerHit
}

// Hit reports whether the ray damaged at least one player.
func (r RayResult) Hit() bool { return len(r.Players) > 0 }

// FireResult is everything one fire request produced. A rejected request
// carries only the reason.
type FireResult struct {
	Accepted bool
	Reason   RejectReason

	Rays       []RayResult
	Projectile *physics.Projectile

	HeatAfter  float64
	Overheated bool
}

// Engine resolves fire requests. One engine serves one match; the seeded
// source keeps pellet spread reproducible in tests.
type Engine struct {
	rng    *rand.Rand
	nextID uint64
}

func NewEngine(seed int64) *Engine {
	return &Engine{rng: rand.New(rand.NewSource(seed))}
}

// Fire gates and resolves one fire request for the shooter's active weapon.
// Wall damage is applied to the wall set here; player damage is returned
// for the simulation's damage authority to apply.
func (e *Engine) Fire(w *Instance, shooter Target, aim geom.Vec2, chargeLevel int, targets []Target, walls *arena.WallSet, now time.Time) FireResult {
	if reason := w.fireReady(now); reason != RejectNone {
		return FireResult{Reason: reason}
	}
	aim = aim.Normalized()
	if aim == (geom.Vec2{}) {
		aim = geom.Vec2{X: 1}
	}

	overheated := w.consumeShot(now)
	result := FireResult{Accepted: true, HeatAfter: w.Heat, Overheated: overheated}

	switch w.Spec.Class {
	case ClassHitscan:
		origin := shooter.Pos.Add(aim.Scale(muzzleOffset))
		for pellet := 0; pellet < w.Spec.Rays(); pellet++ {
			angle := aim.Angle() + (e.rng.Float64()*2-1)*w.Spec.SpreadRad
			ray := e.castHitscan(origin, geom.FromAngle(angle), w.Spec, shooter.ID, targets, walls)
			ray.PelletIndex = pellet
			result.Rays = append(result.Rays, ray)
		}
	case ClassProjectile, ClassThrown:
		result.Projectile = e.spawnProjectile(w.Spec, shooter, aim, chargeLevel, now)
	}
	return result
}

type rayContact struct {
	t      float64
	point  geom.Vec2
	wall   *arena.Wall
	slice  int
	target *Target
}

// castHitscan walks one ray's contacts in distance order, spending its
// damage budget: hard slices stop it, soft slices tax it, destroyed slices
// are space, players absorb the remainder.
func (e *Engine) castHitscan(origin geom.Vec2, dir geom.Vec2, spec Spec, shooterID string, targets []Target, walls *arena.WallSet) RayResult {
	end := origin.Add(dir.Scale(hitscanRange))
	contacts := make([]rayContact, 0, 16)

	for _, wall := range walls.WallsAlongSegment(origin, end) {
		for i := 0; i < arena.SliceCount; i++ {
			if !wall.Intact(i) {
				continue
			}
			rect := wall.SliceRect(i)
			enter, _, ok := geom.SegmentRectSpan(origin, end, rect)
			if !ok {
				continue
			}
			contacts = append(contacts, rayContact{
				t:     enter,
				point: origin.Add(dir.Scale(enter * hitscanRange)),
				wall:  wall,
				slice: i,
			})
		}
	}
	for i := range targets {
		target := &targets[i]
		if target.ID == shooterID {
			continue
		}
		hit, ok := geom.SegmentRect(origin, end, target.box())
		if !ok {
			continue
		}
		contacts = append(contacts, rayContact{t: hit.T, point: hit.Point, target: target})
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].t < contacts[j].t })

	result := RayResult{Origin: origin, End: end}
	budget := spec.Damage
	playersLeft := spec.PlayerPenetration
	if playersLeft <= 0 {
		playersLeft = 1
	}

	for _, c := range contacts {
		if c.target != nil {
			result.Players = append(result.Players, PlayerHit{PlayerID: c.target.ID, Damage: budget})
			playersLeft--
			if playersLeft <= 0 {
				result.End = c.point
				return result
			}
			continue
		}
		// A slice destroyed by an earlier pellet of the same shot is space.
		if !c.wall.Intact(c.slice) {
			continue
		}
		if c.wall.Material.Hard() {
			result.End = c.point
			return result
		}
		damage := budget
		if damage > softPenetrationTax {
			damage = softPenetrationTax
		}
		_, _, events := walls.ApplyDamage(c.wall.ID, c.slice, damage)
		result.WallEvents = append(result.WallEvents, events...)
		budget -= softPenetrationTax
		if budget <= 0 {
			result.End = c.point
			return result
		}
	}
	return result
}

// spawnProjectile builds the projectile for launcher and thrown weapons.
// Speed scales with the throw charge: base + level × perLevel.
func (e *Engine) spawnProjectile(spec Spec, shooter Target, aim geom.Vec2, chargeLevel int, now time.Time) *physics.Projectile {
	if chargeLevel < 0 {
		chargeLevel = 0
	}
	if chargeLevel > 5 {
		chargeLevel = 5
	}
	speed := spec.BaseSpeed + float64(chargeLevel)*spec.SpeedPerCharge

	p := &physics.Projectile{
		ID:              fmt.Sprintf("proj-%d", e.nextProjectileID()),
		Kind:            projectileKind(spec.Type),
		Owner:           shooter.ID,
		OwnerTeam:       shooter.Team,
		Pos:             shooter.Pos.Add(aim.Scale(muzzleOffset)),
		Vel:             aim.Scale(speed),
		Radius:          physics.GrenadeRadius,
		CreatedAt:       now,
		ExplodeOnImpact: spec.ExplodeOnImpact,
		Damage:          spec.Damage,
		ExplosionRadius: spec.ExplosionRadius,
	}
	if spec.Fuse > 0 {
		p.FuseDeadline = now.Add(spec.Fuse)
	}
	return p
}

func (e *Engine) nextProjectileID() uint64 {
	e.nextID++
	return e.nextID
}

func projectileKind(t Type) physics.Kind {
	switch t {
	case TypeRocketLauncher:
		return physics.KindRocket
	case TypeGrenadeLauncher:
		return physics.KindShell
	case TypeSmokeGrenade:
		return physics.KindSmoke
	case TypeFlashbang:
		return physics.KindFlash
	default:
		return physics.KindFrag
	}
}

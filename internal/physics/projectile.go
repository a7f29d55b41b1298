package physics

import (
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/geom"
)

// Kind enumerates the thrown and launched projectile families.
type Kind string

const (
	KindFrag   Kind = "grenade"
	KindSmoke  Kind = "smoke"
	KindFlash  Kind = "flash"
	KindRocket Kind = "rocket"
	KindShell  Kind = "grenade-launcher-shell"
)

const (
	// Restitution scales reflected velocity on a grenade bounce.
	Restitution = 0.6
	// GrenadeRadius is the collision radius of thrown projectiles.
	GrenadeRadius = 2.0
	// wallRebounceCooldown debounces re-collisions with the same wall.
	wallRebounceCooldown = 100 * time.Millisecond
	// airFriction damps thrown projectiles per second of flight.
	airFriction = 0.3
)

// Out-of-bounds padding around the 480×270 field. Projectiles whose center
// leaves this box are silently destroyed.
const (
	BoundsMinX = -50.0
	BoundsMaxX = 530.0
	BoundsMinY = -50.0
	BoundsMaxY = 320.0
)

// Projectile is a simulated grenade, rocket or launcher shell owned by one
// lobby's match.
type Projectile struct {
	ID              string
	Kind            Kind
	Owner           string
	OwnerTeam       string
	Pos             geom.Vec2
	Vel             geom.Vec2
	Radius          float64
	CreatedAt       time.Time
	FuseDeadline    time.Time
	ExplodeOnImpact bool
	Damage          int
	ExplosionRadius float64

	wallCooldowns map[string]time.Time
}

// Outcome reports what a single physics step did to a projectile.
type Outcome struct {
	Exploded bool
	At       geom.Vec2 // detonation point when Exploded
	Removed  bool      // silently destroyed (out of bounds)
	Bounced  bool
}

// Step advances the projectile by dt. Impact detonation is resolved before
// any bounds check, so a rocket can never explode outside the padded field.
func Step(p *Projectile, dt float64, now time.Time, walls *arena.WallSet) Outcome {
	from := p.Pos
	to := from.Add(p.Vel.Scale(dt))

	if hit, wall, ok := firstWallHit(p, from, to, now, walls); ok {
		if p.ExplodeOnImpact {
			p.Pos = hit.Point
			return Outcome{Exploded: true, At: hit.Point}
		}
		// Reflect about the collision normal and rest on the surface plus
		// the projectile radius (the Minkowski expansion already includes
		// it; the nudge prevents an immediate re-test hit).
		p.Vel = geom.Reflect(p.Vel, hit.Normal).Scale(Restitution)
		p.Pos = hit.Point.Add(hit.Normal.Scale(0.01))
		if p.wallCooldowns == nil {
			p.wallCooldowns = make(map[string]time.Time, 4)
		}
		p.wallCooldowns[wall.ID] = now.Add(wallRebounceCooldown)
		if !p.FuseDeadline.IsZero() && !now.Before(p.FuseDeadline) {
			return Outcome{Exploded: true, At: p.Pos, Bounced: true}
		}
		return Outcome{Bounced: true}
	}

	p.Pos = to
	if p.Kind == KindFrag || p.Kind == KindSmoke || p.Kind == KindFlash {
		damping := 1 - airFriction*dt
		if damping < 0 {
			damping = 0
		}
		p.Vel = p.Vel.Scale(damping)
	}

	if !p.FuseDeadline.IsZero() && !now.Before(p.FuseDeadline) {
		return Outcome{Exploded: true, At: p.Pos}
	}

	if p.Pos.X < BoundsMinX || p.Pos.X > BoundsMaxX || p.Pos.Y < BoundsMinY || p.Pos.Y > BoundsMaxY {
		return Outcome{Removed: true}
	}
	return Outcome{}
}

// firstWallHit sweeps the projectile against every intact slice along its
// path and returns the nearest entry, skipping walls still on rebound
// cooldown.
func firstWallHit(p *Projectile, from, to geom.Vec2, now time.Time, walls *arena.WallSet) (geom.SegmentHit, *arena.Wall, bool) {
	var (
		best     geom.SegmentHit
		bestWall *arena.Wall
		found    bool
	)
	for _, wall := range walls.WallsAlongSegment(from, to) {
		if deadline, cooling := p.wallCooldowns[wall.ID]; cooling && now.Before(deadline) {
			continue
		}
		for i := 0; i < arena.SliceCount; i++ {
			if !wall.Intact(i) {
				continue
			}
			rect := wall.SliceRect(i).Expand(p.Radius, p.Radius)
			hit, ok := geom.SegmentRect(from, to, rect)
			if !ok {
				continue
			}
			if !found || hit.T < best.T {
				best = hit
				bestWall = wall
				found = true
			}
		}
	}
	return best, bestWall, found
}

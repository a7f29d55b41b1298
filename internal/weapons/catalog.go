// Package weapons holds the weapon catalog and the fire resolution engine:
// rate gating, hitscan rays with wall penetration, machine-gun heat, reload
// timers and projectile spawning.
package weapons

import (
	"fmt"
	"sort"
	"time"
)

// Type identifies a catalog weapon.
type Type string

const (
	TypeRifle             Type = "rifle"
	TypeSMG               Type = "smg"
	TypeShotgun           Type = "shotgun"
	TypeBattleRifle       Type = "battle-rifle"
	TypeSniper            Type = "sniper"
	TypePistol            Type = "pistol"
	TypeRevolver          Type = "revolver"
	TypeSuppressedPistol  Type = "suppressed-pistol"
	TypeGrenadeLauncher   Type = "grenade-launcher"
	TypeMachineGun        Type = "machine-gun"
	TypeAntiMaterialRifle Type = "anti-material-rifle"
	TypeRocketLauncher    Type = "rocket-launcher"
	TypeFrag              Type = "grenade"
	TypeSmokeGrenade      Type = "smoke-grenade"
	TypeFlashbang         Type = "flashbang"
)

// Class separates resolution paths: hitscan rays, launched projectiles and
// thrown grenades.
type Class string

const (
	ClassHitscan    Class = "hitscan"
	ClassProjectile Class = "projectile"
	ClassThrown     Class = "thrown"
)

// Slot is the loadout position a weapon occupies.
type Slot string

const (
	SlotPrimary   Slot = "primary"
	SlotSecondary Slot = "secondary"
	SlotSupport   Slot = "support"
)

// SupportBudget is the total slot cost the support pool can carry.
const SupportBudget = 3

// Spec is one catalog row. The same struct feeds the schema generator so
// designer tooling can validate tuning files against it.
type Spec struct {
	Type  Type  `json:"type" jsonschema:"title=Weapon type,pattern=^[a-z0-9\\-]+$"`
	Class Class `json:"class" jsonschema:"title=Resolution class,enum=hitscan,enum=projectile,enum=thrown"`
	Slot  Slot  `json:"slot" jsonschema:"enum=primary,enum=secondary,enum=support"`
	// SlotCost counts against the support budget; primary and secondary
	// weapons always cost their whole slot.
	SlotCost int `json:"slotCost" jsonschema:"minimum=1,maximum=3"`

	Damage   int           `json:"damage" jsonschema:"minimum=0"`
	RPM      int           `json:"rpm,omitempty" jsonschema:"description=Rounds per minute; 0 means uncapped"`
	Magazine int           `json:"magazine,omitempty"`
	Reserve  int           `json:"reserve,omitempty"`
	Reload   time.Duration `json:"reload,omitempty" jsonschema:"description=Full-magazine reload time in nanoseconds"`

	// Hitscan tuning.
	SpreadRad         float64 `json:"spreadRad,omitempty" jsonschema:"description=Half angle of the spread cone in radians"`
	Pellets           int     `json:"pellets,omitempty" jsonschema:"description=Independent rays per shot; 0 means 1"`
	PlayerPenetration int     `json:"playerPenetration,omitempty" jsonschema:"description=Players a single ray may damage before terminating"`

	// Machine-gun heat.
	HeatPerShot float64 `json:"heatPerShot,omitempty"`
	HeatCooling float64 `json:"heatCooling,omitempty" jsonschema:"description=Heat shed per second while not firing"`

	// Projectile tuning.
	ExplodeOnImpact bool          `json:"explodeOnImpact,omitempty"`
	Fuse            time.Duration `json:"fuse,omitempty"`
	ExplosionRadius float64       `json:"explosionRadius,omitempty"`
	BaseSpeed       float64       `json:"baseSpeed,omitempty"`
	SpeedPerCharge  float64       `json:"speedPerCharge,omitempty"`
	CloudDuration   time.Duration `json:"cloudDuration,omitempty" jsonschema:"description=Smoke cloud lifetime"`
	CloudRadius     float64       `json:"cloudRadius,omitempty"`
	EffectDuration  time.Duration `json:"effectDuration,omitempty" jsonschema:"description=Maximum flashbang impairment"`
}

// MinInterval is the fire-rate gate: 60 000 / rpm in milliseconds.
func (s Spec) MinInterval() time.Duration {
	if s.RPM <= 0 {
		return 0
	}
	return time.Minute / time.Duration(s.RPM)
}

// Rays is the number of independent hitscan rays one shot produces.
func (s Spec) Rays() int {
	if s.Pellets > 0 {
		return s.Pellets
	}
	return 1
}

var catalog = map[Type]Spec{
	TypeRifle: {
		Type: TypeRifle, Class: ClassHitscan, Slot: SlotPrimary, SlotCost: 1,
		Damage: 25, RPM: 600, Magazine: 30, Reserve: 90, Reload: 2 * time.Second,
		SpreadRad: 0.018, PlayerPenetration: 1,
	},
	TypeSMG: {
		Type: TypeSMG, Class: ClassHitscan, Slot: SlotPrimary, SlotCost: 1,
		Damage: 18, RPM: 900, Magazine: 32, Reserve: 96, Reload: 1800 * time.Millisecond,
		SpreadRad: 0.035, PlayerPenetration: 1,
	},
	TypeShotgun: {
		Type: TypeShotgun, Class: ClassHitscan, Slot: SlotPrimary, SlotCost: 1,
		Damage: 12, RPM: 75, Magazine: 6, Reserve: 24, Reload: 2600 * time.Millisecond,
		SpreadRad: 0.1, Pellets: 8, PlayerPenetration: 1,
	},
	TypeBattleRifle: {
		Type: TypeBattleRifle, Class: ClassHitscan, Slot: SlotPrimary, SlotCost: 1,
		Damage: 45, RPM: 240, Magazine: 20, Reserve: 60, Reload: 2200 * time.Millisecond,
		SpreadRad: 0.012, PlayerPenetration: 1,
	},
	TypeSniper: {
		Type: TypeSniper, Class: ClassHitscan, Slot: SlotPrimary, SlotCost: 1,
		Damage: 90, RPM: 45, Magazine: 5, Reserve: 15, Reload: 3 * time.Second,
		SpreadRad: 0.004, PlayerPenetration: 1,
	},
	TypePistol: {
		Type: TypePistol, Class: ClassHitscan, Slot: SlotSecondary, SlotCost: 1,
		Damage: 35, RPM: 300, Magazine: 12, Reserve: 48, Reload: 1500 * time.Millisecond,
		SpreadRad: 0.02, PlayerPenetration: 1,
	},
	TypeRevolver: {
		Type: TypeRevolver, Class: ClassHitscan, Slot: SlotSecondary, SlotCost: 1,
		Damage: 55, RPM: 150, Magazine: 6, Reserve: 24, Reload: 2200 * time.Millisecond,
		SpreadRad: 0.015, PlayerPenetration: 1,
	},
	TypeSuppressedPistol: {
		Type: TypeSuppressedPistol, Class: ClassHitscan, Slot: SlotSecondary, SlotCost: 1,
		Damage: 28, RPM: 330, Magazine: 12, Reserve: 48, Reload: 1500 * time.Millisecond,
		SpreadRad: 0.022, PlayerPenetration: 1,
	},
	TypeGrenadeLauncher: {
		Type: TypeGrenadeLauncher, Class: ClassProjectile, Slot: SlotSupport, SlotCost: 2,
		Damage: 70, RPM: 60, Magazine: 4, Reserve: 8, Reload: 2800 * time.Millisecond,
		ExplodeOnImpact: true, ExplosionRadius: 48, BaseSpeed: 160, SpeedPerCharge: 20,
	},
	TypeMachineGun: {
		Type: TypeMachineGun, Class: ClassHitscan, Slot: SlotSupport, SlotCost: 3,
		Damage: 20, RPM: 720, Magazine: 100, Reserve: 200, Reload: 5 * time.Second,
		SpreadRad: 0.04, PlayerPenetration: 1,
		HeatPerShot: 8, HeatCooling: 25,
	},
	TypeAntiMaterialRifle: {
		Type: TypeAntiMaterialRifle, Class: ClassHitscan, Slot: SlotSupport, SlotCost: 3,
		Damage: 120, RPM: 30, Magazine: 5, Reserve: 10, Reload: 3500 * time.Millisecond,
		SpreadRad: 0.002, PlayerPenetration: 3,
	},
	TypeRocketLauncher: {
		Type: TypeRocketLauncher, Class: ClassProjectile, Slot: SlotSupport, SlotCost: 2,
		Damage: 100, RPM: 30, Magazine: 1, Reserve: 3, Reload: 3500 * time.Millisecond,
		ExplodeOnImpact: true, Fuse: 3 * time.Second, ExplosionRadius: 64,
		BaseSpeed: 220, SpeedPerCharge: 20,
	},
	TypeFrag: {
		Type: TypeFrag, Class: ClassThrown, Slot: SlotSupport, SlotCost: 1,
		Damage: 80, RPM: 60, Magazine: 1, Reserve: 2, Reload: time.Second,
		Fuse: 3 * time.Second, ExplosionRadius: 56, BaseSpeed: 2, SpeedPerCharge: 6,
	},
	TypeSmokeGrenade: {
		Type: TypeSmokeGrenade, Class: ClassThrown, Slot: SlotSupport, SlotCost: 2,
		RPM: 60, Magazine: 1, Reserve: 1, Reload: time.Second,
		Fuse: 2 * time.Second, BaseSpeed: 2, SpeedPerCharge: 6,
		CloudDuration: 15 * time.Second, CloudRadius: 40,
	},
	TypeFlashbang: {
		Type: TypeFlashbang, Class: ClassThrown, Slot: SlotSupport, SlotCost: 2,
		RPM: 60, Magazine: 1, Reserve: 1, Reload: time.Second,
		Fuse: 1500 * time.Millisecond, BaseSpeed: 2, SpeedPerCharge: 6,
		EffectDuration: 4 * time.Second,
	},
}

// Lookup returns the catalog row for a weapon type.
func Lookup(t Type) (Spec, bool) {
	spec, ok := catalog[t]
	return spec, ok
}

// Types returns every catalog weapon type in stable order.
func Types() []Type {
	out := make([]Type, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Loadout is a player's chosen weapon set.
type Loadout struct {
	Primary   Type   `json:"primary"`
	Secondary Type   `json:"secondary"`
	Support   []Type `json:"support,omitempty"`
}

// DefaultLoadout is assigned when a join request carries no loadout.
func DefaultLoadout() Loadout {
	return Loadout{Primary: TypeRifle, Secondary: TypePistol, Support: []Type{TypeFrag, TypeSmokeGrenade}}
}

// Validate checks slot placement and the support cost budget.
func (l Loadout) Validate() error {
	check := func(t Type, want Slot) error {
		spec, ok := Lookup(t)
		if !ok {
			return fmt.Errorf("unknown weapon %q", t)
		}
		if spec.Slot != want {
			return fmt.Errorf("weapon %q cannot fill the %s slot", t, want)
		}
		return nil
	}
	if err := check(l.Primary, SlotPrimary); err != nil {
		return err
	}
	if err := check(l.Secondary, SlotSecondary); err != nil {
		return err
	}
	cost := 0
	for _, t := range l.Support {
		spec, ok := Lookup(t)
		if !ok {
			return fmt.Errorf("unknown weapon %q", t)
		}
		if spec.Slot != SlotSupport {
			return fmt.Errorf("weapon %q cannot fill a support slot", t)
		}
		cost += spec.SlotCost
	}
	if cost > SupportBudget {
		return fmt.Errorf("support loadout costs %d, budget is %d", cost, SupportBudget)
	}
	return nil
}

// All lists every weapon in the loadout, primary first.
func (l Loadout) All() []Type {
	out := make([]Type, 0, 2+len(l.Support))
	out = append(out, l.Primary, l.Secondary)
	out = append(out, l.Support...)
	return out
}

// Contains reports whether the loadout includes the weapon type.
func (l Loadout) Contains(t Type) bool {
	for _, w := range l.All() {
		if w == t {
			return true
		}
	}
	return false
}

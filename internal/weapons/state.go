package weapons

import "time"

// OverheatDuration locks a machine gun after its heat crosses the threshold.
const OverheatDuration = 3 * time.Second

// OverheatThreshold is the heat value that triggers the lockout.
const OverheatThreshold = 100.0

// heatCoolDelay: heat only sheds once the trigger has been released for a
// beat, so holding the trigger never cools mid-burst.
const heatCoolDelay = 250 * time.Millisecond

// RejectReason explains a refused fire request. Refusals are silent on the
// wire; the reason only feeds logs and tests.
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectRateLimited RejectReason = "rate_limited"
	RejectNoAmmo      RejectReason = "no_ammo"
	RejectReloading   RejectReason = "reloading"
	RejectOverheated  RejectReason = "overheated"
)

// Instance is one player's runtime state for one weapon.
type Instance struct {
	Spec           Spec
	AmmoInMagazine int
	AmmoReserve    int

	Reloading bool
	ReloadEnd time.Time

	LastFire time.Time

	// Machine-gun only.
	Heat            float64
	OverheatedUntil time.Time
}

// NewInstance builds a full instance for the catalog weapon.
func NewInstance(spec Spec) *Instance {
	return &Instance{
		Spec:           spec,
		AmmoInMagazine: spec.Magazine,
		AmmoReserve:    spec.Reserve,
	}
}

// fireReady applies the acceptance gate. A zero return means the shot may
// proceed.
func (w *Instance) fireReady(now time.Time) RejectReason {
	if w.Reloading {
		return RejectReloading
	}
	if now.Before(w.OverheatedUntil) {
		return RejectOverheated
	}
	if w.Spec.Magazine > 0 && w.AmmoInMagazine <= 0 {
		return RejectNoAmmo
	}
	if interval := w.Spec.MinInterval(); interval > 0 && !w.LastFire.IsZero() && now.Sub(w.LastFire) < interval {
		return RejectRateLimited
	}
	return RejectNone
}

// consumeShot commits an accepted shot: ammo, fire time and heat.
func (w *Instance) consumeShot(now time.Time) (overheated bool) {
	w.LastFire = now
	if w.Spec.Magazine > 0 {
		w.AmmoInMagazine--
	}
	if w.Spec.HeatPerShot > 0 {
		w.Heat += w.Spec.HeatPerShot
		if w.Heat >= OverheatThreshold {
			w.Heat = OverheatThreshold
			w.OverheatedUntil = now.Add(OverheatDuration)
			overheated = true
		}
	}
	return overheated
}

// StartReload begins a reload if one is possible. Reloading while already
// reloading, with a full magazine, or with an empty reserve is a no-op.
func (w *Instance) StartReload(now time.Time) bool {
	if w.Reloading || w.Spec.Magazine == 0 {
		return false
	}
	if w.AmmoInMagazine >= w.Spec.Magazine || w.AmmoReserve <= 0 {
		return false
	}
	w.Reloading = true
	w.ReloadEnd = now.Add(w.Spec.Reload)
	return true
}

// TickResult reports timer completions observed by Update.
type TickResult struct {
	ReloadCompleted bool
}

// Update advances reload and heat timers by one physics tick.
func (w *Instance) Update(now time.Time, dt float64) TickResult {
	var out TickResult
	if w.Reloading && !now.Before(w.ReloadEnd) {
		need := w.Spec.Magazine - w.AmmoInMagazine
		if need > w.AmmoReserve {
			need = w.AmmoReserve
		}
		w.AmmoInMagazine += need
		w.AmmoReserve -= need
		w.Reloading = false
		out.ReloadCompleted = true
	}
	if w.Spec.HeatCooling > 0 && w.Heat > 0 && now.Sub(w.LastFire) >= heatCoolDelay {
		w.Heat -= w.Spec.HeatCooling * dt
		if w.Heat < 0 {
			w.Heat = 0
		}
	}
	return out
}

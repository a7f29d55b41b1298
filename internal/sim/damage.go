package sim

import (
	"time"

	"breach/server/internal/geom"
	"breach/server/internal/weapons"
)

// armorSoakNumerator / armorSoakDenominator: armor absorbs two thirds of
// incoming damage until it runs out.
const (
	armorSoakNumerator   = 2
	armorSoakDenominator = 3
)

// applyDamage is the single damage authority. Every code path that hurts a
// player goes through here; it is the only site that mutates health,
// kills, deaths and team score.
func (m *Match) applyDamage(victim, attacker *Player, weapon weapons.Type, damage int, damageType string, now time.Time) {
	if victim == nil || !victim.Alive || damage <= 0 {
		return
	}
	if victim.Invulnerable(now) {
		return
	}

	soak := damage * armorSoakNumerator / armorSoakDenominator
	if soak > victim.Armor {
		soak = victim.Armor
	}
	victim.Armor -= soak
	victim.Health -= damage - soak
	if victim.Health > 0 {
		return
	}

	victim.Health = 0
	victim.Alive = false
	victim.Deaths++
	victim.Vel = geom.Vec2{}
	victim.RespawnDeadline = now.Add(RespawnCooldown)
	m.fov.Drop(victim.ID)

	isTeamKill := attacker != nil && attacker.ID != victim.ID && attacker.Team == victim.Team
	isSelfKill := attacker != nil && attacker.ID == victim.ID
	if attacker != nil && !isTeamKill && !isSelfKill {
		attacker.Kills++
		m.teamKills[attacker.Team]++
	}

	payload := PlayerDiedPayload{
		PlayerID:   victim.ID,
		VictimTeam: victim.Team,
		WeaponType: weapon,
		IsTeamKill: isTeamKill,
		Position:   victim.Pos,
		DamageType: damageType,
		Timestamp:  now.UnixMilli(),
	}
	if attacker != nil {
		payload.KillerID = attacker.ID
		payload.KillerTeam = attacker.Team
	}
	m.emit(EventPlayerDied, payload)
}

package arena

// Material determines how a wall reacts to bullets. Hard materials stop
// hitscan rays outright and shrug off small-arms fire; soft materials absorb
// a fixed damage tax per penetrated slice.
type Material string

const (
	MaterialConcrete Material = "concrete"
	MaterialWood     Material = "wood"
	MaterialGlass    Material = "glass"
	MaterialMetal    Material = "metal"
)

// Hard reports whether hitscan rays stop on an intact slice of this
// material instead of penetrating.
func (m Material) Hard() bool {
	return m == MaterialConcrete || m == MaterialMetal
}

// BulletVulnerable reports whether small-arms fire chips slice health.
// Explosions damage every material regardless.
func (m Material) BulletVulnerable() bool {
	return !m.Hard()
}

// MaxSliceHealth returns the per-slice starting health for the material.
func (m Material) MaxSliceHealth() int {
	switch m {
	case MaterialGlass:
		return 30
	case MaterialWood:
		return 90
	case MaterialConcrete:
		return 240
	case MaterialMetal:
		return 300
	default:
		return 240
	}
}

// Valid reports whether the material is one of the known kinds.
func (m Material) Valid() bool {
	switch m {
	case MaterialConcrete, MaterialWood, MaterialGlass, MaterialMetal:
		return true
	}
	return false
}

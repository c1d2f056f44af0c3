package stats

const (
	baseHealthFlat        = 50.0
	vitalityHealthScalar  = 12.0
	strengthHealthScalar  = 2.0
	baseDamageFlat        = 5.0
	strengthDamageScalar  = 1.6
	agilityDamageScalar   = 0.4
	baseAttackCooldownMs  = 3200.0
	agilityCooldownScalar = 8.0
	minAttackCooldownMs   = 900.0
	powerBodyScalar       = 1.2
	powerMindScalar       = 0.8
	powerLuckScalar       = 0.5
)

// ComputeDerived resolves the combat stats for one attribute set. The
// function is pure; every combatant's derived block is recomputed from its
// varied base attributes exactly once at creation.
func ComputeDerived(base ValueSet) DerivedSet {
	var derived DerivedSet

	strength := clamp(base[StatStrength], 0, 1e9)
	agility := clamp(base[StatAgility], 0, 1e9)
	intelligence := clamp(base[StatIntelligence], 0, 1e9)
	vitality := clamp(base[StatVitality], 0, 1e9)
	luck := clamp(base[StatLuck], 0, 1e9)

	derived[DerivedMaxHealth] = baseHealthFlat + vitality*vitalityHealthScalar + strength*strengthHealthScalar
	derived[DerivedAttackDamage] = baseDamageFlat + strength*strengthDamageScalar + agility*agilityDamageScalar
	derived[DerivedAttackCooldownMs] = clamp(baseAttackCooldownMs-agility*agilityCooldownScalar, minAttackCooldownMs, baseAttackCooldownMs)
	derived[DerivedEffectivePower] = (strength+agility)*powerBodyScalar + intelligence*powerMindScalar + vitality + luck*powerLuckScalar

	return derived
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

package stats

import (
	"math"
	"testing"
)

func TestComputeDerivedScalesWithAttributes(t *testing.T) {
	weak := ComputeDerived(Baseline(RankE))
	strong := ComputeDerived(Baseline(RankS))

	if weak[DerivedMaxHealth] >= strong[DerivedMaxHealth] {
		t.Fatalf("expected S-rank max health above E-rank: %.1f vs %.1f", strong[DerivedMaxHealth], weak[DerivedMaxHealth])
	}
	if weak[DerivedAttackDamage] >= strong[DerivedAttackDamage] {
		t.Fatalf("expected S-rank damage above E-rank: %.1f vs %.1f", strong[DerivedAttackDamage], weak[DerivedAttackDamage])
	}
	if strong[DerivedAttackCooldownMs] >= weak[DerivedAttackCooldownMs] {
		t.Fatalf("expected S-rank cooldown below E-rank: %.1f vs %.1f", strong[DerivedAttackCooldownMs], weak[DerivedAttackCooldownMs])
	}
}

func TestComputeDerivedCooldownFloor(t *testing.T) {
	base := ValueSet{}
	base[StatAgility] = 10000
	derived := ComputeDerived(base)
	if derived[DerivedAttackCooldownMs] != minAttackCooldownMs {
		t.Fatalf("expected cooldown clamped to %.0fms, got %.1f", minAttackCooldownMs, derived[DerivedAttackCooldownMs])
	}
}

func TestComputeDerivedNegativeAttributesClamped(t *testing.T) {
	base := ValueSet{}
	for i := range base {
		base[i] = -50
	}
	derived := ComputeDerived(base)
	if derived[DerivedMaxHealth] != baseHealthFlat {
		t.Fatalf("expected flat max health %.0f for zeroed attributes, got %.1f", baseHealthFlat, derived[DerivedMaxHealth])
	}
	if derived[DerivedEffectivePower] != 0 {
		t.Fatalf("expected zero effective power, got %.1f", derived[DerivedEffectivePower])
	}
}

func TestRankRoundTrip(t *testing.T) {
	for r := Rank(0); r < RankCount; r++ {
		parsed, ok := ParseRank(r.String())
		if !ok || parsed != r {
			t.Fatalf("rank %q failed to round-trip: got %v ok=%v", r, parsed, ok)
		}
	}
	if _, ok := ParseRank("Z"); ok {
		t.Fatal("expected unknown rank name to fail parsing")
	}
}

func TestRankBaselinesMonotonic(t *testing.T) {
	for r := Rank(1); r < RankCount; r++ {
		lower := Baseline(r - 1)
		higher := Baseline(r)
		for stat := StatID(0); stat < StatCount; stat++ {
			if higher[stat] <= lower[stat] {
				t.Fatalf("baseline %v for rank %v not above rank %v", stat, r, r-1)
			}
		}
	}
}

func TestBehaviorProfileModifiers(t *testing.T) {
	cases := []struct {
		profile  BehaviorProfile
		damage   float64
		cooldown float64
	}{
		{ProfileBalanced, 1.0, 1.0},
		{ProfileAggressive, 1.3, 0.8},
		{ProfileTactical, 0.85, 1.15},
	}
	for _, tc := range cases {
		if got := tc.profile.DamageMultiplier(); math.Abs(got-tc.damage) > 1e-9 {
			t.Fatalf("%v damage multiplier: expected %.2f, got %.2f", tc.profile, tc.damage, got)
		}
		if got := tc.profile.CooldownMultiplier(); math.Abs(got-tc.cooldown) > 1e-9 {
			t.Fatalf("%v cooldown multiplier: expected %.2f, got %.2f", tc.profile, tc.cooldown, got)
		}
	}
}

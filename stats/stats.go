package stats

import "strings"

// Rank orders combat tiers from weakest to Monarch-equivalent. The zero
// value is the lowest tier.
type Rank uint8

const (
	RankE Rank = iota
	RankD
	RankC
	RankB
	RankA
	RankS
	RankNational
	RankMonarch

	RankCount
)

var rankNames = [RankCount]string{"E", "D", "C", "B", "A", "S", "National", "Monarch"}

func (r Rank) String() string {
	if r >= RankCount {
		return "unknown"
	}
	return rankNames[r]
}

// Index returns the ordinal position used by rank-difference math.
func (r Rank) Index() int {
	return int(r)
}

// ParseRank resolves a rank from its display name, case-insensitively.
func ParseRank(name string) (Rank, bool) {
	trimmed := strings.TrimSpace(name)
	for i := Rank(0); i < RankCount; i++ {
		if strings.EqualFold(rankNames[i], trimmed) {
			return i, true
		}
	}
	return RankE, false
}

// StatID enumerates the primary attributes carried by every combatant.
type StatID uint8

const (
	StatStrength StatID = iota
	StatAgility
	StatIntelligence
	StatVitality
	StatLuck

	StatCount
)

// ValueSet stores a fixed vector of attribute values.
type ValueSet [StatCount]float64

// Total sums every attribute in the set.
func (v ValueSet) Total() float64 {
	total := 0.0
	for _, value := range v {
		total += value
	}
	return total
}

// DerivedID enumerates combat stats computed from the attribute totals.
type DerivedID uint8

const (
	DerivedMaxHealth DerivedID = iota
	DerivedAttackDamage
	DerivedAttackCooldownMs
	DerivedEffectivePower

	DerivedCount
)

// DerivedSet stores derived combat stat values.
type DerivedSet [DerivedCount]float64

// rankBaselines holds the attribute baseline per rank. Individual entities
// vary each attribute independently around these values at creation time.
var rankBaselines = [RankCount]ValueSet{
	RankE:        {10, 8, 6, 9, 5},
	RankD:        {18, 14, 10, 16, 8},
	RankC:        {30, 24, 18, 26, 12},
	RankB:        {52, 40, 30, 44, 20},
	RankA:        {90, 70, 52, 76, 34},
	RankS:        {160, 120, 90, 130, 60},
	RankNational: {280, 210, 160, 230, 105},
	RankMonarch:  {500, 380, 290, 410, 190},
}

// Baseline returns the attribute baseline for a rank. Callers receive a
// copy; mutating it never touches the table.
func Baseline(rank Rank) ValueSet {
	if rank >= RankCount {
		rank = RankCount - 1
	}
	return rankBaselines[rank]
}

// BehaviorProfile tunes how a friendly combatant trades damage for cadence.
type BehaviorProfile uint8

const (
	ProfileBalanced BehaviorProfile = iota
	ProfileAggressive
	ProfileTactical
)

func (p BehaviorProfile) String() string {
	switch p {
	case ProfileAggressive:
		return "aggressive"
	case ProfileTactical:
		return "tactical"
	default:
		return "balanced"
	}
}

// DamageMultiplier scales outgoing damage for the profile.
func (p BehaviorProfile) DamageMultiplier() float64 {
	switch p {
	case ProfileAggressive:
		return 1.3
	case ProfileTactical:
		return 0.85
	default:
		return 1.0
	}
}

// CooldownMultiplier scales the attack cooldown for the profile. Aggressive
// swings faster, tactical slower.
func (p BehaviorProfile) CooldownMultiplier() float64 {
	switch p {
	case ProfileAggressive:
		return 0.8
	case ProfileTactical:
		return 1.15
	default:
		return 1.0
	}
}

// UserStats carries the hunter attributes consumed by the extraction chance
// formula. Perception exists only on the user, not on spawned combatants.
type UserStats struct {
	Strength     float64 `json:"strength"`
	Agility      float64 `json:"agility"`
	Intelligence float64 `json:"intelligence"`
	Perception   float64 `json:"perception"`
	Vitality     float64 `json:"vitality"`
	Luck         float64 `json:"luck"`
}

// Total sums every user attribute.
func (u UserStats) Total() float64 {
	return u.Strength + u.Agility + u.Intelligence + u.Perception + u.Vitality + u.Luck
}

package dungeon

import "math/rand"

// randomFloat draws from the encounter RNG so replays with the same seed
// stay deterministic. Falls back to the global source if the encounter was
// built without one.
func (e *Encounter) randomFloat() float64 {
	if e != nil && e.rng != nil {
		return e.rng.Float64()
	}
	return rand.Float64()
}

// vary jitters a base value by ±pct, uniformly.
func (e *Encounter) vary(base, pct float64) float64 {
	if pct <= 0 {
		return base
	}
	return base * (1 + (e.randomFloat()*2-1)*pct)
}

// rollChance returns true with probability p.
func (e *Encounter) rollChance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return e.randomFloat() < p
}

// randomIndex picks a uniform index below n.
func (e *Encounter) randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	if e != nil && e.rng != nil {
		return e.rng.Intn(n)
	}
	return rand.Intn(n)
}

package dungeon

import (
	"math"
	"time"
)

// runPopulationTick grows the hostile population toward the target band.
// Spawning freezes outside the Active state, so the boss grace window
// never gains new hostiles.
func (e *Encounter) runPopulationTick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateActive {
		return
	}
	if !e.participating {
		// Nothing is extracted while unobserved, so corpses never wait.
		e.pruneDefeatedLocked()
	}

	base := stepSpawnCount(e.cfg.Population, len(e.hostiles))
	count := int(math.Round(e.vary(float64(base), e.cfg.Population.VariancePct)))
	if count < 0 {
		count = 0
	}
	e.spawnHostilesLocked(now, count)
}

// stepSpawnCount picks the next batch size from the monotonically
// decreasing step curve. The tail stays positive, so the population keeps
// drifting gently instead of slamming into a hard cap.
func stepSpawnCount(cfg PopulationConfig, current int) int {
	for _, step := range cfg.Steps {
		if current < step.Below {
			return step.Spawn
		}
	}
	return cfg.TailSpawn
}

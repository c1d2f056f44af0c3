package dungeon

import (
	"testing"
	"time"

	"shadow-dungeon/engine/stats"
)

func TestStepSpawnCountFollowsCurve(t *testing.T) {
	cfg := DefaultConfig().Population
	cases := []struct {
		current int
		want    int
	}{
		{0, 400},
		{499, 400},
		{500, 240},
		{1199, 240},
		{1200, 120},
		{1999, 120},
		{2000, 60},
		{2499, 60},
		{2500, 16},
		{2999, 16},
		{3000, 1},
		{10000, 1},
	}
	for _, tc := range cases {
		if got := stepSpawnCount(cfg, tc.current); got != tc.want {
			t.Errorf("stepSpawnCount(%d) = %d, want %d", tc.current, got, tc.want)
		}
	}
}

func TestStepCurveMonotonicallyDecreases(t *testing.T) {
	cfg := DefaultConfig().Population
	prev := stepSpawnCount(cfg, 0)
	for size := 1; size <= cfg.BandHigh+100; size++ {
		next := stepSpawnCount(cfg, size)
		if next > prev {
			t.Fatalf("spawn rate rose from %d to %d at population %d", prev, next, size)
		}
		prev = next
	}
	if prev <= 0 {
		t.Fatalf("tail spawn must stay positive, got %d", prev)
	}
}

func TestSpawnBurstSeedsInitialPopulation(t *testing.T) {
	cfg := testConfig()
	e := newTestEncounter(t, cfg, Deps{Publisher: &eventRecorder{}}, stats.RankC, nil, true)

	wantBurst := int(float64(cfg.Population.BandLow) * cfg.Population.BurstFraction)
	if len(e.hostiles) != wantBurst {
		t.Fatalf("burst spawned %d hostiles, want %d", len(e.hostiles), wantBurst)
	}
	if e.boss == nil || !e.boss.Boss {
		t.Fatalf("every encounter needs its boss from the start")
	}
	if e.State() != StateActive {
		t.Fatalf("state = %v, want active after the burst", e.State())
	}

	e.mu.Lock()
	ok := e.populationInvariantLocked()
	e.mu.Unlock()
	if !ok {
		t.Fatalf("an active encounter must always hold at least one enemy")
	}
}

func TestPopulationGrowsIntoBand(t *testing.T) {
	cfg := testConfig()
	e := newTestEncounter(t, cfg, Deps{Publisher: &eventRecorder{}}, stats.RankC, nil, true)
	freezeCombat(e)

	now := time.Now()
	for i := 0; i < 40 && len(e.hostiles) < cfg.Population.BandLow; i++ {
		now = now.Add(time.Duration(cfg.Population.TickMs) * time.Millisecond)
		e.runPopulationTick(now)
	}
	if len(e.hostiles) < cfg.Population.BandLow {
		t.Fatalf("population %d never reached the band low %d", len(e.hostiles), cfg.Population.BandLow)
	}

	// Inside the band only the small tail of the curve applies.
	inBand := len(e.hostiles)
	e.runPopulationTick(now.Add(time.Duration(cfg.Population.TickMs) * time.Millisecond))
	growth := len(e.hostiles) - inBand
	if growth > stepSpawnCount(cfg.Population, inBand) {
		t.Fatalf("band growth %d exceeds the curve's rate", growth)
	}
}

func TestPopulationFreezesOutsideActiveState(t *testing.T) {
	e := newTestEncounter(t, testConfig(), Deps{Publisher: &eventRecorder{}}, stats.RankC, nil, true)
	freezeCombat(e)

	e.mu.Lock()
	e.state = StateBossGraceWindow
	e.mu.Unlock()

	before := len(e.hostiles)
	e.runPopulationTick(time.Now())
	if len(e.hostiles) != before {
		t.Fatalf("grace window must not spawn hostiles: %d -> %d", before, len(e.hostiles))
	}
}

func TestPopulationTickPrunesUnobservedCorpses(t *testing.T) {
	e := newTestEncounter(t, testConfig(), Deps{Publisher: &eventRecorder{}}, stats.RankC, nil, false)
	freezeCombat(e)

	e.hostiles[0].Health = 0
	alive := len(e.hostiles) - 1

	e.runPopulationTick(time.Now())

	for _, hostile := range e.hostiles {
		if !hostile.Alive() {
			t.Fatalf("dead hostile survived an unobserved population tick")
		}
	}
	if len(e.hostiles) < alive {
		t.Fatalf("live hostiles were pruned")
	}
}

package dungeon

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	loggingeconomy "shadow-dungeon/engine/logging/economy"
	"shadow-dungeon/engine/stats"
)

func TestResurrectionCostGrowsPerRank(t *testing.T) {
	cfg := DefaultConfig().Resurrection
	cases := []struct {
		rank stats.Rank
		want float64
	}{
		{stats.RankE, 10},
		{stats.RankD, 20},
		{stats.RankC, 40},
		{stats.RankA, 160},
		{stats.RankMonarch, 1280},
	}
	for _, tc := range cases {
		if got := ResurrectionCost(cfg, tc.rank); got != tc.want {
			t.Errorf("cost(%s) = %f, want %f", tc.rank, got, tc.want)
		}
	}
}

func TestResurrectionPrefersHighestRank(t *testing.T) {
	pool := &testManaPool{balance: 160}
	rec := &eventRecorder{}
	e := newTestEncounter(t, testConfig(), Deps{Publisher: rec, Mana: pool}, stats.RankC, nil, true)
	freezeCombat(e)

	now := time.Now()
	lowRank := addTestShadow(e, "c", stats.RankC, 1, 1000, time.Hour, now)
	highRank := addTestShadow(e, "a", stats.RankA, 1, 1000, time.Hour, now)
	lowRank.Health = 0
	highRank.Health = 0

	e.processResurrectionsLocked(now)

	if !highRank.Alive() {
		t.Fatalf("rank A shadow should be revived first")
	}
	if lowRank.Alive() {
		t.Fatalf("rank C shadow should stay down once the pool is drained")
	}
	if highRank.Health != highRank.MaxHealth {
		t.Fatalf("revived shadow must return at full health, got %f", highRank.Health)
	}
	if !highRank.lastAttackAt.Equal(now) {
		t.Fatalf("revived shadow must not carry a pre-death attack backlog")
	}

	snap := e.counters.Snapshot()
	if snap.Resurrections != 1 || snap.ResurrectionsDenied != 1 {
		t.Fatalf("counters: resurrections=%d denied=%d, want 1/1", snap.Resurrections, snap.ResurrectionsDenied)
	}
	if rec.countType(loggingeconomy.ResurrectionEventType) != 1 {
		t.Fatalf("expected one resurrection event")
	}
	if rec.countType(loggingeconomy.ResurrectionDeferredEventType) != 1 {
		t.Fatalf("expected one deferred event")
	}
}

func TestFallenShadowsRetryAcrossTicks(t *testing.T) {
	pool := &testManaPool{balance: 0}
	e := newTestEncounter(t, testConfig(), Deps{Publisher: &eventRecorder{}, Mana: pool}, stats.RankC, nil, true)
	freezeCombat(e)

	now := time.Now()
	shadow := addTestShadow(e, "d", stats.RankD, 1, 1000, time.Hour, now)
	shadow.Health = 0

	e.processResurrectionsLocked(now)
	if shadow.Alive() {
		t.Fatalf("no mana, no revival")
	}

	pool.set(25)
	e.processResurrectionsLocked(now.Add(time.Second))
	if !shadow.Alive() {
		t.Fatalf("shadow must revive on a later tick once mana recovers")
	}
}

func TestLowManaWarningOncePerDepletionEpisode(t *testing.T) {
	pool := &testManaPool{balance: 5}
	rec := &eventRecorder{}
	e := newTestEncounter(t, testConfig(), Deps{Publisher: rec, Mana: pool}, stats.RankC, nil, true)
	freezeCombat(e)

	now := time.Now()
	shadow := addTestShadow(e, "e", stats.RankE, 1, 1000, time.Hour, now)
	shadow.Health = 0

	e.processResurrectionsLocked(now)
	e.processResurrectionsLocked(now.Add(time.Second))
	if got := rec.countType(loggingeconomy.LowManaWarningEventType); got != 1 {
		t.Fatalf("one warning per depletion episode, got %d", got)
	}

	// Recovery above the cheapest cost ends the episode. A fresh
	// shortfall against a pricier shadow warns again.
	shadow.Rank = stats.RankMonarch
	pool.set(1000)
	e.processResurrectionsLocked(now.Add(2 * time.Second))
	if got := rec.countType(loggingeconomy.LowManaWarningEventType); got != 2 {
		t.Fatalf("new episode should warn again, got %d warnings", got)
	}
}

func TestManaPoolNeverOverdrawn(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := testConfig()
		initial := rapid.Float64Range(0, 2000).Draw(rt, "initial")
		pool := &testManaPool{balance: initial}
		e := newTestEncounter(t, cfg, Deps{Publisher: &eventRecorder{}, Mana: pool}, stats.RankC, nil, true)
		freezeCombat(e)

		now := time.Now()
		fallenCount := rapid.IntRange(1, 8).Draw(rt, "fallen")
		fallen := make([]*shadowCombatant, 0, fallenCount)
		for i := 0; i < fallenCount; i++ {
			rank := stats.Rank(rapid.IntRange(0, int(stats.RankCount)-1).Draw(rt, "rank"))
			shadow := addTestShadow(e, string(rune('a'+i)), rank, 1, 1000, time.Hour, now)
			shadow.Health = 0
			fallen = append(fallen, shadow)
		}

		e.processResurrectionsLocked(now)

		spent := 0.0
		for _, shadow := range fallen {
			if shadow.Alive() {
				spent += ResurrectionCost(cfg.Resurrection, shadow.Rank)
			}
		}
		remaining := pool.Read(nil)
		if remaining < 0 {
			rt.Fatalf("pool overdrawn: %f", remaining)
		}
		if diff := initial - spent - remaining; diff > 1e-9 || diff < -1e-9 {
			rt.Fatalf("ledger mismatch: initial=%f spent=%f remaining=%f", initial, spent, remaining)
		}
	})
}

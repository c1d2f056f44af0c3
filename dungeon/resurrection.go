package dungeon

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"shadow-dungeon/engine/logging"
	loggingeconomy "shadow-dungeon/engine/logging/economy"
	"shadow-dungeon/engine/stats"
)

// ResurrectionCost grows exponentially with rank: more valuable shadows
// cost more to bring back.
func ResurrectionCost(cfg ResurrectionConfig, rank stats.Rank) float64 {
	return cfg.BaseCost * math.Pow(cfg.GrowthFactor, float64(rank.Index()))
}

// manaLedger serializes every read-check-deduct sequence against the
// shared per-user pool. Encounters run on independent goroutines and the
// pool regenerates on its own, so affordability is only trustworthy when
// the balance is re-read inside the critical section. The ledger also
// owns the one-warning-per-depletion-episode latch.
type manaLedger struct {
	mu       sync.Mutex
	pool     ManaPool
	cheapest float64
	warned   bool
}

func newManaLedger(pool ManaPool, cfg ResurrectionConfig) *manaLedger {
	return &manaLedger{
		pool:     pool,
		cheapest: ResurrectionCost(cfg, stats.RankE),
	}
}

// spend re-reads the live balance, deducts atomically when affordable,
// and reports whether the caller should emit the depletion warning. The
// latch resets as soon as the pool covers the cheapest resurrection
// again.
func (l *manaLedger) spend(ctx context.Context, cost float64) (ok bool, available float64, warn bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	available = l.pool.Read(ctx)
	if available >= l.cheapest {
		l.warned = false
	}
	if cost < 0 || available < cost || !l.pool.Deduct(ctx, cost) {
		if !l.warned {
			l.warned = true
			warn = true
		}
		return false, available, warn
	}
	return true, available - cost, false
}

// processResurrectionsLocked revives fallen roster shadows for the tick,
// highest rank first. Insufficient mana is an expected outcome, never an
// error; shadows left dead are retried on later ticks once the pool
// recovers.
func (e *Encounter) processResurrectionsLocked(now time.Time) {
	fallen := make([]*shadowCombatant, 0, len(e.roster))
	for _, shadow := range e.roster {
		if !shadow.Alive() {
			fallen = append(fallen, shadow)
		}
	}
	if len(fallen) == 0 {
		return
	}
	sort.SliceStable(fallen, func(i, j int) bool {
		return fallen[i].Rank > fallen[j].Rank
	})

	ctx := context.Background()
	for _, shadow := range fallen {
		e.attemptResurrectionLocked(ctx, shadow, now)
	}
}

func (e *Encounter) attemptResurrectionLocked(ctx context.Context, shadow *shadowCombatant, now time.Time) {
	ref := logging.EntityRef{ID: shadow.ShadowID, Kind: logging.EntityKindShadow}
	defer func() {
		if r := recover(); r != nil {
			e.counters.attackFaults.Add(1)
			e.publisher.Publish(ctx, logging.Event{
				Type:        "economy.resurrection_fault",
				EncounterID: e.ID,
				Tick:        e.tick,
				Actor:       ref,
				Severity:    logging.SeverityError,
				Category:    logging.CategoryEconomy,
				Payload:     map[string]any{"reason": r},
			})
		}
	}()

	cost := ResurrectionCost(e.cfg.Resurrection, shadow.Rank)

	ok, available, warn := e.ledger.spend(ctx, cost)
	if !ok {
		e.counters.resurrectionsDenied.Add(1)
		loggingeconomy.ResurrectionDeferred(ctx, e.publisher, e.ID, e.tick, ref, loggingeconomy.ResurrectionDeferredPayload{
			Rank:      shadow.Rank.String(),
			Cost:      cost,
			Available: available,
		})
		if warn {
			loggingeconomy.LowManaWarning(ctx, e.publisher, e.ID, e.tick, loggingeconomy.LowManaWarningPayload{
				Required:  cost,
				Available: available,
			})
		}
		return
	}

	shadow.Health = shadow.MaxHealth
	shadow.lastAttackAt = now
	e.counters.resurrections.Add(1)
	loggingeconomy.Resurrection(ctx, e.publisher, e.ID, e.tick, ref, loggingeconomy.ResurrectionPayload{
		Rank:      shadow.Rank.String(),
		Cost:      cost,
		Remaining: available,
	})
}

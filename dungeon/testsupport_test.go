package dungeon

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"shadow-dungeon/engine/logging"
	"shadow-dungeon/engine/stats"
)

// eventRecorder captures published events synchronously so tests can
// assert on them without a router in the middle.
type eventRecorder struct {
	mu     sync.Mutex
	events []logging.Event
}

func (r *eventRecorder) Publish(_ context.Context, event logging.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) countType(eventType logging.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, event := range r.events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

func (r *eventRecorder) lastOfType(eventType logging.EventType) (logging.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i], true
		}
	}
	return logging.Event{}, false
}

// rewardRecorder captures reward grants per encounter.
type rewardRecorder struct {
	mu     sync.Mutex
	ids    []string
	grants []RewardGrant
}

func (r *rewardRecorder) GrantRewards(encounterID string, grant RewardGrant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, encounterID)
	r.grants = append(r.grants, grant)
}

func (r *rewardRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.grants)
}

// testManaPool is a fixed pool with no regeneration.
type testManaPool struct {
	mu      sync.Mutex
	balance float64
}

func (p *testManaPool) Read(context.Context) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

func (p *testManaPool) Deduct(_ context.Context, amount float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if amount < 0 || p.balance < amount {
		return false
	}
	p.balance -= amount
	return true
}

func (p *testManaPool) set(balance float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = balance
}

// testConfig keeps populations small and removes jitter so assertions
// can be exact.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Combat.DamageVariancePct = 0
	cfg.Combat.CooldownVariancePct = 0
	cfg.Population.VariancePct = 0
	cfg.Population.Steps = []PopulationStep{
		{Below: 10, Spawn: 8},
		{Below: 20, Spawn: 4},
		{Below: 30, Spawn: 2},
	}
	cfg.Population.TailSpawn = 1
	cfg.Population.BandLow = 25
	cfg.Population.BandHigh = 30
	cfg.Population.BurstFraction = 0.2
	return cfg
}

// testUser is the reference hunter the default tuning was calibrated
// against.
func testUser() UserContext {
	return UserContext{
		ID:   "hunter-1",
		Rank: stats.RankA,
		Stats: stats.UserStats{
			Strength:     693,
			Intelligence: 600,
			Perception:   181,
		},
	}
}

// newTestEncounter builds an encounter without starting its run loop, so
// tests drive the tick handlers directly with synthetic clocks.
func newTestEncounter(t *testing.T, cfg Config, deps Deps, rank stats.Rank, roster []ShadowSummary, participating bool) *Encounter {
	t.Helper()
	deps.Config = cfg
	if deps.User.ID == "" {
		deps.User = testUser()
	}
	reg := NewRegistry(deps)
	return newEncounter(reg, rank, roster, participating)
}

// freezeCombat makes every spawned hostile and the boss inert: huge
// health so nothing dies, huge cooldowns so nothing swings.
func freezeCombat(e *Encounter) {
	for _, hostile := range e.hostiles {
		freezeHostile(hostile)
	}
	if e.boss != nil {
		freezeHostile(e.boss)
	}
}

func freezeHostile(h *HostileEntity) {
	h.Health = math.MaxFloat64 / 4
	h.MaxHealth = h.Health
	h.Derived[stats.DerivedAttackCooldownMs] = math.MaxInt32
}

// addTestShadow appends a directly constructed roster member.
func addTestShadow(e *Encounter, id string, rank stats.Rank, damage, health float64, cooldown time.Duration, last time.Time) *shadowCombatant {
	shadow := &shadowCombatant{
		ShadowID:     id,
		Rank:         rank,
		Damage:       damage,
		Health:       health,
		MaxHealth:    health,
		Cooldown:     cooldown,
		lastAttackAt: last,
	}
	e.roster = append(e.roster, shadow)
	return shadow
}

// enqueueTestTicket plants a pending extraction ticket for a synthetic
// target.
func enqueueTestTicket(e *Encounter, target HostileSnapshot, now time.Time) *ExtractionTicket {
	ticket := &ExtractionTicket{
		HostileID:  target.ID,
		Status:     TicketPending,
		EnqueuedAt: now,
		target:     target,
	}
	e.accumulator = append(e.accumulator, ticket)
	return ticket
}

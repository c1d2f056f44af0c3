package dungeon

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"shadow-dungeon/engine/logging"
	logginglifecycle "shadow-dungeon/engine/logging/lifecycle"
	"shadow-dungeon/engine/stats"
)

// Encounter is one active dungeon instance. All mutable state is guarded
// by mu; the run loop in lifecycle.go is the only writer of combat state,
// while snapshots and the participation signal arrive from other
// goroutines.
type Encounter struct {
	ID        string
	Rank      stats.Rank
	CreatedAt time.Time

	mu            sync.Mutex
	state         EncounterState
	tick          uint64
	hostiles      []*HostileEntity
	boss          *HostileEntity
	roster        []*shadowCombatant
	avatar        userAvatar
	queue         []*ExtractionTicket
	accumulator   []*ExtractionTicket
	participating bool
	activeSince   time.Time

	xpEarned         int64
	hostilesDefeated int
	shadowsExtracted int
	bossAttemptsUsed int
	rosterCritical   bool

	cfg       Config
	user      UserContext
	rng       *rand.Rand
	publisher logging.Publisher
	counters  *Counters
	store     CollectibleStore
	convertMu *sync.Mutex
	ledger    *manaLedger
	rewards   RewardSink
	registry  *EncounterRegistry

	tasks           *taskSet
	participationCh chan bool
}

func newEncounter(reg *EncounterRegistry, rank stats.Rank, roster []ShadowSummary, participating bool) *Encounter {
	now := time.Now()
	id := uuid.NewString()

	e := &Encounter{
		ID:              id,
		Rank:            rank,
		CreatedAt:       now,
		state:           StateSpawning,
		participating:   participating,
		cfg:             reg.deps.Config,
		user:            reg.deps.User,
		rng:             rand.New(rand.NewSource(seedFor(reg.deps.Config.Seed, id))),
		publisher:       reg.deps.Publisher,
		counters:        reg.counters,
		store:           reg.deps.Store,
		convertMu:       &reg.convertMu,
		ledger:          reg.ledger,
		rewards:         reg.deps.Rewards,
		registry:        reg,
		participationCh: make(chan bool, 1),
	}

	for _, summary := range roster {
		e.roster = append(e.roster, e.projectShadow(summary, now))
	}
	e.avatar = e.projectAvatar()

	// Spawning burst: seed the first slice of the eventual population and
	// the boss before the tick loop starts.
	burst := int(float64(e.cfg.Population.BandLow) * e.cfg.Population.BurstFraction)
	if burst < 1 {
		burst = 1
	}
	e.spawnHostilesLocked(now, burst)
	e.boss = e.newHostileLocked(now, true)
	e.state = StateActive
	e.activeSince = now

	logginglifecycle.EncounterSpawned(context.Background(), e.publisher, e.ID, e.tick, logginglifecycle.EncounterSpawnedPayload{
		Rank:            rank.String(),
		InitialHostiles: len(e.hostiles),
		Participating:   participating,
	})
	e.counters.encountersSpawned.Add(1)

	return e
}

// seedFor mixes the configured seed with the encounter id so concurrent
// encounters draw from distinct deterministic streams.
func seedFor(seed, encounterID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(seed))
	h.Write([]byte(":"))
	h.Write([]byte(encounterID))
	return int64(h.Sum64())
}

// projectShadow builds the encounter-scoped combat projection for one
// permanent shadow.
func (e *Encounter) projectShadow(summary ShadowSummary, now time.Time) *shadowCombatant {
	derived := stats.ComputeDerived(stats.Baseline(summary.Rank))
	cooldown := time.Duration(derived[stats.DerivedAttackCooldownMs]*summary.Profile.CooldownMultiplier()) * time.Millisecond
	return &shadowCombatant{
		ShadowID:     summary.ID,
		Rank:         summary.Rank,
		Profile:      summary.Profile,
		Damage:       derived[stats.DerivedAttackDamage] * summary.Profile.DamageMultiplier(),
		Health:       derived[stats.DerivedMaxHealth],
		MaxHealth:    derived[stats.DerivedMaxHealth],
		Cooldown:     cooldown,
		lastAttackAt: now,
	}
}

func (e *Encounter) projectAvatar() userAvatar {
	base := stats.ValueSet{}
	base[stats.StatStrength] = e.user.Stats.Strength
	base[stats.StatAgility] = e.user.Stats.Agility
	base[stats.StatIntelligence] = e.user.Stats.Intelligence
	base[stats.StatVitality] = e.user.Stats.Vitality
	base[stats.StatLuck] = e.user.Stats.Luck
	derived := stats.ComputeDerived(base)
	return userAvatar{
		Health:    derived[stats.DerivedMaxHealth],
		MaxHealth: derived[stats.DerivedMaxHealth],
	}
}

// newHostileLocked creates one hostile with every attribute independently
// varied around the rank baseline. Bosses get the elevated multiplier and
// never count against the population curve.
func (e *Encounter) newHostileLocked(now time.Time, boss bool) *HostileEntity {
	base := stats.Baseline(e.Rank)
	for i := range base {
		base[i] = e.vary(base[i], creationStatVariance)
		if boss {
			base[i] *= e.cfg.Lifecycle.BossStatMultiplier
		}
	}
	derived := stats.ComputeDerived(base)
	return &HostileEntity{
		ID:           uuid.NewString(),
		Rank:         e.Rank,
		Base:         base,
		Derived:      derived,
		Health:       derived[stats.DerivedMaxHealth],
		MaxHealth:    derived[stats.DerivedMaxHealth],
		Boss:         boss,
		lastAttackAt: now,
	}
}

func (e *Encounter) spawnHostilesLocked(now time.Time, count int) {
	for i := 0; i < count; i++ {
		e.hostiles = append(e.hostiles, e.newHostileLocked(now, false))
	}
	if count > 0 {
		e.counters.hostilesSpawned.Add(uint64(count))
	}
}

// State returns the current lifecycle state.
func (e *Encounter) State() EncounterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Participating reports the live participation flag.
func (e *Encounter) Participating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.participating
}

// SetParticipating applies the host's presence signal. Turning it off
// aggressively prunes defeated hostiles and discards pending extraction
// work, since nothing will be collected for an unobserved encounter. The
// combat cadence switches between foreground and background intervals.
func (e *Encounter) SetParticipating(value bool) {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return
	}
	changed := e.participating != value
	e.participating = value
	if !value {
		e.pruneDefeatedLocked()
	}
	e.mu.Unlock()

	if changed {
		select {
		case e.participationCh <- value:
		default:
		}
	}
}

// pruneDefeatedLocked drops every dead hostile and cancels all pending
// extraction work.
func (e *Encounter) pruneDefeatedLocked() {
	kept := e.hostiles[:0]
	for _, hostile := range e.hostiles {
		if hostile.Alive() {
			kept = append(kept, hostile)
		}
	}
	for i := len(kept); i < len(e.hostiles); i++ {
		e.hostiles[i] = nil
	}
	e.hostiles = kept
	e.queue = nil
	e.accumulator = nil
}

// removeHostileLocked takes a hostile out of the population once its
// extraction ticket reached a terminal outcome.
func (e *Encounter) removeHostileLocked(hostileID string) {
	for i, hostile := range e.hostiles {
		if hostile.ID == hostileID {
			e.hostiles = append(e.hostiles[:i], e.hostiles[i+1:]...)
			return
		}
	}
}

// Snapshot returns the host-facing read-only view.
func (e *Encounter) Snapshot() EncounterSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	alive := 0
	for _, hostile := range e.hostiles {
		if hostile.Alive() {
			alive++
		}
	}
	rosterAlive := 0
	for _, shadow := range e.roster {
		if shadow.Alive() {
			rosterAlive++
		}
	}
	snapshot := EncounterSnapshot{
		ID:               e.ID,
		Rank:             e.Rank,
		State:            e.state.String(),
		CreatedAt:        e.CreatedAt,
		Tick:             e.tick,
		Hostiles:         len(e.hostiles),
		HostilesAlive:    alive,
		RosterSize:       len(e.roster),
		RosterAlive:      rosterAlive,
		QueueDepth:       len(e.queue) + len(e.accumulator),
		Participating:    e.participating,
		HostilesDefeated: e.hostilesDefeated,
		ShadowsExtracted: e.shadowsExtracted,
	}
	if e.boss != nil {
		snapshot.BossHealth = e.boss.Health
		snapshot.BossMaxHealth = e.boss.MaxHealth
	}
	return snapshot
}

// populationInvariantLocked reports whether at least one hostile or the
// boss remains while the encounter is active.
func (e *Encounter) populationInvariantLocked() bool {
	if e.state != StateActive {
		return true
	}
	if e.boss.Alive() {
		return true
	}
	return len(e.hostiles) > 0
}

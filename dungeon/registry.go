package dungeon

import (
	"context"
	"errors"
	"sync"

	"shadow-dungeon/engine/logging"
	"shadow-dungeon/engine/stats"
)

var (
	// ErrEncounterNotFound signals an operation against an encounter the
	// registry no longer owns. Per the cancellation contract this is a
	// structural violation, not a routine miss.
	ErrEncounterNotFound = errors.New("dungeon: encounter not found")
	// ErrAlreadyTerminal signals a duplicate terminal transition.
	ErrAlreadyTerminal = errors.New("dungeon: encounter already reached a terminal state")
	// ErrNotAccepting signals a boss extraction attempt outside the grace
	// window or without the user present.
	ErrNotAccepting = errors.New("dungeon: encounter not accepting boss extraction attempts")
	// ErrBossAttemptsExhausted signals the bonus track is used up.
	ErrBossAttemptsExhausted = errors.New("dungeon: boss extraction attempts exhausted")
	// ErrRegistryClosed signals a spawn after shutdown.
	ErrRegistryClosed = errors.New("dungeon: registry closed")
)

// Deps bundles everything the engine consumes from collaborators. Optional
// capabilities default to no-op implementations at construction; the
// engine never probes for them per call.
type Deps struct {
	Config    Config
	User      UserContext
	Publisher logging.Publisher
	Store     CollectibleStore
	Mana      ManaPool
	Rewards   RewardSink
}

// EncounterRegistry is the single owner of encounter lifetime. Components
// operate on encounter references handed to them; nothing reaches into
// ambient global state.
type EncounterRegistry struct {
	mu         sync.Mutex
	encounters map[string]*Encounter
	closed     bool

	deps      Deps
	ledger    *manaLedger
	counters  *Counters
	convertMu sync.Mutex
}

// NewRegistry builds a registry with defaults applied to the config and
// no-op stand-ins for any collaborator left nil.
func NewRegistry(deps Deps) *EncounterRegistry {
	deps.Config = deps.Config.normalized()
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Store == nil {
		deps.Store = NopCollectibleStore()
	}
	if deps.Mana == nil {
		deps.Mana = NopManaPool()
	}
	if deps.Rewards == nil {
		deps.Rewards = NopRewardSink()
	}
	return &EncounterRegistry{
		encounters: make(map[string]*Encounter),
		deps:       deps,
		ledger:     newManaLedger(deps.Mana, deps.Config.Resurrection),
		counters:   newCounters(),
	}
}

// Spawn creates an encounter, performs the initial population burst, and
// starts its scheduled tasks.
func (r *EncounterRegistry) Spawn(rank stats.Rank, roster []ShadowSummary, participating bool) (*Encounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	e := newEncounter(r, rank, roster, participating)
	r.encounters[e.ID] = e
	e.start()
	return e, nil
}

// Get resolves a live encounter by id.
func (r *EncounterRegistry) Get(id string) (*Encounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.encounters[id]
	if !ok {
		return nil, ErrEncounterNotFound
	}
	return e, nil
}

// Stop tears one encounter down as failed ("stopped by host") and waits
// until none of its timers can fire again.
func (r *EncounterRegistry) Stop(id string) error {
	r.mu.Lock()
	e, ok := r.encounters[id]
	r.mu.Unlock()
	if !ok {
		return ErrEncounterNotFound
	}
	if err := e.halt("stopped by host"); err != nil {
		return err
	}
	e.tasks.wait()
	return nil
}

// SetParticipating forwards the host presence signal to every live
// encounter.
func (r *EncounterRegistry) SetParticipating(value bool) {
	for _, e := range r.live() {
		e.SetParticipating(value)
	}
}

// Snapshots lists the host-facing view of every live encounter.
func (r *EncounterRegistry) Snapshots() []EncounterSnapshot {
	live := r.live()
	snapshots := make([]EncounterSnapshot, 0, len(live))
	for _, e := range live {
		snapshots = append(snapshots, e.Snapshot())
	}
	return snapshots
}

// Telemetry returns the aggregate counters.
func (r *EncounterRegistry) Telemetry() TelemetrySnapshot {
	return r.counters.Snapshot()
}

// Shutdown halts every encounter and blocks until all timers stopped.
func (r *EncounterRegistry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	for _, e := range r.live() {
		if err := e.halt("engine shutdown"); err != nil && !errors.Is(err, ErrAlreadyTerminal) {
			return err
		}
		done := make(chan struct{})
		go func(enc *Encounter) {
			enc.tasks.wait()
			close(done)
		}(e)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		}
	}
	return nil
}

func (r *EncounterRegistry) live() []*Encounter {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Encounter, 0, len(r.encounters))
	for _, e := range r.encounters {
		out = append(out, e)
	}
	return out
}

// detach removes a finalized encounter record. Called exactly once from
// the terminal transition.
func (r *EncounterRegistry) detach(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.encounters, id)
}

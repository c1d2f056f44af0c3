package dungeon

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shadow-dungeon/engine/stats"
)

// UserContext identifies the hunter the engine simulates for. One engine
// instance serves one user; all of their encounters share one mana pool.
type UserContext struct {
	ID    string          `json:"id"`
	Rank  stats.Rank      `json:"rank"`
	Stats stats.UserStats `json:"stats"`
}

// ConvertResult reports the explicit success signal of a conversion call.
// The pipeline never trusts it alone; the collectible count delta is the
// second, authoritative signal.
type ConvertResult struct {
	Success       bool
	CollectibleID string
}

// CollectibleStore is the permanent shadow store owned by a collaborator.
// Count is read immediately before and after Convert to verify the call.
type CollectibleStore interface {
	Convert(ctx context.Context, target HostileSnapshot, user UserContext) (ConvertResult, error)
	Count(ctx context.Context) (int, error)
}

// ManaPool is the shared per-user resource pool. The pool regenerates on
// its own schedule, so affordability is only meaningful when Read and
// Deduct happen inside one critical section.
type ManaPool interface {
	Read(ctx context.Context) float64
	Deduct(ctx context.Context, amount float64) bool
}

// RewardGrant aggregates everything an encounter pays out on teardown.
type RewardGrant struct {
	UserXP             int64 `json:"userXp"`
	RosterXPShare      int64 `json:"rosterXpShare"`
	CombatTimeCreditMs int64 `json:"combatTimeCreditMs"`
}

// RewardSink receives the grant exactly once per encounter.
type RewardSink interface {
	GrantRewards(encounterID string, grant RewardGrant)
}

type nopCollectibleStore struct{}

func (nopCollectibleStore) Convert(context.Context, HostileSnapshot, UserContext) (ConvertResult, error) {
	return ConvertResult{}, nil
}

func (nopCollectibleStore) Count(context.Context) (int, error) {
	return 0, nil
}

// NopCollectibleStore never converts anything; with it wired, every
// extraction attempt resolves as a conversion failure.
func NopCollectibleStore() CollectibleStore {
	return nopCollectibleStore{}
}

type nopManaPool struct{}

func (nopManaPool) Read(context.Context) float64 { return 0 }

func (nopManaPool) Deduct(context.Context, float64) bool { return false }

// NopManaPool is permanently empty; resurrection is disabled with it wired.
func NopManaPool() ManaPool {
	return nopManaPool{}
}

type nopRewardSink struct{}

func (nopRewardSink) GrantRewards(string, RewardGrant) {}

func NopRewardSink() RewardSink {
	return nopRewardSink{}
}

// MemoryCollectibleStore is an in-process reference store used by the
// daemon demo and the test suite.
type MemoryCollectibleStore struct {
	mu      sync.Mutex
	shadows []HostileSnapshot
}

func NewMemoryCollectibleStore() *MemoryCollectibleStore {
	return &MemoryCollectibleStore{}
}

func (s *MemoryCollectibleStore) Convert(_ context.Context, target HostileSnapshot, _ UserContext) (ConvertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shadows = append(s.shadows, target)
	return ConvertResult{Success: true, CollectibleID: uuid.NewString()}, nil
}

func (s *MemoryCollectibleStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shadows), nil
}

// RegeneratingManaPool is an in-process pool with lazy time-based regen.
type RegeneratingManaPool struct {
	mu          sync.Mutex
	current     float64
	max         float64
	regenPerSec float64
	lastTouch   time.Time
}

func NewRegeneratingManaPool(max, regenPerSec float64) *RegeneratingManaPool {
	return &RegeneratingManaPool{
		current:     max,
		max:         max,
		regenPerSec: regenPerSec,
		lastTouch:   time.Now(),
	}
}

func (p *RegeneratingManaPool) Read(context.Context) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regenLocked(time.Now())
	return p.current
}

func (p *RegeneratingManaPool) Deduct(_ context.Context, amount float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regenLocked(time.Now())
	if amount < 0 || p.current < amount {
		return false
	}
	p.current -= amount
	return true
}

func (p *RegeneratingManaPool) regenLocked(now time.Time) {
	elapsed := now.Sub(p.lastTouch).Seconds()
	p.lastTouch = now
	if elapsed <= 0 || p.regenPerSec <= 0 {
		return
	}
	p.current += elapsed * p.regenPerSec
	if p.current > p.max {
		p.current = p.max
	}
}

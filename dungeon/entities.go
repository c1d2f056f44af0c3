package dungeon

import (
	"time"

	"shadow-dungeon/engine/stats"
)

// creationStatVariance is the independent per-attribute jitter applied to
// every spawned hostile's rank baseline.
const creationStatVariance = 0.15

// EncounterState tracks where an encounter sits in its lifecycle.
type EncounterState uint8

const (
	StateSpawning EncounterState = iota
	StateActive
	StateBossGraceWindow
	StateCompleted
	StateFailed
)

func (s EncounterState) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateActive:
		return "active"
	case StateBossGraceWindow:
		return "bossGraceWindow"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the encounter.
func (s EncounterState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// HostileEntity is one disposable enemy combatant. It is created by the
// population controller and only the combat scheduler mutates its health.
type HostileEntity struct {
	ID        string
	Rank      stats.Rank
	Base      stats.ValueSet
	Derived   stats.DerivedSet
	Health    float64
	MaxHealth float64
	Boss      bool

	lastAttackAt       time.Time
	awaitingExtraction bool
}

func (h *HostileEntity) Alive() bool {
	return h != nil && h.Health > 0
}

// AttackCooldown returns the entity's base swing interval.
func (h *HostileEntity) AttackCooldown() time.Duration {
	return time.Duration(h.Derived[stats.DerivedAttackCooldownMs]) * time.Millisecond
}

// Snapshot freezes the fields the extraction pipeline and collectible
// store need after the entity is defeated.
func (h *HostileEntity) Snapshot() HostileSnapshot {
	return HostileSnapshot{
		ID:             h.ID,
		Rank:           h.Rank,
		Strength:       h.Base[stats.StatStrength],
		EffectivePower: h.Derived[stats.DerivedEffectivePower],
		Boss:           h.Boss,
	}
}

// HostileSnapshot is the immutable view of a defeated hostile handed to
// the extraction pipeline and the collectible store.
type HostileSnapshot struct {
	ID             string     `json:"id"`
	Rank           stats.Rank `json:"rank"`
	Strength       float64    `json:"strength"`
	EffectivePower float64    `json:"effectivePower"`
	Boss           bool       `json:"boss"`
}

// ShadowSummary identifies one permanent shadow assigned to an encounter.
// The collectible store owns the shadow; the engine only projects it.
type ShadowSummary struct {
	ID      string                `json:"id"`
	Rank    stats.Rank            `json:"rank"`
	Profile stats.BehaviorProfile `json:"profile"`
}

// shadowCombatant is the encounter-scoped combat projection of a shadow.
// It is discarded on teardown; permanent growth is reported through the
// reward sink, never written back here.
type shadowCombatant struct {
	ShadowID     string
	Rank         stats.Rank
	Profile      stats.BehaviorProfile
	Damage       float64
	Health       float64
	MaxHealth    float64
	Cooldown     time.Duration
	lastAttackAt time.Time
}

func (s *shadowCombatant) Alive() bool {
	return s != nil && s.Health > 0
}

// userAvatar is the user's own combat projection. Hostiles reach it only
// after the whole roster is down.
type userAvatar struct {
	Health    float64
	MaxHealth float64
}

// TicketStatus tracks an extraction ticket's progress.
type TicketStatus uint8

const (
	TicketPending TicketStatus = iota
	TicketSuccess
	TicketFailed
)

func (s TicketStatus) String() string {
	switch s {
	case TicketSuccess:
		return "success"
	case TicketFailed:
		return "failed"
	default:
		return "pending"
	}
}

// ExtractionTicket tracks the bounded attempts to convert one defeated
// hostile. A ticket leaves the queue in the same batch that resolves its
// terminal attempt.
type ExtractionTicket struct {
	HostileID  string
	Attempts   int
	Status     TicketStatus
	EnqueuedAt time.Time
	target     HostileSnapshot
}

// EncounterSnapshot is the read-only view served to hosts.
type EncounterSnapshot struct {
	ID               string     `json:"id"`
	Rank             stats.Rank `json:"rank"`
	State            string     `json:"state"`
	CreatedAt        time.Time  `json:"createdAt"`
	Tick             uint64     `json:"tick"`
	Hostiles         int        `json:"hostiles"`
	HostilesAlive    int        `json:"hostilesAlive"`
	BossHealth       float64    `json:"bossHealth"`
	BossMaxHealth    float64    `json:"bossMaxHealth"`
	RosterSize       int        `json:"rosterSize"`
	RosterAlive      int        `json:"rosterAlive"`
	QueueDepth       int        `json:"queueDepth"`
	Participating    bool       `json:"participating"`
	HostilesDefeated int        `json:"hostilesDefeated"`
	ShadowsExtracted int        `json:"shadowsExtracted"`
}

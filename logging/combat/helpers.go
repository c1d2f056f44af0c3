package combat

import (
	"context"

	"shadow-dungeon/engine/logging"
)

const (
	CriticalRosterHealthEventType logging.EventType = "combat.critical_roster_health"
	AttackFaultEventType          logging.EventType = "combat.attack_fault"
)

type CriticalRosterHealthPayload struct {
	HealthFraction float64 `json:"healthFraction"`
	AliveShadows   int     `json:"aliveShadows"`
	RosterSize     int     `json:"rosterSize"`
}

type AttackFaultPayload struct {
	Reason string `json:"reason"`
}

// CriticalRosterHealth warns the host that the friendly roster is close to
// a wipe. Emitted at most once per episode; the caller owns the latch.
func CriticalRosterHealth(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, payload CriticalRosterHealthPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        CriticalRosterHealthEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       logging.EntityRef{ID: encounterID, Kind: logging.EntityKindEncounter},
		Severity:    logging.SeverityWarn,
		Category:    logging.CategoryCombat,
		Payload:     payload,
	})
}

// AttackFault records one combatant whose attack resolution panicked and
// was skipped for the tick.
func AttackFault(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, actor logging.EntityRef, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        AttackFaultEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       actor,
		Severity:    logging.SeverityError,
		Category:    logging.CategoryCombat,
		Payload:     AttackFaultPayload{Reason: reason},
	})
}

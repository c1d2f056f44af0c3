package economy

import (
	"context"

	"shadow-dungeon/engine/logging"
)

const (
	LowManaWarningEventType       logging.EventType = "economy.low_mana_warning"
	ResurrectionEventType         logging.EventType = "economy.resurrection"
	ResurrectionDeferredEventType logging.EventType = "economy.resurrection_deferred"
)

type LowManaWarningPayload struct {
	Required  float64 `json:"required"`
	Available float64 `json:"available"`
}

type ResurrectionPayload struct {
	Rank      string  `json:"rank"`
	Cost      float64 `json:"cost"`
	Remaining float64 `json:"remaining"`
}

type ResurrectionDeferredPayload struct {
	Rank      string  `json:"rank"`
	Cost      float64 `json:"cost"`
	Available float64 `json:"available"`
}

// LowManaWarning signals the start of a depletion episode. Callers emit it
// once per episode, not once per failed attempt.
func LowManaWarning(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, payload LowManaWarningPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        LowManaWarningEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       logging.EntityRef{Kind: logging.EntityKindUser},
		Severity:    logging.SeverityWarn,
		Category:    logging.CategoryEconomy,
		Payload:     payload,
	})
}

func Resurrection(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, shadow logging.EntityRef, payload ResurrectionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        ResurrectionEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       shadow,
		Severity:    logging.SeverityInfo,
		Category:    logging.CategoryEconomy,
		Payload:     payload,
	})
}

func ResurrectionDeferred(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, shadow logging.EntityRef, payload ResurrectionDeferredPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        ResurrectionDeferredEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       shadow,
		Severity:    logging.SeverityDebug,
		Category:    logging.CategoryEconomy,
		Payload:     payload,
	})
}

package extraction

import (
	"context"

	"shadow-dungeon/engine/logging"
)

const (
	SucceededEventType          logging.EventType = "extraction.succeeded"
	FailedEventType             logging.EventType = "extraction.failed"
	ConsistencyWarningEventType logging.EventType = "extraction.consistency_warning"
	BossAttemptEventType        logging.EventType = "extraction.boss_attempt"
	FaultEventType              logging.EventType = "extraction.fault"
)

type OutcomePayload struct {
	Rank          string  `json:"rank"`
	Attempt       int     `json:"attempt"`
	Chance        float64 `json:"chance"`
	CollectibleID string  `json:"collectibleId,omitempty"`
}

type ConsistencyWarningPayload struct {
	EventSignal bool `json:"eventSignal"`
	CountDelta  int  `json:"countDelta"`
}

type BossAttemptPayload struct {
	Attempt   int     `json:"attempt"`
	Remaining int     `json:"remaining"`
	Chance    float64 `json:"chance"`
	Success   bool    `json:"success"`
}

func Succeeded(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, hostile logging.EntityRef, payload OutcomePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        SucceededEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       hostile,
		Severity:    logging.SeverityInfo,
		Category:    logging.CategoryExtraction,
		Payload:     payload,
	})
}

func Failed(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, hostile logging.EntityRef, payload OutcomePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        FailedEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       hostile,
		Severity:    logging.SeverityDebug,
		Category:    logging.CategoryExtraction,
		Payload:     payload,
	})
}

// ConsistencyWarning records a disagreement between the convert call's
// result and the collectible count delta. The count delta wins.
func ConsistencyWarning(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, hostile logging.EntityRef, payload ConsistencyWarningPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        ConsistencyWarningEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       hostile,
		Severity:    logging.SeverityWarn,
		Category:    logging.CategoryExtraction,
		Payload:     payload,
	})
}

// Fault records one ticket whose attempt panicked and was skipped for the
// batch.
func Fault(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, hostile logging.EntityRef, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        FaultEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       hostile,
		Severity:    logging.SeverityError,
		Category:    logging.CategoryExtraction,
		Payload:     map[string]string{"reason": reason},
	})
}

func BossAttempt(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, boss logging.EntityRef, payload BossAttemptPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        BossAttemptEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       boss,
		Severity:    logging.SeverityInfo,
		Category:    logging.CategoryExtraction,
		Payload:     payload,
	})
}

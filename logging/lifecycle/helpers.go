package lifecycle

import (
	"context"

	"shadow-dungeon/engine/logging"
)

const (
	EncounterSpawnedEventType   logging.EventType = "lifecycle.encounter_spawned"
	BossDefeatedEventType       logging.EventType = "lifecycle.boss_defeated"
	EncounterCompletedEventType logging.EventType = "lifecycle.encounter_completed"
	EncounterFailedEventType    logging.EventType = "lifecycle.encounter_failed"
)

type EncounterSpawnedPayload struct {
	Rank            string `json:"rank"`
	InitialHostiles int    `json:"initialHostiles"`
	Participating   bool   `json:"participating"`
}

type BossDefeatedPayload struct {
	Rank          string `json:"rank"`
	GraceWindowMs int64  `json:"graceWindowMs"`
}

type EncounterCompletedPayload struct {
	UserXP             int64 `json:"userXp"`
	RosterXPShare      int64 `json:"rosterXpShare"`
	CombatTimeCreditMs int64 `json:"combatTimeCreditMs"`
	HostilesDefeated   int   `json:"hostilesDefeated"`
	ShadowsExtracted   int   `json:"shadowsExtracted"`
}

type EncounterFailedPayload struct {
	Reason string `json:"reason"`
}

func EncounterSpawned(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, payload EncounterSpawnedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        EncounterSpawnedEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       logging.EntityRef{ID: encounterID, Kind: logging.EntityKindEncounter},
		Severity:    logging.SeverityInfo,
		Category:    logging.CategoryLifecycle,
		Payload:     payload,
	})
}

func BossDefeated(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, bossID string, payload BossDefeatedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        BossDefeatedEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       logging.EntityRef{ID: bossID, Kind: logging.EntityKindBoss},
		Severity:    logging.SeverityInfo,
		Category:    logging.CategoryLifecycle,
		Payload:     payload,
	})
}

func EncounterCompleted(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, payload EncounterCompletedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        EncounterCompletedEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       logging.EntityRef{ID: encounterID, Kind: logging.EntityKindEncounter},
		Severity:    logging.SeverityInfo,
		Category:    logging.CategoryLifecycle,
		Payload:     payload,
	})
}

func EncounterFailed(ctx context.Context, pub logging.Publisher, encounterID string, tick uint64, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        EncounterFailedEventType,
		EncounterID: encounterID,
		Tick:        tick,
		Actor:       logging.EntityRef{ID: encounterID, Kind: logging.EntityKindEncounter},
		Severity:    logging.SeverityWarn,
		Category:    logging.CategoryLifecycle,
		Payload:     EncounterFailedPayload{Reason: reason},
	})
}

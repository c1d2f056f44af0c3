package dungeon

import "sync/atomic"

// Counters aggregates engine activity across every encounter. All fields
// are updated lock-free from encounter goroutines.
type Counters struct {
	ticks               atomic.Uint64
	attacksResolved     atomic.Uint64
	attackFaults        atomic.Uint64
	hostilesSpawned     atomic.Uint64
	hostilesDefeated    atomic.Uint64
	extractionAttempts  atomic.Uint64
	extractionSuccesses atomic.Uint64
	extractionFailures  atomic.Uint64
	resurrections       atomic.Uint64
	resurrectionsDenied atomic.Uint64
	encountersSpawned   atomic.Uint64
	encountersCompleted atomic.Uint64
	encountersFailed    atomic.Uint64
}

// TelemetrySnapshot is the JSON view served by the daemon.
type TelemetrySnapshot struct {
	Ticks               uint64 `json:"ticks"`
	AttacksResolved     uint64 `json:"attacksResolved"`
	AttackFaults        uint64 `json:"attackFaults"`
	HostilesSpawned     uint64 `json:"hostilesSpawned"`
	HostilesDefeated    uint64 `json:"hostilesDefeated"`
	ExtractionAttempts  uint64 `json:"extractionAttempts"`
	ExtractionSuccesses uint64 `json:"extractionSuccesses"`
	ExtractionFailures  uint64 `json:"extractionFailures"`
	Resurrections       uint64 `json:"resurrections"`
	ResurrectionsDenied uint64 `json:"resurrectionsDenied"`
	EncountersSpawned   uint64 `json:"encountersSpawned"`
	EncountersCompleted uint64 `json:"encountersCompleted"`
	EncountersFailed    uint64 `json:"encountersFailed"`
}

func newCounters() *Counters {
	return &Counters{}
}

func (c *Counters) Snapshot() TelemetrySnapshot {
	if c == nil {
		return TelemetrySnapshot{}
	}
	return TelemetrySnapshot{
		Ticks:               c.ticks.Load(),
		AttacksResolved:     c.attacksResolved.Load(),
		AttackFaults:        c.attackFaults.Load(),
		HostilesSpawned:     c.hostilesSpawned.Load(),
		HostilesDefeated:    c.hostilesDefeated.Load(),
		ExtractionAttempts:  c.extractionAttempts.Load(),
		ExtractionSuccesses: c.extractionSuccesses.Load(),
		ExtractionFailures:  c.extractionFailures.Load(),
		Resurrections:       c.resurrections.Load(),
		ResurrectionsDenied: c.resurrectionsDenied.Load(),
		EncountersSpawned:   c.encountersSpawned.Load(),
		EncountersCompleted: c.encountersCompleted.Load(),
		EncountersFailed:    c.encountersFailed.Load(),
	}
}

package dungeon

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"shadow-dungeon/engine/stats"
)

const defaultSeed = "shadow-dungeon"

// Config carries every tuning constant of the engine. The source material
// never settled on canonical extraction coefficients, so all of them live
// here instead of in code; cmd/schema reflects this struct into a JSON
// schema for host-side validation.
type Config struct {
	Seed         string             `json:"seed" jsonschema:"description=Deterministic seed mixed into every encounter RNG"`
	Combat       CombatConfig       `json:"combat"`
	Population   PopulationConfig   `json:"population"`
	Extraction   ExtractionConfig   `json:"extraction"`
	Resurrection ResurrectionConfig `json:"resurrection"`
	Lifecycle    LifecycleConfig    `json:"lifecycle"`
}

// CombatConfig tunes the batch scheduler.
type CombatConfig struct {
	ForegroundTickMs       int     `json:"foregroundTickMs" jsonschema:"description=Combat tick interval while the user is present"`
	BackgroundTickMs       int     `json:"backgroundTickMs" jsonschema:"description=Combat tick interval while the encounter is backgrounded"`
	MaxAttacksPerTick      int     `json:"maxAttacksPerTick" jsonschema:"description=Catch-up cap per combatant per tick; backlog beyond it is discarded"`
	DamageVariancePct      float64 `json:"damageVariancePct" jsonschema:"description=Independent per-attack damage jitter (0.2 = 80-120%)"`
	CooldownVariancePct    float64 `json:"cooldownVariancePct" jsonschema:"description=Per-attack cooldown consumption jitter"`
	BossTargetChance       float64 `json:"bossTargetChance" jsonschema:"description=Probability a friendly attack targets the boss instead of a mob"`
	SplashTargets          int     `json:"splashTargets" jsonschema:"description=Simultaneous roster targets hit by one hostile attack"`
	CriticalRosterFraction float64 `json:"criticalRosterFraction" jsonschema:"description=Aggregate roster health fraction that triggers the critical warning"`
}

// PopulationStep maps a population ceiling to the batch spawned below it.
type PopulationStep struct {
	Below int `json:"below"`
	Spawn int `json:"spawn"`
}

// PopulationConfig tunes the spawn-rate curve. Steps must be sorted by
// ascending Below with strictly decreasing Spawn; the tail never reaches
// zero so the population keeps breathing near the band.
type PopulationConfig struct {
	TickMs        int              `json:"tickMs"`
	VariancePct   float64          `json:"variancePct"`
	Steps         []PopulationStep `json:"steps"`
	TailSpawn     int              `json:"tailSpawn" jsonschema:"description=Batch size once population is above every step"`
	BandLow       int              `json:"bandLow"`
	BandHigh      int              `json:"bandHigh"`
	BurstFraction float64          `json:"burstFraction" jsonschema:"description=Share of bandLow spawned during the Spawning state"`
}

// ExtractionConfig tunes the conversion pipeline and the chance formula.
type ExtractionConfig struct {
	AccumulationWindowMs int     `json:"accumulationWindowMs"`
	RetryIntervalMs      int     `json:"retryIntervalMs"`
	BatchSize            int     `json:"batchSize"`
	MaxAttempts          int     `json:"maxAttempts"`
	BossAttempts         int     `json:"bossAttempts"`
	IntelligenceBase     float64 `json:"intelligenceBase" jsonschema:"description=Per-point base chance from user intelligence"`
	IntelligenceWeight   float64 `json:"intelligenceWeight"`
	PerceptionWeight     float64 `json:"perceptionWeight"`
	StrengthWeight       float64 `json:"strengthWeight"`
	TotalStatsWeight     float64 `json:"totalStatsWeight" jsonschema:"description=Weight applied per 1000 total user stats"`
	RankMultipliers      []float64 `json:"rankMultipliers" jsonschema:"description=Per-target-rank multiplier, index-aligned with rank order"`
	RankPenaltyBase      float64 `json:"rankPenaltyBase" jsonschema:"description=Halving base applied per rank the target sits above the user"`
	MaxRankGap           int     `json:"maxRankGap" jsonschema:"description=Targets more than this many ranks above the user are never extractable"`
	ResistanceCap        float64 `json:"resistanceCap"`
}

// ResurrectionConfig tunes the mana economy.
type ResurrectionConfig struct {
	BaseCost     float64 `json:"baseCost"`
	GrowthFactor float64 `json:"growthFactor" jsonschema:"description=Cost multiplier per rank tier"`
}

// LifecycleConfig tunes encounter pacing and rewards.
type LifecycleConfig struct {
	GraceWindowMs              int     `json:"graceWindowMs"`
	BossStatMultiplier         float64 `json:"bossStatMultiplier"`
	XPPerRank                  []int64 `json:"xpPerRank" jsonschema:"description=User XP granted per defeated hostile, index-aligned with rank order"`
	RosterShareFraction        float64 `json:"rosterShareFraction"`
	UnobservedRewardFraction   float64 `json:"unobservedRewardFraction" jsonschema:"description=Reward scale applied when the user never participated"`
}

// DefaultConfig returns the tuning set the daemon ships with.
func DefaultConfig() Config {
	return Config{
		Seed: defaultSeed,
		Combat: CombatConfig{
			ForegroundTickMs:       2000,
			BackgroundTickMs:       15000,
			MaxAttacksPerTick:      10,
			DamageVariancePct:      0.20,
			CooldownVariancePct:    0.10,
			BossTargetChance:       0.05,
			SplashTargets:          3,
			CriticalRosterFraction: 0.25,
		},
		Population: PopulationConfig{
			TickMs:      10000,
			VariancePct: 0.20,
			Steps: []PopulationStep{
				{Below: 500, Spawn: 400},
				{Below: 1200, Spawn: 240},
				{Below: 2000, Spawn: 120},
				{Below: 2500, Spawn: 60},
				{Below: 3000, Spawn: 16},
			},
			TailSpawn:     1,
			BandLow:       2500,
			BandHigh:      3000,
			BurstFraction: 0.30,
		},
		Extraction: ExtractionConfig{
			AccumulationWindowMs: 100,
			RetryIntervalMs:      500,
			BatchSize:            20,
			MaxAttempts:          3,
			BossAttempts:         3,
			IntelligenceBase:     0.0002,
			IntelligenceWeight:   0.0002,
			PerceptionWeight:     0.0005,
			StrengthWeight:       0.0001,
			TotalStatsWeight:     0.01,
			RankMultipliers:      []float64{1.5, 1.3, 1.1, 1.0, 0.9, 0.7, 0.5, 0.3},
			RankPenaltyBase:      0.5,
			MaxRankGap:           2,
			ResistanceCap:        0.9,
		},
		Resurrection: ResurrectionConfig{
			BaseCost:     10,
			GrowthFactor: 2.0,
		},
		Lifecycle: LifecycleConfig{
			GraceWindowMs:            10000,
			BossStatMultiplier:       4.0,
			XPPerRank:                []int64{2, 4, 8, 16, 32, 64, 128, 256},
			RosterShareFraction:      0.5,
			UnobservedRewardFraction: 0.25,
		},
	}
}

// normalized fills zero values with defaults so a partially specified
// config file still yields a runnable engine.
func (cfg Config) normalized() Config {
	defaults := DefaultConfig()
	out := cfg

	out.Seed = strings.TrimSpace(out.Seed)
	if out.Seed == "" {
		out.Seed = defaults.Seed
	}

	if out.Combat.ForegroundTickMs <= 0 {
		out.Combat.ForegroundTickMs = defaults.Combat.ForegroundTickMs
	}
	if out.Combat.BackgroundTickMs <= 0 {
		out.Combat.BackgroundTickMs = defaults.Combat.BackgroundTickMs
	}
	if out.Combat.MaxAttacksPerTick <= 0 {
		out.Combat.MaxAttacksPerTick = defaults.Combat.MaxAttacksPerTick
	}
	if out.Combat.DamageVariancePct < 0 {
		out.Combat.DamageVariancePct = 0
	}
	if out.Combat.CooldownVariancePct < 0 {
		out.Combat.CooldownVariancePct = 0
	}
	if out.Combat.BossTargetChance <= 0 {
		out.Combat.BossTargetChance = defaults.Combat.BossTargetChance
	}
	if out.Combat.SplashTargets <= 0 {
		out.Combat.SplashTargets = defaults.Combat.SplashTargets
	}
	if out.Combat.CriticalRosterFraction <= 0 {
		out.Combat.CriticalRosterFraction = defaults.Combat.CriticalRosterFraction
	}

	if out.Population.TickMs <= 0 {
		out.Population.TickMs = defaults.Population.TickMs
	}
	if out.Population.VariancePct < 0 {
		out.Population.VariancePct = 0
	}
	if len(out.Population.Steps) == 0 {
		out.Population.Steps = defaults.Population.Steps
	}
	if out.Population.TailSpawn <= 0 {
		out.Population.TailSpawn = defaults.Population.TailSpawn
	}
	if out.Population.BandLow <= 0 {
		out.Population.BandLow = defaults.Population.BandLow
	}
	if out.Population.BandHigh <= out.Population.BandLow {
		out.Population.BandHigh = out.Population.BandLow + (defaults.Population.BandHigh - defaults.Population.BandLow)
	}
	if out.Population.BurstFraction <= 0 || out.Population.BurstFraction > 1 {
		out.Population.BurstFraction = defaults.Population.BurstFraction
	}

	if out.Extraction.AccumulationWindowMs <= 0 {
		out.Extraction.AccumulationWindowMs = defaults.Extraction.AccumulationWindowMs
	}
	if out.Extraction.RetryIntervalMs <= 0 {
		out.Extraction.RetryIntervalMs = defaults.Extraction.RetryIntervalMs
	}
	if out.Extraction.BatchSize <= 0 {
		out.Extraction.BatchSize = defaults.Extraction.BatchSize
	}
	if out.Extraction.MaxAttempts <= 0 {
		out.Extraction.MaxAttempts = defaults.Extraction.MaxAttempts
	}
	if out.Extraction.BossAttempts <= 0 {
		out.Extraction.BossAttempts = defaults.Extraction.BossAttempts
	}
	if out.Extraction.IntelligenceBase <= 0 {
		out.Extraction.IntelligenceBase = defaults.Extraction.IntelligenceBase
	}
	if out.Extraction.IntelligenceWeight <= 0 {
		out.Extraction.IntelligenceWeight = defaults.Extraction.IntelligenceWeight
	}
	if out.Extraction.PerceptionWeight <= 0 {
		out.Extraction.PerceptionWeight = defaults.Extraction.PerceptionWeight
	}
	if out.Extraction.StrengthWeight <= 0 {
		out.Extraction.StrengthWeight = defaults.Extraction.StrengthWeight
	}
	if out.Extraction.TotalStatsWeight <= 0 {
		out.Extraction.TotalStatsWeight = defaults.Extraction.TotalStatsWeight
	}
	if len(out.Extraction.RankMultipliers) != int(stats.RankCount) {
		out.Extraction.RankMultipliers = defaults.Extraction.RankMultipliers
	}
	if out.Extraction.RankPenaltyBase <= 0 || out.Extraction.RankPenaltyBase >= 1 {
		out.Extraction.RankPenaltyBase = defaults.Extraction.RankPenaltyBase
	}
	if out.Extraction.MaxRankGap <= 0 {
		out.Extraction.MaxRankGap = defaults.Extraction.MaxRankGap
	}
	if out.Extraction.ResistanceCap <= 0 || out.Extraction.ResistanceCap > 1 {
		out.Extraction.ResistanceCap = defaults.Extraction.ResistanceCap
	}

	if out.Resurrection.BaseCost <= 0 {
		out.Resurrection.BaseCost = defaults.Resurrection.BaseCost
	}
	if out.Resurrection.GrowthFactor <= 1 {
		out.Resurrection.GrowthFactor = defaults.Resurrection.GrowthFactor
	}

	if out.Lifecycle.GraceWindowMs <= 0 {
		out.Lifecycle.GraceWindowMs = defaults.Lifecycle.GraceWindowMs
	}
	if out.Lifecycle.BossStatMultiplier <= 1 {
		out.Lifecycle.BossStatMultiplier = defaults.Lifecycle.BossStatMultiplier
	}
	if len(out.Lifecycle.XPPerRank) != int(stats.RankCount) {
		out.Lifecycle.XPPerRank = defaults.Lifecycle.XPPerRank
	}
	if out.Lifecycle.RosterShareFraction <= 0 {
		out.Lifecycle.RosterShareFraction = defaults.Lifecycle.RosterShareFraction
	}
	if out.Lifecycle.UnobservedRewardFraction <= 0 {
		out.Lifecycle.UnobservedRewardFraction = defaults.Lifecycle.UnobservedRewardFraction
	}

	return out
}

// LoadConfig reads a JSON config file and applies defaults to anything it
// leaves unset.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.normalized(), nil
}

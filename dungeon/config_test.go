package dungeon

import (
	"os"
	"path/filepath"
	"testing"

	"shadow-dungeon/engine/stats"
)

func TestNormalizedFillsDefaults(t *testing.T) {
	cfg := Config{}.normalized()
	defaults := DefaultConfig()

	if cfg.Seed != defaults.Seed {
		t.Errorf("seed = %q, want %q", cfg.Seed, defaults.Seed)
	}
	if cfg.Combat.ForegroundTickMs != defaults.Combat.ForegroundTickMs {
		t.Errorf("foreground tick = %d, want %d", cfg.Combat.ForegroundTickMs, defaults.Combat.ForegroundTickMs)
	}
	if len(cfg.Extraction.RankMultipliers) != int(stats.RankCount) {
		t.Errorf("rank multipliers length = %d, want %d", len(cfg.Extraction.RankMultipliers), stats.RankCount)
	}
	if len(cfg.Lifecycle.XPPerRank) != int(stats.RankCount) {
		t.Errorf("xp table length = %d, want %d", len(cfg.Lifecycle.XPPerRank), stats.RankCount)
	}
}

func TestNormalizedKeepsExplicitValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Combat.ForegroundTickMs = 1234
	cfg.Population.BandLow = 100
	cfg.Population.BandHigh = 150

	out := cfg.normalized()
	if out.Combat.ForegroundTickMs != 1234 {
		t.Errorf("explicit tick overwritten: %d", out.Combat.ForegroundTickMs)
	}
	if out.Population.BandLow != 100 || out.Population.BandHigh != 150 {
		t.Errorf("explicit band overwritten: %d-%d", out.Population.BandLow, out.Population.BandHigh)
	}
}

func TestNormalizedRepairsInvertedBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Population.BandLow = 200
	cfg.Population.BandHigh = 100

	out := cfg.normalized()
	if out.Population.BandHigh <= out.Population.BandLow {
		t.Fatalf("band not repaired: %d-%d", out.Population.BandLow, out.Population.BandHigh)
	}
}

func TestLoadConfigAppliesDefaultsToPartialFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.json")
	payload := `{"seed":"test-seed","combat":{"foregroundTickMs":1234}}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Seed != "test-seed" {
		t.Errorf("seed = %q", cfg.Seed)
	}
	if cfg.Combat.ForegroundTickMs != 1234 {
		t.Errorf("foreground tick = %d, want 1234", cfg.Combat.ForegroundTickMs)
	}
	if cfg.Population.BandLow != DefaultConfig().Population.BandLow {
		t.Errorf("unset fields must fall back to defaults")
	}
}

func TestLoadConfigRejectsMissingOrMalformedFiles(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

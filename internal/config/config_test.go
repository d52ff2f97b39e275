package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daemon.Schedule != "@every 1m" {
		t.Fatalf("Schedule = %q, want default", cfg.Daemon.Schedule)
	}
	if Exists() {
		t.Fatal("Exists() = true without a config file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.General.CatchUp = true
	cfg.Appearance.Theme = "tokyo-night"
	cfg.Pricing.Overrides = map[string]PlanPriceOverride{"ultimate": {YearlyPrice: ptr(180)}}

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.General.CatchUp || got.Appearance.Theme != "tokyo-night" {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if o := got.Pricing.Overrides["ultimate"]; o.YearlyPrice == nil || *o.YearlyPrice != 180 {
		t.Fatalf("override not persisted: %+v", o)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "gburn"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(), []byte("[log]\nlevel = \"debug\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Daemon.Addr != "127.0.0.1:8797" {
		t.Fatalf("Addr = %q, default lost", cfg.Daemon.Addr)
	}
}

func TestDBPath_Precedence(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("GBURN_DB", "")

	cfg := DefaultConfig()
	if got := DBPath(cfg); got != filepath.Join("/data", "gburn", "gburn.db") {
		t.Fatalf("default DBPath = %q", got)
	}

	cfg.General.DBPath = "/cfg/state.db"
	if got := DBPath(cfg); got != "/cfg/state.db" {
		t.Fatalf("config DBPath = %q", got)
	}

	t.Setenv("GBURN_DB", "/env/state.db")
	if got := DBPath(cfg); got != "/env/state.db" {
		t.Fatalf("env DBPath = %q", got)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/efreitasn/dasim/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOG_LEVEL", "LOG_FORMAT", "DASIM_SINK", "DASIM_SYNC",
		"DASIM_REALTIME", "DASIM_SEED",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

const minimalYAML = `
simulation:
  periods: 2
  buyerValues: [100, 90]
  sellerCosts: [10, 20, 30]
`

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := cfg.Simulation
	if s.PeriodDuration != 1000 {
		t.Errorf("PeriodDuration = %v, want 1000", s.PeriodDuration)
	}
	if s.L != 1 || s.H != 200 {
		t.Errorf("bounds = [%v, %v], want [1, 200]", s.L, s.H)
	}
	if s.BuyerTypeFor(0) != "ZIAgent" || s.SellerTypeFor(2) != "ZIAgent" {
		t.Errorf("default agent types = %v / %v", s.BuyerAgentType, s.SellerAgentType)
	}
	if s.BuyerRateFor(1) != 1 {
		t.Errorf("BuyerRateFor(1) = %v, want 1", s.BuyerRateFor(1))
	}
	if s.BuyerCount() != 2 || s.SellerCount() != 3 {
		t.Errorf("counts = %d/%d, want 2/3", s.BuyerCount(), s.SellerCount())
	}
	if cfg.Run.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.Run.BatchSize)
	}
	if cfg.Run.Tick != 40*time.Millisecond {
		t.Errorf("Tick = %v, want 40ms", cfg.Run.Tick)
	}
	if cfg.Run.TimeUnit != time.Second {
		t.Errorf("TimeUnit = %v, want 1s", cfg.Run.TimeUnit)
	}
	if cfg.Storage.Sink != "memory" {
		t.Errorf("Sink = %q, want memory", cfg.Storage.Sink)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
}

func TestParse_ScalarAndListFields(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(`
simulation:
  periods: 1
  periodDuration: 50
  buyerAgentType: TruthfulAgent
  sellerAgentType: [ZIAgent, KaplanSniperAgent]
  buyerRate: 0.5
  sellerRate: [1, 2]
  numberOfBuyers: 3
  numberOfSellers: 4
  L: 5
  H: 150
  integer: true
  xMarket:
    buySellBookLimit: 10
    resetAfterEachTrade: true
run:
  sync: true
  tick: 10ms
storage:
  sink: csv
  dir: out
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := cfg.Simulation
	if got := s.BuyerTypeFor(2); got != "TruthfulAgent" {
		t.Errorf("BuyerTypeFor(2) = %q, want TruthfulAgent", got)
	}
	if got := s.SellerTypeFor(3); got != "KaplanSniperAgent" {
		t.Errorf("SellerTypeFor(3) = %q, want KaplanSniperAgent", got)
	}
	if got := s.BuyerRateFor(2); got != 0.5 {
		t.Errorf("BuyerRateFor(2) = %v, want 0.5", got)
	}
	if got := s.SellerRateFor(2); got != 1 {
		t.Errorf("SellerRateFor(2) = %v, want 1", got)
	}
	if s.BuyerCount() != 3 || s.SellerCount() != 4 {
		t.Errorf("counts = %d/%d, want 3/4", s.BuyerCount(), s.SellerCount())
	}
	if !s.Integer || s.XMarket.BuySellBookLimit != 10 || !s.XMarket.ResetAfterEachTrade {
		t.Errorf("engine options not decoded: %+v", s)
	}
	if !cfg.Run.Sync || cfg.Run.Tick != 10*time.Millisecond {
		t.Errorf("Run = %+v", cfg.Run)
	}
	if cfg.Storage.Sink != "csv" || cfg.Storage.Dir != "out" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DASIM_SINK", "sqlite")
	t.Setenv("DASIM_SYNC", "true")
	t.Setenv("DASIM_REALTIME", "1")
	t.Setenv("DASIM_SEED", "99")

	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
	if cfg.Storage.Sink != "sqlite" {
		t.Errorf("Sink = %q, want sqlite", cfg.Storage.Sink)
	}
	if !cfg.Run.Sync || !cfg.Simulation.Realtime {
		t.Errorf("Sync = %v, Realtime = %v, want both true", cfg.Run.Sync, cfg.Simulation.Realtime)
	}
	if cfg.Simulation.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.Simulation.Seed)
	}
}

func TestParse_InvalidEnv(t *testing.T) {
	for _, tc := range []struct{ key, val string }{
		{"DASIM_SYNC", "maybe"},
		{"DASIM_REALTIME", "sometimes"},
		{"DASIM_SEED", "-1"},
		{"DASIM_SEED", "abc"},
		{"LOG_LEVEL", "verbose"},
		{"LOG_FORMAT", "xml"},
		{"DASIM_SINK", "s3"},
	} {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)

			if _, err := Parse([]byte(minimalYAML)); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestParse_NoAgents(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("simulation:\n  periods: 1\n  buyerValues: [100]\n"))
	if !errors.Is(err, domain.ErrNoAgents) {
		t.Fatalf("err = %v, want ErrNoAgents", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := map[string]string{
		"zero periods":      "simulation:\n  buyerValues: [1]\n  sellerCosts: [1]\n",
		"negative duration": "simulation:\n  periods: 1\n  periodDuration: -5\n  buyerValues: [1]\n  sellerCosts: [1]\n",
		"inverted bounds":   "simulation:\n  periods: 1\n  L: 300\n  H: 100\n  buyerValues: [1]\n  sellerCosts: [1]\n",
		"negative rate":     "simulation:\n  periods: 1\n  buyerRate: [1, -2]\n  buyerValues: [1]\n  sellerCosts: [1]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)

			_, err := Parse([]byte(doc))
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *domain.ValidationError", err)
			}
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	clearEnv(t)

	if _, err := Parse([]byte("simulation: [")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if _, err := Parse([]byte("simulation:\n  buyerRate: {a: 1}\n")); err == nil {
		t.Fatal("expected error for a mapping where a number list is expected")
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "sim.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Simulation.Periods != 2 {
		t.Errorf("Periods = %d, want 2", cfg.Simulation.Periods)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

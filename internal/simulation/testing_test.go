package simulation

import (
	"testing"

	"github.com/efreitasn/dasim/internal/config"
	"github.com/efreitasn/dasim/internal/store"
)

// newTestConfig returns a valid four-by-four ZI market.
func newTestConfig() *config.SimulationConfig {
	return &config.SimulationConfig{
		Periods:         3,
		PeriodDuration:  100,
		BuyerAgentType:  config.StringList{"ZIAgent"},
		SellerAgentType: config.StringList{"ZIAgent"},
		BuyerRate:       config.FloatList{1},
		SellerRate:      config.FloatList{1},
		BuyerValues:     config.FloatList{100, 90, 80, 70},
		SellerCosts:     config.FloatList{10, 20, 30, 40},
		L:               1,
		H:               200,
		Seed:            1,
	}
}

// newMemoryLogs creates a memory sink for every log a run produces.
func newMemoryLogs(withoutOrderLogs bool) (map[string]LogSink, map[string]*store.MemorySink) {
	logs := make(map[string]LogSink)
	mem := make(map[string]*store.MemorySink)
	for _, name := range LogNames(withoutOrderLogs) {
		s := store.NewMemorySink()
		logs[name] = s
		mem[name] = s
	}
	return logs, mem
}

// newTestSimulation builds a simulation over memory logs.
func newTestSimulation(t *testing.T, cfg *config.SimulationConfig) (*Simulation, map[string]*store.MemorySink) {
	t.Helper()
	logs, mem := newMemoryLogs(cfg.WithoutOrderLogs)
	sim, err := New(cfg, Deps{Logs: logs})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sim, mem
}

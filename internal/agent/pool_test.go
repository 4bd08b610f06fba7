package agent

import (
	"errors"
	"slices"
	"testing"

	"github.com/efreitasn/dasim/internal/config"
	"github.com/efreitasn/dasim/internal/domain"
)

// newTestPool creates a pool of truthful traders with the given values and costs.
func newTestPool(t *testing.T, values, costs []float64) *Pool {
	t.Helper()
	cfg := &config.SimulationConfig{
		Periods:         1,
		PeriodDuration:  100,
		BuyerAgentType:  config.StringList{"TruthfulAgent"},
		SellerAgentType: config.StringList{"TruthfulAgent"},
		BuyerRate:       config.FloatList{1},
		SellerRate:      config.FloatList{1},
		BuyerValues:     values,
		SellerCosts:     costs,
		L:               1,
		H:               200,
		Seed:            42,
	}
	pool, err := NewPopulation(cfg, nil, Env{})
	if err != nil {
		t.Fatalf("NewPopulation: %v", err)
	}
	return pool
}

func TestPool_Distribute_RoundRobinThenSorted(t *testing.T) {
	p := NewPool()
	b1 := New(Options{ID: 1, Role: RoleBuyer}, TruthfulBehavior{})
	b2 := New(Options{ID: 2, Role: RoleBuyer}, TruthfulBehavior{})
	s3 := New(Options{ID: 3, Role: RoleSeller}, TruthfulBehavior{})
	for _, a := range []*Agent{b1, b2, s3} {
		if err := p.Push(a); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	p.Distribute(AttrValues, []float64{10, 20, 30, 40, 50})
	p.Distribute(AttrCosts, []float64{9, 3, 6})

	if got := b1.Values(); !slices.Equal(got, []float64{50, 30, 10}) {
		t.Errorf("b1 values = %v", got)
	}
	if got := b2.Values(); !slices.Equal(got, []float64{40, 20}) {
		t.Errorf("b2 values = %v", got)
	}
	if got := s3.Costs(); !slices.Equal(got, []float64{3, 6, 9}) {
		t.Errorf("s3 costs = %v", got)
	}
}

func TestPool_Push_DuplicateID(t *testing.T) {
	p := NewPool()
	if err := p.Push(New(Options{ID: 1}, DoNothingBehavior{})); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := p.Push(New(Options{ID: 1}, DoNothingBehavior{})); err == nil {
		t.Error("expected duplicate id to be rejected")
	}
}

func TestPool_EndTime_UnsetBeforeFirstPeriod(t *testing.T) {
	p := NewPool()
	if _, ok := p.EndTime(); ok {
		t.Error("expected no end time before InitPeriod")
	}
	p.InitPeriod(domain.NewPeriod(2, 100))
	if end, ok := p.EndTime(); !ok || end != 200 {
		t.Errorf("EndTime = %v, %v; want 200", end, ok)
	}
}

func TestPool_SyncRun_WakesInTimeOrderUntilEnd(t *testing.T) {
	pool := newTestPool(t, []float64{100, 90}, []float64{10, 20})
	pool.InitPeriod(domain.NewPeriod(1, 100))
	m := &fakeMarket{}

	if err := pool.SyncRun(m, 100); err != nil {
		t.Fatalf("SyncRun: %v", err)
	}
	if len(m.orders) == 0 {
		t.Fatal("expected agents to submit orders")
	}
	for i := 1; i < len(m.orders); i++ {
		if m.orders[i].T < m.orders[i-1].T {
			t.Fatalf("orders out of time order at %d: %v < %v", i, m.orders[i].T, m.orders[i-1].T)
		}
	}
	for _, o := range m.orders {
		if o.T >= 100 {
			t.Errorf("order at %v outside the window", o.T)
		}
	}
	for _, a := range pool.Members() {
		if a.WakeTime() < 100 {
			t.Errorf("agent %d still due at %v", a.ID(), a.WakeTime())
		}
	}
}

func TestPool_RunBatch_MatchesSyncRun(t *testing.T) {
	sync := newTestPool(t, []float64{100, 90, 80}, []float64{10, 20, 30})
	batched := newTestPool(t, []float64{100, 90, 80}, []float64{10, 20, 30})
	period := domain.NewPeriod(1, 100)
	sync.InitPeriod(period)
	batched.InitPeriod(period)

	ms, mb := &fakeMarket{}, &fakeMarket{}
	if err := sync.SyncRun(ms, period.EndTime); err != nil {
		t.Fatalf("SyncRun: %v", err)
	}
	batches := 0
	for {
		more, err := batched.RunBatch(mb, period.EndTime, 3)
		if err != nil {
			t.Fatalf("RunBatch: %v", err)
		}
		batches++
		if !more {
			break
		}
	}

	if batches < 2 {
		t.Errorf("expected several batches, got %d", batches)
	}
	if !slices.EqualFunc(ms.orders, mb.orders, func(a, b domain.Order) bool {
		return a.T == b.T && a.AgentID == b.AgentID && a.Price == b.Price
	}) {
		t.Error("batched run diverged from synchronous run")
	}
}

func TestPool_RunBatch_PropagatesWakeError(t *testing.T) {
	pool := newTestPool(t, []float64{100}, []float64{10})
	pool.InitPeriod(domain.NewPeriod(1, 100))
	boom := errors.New("boom")

	_, err := pool.RunBatch(&fakeMarket{err: boom}, 100, 10)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wake error, got %v", err)
	}
}

func TestPool_Settle(t *testing.T) {
	pool := newTestPool(t, []float64{100}, []float64{10})

	if err := pool.Settle(1, 2, 60); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	buyer, _ := pool.Agent(1)
	seller, _ := pool.Agent(2)
	if inv := buyer.Inventory(); inv.Goods != 1 || inv.Money != -60 {
		t.Errorf("buyer inventory = %+v", inv)
	}
	if inv := seller.Inventory(); inv.Goods != -1 || inv.Money != 60 {
		t.Errorf("seller inventory = %+v", inv)
	}

	if err := pool.Settle(1, 99, 60); !errors.Is(err, domain.ErrUnknownTrader) {
		t.Errorf("expected ErrUnknownTrader, got %v", err)
	}
}

func TestPool_EndPeriod_RedeemsAndResets(t *testing.T) {
	pool := newTestPool(t, []float64{100}, []float64{10})
	pool.InitPeriod(domain.NewPeriod(1, 100))
	if err := pool.Settle(1, 2, 60); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	pool.EndPeriod()

	got := make([]float64, 0, 2)
	for _, a := range pool.Agents() {
		got = append(got, a.Inventory().Money)
	}
	if !slices.Equal(got, []float64{40, 50}) {
		t.Errorf("money after redemption = %v, want [40 50]", got)
	}
}

func TestNewPopulation_IDsTypesAndRates(t *testing.T) {
	cfg := &config.SimulationConfig{
		BuyerAgentType:  config.StringList{"ZIAgent", "TruthfulAgent"},
		SellerAgentType: config.StringList{"DoNothingAgent"},
		BuyerRate:       config.FloatList{1, 2},
		SellerRate:      config.FloatList{3},
		BuyerValues:     config.FloatList{100, 90, 80},
		SellerCosts:     config.FloatList{10, 20},
		L:               1,
		H:               200,
	}
	pool, err := NewPopulation(cfg, nil, Env{})
	if err != nil {
		t.Fatalf("NewPopulation: %v", err)
	}

	members := pool.Members()
	if len(members) != 5 {
		t.Fatalf("expected 5 agents, got %d", len(members))
	}
	wantTypes := []string{"ZIAgent", "TruthfulAgent", "ZIAgent", "DoNothingAgent", "DoNothingAgent"}
	wantRoles := []Role{RoleBuyer, RoleBuyer, RoleBuyer, RoleSeller, RoleSeller}
	for i, a := range members {
		if a.ID() != i+1 {
			t.Errorf("agent %d has id %d", i, a.ID())
		}
		if a.Type() != wantTypes[i] || a.Role() != wantRoles[i] {
			t.Errorf("agent %d: type %s role %s", a.ID(), a.Type(), a.Role())
		}
		if a.Behavior().Kind() != Kind(wantTypes[i]) {
			t.Errorf("agent %d: behavior kind %s", a.ID(), a.Behavior().Kind())
		}
	}
	if members[1].opts.Rate != 2 || members[2].opts.Rate != 1 || members[4].opts.Rate != 3 {
		t.Error("rates not broadcast cyclically")
	}
}

func TestNewPopulation_Errors(t *testing.T) {
	_, err := NewPopulation(&config.SimulationConfig{BuyerValues: config.FloatList{100}}, nil, Env{})
	if !errors.Is(err, domain.ErrNoAgents) {
		t.Errorf("expected ErrNoAgents, got %v", err)
	}

	cfg := &config.SimulationConfig{
		BuyerAgentType: config.StringList{"MartianAgent"},
		BuyerValues:    config.FloatList{100},
		SellerCosts:    config.FloatList{10},
	}
	_, err = NewPopulation(cfg, nil, Env{})
	if !errors.Is(err, domain.ErrUnknownAgentType) {
		t.Errorf("expected ErrUnknownAgentType, got %v", err)
	}
}

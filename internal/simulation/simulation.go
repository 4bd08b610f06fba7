// Package simulation runs a repeated double-auction market: it drives
// the agent population through the configured periods under a timing
// discipline, records the engine's trade and order stream, and writes
// the per-period analytics.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/efreitasn/dasim/internal/agent"
	"github.com/efreitasn/dasim/internal/config"
	"github.com/efreitasn/dasim/internal/domain"
	"github.com/efreitasn/dasim/internal/engine"
	"github.com/efreitasn/dasim/internal/metrics"
)

// MatchingEngine is the order-matching collaborator. Process handles
// one queued order and reports whether more remain; Events drains the
// typed events produced so far.
type MatchingEngine interface {
	Submit(order domain.Order)
	Process() bool
	Events() []domain.Event
	AgentID(slot int) (int, bool)
	Quote() domain.Quote
	Clear()
}

// AgentPool is the population collaborator.
type AgentPool interface {
	InitPeriod(p domain.Period)
	EndPeriod()
	SyncRun(m agent.Market, until float64) error
	RunBatch(m agent.Market, until float64, n int) (bool, error)
	EndTime() (float64, bool)
	Agent(id int) (agent.Trader, bool)
	Agents() []agent.Trader
	Settle(buyerID, sellerID int, price float64) error
}

// Deps are the collaborators of a Simulation. Nil fields get defaults:
// the reference exchange, a population built from the configuration,
// no logs, the default agent registry and slog.Default.
type Deps struct {
	Engine   MatchingEngine
	Pool     AgentPool
	Logs     map[string]LogSink
	Registry agent.Registry
	Logger   *slog.Logger
}

// Simulation owns the period counter, the price sequence and the log
// sinks. Periods advance one at a time; the accessors are safe to call
// from other goroutines while a period runs.
type Simulation struct {
	cfg    *config.SimulationConfig
	engine MatchingEngine
	pool   AgentPool
	logs   map[string]LogSink
	logger *slog.Logger
	gains  *metrics.Gains

	prices PriceSequence
	trades *TradeRecorder
	orders *OrderRecorder

	window   domain.Period // touched only by the running period
	period   atomic.Int64
	phase    atomic.Int32
	active   atomic.Bool
	realtime atomic.Bool
}

// New validates cfg, wires the collaborators and writes each enabled
// log's header.
func New(cfg *config.SimulationConfig, deps Deps) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:    cfg,
		engine: deps.Engine,
		pool:   deps.Pool,
		logs:   make(map[string]LogSink, len(deps.Logs)),
		logger: deps.Logger,
		gains:  metrics.NewGains(cfg.BuyerValues, cfg.SellerCosts),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	for name, sink := range deps.Logs {
		if sink == nil || (cfg.WithoutOrderLogs && isOrderLog(name)) {
			continue
		}
		s.logs[name] = sink
	}

	if s.engine == nil {
		s.engine = engine.NewExchange(engine.Config{
			MinPrice:            cfg.L,
			MaxPrice:            cfg.H,
			IntegerPrices:       cfg.Integer,
			BookLimit:           cfg.XMarket.BuySellBookLimit,
			ResetAfterEachTrade: cfg.XMarket.ResetAfterEachTrade,
		})
	}
	if s.pool == nil {
		pool, err := agent.NewPopulation(cfg, deps.Registry, agent.Env{
			Juicy: juicyPrices{ohlc: s.logs[LogOHLC]},
		})
		if err != nil {
			return nil, fmt.Errorf("simulation.New: %w", err)
		}
		s.pool = pool
	}

	window := func() domain.Period { return s.window }
	s.trades = &TradeRecorder{
		ids:    s.engine,
		pool:   s.pool,
		prices: &s.prices,
		sink:   s.logs[LogTrade],
		window: window,
	}
	s.orders = &OrderRecorder{ids: s.engine, pool: s.pool, logs: s.logs, window: window}

	agents := s.pool.Agents()
	for _, name := range LogNames(cfg.WithoutOrderLogs) {
		sink, ok := s.logs[name]
		if !ok {
			continue
		}
		if err := sink.SetHeader(headerFor(name, agents)); err != nil {
			return nil, fmt.Errorf("simulation.New: set %s header: %w", name, err)
		}
	}
	return s, nil
}

// Config returns the simulation's configuration.
func (s *Simulation) Config() *config.SimulationConfig { return s.cfg }

// Period is the number of the current or last started period; zero
// before the first period.
func (s *Simulation) Period() int { return int(s.period.Load()) }

// Phase is the scheduler state of the current period.
func (s *Simulation) Phase() Phase { return Phase(s.phase.Load()) }

// Done reports whether every configured period has completed.
func (s *Simulation) Done() bool {
	return s.Period() >= s.cfg.Periods && s.Phase() == PhaseComplete
}

// Prices returns the current period's trade prices in execution order.
func (s *Simulation) Prices() []float64 { return s.prices.Snapshot() }

// RealtimeActive reports whether a real-time period is advancing.
func (s *Simulation) RealtimeActive() bool { return s.realtime.Load() }

// MaximumGainsFromTrade is the market's competitive-equilibrium surplus,
// computed once from the configured values and costs.
func (s *Simulation) MaximumGainsFromTrade() float64 { return s.gains.Value() }

// RunOptions selects how Run drives the periods.
type RunOptions struct {
	Sync      bool
	Update    func(*Simulation) // called after each period
	Delay     time.Duration     // pause between periods, ignored when Sync
	BatchSize int
	Tick      time.Duration
	TimeUnit  time.Duration
}

// Driver picks the driver for opts: Immediate when Sync, WallClock for
// real-time configurations, Cooperative otherwise.
func (s *Simulation) Driver(opts RunOptions) Driver {
	switch {
	case opts.Sync:
		return Immediate{}
	case s.cfg.Realtime:
		return WallClock{Tick: opts.Tick, Unit: opts.TimeUnit, Logger: s.logger}
	default:
		return Cooperative{BatchSize: opts.BatchSize}
	}
}

// Run drives the remaining periods and returns when all are complete
// or one fails.
func (s *Simulation) Run(ctx context.Context, opts RunOptions) error {
	d := s.Driver(opts)
	for s.Period() < s.cfg.Periods {
		if err := s.RunPeriod(ctx, d); err != nil {
			return err
		}
		if opts.Update != nil {
			opts.Update(s)
		}
		if opts.Sync || opts.Delay <= 0 || s.Period() >= s.cfg.Periods {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.Delay):
		}
	}
	return nil
}

// Start runs in the background. The returned channel receives exactly
// one value: nil on completion, or the error that ended the run.
func (s *Simulation) Start(ctx context.Context, opts RunOptions) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, opts)
	}()
	return done
}

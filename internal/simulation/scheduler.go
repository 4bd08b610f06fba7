package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/dasim/internal/domain"
	"github.com/efreitasn/dasim/internal/metrics"
)

// Phase is the scheduler state of a period.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseInitializing
	PhaseAdvancing
	PhaseFinalizing
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitializing:
		return "initializing"
	case PhaseAdvancing:
		return "advancing"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseComplete:
		return "complete"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

func (s *Simulation) setPhase(p Phase) { s.phase.Store(int32(p)) }

// RunPeriod advances exactly one period under d. Overlapping calls fail
// with domain.ErrRealtimeActive when the running period is real-time,
// and domain.ErrPeriodActive otherwise, before any state changes.
func (s *Simulation) RunPeriod(ctx context.Context, d Driver) error {
	if !s.active.CompareAndSwap(false, true) {
		if s.realtime.Load() {
			return domain.ErrRealtimeActive
		}
		return domain.ErrPeriodActive
	}
	defer s.active.Store(false)

	if s.Period() >= s.cfg.Periods {
		return domain.ErrPeriodsComplete
	}
	if d.Exclusive() {
		s.realtime.Store(true)
		defer s.realtime.Store(false)
	}

	began := time.Now()

	s.setPhase(PhaseInitializing)
	number := int(s.period.Add(1))
	s.window = domain.NewPeriod(number, s.cfg.PeriodDuration)
	s.prices.Reset()
	s.pool.InitPeriod(s.window)
	s.engine.Clear()

	s.setPhase(PhaseAdvancing)
	if err := d.Advance(ctx, substrate{s}); err != nil {
		s.setPhase(PhaseIdle)
		return fmt.Errorf("period %d (%s): %w", number, d.Name(), err)
	}

	s.setPhase(PhaseFinalizing)
	if err := s.finalize(number); err != nil {
		s.setPhase(PhaseIdle)
		return fmt.Errorf("period %d: %w", number, err)
	}
	s.setPhase(PhaseComplete)

	level := slog.LevelInfo
	if s.cfg.Silent {
		level = slog.LevelDebug
	}
	s.logger.Log(ctx, level, "period complete",
		slog.Int("period", number),
		slog.String("driver", d.Name()),
		slog.Int("trades", metrics.Volume(s.prices.Snapshot())),
		slog.Duration("elapsed", time.Since(began)),
	)
	return nil
}

type pendingRow struct {
	log string
	row []any
}

// finalize settles the period and writes the derived rows. All rows are
// computed before any is written.
func (s *Simulation) finalize(number int) error {
	s.pool.EndPeriod()

	prices := s.prices.Snapshot()
	agents := s.pool.Agents()
	money := make([]float64, len(agents))
	for i, a := range agents {
		money[i] = a.Inventory().Money
	}

	profit := metrics.Profit(money)
	profitRow := make([]any, len(profit))
	for i, m := range profit {
		profitRow[i] = m
	}
	rows := []pendingRow{{LogProfit, profitRow}}
	if o, ok := metrics.PriceSummary(prices); ok {
		rows = append(rows, pendingRow{LogOHLC, []any{number, o.Open, o.High, o.Low, o.Close}})
	}
	rows = append(rows, pendingRow{LogVolume, []any{number, metrics.Volume(prices)}})
	if e, ok := metrics.EfficiencyOfAllocation(money, s.MaximumGainsFromTrade()); ok {
		rows = append(rows, pendingRow{LogEffalloc, []any{number, e}})
	}

	for _, r := range rows {
		sink, ok := s.logs[r.log]
		if !ok {
			continue
		}
		if err := sink.Write(r.row); err != nil {
			return fmt.Errorf("write %s row: %w", r.log, err)
		}
	}
	return nil
}

// substrate exposes the current period's pool and market to a driver.
type substrate struct {
	s *Simulation
}

func (b substrate) StartTime() float64 { return b.s.window.StartTime }

func (b substrate) EndTime() (float64, bool) { return b.s.pool.EndTime() }

func (b substrate) SyncRun(until float64) error {
	return b.s.pool.SyncRun(market{b.s}, until)
}

func (b substrate) RunBatch(until float64, n int) (bool, error) {
	return b.s.pool.RunBatch(market{b.s}, until, n)
}

// market is the agents' view of the engine. Each processing step
// drains the engine's events through the recorders.
type market struct {
	s *Simulation
}

func (m market) Submit(order domain.Order) { m.s.engine.Submit(order) }

func (m market) Quote() domain.Quote { return m.s.engine.Quote() }

func (m market) Process() (bool, error) {
	more := m.s.engine.Process()
	for _, ev := range m.s.engine.Events() {
		if err := m.s.reduce(ev); err != nil {
			return false, err
		}
	}
	return more, nil
}

// reduce applies one engine event: trades are recorded then settled,
// orders are logged.
func (s *Simulation) reduce(ev domain.Event) error {
	switch ev.Kind {
	case domain.EventTrade:
		if ev.Trade == nil {
			return &domain.TradeError{Err: domain.ErrTradeShape}
		}
		buyerID, sellerID, err := s.trades.Record(*ev.Trade)
		if err != nil {
			return err
		}
		return s.pool.Settle(buyerID, sellerID, ev.Trade.Prices[0])
	case domain.EventOrderAccepted, domain.EventOrderRejected:
		if ev.Order == nil {
			return nil
		}
		return s.orders.Record(*ev.Order, ev.Kind == domain.EventOrderRejected)
	}
	return nil
}

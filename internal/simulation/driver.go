package simulation

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/time/rate"

	"github.com/efreitasn/dasim/internal/domain"
)

// Substrate is the agent/market pair a driver advances through
// simulated time.
type Substrate interface {
	StartTime() float64
	EndTime() (float64, bool)
	SyncRun(until float64) error
	RunBatch(until float64, n int) (bool, error)
}

// Driver advances one period's substrate to its end time under one
// timing discipline. Exclusive drivers hold the simulation's real-time
// guard while they run.
type Driver interface {
	Name() string
	Exclusive() bool
	Advance(ctx context.Context, sub Substrate) error
}

func endTime(sub Substrate) (float64, error) {
	end, ok := sub.EndTime()
	if !ok || math.IsNaN(end) || math.IsInf(end, 0) {
		return 0, domain.ErrMissingEndTime
	}
	return end, nil
}

// Immediate runs every pending agent action up to the end time in one
// blocking call.
type Immediate struct{}

func (Immediate) Name() string    { return "sync" }
func (Immediate) Exclusive() bool { return false }

func (Immediate) Advance(ctx context.Context, sub Substrate) error {
	end, err := endTime(sub)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return sub.SyncRun(end)
}

const defaultBatchSize = 100

// Cooperative runs agent actions in batches and yields the processor
// between batches. Ordering matches Immediate.
type Cooperative struct {
	BatchSize int
}

func (Cooperative) Name() string    { return "cooperative" }
func (Cooperative) Exclusive() bool { return false }

func (c Cooperative) Advance(ctx context.Context, sub Substrate) error {
	end, err := endTime(sub)
	if err != nil {
		return err
	}
	n := c.BatchSize
	if n <= 0 {
		n = defaultBatchSize
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := sub.RunBatch(end, n)
		if err != nil || !more {
			return err
		}
		runtime.Gosched()
	}
}

const (
	defaultTick = 40 * time.Millisecond
	defaultUnit = time.Second
)

// WallClock paces simulated time to the wall clock. Each tick advances
// the substrate to the elapsed simulated time; the tick that reaches the
// end time runs to the end and stops.
type WallClock struct {
	Tick   time.Duration    // poll interval
	Unit   time.Duration    // wall time per simulated time unit
	Now    func() time.Time // defaults to time.Now
	Logger *slog.Logger
}

func (WallClock) Name() string    { return "realtime" }
func (WallClock) Exclusive() bool { return true }

func (w WallClock) Advance(ctx context.Context, sub Substrate) error {
	end, err := endTime(sub)
	if err != nil {
		return err
	}
	tick, unit, now := w.Tick, w.Unit, w.Now
	if tick <= 0 {
		tick = defaultTick
	}
	if unit <= 0 {
		unit = defaultUnit
	}
	if now == nil {
		now = time.Now
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// origin maps to the period's start time.
	start := sub.StartTime()
	origin := now()
	progress := rate.Sometimes{Interval: time.Second}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		elapsed := start + float64(now().Sub(origin))/float64(unit)
		if elapsed >= end {
			return sub.SyncRun(end)
		}
		if err := sub.SyncRun(elapsed); err != nil {
			return err
		}
		progress.Do(func() {
			logger.Debug("realtime progress",
				slog.Float64("t", elapsed),
				slog.Float64("end", end),
			)
		})
	}
}

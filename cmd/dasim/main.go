package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/dasim/internal/config"
	"github.com/efreitasn/dasim/internal/handler"
	"github.com/efreitasn/dasim/internal/report"
	"github.com/efreitasn/dasim/internal/simulation"
	"github.com/efreitasn/dasim/internal/store"
)

func main() {
	configPath := flag.String("config", "dasim.yaml", "Path to the simulation YAML file")
	sync := flag.Bool("sync", false, "Run every period immediately, ignoring real-time settings")
	verbose := flag.Bool("verbose", false, "Log at debug level")
	format := flag.String("format", "", "Log format: text or json (overrides config)")
	serve := flag.String("serve", "", "Serve run status and logs over HTTP on this address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *sync {
		cfg.Run.Sync = true
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *format != "" {
		cfg.Log.Format = *format
	}
	if *serve != "" {
		cfg.Server.Addr = *serve
	}
	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	names := simulation.LogNames(cfg.Simulation.WithoutOrderLogs)
	tables, sinks, closeSinks, err := openSinks(ctx, cfg.Storage, names)
	if err != nil {
		logger.Error("failed to open log sinks", "err", err, "sink", cfg.Storage.Sink)
		os.Exit(1)
	}
	defer closeSinks()

	sim, err := simulation.New(&cfg.Simulation, simulation.Deps{Logs: sinks, Logger: logger})
	if err != nil {
		logger.Error("failed to create simulation", "err", err)
		os.Exit(1)
	}

	logger.Info("dasim starting",
		"config", *configPath,
		"periods", cfg.Simulation.Periods,
		"buyers", cfg.Simulation.BuyerCount(),
		"sellers", cfg.Simulation.SellerCount(),
		"sink", cfg.Storage.Sink,
		"max_gains", sim.MaximumGainsFromTrade(),
	)

	progress := handler.NewProgress(cfg.Simulation.Periods)
	var srv *http.Server
	if cfg.Server.Addr != "" {
		srv = &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: handler.NewRouter(tables, progress, logger),
		}
		go func() {
			logger.Info("server starting", "addr", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server error", "err", err)
			}
		}()
	}

	done := sim.Start(ctx, simulation.RunOptions{
		Sync:      cfg.Run.Sync,
		Update:    func(s *simulation.Simulation) { progress.SetPeriod(s.Period()) },
		Delay:     cfg.Run.Delay,
		BatchSize: cfg.Run.BatchSize,
		Tick:      cfg.Run.Tick,
		TimeUnit:  cfg.Run.TimeUnit,
	})
	runErr := <-done
	progress.Finish(runErr)

	switch {
	case runErr == nil:
		logger.Info("simulation complete", "periods", sim.Period())
	case errors.Is(runErr, context.Canceled):
		logger.Info("simulation interrupted", "period", sim.Period())
	default:
		logger.Error("simulation failed", "err", runErr, "period", sim.Period())
	}

	if !cfg.Simulation.Silent {
		err := report.NewConsole().PrintPeriods(report.PeriodLogs{
			Volume:   tables[simulation.LogVolume],
			OHLC:     tables[simulation.LogOHLC],
			Effalloc: tables[simulation.LogEffalloc],
		})
		if err != nil {
			logger.Error("failed to print report", "err", err)
		}
	}

	if srv != nil && runErr == nil {
		// Keep serving the finished run until interrupted.
		<-ctx.Done()
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
		logger.Info("server stopped")
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		closeSinks()
		os.Exit(1)
	}
}

// openSinks creates an in-memory table per log, teed into the configured
// persistent sink. The returned close func is safe to call twice.
func openSinks(ctx context.Context, cfg config.StorageConfig, names []string) (map[string]store.Table, map[string]simulation.LogSink, func(), error) {
	tables := make(map[string]store.Table, len(names))
	sinks := make(map[string]simulation.LogSink, len(names))
	mem := make(map[string]*store.MemorySink, len(names))
	for _, name := range names {
		m := store.NewMemorySink()
		mem[name] = m
		tables[name] = m
		sinks[name] = m
	}

	closeFn := func() {}
	switch cfg.Sink {
	case "csv":
		dir, err := store.OpenCSVDir(cfg.Dir, names)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, name := range names {
			sinks[name] = store.NewTeeSink(mem[name], dir.Sinks[name])
		}
		closeFn = func() { dir.Close() }
	case "sqlite":
		db, err := store.OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("sqlite run", "run_id", db.RunID(), "dsn", cfg.DSN)
		for _, name := range names {
			sinks[name] = store.NewTeeSink(mem[name], db.Sink(name))
		}
		closeFn = func() { db.Close() }
	}

	var closed bool
	return tables, sinks, func() {
		if !closed {
			closed = true
			closeFn()
		}
	}, nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

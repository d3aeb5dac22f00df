// segsim runs the waste-segregation compliance simulator: it builds the
// district world from a scenario, steps it on the tick engine, persists
// state to SQLite at quarter boundaries, and serves the controller API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mlucero/segsim/internal/api"
	"github.com/mlucero/segsim/internal/config"
	"github.com/mlucero/segsim/internal/engine"
	"github.com/mlucero/segsim/internal/persistence"
)

func main() {
	var (
		configPath  = flag.String("config", "", "scenario YAML file (built-in defaults if empty)")
		dbPath      = flag.String("db", "segsim.db", "SQLite database path")
		port        = flag.Int("port", 8080, "HTTP API port")
		seed        = flag.Int64("seed", 0, "override scenario seed (0 = use scenario)")
		speed       = flag.Float64("speed", 1.0, "initial engine speed multiplier")
		resume      = flag.Bool("resume", false, "restore household state from the database")
		keepRunning = flag.Bool("keep-running", false, "continue past the episode horizon")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("scenario load failed", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid scenario", "error", err)
		os.Exit(1)
	}

	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ledger, err := engine.BuildWorld(cfg)
	if err != nil {
		slog.Error("world build failed", "error", err)
		os.Exit(1)
	}

	if *resume && db.HasState() {
		n, err := db.RestoreHouseholds(ledger)
		if err != nil {
			slog.Error("restore failed", "error", err)
			os.Exit(1)
		}
		if err := db.RestoreLedger(ledger); err != nil {
			slog.Error("restore failed", "error", err)
			os.Exit(1)
		}
		slog.Info("state restored",
			"run_id", ledger.RunID,
			"households", n,
			"step", ledger.Steps,
			"cash_balance", ledger.CashBalance)
	}

	eng := engine.NewEngine(cfg.QuarterLength)
	eng.Speed = *speed

	ledger.OnQuarterEnd = func(reports []engine.QuarterReport) {
		fmt.Print(engine.RenderReports(reports))
		if err := db.SaveReports(reports); err != nil {
			slog.Error("report save failed", "error", err)
		}
	}

	eng.OnTick = func(tick uint64) {
		ledger.Step()
		if ledger.Done() && !*keepRunning {
			slog.Info("episode horizon reached",
				"quarters", ledger.MaxQuarters,
				"avg_reward", ledger.CalculateReward())
			eng.Stop()
		}
	}
	eng.OnQuarter = func(tick uint64) {
		if err := db.SaveRunState(ledger); err != nil {
			slog.Error("state save failed", "error", err)
		}
	}

	server := &api.Server{
		Ledger:   ledger,
		Eng:      eng,
		DB:       db,
		Port:     *port,
		AdminKey: os.Getenv("SEGSIM_ADMIN_KEY"),
	}
	server.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		eng.Stop()
	}()

	eng.Run()

	if err := db.SaveRunState(ledger); err != nil {
		slog.Error("final save failed", "error", err)
	}
	slog.Info("run finished",
		"steps", ledger.Steps,
		"fines_collected", ledger.FinesCollected,
		"incentives_paid", ledger.IncentivesPaid)
}

package engine

import (
	"fmt"
	"log/slog"

	"github.com/mlucero/segsim/internal/agents"
	"github.com/mlucero/segsim/internal/config"
	"github.com/mlucero/segsim/internal/grid"
	"github.com/mlucero/segsim/internal/policy"
)

// BuildWorld turns a scenario into a runnable ledger: grid, districts, and a
// clustered starting population. The same scenario always builds the same
// world.
func BuildWorld(cfg config.Scenario) (*Ledger, error) {
	mode, err := cfg.TargetMode()
	if err != nil {
		return nil, err
	}

	g := grid.New(cfg.GridWidth, cfg.GridHeight)
	spawner := agents.NewSpawner(cfg.Seed)
	params := cfg.Behavior

	split := Split{Edu: cfg.DefaultSplit.Edu, Enf: cfg.DefaultSplit.Enf, Inc: cfg.DefaultSplit.Inc}
	ledger := NewLedger(g, nil, &params, cfg.Seed, cfg.QuarterLength, cfg.MaxQuarters,
		cfg.QuarterlyBudget, split, cfg.Capital.Alpha, cfg.Capital.Beta)

	for i, d := range cfg.Districts {
		id := uint64(i + 1)
		region, err := policy.NewRegion(id, d.Name, d.Center, cfg.FineAmount, cfg.Costs, ledger, mode)
		if err != nil {
			return nil, fmt.Errorf("build world: %w", err)
		}
		hh, err := spawner.SpawnHouseholds(g, d.Households, id, d.Center, d.InitialCompliance, &params)
		if err != nil {
			return nil, fmt.Errorf("build world: %w", err)
		}
		region.Households = hh
		ledger.Regions = append(ledger.Regions, region)

		slog.Info("district seeded",
			"name", d.Name,
			"households", len(hh),
			"initial_compliance", d.InitialCompliance)
	}

	slog.Info("world built",
		"districts", len(ledger.Regions),
		"population", g.Count(),
		"seed", cfg.Seed,
		"run_id", ledger.RunID)
	return ledger, nil
}

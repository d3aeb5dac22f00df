// Package engine drives the simulation: a paced tick loop and the Ledger
// that owns world state, budget flow, and the controller-facing observation
// and reward surface.
package engine

import (
	"fmt"
	"log/slog"
	"time"
)

// Engine advances the ledger on a wall-clock cadence. One tick is one
// simulated day; a quarter is QuarterTicks days.
type Engine struct {
	Tick     uint64
	Speed    float64       // multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // base tick interval
	Running  bool

	QuarterTicks uint64

	OnTick    func(tick uint64)
	OnQuarter func(tick uint64) // fires after the last tick of each quarter
}

// NewEngine creates an engine with default pacing.
func NewEngine(quarterTicks uint64) *Engine {
	return &Engine{
		Speed:        1.0,
		Interval:     time.Second,
		QuarterTicks: quarterTicks,
	}
}

// Run starts the loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.Running = true
	slog.Info("engine started", "tick", e.Tick, "speed", e.Speed)

	for e.Running {
		if e.Speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.step()

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("engine stopped", "tick", e.Tick)
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.Running = false
}

func (e *Engine) step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
	if e.Tick%e.QuarterTicks == 0 && e.OnQuarter != nil {
		e.OnQuarter(e.Tick)
	}
}

// SimTime renders a tick as simulation time, e.g. "Y1 Q2 day 37".
func SimTime(tick, quarterTicks uint64) string {
	if quarterTicks == 0 {
		return fmt.Sprintf("tick %d", tick)
	}
	quarters := tick / quarterTicks
	day := tick%quarterTicks + 1
	return fmt.Sprintf("Y%d Q%d day %d", quarters/4+1, quarters%4+1, day)
}

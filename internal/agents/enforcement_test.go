package agents

import (
	"testing"

	"github.com/mlucero/segsim/internal/grid"
)

func placeViolator(t *testing.T, g *grid.Grid, id HouseholdID, c grid.Cell, params *BehaviorParams) *Household {
	t.Helper()
	h := mustHousehold(t, id, params)
	h.Compliant = false
	h.Utility = 0.1
	h.Position = c
	if err := g.Place(h, c); err != nil {
		t.Fatalf("place violator: %v", err)
	}
	return h
}

func TestPursuitClosesOnNearestViolator(t *testing.T) {
	params := DefaultBehaviorParams()
	g := grid.New(30, 30)

	near := placeViolator(t, g, 1, grid.Cell{X: 18, Y: 15}, &params)
	far := placeViolator(t, g, 2, grid.Cell{X: 11, Y: 15}, &params)

	u := NewUnit(1, ModePursuit, params.PatrolRange, params.CatchRadius)
	u.Position = grid.Cell{X: 15, Y: 15}
	g.Place(u, u.Position)

	env := testEnv(g, &stubRegion{fine: 500}, 1)
	env.Violators = []*Household{near, far}

	before := u.Position.DistanceTo(near.Position)
	u.Step(env)
	after := u.Position.DistanceTo(near.Position)
	if after >= before {
		t.Fatalf("distance to nearest violator grew: %f -> %f", before, after)
	}
}

func TestPursuitTieBreaksToLowestID(t *testing.T) {
	params := DefaultBehaviorParams()
	g := grid.New(30, 30)

	left := placeViolator(t, g, 3, grid.Cell{X: 12, Y: 15}, &params)
	right := placeViolator(t, g, 7, grid.Cell{X: 18, Y: 15}, &params)

	u := NewUnit(1, ModePursuit, params.PatrolRange, params.CatchRadius)
	u.Position = grid.Cell{X: 15, Y: 15}
	g.Place(u, u.Position)

	env := testEnv(g, &stubRegion{fine: 500}, 1)
	// Callers supply violators ordered by ID.
	env.Violators = []*Household{left, right}

	target, ok := u.pursuitTarget(env)
	if !ok {
		t.Fatal("no target found")
	}
	if target != left.Position {
		t.Fatalf("target %v, want lowest-ID violator at %v", target, left.Position)
	}
}

func TestViolatorsOutsidePatrolRangeIgnored(t *testing.T) {
	params := DefaultBehaviorParams()
	g := grid.New(40, 40)

	distant := placeViolator(t, g, 1, grid.Cell{X: 35, Y: 35}, &params)

	u := NewUnit(1, ModePursuit, params.PatrolRange, params.CatchRadius)
	u.Position = grid.Cell{X: 5, Y: 5}
	g.Place(u, u.Position)

	env := testEnv(g, &stubRegion{fine: 500}, 1)
	env.Violators = []*Household{distant}

	if _, ok := u.pursuitTarget(env); ok {
		t.Fatal("found a target beyond patrol range")
	}
}

func TestCitationsWithinCatchRadius(t *testing.T) {
	params := DefaultBehaviorParams()
	g := grid.New(30, 30)

	adjacent := placeViolator(t, g, 1, grid.Cell{X: 16, Y: 16}, &params)
	outside := placeViolator(t, g, 2, grid.Cell{X: 19, Y: 15}, &params)

	u := NewUnit(1, ModePursuit, params.PatrolRange, params.CatchRadius)
	u.Position = grid.Cell{X: 15, Y: 15}

	sink := &stubSink{}
	env := testEnv(g, &stubRegion{fine: 500}, 1)
	env.Fines = sink
	env.Violators = []*Household{adjacent, outside}

	u.issueCitations(env)

	if sink.count != 1 || sink.total != 500 {
		t.Fatalf("sink: %d fines totaling %f, want 1 totaling 500", sink.count, sink.total)
	}
	if adjacent.Utility >= 0.1 {
		t.Fatal("adjacent violator not fined")
	}
	if outside.Utility != 0.1 {
		t.Fatal("out-of-range violator fined")
	}
}

func TestPatrolStaysOnGrid(t *testing.T) {
	params := DefaultBehaviorParams()
	g := grid.New(8, 8)

	u := NewUnit(1, ModePursuit, params.PatrolRange, params.CatchRadius)
	u.Position = grid.Cell{X: 0, Y: 0}
	g.Place(u, u.Position)

	env := testEnv(g, &stubRegion{fine: 500}, 11)
	for i := 0; i < 300; i++ {
		u.Step(env)
		if !g.InBounds(u.Position) {
			t.Fatalf("step %d: unit walked off grid to %v", i, u.Position)
		}
		if at, _ := g.At(u); at != u.Position {
			t.Fatalf("step %d: grid position %v desynced from %v", i, at, u.Position)
		}
	}
}

func TestSweepVisitsAndResets(t *testing.T) {
	params := DefaultBehaviorParams()
	g := grid.New(20, 20)

	a := placeViolator(t, g, 1, grid.Cell{X: 10, Y: 10}, &params)
	a.Compliant = true // sweep targets everyone, not just violators
	b := placeViolator(t, g, 2, grid.Cell{X: 12, Y: 10}, &params)
	b.Compliant = true

	u := NewUnit(1, ModeSweep, params.PatrolRange, params.CatchRadius)
	u.Position = grid.Cell{X: 10, Y: 10}
	g.Place(u, u.Position)

	env := testEnv(g, &stubRegion{fine: 500}, 5)

	// Standing on a household marks it visited; the next target is the
	// other one.
	target, ok := u.sweepTarget(env)
	if !ok {
		t.Fatal("sweep found no target")
	}
	if !u.visited[a.ID] {
		t.Fatal("co-located household not marked visited")
	}
	if target != b.Position {
		t.Fatalf("target %v, want unvisited household at %v", target, b.Position)
	}

	// Exhaust the memory and confirm the sweep restarts.
	u.visited[b.ID] = true
	if _, ok := u.sweepTarget(env); !ok {
		t.Fatal("sweep did not reset after visiting everyone")
	}
	if len(u.visited) > 1 {
		t.Fatalf("visited memory not cleared: %d entries", len(u.visited))
	}
}

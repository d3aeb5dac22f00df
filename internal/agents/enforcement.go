package agents

import "github.com/mlucero/segsim/internal/grid"

// Step moves the unit one cell and fines every violator left in catch range.
// Pursuit mode chases the nearest known violator; sweep mode works through
// every household in the region once before starting over. With no target the
// unit random-walks on the ledger's generator.
func (u *Unit) Step(env *Env) {
	target, ok := u.pickTarget(env)
	if ok {
		u.moveToward(env.Grid, target)
	} else {
		u.randomWalk(env)
	}
	u.issueCitations(env)
}

// pickTarget returns the cell the unit should close on this step.
func (u *Unit) pickTarget(env *Env) (grid.Cell, bool) {
	switch u.Mode {
	case ModeSweep:
		return u.sweepTarget(env)
	default:
		return u.pursuitTarget(env)
	}
}

// pursuitTarget finds the nearest violator within patrol range. Violators
// arrive ordered by ID, so distance ties resolve to the lowest ID.
func (u *Unit) pursuitTarget(env *Env) (grid.Cell, bool) {
	best := grid.Cell{}
	bestDist := float64(u.PatrolRange) + 1
	found := false
	for _, v := range env.Violators {
		d := u.Position.DistanceTo(v.Position)
		if d > float64(u.PatrolRange) {
			continue
		}
		if d < bestDist {
			best, bestDist, found = v.Position, d, true
		}
	}
	return best, found
}

// sweepTarget heads for the nearest in-range household the unit hasn't
// visited yet. Once no unvisited household remains in reach the memory
// clears and the sweep starts over.
func (u *Unit) sweepTarget(env *Env) (grid.Cell, bool) {
	pick := func() (grid.Cell, bool) {
		best := grid.Cell{}
		bestDist := 0.0
		found := false
		for _, occ := range env.Grid.Neighbors(u.Position, u.PatrolRange) {
			h, ok := occ.(*Household)
			if !ok || h.RegionID != u.RegionID || u.visited[h.ID] {
				continue
			}
			if u.Position == h.Position {
				u.visited[h.ID] = true
				continue
			}
			d := u.Position.DistanceTo(h.Position)
			if !found || d < bestDist {
				best, bestDist, found = h.Position, d, true
			}
		}
		return best, found
	}

	if c, ok := pick(); ok {
		return c, ok
	}
	u.visited = make(map[HouseholdID]bool)
	return pick()
}

// moveToward takes the single legal step that most reduces Euclidean distance
// to the target. Ties resolve in grid scan order.
func (u *Unit) moveToward(space Space, target grid.Cell) {
	best := u.Position
	bestDist := u.Position.DistanceTo(target)
	for _, c := range space.LegalMoves(u.Position) {
		if d := c.DistanceTo(target); d < bestDist {
			best, bestDist = c, d
		}
	}
	if best != u.Position {
		space.Move(u, best)
		u.Position = best
	}
}

// randomWalk drifts one cell in a uniformly chosen legal direction.
func (u *Unit) randomWalk(env *Env) {
	moves := env.Grid.LegalMoves(u.Position)
	if len(moves) == 0 {
		return
	}
	c := moves[env.Rand.Intn(len(moves))]
	env.Grid.Move(u, c)
	u.Position = c
}

// issueCitations fines every same-region violator within catch radius. No
// discretion and no per-step limit: each violator in range is cited.
func (u *Unit) issueCitations(env *Env) {
	fine := env.Region.FineAmount()
	for _, v := range env.Violators {
		if v.Compliant {
			continue // already flipped by an earlier citation this step
		}
		if u.Position.DistanceTo(v.Position) <= float64(u.CatchRadius)+0.5 {
			v.GetFined(env.Fines, fine)
			if u.Mode == ModeSweep {
				u.visited[v.ID] = true
			}
		}
	}
}

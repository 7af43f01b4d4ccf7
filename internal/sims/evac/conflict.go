package evac

import "evac-ca/internal/core"

// cellConflict records the pedestrians targeting one cell. allowed keeps the
// id of the winner, or noneAllowed when the draw denied everyone.
type cellConflict struct {
	ids     []int
	allowed int
}

// noneAllowed marks a conflict where no pedestrian was allowed to move.
const noneAllowed = -1

// conflictWeights feeds the winner draw; a conflict never exceeds the eight
// cells around a target.
var conflictWeights = [8]float64{1, 1, 1, 1, 1, 1, 1, 1}

// identifyConflicts finds the groups of moving pedestrians that target the
// same cell. Each moving pedestrian writes its id into the scratch grid at
// its target; a collision with a positive id opens a two-party conflict and
// replaces the cell with the negated 1-based conflict index, which later
// colliders use to join the record.
func (w *World) identifyConflicts() []cellConflict {
	grid := w.conflictScratch
	grid.Fill(0)

	conflicts := w.conflictBuffer[:0]

	for _, p := range w.peds.list {
		if p.State != Moving {
			continue
		}

		occupant := grid.At(p.Target.Lin, p.Target.Col)

		if occupant == 0 {
			grid.Set(p.Target.Lin, p.Target.Col, p.ID)
			continue
		}

		if occupant > 0 {
			conflicts = append(conflicts, cellConflict{
				ids:     append(make([]int, 0, 8), occupant, p.ID),
				allowed: noneAllowed,
			})
			grid.Set(p.Target.Lin, p.Target.Col, -len(conflicts))
			continue
		}

		record := &conflicts[-occupant-1]
		record.ids = append(record.ids, p.ID)
	}

	w.conflictBuffer = conflicts
	return conflicts
}

// resolveConflicts decides each conflict: with probability mu everyone is
// denied; otherwise one uniformly drawn winner moves and the rest stop.
func (w *World) resolveConflicts(conflicts []cellConflict) {
	for idx := range conflicts {
		conflict := &conflicts[idx]

		winner := noneAllowed
		if !core.ProbabilityTest(w.rng, w.cfg.Params.Mu) {
			winner = core.RouletteWheel(w.rng,
				conflictWeights[:len(conflict.ids)], float64(len(conflict.ids)))
		}

		if winner == noneAllowed {
			conflict.allowed = noneAllowed
		} else {
			conflict.allowed = conflict.ids[winner]
		}

		for i, id := range conflict.ids {
			if i != winner {
				w.peds.byID(id).State = Stopped
			}
		}
	}
}

// resolveXCrossings scans the grid top-left to bottom-right, examining each
// moving pedestrian against its right and lower neighbor, so every adjacent
// pair is considered exactly once. Pairs whose movement segments cross at an
// interior point have one participant denied by a coin flip.
func (w *World) resolveXCrossings() {
	for i := 0; i < w.lines; i++ {
		for j := 0; j < w.columns; j++ {
			id := w.positions.At(i, j)
			if id == 0 {
				continue
			}
			first := w.peds.byID(id)
			if first.State != Moving {
				continue
			}

			for _, mod := range [2]core.Coord{{Lin: 0, Col: 1}, {Lin: 1, Col: 0}} {
				lin, col := i+mod.Lin, j+mod.Col
				if !w.positions.InBounds(lin, col) {
					continue
				}
				other := w.positions.At(lin, col)
				if other == 0 {
					continue
				}
				second := w.peds.byID(other)
				if second.State != Moving {
					continue
				}

				if !segmentsFormXCrossing(first, second) {
					continue
				}

				loser := first
				if core.RouletteWheel(w.rng, conflictWeights[:2], 2) == 0 {
					loser = second
				}
				loser.State = Stopped
			}
		}
	}
}

// segmentsFormXCrossing reports whether the two pedestrians' current-to-
// target segments cross at a point strictly interior to both. Vertical
// segments, horizontal segments and equal slopes never form an X-crossing;
// identical segments fall into the parallel reject and are left to the
// same-target path. An intersection on a target cell is likewise a
// same-target conflict, handled elsewhere.
func segmentsFormXCrossing(a, b *Pedestrian) bool {
	// x is the column, y the line.
	ax0, ay0 := float64(a.Current.Col), float64(a.Current.Lin)
	ax1, ay1 := float64(a.Target.Col), float64(a.Target.Lin)
	bx0, by0 := float64(b.Current.Col), float64(b.Current.Lin)
	bx1, by1 := float64(b.Target.Col), float64(b.Target.Lin)

	if ax0 == ax1 || bx0 == bx1 {
		return false // vertical segment
	}

	slopeA := (ay1 - ay0) / (ax1 - ax0)
	slopeB := (by1 - by0) / (bx1 - bx0)
	if slopeA == 0 || slopeB == 0 || slopeA == slopeB {
		return false
	}

	interceptA := ay0 - slopeA*ax0
	interceptB := by0 - slopeB*bx0

	x := (interceptB - interceptA) / (slopeA - slopeB)
	y := slopeA*x + interceptA

	onTarget := func(tx, ty float64) bool {
		return floatEquals(x, tx) && floatEquals(y, ty)
	}
	if onTarget(ax1, ay1) || onTarget(bx1, by1) {
		return false
	}

	return strictlyBetween(x, ax0, ax1) && strictlyBetween(y, ay0, ay1) &&
		strictlyBetween(x, bx0, bx1) && strictlyBetween(y, by0, by1)
}

func floatEquals(a, b float64) bool {
	diff := a - b
	return diff < core.Tolerance && diff > -core.Tolerance
}

func strictlyBetween(v, bound0, bound1 float64) bool {
	if bound0 > bound1 {
		bound0, bound1 = bound1, bound0
	}
	return v > bound0+core.Tolerance && v < bound1-core.Tolerance
}

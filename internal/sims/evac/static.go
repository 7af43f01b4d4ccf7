package evac

import (
	"math"

	"evac-ca/internal/core"
)

// computeZhengField fills dst with the inverse-distance attraction field over
// the given exit cells: v = 1/(d+1) for every passable cell, normalized so
// the finite entries form a distribution. Walls, fire cells and blocked exit
// cells keep a zero entry; their impassability is read from the kind grids,
// never from the field itself. Exit cells receive a value too (d = 0).
func (w *World) computeZhengField(cells []core.Coord, dst *core.FloatGrid) {
	dst.Fill(0)

	sum := 0.0
	for i := 0; i < w.lines; i++ {
		for j := 0; j < w.columns; j++ {
			overlay := w.exitsOnly.At(i, j)
			if overlay != core.CellExit {
				if overlay == core.CellBlockedExit {
					continue
				}
				if w.env.Obstacles().At(i, j) == core.CellWall {
					continue
				}
				if w.fire.grid.At(i, j) == core.CellFire {
					continue
				}
			}

			best := -1.0
			for _, c := range cells {
				d := core.Distance(c, core.Coord{Lin: i, Col: j})
				if best < 0 || d < best {
					best = d
				}
			}
			if best < 0 {
				continue // no exit cell remains
			}

			v := 1 / (best + 1)
			dst.Set(i, j, v)
			sum += v
		}
	}

	if sum != 0 {
		dst.Scale(1 / sum)
	}
}

// computeStaticWeight relaxes the exit's private weight grid: exit cells seed
// the relaxation at 1.0 and every passable 8-neighbor receives the smallest
// of value+1 (axial) or value+diagonal, until a full sweep changes nothing.
// Returns ErrInaccessibleExit when no exit cell has a passable axial
// neighbor; the relaxation is then not performed.
func (w *World) computeStaticWeight(e *Exit) error {
	rule := [3][3]float64{
		{w.cfg.Params.Diagonal, 1.0, w.cfg.Params.Diagonal},
		{1.0, 0.0, 1.0},
		{w.cfg.Params.Diagonal, 1.0, w.cfg.Params.Diagonal},
	}

	e.weight.Fill(0)
	for _, c := range e.coords {
		e.weight.Set(c.Lin, c.Col, 1.0)
	}

	if !e.accessible() {
		return ErrInaccessibleExit
	}

	aux := w.scratchFloat
	aux.CopyFrom(e.weight)

	for changed := true; changed; {
		changed = false
		for i := 0; i < w.lines; i++ {
			for j := 0; j < w.columns; j++ {
				value := e.weight.At(i, j)
				if value == 0 || e.structure.At(i, j) == core.CellWall {
					continue
				}

				for di := -1; di < 2; di++ {
					if !e.structure.InLines(i + di) {
						continue
					}
					for dj := -1; dj < 2; dj++ {
						if !e.structure.InColumns(j + dj) {
							continue
						}
						kind := e.structure.At(i+di, j+dj)
						if kind == core.CellWall || kind == core.CellExit {
							continue
						}
						if di != 0 && dj != 0 {
							if !core.DiagonalPassable(e.structure,
								core.Coord{Lin: i, Col: j},
								core.Coord{Lin: di, Col: dj},
								w.cfg.Params.PreventCornerCrossing) {
								continue
							}
						}

						candidate := value + rule[1+di][1+dj]
						current := aux.At(i+di, j+dj)
						if current == 0 || candidate < current {
							aux.Set(i+di, j+dj, candidate)
							changed = true
						}
					}
				}
			}
		}
		e.weight.CopyFrom(aux)
	}

	return nil
}

// computeAllStaticWeights prepares every exit's private weight grid and
// verifies accessibility. The Zheng variant needs only the accessibility
// check; the Varas variant keeps the relaxed weights for the global field.
func (w *World) computeAllStaticWeights() error {
	if len(w.exits.exits) == 0 {
		return ErrInaccessibleExit
	}
	for _, e := range w.exits.exits {
		if w.cfg.Params.StaticField == StaticVaras {
			if err := w.computeStaticWeight(e); err != nil {
				return err
			}
			continue
		}
		if !e.accessible() {
			return ErrInaccessibleExit
		}
	}
	return nil
}

// computeVarasField assembles the global static field from the per-exit
// weights: each cell takes the minimum weight over the non-blocked exits,
// negated, so the uniform exp(ks*S) preference favors low-weight cells.
func (w *World) computeVarasField(dst *core.FloatGrid) {
	dst.Fill(0)
	for i := 0; i < w.lines; i++ {
		for j := 0; j < w.columns; j++ {
			best := math.Inf(1)
			for _, e := range w.exits.exits {
				if e.blockedByFire {
					continue
				}
				v := e.weight.At(i, j)
				if v > 0 && v < best {
					best = v
				}
			}
			if !math.IsInf(best, 1) {
				dst.Set(i, j, -best)
			}
		}
	}
}

// recomputeStaticField refreshes the global static field and the
// distance-to-exits grid over the exits not sealed by fire.
func (w *World) recomputeStaticField() {
	cells := w.exits.nonBlockedCells()
	switch w.cfg.Params.StaticField {
	case StaticVaras:
		w.computeVarasField(w.exits.staticField)
	default:
		w.computeZhengField(cells, w.exits.staticField)
	}
	w.exits.computeExitDistances(w.env.Obstacles(), cells)
}

package evac

import (
	"sort"

	"evac-ca/internal/core"
)

// fireState bundles the fire grids: the active grid, its ping-pong partner,
// the Euclidean distance-to-fire grid and the risk classification.
type fireState struct {
	grid     *core.ByteGrid
	next     *core.ByteGrid
	distance *core.FloatGrid
	risk     *core.ByteGrid
	present  bool
}

func newFireState(lines, columns int) *fireState {
	return &fireState{
		grid:     core.NewByteGrid(lines, columns),
		next:     core.NewByteGrid(lines, columns),
		distance: core.NewFloatGrid(lines, columns),
		risk:     core.NewByteGrid(lines, columns),
	}
}

// propagate advances the fire frontier once: every fire cell remains fire and
// every 8-neighbor that is not a wall ignites. Exit cells are walls in the
// obstacle grid, so the frontier stops at them. The fresh grid replaces the
// active one through the two-buffer swap.
func (f *fireState) propagate(obstacles *core.ByteGrid) {
	f.next.Fill(core.CellEmpty)

	for i := 0; i < f.grid.L; i++ {
		for j := 0; j < f.grid.C; j++ {
			if f.grid.At(i, j) != core.CellFire {
				continue
			}
			f.next.Set(i, j, core.CellFire)

			for _, mod := range core.MooreOffsets {
				lin, col := i+mod.Lin, j+mod.Col
				if !f.grid.InBounds(lin, col) {
					continue
				}
				if obstacles.At(lin, col) != core.CellEmpty {
					continue
				}
				f.next.Set(lin, col, core.CellFire)
			}
		}
	}

	f.grid, f.next = f.next, f.grid
}

// coordinateSet groups the secondary coordinates sharing one main coordinate:
// all fire columns of one line, or all fire lines of one column.
type coordinateSet struct {
	main      int
	secondary []int
}

// extractFireSets builds the per-line (byLine) or per-column coordinate sets
// of the current fire cells, main coordinates ascending.
func (f *fireState) extractFireSets(byLine bool) []coordinateSet {
	var sets []coordinateSet
	firstLimit, secondLimit := f.grid.L, f.grid.C
	if !byLine {
		firstLimit, secondLimit = f.grid.C, f.grid.L
	}

	for i := 0; i < firstLimit; i++ {
		for j := 0; j < secondLimit; j++ {
			lin, col := i, j
			if !byLine {
				lin, col = j, i
			}
			if f.grid.At(lin, col) != core.CellFire {
				continue
			}
			if len(sets) == 0 || sets[len(sets)-1].main != i {
				sets = append(sets, coordinateSet{main: i})
			}
			last := &sets[len(sets)-1]
			last.secondary = append(last.secondary, j)
		}
	}
	return sets
}

// adjacentSets returns the up to three coordinate sets whose main coordinates
// bracket the given coordinate, found by binary search.
func adjacentSets(sets []coordinateSet, coordinate int) []int {
	n := len(sets)
	if n == 0 {
		return nil
	}
	idx := sort.Search(n, func(i int) bool { return sets[i].main >= coordinate })

	if idx < n && sets[idx].main == coordinate {
		out := make([]int, 0, 3)
		if idx > 0 {
			out = append(out, idx-1)
		}
		out = append(out, idx)
		if idx+1 < n {
			out = append(out, idx+1)
		}
		return out
	}
	if idx == 0 {
		return []int{0}
	}
	if idx == n {
		return []int{n - 1}
	}
	return []int{idx - 1, idx}
}

// adjacentSecondary returns the up to three secondary coordinates bracketing
// the given coordinate inside one set.
func adjacentSecondary(set coordinateSet, coordinate int) []int {
	n := len(set.secondary)
	if n == 0 {
		return nil
	}
	idx := sort.Search(n, func(i int) bool { return set.secondary[i] >= coordinate })

	if idx < n && set.secondary[idx] == coordinate {
		out := make([]int, 0, 3)
		if idx > 0 {
			out = append(out, set.secondary[idx-1])
		}
		out = append(out, set.secondary[idx])
		if idx+1 < n {
			out = append(out, set.secondary[idx+1])
		}
		return out
	}
	if idx == 0 {
		return []int{set.secondary[0]}
	}
	if idx == n {
		return []int{set.secondary[n-1]}
	}
	return []int{set.secondary[idx-1], set.secondary[idx]}
}

// computeDistances fills the distance grid with the Euclidean distance from
// every cell to the nearest fire cell; cells inside fire keep zero. Instead
// of scanning all fire cells per target, the candidate search is bounded to
// the bracketing fire lines and columns found by binary search.
func (f *fireState) computeDistances() {
	f.distance.Fill(0)
	if !f.present {
		return
	}

	lineSets := f.extractFireSets(true)
	columnSets := f.extractFireSets(false)
	if len(lineSets) == 0 {
		return
	}

	for i := 0; i < f.grid.L; i++ {
		for j := 0; j < f.grid.C; j++ {
			if f.grid.At(i, j) == core.CellFire {
				continue
			}

			min := -1.0
			here := core.Coord{Lin: i, Col: j}

			for _, setIdx := range adjacentSets(lineSets, i) {
				set := lineSets[setIdx]
				for _, col := range adjacentSecondary(set, j) {
					d := core.Distance(here, core.Coord{Lin: set.main, Col: col})
					if min < 0 || d < min {
						min = d
					}
				}
			}
			for _, setIdx := range adjacentSets(columnSets, j) {
				set := columnSets[setIdx]
				for _, lin := range adjacentSecondary(set, i) {
					d := core.Distance(here, core.Coord{Lin: lin, Col: set.main})
					if min < 0 || d < min {
						min = d
					}
				}
			}

			f.distance.Set(i, j, min)
		}
	}
}

// classifyRisk marks every passable cell within 1.5 of fire as danger, and
// additionally flags as risky the danger-range cells squeezed between the
// fire and a wall. Only walls within distance 3 of the fire are examined.
func (f *fireState) classifyRisk(obstacles *core.ByteGrid) {
	f.risk.Fill(core.RiskNone)
	if !f.present {
		return
	}

	for i := 0; i < f.grid.L; i++ {
		for j := 0; j < f.grid.C; j++ {
			if obstacles.At(i, j) == core.CellWall || f.grid.At(i, j) == core.CellFire {
				continue
			}
			if f.distance.At(i, j) < 1.5 {
				f.risk.Set(i, j, core.RiskDanger)
			}
		}
	}

	for i := 0; i < f.grid.L; i++ {
		for j := 0; j < f.grid.C; j++ {
			if obstacles.At(i, j) != core.CellWall || f.distance.At(i, j) > 3 {
				continue
			}
			for _, mod := range core.AxialOffsets {
				lin, col := i+mod.Lin, j+mod.Col
				if !f.grid.InBounds(lin, col) {
					continue
				}
				if obstacles.At(lin, col) == core.CellWall || f.grid.At(lin, col) == core.CellFire {
					continue
				}
				if f.distance.At(lin, col) < 1.5 {
					f.risk.Set(lin, col, core.RiskRisky)
				}
			}
		}
	}
}

// computeFireField refreshes the fire floor field: 1/distance for every cell
// within gamma of the fire that is neither fire nor a non-exit wall,
// normalized by the sum. Without fire the field is zero everywhere and the
// probability denominator defaults to 1.
func (w *World) computeFireField() {
	field := w.exits.fireField
	field.Fill(0)

	w.fire.computeDistances()

	if !w.fire.present {
		return
	}

	sum := 0.0
	for i := 0; i < w.lines; i++ {
		for j := 0; j < w.columns; j++ {
			d := w.fire.distance.At(i, j)
			if d > w.cfg.Params.FireGamma || d <= 0 {
				continue
			}
			if w.fire.grid.At(i, j) == core.CellFire {
				continue
			}
			if w.env.Obstacles().At(i, j) != core.CellEmpty &&
				w.exitsOnly.At(i, j) == core.CellEmpty {
				continue // walls stay zero; exit cells get a value
			}
			v := 1 / d
			field.Set(i, j, v)
			sum += v
		}
	}

	if sum != 0 {
		for i := range field.Cells() {
			if field.Cells()[i] != 0 {
				field.Cells()[i] /= sum
			}
		}
	}
}

package evac

import (
	"errors"
	"fmt"

	"evac-ca/internal/core"
)

// ErrInaccessibleExit marks a simulation set whose exits cannot be reached.
// The caller emits a placeholder result and moves to the next set.
var ErrInaccessibleExit = errors.New("exit is inaccessible")

// Exit is a door of one or more cells. Each exit owns a private view of the
// environment structure and a private static-weight grid, both reused across
// recalculations.
type Exit struct {
	coords        []core.Coord
	blockedByFire bool

	structure *core.ByteGrid  // obstacle layout with the exit cells marked
	weight    *core.FloatGrid // Varas static weight, relaxed from the exit
}

// Width returns the number of cells forming the exit.
func (e *Exit) Width() int { return len(e.coords) }

// Coords returns the ordered exit cells.
func (e *Exit) Coords() []core.Coord { return e.coords }

// BlockedByFire reports whether fire has sealed every approach to the exit.
func (e *Exit) BlockedByFire() bool { return e.blockedByFire }

// loadStructure copies the obstacle layout into the exit's private view and
// marks the exit cells on top of it.
func (e *Exit) loadStructure(obstacles *core.ByteGrid) {
	e.structure.CopyFrom(obstacles)
	for _, c := range e.coords {
		e.structure.Set(c.Lin, c.Col, core.CellExit)
	}
}

// accessible reports whether at least one exit cell has an axial neighbor
// that is neither a wall nor another exit cell.
func (e *Exit) accessible() bool {
	for _, c := range e.coords {
		for _, mod := range core.AxialOffsets {
			n := c.Add(mod)
			if !e.structure.InBounds(n.Lin, n.Col) {
				continue
			}
			kind := e.structure.At(n.Lin, n.Col)
			if kind == core.CellWall || kind == core.CellExit {
				continue
			}
			return true
		}
	}
	return false
}

// sealedByFire reports whether every passable axial neighbor of every exit
// cell is on fire.
func (e *Exit) sealedByFire(fire *core.ByteGrid) bool {
	for _, c := range e.coords {
		for _, mod := range core.AxialOffsets {
			n := c.Add(mod)
			if !e.structure.InBounds(n.Lin, n.Col) {
				continue
			}
			kind := e.structure.At(n.Lin, n.Col)
			if kind == core.CellWall || kind == core.CellExit {
				continue
			}
			if fire.At(n.Lin, n.Col) != core.CellFire {
				return false
			}
		}
	}
	return true
}

// ExitSet owns the exits of the current simulation set together with the
// field grids they share: the global static field, the per-pedestrian
// auxiliary static field, the dynamic field and its scratch buffer, the fire
// field and the distance-to-exits grid.
type ExitSet struct {
	exits []*Exit

	staticField  *core.FloatGrid
	auxStatic    *core.FloatGrid
	dynamicField *core.FloatGrid
	auxDynamic   *core.FloatGrid
	fireField    *core.FloatGrid
	exitDistance *core.FloatGrid
}

func newExitSet(lines, columns int) *ExitSet {
	return &ExitSet{
		staticField:  core.NewFloatGrid(lines, columns),
		auxStatic:    core.NewFloatGrid(lines, columns),
		dynamicField: core.NewFloatGrid(lines, columns),
		auxDynamic:   core.NewFloatGrid(lines, columns),
		fireField:    core.NewFloatGrid(lines, columns),
		exitDistance: core.NewFloatGrid(lines, columns),
	}
}

// Exits returns the exits of the current set.
func (s *ExitSet) Exits() []*Exit { return s.exits }

// StaticField exposes the global static floor field.
func (s *ExitSet) StaticField() *core.FloatGrid { return s.staticField }

// DynamicField exposes the dynamic floor field.
func (s *ExitSet) DynamicField() *core.FloatGrid { return s.dynamicField }

// FireField exposes the fire floor field.
func (s *ExitSet) FireField() *core.FloatGrid { return s.fireField }

// ExitDistance exposes the distance-to-closest-exit grid.
func (s *ExitSet) ExitDistance() *core.FloatGrid { return s.exitDistance }

// addExit appends an exit built from the given cells, allocating its private
// grids once; they are reused for every recalculation.
func (s *ExitSet) addExit(lines, columns int, coords []core.Coord) (*Exit, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("exit with no cells")
	}
	e := &Exit{
		coords:    append(make([]core.Coord, 0, len(coords)), coords...),
		structure: core.NewByteGrid(lines, columns),
		weight:    core.NewFloatGrid(lines, columns),
	}
	s.exits = append(s.exits, e)
	return e, nil
}

// loadStructures refreshes every exit's private structure view.
func (s *ExitSet) loadStructures(obstacles *core.ByteGrid) {
	for _, e := range s.exits {
		e.loadStructure(obstacles)
	}
}

// resetBlocked clears the blocked-by-fire flag on every exit and restores the
// exit cells in the overlay grid.
func (s *ExitSet) resetBlocked(exitsOnly *core.ByteGrid) {
	for _, e := range s.exits {
		e.blockedByFire = false
		for _, c := range e.coords {
			exitsOnly.Set(c.Lin, c.Col, core.CellExit)
		}
	}
}

// checkBlockedByFire marks exits newly sealed by fire, overwriting their
// cells in the overlay grid. Reports whether any exit changed state.
func (s *ExitSet) checkBlockedByFire(fire, exitsOnly *core.ByteGrid) bool {
	anyNew := false
	for _, e := range s.exits {
		if e.blockedByFire {
			continue
		}
		if e.sealedByFire(fire) {
			e.blockedByFire = true
			anyNew = true
			for _, c := range e.coords {
				exitsOnly.Set(c.Lin, c.Col, core.CellBlockedExit)
			}
		}
	}
	return anyNew
}

// nonBlockedCells collects the cells of every exit not sealed by fire.
func (s *ExitSet) nonBlockedCells() []core.Coord {
	capacity := 0
	for _, e := range s.exits {
		capacity += len(e.coords)
	}
	cells := make([]core.Coord, 0, capacity)
	for _, e := range s.exits {
		if e.blockedByFire {
			continue
		}
		cells = append(cells, e.coords...)
	}
	return cells
}

// computeExitDistances fills the distance-to-exits grid with the Euclidean
// distance from each passable cell to the nearest of the given exit cells.
func (s *ExitSet) computeExitDistances(obstacles *core.ByteGrid, cells []core.Coord) {
	s.exitDistance.Fill(-1)
	for i := 0; i < obstacles.L; i++ {
		for j := 0; j < obstacles.C; j++ {
			if obstacles.At(i, j) == core.CellWall {
				continue
			}
			best := -1.0
			for _, c := range cells {
				d := core.Distance(c, core.Coord{Lin: i, Col: j})
				if best < 0 || d < best {
					best = d
				}
			}
			s.exitDistance.Set(i, j, best)
		}
	}
}

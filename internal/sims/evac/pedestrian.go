package evac

import (
	"fmt"
	"math"

	"evac-ca/internal/core"
)

// State tracks a pedestrian through a run.
type State uint8

const (
	// Moving pedestrians evaluate probabilities and draw a target each step.
	Moving State = iota
	// Stopped marks a pedestrian denied by conflict resolution this step.
	Stopped
	// Leaving marks the one-step dwell on an exit cell.
	Leaving
	// GotOut is terminal: the pedestrian has left the environment.
	GotOut
	// Dead is terminal: fire reached the pedestrian's cell.
	Dead
)

// Pedestrian carries the per-agent state. The id is the 1-based stable index
// into the pedestrian set.
type Pedestrian struct {
	ID    int
	State State

	Origin   core.Coord
	Previous core.Coord
	Current  core.Coord
	Target   core.Coord

	// probabilities holds the 3x3 transition stencil around Current.
	// Diagonal entries stay zero: movement is Von Neumann.
	probabilities [3][3]float64
}

// PedestrianSet owns every pedestrian of the simulation.
type PedestrianSet struct {
	list []*Pedestrian
	dead int
}

// List returns the pedestrians in id order.
func (s *PedestrianSet) List() []*Pedestrian { return s.list }

// Dead returns the number of pedestrians killed by fire this run.
func (s *PedestrianSet) Dead() int { return s.dead }

// byID returns the pedestrian with the given 1-based id.
func (s *PedestrianSet) byID(id int) *Pedestrian { return s.list[id-1] }

// addPedestrian creates a pedestrian at the given cell and registers its
// first heatmap visit.
func (w *World) addPedestrian(at core.Coord) *Pedestrian {
	p := &Pedestrian{
		State:    Moving,
		Origin:   at,
		Previous: at,
		Current:  at,
		Target:   core.Coord{Lin: -1, Col: -1},
	}
	w.peds.list = append(w.peds.list, p)
	p.ID = len(w.peds.list)
	w.heatmap.Add(at.Lin, at.Col, 1)
	return p
}

// isCellFree reports whether a pedestrian can be placed at the cell: inside
// the grid, not a wall, not on fire and not already occupied.
func (w *World) isCellFree(at core.Coord) bool {
	if !w.env.InBounds(at) {
		return false
	}
	if w.env.Obstacles().At(at.Lin, at.Col) != core.CellEmpty {
		return false
	}
	if w.fire.grid.At(at.Lin, at.Col) == core.CellFire {
		return false
	}
	return w.positions.At(at.Lin, at.Col) == 0
}

// insertPedestriansAtRandom places count pedestrians. Each placement draws a
// cell in the interior; when the drawn cell is taken, the scan continues
// row-major to the next free cell, wrapping to the top-left once. A second
// full pass without a free cell is an error.
func (w *World) insertPedestriansAtRandom(count int) error {
	if count <= 0 {
		return fmt.Errorf("pedestrian count must be positive, got %d", count)
	}

	w.positions.Fill(0)

	for n := 0; n < count; n++ {
		line := int(core.Within(w.rng, 1, float64(w.lines-1)))
		column := int(core.Within(w.rng, 1, float64(w.columns-1)))

		placed := false
		wrapped := false
		for !placed {
			for ; line < w.lines-1; line++ {
				for ; column < w.columns-1; column++ {
					at := core.Coord{Lin: line, Col: column}
					if !w.isCellFree(at) {
						continue
					}
					p := w.addPedestrian(at)
					w.positions.Set(line, column, p.ID)
					placed = true
					break
				}
				if placed {
					break
				}
				column = 1
			}
			if placed {
				break
			}
			if wrapped {
				return fmt.Errorf("not enough empty space for %d pedestrians", count)
			}
			line, column = 1, 1
			wrapped = true
		}
	}

	return nil
}

// evaluateMovements marks pedestrians caught by fire as dead, then computes
// the transition stencil and draws a target for each moving pedestrian.
func (w *World) evaluateMovements() {
	for _, p := range w.peds.list {
		if p.State != GotOut && p.State != Dead &&
			w.fire.grid.At(p.Current.Lin, p.Current.Col) == core.CellFire {
			p.State = Dead
			w.peds.dead++
		}

		if p.State != Moving {
			continue
		}

		w.transitionProbabilities(p)
		p.Target = w.selectTarget(p)
	}
}

// transitionProbabilities fills the pedestrian's 3x3 stencil over the axial
// neighbors and the center. Each candidate couples the static field (the
// pedestrian's auxiliary field when fire obstructs its view of an exit), the
// dynamic field, the fire penalty on non-risky cells, and occupancy; the
// inertia boost then favors continuing straight, and the row is normalized.
func (w *World) transitionProbabilities(p *Pedestrian) {
	p.probabilities = [3][3]float64{}

	staticField := w.exits.staticField
	if w.fire.present && w.visionObstructed(p) {
		staticField = w.exits.auxStatic
	}

	params := w.cfg.Params
	normalization := 0.0

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i != 1 && j != 1 {
				continue // diagonals stay zero
			}

			lin := p.Current.Lin + i - 1
			col := p.Current.Col + j - 1

			if !w.positions.InBounds(lin, col) ||
				w.fire.grid.At(lin, col) == core.CellFire ||
				w.impassable(lin, col) ||
				w.fire.risk.At(lin, col) == core.RiskDanger {
				continue
			}

			v := math.Exp(params.Ks * staticField.At(lin, col))
			v *= math.Exp(params.Kd * w.dynamicValueFor(p, lin, col))

			if w.fire.risk.At(lin, col) == core.RiskNone {
				alpha := 1.0
				if w.exits.exitDistance.At(lin, col) < params.RiskDistance {
					alpha = params.FireAlpha
				}
				v /= math.Exp(params.Kf * alpha * w.exits.fireField.At(lin, col))
			}

			if !(i == 1 && j == 1) && w.positions.At(lin, col) > 0 {
				v = 0
			}

			p.probabilities[i][j] = v
			normalization += v
		}
	}

	if p.Previous != p.Current {
		mask := p.Current.Sub(p.Previous)
		i, j := mask.Lin+1, mask.Col+1
		if i >= 0 && i < 3 && j >= 0 && j < 3 {
			former := p.probabilities[i][j]
			p.probabilities[i][j] *= params.Omega
			normalization += p.probabilities[i][j] - former
		}
	}

	if normalization != 0 {
		inverse := 1 / normalization
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				p.probabilities[i][j] *= inverse
			}
		}
	}
}

// impassable reports whether the cell is a wall that is not an open exit.
func (w *World) impassable(lin, col int) bool {
	overlay := w.exitsOnly.At(lin, col)
	if overlay == core.CellExit {
		return false
	}
	if overlay == core.CellBlockedExit {
		return true
	}
	return w.env.Obstacles().At(lin, col) == core.CellWall
}

// dynamicValueFor reads the dynamic field at the candidate cell. A
// pedestrian configured to ignore its latest trace reads its own previous
// cell as empty.
func (w *World) dynamicValueFor(p *Pedestrian, lin, col int) float64 {
	if w.cfg.Params.IgnoreSelfTrace &&
		lin == p.Previous.Lin && col == p.Previous.Col {
		return 0
	}
	return w.exits.dynamicField.At(lin, col)
}

// selectTarget walks the stencil in scan order, accumulating mass until the
// draw is covered. A pedestrian whose stencil carries no mass stays put.
func (w *World) selectTarget(p *Pedestrian) core.Coord {
	draw := core.Within(w.rng, 0, 1)

	total := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := p.probabilities[i][j]
			if v == 0 {
				continue
			}
			total += v
			if draw <= total+core.Tolerance {
				return core.Coord{Lin: p.Current.Lin + i - 1, Col: p.Current.Col + j - 1}
			}
		}
	}

	return p.Current
}

// visionObstructed reports whether fire blocks the pedestrian's line of
// sight to any non-blocked exit cell. The auxiliary static field is rebuilt
// over the exit cells the pedestrian can still see.
func (w *World) visionObstructed(p *Pedestrian) bool {
	visible := make([]core.Coord, 0, 8)
	obstructed := false

	for _, e := range w.exits.exits {
		if e.blockedByFire {
			continue
		}
		for _, c := range e.coords {
			if w.sightBlocked(p.Current, c) {
				obstructed = true
				continue
			}
			visible = append(visible, c)
		}
	}

	if !obstructed {
		return false
	}
	w.computeZhengField(visible, w.exits.auxStatic)
	return true
}

// sightBlocked walks the Bresenham line from origin to destination and
// reports whether any visited cell is on fire.
func (w *World) sightBlocked(origin, destination core.Coord) bool {
	x, y := origin.Col, origin.Lin
	dx := destination.Col - x
	dy := destination.Lin - y

	if w.fire.grid.At(y, x) == core.CellFire {
		return true
	}

	xStep, yStep := 1, 1
	if dy < 0 {
		yStep = -1
		dy = -dy
	}
	if dx < 0 {
		xStep = -1
		dx = -dx
	}

	ddx, ddy := 2*dx, 2*dy
	if ddx >= ddy {
		err := ddy - dx
		for i := 0; i < dx; i++ {
			x += xStep
			if err > 0 {
				y += yStep
				err -= ddx
			}
			err += ddy
			if w.fire.grid.At(y, x) == core.CellFire {
				return true
			}
		}
	} else {
		err := ddx - dy
		for i := 0; i < dy; i++ {
			y += yStep
			if err > 0 {
				x += xStep
				err -= ddy
			}
			err += ddx
			if w.fire.grid.At(y, x) == core.CellFire {
				return true
			}
		}
	}

	return false
}

// applyMovement commits the surviving targets. Moving pedestrians step onto
// their target, transitioning on exit cells; leaving pedestrians are removed
// after their one-step dwell. Stopped, out and dead pedestrians are skipped.
func (w *World) applyMovement() {
	for _, p := range w.peds.list {
		switch p.State {
		case Moving:
			if w.cfg.Params.VelocityDensity && p.Target != p.Current {
				w.exits.dynamicField.Set(p.Current.Lin, p.Current.Col,
					w.exits.dynamicField.At(p.Current.Lin, p.Current.Col)+1)
			}
			p.Previous = p.Current
			p.Current = p.Target

			if w.exitsOnly.At(p.Current.Lin, p.Current.Col) == core.CellExit {
				if w.cfg.Params.ImmediateExit {
					p.State = GotOut
				} else {
					p.State = Leaving
				}
			}
		case Leaving:
			p.State = GotOut
		}
	}
}

// updatePositionGrid rebuilds the position grid from the pedestrians still in
// the environment and counts their heatmap visits.
func (w *World) updatePositionGrid() {
	w.positions.Fill(0)
	for _, p := range w.peds.list {
		if p.State == GotOut || p.State == Dead {
			continue
		}
		w.positions.Set(p.Current.Lin, p.Current.Col, p.ID)
		w.heatmap.Add(p.Current.Lin, p.Current.Col, 1)
	}
}

// resetStates returns stopped pedestrians to moving for the next timestep.
func (w *World) resetStates() {
	for _, p := range w.peds.list {
		if p.State != GotOut && p.State != Leaving && p.State != Dead {
			p.State = Moving
		}
	}
}

// resetPedestrianStructures returns every pedestrian to its origin in state
// moving and rebuilds the position grid, the between-run reset for layouts
// with static pedestrians.
func (w *World) resetPedestrianStructures() {
	w.positions.Fill(0)
	for _, p := range w.peds.list {
		p.Previous = p.Origin
		p.Current = p.Origin
		p.Target = core.Coord{Lin: -1, Col: -1}
		p.State = Moving
		w.positions.Set(p.Current.Lin, p.Current.Col, p.ID)
	}
}

// environmentEmpty reports whether no pedestrian remains in a non-terminal
// state.
func (w *World) environmentEmpty() bool {
	for _, p := range w.peds.list {
		if p.State != GotOut && p.State != Dead {
			return false
		}
	}
	return true
}

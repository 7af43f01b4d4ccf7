package evac

import "evac-ca/internal/core"

// depositTrails drops one unit of trail density at the current cell of every
// pedestrian still in the environment. In velocity-density mode deposition
// happens at movement commit instead (see applyMovement).
func (w *World) depositTrails() {
	for _, p := range w.peds.list {
		if p.State == GotOut || p.State == Dead {
			continue
		}
		w.exits.dynamicField.Set(p.Current.Lin, p.Current.Col,
			w.exits.dynamicField.At(p.Current.Lin, p.Current.Col)+1)
	}
}

// applyDecayAndDiffusion advances the dynamic floor field one step:
//
//	next = (1-alpha)(1-delta)*curr + alpha*(1-delta)/4 * sum(axial neighbors)
//
// restricted to cells that are neither walls nor fire; blocked neighbors
// contribute nothing. The result is normalized to unit mass when any mass
// remains, then copied back into the active field.
func (w *World) applyDecayAndDiffusion() {
	alpha := w.cfg.Params.Alpha
	delta := w.cfg.Params.Delta
	keep := (1 - alpha) * (1 - delta)
	spread := alpha * (1 - delta) / 4

	curr := w.exits.dynamicField
	next := w.exits.auxDynamic
	next.Fill(0)

	for i := 0; i < w.lines; i++ {
		for j := 0; j < w.columns; j++ {
			if w.blockedForTrail(i, j) {
				continue
			}

			v := keep * curr.At(i, j)
			for _, mod := range core.AxialOffsets {
				lin, col := i+mod.Lin, j+mod.Col
				if !curr.InBounds(lin, col) || w.blockedForTrail(lin, col) {
					continue
				}
				v += spread * curr.At(lin, col)
			}
			next.Set(i, j, v)
		}
	}

	if total := next.Sum(); total != 0 {
		next.Scale(1 / total)
	}
	curr.CopyFrom(next)
}

// blockedForTrail reports whether the cell cannot carry trail density.
func (w *World) blockedForTrail(lin, col int) bool {
	if w.env.Obstacles().At(lin, col) == core.CellWall &&
		w.exitsOnly.At(lin, col) == core.CellEmpty {
		return true
	}
	return w.fire.grid.At(lin, col) == core.CellFire
}

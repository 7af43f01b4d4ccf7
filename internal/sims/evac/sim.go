package evac

import (
	"fmt"
	"math"
	"math/rand"

	"evac-ca/internal/core"
)

// World is a floor-field evacuation simulation over one environment and one
// exit configuration. It owns every grid and the pedestrian set; a single
// RNG, reseeded per run, feeds every draw so runs reproduce exactly.
type World struct {
	cfg Config
	env *Environment

	lines, columns int

	exits     *ExitSet
	exitsOnly *core.ByteGrid // CellEmpty / CellExit / CellBlockedExit
	fire      *fireState
	peds      *PedestrianSet

	positions *core.IntGrid
	heatmap   *core.IntGrid

	scratchFloat    *core.FloatGrid
	conflictScratch *core.IntGrid
	conflictBuffer  []cellConflict

	display []uint8

	rng            *rand.Rand
	timestep       int
	spreadInterval int
	staticPeds     bool
	prepared       bool
}

// New returns a World over a bordered empty room with a single exit in the
// middle of the east wall, using defaults.
func New(lines, columns int) *World {
	cfg := DefaultConfig()
	cfg.Lines = lines
	cfg.Columns = columns
	env, err := NewRoomEnvironment(lines, columns)
	if err != nil {
		env, _ = NewRoomEnvironment(2, 2)
	}
	w, _ := NewWithConfig(cfg, env)
	_ = w.SetExits([][]core.Coord{{{Lin: lines / 2, Col: columns - 1}}})
	return w
}

// NewWithConfig returns a World over the given environment. Exits come from
// the layout when it declares any; otherwise SetExits installs them per
// simulation set.
func NewWithConfig(cfg Config, env *Environment) (*World, error) {
	if env == nil {
		return nil, fmt.Errorf("environment is required")
	}
	size := env.Size()
	cfg.Lines, cfg.Columns = size.L, size.C
	if env.FirePresent() {
		cfg.Params.FirePresent = true
	}

	w := &World{
		cfg:             cfg,
		env:             env,
		lines:           size.L,
		columns:         size.C,
		exits:           newExitSet(size.L, size.C),
		exitsOnly:       core.NewByteGrid(size.L, size.C),
		fire:            newFireState(size.L, size.C),
		peds:            &PedestrianSet{},
		positions:       core.NewIntGrid(size.L, size.C),
		heatmap:         core.NewIntGrid(size.L, size.C),
		scratchFloat:    core.NewFloatGrid(size.L, size.C),
		conflictScratch: core.NewIntGrid(size.L, size.C),
		display:         make([]uint8, size.L*size.C),
		rng:             core.NewRNG(cfg.Seed),
		spreadInterval:  cfg.Params.FireSpreadInterval(),
	}
	// Fire dynamics only run when the layout actually declares fire cells.
	w.fire.present = env.FirePresent()

	if exits := env.StaticExits(); len(exits) > 0 {
		if err := w.SetExits(exits); err != nil {
			return nil, err
		}
	}

	if peds := env.StaticPedestrians(); len(peds) > 0 {
		w.staticPeds = true
		for _, at := range peds {
			p := w.addPedestrian(at)
			w.positions.Set(at.Lin, at.Col, p.ID)
		}
	}

	return w, nil
}

// Name returns the simulation identifier.
func (w *World) Name() string { return "evac" }

// Size reports the grid dimensions.
func (w *World) Size() core.Size { return core.Size{L: w.lines, C: w.columns} }

// Cells exposes the display buffer.
func (w *World) Cells() []uint8 { return w.display }

// Pedestrians exposes the pedestrian set.
func (w *World) Pedestrians() *PedestrianSet { return w.peds }

// Exits exposes the exit set and its shared field grids.
func (w *World) Exits() *ExitSet { return w.exits }

// Positions exposes the pedestrian-position grid.
func (w *World) Positions() *core.IntGrid { return w.positions }

// Heatmap exposes the cumulative visit counts.
func (w *World) Heatmap() *core.IntGrid { return w.heatmap }

// FireGrid exposes the active fire grid.
func (w *World) FireGrid() *core.ByteGrid { return w.fire.grid }

// FireDistance exposes the distance-to-fire grid.
func (w *World) FireDistance() *core.FloatGrid { return w.fire.distance }

// RiskGrid exposes the risk classification grid.
func (w *World) RiskGrid() *core.ByteGrid { return w.fire.risk }

// Environment exposes the static layout.
func (w *World) Environment() *Environment { return w.env }

// Timestep reports the number of completed timesteps in the current run.
func (w *World) Timestep() int { return w.timestep }

// SetExits replaces the exit configuration, one coordinate group per exit,
// resetting the exit overlay grid. The next PrepareSet validates it.
func (w *World) SetExits(groups [][]core.Coord) error {
	w.exits.exits = w.exits.exits[:0]
	w.exitsOnly.Fill(core.CellEmpty)
	w.prepared = false

	for _, group := range groups {
		for _, c := range group {
			if !w.env.InBounds(c) {
				return fmt.Errorf("exit cell (%d,%d) out of bounds", c.Lin, c.Col)
			}
		}
		if _, err := w.exits.addExit(w.lines, w.columns, group); err != nil {
			return err
		}
		for _, c := range group {
			w.exitsOnly.Set(c.Lin, c.Col, core.CellExit)
		}
	}

	w.exits.loadStructures(w.env.Obstacles())
	return nil
}

// PrepareSet validates the current exit configuration and precomputes the
// per-exit static weights. It returns ErrInaccessibleExit when an exit has
// no passable approach; callers emit a placeholder and skip the set.
func (w *World) PrepareSet() error {
	if err := w.computeAllStaticWeights(); err != nil {
		return err
	}
	w.prepared = true
	return nil
}

// Reset prepares a run: reseed the RNG, restore the initial fire, clear the
// dynamic field, place pedestrians and compute the floor fields. Layout
// pedestrians return to their origins; random populations are redrawn.
func (w *World) Reset(seed int64) {
	effective := seed
	if effective == 0 {
		effective = w.cfg.Seed
	}
	w.rng.Seed(effective)

	if !w.prepared {
		if err := w.PrepareSet(); err != nil {
			return
		}
	}

	w.timestep = 0
	w.peds.dead = 0

	w.exits.dynamicField.Fill(0)
	w.exits.resetBlocked(w.exitsOnly)
	w.fire.grid.CopyFrom(w.env.InitialFire())
	w.computeFireField()
	w.fire.classifyRisk(w.env.Obstacles())

	if w.staticPeds {
		w.resetPedestrianStructures()
	} else {
		w.peds.list = w.peds.list[:0]

		count := w.cfg.NumPedestrians
		if w.cfg.UseDensity {
			count = int(float64(w.env.CountEmpty()) * w.cfg.Density)
		}
		if err := w.insertPedestriansAtRandom(count); err != nil {
			w.peds.list = w.peds.list[:0]
			w.positions.Fill(0)
		}
	}

	w.recomputeStaticField()
	w.refreshDisplay()
}

// Done reports whether the current run has finished: no pedestrian remains
// in a non-terminal state.
func (w *World) Done() bool { return w.environmentEmpty() }

// Step advances the simulation one timestep: deposit trails, evaluate moves,
// reconcile conflicts, commit movement, refresh the grids, diffuse the
// dynamic field and, on spread timesteps, advance the fire.
func (w *World) Step() {
	if !w.cfg.Params.VelocityDensity {
		w.depositTrails()
	}

	w.evaluateMovements()

	conflicts := w.identifyConflicts()
	w.resolveConflicts(conflicts)
	if !w.cfg.Params.AllowXMovement {
		w.resolveXCrossings()
	}

	w.applyMovement()
	w.updatePositionGrid()
	w.resetStates()

	w.timestep++

	w.applyDecayAndDiffusion()

	if w.fire.present && w.timestep%w.spreadInterval == 0 {
		w.fire.propagate(w.env.Obstacles())
		w.computeFireField()
		w.fire.classifyRisk(w.env.Obstacles())
		w.exits.checkBlockedByFire(w.fire.grid, w.exitsOnly)
		w.recomputeStaticField()
	}

	w.refreshDisplay()
}

// Run executes a full run from the current Reset state and returns the
// number of timesteps taken. The configured ceiling, when set, bounds runs
// that cannot progress.
func (w *World) Run() (int, error) {
	for !w.Done() {
		if w.cfg.MaxTimesteps > 0 && w.timestep >= w.cfg.MaxTimesteps {
			return w.timestep, fmt.Errorf("run exceeded %d timesteps", w.cfg.MaxTimesteps)
		}
		w.Step()
	}
	return w.timestep, nil
}

// ParameterSnapshot reports the model coefficients for output headers.
func (w *World) ParameterSnapshot() core.ParameterSnapshot {
	p := w.cfg.Params
	ftoa := func(v float64) string { return fmt.Sprintf("%g", v) }
	btoa := func(v bool) string { return fmt.Sprintf("%t", v) }
	return core.ParameterSnapshot{
		Groups: []core.ParameterGroup{
			{
				Name:    "coupling",
				Summary: "floor-field sensitivities",
				Params: []core.Parameter{
					{Key: "ks", Label: "static coupling", Type: core.ParamTypeFloat, Value: ftoa(p.Ks)},
					{Key: "kd", Label: "dynamic coupling", Type: core.ParamTypeFloat, Value: ftoa(p.Kd)},
					{Key: "kf", Label: "fire coupling", Type: core.ParamTypeFloat, Value: ftoa(p.Kf)},
					{Key: "static_field", Label: "static variant", Type: core.ParamTypeInt, Value: string(p.StaticField)},
				},
			},
			{
				Name:    "dynamics",
				Summary: "trail decay, diffusion and movement",
				Params: []core.Parameter{
					{Key: "alpha", Label: "diffusion", Type: core.ParamTypeFloat, Value: ftoa(p.Alpha)},
					{Key: "delta", Label: "decay", Type: core.ParamTypeFloat, Value: ftoa(p.Delta)},
					{Key: "omega", Label: "inertia", Type: core.ParamTypeFloat, Value: ftoa(p.Omega)},
					{Key: "mu", Label: "conflict denial", Type: core.ParamTypeFloat, Value: ftoa(p.Mu)},
					{Key: "allow_x_movement", Label: "allow X movement", Type: core.ParamTypeBool, Value: btoa(p.AllowXMovement)},
					{Key: "immediate_exit", Label: "immediate exit", Type: core.ParamTypeBool, Value: btoa(p.ImmediateExit)},
				},
			},
			{
				Name:    "fire",
				Summary: "fire dynamics and avoidance",
				Params: []core.Parameter{
					{Key: "fire", Label: "fire present", Type: core.ParamTypeBool, Value: btoa(p.FirePresent)},
					{Key: "spread_rate", Label: "spread rate", Type: core.ParamTypeFloat, Value: ftoa(p.SpreadRate)},
					{Key: "fire_alpha", Label: "fire alpha", Type: core.ParamTypeFloat, Value: ftoa(p.FireAlpha)},
					{Key: "fire_gamma", Label: "fire gamma", Type: core.ParamTypeFloat, Value: ftoa(p.FireGamma)},
					{Key: "risk_distance", Label: "risk distance", Type: core.ParamTypeFloat, Value: ftoa(p.RiskDistance)},
				},
			},
		},
	}
}

// checkInvariants panics when the shared grids contradict the pedestrian
// set: a live pedestrian off its grid cell, two pedestrians on one cell or a
// negative probability entry. The invariant test calls it after each step.
func (w *World) checkInvariants() {
	seen := make(map[core.Coord]int, len(w.peds.list))
	for _, p := range w.peds.list {
		if p.State == GotOut || p.State == Dead {
			continue
		}
		if other, ok := seen[p.Current]; ok {
			panic(fmt.Sprintf("pedestrians %d and %d share cell (%d,%d)",
				other, p.ID, p.Current.Lin, p.Current.Col))
		}
		seen[p.Current] = p.ID
		if w.positions.At(p.Current.Lin, p.Current.Col) != p.ID {
			panic(fmt.Sprintf("pedestrian %d not on position grid at (%d,%d)",
				p.ID, p.Current.Lin, p.Current.Col))
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if p.probabilities[i][j] < 0 || math.IsNaN(p.probabilities[i][j]) {
					panic(fmt.Sprintf("pedestrian %d has invalid probability at (%d,%d)", p.ID, i, j))
				}
			}
		}
	}
}

func init() {
	core.Register("evac", func(cfg map[string]string) core.Sim {
		c := FromMap(cfg)
		env, err := NewRoomEnvironment(c.Lines, c.Columns)
		if err != nil {
			return nil
		}
		w, err := NewWithConfig(c, env)
		if err != nil {
			return nil
		}
		_ = w.SetExits([][]core.Coord{{{Lin: c.Lines / 2, Col: c.Columns - 1}}})
		return w
	})
}

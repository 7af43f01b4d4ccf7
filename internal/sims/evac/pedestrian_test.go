package evac

import (
	"math"
	"testing"

	"evac-ca/internal/core"
)

func TestStencilIsDistribution(t *testing.T) {
	world := buildWorld(t, 5, 5,
		singleExit(core.Coord{Lin: 2, Col: 4}),
		[]core.Coord{{Lin: 2, Col: 2}},
		nil, nil)
	world.Reset(1)

	p := world.Pedestrians().List()[0]
	world.transitionProbabilities(p)

	sum := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := p.probabilities[i][j]
			if v < 0 {
				t.Fatalf("negative probability at (%d,%d)", i, j)
			}
			sum += v
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("stencil sums to %f, expected 1", sum)
	}

	// Diagonals stay zero: movement is Von Neumann.
	for _, idx := range [][2]int{{0, 0}, {0, 2}, {2, 0}, {2, 2}} {
		if p.probabilities[idx[0]][idx[1]] != 0 {
			t.Fatalf("diagonal entry (%d,%d) must stay zero", idx[0], idx[1])
		}
	}
}

func TestInertiaBoostsContinuation(t *testing.T) {
	// A one-cell-high corridor with symmetric exits: west and east static
	// entries are equal, so after the inertia boost the eastward entry is
	// exactly omega times the westward one.
	world := buildWorld(t, 3, 7,
		[][]core.Coord{{{Lin: 1, Col: 0}}, {{Lin: 1, Col: 6}}},
		[]core.Coord{{Lin: 1, Col: 3}},
		nil,
		func(cfg *Config) { cfg.Params.Omega = 2 })
	world.Reset(1)

	p := world.Pedestrians().List()[0]
	p.Previous = core.Coord{Lin: 1, Col: 2} // moved east last step

	world.transitionProbabilities(p)

	east := p.probabilities[1][2]
	west := p.probabilities[1][0]
	if west == 0 {
		t.Fatal("westward candidate must carry probability")
	}
	if ratio := east / west; math.Abs(ratio-2) > 1e-9 {
		t.Fatalf("east/west ratio = %f, expected the inertia factor 2", ratio)
	}

	sum := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum += p.probabilities[i][j]
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("stencil sums to %f after the boost, expected 1", sum)
	}
}

func TestCorneredPedestrianStays(t *testing.T) {
	// Fire on every axial neighbor blocks those candidates, and the center
	// cell one step from the fire is danger: the stencil carries no mass
	// and the pedestrian stays in place without conflicting with itself.
	at := core.Coord{Lin: 4, Col: 4}
	world := buildWorld(t, 9, 9,
		singleExit(core.Coord{Lin: 4, Col: 8}),
		[]core.Coord{at},
		[]core.Coord{{Lin: 3, Col: 4}, {Lin: 5, Col: 4}, {Lin: 4, Col: 3}, {Lin: 4, Col: 5}},
		func(cfg *Config) { cfg.Params.SpreadRate = 0.01 })
	world.Reset(1)

	p := world.Pedestrians().List()[0]
	world.transitionProbabilities(p)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if p.probabilities[i][j] != 0 {
				t.Fatalf("entry (%d,%d) = %f, expected an all-zero stencil",
					i, j, p.probabilities[i][j])
			}
		}
	}

	if target := world.selectTarget(p); target != at {
		t.Fatalf("target (%d,%d), expected to stay at (%d,%d)",
			target.Lin, target.Col, at.Lin, at.Col)
	}

	world.Step()
	if p.Current != at {
		t.Fatal("cornered pedestrian must stay in place")
	}
	if p.State == Stopped {
		t.Fatal("staying in place is not a conflict")
	}
}

func TestOccupiedCellsCarryNoMass(t *testing.T) {
	world := buildWorld(t, 5, 5,
		singleExit(core.Coord{Lin: 2, Col: 4}),
		[]core.Coord{{Lin: 2, Col: 2}, {Lin: 2, Col: 3}},
		nil,
		func(cfg *Config) { cfg.Params.Ks = strongKs })
	world.Reset(1)

	first := world.Pedestrians().List()[0]
	world.transitionProbabilities(first)

	// The eastward cell (2,3) holds the second pedestrian.
	if first.probabilities[1][2] != 0 {
		t.Fatal("occupied neighbor must carry zero probability")
	}
	// The center is exempt from the occupancy rule.
	if first.probabilities[1][1] == 0 {
		t.Fatal("the pedestrian's own cell must keep its probability")
	}
}

func TestSightBlockedByFire(t *testing.T) {
	world := buildWorld(t, 7, 7,
		singleExit(core.Coord{Lin: 3, Col: 6}),
		nil,
		[]core.Coord{{Lin: 3, Col: 4}},
		func(cfg *Config) { cfg.Params.SpreadRate = 0.01 })
	world.Reset(1)

	// The fire sits on the straight line between (3,1) and the exit.
	if !world.sightBlocked(core.Coord{Lin: 3, Col: 1}, core.Coord{Lin: 3, Col: 6}) {
		t.Fatal("fire on the line of sight must block vision")
	}
	// An off-line observer still sees the exit.
	if world.sightBlocked(core.Coord{Lin: 1, Col: 5}, core.Coord{Lin: 3, Col: 6}) {
		t.Fatal("vision must be clear when no fire intersects the line")
	}
}

func TestVisionObstructedUsesAuxiliaryField(t *testing.T) {
	world := buildWorld(t, 7, 7,
		[][]core.Coord{{{Lin: 3, Col: 0}}, {{Lin: 3, Col: 6}}},
		[]core.Coord{{Lin: 3, Col: 2}},
		[]core.Coord{{Lin: 3, Col: 4}},
		func(cfg *Config) { cfg.Params.SpreadRate = 0.01 })
	world.Reset(1)

	p := world.Pedestrians().List()[0]
	if !world.visionObstructed(p) {
		t.Fatal("fire between pedestrian and east exit must obstruct vision")
	}

	// The auxiliary field is built over the visible west exit only, so the
	// west approach outweighs the east one.
	aux := world.exits.auxStatic
	if aux.At(3, 1) <= aux.At(3, 5) {
		t.Fatal("auxiliary field must prefer the visible exit")
	}
}

func TestRandomInsertionFillsFreeCells(t *testing.T) {
	env, err := NewRoomEnvironment(6, 6)
	if err != nil {
		t.Fatalf("room environment: %v", err)
	}
	cfg := DefaultConfig()
	cfg.NumPedestrians = 16 // every interior cell

	world, err := NewWithConfig(cfg, env)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if err := world.SetExits(singleExit(core.Coord{Lin: 3, Col: 5})); err != nil {
		t.Fatalf("set exits: %v", err)
	}
	if err := world.PrepareSet(); err != nil {
		t.Fatalf("prepare set: %v", err)
	}
	world.Reset(5)

	if got := len(world.Pedestrians().List()); got != 16 {
		t.Fatalf("placed %d pedestrians, expected 16", got)
	}
	seen := map[core.Coord]bool{}
	for _, p := range world.Pedestrians().List() {
		if seen[p.Current] {
			t.Fatalf("two pedestrians share (%d,%d)", p.Current.Lin, p.Current.Col)
		}
		seen[p.Current] = true
	}

	world.peds.list = world.peds.list[:0]
	if err := world.insertPedestriansAtRandom(17); err == nil {
		t.Fatal("an overfull placement must be rejected")
	}
}

package evac

import (
	"math"
	"testing"

	"evac-ca/internal/core"
)

func TestZhengFieldDistribution(t *testing.T) {
	world := buildWorld(t, 5, 5,
		singleExit(core.Coord{Lin: 2, Col: 4}),
		nil, nil, nil)
	world.Reset(1)

	field := world.Exits().StaticField()

	if sum := field.Sum(); math.Abs(sum-1) > 1e-9 {
		t.Fatalf("field sums to %f, expected 1", sum)
	}

	// Reachable cells carry positive mass; walls carry none.
	for i := 1; i < 4; i++ {
		for j := 1; j < 4; j++ {
			if field.At(i, j) <= 0 {
				t.Fatalf("interior cell (%d,%d) has no field value", i, j)
			}
		}
	}
	if field.At(0, 0) != 0 {
		t.Fatal("wall cells must carry no field value")
	}

	// Attraction decreases with Euclidean distance to the exit.
	exit := core.Coord{Lin: 2, Col: 4}
	if field.At(2, 3) <= field.At(2, 2) {
		t.Fatal("closer cells must be more attractive")
	}
	if field.At(2, 2) <= field.At(2, 1) {
		t.Fatal("closer cells must be more attractive")
	}
	if field.At(exit.Lin, exit.Col) <= field.At(2, 3) {
		t.Fatal("the exit cell itself must carry the largest value")
	}
}

func TestVarasWeightRelaxation(t *testing.T) {
	world := buildWorld(t, 3, 7,
		singleExit(core.Coord{Lin: 1, Col: 0}),
		nil, nil,
		func(cfg *Config) { cfg.Params.StaticField = StaticVaras })
	world.Reset(1)

	e := world.Exits().Exits()[0]

	// Exit cell seeds at 1; each corridor cell costs one more axial step.
	for col := 1; col <= 5; col++ {
		want := 1.0 + float64(col)
		if got := e.weight.At(1, col); math.Abs(got-want) > 1e-9 {
			t.Fatalf("weight at (1,%d) = %f, expected %f", col, got, want)
		}
	}

	// The global field prefers low weights: entries closer to the exit are
	// larger after negation.
	field := world.Exits().StaticField()
	if field.At(1, 1) <= field.At(1, 5) {
		t.Fatal("cells near the exit must be preferred under the Varas variant")
	}
}

func TestVarasDiagonalCost(t *testing.T) {
	world := buildWorld(t, 5, 5,
		singleExit(core.Coord{Lin: 2, Col: 0}),
		nil, nil,
		func(cfg *Config) {
			cfg.Params.StaticField = StaticVaras
			cfg.Params.Diagonal = 1.5
		})
	world.Reset(1)

	e := world.Exits().Exits()[0]
	// (2,1) is one axial step from the exit: 1+1. (1,1) is reached either
	// diagonally from the exit for 1+1.5, or axially through (2,1) for 2+1;
	// the relaxation keeps the smaller.
	if got := e.weight.At(2, 1); math.Abs(got-2) > 1e-9 {
		t.Fatalf("weight at (2,1) = %f, expected 2", got)
	}
	if got := e.weight.At(1, 1); math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("diagonal neighbor weight = %f, expected 2.5", got)
	}
}

func TestInaccessibleExit(t *testing.T) {
	env, err := NewRoomEnvironment(5, 5)
	if err != nil {
		t.Fatalf("room environment: %v", err)
	}
	// Wall off the exit's only approach.
	env.MarkWall(core.Coord{Lin: 2, Col: 3})
	env.MarkWall(core.Coord{Lin: 1, Col: 3})
	env.MarkWall(core.Coord{Lin: 3, Col: 3})

	cfg := DefaultConfig()
	world, err := NewWithConfig(cfg, env)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if err := world.SetExits(singleExit(core.Coord{Lin: 2, Col: 4})); err != nil {
		t.Fatalf("set exits: %v", err)
	}

	if err := world.PrepareSet(); err != ErrInaccessibleExit {
		t.Fatalf("expected ErrInaccessibleExit, got %v", err)
	}
}

func TestAccessibilityIsAxialOnly(t *testing.T) {
	env, err := NewRoomEnvironment(5, 5)
	if err != nil {
		t.Fatalf("room environment: %v", err)
	}
	// Leave only the diagonal approach (1,3)/(3,3) open by walling the
	// axial neighbor.
	env.MarkWall(core.Coord{Lin: 2, Col: 3})

	cfg := DefaultConfig()
	world, err := NewWithConfig(cfg, env)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if err := world.SetExits(singleExit(core.Coord{Lin: 2, Col: 4})); err != nil {
		t.Fatalf("set exits: %v", err)
	}

	if err := world.PrepareSet(); err != ErrInaccessibleExit {
		t.Fatalf("diagonal-only approaches must not count, got %v", err)
	}
}

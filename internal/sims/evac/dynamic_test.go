package evac

import (
	"math"
	"testing"

	"evac-ca/internal/core"
)

func TestDecayDiffusionOnZeroField(t *testing.T) {
	world := buildWorld(t, 5, 5,
		singleExit(core.Coord{Lin: 2, Col: 4}),
		nil, nil, nil)
	world.Reset(1)

	world.applyDecayAndDiffusion()

	if sum := world.Exits().DynamicField().Sum(); sum != 0 {
		t.Fatalf("zero field must stay zero, got total %f", sum)
	}
}

func TestDecayDiffusionUnitMass(t *testing.T) {
	alpha, delta := 0.4, 0.25
	world := buildWorld(t, 5, 5,
		singleExit(core.Coord{Lin: 2, Col: 4}),
		nil, nil,
		func(cfg *Config) {
			cfg.Params.Alpha = alpha
			cfg.Params.Delta = delta
		})
	world.Reset(1)

	field := world.Exits().DynamicField()
	field.Fill(0)
	field.Set(2, 2, 1)

	world.applyDecayAndDiffusion()

	// After renormalization the source keeps (1-alpha) and each axial
	// neighbor receives alpha/4.
	if got := field.At(2, 2); math.Abs(got-(1-alpha)) > 1e-9 {
		t.Fatalf("source mass = %f, expected %f", got, 1-alpha)
	}
	for _, mod := range core.AxialOffsets {
		got := field.At(2+mod.Lin, 2+mod.Col)
		if math.Abs(got-alpha/4) > 1e-9 {
			t.Fatalf("neighbor (%d,%d) mass = %f, expected %f",
				2+mod.Lin, 2+mod.Col, got, alpha/4)
		}
	}
	if sum := field.Sum(); math.Abs(sum-1) > 1e-9 {
		t.Fatalf("field sums to %f, expected 1", sum)
	}
}

func TestDiffusionSkipsWalls(t *testing.T) {
	world := buildWorld(t, 5, 5,
		singleExit(core.Coord{Lin: 2, Col: 4}),
		nil, nil, nil)
	world.Reset(1)

	field := world.Exits().DynamicField()
	field.Fill(0)
	field.Set(1, 1, 1) // corner cell: north and west neighbors are walls

	world.applyDecayAndDiffusion()

	if field.At(0, 1) != 0 || field.At(1, 0) != 0 {
		t.Fatal("walls must not receive diffused mass")
	}
	if sum := field.Sum(); math.Abs(sum-1) > 1e-9 {
		t.Fatalf("field sums to %f, expected 1", sum)
	}
}

func TestTrailDepositionModes(t *testing.T) {
	at := core.Coord{Lin: 2, Col: 1}
	world := buildWorld(t, 5, 5,
		singleExit(core.Coord{Lin: 2, Col: 4}),
		[]core.Coord{at},
		nil,
		func(cfg *Config) { cfg.Params.Ks = strongKs })
	world.Reset(1)

	world.depositTrails()
	if world.Exits().DynamicField().At(at.Lin, at.Col) != 1 {
		t.Fatal("default mode deposits at the pedestrian's current cell")
	}

	// Velocity-density mode deposits at the previous cell on commit only.
	world = buildWorld(t, 5, 5,
		singleExit(core.Coord{Lin: 2, Col: 4}),
		[]core.Coord{at},
		nil,
		func(cfg *Config) {
			cfg.Params.Ks = strongKs
			cfg.Params.VelocityDensity = true
		})
	world.Reset(1)

	world.Step()

	field := world.Exits().DynamicField()
	p := world.Pedestrians().List()[0]
	if p.Current == at {
		t.Fatal("pedestrian was expected to move")
	}
	// The deposit at the vacated cell then decayed and diffused once; the
	// vacated cell retains mass while the never-visited cells hold less.
	if field.At(at.Lin, at.Col) <= field.At(3, 3) {
		t.Fatal("commit-time deposit must leave a trail at the vacated cell")
	}
}

package evac

import (
	"testing"

	"evac-ca/internal/core"
)

// buildWorld assembles a bordered room with the given exits, layout
// pedestrians and initial fire cells.
func buildWorld(t *testing.T, lines, columns int, exits [][]core.Coord,
	peds, fire []core.Coord, mutate func(*Config)) *World {
	t.Helper()

	env, err := NewRoomEnvironment(lines, columns)
	if err != nil {
		t.Fatalf("room environment: %v", err)
	}
	for _, at := range peds {
		env.AddStaticPedestrian(at)
	}
	for _, at := range fire {
		env.MarkFire(at)
	}

	cfg := DefaultConfig()
	cfg.Seed = 1
	cfg.Params.Kd = 0
	cfg.Params.Kf = 0
	cfg.Params.Mu = 0
	cfg.Params.Omega = 1
	if mutate != nil {
		mutate(&cfg)
	}

	world, err := NewWithConfig(cfg, env)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if err := world.SetExits(exits); err != nil {
		t.Fatalf("set exits: %v", err)
	}
	if err := world.PrepareSet(); err != nil {
		t.Fatalf("prepare set: %v", err)
	}
	return world
}

// singleExit wraps one exit cell the way SetExits expects it.
func singleExit(at core.Coord) [][]core.Coord {
	return [][]core.Coord{{at}}
}

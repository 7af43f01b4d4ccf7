package scenario

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"evac-ca/internal/core"
	"evac-ca/internal/sims/evac"
)

// NoiseLayout configures procedural obstacle generation for sweep studies
// that need many distinct rooms with comparable clutter.
type NoiseLayout struct {
	Lines   int
	Columns int
	Seed    int64

	// Scale stretches the noise: lower values make larger blobs.
	Scale float64
	// Threshold is the normalized noise value above which a cell becomes an
	// obstacle. Higher thresholds give sparser clutter.
	Threshold float64
}

// DefaultNoiseLayout returns generation parameters producing rooms with
// scattered furniture-sized obstacles.
func DefaultNoiseLayout(lines, columns int, seed int64) NoiseLayout {
	return NoiseLayout{
		Lines:     lines,
		Columns:   columns,
		Seed:      seed,
		Scale:     0.18,
		Threshold: 0.72,
	}
}

// GenerateNoiseEnvironment builds a bordered room whose interior obstacles
// follow a simplex-noise field, deterministic for a given seed. Cells axially
// adjacent to the border stay clear so doors placed on the walls remain
// approachable.
func GenerateNoiseEnvironment(layout NoiseLayout) (*evac.Environment, error) {
	if layout.Lines < 3 || layout.Columns < 3 {
		return nil, fmt.Errorf("noise layout needs at least a 3x3 grid, got %dx%d",
			layout.Lines, layout.Columns)
	}

	env, err := evac.NewRoomEnvironment(layout.Lines, layout.Columns)
	if err != nil {
		return nil, err
	}

	noise := opensimplex.NewNormalized(layout.Seed)
	for i := 2; i < layout.Lines-2; i++ {
		for j := 2; j < layout.Columns-2; j++ {
			v := noise.Eval2(float64(j)*layout.Scale, float64(i)*layout.Scale)
			if v > layout.Threshold {
				env.MarkWall(core.Coord{Lin: i, Col: j})
			}
		}
	}

	return env, nil
}

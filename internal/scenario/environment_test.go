package scenario

import (
	"strings"
	"testing"

	"evac-ca/internal/core"
)

const smallLayout = `5 5
#####
#...#
#p.*#
#..._
#####
`

func TestParseEnvironment(t *testing.T) {
	env, err := ParseEnvironment(strings.NewReader(smallLayout), StructureDoorsAndPedestrians)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	size := env.Size()
	if size.L != 5 || size.C != 5 {
		t.Fatalf("size %dx%d, expected 5x5", size.L, size.C)
	}

	if env.Obstacles().At(0, 0) != core.CellWall {
		t.Fatal("'#' must be a wall")
	}
	if env.Obstacles().At(1, 1) != core.CellEmpty {
		t.Fatal("'.' must be empty")
	}

	// The door is a wall in the obstacle grid and a declared exit.
	if env.Obstacles().At(3, 4) != core.CellWall {
		t.Fatal("'_' must still be a wall in the obstacle grid")
	}
	exits := env.StaticExits()
	if len(exits) != 1 || exits[0][0] != (core.Coord{Lin: 3, Col: 4}) {
		t.Fatalf("exits = %v, expected one door at (3,4)", exits)
	}

	peds := env.StaticPedestrians()
	if len(peds) != 1 || peds[0] != (core.Coord{Lin: 2, Col: 1}) {
		t.Fatalf("pedestrians = %v, expected one at (2,1)", peds)
	}

	if env.InitialFire().At(2, 3) != core.CellFire || !env.FirePresent() {
		t.Fatal("'*' must declare an initial fire cell")
	}
}

func TestParseEnvironmentOriginFiltering(t *testing.T) {
	env, err := ParseEnvironment(strings.NewReader(smallLayout), OnlyStructure)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(env.StaticExits()) != 0 {
		t.Fatal("structure-only origin must ignore doors")
	}
	if env.Obstacles().At(3, 4) != core.CellWall {
		t.Fatal("an ignored door still leaves a wall")
	}
	if len(env.StaticPedestrians()) != 0 {
		t.Fatal("structure-only origin must ignore pedestrians")
	}
}

func TestParseEnvironmentRowErrors(t *testing.T) {
	short := "3 4\n####\n#.#\n####\n"
	if _, err := ParseEnvironment(strings.NewReader(short), OnlyStructure); err == nil {
		t.Fatal("short rows must be rejected")
	}

	long := "3 4\n####\n#...#\n####\n"
	if _, err := ParseEnvironment(strings.NewReader(long), OnlyStructure); err == nil {
		t.Fatal("long rows must be rejected")
	}

	missing := "4 4\n####\n#..#\n####\n"
	if _, err := ParseEnvironment(strings.NewReader(missing), OnlyStructure); err == nil {
		t.Fatal("missing rows must be rejected")
	}

	unknown := "3 3\n###\n#?#\n###\n"
	if _, err := ParseEnvironment(strings.NewReader(unknown), OnlyStructure); err == nil {
		t.Fatal("unknown symbols must be rejected")
	}

	noDims := "###\n#.#\n###\n"
	if _, err := ParseEnvironment(strings.NewReader(noDims), OnlyStructure); err == nil {
		t.Fatal("a missing dimension line must be rejected")
	}
}

func TestParseSimulationSets(t *testing.T) {
	input := "2 4 .\n\n1 0 + 2 0 , 3 4 .\n"
	sets, err := ParseSimulationSets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(sets) != 2 {
		t.Fatalf("got %d sets, expected 2 (empty lines ignored)", len(sets))
	}

	if len(sets[0]) != 1 || len(sets[0][0]) != 1 ||
		sets[0][0][0] != (core.Coord{Lin: 2, Col: 4}) {
		t.Fatalf("first set = %v, expected a single one-cell exit", sets[0])
	}

	if len(sets[1]) != 2 {
		t.Fatalf("second set has %d exits, expected 2", len(sets[1]))
	}
	if len(sets[1][0]) != 2 {
		t.Fatalf("first exit of second set has %d cells, expected 2", len(sets[1][0]))
	}
	if sets[1][1][0] != (core.Coord{Lin: 3, Col: 4}) {
		t.Fatalf("second exit = %v, expected (3,4)", sets[1][1])
	}
}

func TestParseSimulationSetsErrors(t *testing.T) {
	if _, err := ParseSimulationSets(strings.NewReader("1 2 ;\n")); err == nil {
		t.Fatal("unknown separators must be rejected")
	}
	if _, err := ParseSimulationSets(strings.NewReader("1 2 , 3 4\n")); err == nil {
		t.Fatal("a line without its terminating '.' must be rejected")
	}
	if _, err := ParseSimulationSets(strings.NewReader("1 x .\n")); err == nil {
		t.Fatal("non-numeric coordinates must be rejected")
	}
}

func TestNoiseGenerationDeterministic(t *testing.T) {
	a, err := GenerateNoiseEnvironment(DefaultNoiseLayout(20, 30, 42))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateNoiseEnvironment(DefaultNoiseLayout(20, 30, 42))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cellsA := a.Obstacles().Cells()
	cellsB := b.Obstacles().Cells()
	for i := range cellsA {
		if cellsA[i] != cellsB[i] {
			t.Fatal("equal seeds must generate identical layouts")
		}
	}

	// Border walls survive generation and the door ring stays clear.
	size := a.Size()
	for j := 0; j < size.C; j++ {
		if a.Obstacles().At(0, j) != core.CellWall ||
			a.Obstacles().At(size.L-1, j) != core.CellWall {
			t.Fatal("generated layouts must keep their border walls")
		}
	}
	for j := 1; j < size.C-1; j++ {
		if a.Obstacles().At(1, j) != core.CellEmpty {
			t.Fatal("cells beside the border must stay clear for doors")
		}
	}
}

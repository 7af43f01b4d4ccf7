package evac

import (
	"fmt"

	"evac-ca/internal/core"
)

// Environment holds the static layout shared by every run of a simulation
// set: the obstacle grid, the exit overlay, the initial fire snapshot and any
// pedestrians declared in the layout itself.
type Environment struct {
	lines, columns int

	obstacles   *core.ByteGrid // CellEmpty / CellWall
	initialFire *core.ByteGrid // CellEmpty / CellFire

	staticExits [][]core.Coord // exits declared in the layout, one group per exit
	staticPeds  []core.Coord   // pedestrians declared in the layout

	firePresent bool
}

// NewEnvironment returns an empty environment of the given dimensions.
func NewEnvironment(lines, columns int) (*Environment, error) {
	if lines <= 0 || columns <= 0 {
		return nil, fmt.Errorf("invalid environment dimensions %dx%d", lines, columns)
	}
	return &Environment{
		lines:       lines,
		columns:     columns,
		obstacles:   core.NewByteGrid(lines, columns),
		initialFire: core.NewByteGrid(lines, columns),
	}, nil
}

// NewRoomEnvironment returns an environment whose border cells are walls and
// whose interior is empty, the shape used when no layout file is given.
func NewRoomEnvironment(lines, columns int) (*Environment, error) {
	env, err := NewEnvironment(lines, columns)
	if err != nil {
		return nil, err
	}
	for i := 0; i < lines; i++ {
		for j := 0; j < columns; j++ {
			if i == 0 || i == lines-1 || j == 0 || j == columns-1 {
				env.obstacles.Set(i, j, core.CellWall)
			}
		}
	}
	return env, nil
}

// Size reports the environment dimensions.
func (e *Environment) Size() core.Size { return core.Size{L: e.lines, C: e.columns} }

// Obstacles exposes the wall layout.
func (e *Environment) Obstacles() *core.ByteGrid { return e.obstacles }

// InitialFire exposes the initial fire snapshot.
func (e *Environment) InitialFire() *core.ByteGrid { return e.initialFire }

// FirePresent reports whether the layout declares any fire cell.
func (e *Environment) FirePresent() bool { return e.firePresent }

// StaticExits returns the exits declared in the layout.
func (e *Environment) StaticExits() [][]core.Coord { return e.staticExits }

// StaticPedestrians returns the pedestrian positions declared in the layout.
func (e *Environment) StaticPedestrians() []core.Coord { return e.staticPeds }

// MarkWall places a wall or obstacle at the given cell.
func (e *Environment) MarkWall(at core.Coord) {
	e.obstacles.Set(at.Lin, at.Col, core.CellWall)
}

// MarkExit declares a single-cell exit. The cell is a wall in the obstacle
// grid; its exit nature is surfaced through the exit overlay at set setup.
func (e *Environment) MarkExit(at core.Coord) {
	e.obstacles.Set(at.Lin, at.Col, core.CellWall)
	e.staticExits = append(e.staticExits, []core.Coord{at})
}

// MarkFire places an initial fire cell. The cell stays empty in the obstacle
// grid so pedestrians placed before ignition could stand there.
func (e *Environment) MarkFire(at core.Coord) {
	e.initialFire.Set(at.Lin, at.Col, core.CellFire)
	e.firePresent = true
}

// AddStaticPedestrian declares a pedestrian at the given cell.
func (e *Environment) AddStaticPedestrian(at core.Coord) {
	e.staticPeds = append(e.staticPeds, at)
}

// CountEmpty returns the number of cells not occupied by walls or obstacles.
func (e *Environment) CountEmpty() int {
	count := 0
	for _, v := range e.obstacles.Cells() {
		if v == core.CellEmpty {
			count++
		}
	}
	return count
}

// InBounds reports whether the coordinate lies inside the environment.
func (e *Environment) InBounds(at core.Coord) bool {
	return e.obstacles.InBounds(at.Lin, at.Col)
}

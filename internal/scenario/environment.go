// Package scenario loads evacuation scenarios: environment layouts from
// text files, simulation-set exit lists from auxiliary files, and
// noise-generated layouts for sweep studies.
package scenario

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"evac-ca/internal/core"
	"evac-ca/internal/sims/evac"
)

// Origin selects which layout symbols are honored when loading an
// environment.
type Origin int

const (
	// OnlyStructure keeps walls only; doors and pedestrians in the layout
	// become walls and empty cells. Exits come from an auxiliary file.
	OnlyStructure Origin = iota + 1
	// StructureAndDoors honors walls and doors.
	StructureAndDoors
	// StructureAndPedestrians honors walls and pedestrians; exits come from
	// an auxiliary file.
	StructureAndPedestrians
	// StructureDoorsAndPedestrians honors every layout symbol.
	StructureDoorsAndPedestrians
	// Generated builds a bordered empty rectangle instead of reading a file.
	Generated
)

// UsesStaticExits reports whether the layout's doors are honored.
func (o Origin) UsesStaticExits() bool {
	return o == StructureAndDoors || o == StructureDoorsAndPedestrians
}

// UsesStaticPedestrians reports whether the layout's pedestrians are honored.
func (o Origin) UsesStaticPedestrians() bool {
	return o == StructureAndPedestrians || o == StructureDoorsAndPedestrians
}

// UsesAuxiliaryData reports whether exits come from an auxiliary file.
func (o Origin) UsesAuxiliaryData() bool {
	return o == OnlyStructure || o == StructureAndPedestrians
}

// ParseEnvironment reads the text layout format: a first line "L C" followed
// by L rows of exactly C symbols from {#, _, ., p, P, *}. Rows longer or
// shorter than C are errors.
func ParseEnvironment(r io.Reader, origin Origin) (*evac.Environment, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return nil, fmt.Errorf("environment dimensions not found in the first line")
	}
	var lines, columns int
	if _, err := fmt.Sscanf(strings.TrimSpace(scanner.Text()), "%d %d", &lines, &columns); err != nil {
		return nil, fmt.Errorf("environment dimensions not found in the first line: %w", err)
	}

	env, err := evac.NewEnvironment(lines, columns)
	if err != nil {
		return nil, err
	}

	for i := 0; i < lines; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("environment has %d rows, expected %d", i, lines)
		}
		row := scanner.Text()
		if len(row) > columns {
			return nil, fmt.Errorf("line %d has more columns than the declared %d", i, columns)
		}
		if len(row) < columns {
			return nil, fmt.Errorf("line %d has fewer columns than the declared %d", i, columns)
		}

		for j := 0; j < columns; j++ {
			at := core.Coord{Lin: i, Col: j}
			switch row[j] {
			case '#':
				env.MarkWall(at)
			case '_':
				if origin.UsesStaticExits() {
					env.MarkExit(at)
				} else {
					env.MarkWall(at) // a wall still stands where the door was
				}
			case '.':
				// empty
			case 'p', 'P':
				if origin.UsesStaticPedestrians() {
					env.AddStaticPedestrian(at)
				}
			case '*':
				env.MarkFire(at)
			default:
				return nil, fmt.Errorf("unknown symbol %q in the environment file", row[j])
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return env, nil
}

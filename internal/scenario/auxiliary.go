package scenario

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"evac-ca/internal/core"
)

// SimulationSet is one exit configuration: a list of exits, each made of one
// or more cells.
type SimulationSet [][]core.Coord

// ParseSimulationSets reads the auxiliary-file format. Each non-empty line is
// one simulation set of coordinate pairs: cells of one exit are joined with
// '+', exits are separated with ',' and the line ends with '.'. Empty lines
// are ignored.
func ParseSimulationSets(r io.Reader) ([]SimulationSet, error) {
	var sets []SimulationSet

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		set, err := parseSetLine(line)
		if err != nil {
			return nil, fmt.Errorf("auxiliary line %d: %w", lineNumber, err)
		}
		sets = append(sets, set)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read auxiliary file: %w", err)
	}

	return sets, nil
}

func parseSetLine(line string) (SimulationSet, error) {
	var set SimulationSet
	var current []core.Coord

	reader := strings.NewReader(line)
	for {
		var lin, col int
		var sep byte
		n, err := fmt.Fscanf(reader, "%d %d %c", &lin, &col, &sep)
		if err == io.EOF && n == 0 {
			break
		}
		if err != nil || n != 3 {
			return nil, fmt.Errorf("malformed exit coordinates")
		}

		current = append(current, core.Coord{Lin: lin, Col: col})

		switch sep {
		case '+':
			// next pair extends the current exit
		case ',':
			set = append(set, current)
			current = nil
		case '.':
			set = append(set, current)
			return set, nil
		default:
			return nil, fmt.Errorf("unknown separator %q", sep)
		}
	}

	return nil, fmt.Errorf("missing terminating '.'")
}

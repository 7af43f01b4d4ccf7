package evac

import "evac-ca/internal/core"

// Display palette. Pedestrians draw over everything except fire.
const (
	DisplayEmpty uint8 = iota
	DisplayWall
	DisplayExit
	DisplayBlockedExit
	DisplayFire
	DisplayPedestrian
)

// refreshDisplay rebuilds the display buffer from the layered grids.
func (w *World) refreshDisplay() {
	for i := 0; i < w.lines; i++ {
		for j := 0; j < w.columns; j++ {
			idx := i*w.columns + j

			v := DisplayEmpty
			switch {
			case w.fire.grid.At(i, j) == core.CellFire:
				v = DisplayFire
			case w.positions.At(i, j) > 0:
				v = DisplayPedestrian
			case w.exitsOnly.At(i, j) == core.CellExit:
				v = DisplayExit
			case w.exitsOnly.At(i, j) == core.CellBlockedExit:
				v = DisplayBlockedExit
			case w.env.Obstacles().At(i, j) == core.CellWall:
				v = DisplayWall
			}
			w.display[idx] = v
		}
	}
}

// DisplayRunes renders the display buffer with the environment-file symbols,
// one string per line: '#' wall, '_' exit, 'X' exit blocked by fire, 'p'
// pedestrian, '*' fire, '.' empty.
func (w *World) DisplayRunes() []string {
	lines := make([]string, w.lines)
	row := make([]byte, w.columns)
	for i := 0; i < w.lines; i++ {
		for j := 0; j < w.columns; j++ {
			switch w.display[i*w.columns+j] {
			case DisplayWall:
				row[j] = '#'
			case DisplayExit:
				row[j] = '_'
			case DisplayBlockedExit:
				row[j] = 'X'
			case DisplayFire:
				row[j] = '*'
			case DisplayPedestrian:
				row[j] = 'p'
			default:
				row[j] = '.'
			}
		}
		lines[i] = string(row)
	}
	return lines
}

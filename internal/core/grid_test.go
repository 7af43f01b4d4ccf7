package core

import "testing"

func TestGridBounds(t *testing.T) {
	g := NewByteGrid(4, 6)
	if !g.InBounds(0, 0) || !g.InBounds(3, 5) {
		t.Fatal("corner cells must be in bounds")
	}
	if g.InBounds(-1, 0) || g.InBounds(0, -1) || g.InBounds(4, 0) || g.InBounds(0, 6) {
		t.Fatal("out-of-range coordinates must be rejected")
	}
}

func TestFloatGridSumAndScale(t *testing.T) {
	g := NewFloatGrid(3, 3)
	g.Set(0, 0, 2)
	g.Set(1, 1, 3)
	g.Set(2, 2, 5)
	if got := g.Sum(); got != 10 {
		t.Fatalf("sum = %f, expected 10", got)
	}
	g.Scale(0.1)
	if got := g.Sum(); got < 0.999999 || got > 1.000001 {
		t.Fatalf("sum after scale = %f, expected 1", got)
	}
}

func TestDiagonalPassable(t *testing.T) {
	walls := NewByteGrid(3, 3)
	origin := Coord{Lin: 1, Col: 1}
	mod := Coord{Lin: -1, Col: 1} // toward (0,2)

	if !DiagonalPassable(walls, origin, mod, false) {
		t.Fatal("open diagonal must be passable")
	}

	// One flanking wall: passable unless corner crossing is prevented.
	walls.Set(0, 1, CellWall)
	if !DiagonalPassable(walls, origin, mod, false) {
		t.Fatal("diagonal with one flanking wall must be passable")
	}
	if DiagonalPassable(walls, origin, mod, true) {
		t.Fatal("prevent-corner-crossing must block a flanked diagonal")
	}

	// Both flanking walls always block.
	walls.Set(1, 2, CellWall)
	if DiagonalPassable(walls, origin, mod, false) {
		t.Fatal("diagonal between two walls must be blocked")
	}
}

func TestPalettePinned(t *testing.T) {
	// The sentinel palette is part of the on-disk display contract.
	if CellEmpty != 0 || CellWall != 1 || CellExit != 2 || CellBlockedExit != 3 || CellFire != 4 {
		t.Fatal("cell palette changed")
	}
	if RiskNone != 0 || RiskRisky != 1 || RiskDanger != 2 {
		t.Fatal("risk palette changed")
	}
}

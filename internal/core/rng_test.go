package core

import "testing"

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("draw %d diverged for equal seeds", i)
		}
	}
}

func TestWithinRange(t *testing.T) {
	r := NewRNG(7)
	for i := 0; i < 1000; i++ {
		v := Within(r, 1, 24)
		if v < 1 || v >= 24 {
			t.Fatalf("draw %f outside [1, 24)", v)
		}
	}
}

func TestProbabilityTestExtremes(t *testing.T) {
	r := NewRNG(7)
	for i := 0; i < 100; i++ {
		if ProbabilityTest(r, 0) {
			t.Fatal("probability 0 must never fire")
		}
		if !ProbabilityTest(r, 1) {
			t.Fatal("probability 1 must always fire")
		}
	}
}

func TestRouletteWheel(t *testing.T) {
	r := NewRNG(3)

	weights := []float64{1, 0, 1}
	counts := [3]int{}
	for i := 0; i < 1000; i++ {
		idx := RouletteWheel(r, weights, 2)
		if idx < 0 || idx > 2 {
			t.Fatalf("index %d out of range", idx)
		}
		counts[idx]++
	}
	if counts[1] != 0 {
		t.Fatal("zero-weight entry was selected")
	}
	if counts[0] == 0 || counts[2] == 0 {
		t.Fatal("positive-weight entries must both be selected over 1000 draws")
	}

	if RouletteWheel(r, weights, 0) != -1 {
		t.Fatal("zero total must return -1")
	}
}

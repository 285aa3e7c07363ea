package random

import "testing"

func TestNewIsDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 10; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("Expected identical sequences, diverged at %d: %d != %d", i, x, y)
		}
	}
}

func TestFromConfigKeepsExplicitSeed(t *testing.T) {
	_, seed, err := FromConfig(7)
	if err != nil {
		t.Fatalf("Failed to build random source: %v", err)
	}
	if seed != 7 {
		t.Errorf("Expected seed 7, got %d", seed)
	}

	_, seed, err = FromConfig(0)
	if err != nil {
		t.Fatalf("Failed to build random source: %v", err)
	}
	if seed == 0 {
		t.Errorf("Expected a generated seed, got 0")
	}
}

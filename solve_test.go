package ssfcm

import (
	"math"
	"testing"
)

func TestBisection_FindsRootInBracket(t *testing.T) {
	root, ok := defaultRootFinder.findRoot(func(x float64) float64 { return x*x - 0.25 }, 0, 1)
	if !ok {
		t.Fatal("expected a root")
	}
	if !almostEqual(root, 0.5, 1e-9) {
		t.Errorf("expected 0.5, got %v", root)
	}
}

func TestBisection_ExpandsBracket(t *testing.T) {
	// sqrt(2) lies outside [0, 1].
	root, ok := defaultRootFinder.findRoot(func(x float64) float64 { return x*x - 2 }, 0, 1)
	if !ok {
		t.Fatal("expected a root")
	}
	if !almostEqual(root, math.Sqrt2, 1e-9) {
		t.Errorf("expected %v, got %v", math.Sqrt2, root)
	}
}

func TestBisection_DecreasingFunction(t *testing.T) {
	root, ok := defaultRootFinder.findRoot(func(x float64) float64 { return 3 - x }, 2, 2.5)
	if !ok {
		t.Fatal("expected a root")
	}
	if !almostEqual(root, 3, 1e-9) {
		t.Errorf("expected 3, got %v", root)
	}
}

func TestBisection_RootAtLowerBound(t *testing.T) {
	root, ok := defaultRootFinder.findRoot(func(x float64) float64 { return x - 1 }, 1, 2)
	if !ok || root != 1 {
		t.Errorf("expected (1, true), got (%v, %v)", root, ok)
	}
}

func TestBisection_NoSignChange(t *testing.T) {
	_, ok := defaultRootFinder.findRoot(func(x float64) float64 { return x*x + 1 }, 0, 1)
	if ok {
		t.Error("expected failure for a function with no real root")
	}
}

func TestBisection_NaN(t *testing.T) {
	// math.Pow of a negative base with a fractional exponent is NaN.
	f := func(x float64) float64 { return math.Pow(x-5, 0.5) + 1 }
	_, ok := defaultRootFinder.findRoot(f, 0, 1)
	if ok {
		t.Error("expected failure when f is NaN")
	}
}

func TestBisection_EmptyInterval(t *testing.T) {
	for _, hi := range []float64{1, 0.5, math.NaN()} {
		if _, ok := defaultRootFinder.findRoot(func(x float64) float64 { return x - 1 }, 1, hi); ok {
			t.Errorf("hi=%v: expected failure", hi)
		}
	}
}

func TestBisection_ExpansionLimit(t *testing.T) {
	b := bisection{maxExpand: 2, maxIter: 200, tol: 1e-12}
	// Root at 100 needs more than two doublings of [0, 1].
	if _, ok := b.findRoot(func(x float64) float64 { return x - 100 }, 0, 1); ok {
		t.Error("expected failure once the expansion budget is spent")
	}
	if root, ok := defaultRootFinder.findRoot(func(x float64) float64 { return x - 100 }, 0, 1); !ok || !almostEqual(root, 100, 1e-9) {
		t.Errorf("expected (100, true), got (%v, %v)", root, ok)
	}
}

// failingSolver never finds a root.
type failingSolver struct{ calls int }

func (s *failingSolver) findRoot(func(float64) float64, float64, float64) (float64, bool) {
	s.calls++
	return 0, false
}

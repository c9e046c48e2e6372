package ssfcm

import "math"

// rootFinder finds a real root of a scalar function. ok is false when no
// sign change could be bracketed, when f produced a non-real (NaN) or
// infinite value, or when the iteration budget ran out.
type rootFinder interface {
	findRoot(f func(float64) float64, lo, hi float64) (root float64, ok bool)
}

// bisection brackets a root by growing [lo, hi] away from lo and then
// bisects it.
type bisection struct {
	maxExpand int
	maxIter   int
	tol       float64
}

var defaultRootFinder rootFinder = bisection{maxExpand: 64, maxIter: 200, tol: 1e-12}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func (b bisection) findRoot(f func(float64) float64, lo, hi float64) (float64, bool) {
	if !(hi > lo) {
		return 0, false
	}
	flo := f(lo)
	if !finite(flo) {
		return 0, false
	}
	if flo == 0 {
		return lo, true
	}

	width := hi - lo
	fhi := f(hi)
	for i := 0; ; i++ {
		if !finite(fhi) {
			return 0, false
		}
		if fhi == 0 {
			return hi, true
		}
		if math.Signbit(fhi) != math.Signbit(flo) {
			break
		}
		if i >= b.maxExpand {
			return 0, false
		}
		width *= 2
		hi = lo + width
		fhi = f(hi)
	}

	for i := 0; i < b.maxIter; i++ {
		mid := lo + (hi-lo)/2
		if mid == lo || mid == hi {
			return mid, true
		}
		fm := f(mid)
		if !finite(fm) {
			return 0, false
		}
		if fm == 0 || (hi-lo)/2 < b.tol*math.Max(1, math.Abs(mid)) {
			return mid, true
		}
		if math.Signbit(fm) == math.Signbit(flo) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return 0, false
}

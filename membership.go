package ssfcm

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	equationMembership = "membership"
	equationFuzzifier  = "fuzzifier"
)

// updateMembership recomputes every membership row from the current Dij.
// Unsupervised points use the closed-form fuzzy c-means update. On iteration
// 2 the fuzzifiers of under-confident supervised points are escalated between
// the closed-form pass and the supervised pass. Supervised points then solve
// for their membership in their own cluster; when that solve fails the point
// keeps its previous row, or the closed-form row on the first iteration when
// there is no previous row.
func (e *Engine) updateMembership(ctx context.Context, iteration int) {
	pow := 1 / (e.cfg.Fuzzifier - 1)
	row := make([]float64, e.k)
	for i, own := range e.truth {
		if own < 0 {
			e.closedFormRow(i, pow, row)
			e.membership.SetRow(i, row)
		}
	}

	if iteration == 2 {
		e.escalateFuzzifiers(ctx, iteration)
	}

	for i, own := range e.truth {
		if own < 0 {
			continue
		}
		if e.supervisedRow(i, own, row) {
			e.membership.SetRow(i, row)
			continue
		}
		e.solveFailures++
		e.logger.LogSolveFailure(ctx, equationMembership, i, own, iteration)
		if iteration == 1 {
			e.closedFormRow(i, pow, row)
			e.membership.SetRow(i, row)
		}
	}
}

// closedFormRow writes u[k] = 1 / (D[k]^p * Σ_j 1/D[j]^p) into row.
func (e *Engine) closedFormRow(i int, pow float64, row []float64) {
	d := e.dij.RawRowView(i)
	var inv float64
	for c := range row {
		row[c] = math.Pow(d[c], pow)
		inv += 1 / row[c]
	}
	for c := range row {
		row[c] = 1 / (row[c] * inv)
	}
}

// supervisedRow computes the membership row of point i whose known cluster
// is own. It reports false, leaving row in an undefined state, if the
// membership equation has no usable real root.
func (e *Engine) supervisedRow(i, own int, row []float64) bool {
	if e.k == 1 {
		row[0] = 1
		return true
	}

	m := e.cfg.Fuzzifier
	mi := e.fuzzifier.At(i, own)
	d := e.dij.RawRowView(i)
	dmin := floats.Min(d)

	var rest float64
	for c := range row {
		if c == own {
			continue
		}
		dc := d[c] / dmin
		row[c] = math.Pow(1/(m*dc*dc), 1/(m-1))
		rest += row[c]
	}
	if !finite(rest) {
		return false
	}

	dk := d[own] / dmin
	target := math.Pow(1/(mi*dk*dk), 1/(mi-1))
	if !finite(target) {
		return false
	}
	p := (mi - m) / (mi - 1)
	f := func(u float64) float64 {
		return u/math.Pow(u+rest, p) - target
	}

	u, ok := e.solver.findRoot(f, 0, 1)
	if !ok || u < 0 {
		return false
	}
	row[own] = u

	sum := floats.Sum(row)
	if !(sum > 0) || !finite(sum) {
		return false
	}
	floats.Scale(1/sum, row)
	return true
}

// escalateFuzzifiers raises the fuzzifier row of every supervised point whose
// closed-form membership in its own cluster, under the current Dij, is below
// Alpha. It solves Mi·α^(Mi-1) = M·((1-α)/(1/u - 1))^(M-1) for Mi starting at
// M. A point whose equation has no real root above M keeps M.
func (e *Engine) escalateFuzzifiers(ctx context.Context, iteration int) {
	m, alpha := e.cfg.Fuzzifier, e.cfg.Alpha
	pow := 1 / (m - 1)
	row := make([]float64, e.k)
	for i, own := range e.truth {
		if own < 0 {
			continue
		}
		e.closedFormRow(i, pow, row)
		u := row[own]
		if u >= alpha {
			continue
		}

		target := m * math.Pow((1-alpha)/(1/u-1), m-1)
		ok := target > 0 && finite(target)
		var mi float64
		if ok {
			f := func(x float64) float64 {
				return x*math.Pow(alpha, x-1) - target
			}
			mi, ok = e.solver.findRoot(f, m, m+1)
		}
		if !ok {
			e.solveFailures++
			e.logger.LogSolveFailure(ctx, equationFuzzifier, i, own, iteration)
			continue
		}

		mi = max(mi, m)
		for c := 0; c < e.k; c++ {
			e.fuzzifier.Set(i, c, mi)
		}
		e.escalated++
	}
}

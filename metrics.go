package ssfcm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// aswcEpsilon keeps the ASWC ratio finite for single-point clusters.
const aswcEpsilon = 1e-6

// assign derives the hard partition from the membership matrix: each point
// goes to its highest-membership cluster, the lowest index winning ties.
func (e *Engine) assign() {
	for c := range e.members {
		e.members[c] = e.members[c][:0]
	}
	for i := 0; i < e.n; i++ {
		c := floats.MaxIdx(e.membership.RawRowView(i))
		e.labels[i] = c
		e.members[c] = append(e.members[c], i)
	}

	partition := make([][]string, e.k)
	for c, members := range e.members {
		partition[c] = make([]string, len(members))
		for j, i := range members {
			partition[c][j] = e.identity[i]
		}
	}
	e.predLabels = append(e.predLabels, partition)
}

// loss is Σ_i Σ_k u[i][k]^F[i][k] · Dij[i][k].
func (e *Engine) loss() float64 {
	var sum float64
	for i := 0; i < e.n; i++ {
		for c := 0; c < e.k; c++ {
			sum += math.Pow(e.membership.At(i, c), e.fuzzifier.At(i, c)) * e.dij.At(i, c)
		}
	}
	return sum
}

// daviesBouldin averages, over clusters, the worst ratio of summed
// intra-cluster scatter to centroid separation. Scatter is the mean fused
// distance of a cluster's hard-assigned points, 0 for an empty cluster.
func (e *Engine) daviesBouldin() float64 {
	scatter := make([]float64, e.k)
	buf := make([]float64, 0, e.n)
	for c, members := range e.members {
		if len(members) == 0 {
			continue
		}
		buf = buf[:0]
		for _, i := range members {
			buf = append(buf, e.dij.At(i, c))
		}
		scatter[c] = stat.Mean(buf, nil)
	}

	var sum float64
	for c := 0; c < e.k; c++ {
		var worst float64
		for o := 0; o < e.k; o++ {
			if o == c {
				continue
			}
			worst = math.Max(worst, (scatter[c]+scatter[o])/e.centroidDistance(c, o))
		}
		sum += worst
	}
	return sum / float64(e.k)
}

// aswc scores each point as b / (a + 1e-6), where a is its mean raw distance
// to the points of its own cluster (itself included) and b is the largest
// mean raw distance to any other non-empty cluster, and returns the mean
// score.
func (e *Engine) aswc() float64 {
	buf := make([]float64, 0, e.n)
	var sum float64
	for i := 0; i < e.n; i++ {
		row := e.pairwise[i*e.n : (i+1)*e.n]
		var a, b float64
		for c, members := range e.members {
			if len(members) == 0 {
				continue
			}
			buf = buf[:0]
			for _, j := range members {
				buf = append(buf, row[j])
			}
			q := stat.Mean(buf, nil)
			if c == e.labels[i] {
				a = q
			} else if b < q {
				b = q
			}
		}
		sum += b / (a + aswcEpsilon)
	}
	return sum / float64(e.n)
}

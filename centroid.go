package ssfcm

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// initCentroids seeds one centroid per supervised group. A non-empty group
// is seeded with the mean of its members; empty groups are filled in index
// order with the point farthest from every centroid chosen so far.
func (e *Engine) initCentroids(ctx context.Context) {
	centroids := mat.NewDense(e.k, e.dims, nil)
	chosen := make([]int, 0, e.k)

	for c, members := range e.supervised {
		if len(members) == 0 {
			continue
		}
		row := centroids.RawRowView(c)
		for _, i := range members {
			floats.Add(row, e.data.RawRowView(i))
		}
		floats.Scale(1/float64(len(members)), row)
		chosen = append(chosen, c)
	}

	for c, members := range e.supervised {
		if len(members) != 0 {
			continue
		}
		if len(chosen) > 0 {
			e.measure(selectRows(centroids, chosen))
		}
		next := e.farthestPoint(ctx, len(chosen))
		centroids.SetRow(c, e.data.RawRowView(next))
		chosen = append(chosen, c)
	}

	e.centroids = centroids
	e.measure(centroids)
}

// farthestPoint returns the index of the point whose minimum fused distance
// to the k most recently measured centroids is largest. Ties go to the
// lowest index; with k == 0 every point ties and 0 is returned.
func (e *Engine) farthestPoint(ctx context.Context, k int) int {
	nearest := make([]float64, e.n)
	for i := range nearest {
		d := math.Inf(1)
		for c := 0; c < k; c++ {
			d = math.Min(d, e.pointDistance(ctx, i, c))
		}
		nearest[i] = d
	}
	return floats.MaxIdx(nearest)
}

func selectRows(m *mat.Dense, rows []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(rows), cols, nil)
	for r, src := range rows {
		out.SetRow(r, m.RawRowView(src))
	}
	return out
}

// updateCentroids moves every centroid to the membership-weighted mean of
// the data, each point weighted by u^F with its own fuzzifier F. A cluster
// with zero total weight keeps its centroid. Returns the summed Euclidean
// shift of all centroids.
func (e *Engine) updateCentroids() float64 {
	next := mat.NewDense(e.k, e.dims, nil)
	var shift float64
	for c := 0; c < e.k; c++ {
		row := next.RawRowView(c)
		var total float64
		for i := 0; i < e.n; i++ {
			w := math.Pow(e.membership.At(i, c), e.fuzzifier.At(i, c))
			floats.AddScaled(row, w, e.data.RawRowView(i))
			total += w
		}
		old := e.centroids.RawRowView(c)
		if total > 0 && finite(total) {
			floats.Scale(1/total, row)
		} else {
			copy(row, old)
		}
		shift += floats.Distance(old, row, 2)
	}
	e.centroids = next
	return shift
}

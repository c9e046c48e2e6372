package ssfcm

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// field is one contiguous block of coordinates inside a data vector.
type field struct {
	offset int
	width  int
	weight float64
}

func (f field) slice(v []float64) []float64 {
	return v[f.offset : f.offset+f.width]
}

// fieldStats summarizes a field's point×centroid raw distance matrix.
type fieldStats struct {
	norm float64 // Frobenius norm, used by NormL2
	min  float64 // used by NormMinMax
	max  float64 // used by NormMinMax
}

func buildFields(lens []int, weights []float64) []field {
	fields := make([]field, len(lens))
	offset := 0
	for i, w := range lens {
		fields[i] = field{offset: offset, width: w, weight: weights[i]}
		offset += w
	}
	return fields
}

// measure recomputes every field's raw point×centroid distance matrix and its
// stats against centroids, which must have at least one row.
func (e *Engine) measure(centroids *mat.Dense) {
	k, _ := centroids.Dims()
	for fi, f := range e.fields {
		m := mat.NewDense(e.n, k, nil)
		for i := 0; i < e.n; i++ {
			x := f.slice(e.data.RawRowView(i))
			for c := 0; c < k; c++ {
				m.Set(i, c, e.cfg.Metric.Distance(x, f.slice(centroids.RawRowView(c))))
			}
		}
		raw := m.RawMatrix().Data
		e.fieldDist[fi] = m
		e.stats[fi] = fieldStats{
			norm: floats.Norm(raw, 2),
			min:  floats.Min(raw),
			max:  floats.Max(raw),
		}
	}
}

// pointDistance fuses the normalized field distances from point i to the
// centroid in column c of the last measured centroid set.
func (e *Engine) pointDistance(ctx context.Context, i, c int) float64 {
	var d float64
	for fi, f := range e.fields {
		raw := e.fieldDist[fi].At(i, c)
		st := e.stats[fi]
		var fd float64
		switch e.cfg.NormMode {
		case NormL2:
			if st.norm != 0 {
				fd = f.weight * raw / st.norm
			}
		case NormMinMax:
			if st.max != 0 {
				fd = f.weight * (raw - st.min) / st.max
			}
			if fd < 0 {
				e.negativeDistances++
				e.logger.LogNegativeDistance(ctx, fi, i, c, fd)
			}
		}
		d += fd
	}
	return e.floor(d)
}

// centroidDistance fuses the normalized field distances between centroids a
// and b. In min-max mode the field minimum is only subtracted when the raw
// distance exceeds it, so the result never goes negative.
func (e *Engine) centroidDistance(a, b int) float64 {
	ca, cb := e.centroids.RawRowView(a), e.centroids.RawRowView(b)
	var d float64
	for fi, f := range e.fields {
		raw := e.cfg.Metric.Distance(f.slice(ca), f.slice(cb))
		st := e.stats[fi]
		switch e.cfg.NormMode {
		case NormL2:
			if st.norm != 0 {
				d += f.weight * raw / st.norm
			}
		case NormMinMax:
			if st.max != 0 {
				if raw > st.min {
					raw -= st.min
				}
				d += f.weight * raw / st.max
			}
		}
	}
	return e.floor(d)
}

// floor replaces an exactly-zero fused distance with ε² so that it can be
// safely inverted.
func (e *Engine) floor(d float64) float64 {
	if d == 0 {
		return e.cfg.Epsilon * e.cfg.Epsilon
	}
	return d
}

// computeDij refreshes the fused point×centroid distance cache.
func (e *Engine) computeDij(ctx context.Context) {
	if e.dij == nil {
		e.dij = mat.NewDense(e.n, e.k, nil)
	}
	for i := 0; i < e.n; i++ {
		for c := 0; c < e.k; c++ {
			e.dij.Set(i, c, e.pointDistance(ctx, i, c))
		}
	}
}

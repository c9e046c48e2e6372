package ssfcm

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestEngine(t *testing.T, data [][]float64, fieldsLen []int, mode NormMode, groups [][]string) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.FieldsLen = fieldsLen
	cfg.NormMode = mode
	cfg.SupervisedSet = groups
	cfg.Workers = 1
	e, err := New(data, cfg)
	require.NoError(t, err)
	return e
}

func TestBuildFields(t *testing.T) {
	fields := buildFields([]int{2, 1, 3}, []float64{1, 0.5, 2})

	require.Len(t, fields, 3)
	assert.Equal(t, field{offset: 0, width: 2, weight: 1}, fields[0])
	assert.Equal(t, field{offset: 2, width: 1, weight: 0.5}, fields[1])
	assert.Equal(t, field{offset: 3, width: 3, weight: 2}, fields[2])

	v := []float64{1, 2, 3, 4, 5, 6}
	assert.Equal(t, []float64{3}, fields[1].slice(v))
	assert.Equal(t, []float64{4, 5, 6}, fields[2].slice(v))
}

func TestPointDistance_Normalization(t *testing.T) {
	// One field, raw distances to a centroid at 0 are 0, 3 and 4:
	// norm = 5, min = 0, max = 4.
	data := [][]float64{{0}, {3}, {4}}
	ctx := context.Background()

	tests := []struct {
		mode   NormMode
		weight float64
		want   float64
	}{
		{NormMinMax, 1, 0.75},
		{NormMinMax, 2, 1.5},
		{NormL2, 1, 0.6},
		{NormL2, 2, 1.2},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			e := newTestEngine(t, data, []int{1}, tt.mode, [][]string{{}})
			e.fields[0].weight = tt.weight
			e.measure(mat.NewDense(1, 1, []float64{0}))

			assert.InDelta(t, 5.0, e.stats[0].norm, floatTol)
			assert.Equal(t, 0.0, e.stats[0].min)
			assert.Equal(t, 4.0, e.stats[0].max)
			assert.InDelta(t, tt.want, e.pointDistance(ctx, 1, 0), floatTol)
		})
	}
}

func TestPointDistance_FusesFields(t *testing.T) {
	// Field 0 is 2-D, field 1 is 1-D; the centroid sits at the origin.
	data := [][]float64{{0, 0, 0}, {3, 4, 1}, {6, 8, 2}}
	e := newTestEngine(t, data, []int{2, 1}, NormMinMax, [][]string{{}})
	e.fields[1].weight = 2
	e.measure(mat.NewDense(1, 3, nil))

	// field 0 raw: 0, 5, 10 -> (5-0)/10; field 1 raw: 0, 1, 2 -> 2*(1-0)/2
	assert.InDelta(t, 0.5+1.0, e.pointDistance(context.Background(), 1, 0), floatTol)
}

func TestPointDistance_ZeroIsFloored(t *testing.T) {
	for _, mode := range []NormMode{NormMinMax, NormL2} {
		t.Run(string(mode), func(t *testing.T) {
			e := newTestEngine(t, [][]float64{{1}, {1}}, []int{1}, mode, [][]string{{}})
			e.measure(mat.NewDense(1, 1, []float64{1}))

			eps := e.cfg.Epsilon
			assert.Equal(t, eps*eps, e.pointDistance(context.Background(), 0, 0))
			assert.Equal(t, eps*eps, e.pointDistance(context.Background(), 1, 0))
		})
	}
}

func TestPointDistance_ZeroWeightField(t *testing.T) {
	data := [][]float64{{0, 0}, {3, 10}}
	e := newTestEngine(t, data, []int{1, 1}, NormL2, [][]string{{}})
	e.fields[1].weight = 0
	e.measure(mat.NewDense(1, 2, nil))

	// Only field 0 contributes: 3 / sqrt(0 + 9).
	assert.InDelta(t, 1.0, e.pointDistance(context.Background(), 1, 0), floatTol)
}

func TestPointDistance_NegativeMinMaxIsCounted(t *testing.T) {
	data := [][]float64{{0}, {3}, {4}}
	e := newTestEngine(t, data, []int{1}, NormMinMax, [][]string{{}})
	e.measure(mat.NewDense(1, 1, []float64{0}))
	e.stats[0].min = 3.5

	d := e.pointDistance(context.Background(), 1, 0)
	assert.InDelta(t, -0.125, d, floatTol)
	assert.Equal(t, 1, e.NegativeDistances())
}

func TestCentroidDistance(t *testing.T) {
	// Points 1 and 3 against centroids 0 and 4: raw distances 1, 3, 3, 1.
	data := [][]float64{{1}, {3}}

	t.Run("min-max subtracts min above it", func(t *testing.T) {
		e := newTestEngine(t, data, []int{1}, NormMinMax, [][]string{{}, {}})
		e.centroids = mat.NewDense(2, 1, []float64{0, 4})
		e.measure(e.centroids)
		// min 1, max 3: (4-1)/3
		assert.InDelta(t, 1.0, e.centroidDistance(0, 1), floatTol)
		assert.InDelta(t, 1.0, e.centroidDistance(1, 0), floatTol)
	})

	t.Run("min-max keeps raw at or below min", func(t *testing.T) {
		e := newTestEngine(t, data, []int{1}, NormMinMax, [][]string{{}, {}})
		e.centroids = mat.NewDense(2, 1, []float64{0, 0.5})
		e.measure(e.centroids)
		// raw distances 1, 0.5, 3, 2.5: min 0.5, max 3; centroid gap 0.5
		assert.InDelta(t, 0.5/3, e.centroidDistance(0, 1), floatTol)
	})

	t.Run("l2", func(t *testing.T) {
		e := newTestEngine(t, data, []int{1}, NormL2, [][]string{{}, {}})
		e.centroids = mat.NewDense(2, 1, []float64{0, 4})
		e.measure(e.centroids)
		assert.InDelta(t, 4/math.Sqrt(20), e.centroidDistance(0, 1), floatTol)
	})

	t.Run("coincident centroids are floored", func(t *testing.T) {
		e := newTestEngine(t, data, []int{1}, NormL2, [][]string{{}, {}})
		e.centroids = mat.NewDense(2, 1, []float64{2, 2})
		e.measure(e.centroids)
		eps := e.cfg.Epsilon
		assert.Equal(t, eps*eps, e.centroidDistance(0, 1))
	})
}

func TestComputeDij(t *testing.T) {
	data := [][]float64{{0}, {3}, {4}}
	e := newTestEngine(t, data, []int{1}, NormMinMax, [][]string{{}, {}})
	e.centroids = mat.NewDense(2, 1, []float64{0, 4})
	e.measure(e.centroids)
	e.computeDij(context.Background())

	// raw: [0 4] [3 1] [4 0]; min 0, max 4
	eps := e.cfg.Epsilon
	want := mat.NewDense(3, 2, []float64{
		eps * eps, 1,
		0.75, 0.25,
		1, eps * eps,
	})
	assert.True(t, mat.EqualApprox(want, e.Distances(), floatTol), "got %v", mat.Formatted(e.Distances()))
}

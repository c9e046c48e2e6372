package ssfcm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// hardEngine builds an engine over 1-D data with centroids measured and a
// one-hot membership taken from labels.
func hardEngine(t *testing.T, data [][]float64, centroids []float64, labels []int) *Engine {
	t.Helper()
	groups := make([][]string, len(centroids))
	for c := range groups {
		groups[c] = []string{}
	}
	e := newTestEngine(t, data, []int{1}, NormMinMax, groups)
	e.centroids = mat.NewDense(len(centroids), 1, centroids)
	e.measure(e.centroids)
	e.computeDij(context.Background())
	for i, c := range labels {
		e.membership.Set(i, c, 1)
	}
	e.assign()
	return e
}

func TestAssign_TieGoesToLowestIndex(t *testing.T) {
	e := newTestEngine(t, [][]float64{{0}, {1}, {2}}, []int{1}, NormMinMax, [][]string{{}, {}, {}})
	e.membership = mat.NewDense(3, 3, []float64{
		0.4, 0.4, 0.2,
		0.2, 0.4, 0.4,
		0.1, 0.1, 0.8,
	})

	e.assign()

	assert.Equal(t, []int{0, 1, 2}, e.Labels())
	require.Len(t, e.PredLabels(), 1)
	assert.Equal(t, [][]string{{"0"}, {"1"}, {"2"}}, e.PredLabels()[0])

	// A second assignment appends a partition and resets membership lists.
	e.membership.SetRow(2, []float64{0.5, 0.3, 0.2})
	e.assign()
	assert.Equal(t, [][]string{{"0", "2"}, {"1"}, {}}, e.PredLabels()[1])
}

func TestLoss(t *testing.T) {
	e := newTestEngine(t, [][]float64{{0}, {1}}, []int{1}, NormMinMax, [][]string{{}, {}})
	e.dij = mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	e.membership = mat.NewDense(2, 2, []float64{0.5, 0.5, 0.2, 0.8})

	// 0.25·1 + 0.25·2 + 0.04·3 + 0.64·4
	assert.InDelta(t, 3.43, e.loss(), floatTol)

	// Point 1 escalated to F = 3 in both columns.
	e.fuzzifier.SetRow(1, []float64{3, 3})
	assert.InDelta(t, 0.75+0.008*3+0.512*4, e.loss(), floatTol)
}

func TestDaviesBouldin(t *testing.T) {
	data := [][]float64{{0}, {1}, {10}, {11}}
	// Raw distances to centroids 0.5 and 10.5 span [0.5, 10.5]; every point
	// sits at the minimum distance from its own centroid.
	eps2 := 1e-6
	sep := (10 - 0.5) / 10.5

	t.Run("two clusters", func(t *testing.T) {
		e := hardEngine(t, data, []float64{0.5, 10.5}, []int{0, 0, 1, 1})
		assert.InDelta(t, 2*eps2/sep, e.daviesBouldin(), 1e-15)
	})

	t.Run("empty cluster has zero scatter", func(t *testing.T) {
		e := hardEngine(t, data, []float64{0.5, 10.5}, []int{0, 0, 0, 0})
		scatter := (2*eps2 + 9/10.5 + 10/10.5) / 4
		assert.InDelta(t, scatter/sep, e.daviesBouldin(), 1e-12)
	})

	t.Run("single cluster", func(t *testing.T) {
		e := hardEngine(t, data, []float64{5.5}, []int{0, 0, 0, 0})
		assert.Equal(t, 0.0, e.daviesBouldin())
	})
}

func TestASWC(t *testing.T) {
	t.Run("two clusters", func(t *testing.T) {
		e := hardEngine(t, [][]float64{{0}, {1}, {10}, {11}}, []float64{0.5, 10.5}, []int{0, 0, 1, 1})
		// a = 0.5 for every point; b = 10.5, 9.5, 9.5, 10.5
		want := (10.5 + 9.5 + 9.5 + 10.5) / (0.5 + aswcEpsilon) / 4
		assert.InDelta(t, want, e.aswc(), 1e-9)
	})

	t.Run("b is the farthest other cluster", func(t *testing.T) {
		e := hardEngine(t, [][]float64{{0}, {1}, {10}, {20}}, []float64{0.5, 10, 20}, []int{0, 0, 1, 2})
		want := (20/(0.5+aswcEpsilon) +
			19/(0.5+aswcEpsilon) +
			10/aswcEpsilon +
			19.5/aswcEpsilon) / 4
		assert.InDelta(t, want, e.aswc(), 1e-6)
	})

	t.Run("empty clusters are skipped", func(t *testing.T) {
		e := hardEngine(t, [][]float64{{0}, {1}, {10}, {11}}, []float64{0.5, 10.5}, []int{0, 0, 0, 0})
		assert.Equal(t, 0.0, e.aswc())
	})
}

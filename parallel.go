package ssfcm

import "golang.org/x/sync/errgroup"

// ComputePairwiseDistancesParallel computes the full n×n distance matrix using
// multiple goroutines. data is flat row-major with n rows and dims columns.
// numWorkers controls the degree of parallelism; if <= 1, it falls back to
// single-threaded ComputePairwiseDistances.
//
// The result is bitwise identical to ComputePairwiseDistances: a flat []float64
// of length n×n in row-major order.
func ComputePairwiseDistancesParallel(data []float64, n, dims int, metric DistanceMetric, numWorkers int) []float64 {
	if numWorkers <= 1 || n <= 1 {
		return ComputePairwiseDistances(data, n, dims, metric)
	}

	result := make([]float64, n*n)

	// Each shard owns the pairs (i, j>i) for its contiguous source rows, so
	// no two goroutines write the same cell.
	var g errgroup.Group
	g.SetLimit(numWorkers)

	rowsPerWorker := (n + numWorkers - 1) / numWorkers
	for start := 0; start < n; start += rowsPerWorker {
		start := start
		end := min(start+rowsPerWorker, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				for j := i + 1; j < n; j++ {
					d := metric.Distance(data[i*dims:(i+1)*dims], data[j*dims:(j+1)*dims])
					result[i*n+j] = d
					result[j*n+i] = d
				}
			}
			return nil
		})
	}

	// Shards never fail; Wait only joins them.
	_ = g.Wait()
	return result
}

package ssfcm

import (
	"context"
	"math"
	"runtime"

	"github.com/TrevorS/ssfcm/progress"
)

// NormMode selects how per-field distances are normalized before they are
// fused into one point-to-centroid distance.
type NormMode string

const (
	// NormL2 divides each field distance by the Frobenius norm of that
	// field's point×centroid distance matrix.
	NormL2 NormMode = "l2_normalization"
	// NormMinMax maps each field distance to (d - min) / max over that
	// field's point×centroid distance matrix.
	NormMinMax NormMode = "min_max_scaling"
)

// ChartRenderer turns the three per-iteration metric series into an image.
// The chart package provides a PNG implementation.
type ChartRenderer interface {
	Render(loss, daviesBouldin, aswc []float64) ([]byte, error)
}

// Config controls a clustering run.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// FieldsLen partitions every data vector into contiguous fields. Each
	// entry is the width of one field; the widths must sum to the dataset's
	// dimensionality. Required.
	FieldsLen []int

	// FieldsWeight scales each field's normalized distance. Must have the
	// same length as FieldsLen and contain no negative values.
	// Default: 1 for every field.
	FieldsWeight []float64

	// Identity holds one external identifier per point. Used to label output
	// and to resolve SupervisedSet. Must be unique.
	// Default: "0", "1", ..., "N-1".
	Identity []string

	// SupervisedSet holds one group of identities per cluster. The number of
	// groups fixes the number of clusters. A group may be empty; its centroid
	// is then seeded with the farthest-point heuristic. Required, >= 1 group.
	SupervisedSet [][]string

	// Fuzzifier is the global fuzzifier exponent M. Must be > 1. Default: 2.
	Fuzzifier float64

	// Alpha is the confidence a supervised point must reach in its own
	// cluster before its fuzzifier is escalated. Must be in (0, 1).
	// Default: 0.6.
	Alpha float64

	// Epsilon is the convergence tolerance on the summed centroid shift.
	// Its square is also the floor for a zero fused distance.
	// Must be > 0. Default: 0.001.
	Epsilon float64

	// MaxIterations caps the number of iterations. Must be >= 1. Default: 50.
	MaxIterations int

	// NormMode selects field distance normalization. Default: NormMinMax.
	NormMode NormMode

	// Metric measures raw distances on field slices and between points.
	// Default: EuclideanMetric.
	Metric DistanceMetric

	// Workers controls the goroutines used to precompute the point×point
	// distance matrix. The iteration itself is single-threaded.
	// 0 means runtime.NumCPU().
	Workers int

	// RunID tags progress events and log records. Optional.
	RunID string

	// Logger receives warnings about numeric fallbacks and per-iteration
	// debug records. Default: NoopLogger().
	Logger *Logger

	// Progress receives one event per iteration and, if Chart is set, the
	// final chart image. Publishing is best effort and never fails the run.
	Progress progress.Sink

	// Chart renders the metric series at the end of the run for Progress.
	Chart ChartRenderer
}

// Metrics holds one value per completed iteration for each quality measure.
type Metrics struct {
	Loss          []float64 `json:"loss"`
	DaviesBouldin []float64 `json:"davies_bouldin"`
	ASWC          []float64 `json:"aswc"`
}

// Result is a detached snapshot of a finished run.
type Result struct {
	// PredLabels holds one hard partition per iteration. Each partition has
	// one group of identities per cluster.
	PredLabels [][][]string `json:"pred_labels"`

	// Labels is the final hard cluster index of each point.
	Labels []int `json:"labels"`

	// Membership is the final N×C fuzzy membership matrix; rows sum to 1.
	Membership [][]float64 `json:"membership"`

	// Fuzzifiers is the final N×C per-point fuzzifier matrix.
	Fuzzifiers [][]float64 `json:"fuzzifiers"`

	// Centroids is the final C×D centroid matrix.
	Centroids [][]float64 `json:"centroids"`

	Metrics Metrics `json:"metrics"`

	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`

	// SolveFailures counts per-point root solves that failed and were
	// recovered by keeping the previous value.
	SolveFailures int `json:"solve_failures"`

	// NegativeDistances counts negative min-max normalized field distances.
	NegativeDistances int `json:"negative_distances"`

	// SupervisedShare is the fraction of points in a supervised group.
	SupervisedShare float64 `json:"supervised_share"`
}

// DefaultConfig returns a Config with the standard tunables. Each call
// returns a fresh value; slices are never shared between calls.
func DefaultConfig() Config {
	return Config{
		Fuzzifier:     2,
		Alpha:         0.6,
		Epsilon:       0.001,
		MaxIterations: 50,
		NormMode:      NormMinMax,
		Metric:        EuclideanMetric{},
	}
}

// validateConfig checks the tunables that do not depend on the dataset.
func validateConfig(cfg *Config) error {
	if !(cfg.Fuzzifier > 1) || math.IsInf(cfg.Fuzzifier, 0) {
		return configErrorf("Fuzzifier", ErrInvalidFuzzifier, "must be > 1, got %v", cfg.Fuzzifier)
	}
	if !(cfg.Alpha > 0 && cfg.Alpha < 1) {
		return configErrorf("Alpha", nil, "must be in (0, 1), got %v", cfg.Alpha)
	}
	if !(cfg.Epsilon > 0) || math.IsInf(cfg.Epsilon, 0) {
		return configErrorf("Epsilon", nil, "must be > 0, got %v", cfg.Epsilon)
	}
	if cfg.MaxIterations < 1 {
		return configErrorf("MaxIterations", nil, "must be >= 1, got %d", cfg.MaxIterations)
	}
	switch cfg.NormMode {
	case NormL2, NormMinMax:
	default:
		return configErrorf("NormMode", nil, "must be %q or %q, got %q", NormL2, NormMinMax, cfg.NormMode)
	}
	if len(cfg.FieldsLen) == 0 {
		return configErrorf("FieldsLen", ErrFieldLength, "at least one field is required")
	}
	for i, w := range cfg.FieldsLen {
		if w < 1 {
			return configErrorf("FieldsLen", ErrFieldLength, "field %d has width %d, must be >= 1", i, w)
		}
	}
	if len(cfg.FieldsWeight) != 0 && len(cfg.FieldsWeight) != len(cfg.FieldsLen) {
		return configErrorf("FieldsWeight", nil, "has %d entries for %d fields", len(cfg.FieldsWeight), len(cfg.FieldsLen))
	}
	for i, w := range cfg.FieldsWeight {
		if !(w >= 0) || math.IsInf(w, 0) {
			return configErrorf("FieldsWeight", nil, "field %d has weight %v, must be a finite value >= 0", i, w)
		}
	}
	if len(cfg.SupervisedSet) == 0 {
		return configErrorf("SupervisedSet", nil, "at least one group is required")
	}
	if cfg.Workers < 0 {
		return configErrorf("Workers", nil, "must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

// applyDefaults fills in zero-valued optional fields.
func applyDefaults(cfg *Config) {
	if cfg.NormMode == "" {
		cfg.NormMode = NormMinMax
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = NoopLogger()
	}
	if len(cfg.FieldsWeight) == 0 {
		cfg.FieldsWeight = make([]float64, len(cfg.FieldsLen))
		for i := range cfg.FieldsWeight {
			cfg.FieldsWeight[i] = 1
		}
	}
}

// Cluster builds an engine for data, runs it to convergence or the
// iteration cap, and returns the result. Returns an error only if the
// configuration is invalid.
func Cluster(data [][]float64, cfg Config) (*Result, error) {
	return ClusterContext(context.Background(), data, cfg)
}

// ClusterContext is Cluster with cancellation checked between iterations.
func ClusterContext(ctx context.Context, data [][]float64, cfg Config) (*Result, error) {
	e, err := New(data, cfg)
	if err != nil {
		return nil, err
	}
	if err := e.Run(ctx); err != nil {
		return nil, err
	}
	return e.Result(), nil
}

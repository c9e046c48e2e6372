package ssfcm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/TrevorS/ssfcm/progress"
)

// Engine runs one semi-supervised fuzzy c-means clustering over an
// in-memory dataset. An Engine is built for a single run: construct it with
// New, call Run once, then read the results. It is not safe for concurrent
// use.
type Engine struct {
	cfg    Config
	logger *Logger
	solver rootFinder

	n, dims, k int
	data       *mat.Dense // n×dims
	pairwise   []float64  // n×n raw point distances, row-major
	fields     []field
	identity   []string
	supervised [][]int // point indices per cluster
	truth      []int   // supervised cluster per point, -1 if none

	centroids  *mat.Dense   // k×dims
	membership *mat.Dense   // n×k
	fuzzifier  *mat.Dense   // n×k
	dij        *mat.Dense   // n×k fused distances
	fieldDist  []*mat.Dense // per field, n×(measured centroids)
	stats      []fieldStats

	labels     []int
	members    [][]int
	predLabels [][][]string
	metrics    Metrics

	iterations        int
	converged         bool
	ran               bool
	solveFailures     int
	negativeDistances int
	escalated         int
}

// New validates cfg against data and prepares an engine. data holds one
// row per point; all rows must have the same length, equal to the sum of
// cfg.FieldsLen. Every identity in cfg.SupervisedSet must appear in
// cfg.Identity (or be a point index when Identity is empty).
//
// All validation failures are returned as *ConfigError.
func New(data [][]float64, cfg Config) (*Engine, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	n := len(data)
	if n == 0 {
		return nil, configErrorf("dataset", nil, "must contain at least one point")
	}
	dims := len(data[0])
	flat := make([]float64, 0, n*dims)
	for i, row := range data {
		if len(row) != dims {
			return nil, configErrorf("dataset", nil, "row %d has %d values, want %d", i, len(row), dims)
		}
		for j, v := range row {
			if !finite(v) {
				return nil, configErrorf("dataset", nil, "row %d column %d is not finite: %v", i, j, v)
			}
		}
		flat = append(flat, row...)
	}

	total := 0
	for _, w := range cfg.FieldsLen {
		total += w
	}
	if total != dims {
		return nil, configErrorf("FieldsLen", ErrFieldLength, "fields sum to %d but points have %d values", total, dims)
	}

	identity, index, err := resolveIdentity(cfg.Identity, n)
	if err != nil {
		return nil, err
	}
	k := len(cfg.SupervisedSet)
	supervised, truth, err := resolveSupervised(cfg.SupervisedSet, index, n)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger.WithClusters(k)
	if cfg.RunID != "" {
		logger = logger.WithRunID(cfg.RunID)
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		solver:     defaultRootFinder,
		n:          n,
		dims:       dims,
		k:          k,
		data:       mat.NewDense(n, dims, flat),
		fields:     buildFields(cfg.FieldsLen, cfg.FieldsWeight),
		identity:   identity,
		supervised: supervised,
		truth:      truth,
		membership: mat.NewDense(n, k, nil),
		fuzzifier:  mat.NewDense(n, k, nil),
		fieldDist:  make([]*mat.Dense, len(cfg.FieldsLen)),
		stats:      make([]fieldStats, len(cfg.FieldsLen)),
		labels:     make([]int, n),
		members:    make([][]int, k),
	}
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			e.fuzzifier.Set(i, c, cfg.Fuzzifier)
		}
	}
	e.pairwise = ComputePairwiseDistancesParallel(flat, n, dims, cfg.Metric, cfg.Workers)
	return e, nil
}

func resolveIdentity(ids []string, n int) ([]string, map[string]int, error) {
	if len(ids) == 0 {
		ids = make([]string, n)
		for i := range ids {
			ids[i] = strconv.Itoa(i)
		}
	} else {
		if len(ids) != n {
			return nil, nil, configErrorf("Identity", nil, "has %d entries for %d points", len(ids), n)
		}
		ids = append([]string(nil), ids...)
	}
	index := make(map[string]int, n)
	for i, id := range ids {
		if prev, dup := index[id]; dup {
			return nil, nil, configErrorf("Identity", nil, "%q is used by points %d and %d", id, prev, i)
		}
		index[id] = i
	}
	return ids, index, nil
}

func resolveSupervised(groups [][]string, index map[string]int, n int) ([][]int, []int, error) {
	truth := make([]int, n)
	for i := range truth {
		truth[i] = -1
	}
	supervised := make([][]int, len(groups))
	for c, group := range groups {
		supervised[c] = make([]int, 0, len(group))
		for _, id := range group {
			i, ok := index[id]
			if !ok {
				return nil, nil, configErrorf("SupervisedSet", ErrUnknownIdentity, "group %d references %q", c, id)
			}
			if truth[i] >= 0 {
				return nil, nil, configErrorf("SupervisedSet", nil, "%q appears in groups %d and %d", id, truth[i], c)
			}
			truth[i] = c
			supervised[c] = append(supervised[c], i)
		}
	}
	return supervised, truth, nil
}

// Run seeds the centroids and iterates until the summed centroid shift is at
// most Epsilon or MaxIterations is reached. ctx is checked once before each
// iteration; Run returns its error if it is done. Numeric failures on single
// points never abort the run.
func (e *Engine) Run(ctx context.Context) error {
	if e.ran {
		return ErrAlreadyRun
	}
	e.ran = true

	e.initCentroids(ctx)
	for it := 1; it <= e.cfg.MaxIterations && !e.converged; it++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ssfcm: stopped before iteration %d: %w", it, err)
		}
		e.notify(ctx, progress.Event{
			Iteration: it,
			Content:   fmt.Sprintf("iteration %d", it),
		})

		if e.dij == nil {
			e.computeDij(ctx)
		}
		e.updateMembership(ctx, it)
		shift := e.updateCentroids()
		e.converged = shift <= e.cfg.Epsilon

		e.measure(e.centroids)
		e.computeDij(ctx)
		e.assign()

		loss, db, aswc := e.loss(), e.daviesBouldin(), e.aswc()
		e.metrics.Loss = append(e.metrics.Loss, loss)
		e.metrics.DaviesBouldin = append(e.metrics.DaviesBouldin, db)
		e.metrics.ASWC = append(e.metrics.ASWC, aswc)
		e.iterations = it
		e.logger.LogIteration(ctx, it, shift, loss, db, aswc)
	}

	e.logger.LogRunFinished(ctx, e.iterations, e.converged, e.solveFailures)
	e.publishChart(ctx)
	return nil
}

// notify publishes ev to the configured sink. Sink errors and panics are
// logged and swallowed.
func (e *Engine) notify(ctx context.Context, ev progress.Event) {
	if e.cfg.Progress == nil {
		return
	}
	ev.RunID = e.cfg.RunID
	ev.Time = time.Now()
	if ev.Channel == "" {
		ev.Channel = progress.DefaultChannel
	}
	if ev.Kind == "" {
		ev.Kind = progress.KindLog
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.WarnContext(ctx, "progress sink panicked", "panic", r)
		}
	}()
	if err := e.cfg.Progress.Publish(ev); err != nil {
		e.logger.DebugContext(ctx, "progress publish failed", "error", err)
	}
}

func (e *Engine) publishChart(ctx context.Context) {
	if e.cfg.Chart == nil || e.cfg.Progress == nil {
		return
	}
	img, err := e.Chart(e.cfg.Chart)
	if err != nil {
		e.logger.WarnContext(ctx, "chart rendering failed", "error", err)
		return
	}
	e.notify(ctx, progress.Event{
		Kind:    progress.KindImage,
		Content: base64.StdEncoding.EncodeToString(img),
	})
}

// Chart renders the metric series with r.
func (e *Engine) Chart(r ChartRenderer) (img []byte, err error) {
	if e.iterations == 0 {
		return nil, errors.New("ssfcm: no completed iterations to chart")
	}
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("ssfcm: chart renderer panicked: %v", p)
		}
	}()
	return r.Render(e.metrics.Loss, e.metrics.DaviesBouldin, e.metrics.ASWC)
}

// Clusters returns the number of clusters, len(Config.SupervisedSet).
func (e *Engine) Clusters() int { return e.k }

// Iterations returns the number of completed iterations.
func (e *Engine) Iterations() int { return e.iterations }

// Converged reports whether the run stopped on the shift tolerance.
func (e *Engine) Converged() bool { return e.converged }

// SolveFailures returns how many per-point root solves failed.
func (e *Engine) SolveFailures() int { return e.solveFailures }

// NegativeDistances returns how many negative min-max field distances were seen.
func (e *Engine) NegativeDistances() int { return e.negativeDistances }

// Escalated returns how many supervised points had their fuzzifier raised.
func (e *Engine) Escalated() int { return e.escalated }

// Membership returns a copy of the N×C membership matrix.
func (e *Engine) Membership() *mat.Dense { return mat.DenseCopyOf(e.membership) }

// Fuzzifiers returns a copy of the N×C per-point fuzzifier matrix.
func (e *Engine) Fuzzifiers() *mat.Dense { return mat.DenseCopyOf(e.fuzzifier) }

// Centroids returns a copy of the C×D centroid matrix, or nil before Run.
func (e *Engine) Centroids() *mat.Dense {
	if e.centroids == nil {
		return nil
	}
	return mat.DenseCopyOf(e.centroids)
}

// Distances returns a copy of the N×C fused distance matrix, or nil before
// the first iteration.
func (e *Engine) Distances() *mat.Dense {
	if e.dij == nil {
		return nil
	}
	return mat.DenseCopyOf(e.dij)
}

// Labels returns the final hard cluster index of every point.
func (e *Engine) Labels() []int { return append([]int(nil), e.labels...) }

// PredLabels returns one hard partition per completed iteration.
func (e *Engine) PredLabels() [][][]string {
	out := make([][][]string, len(e.predLabels))
	for it, partition := range e.predLabels {
		out[it] = make([][]string, len(partition))
		for c, group := range partition {
			out[it][c] = append([]string{}, group...)
		}
	}
	return out
}

// Metrics returns copies of the per-iteration metric series.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		Loss:          append([]float64{}, e.metrics.Loss...),
		DaviesBouldin: append([]float64{}, e.metrics.DaviesBouldin...),
		ASWC:          append([]float64{}, e.metrics.ASWC...),
	}
}

// Result returns a detached snapshot of the run.
func (e *Engine) Result() *Result {
	return &Result{
		PredLabels:        e.PredLabels(),
		Labels:            e.Labels(),
		Membership:        rows(e.membership),
		Fuzzifiers:        rows(e.fuzzifier),
		Centroids:         rows(e.centroids),
		Metrics:           e.Metrics(),
		Iterations:        e.iterations,
		Converged:         e.converged,
		SolveFailures:     e.solveFailures,
		NegativeDistances: e.negativeDistances,
		SupervisedShare:   e.SupervisedShare(),
	}
}

func rows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

// SupervisedShare returns the fraction of points that carry a supervised
// label.
func (e *Engine) SupervisedShare() float64 {
	var labeled int
	for _, group := range e.supervised {
		labeled += len(group)
	}
	return float64(labeled) / float64(e.n)
}

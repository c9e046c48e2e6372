// Package runner dispatches clustering runs onto a bounded pool of
// goroutines so that callers serving requests are never blocked by the
// CPU-bound iteration. Each job owns a freshly constructed engine.
package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/TrevorS/ssfcm"
	"github.com/TrevorS/ssfcm/progress"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("runner: pool closed")

// Job is one clustering request.
type Job struct {
	// ID tags logs and progress events. Generated when empty.
	ID     string
	Data   [][]float64
	Config ssfcm.Config
}

// Options configures a Pool. Logger, Progress and Chart are applied to every
// job whose Config leaves them unset.
type Options struct {
	// Workers is the maximum number of concurrent runs. Default: 1.
	Workers  int
	Logger   *ssfcm.Logger
	Progress progress.Sink
	Chart    ssfcm.ChartRenderer
}

// Pool runs jobs with bounded concurrency.
type Pool struct {
	opts Options
	g    errgroup.Group

	mu     sync.Mutex
	closed bool
}

// New creates a Pool.
func New(opts Options) *Pool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = ssfcm.NoopLogger()
	}
	p := &Pool{opts: opts}
	p.g.SetLimit(opts.Workers)
	return p
}

// Future is the pending outcome of a submitted job.
type Future struct {
	ID     string
	done   chan struct{}
	result *ssfcm.Result
	err    error
}

// Done is closed when the job has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the job finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (*ssfcm.Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Submit queues job and returns immediately. The job's engine is built and
// run on a pool goroutine; configuration errors and cancellation surface
// through the Future. Submit blocks only while every worker is busy.
func (p *Pool) Submit(ctx context.Context, job Job) (*Future, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	cfg := job.Config
	if cfg.RunID == "" {
		cfg.RunID = job.ID
	}
	if cfg.Logger == nil {
		cfg.Logger = p.opts.Logger
	}
	if cfg.Progress == nil {
		cfg.Progress = p.opts.Progress
	}
	if cfg.Chart == nil {
		cfg.Chart = p.opts.Chart
	}

	f := &Future{ID: job.ID, done: make(chan struct{})}
	p.g.Go(func() error {
		defer close(f.done)
		f.result, f.err = ssfcm.ClusterContext(ctx, job.Data, cfg)
		if f.err != nil {
			cfg.Logger.WarnContext(ctx, "clustering job failed", "job_id", job.ID, "error", f.err)
		}
		return nil
	})
	return f, nil
}

// Close stops accepting jobs and waits for the running ones.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	_ = p.g.Wait()
}

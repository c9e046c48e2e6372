// Package main provides the ssfcm command line entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TrevorS/ssfcm"
	"github.com/TrevorS/ssfcm/chart"
	"github.com/TrevorS/ssfcm/internal/jobfile"
	"github.com/TrevorS/ssfcm/progress"
	"github.com/TrevorS/ssfcm/runner"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ssfcm",
		Short: "Semi-supervised multi-field fuzzy c-means clustering",
		Long: `ssfcm clusters numeric feature vectors with fuzzy c-means anchored by
supervised seed groups. Each job file (YAML or JSON) holds the dataset,
its field layout, the supervised groups and optional tunables.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ssfcm v%s (%s)\n", version, commit)
		},
	})

	runCmd := &cobra.Command{
		Use:   "run [job files...]",
		Short: "Run clustering jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runJobs,
	}
	runCmd.Flags().String("out", ".", "Directory for result files")
	runCmd.Flags().Bool("chart", false, "Write a metrics chart PNG next to each result")
	runCmd.Flags().Bool("progress", false, "Stream JSON-lines progress events to stderr")
	runCmd.Flags().Int("workers", 1, "Number of jobs run concurrently")
	runCmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	runCmd.Flags().String("log-format", "text", "Log format: text, json")
	rootCmd.AddCommand(runCmd)

	return rootCmd
}

func runJobs(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")
	writeChart, _ := cmd.Flags().GetBool("chart")
	streamProgress, _ := cmd.Flags().GetBool("progress")
	workers, _ := cmd.Flags().GetInt("workers")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logFormat, _ := cmd.Flags().GetString("log-format")

	logger, err := newLogger(logLevel, logFormat)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runner.Options{Workers: workers, Logger: logger}
	var queue *progress.Queue
	if streamProgress {
		queue = progress.NewQueue(256, progress.WriterPublisher(cmd.ErrOrStderr()), logger.Logger)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queue.Close(closeCtx)
		}()
		opts.Progress = queue
		opts.Chart = chart.Renderer{}
	}
	pool := runner.New(opts)
	defer pool.Close()

	type pending struct {
		path   string
		future *runner.Future
	}
	var jobs []pending
	for _, path := range args {
		job, err := jobfile.Load(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		if err := job.ApplyEnv(); err != nil {
			return err
		}
		f, err := pool.Submit(ctx, runner.Job{
			ID:     jobName(path),
			Data:   job.Dataset,
			Config: job.Config(),
		})
		if err != nil {
			return err
		}
		jobs = append(jobs, pending{path: path, future: f})
	}

	var failed int
	for _, p := range jobs {
		result, err := p.future.Wait(ctx)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p.path, err)
			continue
		}
		if err := writeResult(outDir, p.future.ID, result, writeChart); err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p.path, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d iterations, converged=%t\n",
			p.path, result.Iterations, result.Converged)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

func newLogger(level, format string) (*ssfcm.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	switch format {
	case "text":
		return ssfcm.NewTextLogger(os.Stderr, lvl), nil
	case "json":
		return ssfcm.NewJSONLogger(os.Stderr, lvl), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

func jobName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeResult(dir, name string, result *ssfcm.Result, withChart bool) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name+".result.json"), data, 0o644); err != nil {
		return err
	}
	if !withChart {
		return nil
	}
	img, err := chart.Renderer{}.Render(result.Metrics.Loss, result.Metrics.DaviesBouldin, result.Metrics.ASWC)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+".metrics.png"), img, 0o644)
}

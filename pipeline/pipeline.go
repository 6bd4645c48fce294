// Package pipeline wires variant generation and HTML rewriting into the two
// host entry points, Run and Restore.
//
// Run is two phases separated by a barrier: every image directory is
// processed concurrently and the resulting fingerprint sets are merged only
// after all of them finished; then every HTML document is rewritten against
// the merged set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"imgresponsiver/codec"
	"imgresponsiver/core"
	"imgresponsiver/fingerprint"
	"imgresponsiver/history"
	"imgresponsiver/htmlrewrite"
	"imgresponsiver/logging"
	"imgresponsiver/metrics"
	"imgresponsiver/variants"
)

// Command names recorded in reports and history.
const (
	CommandRun     = "run"
	CommandRestore = "restore"
)

// Report summarizes one Run or Restore.
type Report struct {
	ID        uuid.UUID
	Command   string
	StartedAt time.Time
	Duration  time.Duration

	Images            int64
	VariantsGenerated int64
	VariantsSkipped   int64
	BytesWritten      int64
	Failures          int64

	HTML htmlrewrite.Summary
}

// Pipeline holds everything resolved from a Config. It is safe to call Run
// repeatedly, as watch mode does.
type Pipeline struct {
	cfg     *core.Config
	logger  *logging.Logger
	codec   codec.Codec
	formats []codec.Format
	pattern *regexp.Regexp
	hasher  fingerprint.Hasher
	sem     *semaphore.Weighted
	history *history.Store
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCodec replaces the file codec.
func WithCodec(c codec.Codec) Option {
	return func(p *Pipeline) { p.codec = c }
}

// WithHistory records every run in store.
func WithHistory(store *history.Store) Option {
	return func(p *Pipeline) { p.history = store }
}

// New validates cfg and resolves its formats, pattern and fingerprint
// algorithm. Errors are *core.ConfigError.
func New(cfg *core.Config, logger *logging.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	formats, err := codec.ParseFormats(cfg.OutputFileTypes)
	if err != nil {
		return nil, core.ErrInvalidFormat(fmt.Sprint(cfg.OutputFileTypes), err.Error())
	}
	pattern, err := regexp.Compile(cfg.ImgTagRegex)
	if err != nil {
		return nil, core.ErrInvalidPattern(cfg.ImgTagRegex, err.Error())
	}
	hasher, err := fingerprint.ForAlgorithm(cfg.FingerprintAlgorithm)
	if err != nil {
		return nil, core.ErrInvalidAlgorithm(cfg.FingerprintAlgorithm)
	}

	p := &Pipeline{
		cfg:     cfg,
		logger:  logger.Named("pipeline"),
		codec:   codec.NewFileCodec(),
		formats: formats,
		pattern: pattern,
		hasher:  hasher,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run generates missing variants for every source image and rewrites HTML
// references to processed images. A phase-1 failure skips phase 2.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	report := p.newReport(CommandRun)
	counters := metrics.NewCounters(report.StartedAt)

	processed, err := p.generate(ctx, counters)
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		rewriter := htmlrewrite.NewRewriter(htmlrewrite.RewriterConfig{
			Pattern:    p.pattern,
			VariantDir: p.cfg.OutputDir,
			Sizes:      p.cfg.ConversionSizes,
			Formats:    p.formats,
			Hasher:     p.hasher,
			Codec:      p.codec,
		}, htmlrewrite.WithLogger(p.logger), htmlrewrite.WithRecorder(counters))

		report.HTML, err = rewriter.RewriteDirs(ctx, p.cfg.HTMLDirs, p.cfg.HTMLFileType, processed)
	}

	return p.finish(ctx, report, counters, err)
}

// generate is phase 1. The union is built only after every directory
// returned.
func (p *Pipeline) generate(ctx context.Context, counters *metrics.Counters) (fingerprint.Set, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return fingerprint.NewSet(), &core.GenerationError{Source: p.cfg.OutputDir, Err: err}
	}

	gen := variants.NewGenerator(p.codec, p.cfg.MaxConcurrency,
		variants.WithLogger(p.logger),
		variants.WithRecorder(counters),
		variants.WithHasher(p.hasher),
		variants.WithSemaphore(p.sem),
	)

	dirs := uniqueDirs(p.cfg.ImagesDirs)
	sets := make([]fingerprint.Set, len(dirs))
	var eg errgroup.Group
	for i, dir := range dirs {
		eg.Go(func() error {
			res, err := gen.ProcessDirectory(ctx, dir, p.cfg.ImageExtensions, p.cfg.ConversionSizes, p.formats, p.cfg.OutputDir)
			sets[i] = res.Processed
			return err
		})
	}
	err := eg.Wait()

	return fingerprint.Union(sets...), err
}

// Restore removes every picture block from the HTML documents.
func (p *Pipeline) Restore(ctx context.Context) (Report, error) {
	report := p.newReport(CommandRestore)
	counters := metrics.NewCounters(report.StartedAt)

	restorer := htmlrewrite.NewRestorer(htmlrewrite.WithLogger(p.logger), htmlrewrite.WithRecorder(counters))
	summary, err := restorer.RestoreDirs(ctx, p.cfg.HTMLDirs, p.cfg.HTMLFileType)
	report.HTML = summary

	return p.finish(ctx, report, counters, err)
}

func (p *Pipeline) newReport(command string) Report {
	return Report{
		ID:        uuid.New(),
		Command:   command,
		StartedAt: p.now(),
	}
}

// finish copies the counters into report, logs the outcome and records it
// when history is enabled. A history failure is logged, never returned.
func (p *Pipeline) finish(ctx context.Context, report Report, counters *metrics.Counters, runErr error) (Report, error) {
	snap := counters.Snapshot()
	report.Duration = snap.Elapsed
	report.Images = snap.ImagesProcessed
	report.VariantsGenerated = snap.VariantsGenerated
	report.VariantsSkipped = snap.VariantsSkipped
	report.BytesWritten = snap.BytesWritten
	report.Failures = snap.Failures

	status := statusOf(runErr)
	fields := []zap.Field{
		zap.String("command", report.Command),
		zap.String("status", status),
		zap.Int64("images", report.Images),
		zap.Int64("generated", report.VariantsGenerated),
		zap.Int64("skipped", report.VariantsSkipped),
		zap.Int("documents", report.HTML.Documents),
		zap.Int("changed", report.HTML.Changed),
		zap.Duration("duration", report.Duration),
	}
	if runErr != nil {
		p.logger.Error("Pipeline finished with error", append(fields, zap.Error(runErr))...)
	} else {
		p.logger.Info("Pipeline finished", fields...)
	}

	if p.history != nil {
		run := history.Run{
			ID:                report.ID,
			Command:           report.Command,
			StartedAt:         report.StartedAt,
			FinishedAt:        report.StartedAt.Add(report.Duration),
			Images:            int(report.Images),
			VariantsGenerated: int(report.VariantsGenerated),
			VariantsSkipped:   int(report.VariantsSkipped),
			BytesWritten:      report.BytesWritten,
			HTMLChanged:       report.HTML.Changed,
			Status:            status,
		}
		if runErr != nil {
			run.Error = runErr.Error()
		}
		// A cancelled run is still worth recording.
		if err := p.history.Record(context.WithoutCancel(ctx), run); err != nil {
			p.logger.Warn("Failed to record run history", zap.Error(err))
		}
	}

	return report, runErr
}

// statusOf maps a run error to a history status.
// This is a pure function with no side effects.
func statusOf(err error) string {
	switch {
	case err == nil:
		return history.StatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return history.StatusCancelled
	default:
		return history.StatusFailed
	}
}

// uniqueDirs drops directories that clean to one already listed.
// This is a pure function with no side effects.
func uniqueDirs(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		clean := filepath.Clean(dir)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, dir)
	}
	return out
}

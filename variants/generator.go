package variants

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"imgresponsiver/codec"
	"imgresponsiver/core"
	"imgresponsiver/fingerprint"
	"imgresponsiver/logging"
	"imgresponsiver/metrics"
)

// Result summarizes one GenerateVariants call.
type Result struct {
	Generated    int
	Skipped      int
	BytesWritten int64
}

func (r *Result) add(o Result) {
	r.Generated += o.Generated
	r.Skipped += o.Skipped
	r.BytesWritten += o.BytesWritten
}

// Generator fans variant production out over goroutines. Only codec work
// holds the shared semaphore, so the per-directory and per-file fan-out
// above it never blocks on a slot held by its own parent.
type Generator struct {
	codec    codec.Codec
	sem      *semaphore.Weighted
	hasher   fingerprint.Hasher
	logger   *logging.Logger
	recorder metrics.Recorder
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(g *Generator) { g.logger = l.Named("variants") }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// WithHasher sets the fingerprint algorithm. The HTML rewriter must use the
// same Hasher or no reference will resolve.
func WithHasher(h fingerprint.Hasher) Option {
	return func(g *Generator) { g.hasher = h }
}

// WithSemaphore shares an existing concurrency bound instead of creating one.
func WithSemaphore(sem *semaphore.Weighted) Option {
	return func(g *Generator) { g.sem = sem }
}

// NewGenerator creates a Generator that runs at most maxConcurrency codec
// operations at once. A bound below one uses runtime.NumCPU().
func NewGenerator(c codec.Codec, maxConcurrency int, opts ...Option) *Generator {
	if maxConcurrency < 1 {
		maxConcurrency = runtime.NumCPU()
	}
	g := &Generator{
		codec:    c,
		sem:      semaphore.NewWeighted(int64(maxConcurrency)),
		hasher:   fingerprint.String31{},
		logger:   logging.NewNop(),
		recorder: metrics.Discard,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// VariantPath returns {outputDir}/{name}-{size}{format}.
func VariantPath(outputDir, name string, size int, format codec.Format) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s-%d%s", name, size, format))
}

// GenerateVariants produces every (size, format) variant of source under
// outputDir, named after outputFileName. Targets that already exist are
// skipped. Pairs run concurrently; the first failure is returned as a
// *core.GenerationError once every pair has finished, and variants written
// by the other pairs stay on disk.
func (g *Generator) GenerateVariants(ctx context.Context, source string, sizes []int, formats []codec.Format, outputFileName, outputDir string) (Result, error) {
	var (
		mu     sync.Mutex
		result Result
		eg     errgroup.Group
	)

	seen := make(map[string]bool, len(sizes)*len(formats))
	for _, size := range sizes {
		for _, format := range formats {
			target := VariantPath(outputDir, outputFileName, size, format)
			if seen[target] {
				continue
			}
			seen[target] = true

			eg.Go(func() error {
				r, err := g.generateOne(ctx, source, size, format, target)
				if err != nil {
					g.recorder.Failure()
					return &core.GenerationError{Source: source, Target: target, Err: err}
				}
				mu.Lock()
				result.add(r)
				mu.Unlock()
				return nil
			})
		}
	}

	err := eg.Wait()
	return result, err
}

func (g *Generator) generateOne(ctx context.Context, source string, size int, format codec.Format, target string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if _, err := os.Stat(target); err == nil {
		g.recorder.VariantSkipped()
		g.logger.Debug("variant exists, skipping",
			zap.String("target", target))
		return Result{Skipped: 1}, nil
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	err := g.codec.Transcode(source, size, format, target)
	g.sem.Release(1)
	if err != nil {
		return Result{}, err
	}

	var written int64
	if info, err := os.Stat(target); err == nil {
		written = info.Size()
	}
	g.recorder.VariantGenerated(written)
	g.logger.Debug("variant generated",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int("size", size),
		zap.String("format", format.Name()),
		zap.Int64("bytes", written))
	return Result{Generated: 1, BytesWritten: written}, nil
}

// DirectoryResult is the outcome of ProcessDirectory.
type DirectoryResult struct {
	Processed fingerprint.Set
	Images    int
	Result
}

// ProcessDirectory generates the variants of every image directly inside dir
// whose extension is in extensions, naming them after each image's
// fingerprint. Images run concurrently; the first failure is returned after
// all images finish. The returned set holds the fingerprint of every image
// whose variants are all in place. A missing directory yields an empty set.
func (g *Generator) ProcessDirectory(ctx context.Context, dir string, extensions []string, sizes []int, formats []codec.Format, outputDir string) (DirectoryResult, error) {
	out := DirectoryResult{Processed: fingerprint.NewSet()}

	files, err := ListFiles(dir, extensions)
	if err != nil {
		return out, &core.GenerationError{Source: dir, Err: err}
	}
	if len(files) == 0 {
		g.logger.Debug("no images found", zap.String("dir", dir))
		return out, nil
	}

	var (
		mu sync.Mutex
		eg errgroup.Group
	)
	for _, file := range files {
		eg.Go(func() error {
			key := g.hasher.Sum(fingerprint.Normalize(file))

			capped, err := CapSizesFor(g.codec, file, sizes)
			if err != nil {
				g.recorder.Failure()
				return &core.GenerationError{Source: file, Err: err}
			}

			r, err := g.GenerateVariants(ctx, file, capped, formats, key.String(), outputDir)
			mu.Lock()
			out.Result.add(r)
			mu.Unlock()
			if err != nil {
				return err
			}

			mu.Lock()
			out.Processed.Add(key)
			out.Images++
			mu.Unlock()
			g.recorder.ImageProcessed()
			g.logger.Debug("image processed",
				zap.String("source", file),
				zap.Stringer("fingerprint", key),
				zap.Ints("sizes", capped))
			return nil
		})
	}

	err = eg.Wait()
	g.logger.Info("directory processed",
		zap.String("dir", dir),
		zap.Int("images", out.Images),
		zap.Int("generated", out.Generated),
		zap.Int("skipped", out.Skipped))
	return out, err
}

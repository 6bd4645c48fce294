package htmlrewrite

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"imgresponsiver/codec"
	"imgresponsiver/core"
	"imgresponsiver/fingerprint"
	"imgresponsiver/logging"
	"imgresponsiver/metrics"
	"imgresponsiver/variants"
)

// existingPicture spans any <picture> element already in a document.
// References inside one are left alone so a second rewrite does not nest.
var existingPicture = regexp.MustCompile(`(?is)<picture[\s>].*?</picture>`)

// Options shared by Rewriter and Restorer.
type options struct {
	logger   *logging.Logger
	recorder metrics.Recorder
}

// Option configures a Rewriter or Restorer.
type Option func(*options)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l.Named("htmlrewrite") }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.NewNop(), recorder: metrics.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RewriterConfig holds what a Rewriter needs to resolve references.
type RewriterConfig struct {
	// Pattern locates references; group 0 is the tag, group 1 the src value.
	Pattern *regexp.Regexp
	// VariantDir is the directory holding generated variants.
	VariantDir string
	// Sizes are the configured conversion sizes, capped per image.
	Sizes []int
	// Formats are emitted as <source> elements in this order.
	Formats []codec.Format
	// Hasher must be the one used to generate the variants.
	Hasher fingerprint.Hasher
	// Codec reads source image dimensions.
	Codec codec.Codec
}

// Rewriter substitutes <picture> blocks for references to processed images.
type Rewriter struct {
	cfg RewriterConfig
	options
}

// NewRewriter creates a Rewriter. A nil Hasher uses fingerprint.String31.
func NewRewriter(cfg RewriterConfig, opts ...Option) *Rewriter {
	if cfg.Hasher == nil {
		cfg.Hasher = fingerprint.String31{}
	}
	return &Rewriter{cfg: cfg, options: buildOptions(opts)}
}

type replacement struct {
	start, end int
	text       string
}

// Rewrite returns content with every reference whose source resolves,
// relative to htmlDir, to a fingerprint in processed replaced by a picture
// block. References outside processed are left byte-for-byte unchanged.
// Substitution is by match offset, so two identical tags are rewritten
// independently. The second result is the number of blocks inserted.
func (r *Rewriter) Rewrite(htmlDir, content string, processed fingerprint.Set) (string, int, error) {
	matches := r.cfg.Pattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, 0, nil
	}
	pictures := existingPicture.FindAllStringIndex(content, -1)
	relDir := RelativeDir(htmlDir, r.cfg.VariantDir)

	var reps []replacement
	for _, m := range matches {
		if len(m) < 4 || m[2] < 0 {
			continue
		}
		if insideAny(pictures, m[0], m[1]) {
			continue
		}

		src := content[m[2]:m[3]]
		srcPath := filepath.Join(htmlDir, filepath.FromSlash(src))
		key := r.cfg.Hasher.Sum(fingerprint.Normalize(srcPath))
		if !processed.Has(key) {
			r.logger.Debug("reference not processed, leaving untouched",
				zap.String("src", src),
				zap.String("resolved", srcPath))
			continue
		}

		sizes, err := variants.CapSizesFor(r.cfg.Codec, srcPath, r.cfg.Sizes)
		if err != nil {
			return content, 0, &core.RewriteError{Path: srcPath, Op: "resolve", Err: err}
		}

		tag := content[m[0]:m[1]]
		reps = append(reps, replacement{
			start: m[0],
			end:   m[1],
			text:  BuildPicture(key.String(), tag, r.cfg.Formats, sizes, relDir),
		})
	}

	return applyReplacements(content, reps), len(reps), nil
}

// RewriteFile rewrites htmlDir/htmlFile in place. The file is written only
// when its content changed, keeping its mode.
func (r *Rewriter) RewriteFile(ctx context.Context, htmlDir, htmlFile string, processed fingerprint.Set) (bool, error) {
	n, err := r.rewriteFile(ctx, htmlDir, htmlFile, processed)
	return n > 0, err
}

func (r *Rewriter) rewriteFile(ctx context.Context, htmlDir, htmlFile string, processed fingerprint.Set) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path := filepath.Join(htmlDir, htmlFile)
	n, err := transformFile(path, func(content string) (string, int, error) {
		return r.Rewrite(htmlDir, content, processed)
	})
	if err != nil {
		r.recorder.Failure()
		r.logger.Error("html rewrite failed", zap.String("path", path), zap.Error(err))
		return 0, err
	}

	r.recorder.HTMLRewritten(n > 0)
	if n > 0 {
		r.logger.Info("html rewritten", zap.String("path", path), zap.Int("pictures", n))
	} else {
		r.logger.Debug("html unchanged", zap.String("path", path))
	}
	return n, nil
}

// RewriteDirs rewrites every file ending in fileType directly inside each of
// htmlDirs, concurrently. The first *core.RewriteError is returned after all
// documents finish.
func (r *Rewriter) RewriteDirs(ctx context.Context, htmlDirs []string, fileType string, processed fingerprint.Set) (Summary, error) {
	return forEachDocument(ctx, htmlDirs, fileType, func(ctx context.Context, dir, name string) (int, error) {
		return r.rewriteFile(ctx, dir, name, processed)
	})
}

func insideAny(spans [][]int, start, end int) bool {
	for _, s := range spans {
		if start >= s[0] && end <= s[1] {
			return true
		}
	}
	return false
}

// applyReplacements splices reps, ordered by start and non-overlapping, into content.
func applyReplacements(content string, reps []replacement) string {
	if len(reps) == 0 {
		return content
	}
	var b strings.Builder
	last := 0
	for _, rep := range reps {
		b.WriteString(content[last:rep.start])
		b.WriteString(rep.text)
		last = rep.end
	}
	b.WriteString(content[last:])
	return b.String()
}

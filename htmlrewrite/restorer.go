package htmlrewrite

import (
	"context"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
)

// pictureBlock matches a <picture> holding only <source> elements followed by
// one <img>, capturing the <img>. It is the inverse of BuildPicture.
var pictureBlock = regexp.MustCompile(`<picture>(?:\s*<source[^>]*>\s*)*(<img[^>]*>)\s*</picture>`)

// Restore replaces every picture block in content by the <img> it wraps and
// reports how many blocks were removed. Restore(Rewrite(d)) == d.
//
// This is a pure function with no side effects.
func Restore(content string) (string, int) {
	n := 0
	out := pictureBlock.ReplaceAllStringFunc(content, func(block string) string {
		n++
		return pictureBlock.FindStringSubmatch(block)[1]
	})
	return out, n
}

// Restorer undoes Rewriter output in documents on disk.
type Restorer struct {
	options
}

// NewRestorer creates a Restorer.
func NewRestorer(opts ...Option) *Restorer {
	return &Restorer{options: buildOptions(opts)}
}

// RestoreFile restores htmlDir/htmlFile in place, writing only when a block
// was removed.
func (r *Restorer) RestoreFile(ctx context.Context, htmlDir, htmlFile string) (bool, error) {
	n, err := r.restoreFile(ctx, htmlDir, htmlFile)
	return n > 0, err
}

func (r *Restorer) restoreFile(ctx context.Context, htmlDir, htmlFile string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path := filepath.Join(htmlDir, htmlFile)
	n, err := transformFile(path, func(content string) (string, int, error) {
		out, n := Restore(content)
		return out, n, nil
	})
	if err != nil {
		r.recorder.Failure()
		r.logger.Error("html restore failed", zap.String("path", path), zap.Error(err))
		return 0, err
	}

	r.recorder.HTMLRestored(n > 0)
	if n > 0 {
		r.logger.Info("html restored", zap.String("path", path), zap.Int("pictures", n))
	}
	return n, nil
}

// RestoreDirs restores every file ending in fileType directly inside each of
// htmlDirs, concurrently.
func (r *Restorer) RestoreDirs(ctx context.Context, htmlDirs []string, fileType string) (Summary, error) {
	return forEachDocument(ctx, htmlDirs, fileType, r.restoreFile)
}

package htmlrewrite

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"imgresponsiver/codec"
	"imgresponsiver/core"
	"imgresponsiver/variants"
)

// Summary counts the documents visited by RewriteDirs or RestoreDirs.
type Summary struct {
	Documents int
	Changed   int
	Pictures  int
}

// documentFunc transforms one document and reports how many pictures it
// inserted or removed.
type documentFunc func(ctx context.Context, htmlDir, htmlFile string) (pictures int, err error)

// forEachDocument runs fn over every file with extension fileType directly
// inside each of dirs, concurrently. All directories are listed before any
// document is touched, so a listing error leaves every document unchanged.
// The first error is returned after all documents finish. Directories listed
// twice are visited once.
func forEachDocument(ctx context.Context, dirs []string, fileType string, fn documentFunc) (Summary, error) {
	type document struct{ dir, name string }

	var docs []document
	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		clean := filepath.Clean(dir)
		if seen[clean] {
			continue
		}
		seen[clean] = true

		files, err := variants.ListFiles(dir, []string{fileType})
		if err != nil {
			return Summary{}, &core.RewriteError{Path: dir, Op: "list", Err: err}
		}
		for _, file := range files {
			docs = append(docs, document{dir: dir, name: filepath.Base(file)})
		}
	}

	var (
		mu      sync.Mutex
		summary Summary
		eg      errgroup.Group
	)
	for _, doc := range docs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pictures, err := fn(ctx, doc.dir, doc.name)
			if err != nil {
				return err
			}
			mu.Lock()
			summary.Documents++
			if pictures > 0 {
				summary.Changed++
				summary.Pictures += pictures
			}
			mu.Unlock()
			return nil
		})
	}

	err := eg.Wait()
	return summary, err
}

// transformFile reads path, applies transform and writes the result back
// with the original mode when it differs from the input.
func transformFile(path string, transform func(content string) (string, int, error)) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, &core.RewriteError{Path: path, Op: "read", Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, &core.RewriteError{Path: path, Op: "read", Err: err}
	}

	content := string(data)
	out, n, err := transform(content)
	if err != nil {
		return 0, err
	}
	if out == content {
		return 0, nil
	}

	err = codec.WriteFileAtomic(path, info.Mode().Perm(), func(w io.Writer) error {
		_, err := io.WriteString(w, out)
		return err
	})
	if err != nil {
		return 0, &core.RewriteError{Path: path, Op: "write", Err: err}
	}
	return n, nil
}

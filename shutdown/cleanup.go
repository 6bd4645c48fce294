package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"imgresponsiver/logging"
)

// tempPattern matches the files codec.WriteFileAtomic creates before rename.
const tempPattern = ".*.tmp-*"

// CleanupTempFiles returns a handler that removes temp files left in each of
// dirs by atomic writes that were interrupted: variants in the output
// directory and rewritten documents in the HTML directories. Directories
// named twice are swept once. Failures are logged, never returned, so they
// cannot block shutdown.
//
// Priority recommendation: 40+ (after the pipeline has stopped writing)
func CleanupTempFiles(logger *logging.Logger, dirs ...string) Func {
	return func(ctx context.Context) error {
		seen := make(map[string]bool, len(dirs))
		for _, dir := range dirs {
			clean := filepath.Clean(dir)
			if seen[clean] {
				continue
			}
			seen[clean] = true
			removeTempFiles(ctx, logger, clean)
		}
		return nil
	}
}

// removeTempFiles deletes matches of tempPattern in dir and returns how many
// were removed.
func removeTempFiles(ctx context.Context, logger *logging.Logger, dir string) int {
	pattern := filepath.Join(dir, tempPattern)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logger.Error("Failed to list temporary files",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		return 0
	}
	if len(matches) == 0 {
		return 0
	}

	var removed, failed int
	for _, match := range matches {
		if ctx.Err() != nil {
			logger.Warn("Shutdown context cancelled during cleanup",
				zap.Int("removed", removed),
				zap.Int("remaining", len(matches)-removed-failed),
			)
			return removed
		}

		if err := os.Remove(match); err != nil {
			failed++
			logger.Warn("Failed to remove temporary file",
				zap.String("file", filepath.Base(match)),
				zap.Error(err),
			)
			continue
		}
		removed++
	}

	logger.Info("Temp file cleanup complete",
		zap.String("directory", dir),
		zap.Int("removed", removed),
		zap.Int("failed", failed),
	)
	return removed
}

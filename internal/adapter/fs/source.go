// Package fs provides the file-system source for the ETL pipeline: a
// directory poller that hands each observation-sequence file to the
// pipeline exactly once.
package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/obs-seq-etl/internal/config"
)

// Source polls a directory for observation-sequence files. It implements
// pipeline.FileSource.
type Source struct {
	dir     string
	pattern string
	logger  *slog.Logger
	seen    map[string]struct{}
}

// NewSource creates a poller over the configured input directory.
func NewSource(cfg *config.Config, logger *slog.Logger) *Source {
	return &Source{
		dir:     cfg.InputDir,
		pattern: cfg.FilePattern,
		logger:  logger,
		seen:    make(map[string]struct{}),
	}
}

// Poll returns the paths of files matching the pattern that have not been
// returned before, sorted by name so assimilation cycles arrive in order.
// A file is marked seen as soon as it is returned: failed files are not
// retried, they are reported through metrics and logs instead.
func (s *Source) Poll(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, s.pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", s.pattern, err)
	}

	var fresh []string
	for _, path := range matches {
		if _, ok := s.seen[path]; ok {
			continue
		}
		s.seen[path] = struct{}{}
		fresh = append(fresh, path)
	}
	sort.Strings(fresh)

	if len(fresh) > 0 {
		s.logger.Debug("new observation-sequence files", "count", len(fresh))
	}
	return fresh, nil
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/obs-seq-etl/internal/obsseq"
)

// SequenceTransformer parses observation-sequence files and, when a
// composite configuration is set, replaces component wind pairs with their
// derived composites before publishing.
type SequenceTransformer struct {
	opts       obsseq.Options
	composites obsseq.CompositeConfig
}

// NewSequenceTransformer returns a transformer with the given scan options.
// A nil composite config disables composite construction.
func NewSequenceTransformer(opts obsseq.Options, composites obsseq.CompositeConfig) *SequenceTransformer {
	return &SequenceTransformer{opts: opts, composites: composites}
}

// Transform parses one file and derives composites when configured. The
// returned report is nil when composite construction did not run.
func (s *SequenceTransformer) Transform(ctx context.Context, path string) (*obsseq.Table, *obsseq.MergeReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	table, err := obsseq.ParseFile(path, s.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if s.composites == nil {
		return table, nil, nil
	}

	merged, report, err := table.BuildComposites(s.composites)
	if err != nil {
		return nil, nil, fmt.Errorf("building composites for %s: %w", path, err)
	}
	return merged, report, nil
}

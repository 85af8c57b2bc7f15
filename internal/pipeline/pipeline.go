package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/obs-seq-etl/internal/observability"
	"github.com/couchcryptid/obs-seq-etl/internal/obsseq"
	"github.com/jonboulle/clockwork"
)

// FileSource returns the paths of observation-sequence files not yet handed
// to the pipeline.
type FileSource interface {
	Poll(ctx context.Context) ([]string, error)
}

// Transformer parses one file into its final table, with a merge report
// when composite construction ran.
type Transformer interface {
	Transform(ctx context.Context, path string) (*obsseq.Table, *obsseq.MergeReport, error)
}

// BatchLoader writes one batch of observation rows to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, sourceFile string, rows []obsseq.Row) error
}

// FileStats is a snapshot of the most recently processed file, exposed on
// the /stats endpoint.
type FileStats struct {
	File        string             `json:"file"`
	Records     int                `json:"records"`
	Composites  int                `json:"composites"`
	Unmatched   int                `json:"unmatched_components"`
	QCFailed    int                `json:"qc_failed"`
	Duration    time.Duration      `json:"duration_ns"`
	Usage       []obsseq.TypeUsage `json:"possible_vs_used,omitempty"`
	ProcessedAt time.Time          `json:"processed_at"`
}

// Pipeline orchestrates the poll-parse-publish loop.
type Pipeline struct {
	source      FileSource
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock

	pollInterval time.Duration
	batchSize    int

	ready atomic.Bool

	mu   sync.Mutex
	last *FileStats
}

// New creates a Pipeline with the given stages and observability. A nil
// clock selects the real one.
func New(s FileSource, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, pollInterval time.Duration, batchSize int) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		source:       s,
		transformer:  t,
		loader:       l,
		logger:       logger,
		metrics:      metrics,
		clock:        clock,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has fully processed at least
// one file, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any files yet")
	}
	return nil
}

// LastFileStats returns a snapshot of the most recently processed file.
func (p *Pipeline) LastFileStats() (FileStats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return FileStats{}, false
	}
	return *p.last, true
}

// Run executes the poll-parse-publish loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "poll_interval", p.pollInterval, "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// First poll happens immediately; the ticker paces every later one.
	p.processNew(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.processNew(ctx)
		}
	}
}

// processNew asks the source for unseen files and processes each in turn.
func (p *Pipeline) processNew(ctx context.Context) {
	files, err := p.source.Poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("poll source failed", "error", err)
		}
		return
	}

	for _, path := range files {
		if ctx.Err() != nil {
			return
		}
		p.processFile(ctx, path)
	}
}

// processFile runs one parse-derive-publish cycle. Parsing is
// all-or-nothing: a malformed record abandons the whole file.
func (p *Pipeline) processFile(ctx context.Context, path string) {
	start := p.clock.Now()
	logger := p.logger.With("file", filepath.Base(path))

	table, report, err := p.transformer.Transform(ctx, path)
	if err != nil {
		logger.Error("transform failed, skipping file", "error", err)
		p.metrics.FilesFailed.Inc()
		return
	}

	p.metrics.RecordsDecoded.Add(float64(table.Len()))

	stats := FileStats{File: filepath.Base(path), Records: table.Len()}
	if report != nil {
		stats.Composites = report.Built
		stats.Unmatched = report.DroppedRows()
		p.metrics.CompositeRows.Add(float64(report.Built))
		p.metrics.UnmatchedComponents.Add(float64(report.DroppedRows()))
		if report.DroppedRows() > 0 {
			logger.Warn("composite components without a partner were dropped", "unmatched", report.Unmatched)
		}
	}

	// QC accounting is advisory: files without a QC column still publish.
	if failed, err := table.SelectFailed(); err == nil {
		stats.QCFailed = failed.Len()
		p.metrics.QCFailedRows.Add(float64(failed.Len()))
	}
	if usage, err := table.PossibleVsUsed(); err == nil {
		stats.Usage = usage
	}

	if err := p.publish(ctx, path, table); err != nil {
		if ctx.Err() == nil {
			logger.Error("publish failed, skipping file", "error", err)
			p.metrics.FilesFailed.Inc()
		}
		return
	}

	stats.Duration = p.clock.Since(start)
	stats.ProcessedAt = p.clock.Now().UTC()
	p.metrics.FilesProcessed.Inc()
	p.metrics.ParseDuration.Observe(stats.Duration.Seconds())
	p.setStats(stats)
	p.ready.Store(true)
	logger.Info("file processed",
		"records", stats.Records,
		"composites", stats.Composites,
		"qc_failed", stats.QCFailed,
		"duration", stats.Duration,
	)
}

// publish writes the table's rows to the loader in batch-sized chunks.
func (p *Pipeline) publish(ctx context.Context, path string, table *obsseq.Table) error {
	rows := table.Rows()
	for i := 0; i < len(rows); i += p.batchSize {
		end := min(i+p.batchSize, len(rows))
		if err := p.loader.LoadBatch(ctx, path, rows[i:end]); err != nil {
			return err
		}
		p.metrics.RecordsPublished.Add(float64(end - i))
	}
	return nil
}

func (p *Pipeline) setStats(s FileStats) {
	p.mu.Lock()
	p.last = &s
	p.mu.Unlock()
}

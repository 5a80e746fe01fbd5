package downloader

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"videoripper/internal"
	"videoripper/utils"
)

// IdentifierStatus is the terminal state of one identifier in a run
type IdentifierStatus int

const (
	StatusCompleted IdentifierStatus = iota
	StatusNotFound
	StatusEmpty
	StatusError
)

// String returns the string representation of the status
func (s IdentifierStatus) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusNotFound:
		return "not-found"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// IdentifierResult records what happened to one identifier
type IdentifierResult struct {
	Identifier string
	RunID      string
	Status     IdentifierStatus
	Key        string
	Dir        string
	References int
	Stats      PoolStats
	Duration   time.Duration
	Err        error
}

// RunSummary lists the per-identifier results of a run in input order
type RunSummary struct {
	Results []IdentifierResult
}

// Totals sums the download counts of all identifiers
func (s *RunSummary) Totals() PoolStats {
	var total PoolStats
	for _, r := range s.Results {
		total.Succeeded += r.Stats.Succeeded
		total.Skipped += r.Stats.Skipped
		total.Failed += r.Stats.Failed
	}
	return total
}

// Count returns how many identifiers ended in status
func (s *RunSummary) Count(status IdentifierStatus) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Scheduler processes identifiers one at a time. All downloads of an
// identifier finish before the next identifier is resolved.
type Scheduler struct {
	outputDir string
	resolver  internal.Resolver
	pool      *WorkerPool
	progress  internal.Progress
	fileOps   *utils.FileOperations
	newRunID  func() string
}

// NewScheduler creates a scheduler writing under outputDir. progress may be nil.
func NewScheduler(outputDir string, resolver internal.Resolver, pool *WorkerPool, progress internal.Progress) *Scheduler {
	if progress == nil {
		progress = noopProgress{}
	}
	return &Scheduler{
		outputDir: outputDir,
		resolver:  resolver,
		pool:      pool,
		progress:  progress,
		fileOps:   utils.NewFileOperations(),
		newRunID:  uuid.NewString,
	}
}

// Run processes tokens in order. Failures are logged and recorded in the
// summary; cancelling ctx stops the run before the next identifier.
func (s *Scheduler) Run(ctx context.Context, tokens []string) *RunSummary {
	summary := &RunSummary{}

	for i, token := range tokens {
		if strings.TrimSpace(token) == "" {
			continue
		}
		if ctx.Err() != nil {
			internal.LogWarn("run interrupted, %d identifiers not processed", len(tokens)-i)
			break
		}
		summary.Results = append(summary.Results, s.process(ctx, token))
	}

	return summary
}

// process resolves one identifier, queues its references and waits for them
func (s *Scheduler) process(ctx context.Context, token string) (result IdentifierResult) {
	start := time.Now()
	result = IdentifierResult{
		Identifier: strings.TrimSpace(token),
		RunID:      s.newRunID(),
	}
	defer func() { result.Duration = time.Since(start) }()

	id, err := internal.ParseIdentifier(token)
	if err != nil {
		var validationErr *internal.ValidationError
		if errors.As(err, &validationErr) {
			internal.LogValidationError(validationErr)
		}
		result.Status, result.Err = StatusError, err
		return result
	}
	result.Identifier = id.String()

	result.Dir = filepath.Join(s.outputDir, id.DirName())
	if err := s.fileOps.EnsureDir(result.Dir); err != nil {
		internal.LogError("[%s] %v", result.RunID, err)
		result.Status, result.Err = StatusError, err
		return result
	}

	internal.LogDebug("[%s] resolving %s %s", result.RunID, id.Kind, id)
	resolution, err := s.resolver.ResolveAll(ctx, id, result.Dir)
	if err != nil {
		internal.LogError("[%s] failed to resolve %s: %v", result.RunID, id, err)
		result.Status, result.Err = StatusError, err
		return result
	}

	if !resolution.Found() {
		internal.LogCrawlError(internal.NewNotFoundError(id))
		result.Status = StatusNotFound
		return result
	}
	result.Key = resolution.Key

	if len(resolution.References) == 0 {
		internal.LogCrawlError(internal.NewEmptyResultError(id))
		result.Status = StatusEmpty
		return result
	}
	result.References = len(resolution.References)

	internal.LogInfo("[%s] %s %s (key %s): %d videos", result.RunID, id.Kind, id, resolution.Key, result.References)

	before := s.pool.Stats()
	s.progress.Start(id.String(), result.References)

	for _, ref := range resolution.References {
		if err := s.pool.Submit(ctx, internal.WorkItem{Reference: ref, Dir: result.Dir}); err != nil {
			internal.LogWarn("[%s] stopped queueing %s: %v", result.RunID, id, err)
			result.Err = err
			break
		}
	}

	s.pool.Drain()
	s.progress.Finish()

	result.Stats = s.pool.Stats().Sub(before)
	result.Status = StatusCompleted
	if result.Err != nil {
		result.Status = StatusError
	}

	internal.LogInfo("[%s] Finish downloading all the videos from %s: %d downloaded, %d already present, %d failed",
		result.RunID, id, result.Stats.Succeeded, result.Stats.Skipped, result.Stats.Failed)

	return result
}

type noopProgress struct{}

func (noopProgress) Start(string, int) {}
func (noopProgress) Increment(internal.DownloadOutcome) {}
func (noopProgress) Finish() {}

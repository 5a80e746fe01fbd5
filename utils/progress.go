package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"videoripper/internal"
)

// ProgressTracker shows per-identifier download progress as a count of
// finished items
type ProgressTracker struct {
	bar       *pb.ProgressBar
	quiet     bool
	output    io.Writer
	label     string
	startTime time.Time
	total     int
	mutex     sync.Mutex

	succeeded int
	skipped   int
	failed    int
}

// DownloadSummary contains the final counts for one identifier
type DownloadSummary struct {
	Label     string
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	TotalTime time.Duration
}

// NewProgressTracker creates a tracker writing to stderr
func NewProgressTracker(quiet bool) *ProgressTracker {
	return NewProgressTrackerWithOutput(os.Stderr, quiet)
}

// NewProgressTrackerWithOutput creates a tracker writing to output
func NewProgressTrackerWithOutput(output io.Writer, quiet bool) *ProgressTracker {
	return &ProgressTracker{
		quiet:  quiet,
		output: output,
	}
}

var _ internal.Progress = (*ProgressTracker)(nil)

// Start resets the counters and opens a bar for total items
func (p *ProgressTracker) Start(label string, total int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}

	p.label = label
	p.total = total
	p.startTime = time.Now()
	p.succeeded, p.skipped, p.failed = 0, 0, 0

	if p.quiet || total == 0 {
		return
	}

	tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{etime . }}`
	bar := pb.ProgressBarTemplate(tmpl).New(total)
	bar.SetWriter(p.output)
	bar.Set("prefix", fmt.Sprintf("Downloading %s: ", label))
	bar.Start()
	p.bar = bar
}

// Increment records one finished item
func (p *ProgressTracker) Increment(outcome internal.DownloadOutcome) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	switch outcome {
	case internal.OutcomeSuccess:
		p.succeeded++
	case internal.OutcomeSkipped:
		p.skipped++
	default:
		p.failed++
	}

	if p.bar != nil {
		p.bar.Increment()
	}
}

// Finish closes the bar and prints the summary unless quiet
func (p *ProgressTracker) Finish() {
	summary := p.Summary()

	p.mutex.Lock()
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
	p.mutex.Unlock()

	if !p.quiet && summary.Total > 0 {
		p.displaySummary(summary)
	}
}

// Summary returns the counts collected since the last Start
func (p *ProgressTracker) Summary() *DownloadSummary {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var elapsed time.Duration
	if !p.startTime.IsZero() {
		elapsed = time.Since(p.startTime)
	}

	return &DownloadSummary{
		Label:     p.label,
		Total:     p.total,
		Succeeded: p.succeeded,
		Skipped:   p.skipped,
		Failed:    p.failed,
		TotalTime: elapsed,
	}
}

// displaySummary prints the per-identifier summary
func (p *ProgressTracker) displaySummary(summary *DownloadSummary) {
	fmt.Fprintf(p.output, "%s: %d downloaded, %d already present, %d failed in %v\n",
		summary.Label, summary.Succeeded, summary.Skipped, summary.Failed,
		summary.TotalTime.Round(time.Millisecond))
}

// IsQuiet returns whether the tracker is in quiet mode
func (p *ProgressTracker) IsQuiet() bool {
	return p.quiet
}

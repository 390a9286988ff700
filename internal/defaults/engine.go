package defaults

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/MeKo-Tech/boxseed/internal/imagedims"
)

// Outcome classifies what happened to one annotation record.
type Outcome string

const (
	OutcomeBox       Outcome = "box"
	OutcomeNegative  Outcome = "negative"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeUnmatched Outcome = "unmatched"
)

// Observer receives resolution statistics. Implementations must be safe for
// concurrent use when the engine runs with more than one worker.
type Observer interface {
	ObserveRecord(format Format, outcome Outcome)
	ObserveResolution(format Format, files int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRecord(Format, Outcome) {}
func (nopObserver) ObserveResolution(Format, int, time.Duration) {}

// Engine resolves default annotations for datasets. An Engine holds no
// per-dataset state and may be shared between goroutines.
type Engine struct {
	dims     imagedims.Func
	workers  int
	logger   *slog.Logger
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithDimensions sets the pixel dimension lookup used by pixel-absolute
// formats. The default reads image headers from disk.
func WithDimensions(fn imagedims.Func) Option {
	return func(e *Engine) { e.dims = fn }
}

// WithWorkers bounds the number of sidecar files parsed concurrently.
// Values below 1 mean sequential parsing.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithLogger sets the logger for skipped records and degraded sources.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		dims:     imagedims.Decode,
		workers:  1,
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultsForFiles resolves the dataset's annotation source against the
// candidate files. Keys of the result are normalized candidate paths; files
// without defaults are absent. Cancelling ctx stops work early and returns
// what was resolved so far.
func (e *Engine) DefaultsForFiles(ctx context.Context, ds Dataset, files []string) Result {
	src, ok := ds.Source.Resolve(ds.DataRoot)
	if !ok {
		if ds.Source.Format != "" {
			e.logger.Warn("unknown annotation source format", "dataset", ds.Name, "format", ds.Source.Format)
		}
		return Result{}
	}

	start := time.Now()
	r := e.newRun(ctx, ds, src.Format())

	var out Result
	switch s := src.(type) {
	case FolderSource:
		if s.IsVOC() {
			out = r.folderDefaults(s, files, r.parseVOC)
		} else {
			out = r.folderDefaults(s, files, r.parseYOLO)
		}
	case JSONSource:
		out = r.jsonDefaults(s, files)
	case CSVSource:
		out = r.csvDefaults(s, files)
	default:
		out = Result{}
	}

	e.observer.ObserveResolution(src.Format(), len(out), time.Since(start))
	e.logger.Debug("resolved default annotations",
		"dataset", ds.Name, "format", src.Format(), "candidates", len(files),
		"files_with_defaults", len(out), "duration", time.Since(start))
	return out
}

// LabelNamesFromSource returns the sorted, de-duplicated labels the
// dataset's annotation source implies, resolved with the same precedence as
// DefaultsForFiles.
func (e *Engine) LabelNamesFromSource(ctx context.Context, ds Dataset) []string {
	src, ok := ds.Source.Resolve(ds.DataRoot)
	if !ok {
		return []string{}
	}
	r := e.newRun(ctx, ds, src.Format())

	set := map[string]struct{}{}
	add := func(label string) {
		if label != "" {
			set[label] = struct{}{}
		}
	}
	switch s := src.(type) {
	case FolderSource:
		r.folderLabels(s, add)
	case JSONSource:
		r.jsonLabels(s, add)
	case CSVSource:
		r.csvLabels(s, add)
	}

	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// DefaultsForFiles resolves defaults with a default Engine.
func DefaultsForFiles(ds Dataset, files []string) Result {
	return NewEngine().DefaultsForFiles(context.Background(), ds, files)
}

// LabelNamesFromSource lists source labels with a default Engine.
func LabelNamesFromSource(ds Dataset) []string {
	return NewEngine().LabelNamesFromSource(context.Background(), ds)
}

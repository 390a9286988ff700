package defaults

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/boxseed/internal/filekey"
	"github.com/MeKo-Tech/boxseed/internal/geometry"
	"github.com/MeKo-Tech/boxseed/internal/imagedims"
	"github.com/MeKo-Tech/boxseed/internal/labels"
	"github.com/google/uuid"
)

// run is the state of one top-level call. Its caches die with the call.
type run struct {
	ctx      context.Context
	ds       Dataset
	dataRoot string
	format   Format
	workers  int
	resolver *labels.Resolver
	dims     *imagedims.Memo
	logger   *slog.Logger
	observer Observer

	idMu sync.Mutex
	ids  map[string]struct{}
}

func (e *Engine) newRun(ctx context.Context, ds Dataset, format Format) *run {
	if ctx == nil {
		ctx = context.Background()
	}
	dataRoot := filekey.Expand(ds.DataRoot)
	logger := e.logger.With("dataset", ds.Name, "format", string(format))
	external := labels.LoadMapFile(resolveAgainst(ds.Source.LabelMapFile, dataRoot), logger)

	return &run{
		ctx:      ctx,
		ds:       ds,
		dataRoot: dataRoot,
		format:   format,
		workers:  e.workers,
		resolver: labels.NewResolver(ds.Source.LabelMap, external, ds.ClassNames),
		dims:     imagedims.NewMemo(e.dims),
		logger:   logger,
		observer: e.observer,
		ids:      make(map[string]struct{}),
	}
}

// claimID returns preferred when it has not been handed out in this run yet,
// otherwise a generated id with the given prefix.
func (r *run) claimID(prefix, preferred string) string {
	r.idMu.Lock()
	defer r.idMu.Unlock()
	id := preferred
	if id == "" {
		id = prefix + "-" + uuid.NewString()
	}
	for {
		if _, taken := r.ids[id]; !taken {
			r.ids[id] = struct{}{}
			return id
		}
		id = prefix + "-" + uuid.NewString()
	}
}

func (r *run) newBox(prefix, preferredID, label string, g geometry.Box) Box {
	r.observer.ObserveRecord(r.format, OutcomeBox)
	return Box{
		ID:     r.claimID(prefix, preferredID),
		Label:  label,
		X:      g.X,
		Y:      g.Y,
		Width:  g.Width,
		Height: g.Height,
	}
}

func (r *run) negativeBox(label string) Box {
	r.observer.ObserveRecord(r.format, OutcomeNegative)
	b := NegativePlaceholder(label)
	b.ID = r.claimID("default-negative", b.ID)
	return b
}

func (r *run) skip(msg string, args ...any) {
	r.observer.ObserveRecord(r.format, OutcomeSkipped)
	r.logger.Debug(msg, args...)
}

func (r *run) unmatched(path string) {
	r.observer.ObserveRecord(r.format, OutcomeUnmatched)
	r.logger.Debug("annotation references no candidate file", "path", path)
}

// fallbackLabel is the label for records that carry none.
func (r *run) fallbackLabel() string {
	if names := r.resolver.ClassNames(); len(names) > 0 && names[0] != "" {
		return names[0]
	}
	return "object"
}

// candidateIndex indexes the caller's candidate files by key.
func candidateIndex(files []string) *filekey.Index[string] {
	ix := filekey.NewIndex[string]()
	for _, f := range files {
		ix.Add(f, f)
	}
	return ix
}

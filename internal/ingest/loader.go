package ingest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"alphabot/domain/sales"
	"alphabot/internal"
	"alphabot/ports"
)

// Loader caches built datasets per file selection. Concurrent requests
// for the same selection share a single build; later requests hit the
// cache until the selection is invalidated.
type Loader struct {
	source  ports.SheetSource
	builder *Builder
	logger  *internal.Logger

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*sales.Dataset
}

func NewLoader(source ports.SheetSource, builder *Builder, logger *internal.Logger) *Loader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Loader{
		source:  source,
		builder: builder,
		logger:  logger,
		cache:   map[string]*sales.Dataset{},
	}
}

// Load returns the dataset for the given files, building it at most
// once per selection. An empty selection loads every available file.
func (l *Loader) Load(ctx context.Context, files []string) (*sales.Dataset, error) {
	if len(files) == 0 {
		all, err := l.source.ListFiles(ctx)
		if err != nil {
			return nil, err
		}
		files = all
	}
	key := selectionKey(files)

	l.mu.RLock()
	cached, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, shared := l.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a caller that missed the cache may
		// have queued behind a build that already finished.
		l.mu.RLock()
		cached, ok := l.cache[key]
		l.mu.RUnlock()
		if ok {
			return cached, nil
		}

		sheets, err := l.source.FetchSheets(ctx, files)
		if err != nil {
			return nil, err
		}
		ds, err := l.builder.Build(sheets)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[key] = ds
		l.mu.Unlock()
		l.logger.Info("dataset %s built: %d rows, %d columns from %d files in %s",
			ds.ID, ds.RowCount(), len(ds.Columns), len(files), ds.Diagnostics.LoadDuration)
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug("dataset build shared for selection %s", key)
	}
	return v.(*sales.Dataset), nil
}

// Invalidate drops the cached dataset for a selection so the next Load
// rebuilds it.
func (l *Loader) Invalidate(files []string) {
	key := selectionKey(files)
	l.mu.Lock()
	delete(l.cache, key)
	l.mu.Unlock()
}

// Reset clears the whole cache. Used after the source folder changes.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.cache = map[string]*sales.Dataset{}
	l.mu.Unlock()
}

// selectionKey is order-insensitive: the same files always share one
// cache slot.
func selectionKey(files []string) string {
	sorted := append([]string{}, files...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}

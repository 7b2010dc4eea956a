package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

var log = logger.For("watch")

// ChangeType describes what happened to a watched file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a filesystem event reduced to what ingestion needs.
type Change struct {
	Type ChangeType
	Path string
}

// Result reports the outcome of processing one change.
type Result struct {
	Change Change

	// Document is the committed document for created and updated files.
	Document *domain.DocumentMetadata

	// Replaced is the document ID superseded or deleted by this change.
	Replaced string

	Err error
}

// Config configures a Watcher.
type Config struct {
	// Dir is the directory to watch. Required.
	Dir string

	// Debounce is how long a path must be quiet before it is processed.
	// Defaults to 500ms.
	Debounce time.Duration

	// Concurrency bounds parallel uploads. Defaults to 4.
	Concurrency int

	// Initial ingests files already present when Run starts.
	Initial bool

	// OnResult, when set, is called after each change is processed.
	// It may be called from several goroutines.
	OnResult func(Result)
}

// Watcher uploads files as they appear in a directory.
type Watcher struct {
	ingestion driving.IngestionService
	cfg       Config

	mu       sync.Mutex
	docs     map[string]string
	pending  map[string]*time.Timer
	inflight map[string]bool
	queued   map[string]Change
}

// New creates a watcher for cfg.Dir.
func New(ingestion driving.IngestionService, cfg Config) (*Watcher, error) {
	if ingestion == nil {
		return nil, errors.New("watch: ingestion service is required")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: watch directory is required", domain.ErrInvalidInput)
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, cfg.Dir)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	return &Watcher{
		ingestion: ingestion,
		cfg:       cfg,
		docs:      make(map[string]string),
		pending:   make(map[string]*time.Timer),
		inflight:  make(map[string]bool),
		queued:    make(map[string]Change),
	}, nil
}

// Run watches until ctx is cancelled. Cancellation is not an error.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.cfg.Dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	work := make(chan Change)

	for range w.cfg.Concurrency {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case change := <-work:
					w.process(gctx, change)
				}
			}
		})
	}

	if w.cfg.Initial {
		existing, err := w.scan()
		if err != nil {
			log.Warn("initial scan of %s: %v", w.cfg.Dir, err)
		}
		g.Go(func() error {
			for _, change := range existing {
				select {
				case work <- change:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	log.Info("watching %s", w.cfg.Dir)

	g.Go(func() error {
		defer w.stopPending()
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-fsw.Events:
				if !ok {
					return nil
				}
				if change := handleEvent(ev); change != nil {
					w.schedule(gctx, *change, work)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return nil
				}
				log.Warn("watcher error: %v", err)
			}
		}
	})

	return g.Wait()
}

// schedule (re)starts the debounce timer for a path. The latest change wins.
func (w *Watcher) schedule(ctx context.Context, change Change, work chan<- Change) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[change.Path]; ok {
		t.Stop()
	}
	w.pending[change.Path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, change.Path)
		w.mu.Unlock()

		select {
		case work <- change:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// process handles a change, or queues it when another worker is already
// handling the same path. Changes to one path therefore apply in order and the
// worker that owns the path drains the queue.
func (w *Watcher) process(ctx context.Context, change Change) {
	if !w.claim(change) {
		return
	}
	for {
		var res Result
		if change.Type == ChangeDeleted {
			res = w.remove(ctx, change)
		} else {
			res = w.upload(ctx, change)
		}

		if res.Err != nil {
			log.Warn("%s %s: %v", change.Type, change.Path, res.Err)
		}
		if w.cfg.OnResult != nil {
			w.cfg.OnResult(res)
		}

		next, ok := w.release(change.Path)
		if !ok {
			return
		}
		change = next
	}
}

// claim marks the path as in flight. If it already is, the change replaces
// any earlier queued change for that path.
func (w *Watcher) claim(change Change) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inflight[change.Path] {
		w.queued[change.Path] = change
		return false
	}
	w.inflight[change.Path] = true
	return true
}

// release hands back the queued change for path, or clears the in-flight mark.
func (w *Watcher) release(path string) (Change, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if next, ok := w.queued[path]; ok {
		delete(w.queued, path)
		return next, true
	}
	delete(w.inflight, path)
	return Change{}, false
}

func (w *Watcher) upload(ctx context.Context, change Change) Result {
	res := Result{Change: change}

	content, err := os.ReadFile(change.Path)
	if err != nil {
		res.Err = fmt.Errorf("reading file: %w", err)
		return res
	}

	meta, err := w.ingestion.Upload(ctx, domain.UploadRequest{
		Filename: filepath.Base(change.Path),
		Content:  content,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Document = meta

	w.mu.Lock()
	previous := w.docs[change.Path]
	w.docs[change.Path] = meta.DocumentID
	w.mu.Unlock()

	log.Info("ingested %s as %s", change.Path, meta.DocumentID)

	if previous != "" && previous != meta.DocumentID {
		res.Replaced = previous
		if err := w.ingestion.Delete(ctx, previous); err != nil {
			res.Err = fmt.Errorf("removing previous version %s: %w", previous, err)
		}
	}
	return res
}

func (w *Watcher) remove(ctx context.Context, change Change) Result {
	res := Result{Change: change}

	w.mu.Lock()
	id := w.docs[change.Path]
	delete(w.docs, change.Path)
	w.mu.Unlock()

	if id == "" {
		return res
	}
	res.Replaced = id
	if err := w.ingestion.Delete(ctx, id); err != nil {
		res.Err = err
		return res
	}
	log.Info("deleted %s (%s)", id, change.Path)
	return res
}

// Documents returns the document ID ingested for each watched path.
func (w *Watcher) Documents() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.docs))
	for k, v := range w.docs {
		out[k] = v
	}
	return out
}

// scan lists supported files already in the directory, sorted by name.
func (w *Watcher) scan() ([]Change, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, err
	}

	var changes []Change
	for _, e := range entries {
		path := filepath.Join(w.cfg.Dir, e.Name())
		if e.IsDir() || !watchable(path) {
			continue
		}
		changes = append(changes, Change{Type: ChangeCreated, Path: path})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// handleEvent converts an fsnotify event to a Change, or nil when the event
// is irrelevant.
func handleEvent(ev fsnotify.Event) *Change {
	if !watchable(ev.Name) {
		return nil
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: ev.Name}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		typ := ChangeUpdated
		if ev.Has(fsnotify.Create) {
			typ = ChangeCreated
		}
		return &Change{Type: typ, Path: ev.Name}
	default:
		return nil
	}
}

// watchable reports whether a path is a visible file with a supported extension.
func watchable(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return domain.IsSupportedContentType(domain.DetectContentType(path))
}

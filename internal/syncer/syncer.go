// Package syncer routes note archives through classification, identity
// resolution, rendering, and merge. A Session owns every handle the
// processors need and is discarded when the sync session ends; there is no
// module-level shared state.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/inksync/internal/archive"
	"github.com/starford/inksync/internal/checksum"
	"github.com/starford/inksync/internal/classify"
	"github.com/starford/inksync/internal/linker"
	"github.com/starford/inksync/internal/merge"
	"github.com/starford/inksync/internal/metastore"
	"github.com/starford/inksync/internal/modules"
	"github.com/starford/inksync/internal/rename"
	"github.com/starford/inksync/internal/render"
	"github.com/starford/inksync/internal/storage"
)

// Session wires the sync engine together for one run (or one watcher
// lifetime). Safe for concurrent SyncArchive calls; work on the same
// logical note is serialized by a per-noteID lock.
type Session struct {
	cfg   modules.Config
	env   *modules.Env
	locks *keyedMutex
	log   *slog.Logger
}

// New builds a Session over the given collaborators.
func New(cfg modules.Config, docs storage.Provider, store *metastore.Store,
	renderer *render.Engine, log *slog.Logger) *Session {

	locks := newKeyedMutex()
	env := &modules.Env{
		Cfg:      cfg,
		Docs:     docs,
		Store:    store,
		Renamer:  rename.New(store, docs, log),
		Renderer: renderer,
		Merger:   merge.New(render.NotesPlaceholder),
		Linker:   linker.New(docs, cfg.Journal.Folder, log),
		Log:      log,
		LockNote: locks.lock,
	}
	return &Session{cfg: cfg, env: env, locks: locks, log: log}
}

// SyncArchive processes a single note archive end to end. A panic inside
// a processor is recovered and converted into a failed result so one bad
// note cannot take down the batch.
func (s *Session) SyncArchive(ctx context.Context, archivePath string) (res modules.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("processor panic",
				slog.String("archive", archivePath), slog.Any("panic", r))
			res = modules.Result{Errors: []error{fmt.Errorf("processor panic: %v", r)}}
		}
	}()

	sum, err := checksum.File(archivePath)
	if err != nil {
		return modules.Result{Errors: []error{err}}
	}

	ar, err := archive.Open(archivePath)
	if err != nil {
		return modules.Result{Errors: []error{err}}
	}
	defer ar.Close()

	format, err := classify.Classify(ar)
	if err != nil {
		return modules.Result{Errors: []error{err}}
	}

	proc, ok := modules.ForFormat(format)
	if !ok {
		return modules.Result{Errors: []error{
			fmt.Errorf("syncer: no processor for format %q", format)}}
	}

	s.log.Debug("processing archive",
		slog.String("archive", ar.Name()), slog.String("format", string(format)))
	return proc.Process(ctx, s.env, ar, sum)
}

// BatchResult aggregates one sync pass over a directory of archives.
type BatchResult struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Results   map[string]modules.Result
}

// SyncDir processes every .note archive directly inside dir. Notes run
// concurrently up to the configured worker bound; a failed note is
// reported in the batch result and never aborts the remaining notes.
func (s *Session) SyncDir(ctx context.Context, dir string) (BatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BatchResult{}, fmt.Errorf("syncer: read inbox %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".note") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	batch := BatchResult{Total: len(paths), Results: make(map[string]modules.Result, len(paths))}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, p := range paths {
		g.Go(func() error {
			res := s.SyncArchive(gCtx, p)

			mu.Lock()
			batch.Results[filepath.Base(p)] = res
			switch {
			case res.Skipped:
				batch.Skipped++
			case res.Success:
				batch.Succeeded++
			default:
				batch.Failed++
			}
			mu.Unlock()

			if !res.Success {
				s.log.Warn("note sync failed",
					slog.String("archive", filepath.Base(p)),
					slog.String("errors", joinErrors(res.Errors)))
			} else if len(res.Warnings) > 0 {
				s.log.Warn("note sync finished with warnings",
					slog.String("archive", filepath.Base(p)),
					slog.String("warnings", strings.Join(res.Warnings, "; ")))
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("sync batch done",
		slog.Int("total", batch.Total),
		slog.Int("succeeded", batch.Succeeded),
		slog.Int("skipped", batch.Skipped),
		slog.Int("failed", batch.Failed))
	return batch, nil
}

func joinErrors(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// keyedMutex hands out one mutex per key for the session's lifetime.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

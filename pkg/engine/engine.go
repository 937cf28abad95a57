// Package engine is the orchestrator: it owns the watch subscriptions,
// routes raw filesystem events to the reconciler or the heal
// debouncer, and drives the startup scan and shutdown cleanup.
//
// All link table and filesystem mutation happens on the single
// goroutine running Run's event loop. The heal debouncer's quiet
// timers fire on their own goroutines but only post a rescan request
// into that loop, so the collision policy never races.
package engine

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Gavin1937/aggregate-linker/pkg/config"
	"github.com/Gavin1937/aggregate-linker/pkg/errors"
	"github.com/Gavin1937/aggregate-linker/pkg/heal"
	"github.com/Gavin1937/aggregate-linker/pkg/linktable"
	"github.com/Gavin1937/aggregate-linker/pkg/logging"
	"github.com/Gavin1937/aggregate-linker/pkg/reconcile"
	"github.com/Gavin1937/aggregate-linker/pkg/types"
)

// Engine wires the reconciliation components together over one event
// source.
type Engine struct {
	fs       types.FS
	source   types.EventSource
	table    *linktable.Table
	rec      *reconcile.Reconciler
	heal     *heal.Debouncer
	reporter types.Reporter
	logger   zerolog.Logger

	root    string
	sources []types.SourceSpec            // enabled specs, config order
	byDir   map[string][]types.SourceSpec // enabled specs keyed by BaseDir
	rescan  chan string
}

// New builds an Engine from a loaded configuration. The root directory
// is created if missing; failure to do so is fatal and nothing is
// started.
func New(cfg *config.Config, fsys types.FS, source types.EventSource, reporter types.Reporter) (*Engine, error) {
	if reporter == nil {
		reporter = types.NopReporter{}
	}

	if err := fsys.MkdirAll(cfg.Root, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrRootCreate, "cannot create root directory %s", cfg.Root)
	}

	e := &Engine{
		fs:       fsys,
		source:   source,
		table:    linktable.New(fsys, cfg.Root, reporter),
		reporter: reporter,
		logger:   logging.GetLogger("engine"),
		root:     cfg.Root,
		byDir:    make(map[string][]types.SourceSpec),
		rescan:   make(chan string, len(cfg.Sources)+4),
	}
	e.rec = reconcile.New(fsys, e.table, cfg.GlobalExcludes)
	e.heal = heal.New(cfg.HealIdleTimeout, e.requestRescan)

	for _, spec := range cfg.Sources {
		if spec.Disabled {
			reporter.SpecDisabled(spec.Pattern, spec.DisabledReason)
			continue
		}
		e.sources = append(e.sources, spec)
		e.byDir[spec.BaseDir] = append(e.byDir[spec.BaseDir], spec)
	}

	return e, nil
}

// Run scans all sources, establishes watches and processes events
// until ctx is cancelled or the event source closes. On return every
// owned link has been released (best effort).
func (e *Engine) Run(ctx context.Context) error {
	e.startup()
	defer e.shutdown()

	events := e.source.Events()
	errs := e.source.Errors()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("shutdown signal received")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			e.dispatch(ev)
		case dir := <-e.rescan:
			e.completeHeal(dir)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			e.logger.Error().Err(err).Msg("watch mechanism error")
		}
	}
}

// startup runs the initial scan for every source, then establishes
// the watches: each source directory plus each source's parent (to
// observe deletion and recreation of the source itself).
func (e *Engine) startup() {
	missing := make(map[string]bool)
	for dir := range e.byDir {
		info, err := e.fs.Stat(dir)
		missing[dir] = err != nil || !info.IsDir()
	}

	// Scans happen in config order so collision outcomes are
	// deterministic and reproducible across runs.
	for _, spec := range e.sources {
		if !missing[spec.BaseDir] {
			e.rec.Scan(spec)
		}
	}

	parents := make(map[string]struct{})
	for dir := range e.byDir {
		parents[filepath.Dir(dir)] = struct{}{}

		if missing[dir] {
			e.logger.Warn().Str("source", dir).Msg("source directory absent, waiting for it to appear")
			e.heal.MarkDeleted(dir)
			continue
		}
		if err := e.source.Add(dir); err != nil {
			e.logger.Warn().Err(err).Str("source", dir).Msg("cannot watch source, treating as deleted")
			e.markSourceDeleted(dir)
		}
	}

	for parent := range parents {
		if err := e.source.Add(parent); err != nil {
			e.logger.Error().Err(err).Str("dir", parent).Msg("cannot watch source parent, heal disabled for its children")
		}
	}

	e.logger.Info().
		Str("root", e.root).
		Int("sources", len(e.sources)).
		Int("links", e.table.Len()).
		Msg("engine started")
}

// dispatch routes one event: a path equal to a source directory is a
// presence event for the heal debouncer, a path directly under one is
// a content event for the reconciler.
func (e *Engine) dispatch(ev types.Event) {
	if _, ok := e.byDir[ev.Path]; ok {
		e.sourcePresence(ev, ev.Path)
		return
	}

	dir := filepath.Dir(ev.Path)
	specs, ok := e.byDir[dir]
	if !ok {
		return
	}

	switch e.heal.Phase(dir) {
	case heal.Recreated:
		// The directory must be observed idle, not merely present.
		e.heal.Activity(dir)
		return
	case heal.Deleted:
		return
	}

	for _, spec := range specs {
		switch ev.Type {
		case types.EventCreated:
			e.rec.FileCreated(spec, ev.Path)
		case types.EventDeleted, types.EventRenamed:
			// A rename is a delete of the old name; the follow-up
			// create event claims the new one.
			e.rec.FileDeleted(spec, ev.Path)
		}
	}
}

// sourcePresence handles events about a source directory itself.
func (e *Engine) sourcePresence(ev types.Event, dir string) {
	switch ev.Type {
	case types.EventDeleted, types.EventRenamed:
		if e.heal.Phase(dir) == heal.Deleted {
			return
		}
		e.markSourceDeleted(dir)
	case types.EventCreated:
		if !ev.IsDir || e.heal.Phase(dir) != heal.Deleted {
			return
		}
		e.reporter.HealStarted(dir)
		e.heal.MarkRecreated(dir)
		// Watch inside the recreated directory right away so its
		// settling activity resets the quiet timer.
		if err := e.source.Add(dir); err != nil {
			e.logger.Debug().Err(err).Str("source", dir).Msg("cannot watch recreated source yet")
		}
	}
}

// markSourceDeleted releases everything the source owns and parks it
// in the Deleted phase. Stale links must not outlive their source.
func (e *Engine) markSourceDeleted(dir string) {
	released := e.table.ReleaseSource(dir)
	e.heal.MarkDeleted(dir)
	_ = e.source.Remove(dir)
	e.logger.Warn().Str("source", dir).Int("released", released).Msg("source links released")
}

// requestRescan runs on a heal timer goroutine; it hands the rescan
// over to the event loop instead of scanning in place.
func (e *Engine) requestRescan(dir string) {
	select {
	case e.rescan <- dir:
	default:
		e.logger.Warn().Str("source", dir).Msg("rescan queue full, dropping request")
	}
}

// completeHeal finishes a heal cycle: re-establish the source watch
// and run the full scan. A source that vanished again in the meantime
// goes back to Deleted.
func (e *Engine) completeHeal(dir string) {
	specs, ok := e.byDir[dir]
	if !ok {
		return
	}

	info, err := e.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		e.markSourceDeleted(dir)
		return
	}

	if err := e.source.Add(dir); err != nil {
		e.logger.Warn().Err(err).Str("source", dir).Msg("cannot rewatch healed source")
	}

	created := 0
	for _, spec := range specs {
		stats := e.rec.Scan(spec)
		created += stats.Created
	}
	e.reporter.HealCompleted(dir, created)
	e.logger.Info().Str("source", dir).Int("created", created).Msg("heal cycle complete")
}

// shutdown releases every owned link (best effort) and closes the
// event source. The root directory and non-owned entries are left
// untouched.
func (e *Engine) shutdown() {
	e.heal.Stop()
	released := e.table.ReleaseAll()
	e.logger.Info().Int("released", released).Msg("cleanup complete, links removed")
	_ = e.source.Close()
}

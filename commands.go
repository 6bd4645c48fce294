package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"imgresponsiver/core"
	"imgresponsiver/pipeline"
	"imgresponsiver/watcher"
)

// RunCmd generates variants and rewrites HTML once.
type RunCmd struct{}

// Run executes the command.
func (c *RunCmd) Run(a *app) error {
	ctx := a.manager.Context()
	p, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	report, err := p.Run(ctx)
	pipeline.PrintSummary(a.stdout, report, err)
	a.reported = true
	return err
}

// RestoreCmd removes generated picture blocks.
type RestoreCmd struct{}

// Run executes the command.
func (c *RestoreCmd) Run(a *app) error {
	ctx := a.manager.Context()
	p, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	report, err := p.Restore(ctx)
	pipeline.PrintSummary(a.stdout, report, err)
	a.reported = true
	return err
}

// WatchCmd runs once and then again after every burst of image changes.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period after the last change before a run" default:"500ms"`
}

// Run executes the command until interrupted.
func (c *WatchCmd) Run(a *app) error {
	return watch(a.manager.Context(), a, c.Debounce)
}

// watch is shared by the watch command and the OS service.
func watch(ctx context.Context, a *app, debounce time.Duration) error {
	p, err := a.pipeline(ctx)
	if err != nil {
		return err
	}

	runOnce := func(ctx context.Context) error {
		report, err := p.Run(ctx)
		pipeline.PrintSummary(a.stdout, report, err)
		return err
	}

	// A failed first run is reported but does not stop watching; the next
	// change may fix it.
	if err := runOnce(ctx); err != nil && ctx.Err() == nil {
		a.logger.Warn("Initial run failed, watching for changes", zap.Error(err))
	}

	w := watcher.New(a.cfg.ImagesDirs, a.logger,
		watcher.WithDebounce(debounce),
		watcher.WithExtensions(a.cfg.ImageExtensions),
	)
	return w.Watch(ctx, runOnce)
}

// HistoryCmd lists recorded runs.
type HistoryCmd struct {
	Limit     int `short:"n" help:"Number of runs to show" default:"10"`
	PruneDays int `name:"prune-days" help:"First delete runs older than this many days (0 keeps all)" default:"0"`
}

// Run executes the command.
func (c *HistoryCmd) Run(a *app) error {
	if !a.cfg.HistoryEnabled() {
		return core.ErrMissingConfig("historyDB")
	}
	ctx := a.manager.Context()
	store, err := a.historyStore(ctx)
	if err != nil {
		return err
	}

	if c.PruneDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -c.PruneDays)
		deleted, err := store.Prune(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Pruned %d runs older than %d days\n", deleted, c.PruneDays)
	}

	runs, err := store.Recent(ctx, c.Limit)
	if err != nil {
		return err
	}
	pipeline.PrintHistory(a.stdout, runs)
	return nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package jobs runs the catalog's background work. The only job is the
// tree integrity audit: it periodically loads the whole category tree and
// checks every nested-set invariant.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"bookcatalog/internal/metrics"
	"bookcatalog/internal/nestedset"
)

// Tree is what the auditor inspects.
type Tree interface {
	Verify(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Auditor schedules the integrity audit.
type Auditor struct {
	scheduler gocron.Scheduler
	tree      Tree
	interval  time.Duration
}

// NewAuditor creates an auditor that checks tree every interval, starting
// right away. Each run is bounded by the interval itself.
func NewAuditor(tree Tree, interval time.Duration) (*Auditor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("audit interval must be positive, got %s", interval)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	a := &Auditor{scheduler: scheduler, tree: tree, interval: interval}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(a.run, context.Background()),
		gocron.WithName("tree-integrity-audit"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("create audit job: %w", err)
	}
	return a, nil
}

// Start starts the scheduler.
func (a *Auditor) Start() {
	slog.Info("starting tree audit scheduler", "interval", a.interval)
	a.scheduler.Start()
}

// Stop stops the scheduler and waits for a running audit to finish.
func (a *Auditor) Stop() error {
	slog.Info("stopping tree audit scheduler")
	return a.scheduler.Shutdown()
}

// run performs one audit.
func (a *Auditor) run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.interval)
	defer cancel()

	start := time.Now()
	if err := a.tree.Verify(ctx); err != nil {
		if errors.Is(err, nestedset.ErrCorrupt) {
			metrics.AuditRun(metrics.AuditCorrupt)
			slog.Error("category tree is corrupt", "error", err)
		} else {
			metrics.AuditRun(metrics.AuditError)
			slog.Warn("tree audit failed", "error", err)
		}
		return err
	}

	n, err := a.tree.Count(ctx)
	if err != nil {
		metrics.AuditRun(metrics.AuditError)
		slog.Warn("tree audit count failed", "error", err)
		return err
	}
	metrics.SetTreeNodes(n)
	metrics.AuditRun(metrics.AuditOK)
	slog.Debug("tree audit passed", "nodes", n, "elapsed", time.Since(start))
	return nil
}

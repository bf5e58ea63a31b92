// Package jobs holds scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"service-center/internal/core"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// LowStockSource lists items at or below the threshold. A negative threshold
// uses the configured default.
type LowStockSource interface {
	LowStock(ctx context.Context, threshold int) ([]core.InventoryItem, error)
}

// LowStockGauge receives the size of each report.
type LowStockGauge interface {
	SetLowStockItems(n int)
}

// LowStockWatcher periodically reports items that need reordering.
type LowStockWatcher struct {
	cron     *cron.Cron
	source   LowStockSource
	gauge    LowStockGauge
	log      *zap.Logger
	schedule string
	timeout  time.Duration
	jobID    cron.EntryID
}

// NewLowStockWatcher builds a watcher for a six-field cron schedule
// ("0 0 8 * * *" is 08:00 every day) evaluated in loc.
func NewLowStockWatcher(source LowStockSource, gauge LowStockGauge, log *zap.Logger, schedule string, loc *time.Location) *LowStockWatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LowStockWatcher{
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		source:   source,
		gauge:    gauge,
		log:      log.Named("low_stock"),
		schedule: schedule,
		timeout:  30 * time.Second,
	}
}

// Start schedules the check and runs it once immediately so the gauge is
// populated from process start.
func (w *LowStockWatcher) Start(ctx context.Context) error {
	id, err := w.cron.AddFunc(w.schedule, func() { w.RunOnce(ctx) })
	if err != nil {
		return fmt.Errorf("error scheduling low-stock check %q: %w", w.schedule, err)
	}
	w.jobID = id
	w.cron.Start()
	w.log.Info("low-stock watcher started", zap.String("schedule", w.schedule))

	go w.RunOnce(ctx)
	return nil
}

// Stop unschedules the check, halts the scheduler and waits for a running
// check to finish.
func (w *LowStockWatcher) Stop() {
	w.cron.Remove(w.jobID)
	<-w.cron.Stop().Done()
	w.log.Info("low-stock watcher stopped")
}

// RunOnce performs one check. Failures are logged, never fatal.
func (w *LowStockWatcher) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	items, err := w.source.LowStock(ctx, -1)
	if err != nil {
		w.log.Error("low-stock check failed", zap.Error(err))
		return
	}
	if w.gauge != nil {
		w.gauge.SetLowStockItems(len(items))
	}

	if len(items) == 0 {
		w.log.Debug("no items below threshold")
		return
	}
	for _, it := range items {
		w.log.Warn("item low on stock",
			zap.String("sku", it.SKU),
			zap.String("name", it.Name),
			zap.Int("quantity", it.Quantity))
	}
	w.log.Info("low-stock check complete", zap.Int("items", len(items)))
}

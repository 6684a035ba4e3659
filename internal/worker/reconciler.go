package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/careslot/booking-api/internal/service/availability"
	"github.com/careslot/booking-api/internal/service/schedule"
	"github.com/careslot/booking-api/pkg/clock"
	"github.com/careslot/booking-api/pkg/logger"
	"github.com/careslot/booking-api/pkg/metrics"
)

// Reconciler is the cache consistency backstop. Invalidation is
// best-effort, so this sweep re-derives slot entries for providers with
// recent writes and overwrites whatever the cache holds.
type Reconciler struct {
	schedule     *schedule.Service
	availability *availability.Service
	interval     time.Duration
	horizonDays  int
	clock        clock.Clock
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewReconciler(
	scheduleSvc *schedule.Service,
	availabilitySvc *availability.Service,
	interval time.Duration,
	horizonDays int,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *logger.Logger,
) *Reconciler {
	return &Reconciler{
		schedule:     scheduleSvc,
		availability: availabilitySvc,
		interval:     interval,
		horizonDays:  horizonDays,
		clock:        clk,
		metrics:      m,
		logger:       logger,
	}
}

func (w *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting cache reconciler",
		"interval", w.interval.String(), "horizon_days", w.horizonDays)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down cache reconciler")
			return
		case <-ticker.C:
			w.Run(ctx)
		}
	}
}

// Run reconciles one batch. Failures for a single provider or day are
// logged and skipped; one bad record must not block the sweep for others.
func (w *Reconciler) Run(ctx context.Context) {
	timer := prometheus.NewTimer(w.metrics.SweepDurations.WithLabelValues("reconcile"))
	defer timer.ObserveDuration()

	w.metrics.SweepRuns.WithLabelValues("reconcile").Inc()

	// Two intervals of lookback so a write racing the previous run is
	// still picked up.
	since := w.clock.Now().Add(-2 * w.interval)
	providers, err := w.schedule.TouchedProviders(ctx, since)
	if err != nil {
		w.logger.Error(err, "failed to list providers for reconciliation")
		return
	}

	today := w.clock.Now()
	for _, providerID := range providers {
		for d := 0; d < w.horizonDays; d++ {
			day := today.AddDate(0, 0, d)
			if err := w.availability.RefreshDay(ctx, providerID, day); err != nil {
				w.metrics.SweepFailures.WithLabelValues("reconcile").Inc()
				w.logger.Error(err, "failed to reconcile cache entry",
					"provider_id", providerID.String(),
					"date", day.Format("2006-01-02"))
			}
		}
	}
}

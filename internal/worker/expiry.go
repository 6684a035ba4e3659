package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/careslot/booking-api/internal/service/appointment"
	"github.com/careslot/booking-api/pkg/logger"
	"github.com/careslot/booking-api/pkg/metrics"
)

// ExpirySweeper periodically transitions overdue reservations to expired.
// It is the authoritative enforcement of the confirmation grace period;
// the confirm path only expires lazily for callers at the boundary.
type ExpirySweeper struct {
	svc      *appointment.Service
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewExpirySweeper(svc *appointment.Service, interval time.Duration, m *metrics.Metrics, logger *logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		svc:      svc,
		interval: interval,
		metrics:  m,
		logger:   logger,
	}
}

func (w *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting expiry sweeper", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down expiry sweeper")
			return
		case <-ticker.C:
			w.Run(ctx)
		}
	}
}

// Run executes one sweep. Exposed so the worker binary and tests can
// trigger it without the ticker.
func (w *ExpirySweeper) Run(ctx context.Context) {
	timer := prometheus.NewTimer(w.metrics.SweepDurations.WithLabelValues("expiry"))
	defer timer.ObserveDuration()

	w.metrics.SweepRuns.WithLabelValues("expiry").Inc()

	expired, err := w.svc.ExpireSweep(ctx)
	if err != nil {
		w.logger.Error(err, "expiry sweep failed")
		return
	}
	if expired > 0 {
		w.logger.Info("expired overdue reservations", "count", expired)
	}
}

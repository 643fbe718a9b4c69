package permits

import (
	"context"
	"log/slog"
	"time"
)

// Worker periodically flips expired permits to inactive. Expiry is also
// applied lazily at authorization time, so the sweep only keeps listings and
// reports honest between lookups.
type Worker struct {
	service  *Service
	logger   *slog.Logger
	interval time.Duration
}

func NewWorker(service *Service, logger *slog.Logger, interval time.Duration) *Worker {
	return &Worker{
		service:  service,
		logger:   logger,
		interval: interval,
	}
}

// Run starts the worker loop
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("permit sweep worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("permit sweep worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	swept, err := w.service.SweepExpired(ctx)
	if err != nil {
		w.logger.Error("failed to sweep expired permits", "error", err)
		return
	}

	if swept > 0 {
		w.logger.Info("expired permits deactivated", "count", swept)
	}
}

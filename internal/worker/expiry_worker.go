package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/service"
)

// ExpiryWorker periodically sweeps in_progress sessions whose deadline plus
// grace has passed and marks them expired. The sweep makes abandoned
// attempts terminal even when the participant never comes back to submit.
type ExpiryWorker struct {
	examService *service.ExamSessionService
	interval    time.Duration
	log         zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(examService *service.ExamSessionService, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		examService: examService,
		interval:    interval,
		log:         log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := w.examService.ExpireOverdue(sweepCtx); err != nil {
		w.log.Error().Err(err).Msg("Expiry sweep failed")
	}
}

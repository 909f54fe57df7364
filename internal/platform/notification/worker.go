package notification

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Worker drains the retry queue, redelivering messages with backoff until
// they succeed or run out of attempts.
type Worker struct {
	d      *Dispatcher
	queue  Queue
	logger zerolog.Logger
}

func NewWorker(d *Dispatcher, queue Queue, logger zerolog.Logger) *Worker {
	return &Worker{d: d, queue: queue, logger: logger.With().Str("component", "notification-worker").Logger()}
}

// Run processes jobs until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error().Err(err).Msg("dequeue retry job")
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		if wait := time.Until(job.NotBefore); wait > 0 {
			if !sleep(ctx, wait) {
				// Put it back for the next instance.
				_ = w.queue.Enqueue(context.WithoutCancel(ctx), job)
				return nil
			}
		}
		w.Process(ctx, job)
	}
}

// Process makes one delivery attempt for job and requeues it on failure.
func (w *Worker) Process(ctx context.Context, job Job) {
	n, err := w.d.Deliver(ctx, job.Message)
	if err == nil {
		w.logger.Info().
			Str("message_id", job.Message.ID.String()).
			Int("attempts", job.Attempts+1).
			Int("recipients", n).
			Msg("notification delivered on retry")
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	log := w.logger.With().
		Str("message_id", job.Message.ID.String()).
		Str("type", string(job.Message.Type())).
		Int("attempts", job.Attempts).
		Logger()

	limit := w.d.retry.MaxAttempts
	if limit > 0 && job.Attempts >= limit {
		log.Error().Err(err).Msg("notification dropped after max attempts")
		return
	}

	job.NotBefore = w.d.now().Add(w.d.retry.Delay(job.Attempts))
	if qerr := w.queue.Enqueue(ctx, job); qerr != nil {
		log.Error().Err(errors.Join(err, qerr)).Msg("notification dropped, requeue failed")
		return
	}
	log.Warn().Err(err).Time("not_before", job.NotBefore).Msg("notification retry scheduled")
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

// spawnWorkerPool starts the configured number of processing goroutines.
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, fmt.Sprintf("%s-%d", w.workerID, i))
	}
}

// workerLoop pulls job messages off jobsChan until shutdown, processing
// each one and settling its delivery.
func (w *Worker) workerLoop(ctx context.Context, name string) {
	defer w.wg.Done()

	log := w.logger.With(slog.String("worker_name", name))
	log.Info("Worker goroutine started")

	for {
		select {
		case <-w.stopChan:
			log.Info("Worker goroutine stopping - stopChan closed")
			return

		case <-ctx.Done():
			log.Info("Worker goroutine stopping - context canceled")
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				log.Info("Worker goroutine stopping - jobsChan closed")
				return
			}

			log.Info("Worker received job",
				slog.String("job_id", msg.JobID),
				slog.Uint64("delivery_tag", msg.DeliveryTag),
			)

			err := w.processJob(ctx, msg)
			w.settleDelivery(log, msg, err)
		}
	}
}

// settleDelivery acks a processed delivery, or nacks it with a requeue
// decision driven by the error classification.
func (w *Worker) settleDelivery(log *slog.Logger, msg *domain.JobMessage, procErr error) {
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		log.Error("No RabbitMQ channel available to settle delivery",
			slog.String("job_id", msg.JobID),
		)
		return
	}

	if procErr == nil {
		if err := channel.Ack(msg.DeliveryTag, false); err != nil {
			log.Error("Failed to ACK message",
				slog.String("job_id", msg.JobID),
				slog.String("error", err.Error()),
			)
			return
		}
		log.Info("Job finished", slog.String("job_id", msg.JobID))
		return
	}

	log.Error("Job processing failed",
		slog.String("job_id", msg.JobID),
		slog.String("error", procErr.Error()),
	)

	requeue := w.shouldRequeueJob(procErr)
	if err := channel.Nack(msg.DeliveryTag, false, requeue); err != nil {
		log.Error("Failed to NACK message",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		return
	}
	log.Info("Message NACKed",
		slog.String("job_id", msg.JobID),
		slog.Bool("requeue", requeue),
	)
}

// shouldRequeueJob reports whether a failed job should be redelivered.
// Only transient failures wrapped in RetryableError go back on the
// queue; claim conflicts and exhausted retries are final for this
// delivery.
func (w *Worker) shouldRequeueJob(err error) bool {
	if errors.Is(err, domain.ErrJobAlreadyClaimed) {
		return false
	}
	if errors.Is(err, domain.ErrMaxRetriesExceeded) {
		return false
	}

	var retryable *domain.RetryableError
	return errors.As(err, &retryable)
}

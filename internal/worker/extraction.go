package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"tender-marketplace-api/internal/config"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/logger"
	"tender-marketplace-api/internal/metrics"
	"tender-marketplace-api/internal/queue"
	"tender-marketplace-api/internal/service"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ExtractionProcessor interface {
	ProcessStored(ctx context.Context, extractionId uuid.UUID, storageKey string) error
	RetryExtraction(ctx context.Context, extractionId uuid.UUID) (uuid.UUID, error)
}

type JobQueue interface {
	EnqueueExtraction(ctx context.Context, job entity.ExtractionJob) error
	DeadLetter(ctx context.Context, job entity.ExtractionJob) error
}

type JobSource interface {
	Consume(ctx context.Context, handler queue.MessageHandler) error
}

const followUpTimeout = 5 * time.Second

// attempt results
const (
	attemptSucceeded = "success"
	attemptRetried   = "retry"
	attemptExhausted = "exhausted"
	attemptPermanent = "permanent"
)

type ExtractionWorker struct {
	processor      ExtractionProcessor
	jobs           JobQueue
	source         JobSource
	workerPool     *WorkerPool
	maxAttempts    int
	attemptTimeout time.Duration
	metrics        *metrics.Metrics
	log            zerolog.Logger
}

func NewExtractionWorker(
	cfg config.ExtractionWorkerConfig,
	processor ExtractionProcessor,
	jobs JobQueue,
	source JobSource,
	m *metrics.Metrics,
) *ExtractionWorker {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &ExtractionWorker{
		processor:      processor,
		jobs:           jobs,
		source:         source,
		workerPool:     NewWorkerPool(cfg.Count),
		maxAttempts:    maxAttempts,
		attemptTimeout: cfg.AttemptTimeout,
		metrics:        m,
		log:            logger.Get().With().Str("component", "extraction_worker").Logger(),
	}
}

func (w *ExtractionWorker) Start(ctx context.Context) error {
	w.log.Info().Int("max_attempts", w.maxAttempts).Dur("attempt_timeout", w.attemptTimeout).Msg("Starting extraction worker")

	w.workerPool.Start(ctx)

	return w.source.Consume(ctx, w.handleMessage)
}

func (w *ExtractionWorker) Stop() {
	w.log.Info().Msg("Stopping extraction worker")
	w.workerPool.Stop()
}

func (w *ExtractionWorker) handleMessage(ctx context.Context, data []byte) error {
	var job entity.ExtractionJob
	if err := json.Unmarshal(data, &job); err != nil {
		return fmt.Errorf("unmarshal extraction job: %w", err)
	}
	if job.Attempt < 1 {
		job.Attempt = 1
	}

	w.log.Info().
		Str("extraction_id", job.ExtractionId.String()).
		Int("attempt", job.Attempt).
		Msg("Received extraction job")

	return w.workerPool.Submit(ctx, func(ctx context.Context) error {
		return w.Run(ctx, job)
	})
}

// Run executes one attempt of the job and schedules the next one when the
// failure is transient and the budget allows it.
func (w *ExtractionWorker) Run(ctx context.Context, job entity.ExtractionJob) error {
	log := w.log.With().
		Str("extraction_id", job.ExtractionId.String()).
		Int("attempt", job.Attempt).
		Logger()

	if ctx.Err() != nil {
		return w.handBack(ctx, job, log)
	}

	attemptCtx := ctx
	if w.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, w.attemptTimeout)
		defer cancel()
	}

	err := w.processor.ProcessStored(attemptCtx, job.ExtractionId, job.StorageKey)
	if err == nil {
		w.metrics.ExtractionAttempt(attemptSucceeded)
		log.Info().Msg("Extraction completed")
		return nil
	}

	// the attempt may have been cut short by shutdown, follow-up writes still happen
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()

	if service.IsPermanent(err) {
		w.metrics.ExtractionAttempt(attemptPermanent)
		log.Error().Err(err).Msg("Extraction failed permanently, not retrying")
		w.deadLetter(ctx, job, log)
		return err
	}

	if job.Attempt >= w.maxAttempts {
		w.metrics.ExtractionAttempt(attemptExhausted)
		log.Error().Err(err).Int("max_attempts", w.maxAttempts).Msg("Extraction failed permanently, attempts exhausted")
		w.deadLetter(ctx, job, log)
		return err
	}

	retryId, retryErr := w.processor.RetryExtraction(ctx, job.ExtractionId)
	if retryErr != nil {
		log.Error().Err(retryErr).Msg("Failed to create retry extraction")
		w.deadLetter(ctx, job, log)
		return fmt.Errorf("retry extraction: %w", retryErr)
	}

	next := entity.ExtractionJob{
		ExtractionId: retryId,
		StorageKey:   job.StorageKey,
		Attempt:      job.Attempt + 1,
	}
	if err := w.jobs.EnqueueExtraction(ctx, next); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue retry")
		w.deadLetter(ctx, next, log)
		return fmt.Errorf("enqueue retry: %w", err)
	}

	w.metrics.ExtractionAttempt(attemptRetried)
	log.Warn().Err(err).Str("retry_extraction_id", retryId.String()).Msg("Extraction failed, retry scheduled")

	return err
}

// handBack returns a job that was accepted but never started to the queue.
// Its record is still processing and the attempt is not charged.
func (w *ExtractionWorker) handBack(ctx context.Context, job entity.ExtractionJob, log zerolog.Logger) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()

	if err := w.jobs.EnqueueExtraction(writeCtx, job); err != nil {
		log.Error().Err(err).Msg("Failed to hand job back to the queue")
		w.deadLetter(writeCtx, job, log)
		return fmt.Errorf("hand back job: %w", err)
	}

	log.Info().Msg("Worker shutting down, job handed back to the queue")
	return ctx.Err()
}

func (w *ExtractionWorker) deadLetter(ctx context.Context, job entity.ExtractionJob, log zerolog.Logger) {
	if err := w.jobs.DeadLetter(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to move job to DLQ")
	}
}

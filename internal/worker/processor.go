package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/asharma-dev/docverify-be/internal/extract"
	"github.com/asharma-dev/docverify-be/internal/face"
	"github.com/asharma-dev/docverify-be/internal/metrics"
	"github.com/asharma-dev/docverify-be/internal/risk"
	"github.com/asharma-dev/docverify-be/internal/validate"
)

// processJob runs one verification job end to end: claim, extract,
// validate, face checks, risk scoring, persist. The returned error
// drives the ACK/NACK decision in the pool.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	// Claim job (pending -> processing)
	job, err := w.storage.ClaimJob(ctx, msg.JobID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			w.logger.Warn("Job already claimed, skipping",
				slog.String("job_id", msg.JobID),
			)
			return fmt.Errorf("job already claimed: %w", err)
		}
		// Database error, could be transient
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	var opts domain.JobOptions
	if job.Options != "" {
		if err := json.Unmarshal([]byte(job.Options), &opts); err != nil {
			return w.failJob(ctx, job, fmt.Sprintf("invalid job options: %s", err.Error()))
		}
	}

	docType := domain.DocumentType(job.DocumentType)
	if !domain.IsSupported(docType) {
		return w.failJob(ctx, job, fmt.Sprintf("unsupported document type: %s", job.DocumentType))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	heartbeatDone := make(chan struct{})
	go w.sendJobHeartbeat(jobCtx, job.JobID, heartbeatDone)
	defer close(heartbeatDone)

	result, err := w.runPipeline(jobCtx, job, docType, &opts)
	if err != nil {
		// A deadline on jobCtx means the job overran its budget, not that
		// the failing stage's service is down. Fail terminally with the
		// timeout named so polling clients can tell the two apart.
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			return w.failJob(ctx, job, fmt.Sprintf("job timed out after %s", w.jobTimeout))
		}
		if isRetryable(err) {
			return w.retryOrFail(ctx, job, err)
		}
		return w.failJob(ctx, job, err.Error())
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return w.failJob(ctx, job, fmt.Sprintf("failed to encode result: %s", err.Error()))
	}

	if err := w.storage.CompleteJob(ctx, job, payload); err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to persist result: %w", err))
	}

	metrics.JobsProcessed.WithLabelValues(domain.JobStatusCompleted).Inc()
	return nil
}

// runPipeline executes the verification stages and assembles the result.
func (w *Worker) runPipeline(ctx context.Context, job *domain.Job, docType domain.DocumentType, opts *domain.JobOptions) (*domain.VerificationResult, error) {
	doc, err := w.storage.GetDocumentByID(ctx, job.DocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, fmt.Errorf("document %s not found", job.DocumentID)
		}
		return nil, domain.NewRetryableError(err)
	}

	img, mimeType, err := w.objects.Get(ctx, doc.ObjectName)
	if err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("failed to fetch document image: %w", err))
	}

	// Stage: extraction
	stageStart := time.Now()
	extraction, err := w.extractor.Extract(ctx, &extract.Request{
		Image:         img,
		MimeType:      mimeType,
		DocumentType:  docType,
		AllowDegraded: opts.AllowDegraded,
	})
	metrics.StageDuration.WithLabelValues("extraction").Observe(time.Since(stageStart).Seconds())

	if err != nil {
		if errors.Is(err, domain.ErrExtractionUnavailable) {
			return nil, domain.NewRetryableError(err)
		}
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	if !extraction.Degraded && w.primaryModel != "" && extraction.ModelID != w.primaryModel {
		metrics.ExtractionFallbacks.Inc()
	}

	if err := w.storage.UpdateProgress(ctx, job.JobID, domain.ProgressExtracted, "fields extracted, validating"); err != nil {
		w.logger.Warn("Failed to update progress",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
	}

	// Stage: field validation
	stageStart = time.Now()
	validation := validate.Validate(extraction.Fields, docType)
	metrics.StageDuration.WithLabelValues("validation").Observe(time.Since(stageStart).Seconds())

	if err := w.storage.UpdateProgress(ctx, job.JobID, domain.ProgressValidated, "fields validated"); err != nil {
		w.logger.Warn("Failed to update progress",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
	}

	// Stage: face location and matching
	stageStart = time.Now()
	faceMatch, faceBox, faceRequired := w.runFaceStage(ctx, job, docType, opts, img)
	metrics.StageDuration.WithLabelValues("face").Observe(time.Since(stageStart).Seconds())

	if err := w.storage.UpdateProgress(ctx, job.JobID, domain.ProgressFaceChecks, "face checks done, scoring"); err != nil {
		w.logger.Warn("Failed to update progress",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
	}

	// Stage: risk scoring
	verdict := risk.Score(risk.Input{
		Extraction:   extraction,
		Validation:   &validation,
		FaceMatch:    faceMatch,
		FaceRequired: faceRequired,
	})

	return &domain.VerificationResult{
		DocumentID: job.DocumentID,
		JobID:      job.JobID,
		Verdict:    verdict,
		Extraction: *extraction,
		Validation: validation,
		FaceMatch:  faceMatch,
		FaceBox:    faceBox,
	}, nil
}

// runFaceStage locates the document face and, when a selfie is attached,
// compares descriptors. Face failures never abort the job; they surface
// through the risk verdict instead.
func (w *Worker) runFaceStage(ctx context.Context, job *domain.Job, docType domain.DocumentType, opts *domain.JobOptions, docImg []byte) (*domain.FaceMatchResult, *domain.FaceDescriptorMeta, bool) {
	if !opts.DetectFace || !docType.RequiresFace() {
		return nil, nil, false
	}

	// A match is only mandatory when the caller attached a selfie;
	// box-only detection failures do not penalize the verdict.
	matchRequired := opts.SelfieID != ""

	docLoc, err := w.locator.Locate(ctx, docImg, docType)
	if err != nil {
		w.logger.Warn("Face location failed",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		return nil, nil, matchRequired
	}

	meta := &domain.FaceDescriptorMeta{
		Box:        docLoc.Box,
		Confidence: docLoc.Confidence,
		Source:     docLoc.Source,
	}

	if !matchRequired {
		return nil, meta, false
	}

	match, err := w.matchSelfie(ctx, opts.SelfieID, docImg, docLoc)
	if err != nil {
		w.logger.Warn("Face matching failed",
			slog.String("job_id", job.JobID),
			slog.String("selfie_id", opts.SelfieID),
			slog.String("error", err.Error()),
		)
		return nil, meta, true
	}

	return match, meta, true
}

// matchSelfie fetches the selfie, locates both faces and compares their
// descriptors.
func (w *Worker) matchSelfie(ctx context.Context, selfieID string, docImg []byte, docLoc *face.Location) (*domain.FaceMatchResult, error) {
	selfieDoc, err := w.storage.GetDocumentByID(ctx, selfieID)
	if err != nil {
		return nil, fmt.Errorf("selfie lookup failed: %w", err)
	}

	selfieImg, _, err := w.objects.Get(ctx, selfieDoc.ObjectName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch selfie image: %w", err)
	}

	selfieLoc, err := w.locator.LocateSelfie(ctx, selfieImg)
	if err != nil {
		return nil, fmt.Errorf("no face in selfie: %w", err)
	}

	docVector, err := w.faceEngine.Describe(ctx, docImg, docLoc.Box)
	if err != nil {
		return nil, fmt.Errorf("failed to describe document face: %w", err)
	}

	selfieVector, err := w.faceEngine.Describe(ctx, selfieImg, selfieLoc.Box)
	if err != nil {
		return nil, fmt.Errorf("failed to describe selfie face: %w", err)
	}

	match, err := face.Compare(docVector, selfieVector)
	if err != nil {
		return nil, err
	}

	return &match, nil
}

// sendJobHeartbeat periodically bumps the job row so stalled-job sweeps
// leave live jobs alone
func (w *Worker) sendJobHeartbeat(ctx context.Context, jobID string, done <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := w.storage.TouchJob(ctx, jobID); err != nil {
				w.logger.Warn("Failed to update job heartbeat",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// retryOrFail releases the job for another attempt when the retry budget
// allows, otherwise marks it failed.
func (w *Worker) retryOrFail(ctx context.Context, job *domain.Job, cause error) error {
	if job.RetryCount >= job.MaxRetries {
		w.logger.Warn("Job exceeded max retries",
			slog.String("job_id", job.JobID),
			slog.Int("retry_count", job.RetryCount),
			slog.Int("max_retries", job.MaxRetries),
		)
		if failErr := w.failJob(ctx, job, cause.Error()); failErr != nil {
			w.logger.Error("Failed to mark exhausted job as failed",
				slog.String("job_id", job.JobID),
				slog.String("error", failErr.Error()),
			)
		}
		return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, cause)
	}

	retryCount, err := w.storage.ReleaseForRetry(ctx, job.JobID)
	if err != nil {
		return w.failJob(ctx, job, fmt.Sprintf("failed to release for retry: %s", err.Error()))
	}

	w.logger.Info("Job will be retried",
		slog.String("job_id", job.JobID),
		slog.Int("retry_count", retryCount),
		slog.Int("max_retries", job.MaxRetries),
	)

	// cause already carries the retryable classification
	return cause
}

// failJob marks the job terminally failed and returns a non-retryable
// error for the NACK decision.
func (w *Worker) failJob(ctx context.Context, job *domain.Job, reason string) error {
	if err := w.storage.FailJob(ctx, job.JobID, reason); err != nil {
		w.logger.Error("Failed to update job status to failed",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
	}
	metrics.JobsProcessed.WithLabelValues(domain.JobStatusFailed).Inc()
	return errors.New(reason)
}

func isRetryable(err error) bool {
	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// GetJobByID retrieves a job from the database by its ID
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT
			job_id, document_id, document_type, options,
			status, progress, message, worker_id, retry_count, max_retries,
			created_at, started_at, completed_at, error_message, updated_at
		FROM jobs
		WHERE job_id = $1
	`

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetDocumentByID retrieves the document a job refers to
func (s *Storage) GetDocumentByID(ctx context.Context, documentID string) (*domain.Document, error) {
	query := `
		SELECT
			document_id, filename, object_name, content_type,
			declared_type, uploaded_at
		FROM documents
		WHERE document_id = $1
	`

	var doc domain.Document
	err := s.db.GetContext(ctx, &doc, query, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// ClaimJob attempts to claim a pending job using optimistic locking.
// Returns full job details on success, error if the job is already
// claimed or doesn't exist.
func (s *Storage) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    progress = $2,
		    message = $3,
		    worker_id = $4,
		    started_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $5
		  AND status = $6
		RETURNING job_id, document_id, document_type, options, retry_count, max_retries
	`

	var job domain.Job
	err := s.db.QueryRowContext(
		ctx, query,
		domain.JobStatusProcessing,
		domain.ProgressClaimed,
		"document fetched, running extraction",
		workerID,
		jobID,
		domain.JobStatusPending,
	).Scan(
		&job.JobID,
		&job.DocumentID,
		&job.DocumentType,
		&job.Options,
		&job.RetryCount,
		&job.MaxRetries,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = domain.JobStatusProcessing
	job.Progress = domain.ProgressClaimed
	job.WorkerID = workerID

	s.logger.Info("Job claimed successfully",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
		slog.String("document_id", job.DocumentID),
	)

	return &job, nil
}

// UpdateProgress advances the progress indicator of a processing job
func (s *Storage) UpdateProgress(ctx context.Context, jobID string, progress int, message string) error {
	query := `
		UPDATE jobs
		SET progress = $1,
		    message = $2,
		    updated_at = NOW()
		WHERE job_id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, progress, message, jobID, domain.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Progress update - no rows affected (job may not be processing)",
			slog.String("job_id", jobID),
		)
	}

	return nil
}

// TouchJob bumps updated_at on a processing job so stalled-job sweeps
// can tell a live worker from a dead one.
func (s *Storage) TouchJob(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET updated_at = NOW()
		WHERE job_id = $1 AND status = $2
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusProcessing); err != nil {
		return fmt.Errorf("failed to touch job: %w", err)
	}

	return nil
}

// CompleteJob marks a job as completed and stores its result payload
// in the same transaction.
func (s *Storage) CompleteJob(ctx context.Context, job *domain.Job, payload []byte) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	jobQuery := `
		UPDATE jobs
		SET status = $1,
		    progress = $2,
		    message = $3,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $4
	`
	if _, err := tx.ExecContext(
		ctx, jobQuery,
		domain.JobStatusCompleted,
		domain.ProgressScored,
		"verification complete",
		job.JobID,
	); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	resultQuery := `
		INSERT INTO results (job_id, document_id, payload, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (job_id) DO UPDATE SET payload = EXCLUDED.payload
	`
	if _, err := tx.ExecContext(ctx, resultQuery, job.JobID, job.DocumentID, payload); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	s.logger.Info("Job completed",
		slog.String("job_id", job.JobID),
		slog.String("document_id", job.DocumentID),
	)

	return nil
}

// FailJob marks a job as terminally failed
func (s *Storage) FailJob(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    message = $2,
		    error_message = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMsg, jobID); err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}

	s.logger.Info("Job marked as failed",
		slog.String("job_id", jobID),
		slog.String("error", errorMsg),
	)

	return nil
}

// ReleaseForRetry returns a job to pending and increments its retry
// count so a redelivered message can claim it again. Returns the new
// retry count.
func (s *Storage) ReleaseForRetry(ctx context.Context, jobID string) (int, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    progress = 0,
		    message = 'retrying after transient failure',
		    worker_id = '',
		    retry_count = retry_count + 1,
		    updated_at = NOW()
		WHERE job_id = $2 AND status = $3
		RETURNING retry_count
	`

	var retryCount int
	err := s.db.QueryRowContext(ctx, query, domain.JobStatusPending, jobID, domain.JobStatusProcessing).Scan(&retryCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrJobNotFound
		}
		return 0, fmt.Errorf("failed to release job for retry: %w", err)
	}

	s.logger.Warn("Job released for retry",
		slog.String("job_id", jobID),
		slog.Int("retry_count", retryCount),
	)

	return retryCount, nil
}

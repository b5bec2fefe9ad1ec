package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/asharma-dev/docverify-be/shared/postgresql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// pq error code for unique constraint violations
const uniqueViolation = "23505"

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) CreateDocument(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (
			document_id, filename, object_name, content_type,
			declared_type, uploaded_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		doc.DocumentID,
		doc.Filename,
		doc.ObjectName,
		doc.ContentType,
		doc.DeclaredType,
		doc.UploadedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

func (s *Storage) GetDocumentByID(ctx context.Context, documentID string) (*domain.Document, error) {
	var doc domain.Document
	query := `
		SELECT
			document_id, filename, object_name, content_type,
			declared_type, uploaded_at
		FROM documents
		WHERE document_id = $1
	`

	err := s.db.GetContext(ctx, &doc, query, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// DeleteDocument removes a document together with its jobs and results.
func (s *Storage) DeleteDocument(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete results: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete jobs: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrDocumentNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	return nil
}

// CreateJob inserts a pending job. The partial unique index on active
// jobs enforces one in-flight job per document, surfaced here as
// domain.ErrActiveJobExists.
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, document_id, document_type, options,
			status, progress, message, retry_count, max_retries,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.DocumentID,
		job.DocumentType,
		job.Options,
		job.Status,
		job.Progress,
		job.Message,
		job.RetryCount,
		job.MaxRetries,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return domain.ErrActiveJobExists
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	query := `
		SELECT
			job_id, document_id, document_type, options,
			status, progress, message, worker_id, retry_count, max_retries,
			created_at, started_at, completed_at, error_message, updated_at
		FROM jobs
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetLatestJobByDocument returns the most recently created job for a document.
func (s *Storage) GetLatestJobByDocument(ctx context.Context, documentID string) (*domain.Job, error) {
	var job domain.Job
	query := `
		SELECT
			job_id, document_id, document_type, options,
			status, progress, message, worker_id, retry_count, max_retries,
			created_at, started_at, completed_at, error_message, updated_at
		FROM jobs
		WHERE document_id = $1
		ORDER BY created_at DESC, job_id DESC
		LIMIT 1
	`

	err := s.db.GetContext(ctx, &job, query, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get latest job: %w", err)
	}

	return &job, nil
}

// GetResultByDocumentID returns the stored verification result payload
// for the latest completed job of a document.
func (s *Storage) GetResultByDocumentID(ctx context.Context, documentID string) ([]byte, error) {
	var payload []byte
	query := `
		SELECT payload
		FROM results
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := s.db.GetContext(ctx, &payload, query, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrResultNotReady
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return payload, nil
}

// GetResultByJobID returns the stored verification result payload for a job.
func (s *Storage) GetResultByJobID(ctx context.Context, jobID string) ([]byte, error) {
	var payload []byte
	query := `
		SELECT payload
		FROM results
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &payload, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrResultNotReady
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return payload, nil
}

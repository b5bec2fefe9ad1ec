package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/asharma-dev/docverify-be/internal/api/dto"
	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/asharma-dev/docverify-be/internal/face"
	"github.com/asharma-dev/docverify-be/internal/validate"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// defaultMaxRetries is the per-job retry budget: one redelivery after the
// first failed attempt.
const defaultMaxRetries = 1

// ProcessDocument handles POST /api/v1/documents/process
// Creates a verification job for an uploaded document and enqueues it
func (h *DocumentHandler) ProcessDocument(c *gin.Context) {
	var req dto.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "document_id and document_type are required"})
		return
	}

	if _, err := uuid.Parse(req.DocumentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "document_id must be a valid UUID"})
		return
	}

	docType := domain.DocumentType(req.DocumentType)
	if !domain.IsSupported(docType) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": fmt.Sprintf("unsupported document type %q", req.DocumentType),
		})
		return
	}

	if _, err := h.storage.GetDocumentByID(c.Request.Context(), req.DocumentID); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "document not found"})
			return
		}
		h.logger.Error("Failed to get document", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get document"})
		return
	}

	if req.Options.SelfieID != "" {
		if _, err := uuid.Parse(req.Options.SelfieID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "selfie_id must be a valid UUID"})
			return
		}
		if _, err := h.storage.GetDocumentByID(c.Request.Context(), req.Options.SelfieID); err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"detail": "selfie not found"})
				return
			}
			h.logger.Error("Failed to get selfie", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get selfie"})
			return
		}
	}

	options, err := json.Marshal(domain.JobOptions{
		DetectFace:    req.Options.DetectFace,
		SelfieID:      req.Options.SelfieID,
		AllowDegraded: req.Options.AllowDegraded,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to encode job options"})
		return
	}

	now := time.Now().UTC()
	job := domain.Job{
		JobID:        uuid.New().String(),
		DocumentID:   req.DocumentID,
		DocumentType: req.DocumentType,
		Options:      string(options),
		Status:       domain.JobStatusPending,
		Progress:     0,
		Message:      "queued for processing",
		MaxRetries:   defaultMaxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.storage.CreateJob(c.Request.Context(), &job); err != nil {
		if errors.Is(err, domain.ErrActiveJobExists) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "document already has an active job"})
			return
		}
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create job"})
		return
	}

	body, err := json.Marshal(domain.JobMessage{JobID: job.JobID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to encode job message"})
		return
	}

	if err := h.publisher.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish job message",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to enqueue job"})
		return
	}

	h.logger.Info("Verification job created",
		slog.String("job_id", job.JobID),
		slog.String("document_id", job.DocumentID),
		slog.String("document_type", job.DocumentType),
	)

	c.JSON(http.StatusOK, dto.ProcessResponse{
		JobID:      job.JobID,
		DocumentID: job.DocumentID,
		Status:     job.Status,
	})
}

// GetStatus handles GET /api/v1/documents/status/:job_id
// Returns the job state for polling clients
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "job_id must be a valid UUID"})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get job"})
		return
	}

	resp := dto.StatusResponse{
		JobID:      job.JobID,
		DocumentID: job.DocumentID,
		Status:     job.Status,
		Progress:   job.Progress,
		Message:    job.Message,
		Error:      job.ErrorMessage,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
	}
	if job.StartedAt != nil {
		resp.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}

	if !domain.IsTerminalStatus(job.Status) {
		c.Header("Retry-After", "2")
	}

	c.JSON(http.StatusOK, resp)
}

// GetResults handles GET /api/v1/documents/results/:document_id
// Returns the stored verification result for the document
func (h *DocumentHandler) GetResults(c *gin.Context) {
	documentID := c.Param("document_id")
	if _, err := uuid.Parse(documentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "document_id must be a valid UUID"})
		return
	}

	if _, err := h.storage.GetDocumentByID(c.Request.Context(), documentID); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "document not found"})
			return
		}
		h.logger.Error("Failed to get document", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get document"})
		return
	}

	job, err := h.storage.GetLatestJobByDocument(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "no verification job for this document"})
			return
		}
		h.logger.Error("Failed to get latest job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get job"})
		return
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		// Fetch by job id so the payload always belongs to the job whose
		// status decided this response, never a stale earlier run.
		payload, err := h.storage.GetResultByJobID(c.Request.Context(), job.JobID)
		if err != nil {
			h.logger.Error("Completed job has no result payload",
				slog.String("job_id", job.JobID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get result"})
			return
		}
		c.Data(http.StatusOK, "application/json", payload)

	case domain.JobStatusFailed:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": fmt.Sprintf("verification failed: %s", job.ErrorMessage),
		})

	default:
		c.JSON(http.StatusAccepted, gin.H{"detail": "document is still processing"})
	}
}

// ValidateFields handles POST /api/v1/documents/validate
// Runs the field validator synchronously without creating a job
func (h *DocumentHandler) ValidateFields(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "document_type and fields are required"})
		return
	}

	docType := domain.DocumentType(req.DocumentType)
	if !domain.IsSupported(docType) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": fmt.Sprintf("unsupported document type %q", req.DocumentType),
		})
		return
	}

	c.JSON(http.StatusOK, validate.Validate(req.Fields, docType))
}

// MatchFaces handles POST /api/v1/face/match
// Compares the document face with a selfie synchronously
func (h *DocumentHandler) MatchFaces(c *gin.Context) {
	var req dto.FaceMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "document_id and selfie_id are required"})
		return
	}

	docImg, docLoc, err := h.locateDocumentFace(c, req.DocumentID)
	if err != nil {
		return // response already written
	}

	selfieDoc, err := h.storage.GetDocumentByID(c.Request.Context(), req.SelfieID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "selfie not found"})
			return
		}
		h.logger.Error("Failed to get selfie", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get selfie"})
		return
	}

	selfieImg, _, err := h.objects.Get(c.Request.Context(), selfieDoc.ObjectName)
	if err != nil {
		h.logger.Error("Failed to fetch selfie image", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to fetch selfie image"})
		return
	}

	selfieLoc, err := h.locator.LocateSelfie(c.Request.Context(), selfieImg)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "no face detected in selfie"})
		return
	}

	docVector, err := h.faceEngine.Describe(c.Request.Context(), docImg, docLoc.Box)
	if err != nil {
		h.logger.Error("Failed to describe document face", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "face service unavailable"})
		return
	}

	selfieVector, err := h.faceEngine.Describe(c.Request.Context(), selfieImg, selfieLoc.Box)
	if err != nil {
		h.logger.Error("Failed to describe selfie face", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "face service unavailable"})
		return
	}

	match, err := face.Compare(docVector, selfieVector)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, match)
}

// locateDocumentFace fetches a document image and finds its face region,
// writing the error response itself on failure.
func (h *DocumentHandler) locateDocumentFace(c *gin.Context, documentID string) ([]byte, *face.Location, error) {
	doc, err := h.storage.GetDocumentByID(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "document not found"})
			return nil, nil, err
		}
		h.logger.Error("Failed to get document", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get document"})
		return nil, nil, err
	}

	img, _, err := h.objects.Get(c.Request.Context(), doc.ObjectName)
	if err != nil {
		h.logger.Error("Failed to fetch document image", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to fetch document image"})
		return nil, nil, err
	}

	loc, err := h.locator.Locate(c.Request.Context(), img, domain.DocumentType(doc.DeclaredType))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "no face detected in document"})
		return nil, nil, err
	}

	return img, loc, nil
}

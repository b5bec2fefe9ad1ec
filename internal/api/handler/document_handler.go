package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/asharma-dev/docverify-be/internal/api/dto"
	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/asharma-dev/docverify-be/internal/validate"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// allowedExtensions are the image formats the extraction models accept.
var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
}

// UploadDocument handles POST /api/v1/documents/upload
// Stores the uploaded image in object storage and records it in the database
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": fmt.Sprintf("unsupported file extension %q, allowed: jpg, jpeg, png, bmp, tiff", ext),
		})
		return
	}

	if fileHeader.Size > h.uploadCfg.MaxSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": fmt.Sprintf("file exceeds the %d byte limit", h.uploadCfg.MaxSizeBytes),
		})
		return
	}

	declaredType := c.PostForm("document_type")
	if declaredType != "" && !domain.IsSupported(domain.DocumentType(declaredType)) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": fmt.Sprintf("unsupported document type %q", declaredType),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to read uploaded file"})
		return
	}
	defer file.Close()

	doc := domain.Document{
		DocumentID:   uuid.New().String(),
		Filename:     fileHeader.Filename,
		ContentType:  contentType,
		DeclaredType: declaredType,
		UploadedAt:   time.Now().UTC(),
	}
	doc.ObjectName = fmt.Sprintf("documents/%s%s", doc.DocumentID, ext)

	if err := h.objects.Put(c.Request.Context(), doc.ObjectName, file, fileHeader.Size, contentType); err != nil {
		h.logger.Error("Failed to store document object",
			slog.String("document_id", doc.DocumentID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to store document"})
		return
	}

	if err := h.storage.CreateDocument(c.Request.Context(), &doc); err != nil {
		h.logger.Error("Failed to create document record",
			slog.String("document_id", doc.DocumentID),
			slog.String("error", err.Error()),
		)
		// Best effort: do not leave an orphaned object behind
		if delErr := h.objects.Delete(c.Request.Context(), doc.ObjectName); delErr != nil {
			h.logger.Warn("Failed to clean up orphaned object",
				slog.String("object_name", doc.ObjectName),
				slog.String("error", delErr.Error()),
			)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to record document"})
		return
	}

	h.logger.Info("Document uploaded",
		slog.String("document_id", doc.DocumentID),
		slog.String("filename", doc.Filename),
		slog.Int64("size", fileHeader.Size),
	)

	c.JSON(http.StatusOK, dto.UploadResponse{
		DocumentID:   doc.DocumentID,
		Filename:     doc.Filename,
		ContentType:  doc.ContentType,
		DeclaredType: doc.DeclaredType,
		UploadedAt:   doc.UploadedAt.Format(time.RFC3339),
	})
}

// DeleteDocument handles DELETE /api/v1/documents/:document_id
// Removes the stored object and all database rows for the document
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("document_id")
	if _, err := uuid.Parse(documentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "document_id must be a valid UUID"})
		return
	}

	doc, err := h.storage.GetDocumentByID(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "document not found"})
			return
		}
		h.logger.Error("Failed to get document", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get document"})
		return
	}

	if err := h.objects.Delete(c.Request.Context(), doc.ObjectName); err != nil {
		h.logger.Warn("Failed to delete document object",
			slog.String("object_name", doc.ObjectName),
			slog.String("error", err.Error()),
		)
	}

	if err := h.storage.DeleteDocument(c.Request.Context(), documentID); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "document not found"})
			return
		}
		h.logger.Error("Failed to delete document", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to delete document"})
		return
	}

	h.logger.Info("Document deleted", slog.String("document_id", documentID))
	c.JSON(http.StatusOK, gin.H{"detail": "document deleted"})
}

// GetDownloadURL handles GET /api/v1/documents/download/:document_id
// Returns a time-limited link to the stored document image
func (h *DocumentHandler) GetDownloadURL(c *gin.Context) {
	documentID := c.Param("document_id")
	if _, err := uuid.Parse(documentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "document_id must be a valid UUID"})
		return
	}

	doc, err := h.storage.GetDocumentByID(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "document not found"})
			return
		}
		h.logger.Error("Failed to get document", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get document"})
		return
	}

	url, err := h.objects.PresignedURL(c.Request.Context(), doc.ObjectName)
	if err != nil {
		h.logger.Error("Failed to generate download URL",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to generate download URL"})
		return
	}

	c.JSON(http.StatusOK, dto.DownloadResponse{
		DocumentID: documentID,
		Filename:   doc.Filename,
		URL:        url,
	})
}

// ListDocumentTypes handles GET /api/v1/documents/types
// Returns the supported document types with their field requirements
func (h *DocumentHandler) ListDocumentTypes(c *gin.Context) {
	types := make([]dto.DocumentTypeInfo, 0, len(domain.SupportedTypes))
	for _, t := range domain.SupportedTypes {
		types = append(types, dto.DocumentTypeInfo{
			Type:           string(t),
			RequiredFields: validate.RequiredFields(t),
			OptionalFields: validate.OptionalFields(t),
			RequiresFace:   t.RequiresFace(),
		})
	}

	c.JSON(http.StatusOK, dto.TypesResponse{Types: types})
}

// GetReport handles GET /api/v1/documents/report/:document_id
// Renders a plain-text verification report for a completed document
func (h *DocumentHandler) GetReport(c *gin.Context) {
	documentID := c.Param("document_id")
	if _, err := uuid.Parse(documentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "document_id must be a valid UUID"})
		return
	}

	doc, err := h.storage.GetDocumentByID(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "document not found"})
			return
		}
		h.logger.Error("Failed to get document", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get document"})
		return
	}

	payload, err := h.storage.GetResultByDocumentID(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, domain.ErrResultNotReady) {
			c.JSON(http.StatusAccepted, gin.H{"detail": "document is still processing"})
			return
		}
		h.logger.Error("Failed to get result", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get result"})
		return
	}

	var result domain.VerificationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		h.logger.Error("Failed to decode stored result", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to decode result"})
		return
	}

	c.String(http.StatusOK, renderReport(doc, &result))
}

// renderReport builds a human-readable summary of a verification result.
func renderReport(doc *domain.Document, result *domain.VerificationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Document Verification Report\n")
	fmt.Fprintf(&b, "============================\n\n")
	fmt.Fprintf(&b, "Document:   %s (%s)\n", doc.Filename, doc.DocumentID)
	fmt.Fprintf(&b, "Job:        %s\n", result.JobID)
	fmt.Fprintf(&b, "Risk level: %s\n", result.Verdict.RiskLevel)
	fmt.Fprintf(&b, "Confidence: %d%%\n", result.Verdict.ConfidenceScore)
	fmt.Fprintf(&b, "Assessment: %s\n", result.Verdict.Explanation)

	if len(result.Verdict.ContributingReasons) > 0 {
		fmt.Fprintf(&b, "\nReasons:\n")
		for _, r := range result.Verdict.ContributingReasons {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}

	if len(result.Extraction.Fields) > 0 {
		fmt.Fprintf(&b, "\nExtracted fields:\n")
		for k, v := range result.Extraction.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
		}
	}

	fmt.Fprintf(&b, "\nValidation: ")
	if result.Validation.IsValid {
		fmt.Fprintf(&b, "passed\n")
	} else {
		fmt.Fprintf(&b, "failed\n")
		for _, f := range result.Validation.MissingRequiredFields {
			fmt.Fprintf(&b, "  missing: %s\n", f)
		}
		for _, f := range result.Validation.InvalidFields {
			fmt.Fprintf(&b, "  invalid: %s\n", f)
		}
		for _, inc := range result.Validation.Inconsistencies {
			fmt.Fprintf(&b, "  inconsistency: %s\n", inc)
		}
	}

	if result.FaceMatch != nil {
		fmt.Fprintf(&b, "\nFace match: distance %.4f (threshold %.2f), match=%t\n",
			result.FaceMatch.Distance, result.FaceMatch.Threshold, result.FaceMatch.IsMatch)
	}

	return b.String()
}

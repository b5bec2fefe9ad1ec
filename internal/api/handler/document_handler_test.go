package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asharma-dev/docverify-be/internal/api/dto"
	"github.com/asharma-dev/docverify-be/internal/domain"
)

func TestUploadDocument(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    []byte
		form       map[string]string
		maxSize    int64
		wantStatus int
		wantDetail string
	}{
		{
			name:       "jpeg upload succeeds",
			filename:   "aadhaar-front.jpg",
			content:    []byte("jpeg bytes"),
			form:       map[string]string{"document_type": "aadhaar"},
			maxSize:    1 << 20,
			wantStatus: http.StatusOK,
		},
		{
			name:       "upload without declared type succeeds",
			filename:   "scan.png",
			content:    []byte("png bytes"),
			maxSize:    1 << 20,
			wantStatus: http.StatusOK,
		},
		{
			name:       "pdf rejected",
			filename:   "statement.pdf",
			content:    []byte("%PDF-1.4"),
			maxSize:    1 << 20,
			wantStatus: http.StatusBadRequest,
			wantDetail: "unsupported file extension",
		},
		{
			name:       "no extension rejected",
			filename:   "scan",
			content:    []byte("bytes"),
			maxSize:    1 << 20,
			wantStatus: http.StatusBadRequest,
			wantDetail: "unsupported file extension",
		},
		{
			name:       "oversized file rejected",
			filename:   "huge.jpg",
			content:    make([]byte, 64),
			maxSize:    10,
			wantStatus: http.StatusBadRequest,
			wantDetail: "byte limit",
		},
		{
			name:       "unknown declared type rejected",
			filename:   "card.jpg",
			content:    []byte("jpeg bytes"),
			form:       map[string]string{"document_type": "library_card"},
			maxSize:    1 << 20,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "unsupported document type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			fx.handler.uploadCfg.MaxSizeBytes = tt.maxSize

			body, contentType := multipartFile(t, "file", tt.filename, tt.content, tt.form)
			rec := perform(http.MethodPost, "/upload", body, contentType, func(r *gin.Engine) {
				r.POST("/upload", fx.handler.UploadDocument)
			})

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus != http.StatusOK {
				assert.Contains(t, rec.Body.String(), tt.wantDetail)
				assert.Empty(t, fx.store.documents)
				return
			}

			var resp dto.UploadResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

			assert.Equal(t, tt.filename, resp.Filename)
			_, err := uuid.Parse(resp.DocumentID)
			assert.NoError(t, err)

			stored, ok := fx.store.documents[resp.DocumentID]
			require.True(t, ok)
			assert.True(t, strings.HasPrefix(stored.ObjectName, "documents/"+resp.DocumentID))
			assert.Contains(t, fx.objects.objects, stored.ObjectName)
		})
	}
}

func TestUploadDocument_MissingFile(t *testing.T) {
	fx := newFixture()

	rec := perform(http.MethodPost, "/upload", jsonBody(t, "{}"), "application/json", func(r *gin.Engine) {
		r.POST("/upload", fx.handler.UploadDocument)
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is required")
}

func TestUploadDocument_DatabaseFailureCleansUpObject(t *testing.T) {
	fx := newFixture()
	fx.store.createDocErr = errors.New("insert failed")

	body, contentType := multipartFile(t, "file", "scan.jpg", []byte("bytes"), nil)
	rec := perform(http.MethodPost, "/upload", body, contentType, func(r *gin.Engine) {
		r.POST("/upload", fx.handler.UploadDocument)
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, fx.objects.deleted, 1)
	assert.Empty(t, fx.objects.objects)
}

func TestDeleteDocument(t *testing.T) {
	docID := uuid.New().String()

	t.Run("deletes row and object", func(t *testing.T) {
		fx := newFixture()
		doc := fx.seedDocument(docID, "aadhaar")

		rec := perform(http.MethodDelete, "/documents/"+docID, nil, "", func(r *gin.Engine) {
			r.DELETE("/documents/:document_id", fx.handler.DeleteDocument)
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, fx.store.documents, docID)
		assert.Contains(t, fx.objects.deleted, doc.ObjectName)
	})

	t.Run("unknown document", func(t *testing.T) {
		fx := newFixture()

		rec := perform(http.MethodDelete, "/documents/"+docID, nil, "", func(r *gin.Engine) {
			r.DELETE("/documents/:document_id", fx.handler.DeleteDocument)
		})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		fx := newFixture()

		rec := perform(http.MethodDelete, "/documents/not-a-uuid", nil, "", func(r *gin.Engine) {
			r.DELETE("/documents/:document_id", fx.handler.DeleteDocument)
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "valid UUID")
	})
}

func TestGetDownloadURL(t *testing.T) {
	docID := uuid.New().String()

	t.Run("returns a signed link", func(t *testing.T) {
		fx := newFixture()
		doc := fx.seedDocument(docID, "aadhaar")

		rec := perform(http.MethodGet, "/download/"+docID, nil, "", func(r *gin.Engine) {
			r.GET("/download/:document_id", fx.handler.GetDownloadURL)
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.DownloadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, docID, resp.DocumentID)
		assert.Equal(t, doc.Filename, resp.Filename)
		assert.Contains(t, resp.URL, doc.ObjectName)
	})

	t.Run("unknown document", func(t *testing.T) {
		fx := newFixture()

		rec := perform(http.MethodGet, "/download/"+docID, nil, "", func(r *gin.Engine) {
			r.GET("/download/:document_id", fx.handler.GetDownloadURL)
		})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		fx := newFixture()

		rec := perform(http.MethodGet, "/download/nope", nil, "", func(r *gin.Engine) {
			r.GET("/download/:document_id", fx.handler.GetDownloadURL)
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListDocumentTypes(t *testing.T) {
	fx := newFixture()

	rec := perform(http.MethodGet, "/types", nil, "", func(r *gin.Engine) {
		r.GET("/types", fx.handler.ListDocumentTypes)
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.TypesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Types, len(domain.SupportedTypes))

	byType := map[string]dto.DocumentTypeInfo{}
	for _, info := range resp.Types {
		byType[info.Type] = info
	}

	aadhaar := byType["aadhaar"]
	assert.Equal(t, []string{"name", "aadhaar_number", "dob"}, aadhaar.RequiredFields)
	assert.True(t, aadhaar.RequiresFace)

	bill := byType["bill"]
	assert.Equal(t, []string{"merchant_name", "total_amount"}, bill.RequiredFields)
	assert.False(t, bill.RequiresFace)
}

func TestGetReport(t *testing.T) {
	docID := uuid.New().String()

	t.Run("renders completed result", func(t *testing.T) {
		fx := newFixture()
		fx.seedDocument(docID, "aadhaar")

		result := domain.VerificationResult{
			DocumentID: docID,
			JobID:      uuid.New().String(),
			Verdict: domain.Verdict{
				RiskLevel:           domain.RiskLow,
				ConfidenceScore:     100,
				Explanation:         "appears authentic",
				ContributingReasons: []string{"all checks passed"},
			},
			Extraction: domain.ExtractionResult{
				Fields: map[string]string{"name": "Priya Sharma"},
			},
			Validation: domain.ValidationResult{IsValid: true},
		}
		payload, err := json.Marshal(result)
		require.NoError(t, err)
		fx.store.results[docID] = payload

		rec := perform(http.MethodGet, "/report/"+docID, nil, "", func(r *gin.Engine) {
			r.GET("/report/:document_id", fx.handler.GetReport)
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Document Verification Report")
		assert.Contains(t, rec.Body.String(), "Risk level: low")
		assert.Contains(t, rec.Body.String(), "name: Priya Sharma")
		assert.Contains(t, rec.Body.String(), "Validation: passed")
	})

	t.Run("not ready yet", func(t *testing.T) {
		fx := newFixture()
		fx.seedDocument(docID, "aadhaar")

		rec := perform(http.MethodGet, "/report/"+docID, nil, "", func(r *gin.Engine) {
			r.GET("/report/:document_id", fx.handler.GetReport)
		})

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("unknown document", func(t *testing.T) {
		fx := newFixture()

		rec := perform(http.MethodGet, "/report/"+docID, nil, "", func(r *gin.Engine) {
			r.GET("/report/:document_id", fx.handler.GetReport)
		})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

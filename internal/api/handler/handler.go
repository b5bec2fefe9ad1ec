package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/asharma-dev/docverify-be/internal/api/storage"
	"github.com/asharma-dev/docverify-be/internal/config"
	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/asharma-dev/docverify-be/internal/face"
	"github.com/asharma-dev/docverify-be/shared/objectstore"
	"github.com/asharma-dev/docverify-be/shared/rabbitmq"
)

// documentStore is the storage surface the handlers depend on. Kept as an
// interface so handler tests can run against stubs.
type documentStore interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocumentByID(ctx context.Context, documentID string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	GetLatestJobByDocument(ctx context.Context, documentID string) (*domain.Job, error)
	GetResultByDocumentID(ctx context.Context, documentID string) ([]byte, error)
	GetResultByJobID(ctx context.Context, jobID string) ([]byte, error)
}

// objectStore is the object storage surface the handlers depend on.
type objectStore interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, objectName string) ([]byte, string, error)
	Delete(ctx context.Context, objectName string) error
	PresignedURL(ctx context.Context, objectName string) (string, error)
}

// jobPublisher enqueues job messages for the worker service.
type jobPublisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// faceLocator finds face regions in images.
type faceLocator interface {
	Locate(ctx context.Context, img []byte, docType domain.DocumentType) (*face.Location, error)
	LocateSelfie(ctx context.Context, img []byte) (*face.Location, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Storage      *storage.Storage
	Objects      *objectstore.Store
	RabbitClient *rabbitmq.Client
	Locator      *face.Locator
	FaceEngine   face.Engine
	AuthConfig   *config.AuthConfig
	UploadConfig *config.UploadConfig
}

// DocumentHandler handles document and verification HTTP requests
type DocumentHandler struct {
	logger     *slog.Logger
	storage    documentStore
	objects    objectStore
	publisher  jobPublisher
	locator    faceLocator
	faceEngine face.Engine
	authCfg    *config.AuthConfig
	uploadCfg  *config.UploadConfig
}

// NewDocumentHandler creates a new DocumentHandler instance
func NewDocumentHandler(deps *Dependencies) *DocumentHandler {
	return &DocumentHandler{
		logger:     deps.Logger,
		storage:    deps.Storage,
		objects:    deps.Objects,
		publisher:  deps.RabbitClient,
		locator:    deps.Locator,
		faceEngine: deps.FaceEngine,
		authCfg:    deps.AuthConfig,
		uploadCfg:  deps.UploadConfig,
	}
}

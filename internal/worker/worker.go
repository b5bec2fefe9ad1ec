package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/asharma-dev/docverify-be/internal/extract"
	"github.com/asharma-dev/docverify-be/internal/face"
	"github.com/asharma-dev/docverify-be/internal/worker/storage"
	"github.com/asharma-dev/docverify-be/shared/rabbitmq"
	"github.com/google/uuid"
)

// jobStore is the subset of storage operations the pipeline needs.
type jobStore interface {
	ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error)
	GetDocumentByID(ctx context.Context, documentID string) (*domain.Document, error)
	UpdateProgress(ctx context.Context, jobID string, progress int, message string) error
	TouchJob(ctx context.Context, jobID string) error
	CompleteJob(ctx context.Context, job *domain.Job, payload []byte) error
	FailJob(ctx context.Context, jobID, errorMsg string) error
	ReleaseForRetry(ctx context.Context, jobID string) (int, error)
}

// objectGetter fetches stored document bytes.
type objectGetter interface {
	Get(ctx context.Context, objectName string) ([]byte, string, error)
}

// extractor runs the vision model extraction.
type extractor interface {
	Extract(ctx context.Context, req *extract.Request) (*domain.ExtractionResult, error)
}

// faceLocator finds the face region in a document or selfie image.
type faceLocator interface {
	Locate(ctx context.Context, img []byte, docType domain.DocumentType) (*face.Location, error)
	LocateSelfie(ctx context.Context, img []byte) (*face.Location, error)
}

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	Storage           *storage.Storage
	RabbitClient      *rabbitmq.Client
	Objects           objectGetter
	Extractor         extractor
	Locator           faceLocator
	FaceEngine        face.Engine
	Concurrency       int
	PrefetchCount     int
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
	PrimaryModel      string
}

// Worker consumes verification jobs from RabbitMQ and runs them through
// the extraction, validation, face and risk pipeline.
type Worker struct {
	logger            *slog.Logger
	storage           jobStore
	rabbitClient      *rabbitmq.Client
	objects           objectGetter
	extractor         extractor
	locator           faceLocator
	faceEngine        face.Engine
	workerID          string
	concurrency       int
	prefetchCount     int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	primaryModel      string
	jobsChan          chan *domain.JobMessage
	wg                sync.WaitGroup
	stopChan          chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}

	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	return &Worker{
		logger:            cfg.Logger,
		storage:           cfg.Storage,
		rabbitClient:      cfg.RabbitClient,
		objects:           cfg.Objects,
		extractor:         cfg.Extractor,
		locator:           cfg.Locator,
		faceEngine:        cfg.FaceEngine,
		workerID:          fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8]),
		concurrency:       cfg.Concurrency,
		prefetchCount:     cfg.PrefetchCount,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: heartbeat,
		primaryModel:      cfg.PrimaryModel,
		jobsChan:          make(chan *domain.JobMessage),
		stopChan:          make(chan struct{}),
	}
}

// Start begins consuming and processing jobs. Blocks until ctx is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	w.logger.Info("Worker context canceled, stopping...")
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

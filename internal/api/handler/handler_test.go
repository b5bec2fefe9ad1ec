package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/asharma-dev/docverify-be/internal/config"
	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/asharma-dev/docverify-be/internal/face"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore is an in-memory documentStore with per-call error injection.
type fakeStore struct {
	documents  map[string]*domain.Document
	jobs       map[string]*domain.Job
	results    map[string][]byte // keyed by document id
	jobResults map[string][]byte // keyed by job id
	latestJob  *domain.Job

	createDocErr error
	createJobErr error
	deleteErr    error

	createdJobs []*domain.Job
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents:  map[string]*domain.Document{},
		jobs:       map[string]*domain.Job{},
		results:    map[string][]byte{},
		jobResults: map[string][]byte{},
	}
}

func (f *fakeStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	if f.createDocErr != nil {
		return f.createDocErr
	}
	f.documents[doc.DocumentID] = doc
	return nil
}

func (f *fakeStore) GetDocumentByID(_ context.Context, documentID string) (*domain.Document, error) {
	doc, ok := f.documents[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.documents[documentID]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(f.documents, documentID)
	return nil
}

func (f *fakeStore) CreateJob(_ context.Context, job *domain.Job) error {
	if f.createJobErr != nil {
		return f.createJobErr
	}
	f.jobs[job.JobID] = job
	f.createdJobs = append(f.createdJobs, job)
	return nil
}

func (f *fakeStore) GetJobByID(_ context.Context, jobID string) (*domain.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStore) GetLatestJobByDocument(_ context.Context, _ string) (*domain.Job, error) {
	if f.latestJob == nil {
		return nil, domain.ErrJobNotFound
	}
	return f.latestJob, nil
}

func (f *fakeStore) GetResultByDocumentID(_ context.Context, documentID string) ([]byte, error) {
	payload, ok := f.results[documentID]
	if !ok {
		return nil, domain.ErrResultNotReady
	}
	return payload, nil
}

func (f *fakeStore) GetResultByJobID(_ context.Context, jobID string) ([]byte, error) {
	payload, ok := f.jobResults[jobID]
	if !ok {
		return nil, domain.ErrResultNotReady
	}
	return payload, nil
}

// fakeObjects keeps stored objects in memory.
type fakeObjects struct {
	objects map[string][]byte
	putErr  error
	getErr  error

	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Put(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[objectName] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, objectName string) ([]byte, string, error) {
	if f.getErr != nil {
		return nil, "", f.getErr
	}
	data, ok := f.objects[objectName]
	if !ok {
		return nil, "", errors.New("object not found: " + objectName)
	}
	return data, "image/jpeg", nil
}

func (f *fakeObjects) Delete(_ context.Context, objectName string) error {
	f.deleted = append(f.deleted, objectName)
	delete(f.objects, objectName)
	return nil
}

func (f *fakeObjects) PresignedURL(_ context.Context, objectName string) (string, error) {
	if _, ok := f.objects[objectName]; !ok {
		return "", errors.New("object not found: " + objectName)
	}
	return "https://storage.test/" + objectName + "?signed=1", nil
}

// fakePublisher records published messages.
type fakePublisher struct {
	published [][]byte
	err       error
}

func (f *fakePublisher) PublishWithRetry(_ context.Context, body []byte, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, body)
	return nil
}

// fakeLocator returns canned face locations.
type fakeLocator struct {
	docLoc    *face.Location
	docErr    error
	selfieLoc *face.Location
	selfieErr error
}

func (f *fakeLocator) Locate(_ context.Context, _ []byte, _ domain.DocumentType) (*face.Location, error) {
	return f.docLoc, f.docErr
}

func (f *fakeLocator) LocateSelfie(_ context.Context, _ []byte) (*face.Location, error) {
	return f.selfieLoc, f.selfieErr
}

// fakeEngine returns descriptors in call order.
type fakeEngine struct {
	vectors [][]float64
	calls   int
	err     error
}

func (f *fakeEngine) Detect(_ context.Context, _ []byte) ([]face.Detection, error) {
	return nil, errors.New("not used")
}

func (f *fakeEngine) Describe(_ context.Context, _ []byte, _ domain.BoundingBox) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := f.vectors[f.calls%len(f.vectors)]
	f.calls++
	return v, nil
}

type handlerFixture struct {
	handler   *DocumentHandler
	store     *fakeStore
	objects   *fakeObjects
	publisher *fakePublisher
	locator   *fakeLocator
	engine    *fakeEngine
}

func newFixture() *handlerFixture {
	store := newFakeStore()
	objects := newFakeObjects()
	publisher := &fakePublisher{}
	locator := &fakeLocator{}
	engine := &fakeEngine{}

	h := &DocumentHandler{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		storage:    store,
		objects:    objects,
		publisher:  publisher,
		locator:    locator,
		faceEngine: engine,
		authCfg: &config.AuthConfig{
			JWTSecret:      "test-secret",
			TokenExpireHrs: 1,
			Users:          map[string]string{"reviewer": "s3cret"},
		},
		uploadCfg: &config.UploadConfig{MaxSizeBytes: 1 << 20},
	}

	return &handlerFixture{
		handler:   h,
		store:     store,
		objects:   objects,
		publisher: publisher,
		locator:   locator,
		engine:    engine,
	}
}

// perform routes a single request through a fresh gin engine.
func perform(method, path string, body io.Reader, contentType string, register func(*gin.Engine)) *httptest.ResponseRecorder {
	router := gin.New()
	register(router)

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

// multipartFile builds a multipart body with one file part and optional
// form values.
func multipartFile(t *testing.T, fieldName, filename string, content []byte, form map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fieldName, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	for k, v := range form {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

// seedDocument inserts a document with a stored object and returns its id.
func (fx *handlerFixture) seedDocument(id, declaredType string) *domain.Document {
	doc := &domain.Document{
		DocumentID:   id,
		Filename:     "scan.jpg",
		ObjectName:   "documents/" + id + ".jpg",
		ContentType:  "image/jpeg",
		DeclaredType: declaredType,
	}
	fx.store.documents[id] = doc
	fx.objects.objects[doc.ObjectName] = []byte("image bytes")
	return doc
}

func jsonBody(t *testing.T, v string) io.Reader {
	t.Helper()
	return bytes.NewBufferString(v)
}

package httpadapter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type registrarFake struct {
	uploadedFilename string
	webURL           string
	transcriptURL    string
	deletedID        string
	err              error
}

func (f *registrarFake) UploadFile(_ context.Context, filename string, _ io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.uploadedFilename = filename
	return &domain.Document{ID: "doc-1", Filename: filename, Status: domain.StatusProcessing}, nil
}

func (f *registrarFake) AddWebPage(_ context.Context, pageURL string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.webURL = pageURL
	return &domain.Document{ID: "doc-2", SourceURL: pageURL}, nil
}

func (f *registrarFake) AddTranscript(_ context.Context, videoURL string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.transcriptURL = videoURL
	return &domain.Document{ID: "doc-3", SourceURL: videoURL}, nil
}

func (f *registrarFake) Delete(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.deletedID = documentID
	return nil
}

type streamerFake struct {
	fragments []string
	err       error
}

func (f *streamerFake) StreamAnswer(context.Context, string, bool) (<-chan string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan string, len(f.fragments))
	for _, fragment := range f.fragments {
		out <- fragment
	}
	close(out)
	return out, nil
}

type repoFake struct {
	doc    *domain.Document
	getErr error
}

func (f *repoFake) Create(context.Context, *domain.Document) error { return nil }

func (f *repoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}

func (f *repoFake) List(context.Context) ([]domain.Document, error) { return nil, nil }

func (f *repoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func (f *repoFake) MarkCompleted(context.Context, string, int) error { return nil }

func (f *repoFake) Delete(context.Context, string) error { return nil }

func newTestRouter(registrar *registrarFake, streamer *streamerFake, repo *repoFake) http.Handler {
	return NewRouter(registrar, streamer, repo, testLogger()).Handler()
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&registrarFake{}, &streamerFake{}, &repoFake{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUploadDocumentAccepted(t *testing.T) {
	registrar := &registrarFake{}
	handler := newTestRouter(registrar, &streamerFake{}, &repoFake{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("hello"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if registrar.uploadedFilename != "notes.txt" {
		t.Fatalf("filename not passed through, got %q", registrar.uploadedFilename)
	}
}

func TestUploadDocumentMissingFileField(t *testing.T) {
	handler := newTestRouter(&registrarFake{}, &streamerFake{}, &repoFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAddWebPageInvalidURLMapsTo400(t *testing.T) {
	registrar := &registrarFake{err: domain.WrapError(domain.ErrInvalidInput, "add web page", errors.New("bad scheme"))}
	handler := newTestRouter(registrar, &streamerFake{}, &repoFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/web", strings.NewReader(`{"url":"ftp://x"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAddTranscriptAccepted(t *testing.T) {
	registrar := &registrarFake{}
	handler := newTestRouter(registrar, &streamerFake{}, &repoFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/transcript", strings.NewReader(`{"url":"https://example.com/v"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if registrar.transcriptURL != "https://example.com/v" {
		t.Fatalf("url not passed through, got %q", registrar.transcriptURL)
	}
}

func TestGetDocumentNotFoundMapsTo404(t *testing.T) {
	repo := &repoFake{getErr: domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("id missing"))}
	handler := newTestRouter(&registrarFake{}, &streamerFake{}, repo)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteDocumentAccepted(t *testing.T) {
	registrar := &registrarFake{}
	handler := newTestRouter(registrar, &streamerFake{}, &repoFake{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/documents/doc-9", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if registrar.deletedID != "doc-9" {
		t.Fatalf("expected delete for doc-9, got %q", registrar.deletedID)
	}
}

func TestQueryStreamsSSE(t *testing.T) {
	streamer := &streamerFake{fragments: []string{"Hello", " world"}}
	handler := newTestRouter(&registrarFake{}, streamer, &repoFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"question":"q?"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("expected event stream content type, got %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "data: Hello\n\n") || !strings.Contains(body, "data:  world\n\n") {
		t.Fatalf("fragments missing from stream: %s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("stream not terminated with [DONE]: %s", body)
	}
}

func TestQueryRequiresQuestion(t *testing.T) {
	handler := newTestRouter(&registrarFake{}, &streamerFake{}, &repoFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"question":"  "}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestQueryTemporaryFailureMapsTo503(t *testing.T) {
	streamer := &streamerFake{err: domain.WrapError(domain.ErrTemporary, "embed query", errors.New("gateway down"))}
	handler := newTestRouter(&registrarFake{}, streamer, &repoFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"question":"q?"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

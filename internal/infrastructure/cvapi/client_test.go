package cvapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
	"github.com/resumecraft/cv-upload-client/internal/infrastructure/resilience"
)

func fastStatusPolicy() resilience.Policy {
	return resilience.Policy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestInitiateAcceptsBareStringID(t *testing.T) {
	var gotFilename, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/u1/cv" {
			http.NotFound(w, r)
			return
		}
		gotFilename = r.Header.Get("x-filename")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`"upload-42"`))
	}))
	defer server.Close()

	client := New(server.URL)
	job, err := client.Initiate(context.Background(), "u1", domain.UploadFile{
		Name: "resume.pdf",
		Data: []byte("%PDF-1.4 fake"),
	})
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if job.JobID != "upload-42" {
		t.Fatalf("expected jobId upload-42, got %q", job.JobID)
	}
	if job.State != domain.StateUploading {
		t.Fatalf("expected fresh job in UPLOADING, got %s", job.State)
	}
	if gotFilename != "resume.pdf" {
		t.Fatalf("filename header = %q", gotFilename)
	}
	if gotContentType != "application/pdf" {
		t.Fatalf("content type = %q, want resolved application/pdf", gotContentType)
	}
	if string(gotBody) != "%PDF-1.4 fake" {
		t.Fatalf("body was not the raw file bytes: %q", gotBody)
	}
}

func TestInitiateAcceptsObjectID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"upload_id":"upload-7"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	job, err := client.Initiate(context.Background(), "u1", domain.UploadFile{Name: "resume.docx", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if job.JobID != "upload-7" {
		t.Fatalf("expected jobId upload-7, got %q", job.JobID)
	}
}

func TestInitiateMissingIDIsValidationError(t *testing.T) {
	for name, body := range map[string]string{
		"empty object":  `{}`,
		"empty id":      `{"upload_id":""}`,
		"bare empty":    `""`,
		"invalid json":  `{"upload_id":`,
		"wrong type":    `42`,
		"array payload": `["upload-42"]`,
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		client := New(server.URL)
		job, err := client.Initiate(context.Background(), "u1", domain.UploadFile{Name: "resume.pdf", Data: []byte("x")})
		server.Close()

		if err == nil || job != nil {
			t.Fatalf("%s: expected validation error, got job=%v err=%v", name, job, err)
		}
		if !domain.IsKind(err, domain.ErrInvalidResponse) {
			t.Fatalf("%s: expected ErrInvalidResponse kind, got %v", name, err)
		}
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("%s: expected *ValidationError, got %T", name, err)
		}
		if string(validationErr.RawBody) != body {
			t.Fatalf("%s: raw body not preserved: %q", name, validationErr.RawBody)
		}
	}
}

func TestInitiateIsNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Initiate(context.Background(), "u1", domain.UploadFile{Name: "resume.pdf", Data: []byte("x")})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("initiate must not be retried, saw %d attempts", attempts)
	}
	if !domain.IsKind(err, domain.ErrServer) {
		t.Fatalf("expected ErrServer kind, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *HTTPStatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status code = %d", statusErr.StatusCode)
	}
	if !strings.Contains(statusErr.Body, "backend exploded") {
		t.Fatalf("expected raw body in error, got %q", statusErr.Body)
	}
}

func statusBody(state string) string {
	return `{
		"upload_id": "upload-42",
		"user_id": "u1",
		"filename": "resume.pdf",
		"upload_process_state": "` + state + `",
		"cancel_requested": false
	}`
}

func TestFetchStatusMapsSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/users/u1/cv/upload-42" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{
			"upload_id": "upload-42",
			"user_id": "u1",
			"filename": "resume.pdf",
			"upload_process_state": "COMPLETED",
			"cancel_requested": false,
			"experience_bullets": ["Led X", "Built Y"]
		}`))
	}))
	defer server.Close()

	client := New(server.URL)
	job, err := client.FetchStatus(context.Background(), "u1", "upload-42")
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if job.State != domain.StateCompleted {
		t.Fatalf("state = %s", job.State)
	}
	if len(job.ExperienceBullets) != 2 {
		t.Fatalf("bullets = %v", job.ExperienceBullets)
	}
}

func TestFetchStatusMalformedBodyIsValidationErrorWithoutRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		_, _ = w.Write([]byte(`{"upload_id": "upload-42", "upload_process_state"`))
	}))
	defer server.Close()

	client := New(server.URL, WithPolicy(opStatus, fastStatusPolicy()))
	_, err := client.FetchStatus(context.Background(), "u1", "upload-42")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse kind, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("malformed body must not be retried, saw %d attempts", attempts)
	}
}

func TestFetchStatusRetriesRetryableStatus(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(statusBody("PROCESSING")))
	}))
	defer server.Close()

	client := New(server.URL, WithPolicy(opStatus, fastStatusPolicy()))
	job, err := client.FetchStatus(context.Background(), "u1", "upload-42")
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if job.State != domain.StateProcessing {
		t.Fatalf("state = %s", job.State)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/u1/cv/upload-42/cancel" {
			http.NotFound(w, r)
			return
		}
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL)
	for i := 0; i < 2; i++ {
		if err := client.Cancel(context.Background(), "u1", "upload-42"); err != nil {
			t.Fatalf("Cancel() attempt %d error = %v", i+1, err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 cancel requests, got %d", calls)
	}
}

func TestReconcileNetworkFailureDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	client := New(server.URL)
	result := client.Reconcile(context.Background(), "u1", "upload-42")
	if result.Injected {
		t.Fatalf("expected un-injected result on network failure")
	}
	if result.Detail == "" {
		t.Fatalf("expected diagnostic detail")
	}
}

func TestReconcileMalformedBodyDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	client := New(server.URL)
	result := client.Reconcile(context.Background(), "u1", "upload-42")
	if result.Injected {
		t.Fatalf("expected un-injected result on malformed body")
	}
}

func TestReconcileTruthyStateInjected(t *testing.T) {
	cases := map[string]bool{
		`{"state_injected": true}`:    true,
		`{"state_injected": "true"}`:  true,
		`{"state_injected": 1}`:       true,
		`{"state_injected": false}`:   false,
		`{"state_injected": "false"}`: false,
		`{"state_injected": 0}`:       false,
		`{"state_injected": null}`:    false,
		`{}`:                          false,
		``:                            false,
	}
	for body, want := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		client := New(server.URL)
		result := client.Reconcile(context.Background(), "u1", "upload-42")
		server.Close()

		if result.Injected != want {
			t.Fatalf("body %q: injected = %v, want %v", body, result.Injected, want)
		}
	}
}

func TestListJobs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/users/u1/cv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[
			{"upload_id": "upload-1", "user_id": "u1", "filename": "old.pdf", "upload_process_state": "COMPLETED"},
			{"upload_id": "upload-2", "user_id": "u1", "filename": "new.pdf", "upload_process_state": "FAILED", "error_code": "PARSE_ERROR"}
		]`))
	}))
	defer server.Close()

	client := New(server.URL)
	jobs, err := client.ListJobs(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[1].ErrorCode != "PARSE_ERROR" {
		t.Fatalf("error code lost: %+v", jobs[1])
	}
}

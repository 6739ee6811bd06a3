package cvapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
	"github.com/resumecraft/cv-upload-client/internal/core/ports"
	"github.com/resumecraft/cv-upload-client/internal/infrastructure/resilience"
)

const (
	requestIDHeader = "X-Request-Id"
	filenameHeader  = "x-filename"

	maxBodyBytes = 1 << 20
)

// Client talks to the résumé parsing backend under /users/{userId}/cv.
// It is explicitly constructed with its transport so tests can
// substitute a fake server; there is no package-level singleton.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	policies   map[string]resilience.Policy
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithPolicy overrides the retry policy of one operation. Operations
// are named cv.initiate, cv.status, cv.cancel, cv.reconcile, cv.list.
func WithPolicy(operation string, policy resilience.Policy) Option {
	return func(c *Client) {
		c.policies[operation] = policy
	}
}

func New(baseURL string, opts ...Option) *Client {
	// Transparent compression is off: the upload body is already-dense
	// binary and the backend expects the exact byte length.
	transport := http.DefaultTransport
	if base, ok := transport.(*http.Transport); ok {
		cloned := base.Clone()
		cloned.DisableCompression = true
		transport = cloned
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
		executor: resilience.NewExecutor(),
		policies: defaultPolicies(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initiate submits the raw file bytes (no multipart envelope; the
// filename travels in a header, which survives proxies more reliably
// than multipart boundaries for this backend). A failure here must be
// resubmitted explicitly by the user, so the policy is one attempt.
func (c *Client) Initiate(ctx context.Context, userID string, file domain.UploadFile) (*domain.UploadJob, error) {
	contentType := ResolveContentType(file.Name, file.ContentType)
	endpoint := c.jobsURL(userID)

	var raw []byte
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(file.Data))
		if err != nil {
			return fmt.Errorf("create initiate request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(filenameHeader, file.Name)
		req.Header.Set(requestIDHeader, uuid.NewString())
		req.ContentLength = int64(len(file.Data))

		raw, err = c.do(req, opInitiate)
		return err
	}
	if err := c.executor.Execute(ctx, opInitiate, c.policies[opInitiate], call, classifyAPIError); err != nil {
		return nil, err
	}

	id, err := decodeUploadID(raw)
	if err != nil {
		return nil, &ValidationError{Operation: opInitiate, RawBody: raw, Err: err}
	}

	now := time.Now().UTC()
	return &domain.UploadJob{
		JobID:          id.Value,
		UserID:         userID,
		Filename:       file.Name,
		ContentType:    contentType,
		State:          domain.StateUploading,
		CreatedAt:      now,
		LastActivityAt: now,
	}, nil
}

// FetchStatus issues one logical poll. Transient network failures are
// absorbed here so the UI never sees a connection blip while the
// server-side job keeps working; a malformed body is surfaced as-is.
func (c *Client) FetchStatus(ctx context.Context, userID, jobID string) (*domain.UploadJob, error) {
	endpoint := c.jobURL(userID, jobID)

	var job *domain.UploadJob
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create status request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(requestIDHeader, uuid.NewString())

		raw, err := c.do(req, opStatus)
		if err != nil {
			return err
		}
		snapshot, err := decodeJobStatus(raw)
		if err != nil {
			return &ValidationError{Operation: opStatus, RawBody: raw, Err: err}
		}
		job = snapshot
		return nil
	}
	if err := c.executor.Execute(ctx, opStatus, c.policies[opStatus], call, classifyAPIError); err != nil {
		return nil, err
	}
	return job, nil
}

// Cancel asks the server to cancel the job. Success is defined purely
// by the HTTP status; the body is an acknowledgement and is discarded.
// The call is idempotent against already-terminal jobs.
func (c *Client) Cancel(ctx context.Context, userID, jobID string) error {
	endpoint := c.jobURL(userID, jobID) + "/cancel"

	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create cancel request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(requestIDHeader, uuid.NewString())

		_, err = c.do(req, opCancel)
		return err
	}
	return c.executor.Execute(ctx, opCancel, c.policies[opCancel], call, classifyAPIError)
}

// Reconcile triggers injection of the parsed results into the user's
// experience data. Failure to inject is soft and user-correctable (the
// parsed text is still visible and editable), so every failure mode
// degrades to an un-injected result instead of an error.
func (c *Client) Reconcile(ctx context.Context, userID, jobID string) ports.ReconcileResult {
	endpoint := c.jobURL(userID, jobID) + "/inject"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return degradedReconcile(jobID, fmt.Errorf("create reconcile request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	raw, err := c.do(req, opReconcile)
	if err != nil {
		return degradedReconcile(jobID, err)
	}

	payload, err := decodeReconcile(raw)
	if err != nil {
		return degradedReconcile(jobID, err)
	}
	result := ports.ReconcileResult{
		Injected: payload.injected(),
		Detail:   payload.Error,
	}
	if !result.Injected && result.Detail == "" {
		result.Detail = "state_injected not set by server"
	}
	return result
}

func (c *Client) ListJobs(ctx context.Context, userID string) ([]domain.UploadJob, error) {
	endpoint := c.jobsURL(userID)

	var jobs []domain.UploadJob
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create list request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(requestIDHeader, uuid.NewString())

		raw, err := c.do(req, opList)
		if err != nil {
			return err
		}
		decoded, err := decodeJobList(raw)
		if err != nil {
			return &ValidationError{Operation: opList, RawBody: raw, Err: err}
		}
		jobs = decoded
		return nil
	}
	if err := c.executor.Execute(ctx, opList, c.policies[opList], call, classifyAPIError); err != nil {
		return nil, err
	}
	return jobs, nil
}

// do runs one request and returns the delivered body. Network failures
// and non-success statuses come back as typed errors carrying the
// operation, method and URL for logging.
func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{
			Operation: operation,
			Method:    req.Method,
			URL:       req.URL.String(),
			Err:       err,
		}
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{
			Operation:  operation,
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if readErr != nil {
		return nil, &TransportError{
			Operation: operation,
			Method:    req.Method,
			URL:       req.URL.String(),
			Err:       fmt.Errorf("read response body: %w", readErr),
		}
	}
	return raw, nil
}

func (c *Client) jobsURL(userID string) string {
	return fmt.Sprintf("%s/users/%s/cv", c.baseURL, url.PathEscape(userID))
}

func (c *Client) jobURL(userID, jobID string) string {
	return fmt.Sprintf("%s/users/%s/cv/%s", c.baseURL, url.PathEscape(userID), url.PathEscape(jobID))
}

func degradedReconcile(jobID string, err error) ports.ReconcileResult {
	slog.Warn("reconcile_degraded", "job_id", jobID, "error", err)
	return ports.ReconcileResult{Injected: false, Detail: err.Error()}
}

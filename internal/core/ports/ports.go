package ports

import (
	"context"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
)

type UploadInitiator interface {
	// Initiate submits the raw file bytes and returns a fresh job in
	// state UPLOADING with the server-assigned job id set.
	Initiate(ctx context.Context, userID string, file domain.UploadFile) (*domain.UploadJob, error)
}

type StatusFetcher interface {
	// FetchStatus issues one GET and returns the full status snapshot.
	// It does not decide termination; that is the caller's job.
	FetchStatus(ctx context.Context, userID, jobID string) (*domain.UploadJob, error)
}

type CancelRequester interface {
	// Cancel is advisory and idempotent. It never forces a local state
	// change; the next poll is the source of truth.
	Cancel(ctx context.Context, userID, jobID string) error
}

// ReconcileResult is the outcome of merging parsed results into the
// user's experience data. Detail is diagnostic only.
type ReconcileResult struct {
	Injected bool
	Detail   string
}

type ResultReconciler interface {
	// Reconcile never fails hard: injection failures are soft and
	// user-correctable, so any error degrades to Injected=false.
	Reconcile(ctx context.Context, userID, jobID string) ReconcileResult
}

type JobLister interface {
	ListJobs(ctx context.Context, userID string) ([]domain.UploadJob, error)
}

type JobArchive interface {
	RecordTerminal(ctx context.Context, job *domain.UploadJob) error
	ListTerminal(ctx context.Context, userID string) ([]domain.UploadJob, error)
}

type EventPublisher interface {
	PublishTransition(ctx context.Context, transition domain.JobTransition) error
}

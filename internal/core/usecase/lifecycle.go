package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
	"github.com/resumecraft/cv-upload-client/internal/core/ports"
)

// Lifecycle sequences one upload job: initiate, poll until terminal,
// reconcile once on completion. It is driven from a single scheduling
// context and is not safe for concurrent use; all truth lives on the
// server, so there is no lock to hide behind.
type Lifecycle struct {
	initiator  ports.UploadInitiator
	statuses   ports.StatusFetcher
	canceller  ports.CancelRequester
	reconciler ports.ResultReconciler

	job        *domain.UploadJob
	reconciled bool
}

func NewLifecycle(
	initiator ports.UploadInitiator,
	statuses ports.StatusFetcher,
	canceller ports.CancelRequester,
	reconciler ports.ResultReconciler,
) *Lifecycle {
	return &Lifecycle{
		initiator:  initiator,
		statuses:   statuses,
		canceller:  canceller,
		reconciler: reconciler,
		job:        &domain.UploadJob{State: domain.StatePending},
	}
}

// Start initiates the upload. On failure the job returns to PENDING so
// a resubmission stays an explicit user action.
func (l *Lifecycle) Start(ctx context.Context, userID string, file domain.UploadFile) error {
	if l.job.State != domain.StatePending {
		return fmt.Errorf("lifecycle already started (state %s)", l.job.State)
	}

	l.job.UserID = userID
	l.job.Filename = file.Name
	l.job.State = domain.StateUploading

	job, err := l.initiator.Initiate(ctx, userID, file)
	if err != nil {
		l.job.State = domain.StatePending
		return fmt.Errorf("initiate upload: %w", err)
	}
	l.job = job
	return nil
}

// Tick performs one status poll and replaces the snapshot wholesale.
// The local cancel intent survives until the server reports a terminal
// state; reconciliation runs at most once, strictly after the first
// COMPLETED observation.
func (l *Lifecycle) Tick(ctx context.Context) error {
	if l.job.State.IsTerminal() {
		return nil
	}
	if l.job.JobID == "" {
		return errors.New("poll before initiate")
	}

	snapshot, err := l.statuses.FetchStatus(ctx, l.job.UserID, l.job.JobID)
	if err != nil {
		if domain.IsKind(err, domain.ErrServer) {
			// The server answered and refused; for polling purposes the
			// job is as good as failed.
			l.markFailedFromServerError(err)
		}
		return fmt.Errorf("fetch status: %w", err)
	}

	cancelPending := l.job.CancelRequested
	contentType := l.job.ContentType
	next := *snapshot
	next.JobID = l.job.JobID
	if next.ContentType == "" {
		next.ContentType = contentType
	}
	if !next.State.IsTerminal() && cancelPending {
		next.CancelRequested = true
	}
	l.job = &next

	if next.State == domain.StateCompleted && !l.reconciled {
		l.reconciled = true
		result := l.reconciler.Reconcile(ctx, l.job.UserID, l.job.JobID)
		injected := result.Injected
		l.job.StateInjected = &injected
		if !result.Injected {
			l.job.InjectionError = result.Detail
		}
	}
	return nil
}

// Cancel is advisory: it records the intent, asks the server, and lets
// the next poll confirm. It never forces CANCELLED locally, which
// avoids the race where the server completed the job moments earlier.
// Once terminal it is a no-op.
func (l *Lifecycle) Cancel(ctx context.Context) error {
	if l.job.State.IsTerminal() {
		return nil
	}
	l.job.CancelRequested = true
	if l.job.JobID == "" {
		return nil
	}
	if err := l.canceller.Cancel(ctx, l.job.UserID, l.job.JobID); err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	return nil
}

// Done reports whether further polling is meaningful.
func (l *Lifecycle) Done() bool {
	return l.job.State.IsTerminal()
}

// Snapshot returns a copy of the current job view.
func (l *Lifecycle) Snapshot() domain.UploadJob {
	return *l.job
}

func (l *Lifecycle) markFailedFromServerError(err error) {
	l.job.State = domain.StateFailed
	l.job.CancelRequested = false
	l.job.LastActivityAt = time.Now().UTC()
	if code, ok := domain.StatusCode(err); ok {
		l.job.ErrorCode = fmt.Sprintf("HTTP_%d", code)
	} else {
		l.job.ErrorCode = "SERVER_ERROR"
	}
	l.job.ErrorDetail = err.Error()
}

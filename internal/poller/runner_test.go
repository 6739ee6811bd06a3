package poller

import (
	"context"
	"testing"
	"time"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
	"github.com/resumecraft/cv-upload-client/internal/core/ports"
	"github.com/resumecraft/cv-upload-client/internal/core/usecase"
)

type initiatorFake struct{}

func (initiatorFake) Initiate(_ context.Context, userID string, file domain.UploadFile) (*domain.UploadJob, error) {
	return &domain.UploadJob{
		JobID:    "upload-42",
		UserID:   userID,
		Filename: file.Name,
		State:    domain.StateUploading,
	}, nil
}

type statusFake struct {
	snapshots []*domain.UploadJob
	calls     int
}

func (f *statusFake) FetchStatus(context.Context, string, string) (*domain.UploadJob, error) {
	i := f.calls
	f.calls++
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	snapshot := *f.snapshots[i]
	return &snapshot, nil
}

type cancelFake struct{ calls int }

func (f *cancelFake) Cancel(context.Context, string, string) error {
	f.calls++
	return nil
}

type reconcilerFake struct{ calls int }

func (f *reconcilerFake) Reconcile(context.Context, string, string) ports.ReconcileResult {
	f.calls++
	return ports.ReconcileResult{Injected: true}
}

type archiveFake struct {
	records []domain.UploadJob
}

func (f *archiveFake) RecordTerminal(_ context.Context, job *domain.UploadJob) error {
	f.records = append(f.records, *job)
	return nil
}

func (f *archiveFake) ListTerminal(context.Context, string) ([]domain.UploadJob, error) {
	return f.records, nil
}

type eventsFake struct {
	transitions []domain.JobTransition
}

func (f *eventsFake) PublishTransition(_ context.Context, transition domain.JobTransition) error {
	f.transitions = append(f.transitions, transition)
	return nil
}

func newTestLifecycle(statuses *statusFake, canceller *cancelFake, reconciler *reconcilerFake) *usecase.Lifecycle {
	return usecase.NewLifecycle(initiatorFake{}, statuses, canceller, reconciler)
}

func TestRunnerDrivesJobToCompletion(t *testing.T) {
	statuses := &statusFake{snapshots: []*domain.UploadJob{
		{JobID: "upload-42", UserID: "u1", State: domain.StateProcessing},
		{JobID: "upload-42", UserID: "u1", State: domain.StateProcessing},
		{JobID: "upload-42", UserID: "u1", State: domain.StateCompleted, ExperienceBullets: []string{"Led X", "Built Y"}},
	}}
	reconciler := &reconcilerFake{}
	archive := &archiveFake{}
	events := &eventsFake{}

	runner := NewRunner(newTestLifecycle(statuses, &cancelFake{}, reconciler), Options{
		Interval: time.Millisecond,
		Archive:  archive,
		Events:   events,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	final, err := runner.Run(ctx, "u1", domain.UploadFile{Name: "resume.pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if final.State != domain.StateCompleted {
		t.Fatalf("final state = %s", final.State)
	}
	if final.StateInjected == nil || !*final.StateInjected {
		t.Fatalf("expected injected outcome, got %+v", final.StateInjected)
	}
	if statuses.calls != 3 {
		t.Fatalf("expected exactly 3 polls, got %d", statuses.calls)
	}
	if reconciler.calls != 1 {
		t.Fatalf("expected exactly one reconciliation, got %d", reconciler.calls)
	}
	if len(archive.records) != 1 {
		t.Fatalf("expected exactly one archived snapshot, got %d", len(archive.records))
	}
	if archive.records[0].State != domain.StateCompleted {
		t.Fatalf("archived state = %s", archive.records[0].State)
	}

	if len(events.transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %+v", events.transitions)
	}
	if events.transitions[0].To != domain.StateProcessing || events.transitions[1].To != domain.StateCompleted {
		t.Fatalf("unexpected transition order: %+v", events.transitions)
	}
}

func TestRunnerForwardsCancelRequestToLifecycle(t *testing.T) {
	statuses := &statusFake{snapshots: []*domain.UploadJob{
		{JobID: "upload-42", UserID: "u1", State: domain.StateProcessing},
		{JobID: "upload-42", UserID: "u1", State: domain.StateCancelled},
	}}
	canceller := &cancelFake{}

	runner := NewRunner(newTestLifecycle(statuses, canceller, &reconcilerFake{}), Options{
		Interval: time.Millisecond,
	})
	runner.RequestCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	final, err := runner.Run(ctx, "u1", domain.UploadFile{Name: "resume.pdf"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if canceller.calls != 1 {
		t.Fatalf("expected one cancel request, got %d", canceller.calls)
	}
	if final.State != domain.StateCancelled {
		t.Fatalf("final state = %s", final.State)
	}
}

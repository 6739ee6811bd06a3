package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
	"github.com/resumecraft/cv-upload-client/internal/core/ports"
	"github.com/resumecraft/cv-upload-client/internal/core/usecase"
	"github.com/resumecraft/cv-upload-client/internal/observability/metrics"
)

const service = "uploader"

// Runner is the scheduling caller of one lifecycle: it owns the poll
// interval, caps the request rate, forwards observed transitions, and
// archives the terminal snapshot. The lifecycle itself stays free of
// timing concerns.
//
// Everything runs on the Run goroutine; RequestCancel only signals it,
// so the lifecycle is never touched from two call sites.
type Runner struct {
	lifecycle *usecase.Lifecycle
	interval  time.Duration
	limiter   *rate.Limiter

	archive ports.JobArchive
	events  ports.EventPublisher
	metrics *metrics.LifecycleMetrics
	logger  *slog.Logger

	cancelRequests chan struct{}
}

type Options struct {
	// Interval between poll ticks. Zero means one second.
	Interval time.Duration
	// MaxPollsPerMinute caps the poll rate independently of Interval so
	// a misconfigured interval cannot hammer the backend. Zero disables
	// the cap.
	MaxPollsPerMinute int

	Archive ports.JobArchive
	Events  ports.EventPublisher
	Metrics *metrics.LifecycleMetrics
	Logger  *slog.Logger
}

func NewRunner(lifecycle *usecase.Lifecycle, options Options) *Runner {
	interval := options.Interval
	if interval <= 0 {
		interval = time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if options.MaxPollsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(options.MaxPollsPerMinute)/60.0), 1)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		lifecycle:      lifecycle,
		interval:       interval,
		limiter:        limiter,
		archive:        options.Archive,
		events:         options.Events,
		metrics:        options.Metrics,
		logger:         logger,
		cancelRequests: make(chan struct{}, 1),
	}
}

// RequestCancel asks the running loop to issue an advisory cancel. Safe
// to call from any goroutine; duplicate requests collapse into one.
func (r *Runner) RequestCancel() {
	select {
	case r.cancelRequests <- struct{}{}:
	default:
	}
}

// Run drives the job to a terminal observation and returns the final
// snapshot. Transport hiccups on polls are invisible to the caller;
// validation failures stop the loop, since a server serialization bug
// will not fix itself.
func (r *Runner) Run(ctx context.Context, userID string, file domain.UploadFile) (domain.UploadJob, error) {
	start := time.Now()

	if r.metrics != nil {
		r.metrics.StartJob()
	}

	if err := r.lifecycle.Start(ctx, userID, file); err != nil {
		if r.metrics != nil {
			r.metrics.FinishJob(service, domain.StateFailed, time.Since(start))
		}
		return r.lifecycle.Snapshot(), err
	}
	r.logger.Info("upload_initiated",
		"job_id", r.lifecycle.Snapshot().JobID,
		"user_id", userID,
		"filename", file.Name,
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	previous := r.lifecycle.Snapshot().State
	for !r.lifecycle.Done() {
		select {
		case <-ctx.Done():
			return r.lifecycle.Snapshot(), ctx.Err()
		case <-r.cancelRequests:
			if err := r.lifecycle.Cancel(ctx); err != nil {
				r.logger.Warn("cancel_request_failed", "error", err)
			} else {
				r.logger.Info("cancel_requested", "job_id", r.lifecycle.Snapshot().JobID)
			}
			continue
		case <-ticker.C:
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return r.lifecycle.Snapshot(), err
		}

		err := r.lifecycle.Tick(ctx)
		if r.metrics != nil {
			r.metrics.PollAttempt(service, err)
		}
		if err != nil {
			switch {
			case r.lifecycle.Done():
				// Server refused the job; the snapshot already carries
				// the failure details.
				r.logger.Error("poll_terminal_failure", "error", err)
			case domain.IsKind(err, domain.ErrTransport):
				// The job may still be running server-side; keep going.
				r.logger.Warn("poll_transport_degraded", "error", err)
				continue
			default:
				return r.lifecycle.Snapshot(), fmt.Errorf("poll: %w", err)
			}
		}

		current := r.lifecycle.Snapshot()
		if current.State != previous {
			r.publishTransition(ctx, current, previous)
			previous = current.State
		}
	}

	final := r.lifecycle.Snapshot()

	if r.metrics != nil {
		r.metrics.FinishJob(service, final.State, time.Since(start))
		if final.StateInjected != nil {
			r.metrics.ReconcileOutcome(service, *final.StateInjected)
		}
	}
	if r.archive != nil {
		if err := r.archive.RecordTerminal(ctx, &final); err != nil {
			r.logger.Warn("archive_failed", "job_id", final.JobID, "error", err)
		}
	}

	r.logger.Info("upload_finished",
		"job_id", final.JobID,
		"state", string(final.State),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return final, nil
}

func (r *Runner) publishTransition(ctx context.Context, current domain.UploadJob, previous domain.JobState) {
	if r.events == nil {
		return
	}
	transition := domain.JobTransition{
		JobID:  current.JobID,
		UserID: current.UserID,
		From:   previous,
		To:     current.State,
		At:     time.Now().UTC(),
	}
	if err := r.events.PublishTransition(ctx, transition); err != nil {
		r.logger.Warn("transition_publish_failed", "job_id", current.JobID, "error", err)
	}
}

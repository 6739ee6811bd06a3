package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobState is the server-authoritative processing state of an upload job.
// The client never assigns a terminal state on its own; it only reflects
// what the last status poll reported.
type JobState string

const (
	StatePending    JobState = "PENDING"
	StateUploading  JobState = "UPLOADING"
	StateProcessing JobState = "PROCESSING"
	StateCancelled  JobState = "CANCELLED"
	StateCompleted  JobState = "COMPLETED"
	StateFailed     JobState = "FAILED"
)

// IsTerminal reports whether no further polling is meaningful for s.
func (s JobState) IsTerminal() bool {
	switch s {
	case StateCancelled, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

func ParseJobState(raw string) (JobState, error) {
	state := JobState(strings.ToUpper(strings.TrimSpace(raw)))
	switch state {
	case StatePending, StateUploading, StateProcessing, StateCancelled, StateCompleted, StateFailed:
		return state, nil
	default:
		return "", fmt.Errorf("unknown job state %q", raw)
	}
}

// UploadJob is one résumé upload-and-parse unit of work. The snapshot is
// replaced wholesale on every status poll; only CancelRequested carries
// local intent between polls.
type UploadJob struct {
	JobID       string `json:"job_id"`
	UserID      string `json:"user_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`

	State JobState `json:"state"`

	// CancelRequested is set optimistically when the user asks for
	// cancellation and cleared only by observing a terminal state.
	CancelRequested bool `json:"cancel_requested"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`

	ErrorCode   string `json:"error_code,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`

	ExperienceBullets []string `json:"experience_bullets,omitempty"`

	// StateInjected is nil until a reconciliation attempt has been made.
	StateInjected  *bool  `json:"state_injected,omitempty"`
	InjectionError string `json:"injection_error,omitempty"`
}

// UploadFile is the user-submitted résumé handed to the initiator.
// ContentType is the explicit MIME type, if the caller knows one.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// JobTransition is one observed state change, published for other
// surfaces (list views, notifications) to react to.
type JobTransition struct {
	JobID  string    `json:"job_id"`
	UserID string    `json:"user_id"`
	From   JobState  `json:"from"`
	To     JobState  `json:"to"`
	At     time.Time `json:"at"`
}

package cvapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
)

// The backend emits the new upload id in one of two shapes: a bare JSON
// string, or an object carrying upload_id. Both are legal; anything
// else is a validation failure. The shape is kept explicit rather than
// type-sniffed ad hoc, so the inconsistency stays visible.
type uploadIDShape int

const (
	shapeBareString uploadIDShape = iota
	shapeObject
)

type uploadID struct {
	Shape uploadIDShape
	Value string
}

func decodeUploadID(raw []byte) (uploadID, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return uploadID{}, errors.New("empty response body")
	}

	var bare string
	if err := json.Unmarshal(trimmed, &bare); err == nil {
		if strings.TrimSpace(bare) == "" {
			return uploadID{}, errors.New("empty upload id")
		}
		return uploadID{Shape: shapeBareString, Value: bare}, nil
	}

	var obj struct {
		UploadID string `json:"upload_id"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return uploadID{}, fmt.Errorf("parse upload id: %w", err)
	}
	if strings.TrimSpace(obj.UploadID) == "" {
		return uploadID{}, errors.New("missing upload_id field")
	}
	return uploadID{Shape: shapeObject, Value: obj.UploadID}, nil
}

type jobStatusPayload struct {
	UploadID           string    `json:"upload_id"`
	UserID             string    `json:"user_id"`
	Filename           string    `json:"filename"`
	UploadProcessState string    `json:"upload_process_state"`
	CancelRequested    bool      `json:"cancel_requested"`
	CreatedAt          time.Time `json:"created_at"`
	LastActivityAt     time.Time `json:"last_activity_at"`
	ErrorCode          string    `json:"error_code,omitempty"`
	ErrorDetail        string    `json:"error_detail,omitempty"`
	ExperienceBullets  []string  `json:"experience_bullets,omitempty"`
	StateInjected      *bool     `json:"state_injected,omitempty"`
	InjectionError     string    `json:"injection_error,omitempty"`
}

func (p jobStatusPayload) toDomain() (*domain.UploadJob, error) {
	if strings.TrimSpace(p.UploadID) == "" {
		return nil, errors.New("missing upload_id field")
	}
	state, err := domain.ParseJobState(p.UploadProcessState)
	if err != nil {
		return nil, err
	}
	return &domain.UploadJob{
		JobID:             p.UploadID,
		UserID:            p.UserID,
		Filename:          p.Filename,
		State:             state,
		CancelRequested:   p.CancelRequested,
		CreatedAt:         p.CreatedAt,
		LastActivityAt:    p.LastActivityAt,
		ErrorCode:         p.ErrorCode,
		ErrorDetail:       p.ErrorDetail,
		ExperienceBullets: p.ExperienceBullets,
		StateInjected:     p.StateInjected,
		InjectionError:    p.InjectionError,
	}, nil
}

func decodeJobStatus(raw []byte) (*domain.UploadJob, error) {
	var payload jobStatusPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse status body: %w", err)
	}
	return payload.toDomain()
}

func decodeJobList(raw []byte) ([]domain.UploadJob, error) {
	var payloads []jobStatusPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, fmt.Errorf("parse job list body: %w", err)
	}
	jobs := make([]domain.UploadJob, 0, len(payloads))
	for _, payload := range payloads {
		job, err := payload.toDomain()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

type reconcilePayload struct {
	StateInjected json.RawMessage `json:"state_injected"`
	Error         string          `json:"error,omitempty"`
}

func decodeReconcile(raw []byte) (reconcilePayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return reconcilePayload{}, nil
	}
	var payload reconcilePayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return reconcilePayload{}, fmt.Errorf("parse reconcile body: %w", err)
	}
	return payload, nil
}

// injected is deliberately loose: the backend has emitted booleans,
// quoted booleans and numbers here. Only an unambiguously truthy value
// counts; everything else is treated as not injected.
func (p reconcilePayload) injected() bool {
	if len(p.StateInjected) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(p.StateInjected, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(p.StateInjected, &s); err == nil {
		return strings.EqualFold(s, "true") || s == "1"
	}
	var n float64
	if err := json.Unmarshal(p.StateInjected, &n); err == nil {
		return n != 0
	}
	return false
}

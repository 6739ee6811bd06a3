package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
)

// JobRepository archives the final snapshot of every upload job so the
// user's past uploads survive the process. Only terminal snapshots are
// written; in-flight truth always lives on the server.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent uploader starts.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS cv_upload_jobs (
	job_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL,
	error_code TEXT,
	error_detail TEXT,
	experience_bullets JSONB NOT NULL DEFAULT '[]'::jsonb,
	state_injected BOOLEAN,
	injection_error TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	last_activity_at TIMESTAMPTZ NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cv_upload_jobs_user ON cv_upload_jobs(user_id, archived_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// RecordTerminal upserts on job_id: re-running a finished job through
// the archive must not fail or duplicate history.
func (r *JobRepository) RecordTerminal(ctx context.Context, job *domain.UploadJob) error {
	if !job.State.IsTerminal() {
		return fmt.Errorf("refusing to archive non-terminal job %s in state %s", job.JobID, job.State)
	}

	bulletsJSON, err := json.Marshal(job.ExperienceBullets)
	if err != nil {
		return fmt.Errorf("marshal experience bullets: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO cv_upload_jobs (
	job_id, user_id, filename, content_type, state, error_code, error_detail,
	experience_bullets, state_injected, injection_error, created_at, last_activity_at, archived_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (job_id) DO UPDATE SET
	state = EXCLUDED.state,
	error_code = EXCLUDED.error_code,
	error_detail = EXCLUDED.error_detail,
	experience_bullets = EXCLUDED.experience_bullets,
	state_injected = EXCLUDED.state_injected,
	injection_error = EXCLUDED.injection_error,
	last_activity_at = EXCLUDED.last_activity_at,
	archived_at = EXCLUDED.archived_at
`,
		job.JobID, job.UserID, job.Filename, job.ContentType, string(job.State),
		nullableString(job.ErrorCode), nullableString(job.ErrorDetail),
		bulletsJSON, job.StateInjected, nullableString(job.InjectionError),
		job.CreatedAt, job.LastActivityAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("archive job snapshot: %w", err)
	}
	return nil
}

func (r *JobRepository) ListTerminal(ctx context.Context, userID string) ([]domain.UploadJob, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT job_id, user_id, filename, content_type, state, error_code, error_detail,
	experience_bullets, state_injected, injection_error, created_at, last_activity_at
FROM cv_upload_jobs
WHERE user_id = $1
ORDER BY archived_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list archived jobs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.UploadJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived jobs: %w", err)
	}
	return out, nil
}

type jobScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row jobScanner) (domain.UploadJob, error) {
	var job domain.UploadJob
	var state string
	var errorCode, errorDetail, injectionError sql.NullString
	var bulletsRaw []byte

	err := row.Scan(
		&job.JobID,
		&job.UserID,
		&job.Filename,
		&job.ContentType,
		&state,
		&errorCode,
		&errorDetail,
		&bulletsRaw,
		&job.StateInjected,
		&injectionError,
		&job.CreatedAt,
		&job.LastActivityAt,
	)
	if err != nil {
		return domain.UploadJob{}, fmt.Errorf("scan archived job: %w", err)
	}

	if len(bulletsRaw) > 0 {
		if err := json.Unmarshal(bulletsRaw, &job.ExperienceBullets); err != nil {
			return domain.UploadJob{}, fmt.Errorf("unmarshal experience bullets: %w", err)
		}
	}
	job.State = domain.JobState(state)
	job.ErrorCode = errorCode.String
	job.ErrorDetail = errorDetail.String
	job.InjectionError = injectionError.String
	return job, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/resumecraft/cv-upload-client/internal/core/ports"
)

// Service turns a user's upload history into an XLSX workbook.
type Service struct {
	jobs   ports.JobLister
	logger *slog.Logger
}

func NewService(jobs ports.JobLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

func (s *Service) JobHistoryXLSX(ctx context.Context, userID string) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.ListJobs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Uploads"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Job ID",
		"Filename",
		"State",
		"Error",
		"Experience Bullets",
		"Injected",
		"Created At",
		"Last Activity At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, job := range jobs {
		errText := job.ErrorCode
		if job.ErrorDetail != "" {
			errText = strings.TrimSpace(errText + " " + job.ErrorDetail)
		}
		injected := ""
		if job.StateInjected != nil {
			injected = fmt.Sprintf("%t", *job.StateInjected)
		}

		values := []any{
			job.JobID,
			job.Filename,
			string(job.State),
			errText,
			strings.Join(job.ExperienceBullets, "\n"),
			injected,
			formatTime(job.CreatedAt),
			formatTime(job.LastActivityAt),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	s.logger.Info("export_job_history",
		"user_id", userID,
		"jobs", len(jobs),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

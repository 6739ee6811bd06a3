package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
)

type listerFake struct {
	jobs []domain.UploadJob
}

func (f *listerFake) ListJobs(context.Context, string) ([]domain.UploadJob, error) {
	return f.jobs, nil
}

func TestJobHistoryXLSXWritesRows(t *testing.T) {
	injected := true
	svc := NewService(&listerFake{jobs: []domain.UploadJob{
		{
			JobID:             "upload-42",
			Filename:          "resume.pdf",
			State:             domain.StateCompleted,
			ExperienceBullets: []string{"Led X", "Built Y"},
			StateInjected:     &injected,
		},
	}}, nil)

	data, err := svc.JobHistoryXLSX(context.Background(), "u1")
	if err != nil {
		t.Fatalf("JobHistoryXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Uploads", "A2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if got != "upload-42" {
		t.Fatalf("expected job id in first data row, got %q", got)
	}
	state, _ := f.GetCellValue("Uploads", "C2")
	if state != "COMPLETED" {
		t.Fatalf("expected state column, got %q", state)
	}
}

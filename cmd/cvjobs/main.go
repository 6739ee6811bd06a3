package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/resumecraft/cv-upload-client/internal/bootstrap"
	"github.com/resumecraft/cv-upload-client/internal/config"
	"github.com/resumecraft/cv-upload-client/internal/core/domain"
	"github.com/resumecraft/cv-upload-client/internal/export"
	"github.com/resumecraft/cv-upload-client/internal/observability/logging"
)

// cvjobs inspects a user's upload history: the server-side list, the
// local archive, or an XLSX export of the server list.
func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		userID     = flag.String("user", "", "user whose jobs to show")
		output     = flag.String("o", "cv-jobs.xlsx", "output path for the export command")
	)
	flag.Parse()

	command := flag.Arg(0)
	if *userID == "" || command == "" {
		fmt.Fprintln(os.Stderr, "usage: cvjobs -user <id> [flags] list|history|export")
		os.Exit(2)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("cvjobs", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	switch command {
	case "list":
		jobs, err := app.Client.ListJobs(ctx, *userID)
		if err != nil {
			log.Fatalf("list jobs: %v", err)
		}
		printJobs(jobs)
	case "history":
		if app.Archive == nil {
			log.Fatalf("history requires CV_ARCHIVE_ENABLED=true")
		}
		jobs, err := app.Archive.ListTerminal(ctx, *userID)
		if err != nil {
			log.Fatalf("read archive: %v", err)
		}
		printJobs(jobs)
	case "export":
		svc := export.NewService(app.Client, logger)
		data, err := svc.JobHistoryXLSX(ctx, *userID)
		if err != nil {
			log.Fatalf("export: %v", err)
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			log.Fatalf("write workbook: %v", err)
		}
		fmt.Printf("wrote %s (%d bytes)\n", *output, len(data))
	default:
		log.Fatalf("unknown command %q", command)
	}
}

func printJobs(jobs []domain.UploadJob) {
	if len(jobs) == 0 {
		fmt.Println("no jobs")
		return
	}
	for _, job := range jobs {
		line := fmt.Sprintf("%-24s %-12s %s", job.JobID, job.State, job.Filename)
		if job.ErrorCode != "" {
			line += fmt.Sprintf(" (%s)", job.ErrorCode)
		}
		fmt.Println(line)
	}
}

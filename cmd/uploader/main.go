package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/resumecraft/cv-upload-client/internal/bootstrap"
	"github.com/resumecraft/cv-upload-client/internal/config"
	"github.com/resumecraft/cv-upload-client/internal/core/domain"
	"github.com/resumecraft/cv-upload-client/internal/infrastructure/preview"
	"github.com/resumecraft/cv-upload-client/internal/observability/logging"
	"github.com/resumecraft/cv-upload-client/internal/poller"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		userID      = flag.String("user", "", "owner of the upload")
		filePath    = flag.String("file", "", "résumé file to upload")
		mimeType    = flag.String("mime", "", "explicit MIME type (otherwise resolved from the extension)")
		showPreview = flag.Bool("preview", false, "print a local text preview of a PDF while the job runs")
	)
	flag.Parse()

	if *userID == "" || *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewJSONLogger("uploader", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	go serveMetrics(app, cfg.MetricsPort, logger)

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read file: %v", err)
	}
	file := domain.UploadFile{
		Name:        filepath.Base(*filePath),
		ContentType: *mimeType,
		Data:        data,
	}

	runner := poller.NewRunner(app.NewLifecycle(), poller.Options{
		Interval:          cfg.PollInterval,
		MaxPollsPerMinute: cfg.PollMaxPerMinute,
		Archive:           app.Archive,
		Events:            app.Events,
		Metrics:           app.Metrics,
		Logger:            logger,
	})

	// First interrupt asks the server to cancel; the next poll confirms.
	// A second interrupt abandons the wait entirely.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("cancellation_requested_by_user")
		runner.RequestCancel()
		<-sigCh
		stop()
	}()

	if *showPreview && strings.EqualFold(filepath.Ext(*filePath), ".pdf") {
		if text, err := preview.Text(*filePath, 600); err != nil {
			logger.Warn("local_preview_unavailable", "error", err)
		} else {
			fmt.Println("--- local preview while the server parses ---")
			fmt.Println(text)
			fmt.Println("---")
		}
	}

	final, err := runner.Run(ctx, *userID, file)
	if err != nil {
		log.Fatalf("upload failed: %v", err)
	}

	printOutcome(final)
}

func serveMetrics(app *bootstrap.App, port string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Warn("metrics_server_stopped", "error", err)
	}
}

func printOutcome(job domain.UploadJob) {
	fmt.Printf("job %s finished: %s\n", job.JobID, job.State)
	switch job.State {
	case domain.StateCompleted:
		for _, bullet := range job.ExperienceBullets {
			fmt.Printf("  - %s\n", bullet)
		}
		if job.StateInjected != nil && *job.StateInjected {
			fmt.Println("parsed experience merged into your profile")
		} else {
			fmt.Println("parsed experience NOT merged; you can retry the merge from your profile")
			if job.InjectionError != "" {
				fmt.Printf("  reason: %s\n", job.InjectionError)
			}
		}
	case domain.StateFailed:
		fmt.Printf("  error: %s %s\n", job.ErrorCode, job.ErrorDetail)
	case domain.StateCancelled:
		fmt.Println("  cancelled on your request")
	}
}

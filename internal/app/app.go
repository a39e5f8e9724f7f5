package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mail-courier/internal/config"
	"mail-courier/internal/db"
	"mail-courier/internal/deliver"
	"mail-courier/internal/ingest"
	"mail-courier/internal/mailbox"
	"mail-courier/internal/metrics"
	"mail-courier/internal/render"
	"mail-courier/internal/scheduler"
	"mail-courier/internal/server"
	"mail-courier/internal/store"
	"mail-courier/internal/telegram"
)

// Run initializes the application and executes the pipeline. In the default
// batch mode it runs one ingest+deliver pass and returns; with a loop
// interval configured it stays up and runs the pass on a schedule.
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting mail courier")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if level, err := logrus.ParseLevel(cfg.Courier.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	st := store.New(dbConn)
	m := metrics.New()

	var mb mailbox.Client
	if cfg.Gmail.UseIMAP {
		mb, err = mailbox.NewIMAPClient(&cfg.Gmail)
		if err != nil {
			return fmt.Errorf("failed to create IMAP client: %w", err)
		}
		logrus.Info("Using IMAP for the mailbox")
	} else {
		mb, err = mailbox.NewGmailClient(context.Background(), &cfg.Gmail)
		if err != nil {
			return fmt.Errorf("failed to create Gmail client: %w", err)
		}
		logrus.Info("Using the Gmail API for the mailbox")
	}
	defer mb.Close()

	renderer := render.New(cfg.Renderer)
	defer renderer.Close()

	bot, err := telegram.New(cfg.Telegram)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	ingestion := ingest.New(st, mb, renderer, cfg.Courier.MaxMessages)
	delivery := deliver.New(st, bot, renderer)

	runOnce := func(ctx context.Context) error {
		return runPass(ctx, ingestion, delivery, m)
	}

	if cfg.Courier.LoopIntervalMinutes <= 0 {
		return runOnce(context.Background())
	}

	return runLoop(cfg, dbConn, runOnce)
}

// runPass executes ingestion then delivery. The stages are independently
// resumable through the store, so delivery still runs when ingestion failed;
// mail ingested by earlier runs should not wait for today's listing to work.
func runPass(ctx context.Context, ingestion *ingest.Pipeline, delivery *deliver.Pipeline, m *metrics.Metrics) error {
	m.RunCount.Inc()
	start := time.Now()

	ingSummary, ingErr := ingestion.Run(ctx)
	if ingSummary != nil {
		m.MessagesFound.Add(float64(ingSummary.Found))
		m.MessagesIngested.Add(float64(ingSummary.Persisted))
		m.MessagesSkipped.Add(float64(len(ingSummary.Skipped)))
	}
	if ingErr != nil {
		logrus.Errorf("Ingestion failed: %v", ingErr)
		ingErr = fmt.Errorf("ingestion: %w", ingErr)
	}

	delSummary, delErr := delivery.Run(ctx)
	if delSummary != nil {
		m.DeliverySuccesses.Add(float64(delSummary.Sent))
		m.DeliveryFailures.Add(float64(delSummary.SendFailures + delSummary.MissingArtifacts))
	}
	if delErr != nil {
		logrus.Errorf("Delivery failed: %v", delErr)
		delErr = fmt.Errorf("delivery: %w", delErr)
	}

	m.RunDuration.Observe(time.Since(start).Seconds())
	return errors.Join(ingErr, delErr)
}

// runLoop keeps the process alive, runs the pass on the configured interval
// and serves health and metrics endpoints until SIGINT/SIGTERM.
func runLoop(cfg *config.Config, dbConn *gorm.DB, runOnce func(context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(cfg.Courier.LoopIntervalMinutes, func() {
		if err := runOnce(ctx); err != nil {
			logrus.Errorf("Pipeline run failed: %v", err)
		}
	})

	router := server.New(dbConn, sched)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")
	cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Stopped gracefully")
	return nil
}

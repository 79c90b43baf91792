package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application Layer
	appService "subscription-reminder/internal/application/service"
	"subscription-reminder/internal/domain/entity"

	// Infrastructure Layer
	"subscription-reminder/internal/infrastructure/database/sqlite"
	"subscription-reminder/internal/infrastructure/engine"
	lineClient "subscription-reminder/internal/infrastructure/line"
	"subscription-reminder/internal/infrastructure/mail"
	"subscription-reminder/internal/infrastructure/metrics"
	"subscription-reminder/internal/infrastructure/scheduler"

	// Interfaces Layer
	"subscription-reminder/internal/interfaces/api/handler"
	"subscription-reminder/internal/interfaces/api/router"

	// Packages
	"subscription-reminder/internal/pkg/config"
	appLogger "subscription-reminder/internal/pkg/logger"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
	"gorm.io/gorm"
)

func gracefulShutdown(apiServer *http.Server, cronScheduler *scheduler.Scheduler, workflowEngine *engine.Engine, db *gorm.DB, log appLogger.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info("Shutting down gracefully, press Ctrl+C again to force")

	// Stop the scheduler first so no run wakes up mid-shutdown.
	// Sleeping runs stay in the database and are re-armed on the next start.
	log.Info("Stopping scheduler...")
	cronScheduler.Stop()
	log.Info("Scheduler stopped.")

	// Let runs in flight record their steps before the database goes away.
	log.Info("Waiting for running workflows...")
	engineCtx, engineCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer engineCancel()
	if err := workflowEngine.Shutdown(engineCtx); err != nil {
		log.Error("Workflow engine forced to stop", err)
	}

	// Shutdown HTTP server
	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err)
	}

	// Close database connection
	log.Info("Closing database connection...")
	if err := sqlite.CloseDB(db); err != nil {
		log.Error("Error closing database", err)
	} else {
		log.Info("Database connection closed.")
	}

	log.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLog := appLogger.New(cfg.App.Env, cfg.Log.Level)
	defer appLogger.Sync(appLog)
	appLog.Info("Logger initialized.")

	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("Invalid timezone", err)
		os.Exit(1)
	}
	offsets, err := cfg.ReminderOffsets()
	if err != nil {
		appLog.Error("Invalid reminder offsets", err)
		os.Exit(1)
	}
	schedule, err := entity.NewReminderSchedule(offsets, loc)
	if err != nil {
		appLog.Error("Invalid reminder schedule", err)
		os.Exit(1)
	}
	retryBase, err := cfg.StepRetryBase()
	if err != nil {
		appLog.Error("Invalid step retry base", err)
		os.Exit(1)
	}

	// --- Infrastructure ---
	db, err := sqlite.NewDB(cfg.Database.URL, appLog)
	if err != nil {
		appLog.Error("Failed to initialize database", err)
		os.Exit(1)
	}
	subscriptionRepo := sqlite.NewSubscriptionRepository(db)
	runRepo := sqlite.NewWorkflowRunRepository(db)
	stepRepo := sqlite.NewWorkflowStepRepository(db)
	appLog.Info("Database and repositories initialized.")

	appMetrics := metrics.New()
	cronScheduler := scheduler.NewScheduler(loc, appLog)
	workflowEngine := engine.New(runRepo, stepRepo, cronScheduler, appMetrics, appLog.With("component", "engine"),
		engine.WithRetryPolicy(engine.RetryPolicy{
			MaxRetries: uint64(cfg.Engine.StepMaxRetries),
			Base:       retryBase,
		}),
	)

	smtpClient, err := mail.NewClient(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	})
	if err != nil {
		appLog.Error("Failed to create SMTP client", err)
		os.Exit(1)
	}
	var secondaries []appService.ReminderNotifier
	if cfg.Line.Enabled() {
		line, err := lineClient.NewClient(cfg.Line.ChannelSecret, cfg.Line.ChannelAccessToken, loc, appLog)
		if err != nil {
			appLog.Error("Failed to create LINE client", err)
			os.Exit(1)
		}
		secondaries = append(secondaries, line)
	} else {
		appLog.Info("LINE credentials not set, reminders go out by email only.")
	}
	notifier := appService.NewFanoutNotifier(mail.NewSender(smtpClient, cfg.SMTP.From, loc, appLog), appLog, secondaries...)

	// --- Application Services ---
	reminderSvc := appService.NewReminderService(subscriptionRepo, notifier, schedule, appMetrics, appLog)
	workflowSvc := appService.NewWorkflowService(workflowEngine, reminderSvc, appLog)
	appLog.Info("Application services initialized.")

	// --- Resume Runs ---
	if cfg.Engine.RecoverOnStartup {
		appLog.Info("Resuming unfinished workflow runs...")
		if err := workflowSvc.InitializeRuns(context.Background()); err != nil {
			// Log the error but continue starting the server
			appLog.Error("Failed to resume workflow runs on startup", err)
		}
	}

	// --- Router ---
	echoRouter := router.NewRouter(&router.Config{
		WorkflowHandler: handler.NewWorkflowHandler(workflowSvc, appLog),
		Metrics:         appMetrics,
		Logger:          appLog.With("component", "http"),
	})

	// --- HTTP Server ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      echoRouter,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     appLog.StdLog(),
	}

	// --- Start Server & Shutdown Handling ---
	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, cronScheduler, workflowEngine, db, appLog, done)

	appLog.Info(fmt.Sprintf("Server starting on port %d", cfg.HTTP.Port))
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("HTTP server ListenAndServe error", err)
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for graceful shutdown signal
	<-done
	appLog.Info("Graceful shutdown complete.")
}

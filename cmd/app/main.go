package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HilmiKilavuz/EcoScan/internal/blob"
	"github.com/HilmiKilavuz/EcoScan/internal/config"
	"github.com/HilmiKilavuz/EcoScan/internal/db"
	"github.com/HilmiKilavuz/EcoScan/internal/ledger"
	"github.com/HilmiKilavuz/EcoScan/internal/logger"
	"github.com/HilmiKilavuz/EcoScan/internal/reward"
	"github.com/HilmiKilavuz/EcoScan/internal/scan"
	"github.com/HilmiKilavuz/EcoScan/internal/server"
	"github.com/HilmiKilavuz/EcoScan/internal/user"
)

// @title EcoScan API
// @version 1.0
// @description Waste-sorting reward service: scan, earn points, redeem rewards.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {

	logger.Init()
	logger.Info("Starting EcoScan application")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	userRepo := user.NewRepository(database)
	projection := user.NewProjection(userRepo, cfg.RedisAddr)
	defer projection.Close()

	ledgerRepo := ledger.NewRepository(database)
	scanRepo := scan.NewRepository(database)
	rewardRepo := reward.NewRepository(database)

	var classifier scan.Classifier
	if cfg.ClassifierURL != "" {
		classifier = scan.NewHTTPClassifier(cfg.ClassifierURL)
		logger.Infof("Using HTTP classifier at %s", cfg.ClassifierURL)
	} else {
		classifier = scan.NewMockClassifier()
		logger.Info("CLASSIFIER_URL not set, using mock classifier")
	}

	uploader := blob.NewUploader(cfg.WalrusPublishers)

	guard := scan.NewGuard(scanRepo, scan.DuplicateWindowHours)
	pipeline := scan.NewService(scanRepo, guard, ledgerRepo, projection, classifier, uploader)
	rewards := reward.NewService(rewardRepo, ledgerRepo, projection)

	reconciler := reward.NewReconciler(ledgerRepo, rewardRepo, projection, cfg.ReconcileSpec)
	if err := reconciler.Start(); err != nil {
		logger.Fatalf("Failed to start reconciler: %v", err)
	}
	defer reconciler.Stop()

	srv := server.New(database, cfg, projection, pipeline, rewards)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mimir-aip/microfinance-go/pkg/api"
	"github.com/mimir-aip/microfinance-go/pkg/metadatastore"
	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
	"github.com/mimir-aip/microfinance-go/pkg/platform"
	"github.com/mimir-aip/microfinance-go/pkg/queue"
	"github.com/mimir-aip/microfinance-go/pkg/scheduler"
	"github.com/mimir-aip/microfinance-go/pkg/trainer"
)

const shutdownTimeout = 30 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	log.Infof("Starting microfinance service in %s mode", cfg.Environment)

	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create storage directory")
	}
	store, err := metadatastore.NewSQLiteStore(cfg.DatabasePath())
	if err != nil {
		return errors.Wrap(err, "failed to initialize SQLite storage")
	}
	defer store.Close()
	log.Infof("Initialized SQLite storage at: %s", cfg.DatabasePath())

	svc, err := platform.NewService(cfg.Models, numeric.NewRand(cfg.RandomSeed))
	if err != nil {
		return errors.Wrap(err, "failed to build models")
	}

	checkpoints, err := scheduler.NewService(store, svc, cfg.CheckpointSchedule, cfg.CheckpointKeep)
	if err != nil {
		return errors.Wrap(err, "failed to initialize checkpoint scheduler")
	}
	if cfg.RestoreOnStart {
		ctx, cancel := context.WithTimeout(parent, shutdownTimeout)
		_, err := checkpoints.RestoreLatest(ctx)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, models.ErrNotFound):
			log.Info("No snapshot to restore, starting with fresh models")
		default:
			return errors.Wrap(err, "failed to restore latest snapshot")
		}
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := trainer.NewWorker(queue.NewQueue(), svc, store, cfg.TrainingWorkers)
	if _, err := worker.Recover(ctx); err != nil {
		return errors.Wrap(err, "failed to recover training jobs")
	}
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	if err := checkpoints.Start(); err != nil {
		return err
	}

	server := api.NewServer(svc, worker, checkpoints, cfg.Port, cfg.Timeout())
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()
	log.Info("Microfinance service started successfully")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Errorf("API server failed: %v", err)
		}
		stop()
	}

	log.Info("Shutting down microfinance service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("API server shutdown failed: %v", err)
	}
	checkpoints.Stop()
	<-workerDone

	if snapshot, err := checkpoints.Checkpoint(shutdownCtx, models.SnapshotTriggerShutdown, "shutdown"); err != nil {
		log.Errorf("Shutdown checkpoint failed: %v", err)
	} else {
		log.Infof("Shutdown checkpoint %s saved", snapshot.ID)
	}
	return nil
}

// Package scheduler checkpoints model state into the metadata store, on
// demand and on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

const checkpointTimeout = 30 * time.Second

// StateSource is the model state being checkpointed. platform.Service
// implements it.
type StateSource interface {
	Snapshot() (models.SnapshotState, error)
	Restore(state models.SnapshotState) error
}

// SnapshotStore persists snapshots. metadatastore.SQLiteStore implements it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	LatestSnapshot(ctx context.Context) (*models.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]*models.Snapshot, error)
	PruneSnapshots(ctx context.Context, trigger models.SnapshotTrigger, keep int) (int, error)
}

// Service provides snapshot operations and the periodic checkpoint
type Service struct {
	store    SnapshotStore
	source   StateSource
	cron     *cron.Cron
	schedule string
	keep     int
	entry    cron.EntryID
}

// NewService creates a checkpoint service. An empty schedule disables
// periodic checkpoints; keep bounds how many scheduled checkpoints are
// retained (0 keeps all).
func NewService(store SnapshotStore, source StateSource, schedule string, keep int) (*Service, error) {
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, errors.Wrapf(models.ErrInvalidArgument, "invalid cron expression %q: %v", schedule, err)
		}
	}
	if keep < 0 {
		return nil, errors.Wrapf(models.ErrInvalidArgument, "keep must not be negative, got %d", keep)
	}
	return &Service{
		store:    store,
		source:   source,
		cron:     cron.New(),
		schedule: schedule,
		keep:     keep,
	}, nil
}

// Start schedules the periodic checkpoint and starts the cron runner
func (s *Service) Start() error {
	if s.schedule == "" {
		log.Info("Checkpoint schedule disabled")
		return nil
	}
	schedule, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return errors.Wrap(err, "invalid cron expression")
	}
	s.entry = s.cron.Schedule(schedule, cron.FuncJob(s.runScheduled))
	s.cron.Start()
	log.Infof("Checkpoint scheduler started with schedule: %s", s.schedule)
	return nil
}

// Stop stops the cron runner and waits for a running checkpoint
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	log.Info("Checkpoint scheduler stopped")
}

// NextRun returns the next scheduled checkpoint, or the zero time when none
// is scheduled.
func (s *Service) NextRun() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Service) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
	defer cancel()

	snapshot, err := s.Checkpoint(ctx, models.SnapshotTriggerScheduled, "")
	if err != nil {
		log.Errorf("Scheduled checkpoint failed: %v", err)
		return
	}
	if s.keep > 0 {
		removed, err := s.store.PruneSnapshots(ctx, models.SnapshotTriggerScheduled, s.keep)
		if err != nil {
			log.Errorf("Failed to prune scheduled checkpoints: %v", err)
			return
		}
		if removed > 0 {
			log.Debugf("Pruned %d scheduled checkpoints", removed)
		}
	}
	log.Infof("Scheduled checkpoint %s saved", snapshot.ID)
}

// Checkpoint snapshots the models and stores the result
func (s *Service) Checkpoint(ctx context.Context, trigger models.SnapshotTrigger, label string) (*models.Snapshot, error) {
	state, err := s.source.Snapshot()
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot models")
	}
	snapshot := &models.Snapshot{
		ID:        uuid.New().String(),
		Label:     label,
		Trigger:   trigger,
		CreatedAt: time.Now().UTC(),
		State:     state,
	}
	if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Get retrieves a snapshot by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	return s.store.GetSnapshot(ctx, id)
}

// List lists snapshot metadata, newest first
func (s *Service) List(ctx context.Context) ([]*models.Snapshot, error) {
	return s.store.ListSnapshots(ctx)
}

// Restore loads a stored snapshot into the models
func (s *Service) Restore(ctx context.Context, id string) (*models.Snapshot, error) {
	snapshot, err := s.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.source.Restore(snapshot.State); err != nil {
		return nil, err
	}
	log.Infof("Restored snapshot %s (%s)", snapshot.ID, snapshot.Trigger)
	return snapshot, nil
}

// RestoreLatest loads the newest stored snapshot. It returns
// models.ErrNotFound when nothing has been stored yet.
func (s *Service) RestoreLatest(ctx context.Context) (*models.Snapshot, error) {
	snapshot, err := s.store.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.source.Restore(snapshot.State); err != nil {
		return nil, err
	}
	log.Infof("Restored latest snapshot %s from %s", snapshot.ID, snapshot.CreatedAt.Format(time.RFC3339))
	return snapshot, nil
}

package metadatastore

import (
	"context"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// MetadataStore persists model snapshots and training job records.
// Lookups of unknown ids return models.ErrNotFound.
type MetadataStore interface {
	// Snapshot operations
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	LatestSnapshot(ctx context.Context) (*models.Snapshot, error)
	// ListSnapshots returns snapshot metadata, newest first, without state.
	ListSnapshots(ctx context.Context) ([]*models.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
	// PruneSnapshots keeps the newest keep snapshots of a trigger and
	// returns how many were removed.
	PruneSnapshots(ctx context.Context, trigger models.SnapshotTrigger, keep int) (int, error)

	// Training job operations
	SaveTrainingJob(ctx context.Context, job *models.TrainingJob) error
	GetTrainingJob(ctx context.Context, id string) (*models.TrainingJob, error)
	ListTrainingJobs(ctx context.Context) ([]*models.TrainingJob, error)

	Close() error
}

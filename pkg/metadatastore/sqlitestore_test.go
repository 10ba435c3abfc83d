package metadatastore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func snapshotAt(id string, trigger models.SnapshotTrigger, at time.Time) *models.Snapshot {
	return &models.Snapshot{
		ID:        id,
		Label:     "label-" + id,
		Trigger:   trigger,
		CreatedAt: at,
		State: models.SnapshotState{
			"game": json.RawMessage(`{"score":1.5}`),
		},
	}
}

func TestSnapshotCRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	require.NoError(t, store.SaveSnapshot(ctx, snapshotAt("a", models.SnapshotTriggerManual, base)))
	require.NoError(t, store.SaveSnapshot(ctx, snapshotAt("b", models.SnapshotTriggerScheduled, base.Add(time.Minute))))

	got, err := store.GetSnapshot(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "label-a", got.Label)
	assert.Equal(t, models.SnapshotTriggerManual, got.Trigger)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.JSONEq(t, `{"score":1.5}`, string(got.State["game"]))

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
	assert.NotNil(t, latest.State)

	list, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Nil(t, list[0].State, "list omits state")

	require.NoError(t, store.DeleteSnapshot(ctx, "a"))
	_, err = store.GetSnapshot(ctx, "a")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(store.DeleteSnapshot(ctx, "a"), models.ErrNotFound))
}

func TestLatestSnapshotEmpty(t *testing.T) {
	_, err := newTestStore(t).LatestSnapshot(context.Background())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestPruneSnapshots(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Now().UTC()

	for i, id := range []string{"s1", "s2", "s3", "s4"} {
		require.NoError(t, store.SaveSnapshot(ctx, snapshotAt(id, models.SnapshotTriggerScheduled, base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, store.SaveSnapshot(ctx, snapshotAt("m1", models.SnapshotTriggerManual, base)))

	removed, err := store.PruneSnapshots(ctx, models.SnapshotTriggerScheduled, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	list, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"s4", "s3", "m1"}, ids)

	_, err = store.PruneSnapshots(ctx, models.SnapshotTriggerScheduled, -1)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestTrainingJobs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	job := &models.TrainingJob{
		ID:          "job-1",
		Status:      models.TrainingJobStatusQueued,
		Priority:    2,
		SubmittedAt: now,
		TrainingData: models.TrainingData{
			Ratings: []models.RatingInput{{User: 0, Item: 1, Rating: 5}},
		},
	}
	require.NoError(t, store.SaveTrainingJob(ctx, job))

	job.Status = models.TrainingJobStatusCompleted
	job.Trained = []string{"recommender"}
	require.NoError(t, store.SaveTrainingJob(ctx, job))
	require.NoError(t, store.SaveTrainingJob(ctx, &models.TrainingJob{ID: "job-2", Status: models.TrainingJobStatusQueued, SubmittedAt: now.Add(time.Second)}))

	got, err := store.GetTrainingJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingJobStatusCompleted, got.Status)
	assert.Equal(t, []string{"recommender"}, got.Trained)
	assert.Equal(t, job.TrainingData.Ratings, got.TrainingData.Ratings)

	jobs, err := store.ListTrainingJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-2", jobs[0].ID)

	_, err = store.GetTrainingJob(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

package trainer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/microfinance-go/pkg/metadatastore"
	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
	"github.com/mimir-aip/microfinance-go/pkg/platform"
	"github.com/mimir-aip/microfinance-go/pkg/queue"
)

type stubTrainer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubTrainer) TrainModels(req *models.TrainRequest) (*models.TrainingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return &models.TrainingSummary{Trained: []string{"fusion"}}, s.err
	}
	return &models.TrainingSummary{Trained: []string{"recommender"}}, nil
}

func ratingsRequest() *models.TrainingJobSubmissionRequest {
	return &models.TrainingJobSubmissionRequest{TrainingData: &models.TrainingData{
		Ratings: []models.RatingInput{{User: 0, Item: 1, Rating: 5}},
	}}
}

func TestSubmitValidates(t *testing.T) {
	w := NewWorker(queue.NewQueue(), &stubTrainer{}, nil, 1)
	_, err := w.Submit(context.Background(), &models.TrainingJobSubmissionRequest{})
	assert.True(t, errors.Is(err, models.ErrEmptyInput))
}

func TestRunPending(t *testing.T) {
	ctx := context.Background()
	stub := &stubTrainer{}
	w := NewWorker(queue.NewQueue(), stub, nil, 1)

	job, err := w.Submit(ctx, ratingsRequest())
	require.NoError(t, err)
	assert.Equal(t, models.TrainingJobStatusQueued, job.Status)
	assert.NotEmpty(t, job.ID)

	assert.Equal(t, 1, w.RunPending(ctx))
	assert.Equal(t, 1, stub.calls)

	got, err := w.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrainingJobStatusCompleted, got.Status)
	assert.Equal(t, []string{"recommender"}, got.Trained)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
}

func TestFailedJobKeepsPartialSummary(t *testing.T) {
	ctx := context.Background()
	w := NewWorker(queue.NewQueue(), &stubTrainer{err: models.ErrDimensionMismatch}, nil, 1)

	job, err := w.Submit(ctx, ratingsRequest())
	require.NoError(t, err)
	w.RunPending(ctx)

	got, err := w.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrainingJobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "dimension mismatch")
	assert.Equal(t, []string{"fusion"}, got.Trained)
}

func TestStartDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub := &stubTrainer{}
	w := NewWorker(queue.NewQueue(), stub, nil, 2)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Start(ctx))
		close(done)
	}()

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := w.Submit(ctx, ratingsRequest())
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	require.Eventually(t, func() bool {
		for _, id := range ids {
			job, err := w.GetJob(ctx, id)
			if err != nil || !job.Finished() {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestJobsPersistAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	store, err := metadatastore.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	svc, err := platform.NewService(models.DefaultModelConfig(), numeric.NewRand(1))
	require.NoError(t, err)

	w := NewWorker(queue.NewQueue(), svc, store, 1)
	job, err := w.Submit(ctx, ratingsRequest())
	require.NoError(t, err)
	w.RunPending(ctx)

	fresh := NewWorker(queue.NewQueue(), svc, store, 1)
	got, err := fresh.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrainingJobStatusCompleted, got.Status)
	assert.Equal(t, []string{"recommender"}, got.Trained)

	jobs, err := fresh.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	_, err = fresh.GetJob(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestFinishedJobsLeaveQueueWhenPersisted(t *testing.T) {
	ctx := context.Background()
	store, err := metadatastore.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	q := queue.NewQueue()
	w := NewWorker(q, &stubTrainer{}, store, 1)
	job, err := w.Submit(ctx, ratingsRequest())
	require.NoError(t, err)
	require.Equal(t, 1, w.RunPending(ctx))

	_, err = q.GetJob(job.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	got, err := w.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrainingJobStatusCompleted, got.Status)
}

func TestRecoverRequeuesUnfinishedJobs(t *testing.T) {
	ctx := context.Background()
	store, err := metadatastore.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	first := NewWorker(queue.NewQueue(), &stubTrainer{}, store, 1)
	queued, err := first.Submit(ctx, ratingsRequest())
	require.NoError(t, err)
	done, err := first.Submit(ctx, ratingsRequest())
	require.NoError(t, err)

	interrupted, err := first.Submit(ctx, ratingsRequest())
	require.NoError(t, err)
	interrupted.Status = models.TrainingJobStatusExecuting
	now := time.Now().UTC()
	interrupted.StartedAt = &now
	require.NoError(t, store.SaveTrainingJob(ctx, interrupted))

	completed := *done
	completed.Status = models.TrainingJobStatusCompleted
	require.NoError(t, store.SaveTrainingJob(ctx, &completed))

	// A new process starts with an empty queue on the same store
	stub := &stubTrainer{}
	second := NewWorker(queue.NewQueue(), stub, store, 1)
	n, err := second.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, second.Pending())

	n, err = second.Recover(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, 2, second.RunPending(ctx))
	assert.Equal(t, 2, stub.calls)

	for _, id := range []string{queued.ID, interrupted.ID} {
		got, err := second.GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.TrainingJobStatusCompleted, got.Status)
		assert.Equal(t, []string{"recommender"}, got.Trained)
	}
}

func TestRecoverWithoutStore(t *testing.T) {
	w := NewWorker(queue.NewQueue(), &stubTrainer{}, nil, 1)
	n, err := w.Recover(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

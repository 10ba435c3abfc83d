// Package trainer runs queued training jobs against the model service in the
// background.
package trainer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/queue"
)

const persistTimeout = 5 * time.Second

// ModelTrainer trains models in place. platform.Service implements it.
type ModelTrainer interface {
	TrainModels(req *models.TrainRequest) (*models.TrainingSummary, error)
}

// JobStore persists training job records.
type JobStore interface {
	SaveTrainingJob(ctx context.Context, job *models.TrainingJob) error
	GetTrainingJob(ctx context.Context, id string) (*models.TrainingJob, error)
	ListTrainingJobs(ctx context.Context) ([]*models.TrainingJob, error)
}

// Worker drains the training queue with bounded concurrency
type Worker struct {
	id          string
	queue       *queue.Queue
	trainer     ModelTrainer
	store       JobStore
	concurrency int
	wg          sync.WaitGroup
}

// NewWorker creates a worker. store may be nil, in which case jobs are only
// tracked in memory.
func NewWorker(q *queue.Queue, trainer ModelTrainer, store JobStore, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	hostname, _ := os.Hostname()
	return &Worker{
		id:          fmt.Sprintf("trainer-%s-%d", hostname, os.Getpid()),
		queue:       q,
		trainer:     trainer,
		store:       store,
		concurrency: concurrency,
	}
}

// Submit validates a request, records the job and queues it
func (w *Worker) Submit(ctx context.Context, req *models.TrainingJobSubmissionRequest) (*models.TrainingJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := &models.TrainingJob{
		ID:           uuid.New().String(),
		Status:       models.TrainingJobStatusQueued,
		Priority:     req.Priority,
		SubmittedAt:  time.Now().UTC(),
		TrainingData: *req.TrainingData,
	}
	if w.store != nil {
		if err := w.store.SaveTrainingJob(ctx, job); err != nil {
			return nil, errors.Wrap(err, "failed to record training job")
		}
	}
	if err := w.queue.Enqueue(job); err != nil {
		return nil, err
	}
	log.Infof("Queued training job %s (priority %d)", job.ID, job.Priority)
	return job, nil
}

// GetJob returns a job from the queue, falling back to the store for jobs
// recorded by an earlier process.
func (w *Worker) GetJob(ctx context.Context, id string) (*models.TrainingJob, error) {
	job, err := w.queue.GetJob(id)
	if err == nil || w.store == nil {
		return job, err
	}
	return w.store.GetTrainingJob(ctx, id)
}

// ListJobs returns every known job, newest first
func (w *Worker) ListJobs(ctx context.Context) ([]*models.TrainingJob, error) {
	if w.store == nil {
		return w.queue.ListJobs(), nil
	}
	return w.store.ListTrainingJobs(ctx)
}

// Start processes jobs until ctx is cancelled, then waits for running jobs
func (w *Worker) Start(ctx context.Context) error {
	log.Infof("Training worker %s starting (concurrency %d)", w.id, w.concurrency)
	sem := make(chan struct{}, w.concurrency)
	defer w.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			log.Info("Training worker shutting down...")
			return nil
		case <-w.queue.Ready():
		}

		for {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				log.Info("Training worker shutting down...")
				return nil
			}

			job, err := w.queue.Dequeue()
			if err != nil || job == nil {
				<-sem
				if err != nil {
					log.Errorf("Error dequeuing training job: %v", err)
				}
				break
			}

			w.wg.Add(1)
			go func(job *models.TrainingJob) {
				defer w.wg.Done()
				defer func() { <-sem }()
				w.process(ctx, job)
			}(job)
		}
	}
}

// RunPending synchronously processes every queued job and returns how many
// ran.
func (w *Worker) RunPending(ctx context.Context) int {
	n := 0
	for {
		job, err := w.queue.Dequeue()
		if err != nil {
			log.Errorf("Error dequeuing training job: %v", err)
			return n
		}
		if job == nil {
			return n
		}
		w.process(ctx, job)
		n++
	}
}

func (w *Worker) process(ctx context.Context, job *models.TrainingJob) {
	log.Infof("Processing training job %s", job.ID)
	w.transition(ctx, job.ID, models.TrainingJobStatusExecuting, "", nil)

	summary, err := w.trainer.TrainModels(&models.TrainRequest{TrainingData: &job.TrainingData})
	var trained []string
	if summary != nil {
		trained = summary.Trained
	}
	if err != nil {
		log.Errorf("Training job %s failed: %v", job.ID, err)
		w.transition(ctx, job.ID, models.TrainingJobStatusFailed, err.Error(), trained)
		return
	}
	log.Infof("Training job %s completed: %v", job.ID, trained)
	w.transition(ctx, job.ID, models.TrainingJobStatusCompleted, "", trained)
}

func (w *Worker) transition(ctx context.Context, id string, status models.TrainingJobStatus, msg string, trained []string) {
	job, err := w.queue.UpdateJobStatus(id, status, msg, trained)
	if err != nil {
		log.Errorf("Failed to update training job %s: %v", id, err)
		return
	}
	if w.store == nil {
		return
	}
	// Record the final status even when shutdown has begun
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := w.store.SaveTrainingJob(persistCtx, job); err != nil {
		log.Errorf("Failed to persist training job %s: %v", id, err)
		return
	}
	// Finished jobs are served from the store from here on
	if job.Finished() {
		if err := w.queue.Remove(id); err != nil {
			log.Errorf("Failed to evict training job %s: %v", id, err)
		}
	}
}

// Recover re-queues jobs that an earlier process left queued or executing,
// oldest first, and returns how many were re-queued. Jobs this worker already
// tracks are left alone.
func (w *Worker) Recover(ctx context.Context) (int, error) {
	if w.store == nil {
		return 0, nil
	}
	jobs, err := w.store.ListTrainingJobs(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list training jobs")
	}

	n := 0
	for i := len(jobs) - 1; i >= 0; i-- {
		job := jobs[i]
		if job.Finished() {
			continue
		}
		if _, err := w.queue.GetJob(job.ID); err == nil {
			continue
		}
		if job.Status == models.TrainingJobStatusExecuting {
			log.Warnf("Training job %s was interrupted while executing, re-queuing", job.ID)
		}
		job.Status = models.TrainingJobStatusQueued
		job.StartedAt = nil
		if err := w.store.SaveTrainingJob(ctx, job); err != nil {
			return n, errors.Wrapf(err, "failed to reset training job %s", job.ID)
		}
		if err := w.queue.Enqueue(job); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		log.Infof("Recovered %d unfinished training jobs", n)
	}
	return n, nil
}

// Pending returns the number of queued jobs not yet started
func (w *Worker) Pending() int {
	return w.queue.QueueLength()
}

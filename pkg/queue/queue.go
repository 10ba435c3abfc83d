package queue

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// Queue provides in-memory training job queue operations with priority support.
// Jobs stay tracked after they are dequeued so their status can be queried,
// until Remove drops them.
type Queue struct {
	mu    sync.RWMutex
	pq    *PriorityQueue
	jobs  map[string]*models.TrainingJob
	seq   uint64
	ready chan struct{}
}

// NewQueue creates a new in-memory queue instance
func NewQueue() *Queue {
	pq := make(PriorityQueue, 0)
	heap.Init(&pq)

	return &Queue{
		pq:    &pq,
		jobs:  make(map[string]*models.TrainingJob),
		ready: make(chan struct{}, 1),
	}
}

func clone(job *models.TrainingJob) *models.TrainingJob {
	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	c.Trained = append([]string(nil), job.Trained...)
	return &c
}

// Enqueue adds a training job to the queue
func (q *Queue) Enqueue(job *models.TrainingJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.ID]; exists {
		return errors.Wrapf(models.ErrInvalidArgument, "training job %s already queued", job.ID)
	}

	q.seq++
	heap.Push(q.pq, &PriorityQueueItem{
		JobID:    job.ID,
		Priority: job.Priority,
		seq:      q.seq,
	})
	q.jobs[job.ID] = clone(job)

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Ready is signalled after every Enqueue. It is buffered, so a consumer that
// was busy still sees one pending signal.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Dequeue retrieves the next training job, or nil when the queue is empty
func (q *Queue) Dequeue() (*models.TrainingJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pq.Len() == 0 {
		return nil, nil
	}

	item := heap.Pop(q.pq).(*PriorityQueueItem)
	job, ok := q.jobs[item.JobID]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "training job data %s", item.JobID)
	}
	return clone(job), nil
}

// GetJob retrieves a training job by ID
func (q *Queue) GetJob(jobID string) (*models.TrainingJob, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "training job %s", jobID)
	}
	return clone(job), nil
}

// ListJobs returns every tracked job, newest first
func (q *Queue) ListJobs() []*models.TrainingJob {
	q.mu.RLock()
	defer q.mu.RUnlock()

	jobs := make([]*models.TrainingJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		jobs = append(jobs, clone(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].SubmittedAt.Equal(jobs[j].SubmittedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].SubmittedAt.After(jobs[j].SubmittedAt)
	})
	return jobs
}

// UpdateJobStatus updates the status of a training job and returns the
// updated record
func (q *Queue) UpdateJobStatus(jobID string, status models.TrainingJobStatus, errorMsg string, trained []string) (*models.TrainingJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "training job %s", jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.ErrorMessage = errorMsg
	}
	if trained != nil {
		job.Trained = append([]string(nil), trained...)
	}

	now := time.Now()
	switch status {
	case models.TrainingJobStatusExecuting:
		job.StartedAt = &now
	case models.TrainingJobStatusCompleted, models.TrainingJobStatusFailed:
		job.CompletedAt = &now
	}
	return clone(job), nil
}

// Remove stops tracking a finished job. Jobs that are queued or executing
// cannot be removed.
func (q *Queue) Remove(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "training job %s", jobID)
	}
	if !job.Finished() {
		return errors.Wrapf(models.ErrInvalidArgument, "training job %s is still %s", jobID, job.Status)
	}
	delete(q.jobs, jobID)
	return nil
}

// QueueLength returns the number of jobs waiting to run
func (q *Queue) QueueLength() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.pq.Len()
}

// PriorityQueueItem represents an item in the priority queue
type PriorityQueueItem struct {
	JobID    string
	Priority int    // Higher value runs first
	seq      uint64 // Insertion order breaks ties
	index    int
}

// PriorityQueue implements heap.Interface
type PriorityQueue []*PriorityQueueItem

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority > pq[j].Priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*PriorityQueueItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	*pq = old[0 : n-1]
	return item
}

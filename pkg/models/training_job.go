package models

import "time"

// TrainingJobStatus represents the current status of a training job
type TrainingJobStatus string

const (
	TrainingJobStatusQueued    TrainingJobStatus = "queued"
	TrainingJobStatusExecuting TrainingJobStatus = "executing"
	TrainingJobStatusCompleted TrainingJobStatus = "completed"
	TrainingJobStatusFailed    TrainingJobStatus = "failed"
)

// TrainingJob is an asynchronous training run executed by the trainer
type TrainingJob struct {
	ID           string            `json:"job_id"`
	Status       TrainingJobStatus `json:"status"`
	Priority     int               `json:"priority"`
	SubmittedAt  time.Time         `json:"submitted_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	TrainingData TrainingData      `json:"training_data"`
	Trained      []string          `json:"trained,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// Finished reports whether the job reached a terminal state.
func (j *TrainingJob) Finished() bool {
	return j.Status == TrainingJobStatusCompleted || j.Status == TrainingJobStatusFailed
}

// TrainingJobSubmissionRequest represents a request to queue a training job
type TrainingJobSubmissionRequest struct {
	Priority     int           `json:"priority"`
	TrainingData *TrainingData `json:"training_data"`
}

// Validate checks if the TrainingJobSubmissionRequest is valid
func (r *TrainingJobSubmissionRequest) Validate() error {
	return (&TrainRequest{TrainingData: r.TrainingData}).Validate()
}

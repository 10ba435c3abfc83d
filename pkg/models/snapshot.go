package models

import (
	"encoding/json"
	"time"
)

// SnapshotTrigger records why a snapshot was taken
type SnapshotTrigger string

const (
	SnapshotTriggerManual    SnapshotTrigger = "manual"
	SnapshotTriggerScheduled SnapshotTrigger = "scheduled"
	SnapshotTriggerShutdown  SnapshotTrigger = "shutdown"
)

// SnapshotState maps a component name to its serialized state.
type SnapshotState map[string]json.RawMessage

// Snapshot is a persisted checkpoint of every model component
type Snapshot struct {
	ID        string          `json:"snapshot_id"`
	Label     string          `json:"label,omitempty"`
	Trigger   SnapshotTrigger `json:"trigger"`
	CreatedAt time.Time       `json:"created_at"`
	State     SnapshotState   `json:"state,omitempty"`
}

// SnapshotCreateRequest represents a request to checkpoint the models
type SnapshotCreateRequest struct {
	Label string `json:"label"`
}

package api

import (
	"net/http"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// handleSnapshots handles manual checkpoints (POST) and listing (GET)
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req models.SnapshotCreateRequest
		if err := decodeJSON(r, &req, true); err != nil {
			writeServiceError(w, r, err)
			return
		}
		snapshot, err := s.checkpoints.Checkpoint(r.Context(), models.SnapshotTriggerManual, req.Label)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSONResponse(w, http.StatusCreated, withoutState(snapshot))
	case http.MethodGet:
		snapshots, err := s.checkpoints.List(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"snapshots": snapshots,
			"count":     len(snapshots),
		})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleSnapshotByID serves GET /api/snapshots/{id} and
// POST /api/snapshots/{id}/restore
func (s *Server) handleSnapshotByID(w http.ResponseWriter, r *http.Request) {
	id, action := pathID(r.URL.Path, "/api/snapshots/")
	if id == "" {
		writeErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		snapshot, err := s.checkpoints.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, snapshot)
	case "restore":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		snapshot, err := s.checkpoints.Restore(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"message":  "Snapshot restored successfully",
			"snapshot": withoutState(snapshot),
		})
	default:
		writeErrorResponse(w, http.StatusNotFound, "Not found")
	}
}

func withoutState(snapshot *models.Snapshot) *models.Snapshot {
	meta := *snapshot
	meta.State = nil
	return &meta
}

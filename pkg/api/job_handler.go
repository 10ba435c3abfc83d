package api

import (
	"net/http"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// handleTrainingJobs handles job submission (POST) and listing (GET)
func (s *Server) handleTrainingJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleJobSubmission(w, r)
	case http.MethodGet:
		s.handleJobList(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (s *Server) handleJobSubmission(w http.ResponseWriter, r *http.Request) {
	var req models.TrainingJobSubmissionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}
	job, err := s.worker.Submit(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, job)
}

func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.worker.ListJobs(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleTrainingJobByID handles requests for a specific job
func (s *Server) handleTrainingJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	id, action := pathID(r.URL.Path, "/api/training-jobs/")
	if id == "" || action != "" {
		writeErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}
	job, err := s.worker.GetJob(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, job)
}

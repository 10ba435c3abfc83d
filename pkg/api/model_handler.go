package api

import (
	"net/http"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// decodePost rejects non-POST requests and decodes the body into v. It
// reports whether the handler should continue.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return false
	}
	if err := decodeJSON(r, v, false); err != nil {
		writeServiceError(w, r, err)
		return false
	}
	return true
}

func (s *Server) handleAssessCredit(w http.ResponseWriter, r *http.Request) {
	var req models.CreditAssessmentRequest
	if !decodePost(w, r, &req) {
		return
	}
	result, err := s.service.AssessCreditworthiness(&req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (s *Server) handleVerifyCompliance(w http.ResponseWriter, r *http.Request) {
	var req models.ComplianceRequest
	if !decodePost(w, r, &req) {
		return
	}
	result, err := s.service.VerifyCompliance(&req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (s *Server) handleEnrollBiometric(w http.ResponseWriter, r *http.Request) {
	var req models.BiometricEnrollRequest
	if !decodePost(w, r, &req) {
		return
	}
	if err := s.service.EnrollBiometric(&req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessageResponse(w, "Biometric data enrolled successfully")
}

func (s *Server) handleSetComplianceRule(w http.ResponseWriter, r *http.Request) {
	var req models.ComplianceRuleRequest
	if !decodePost(w, r, &req) {
		return
	}
	if err := s.service.SetComplianceRule(&req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessageResponse(w, "Compliance rule set successfully")
}

func (s *Server) handleAnalyzeBehavior(w http.ResponseWriter, r *http.Request) {
	var req models.BehaviorRequest
	if !decodePost(w, r, &req) {
		return
	}
	result, err := s.service.AnalyzeBehavior(&req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (s *Server) handleTrackESG(w http.ResponseWriter, r *http.Request) {
	var req models.ESGRequest
	if !decodePost(w, r, &req) {
		return
	}
	result, err := s.service.TrackESG(&req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (s *Server) handleRecommendLoans(w http.ResponseWriter, r *http.Request) {
	var req models.LoanRequest
	if !decodePost(w, r, &req) {
		return
	}
	result, err := s.service.RecommendLoans(&req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// handleTrainModels trains synchronously. Use /api/training-jobs to train
// in the background.
func (s *Server) handleTrainModels(w http.ResponseWriter, r *http.Request) {
	var req models.TrainRequest
	if !decodePost(w, r, &req) {
		return
	}
	summary, err := s.service.TrainModels(&req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"message": "Models trained successfully",
		"trained": summary.Trained,
	})
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidation(t *testing.T) {
	user := 0
	tests := []struct {
		name    string
		req     interface{ Validate() error }
		wantErr error
	}{
		{"credit ok", &CreditAssessmentRequest{Data: []float64{1}}, nil},
		{"credit missing data", &CreditAssessmentRequest{}, ErrEmptyInput},
		{"compliance ok", &ComplianceRequest{UserData: map[string]interface{}{"a": 1}, DocumentText: "X", TransactionData: []float64{1}}, nil},
		{"compliance missing text", &ComplianceRequest{UserData: map[string]interface{}{"a": 1}, TransactionData: []float64{1}}, ErrEmptyInput},
		{"enroll missing bio", &BiometricEnrollRequest{UserID: "u"}, ErrEmptyInput},
		{"rule missing conditions", &ComplianceRuleRequest{ContractID: "c"}, ErrEmptyInput},
		{"behavior missing features", &BehaviorRequest{}, ErrEmptyInput},
		{"esg missing impact", &ESGRequest{SourceData: map[string][]float64{"a": {1}}, Factors: []float64{1}}, ErrEmptyInput},
		{"loan ok", &LoanRequest{UserID: &user}, nil},
		{"loan missing user", &LoanRequest{}, ErrEmptyInput},
		{"train nil", &TrainRequest{}, ErrEmptyInput},
		{"train nothing named", &TrainRequest{TrainingData: &TrainingData{Epochs: 3}}, ErrEmptyInput},
		{"train negative epochs", &TrainRequest{TrainingData: &TrainingData{AML: [][]float64{{1}}, Epochs: -1}}, ErrInvalidArgument},
		{"train ok", &TrainRequest{TrainingData: &TrainingData{Ratings: []RatingInput{{User: 0, Item: 1, Rating: 5}}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestESGRiskDefault(t *testing.T) {
	var req ESGRequest
	require.NoError(t, json.Unmarshal([]byte(`{"source_data":{"a":[1]}}`), &req))
	assert.Equal(t, DefaultESGRisk, req.RiskOrDefault())

	require.NoError(t, json.Unmarshal([]byte(`{"risk":0}`), &req))
	assert.Equal(t, 0.0, req.RiskOrDefault())
}

func TestComplianceBiometricID(t *testing.T) {
	req := ComplianceRequest{UserData: map[string]interface{}{"idNumber": "ID42"}}
	assert.Equal(t, "ID42", req.BiometricID())

	req.UserData["idNumber"] = 42.0
	assert.Empty(t, req.BiometricID())
}

func TestOptionalResultsEncodeAsNull(t *testing.T) {
	out, err := json.Marshal(CreditAssessment{AlternativeScore: 0.5, FinalScore: 0.5})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"federated_score":null`)
	assert.Contains(t, string(out), `"gnn_score":null`)
}

func TestModelConfigValidate(t *testing.T) {
	require.NoError(t, DefaultModelConfig().Validate())

	cfg := DefaultModelConfig()
	cfg.Decay = 1
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidArgument))

	cfg = DefaultModelConfig()
	cfg.Items = 0
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidArgument))
}

func TestTrainingJobFinished(t *testing.T) {
	job := TrainingJob{Status: TrainingJobStatusExecuting}
	assert.False(t, job.Finished())
	job.Status = TrainingJobStatusFailed
	assert.True(t, job.Finished())
}

package platform

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/microfinance-go/pkg/behavior"
	"github.com/mimir-aip/microfinance-go/pkg/esg"
	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

func newTestService(t *testing.T, seed int64) *Service {
	t.Helper()
	s, err := NewService(models.DefaultModelConfig(), numeric.NewRand(seed))
	require.NoError(t, err)
	return s
}

func identity(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

func TestNewServiceRejectsBadConfig(t *testing.T) {
	cfg := models.DefaultModelConfig()
	cfg.GraphSize = 0
	_, err := NewService(cfg, numeric.NewRand(1))
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestAssessCreditworthiness(t *testing.T) {
	s := newTestService(t, 42)
	data := []float64{1, 2, 3, 4, 5}

	res, err := s.AssessCreditworthiness(&models.CreditAssessmentRequest{Data: data})
	require.NoError(t, err)
	assert.Nil(t, res.FederatedScore, "federated ensemble is untrained")
	assert.Nil(t, res.GNNScore)
	assert.Equal(t, res.AlternativeScore, res.FinalScore)
	assert.InDelta(t, numeric.Sigmoid(0.1*res.FinalScore), res.DynamicScore, 1e-12)

	again, err := s.AssessCreditworthiness(&models.CreditAssessmentRequest{Data: data})
	require.NoError(t, err)
	assert.Equal(t, res.AlternativeScore, again.AlternativeScore)
	assert.Greater(t, again.DynamicScore, res.DynamicScore)

	social, err := s.AssessCreditworthiness(&models.CreditAssessmentRequest{
		Data:       data,
		SocialData: &models.SocialData{Nodes: []float64{1, 0, 1, 0, 1}, Connections: identity(5)},
	})
	require.NoError(t, err)
	require.Len(t, social.GNNScore, 5)
	var sum float64
	for _, v := range social.GNNScore {
		sum += v
	}
	assert.InDelta(t, (social.AlternativeScore+sum/5)/2, social.FinalScore, 1e-12)
}

func TestAssessCreditworthinessErrorsLeaveStateAlone(t *testing.T) {
	s := newTestService(t, 7)
	before, err := s.Snapshot()
	require.NoError(t, err)

	_, err = s.AssessCreditworthiness(&models.CreditAssessmentRequest{})
	assert.True(t, errors.Is(err, models.ErrEmptyInput))

	_, err = s.AssessCreditworthiness(&models.CreditAssessmentRequest{Data: []float64{1, 2}})
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))

	_, err = s.AssessCreditworthiness(&models.CreditAssessmentRequest{
		Data:       []float64{1, 2, 3, 4, 5},
		SocialData: &models.SocialData{Nodes: []float64{1}, Connections: identity(1)},
	})
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))

	after, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFederatedScoreAfterTraining(t *testing.T) {
	s := newTestService(t, 3)
	shard := [][]float64{{1, 2, 3, 4, 5}, {5, 4, 3, 2, 1}}
	_, err := s.TrainModels(&models.TrainRequest{TrainingData: &models.TrainingData{
		Federated: &models.FederatedTraining{
			Datasets: [][][]float64{shard, shard, shard},
			Targets:  [][]float64{{1, 0}, {1, 0}, {1, 0}},
		},
		Epochs: 5,
	}})
	require.NoError(t, err)

	res, err := s.AssessCreditworthiness(&models.CreditAssessmentRequest{Data: []float64{0, 0, 0, 0, 0}})
	require.NoError(t, err)
	require.NotNil(t, res.FederatedScore)
	assert.Greater(t, *res.FederatedScore, 0.0)
	assert.Less(t, *res.FederatedScore, 1.0)
}

func complianceRequest() *models.ComplianceRequest {
	return &models.ComplianceRequest{
		UserData:        map[string]interface{}{"name": "Jane", "idNumber": "ID1"},
		DocumentText:    "JANE DOE 1990-01-01 AB123",
		TransactionData: []float64{0, 0, 0, 0, 0},
	}
}

func TestVerifyCompliance(t *testing.T) {
	s := newTestService(t, 11)

	first, err := s.VerifyCompliance(complianceRequest())
	require.NoError(t, err)
	assert.False(t, first.KYCVerified, "first sighting appends to the chain")
	assert.True(t, first.DocumentVerified)
	assert.False(t, first.AnomalyDetected)
	assert.True(t, first.AMLCheckPassed)
	assert.Nil(t, first.BiometricVerified)
	assert.Nil(t, first.ContractCompliance)
	assert.False(t, first.ComplianceStatus)

	second, err := s.VerifyCompliance(complianceRequest())
	require.NoError(t, err)
	assert.True(t, second.KYCVerified)
	assert.True(t, second.ComplianceStatus)
}

func TestVerifyComplianceOptionalChecks(t *testing.T) {
	s := newTestService(t, 11)
	require.NoError(t, s.EnrollBiometric(&models.BiometricEnrollRequest{UserID: "ID1", BioData: []float64{0.5, 0.5}}))
	require.NoError(t, s.SetComplianceRule(&models.ComplianceRuleRequest{
		ContractID: "c1",
		Conditions: map[string]interface{}{"age_verified": true, "country": "KE"},
	}))
	_, err := s.VerifyCompliance(complianceRequest())
	require.NoError(t, err)

	req := complianceRequest()
	req.BioData = []float64{0.52, 0.5}
	req.ContractID = "c1"
	req.Conditions = map[string]interface{}{"age_verified": true}
	res, err := s.VerifyCompliance(req)
	require.NoError(t, err)
	require.NotNil(t, res.BiometricVerified)
	require.NotNil(t, res.ContractCompliance)
	assert.True(t, *res.BiometricVerified)
	assert.True(t, *res.ContractCompliance)
	assert.True(t, res.ComplianceStatus)

	req.BioData = []float64{0.9, 0.5}
	req.Conditions = map[string]interface{}{"country": "UG"}
	res, err = s.VerifyCompliance(req)
	require.NoError(t, err)
	assert.False(t, *res.BiometricVerified)
	assert.False(t, *res.ContractCompliance)
	assert.False(t, res.ComplianceStatus)

	req.Conditions = map[string]interface{}{"nested": map[string]interface{}{}}
	_, err = s.VerifyCompliance(req)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestVerifyComplianceValidatesBeforeKYC(t *testing.T) {
	s := newTestService(t, 5)
	req := complianceRequest()
	req.TransactionData = []float64{1, 2}
	_, err := s.VerifyCompliance(req)
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))

	res, err := s.VerifyCompliance(complianceRequest())
	require.NoError(t, err)
	assert.False(t, res.KYCVerified, "failed request must not extend the chain")
}

func TestAnalyzeBehavior(t *testing.T) {
	s := newTestService(t, 13)
	features := []float64{0.5, -1, 2}

	res, err := s.AnalyzeBehavior(&models.BehaviorRequest{Features: features})
	require.NoError(t, err)
	assert.Nil(t, res.LifestyleGroup)
	assert.Len(t, res.PrivateFeatures, 3)
	assert.InDelta(t, behavior.DefaultUtility(0.5), res.UtilityScore, 1e-12)
	assert.Equal(t, []float64{0.5, -1, 2}, features, "features are not modified")

	_, err = s.TrainModels(&models.TrainRequest{TrainingData: &models.TrainingData{
		Lifestyle: [][]float64{{0, 0, 0}, {0, 1, 0}, {10, 10, 10}, {10, 11, 10}, {-10, -10, -10}, {-10, -11, -10}},
	}})
	require.NoError(t, err)

	res, err = s.AnalyzeBehavior(&models.BehaviorRequest{Features: features})
	require.NoError(t, err)
	require.NotNil(t, res.LifestyleGroup)
	assert.GreaterOrEqual(t, *res.LifestyleGroup, 0)
	assert.Less(t, *res.LifestyleGroup, 3)
}

func TestAnalyzeBehaviorMismatchKeepsWindow(t *testing.T) {
	s := newTestService(t, 13)
	before, err := s.Snapshot()
	require.NoError(t, err)

	_, err = s.AnalyzeBehavior(&models.BehaviorRequest{Features: []float64{1, 2}})
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))

	after, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before["forecaster"], after["forecaster"])
}

func TestTrackESG(t *testing.T) {
	s := newTestService(t, 17)
	state, err := s.Snapshot()
	require.NoError(t, err)
	var optimizer esg.OptimizerState
	require.NoError(t, json.Unmarshal(state["esg_optimizer"], &optimizer))

	res, err := s.TrackESG(&models.ESGRequest{
		SourceData: map[string][]float64{"a": {1, 2, 3}},
		Factors:    []float64{1, 4},
		ImpactData: []float64{1, 1, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 2}, res.AggregatedData)
	assert.Equal(t, map[string]float64{"a": 2}, res.Visualization)
	assert.InDelta(t, numeric.Sigmoid(4.5), res.ESGScore, 1e-12)
	assert.InDelta(t, optimizer.GreenFactor*res.ESGScore-models.DefaultESGRisk, res.OptimizedBalance, 1e-12)

	risk := 0.0
	res, err = s.TrackESG(&models.ESGRequest{
		SourceData: map[string][]float64{"b": {4, 6}},
		Factors:    []float64{1},
		ImpactData: []float64{0, 0, 0},
		Risk:       &risk,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 2, "b": 5}, res.AggregatedData)
	assert.Equal(t, map[string]float64{"b": 5}, res.Visualization)
	assert.Equal(t, 0.0, res.Impact)
	assert.InDelta(t, optimizer.GreenFactor*res.ESGScore, res.OptimizedBalance, 1e-12)
}

func TestTrackESGEmptySourceMergesNothing(t *testing.T) {
	s := newTestService(t, 17)
	_, err := s.TrackESG(&models.ESGRequest{
		SourceData: map[string][]float64{"a": {1}, "b": {}},
		Factors:    []float64{1},
		ImpactData: []float64{1, 1, 1},
	})
	assert.True(t, errors.Is(err, models.ErrEmptyInput))

	res, err := s.TrackESG(&models.ESGRequest{
		SourceData: map[string][]float64{"c": {3}},
		Factors:    []float64{1},
		ImpactData: []float64{1, 1, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"c": 3}, res.AggregatedData)
}

func TestRecommendLoans(t *testing.T) {
	s := newTestService(t, 19)
	_, err := s.TrainModels(&models.TrainRequest{TrainingData: &models.TrainingData{
		Ratings: []models.RatingInput{{User: 0, Item: 1, Rating: 5}, {User: 0, Item: 2, Rating: 3}, {User: 1, Item: 0, Rating: 4}},
	}})
	require.NoError(t, err)

	user := 0
	res, err := s.RecommendLoans(&models.LoanRequest{UserID: &user, Score: 0.8, Risk: 0.6})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0}, res.Recommendations)
	assert.InDelta(t, 0.5, res.Terms.Rate, 1e-12)
	assert.Regexp(t, `^\d+\.\d{2}$`, res.Terms.AmountDisplay)
	assert.Nil(t, res.Guidance)
	assert.Nil(t, res.GameReward)
	assert.Nil(t, res.CrossSell)

	action := 1.0
	res, err = s.RecommendLoans(&models.LoanRequest{
		UserID:       &user,
		Score:        0.8,
		Risk:         0.6,
		Query:        "Any LOAN offers?",
		Action:       &action,
		Transactions: []string{"savings", "insurance", "savings"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Guidance)
	assert.Equal(t, "We offer various loans!", *res.Guidance)
	require.NotNil(t, res.GameReward)
	assert.LessOrEqual(t, *res.GameReward, 10.0)
	assert.GreaterOrEqual(t, *res.GameReward, -10.0)
	assert.Equal(t, []string{"savings", "insurance"}, res.CrossSell)
}

func TestRecommendLoansErrors(t *testing.T) {
	s := newTestService(t, 19)
	user := 9
	_, err := s.RecommendLoans(&models.LoanRequest{UserID: &user})
	assert.True(t, errors.Is(err, models.ErrOutOfRange))

	user = 0
	_, err = s.RecommendLoans(&models.LoanRequest{UserID: &user, Score: 1, Risk: -1})
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))

	_, err = s.RecommendLoans(&models.LoanRequest{})
	assert.True(t, errors.Is(err, models.ErrEmptyInput))
}

func TestTrainModelsOrderAndPartialFailure(t *testing.T) {
	s := newTestService(t, 23)
	summary, err := s.TrainModels(&models.TrainRequest{TrainingData: &models.TrainingData{
		AltData:      [][]float64{{1, 2, 3, 4, 5}},
		Targets:      []float64{0.9},
		Graph:        &models.GraphTraining{Nodes: []float64{1, 1, 1, 1, 1}, Connections: identity(5), Targets: []float64{1, 1, 1, 1, 1}},
		Sentiment:    &models.SupervisedSet{Samples: [][]float64{{1, 2, 3}}, Targets: []float64{0.7}},
		AML:          [][]float64{{1, 1, 1, 1, 1}, {3, 3, 3, 3, 3}},
		Impact:       &models.SupervisedSet{Samples: [][]float64{{1, 0, 0}}, Targets: []float64{2}},
		Transactions: [][]string{{"a", "b"}},
		Epochs:       3,
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"fusion", "graph", "sentiment", "aml", "impact", "cross_selling"}, summary.Trained)

	summary, err = s.TrainModels(&models.TrainRequest{TrainingData: &models.TrainingData{
		AltData: [][]float64{{1, 2, 3, 4, 5}},
		Targets: []float64{0.9},
		Graph:   &models.GraphTraining{Nodes: []float64{1}, Connections: identity(1), Targets: []float64{1}},
	}})
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))
	assert.Equal(t, []string{"fusion"}, summary.Trained)

	_, err = s.TrainModels(&models.TrainRequest{TrainingData: &models.TrainingData{}})
	assert.True(t, errors.Is(err, models.ErrEmptyInput))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	a := newTestService(t, 29)
	user := 0
	_, err := a.TrainModels(&models.TrainRequest{TrainingData: &models.TrainingData{
		AltData:      [][]float64{{1, 2, 3, 4, 5}},
		Targets:      []float64{0.9},
		Lifestyle:    [][]float64{{0, 0, 0}, {1, 1, 1}, {5, 5, 5}, {6, 6, 6}},
		Ratings:      []models.RatingInput{{User: 0, Item: 3, Rating: 2}},
		Transactions: [][]string{{"x", "y", "x"}},
	}})
	require.NoError(t, err)
	require.NoError(t, a.EnrollBiometric(&models.BiometricEnrollRequest{UserID: "u1", BioData: []float64{1, 2}}))
	require.NoError(t, a.SetComplianceRule(&models.ComplianceRuleRequest{ContractID: "c", Conditions: map[string]interface{}{"ok": true}}))
	_, err = a.VerifyCompliance(complianceRequest())
	require.NoError(t, err)
	_, err = a.RecommendLoans(&models.LoanRequest{UserID: &user, Score: 0.5})
	require.NoError(t, err)

	state, err := a.Snapshot()
	require.NoError(t, err)

	b := newTestService(t, 31)
	require.NoError(t, b.Restore(state))
	restored, err := b.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, state, restored)

	req := &models.CreditAssessmentRequest{Data: []float64{1, 2, 3, 4, 5}}
	ra, err := a.AssessCreditworthiness(req)
	require.NoError(t, err)
	rb, err := b.AssessCreditworthiness(req)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)

	kyc, err := b.VerifyCompliance(complianceRequest())
	require.NoError(t, err)
	assert.True(t, kyc.KYCVerified, "restored chain already holds the user")
}

func TestRestoreIsAllOrNothing(t *testing.T) {
	s := newTestService(t, 37)
	before, err := s.Snapshot()
	require.NoError(t, err)

	partial := models.SnapshotState{}
	for k, v := range before {
		partial[k] = v
	}
	delete(partial, "cross_selling")
	assert.True(t, errors.Is(s.Restore(partial), models.ErrInvalidArgument))

	cfg := models.DefaultModelConfig()
	cfg.Items = 7
	other, err := NewService(cfg, numeric.NewRand(1))
	require.NoError(t, err)
	mismatched, err := other.Snapshot()
	require.NoError(t, err)
	assert.True(t, errors.Is(s.Restore(mismatched), models.ErrDimensionMismatch))

	broken := models.SnapshotState{}
	for k, v := range before {
		broken[k] = v
	}
	broken["fusion"] = json.RawMessage(`{"weights":"nope"}`)
	assert.True(t, errors.Is(s.Restore(broken), models.ErrInvalidArgument))

	after, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestConcurrentRequests(t *testing.T) {
	s := newTestService(t, 41)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := i % 5
			_, err := s.AssessCreditworthiness(&models.CreditAssessmentRequest{Data: []float64{1, 2, 3, 4, float64(i)}})
			assert.NoError(t, err)
			_, err = s.RecommendLoans(&models.LoanRequest{UserID: &user, Score: 0.5, Transactions: []string{"a"}})
			assert.NoError(t, err)
			_, err = s.AnalyzeBehavior(&models.BehaviorRequest{Features: []float64{1, 2, 3}})
			assert.NoError(t, err)
			_, err = s.Snapshot()
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestTrainModelsRollsBackDivergentModel(t *testing.T) {
	s := newTestService(t, 23)
	before, err := s.Snapshot()
	require.NoError(t, err)

	summary, err := s.TrainModels(&models.TrainRequest{TrainingData: &models.TrainingData{
		Impact:       &models.SupervisedSet{Samples: [][]float64{{100, 200, 300}}, Targets: []float64{1}},
		Epochs:       200,
		LearningRate: 0.5,
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
	assert.Empty(t, summary.Trained)

	after, err := s.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, string(before["impact"]), string(after["impact"]))

	res, err := s.TrackESG(&models.ESGRequest{
		SourceData: map[string][]float64{"a": {1}},
		Factors:    []float64{1},
		ImpactData: []float64{1, 1, 1},
	})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.Impact))
}

func TestOverflowingBlendIsRejected(t *testing.T) {
	s := newTestService(t, 29)
	_, err := s.TrackESG(&models.ESGRequest{
		SourceData: map[string][]float64{"a": {1, 3}},
		Factors:    []float64{1},
		ImpactData: []float64{1, 1, 1},
	})
	require.NoError(t, err)

	_, err = s.TrackESG(&models.ESGRequest{
		SourceData: map[string][]float64{"a": {math.MaxFloat64, math.MaxFloat64}, "b": {1}},
		Factors:    []float64{1},
		ImpactData: []float64{1, 1, 1},
	})
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))

	state, err := s.Snapshot()
	require.NoError(t, err)
	var aggregator esg.AggregatorState
	require.NoError(t, json.Unmarshal(state["esg_aggregator"], &aggregator))
	assert.Equal(t, map[string]float64{"a": 2}, aggregator.Data)
}

// Package platform composes the model components into the operations the
// service exposes. Service is safe for concurrent use: each component group
// (credit, compliance, behavior, esg, lending) is guarded by its own mutex.
package platform

import (
	"math"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/microfinance-go/pkg/behavior"
	"github.com/mimir-aip/microfinance-go/pkg/compliance"
	"github.com/mimir-aip/microfinance-go/pkg/credit"
	"github.com/mimir-aip/microfinance-go/pkg/esg"
	"github.com/mimir-aip/microfinance-go/pkg/lending"
	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// Service is the microfinance facade.
type Service struct {
	cfg models.ModelConfig

	seedMu sync.Mutex
	seeds  *rand.Rand

	credit     *creditGroup
	compliance *complianceGroup
	behavior   *behaviorGroup
	esg        *esgGroup
	lending    *lendingGroup
}

// NewService builds every component from cfg. Each group draws from its own
// generator seeded from rng, so rng is only used during construction.
func NewService(cfg models.ModelConfig, rng *rand.Rand) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model config")
	}
	s := &Service{cfg: cfg, seeds: rng}
	if err := s.build(); err != nil {
		return nil, err
	}
	log.Infof("Microfinance service initialized (fusion=%d graph=%d institutions=%d users=%d items=%d)",
		cfg.FusionInputs, cfg.GraphSize, cfg.Institutions, cfg.Users, cfg.Items)
	return s, nil
}

func (s *Service) build() error {
	c, err := newCreditGroup(s.cfg, s.childRand())
	if err != nil {
		return err
	}
	s.credit = c
	s.compliance = newComplianceGroup(s.cfg, s.childRand())
	s.behavior = newBehaviorGroup(s.cfg, s.childRand())
	s.esg = newESGGroup(s.cfg, s.childRand())
	s.lending = newLendingGroup(s.cfg, s.childRand())
	return nil
}

func (s *Service) childRand() *rand.Rand {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	return rand.New(rand.NewSource(s.seeds.Int63()))
}

// Config returns the model configuration the service was built with.
func (s *Service) Config() models.ModelConfig {
	return s.cfg
}

// AssessCreditworthiness scores a borrower from alternative data and an
// optional social graph, then feeds the final score into the dynamic score.
func (s *Service) AssessCreditworthiness(req *models.CreditAssessmentRequest) (*models.CreditAssessment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	g := s.credit
	g.mu.Lock()
	defer g.mu.Unlock()

	alt, err := g.fusion.Predict(req.Data)
	if err != nil {
		return nil, errors.Wrap(err, "alternative data score")
	}
	result := &models.CreditAssessment{AlternativeScore: alt, FinalScore: alt}

	if req.SocialData != nil {
		gnn, err := g.graph.Predict(req.SocialData.Nodes, req.SocialData.Connections)
		if err != nil {
			return nil, errors.Wrap(err, "social graph score")
		}
		result.GNNScore = gnn
		result.FinalScore = (alt + stat.Mean(gnn, nil)) / 2
	}

	federated, err := g.federated.Predict(req.Data)
	switch {
	case err == nil:
		result.FederatedScore = &federated
	case errors.Is(err, models.ErrNotFitted):
	default:
		return nil, errors.Wrap(err, "federated score")
	}

	err = guard[credit.DynamicState]("dynamic", g.dynamic, func() error {
		g.dynamic.Update(req.Data, result.FinalScore)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "dynamic score")
	}
	result.DynamicScore = g.dynamic.Predict()
	return result, nil
}

// VerifyCompliance runs KYC, document, AML and the optional biometric and
// contract checks. Inputs are validated before the KYC chain is extended.
func (s *Service) VerifyCompliance(req *models.ComplianceRequest) (*models.ComplianceResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var conditions compliance.Conditions
	if req.ContractID != "" && len(req.Conditions) > 0 {
		c, err := compliance.ConditionsOf(req.Conditions)
		if err != nil {
			return nil, errors.Wrap(err, "contract conditions")
		}
		conditions = c
	}

	g := s.compliance
	g.mu.Lock()
	defer g.mu.Unlock()

	anomaly, err := g.aml.Detect(req.TransactionData, s.cfg.AMLThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "aml check")
	}
	kyc, err := g.kyc.Verify(req.UserData)
	if err != nil {
		return nil, errors.Wrap(err, "kyc check")
	}
	result := &models.ComplianceResult{
		KYCVerified:      kyc,
		DocumentVerified: g.documents.Check(req.DocumentText),
		AnomalyDetected:  anomaly,
		AMLCheckPassed:   !anomaly,
	}
	if id := req.BiometricID(); len(req.BioData) > 0 && id != "" {
		ok := g.biometric.Verify(id, req.BioData)
		result.BiometricVerified = &ok
	}
	if conditions != nil {
		ok := g.contract.Check(req.ContractID, conditions)
		result.ContractCompliance = &ok
	}
	result.ComplianceStatus = result.KYCVerified && result.DocumentVerified && result.AMLCheckPassed &&
		(result.BiometricVerified == nil || *result.BiometricVerified) &&
		(result.ContractCompliance == nil || *result.ContractCompliance)
	return result, nil
}

// EnrollBiometric stores a biometric template for a user.
func (s *Service) EnrollBiometric(req *models.BiometricEnrollRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	g := s.compliance
	g.mu.Lock()
	defer g.mu.Unlock()
	err := guard[compliance.BiometricState]("biometric", g.biometric, func() error {
		return g.biometric.Enroll(req.UserID, req.BioData)
	})
	if err != nil {
		return err
	}
	log.Debugf("Enrolled biometric template for %s", req.UserID)
	return nil
}

// SetComplianceRule stores or replaces the conditions of a contract.
func (s *Service) SetComplianceRule(req *models.ComplianceRuleRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	conditions, err := compliance.ConditionsOf(req.Conditions)
	if err != nil {
		return errors.Wrap(err, "contract conditions")
	}
	g := s.compliance
	g.mu.Lock()
	defer g.mu.Unlock()
	g.contract.SetRule(req.ContractID, conditions)
	log.Debugf("Set compliance rule %s (%d conditions)", req.ContractID, len(conditions))
	return nil
}

// AnalyzeBehavior reports sentiment, lifestyle group, stability, a veiled copy
// of the features and the utility of the first feature. The forecaster
// window only advances once every other check has passed.
func (s *Service) AnalyzeBehavior(req *models.BehaviorRequest) (*models.BehaviorAnalysis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	g := s.behavior
	g.mu.Lock()
	defer g.mu.Unlock()

	sentiment, err := g.sentiment.Predict(req.Features)
	if err != nil {
		return nil, errors.Wrap(err, "sentiment")
	}
	result := &models.BehaviorAnalysis{Sentiment: sentiment}

	group, err := g.segmenter.Predict(req.Features)
	switch {
	case err == nil:
		result.LifestyleGroup = &group
	case errors.Is(err, models.ErrNotFitted):
	default:
		return nil, errors.Wrap(err, "lifestyle group")
	}

	err = guard[behavior.ForecasterState]("forecaster", g.forecaster, func() error {
		var perr error
		result.Stability, perr = g.forecaster.Predict(req.Features)
		return perr
	})
	if err != nil {
		return nil, errors.Wrap(err, "stability")
	}
	result.PrivateFeatures = g.privacy.Veil(req.Features)
	result.UtilityScore = behavior.DefaultUtility(req.Features[0])
	return result, nil
}

// TrackESG aggregates source data, scores the factors, measures impact and
// balances the score against risk.
func (s *Service) TrackESG(req *models.ESGRequest) (*models.ESGReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	g := s.esg
	g.mu.Lock()
	defer g.mu.Unlock()

	visualization, err := g.visualizer.Map(req.SourceData)
	if err != nil {
		return nil, errors.Wrap(err, "esg visualization")
	}
	score, err := g.scorer.Score(req.Factors)
	if err != nil {
		return nil, errors.Wrap(err, "esg score")
	}
	impact, err := g.impact.Ripple(req.ImpactData)
	if err != nil {
		return nil, errors.Wrap(err, "esg impact")
	}
	var aggregated map[string]float64
	err = guard[esg.AggregatorState]("esg_aggregator", g.aggregator, func() error {
		var berr error
		aggregated, berr = g.aggregator.Blend(req.SourceData)
		return berr
	})
	if err != nil {
		return nil, errors.Wrap(err, "esg aggregation")
	}
	return &models.ESGReport{
		AggregatedData:   aggregated,
		ESGScore:         score,
		Impact:           impact,
		OptimizedBalance: g.optimizer.Balance(score, req.RiskOrDefault()),
		Visualization:    visualization,
	}, nil
}

// RecommendLoans returns the top items for a user with structured terms and
// the optional chatbot, game and cross-selling outputs.
func (s *Service) RecommendLoans(req *models.LoanRequest) (*models.LoanRecommendation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	g := s.lending
	g.mu.Lock()
	defer g.mu.Unlock()

	items, err := g.recommender.Flow(*req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "loan recommendations")
	}
	terms, err := g.structurer.Terms(req.Score, req.Risk)
	if err != nil {
		return nil, errors.Wrap(err, "loan terms")
	}
	if math.IsInf(terms.Amount, 0) || math.IsNaN(terms.Amount) {
		return nil, errors.Wrapf(models.ErrInvalidArgument, "loan amount for score %v is not finite", req.Score)
	}
	result := &models.LoanRecommendation{
		Recommendations: items,
		Terms: models.LoanTerms{
			Amount:        terms.Amount,
			Rate:          terms.Rate,
			AmountDisplay: terms.AmountDecimal().StringFixed(2),
		},
	}
	if req.Query != "" {
		reply := g.chatbot.Match(req.Query)
		result.Guidance = &reply
	}
	if req.Action != nil {
		var reward float64
		err := guard[lending.GameState]("game", g.game, func() error {
			reward = g.game.Play(*req.Action)
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "literacy game")
		}
		result.GameReward = &reward
	}
	if n := len(req.Transactions); n > 0 {
		g.crossSell.Pulse([][]string{req.Transactions})
		result.CrossSell = g.crossSell.Recommend(req.Transactions[n-1])
	}
	return result, nil
}

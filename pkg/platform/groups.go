package platform

import (
	"encoding/json"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/behavior"
	"github.com/mimir-aip/microfinance-go/pkg/compliance"
	"github.com/mimir-aip/microfinance-go/pkg/credit"
	"github.com/mimir-aip/microfinance-go/pkg/esg"
	"github.com/mimir-aip/microfinance-go/pkg/lending"
	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// stateful is implemented by every component with persistent state.
type stateful[S any] interface {
	Snapshot() S
	Restore(S) error
}

func put[S any](state models.SnapshotState, name string, c stateful[S]) error {
	raw, err := json.Marshal(c.Snapshot())
	if err != nil {
		return errors.Wrapf(err, "encode %s state", name)
	}
	state[name] = raw
	return nil
}

func take[S any](state models.SnapshotState, name string, c stateful[S]) error {
	raw, ok := state[name]
	if !ok {
		return errors.Wrapf(models.ErrInvalidArgument, "snapshot has no %s state", name)
	}
	var s S
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrapf(models.ErrInvalidArgument, "decode %s state: %v", name, err)
	}
	return errors.Wrapf(c.Restore(s), "restore %s", name)
}

// guard runs mutate against c and rolls c back when the resulting state can
// no longer be checkpointed, which happens once a parameter is NaN or Inf.
func guard[S any](name string, c stateful[S], mutate func() error) error {
	before := c.Snapshot()
	if err := mutate(); err != nil {
		return err
	}
	if _, err := json.Marshal(c.Snapshot()); err != nil {
		if rerr := c.Restore(before); rerr != nil {
			return errors.Wrapf(rerr, "roll back %s", name)
		}
		return errors.Wrapf(models.ErrInvalidArgument, "%s update produces non-finite state: %v", name, err)
	}
	return nil
}

type creditGroup struct {
	mu        sync.Mutex
	fusion    *credit.AlternativeDataFusion
	graph     *credit.GraphNeuralNetwork
	federated *credit.FederatedCreditScoring
	dynamic   *credit.DynamicCreditScoring
}

func newCreditGroup(cfg models.ModelConfig, rng *rand.Rand) (*creditGroup, error) {
	dynamic, err := credit.NewDynamicCreditScoring(cfg.Decay)
	if err != nil {
		return nil, err
	}
	return &creditGroup{
		fusion:    credit.NewAlternativeDataFusion(cfg.FusionInputs, rng),
		graph:     credit.NewGraphNeuralNetwork(cfg.GraphSize, rng),
		federated: credit.NewFederatedCreditScoring(cfg.Institutions, cfg.FusionInputs, rng),
		dynamic:   dynamic,
	}, nil
}

func (g *creditGroup) snapshot(state models.SnapshotState) error {
	if err := put[credit.FusionState](state, "fusion", g.fusion); err != nil {
		return err
	}
	if err := put[credit.GraphState](state, "graph", g.graph); err != nil {
		return err
	}
	if err := put[credit.FederatedState](state, "federated", g.federated); err != nil {
		return err
	}
	return put[credit.DynamicState](state, "dynamic", g.dynamic)
}

func (g *creditGroup) restore(state models.SnapshotState) error {
	if err := take[credit.FusionState](state, "fusion", g.fusion); err != nil {
		return err
	}
	if err := take[credit.GraphState](state, "graph", g.graph); err != nil {
		return err
	}
	if err := take[credit.FederatedState](state, "federated", g.federated); err != nil {
		return err
	}
	return take[credit.DynamicState](state, "dynamic", g.dynamic)
}

func (g *creditGroup) adopt(o *creditGroup) {
	g.fusion, g.graph, g.federated, g.dynamic = o.fusion, o.graph, o.federated, o.dynamic
}

type complianceGroup struct {
	mu        sync.Mutex
	kyc       *compliance.DecentralizedKYC
	documents *compliance.DocumentVerifier
	aml       *compliance.AMLAnomalyDetector
	biometric *compliance.BiometricKYC
	contract  *compliance.ComplianceSmartContract
}

func newComplianceGroup(cfg models.ModelConfig, rng *rand.Rand) *complianceGroup {
	return &complianceGroup{
		kyc:       compliance.NewDecentralizedKYC(),
		documents: compliance.NewDocumentVerifier(),
		aml:       compliance.NewAMLAnomalyDetector(cfg.AMLSize, rng),
		biometric: compliance.NewBiometricKYC(),
		contract:  compliance.NewComplianceSmartContract(),
	}
}

func (g *complianceGroup) snapshot(state models.SnapshotState) error {
	if err := put[compliance.KYCState](state, "kyc", g.kyc); err != nil {
		return err
	}
	if err := put[compliance.AMLState](state, "aml", g.aml); err != nil {
		return err
	}
	if err := put[compliance.BiometricState](state, "biometric", g.biometric); err != nil {
		return err
	}
	return put[compliance.ContractState](state, "contract", g.contract)
}

func (g *complianceGroup) restore(state models.SnapshotState) error {
	if err := take[compliance.KYCState](state, "kyc", g.kyc); err != nil {
		return err
	}
	if err := take[compliance.AMLState](state, "aml", g.aml); err != nil {
		return err
	}
	if err := take[compliance.BiometricState](state, "biometric", g.biometric); err != nil {
		return err
	}
	return take[compliance.ContractState](state, "contract", g.contract)
}

func (g *complianceGroup) adopt(o *complianceGroup) {
	g.kyc, g.documents, g.aml, g.biometric, g.contract = o.kyc, o.documents, o.aml, o.biometric, o.contract
}

type behaviorGroup struct {
	mu         sync.Mutex
	sentiment  *behavior.SentimentAnalyzer
	segmenter  *behavior.LifestyleSegmenter
	forecaster *behavior.StabilityForecaster
	privacy    *behavior.EthicalAI
}

func newBehaviorGroup(cfg models.ModelConfig, rng *rand.Rand) *behaviorGroup {
	return &behaviorGroup{
		sentiment:  behavior.NewSentimentAnalyzer(cfg.SentimentSize, rng),
		segmenter:  behavior.NewLifestyleSegmenter(cfg.LifestyleGroups, rng),
		forecaster: behavior.NewStabilityForecaster(cfg.ForecastSize, rng),
		privacy:    behavior.NewEthicalAI(cfg.PrivacyStrength, rng),
	}
}

func (g *behaviorGroup) snapshot(state models.SnapshotState) error {
	if err := put[behavior.WeightState](state, "sentiment", g.sentiment); err != nil {
		return err
	}
	if err := put[behavior.SegmenterState](state, "segmenter", g.segmenter); err != nil {
		return err
	}
	return put[behavior.ForecasterState](state, "forecaster", g.forecaster)
}

func (g *behaviorGroup) restore(state models.SnapshotState) error {
	if err := take[behavior.WeightState](state, "sentiment", g.sentiment); err != nil {
		return err
	}
	if err := take[behavior.SegmenterState](state, "segmenter", g.segmenter); err != nil {
		return err
	}
	return take[behavior.ForecasterState](state, "forecaster", g.forecaster)
}

func (g *behaviorGroup) adopt(o *behaviorGroup) {
	g.sentiment, g.segmenter, g.forecaster, g.privacy = o.sentiment, o.segmenter, o.forecaster, o.privacy
}

type esgGroup struct {
	mu         sync.Mutex
	aggregator *esg.DataAggregator
	scorer     *esg.Scorer
	impact     *esg.ImpactMeasurer
	optimizer  *esg.PortfolioOptimizer
	visualizer esg.Visualizer
}

func newESGGroup(cfg models.ModelConfig, rng *rand.Rand) *esgGroup {
	return &esgGroup{
		aggregator: esg.NewDataAggregator(),
		scorer:     esg.NewScorer(),
		impact:     esg.NewImpactMeasurer(cfg.ImpactSize, rng),
		optimizer:  esg.NewPortfolioOptimizer(rng),
	}
}

func (g *esgGroup) snapshot(state models.SnapshotState) error {
	if err := put[esg.AggregatorState](state, "esg_aggregator", g.aggregator); err != nil {
		return err
	}
	if err := put[esg.ImpactState](state, "impact", g.impact); err != nil {
		return err
	}
	return put[esg.OptimizerState](state, "esg_optimizer", g.optimizer)
}

func (g *esgGroup) restore(state models.SnapshotState) error {
	if err := take[esg.AggregatorState](state, "esg_aggregator", g.aggregator); err != nil {
		return err
	}
	if err := take[esg.ImpactState](state, "impact", g.impact); err != nil {
		return err
	}
	return take[esg.OptimizerState](state, "esg_optimizer", g.optimizer)
}

func (g *esgGroup) adopt(o *esgGroup) {
	g.aggregator, g.scorer, g.impact, g.optimizer = o.aggregator, o.scorer, o.impact, o.optimizer
}

type lendingGroup struct {
	mu          sync.Mutex
	recommender *lending.LoanRecommender
	structurer  *lending.LoanStructurer
	chatbot     *lending.GuidanceChatbot
	game        *lending.LiteracyGame
	crossSell   *lending.CrossSelling
}

func newLendingGroup(cfg models.ModelConfig, rng *rand.Rand) *lendingGroup {
	return &lendingGroup{
		recommender: lending.NewLoanRecommender(cfg.Users, cfg.Items),
		structurer:  lending.NewLoanStructurer(rng),
		chatbot:     lending.NewGuidanceChatbot(),
		game:        lending.NewLiteracyGame(rng),
		crossSell:   lending.NewCrossSelling(),
	}
}

func (g *lendingGroup) snapshot(state models.SnapshotState) error {
	if err := put[lending.RecommenderState](state, "recommender", g.recommender); err != nil {
		return err
	}
	if err := put[lending.StructurerState](state, "structurer", g.structurer); err != nil {
		return err
	}
	if err := put[lending.ChatbotState](state, "chatbot", g.chatbot); err != nil {
		return err
	}
	if err := put[lending.GameState](state, "game", g.game); err != nil {
		return err
	}
	return put[lending.CrossSellState](state, "cross_selling", g.crossSell)
}

func (g *lendingGroup) restore(state models.SnapshotState) error {
	if err := take[lending.RecommenderState](state, "recommender", g.recommender); err != nil {
		return err
	}
	if err := take[lending.StructurerState](state, "structurer", g.structurer); err != nil {
		return err
	}
	if err := take[lending.ChatbotState](state, "chatbot", g.chatbot); err != nil {
		return err
	}
	if err := take[lending.GameState](state, "game", g.game); err != nil {
		return err
	}
	return take[lending.CrossSellState](state, "cross_selling", g.crossSell)
}

func (g *lendingGroup) adopt(o *lendingGroup) {
	g.recommender, g.structurer, g.chatbot, g.game, g.crossSell = o.recommender, o.structurer, o.chatbot, o.game, o.crossSell
}

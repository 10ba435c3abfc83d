package platform

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mimir-aip/microfinance-go/pkg/behavior"
	"github.com/mimir-aip/microfinance-go/pkg/compliance"
	"github.com/mimir-aip/microfinance-go/pkg/credit"
	"github.com/mimir-aip/microfinance-go/pkg/esg"
	"github.com/mimir-aip/microfinance-go/pkg/lending"
	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// TrainModels trains every model named in req, in a fixed order. Each model
// validates its own batch before changing, and a model whose parameters
// diverge to NaN or Inf is rolled back. A failure stops the run and the
// models trained before it keep their updates.
func (s *Service) TrainModels(req *models.TrainRequest) (*models.TrainingSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	data := req.TrainingData
	epochs := data.Epochs
	if epochs == 0 {
		epochs = s.cfg.TrainingEpochs
	}
	lr := data.LearningRate
	if lr <= 0 {
		lr = s.cfg.TrainingRate
	}

	summary := &models.TrainingSummary{}
	steps := []struct {
		name  string
		named bool
		run   func() error
	}{
		{"fusion", len(data.AltData) > 0, func() error {
			return s.withCredit(func(g *creditGroup) error {
				return guard[credit.FusionState]("fusion", g.fusion, func() error {
					return g.fusion.Train(data.AltData, data.Targets, epochs, lr)
				})
			})
		}},
		{"graph", data.Graph != nil, func() error {
			return s.withCredit(func(g *creditGroup) error {
				return guard[credit.GraphState]("graph", g.graph, func() error {
					return g.graph.Train(data.Graph.Nodes, data.Graph.Connections, data.Graph.Targets, epochs, lr)
				})
			})
		}},
		{"federated", data.Federated != nil, func() error {
			return s.withCredit(func(g *creditGroup) error {
				return guard[credit.FederatedState]("federated", g.federated, func() error {
					return g.federated.Train(data.Federated.Datasets, data.Federated.Targets, epochs)
				})
			})
		}},
		{"sentiment", data.Sentiment != nil, func() error {
			return s.withBehavior(func(g *behaviorGroup) error {
				return guard[behavior.WeightState]("sentiment", g.sentiment, func() error {
					return g.sentiment.Train(data.Sentiment.Samples, data.Sentiment.Targets, epochs, lr)
				})
			})
		}},
		{"aml", len(data.AML) > 0, func() error {
			return s.withCompliance(func(g *complianceGroup) error {
				return guard[compliance.AMLState]("aml", g.aml, func() error {
					return g.aml.Train(data.AML)
				})
			})
		}},
		{"segmenter", len(data.Lifestyle) > 0, func() error {
			return s.withBehavior(func(g *behaviorGroup) error {
				return guard[behavior.SegmenterState]("segmenter", g.segmenter, func() error {
					return g.segmenter.Fit(data.Lifestyle)
				})
			})
		}},
		{"impact", data.Impact != nil, func() error {
			return s.withESG(func(g *esgGroup) error {
				return guard[esg.ImpactState]("impact", g.impact, func() error {
					return g.impact.Fit(data.Impact.Samples, data.Impact.Targets, epochs, lr)
				})
			})
		}},
		{"recommender", len(data.Ratings) > 0, func() error {
			ratings := make([]lending.Rating, len(data.Ratings))
			for i, r := range data.Ratings {
				ratings[i] = lending.Rating{User: r.User, Item: r.Item, Rating: r.Rating}
			}
			return s.withLending(func(g *lendingGroup) error {
				return guard[lending.RecommenderState]("recommender", g.recommender, func() error {
					return g.recommender.Train(ratings)
				})
			})
		}},
		{"cross_selling", len(data.Transactions) > 0, func() error {
			return s.withLending(func(g *lendingGroup) error {
				g.crossSell.Pulse(data.Transactions)
				return nil
			})
		}},
	}

	for _, step := range steps {
		if !step.named {
			continue
		}
		if err := step.run(); err != nil {
			log.Warnf("Training %s failed: %v", step.name, err)
			return summary, errors.Wrapf(err, "train %s", step.name)
		}
		summary.Trained = append(summary.Trained, step.name)
	}
	log.Infof("Trained models: %v (epochs=%d, lr=%g)", summary.Trained, epochs, lr)
	return summary, nil
}

func (s *Service) withCredit(fn func(*creditGroup) error) error {
	s.credit.mu.Lock()
	defer s.credit.mu.Unlock()
	return fn(s.credit)
}

func (s *Service) withCompliance(fn func(*complianceGroup) error) error {
	s.compliance.mu.Lock()
	defer s.compliance.mu.Unlock()
	return fn(s.compliance)
}

func (s *Service) withBehavior(fn func(*behaviorGroup) error) error {
	s.behavior.mu.Lock()
	defer s.behavior.mu.Unlock()
	return fn(s.behavior)
}

func (s *Service) withESG(fn func(*esgGroup) error) error {
	s.esg.mu.Lock()
	defer s.esg.mu.Unlock()
	return fn(s.esg)
}

func (s *Service) withLending(fn func(*lendingGroup) error) error {
	s.lending.mu.Lock()
	defer s.lending.mu.Unlock()
	return fn(s.lending)
}

package models

import "github.com/pkg/errors"

// ModelConfig sizes every model component.
type ModelConfig struct {
	FusionInputs    int     `yaml:"fusion_inputs" json:"fusion_inputs"`
	GraphSize       int     `yaml:"graph_size" json:"graph_size"`
	Institutions    int     `yaml:"institutions" json:"institutions"`
	Decay           float64 `yaml:"decay" json:"decay"`
	AMLSize         int     `yaml:"aml_size" json:"aml_size"`
	AMLThreshold    float64 `yaml:"aml_threshold" json:"aml_threshold"`
	SentimentSize   int     `yaml:"sentiment_size" json:"sentiment_size"`
	LifestyleGroups int     `yaml:"lifestyle_groups" json:"lifestyle_groups"`
	ForecastSize    int     `yaml:"forecast_size" json:"forecast_size"`
	PrivacyStrength float64 `yaml:"privacy_strength" json:"privacy_strength"`
	ImpactSize      int     `yaml:"impact_size" json:"impact_size"`
	Users           int     `yaml:"users" json:"users"`
	Items           int     `yaml:"items" json:"items"`
	TrainingEpochs  int     `yaml:"training_epochs" json:"training_epochs"`
	TrainingRate    float64 `yaml:"training_rate" json:"training_rate"`
}

// DefaultModelConfig returns the sizes the service ships with.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		FusionInputs:    5,
		GraphSize:       5,
		Institutions:    3,
		Decay:           0.9,
		AMLSize:         5,
		AMLThreshold:    1.0,
		SentimentSize:   3,
		LifestyleGroups: 3,
		ForecastSize:    3,
		PrivacyStrength: 1.0,
		ImpactSize:      3,
		Users:           5,
		Items:           5,
		TrainingEpochs:  50,
		TrainingRate:    0.01,
	}
}

// Validate checks that every size is positive and the decay is in (0, 1).
func (c ModelConfig) Validate() error {
	sizes := map[string]int{
		"fusion_inputs":    c.FusionInputs,
		"graph_size":       c.GraphSize,
		"institutions":     c.Institutions,
		"aml_size":         c.AMLSize,
		"sentiment_size":   c.SentimentSize,
		"lifestyle_groups": c.LifestyleGroups,
		"forecast_size":    c.ForecastSize,
		"impact_size":      c.ImpactSize,
		"users":            c.Users,
		"items":            c.Items,
		"training_epochs":  c.TrainingEpochs,
	}
	for name, v := range sizes {
		if v <= 0 {
			return errors.Wrapf(ErrInvalidArgument, "%s must be positive, got %d", name, v)
		}
	}
	if c.Decay <= 0 || c.Decay >= 1 {
		return errors.Wrapf(ErrInvalidArgument, "decay must be in (0, 1), got %v", c.Decay)
	}
	if c.TrainingRate <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "training_rate must be positive, got %v", c.TrainingRate)
	}
	return nil
}

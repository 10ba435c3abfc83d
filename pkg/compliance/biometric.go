package compliance

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

// DriftThreshold is the L1 distance below which a sample matches.
const DriftThreshold = 0.1

// BiometricKYC stores one template per user and matches samples by drift.
type BiometricKYC struct {
	templates map[string][]float64
}

// BiometricState is the serializable template store.
type BiometricState struct {
	Templates map[string][]float64 `json:"templates"`
}

func NewBiometricKYC() *BiometricKYC {
	return &BiometricKYC{templates: make(map[string][]float64)}
}

// Enroll stores a copy of template for userID, replacing any previous one.
func (b *BiometricKYC) Enroll(userID string, template []float64) error {
	if len(template) == 0 {
		return errors.Wrapf(models.ErrEmptyInput, "biometric template for %q", userID)
	}
	b.templates[userID] = numeric.Clone(template)
	return nil
}

// Enrolled reports whether userID has a template.
func (b *BiometricKYC) Enrolled(userID string) bool {
	_, ok := b.templates[userID]
	return ok
}

// Drift returns the L1 distance between the stored template and sample.
func (b *BiometricKYC) Drift(userID string, sample []float64) (float64, error) {
	tpl, ok := b.templates[userID]
	if !ok {
		return 0, errors.Wrapf(models.ErrUnknownIdentifier, "biometric user %q", userID)
	}
	if err := numeric.CheckLen("biometric sample", len(tpl), sample); err != nil {
		return 0, err
	}
	return floats.Distance(tpl, sample, 1), nil
}

// Verify fails closed: unknown users and malformed samples do not match.
func (b *BiometricKYC) Verify(userID string, sample []float64) bool {
	drift, err := b.Drift(userID, sample)
	if err != nil {
		return false
	}
	return drift < DriftThreshold
}

func (b *BiometricKYC) Snapshot() BiometricState {
	out := make(map[string][]float64, len(b.templates))
	for id, tpl := range b.templates {
		out[id] = numeric.Clone(tpl)
	}
	return BiometricState{Templates: out}
}

func (b *BiometricKYC) Restore(state BiometricState) error {
	templates := make(map[string][]float64, len(state.Templates))
	for id, tpl := range state.Templates {
		if len(tpl) == 0 {
			return errors.Wrapf(models.ErrEmptyInput, "biometric template for %q", id)
		}
		templates[id] = numeric.Clone(tpl)
	}
	b.templates = templates
	return nil
}

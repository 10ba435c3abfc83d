package platform

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// lockAll takes every group lock in a fixed order.
func (s *Service) lockAll() func() {
	s.credit.mu.Lock()
	s.compliance.mu.Lock()
	s.behavior.mu.Lock()
	s.esg.mu.Lock()
	s.lending.mu.Lock()
	return func() {
		s.lending.mu.Unlock()
		s.esg.mu.Unlock()
		s.behavior.mu.Unlock()
		s.compliance.mu.Unlock()
		s.credit.mu.Unlock()
	}
}

// Snapshot captures the state of every stateful component under one
// consistent lock.
func (s *Service) Snapshot() (models.SnapshotState, error) {
	unlock := s.lockAll()
	defer unlock()

	state := make(models.SnapshotState)
	for _, snap := range []func(models.SnapshotState) error{
		s.credit.snapshot,
		s.compliance.snapshot,
		s.behavior.snapshot,
		s.esg.snapshot,
		s.lending.snapshot,
	} {
		if err := snap(state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// Restore replaces every component with the one in state. Nothing changes
// unless every component restores cleanly.
func (s *Service) Restore(state models.SnapshotState) error {
	credit, err := newCreditGroup(s.cfg, s.childRand())
	if err != nil {
		return err
	}
	compliance := newComplianceGroup(s.cfg, s.childRand())
	behavior := newBehaviorGroup(s.cfg, s.childRand())
	esg := newESGGroup(s.cfg, s.childRand())
	lending := newLendingGroup(s.cfg, s.childRand())

	for _, restore := range []func(models.SnapshotState) error{
		credit.restore,
		compliance.restore,
		behavior.restore,
		esg.restore,
		lending.restore,
	} {
		if err := restore(state); err != nil {
			return errors.Wrap(err, "restore snapshot")
		}
	}

	unlock := s.lockAll()
	defer unlock()
	s.credit.adopt(credit)
	s.compliance.adopt(compliance)
	s.behavior.adopt(behavior)
	s.esg.adopt(esg)
	s.lending.adopt(lending)
	log.Infof("Restored %d component states", len(state))
	return nil
}

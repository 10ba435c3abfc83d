// Package compliance implements the KYC and AML heuristics: identity
// dedup over a hash chain, document pattern checks, deviation-based anomaly
// detection, biometric template matching and a per-contract rule lock.
//
// Types in this package do not synchronize; callers own serialization.
package compliance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// DecentralizedKYC is an append-only chain of identity hashes. Verify is a
// duplicate detector: it reports true only for data it has already seen.
type DecentralizedKYC struct {
	chain []string
	index map[string]struct{}
}

// KYCState is the serializable chain.
type KYCState struct {
	Chain []string `json:"chain"`
}

func NewDecentralizedKYC() *DecentralizedKYC {
	return &DecentralizedKYC{index: make(map[string]struct{})}
}

// Hash returns the hex SHA-256 of the canonical JSON encoding of data. Map
// keys are sorted by the encoder, so equal maps hash equally.
func (k *DecentralizedKYC) Hash(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrapf(models.ErrInvalidArgument, "kyc: cannot encode user data: %v", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Verify returns true when data is already on the chain. First-seen data is
// appended and reported as false.
func (k *DecentralizedKYC) Verify(data any) (bool, error) {
	h, err := k.Hash(data)
	if err != nil {
		return false, err
	}
	if _, ok := k.index[h]; ok {
		return true, nil
	}
	k.chain = append(k.chain, h)
	k.index[h] = struct{}{}
	return false, nil
}

// Len returns the number of hashes on the chain.
func (k *DecentralizedKYC) Len() int {
	return len(k.chain)
}

func (k *DecentralizedKYC) Snapshot() KYCState {
	chain := make([]string, len(k.chain))
	copy(chain, k.chain)
	return KYCState{Chain: chain}
}

// Restore replaces the chain. Duplicate hashes in state are rejected since
// the chain never holds the same hash twice.
func (k *DecentralizedKYC) Restore(state KYCState) error {
	index := make(map[string]struct{}, len(state.Chain))
	for _, h := range state.Chain {
		if _, dup := index[h]; dup {
			return errors.Wrapf(models.ErrInvalidArgument, "kyc: duplicate hash %s", h)
		}
		index[h] = struct{}{}
	}
	k.chain = append([]string(nil), state.Chain...)
	k.index = index
	return nil
}

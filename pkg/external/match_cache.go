package external

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/clearhealth/trialmatch/internal/domain"
)

const defaultMatchCacheSize = 1024

// MatchLRU is a bounded in-process cache of match results keyed by
// (patientID, nctID). It implements service.MatchCache. Results stay valid
// for the life of the process; profile changes mean a new evaluation run with
// a fresh engine, so no invalidation path is needed.
type MatchLRU struct {
	cache *lru.Cache[string, *domain.TrialMatchResult]
}

// NewMatchLRU creates a new match result cache. A size of zero or less uses
// the default.
func NewMatchLRU(size int) (*MatchLRU, error) {
	if size <= 0 {
		size = defaultMatchCacheSize
	}
	cache, err := lru.New[string, *domain.TrialMatchResult](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create match cache: %w", err)
	}
	return &MatchLRU{cache: cache}, nil
}

// Get returns the cached result for the patient-trial pair, if present.
func (m *MatchLRU) Get(patientID, nctID string) (*domain.TrialMatchResult, bool) {
	return m.cache.Get(matchKey(patientID, nctID))
}

// Add stores a result for the patient-trial pair.
func (m *MatchLRU) Add(patientID, nctID string, result *domain.TrialMatchResult) {
	m.cache.Add(matchKey(patientID, nctID), result)
}

// Len returns the number of cached results.
func (m *MatchLRU) Len() int {
	return m.cache.Len()
}

func matchKey(patientID, nctID string) string {
	return patientID + ":" + nctID
}

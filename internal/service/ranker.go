package service

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/clearhealth/trialmatch/internal/domain"
)

const (
	// maxTrialsPerBatch bounds batch latency; anything past the first 50
	// supplied trials is ignored.
	maxTrialsPerBatch = 50

	defaultResultLimit = 20
)

// TrialMatcher scores one patient against one trial.
type TrialMatcher interface {
	CalculateTrialMatch(ctx context.Context, trial *domain.Trial, profile *domain.PatientProfile) (*domain.TrialMatchResult, error)
}

// MatchCache is an optional read-through cache of match results keyed by
// (patientID, nctID). First writer wins; entries are never invalidated within
// one run.
type MatchCache interface {
	Get(patientID, nctID string) (*domain.TrialMatchResult, bool)
	Add(patientID, nctID string, result *domain.TrialMatchResult)
}

// MatchOptions controls batch ranking.
type MatchOptions struct {
	// MinScore filters out results scoring below it. Default 0.
	MinScore int `json:"min_score"`
	// Limit truncates the ranked list. Default 20.
	Limit int `json:"limit"`
}

// Ranker applies the matcher across a trial set for one patient and orders
// the results.
type Ranker struct {
	logger    *logrus.Logger
	matcher   TrialMatcher
	cache     MatchCache
	maxTrials int
}

// NewRanker creates a new trial ranker. The cache may be nil.
func NewRanker(logger *logrus.Logger, matcher TrialMatcher, cache MatchCache, cfg domain.MatcherConfig) *Ranker {
	maxTrials := cfg.MaxTrialsPerBatch
	if maxTrials <= 0 || maxTrials > maxTrialsPerBatch {
		maxTrials = maxTrialsPerBatch
	}
	return &Ranker{
		logger:    logger,
		matcher:   matcher,
		cache:     cache,
		maxTrials: maxTrials,
	}
}

// MatchTrialsForPatient scores every trial for the patient concurrently,
// filters by minimum score, sorts descending by score (stable, so discovery
// order is preserved among ties), and truncates to the limit. A single
// trial's failure never aborts the batch; that trial is skipped and the rest
// are returned.
func (r *Ranker) MatchTrialsForPatient(ctx context.Context, trials []domain.Trial, profile *domain.PatientProfile, opts MatchOptions) ([]domain.TrialMatchResult, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if len(trials) > r.maxTrials {
		r.logger.WithFields(logrus.Fields{
			"supplied": len(trials),
			"capped":   r.maxTrials,
		}).Debug("Capping trial batch")
		trials = trials[:r.maxTrials]
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultResultLimit
	}
	minScore := opts.MinScore
	if minScore < 0 {
		minScore = 0
	}

	// Fan out one evaluation per trial; each works on a read-only profile
	// and trial record, so no locking is needed.
	results := make([]*domain.TrialMatchResult, len(trials))
	var wg sync.WaitGroup
	for i := range trials {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			trial := &trials[i]

			if r.cache != nil {
				if cached, ok := r.cache.Get(profile.PatientID, trial.NCTID); ok {
					results[i] = cached
					return
				}
			}

			result, err := r.matcher.CalculateTrialMatch(ctx, trial, profile)
			if err != nil {
				r.logger.WithError(err).WithField("nct_id", trial.NCTID).
					Warn("Skipping trial that failed evaluation")
				return
			}
			results[i] = result
			if r.cache != nil {
				r.cache.Add(profile.PatientID, trial.NCTID, result)
			}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		// Abandoned batch: partially completed evaluations are discarded
		// as a unit.
		return nil, err
	}

	ranked := make([]domain.TrialMatchResult, 0, len(results))
	for _, res := range results {
		if res != nil && res.Score >= minScore {
			ranked = append(ranked, *res)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	r.logger.WithFields(logrus.Fields{
		"patient_id": profile.PatientID,
		"evaluated":  len(trials),
		"returned":   len(ranked),
		"min_score":  minScore,
	}).Info("Ranked trials for patient")

	return ranked, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clearhealth/trialmatch/internal/domain"
)

// Matcher runs the full eligibility evaluation for one patient against one
// trial: structured evaluators, semantic condition matching, free-text
// criteria interpretation, then aggregation into a TrialMatchResult. It is a
// pure function of (profile, trial); nothing is persisted and inputs are
// never mutated.
type Matcher struct {
	logger           *logrus.Logger
	conditionMatcher *ConditionMatcher
	interpreter      *CriteriaInterpreter
	scorer           *Scorer
}

// NewMatcher creates a new trial matcher. The classifier and interpreter may
// be nil; matching then relies on structured data and the deterministic
// fallback only.
func NewMatcher(
	logger *logrus.Logger,
	classifier domain.SemanticClassifier,
	interpreter domain.TextInterpreter,
	cfg domain.MatcherConfig,
) *Matcher {
	return &Matcher{
		logger:           logger,
		conditionMatcher: NewConditionMatcher(logger, classifier),
		interpreter:      NewCriteriaInterpreter(logger, interpreter, cfg),
		scorer:           NewScorer(logger),
	}
}

// CalculateTrialMatch scores one patient against one trial. It returns an
// error only when the trial or profile is structurally invalid; uncertain or
// missing clinical data degrades to criterion statuses, never to an error.
func (m *Matcher) CalculateTrialMatch(ctx context.Context, trial *domain.Trial, profile *domain.PatientProfile) (*domain.TrialMatchResult, error) {
	if err := trial.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trial: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid patient profile: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"nct_id":     trial.NCTID,
		"patient_id": profile.PatientID,
	}).Debug("Evaluating trial match")

	criteria := []domain.EligibilityCriterion{
		EvaluateAge(profile, trial.Eligibility),
		EvaluateSex(profile, trial.Eligibility),
		EvaluateHealthyVolunteer(profile, trial.Eligibility),
	}

	// The semantic matcher and the free-text interpreter are the only
	// suspension points; there is no data dependency between them, so they
	// run concurrently.
	var (
		conditionMatches []domain.ConditionMatchResult
		textCriteria     []domain.EligibilityCriterion
	)
	// Buffered so both workers can finish and exit even when cancellation
	// makes this function return before collecting their signals.
	done := make(chan struct{}, 2)
	go func() {
		conditionMatches = m.conditionMatcher.Match(ctx, profile, trial.Conditions)
		done <- struct{}{}
	}()
	go func() {
		textCriteria = m.interpreter.Extract(ctx, profile, trial.Eligibility.CriteriaText)
		done <- struct{}{}
	}()
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(trial.Conditions) > 0 {
		criteria = append(criteria, SynthesizeCriterion(trial.Conditions, conditionMatches))
	}
	criteria = append(criteria, textCriteria...)

	breakdown := m.scorer.Score(criteria)

	result := &domain.TrialMatchResult{
		EvaluationID:     uuid.NewString(),
		NCTID:            trial.NCTID,
		BriefTitle:       trial.BriefTitle,
		Trial:            trial,
		Score:            breakdown.FinalScore,
		Tier:             domain.TierForScore(breakdown.FinalScore),
		HardDisqualifier: breakdown.HardDisqualifier,
		Counts:           domain.CountCriteria(criteria),
		Criteria:         criteria,
		ConditionMatches: conditionMatches,
		EvaluatedAt:      time.Now().UTC(),
	}

	m.logger.WithFields(logrus.Fields{
		"nct_id":            trial.NCTID,
		"patient_id":        profile.PatientID,
		"score":             result.Score,
		"tier":              result.Tier.String(),
		"criteria":          result.Counts.Total,
		"hard_disqualifier": result.HardDisqualifier,
	}).Info("Trial match evaluated")

	return result, nil
}

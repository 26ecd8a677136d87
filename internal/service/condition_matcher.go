package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clearhealth/trialmatch/internal/domain"
)

// ConditionMatcher decides whether any patient condition corresponds to any
// trial-targeted condition. The primary path asks an external semantic
// classifier; any failure or malformed output falls back to deterministic
// case-insensitive name containment. The fallback never fails and always
// returns one result per trial condition.
type ConditionMatcher struct {
	logger     *logrus.Logger
	classifier domain.SemanticClassifier
}

// NewConditionMatcher creates a new condition matcher. The classifier may be
// nil, in which case only the deterministic fallback is used.
func NewConditionMatcher(logger *logrus.Logger, classifier domain.SemanticClassifier) *ConditionMatcher {
	return &ConditionMatcher{
		logger:     logger,
		classifier: classifier,
	}
}

// Match returns one ConditionMatchResult per trial condition. An empty trial
// condition list yields an empty result.
func (cm *ConditionMatcher) Match(ctx context.Context, profile *domain.PatientProfile, trialConditions []string) []domain.ConditionMatchResult {
	if len(trialConditions) == 0 {
		return nil
	}

	if len(profile.Conditions) == 0 {
		results := make([]domain.ConditionMatchResult, 0, len(trialConditions))
		for _, tc := range trialConditions {
			results = append(results, domain.ConditionMatchResult{
				TrialCondition: tc,
				IsMatch:        false,
				Confidence:     domain.ConfidenceLow,
				Rationale:      "no patient conditions to compare",
			})
		}
		return results
	}

	if cm.classifier != nil {
		results, err := cm.classifier.MatchConditions(ctx, profile.ActiveConditionNames(), trialConditions)
		if err == nil && len(results) == len(trialConditions) {
			return results
		}
		if err != nil {
			cm.logger.WithError(err).WithFields(logrus.Fields{
				"trial_conditions": len(trialConditions),
			}).Warn("Semantic condition classifier failed, using keyword fallback")
		} else {
			cm.logger.WithFields(logrus.Fields{
				"expected": len(trialConditions),
				"received": len(results),
			}).Warn("Semantic condition classifier returned wrong result count, using keyword fallback")
		}
	}

	return cm.fallbackMatch(profile.ConditionNames(), trialConditions)
}

// fallbackMatch is the deterministic keyword-overlap path: case-insensitive
// substring containment in either direction between each trial condition and
// each patient condition name.
func (cm *ConditionMatcher) fallbackMatch(patientConditions, trialConditions []string) []domain.ConditionMatchResult {
	results := make([]domain.ConditionMatchResult, 0, len(trialConditions))
	for _, tc := range trialConditions {
		result := domain.ConditionMatchResult{
			TrialCondition: tc,
			IsMatch:        false,
			Confidence:     domain.ConfidenceLow,
			Rationale:      "no name overlap with patient conditions",
		}
		tcLower := strings.ToLower(tc)
		for _, pc := range patientConditions {
			pcLower := strings.ToLower(pc)
			if strings.Contains(pcLower, tcLower) || strings.Contains(tcLower, pcLower) {
				result.PatientCondition = pc
				result.IsMatch = true
				result.Confidence = domain.ConfidenceMedium
				result.Rationale = fmt.Sprintf("name overlap between %q and %q", tc, pc)
				break
			}
		}
		results = append(results, result)
	}
	return results
}

// SynthesizeCriterion folds the per-condition match results into one
// condition_match criterion: met if any trial condition matched, with high
// confidence on a match and medium otherwise.
func SynthesizeCriterion(trialConditions []string, matches []domain.ConditionMatchResult) domain.EligibilityCriterion {
	criterion := domain.EligibilityCriterion{
		ID:            "condition_match",
		Name:          "Targeted condition match",
		Category:      domain.CategoryCondition,
		RequiredValue: strings.Join(trialConditions, "; "),
	}

	anyMatch := false
	var matched []string
	for _, m := range matches {
		if m.IsMatch {
			anyMatch = true
			if m.PatientCondition != "" {
				matched = append(matched, m.PatientCondition)
			}
		}
	}

	if anyMatch {
		criterion.Status = domain.StatusMet
		criterion.Confidence = domain.ConfidenceHigh
		criterion.PatientValue = strings.Join(matched, "; ")
		criterion.Rationale = "patient conditions correspond to the trial's targeted conditions"
	} else {
		criterion.Status = domain.StatusNotMet
		criterion.Confidence = domain.ConfidenceMedium
		criterion.Rationale = "no targeted trial condition matches the patient's conditions"
	}
	return criterion
}

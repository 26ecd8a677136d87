package service

import (
	"github.com/clearhealth/trialmatch/internal/domain"
)

// BenchmarkCase is one hand-labeled scoring scenario: a criterion list plus
// the coarse label a clinician would assign to the patient-trial pairing.
type BenchmarkCase struct {
	Name     string                        `json:"name"`
	Criteria []domain.EligibilityCriterion `json:"criteria"`
	Expected domain.BenchmarkLabel         `json:"expected"`
}

// MethodReport summarizes one scoring method's accuracy over the case set.
type MethodReport struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// CaseResult is the per-case breakdown for both methods.
type CaseResult struct {
	Name           string                `json:"name"`
	Expected       domain.BenchmarkLabel `json:"expected"`
	CurrentScore   int                   `json:"current_score"`
	CurrentLabel   domain.BenchmarkLabel `json:"current_label"`
	CurrentCorrect bool                  `json:"current_correct"`
	LegacyScore    int                   `json:"legacy_score"`
	LegacyLabel    domain.BenchmarkLabel `json:"legacy_label"`
	LegacyCorrect  bool                  `json:"legacy_correct"`
}

// BenchmarkReport is the full output of one benchmark run.
type BenchmarkReport struct {
	Current MethodReport `json:"current"`
	Legacy  MethodReport `json:"legacy"`
	Cases   []CaseResult `json:"cases"`
}

// RunScoringBenchmark scores every case with both the current and the legacy
// formula and reports per-method accuracy plus a per-case breakdown. It
// consumes only the aggregator, so it is reproducible without network access.
func RunScoringBenchmark(scorer *Scorer, cases []BenchmarkCase) *BenchmarkReport {
	report := &BenchmarkReport{
		Current: MethodReport{Total: len(cases)},
		Legacy:  MethodReport{Total: len(cases)},
		Cases:   make([]CaseResult, 0, len(cases)),
	}

	for _, bc := range cases {
		current := scorer.Score(bc.Criteria)
		legacy := scorer.LegacyScore(bc.Criteria)

		result := CaseResult{
			Name:         bc.Name,
			Expected:     bc.Expected,
			CurrentScore: current.FinalScore,
			CurrentLabel: domain.LabelForScore(current.FinalScore),
			LegacyScore:  legacy.FinalScore,
			LegacyLabel:  domain.LabelForScore(legacy.FinalScore),
		}
		result.CurrentCorrect = result.CurrentLabel == bc.Expected
		result.LegacyCorrect = result.LegacyLabel == bc.Expected

		if result.CurrentCorrect {
			report.Current.Correct++
		}
		if result.LegacyCorrect {
			report.Legacy.Correct++
		}
		report.Cases = append(report.Cases, result)
	}

	if report.Current.Total > 0 {
		report.Current.Accuracy = float64(report.Current.Correct) / float64(report.Current.Total)
		report.Legacy.Accuracy = float64(report.Legacy.Correct) / float64(report.Legacy.Total)
	}
	return report
}

func criterion(id string, category domain.CriterionCategory, status domain.CriterionStatus, confidence domain.Confidence) domain.EligibilityCriterion {
	return domain.EligibilityCriterion{
		ID:         id,
		Name:       id,
		Category:   category,
		Status:     status,
		Confidence: confidence,
	}
}

// BenchmarkCases is the canonical hand-curated scenario set. It encodes the
// aggregator's edge-case policy — hard disqualifiers dominating weak
// positives, confidence down-weighting of text-derived matches — and must be
// kept in sync with any change to the scoring formula.
func BenchmarkCases() []BenchmarkCase {
	return []BenchmarkCase{
		{
			Name: "all_structured_met",
			Criteria: []domain.EligibilityCriterion{
				criterion("age", domain.CategoryAge, domain.StatusMet, domain.ConfidenceHigh),
				criterion("sex", domain.CategorySex, domain.StatusMet, domain.ConfidenceHigh),
				criterion("healthy_volunteers", domain.CategoryOther, domain.StatusMet, domain.ConfidenceMedium),
				criterion("condition_match", domain.CategoryCondition, domain.StatusMet, domain.ConfidenceHigh),
			},
			Expected: domain.LabelLikely,
		},
		{
			Name: "condition_mismatch_with_other_passes",
			Criteria: []domain.EligibilityCriterion{
				criterion("age", domain.CategoryAge, domain.StatusMet, domain.ConfidenceHigh),
				criterion("sex", domain.CategorySex, domain.StatusMet, domain.ConfidenceHigh),
				criterion("healthy_volunteers", domain.CategoryOther, domain.StatusMet, domain.ConfidenceMedium),
				criterion("condition_match", domain.CategoryCondition, domain.StatusNotMet, domain.ConfidenceHigh),
			},
			Expected: domain.LabelUnlikely,
		},
		{
			Name: "age_disqualifier_many_weak_positives",
			Criteria: []domain.EligibilityCriterion{
				criterion("age", domain.CategoryAge, domain.StatusNotMet, domain.ConfidenceHigh),
				criterion("inc_1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
				criterion("inc_2", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
				criterion("inc_3", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
				criterion("inc_4", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
				criterion("inc_5", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
				criterion("inc_6", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
				criterion("condition_match", domain.CategoryCondition, domain.StatusMet, domain.ConfidenceHigh),
			},
			Expected: domain.LabelUnlikely,
		},
		{
			Name: "noncore_lab_failure_strong_match",
			Criteria: []domain.EligibilityCriterion{
				criterion("age", domain.CategoryAge, domain.StatusMet, domain.ConfidenceHigh),
				criterion("sex", domain.CategorySex, domain.StatusMet, domain.ConfidenceHigh),
				criterion("condition_match", domain.CategoryCondition, domain.StatusMet, domain.ConfidenceHigh),
				criterion("inc_1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
				criterion("lab_hba1c", domain.CategoryLab, domain.StatusNotMet, domain.ConfidenceHigh),
			},
			Expected: domain.LabelLikely,
		},
		{
			Name: "low_confidence_text_only",
			Criteria: []domain.EligibilityCriterion{
				criterion("inc_1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceLow),
				criterion("exc_1", domain.CategoryExclusion, domain.StatusMet, domain.ConfidenceLow),
				criterion("other_1", domain.CategoryOther, domain.StatusMet, domain.ConfidenceLow),
				criterion("lab_1", domain.CategoryLab, domain.StatusMissingData, domain.ConfidenceLow),
			},
			Expected: domain.LabelPossible,
		},
		{
			Name: "sparse_missing_demographics",
			Criteria: []domain.EligibilityCriterion{
				criterion("age", domain.CategoryAge, domain.StatusMissingData, domain.ConfidenceHigh),
				criterion("sex", domain.CategorySex, domain.StatusMissingData, domain.ConfidenceHigh),
				criterion("healthy_volunteers", domain.CategoryOther, domain.StatusMet, domain.ConfidenceMedium),
				criterion("condition_match", domain.CategoryCondition, domain.StatusNotMet, domain.ConfidenceMedium),
			},
			Expected: domain.LabelPossible,
		},
		{
			Name: "uncertain_everything",
			Criteria: []domain.EligibilityCriterion{
				criterion("inc_1", domain.CategoryInclusion, domain.StatusUnknown, domain.ConfidenceLow),
				criterion("inc_2", domain.CategoryInclusion, domain.StatusUnknown, domain.ConfidenceLow),
				criterion("exc_1", domain.CategoryExclusion, domain.StatusUnknown, domain.ConfidenceLow),
				criterion("med_1", domain.CategoryMedication, domain.StatusUnknown, domain.ConfidenceLow),
			},
			Expected: domain.LabelPossible,
		},
		{
			Name: "clear_mismatch_across_the_board",
			Criteria: []domain.EligibilityCriterion{
				criterion("age", domain.CategoryAge, domain.StatusNotMet, domain.ConfidenceHigh),
				criterion("sex", domain.CategorySex, domain.StatusMet, domain.ConfidenceHigh),
				criterion("condition_match", domain.CategoryCondition, domain.StatusNotMet, domain.ConfidenceHigh),
				criterion("exc_1", domain.CategoryExclusion, domain.StatusNotMet, domain.ConfidenceMedium),
			},
			Expected: domain.LabelUnlikely,
		},
		{
			Name: "medication_exclusion_moderate",
			Criteria: []domain.EligibilityCriterion{
				criterion("age", domain.CategoryAge, domain.StatusMet, domain.ConfidenceHigh),
				criterion("sex", domain.CategorySex, domain.StatusMet, domain.ConfidenceHigh),
				criterion("condition_match", domain.CategoryCondition, domain.StatusMet, domain.ConfidenceMedium),
				criterion("med_warfarin", domain.CategoryMedication, domain.StatusNotMet, domain.ConfidenceMedium),
				criterion("inc_1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
			},
			Expected: domain.LabelLikely,
		},
		{
			Name: "mixed_text_signals",
			Criteria: []domain.EligibilityCriterion{
				criterion("inc_1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
				criterion("inc_2", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceHigh),
				criterion("exc_1", domain.CategoryExclusion, domain.StatusNotMet, domain.ConfidenceLow),
				criterion("lab_1", domain.CategoryLab, domain.StatusMissingData, domain.ConfidenceMedium),
				criterion("condition_match", domain.CategoryCondition, domain.StatusMet, domain.ConfidenceHigh),
			},
			Expected: domain.LabelPossible,
		},
	}
}

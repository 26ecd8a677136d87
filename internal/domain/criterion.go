package domain

import (
	"errors"
	"fmt"
	"time"
)

// EligibilityCriterion is one evaluated eligibility rule. Status and
// confidence are always jointly present: a criterion derived from directly
// observed structured data carries high confidence; criteria derived from
// free-text interpretation or semantic inference may carry any level the
// interpreter supplied.
type EligibilityCriterion struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Category      CriterionCategory `json:"category"`
	Status        CriterionStatus   `json:"status"`
	Confidence    Confidence        `json:"confidence"`
	PatientValue  string            `json:"patient_value,omitempty"`
	RequiredValue string            `json:"required_value,omitempty"`
	Rationale     string            `json:"rationale,omitempty"`
}

// Validate ensures the criterion meets the engine's invariants.
func (c *EligibilityCriterion) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("criterion validation: %w", errors.New("ID is required"))
	}
	if !c.Category.IsValid() {
		return fmt.Errorf("criterion validation: %w", ErrInvalidCategory)
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("criterion validation: %w", ErrInvalidStatus)
	}
	if !c.Confidence.IsValid() {
		return fmt.Errorf("criterion validation: %w", ErrInvalidConfidence)
	}
	return nil
}

// ConditionMatchResult records whether one trial-targeted condition
// corresponds to any patient condition.
type ConditionMatchResult struct {
	TrialCondition   string     `json:"trial_condition"`
	PatientCondition string     `json:"patient_condition,omitempty"`
	IsMatch          bool       `json:"is_match"`
	Confidence       Confidence `json:"confidence"`
	Rationale        string     `json:"rationale,omitempty"`
}

// CriterionCounts partitions a criterion list by status.
type CriterionCounts struct {
	Total       int `json:"total_criteria"`
	Met         int `json:"met_criteria"`
	NotMet      int `json:"not_met_criteria"`
	MissingData int `json:"missing_data_criteria"`
	Unknown     int `json:"unknown_criteria"`
}

// CountCriteria tallies a criterion list by status.
func CountCriteria(criteria []EligibilityCriterion) CriterionCounts {
	counts := CriterionCounts{Total: len(criteria)}
	for _, c := range criteria {
		switch c.Status {
		case StatusMet:
			counts.Met++
		case StatusNotMet:
			counts.NotMet++
		case StatusMissingData:
			counts.MissingData++
		default:
			counts.Unknown++
		}
	}
	return counts
}

// TrialMatchResult is the output of scoring one patient against one trial.
// It is created fresh per matching invocation and never mutated afterwards.
type TrialMatchResult struct {
	EvaluationID string `json:"evaluation_id"`
	NCTID        string `json:"nct_id"`
	BriefTitle   string `json:"brief_title"`
	Trial        *Trial `json:"trial,omitempty"`

	Score            int       `json:"score"`
	Tier             MatchTier `json:"tier"`
	HardDisqualifier bool      `json:"hard_disqualifier"`

	Counts           CriterionCounts        `json:"counts"`
	Criteria         []EligibilityCriterion `json:"criteria"`
	ConditionMatches []ConditionMatchResult `json:"condition_matches,omitempty"`

	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Validate checks the result's structural invariants: criterion counts by
// status must sum to the total, and the total must equal the criterion list
// length. A violation here is a programming-logic error, not a runtime
// condition.
func (r *TrialMatchResult) Validate() error {
	if r.NCTID == "" {
		return fmt.Errorf("match result validation: %w", ErrMissingTrialID)
	}
	if r.Score < 0 || r.Score > 100 {
		return fmt.Errorf("match result validation: score %d out of range", r.Score)
	}
	if r.Counts.Total != len(r.Criteria) {
		return fmt.Errorf("match result validation: total %d != criteria length %d",
			r.Counts.Total, len(r.Criteria))
	}
	sum := r.Counts.Met + r.Counts.NotMet + r.Counts.MissingData + r.Counts.Unknown
	if sum != r.Counts.Total {
		return fmt.Errorf("match result validation: status counts %d != total %d",
			sum, r.Counts.Total)
	}
	return nil
}

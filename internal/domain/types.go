// Package domain contains core business entities and types for clinical trial
// eligibility matching. Trial records follow the ClinicalTrials.gov study
// schema (NCT identifiers, structured eligibility module); criterion statuses
// and confidence levels are the engine's own vocabulary.
package domain

import "errors"

// CriterionStatus represents the outcome of evaluating a single eligibility
// rule against a patient profile.
type CriterionStatus string

const (
	StatusMet         CriterionStatus = "met"
	StatusNotMet      CriterionStatus = "not_met"
	StatusMissingData CriterionStatus = "missing_data"
	StatusUnknown     CriterionStatus = "unknown"
)

// CriterionCategory classifies which clinical axis a criterion evaluates.
type CriterionCategory string

const (
	CategoryAge        CriterionCategory = "age"
	CategorySex        CriterionCategory = "sex"
	CategoryCondition  CriterionCategory = "condition"
	CategoryMedication CriterionCategory = "medication"
	CategoryLab        CriterionCategory = "lab"
	CategoryInclusion  CriterionCategory = "inclusion"
	CategoryExclusion  CriterionCategory = "exclusion"
	CategoryOther      CriterionCategory = "other"
)

// Confidence represents how reliable a criterion's status is.
// Directly observed structured data is high; semantic inference and free-text
// interpretation may be medium or low.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MatchTier is the coarse bucket derived from a numeric match score.
type MatchTier string

const (
	TierExcellent MatchTier = "excellent"
	TierGood      MatchTier = "good"
	TierModerate  MatchTier = "moderate"
	TierLow       MatchTier = "low"
	TierPoor      MatchTier = "poor"
)

// BenchmarkLabel is the coarser labeling used by the scoring benchmark.
type BenchmarkLabel string

const (
	LabelLikely   BenchmarkLabel = "likely"
	LabelPossible BenchmarkLabel = "possible"
	LabelUnlikely BenchmarkLabel = "unlikely"
)

// ClinicalStatus is the status attached to a patient condition in the source
// record (FHIR clinicalStatus vocabulary, lowercased).
type ClinicalStatus string

const (
	ClinicalStatusActive   ClinicalStatus = "active"
	ClinicalStatusInactive ClinicalStatus = "inactive"
	ClinicalStatusUnknown  ClinicalStatus = "unknown"
)

// Validation errors for matching data integrity.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidStatus     = errors.New("invalid criterion status")
	ErrInvalidCategory   = errors.New("invalid criterion category")
	ErrInvalidConfidence = errors.New("invalid confidence level")
	ErrMissingTrialID    = errors.New("trial NCT ID is required")
	ErrMissingPatientID  = errors.New("patient ID is required")
)

// IsValid validates the criterion status.
func (s CriterionStatus) IsValid() bool {
	switch s {
	case StatusMet, StatusNotMet, StatusMissingData, StatusUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s CriterionStatus) String() string {
	return string(s)
}

// IsValid validates the criterion category.
func (c CriterionCategory) IsValid() bool {
	switch c {
	case CategoryAge, CategorySex, CategoryCondition, CategoryMedication,
		CategoryLab, CategoryInclusion, CategoryExclusion, CategoryOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c CriterionCategory) String() string {
	return string(c)
}

// IsCore reports whether a clear mismatch on this category should dominate
// the overall score. Age, sex, and condition are the axes where a trial that
// clearly excludes the patient cannot read as a good match.
func (c CriterionCategory) IsCore() bool {
	switch c {
	case CategoryAge, CategorySex, CategoryCondition:
		return true
	default:
		return false
	}
}

// IsValid validates the confidence level.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// String returns the string representation of the confidence level.
func (c Confidence) String() string {
	return string(c)
}

// String returns the string representation of the tier.
func (t MatchTier) String() string {
	return string(t)
}

// String returns the string representation of the benchmark label.
func (l BenchmarkLabel) String() string {
	return string(l)
}

// IsValid validates the benchmark label.
func (l BenchmarkLabel) IsValid() bool {
	switch l {
	case LabelLikely, LabelPossible, LabelUnlikely:
		return true
	default:
		return false
	}
}

// TierForScore maps a 0-100 score onto its coarse tier.
func TierForScore(score int) MatchTier {
	switch {
	case score >= 80:
		return TierExcellent
	case score >= 60:
		return TierGood
	case score >= 40:
		return TierModerate
	case score >= 20:
		return TierLow
	default:
		return TierPoor
	}
}

// LabelForScore maps a 0-100 score onto the benchmark's coarser labeling.
func LabelForScore(score int) BenchmarkLabel {
	switch {
	case score >= 70:
		return LabelLikely
	case score >= 40:
		return LabelPossible
	default:
		return LabelUnlikely
	}
}

// LogFields returns structured logging fields for audit trails.
func (t MatchTier) LogFields() map[string]any {
	return map[string]any{
		"tier":            string(t),
		"requires_review": t == TierExcellent || t == TierGood,
	}
}

package domain

import "fmt"

// Trial is one clinical trial record as supplied by the trial catalog
// provider (ClinicalTrials.gov study shape, reduced to what matching needs).
type Trial struct {
	NCTID       string           `json:"nct_id" validate:"required"`
	BriefTitle  string           `json:"brief_title"`
	Status      string           `json:"status,omitempty"`
	Conditions  []string         `json:"conditions,omitempty"`
	Eligibility TrialEligibility `json:"eligibility"`
}

// TrialEligibility holds a trial's eligibility data. Every field is optional;
// sparse registrations are common and must not penalize or inflate the score.
type TrialEligibility struct {
	// CriteriaText is the free-text inclusion/exclusion passage.
	CriteriaText string `json:"criteria_text,omitempty"`

	// HealthyVolunteers reports whether the trial accepts healthy
	// volunteers. Absent is treated as true.
	HealthyVolunteers *bool `json:"healthy_volunteers,omitempty"`

	// Sex is the required sex token. Absent or "all" means unrestricted.
	Sex *string `json:"sex,omitempty"`

	// MinimumAge and MaximumAge are registry age strings such as
	// "18 Years", "6 Months", "2 Weeks", "10 Days".
	MinimumAge *string `json:"minimum_age,omitempty"`
	MaximumAge *string `json:"maximum_age,omitempty"`
}

// Validate ensures the trial is structurally usable for matching.
func (t *Trial) Validate() error {
	if t.NCTID == "" {
		return fmt.Errorf("trial validation: %w", ErrMissingTrialID)
	}
	return nil
}

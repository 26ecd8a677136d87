package service

import (
	"fmt"

	"github.com/clearhealth/trialmatch/internal/domain"
)

// EvaluateHealthyVolunteer classifies eligibility based on whether the trial
// accepts healthy volunteers. An absent flag is treated as accepting. The
// criterion carries medium confidence because active-status tagging in source
// records is not always reliable.
func EvaluateHealthyVolunteer(profile *domain.PatientProfile, elig domain.TrialEligibility) domain.EligibilityCriterion {
	criterion := domain.EligibilityCriterion{
		ID:         "healthy_volunteers",
		Name:       "Healthy volunteer policy",
		Category:   domain.CategoryOther,
		Confidence: domain.ConfidenceMedium,
	}

	if elig.HealthyVolunteers == nil || *elig.HealthyVolunteers {
		criterion.Status = domain.StatusMet
		criterion.RequiredValue = "accepts healthy volunteers"
		criterion.Rationale = "trial accepts healthy volunteers, so anyone qualifies"
		return criterion
	}

	criterion.RequiredValue = "requires an active condition"
	activeCount := len(profile.ActiveConditionNames())
	criterion.PatientValue = fmt.Sprintf("%d active condition(s)", activeCount)

	if activeCount > 0 {
		criterion.Status = domain.StatusMet
		criterion.Rationale = "patient has active conditions and the trial requires affected participants"
	} else {
		criterion.Status = domain.StatusNotMet
		criterion.Rationale = "trial does not accept healthy volunteers and no active conditions are recorded"
	}
	return criterion
}

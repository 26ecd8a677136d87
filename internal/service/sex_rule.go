package service

import (
	"fmt"
	"strings"

	"github.com/clearhealth/trialmatch/internal/domain"
)

// normalizeSexToken lowercases a sex/gender token and expands the
// single-letter forms used by many source systems.
func normalizeSexToken(token string) string {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "m", "male":
		return "male"
	case "f", "female":
		return "female"
	default:
		return strings.ToLower(strings.TrimSpace(token))
	}
}

// EvaluateSex classifies the patient's recorded sex against the trial's sex
// restriction. Absent or "all" restriction means the trial is open to anyone.
func EvaluateSex(profile *domain.PatientProfile, elig domain.TrialEligibility) domain.EligibilityCriterion {
	criterion := domain.EligibilityCriterion{
		ID:         "sex",
		Name:       "Sex requirement",
		Category:   domain.CategorySex,
		Confidence: domain.ConfidenceHigh,
	}
	if elig.Sex != nil {
		criterion.RequiredValue = *elig.Sex
	} else {
		criterion.RequiredValue = "all"
	}

	if profile.Sex == nil {
		criterion.Status = domain.StatusMissingData
		criterion.Rationale = "patient sex is not recorded"
		return criterion
	}
	criterion.PatientValue = *profile.Sex

	if elig.Sex == nil || strings.EqualFold(*elig.Sex, "all") {
		criterion.Status = domain.StatusMet
		criterion.Rationale = "trial is open to all sexes"
		return criterion
	}

	if normalizeSexToken(*profile.Sex) == normalizeSexToken(*elig.Sex) {
		criterion.Status = domain.StatusMet
		criterion.Rationale = "patient sex matches the trial requirement"
		return criterion
	}

	criterion.Status = domain.StatusNotMet
	criterion.Rationale = fmt.Sprintf("trial requires %s participants", strings.ToLower(*elig.Sex))
	return criterion
}

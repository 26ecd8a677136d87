package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clearhealth/trialmatch/internal/domain"
)

// ageStringPattern matches registry age strings such as "18 Years",
// "6 Months", "2 Weeks", "10 Days".
var ageStringPattern = regexp.MustCompile(`^\s*(\d+)\s*([A-Za-z]+)?`)

// ParseAgeString converts a registry age string to years. Months divide by
// 12, weeks by 52, days by 365; an unrecognized unit is treated as years.
// Unparsable strings yield nil ("no bound"), never an error.
func ParseAgeString(s *string) *float64 {
	if s == nil {
		return nil
	}
	m := ageStringPattern.FindStringSubmatch(*s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}

	value := float64(n)
	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "month"):
		value /= 12
	case strings.HasPrefix(unit, "week"):
		value /= 52
	case strings.HasPrefix(unit, "day"):
		value /= 365
	}
	return &value
}

// EvaluateAge classifies the patient's age against the trial's age bounds.
// Both the bounds and the age are hard numeric facts, so confidence is
// always high.
func EvaluateAge(profile *domain.PatientProfile, elig domain.TrialEligibility) domain.EligibilityCriterion {
	criterion := domain.EligibilityCriterion{
		ID:            "age",
		Name:          "Age requirement",
		Category:      domain.CategoryAge,
		Confidence:    domain.ConfidenceHigh,
		RequiredValue: ageRangeLabel(elig.MinimumAge, elig.MaximumAge),
	}

	if profile.Age == nil {
		criterion.Status = domain.StatusMissingData
		criterion.Rationale = "patient age is not available"
		return criterion
	}

	age := float64(*profile.Age)
	criterion.PatientValue = fmt.Sprintf("%d years", *profile.Age)

	minAge := ParseAgeString(elig.MinimumAge)
	maxAge := ParseAgeString(elig.MaximumAge)

	if minAge == nil && maxAge == nil {
		criterion.Status = domain.StatusMet
		criterion.Rationale = "trial has no age restrictions"
		return criterion
	}

	// Below-minimum is checked first and owns the rationale when both
	// bounds could apply.
	if minAge != nil && age < *minAge {
		criterion.Status = domain.StatusNotMet
		criterion.Rationale = fmt.Sprintf("patient is younger than the trial minimum of %s", *elig.MinimumAge)
		return criterion
	}
	if maxAge != nil && age > *maxAge {
		criterion.Status = domain.StatusNotMet
		criterion.Rationale = fmt.Sprintf("patient is older than the trial maximum of %s", *elig.MaximumAge)
		return criterion
	}

	criterion.Status = domain.StatusMet
	criterion.Rationale = "patient age is within the trial's range"
	return criterion
}

func ageRangeLabel(minAge, maxAge *string) string {
	switch {
	case minAge != nil && maxAge != nil:
		return fmt.Sprintf("%s to %s", *minAge, *maxAge)
	case minAge != nil:
		return fmt.Sprintf("%s and older", *minAge)
	case maxAge != nil:
		return fmt.Sprintf("up to %s", *maxAge)
	default:
		return "no age restrictions"
	}
}

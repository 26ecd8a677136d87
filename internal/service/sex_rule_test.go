package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clearhealth/trialmatch/internal/domain"
)

func TestEvaluateSex(t *testing.T) {
	tests := []struct {
		name       string
		patientSex *string
		trialSex   *string
		wantStatus domain.CriterionStatus
	}{
		{"exact match", strPtr("female"), strPtr("Female"), domain.StatusMet},
		{"abbreviation matches word", strPtr("M"), strPtr("Male"), domain.StatusMet},
		{"word matches abbreviation", strPtr("Female"), strPtr("F"), domain.StatusMet},
		{"mismatch", strPtr("female"), strPtr("Male"), domain.StatusNotMet},
		{"all accepts anyone", strPtr("male"), strPtr("All"), domain.StatusMet},
		{"no restriction", strPtr("female"), nil, domain.StatusMet},
		{"patient sex unknown", nil, strPtr("Female"), domain.StatusMissingData},
		{"patient sex unknown unrestricted trial", nil, nil, domain.StatusMissingData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &domain.PatientProfile{PatientID: "p-1", Sex: tt.patientSex}
			elig := domain.TrialEligibility{Sex: tt.trialSex}

			crit := EvaluateSex(profile, elig)

			assert.Equal(t, "sex", crit.ID)
			assert.Equal(t, domain.CategorySex, crit.Category)
			assert.Equal(t, domain.ConfidenceHigh, crit.Confidence)
			assert.Equal(t, tt.wantStatus, crit.Status)
			assert.NotEmpty(t, crit.Rationale)
		})
	}
}

func TestNormalizeSexToken(t *testing.T) {
	assert.Equal(t, "male", normalizeSexToken("M"))
	assert.Equal(t, "male", normalizeSexToken(" Male "))
	assert.Equal(t, "female", normalizeSexToken("f"))
	assert.Equal(t, "female", normalizeSexToken("FEMALE"))
	assert.Equal(t, "intersex", normalizeSexToken("Intersex"))
}

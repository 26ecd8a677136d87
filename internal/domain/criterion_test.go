package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountCriteria(t *testing.T) {
	criteria := []EligibilityCriterion{
		{ID: "a", Category: CategoryAge, Status: StatusMet, Confidence: ConfidenceHigh},
		{ID: "b", Category: CategorySex, Status: StatusMet, Confidence: ConfidenceHigh},
		{ID: "c", Category: CategoryLab, Status: StatusNotMet, Confidence: ConfidenceMedium},
		{ID: "d", Category: CategoryOther, Status: StatusMissingData, Confidence: ConfidenceLow},
		{ID: "e", Category: CategoryInclusion, Status: StatusUnknown, Confidence: ConfidenceLow},
	}

	counts := CountCriteria(criteria)

	assert.Equal(t, 5, counts.Total)
	assert.Equal(t, 2, counts.Met)
	assert.Equal(t, 1, counts.NotMet)
	assert.Equal(t, 1, counts.MissingData)
	assert.Equal(t, 1, counts.Unknown)
	assert.Equal(t, counts.Total, counts.Met+counts.NotMet+counts.MissingData+counts.Unknown)
}

func TestTrialMatchResultValidate(t *testing.T) {
	criteria := []EligibilityCriterion{
		{ID: "a", Category: CategoryAge, Status: StatusMet, Confidence: ConfidenceHigh},
		{ID: "b", Category: CategorySex, Status: StatusNotMet, Confidence: ConfidenceHigh},
	}

	result := &TrialMatchResult{
		NCTID:    "NCT01234567",
		Score:    50,
		Tier:     TierModerate,
		Counts:   CountCriteria(criteria),
		Criteria: criteria,
	}
	require.NoError(t, result.Validate())

	t.Run("missing NCT ID", func(t *testing.T) {
		bad := *result
		bad.NCTID = ""
		assert.Error(t, bad.Validate())
	})

	t.Run("score out of range", func(t *testing.T) {
		bad := *result
		bad.Score = 101
		assert.Error(t, bad.Validate())
	})

	t.Run("counts not summing to total", func(t *testing.T) {
		bad := *result
		bad.Counts.Met = 2
		assert.Error(t, bad.Validate())
	})

	t.Run("total disagrees with criteria length", func(t *testing.T) {
		bad := *result
		bad.Counts.Total = 3
		assert.Error(t, bad.Validate())
	})
}

func TestEligibilityCriterionValidate(t *testing.T) {
	valid := EligibilityCriterion{
		ID:         "age",
		Name:       "Age requirement",
		Category:   CategoryAge,
		Status:     StatusMet,
		Confidence: ConfidenceHigh,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *EligibilityCriterion)
	}{
		{"missing ID", func(c *EligibilityCriterion) { c.ID = "" }},
		{"bad category", func(c *EligibilityCriterion) { c.Category = "demographics" }},
		{"bad status", func(c *EligibilityCriterion) { c.Status = "maybe" }},
		{"bad confidence", func(c *EligibilityCriterion) { c.Confidence = "certain" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestPatientProfileSummaryBounds(t *testing.T) {
	age := 47
	sex := "female"
	profile := &PatientProfile{
		PatientID: "patient-1",
		Age:       &age,
		Sex:       &sex,
	}
	for i := 0; i < 15; i++ {
		profile.Conditions = append(profile.Conditions, PatientCondition{
			DisplayName:    "Condition",
			ClinicalStatus: ClinicalStatusActive,
		})
		profile.Medications = append(profile.Medications, Medication{DisplayName: "Drug"})
	}

	summary := profile.Summary(10, 10, 5)
	assert.Contains(t, summary, "Age: 47 years")
	assert.Contains(t, summary, "Sex: female")
	// 15 conditions and medications are truncated to 10 each.
	assert.Equal(t, 10, len(truncateList(profile.ConditionNames(), 10)))
}

func TestActiveConditionNames(t *testing.T) {
	profile := &PatientProfile{
		PatientID: "patient-1",
		Conditions: []PatientCondition{
			{DisplayName: "Type 2 Diabetes", ClinicalStatus: ClinicalStatusActive},
			{DisplayName: "Asthma", ClinicalStatus: ClinicalStatusInactive},
			{DisplayName: "Hypertension", ClinicalStatus: ClinicalStatusActive},
		},
	}

	assert.Equal(t, []string{"Type 2 Diabetes", "Hypertension"}, profile.ActiveConditionNames())
	assert.Len(t, profile.ConditionNames(), 3)
}

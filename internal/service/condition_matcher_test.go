package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearhealth/trialmatch/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubClassifier struct {
	results []domain.ConditionMatchResult
	err     error
	calls   int
}

func (s *stubClassifier) MatchConditions(_ context.Context, _, _ []string) ([]domain.ConditionMatchResult, error) {
	s.calls++
	return s.results, s.err
}

func diabetesProfile() *domain.PatientProfile {
	return &domain.PatientProfile{
		PatientID: "p-1",
		Conditions: []domain.PatientCondition{
			{DisplayName: "Type 2 Diabetes", ClinicalStatus: domain.ClinicalStatusActive},
		},
	}
}

func TestConditionMatcherFallback(t *testing.T) {
	tests := []struct {
		name           string
		patient        []domain.PatientCondition
		trial          []string
		wantMatch      bool
		wantConfidence domain.Confidence
	}{
		{
			name: "substring overlap matches",
			patient: []domain.PatientCondition{
				{DisplayName: "Type 2 Diabetes", ClinicalStatus: domain.ClinicalStatusActive},
			},
			trial:          []string{"Diabetes"},
			wantMatch:      true,
			wantConfidence: domain.ConfidenceMedium,
		},
		{
			name: "reverse containment matches",
			patient: []domain.PatientCondition{
				{DisplayName: "Asthma", ClinicalStatus: domain.ClinicalStatusActive},
			},
			trial:          []string{"Severe Asthma"},
			wantMatch:      true,
			wantConfidence: domain.ConfidenceMedium,
		},
		{
			name: "case-insensitive",
			patient: []domain.PatientCondition{
				{DisplayName: "HYPERTENSION", ClinicalStatus: domain.ClinicalStatusActive},
			},
			trial:          []string{"hypertension"},
			wantMatch:      true,
			wantConfidence: domain.ConfidenceMedium,
		},
		{
			name: "no overlap",
			patient: []domain.PatientCondition{
				{DisplayName: "Asthma", ClinicalStatus: domain.ClinicalStatusActive},
			},
			trial:          []string{"Melanoma"},
			wantMatch:      false,
			wantConfidence: domain.ConfidenceLow,
		},
	}

	cm := NewConditionMatcher(testLogger(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &domain.PatientProfile{PatientID: "p-1", Conditions: tt.patient}

			results := cm.Match(context.Background(), profile, tt.trial)

			require.Len(t, results, len(tt.trial))
			assert.Equal(t, tt.wantMatch, results[0].IsMatch)
			assert.Equal(t, tt.wantConfidence, results[0].Confidence)
			assert.Equal(t, tt.trial[0], results[0].TrialCondition)
		})
	}
}

func TestConditionMatcherEmptyInputs(t *testing.T) {
	cm := NewConditionMatcher(testLogger(), nil)

	t.Run("no trial conditions", func(t *testing.T) {
		results := cm.Match(context.Background(), diabetesProfile(), nil)
		assert.Empty(t, results)
	})

	t.Run("no patient conditions", func(t *testing.T) {
		profile := &domain.PatientProfile{PatientID: "p-1"}
		results := cm.Match(context.Background(), profile, []string{"Diabetes", "Obesity"})
		require.Len(t, results, 2)
		for _, r := range results {
			assert.False(t, r.IsMatch)
			assert.Equal(t, domain.ConfidenceLow, r.Confidence)
		}
	})
}

func TestConditionMatcherClassifierPath(t *testing.T) {
	classifier := &stubClassifier{
		results: []domain.ConditionMatchResult{
			{
				TrialCondition:   "Diabetes Mellitus",
				PatientCondition: "Type 2 Diabetes",
				IsMatch:          true,
				Confidence:       domain.ConfidenceHigh,
				Rationale:        "type 2 diabetes is a form of diabetes mellitus",
			},
		},
	}
	cm := NewConditionMatcher(testLogger(), classifier)

	results := cm.Match(context.Background(), diabetesProfile(), []string{"Diabetes Mellitus"})

	require.Len(t, results, 1)
	assert.True(t, results[0].IsMatch)
	assert.Equal(t, domain.ConfidenceHigh, results[0].Confidence)
	assert.Equal(t, 1, classifier.calls)
}

func TestConditionMatcherFallsBackOnClassifierError(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("upstream timeout")}
	cm := NewConditionMatcher(testLogger(), classifier)

	results := cm.Match(context.Background(), diabetesProfile(), []string{"Diabetes"})

	require.Len(t, results, 1)
	assert.True(t, results[0].IsMatch)
	assert.Equal(t, domain.ConfidenceMedium, results[0].Confidence)
}

func TestConditionMatcherFallsBackOnWrongResultCount(t *testing.T) {
	classifier := &stubClassifier{results: nil}
	cm := NewConditionMatcher(testLogger(), classifier)

	results := cm.Match(context.Background(), diabetesProfile(), []string{"Diabetes", "Obesity"})

	require.Len(t, results, 2)
	assert.True(t, results[0].IsMatch)
	assert.False(t, results[1].IsMatch)
}

func TestSynthesizeCriterion(t *testing.T) {
	trialConditions := []string{"Diabetes Mellitus", "Obesity"}

	t.Run("any match yields met", func(t *testing.T) {
		matches := []domain.ConditionMatchResult{
			{TrialCondition: "Diabetes Mellitus", PatientCondition: "Type 2 Diabetes", IsMatch: true},
			{TrialCondition: "Obesity", IsMatch: false},
		}
		crit := SynthesizeCriterion(trialConditions, matches)
		assert.Equal(t, "condition_match", crit.ID)
		assert.Equal(t, domain.CategoryCondition, crit.Category)
		assert.Equal(t, domain.StatusMet, crit.Status)
		assert.Equal(t, domain.ConfidenceHigh, crit.Confidence)
		assert.Equal(t, "Type 2 Diabetes", crit.PatientValue)
	})

	t.Run("match without patient name still met", func(t *testing.T) {
		matches := []domain.ConditionMatchResult{
			{TrialCondition: "Diabetes Mellitus", IsMatch: true},
		}
		crit := SynthesizeCriterion(trialConditions, matches)
		assert.Equal(t, domain.StatusMet, crit.Status)
	})

	t.Run("no matches yields not met at medium confidence", func(t *testing.T) {
		matches := []domain.ConditionMatchResult{
			{TrialCondition: "Diabetes Mellitus", IsMatch: false},
			{TrialCondition: "Obesity", IsMatch: false},
		}
		crit := SynthesizeCriterion(trialConditions, matches)
		assert.Equal(t, domain.StatusNotMet, crit.Status)
		assert.Equal(t, domain.ConfidenceMedium, crit.Confidence)
	})
}

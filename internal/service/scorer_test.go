package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clearhealth/trialmatch/internal/domain"
)

func TestScoreEmptyCriteriaIsNeutral(t *testing.T) {
	scorer := NewScorer(testLogger())

	breakdown := scorer.Score(nil)

	assert.Equal(t, neutralScore, breakdown.RawScore)
	assert.Equal(t, neutralScore, breakdown.FinalScore)
	assert.False(t, breakdown.HardDisqualifier)
}

func TestScoreStatusWeights(t *testing.T) {
	scorer := NewScorer(testLogger())

	tests := []struct {
		name     string
		criteria []domain.EligibilityCriterion
		want     int
	}{
		{
			name: "single met high confidence",
			criteria: []domain.EligibilityCriterion{
				criterion("c1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceHigh),
			},
			want: 100,
		},
		{
			name: "single met medium confidence",
			criteria: []domain.EligibilityCriterion{
				criterion("c1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
			},
			want: 80,
		},
		{
			name: "single met low confidence",
			criteria: []domain.EligibilityCriterion{
				criterion("c1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceLow),
			},
			want: 60,
		},
		{
			name: "missing data earns flat partial credit",
			criteria: []domain.EligibilityCriterion{
				criterion("c1", domain.CategoryLab, domain.StatusMissingData, domain.ConfidenceHigh),
			},
			want: 50,
		},
		{
			name: "unknown earns flat partial credit",
			criteria: []domain.EligibilityCriterion{
				criterion("c1", domain.CategoryInclusion, domain.StatusUnknown, domain.ConfidenceLow),
			},
			want: 50,
		},
		{
			name: "noncore not met earns zero without a cap",
			criteria: []domain.EligibilityCriterion{
				criterion("c1", domain.CategoryLab, domain.StatusNotMet, domain.ConfidenceHigh),
				criterion("c2", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceHigh),
			},
			want: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breakdown := scorer.Score(tt.criteria)
			assert.Equal(t, tt.want, breakdown.FinalScore)
		})
	}
}

func TestScoreConfidenceStrictlyOrdersMetCredit(t *testing.T) {
	scorer := NewScorer(testLogger())

	high := scorer.Score([]domain.EligibilityCriterion{
		criterion("c1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceHigh),
	})
	medium := scorer.Score([]domain.EligibilityCriterion{
		criterion("c1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceMedium),
	})
	low := scorer.Score([]domain.EligibilityCriterion{
		criterion("c1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceLow),
	})

	assert.Greater(t, high.FinalScore, medium.FinalScore)
	assert.Greater(t, medium.FinalScore, low.FinalScore)
}

func TestScoreHardDisqualifier(t *testing.T) {
	scorer := NewScorer(testLogger())

	criteria := []domain.EligibilityCriterion{
		criterion("age", domain.CategoryAge, domain.StatusNotMet, domain.ConfidenceHigh),
		criterion("sex", domain.CategorySex, domain.StatusMet, domain.ConfidenceHigh),
		criterion("condition_match", domain.CategoryCondition, domain.StatusMet, domain.ConfidenceHigh),
		criterion("healthy_volunteers", domain.CategoryOther, domain.StatusMet, domain.ConfidenceMedium),
	}

	breakdown := scorer.Score(criteria)

	assert.True(t, breakdown.HardDisqualifier)
	assert.Equal(t, 70, breakdown.RawScore)
	assert.Equal(t, hardDisqualifierCeiling, breakdown.FinalScore)
	assert.LessOrEqual(t, breakdown.FinalScore, breakdown.RawScore)
}

func TestScoreNoHardDisqualifierCases(t *testing.T) {
	scorer := NewScorer(testLogger())

	t.Run("core not met at medium confidence", func(t *testing.T) {
		breakdown := scorer.Score([]domain.EligibilityCriterion{
			criterion("condition_match", domain.CategoryCondition, domain.StatusNotMet, domain.ConfidenceMedium),
			criterion("age", domain.CategoryAge, domain.StatusMet, domain.ConfidenceHigh),
		})
		assert.False(t, breakdown.HardDisqualifier)
		assert.Equal(t, breakdown.RawScore, breakdown.FinalScore)
	})

	t.Run("noncore not met at high confidence", func(t *testing.T) {
		breakdown := scorer.Score([]domain.EligibilityCriterion{
			criterion("lab_1", domain.CategoryLab, domain.StatusNotMet, domain.ConfidenceHigh),
			criterion("age", domain.CategoryAge, domain.StatusMet, domain.ConfidenceHigh),
		})
		assert.False(t, breakdown.HardDisqualifier)
	})
}

func TestScoreAllMissingDataLandsMidRange(t *testing.T) {
	scorer := NewScorer(testLogger())

	criteria := []domain.EligibilityCriterion{
		criterion("age", domain.CategoryAge, domain.StatusMissingData, domain.ConfidenceHigh),
		criterion("sex", domain.CategorySex, domain.StatusMissingData, domain.ConfidenceHigh),
		criterion("lab_1", domain.CategoryLab, domain.StatusMissingData, domain.ConfidenceMedium),
		criterion("med_1", domain.CategoryMedication, domain.StatusUnknown, domain.ConfidenceLow),
	}

	breakdown := scorer.Score(criteria)

	assert.Equal(t, 50, breakdown.FinalScore)
	assert.Greater(t, breakdown.FinalScore, 10)
	assert.Less(t, breakdown.FinalScore, 60)
}

func TestScoreBounds(t *testing.T) {
	scorer := NewScorer(testLogger())

	allMet := make([]domain.EligibilityCriterion, 12)
	allFailed := make([]domain.EligibilityCriterion, 12)
	for i := range allMet {
		allMet[i] = criterion("c", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceHigh)
		allFailed[i] = criterion("c", domain.CategoryInclusion, domain.StatusNotMet, domain.ConfidenceHigh)
	}

	assert.Equal(t, 100, scorer.Score(allMet).FinalScore)
	assert.Equal(t, 0, scorer.Score(allFailed).FinalScore)
}

func TestLegacyScore(t *testing.T) {
	scorer := NewScorer(testLogger())

	t.Run("ignores confidence on met criteria", func(t *testing.T) {
		breakdown := scorer.LegacyScore([]domain.EligibilityCriterion{
			criterion("c1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceLow),
			criterion("c2", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceLow),
		})
		assert.Equal(t, 100, breakdown.FinalScore)
	})

	t.Run("caps on any high-confidence failure", func(t *testing.T) {
		breakdown := scorer.LegacyScore([]domain.EligibilityCriterion{
			criterion("lab_1", domain.CategoryLab, domain.StatusNotMet, domain.ConfidenceHigh),
			criterion("c1", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceHigh),
			criterion("c2", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceHigh),
			criterion("c3", domain.CategoryInclusion, domain.StatusMet, domain.ConfidenceHigh),
		})
		assert.Equal(t, 75, breakdown.RawScore)
		assert.Equal(t, legacyNotMetCeiling, breakdown.FinalScore)
	})

	t.Run("empty list is neutral", func(t *testing.T) {
		breakdown := scorer.LegacyScore(nil)
		assert.Equal(t, neutralScore, breakdown.FinalScore)
	})
}

package service

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/clearhealth/trialmatch/internal/domain"
)

const (
	// hardDisqualifierCeiling caps the final score when a high-confidence
	// core-category criterion failed: a trial that clearly excludes the
	// patient on age, sex, or condition cannot read as a good match no
	// matter how many other criteria are satisfied.
	hardDisqualifierCeiling = 25

	// legacyNotMetCeiling is the deprecated flat cap applied by the legacy
	// formula on any high-confidence failed criterion, kept only for
	// benchmark comparison.
	legacyNotMetCeiling = 30

	// neutralScore is returned for an empty criterion list: an unscoreable
	// trial neither inflates nor collapses.
	neutralScore = 50

	partialCreditWeight = 50
)

// ScoreBreakdown is the aggregator's output for one criterion list.
type ScoreBreakdown struct {
	RawScore         int  `json:"raw_score"`
	FinalScore       int  `json:"final_score"`
	HardDisqualifier bool `json:"hard_disqualifier"`
}

// Scorer combines evaluated criteria into one normalized 0-100 match score.
type Scorer struct {
	logger *logrus.Logger
}

// NewScorer creates a new criterion aggregator.
func NewScorer(logger *logrus.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// confidenceWeight scales the positive credit a met criterion earns. A
// low-confidence match must contribute strictly less than the same match at
// high confidence.
func confidenceWeight(c domain.Confidence) float64 {
	switch c {
	case domain.ConfidenceHigh:
		return 1.0
	case domain.ConfidenceMedium:
		return 0.8
	default:
		return 0.6
	}
}

// Score applies the current formula: met criteria earn 100 scaled by
// confidence, missing_data and unknown earn a flat 50 (benefit of the doubt),
// not_met earns 0. A high-confidence not_met in a core category (age, sex,
// condition) is a hard disqualifier that clamps the final score to a low
// ceiling regardless of the weighted average.
func (s *Scorer) Score(criteria []domain.EligibilityCriterion) ScoreBreakdown {
	if len(criteria) == 0 {
		return ScoreBreakdown{RawScore: neutralScore, FinalScore: neutralScore}
	}

	var sum float64
	hardDisqualifier := false
	for _, c := range criteria {
		switch c.Status {
		case domain.StatusMet:
			sum += 100 * confidenceWeight(c.Confidence)
		case domain.StatusMissingData, domain.StatusUnknown:
			sum += partialCreditWeight
		case domain.StatusNotMet:
			if c.Confidence == domain.ConfidenceHigh && c.Category.IsCore() {
				hardDisqualifier = true
			}
		}
	}

	raw := clampScore(int(math.Round(sum / float64(len(criteria)))))
	final := raw
	if hardDisqualifier && final > hardDisqualifierCeiling {
		final = hardDisqualifierCeiling
	}

	s.logger.WithFields(logrus.Fields{
		"criteria":          len(criteria),
		"raw_score":         raw,
		"final_score":       final,
		"hard_disqualifier": hardDisqualifier,
	}).Debug("Scored criterion list")

	return ScoreBreakdown{
		RawScore:         raw,
		FinalScore:       final,
		HardDisqualifier: hardDisqualifier,
	}
}

// LegacyScore applies the deprecated formula kept for regression comparison:
// an unweighted average with status weights 100/0/50/50 and a flat cap on any
// high-confidence not_met criterion, core category or not. It exists only so
// the benchmark can demonstrate the current formula's improvement and must
// not be merged into Score.
func (s *Scorer) LegacyScore(criteria []domain.EligibilityCriterion) ScoreBreakdown {
	if len(criteria) == 0 {
		return ScoreBreakdown{RawScore: neutralScore, FinalScore: neutralScore}
	}

	var sum float64
	capped := false
	for _, c := range criteria {
		switch c.Status {
		case domain.StatusMet:
			sum += 100
		case domain.StatusMissingData, domain.StatusUnknown:
			sum += partialCreditWeight
		case domain.StatusNotMet:
			if c.Confidence == domain.ConfidenceHigh {
				capped = true
			}
		}
	}

	raw := clampScore(int(math.Round(sum / float64(len(criteria)))))
	final := raw
	if capped && final > legacyNotMetCeiling {
		final = legacyNotMetCeiling
	}

	return ScoreBreakdown{
		RawScore:         raw,
		FinalScore:       final,
		HardDisqualifier: capped,
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

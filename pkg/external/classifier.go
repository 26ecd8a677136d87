package external

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clearhealth/trialmatch/internal/domain"
)

const classifierSystemPrompt = `You are a clinical terminology expert. Decide whether any of the patient's conditions is the same disease as, a subtype of, or a direct synonym for each trial condition. Comorbidities and risk factors do not count as matches. Respond with a JSON array only, one object per trial condition, in the given order: [{"trial_condition": "...", "patient_condition": "...", "is_match": true, "confidence": "high|medium|low", "rationale": "..."}]. Use an empty patient_condition when is_match is false.`

// ConditionClassifier asks the language model whether patient conditions
// semantically correspond to trial-targeted conditions. It implements
// domain.SemanticClassifier.
type ConditionClassifier struct {
	logger    *logrus.Logger
	completer Completer
}

// NewConditionClassifier creates a new semantic condition classifier.
func NewConditionClassifier(logger *logrus.Logger, completer Completer) *ConditionClassifier {
	return &ConditionClassifier{
		logger:    logger,
		completer: completer,
	}
}

type classifierResult struct {
	TrialCondition   string `json:"trial_condition"`
	PatientCondition string `json:"patient_condition"`
	IsMatch          bool   `json:"is_match"`
	Confidence       string `json:"confidence"`
	Rationale        string `json:"rationale"`
}

// MatchConditions returns one match result per trial condition, in the order
// the trial conditions were given.
func (c *ConditionClassifier) MatchConditions(ctx context.Context, patientConditions, trialConditions []string) ([]domain.ConditionMatchResult, error) {
	if len(trialConditions) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf("Patient conditions:\n%s\n\nTrial conditions:\n%s",
		bulletList(patientConditions), bulletList(trialConditions))

	raw, err := c.completer.Complete(ctx, classifierSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("condition classification failed: %w", err)
	}

	block, err := extractJSONBlock(raw)
	if err != nil {
		return nil, fmt.Errorf("condition classification returned no JSON: %w", err)
	}

	var parsed []classifierResult
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse classification output: %w", err)
	}
	if len(parsed) != len(trialConditions) {
		return nil, fmt.Errorf("classifier returned %d results for %d trial conditions", len(parsed), len(trialConditions))
	}

	results := make([]domain.ConditionMatchResult, 0, len(parsed))
	for i, p := range parsed {
		confidence := domain.Confidence(strings.ToLower(p.Confidence))
		if !confidence.IsValid() {
			confidence = domain.ConfidenceLow
		}
		// Results are trusted positionally; the echoed trial condition is
		// replaced with the input so reordering by the model cannot
		// mislabel output.
		results = append(results, domain.ConditionMatchResult{
			TrialCondition:   trialConditions[i],
			PatientCondition: p.PatientCondition,
			IsMatch:          p.IsMatch,
			Confidence:       confidence,
			Rationale:        p.Rationale,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"trial_conditions": len(trialConditions),
		"matches":          countMatches(results),
	}).Debug("Semantic condition classification complete")

	return results, nil
}

func countMatches(results []domain.ConditionMatchResult) int {
	n := 0
	for _, r := range results {
		if r.IsMatch {
			n++
		}
	}
	return n
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

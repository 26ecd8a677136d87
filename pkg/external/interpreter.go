package external

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clearhealth/trialmatch/internal/domain"
)

const interpreterSystemPrompt = `You are a clinical research coordinator reviewing trial eligibility text against a patient summary. Extract the most decision-relevant criteria and judge each against the summary. Statuses: "met", "not_met", "missing_data" (the summary lacks the fact), "unknown" (the text is ambiguous). Categories: "condition", "medication", "lab", "inclusion", "exclusion", "other". Respond with a JSON array only: [{"id": "snake_case_id", "name": "...", "category": "...", "status": "...", "confidence": "high|medium|low", "patient_value": "...", "required_value": "...", "rationale": "..."}]. Never guess facts the summary does not contain.`

// CriteriaExtractor interprets a trial's free-text eligibility passage
// against a patient summary. It implements domain.TextInterpreter.
type CriteriaExtractor struct {
	logger    *logrus.Logger
	completer Completer
}

// NewCriteriaExtractor creates a new free-text criteria extractor.
func NewCriteriaExtractor(logger *logrus.Logger, completer Completer) *CriteriaExtractor {
	return &CriteriaExtractor{
		logger:    logger,
		completer: completer,
	}
}

type extractedCriterion struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Status        string `json:"status"`
	Confidence    string `json:"confidence"`
	PatientValue  string `json:"patient_value"`
	RequiredValue string `json:"required_value"`
	Rationale     string `json:"rationale"`
}

// ExtractCriteria returns up to maxCriteria criteria judged against the
// patient summary.
func (e *CriteriaExtractor) ExtractCriteria(ctx context.Context, patientSummary, criteriaText string, maxCriteria int) ([]domain.EligibilityCriterion, error) {
	prompt := fmt.Sprintf("Patient summary:\n%s\n\nEligibility criteria text:\n%s\n\nExtract at most %d criteria.",
		patientSummary, criteriaText, maxCriteria)

	raw, err := e.completer.Complete(ctx, interpreterSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("criteria interpretation failed: %w", err)
	}

	block, err := extractJSONBlock(raw)
	if err != nil {
		return nil, fmt.Errorf("criteria interpretation returned no JSON: %w", err)
	}

	var parsed []extractedCriterion
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse interpretation output: %w", err)
	}

	criteria := make([]domain.EligibilityCriterion, 0, len(parsed))
	for _, p := range parsed {
		criteria = append(criteria, domain.EligibilityCriterion{
			ID:            p.ID,
			Name:          p.Name,
			Category:      domain.CriterionCategory(p.Category),
			Status:        domain.CriterionStatus(p.Status),
			Confidence:    domain.Confidence(p.Confidence),
			PatientValue:  p.PatientValue,
			RequiredValue: p.RequiredValue,
			Rationale:     p.Rationale,
		})
	}

	e.logger.WithFields(logrus.Fields{
		"extracted": len(criteria),
		"max":       maxCriteria,
	}).Debug("Free-text criteria interpretation complete")

	return criteria, nil
}

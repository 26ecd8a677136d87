package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/clearhealth/trialmatch/internal/domain"
)

const (
	// minCriteriaTextLength is the shortest eligibility passage worth
	// interpreting. Sparse registrations are common and must not penalize
	// or inflate the score.
	minCriteriaTextLength = 10

	defaultMaxFreeTextChars = 2000
	defaultMaxCriteria      = 8

	summaryMaxConditions  = 10
	summaryMaxMedications = 10
	summaryMaxLabs        = 5
)

// CriteriaInterpreter extracts discrete eligibility criteria from a trial's
// free-text eligibility passage via an external text-understanding call. Any
// failure resolves to an empty criterion list; no error ever reaches the
// aggregator.
type CriteriaInterpreter struct {
	logger       *logrus.Logger
	interpreter  domain.TextInterpreter
	maxTextChars int
	maxCriteria  int
}

// NewCriteriaInterpreter creates a new free-text criteria interpreter. The
// underlying interpreter may be nil, in which case extraction always returns
// an empty list.
func NewCriteriaInterpreter(logger *logrus.Logger, interpreter domain.TextInterpreter, cfg domain.MatcherConfig) *CriteriaInterpreter {
	maxChars := cfg.MaxFreeTextChars
	if maxChars <= 0 {
		maxChars = defaultMaxFreeTextChars
	}
	maxCriteria := cfg.MaxCriteria
	if maxCriteria <= 0 {
		maxCriteria = defaultMaxCriteria
	}
	return &CriteriaInterpreter{
		logger:       logger,
		interpreter:  interpreter,
		maxTextChars: maxChars,
		maxCriteria:  maxCriteria,
	}
}

// Extract returns up to maxCriteria criteria interpreted from the passage, or
// an empty list when the passage is absent, too short, or the external call
// fails or returns unusable output.
func (ci *CriteriaInterpreter) Extract(ctx context.Context, profile *domain.PatientProfile, criteriaText string) []domain.EligibilityCriterion {
	text := strings.TrimSpace(criteriaText)
	if len(text) < minCriteriaTextLength {
		return nil
	}
	if ci.interpreter == nil {
		ci.logger.Debug("No text interpreter configured, skipping free-text criteria")
		return nil
	}

	if len(text) > ci.maxTextChars {
		// Back up to a rune boundary so the cut never produces invalid UTF-8.
		cut := ci.maxTextChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	summary := profile.Summary(summaryMaxConditions, summaryMaxMedications, summaryMaxLabs)

	criteria, err := ci.interpreter.ExtractCriteria(ctx, summary, text, ci.maxCriteria)
	if err != nil {
		ci.logger.WithError(err).Warn("Free-text criteria interpretation failed, continuing without text criteria")
		return nil
	}

	return ci.sanitize(criteria)
}

// sanitize applies defensive defaults to interpreter output: missing category
// becomes other, missing status unknown, missing confidence low. Output is
// capped at maxCriteria and every criterion gets a usable identifier.
func (ci *CriteriaInterpreter) sanitize(criteria []domain.EligibilityCriterion) []domain.EligibilityCriterion {
	if len(criteria) > ci.maxCriteria {
		criteria = criteria[:ci.maxCriteria]
	}

	out := make([]domain.EligibilityCriterion, 0, len(criteria))
	for i, c := range criteria {
		if c.ID == "" {
			c.ID = fmt.Sprintf("text_criterion_%d", i+1)
		}
		if !c.Category.IsValid() {
			c.Category = domain.CategoryOther
		}
		if !c.Status.IsValid() {
			c.Status = domain.StatusUnknown
		}
		if !c.Confidence.IsValid() {
			c.Confidence = domain.ConfidenceLow
		}
		if c.Name == "" {
			c.Name = c.ID
		}
		out = append(out, c)
	}
	return out
}

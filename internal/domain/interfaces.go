package domain

import "context"

// SemanticClassifier decides whether patient conditions correspond to trial
// target conditions. Implementations call an external language model and are
// fallible and non-deterministic; callers must treat failure or malformed
// output as a signal to use the deterministic fallback, never as a fatal
// error.
type SemanticClassifier interface {
	MatchConditions(ctx context.Context, patientConditions, trialConditions []string) ([]ConditionMatchResult, error)
}

// TextInterpreter extracts discrete eligibility criteria from a trial's
// free-text eligibility passage, evaluated against a bounded patient summary.
// On failure callers fall back to an empty criterion list.
type TextInterpreter interface {
	ExtractCriteria(ctx context.Context, patientSummary, criteriaText string, maxCriteria int) ([]EligibilityCriterion, error)
}

// ConfigManager defines the interface for configuration management.
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetModelConfig() *ModelConfig
	GetMatcherConfig() *MatcherConfig
	Reload() error
	Validate() error
}

// Package feedback provides clinician feedback storage for trial match
// results. It stores confirmations and corrections of the engine's scoring so
// accuracy can be audited against real screening outcomes.
package feedback

import (
	"context"
	"io"
	"time"
)

// Assessment is the clinician's own eligibility judgment for a patient-trial
// pairing.
type Assessment string

const (
	AssessmentEligible   Assessment = "eligible"
	AssessmentIneligible Assessment = "ineligible"
	AssessmentUncertain  Assessment = "uncertain"
)

// Feedback represents a clinician's feedback on one trial match result.
type Feedback struct {
	ID                  int64      `json:"id,omitempty"`
	PatientID           string     `json:"patient_id"`
	NCTID               string     `json:"nct_id"`
	EvaluationID        string     `json:"evaluation_id,omitempty"`
	SuggestedScore      int        `json:"suggested_score"`
	SuggestedTier       string     `json:"suggested_tier"`
	ClinicianAssessment Assessment `json:"clinician_assessment"`
	ClinicianAgreed     bool       `json:"clinician_agreed"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback for a patient-trial pairing. Existing
	// feedback for the same patient and trial is overwritten.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for a patient-trial pairing, or nil when none
	// exists.
	Get(ctx context.Context, patientID, nctID string) (*Feedback, error)

	// List returns feedback entries with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader. Entries already
	// present for the same patient-trial pairing are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

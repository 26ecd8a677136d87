// Package repository persists match evaluation history in PostgreSQL so past
// scoring decisions can be audited and compared against clinician feedback.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clearhealth/trialmatch/internal/domain"
)

// EvaluationRepository handles match evaluation persistence
type EvaluationRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *pgxpool.Pool, logger *logrus.Logger) *EvaluationRepository {
	return &EvaluationRepository{
		db:  db,
		log: logger,
	}
}

// Save inserts an evaluation record. Criteria and condition matches are
// stored as JSONB so the full explanation survives alongside the score.
func (r *EvaluationRepository) Save(ctx context.Context, patientID string, result *domain.TrialMatchResult) error {
	criteria, err := json.Marshal(result.Criteria)
	if err != nil {
		return fmt.Errorf("encoding criteria: %w", err)
	}
	conditionMatches, err := json.Marshal(result.ConditionMatches)
	if err != nil {
		return fmt.Errorf("encoding condition matches: %w", err)
	}

	query := `
		INSERT INTO match_evaluations (
			evaluation_id, patient_id, nct_id, brief_title, score, tier,
			hard_disqualifier, criteria, condition_matches, evaluated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.db.Exec(ctx, query,
		result.EvaluationID,
		patientID,
		result.NCTID,
		result.BriefTitle,
		result.Score,
		string(result.Tier),
		result.HardDisqualifier,
		criteria,
		conditionMatches,
		result.EvaluatedAt,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"evaluation_id": result.EvaluationID,
			"nct_id":        result.NCTID,
			"error":         err,
		}).Error("Failed to save evaluation")
		return fmt.Errorf("saving evaluation: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"evaluation_id": result.EvaluationID,
		"nct_id":        result.NCTID,
		"score":         result.Score,
	}).Info("Evaluation saved")

	return nil
}

// GetByID retrieves an evaluation by its ID
func (r *EvaluationRepository) GetByID(ctx context.Context, evaluationID string) (*domain.TrialMatchResult, error) {
	query := `
		SELECT evaluation_id, patient_id, nct_id, brief_title, score, tier,
			   hard_disqualifier, criteria, condition_matches, evaluated_at
		FROM match_evaluations
		WHERE evaluation_id = $1`

	result, _, err := r.scanRow(r.db.QueryRow(ctx, query, evaluationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("evaluation not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"evaluation_id": evaluationID,
			"error":         err,
		}).Error("Failed to get evaluation by ID")
		return nil, fmt.Errorf("getting evaluation by ID: %w", err)
	}

	return result, nil
}

// ListByPatient retrieves a patient's evaluations, newest first, with
// pagination
func (r *EvaluationRepository) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.TrialMatchResult, error) {
	query := `
		SELECT evaluation_id, patient_id, nct_id, brief_title, score, tier,
			   hard_disqualifier, criteria, condition_matches, evaluated_at
		FROM match_evaluations
		WHERE patient_id = $1
		ORDER BY evaluated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, patientID, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to list evaluations")
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}
	defer rows.Close()

	var results []*domain.TrialMatchResult
	for rows.Next() {
		result, _, err := r.scanRow(rows)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"patient_id": patientID,
				"error":      err,
			}).Error("Failed to scan evaluation row")
			return nil, fmt.Errorf("scanning evaluation row: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating evaluation rows: %w", err)
	}

	return results, nil
}

// DeleteOlderThan removes evaluations evaluated before the cutoff and returns
// the number removed. Used for retention housekeeping.
func (r *EvaluationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM match_evaluations WHERE evaluated_at < $1`, cutoff)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"cutoff": cutoff,
			"error":  err,
		}).Error("Failed to prune evaluations")
		return 0, fmt.Errorf("pruning evaluations: %w", err)
	}

	removed := result.RowsAffected()
	if removed > 0 {
		r.log.WithFields(logrus.Fields{
			"cutoff":  cutoff,
			"removed": removed,
		}).Info("Pruned old evaluations")
	}

	return removed, nil
}

// pgxRow is satisfied by both pgx.Row and pgx.Rows.
type pgxRow interface {
	Scan(dest ...any) error
}

// scanRow reconstructs a TrialMatchResult from one evaluation row. Counts are
// rebuilt from the stored criteria rather than persisted separately.
func (r *EvaluationRepository) scanRow(row pgxRow) (*domain.TrialMatchResult, string, error) {
	var (
		result           domain.TrialMatchResult
		patientID        string
		tier             string
		criteria         []byte
		conditionMatches []byte
	)

	err := row.Scan(
		&result.EvaluationID,
		&patientID,
		&result.NCTID,
		&result.BriefTitle,
		&result.Score,
		&tier,
		&result.HardDisqualifier,
		&criteria,
		&conditionMatches,
		&result.EvaluatedAt,
	)
	if err != nil {
		return nil, "", err
	}

	result.Tier = domain.MatchTier(tier)
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &result.Criteria); err != nil {
			return nil, "", fmt.Errorf("decoding criteria: %w", err)
		}
	}
	if len(conditionMatches) > 0 {
		if err := json.Unmarshal(conditionMatches, &result.ConditionMatches); err != nil {
			return nil, "", fmt.Errorf("decoding condition matches: %w", err)
		}
	}
	result.Counts = domain.CountCriteria(result.Criteria)

	return &result, patientID, nil
}

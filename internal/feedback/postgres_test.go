package feedback

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestDB returns a live database connection for integration tests, or
// skips when TEST_DATABASE_URL is not set.
func getTestDB(t *testing.T) *sql.DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS match_feedback (
			id BIGSERIAL PRIMARY KEY,
			patient_id TEXT NOT NULL,
			nct_id TEXT NOT NULL,
			evaluation_id TEXT DEFAULT '',
			suggested_score INTEGER NOT NULL,
			suggested_tier TEXT NOT NULL,
			clinician_assessment TEXT NOT NULL,
			clinician_agreed BOOLEAN NOT NULL DEFAULT FALSE,
			notes TEXT DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			CONSTRAINT match_feedback_patient_nct_unique UNIQUE (patient_id, nct_id)
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec("DELETE FROM match_feedback")
	require.NoError(t, err)

	return db
}

func TestPostgresStore_SaveAndGet(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	fb := sampleFeedback()

	require.NoError(t, store.Save(ctx, fb))
	assert.NotZero(t, fb.ID)
	assert.NotZero(t, fb.CreatedAt)

	retrieved, err := store.Get(ctx, fb.PatientID, fb.NCTID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, fb.SuggestedScore, retrieved.SuggestedScore)
	assert.Equal(t, fb.ClinicianAssessment, retrieved.ClinicianAssessment)
}

func TestPostgresStore_Upsert(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	fb := sampleFeedback()
	fb.ClinicianAgreed = false

	require.NoError(t, store.Save(ctx, fb))
	originalID := fb.ID

	fb.ClinicianAgreed = true
	fb.Notes = "Reversed after chart review"
	require.NoError(t, store.Save(ctx, fb))

	assert.Equal(t, originalID, fb.ID)

	retrieved, err := store.Get(ctx, fb.PatientID, fb.NCTID)
	require.NoError(t, err)
	assert.True(t, retrieved.ClinicianAgreed)
	assert.Equal(t, "Reversed after chart review", retrieved.Notes)
}

func TestPostgresStore_ListAndCount(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	for _, id := range []string{"NCT00000001", "NCT00000002", "NCT00000003"} {
		fb := sampleFeedback()
		fb.NCTID = id
		require.NoError(t, store.Save(ctx, fb))
		time.Sleep(10 * time.Millisecond)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	list, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPostgresStore_RequiresConnection(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

// Mock-backed tests cover query shape without a live server.

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store, mock
}

func feedbackColumns() []string {
	return []string{
		"id", "patient_id", "nct_id", "evaluation_id",
		"suggested_score", "suggested_tier", "clinician_assessment",
		"clinician_agreed", "notes", "created_at", "updated_at",
	}
}

func TestPostgresStore_GetMocked(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT id, patient_id, nct_id").
		WithArgs("p-1", "NCT01234567").
		WillReturnRows(sqlmock.NewRows(feedbackColumns()).
			AddRow(int64(7), "p-1", "NCT01234567", "eval-1",
				82, "excellent", "eligible", true, "ok", now, now))

	fb, err := store.Get(context.Background(), "p-1", "NCT01234567")

	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, int64(7), fb.ID)
	assert.Equal(t, AssessmentEligible, fb.ClinicianAssessment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMockedNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, patient_id, nct_id").
		WithArgs("p-404", "NCT00000000").
		WillReturnRows(sqlmock.NewRows(feedbackColumns()))

	fb, err := store.Get(context.Background(), "p-404", "NCT00000000")

	require.NoError(t, err)
	assert.Nil(t, fb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMocked(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO match_feedback").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), now))

	fb := sampleFeedback()
	err := store.Save(context.Background(), fb)

	require.NoError(t, err)
	assert.Equal(t, int64(3), fb.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteMocked(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM match_feedback").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Delete(context.Background(), 3)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmkit/company-dedupe/internal/model"
)

func createTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	journal, err := NewSQLiteJournal(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	require.NoError(t, journal.Migrate(context.Background()))
	return journal
}

func TestNewSQLiteJournal_EmptyPath(t *testing.T) {
	_, err := NewSQLiteJournal("")
	require.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	journal := createTestJournal(t)
	// A second migration run is a no-op.
	require.NoError(t, journal.Migrate(context.Background()))
}

func TestRecordRun_RequiresCompanyID(t *testing.T) {
	journal := createTestJournal(t)

	err := journal.RecordRun(context.Background(), model.RunEntry{Outcome: model.OutcomeError})
	require.Error(t, err)
}

func TestRecordAndListRuns(t *testing.T) {
	journal := createTestJournal(t)
	ctx := context.Background()

	entries := []model.RunEntry{
		{
			CompanyID:        "100",
			Outcome:          model.OutcomeNoDuplicates,
			PrimaryCompanyID: "100",
			RanAt:            time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			CompanyID:           "200",
			Outcome:             model.OutcomeMergedAsPrimary,
			PrimaryCompanyID:    "200",
			MergedCompanyID:     "300",
			RemainingDuplicates: 2,
			RanAt:               time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			CompanyID: "400",
			Outcome:   model.OutcomeError,
			Error:     "merge failed: permission denied",
			RanAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	for _, entry := range entries {
		require.NoError(t, journal.RecordRun(ctx, entry))
	}

	got, err := journal.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first
	assert.Equal(t, "400", got[0].CompanyID)
	assert.Equal(t, model.OutcomeError, got[0].Outcome)
	assert.Equal(t, "merge failed: permission denied", got[0].Error)

	assert.Equal(t, "200", got[1].CompanyID)
	assert.Equal(t, "300", got[1].MergedCompanyID)
	assert.Equal(t, 2, got[1].RemainingDuplicates)

	assert.Equal(t, "100", got[2].CompanyID)
	assert.Equal(t, "100", got[2].PrimaryCompanyID)
	assert.Equal(t, "", got[2].MergedCompanyID)
}

func TestListRuns_Limit(t *testing.T) {
	journal := createTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, journal.RecordRun(ctx, model.RunEntry{
			CompanyID: "100",
			Outcome:   model.OutcomeNoDuplicates,
			RanAt:     time.Now().UTC(),
		}))
	}

	got, err := journal.ListRuns(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

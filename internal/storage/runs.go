package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crmkit/company-dedupe/internal/model"
	"github.com/crmkit/company-dedupe/internal/service"
)

// RecordRun appends one pipeline invocation to the journal.
func (s *SQLiteJournal) RecordRun(ctx context.Context, entry model.RunEntry) error {
	if entry.CompanyID == "" {
		return fmt.Errorf("company id cannot be empty")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (company_id, outcome, primary_company_id, merged_company_id, remaining_duplicates, error, ran_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.CompanyID,
		string(entry.Outcome),
		nullable(entry.PrimaryCompanyID),
		nullable(entry.MergedCompanyID),
		entry.RemainingDuplicates,
		nullable(entry.Error),
		entry.RanAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent journal entries, newest first.
func (s *SQLiteJournal) ListRuns(ctx context.Context, limit int) ([]model.RunEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, outcome, primary_company_id, merged_company_id, remaining_duplicates, error, ran_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.RunEntry
	for rows.Next() {
		var entry model.RunEntry
		var outcome string
		var primaryID, mergedID, errText sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.CompanyID,
			&outcome,
			&primaryID,
			&mergedID,
			&entry.RemainingDuplicates,
			&errText,
			&entry.RanAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		entry.Outcome = model.Outcome(outcome)
		entry.PrimaryCompanyID = primaryID.String
		entry.MergedCompanyID = mergedID.String
		entry.Error = errText.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return entries, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ensure SQLiteJournal implements the Journal interface.
var _ service.Journal = (*SQLiteJournal)(nil)

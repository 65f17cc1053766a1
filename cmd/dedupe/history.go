package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crmkit/company-dedupe/internal/cli"
	"github.com/crmkit/company-dedupe/internal/config"
	"github.com/crmkit/company-dedupe/internal/model"
	"github.com/crmkit/company-dedupe/internal/storage"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent deduplication runs",
		Long: `List the most recent runs from the local journal, newest first.

Runs that marked a record merged but then failed the merge call show an error
outcome here; those records need their status marker cleared before retrying.`,
		RunE: runHistory,
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum number of runs to show")
	_ = viper.BindPFlag("history.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit := viper.GetInt("history.limit")

	journal, err := storage.NewSQLiteJournal(config.JournalPath())
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() { _ = journal.Close() }()

	if err := journal.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to migrate journal: %w", err)
	}

	entries, err := journal.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println(cli.FormatWarning("No runs recorded yet"))
		return nil
	}

	fmt.Println(cli.FormatTitle("Recent deduplication runs"))
	for _, entry := range entries {
		fmt.Println(formatEntry(entry))
	}
	return nil
}

func formatEntry(entry model.RunEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  company=%s  %s",
		entry.RanAt.Format("2006-01-02 15:04:05"),
		entry.CompanyID,
		colorOutcome(entry.Outcome))

	if entry.PrimaryCompanyID != "" && entry.PrimaryCompanyID != entry.CompanyID {
		fmt.Fprintf(&b, "  primary=%s", entry.PrimaryCompanyID)
	}
	if entry.MergedCompanyID != "" {
		fmt.Fprintf(&b, "  merged=%s", entry.MergedCompanyID)
	}
	if entry.Outcome == model.OutcomeMergedAsPrimary {
		fmt.Fprintf(&b, "  remaining=%d", entry.RemainingDuplicates)
	}
	if entry.Error != "" {
		fmt.Fprintf(&b, "  %s", cli.SubtleStyle.Render(entry.Error))
	}
	return b.String()
}

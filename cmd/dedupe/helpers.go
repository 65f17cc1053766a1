package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/crmkit/company-dedupe/internal/common"
	"github.com/crmkit/company-dedupe/internal/config"
	"github.com/crmkit/company-dedupe/internal/dedupe"
	"github.com/crmkit/company-dedupe/internal/hubspot"
	"github.com/crmkit/company-dedupe/internal/service"
	"github.com/crmkit/company-dedupe/internal/storage"
)

func envKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// buildEngine wires the HubSpot client and the run journal into an engine.
// The journal is best-effort: if it cannot be opened the pipeline still runs.
func buildEngine(ctx context.Context) (*dedupe.Engine, func(), error) {
	client, err := hubspot.NewClient(config.HubSpot())
	if err != nil {
		return nil, nil, common.NewUserError("HubSpot client is not configured (set hubspot.token or DEDUPE_HUBSPOT_TOKEN)", err)
	}

	cleanup := func() {}
	var journal service.Journal

	j, err := storage.NewSQLiteJournal(config.JournalPath())
	if err != nil {
		slog.Warn("Run journal unavailable, continuing without it", "error", err)
	} else if err := j.Migrate(ctx); err != nil {
		slog.Warn("Run journal migration failed, continuing without it", "error", err)
		_ = j.Close()
	} else {
		journal = j
		cleanup = func() { _ = j.Close() }
	}

	engine := dedupe.NewWithConfig(client, journal, config.Dedupe())
	return engine, cleanup, nil
}

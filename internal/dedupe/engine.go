package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/crmkit/company-dedupe/internal/common"
	"github.com/crmkit/company-dedupe/internal/model"
	"github.com/crmkit/company-dedupe/internal/service"
)

// Engine runs the deduplication pipeline for one company per invocation. All
// state lives in the remote store between invocations; the engine itself is
// stateless and safe to reuse.
type Engine struct {
	store   service.CompanyStore
	journal service.Journal
	logger  *slog.Logger
	config  Config
}

// New creates an engine with the default attribute configuration. The journal
// may be nil when no run history is wanted.
func New(store service.CompanyStore, journal service.Journal) *Engine {
	return NewWithConfig(store, journal, DefaultConfig())
}

// NewWithConfig creates an engine with a custom attribute configuration.
func NewWithConfig(store service.CompanyStore, journal service.Journal, config Config) *Engine {
	return &Engine{
		store:   store,
		journal: journal,
		config:  config.withDefaults(),
		logger:  slog.Default().With("component", "dedupe"),
	}
}

// Run executes the pipeline for one company and reports a terminal result on
// every exit path. A failed run still yields a result carrying the error
// message; the pipeline never terminates silently.
func (e *Engine) Run(ctx context.Context, companyID string) model.Result {
	result, err := e.process(ctx, companyID)
	if err != nil {
		e.logger.Error("Deduplication failed", "company_id", companyID, "error", err)
		result = model.Result{Outcome: model.OutcomeError, Error: err.Error()}
	}
	e.record(ctx, companyID, result)
	return result
}

func (e *Engine) process(ctx context.Context, companyID string) (model.Result, error) {
	currentID, err := model.ParseCompanyID(companyID)
	if err != nil {
		return model.Result{}, fmt.Errorf("%w: %w", common.ErrFetch, err)
	}

	company, err := e.store.GetCompany(ctx, companyID, e.config.fetchProperties())
	if err != nil {
		return model.Result{}, fmt.Errorf("%w: company %s: %w", common.ErrFetch, companyID, err)
	}

	e.logCompany(company)

	// Status gate. Only the merged marker is final; a primary-status record
	// is always re-examined for newly created duplicates.
	if model.ParseDedupStatus(company.Property(e.config.StatusAttribute)) == model.StatusMerged {
		e.logger.Info("Company already merged, skipping", "company_id", companyID)
		return model.Result{Outcome: model.OutcomeAlreadyMerged, PrimaryCompanyID: companyID}, nil
	}

	query, nameOnly := BuildMatchQuery(e.config, company)
	if query == nil {
		e.logger.Info("No identifying value, duplicates not determinable",
			"company_id", companyID,
			"attribute", e.config.IdentifyingAttribute)
		return e.markPrimaryOnly(ctx, companyID)
	}
	if nameOnly {
		e.logger.Info("No secondary attributes populated, matching on name only",
			"company_id", companyID)
	}

	duplicates, err := e.findDuplicates(ctx, *query, currentID)
	if err != nil {
		return model.Result{}, err
	}

	if len(duplicates) == 0 {
		e.logger.Info("No duplicates found", "company_id", companyID)
		return e.markPrimaryOnly(ctx, companyID)
	}

	// Canonical selection: the lowest numeric id across the duplicates and
	// the current record wins, the remote store assigning ids monotonically
	// at creation.
	primaryID := currentID
	for _, id := range duplicates {
		if id < primaryID {
			primaryID = id
		}
	}

	e.logger.Info("Duplicates found",
		"company_id", companyID,
		"duplicate_count", len(duplicates),
		"primary_id", primaryID)

	if primaryID == currentID {
		return e.absorbDuplicate(ctx, currentID, duplicates)
	}
	return e.mergeIntoPrimary(ctx, currentID, primaryID)
}

// findDuplicates executes the match query and returns the candidate set:
// result ids minus the current record, deduplicated, sorted ascending.
func (e *Engine) findDuplicates(ctx context.Context, query service.SearchQuery, currentID int64) ([]int64, error) {
	ids, err := e.store.SearchCompanies(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrSearch, err)
	}

	seen := make(map[int64]bool, len(ids))
	duplicates := make([]int64, 0, len(ids))
	for _, raw := range ids {
		id, err := model.ParseCompanyID(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrSearch, err)
		}
		// An exact-equality self-search always matches the record itself.
		if id == currentID || seen[id] {
			continue
		}
		seen[id] = true
		duplicates = append(duplicates, id)
	}

	slices.Sort(duplicates)
	return duplicates, nil
}

// absorbDuplicate handles the branch where the current record is canonical.
// A single duplicate is absorbed per invocation; the remainder is handled by
// subsequent re-triggers and reported in the result.
func (e *Engine) absorbDuplicate(ctx context.Context, currentID int64, duplicates []int64) (model.Result, error) {
	current := formatID(currentID)
	target := formatID(duplicates[0])

	if err := e.markStatus(ctx, target, model.StatusMerged); err != nil {
		return model.Result{}, err
	}
	if err := e.merge(ctx, current, target); err != nil {
		return model.Result{}, err
	}
	if err := e.markStatus(ctx, current, model.StatusPrimary); err != nil {
		return model.Result{}, err
	}

	remaining := len(duplicates) - 1
	e.logger.Info("Merged duplicate into current company",
		"primary_id", current,
		"merged_id", target,
		"remaining_duplicates", remaining)

	return model.Result{
		Outcome:             model.OutcomeMergedAsPrimary,
		PrimaryCompanyID:    current,
		MergedCompanyID:     target,
		RemainingDuplicates: remaining,
	}, nil
}

// mergeIntoPrimary handles the branch where an older record is canonical and
// the current record is absorbed into it.
func (e *Engine) mergeIntoPrimary(ctx context.Context, currentID, primaryID int64) (model.Result, error) {
	current := formatID(currentID)
	primary := formatID(primaryID)

	if err := e.markStatus(ctx, current, model.StatusMerged); err != nil {
		return model.Result{}, err
	}
	if err := e.merge(ctx, primary, current); err != nil {
		return model.Result{}, err
	}
	if err := e.markStatus(ctx, primary, model.StatusPrimary); err != nil {
		return model.Result{}, err
	}

	e.logger.Info("Merged current company into primary",
		"primary_id", primary,
		"merged_id", current)

	return model.Result{
		Outcome:          model.OutcomeMergedIntoPrimary,
		PrimaryCompanyID: primary,
		MergedCompanyID:  current,
	}, nil
}

// markPrimaryOnly finalizes a record with no resolvable duplicates.
func (e *Engine) markPrimaryOnly(ctx context.Context, companyID string) (model.Result, error) {
	if err := e.markStatus(ctx, companyID, model.StatusPrimary); err != nil {
		return model.Result{}, err
	}
	return model.Result{Outcome: model.OutcomeNoDuplicates, PrimaryCompanyID: companyID}, nil
}

// markStatus persists the dedup status marker onto one record. The absorbed
// side is marked merged before the merge call so a concurrent or retried
// invocation observes the marker and skips reprocessing even if the merge
// itself fails.
func (e *Engine) markStatus(ctx context.Context, companyID string, status model.DedupStatus) error {
	properties := map[string]string{e.config.StatusAttribute: string(status)}
	if err := e.store.UpdateCompany(ctx, companyID, properties); err != nil {
		return fmt.Errorf("%w: marking company %s as %s: %w", common.ErrUpdate, companyID, status, err)
	}
	e.logger.Debug("Marked company status", "company_id", companyID, "status", status)
	return nil
}

func (e *Engine) merge(ctx context.Context, primaryID, mergeID string) error {
	if err := e.store.MergeCompanies(ctx, primaryID, mergeID); err != nil {
		return fmt.Errorf("%w: merging company %s into %s: %w", common.ErrMerge, mergeID, primaryID, err)
	}
	return nil
}

// logCompany emits the observational logging attributes. They never affect
// control flow.
func (e *Engine) logCompany(company *model.Company) {
	args := []any{"company_id", company.ID}
	for _, attr := range e.config.LoggingAttributes {
		if value := company.Property(attr); value != "" {
			args = append(args, attr, value)
		}
	}
	e.logger.Info("Processing company", args...)
}

func (e *Engine) record(ctx context.Context, companyID string, result model.Result) {
	if e.journal == nil {
		return
	}
	entry := model.RunEntry{
		CompanyID:           companyID,
		Outcome:             result.Outcome,
		PrimaryCompanyID:    result.PrimaryCompanyID,
		MergedCompanyID:     result.MergedCompanyID,
		RemainingDuplicates: result.RemainingDuplicates,
		Error:               result.Error,
		RanAt:               time.Now().UTC(),
	}
	if err := e.journal.RecordRun(ctx, entry); err != nil {
		e.logger.Warn("Failed to journal run", "company_id", companyID, "error", err)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

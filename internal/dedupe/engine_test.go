package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmkit/company-dedupe/internal/hubspot"
	"github.com/crmkit/company-dedupe/internal/model"
	"github.com/crmkit/company-dedupe/internal/service"
)

// mockJournal captures journaled entries for assertions.
type mockJournal struct {
	recordErr error
	entries   []model.RunEntry
}

func (m *mockJournal) RecordRun(_ context.Context, entry model.RunEntry) error {
	m.entries = append(m.entries, entry)
	return m.recordErr
}

func testConfig() Config {
	return Config{
		IdentifyingAttribute: "name",
		StatusAttribute:      "deduplication_status",
		SecondaryAttributes:  []string{"domain", "phone"},
		SearchLimit:          100,
	}
}

// companyStore builds a mock store whose GetCompany serves the given records.
func companyStore(t *testing.T, companies map[string]map[string]string) *hubspot.MockStore {
	t.Helper()
	store := hubspot.NewMockStore()
	store.GetCompanyFn = func(_ context.Context, id string, _ []string) (*model.Company, error) {
		props, ok := companies[id]
		require.True(t, ok, "unexpected GetCompany for id %s", id)
		return &model.Company{ID: id, Properties: props}, nil
	}
	return store
}

func TestRun_NoDuplicatesMarksPrimary(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"100": {"name": "Acme"},
	})
	store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
		return []string{"100"}, nil // self-match only
	}

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "100")

	assert.Equal(t, model.OutcomeNoDuplicates, result.Outcome)
	assert.Equal(t, "100", result.PrimaryCompanyID)
	assert.Empty(t, result.Error)

	require.Len(t, store.UpdateCompanyCalls, 1)
	assert.Equal(t, "100", store.UpdateCompanyCalls[0].ID)
	assert.Equal(t, map[string]string{"deduplication_status": "primary"}, store.UpdateCompanyCalls[0].Properties)
	assert.Empty(t, store.MergeCompaniesCalls)

	fields := result.Fields()
	assert.Equal(t, "no_duplicates_found", fields["result"])
	assert.Equal(t, "100", fields["primaryCompanyId"])
}

func TestRun_NoIdentifyingValueNeverErrors(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"100": {"domain": "acme.com"}, // name absent
	})

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "100")

	assert.Equal(t, model.OutcomeNoDuplicates, result.Outcome)
	assert.Equal(t, "100", result.PrimaryCompanyID)
	assert.Empty(t, result.Error)

	// No search is issued when no query can be built.
	assert.Empty(t, store.SearchCompaniesCalls)
	require.Len(t, store.UpdateCompanyCalls, 1)
}

func TestRun_AlreadyMergedIsIdempotent(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"100": {"name": "Acme", "deduplication_status": "merged"},
	})

	engine := NewWithConfig(store, nil, testConfig())

	for i := 0; i < 2; i++ {
		result := engine.Run(context.Background(), "100")
		assert.Equal(t, model.OutcomeAlreadyMerged, result.Outcome)
		assert.Equal(t, "100", result.PrimaryCompanyID)
	}

	// Neither invocation issued a search or a mutation.
	assert.Empty(t, store.SearchCompaniesCalls)
	assert.Zero(t, store.MutationCalls())
}

func TestRun_PrimaryStatusIsReexamined(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"100": {"name": "Acme", "deduplication_status": "primary"},
	})
	store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
		return []string{"100", "250"}, nil
	}

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "100")

	// A primary record with a newly created duplicate still absorbs it.
	assert.Equal(t, model.OutcomeMergedAsPrimary, result.Outcome)
	assert.Equal(t, "250", result.MergedCompanyID)
}

func TestRun_MergedIntoPrimary(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"200": {"name": "Acme", "domain": "acme.com"},
	})
	store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
		return []string{"100", "200"}, nil
	}

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "200")

	assert.Equal(t, model.OutcomeMergedIntoPrimary, result.Outcome)
	assert.Equal(t, "100", result.PrimaryCompanyID)
	assert.Equal(t, "200", result.MergedCompanyID)

	// Strict sequence: mark current merged, merge into primary, mark primary.
	assert.Equal(t, []string{
		"get:200",
		"search",
		"update:200",
		"merge:100<-200",
		"update:100",
	}, store.Ops)

	assert.Equal(t, map[string]string{"deduplication_status": "merged"}, store.UpdateCompanyCalls[0].Properties)
	assert.Equal(t, map[string]string{"deduplication_status": "primary"}, store.UpdateCompanyCalls[1].Properties)
}

func TestRun_SingleAbsorptionPerInvocation(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"24273": {"name": "Acme", "domain": "acme.com"},
	})
	store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
		// Out of order, with the current record and a repeated id.
		return []string{"92526", "73493", "24273", "60888", "73493"}, nil
	}

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "24273")

	assert.Equal(t, model.OutcomeMergedAsPrimary, result.Outcome)
	assert.Equal(t, "24273", result.PrimaryCompanyID)
	assert.Equal(t, "60888", result.MergedCompanyID) // lowest duplicate after sort
	assert.Equal(t, 2, result.RemainingDuplicates)

	assert.Equal(t, []string{
		"get:24273",
		"search",
		"update:60888",
		"merge:24273<-60888",
		"update:24273",
	}, store.Ops)

	fields := result.Fields()
	assert.Equal(t, "2", fields["remainingDuplicates"])
}

func TestRun_NumericNotLexicographicOrdering(t *testing.T) {
	t.Run("current is numerically smaller", func(t *testing.T) {
		store := companyStore(t, map[string]map[string]string{
			"9": {"name": "Acme"},
		})
		store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
			return []string{"10", "9"}, nil
		}

		engine := NewWithConfig(store, nil, testConfig())
		result := engine.Run(context.Background(), "9")

		// "10" < "9" lexically; numerically 9 wins.
		assert.Equal(t, model.OutcomeMergedAsPrimary, result.Outcome)
		assert.Equal(t, "9", result.PrimaryCompanyID)
		assert.Equal(t, "10", result.MergedCompanyID)
	})

	t.Run("current is numerically larger", func(t *testing.T) {
		store := companyStore(t, map[string]map[string]string{
			"10": {"name": "Acme"},
		})
		store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
			return []string{"10", "9"}, nil
		}

		engine := NewWithConfig(store, nil, testConfig())
		result := engine.Run(context.Background(), "10")

		assert.Equal(t, model.OutcomeMergedIntoPrimary, result.Outcome)
		assert.Equal(t, "9", result.PrimaryCompanyID)
		assert.Equal(t, "10", result.MergedCompanyID)
	})
}

func TestRun_MergeFailureStopsSequence(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"200": {"name": "Acme", "domain": "acme.com"},
	})
	store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
		return []string{"100", "200"}, nil
	}
	store.MergeCompaniesFn = func(_ context.Context, _, _ string) error {
		return errors.New("permission denied")
	}

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "200")

	assert.Equal(t, model.OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "permission denied")
	assert.Contains(t, result.Error, "merge failed")

	// The merged marker was written before the merge call, and no primary
	// mark followed the failure.
	require.Len(t, store.UpdateCompanyCalls, 1)
	assert.Equal(t, "200", store.UpdateCompanyCalls[0].ID)
	assert.Equal(t, map[string]string{"deduplication_status": "merged"}, store.UpdateCompanyCalls[0].Properties)

	fields := result.Fields()
	assert.Equal(t, "error", fields["result"])
	assert.NotEmpty(t, fields["error"])
}

func TestRun_FetchFailure(t *testing.T) {
	store := hubspot.NewMockStore()
	store.GetCompanyFn = func(_ context.Context, _ string, _ []string) (*model.Company, error) {
		return nil, errors.New("boom")
	}

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "100")

	assert.Equal(t, model.OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "fetch failed")
	assert.Zero(t, store.MutationCalls())
}

func TestRun_SearchFailure(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"100": {"name": "Acme"},
	})
	store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
		return nil, errors.New("boom")
	}

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "100")

	assert.Equal(t, model.OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "search failed")
	assert.Zero(t, store.MutationCalls())
}

func TestRun_UpdateFailure(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"100": {"name": "Acme"},
	})
	store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
		return []string{"100"}, nil
	}
	store.UpdateCompanyFn = func(_ context.Context, _ string, _ map[string]string) error {
		return errors.New("boom")
	}

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "100")

	assert.Equal(t, model.OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "update failed")
	assert.Empty(t, store.MergeCompaniesCalls)
}

func TestRun_NonNumericTriggerID(t *testing.T) {
	store := hubspot.NewMockStore()

	engine := NewWithConfig(store, nil, testConfig())
	result := engine.Run(context.Background(), "not-a-number")

	assert.Equal(t, model.OutcomeError, result.Outcome)
	assert.Empty(t, store.GetCompanyCalls)
}

func TestRun_JournalsEveryOutcome(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"100": {"name": "Acme"},
	})
	journal := &mockJournal{}

	engine := NewWithConfig(store, journal, testConfig())
	engine.Run(context.Background(), "100")

	require.Len(t, journal.entries, 1)
	entry := journal.entries[0]
	assert.Equal(t, "100", entry.CompanyID)
	assert.Equal(t, model.OutcomeNoDuplicates, entry.Outcome)
	assert.Equal(t, "100", entry.PrimaryCompanyID)
	assert.False(t, entry.RanAt.IsZero())
}

func TestRun_JournalFailureDoesNotAffectResult(t *testing.T) {
	store := companyStore(t, map[string]map[string]string{
		"100": {"name": "Acme"},
	})
	journal := &mockJournal{recordErr: errors.New("disk full")}

	engine := NewWithConfig(store, journal, testConfig())
	result := engine.Run(context.Background(), "100")

	assert.Equal(t, model.OutcomeNoDuplicates, result.Outcome)
}

func TestRun_FetchRequestsConfiguredProperties(t *testing.T) {
	cfg := Config{
		IdentifyingAttribute: "name",
		StatusAttribute:      "dedupe_state",
		SecondaryAttributes:  []string{"domain"},
		LoggingAttributes:    []string{"city", "domain"},
		SearchLimit:          100,
	}
	store := companyStore(t, map[string]map[string]string{
		"100": {"name": "Acme"},
	})
	store.SearchCompaniesFn = func(_ context.Context, _ service.SearchQuery) ([]string, error) {
		return nil, nil
	}

	engine := NewWithConfig(store, nil, cfg)
	engine.Run(context.Background(), "100")

	require.Len(t, store.GetCompanyCalls, 1)
	// Duplicate attribute names are requested once.
	assert.Equal(t, []string{"name", "domain", "city", "dedupe_state"}, store.GetCompanyCalls[0].Properties)
}

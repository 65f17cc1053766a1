package hubspot

import (
	"context"

	"github.com/crmkit/company-dedupe/internal/model"
	"github.com/crmkit/company-dedupe/internal/service"
)

// MockStore is a mock implementation of service.CompanyStore for testing.
type MockStore struct {
	// Functions that can be set by tests to control behavior
	GetCompanyFn      func(ctx context.Context, id string, properties []string) (*model.Company, error)
	SearchCompaniesFn func(ctx context.Context, query service.SearchQuery) ([]string, error)
	UpdateCompanyFn   func(ctx context.Context, id string, properties map[string]string) error
	MergeCompaniesFn  func(ctx context.Context, primaryID, mergeID string) error

	// Call tracking
	GetCompanyCalls      []GetCompanyCall
	SearchCompaniesCalls []service.SearchQuery
	UpdateCompanyCalls   []UpdateCompanyCall
	MergeCompaniesCalls  []MergeCompaniesCall

	// Ops records every call in invocation order, e.g. "update:200" or
	// "merge:100<-200", so tests can assert sequencing across operations.
	Ops []string
}

// GetCompanyCall records the parameters of a GetCompany call.
type GetCompanyCall struct {
	ID         string
	Properties []string
}

// UpdateCompanyCall records the parameters of an UpdateCompany call.
type UpdateCompanyCall struct {
	Properties map[string]string
	ID         string
}

// MergeCompaniesCall records the parameters of a MergeCompanies call.
type MergeCompaniesCall struct {
	PrimaryID string
	MergeID   string
}

// NewMockStore creates a new mock company store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// GetCompany implements service.CompanyStore.
func (m *MockStore) GetCompany(ctx context.Context, id string, properties []string) (*model.Company, error) {
	m.GetCompanyCalls = append(m.GetCompanyCalls, GetCompanyCall{ID: id, Properties: properties})
	m.Ops = append(m.Ops, "get:"+id)

	if m.GetCompanyFn != nil {
		return m.GetCompanyFn(ctx, id, properties)
	}

	return &model.Company{ID: id, Properties: map[string]string{}}, nil
}

// SearchCompanies implements service.CompanyStore.
func (m *MockStore) SearchCompanies(ctx context.Context, query service.SearchQuery) ([]string, error) {
	m.SearchCompaniesCalls = append(m.SearchCompaniesCalls, query)
	m.Ops = append(m.Ops, "search")

	if m.SearchCompaniesFn != nil {
		return m.SearchCompaniesFn(ctx, query)
	}

	return []string{}, nil
}

// UpdateCompany implements service.CompanyStore.
func (m *MockStore) UpdateCompany(ctx context.Context, id string, properties map[string]string) error {
	m.UpdateCompanyCalls = append(m.UpdateCompanyCalls, UpdateCompanyCall{ID: id, Properties: properties})
	m.Ops = append(m.Ops, "update:"+id)

	if m.UpdateCompanyFn != nil {
		return m.UpdateCompanyFn(ctx, id, properties)
	}

	return nil
}

// MergeCompanies implements service.CompanyStore.
func (m *MockStore) MergeCompanies(ctx context.Context, primaryID, mergeID string) error {
	m.MergeCompaniesCalls = append(m.MergeCompaniesCalls, MergeCompaniesCall{PrimaryID: primaryID, MergeID: mergeID})
	m.Ops = append(m.Ops, "merge:"+primaryID+"<-"+mergeID)

	if m.MergeCompaniesFn != nil {
		return m.MergeCompaniesFn(ctx, primaryID, mergeID)
	}

	return nil
}

// MutationCalls reports the total number of remote mutations issued.
func (m *MockStore) MutationCalls() int {
	return len(m.UpdateCompanyCalls) + len(m.MergeCompaniesCalls)
}

// Reset clears all call tracking.
func (m *MockStore) Reset() {
	m.GetCompanyCalls = nil
	m.SearchCompaniesCalls = nil
	m.UpdateCompanyCalls = nil
	m.MergeCompaniesCalls = nil
	m.Ops = nil
}

// Ensure MockStore implements the CompanyStore interface.
var _ service.CompanyStore = (*MockStore)(nil)

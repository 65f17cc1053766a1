// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/crmkit/company-dedupe/internal/model"
)

// OperatorEq is the only filter operator the pipeline uses; matching is
// exact-value equality by design.
const OperatorEq = "EQ"

// SortByID requests ordering by the record identifier. Store implementations
// map it to their own id property.
const SortByID = "id"

// Filter is a single property predicate.
type Filter struct {
	PropertyName string
	Operator     string
	Value        string
}

// FilterGroup is a conjunction of filters. A record matches the group only if
// it satisfies every filter in it.
type FilterGroup struct {
	Filters []Filter
}

// SearchQuery is a disjunction of filter groups: a record matches if it
// satisfies at least one group. Results are requested as a single bounded
// page sorted by identifier.
type SearchQuery struct {
	SortBy    string
	Groups    []FilterGroup
	Limit     int
	Ascending bool
}

// CompanyStore defines the contract for the remote CRM. It exposes exactly
// the four operations the pipeline needs, allowing an in-memory fake for
// deterministic tests.
type CompanyStore interface {
	// GetCompany fetches one record's current values for the named properties.
	GetCompany(ctx context.Context, id string, properties []string) (*model.Company, error)
	// SearchCompanies executes a match query and returns the ids of matching records.
	SearchCompanies(ctx context.Context, query SearchQuery) ([]string, error)
	// UpdateCompany writes property values onto one record.
	UpdateCompany(ctx context.Context, id string, properties map[string]string) error
	// MergeCompanies consolidates mergeID into primaryID. Conflicting-field
	// resolution happens inside the remote store and is opaque here.
	MergeCompanies(ctx context.Context, primaryID, mergeID string) error
}

// Journal records pipeline outcomes for operator inspection. Journal failures
// are observational and must never fail a run.
type Journal interface {
	RecordRun(ctx context.Context, entry model.RunEntry) error
}

// RetryOptions configures retry behavior for remote operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

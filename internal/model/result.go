package model

import (
	"strconv"
	"time"
)

// Outcome enumerates every terminal state of a deduplication run.
type Outcome string

const (
	// OutcomeNoDuplicates means no matching records were found; the record was marked primary.
	OutcomeNoDuplicates Outcome = "no_duplicates_found"
	// OutcomeAlreadyMerged means the record carried the merged marker and was skipped.
	OutcomeAlreadyMerged Outcome = "already_merged"
	// OutcomeMergedAsPrimary means the record absorbed one duplicate this run.
	OutcomeMergedAsPrimary Outcome = "successfully_merged_as_primary"
	// OutcomeMergedIntoPrimary means the record was absorbed into an older record.
	OutcomeMergedIntoPrimary Outcome = "successfully_merged_into_primary"
	// OutcomeError means a remote operation failed and the run was aborted.
	OutcomeError Outcome = "error"
)

// Result is the structured payload returned to the invoking orchestrator for
// every terminal path of the pipeline.
type Result struct {
	Outcome             Outcome
	PrimaryCompanyID    string
	MergedCompanyID     string
	Error               string
	RemainingDuplicates int
}

// Fields flattens the result into the string mapping consumed by the
// orchestrator. Keys are only present when they carry a value.
func (r Result) Fields() map[string]string {
	fields := map[string]string{
		"result": string(r.Outcome),
	}
	if r.PrimaryCompanyID != "" {
		fields["primaryCompanyId"] = r.PrimaryCompanyID
	}
	if r.MergedCompanyID != "" {
		fields["mergedCompanyId"] = r.MergedCompanyID
	}
	if r.Outcome == OutcomeMergedAsPrimary {
		fields["remainingDuplicates"] = strconv.Itoa(r.RemainingDuplicates)
	}
	if r.Error != "" {
		fields["error"] = r.Error
	}
	return fields
}

// RunEntry is one journaled pipeline invocation.
type RunEntry struct {
	RanAt               time.Time
	CompanyID           string
	Outcome             Outcome
	PrimaryCompanyID    string
	MergedCompanyID     string
	Error               string
	ID                  int64
	RemainingDuplicates int
}

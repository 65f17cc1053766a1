// Package model defines the core domain types for company deduplication.
package model

import (
	"fmt"
	"strconv"
)

// DedupStatus is the persisted deduplication marker on a company record.
type DedupStatus string

const (
	// StatusUnset indicates the record has never been processed.
	StatusUnset DedupStatus = ""
	// StatusPrimary indicates the record survived deduplication as the canonical record.
	StatusPrimary DedupStatus = "primary"
	// StatusMerged indicates the record was absorbed into another record.
	StatusMerged DedupStatus = "merged"
)

// ParseDedupStatus maps a raw property value to a DedupStatus. Only the exact
// "primary" and "merged" markers are recognized; anything else is treated as
// unset so that unknown values never block reprocessing.
func ParseDedupStatus(raw string) DedupStatus {
	switch raw {
	case string(StatusPrimary):
		return StatusPrimary
	case string(StatusMerged):
		return StatusMerged
	default:
		return StatusUnset
	}
}

// Company is an in-memory projection of a remote company record. Only the
// properties requested at fetch time are present.
type Company struct {
	Properties map[string]string
	ID         string
}

// Property returns the value of a named property, or "" if it was absent.
func (c *Company) Property(name string) string {
	if c.Properties == nil {
		return ""
	}
	return c.Properties[name]
}

// NumericID coerces the record identifier to its numeric form. Remote ids are
// decimal strings; comparing them as text would misorder multi-digit ids.
func (c *Company) NumericID() (int64, error) {
	return ParseCompanyID(c.ID)
}

// ParseCompanyID coerces a company identifier string to int64.
func ParseCompanyID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric company id %q: %w", id, err)
	}
	return n, nil
}

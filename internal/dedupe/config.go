// Package dedupe implements the duplicate-resolution and merge-direction
// engine for company records.
package dedupe

// Config holds the attribute configuration for the deduplication engine. It
// is immutable once the engine is constructed; tests inject their own
// attribute sets without shared state.
type Config struct {
	// IdentifyingAttribute is the mandatory match key.
	IdentifyingAttribute string
	// StatusAttribute is the custom property carrying the dedup status marker.
	StatusAttribute string
	// SecondaryAttributes are optional corroborating match keys, in order.
	SecondaryAttributes []string
	// LoggingAttributes are logged when present but never affect control flow.
	LoggingAttributes []string
	// SearchLimit bounds the single search page.
	SearchLimit int
}

// DefaultConfig returns the default attribute configuration.
func DefaultConfig() Config {
	return Config{
		IdentifyingAttribute: "name",
		StatusAttribute:      "deduplication_status",
		SecondaryAttributes:  []string{"domain", "phone", "linkedin_company_page"},
		LoggingAttributes:    []string{"city", "industry"},
		SearchLimit:          100,
	}
}

// withDefaults fills any zero-valued required fields from DefaultConfig.
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.IdentifyingAttribute == "" {
		c.IdentifyingAttribute = defaults.IdentifyingAttribute
	}
	if c.StatusAttribute == "" {
		c.StatusAttribute = defaults.StatusAttribute
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = defaults.SearchLimit
	}
	return c
}

// fetchProperties lists every property the pipeline needs from one fetch:
// the match keys, the observational attributes, and the status marker.
func (c Config) fetchProperties() []string {
	props := make([]string, 0, 2+len(c.SecondaryAttributes)+len(c.LoggingAttributes))
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		props = append(props, name)
	}

	add(c.IdentifyingAttribute)
	for _, attr := range c.SecondaryAttributes {
		add(attr)
	}
	for _, attr := range c.LoggingAttributes {
		add(attr)
	}
	add(c.StatusAttribute)
	return props
}

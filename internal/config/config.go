package config

import (
	"github.com/spf13/viper"

	"github.com/crmkit/company-dedupe/internal/dedupe"
	"github.com/crmkit/company-dedupe/internal/hubspot"
)

// Dedupe builds the engine configuration from viper, falling back to the
// engine defaults for any unset key.
func Dedupe() dedupe.Config {
	cfg := dedupe.DefaultConfig()

	if v := viper.GetString("dedupe.identifying_attribute"); v != "" {
		cfg.IdentifyingAttribute = v
	}
	if v := viper.GetString("dedupe.status_attribute"); v != "" {
		cfg.StatusAttribute = v
	}
	if viper.IsSet("dedupe.secondary_attributes") {
		cfg.SecondaryAttributes = viper.GetStringSlice("dedupe.secondary_attributes")
	}
	if viper.IsSet("dedupe.logging_attributes") {
		cfg.LoggingAttributes = viper.GetStringSlice("dedupe.logging_attributes")
	}
	if v := viper.GetInt("dedupe.search_limit"); v > 0 {
		cfg.SearchLimit = v
	}

	return cfg
}

// HubSpot builds the remote store configuration from viper. The token also
// arrives via DEDUPE_HUBSPOT_TOKEN thanks to the env binding in the root
// command.
func HubSpot() hubspot.Config {
	return hubspot.Config{
		Token:   viper.GetString("hubspot.token"),
		BaseURL: viper.GetString("hubspot.base_url"),
		Timeout: viper.GetDuration("hubspot.timeout"),
	}
}

// JournalPath resolves the run journal location.
func JournalPath() string {
	if path := viper.GetString("journal.path"); path != "" {
		return ExpandPath(path)
	}
	return DefaultJournalPath()
}

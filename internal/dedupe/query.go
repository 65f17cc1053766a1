package dedupe

import (
	"strings"

	"github.com/crmkit/company-dedupe/internal/model"
	"github.com/crmkit/company-dedupe/internal/service"
)

// BuildMatchQuery constructs the search predicate for a company. One filter
// group is built per populated secondary attribute, each pairing the
// identifying attribute with that secondary attribute; groups are OR'd by the
// store. With no populated secondary attributes the query degrades to a
// single identifying-attribute group, reported through nameOnly.
//
// A nil query means the identifying value is absent and no duplicates are
// determinable; query building itself never fails.
func BuildMatchQuery(cfg Config, company *model.Company) (query *service.SearchQuery, nameOnly bool) {
	identifying := strings.TrimSpace(company.Property(cfg.IdentifyingAttribute))
	if identifying == "" {
		return nil, false
	}

	base := service.Filter{
		PropertyName: cfg.IdentifyingAttribute,
		Operator:     service.OperatorEq,
		Value:        identifying,
	}

	groups := make([]service.FilterGroup, 0, len(cfg.SecondaryAttributes))
	for _, attr := range cfg.SecondaryAttributes {
		value := strings.TrimSpace(company.Property(attr))
		if value == "" {
			continue
		}
		groups = append(groups, service.FilterGroup{
			Filters: []service.Filter{
				base,
				{PropertyName: attr, Operator: service.OperatorEq, Value: value},
			},
		})
	}

	if len(groups) == 0 {
		groups = append(groups, service.FilterGroup{Filters: []service.Filter{base}})
		nameOnly = true
	}

	return &service.SearchQuery{
		Groups:    groups,
		Limit:     cfg.SearchLimit,
		SortBy:    service.SortByID,
		Ascending: true,
	}, nameOnly
}

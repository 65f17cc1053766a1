// Package hubspot provides a client for the HubSpot CRM v3 company API.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crmkit/company-dedupe/internal/common"
	"github.com/crmkit/company-dedupe/internal/model"
	"github.com/crmkit/company-dedupe/internal/service"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.hubapi.com"
	defaultTimeout = 30 * time.Second

	companiesPath = "/crm/v3/objects/companies"
)

// Config holds HubSpot API configuration.
type Config struct {
	// Token is a private app access token. Supplied out-of-band (config file
	// or DEDUPE_HUBSPOT_TOKEN); never logged.
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("hubspot access token is required")
	}
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid hubspot base URL: %w", err)
		}
	}
	return nil
}

// Client implements the service.CompanyStore interface against the HubSpot
// CRM v3 REST API.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	retryOpts  *service.RetryOptions
	baseURL    string
}

// NewClient creates a new HubSpot client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Bearer auth via a static token source; HubSpot private app tokens do
	// not expire and need no refresh flow.
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = timeout

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     slog.Default().With("component", "hubspot"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

type companyResponse struct {
	ID         string             `json:"id"`
	Properties map[string]*string `json:"properties"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Sorts        []sort        `json:"sorts,omitempty"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit,omitempty"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type sort struct {
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

type searchResponse struct {
	Results []companyResponse `json:"results"`
	Total   int               `json:"total"`
}

type mergeRequest struct {
	PrimaryObjectID string `json:"primaryObjectId"`
	ObjectIDToMerge string `json:"objectIdToMerge"`
}

type apiError struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// GetCompany fetches one company's current values for the named properties.
func (c *Client) GetCompany(ctx context.Context, id string, properties []string) (*model.Company, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	path := fmt.Sprintf("%s/%s?properties=%s&archived=false",
		companiesPath, url.PathEscape(id), url.QueryEscape(strings.Join(properties, ",")))

	var resp companyResponse
	retryErr := common.WithRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, nil, &resp)
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	company := &model.Company{
		ID:         resp.ID,
		Properties: make(map[string]string, len(resp.Properties)),
	}
	for name, value := range resp.Properties {
		if value != nil {
			company.Properties[name] = *value
		}
	}

	c.logger.Debug("Fetched company", "company_id", company.ID, "properties", len(company.Properties))
	return company, nil
}

// SearchCompanies executes a match query and returns matching company ids in
// the order the API delivered them.
func (c *Client) SearchCompanies(ctx context.Context, query service.SearchQuery) ([]string, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	req := searchRequest{
		FilterGroups: make([]filterGroup, 0, len(query.Groups)),
		Properties:   []string{"hs_object_id"},
		Limit:        query.Limit,
	}
	for _, g := range query.Groups {
		fg := filterGroup{Filters: make([]filter, 0, len(g.Filters))}
		for _, f := range g.Filters {
			fg.Filters = append(fg.Filters, filter(f))
		}
		req.FilterGroups = append(req.FilterGroups, fg)
	}
	if query.SortBy != "" {
		property := query.SortBy
		if property == service.SortByID {
			property = "hs_object_id"
		}
		direction := "DESCENDING"
		if query.Ascending {
			direction = "ASCENDING"
		}
		req.Sorts = []sort{{PropertyName: property, Direction: direction}}
	}

	var resp searchResponse
	retryErr := common.WithRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, companiesPath+"/search", req, &resp)
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		ids = append(ids, r.ID)
	}

	c.logger.Debug("Search completed", "total", resp.Total, "returned", len(ids))
	return ids, nil
}

// UpdateCompany writes property values onto one company record.
func (c *Client) UpdateCompany(ctx context.Context, id string, properties map[string]string) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}

	body := struct {
		Properties map[string]string `json:"properties"`
	}{Properties: properties}

	return common.WithRetry(ctx, func() error {
		return c.do(ctx, http.MethodPatch, companiesPath+"/"+url.PathEscape(id), body, nil)
	}, *c.retryOpts)
}

// MergeCompanies consolidates mergeID into primaryID using the API's merge
// endpoint. Conflicting-property resolution happens on the HubSpot side.
func (c *Client) MergeCompanies(ctx context.Context, primaryID, mergeID string) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}

	req := mergeRequest{PrimaryObjectID: primaryID, ObjectIDToMerge: mergeID}

	// Merges are not retried: a merge rejected once (permission, already
	// merged elsewhere) will be rejected again, and a timed-out merge may
	// still have been applied.
	return c.do(ctx, http.MethodPost, companiesPath+"/merge", req, nil)
}

// do issues one HTTP request and decodes the response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, common.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("Rate limit hit, will retry", "path", path)
		return &common.RetryableError{Err: common.ErrRateLimit, Retryable: true}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeError extracts HubSpot's structured error body when present.
func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.Category != "" {
			return fmt.Errorf("hubspot API error: %s - %s", apiErr.Category, apiErr.Message)
		}
		return fmt.Errorf("hubspot API error: %s", apiErr.Message)
	}
	return fmt.Errorf("hubspot API error: status %d", resp.StatusCode)
}

// Ensure Client implements the CompanyStore interface.
var _ service.CompanyStore = (*Client)(nil)

// Package aa talks to the Anadolu Ajansı subscriber REST API: filtered
// search listings, raw document retrieval, and entitlement queries.
package aa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aafeed/internal/domain"
	"aafeed/internal/ports"
)

// searchLimitMax is the largest page size the service accepts.
const searchLimitMax = 100

// Document formats understood by the document endpoint.
const (
	formatNewsML = "newsml29"
	formatWeb    = "web"
)

// FetchError is a non-2xx or transport-level failure talking to the wire
// service. The client never retries; that is the orchestrator's call.
type FetchError struct {
	StatusCode int
	Endpoint   string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("wire service returned status %d on %s", e.StatusCode, e.Endpoint)
}

// Unauthorized reports whether the failure means credentials are rejected,
// in which case a whole batch run is pointless.
func (e *FetchError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Client implements ports.WireSource against the subscriber API using HTTP
// Basic Auth and a shared request limiter.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	limiter  *Limiter
	logger   *slog.Logger
}

var _ ports.WireSource = (*Client)(nil)

// NewClient wires credentials, timeout, and the request limiter.
func NewClient(baseURL, username, password string, timeout time.Duration, limiter *Limiter, logger *slog.Logger) *Client {
	if limiter == nil {
		limiter = NewLimiter(500 * time.Millisecond)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
		limiter:  limiter,
		logger:   logger,
	}
}

type searchRequest struct {
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	FilterCategory string `json:"filter_category,omitempty"`
	FilterType     string `json:"filter_type,omitempty"`
	FilterPriority string `json:"filter_priority,omitempty"`
	FilterLanguage string `json:"filter_language,omitempty"`
	Offset         int    `json:"offset"`
	Limit          int    `json:"limit"`
}

type searchResult struct {
	ID       string `json:"id"`
	Type     int    `json:"type"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Category int    `json:"category"`
	Priority int    `json:"priority"`
	Language int    `json:"language"`
	GroupID  string `json:"group_id"`
}

type searchResponse struct {
	Response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	} `json:"response"`
	Data struct {
		Result []searchResult `json:"result"`
		Total  int            `json:"total"`
	} `json:"data"`
}

// Search issues one POST to the search endpoint and returns item summaries
// (without bodies) plus the service-side total for the filter.
func (c *Client) Search(ctx context.Context, filter domain.SearchFilter) ([]domain.WireItem, int, error) {
	limit := filter.Limit
	if limit <= 0 || limit > searchLimitMax {
		limit = searchLimitMax
	}

	req := searchRequest{
		FilterCategory: joinCodes(filter.Categories),
		FilterType:     joinCodes(filter.Types),
		FilterPriority: joinCodes(filter.Priorities),
		FilterLanguage: joinCodes(filter.Languages),
		Offset:         filter.Offset,
		Limit:          limit,
	}
	if !filter.Start.IsZero() {
		req.StartDate = filter.Start.UTC().Format(time.RFC3339)
	}
	if !filter.End.IsZero() {
		req.EndDate = filter.End.UTC().Format(time.RFC3339)
	}

	var resp searchResponse
	if err := c.postJSON(ctx, "/search/", req, &resp); err != nil {
		return nil, 0, err
	}
	if !resp.Response.Success {
		return nil, 0, fmt.Errorf("search rejected by service: %s", resp.Response.Message)
	}

	items := make([]domain.WireItem, 0, len(resp.Data.Result))
	for _, r := range resp.Data.Result {
		items = append(items, domain.WireItem{
			ID:           r.ID,
			Type:         domain.WireType(r.Type),
			Title:        strings.TrimSpace(r.Title),
			CategoryCode: r.Category,
			PriorityCode: r.Priority,
			LanguageCode: r.Language,
			GroupID:      r.GroupID,
			PublishedAt:  parseWireDate(r.Date),
		})
	}

	c.debug("search done", "returned", len(items), "total", resp.Data.Total)
	return items, resp.Data.Total, nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// Document retrieves the full raw body of one item. Text items come back in
// NewsML 2.9 markup; picture and video items in the simpler web format.
func (c *Client) Document(ctx context.Context, id string, typ domain.WireType) (string, error) {
	endpoint := fmt.Sprintf("%s/document/%s/%s", c.baseURL, id, formatForType(typ))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// CodeName is one entry of a discover vocabulary (category, priority, ...).
type CodeName struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Discover lists the filter vocabularies the subscription can use for the
// given language.
func (c *Client) Discover(ctx context.Context, language string) (map[string][]CodeName, error) {
	endpoint := fmt.Sprintf("%s/discover/%s", c.baseURL, language)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data map[string][]CodeName `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode discover response: %w", err)
	}
	return payload.Data, nil
}

// SubscriptionInfo summarizes the account's entitlement.
type SubscriptionInfo struct {
	Package       string `json:"package"`
	ArchiveDays   int    `json:"archive_days"`
	DownloadLimit int    `json:"download_limit"`
}

// Subscription fetches quota and entitlement info for the account.
func (c *Client) Subscription(ctx context.Context) (SubscriptionInfo, error) {
	endpoint := c.baseURL + "/subscription/"

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return SubscriptionInfo{}, err
	}

	var payload struct {
		Data SubscriptionInfo `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return SubscriptionInfo{}, fmt.Errorf("decode subscription response: %w", err)
	}
	return payload.Data, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("await request slot: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &FetchError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("await request slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &FetchError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	return body, nil
}

func formatForType(typ domain.WireType) string {
	switch typ {
	case domain.TypePicture, domain.TypeVideo, domain.TypeGraphic:
		return formatWeb
	default:
		return formatNewsML
	}
}

func joinCodes(codes []int) string {
	if len(codes) == 0 {
		return ""
	}
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, strconv.Itoa(code))
	}
	return strings.Join(parts, ",")
}

func parseWireDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "02.01.2006 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

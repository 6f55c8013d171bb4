package catalog

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

	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
)

// SolrEngine is a minimal Solr client used by the service layer.
type SolrEngine struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewSolrEngine constructs a SolrEngine for the given base URL.
func NewSolrEngine(baseURL string, timeout time.Duration, logger *slog.Logger) *SolrEngine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SolrEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Select executes a select query and returns the decoded Solr response
// unchanged. Transport failures and 5xx responses map to ErrUpstream.
func (e *SolrEngine) Select(ctx context.Context, core string, params url.Values) (map[string]any, error) {
	query := url.Values{}
	for key, values := range params {
		query[key] = append([]string(nil), values...)
	}
	if query.Get("wt") == "" {
		query.Set("wt", "json")
	}

	endpoint := fmt.Sprintf("%s/%s/select?%s", e.baseURL, core, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Error("solr select failed", slog.String("core", core), slog.Any("error", err))
		return nil, fmt.Errorf("%w: solr select: %v", httpx.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		e.logger.Error("solr select error status", slog.String("core", core), slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: solr returned status %d", httpx.ErrUpstream, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		e.logger.Warn("solr rejected query", slog.String("core", core), slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("%w: solr rejected query", httpx.ErrValidation)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode solr response: %v", httpx.ErrUpstream, err)
	}
	return payload, nil
}

// Query executes a select query and parses documents and total count.
func (e *SolrEngine) Query(ctx context.Context, core string, params url.Values) (*Result, error) {
	payload, err := e.Select(ctx, core, params)
	if err != nil {
		return nil, err
	}
	result := ParseResult(payload)
	e.logger.Debug("solr query",
		slog.String("core", core),
		slog.Int("docs", len(result.Documents)),
		slog.Int("total", result.Total))
	return result, nil
}

// Update submits a JSON update to the given core.
func (e *SolrEngine) Update(ctx context.Context, core string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("catalog: encode update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/update", e.baseURL, core)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("catalog: build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: solr update: %v", httpx.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: solr update returned status %d", httpx.ErrUpstream, resp.StatusCode)
	}
	e.logger.Debug("solr update succeeded", slog.String("core", core))
	return nil
}

// ParseResult extracts the document list and reported total from a
// native Solr select response.
func ParseResult(payload map[string]any) *Result {
	result := &Result{}
	response, _ := payload["response"].(map[string]any)
	if response == nil {
		return result
	}
	if total, ok := response["numFound"].(float64); ok {
		result.Total = int(total)
	}
	docs, _ := response["docs"].([]any)
	for _, raw := range docs {
		if doc, ok := raw.(map[string]any); ok {
			result.Documents = append(result.Documents, doc)
		}
	}
	return result
}

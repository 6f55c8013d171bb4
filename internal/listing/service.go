// Package listing walks the collection→dataset→file hierarchy and
// produces newline-delimited download URL lists.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/labcas-project/labcas-gateway/internal/auth"
	"github.com/labcas-project/labcas-gateway/internal/catalog"
)

// Catalog field names used by the cascade.
const (
	collectionField = "CollectionId"
	datasetField    = "DatasetId"
	fileIDField     = "id"
)

// defaultRows is applied when the caller supplies a non-positive row
// count for the top-level query.
const defaultRows = 10

// filesPageSize bounds each page of the files-core pagination loop.
const filesPageSize = 100

// Service builds download URL lists from catalog queries.
type Service struct {
	engine          catalog.Engine
	filter          catalog.AccessFilter
	maxRows         int
	downloadBaseURL string
	logger          *slog.Logger
}

// NewService constructs a Service.
func NewService(engine catalog.Engine, filter catalog.AccessFilter, maxRows int, downloadBaseURL string, logger *slog.Logger) *Service {
	return &Service{
		engine:          engine,
		filter:          filter,
		maxRows:         maxRows,
		downloadBaseURL: downloadBaseURL,
		logger:          logger,
	}
}

// ListCollections returns download URLs for every file in collections
// matching the query.
func (s *Service) ListCollections(ctx context.Context, sc *auth.Context, query string, filters []string, start, rows int) (string, error) {
	return s.listTier(ctx, sc, catalog.CoreCollections, collectionField, query, filters, start, rows)
}

// ListDatasets returns download URLs for every file in datasets
// matching the query.
func (s *Service) ListDatasets(ctx context.Context, sc *auth.Context, query string, filters []string, start, rows int) (string, error) {
	return s.listTier(ctx, sc, catalog.CoreDatasets, datasetField, query, filters, start, rows)
}

// ListFiles returns download URLs for files matching the query
// directly, skipping the hierarchy hop.
func (s *Service) ListFiles(ctx context.Context, sc *auth.Context, query string, filters []string, start, rows int) (string, error) {
	params, err := s.passThroughParams(sc, query, filters, start, rows)
	if err != nil {
		return "", err
	}
	if params.Get("fl") == "" {
		params.Set("fl", fileIDField)
	}
	if params.Get("sort") == "" {
		params.Set("sort", fileIDField+" desc")
	}

	result, err := s.engine.Query(ctx, catalog.CoreFiles, params)
	if err != nil {
		return "", err
	}
	ids := extractIDs(result.Documents)
	s.logger.Debug("files direct query", slog.Int("matched", len(ids)))
	return s.buildURLList(ids), nil
}

func (s *Service) listTier(ctx context.Context, sc *auth.Context, core, childField, query string, filters []string, start, rows int) (string, error) {
	params, err := s.passThroughParams(sc, query, filters, start, rows)
	if err != nil {
		return "", err
	}

	result, err := s.engine.Query(ctx, core, params)
	if err != nil {
		return "", err
	}
	ids := extractIDs(result.Documents)
	s.logger.Debug("tier query", slog.String("core", core), slog.Int("matched", len(ids)))
	if len(ids) == 0 {
		return "", nil
	}

	return s.collectFiles(ctx, childField, ids)
}

// collectFiles pages through the files core accumulating ids for files
// whose parent field is one of the given values. The id-descending sort
// keeps pagination stable; the loop stops on an empty batch or when the
// offset reaches the reported total, whichever comes first.
func (s *Service) collectFiles(ctx context.Context, fieldName string, fieldValues []string) (string, error) {
	safeValues, err := sanitizeValues(fieldValues)
	if err != nil {
		return "", err
	}
	if len(safeValues) == 0 {
		return "", nil
	}

	query := buildOrQuery(fieldName, safeValues)
	pageSize := min(filesPageSize, s.maxRows)
	start := 0
	total := 1
	var identifiers []string

	for start < total {
		params := url.Values{}
		params.Set("q", query)
		params.Set("fl", fileIDField)
		params.Set("rows", strconv.Itoa(pageSize))
		params.Set("start", strconv.Itoa(start))
		params.Set("sort", fileIDField+" desc")

		result, err := s.engine.Query(ctx, catalog.CoreFiles, params)
		if err != nil {
			return "", err
		}
		total = result.Total
		s.logger.Debug("files page",
			slog.String("field", fieldName),
			slog.Int("docs", len(result.Documents)),
			slog.Int("total", total))
		if len(result.Documents) == 0 {
			break
		}

		start += len(result.Documents)
		identifiers = append(identifiers, extractIDs(result.Documents)...)
	}

	return s.buildURLList(identifiers), nil
}

func (s *Service) passThroughParams(sc *auth.Context, query string, filters []string, start, rows int) (url.Values, error) {
	safeQuery, err := sanitizeQuery(query)
	if err != nil {
		return nil, err
	}
	if safeQuery == "" {
		safeQuery = "*:*"
	}
	safeFilters, err := sanitizeValues(filters)
	if err != nil {
		return nil, err
	}

	var groups []string
	if sc != nil {
		groups = sc.Groups
	}
	if filter := s.filter.Build(groups); filter != "" {
		safeFilters = append(safeFilters, filter)
	}

	params := url.Values{}
	params.Set("q", safeQuery)
	params.Set("start", strconv.Itoa(max(start, 0)))
	params.Set("rows", strconv.Itoa(s.normalizeRows(rows)))
	for _, filter := range safeFilters {
		params.Add("fq", filter)
	}
	return params, nil
}

func (s *Service) normalizeRows(rows int) int {
	if rows <= 0 {
		rows = defaultRows
	}
	return min(rows, s.maxRows)
}

// BuildDownloadURL maps a file id to its download URL.
func (s *Service) BuildDownloadURL(id string) string {
	return fmt.Sprintf("%s?id=%s", s.downloadBaseURL, url.QueryEscape(id))
}

func (s *Service) buildURLList(ids []string) string {
	var b strings.Builder
	count := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		b.WriteString(s.BuildDownloadURL(id))
		b.WriteByte('\n')
		count++
	}
	if count == 0 {
		return ""
	}
	return b.String()
}

func buildOrQuery(fieldName string, values []string) string {
	quoted := make([]string, len(values))
	for i, value := range values {
		quoted[i] = `"` + value + `"`
	}
	return fieldName + ":(" + strings.Join(quoted, " OR ") + ")"
}

func extractIDs(documents []map[string]any) []string {
	var ids []string
	for _, doc := range documents {
		if id, ok := doc[fileIDField].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// The listing surface takes structured id values rather than free-form
// query expressions, so the strict sanitizer applies: quotes are added
// by this package, never accepted from the caller.
func sanitizeQuery(value string) (string, error) {
	return catalog.EnsureSafe(strings.TrimSpace(value))
}

func sanitizeValues(values []string) ([]string, error) {
	var sanitized []string
	for _, value := range values {
		safe, err := catalog.EnsureSafe(strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		if safe == "" {
			continue
		}
		sanitized = append(sanitized, safe)
	}
	return sanitized, nil
}

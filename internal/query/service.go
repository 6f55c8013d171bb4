// Package query proxies caller-supplied catalog queries to the search
// index with sanitization, row-count limits and the access-control
// filter applied.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/labcas-project/labcas-gateway/internal/auth"
	"github.com/labcas-project/labcas-gateway/internal/catalog"
	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
)

// queryLanguageKeys are parameters whose values are query-language
// expressions where quoting is legitimate syntax.
var queryLanguageKeys = map[string]bool{"q": true, "fq": true}

// Service encapsulates the logic required to proxy catalog queries.
type Service struct {
	engine  catalog.Engine
	filter  catalog.AccessFilter
	maxRows int
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(engine catalog.Engine, filter catalog.AccessFilter, maxRows int, logger *slog.Logger) *Service {
	return &Service{engine: engine, filter: filter, maxRows: maxRows, logger: logger}
}

// MaxRows exposes the configured row-count ceiling.
func (s *Service) MaxRows() int {
	return s.maxRows
}

// AccessFilterFor returns the filter fragment for the given context.
func (s *Service) AccessFilterFor(sc *auth.Context) string {
	var groups []string
	if sc != nil {
		groups = sc.Groups
	}
	return s.filter.Build(groups)
}

// Query sanitizes the caller's parameters, enforces the row limit,
// injects the access-control filter and forwards to the search index.
// The index's native result shape is returned unchanged.
func (s *Service) Query(ctx context.Context, core string, sc *auth.Context, params url.Values) (map[string]any, error) {
	safe, err := sanitizeParams(params)
	if err != nil {
		return nil, err
	}

	if rows := safe.Get("rows"); rows != "" {
		n, err := strconv.Atoi(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: rows must be a valid integer", httpx.ErrValidation)
		}
		if n > s.maxRows {
			return nil, fmt.Errorf("%w: rows must be ≤ %d", httpx.ErrValidation, s.maxRows)
		}
	}

	if filter := s.AccessFilterFor(sc); filter != "" {
		safe.Add("fq", filter)
	}
	safe.Set("wt", "json")

	result, err := s.engine.Select(ctx, core, safe)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("query proxied", slog.String("core", core), slog.String("subject", subjectOf(sc)))
	return result, nil
}

func sanitizeParams(params url.Values) (url.Values, error) {
	safe := url.Values{}
	for key, values := range params {
		for _, value := range values {
			var err error
			if queryLanguageKeys[key] {
				_, err = catalog.EnsureSafeQuery(value)
			} else {
				_, err = catalog.EnsureSafe(value)
			}
			if err != nil {
				return nil, err
			}
			safe.Add(key, value)
		}
	}
	return safe, nil
}

func subjectOf(sc *auth.Context) string {
	if sc == nil {
		return ""
	}
	return sc.Subject
}

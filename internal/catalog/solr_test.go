package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSolrEngineSelectForcesJSONFormat(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"numFound": 0, "docs": []any{}},
		})
	}))
	defer server.Close()

	engine := NewSolrEngine(server.URL, time.Second, discardLogger())
	params := url.Values{}
	params.Set("q", "*:*")

	if _, err := engine.Select(context.Background(), CoreCollections, params); err != nil {
		t.Fatalf("select: %v", err)
	}
	if gotQuery.Get("wt") != "json" {
		t.Fatalf("expected wt=json to be forced, got %q", gotQuery.Get("wt"))
	}
	if gotQuery.Get("q") != "*:*" {
		t.Fatalf("expected q forwarded, got %q", gotQuery.Get("q"))
	}
	// The caller's params must not be mutated.
	if params.Get("wt") != "" {
		t.Fatal("caller params were mutated")
	}
}

func TestSolrEngineQueryParsesDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{
				"numFound": 42,
				"docs": []any{
					map[string]any{"id": "file-1"},
					map[string]any{"id": "file-2"},
				},
			},
		})
	}))
	defer server.Close()

	engine := NewSolrEngine(server.URL, time.Second, discardLogger())
	result, err := engine.Query(context.Background(), CoreFiles, url.Values{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if result.Total != 42 {
		t.Fatalf("expected total 42, got %d", result.Total)
	}
	if len(result.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(result.Documents))
	}
	if result.Documents[0]["id"] != "file-1" {
		t.Fatalf("unexpected first document: %v", result.Documents[0])
	}
}

func TestSolrEngineServerErrorIsUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	engine := NewSolrEngine(server.URL, time.Second, discardLogger())
	_, err := engine.Select(context.Background(), CoreFiles, url.Values{})
	if !errors.Is(err, httpx.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestSolrEngineTransportFailureIsUpstream(t *testing.T) {
	engine := NewSolrEngine("http://127.0.0.1:1", 100*time.Millisecond, discardLogger())
	_, err := engine.Select(context.Background(), CoreFiles, url.Values{})
	if !errors.Is(err, httpx.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestSolrEngineBadRequestIsValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	engine := NewSolrEngine(server.URL, time.Second, discardLogger())
	_, err := engine.Select(context.Background(), CoreFiles, url.Values{})
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSolrEngineUpdate(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	engine := NewSolrEngine(server.URL, time.Second, discardLogger())
	payload := map[string]any{"delete": map[string]any{"id": "file-1"}}
	if err := engine.Update(context.Background(), CoreFiles, payload); err != nil {
		t.Fatalf("update: %v", err)
	}
	if gotPath != "/files/update" {
		t.Fatalf("expected /files/update, got %s", gotPath)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected JSON content type, got %s", gotContentType)
	}
	if gotBody == nil {
		t.Fatal("expected update payload to be posted")
	}
}

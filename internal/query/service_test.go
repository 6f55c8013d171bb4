package query_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/labcas-project/labcas-gateway/internal/auth"
	"github.com/labcas-project/labcas-gateway/internal/catalog"
	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
	"github.com/labcas-project/labcas-gateway/internal/query"
)

// fakeEngine records the last select call and replays a canned result.
type fakeEngine struct {
	core   string
	params url.Values
	result map[string]any
	err    error
}

func (f *fakeEngine) Select(_ context.Context, core string, params url.Values) (map[string]any, error) {
	f.core = core
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeEngine) Query(ctx context.Context, core string, params url.Values) (*catalog.Result, error) {
	raw, err := f.Select(ctx, core, params)
	if err != nil {
		return nil, err
	}
	return catalog.ParseResult(raw), nil
}

func (f *fakeEngine) Update(_ context.Context, _ string, _ any) error { return nil }

func newTestService(engine *fakeEngine) *query.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	filter := catalog.AccessFilter{SuperOwner: "cn=superowner", PublicOwner: "cn=public"}
	return query.NewService(engine, filter, 5000, logger)
}

func TestQueryInjectsAccessFilter(t *testing.T) {
	engine := &fakeEngine{result: map[string]any{"response": map[string]any{}}}
	svc := newTestService(engine)
	sc := &auth.Context{Subject: "uid=alice", Groups: []string{"cn=grpA"}}

	params := url.Values{"q": {"*:*"}, "fq": {"DatasetId:abc"}}
	if _, err := svc.Query(context.Background(), catalog.CoreDatasets, sc, params); err != nil {
		t.Fatalf("query: %v", err)
	}

	fq := engine.params["fq"]
	if len(fq) != 2 {
		t.Fatalf("expected caller fq plus access filter, got %v", fq)
	}
	if fq[0] != "DatasetId:abc" {
		t.Fatalf("caller fq must come first, got %q", fq[0])
	}
	if fq[1] != `OwnerPrincipal:("cn=public" OR "cn=grpA")` {
		t.Fatalf("unexpected access filter %q", fq[1])
	}
	if engine.params.Get("wt") != "json" {
		t.Fatal("wt=json must be forced")
	}
}

func TestQuerySuperOwnerIsUnrestricted(t *testing.T) {
	engine := &fakeEngine{result: map[string]any{}}
	svc := newTestService(engine)
	sc := &auth.Context{Subject: "uid=admin", Groups: []string{"cn=superowner"}}

	if _, err := svc.Query(context.Background(), catalog.CoreCollections, sc, url.Values{"q": {"*:*"}}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(engine.params["fq"]) != 0 {
		t.Fatalf("super-owner must not be filtered, got %v", engine.params["fq"])
	}
}

func TestQueryGuestGetsFailClosedFilter(t *testing.T) {
	engine := &fakeEngine{result: map[string]any{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	filter := catalog.AccessFilter{SuperOwner: "cn=superowner"} // no public owner configured
	svc := query.NewService(engine, filter, 5000, logger)

	sc := &auth.Context{Subject: auth.GuestDN}
	if _, err := svc.Query(context.Background(), catalog.CoreCollections, sc, url.Values{}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := engine.params.Get("fq"); got != catalog.MatchNothing {
		t.Fatalf("expected match-nothing filter, got %q", got)
	}
}

func TestQueryRejectsUnsafeParameters(t *testing.T) {
	engine := &fakeEngine{result: map[string]any{}}
	svc := newTestService(engine)
	sc := &auth.Context{Subject: auth.GuestDN}

	cases := map[string]url.Values{
		"unsafe plain field":  {"fl": {"id,<script>"}},
		"dollar in start":     {"start": {"$1"}},
		"percent in sort":     {"sort": {"id%20desc"}},
		"backtick in query":   {"q": {"id:`rm`"}},
		"angle inside quotes": {"fq": {`id:"<injected>"`}},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Query(context.Background(), catalog.CoreFiles, sc, params)
			if !errors.Is(err, httpx.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestQueryAllowsQuotedQueryExpressions(t *testing.T) {
	engine := &fakeEngine{result: map[string]any{}}
	svc := newTestService(engine)
	sc := &auth.Context{Subject: "uid=alice", Groups: []string{"cn=grpA"}}

	params := url.Values{"q": {`DatasetId:"My_Dataset.v2"`}}
	if _, err := svc.Query(context.Background(), catalog.CoreFiles, sc, params); err != nil {
		t.Fatalf("quoted query expression must pass: %v", err)
	}
	if got := engine.params.Get("q"); got != `DatasetId:"My_Dataset.v2"` {
		t.Fatalf("query expression must be forwarded untouched, got %q", got)
	}
}

func TestQueryEnforcesRowLimit(t *testing.T) {
	engine := &fakeEngine{result: map[string]any{}}
	svc := newTestService(engine)
	sc := &auth.Context{Subject: auth.GuestDN}

	_, err := svc.Query(context.Background(), catalog.CoreFiles, sc, url.Values{"rows": {"100000"}})
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "validation failed: rows must be ≤ 5000" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if _, err := svc.Query(context.Background(), catalog.CoreFiles, sc, url.Values{"rows": {"ten"}}); !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("expected validation error for non-integer rows, got %v", err)
	}

	if _, err := svc.Query(context.Background(), catalog.CoreFiles, sc, url.Values{"rows": {"5000"}}); err != nil {
		t.Fatalf("rows at the limit must pass: %v", err)
	}
}

func TestQueryPropagatesUpstreamFailure(t *testing.T) {
	engine := &fakeEngine{err: httpx.ErrUpstream}
	svc := newTestService(engine)
	sc := &auth.Context{Subject: auth.GuestDN}

	_, err := svc.Query(context.Background(), catalog.CoreFiles, sc, url.Values{})
	if !errors.Is(err, httpx.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

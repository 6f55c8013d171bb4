package events_test

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/labcas-project/labcas-gateway/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchDeliversInSubscriptionOrder(t *testing.T) {
	d := events.NewDispatcher(discardLogger())

	var order []string
	d.Subscribe(events.AuthIssued, func(string, map[string]any) { order = append(order, "first") })
	d.Subscribe(events.AuthIssued, func(string, map[string]any) { order = append(order, "second") })
	d.Subscribe(events.AuthRevoked, func(string, map[string]any) { order = append(order, "other") })

	d.Dispatch(events.AuthIssued, map[string]any{"subject": "uid=alice"})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected delivery order %v", order)
	}
}

func TestDispatchIsolatesPanickingListener(t *testing.T) {
	d := events.NewDispatcher(discardLogger())

	delivered := false
	d.Subscribe(events.DownloadResolved, func(string, map[string]any) { panic("boom") })
	d.Subscribe(events.DownloadResolved, func(string, map[string]any) { delivered = true })

	d.Dispatch(events.DownloadResolved, nil)

	if !delivered {
		t.Fatal("panic in one listener must not block the next")
	}
}

func TestDispatchOnNilDispatcherIsNoOp(t *testing.T) {
	var d *events.Dispatcher
	d.Dispatch(events.AuthIssued, nil)
}

func TestAuditListenerLogsPayload(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	d := events.NewDispatcher(logger)
	d.Subscribe(events.AuthRevoked, events.AuditListener(logger))
	d.Dispatch(events.AuthRevoked, map[string]any{"subject": "uid=alice", "session": "abc-123"})

	out := buf.String()
	if !strings.Contains(out, "audit: "+events.AuthRevoked) {
		t.Fatalf("missing audit line in %q", out)
	}
	if !strings.Contains(out, "abc-123") {
		t.Fatalf("missing payload in %q", out)
	}
}

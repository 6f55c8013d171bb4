package catalog

import (
	"errors"
	"testing"

	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
)

func TestEnsureSafeAcceptsPlainValues(t *testing.T) {
	for _, value := range []string{"", "abc123", "id desc", "CollectionId,FileName", "*:*"} {
		if _, err := EnsureSafe(value); err != nil {
			t.Fatalf("expected %q to be safe: %v", value, err)
		}
	}
}

func TestEnsureSafeRejectsUnsafeCharacters(t *testing.T) {
	for _, value := range []string{"<script>", "100%", "$USER", `a"b`, "it's", "a`b", "a>b"} {
		_, err := EnsureSafe(value)
		if err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
		if !errors.Is(err, httpx.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
}

func TestEnsureSafeQueryAllowsQuoting(t *testing.T) {
	value := `OwnerPrincipal:("grpA" OR 'grpB')`
	got, err := EnsureSafeQuery(value)
	if err != nil {
		t.Fatalf("expected quoted query to be safe: %v", err)
	}
	if got != value {
		t.Fatalf("expected value returned unchanged, got %q", got)
	}
}

func TestEnsureSafeQueryStillRejectsUnsafeCharacters(t *testing.T) {
	if _, err := EnsureSafeQuery(`id:"a<b"`); err == nil {
		t.Fatal("expected unsafe character inside quoted query to be rejected")
	}
}

package catalog

import (
	"fmt"
	"strings"

	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
)

// unsafeChars are rejected in every caller-supplied value before it is
// forwarded to the search index.
const unsafeChars = "<>%$\"'`"

// EnsureSafe validates that a value contains no unsafe characters.
func EnsureSafe(value string) (string, error) {
	if strings.ContainsAny(value, unsafeChars) {
		return "", fmt.Errorf("%w: unsafe characters detected in value", httpx.ErrValidation)
	}
	return value, nil
}

// EnsureSafeQuery validates a query-language value. Quote characters are
// legitimate syntax in q and fq expressions, so they are stripped before
// the unsafe-character check.
func EnsureSafeQuery(value string) (string, error) {
	stripped := strings.NewReplacer(`"`, "", "'", "").Replace(value)
	if _, err := EnsureSafe(stripped); err != nil {
		return "", err
	}
	return value, nil
}

// Package catalog defines the contract with the document search index
// that holds the collections, datasets and files cores, together with
// the access-control filter applied to every query.
package catalog

import (
	"context"
	"net/url"
)

// Core names of the three catalog tiers.
const (
	CoreCollections = "collections"
	CoreDatasets    = "datasets"
	CoreFiles       = "files"
)

// Result is the parsed shape of a select response.
type Result struct {
	Documents []map[string]any
	Total     int
}

// Engine is the capability the gateway requires from the search index.
// Select returns the index's native response verbatim; Query parses the
// document list and total out of it.
type Engine interface {
	Select(ctx context.Context, core string, params url.Values) (map[string]any, error)
	Query(ctx context.Context, core string, params url.Values) (*Result, error)
	Update(ctx context.Context, core string, payload any) error
}

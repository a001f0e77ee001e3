// Package content abstracts the structured content store the executor
// mutates. The store is an external collaborator with reference/patch
// primitives; contentpilot never assumes anything about its transaction
// semantics beyond "a mutation eventually produces a live update event".
package content

import (
	"context"
	"errors"

	"contentpilot/internal/reconcile"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is one stored content document. Sections is the ordered
// content-block list that live views render.
type Document struct {
	ID       string            `json:"_id"`
	Type     string            `json:"_type"`
	Rev      int64             `json:"_rev,omitempty"`
	Fields   map[string]any    `json:"fields,omitempty"`
	Sections []reconcile.Block `json:"sections,omitempty"`
}

// Store is the content store contract.
type Store interface {
	// Get fetches one document by ID.
	Get(ctx context.Context, id string) (*Document, error)

	// Create stores a new document and returns it with its assigned ID
	// and revision.
	Create(ctx context.Context, doc *Document) (*Document, error)

	// Patch merges the given fields into an existing document. A
	// "sections" entry replaces the document's section list.
	Patch(ctx context.Context, id string, set map[string]any) (*Document, error)

	// Delete removes a document. Deleting a missing document returns
	// ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Query runs a content query string against the store.
	Query(ctx context.Context, query string) ([]Document, error)

	// Upload stores an image asset and returns its reference.
	Upload(ctx context.Context, name string, data []byte) (string, error)

	// Close releases the backend.
	Close() error
}

package docstore

import "context"

// Fields is the attribute map of a single document.
type Fields map[string]any

// Doc is a document returned by a listing or query, with its full path.
type Doc struct {
	// Path is the full document path (e.g. "Data/acme/app/Widget/Widget-123").
	Path string

	// Fields is the document's attribute map.
	Fields Fields
}

// Filter is a single-field comparison applied by Query and CollectionGroupQuery.
type Filter struct {
	// Field is the document attribute name.
	Field string

	// Op is one of "==", "<", "<=", ">", ">=".
	Op string

	// Value is the comparison operand.
	Value any
}

// Eq returns an equality filter on field.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: "==", Value: value}
}

// Store is the hierarchical document store consumed by the data layer.
//
// A document at a path may own named child collections, each containing
// more documents, recursively. Implementations must treat paths as opaque
// slash-separated strings; the layer above fixes the conventions.
type Store interface {
	// Get returns the document at path. The bool reports whether it exists.
	Get(ctx context.Context, path string) (Fields, bool, error)

	// Create writes a new document at path, failing with ErrExists if a
	// document is already present.
	Create(ctx context.Context, path string, fields Fields) error

	// Set writes the document at path, overwriting any existing content.
	Set(ctx context.Context, path string, fields Fields) error

	// Update merges partial fields into the document at path, failing with
	// ErrNotFound if no document is present.
	Update(ctx context.Context, path string, fields Fields) error

	// Delete removes the document at path. Deleting a missing document is
	// not an error.
	Delete(ctx context.Context, path string) error

	// ListDocuments returns every document directly inside a collection.
	ListDocuments(ctx context.Context, collectionPath string) ([]Doc, error)

	// ListChildCollections returns the names of the collections owned by
	// the document at path.
	ListChildCollections(ctx context.Context, docPath string) ([]string, error)

	// Query returns the documents in a collection matching every filter.
	Query(ctx context.Context, collectionPath string, filters []Filter) ([]Doc, error)

	// CollectionGroupQuery returns matching documents from every collection
	// sharing the given name, regardless of ancestor path.
	CollectionGroupQuery(ctx context.Context, collectionName string, filters []Filter) ([]Doc, error)
}

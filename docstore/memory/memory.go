// Package memory provides an in-process document store for tests and local use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/verdantio/canopy/docstore"
)

// Store is a mutex-guarded in-memory implementation of docstore.Store.
// Documents are kept by full path; collections exist implicitly.
type Store struct {
	mu   sync.RWMutex
	docs map[string]docstore.Fields
}

// New creates an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]docstore.Fields)}
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Get returns the document at path.
func (s *Store) Get(_ context.Context, path string) (docstore.Fields, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.docs[path]
	if !ok {
		return nil, false, nil
	}
	return copyFields(fields), true, nil
}

// Create writes a new document, failing if one is already present.
func (s *Store) Create(_ context.Context, path string, fields docstore.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[path]; ok {
		return fmt.Errorf("%w: %s", docstore.ErrExists, path)
	}
	s.docs[path] = copyFields(fields)
	return nil
}

// Set writes the document at path, overwriting any existing content.
func (s *Store) Set(_ context.Context, path string, fields docstore.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = copyFields(fields)
	return nil
}

// Update merges partial fields into an existing document.
func (s *Store) Update(_ context.Context, path string, fields docstore.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[path]
	if !ok {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	for k, v := range fields {
		current[k] = v
	}
	return nil
}

// Delete removes the document at path. Missing documents are a no-op.
func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

// ListDocuments returns the documents directly inside a collection, sorted by path.
func (s *Store) ListDocuments(_ context.Context, collectionPath string) ([]docstore.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []docstore.Doc
	for path, fields := range s.docs {
		if docstore.ParentPath(path) == collectionPath {
			docs = append(docs, docstore.Doc{Path: path, Fields: copyFields(fields)})
		}
	}
	sortDocs(docs)
	return docs, nil
}

// ListChildCollections returns the distinct collection names under a document.
func (s *Store) ListChildCollections(_ context.Context, docPath string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := docPath + "/"
	seen := make(map[string]bool)
	for path := range s.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := path[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i > 0 {
			seen[rest[:i]] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Query returns the documents in a collection matching every filter.
func (s *Store) Query(_ context.Context, collectionPath string, filters []docstore.Filter) ([]docstore.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []docstore.Doc
	for path, fields := range s.docs {
		if docstore.ParentPath(path) != collectionPath {
			continue
		}
		ok, err := matchAll(fields, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, docstore.Doc{Path: path, Fields: copyFields(fields)})
		}
	}
	sortDocs(docs)
	return docs, nil
}

// CollectionGroupQuery returns matching documents from every collection with
// the given name, regardless of ancestor path.
func (s *Store) CollectionGroupQuery(_ context.Context, collectionName string, filters []docstore.Filter) ([]docstore.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []docstore.Doc
	for path, fields := range s.docs {
		if docstore.LastSegment(docstore.ParentPath(path)) != collectionName {
			continue
		}
		ok, err := matchAll(fields, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, docstore.Doc{Path: path, Fields: copyFields(fields)})
		}
	}
	sortDocs(docs)
	return docs, nil
}

func sortDocs(docs []docstore.Doc) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
}

func copyFields(fields docstore.Fields) docstore.Fields {
	out := make(docstore.Fields, len(fields))
	for k, v := range fields {
		if nested, ok := v.(map[string]any); ok {
			inner := make(map[string]any, len(nested))
			for nk, nv := range nested {
				inner[nk] = nv
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}

func matchAll(fields docstore.Fields, filters []docstore.Filter) (bool, error) {
	for _, f := range filters {
		value, ok := fields[f.Field]
		if !ok {
			return false, nil
		}
		cmp, comparable := compareValues(value, f.Value)
		if !comparable {
			return false, nil
		}
		switch f.Op {
		case "==":
			if cmp != 0 {
				return false, nil
			}
		case "<":
			if cmp >= 0 {
				return false, nil
			}
		case "<=":
			if cmp > 0 {
				return false, nil
			}
		case ">":
			if cmp <= 0 {
				return false, nil
			}
		case ">=":
			if cmp < 0 {
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: %q", docstore.ErrBadFilter, f.Op)
		}
	}
	return true, nil
}

// compareValues compares two attribute values of possibly different dynamic
// types. Numbers compare numerically, strings lexically, bools by truth.
func compareValues(a, b any) (int, bool) {
	if an, aok := asFloat(a); aok {
		bn, bok := asFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		}
		return 0, true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

package blob

import (
	"context"
	"fmt"

	"github.com/verdantio/canopy/schema"
)

// Kind selects which document-backed object Load builds. The set is closed:
// each kind has an explicit loader, dispatched below.
type Kind int

const (
	// KindSchemaType loads a storage type by name.
	KindSchemaType Kind = iota

	// KindEntity loads an entity by document path.
	KindEntity

	// KindCounter loads a type's counter value by type name.
	KindCounter

	// KindIndexEntry loads a lookup entry's target path by ID.
	KindIndexEntry
)

// Instance is the result of Load: exactly one of the typed slots is set,
// according to Kind.
type Instance struct {
	Kind Kind

	// Type is set for KindSchemaType.
	Type *schema.StorageType

	// Entity is set for KindEntity.
	Entity *Blob

	// Counter is set for KindCounter.
	Counter int64

	// IndexPath is set for KindIndexEntry.
	IndexPath string

	// Exists reports whether the underlying document was found.
	Exists bool
}

// Load builds a document-backed object of the given kind. The key is a
// type name for KindSchemaType and KindCounter, a document path for
// KindEntity, and an allocated ID for KindIndexEntry.
func (s *Service) Load(ctx context.Context, kind Kind, key string) (Instance, error) {
	switch kind {
	case KindSchemaType:
		t, err := s.registry.GetType(ctx, key)
		if err != nil {
			return Instance{}, err
		}
		return Instance{Kind: kind, Type: t, Exists: t.Exists}, nil

	case KindEntity:
		b, err := s.GetByPath(ctx, key)
		if err != nil {
			return Instance{}, err
		}
		return Instance{Kind: kind, Entity: b, Exists: true}, nil

	case KindCounter:
		n, ok, err := s.alloc.Current(ctx, key)
		if err != nil {
			return Instance{}, err
		}
		return Instance{Kind: kind, Counter: n, Exists: ok}, nil

	case KindIndexEntry:
		path, ok, err := s.lookup.Get(ctx, key)
		if err != nil {
			return Instance{}, err
		}
		return Instance{Kind: kind, IndexPath: path, Exists: ok}, nil
	}

	return Instance{}, fmt.Errorf("canopy: unknown load kind %d", kind)
}

// Package schema defines storage types, per-field validation and the
// registry that resolves single-inheritance field sets.
package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/verdantio/canopy/docstore"
)

// Registry loads storage types from the document store and resolves their
// inheritance chains, caching loaded types in an injectable Cache.
type Registry struct {
	store  docstore.Store
	scope  docstore.Scope
	cache  *Cache
	logger *slog.Logger
}

// NewRegistry creates a Registry with its own private cache.
func NewRegistry(store docstore.Store, scope docstore.Scope, logger *slog.Logger) *Registry {
	return NewRegistryWithCache(store, scope, NewCache(), logger)
}

// NewRegistryWithCache creates a Registry sharing an existing cache.
func NewRegistryWithCache(store docstore.Store, scope docstore.Scope, cache *Cache, logger *slog.Logger) *Registry {
	scope.Validate()
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, scope: scope, cache: cache, logger: logger}
}

// Scope returns the registry's path scope.
func (r *Registry) Scope() docstore.Scope {
	return r.scope
}

// GetType returns the storage type for name, from cache when possible.
// An unknown name yields a placeholder with Exists=false, never an error;
// callers must check Exists before use. Placeholders are not cached, so a
// later save becomes visible immediately.
func (r *Registry) GetType(ctx context.Context, name string) (*StorageType, error) {
	if t, ok := r.cache.Get(name); ok {
		return t, nil
	}

	doc, ok, err := r.store.Get(ctx, r.scope.SchemaPath(name))
	if err != nil {
		return nil, fmt.Errorf("load storage type %q: %w", name, err)
	}
	if !ok {
		return &StorageType{Name: name, Fields: map[string]Field{}}, nil
	}

	t := typeFromFields(name, doc)
	r.cache.Put(t)
	return t, nil
}

// ResolvedFields returns the full field set of a type. With includeExtends,
// the parent chain is resolved first and this type's own fields overlay the
// inherited ones, so a field declared here always shadows a parent's field
// of the same name. A missing parent contributes nothing, and a chain that
// loops back on itself stops at the revisited type.
func (r *Registry) ResolvedFields(ctx context.Context, t *StorageType, includeExtends bool) (map[string]Field, error) {
	return r.resolveFields(ctx, t, includeExtends, map[string]bool{})
}

func (r *Registry) resolveFields(ctx context.Context, t *StorageType, includeExtends bool, seen map[string]bool) (map[string]Field, error) {
	seen[t.Name] = true
	if !includeExtends || !t.HasParent() || seen[t.Extends] {
		return t.OwnFields(), nil
	}

	parent, err := r.GetType(ctx, t.Extends)
	if err != nil {
		return nil, err
	}
	if !parent.Exists {
		return t.OwnFields(), nil
	}

	resolved, err := r.resolveFields(ctx, parent, true, seen)
	if err != nil {
		return nil, err
	}
	for name, f := range t.Fields {
		resolved[name] = f
	}
	return resolved, nil
}

// SaveType persists the type's declared fields (never the resolved set) and
// invalidates the cache for the type and, depth-first, for every type whose
// extends chain reaches it. A field without a name fails the whole call.
func (r *Registry) SaveType(ctx context.Context, t *StorageType) error {
	for _, f := range t.Fields {
		if f.Name == "" {
			return ErrFieldName
		}
	}

	if err := r.store.Set(ctx, r.scope.SchemaPath(t.Name), t.toFields()); err != nil {
		return fmt.Errorf("save storage type %q: %w", t.Name, err)
	}
	t.Exists = true

	r.invalidateTree(ctx, t.Name, map[string]bool{})
	return nil
}

// invalidateTree drops the cache entry for name and recurses into every
// stored type extending it. Failures to enumerate descendants are logged
// and skipped; the local entry is always dropped first.
func (r *Registry) invalidateTree(ctx context.Context, name string, seen map[string]bool) {
	if seen[name] {
		return
	}
	seen[name] = true
	r.cache.Invalidate(name)

	docs, err := r.store.Query(ctx, r.scope.SchemaCollectionPath(), []docstore.Filter{
		docstore.Eq("extends", name),
	})
	if err != nil {
		r.logger.Warn("failed to enumerate extending types",
			"storageType", name,
			"error", err,
		)
		return
	}
	for _, doc := range docs {
		r.invalidateTree(ctx, docstore.LastSegment(doc.Path), seen)
	}
}

// UpdateFields merges field definitions into the type's own field map by
// name. New names are inserted; for existing names the update replaces the
// definition, keeping the old Type when the update leaves it empty. With
// persist, the merged type is saved through SaveType.
func (r *Registry) UpdateFields(ctx context.Context, t *StorageType, updates []Field, persist bool) error {
	for _, f := range updates {
		if f.Name == "" {
			return ErrFieldName
		}
	}

	if t.Fields == nil {
		t.Fields = make(map[string]Field)
	}
	for _, f := range updates {
		if current, ok := t.Fields[f.Name]; ok && f.Type == "" {
			f.Type = current.Type
		}
		t.Fields[f.Name] = f
	}

	if persist {
		return r.SaveType(ctx, t)
	}
	return nil
}

// GroupSchema is the embedded shape of a group field.
type GroupSchema struct {
	// Structure maps field names to their serialized definitions. Nested
	// group fields carry their own "structure" and "repeated" keys.
	Structure map[string]any

	// Repeated reports whether the group's storage type is a list type,
	// i.e. instances form an array rather than a single object.
	Repeated bool
}

// ResolveGroupField describes the nested shape of a group field by looking
// up the storage type it names. Group fields inside that type are resolved
// recursively; a chain that revisits a type fails with ErrGroupCycle rather
// than recursing forever.
func (r *Registry) ResolveGroupField(ctx context.Context, f Field) (GroupSchema, error) {
	return r.resolveGroup(ctx, f, map[string]bool{})
}

func (r *Registry) resolveGroup(ctx context.Context, f Field, seen map[string]bool) (GroupSchema, error) {
	name := f.EffectiveGroupName()
	if seen[name] {
		return GroupSchema{}, fmt.Errorf("%w: %q", ErrGroupCycle, name)
	}
	seen[name] = true
	defer delete(seen, name)

	t, err := r.GetType(ctx, name)
	if err != nil {
		return GroupSchema{}, err
	}
	if !t.Exists {
		return GroupSchema{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}

	resolved, err := r.ResolvedFields(ctx, t, true)
	if err != nil {
		return GroupSchema{}, err
	}

	structure := make(map[string]any, len(resolved))
	for fieldName, field := range resolved {
		m := field.toMap()
		if field.Type == TypeGroup {
			nested, err := r.resolveGroup(ctx, field, seen)
			if err != nil {
				return GroupSchema{}, err
			}
			m["structure"] = nested.Structure
			m["repeated"] = nested.Repeated
		}
		structure[fieldName] = m
	}

	return GroupSchema{Structure: structure, Repeated: t.IsList}, nil
}

// Package blob implements the generic schema-bound entity: a document whose
// field set is resolved at runtime from its storage type's schema.
package blob

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/verdantio/canopy/datanum"
	"github.com/verdantio/canopy/docstore"
	"github.com/verdantio/canopy/schema"
)

// Base field names present on every entity document, alongside the fields
// resolved from its schema. These names are part of the stored layout.
const (
	FieldDataType  = "dataType"
	FieldID        = "dataNumberLookup"
	FieldKeyFields = "keyFields"
)

// Status reports the outcome of a mutation so batch callers can continue
// past individual failures.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Service creates, loads and deletes entities within one scope. It owns the
// ID allocator and lookup index for that scope.
type Service struct {
	store    docstore.Store
	registry *schema.Registry
	alloc    *datanum.Allocator
	lookup   *datanum.Lookup
	scope    docstore.Scope
	logger   *slog.Logger
}

// NewService creates a Service for one scope.
func NewService(store docstore.Store, registry *schema.Registry, scope docstore.Scope, logger *slog.Logger) *Service {
	scope.Validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		registry: registry,
		alloc:    datanum.NewAllocator(store, scope),
		lookup:   datanum.NewLookup(store, scope, logger),
		scope:    scope,
		logger:   logger,
	}
}

// Allocator returns the service's ID allocator.
func (s *Service) Allocator() *datanum.Allocator { return s.alloc }

// Lookup returns the service's lookup index.
func (s *Service) Lookup() *datanum.Lookup { return s.lookup }

// Blob is one entity instance bound to a storage type.
//
// The live attribute set is an explicit map: the keys of every field in the
// type's resolved schema, the base fields, and any extra keys passed at
// construction.
type Blob struct {
	svc *Service

	// DataType is the storage type name the blob is bound to.
	DataType string

	// ID is the allocated data number, doubling as the public identifier.
	ID string

	// Path is the blob's full document path.
	Path string

	// KeyFields is the pipe-joined identity string, written once at create.
	KeyFields string

	// Fields is the live attribute set.
	Fields docstore.Fields

	// Exists reports whether the blob is backed by a stored document.
	Exists bool
}

// Get returns the value of one attribute.
func (b *Blob) Get(name string) any {
	return b.Fields[name]
}

// GetString returns one attribute as a string, or "" for non-strings.
func (b *Blob) GetString(name string) string {
	s, _ := b.Fields[name].(string)
	return s
}

// Create resolves the schema for dataType, fills defaults, validates the
// required and key fields, allocates an ID, writes the document and
// registers the ID in the lookup index.
//
// Root entities land under the scope's entity collection for the type;
// passing parentPath nests the entity inside that collection instead
// (callers pass <parentDocPath>/<groupFieldName>).
//
// The document write and the index write are two separate steps with no
// transaction; if the index write fails the document stands and the error
// is returned so the caller can retry the index step.
func (s *Service) Create(ctx context.Context, dataType string, fields map[string]any, parentPath string) (*Blob, error) {
	t, err := s.registry.GetType(ctx, dataType)
	if err != nil {
		return nil, err
	}
	if !t.Exists {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownType, dataType)
	}

	resolved, err := s.registry.ResolvedFields(ctx, t, true)
	if err != nil {
		return nil, err
	}

	merged := make(docstore.Fields, len(resolved)+len(fields)+3)
	for name := range resolved {
		merged[name] = nil
	}
	for name, v := range fields {
		merged[name] = v
	}

	// Default-fill before validation, skipping server-side field types.
	for _, f := range sortedFields(resolved) {
		if f.Default == "" || f.Type == schema.TypeAutoInc || f.Type == schema.TypeReadOnly {
			continue
		}
		if schema.IsBlank(merged[f.Name]) {
			merged[f.Name] = f.Default
		}
	}

	var messages []string
	for _, f := range sortedFields(resolved) {
		if !f.Required && !f.IsKeyField {
			continue
		}
		if res := f.Validate(merged[f.Name]); !res.Valid {
			messages = append(messages, res.Messages...)
		}
	}
	if len(messages) > 0 {
		return nil, &ValidationError{Messages: messages}
	}

	id, err := s.alloc.Next(ctx, dataType)
	if err != nil {
		return nil, err
	}

	collection := parentPath
	if collection == "" {
		collection = s.scope.EntityCollectionPath(dataType)
	}
	path := docstore.JoinPath(collection, id)

	keyFields := joinKeyFields(resolved, merged)
	merged[FieldDataType] = dataType
	merged[FieldID] = id
	merged[FieldKeyFields] = keyFields

	if err := s.store.Create(ctx, path, merged); err != nil {
		return nil, fmt.Errorf("write entity %q: %w", id, err)
	}
	if err := s.lookup.Put(ctx, id, path); err != nil {
		return nil, err
	}

	return &Blob{
		svc:       s,
		DataType:  dataType,
		ID:        id,
		Path:      path,
		KeyFields: keyFields,
		Fields:    merged,
		Exists:    true,
	}, nil
}

// GetByPath loads the entity stored at path, without needing its ID.
func (s *Service) GetByPath(ctx context.Context, path string) (*Blob, error) {
	fields, ok, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return s.fromDoc(path, fields), nil
}

// GetByID resolves id through the lookup index and loads the entity at the
// registered path. A missing index entry fails with ErrNoIndexEntry; an
// entry pointing at a path with no document fails with ErrStaleIndex — the
// two outcomes are distinct so callers can branch on them.
func (s *Service) GetByID(ctx context.Context, id string) (*Blob, error) {
	path, ok, err := s.lookup.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoIndexEntry, id)
	}

	fields, ok, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warn("stale lookup entry",
			"id", id,
			"path", path,
		)
		return nil, fmt.Errorf("%w: %q -> %s", ErrStaleIndex, id, path)
	}
	return s.fromDoc(path, fields), nil
}

// Update merges fields into the live attribute set, re-validates the
// required and key fields, and writes the document back. The base fields
// are not writable: keyFields is write-once and the ID and type bind the
// document to its index entry and schema.
func (b *Blob) Update(ctx context.Context, fields map[string]any) error {
	for name, v := range fields {
		if name == FieldDataType || name == FieldID || name == FieldKeyFields {
			continue
		}
		b.Fields[name] = v
	}

	t, err := b.svc.registry.GetType(ctx, b.DataType)
	if err != nil {
		return err
	}
	resolved, err := b.svc.registry.ResolvedFields(ctx, t, true)
	if err != nil {
		return err
	}

	var messages []string
	for _, f := range sortedFields(resolved) {
		if !f.Required && !f.IsKeyField {
			continue
		}
		if res := f.Validate(b.Fields[f.Name]); !res.Valid {
			messages = append(messages, res.Messages...)
		}
	}
	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}

	if err := b.svc.store.Set(ctx, b.Path, b.Fields); err != nil {
		return fmt.Errorf("write entity %q: %w", b.identifier(), err)
	}
	return nil
}

// DeleteResult reports the outcome of a cascading delete.
type DeleteResult struct {
	// Status is StatusSuccess only when the node and all descendants are gone.
	Status Status

	// Message is a human-readable summary, naming failed descendants.
	Message string

	// Deleted lists the descendants removed, as IDs where known.
	Deleted []string

	// Failed lists the descendants that could not be removed.
	Failed []string
}

// Delete removes the entity, depth-first through every child collection.
//
// The operation is all-or-nothing at this node: the entity's own document
// and its lookup entry are removed only after every descendant delete
// succeeded. On partial failure the node is left intact and the result
// names the descendants that failed, so the caller can retry just those.
// Descendants already deleted deeper in the tree are not rolled back.
func (b *Blob) Delete(ctx context.Context) (DeleteResult, error) {
	res := DeleteResult{Status: StatusSuccess}

	collections, err := b.svc.store.ListChildCollections(ctx, b.Path)
	if err != nil {
		res.Status = StatusFailed
		res.Message = "failed to list child collections"
		return res, err
	}

	for _, collection := range collections {
		docs, err := b.svc.store.ListDocuments(ctx, docstore.JoinPath(b.Path, collection))
		if err != nil {
			res.Status = StatusFailed
			res.Message = fmt.Sprintf("failed to list children in %q", collection)
			return res, err
		}
		for _, doc := range docs {
			child := b.svc.fromDoc(doc.Path, doc.Fields)
			childRes, err := child.Delete(ctx)
			res.Deleted = append(res.Deleted, childRes.Deleted...)
			res.Failed = append(res.Failed, childRes.Failed...)
			if err != nil || childRes.Status == StatusFailed {
				if err != nil {
					b.svc.logger.Warn("child delete failed",
						"child", child.identifier(),
						"error", err,
					)
				}
				if !contains(res.Failed, child.identifier()) {
					res.Failed = append(res.Failed, child.identifier())
				}
				continue
			}
			res.Deleted = append(res.Deleted, child.identifier())
		}
	}

	if len(res.Failed) > 0 {
		res.Status = StatusFailed
		res.Message = fmt.Sprintf("%d descendants failed to delete: %s", len(res.Failed), strings.Join(res.Failed, ", "))
		return res, nil
	}

	if err := b.svc.store.Delete(ctx, b.Path); err != nil {
		res.Status = StatusFailed
		res.Failed = append(res.Failed, b.identifier())
		res.Message = fmt.Sprintf("failed to delete %s", b.identifier())
		return res, nil
	}
	b.Exists = false

	// Index removal is best-effort: the document is already gone, so a
	// failure here leaves a stale entry for the stream handler to retry.
	if b.ID != "" {
		if _, err := b.svc.lookup.Remove(ctx, b.ID); err != nil {
			b.svc.logger.Warn("failed to remove lookup entry",
				"id", b.ID,
				"error", err,
			)
		}
	}

	res.Message = fmt.Sprintf("deleted %s and %d descendants", b.identifier(), len(res.Deleted))
	return res, nil
}

// Materialize recursively replaces every group field with the actual child
// documents: an array when the group's type is a list type, a single nested
// map otherwise. The result is a fully denormalized snapshot of the entity
// and all descendants — one store round trip per descendant document, with
// no pagination or depth limit.
func (b *Blob) Materialize(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any, len(b.Fields))
	for name, v := range b.Fields {
		out[name] = v
	}

	t, err := b.svc.registry.GetType(ctx, b.DataType)
	if err != nil {
		return nil, err
	}
	resolved, err := b.svc.registry.ResolvedFields(ctx, t, true)
	if err != nil {
		return nil, err
	}

	for _, f := range sortedFields(resolved) {
		if f.Type != schema.TypeGroup {
			continue
		}

		childType, err := b.svc.registry.GetType(ctx, f.EffectiveGroupName())
		if err != nil {
			return nil, err
		}

		docs, err := b.svc.store.ListDocuments(ctx, docstore.JoinPath(b.Path, f.Name))
		if err != nil {
			return nil, err
		}

		children := make([]map[string]any, 0, len(docs))
		for _, doc := range docs {
			child := b.svc.fromDoc(doc.Path, doc.Fields)
			m, err := child.Materialize(ctx)
			if err != nil {
				return nil, err
			}
			children = append(children, m)
		}

		if childType.IsList {
			out[f.Name] = children
		} else if len(children) > 0 {
			out[f.Name] = children[0]
		}
	}

	return out, nil
}

// fromDoc builds a Blob from a stored document.
func (s *Service) fromDoc(path string, fields docstore.Fields) *Blob {
	dataType, _ := fields[FieldDataType].(string)
	id, _ := fields[FieldID].(string)
	keyFields, _ := fields[FieldKeyFields].(string)
	return &Blob{
		svc:       s,
		DataType:  dataType,
		ID:        id,
		Path:      path,
		KeyFields: keyFields,
		Fields:    fields,
		Exists:    true,
	}
}

// identifier names the blob in results and logs: the ID when one was
// allocated, otherwise the path.
func (b *Blob) identifier() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Path
}

// joinKeyFields builds the pipe-joined identity string from the key fields,
// in field name order for determinism.
func joinKeyFields(resolved map[string]schema.Field, values docstore.Fields) string {
	var parts []string
	for _, f := range sortedFields(resolved) {
		if !f.IsKeyField {
			continue
		}
		parts = append(parts, fmt.Sprint(values[f.Name]))
	}
	return strings.Join(parts, "|")
}

// sortedFields returns the fields of a resolved schema in name order.
func sortedFields(resolved map[string]schema.Field) []schema.Field {
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]schema.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, resolved[name])
	}
	return fields
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

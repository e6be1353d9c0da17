package datanum

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/verdantio/canopy/docstore"
	"github.com/verdantio/canopy/internal/shard"
)

// Lookup is the secondary index mapping allocated IDs to document paths.
//
// Entries are sharded into sub-collections by the ID's type prefix so a
// lookup for one type never scans another type's entries. The index is a
// convenience layer, not a source of truth: the document at the stored
// path is authoritative and an entry may lag or point at a path whose
// document is gone.
type Lookup struct {
	store  docstore.Store
	scope  docstore.Scope
	logger *slog.Logger
}

// NewLookup creates a Lookup for one scope.
func NewLookup(store docstore.Store, scope docstore.Scope, logger *slog.Logger) *Lookup {
	scope.Validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{store: store, scope: scope, logger: logger}
}

// ShardOf returns the sub-collection that stores the entry for id.
func (l *Lookup) ShardOf(id string) string {
	return shard.Name(id, l.scope.DefaultShard)
}

// Put upserts the mapping from id to path. An existing entry is silently
// overwritten: last writer wins, accepted because the document itself is
// the source of truth.
func (l *Lookup) Put(ctx context.Context, id, path string) error {
	entry := docstore.Fields{
		"dataNumberLookup": id,
		"path":             path,
	}
	if err := l.store.Set(ctx, l.entryPath(id), entry); err != nil {
		return fmt.Errorf("save lookup entry %q: %w", id, err)
	}
	return nil
}

// Get returns the path registered for id. The bool reports whether an
// entry exists.
func (l *Lookup) Get(ctx context.Context, id string) (string, bool, error) {
	fields, ok, err := l.store.Get(ctx, l.entryPath(id))
	if err != nil {
		return "", false, fmt.Errorf("load lookup entry %q: %w", id, err)
	}
	if !ok {
		return "", false, nil
	}
	path, _ := fields["path"].(string)
	return path, true, nil
}

// Remove deletes the entry for id, reporting whether it existed. A missing
// entry is a successful no-op, which makes the delete protocol's index step
// safe to retry.
func (l *Lookup) Remove(ctx context.Context, id string) (bool, error) {
	_, ok, err := l.store.Get(ctx, l.entryPath(id))
	if err != nil {
		return false, fmt.Errorf("load lookup entry %q: %w", id, err)
	}
	if !ok {
		return false, nil
	}
	if err := l.store.Delete(ctx, l.entryPath(id)); err != nil {
		return false, fmt.Errorf("delete lookup entry %q: %w", id, err)
	}
	return true, nil
}

// LoadFunc loads the document at a path on behalf of Resolve.
type LoadFunc func(ctx context.Context, path string) (docstore.Fields, bool, error)

// Resolve follows the entry for id and loads the document it points at.
// A missing entry, or an entry whose target document no longer exists,
// yields ok=false without an error; the stale case is logged and never
// auto-healed here.
func (l *Lookup) Resolve(ctx context.Context, id string, load LoadFunc) (docstore.Fields, string, bool, error) {
	path, ok, err := l.Get(ctx, id)
	if err != nil || !ok {
		return nil, "", false, err
	}

	fields, ok, err := load(ctx, path)
	if err != nil {
		return nil, "", false, err
	}
	if !ok {
		l.logger.Warn("stale lookup entry",
			"id", id,
			"path", path,
		)
		return nil, "", false, nil
	}
	return fields, path, true, nil
}

// IndexRoot returns the path root under which this scope's lookup shards
// live.
func (l *Lookup) IndexRoot() string {
	return docstore.JoinPath(l.scope.IndexCollection, l.scope.Tenant)
}

func (l *Lookup) entryPath(id string) string {
	return l.scope.IndexEntryPath(l.ShardOf(id), id)
}

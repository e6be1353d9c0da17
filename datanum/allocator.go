// Package datanum allocates type-prefixed entity IDs and maintains the
// sharded lookup index mapping each ID to its document path.
package datanum

import (
	"context"
	"fmt"
	"time"

	"github.com/verdantio/canopy/docstore"
)

// counterStart is the value a fresh counter holds before its first
// increment, so the first allocated number is 100.
const counterStart = 99

// Allocator produces a strictly increasing integer sequence per storage
// type, persisted as one counter document per type.
//
// There is no locking: two concurrent callers may race the read-modify-write
// and the 18-digit timestamp component in the returned ID exists to make
// collisions unlikely in practice. It is not a correctness guarantee.
type Allocator struct {
	store docstore.Store
	scope docstore.Scope
	now   func() time.Time
}

// NewAllocator creates an Allocator for one scope.
func NewAllocator(store docstore.Store, scope docstore.Scope) *Allocator {
	scope.Validate()
	return &Allocator{store: store, scope: scope, now: time.Now}
}

// Next increments the counter for typeName, creating it at the starting
// value on first use, and returns an ID of the literal form
// <typeName>-<18-digit-timestamp><counter>.
func (a *Allocator) Next(ctx context.Context, typeName string) (string, error) {
	path := a.scope.CounterPath(typeName)

	fields, ok, err := a.store.Get(ctx, path)
	if err != nil {
		return "", fmt.Errorf("load counter for %q: %w", typeName, err)
	}

	number := int64(counterStart)
	if ok {
		// A counter document with a missing or non-numeric value must not
		// restart the sequence below previously issued numbers.
		if n, parsed := asInt(fields["number"]); parsed {
			number = n
		}
	}
	number++

	err = a.store.Set(ctx, path, docstore.Fields{
		"storageName": typeName,
		"number":      number,
	})
	if err != nil {
		return "", fmt.Errorf("save counter for %q: %w", typeName, err)
	}

	return fmt.Sprintf("%s-%s%d", typeName, timestampComponent(a.now()), number), nil
}

// Current returns the counter value for typeName without side effects.
// The bool reports whether a counter document exists yet.
func (a *Allocator) Current(ctx context.Context, typeName string) (int64, bool, error) {
	fields, ok, err := a.store.Get(ctx, a.scope.CounterPath(typeName))
	if err != nil || !ok {
		return 0, false, err
	}
	n, _ := asInt(fields["number"])
	return n, true, nil
}

// BasePath returns the counter document path for typeName.
func (a *Allocator) BasePath(typeName string) string {
	return a.scope.CounterPath(typeName)
}

// timestampComponent renders an instant as a fixed-width, lexicographically
// sortable 18-digit string: yymmddHHMMSS plus microseconds.
func timestampComponent(t time.Time) string {
	return t.Format("060102150405") + fmt.Sprintf("%06d", t.Nanosecond()/1000)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

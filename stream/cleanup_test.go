package stream

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/verdantio/canopy/datanum"
	"github.com/verdantio/canopy/docstore"
	"github.com/verdantio/canopy/docstore/memory"
)

func newTestHandler() (*Handler, *datanum.Lookup) {
	store := memory.New()
	lookup := datanum.NewLookup(store, docstore.NewScope("acme", "inventory"), nil)
	return NewHandler(lookup, nil), lookup
}

func removeEvent(path, id string) events.DynamoDBEvent {
	return events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{
				EventID:   "event-1",
				EventName: "REMOVE",
				Change: events.DynamoDBStreamRecord{
					OldImage: map[string]events.DynamoDBAttributeValue{
						"pk":   events.NewStringAttribute(docstore.ParentPath(path)),
						"sk":   events.NewStringAttribute(docstore.LastSegment(path)),
						"path": events.NewStringAttribute(path),
						"fields": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
							"dataNumberLookup": events.NewStringAttribute(id),
							"name":             events.NewStringAttribute("bolt"),
						}),
					},
				},
			},
		},
	}
}

// --- HandleIndexCleanup Tests ---

func TestHandleIndexCleanup_RemovesOrphanedEntry(t *testing.T) {
	h, lookup := newTestHandler()
	ctx := context.Background()

	// The document is gone but its lookup entry survived an interrupted
	// delete.
	path := "Data/acme/inventory/Widget/Widget-100"
	if err := lookup.Put(ctx, "Widget-100", path); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if err := h.HandleIndexCleanup(ctx, removeEvent(path, "Widget-100")); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if _, ok, _ := lookup.Get(ctx, "Widget-100"); ok {
		t.Error("expected orphaned entry to be removed")
	}
}

func TestHandleIndexCleanup_LeavesRepointedEntry(t *testing.T) {
	h, lookup := newTestHandler()
	ctx := context.Background()

	// The entry was re-pointed at a new path after the old document went
	// away; the event for the old path must not remove it.
	newPath := "Data/acme/inventory/Other/Widget-100"
	if err := lookup.Put(ctx, "Widget-100", newPath); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	oldPath := "Data/acme/inventory/Widget/Widget-100"
	if err := h.HandleIndexCleanup(ctx, removeEvent(oldPath, "Widget-100")); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	registered, ok, _ := lookup.Get(ctx, "Widget-100")
	if !ok || registered != newPath {
		t.Errorf("expected re-pointed entry to survive, got ok=%v path=%q", ok, registered)
	}
}

func TestHandleIndexCleanup_IgnoresNonRemoveEvents(t *testing.T) {
	h, lookup := newTestHandler()
	ctx := context.Background()

	path := "Data/acme/inventory/Widget/Widget-100"
	lookup.Put(ctx, "Widget-100", path)

	event := removeEvent(path, "Widget-100")
	event.Records[0].EventName = "MODIFY"

	if err := h.HandleIndexCleanup(ctx, event); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if _, ok, _ := lookup.Get(ctx, "Widget-100"); !ok {
		t.Error("expected entry to survive a MODIFY event")
	}
}

func TestHandleIndexCleanup_IgnoresIndexEntryRemovals(t *testing.T) {
	h, lookup := newTestHandler()
	ctx := context.Background()

	// Removing an index entry itself streams a REMOVE whose image carries
	// the ID field; it must not cascade into another removal.
	lookup.Put(ctx, "Widget-100", "Data/acme/inventory/Widget/Widget-100")

	event := removeEvent("DataNumberLookup/acme/DNL_Widget/Widget-100", "Widget-100")

	if err := h.HandleIndexCleanup(ctx, event); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if _, ok, _ := lookup.Get(ctx, "Widget-100"); !ok {
		t.Error("expected live entry to survive an index-entry removal event")
	}
}

func TestHandleIndexCleanup_SkipsRecordsWithoutID(t *testing.T) {
	h, _ := newTestHandler()

	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{
				EventID:   "event-1",
				EventName: "REMOVE",
				Change: events.DynamoDBStreamRecord{
					OldImage: map[string]events.DynamoDBAttributeValue{
						"path": events.NewStringAttribute("Data/acme/inventory/Widget/Widget-100"),
					},
				},
			},
		},
	}

	if err := h.HandleIndexCleanup(context.Background(), event); err != nil {
		t.Errorf("expected records without an ID to be skipped, got %v", err)
	}
}

func TestHandleIndexCleanup_MissingEntryIsNoop(t *testing.T) {
	h, _ := newTestHandler()

	err := h.HandleIndexCleanup(context.Background(),
		removeEvent("Data/acme/inventory/Widget/Widget-100", "Widget-100"))
	if err != nil {
		t.Errorf("expected missing entry to be a no-op, got %v", err)
	}
}

// --- Attribute Helper Tests ---

func TestGetStringAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"path": events.NewStringAttribute("Data/acme/inventory/Widget/Widget-100"),
		"num":  events.NewNumberAttribute("42"),
	}

	if got := getStringAttr(image, "path"); got != "Data/acme/inventory/Widget/Widget-100" {
		t.Errorf("unexpected value %q", got)
	}
	if got := getStringAttr(image, "missing"); got != "" {
		t.Errorf("expected empty string for missing key, got %q", got)
	}
	if got := getStringAttr(image, "num"); got != "" {
		t.Errorf("expected empty string for non-string attribute, got %q", got)
	}
	if got := getStringAttr(nil, "path"); got != "" {
		t.Errorf("expected empty string for nil image, got %q", got)
	}
}

func TestGetFieldAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"fields": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"dataNumberLookup": events.NewStringAttribute("Widget-100"),
			"count":            events.NewNumberAttribute("3"),
		}),
	}

	if got := getFieldAttr(image, "dataNumberLookup"); got != "Widget-100" {
		t.Errorf("unexpected value %q", got)
	}
	if got := getFieldAttr(image, "count"); got != "" {
		t.Errorf("expected empty string for non-string field, got %q", got)
	}
	if got := getFieldAttr(map[string]events.DynamoDBAttributeValue{}, "dataNumberLookup"); got != "" {
		t.Errorf("expected empty string without a fields map, got %q", got)
	}
}

// Package stream provides a DynamoDB Streams handler that retries the
// index step of the entity delete protocol.
//
// Deleting an entity is a two-step protocol with no transaction: delete the
// document, then remove its lookup entry. When the second step was missed,
// the REMOVE event on the documents table still carries the entity's ID, so
// the handler can retry the removal. Entries that were re-pointed at a new
// path since (last writer wins) are left alone; stale entries from
// out-of-band deletions are likewise never healed here.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/verdantio/canopy/datanum"
)

// Handler processes DynamoDB stream events from the documents table.
type Handler struct {
	lookup *datanum.Lookup
	logger *slog.Logger
}

// NewHandler creates a stream handler for one scope's lookup index.
func NewHandler(lookup *datanum.Lookup, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{lookup: lookup, logger: logger}
}

// HandleIndexCleanup removes lookup entries left behind by interrupted
// deletes. Designed to be used as an AWS Lambda handler.
func (h *Handler) HandleIndexCleanup(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord handles a single stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "REMOVE" {
		return nil
	}

	path := getStringAttr(record.Change.OldImage, "path")
	id := getFieldAttr(record.Change.OldImage, "dataNumberLookup")
	if id == "" {
		return nil
	}

	// Lookup entry documents carry their own ID field; removing one must
	// not trigger another removal.
	if strings.HasPrefix(path, h.lookup.IndexRoot()+"/") {
		return nil
	}

	registered, ok, err := h.lookup.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load lookup entry: %w", err)
	}
	if !ok || registered != path {
		return nil
	}

	if _, err := h.lookup.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove lookup entry: %w", err)
	}

	h.logger.Info("removed lookup entry for deleted entity",
		"id", id,
		"path", path,
	)
	return nil
}

// getStringAttr extracts a top-level string attribute from a stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getFieldAttr extracts a string attribute from the nested fields map of a
// stream image.
func getFieldAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	fields, ok := image["fields"]
	if !ok || fields.DataType() != events.DataTypeMap {
		return ""
	}
	if v, ok := fields.Map()[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

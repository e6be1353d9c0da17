// Package mongo implements the document store contract on MongoDB.
//
// Every document lives in one collection, keyed by its full path (_id).
// The parent collection path, leaf collection name and owning document
// path are denormalized alongside the fields so that listing, queries and
// collection group queries are single indexed finds.
package mongo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/verdantio/canopy/docstore"
)

// Config holds connection configuration for the adapter.
type Config struct {
	// URI is the MongoDB connection string.
	// Default: "mongodb://localhost:27017"
	URI string

	// Database is the database name.
	// Default: "canopy"
	Database string

	// Collection is the collection holding all documents.
	// Default: "documents"
	Collection string

	// Timeout bounds the initial connect and ping.
	// Default: 30s
	Timeout time.Duration
}

// validate fills zero values with defaults.
func (c *Config) validate() {
	if c.URI == "" {
		c.URI = "mongodb://localhost:27017"
	}
	if c.Database == "" {
		c.Database = "canopy"
	}
	if c.Collection == "" {
		c.Collection = "documents"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Store is a MongoDB-backed docstore.Store.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials MongoDB, pings the primary and returns a Store.
func Connect(ctx context.Context, config Config) (*Store, error) {
	config.validate()

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return New(client, config), nil
}

// New creates a Store on an existing client.
func New(client *mongo.Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		coll:   client.Database(config.Database).Collection(config.Collection),
	}
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// record is the stored shape of one document.
type record struct {
	Path   string         `bson:"_id"`
	PK     string         `bson:"pk"`
	Coll   string         `bson:"coll"`
	Parent string         `bson:"parent,omitempty"`
	Fields map[string]any `bson:"fields"`
}

func newRecord(path string, fields docstore.Fields) record {
	collectionPath := docstore.ParentPath(path)
	return record{
		Path:   path,
		PK:     collectionPath,
		Coll:   docstore.LastSegment(collectionPath),
		Parent: docstore.ParentPath(collectionPath),
		Fields: fields,
	}
}

// Get returns the document at path.
func (s *Store) Get(ctx context.Context, path string) (docstore.Fields, bool, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec.Fields, true, nil
}

// Create writes a new document, failing with docstore.ErrExists if one is
// already present at the path.
func (s *Store) Create(ctx context.Context, path string, fields docstore.Fields) error {
	_, err := s.coll.InsertOne(ctx, newRecord(path, fields))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", docstore.ErrExists, path)
	}
	return err
}

// Set writes the document at path, overwriting any existing content.
func (s *Store) Set(ctx context.Context, path string, fields docstore.Fields) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": path}, newRecord(path, fields),
		options.Replace().SetUpsert(true))
	return err
}

// Update merges partial fields into an existing document.
func (s *Store) Update(ctx context.Context, path string, fields docstore.Fields) error {
	set := bson.M{}
	for k, v := range fields {
		set["fields."+k] = v
	}
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": path}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	return nil
}

// Delete removes the document at path. Missing documents are a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": path})
	return err
}

// ListDocuments returns every document directly inside a collection.
func (s *Store) ListDocuments(ctx context.Context, collectionPath string) ([]docstore.Doc, error) {
	return s.findDocs(ctx, bson.M{"pk": collectionPath})
}

// ListChildCollections returns the distinct collection names under a document.
func (s *Store) ListChildCollections(ctx context.Context, docPath string) ([]string, error) {
	raw, err := s.coll.Distinct(ctx, "coll", bson.M{"parent": docPath})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Query returns the documents in a collection matching every filter.
func (s *Store) Query(ctx context.Context, collectionPath string, filters []docstore.Filter) ([]docstore.Doc, error) {
	query := bson.M{"pk": collectionPath}
	if err := applyFilters(query, filters); err != nil {
		return nil, err
	}
	return s.findDocs(ctx, query)
}

// CollectionGroupQuery returns matching documents from every collection
// sharing the given name, regardless of ancestor path.
func (s *Store) CollectionGroupQuery(ctx context.Context, collectionName string, filters []docstore.Filter) ([]docstore.Doc, error) {
	query := bson.M{"coll": collectionName}
	if err := applyFilters(query, filters); err != nil {
		return nil, err
	}
	return s.findDocs(ctx, query)
}

func (s *Store) findDocs(ctx context.Context, query bson.M) ([]docstore.Doc, error) {
	cursor, err := s.coll.Find(ctx, query, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []docstore.Doc
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Doc{Path: rec.Path, Fields: rec.Fields})
	}
	return docs, cursor.Err()
}

var filterOps = map[string]string{
	"==": "$eq",
	"<":  "$lt",
	"<=": "$lte",
	">":  "$gt",
	">=": "$gte",
}

func applyFilters(query bson.M, filters []docstore.Filter) error {
	for _, f := range filters {
		op, ok := filterOps[f.Op]
		if !ok {
			return fmt.Errorf("%w: %q", docstore.ErrBadFilter, f.Op)
		}
		query["fields."+f.Field] = bson.M{op: f.Value}
	}
	return nil
}

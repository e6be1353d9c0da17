// Package dynamo implements the document store contract on DynamoDB.
//
// Every document lives in one table, keyed by its parent collection path
// (pk) and document ID (sk). Two GSIs serve the non-path access patterns:
// coll-index (leaf collection name) backs collection group queries, and
// parent-index (owning document path) backs child collection listing.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/verdantio/canopy/docstore"
)

// GSI names on the documents table.
const (
	CollIndex   = "coll-index"
	ParentIndex = "parent-index"
)

// Config holds configuration for the adapter.
type Config struct {
	// Table is the DynamoDB table holding all documents.
	// Default: "canopy_documents"
	Table string
}

// validate fills zero values with defaults.
func (c *Config) validate() {
	if c.Table == "" {
		c.Table = "canopy_documents"
	}
}

// Store is a DynamoDB-backed docstore.Store.
type Store struct {
	client *dynamodb.Client
	config Config
}

// New creates a Store on an existing DynamoDB client.
func New(client *dynamodb.Client, config Config) *Store {
	config.validate()
	return &Store{client: client, config: config}
}

// Get returns the document at path.
func (s *Store) Get(ctx context.Context, path string) (docstore.Fields, bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.Table),
		Key:       keyOf(path),
	})
	if err != nil {
		return nil, false, err
	}
	if result.Item == nil {
		return nil, false, nil
	}
	fields, err := unmarshalFields(result.Item)
	if err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

// Create writes a new document, failing with docstore.ErrExists if one is
// already present at the path.
func (s *Store) Create(ctx context.Context, path string, fields docstore.Fields) error {
	item, err := s.marshalItem(path, fields)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.config.Table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %s", docstore.ErrExists, path)
	}
	return err
}

// Set writes the document at path, overwriting any existing content.
func (s *Store) Set(ctx context.Context, path string, fields docstore.Fields) error {
	item, err := s.marshalItem(path, fields)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.Table),
		Item:      item,
	})
	return err
}

// Update merges partial fields into an existing document.
func (s *Store) Update(ctx context.Context, path string, fields docstore.Fields) error {
	if len(fields) == 0 {
		return nil
	}

	var setClauses []string
	exprNames := map[string]string{"#fields": "fields"}
	exprValues := map[string]types.AttributeValue{}

	i := 0
	for k, v := range fields {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal field %q: %w", k, err)
		}
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		exprNames[nameKey] = k
		exprValues[valueKey] = av
		setClauses = append(setClauses, fmt.Sprintf("#fields.%s = %s", nameKey, valueKey))
		i++
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.Table),
		Key:                       keyOf(path),
		UpdateExpression:          aws.String("SET " + strings.Join(setClauses, ", ")),
		ConditionExpression:       aws.String("attribute_exists(pk)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	return err
}

// Delete removes the document at path. Missing documents are a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.Table),
		Key:       keyOf(path),
	})
	return err
}

// ListDocuments returns every document directly inside a collection.
func (s *Store) ListDocuments(ctx context.Context, collectionPath string) ([]docstore.Doc, error) {
	return s.queryDocs(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.Table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: collectionPath},
		},
	})
}

// ListChildCollections returns the distinct collection names under a document.
func (s *Store) ListChildCollections(ctx context.Context, docPath string) ([]string, error) {
	seen := make(map[string]bool)

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.Table),
		IndexName:              aws.String(ParentIndex),
		KeyConditionExpression: aws.String("#parent = :parent"),
		ExpressionAttributeNames: map[string]string{
			"#parent": "parent",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":parent": &types.AttributeValueMemberS{Value: docPath},
		},
		ProjectionExpression: aws.String("coll"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if v, ok := item["coll"].(*types.AttributeValueMemberS); ok {
				seen[v.Value] = true
			}
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
func (s *Store) Query(ctx context.Context, collectionPath string, filters []docstore.Filter) ([]docstore.Doc, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.Table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: collectionPath},
		},
	}
	if err := applyFilters(input, filters); err != nil {
		return nil, err
	}
	return s.queryDocs(ctx, input)
}

// CollectionGroupQuery returns matching documents from every collection
// sharing the given name, regardless of ancestor path.
func (s *Store) CollectionGroupQuery(ctx context.Context, collectionName string, filters []docstore.Filter) ([]docstore.Doc, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.Table),
		IndexName:              aws.String(CollIndex),
		KeyConditionExpression: aws.String("coll = :coll"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":coll": &types.AttributeValueMemberS{Value: collectionName},
		},
	}
	if err := applyFilters(input, filters); err != nil {
		return nil, err
	}
	return s.queryDocs(ctx, input)
}

// queryDocs paginates a query and unmarshals every item into a Doc.
func (s *Store) queryDocs(ctx context.Context, input *dynamodb.QueryInput) ([]docstore.Doc, error) {
	var docs []docstore.Doc

	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			path := ""
			if v, ok := item["path"].(*types.AttributeValueMemberS); ok {
				path = v.Value
			}
			fields, err := unmarshalFields(item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, docstore.Doc{Path: path, Fields: fields})
		}
	}
	return docs, nil
}

// applyFilters appends a filter expression over the nested fields map.
func applyFilters(input *dynamodb.QueryInput, filters []docstore.Filter) error {
	if len(filters) == 0 {
		return nil
	}

	if input.ExpressionAttributeNames == nil {
		input.ExpressionAttributeNames = map[string]string{}
	}
	input.ExpressionAttributeNames["#fields"] = "fields"

	var clauses []string
	for i, f := range filters {
		op, ok := filterOps[f.Op]
		if !ok {
			return fmt.Errorf("%w: %q", docstore.ErrBadFilter, f.Op)
		}
		av, err := attributevalue.Marshal(f.Value)
		if err != nil {
			return fmt.Errorf("marshal filter value for %q: %w", f.Field, err)
		}
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":f%d", i)
		input.ExpressionAttributeNames[nameKey] = f.Field
		input.ExpressionAttributeValues[valueKey] = av
		clauses = append(clauses, fmt.Sprintf("#fields.%s %s %s", nameKey, op, valueKey))
	}

	input.FilterExpression = aws.String(strings.Join(clauses, " AND "))
	return nil
}

var filterOps = map[string]string{
	"==": "=",
	"<":  "<",
	"<=": "<=",
	">":  ">",
	">=": ">=",
}

// keyOf splits a document path into the table's pk/sk pair.
func keyOf(path string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: docstore.ParentPath(path)},
		"sk": &types.AttributeValueMemberS{Value: docstore.LastSegment(path)},
	}
}

// marshalItem builds the full table item for a document.
func (s *Store) marshalItem(path string, fields docstore.Fields) (map[string]types.AttributeValue, error) {
	fieldsAttr, err := attributevalue.MarshalMap(map[string]any(fields))
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", path, err)
	}

	collectionPath := docstore.ParentPath(path)
	item := map[string]types.AttributeValue{
		"pk":     &types.AttributeValueMemberS{Value: collectionPath},
		"sk":     &types.AttributeValueMemberS{Value: docstore.LastSegment(path)},
		"path":   &types.AttributeValueMemberS{Value: path},
		"coll":   &types.AttributeValueMemberS{Value: docstore.LastSegment(collectionPath)},
		"fields": &types.AttributeValueMemberM{Value: fieldsAttr},
	}

	// parent is sparse: only nested collections have an owning document,
	// which keeps root documents out of parent-index.
	if parentDoc := docstore.ParentPath(collectionPath); parentDoc != "" {
		item["parent"] = &types.AttributeValueMemberS{Value: parentDoc}
	}
	return item, nil
}

// unmarshalFields extracts the document's attribute map from a table item.
func unmarshalFields(item map[string]types.AttributeValue) (docstore.Fields, error) {
	raw, ok := item["fields"].(*types.AttributeValueMemberM)
	if !ok {
		return docstore.Fields{}, nil
	}
	var fields map[string]any
	if err := attributevalue.UnmarshalMap(raw.Value, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal document fields: %w", err)
	}
	return fields, nil
}

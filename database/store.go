package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/arangodb/shared"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/vulntrack/vtrack-backend/model"
)

// PutMode selects the write condition of a Put.
type PutMode int

const (
	// PutOverwrite replaces any existing row under the same composite key.
	PutOverwrite PutMode = iota
	// PutCreateOnly fails with ErrAlreadyExists if the composite key is taken.
	PutCreateOnly
)

// Write is one ordered element of a batch write.
type Write struct {
	Item model.Item
	Mode PutMode
}

// ItemStore is the narrow storage boundary of the historic log: point
// reads by composite key, range queries by partition + sort-key prefix,
// the inverted variant of the same, conditional single writes, and
// ordered batch writes. Implementations must honor the caller context
// on every call and must never return a partial query result.
type ItemStore interface {
	Get(ctx context.Context, key model.PrimaryKey) (model.Item, error)
	Query(ctx context.Context, partitionKey, sortPrefix string) ([]model.Item, error)
	QueryInverted(ctx context.Context, sortKey, partitionPrefix string) ([]model.Item, error)
	Put(ctx context.Context, item model.Item, mode PutMode) error
	BatchPut(ctx context.Context, writes []Write) error
	Delete(ctx context.Context, key model.PrimaryKey) error
}

// ArangoStore implements ItemStore on the vms collection.
type ArangoStore struct {
	db  DBConnection
	log *zap.SugaredLogger
}

// NewArangoStore wraps an initialized connection.
func NewArangoStore(db DBConnection) *ArangoStore {
	return &ArangoStore{db: db, log: logger.Sugar()}
}

// DocumentKey derives the ArangoDB _key for a composite key. Facet keys
// contain characters ArangoDB rejects, so the document key is the
// sha256 of the pair; determinism keeps writes idempotent.
func DocumentKey(key model.PrimaryKey) string {
	sum := sha256.Sum256([]byte(key.PartitionKey + "|" + key.SortKey))
	return hex.EncodeToString(sum[:])
}

func toDocument(item model.Item) map[string]any {
	doc := make(map[string]any, len(item.Attributes)+3)
	for k, v := range item.Attributes {
		doc[k] = v
	}
	doc["_key"] = DocumentKey(item.Key())
	doc["pk"] = item.PK
	doc["sk"] = item.SK
	return doc
}

func fromDocument(doc map[string]any) model.Item {
	item := model.Item{Attributes: make(map[string]any, len(doc))}
	for k, v := range doc {
		switch k {
		case "_key", "_id", "_rev":
		case "pk":
			item.PK, _ = v.(string)
		case "sk":
			item.SK, _ = v.(string)
		default:
			item.Attributes[k] = v
		}
	}
	return item
}

// Get performs a point read by composite key.
func (s *ArangoStore) Get(ctx context.Context, key model.PrimaryKey) (model.Item, error) {
	query := `
		FOR doc IN vms
			FILTER doc.pk == @pk AND doc.sk == @sk
			LIMIT 1
			RETURN doc
	`
	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"pk": key.PartitionKey, "sk": key.SortKey},
	})
	if err != nil {
		s.log.Errorw("point read failed", "pk", key.PartitionKey, "sk", key.SortKey, "error", err)
		return model.Item{}, fmt.Errorf("get %s/%s: %w: %v", key.PartitionKey, key.SortKey, model.ErrStoreUnavailable, err)
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return model.Item{}, fmt.Errorf("get %s/%s: %w", key.PartitionKey, key.SortKey, model.ErrItemNotFound)
	}

	var doc map[string]any
	if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
		s.log.Errorw("point read decode failed", "pk", key.PartitionKey, "error", err)
		return model.Item{}, fmt.Errorf("get %s/%s: %w: %v", key.PartitionKey, key.SortKey, model.ErrStoreUnavailable, err)
	}
	return fromDocument(doc), nil
}

// Query returns every row of a partition whose sort key starts with the
// given prefix, in sort-key order. Pages are consumed internally; a
// failure or an expired context mid-pagination discards everything
// already read.
func (s *ArangoStore) Query(ctx context.Context, partitionKey, sortPrefix string) ([]model.Item, error) {
	query := `
		FOR doc IN vms
			FILTER doc.pk == @pk AND STARTS_WITH(doc.sk, @prefix)
			SORT doc.sk ASC
			RETURN doc
	`
	return s.queryItems(ctx, query, map[string]interface{}{"pk": partitionKey, "prefix": sortPrefix})
}

// QueryInverted anchors on the sort key instead: every row with the
// exact sort key whose partition key starts with the given prefix.
func (s *ArangoStore) QueryInverted(ctx context.Context, sortKey, partitionPrefix string) ([]model.Item, error) {
	query := `
		FOR doc IN vms
			FILTER doc.sk == @sk AND STARTS_WITH(doc.pk, @prefix)
			SORT doc.pk ASC
			RETURN doc
	`
	return s.queryItems(ctx, query, map[string]interface{}{"sk": sortKey, "prefix": partitionPrefix})
}

func (s *ArangoStore) queryItems(ctx context.Context, query string, bindVars map[string]interface{}) ([]model.Item, error) {
	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BatchSize: 512,
		BindVars:  bindVars,
	})
	if err != nil {
		s.log.Errorw("range query failed", "bind", bindVars, "error", err)
		return nil, fmt.Errorf("query: %w: %v", model.ErrStoreUnavailable, err)
	}
	defer cursor.Close()

	var items []model.Item
	for cursor.HasMore() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("query: %w: %v", model.ErrStoreUnavailable, err)
		}
		var doc map[string]any
		if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
			s.log.Errorw("range query page failed", "bind", bindVars, "error", err)
			return nil, fmt.Errorf("query: %w: %v", model.ErrStoreUnavailable, err)
		}
		items = append(items, fromDocument(doc))
	}
	return items, nil
}

// Put writes one row under its composite key.
func (s *ArangoStore) Put(ctx context.Context, item model.Item, mode PutMode) error {
	if mode == PutCreateOnly {
		_, err := s.db.Collections[CollectionVMS].CreateDocument(ctx, toDocument(item))
		if err != nil {
			if shared.IsArangoErrorWithCode(err, http.StatusConflict) {
				return fmt.Errorf("put %s/%s: %w", item.PK, item.SK, model.ErrAlreadyExists)
			}
			s.log.Errorw("conditional create failed", "pk", item.PK, "sk", item.SK, "error", err)
			return fmt.Errorf("put %s/%s: %w: %v", item.PK, item.SK, model.ErrStoreUnavailable, err)
		}
		return nil
	}

	query := `INSERT @doc IN vms OPTIONS { overwriteMode: "replace" }`
	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"doc": toDocument(item)},
	})
	if err != nil {
		s.log.Errorw("overwrite failed", "pk", item.PK, "sk", item.SK, "error", err)
		return fmt.Errorf("put %s/%s: %w: %v", item.PK, item.SK, model.ErrStoreUnavailable, err)
	}
	cursor.Close()
	return nil
}

// BatchPut applies the writes strictly in order. The store has no
// multi-document atomicity across these writes, so on any failure the
// whole batch is retried from the top; create-only writes that already
// landed are counted as applied, which keeps the retry idempotent.
func (s *ArangoStore) BatchPut(ctx context.Context, writes []Write) error {
	op := func() error {
		for _, w := range writes {
			err := s.Put(ctx, w.Item, w.Mode)
			if err != nil && !(w.Mode == PutCreateOnly && isAlreadyExists(err)) {
				return err
			}
		}
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		s.log.Errorw("batch write failed after retries", "writes", len(writes), "error", err)
		return err
	}
	return nil
}

func isAlreadyExists(err error) bool {
	return errors.Is(err, model.ErrAlreadyExists)
}

// Delete hard-removes a row. Reserved for auxiliary non-historic rows;
// historic records are never deleted, entities end with a terminal
// DELETED state record instead.
func (s *ArangoStore) Delete(ctx context.Context, key model.PrimaryKey) error {
	query := `
		FOR doc IN vms
			FILTER doc.pk == @pk AND doc.sk == @sk
			REMOVE doc IN vms
	`
	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"pk": key.PartitionKey, "sk": key.SortKey},
	})
	if err != nil {
		s.log.Errorw("delete failed", "pk", key.PartitionKey, "sk", key.SortKey, "error", err)
		return fmt.Errorf("delete %s/%s: %w: %v", key.PartitionKey, key.SortKey, model.ErrStoreUnavailable, err)
	}
	cursor.Close()
	return nil
}

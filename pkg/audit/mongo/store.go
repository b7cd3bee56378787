// Package mongo stores audit documents in a MongoDB-compatible document store
// (MongoDB or Azure Cosmos DB for MongoDB), partitioned by request id.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fastorc/requestshub/pkg/audit"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ audit.Store = (*Store)(nil)

const (
	DefaultDatabase   = "fastorc"
	DefaultCollection = "audit_events"
)

// Store is an audit.Store over one collection.
type Store struct {
	client     *mongod.Client
	collection *mongod.Collection
	logger     *slog.Logger
}

// Connector returns an audit.Connector opening database/collection on the
// server named by the connection string.
func Connector(database, collection string, logger *slog.Logger) audit.Connector {
	if database == "" {
		database = DefaultDatabase
	}

	if collection == "" {
		collection = DefaultCollection
	}

	return func(ctx context.Context, connectionString string) (audit.Store, error) {
		client, err := mongod.Connect(options.Client().ApplyURI(connectionString))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to document store: %w", err)
		}

		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)

			return nil, fmt.Errorf("failed to ping document store: %w", err)
		}

		store := New(client, client.Database(database).Collection(collection), logger)

		if err := store.Migrate(ctx); err != nil {
			_ = client.Disconnect(ctx)

			return nil, err
		}

		return store, nil
	}
}

// New wraps an open client and collection.
func New(client *mongod.Client, collection *mongod.Collection, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{client: client, collection: collection, logger: logger}
}

// Migrate creates the per-request ordering index.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongod.IndexModel{
		Keys: bson.D{
			{Key: "requestId", Value: 1},
			{Key: "timestamp", Value: 1},
			{Key: "_id", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit index: %w", err)
	}

	s.logger.DebugContext(ctx, "Audit collection indexes ensured", "collection", s.collection.Name())

	return nil
}

// Upsert replaces the document with e.ID, inserting it when absent.
func (s *Store) Upsert(ctx context.Context, e *audit.Event) error {
	_, err := s.collection.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: e.ID}, {Key: "requestId", Value: e.RequestID}},
		e,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert audit event %s: %w", e.ID, err)
	}

	return nil
}

// Query pages through the events of one request using keyset pagination on
// (timestamp, _id). The request id is the partition key, so every query is
// partition scoped on this backend regardless of q.PartitionScoped.
func (s *Store) Query(ctx context.Context, q audit.Query) (audit.Page, error) {
	q = q.Normalize()

	cursor, err := audit.DecodeCursor(q.ContinuationToken)
	if err != nil {
		return audit.Page{}, err
	}

	direction := 1
	op := "$gt"

	if q.Order == audit.OrderDesc {
		direction = -1
		op = "$lt"
	}

	filter := bson.D{{Key: "requestId", Value: q.RequestID}}
	if cursor != nil {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "timestamp", Value: bson.D{{Key: op, Value: cursor.Timestamp}}}},
			bson.D{
				{Key: "timestamp", Value: cursor.Timestamp},
				{Key: "_id", Value: bson.D{{Key: op, Value: cursor.ID}}},
			},
		}})
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: direction}, {Key: "_id", Value: direction}}).
		SetLimit(int64(q.Limit + 1))

	cur, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return audit.Page{}, fmt.Errorf("failed to query audit events: %w", err)
	}

	var events []audit.Event
	if err := cur.All(ctx, &events); err != nil {
		return audit.Page{}, fmt.Errorf("failed to decode audit events: %w", err)
	}

	page := audit.Page{Events: events}
	if page.Events == nil {
		page.Events = []audit.Event{}
	}

	if len(page.Events) > q.Limit {
		page.Events = page.Events[:q.Limit]
		page.ContinuationToken = audit.EncodeCursor(&page.Events[q.Limit-1])
	}

	page.Count = len(page.Events)

	return page, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

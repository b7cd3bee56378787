// Package redis stores audit documents in Redis: one JSON string per document
// plus a sorted set per request indexing its document ids by timestamp.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fastorc/requestshub/pkg/audit"
	goredis "github.com/redis/go-redis/v9"
)

var _ audit.Store = (*Store)(nil)

const defaultPrefix = "audit"

// Store is an audit.Store backed by Redis.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// New wraps an existing client. The caller keeps ownership of the client
// unless Close is called.
func New(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Store{client: client, prefix: prefix}
}

// Connect satisfies audit.Connector for "redis://" connection strings.
func Connect(ctx context.Context, connectionString string) (audit.Store, error) {
	opts, err := goredis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return New(client, defaultPrefix), nil
}

func (s *Store) docKey(id string) string {
	return s.prefix + ":event:" + id
}

func (s *Store) indexKey(requestID string) string {
	return s.prefix + ":request:" + requestID
}

// Upsert overwrites the document and (re)indexes it. Both writes run in one
// MULTI block so readers never see a dangling index entry.
func (s *Store) Upsert(ctx context.Context, e *audit.Event) error {
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(e.ID), doc, 0)
		pipe.ZAdd(ctx, s.indexKey(e.RequestID), goredis.Z{
			Score:  float64(e.Timestamp.UnixMilli()),
			Member: e.ID,
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert audit event %s: %w", e.ID, err)
	}

	return nil
}

func (s *Store) Query(ctx context.Context, q audit.Query) (audit.Page, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(q.RequestID), 0, -1).Result()
	if err != nil {
		return audit.Page{}, fmt.Errorf("failed to read audit index: %w", err)
	}

	if len(ids) == 0 {
		return audit.Paginate(nil, q)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(id)
	}

	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return audit.Page{}, fmt.Errorf("failed to read audit events: %w", err)
	}

	events := make([]audit.Event, 0, len(docs))

	for _, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			continue
		}

		var e audit.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return audit.Page{}, fmt.Errorf("failed to decode audit event: %w", err)
		}

		events = append(events, e)
	}

	return audit.Paginate(events, q)
}

func (s *Store) Close(_ context.Context) error {
	err := s.client.Close()
	if errors.Is(err, goredis.ErrClosed) {
		return nil
	}

	return err
}

package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fastorc/requestshub/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 500 * time.Millisecond
	DefaultInitTimeout = 10 * time.Second
)

// Connector opens a Store from a connection string.
type Connector func(ctx context.Context, connectionString string) (Store, error)

// SecretResolver looks up a named secret, typically in a vault.
type SecretResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Config holds the audit-store settings.
type Config struct {
	// ConnectionString is used as-is when set.
	ConnectionString string
	// SecretName is looked up through the SecretResolver when
	// ConnectionString is empty.
	SecretName  string
	MaxAttempts int
	BackoffBase time.Duration
	// InitTimeout bounds one attempt at opening the store, secret lookup
	// included.
	InitTimeout time.Duration
}

// Client writes and reads audit events. Its store is a process-wide
// connection created on first use; every method degrades to a "not
// configured" outcome instead of failing when no store is available.
type Client struct {
	cfg     Config
	connect Connector
	secrets SecretResolver
	schemas *Schemas
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	suffix  func() string

	init       singleflight.Group
	mu         sync.Mutex
	store      Store
	resolved   bool
	connString string
}

// Option configures a Client.
type Option func(*Client)

func WithSecretResolver(r SecretResolver) Option {
	return func(c *Client) { c.secrets = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithSchemas(s *Schemas) Option {
	return func(c *Client) { c.schemas = s }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithClock replaces the wall clock used for timestamps and fallback ids.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSleeper replaces the backoff sleep between write attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient returns a Client. No connection is made until the first call.
func NewClient(cfg Config, connect Connector, opts ...Option) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.BackoffBase < 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}

	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = DefaultInitTimeout
	}

	c := &Client{
		cfg:     cfg,
		connect: connect,
		logger:  slog.Default(),
		tracer:  otelhelper.Tracer("requestshub/audit"),
		now:     time.Now,
		sleep:   sleepContext,
		suffix: func() string {
			return uuid.New().String()[:8]
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.schemas == nil {
		c.schemas = NewSchemas()
	}

	return c
}

// NewClientWithStore returns a Client bound to an already open store.
func NewClientWithStore(cfg Config, store Store, opts ...Option) *Client {
	c := NewClient(cfg, nil, opts...)
	c.store = store
	c.resolved = true

	return c
}

// ensureStore returns the shared store, creating it on first use. Concurrent
// callers share one construction; each waits only until its own ctx is done.
func (c *Client) ensureStore(ctx context.Context) (Store, error) {
	if store := c.currentStore(); store != nil {
		return store, nil
	}

	ch := c.init.DoChan("store", func() (any, error) {
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.InitTimeout)
		defer cancel()

		return c.initStore(initCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.(Store), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNotConfigured, ctx.Err())
	}
}

func (c *Client) currentStore() Store {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store
}

// initStore runs inside the singleflight group, so at most one is in flight.
// The mutex only guards the fields; it is never held across I/O.
func (c *Client) initStore(ctx context.Context) (Store, error) {
	c.mu.Lock()
	store, resolved, connString := c.store, c.resolved, c.connString
	c.mu.Unlock()

	if store != nil {
		return store, nil
	}

	if !resolved {
		connString = c.resolveConnectionString(ctx)

		c.mu.Lock()
		c.resolved = true
		c.connString = connString
		c.mu.Unlock()
	}

	if connString == "" || c.connect == nil {
		return nil, ErrNotConfigured
	}

	store, err := c.connect(ctx, connString)
	if err != nil {
		c.logger.WarnContext(ctx, "Audit store initialization failed", "action", "store_init_failed", "error", err)

		return nil, fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}

	c.mu.Lock()
	c.store = store
	c.mu.Unlock()

	return store, nil
}

func (c *Client) resolveConnectionString(ctx context.Context) string {
	if c.cfg.ConnectionString != "" {
		return c.cfg.ConnectionString
	}

	if c.secrets == nil || c.cfg.SecretName == "" {
		return ""
	}

	value, err := c.secrets.Resolve(ctx, c.cfg.SecretName)
	if err != nil {
		c.logger.WarnContext(ctx, "Secret fetch failed", "action", "secret_fetch_failed", "secret", c.cfg.SecretName, "error", err)

		return ""
	}

	c.logger.InfoContext(ctx, "Fetched audit store connection string", "action", "secret_fetch", "secret", c.cfg.SecretName)

	return value
}

// Write upserts one event, retrying transient store failures with
// exponential backoff. It never returns an error: failures are reported in
// the Result and logged.
func (c *Client) Write(ctx context.Context, req WriteRequest) Result {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "audit.write",
		attribute.String(otelhelper.RequestIDKey, req.RequestID),
		attribute.String(otelhelper.EventTypeKey, string(req.EventType)),
	)
	defer span.End()

	logger := c.logger.With("requestId", req.RequestID, "eventType", req.EventType)

	if req.RequestID == "" || req.EventType == "" {
		logger.WarnContext(ctx, "Rejected audit event", "action", "audit_invalid_request")

		return Result{OK: false, Reason: "requestId and eventType are required"}
	}

	if err := c.schemas.Validate(req.EventType, req.Payload); err != nil {
		otelhelper.SetError(span, err)
		logger.WarnContext(ctx, "Rejected audit event", "action", "audit_invalid_payload", "error", err)

		return Result{OK: false, Reason: err.Error()}
	}

	store, err := c.ensureStore(ctx)
	if err != nil {
		logger.InfoContext(ctx, "Audit store unavailable", "action", "audit_no_store")

		return Result{OK: false, Reason: ReasonNotConfigured}
	}

	event := c.newEvent(req)
	span.SetAttributes(attribute.String(otelhelper.AuditDocIDKey, event.ID))

	delays := c.newBackOff()

	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		err := store.Upsert(ctx, event)
		if err == nil {
			logger.InfoContext(ctx, "Audit event written", "action", "audit_upsert", "ok", true, "id", event.ID, "attempt", attempt)

			return Result{OK: true, ID: event.ID}
		}

		lastErr = err
		logger.WarnContext(ctx, "Audit write failed", "action", "audit_write_failed", "error", err, "attempt", attempt)

		if sleepErr := c.sleep(ctx, delays.NextBackOff()); sleepErr != nil {
			break
		}
	}

	otelhelper.SetError(span, lastErr, attribute.String(otelhelper.AuditDocIDKey, event.ID))
	logger.ErrorContext(ctx, "Giving up on audit event", "action", "audit_write_giveup", "id", event.ID, "error", lastErr)

	return Result{OK: false, Reason: lastErr.Error()}
}

// Read returns one page of the events of q.RequestID. An unavailable store
// yields an empty page, never an error.
func (c *Client) Read(ctx context.Context, q Query) Page {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "audit.read",
		attribute.String(otelhelper.RequestIDKey, q.RequestID),
	)
	defer span.End()

	store, err := c.ensureStore(ctx)
	if err != nil {
		c.logger.InfoContext(ctx, "Audit store unavailable", "action", "audit_no_store_read", "requestId", q.RequestID)

		return emptyPage()
	}

	page, err := store.Query(ctx, q.Normalize())
	if err != nil {
		otelhelper.SetError(span, err)
		c.logger.ErrorContext(ctx, "Audit read failed", "action", "audit_read_failed", "requestId", q.RequestID, "error", err)

		return emptyPage()
	}

	if page.Events == nil {
		page.Events = []Event{}
	}

	page.Count = len(page.Events)

	c.logger.InfoContext(ctx, "Audit events read", "action", "audit_read_success", "requestId", q.RequestID, "count", page.Count)

	return page
}

// Events returns every event of requestID in chronological order.
func (c *Client) Events(ctx context.Context, requestID string) []Event {
	events := []Event{}
	q := Query{RequestID: requestID, Limit: MaxLimit, Order: OrderAsc}

	for {
		page := c.Read(ctx, q)
		events = append(events, page.Events...)

		if page.ContinuationToken == "" {
			return events
		}

		q.ContinuationToken = page.ContinuationToken
	}
}

// Configured reports whether a store is (or can be) connected.
func (c *Client) Configured(ctx context.Context) bool {
	_, err := c.ensureStore(ctx)

	return err == nil
}

// Close releases the store connection, if one was opened.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return nil
	}

	err := c.store.Close(ctx)
	c.store = nil
	c.resolved = false

	return err
}

func (c *Client) newEvent(req WriteRequest) *Event {
	at := req.OccurredAt
	if at.IsZero() {
		at = c.now()
	}

	at = at.UTC().Truncate(time.Millisecond)

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	return &Event{
		ID:            EventID(req.RequestID, req.EventType, req.WorkflowID, req.RunID, at, c.suffix()),
		RequestID:     req.RequestID,
		WorkflowID:    req.WorkflowID,
		RunID:         req.RunID,
		EventType:     req.EventType,
		Timestamp:     at,
		SchemaVersion: SchemaVersion,
		Payload:       payload,
	}
}

// newBackOff yields base, 2*base, 4*base, ... without jitter.
func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BackoffBase
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsNotConfigured reports whether err stems from a missing store.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

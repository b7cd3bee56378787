package audit

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Recognized payload fields per event type, schema version 1.
var builtinSchemas = map[EventType]map[string]any{
	EventCreated: {
		"type":     "object",
		"required": []any{"slaMinutes"},
		"properties": map[string]any{
			"slaMinutes": map[string]any{"type": "integer", "minimum": 0},
		},
	},
	EventEscalated: {
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{"type": "string"},
		},
	},
}

// Schemas holds the JSON schemas payloads are checked against. Event types
// without a schema accept any object.
type Schemas struct {
	mu      sync.RWMutex
	schemas map[EventType]*gojsonschema.Schema
}

// NewSchemas returns a registry preloaded with the built-in schemas.
func NewSchemas() *Schemas {
	s := &Schemas{schemas: make(map[EventType]*gojsonschema.Schema)}

	for eventType, schema := range builtinSchemas {
		if err := s.Register(eventType, schema); err != nil {
			panic(fmt.Errorf("built-in schema for %q: %w", eventType, err))
		}
	}

	return s
}

// Register compiles schema and associates it with eventType.
func (s *Schemas) Register(eventType EventType, schema map[string]any) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemas[eventType] = compiled

	return nil
}

// Validate checks payload against the schema registered for eventType.
func (s *Schemas) Validate(eventType EventType, payload map[string]any) error {
	s.mu.RLock()
	schema, ok := s.schemas[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil
	}

	if payload == nil {
		payload = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(errs, "; "))
	}

	return nil
}

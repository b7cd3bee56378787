package audit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor is the decoded form of a continuation token: the position of the
// last event returned.
type Cursor struct {
	Timestamp time.Time `json:"ts"`
	ID        string    `json:"id"`
}

// EncodeCursor builds the opaque continuation token pointing after e.
func EncodeCursor(e *Event) string {
	raw, _ := json.Marshal(Cursor{Timestamp: e.Timestamp, ID: e.ID})

	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a continuation token. An empty token yields nil.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	if c.ID == "" {
		return nil, ErrInvalidCursor
	}

	return &c, nil
}

// Precedes reports whether e comes strictly after the cursor position in the
// given order.
func (c *Cursor) Precedes(e *Event, order Order) bool {
	pos := &Event{ID: c.ID, Timestamp: c.Timestamp}
	if order == OrderDesc {
		return Less(e, pos)
	}

	return Less(pos, e)
}

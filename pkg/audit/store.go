package audit

import (
	"context"
	"sort"
)

// Order is the timestamp order of a query.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Store is a document store holding audit events partitioned by request id.
type Store interface {
	// Upsert writes e keyed by e.ID, replacing any document with that id.
	Upsert(ctx context.Context, e *Event) error
	// Query returns one page of events of q.RequestID.
	Query(ctx context.Context, q Query) (Page, error)
	Close(ctx context.Context) error
}

// Query selects the events of one request.
type Query struct {
	RequestID         string
	Limit             int
	ContinuationToken string
	Order             Order
	// PartitionScoped is set when the caller knows the partition key, letting
	// stores that distinguish the two avoid a cross-partition query.
	PartitionScoped bool
}

// Normalize fills defaults and clamps the limit into [1, MaxLimit].
func (q Query) Normalize() Query {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}

	if q.Order != OrderDesc {
		q.Order = OrderAsc
	}

	return q
}

// Page is one slice of a query result.
type Page struct {
	Events            []Event `json:"events"`
	ContinuationToken string  `json:"continuationToken,omitempty"`
	Count             int     `json:"count"`
}

func emptyPage() Page {
	return Page{Events: []Event{}}
}

// Less orders events by timestamp, then by id.
func Less(a, b *Event) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID < b.ID
	}

	return a.Timestamp.Before(b.Timestamp)
}

// Paginate applies order, continuation and limit to the full event set of a
// request. Stores without native keyset paging use it.
func Paginate(events []Event, q Query) (Page, error) {
	q = q.Normalize()

	cursor, err := DecodeCursor(q.ContinuationToken)
	if err != nil {
		return Page{}, err
	}

	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		if q.Order == OrderDesc {
			return Less(&sorted[j], &sorted[i])
		}

		return Less(&sorted[i], &sorted[j])
	})

	page := emptyPage()

	for i := range sorted {
		if cursor != nil && !cursor.Precedes(&sorted[i], q.Order) {
			continue
		}

		if len(page.Events) == q.Limit {
			page.ContinuationToken = EncodeCursor(&page.Events[len(page.Events)-1])

			break
		}

		page.Events = append(page.Events, sorted[i])
	}

	page.Count = len(page.Events)

	return page, nil
}

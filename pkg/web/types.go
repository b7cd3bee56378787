package web

import "github.com/fastorc/requestshub/pkg/audit"

// StartLifecycleRequest is the body of POST /requests/:id/lifecycle. A missing
// SLA selects the default.
type StartLifecycleRequest struct {
	SLAMinutes *int `json:"slaMinutes" validate:"omitempty,min=0,max=525600"`
}

// EventsQuery holds the query parameters of GET /requests/:id/events. Limit
// is nil when the parameter is absent, so an explicit 0 is rejected.
type EventsQuery struct {
	Limit             *int   `validate:"omitempty,min=1,max=500"`
	Order             string `validate:"omitempty,oneof=asc desc"`
	ContinuationToken string `validate:"omitempty,base64rawurl"`
}

func (q EventsQuery) toAuditQuery(requestID string) audit.Query {
	query := audit.Query{
		RequestID:         requestID,
		Order:             audit.Order(q.Order),
		ContinuationToken: q.ContinuationToken,
		PartitionScoped:   true,
	}

	if q.Limit != nil {
		query.Limit = *q.Limit
	}

	return query
}

package lifecycle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// MaxRequestIDLength bounds the request id accepted at the workflow boundary.
const MaxRequestIDLength = 128

var (
	ErrMissingRequestID = errors.New("request id is required")
	ErrInvalidRequestID = errors.New("invalid request id")
	ErrInvalidSLA       = errors.New("invalid sla")
)

// LifecycleInput is the single argument of the lifecycle workflow.
//
// Callers are loosely typed (CLI tools, other SDKs, queue producers), so the
// JSON form is normalized here and nowhere else. Accepted shapes:
//
//	{"requestId": "42", "slaMinutes": 1}
//	{"request_id": 42, "sla_minutes": "1"}
//	["42", 1]
//	"42"
//
// A missing SLA means DefaultSLAMinutes. An SLA that cannot be read as a
// whole number is replaced, one outside 0..MaxSLAMinutes is clamped, and the
// substitution is recorded in Warnings. A request id that cannot be read is left empty and rejected by
// Validate.
type LifecycleInput struct {
	RequestID  string `json:"requestId"`
	SLAMinutes int    `json:"slaMinutes"`

	// Warnings lists the coercions applied while decoding.
	Warnings []string `json:"-"`
}

// NewInput returns an input for requestID. Negative SLAs are clamped to
// zero; SLAs above MaxSLAMinutes are kept so Validate rejects them.
func NewInput(requestID string, slaMinutes int) LifecycleInput {
	return LifecycleInput{RequestID: requestID, SLAMinutes: max(slaMinutes, 0)}
}

// Validate checks the request id and that the SLA lies in 0..MaxSLAMinutes.
func (in LifecycleInput) Validate() error {
	if in.RequestID == "" {
		return ErrMissingRequestID
	}

	if len(in.RequestID) > MaxRequestIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidRequestID, MaxRequestIDLength)
	}

	for _, r := range in.RequestID {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("%w: contains non-printable characters", ErrInvalidRequestID)
		}
	}

	if in.SLAMinutes < 0 || in.SLAMinutes > MaxSLAMinutes {
		return fmt.Errorf("%w: %d minutes is outside 0..%d", ErrInvalidSLA, in.SLAMinutes, MaxSLAMinutes)
	}

	return nil
}

var (
	requestIDKeys = []string{"requestId", "request_id", "id"}
	slaKeys       = []string{"slaMinutes", "sla_minutes", "sla"}
)

func (in *LifecycleInput) UnmarshalJSON(data []byte) error {
	*in = LifecycleInput{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty lifecycle input")
	}

	var (
		rawID  json.RawMessage
		rawSLA json.RawMessage
	)

	switch data[0] {
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("failed to decode lifecycle input: %w", err)
		}

		rawID = firstField(fields, requestIDKeys)
		rawSLA = firstField(fields, slaKeys)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("failed to decode lifecycle input: %w", err)
		}

		if len(items) > 0 {
			rawID = items[0]
		}

		if len(items) > 1 {
			rawSLA = items[1]
		}
	default:
		rawID = data
	}

	in.RequestID = decodeRequestID(rawID)
	in.SLAMinutes = in.decodeSLA(rawSLA)

	return nil
}

func firstField(fields map[string]json.RawMessage, keys []string) json.RawMessage {
	for _, key := range keys {
		if raw, ok := fields[key]; ok {
			return raw
		}
	}

	return nil
}

func decodeScalar(raw json.RawMessage) (any, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}

	return v, v != nil
}

func decodeRequestID(raw json.RawMessage) string {
	v, ok := decodeScalar(raw)
	if !ok {
		return ""
	}

	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func (in *LifecycleInput) decodeSLA(raw json.RawMessage) int {
	v, ok := decodeScalar(raw)
	if !ok {
		return DefaultSLAMinutes
	}

	var text string

	switch sla := v.(type) {
	case json.Number:
		text = sla.String()
	case string:
		text = strings.TrimSpace(sla)
	default:
		in.warn("sla %s is not a number, using %d", string(raw), DefaultSLAMinutes)

		return DefaultSLAMinutes
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		in.warn("sla %q is not a whole number of minutes, using %d", text, DefaultSLAMinutes)

		return DefaultSLAMinutes
	}

	if f < 0 {
		in.warn("sla %q is negative, using 0", text)

		return 0
	}

	if f > MaxSLAMinutes {
		in.warn("sla %q exceeds %d minutes, using %d", text, MaxSLAMinutes, MaxSLAMinutes)

		return MaxSLAMinutes
	}

	return int(f)
}

func (in *LifecycleInput) warn(format string, args ...any) {
	in.Warnings = append(in.Warnings, fmt.Sprintf(format, args...))
}

// LifecycleResult is returned by a completed run.
type LifecycleResult struct {
	RequestID string `json:"requestId"`
	Phase     Phase  `json:"phase"`
	StillOpen bool   `json:"stillOpen"`
	Escalated bool   `json:"escalated"`
	// CreatedAuditID is empty when the audit write did not succeed.
	CreatedAuditID   string `json:"createdAuditId,omitempty"`
	EscalatedAuditID string `json:"escalatedAuditId,omitempty"`
}

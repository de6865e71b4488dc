package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys used by the claim events
const (
	KeyFromStatus = "from_status"
	KeyToStatus   = "to_status"
	KeyStatus     = "status"
	KeyOwnerID    = "owner_id"
	KeyApproverID = "approver_id"
	KeyOutcome    = "outcome"
	KeyRuleID     = "rule_id"
	KeyReason     = "reason"
	KeyRate       = "exchange_rate"
	KeyDegraded   = "rate_degraded"
)

// Event represents a domain event about one claim
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ClaimID       int64                  `json:"claim_id"`
	CompanyID     int64                  `json:"company_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a fresh ID that also starts its
// correlation chain
func NewEvent(eventType Type, claimID, companyID int64, payload map[string]interface{}) *Event {
	evt := NewEventWithCorrelation(eventType, claimID, companyID, payload, "")
	evt.CorrelationID = evt.ID
	return evt
}

// NewEventWithCorrelation creates an event linked to a correlation chain, so
// events emitted by one operation can be grouped
func NewEventWithCorrelation(eventType Type, claimID, companyID int64, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ClaimID:       claimID,
		CompanyID:     companyID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) float64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case int:
			return float64(v)
		}
	}
	return 0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

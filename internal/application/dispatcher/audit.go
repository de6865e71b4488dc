package dispatcher

import (
	"context"
	"sort"

	"github.com/garyjia/expense-approval/internal/domain/event"
)

// AuditLogHandler writes every claim event to the log as an audit trail
func AuditLogHandler(logger Logger) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		kv := []interface{}{
			"event_id", evt.ID,
			"event_type", evt.Type.String(),
			"claim_id", evt.ClaimID,
			"company_id", evt.CompanyID,
			"correlation_id", evt.CorrelationID,
		}
		keys := make([]string, 0, len(evt.Payload))
		for k := range evt.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			kv = append(kv, k, evt.Payload[k])
		}
		logger.Info("Claim event", kv...)
		return nil
	}
}

// RegisterAuditLog subscribes the audit log handler to every claim event type
func RegisterAuditLog(d Dispatcher, logger Logger) {
	h := AuditLogHandler(logger)
	for _, t := range []event.Type{
		event.TypeClaimSubmitted,
		event.TypeClaimUnrouted,
		event.TypeDecisionRecorded,
		event.TypeClaimStatusChanged,
	} {
		d.SubscribeNamed(t, "audit_log", h)
	}
}

package metrics

import (
	"context"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/domain/event"
)

// RegisterEventHandlers subscribes the collectors to claim events
func RegisterEventHandlers(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeClaimSubmitted, "metrics.submitted", func(ctx context.Context, evt *event.Event) error {
		RecordClaimSubmitted(evt.GetPayloadString(event.KeyStatus))
		if evt.GetPayloadBool(event.KeyDegraded) {
			RecordRateDegraded()
		}
		return nil
	})
	d.SubscribeNamed(event.TypeClaimUnrouted, "metrics.unrouted", func(ctx context.Context, evt *event.Event) error {
		RecordClaimUnrouted()
		return nil
	})
	d.SubscribeNamed(event.TypeDecisionRecorded, "metrics.decision", func(ctx context.Context, evt *event.Event) error {
		RecordDecision(evt.GetPayloadString(event.KeyOutcome))
		return nil
	})
	d.SubscribeNamed(event.TypeClaimStatusChanged, "metrics.transition", func(ctx context.Context, evt *event.Event) error {
		RecordStatusTransition(evt.GetPayloadString(event.KeyFromStatus), evt.GetPayloadString(event.KeyToStatus))
		return nil
	})
}

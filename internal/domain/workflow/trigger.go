package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerSubmit moves a draft into the system.
	TriggerSubmit Trigger = "SUBMIT"
	// TriggerRoute binds a submitted claim to its approval rule.
	TriggerRoute Trigger = "ROUTE"
	// TriggerAutoApprove approves a submitted claim without decisions (Admin owners).
	TriggerAutoApprove Trigger = "AUTO_APPROVE"
	// TriggerApprove completes a pending claim whose rule is satisfied.
	TriggerApprove Trigger = "APPROVE"
	// TriggerReject terminates a pending claim.
	TriggerReject Trigger = "REJECT"
	// TriggerAwait records progress on a pending claim that is not yet satisfied.
	TriggerAwait Trigger = "AWAIT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

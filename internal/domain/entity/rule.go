package entity

import (
	"fmt"
	"strings"
	"time"
)

// Rule is an approval rule: every required approver must approve, and a
// percentage of the ordinary pool must approve in sequence order. Rules are
// immutable once created.
type Rule struct {
	ID                  int64              `json:"id"`
	CompanyID           int64              `json:"company_id"`
	Name                string             `json:"name"`
	Description         string             `json:"description,omitempty"`
	IsActive            bool               `json:"is_active"`
	Percentage          int                `json:"approval_percentage"`
	ThresholdAmount     float64            `json:"threshold_amount"` // stored only, never used for routing
	RequiredApproverIDs []int64            `json:"required_approver_ids"`
	OrdinaryApprovers   []OrdinaryApprover `json:"ordinary_approvers"`
	CreatedAt           time.Time          `json:"created_at"`
}

// OrdinaryApprover is a member of a rule's ordinary pool. Lower sequence
// numbers must approve before higher ones become pending.
type OrdinaryApprover struct {
	UserID   int64 `json:"user_id"`
	Sequence int   `json:"sequence"`
}

// IsRequired reports whether userID is in the required pool
func (r *Rule) IsRequired(userID int64) bool {
	for _, id := range r.RequiredApproverIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OrdinarySequence returns the sequence of userID in the ordinary pool
func (r *Rule) OrdinarySequence(userID int64) (int, bool) {
	for _, o := range r.OrdinaryApprovers {
		if o.UserID == userID {
			return o.Sequence, true
		}
	}
	return 0, false
}

// MemberIDs returns every user referenced by the rule, required pool first.
func (r *Rule) MemberIDs() []int64 {
	ids := make([]int64, 0, len(r.RequiredApproverIDs)+len(r.OrdinaryApprovers))
	ids = append(ids, r.RequiredApproverIDs...)
	for _, o := range r.OrdinaryApprovers {
		ids = append(ids, o.UserID)
	}
	return ids
}

// Validate checks the structural constraints of a rule. Company membership of
// approvers is checked by the caller, which has access to the directory.
func (r *Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: rule name is required", ErrValidation)
	}
	if r.Percentage < 0 || r.Percentage > 100 {
		return fmt.Errorf("%w: approval percentage %d is outside [0, 100]", ErrValidation, r.Percentage)
	}
	if r.ThresholdAmount < 0 {
		return fmt.Errorf("%w: threshold amount cannot be negative", ErrValidation)
	}

	required := make(map[int64]bool, len(r.RequiredApproverIDs))
	for _, id := range r.RequiredApproverIDs {
		if id <= 0 {
			return fmt.Errorf("%w: invalid required approver id %d", ErrValidation, id)
		}
		if required[id] {
			return fmt.Errorf("%w: user %d listed twice in required approvers", ErrValidation, id)
		}
		required[id] = true
	}

	sequences := make(map[int]int64, len(r.OrdinaryApprovers))
	ordinary := make(map[int64]bool, len(r.OrdinaryApprovers))
	for _, o := range r.OrdinaryApprovers {
		if o.UserID <= 0 {
			return fmt.Errorf("%w: invalid ordinary approver id %d", ErrValidation, o.UserID)
		}
		if o.Sequence < 1 {
			return fmt.Errorf("%w: sequence %d for user %d must be at least 1", ErrValidation, o.Sequence, o.UserID)
		}
		if other, ok := sequences[o.Sequence]; ok {
			return fmt.Errorf("%w: sequence %d used by users %d and %d", ErrValidation, o.Sequence, other, o.UserID)
		}
		if ordinary[o.UserID] {
			return fmt.Errorf("%w: user %d listed twice in ordinary approvers", ErrValidation, o.UserID)
		}
		if required[o.UserID] {
			return fmt.Errorf("%w: user %d is in both required and ordinary approvers", ErrValidation, o.UserID)
		}
		sequences[o.Sequence] = o.UserID
		ordinary[o.UserID] = true
	}
	return nil
}

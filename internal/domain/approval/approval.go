// Package approval decides who owes a decision on a claim and whether the
// claim's rule is satisfied. Both questions are answered from one Snapshot so
// that the pending check and the completion recompute cannot disagree.
package approval

import (
	"sort"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Verdict is the status a claim should hold after a decision is applied.
type Verdict int

const (
	// VerdictAwaiting means the rule is not yet satisfied.
	VerdictAwaiting Verdict = iota
	// VerdictApproved means every required approver and enough ordinary approvers signed.
	VerdictApproved
	// VerdictRejected means an approver rejected the claim.
	VerdictRejected
)

func (v Verdict) String() string {
	switch v {
	case VerdictApproved:
		return entity.StatusApproved
	case VerdictRejected:
		return entity.StatusRejected
	default:
		return entity.StatusPending
	}
}

// NeededOrdinary returns how many ordinary approvals satisfy a percentage
// threshold over a pool of total approvers.
//
// The threshold is a whole percent, so an approval ratio meets it when the
// ratio rounded to whole percent (halves rounded down) reaches the threshold:
// 2 of 3 is 66.67% and meets 67%, 1 of 2 meets 50%, 49.5% does not meet 50%.
// For pools under 100 approvers this equals ceil(total * pct / 100) except
// where that product lands less than half a percent above an integer.
func NeededOrdinary(total, percentage int) int {
	if total <= 0 || percentage <= 0 {
		return 0
	}
	if percentage >= 100 {
		return total
	}
	// smallest k with 100*k/total > percentage - 0.5
	needed := total*(2*percentage-1)/200 + 1
	if needed > total {
		return total
	}
	return needed
}

// Progress counts the approvals on a claim against its rule.
type Progress struct {
	RequiredApproved int `json:"required_approved"`
	RequiredTotal    int `json:"required_total"`
	OrdinaryApproved int `json:"ordinary_approved"`
	OrdinaryTotal    int `json:"ordinary_total"`
	OrdinaryNeeded   int `json:"ordinary_needed"`
}

// RequiredSatisfied reports whether every required approver approved.
func (p Progress) RequiredSatisfied() bool {
	return p.RequiredApproved == p.RequiredTotal
}

// OrdinarySatisfied reports whether enough ordinary approvers approved.
func (p Progress) OrdinarySatisfied() bool {
	return p.OrdinaryApproved >= p.OrdinaryNeeded
}

// Satisfied reports whether the rule is met.
func (p Progress) Satisfied() bool {
	return p.RequiredSatisfied() && p.OrdinarySatisfied()
}

// Snapshot is a read-only view of a rule and the decisions recorded on one
// claim. A nil rule means the claim is unrouted.
type Snapshot struct {
	rule     *entity.Rule
	approved map[int64]bool
	rejected bool
}

// NewSnapshot builds a snapshot from the claim's bound rule and its decisions.
func NewSnapshot(rule *entity.Rule, decisions []*entity.Decision) *Snapshot {
	s := &Snapshot{rule: rule, approved: make(map[int64]bool, len(decisions))}
	for _, d := range decisions {
		s.apply(d)
	}
	return s
}

func (s *Snapshot) apply(d *entity.Decision) {
	switch d.Outcome {
	case entity.OutcomeApproved:
		s.approved[d.ApproverID] = true
	case entity.OutcomeRejected:
		s.rejected = true
	}
}

// With returns a copy of the snapshot that includes d.
func (s *Snapshot) With(d *entity.Decision) *Snapshot {
	next := &Snapshot{rule: s.rule, approved: make(map[int64]bool, len(s.approved)+1), rejected: s.rejected}
	for id := range s.approved {
		next.approved[id] = true
	}
	next.apply(d)
	return next
}

// Rule returns the snapshot's rule, nil when the claim has none.
func (s *Snapshot) Rule() *entity.Rule {
	return s.rule
}

// HasApproved reports whether userID recorded an Approved decision.
func (s *Snapshot) HasApproved(userID int64) bool {
	return s.approved[userID]
}

// Progress counts distinct approvals per pool. Approvals from users outside
// the rule are ignored.
func (s *Snapshot) Progress() Progress {
	if s.rule == nil {
		return Progress{}
	}
	p := Progress{
		RequiredTotal:  len(s.rule.RequiredApproverIDs),
		OrdinaryTotal:  len(s.rule.OrdinaryApprovers),
		OrdinaryNeeded: NeededOrdinary(len(s.rule.OrdinaryApprovers), s.rule.Percentage),
	}
	for _, id := range s.rule.RequiredApproverIDs {
		if s.approved[id] {
			p.RequiredApproved++
		}
	}
	for _, o := range s.rule.OrdinaryApprovers {
		if s.approved[o.UserID] {
			p.OrdinaryApproved++
		}
	}
	return p
}

// IsPendingFor reports whether userID currently owes a decision.
func (s *Snapshot) IsPendingFor(userID int64) bool {
	if s.rule == nil || s.rejected || s.approved[userID] {
		return false
	}
	progress := s.Progress()

	if s.rule.IsRequired(userID) {
		return true
	}

	seq, ok := s.rule.OrdinarySequence(userID)
	if !ok {
		return false
	}
	if !progress.RequiredSatisfied() || progress.OrdinarySatisfied() {
		return false
	}
	for _, o := range s.rule.OrdinaryApprovers {
		if o.Sequence < seq && !s.approved[o.UserID] {
			return false
		}
	}
	return true
}

// PendingApprovers lists the users who currently owe a decision, required
// pool first, then ordinary approvers by sequence.
func (s *Snapshot) PendingApprovers() []int64 {
	if s.rule == nil {
		return nil
	}
	var pending []int64
	for _, id := range s.rule.RequiredApproverIDs {
		if s.IsPendingFor(id) {
			pending = append(pending, id)
		}
	}
	ordinary := append([]entity.OrdinaryApprover(nil), s.rule.OrdinaryApprovers...)
	sort.Slice(ordinary, func(i, j int) bool { return ordinary[i].Sequence < ordinary[j].Sequence })
	for _, o := range ordinary {
		if s.IsPendingFor(o.UserID) {
			pending = append(pending, o.UserID)
		}
	}
	return pending
}

// Verdict derives the claim status from counts alone. Sequence order is
// enforced before a decision is accepted, not here.
func (s *Snapshot) Verdict() Verdict {
	if s.rejected {
		return VerdictRejected
	}
	if s.rule != nil && s.Progress().Satisfied() {
		return VerdictApproved
	}
	return VerdictAwaiting
}

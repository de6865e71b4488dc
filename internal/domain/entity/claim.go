package entity

import "time"

// Claim is an expense claim submitted by a user. RuleID is the rule bound at
// submission; later reassignment of the owner does not affect it.
type Claim struct {
	ID                int64        `json:"id"`
	OwnerID           int64        `json:"owner_id"`
	CompanyID         int64        `json:"company_id"`
	Description       string       `json:"description"`
	Status            string       `json:"status"`
	LocalCurrencyCode string       `json:"local_currency_code"`
	TotalLocal        float64      `json:"total_amount_local"`
	ExchangeRate      float64      `json:"exchange_rate"`
	TotalCompany      float64      `json:"total_amount_company_currency"`
	RuleID            *int64       `json:"rule_id,omitempty"`
	SubmittedAt       time.Time    `json:"submitted_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	Lines             []*ClaimLine `json:"lines,omitempty"`
}

// ClaimLine is a single expense on a claim, in the claim's local currency
type ClaimLine struct {
	ID          int64   `json:"id"`
	ClaimID     int64   `json:"claim_id"`
	Category    string  `json:"category,omitempty"`
	Vendor      string  `json:"vendor,omitempty"`
	ExpenseDate string  `json:"expense_date,omitempty"` // YYYY-MM-DD
	Amount      float64 `json:"amount_local"`
	Description string  `json:"description,omitempty"`
	ReceiptURL  string  `json:"receipt_url,omitempty"`
}

// IsTerminal reports whether the claim can no longer change status
func (c *Claim) IsTerminal() bool {
	return c.Status == StatusApproved || c.Status == StatusRejected
}

// Decision is one approver's verdict on a claim. The store keeps at most one
// decision per (claim, approver).
type Decision struct {
	ID         int64     `json:"id"`
	ClaimID    int64     `json:"claim_id"`
	ApproverID int64     `json:"approver_id"`
	Outcome    string    `json:"outcome"`
	Comment    string    `json:"comment,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

package entity

import "time"

// Company owns users, rules and claims. All company-currency totals are
// expressed in DefaultCurrencyCode.
type Company struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	DefaultCurrencyCode string    `json:"default_currency_code"`
	CreatedAt           time.Time `json:"created_at"`
}

// User is a member of exactly one company
type User struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	RuleID    *int64    `json:"rule_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the Admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

package entity

// Role constants for User
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

// Status constants for Claim
const (
	StatusDraft     = "Draft"
	StatusSubmitted = "Submitted"
	StatusPending   = "Pending"
	StatusApproved  = "Approved"
	StatusRejected  = "Rejected"
)

// Decision outcome constants
const (
	OutcomeApproved = "Approved"
	OutcomeRejected = "Rejected"
)

// Line category constants for ClaimLine. Categories are free text; these are
// the ones the reporting export groups explicitly.
const (
	CategoryTravel         = "Travel"
	CategoryMeal           = "Meal"
	CategoryAccommodation  = "Accommodation"
	CategoryEquipment      = "Equipment"
	CategoryTransportation = "Transportation"
	CategoryEntertainment  = "Entertainment"
	CategoryOther          = "Other"
)

// DefaultApprovalPercentage applies when a rule is created without a threshold.
const DefaultApprovalPercentage = 100

// IsValidRole reports whether role is one of the known user roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// IsValidOutcome reports whether outcome can be recorded as a decision.
func IsValidOutcome(outcome string) bool {
	return outcome == OutcomeApproved || outcome == OutcomeRejected
}

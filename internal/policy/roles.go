package policy

import "strings"

// Role is the closed set of access tiers. Role checks go through this type
// rather than raw strings so budgets and capabilities live in one table.
type Role string

const (
	RoleAnonymous  Role = "anonymous"
	RoleResearcher Role = "researcher"
	RoleJournalist Role = "journalist"
	RoleGovernment Role = "government"
	RoleAdmin      Role = "admin"
)

// Unlimited marks a role with no hourly request budget.
const Unlimited = -1

var hourlyBudgets = map[Role]int{
	RoleAnonymous:  1000,
	RoleResearcher: 5000,
	RoleJournalist: 5000,
	RoleGovernment: 50000,
	RoleAdmin:      Unlimited,
}

func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := hourlyBudgets[role]; !ok {
		return RoleAnonymous, false
	}
	return role, true
}

func (r Role) String() string {
	return string(r)
}

// HourlyBudget returns the role's request budget per hour bucket, or
// Unlimited.
func (r Role) HourlyBudget() int {
	if budget, ok := hourlyBudgets[r]; ok {
		return budget
	}
	return hourlyBudgets[RoleAnonymous]
}

// IsAuthenticated reports whether the role was established by a recognized
// API key. Anonymous callers get the most restrictive fail-safe handling.
func (r Role) IsAuthenticated() bool {
	return r != RoleAnonymous && r != ""
}

package models

// Role is an employee tier in the escalation hierarchy.
type Role string

const (
	RoleFieldStaff   Role = "field-staff"
	RoleSupervisor   Role = "supervisor"
	RoleCommissioner Role = "commissioner"

	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
	RoleGuest   Role = "guest"
)

// escalationOrder is the ordered hierarchy issues climb through. The
// commissioner tier is terminal.
var escalationOrder = []Role{RoleFieldStaff, RoleSupervisor, RoleCommissioner}

// Next returns the next tier above r, or "" when r is terminal or not part
// of the hierarchy.
func (r Role) Next() Role {
	for i, tier := range escalationOrder {
		if tier == r && i+1 < len(escalationOrder) {
			return escalationOrder[i+1]
		}
	}
	return ""
}

// IsEscalationTier reports whether r is one of the tiers issues are
// assigned to.
func (r Role) IsEscalationTier() bool {
	for _, tier := range escalationOrder {
		if tier == r {
			return true
		}
	}
	return false
}

// IsEmployee reports whether r can hold issue assignments.
func (r Role) IsEmployee() bool {
	return r.IsEscalationTier()
}

package domain

// Filter narrows a membership listing. Zero values match everything.
type Filter struct {
	Role   Role
	Status Status
	UserID string
}

// Matches reports whether m passes the filter.
func (f Filter) Matches(m *Membership) bool {
	if f.Role != RoleUnspecified && m.Role != f.Role {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.UserID != "" && m.UserID != f.UserID {
		return false
	}
	return true
}

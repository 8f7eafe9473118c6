package domain

// Role is ordered: viewer < member < admin < owner. Comparisons use the
// ordinal, never the name.
type Role uint8

const (
	RoleUnspecified Role = iota
	RoleViewer
	RoleMember
	RoleAdmin
	RoleOwner
)

var roleNames = [...]string{
	RoleUnspecified: "",
	RoleViewer:      "viewer",
	RoleMember:      "member",
	RoleAdmin:       "admin",
	RoleOwner:       "owner",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return ""
}

// Valid reports whether r is one of the four assignable roles.
func (r Role) Valid() bool {
	return r >= RoleViewer && r <= RoleOwner
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// ParseRole maps a role name to its ordinal.
func ParseRole(s string) (Role, bool) {
	for r, name := range roleNames {
		if name != "" && name == s {
			return Role(r), true
		}
	}
	return RoleUnspecified, false
}

// MarshalText stores roles by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = RoleUnspecified
		return nil
	}
	parsed, ok := ParseRole(string(b))
	if !ok {
		return &UnknownRoleError{Name: string(b)}
	}
	*r = parsed
	return nil
}

type UnknownRoleError struct {
	Name string
}

func (e *UnknownRoleError) Error() string {
	return "unknown role " + `"` + e.Name + `"`
}

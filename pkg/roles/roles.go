package roles

// Role is the access level carried in a user's token.
type Role string

const (
	Admin       Role = "admin"
	Coordinator Role = "coordinator"
	Doctor      Role = "doctor"
	Donor       Role = "donor"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case Admin, Coordinator, Doctor, Donor:
		return true
	default:
		return false
	}
}

// In reports whether r is one of allowed. An empty allowed list admits every valid role.
func (r Role) In(allowed ...Role) bool {
	if !r.IsValid() {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

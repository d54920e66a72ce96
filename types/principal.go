package types

// Principal is the authenticated identity of a logged-in session.
type Principal struct {
	// ID is the account identifier.
	ID string `json:"id"`

	// Roles are copied from the account at login time.
	Roles Roles `json:"roles"`

	// UUID is the account's identity anchor.
	UUID string `json:"uuid"`
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	return p.Roles.Has(role)
}

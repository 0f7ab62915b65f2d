package domain

type Capability string

const (
	CapabilityCashier             Capability = "shopping_cart:cashier"
	CapabilityCashierManualRebook Capability = "shopping_cart:cashiermanualrebook"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID       int64
	Capabilities []Capability
	Profile      Profile
}

// Profile is the identity data carried by the caller's token.
type Profile struct {
	FirstName string
	LastName  string
	Email     string
	Country   string
}

// HasName reports whether any naming field is set.
func (p Profile) HasName() bool {
	return p.FirstName != "" || p.LastName != "" || p.Email != ""
}

func (a Actor) Has(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Require returns a PermissionDeniedError unless the actor holds c.
func (a Actor) Require(c Capability) error {
	if !a.Has(c) {
		return &PermissionDeniedError{UserID: a.UserID, Capability: c}
	}
	return nil
}

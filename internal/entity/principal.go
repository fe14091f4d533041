package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Principal is the authenticated caller, resolved once per request and passed explicitly.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Owns reports whether the principal may read a record owned by userID.
func (p Principal) Owns(userID string) bool {
	return p.IsAdmin() || (p.UserID != "" && p.UserID == userID)
}

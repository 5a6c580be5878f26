package domain

type Role string

const (
	RoleBuyer Role = "buyer"
	RoleAdmin Role = "admin"
)

// Identity is the caller as resolved from a bearer token. The zero value is anonymous.
type Identity struct {
	UserID string
	Role   Role
	Token  string
}

func Anonymous() Identity {
	return Identity{}
}

func (i Identity) IsAuthenticated() bool {
	return i.UserID != ""
}

func (i Identity) IsAdmin() bool {
	return i.IsAuthenticated() && i.Role == RoleAdmin
}

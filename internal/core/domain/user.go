package domain

import "slices"

// Role identifies a permission group attached to a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// DefaultRoles is the role set granted on sign-up.
func DefaultRoles() []Role { return []Role{RoleUser} }

// User models a registered account.
type User struct {
	Document     `bson:",inline"`
	Username     string `json:"username" bson:"username"`
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"-" bson:"password_hash"`
	Roles        []Role `json:"roles" bson:"roles"`
}

// Principal is the identity projection of a User carried through a request.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Roles    []Role `json:"roles"`
}

// Principal projects the user without credentials.
func (u *User) Principal() Principal {
	return Principal{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    slices.Clone(u.Roles),
	}
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role Role) bool {
	return slices.Contains(p.Roles, role)
}

// Authentication is the result of a successful sign-in.
type Authentication struct {
	Principal Principal
	Token     string
	Claims    TokenClaims
}

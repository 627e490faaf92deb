package domain

import "time"

// TokenClaims is the claim set embedded in a session token.
type TokenClaims struct {
	Subject   string
	ID        string
	Email     string
	Roles     []Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ClaimsFor builds the claim set for a user. Timestamps are filled in on issue.
func ClaimsFor(u *User) TokenClaims {
	p := u.Principal()
	return TokenClaims{
		Subject: p.Username,
		ID:      p.ID,
		Email:   p.Email,
		Roles:   p.Roles,
	}
}

// Principal rebuilds the identity asserted by the claims.
func (c TokenClaims) Principal() Principal {
	return Principal{
		ID:       c.ID,
		Username: c.Subject,
		Email:    c.Email,
		Roles:    c.Roles,
	}
}

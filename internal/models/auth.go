package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the token payload issued by the external identity provider.
// Subject carries the provider's user uuid.
type Claims struct {
	Role     Role   `json:"role"`
	PersonID *int64 `json:"person_id,omitempty"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the provider user id.
func (c *Claims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

package model

import "time"

// Credential is the persisted session token together with the logged-in flag.
// A non-empty Token implies IsLoggedIn and vice versa.
type Credential struct {
	Token      string    `json:"token"`
	IsLoggedIn bool      `json:"is_logged_in"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewCredential creates a logged-in credential for the given token
func NewCredential(token string, now time.Time) *Credential {
	return &Credential{
		Token:      token,
		IsLoggedIn: token != "",
		UpdatedAt:  now,
	}
}

// Valid reports whether the token and flag agree and a token is present
func (c *Credential) Valid() bool {
	return c != nil && c.Token != "" && c.IsLoggedIn
}

package models

import "time"

// Session is a login session looked up on every authenticated request.
// The raw token is only ever held by the client; storage keys on its hash.
type Session struct {
	TokenHash string    `json:"token_hash"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
}

// Valid reports whether the session is active and unexpired at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Active && now.Before(s.ExpiresAt)
}

package models

import "time"

// PrivyClaims are the verified claims of a Privy access token.
type PrivyClaims struct {
	UserID    string    `json:"user_id"` // Privy DID, e.g. did:privy:xxxx
	AppID     string    `json:"app_id"`
	SessionID string    `json:"session_id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResult is returned by signup, login and wallet login.
type AuthResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

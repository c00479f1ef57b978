package model

import "time"

// User is a registered account.
// SecretHash is an opaque verifier (bcrypt) and never leaves the credential store.
type User struct {
	Username   string    `json:"username"` // case-sensitive, immutable
	SecretHash string    `json:"secret_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

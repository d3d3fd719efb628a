package users

import "time"

// User is a durable registry record. PasswordHash is a salted bcrypt hash;
// the plaintext password is never stored. HomeDir is the absolute sandbox
// root for the user. APICredential is the optional personal engine
// credential injected into the user's sessions.
type User struct {
	ID            string
	UserName      string
	PasswordHash  []byte
	HomeDir       string
	APICredential string
	CreatedAt     time.Time
	LastLogin     *time.Time
}

package models

import "time"

type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	SessionToken *string   `db:"session_token"`
	CreatedAt    time.Time `db:"created_at"`
}

// Friend is the public projection of a user reachable in the friendship graph.
type Friend struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Email    string `db:"email"`
}

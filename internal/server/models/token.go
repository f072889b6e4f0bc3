package models

import (
	"database/sql"
	"time"
)

// TokenType distinguishes the state transition a token gates.
type TokenType string

const (
	TokenRegister       TokenType = "REGISTER"
	TokenForgotPassword TokenType = "FORGOT_PASSWORD"
	TokenChangeEmail    TokenType = "CHANGE_EMAIL"
	TokenDeactivated    TokenType = "DEACTIVATED"
)

// Token is a single-use opaque value bound to a user. Metadata carries
// type-specific payload such as a pending new email address.
type Token struct {
	Value      string
	Type       TokenType
	Expiration time.Time
	Metadata   sql.NullString
	UserID     int64
}

// Expired reports whether the token's expiration lies strictly before now.
func (t *Token) Expired(now time.Time) bool {
	return t.Expiration.Before(now)
}

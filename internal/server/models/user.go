// Package models defines the persistent entities of the lifecycle engine.
// Activation state is carried as explicit status enums with transition
// methods so illegal combinations (a deactivated account keeping its secret)
// cannot be produced by ad-hoc flag writes.
package models

import (
	"database/sql"
	"time"
)

// Role describes the access level of a user account.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleParticipant Role = "PARTICIPANT"
)

// AccountStatus is the activation state of a user account.
type AccountStatus string

const (
	AccountActive      AccountStatus = "ACTIVE"
	AccountDeactivated AccountStatus = "DEACTIVATED"
)

// User is an account that may participate in experiments. Secret is the
// opaque bearer credential mailed to participants; it is only ever set on an
// active account.
type User struct {
	ID           int64
	Username     string
	Email        sql.NullString
	Role         Role
	Language     string
	PasswordHash sql.NullString
	Secret       sql.NullString
	Attempts     int
	Status       AccountStatus
	LastLogin    sql.NullTime
}

// Active reports whether the account is currently usable.
func (u *User) Active() bool {
	return u.Status == AccountActive
}

// Activate sets the given secret and marks the account active. Used when a
// course member is first pulled into an experiment or re-invited.
func (u *User) Activate(secret string) {
	u.Secret = sql.NullString{String: secret, Valid: true}
	u.Status = AccountActive
}

// MarkActive flips the account to active without touching secret or attempts.
func (u *User) MarkActive() {
	u.Status = AccountActive
}

// Deactivate clears the secret and marks the account deactivated. A
// deactivated account never keeps a secret.
func (u *User) Deactivate() {
	u.Secret = sql.NullString{}
	u.Status = AccountDeactivated
}

// Reactivate resets the failed-login counter and marks the account active.
// The secret is deliberately left untouched: a fresh participation link is
// only issued through an explicit re-invite.
func (u *User) Reactivate() {
	u.Attempts = 0
	u.Status = AccountActive
}

// RecordLogin stores the time of a successful login. It is called by the
// authentication layer, which lives outside this engine; the inactivity
// sweeps read what it writes.
func (u *User) RecordLogin(t time.Time) {
	u.Attempts = 0
	u.LastLogin = sql.NullTime{Time: t, Valid: true}
}

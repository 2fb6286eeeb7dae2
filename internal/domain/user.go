package domain

import "time"

// Role labels the authorization level carried by a session token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents an identity record. Email is unique; Name, Username,
// PasswordHash and Image are optional — OAuth-created users have no
// password hash until one is set through credential registration.
type User struct {
	ID           int64
	Email        string
	Name         string
	Username     string
	PasswordHash string
	Image        string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether a credential login is possible for this user.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

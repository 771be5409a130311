// Package models - user.go defines the User model for accounts that act on organizations.
package models

import "time"

// User represents a user in the system
type User struct {
	ID          string
	Username    string
	Email       string
	Name        string
	IsSuperuser bool
	DateJoined  time.Time
}

// DisplayLabel returns the label recorded as the actor of audit entries
func (u *User) DisplayLabel() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

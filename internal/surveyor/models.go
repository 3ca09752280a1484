// Package surveyor manages the field agents allowed to enroll households.
// Accounts are provisioned by the field office; devices authenticate with
// username and password and work offline on the issued token afterwards.
package surveyor

import "time"

// Surveyor is one field agent account.
type Surveyor struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	FullName     string    `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

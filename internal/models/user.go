package models

import "time"

// User represents an authenticated profile resolved from a session.
// A User maps to exactly one Account, which is the unit of lock
// ownership. The two identifiers are never interchangeable.
type User struct {
	ID          UUID   `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
	Email       string `db:"email" json:"email"`
	AccountID   UUID   `db:"account_id" json:"account_id"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (u *User) CreatedAtTime() time.Time {
	return time.Unix(u.CreatedAt, 0)
}

package models

import "time"

// Account is the identity unit that owns checkouts. Users resolve to
// accounts before any lock operation; checkout rows reference accounts,
// never users.
type Account struct {
	ID          UUID   `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
	// CanOverrideLocks gates the administrative override path.
	CanOverrideLocks bool  `db:"can_override_locks" json:"can_override_locks"`
	CreatedAt        int64 `db:"created_at" json:"created_at"`
}

// TableName returns the table name for Account.
func (Account) TableName() string {
	return "accounts"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (a *Account) CreatedAtTime() time.Time {
	return time.Unix(a.CreatedAt, 0)
}

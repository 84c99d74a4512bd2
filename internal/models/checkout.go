package models

import "time"

// Checkout is an exclusive lock record binding one File to one
// Account. The UNIQUE constraint on FileID is the mutual-exclusion
// primitive: at most one checkout row can exist per file, enforced by
// the datastore rather than by in-process locking.
//
// Checkout rows are created by a successful acquire and destroyed by
// checkin or override. They are never updated in place.
type Checkout struct {
	ID        UUID  `db:"id" json:"id"`
	FileID    UUID  `db:"file_id" json:"file_id"`
	AccountID UUID  `db:"account_id" json:"account_id"`
	CreatedAt int64 `db:"created_at" json:"created_at"`
}

// TableName returns the table name for Checkout.
func (Checkout) TableName() string {
	return "checkouts"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (c *Checkout) CreatedAtTime() time.Time {
	return time.Unix(c.CreatedAt, 0)
}

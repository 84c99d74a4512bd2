package models

import "time"

// File represents an uploaded document artifact that can be checked
// out for exclusive editing.
//
// CheckedOut is a denormalized cache of checkout presence: it is true
// iff exactly one checkout row references this file. Only the lock
// coordinator mutates it, and always in the same transaction as the
// checkout row itself.
type File struct {
	ID         UUID   `db:"id" json:"id"`
	DocumentID UUID   `db:"document_id" json:"document_id"`
	Name       string `db:"name" json:"name"`
	CheckedOut bool   `db:"checked_out" json:"checked_out"`
	CreatedAt  int64  `db:"created_at" json:"created_at"`
	UpdatedAt  int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for File.
func (File) TableName() string {
	return "files"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (f *File) CreatedAtTime() time.Time {
	return time.Unix(f.CreatedAt, 0)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (f *File) UpdatedAtTime() time.Time {
	return time.Unix(f.UpdatedAt, 0)
}

// Touch updates the UpdatedAt timestamp.
func (f *File) Touch() {
	f.UpdatedAt = time.Now().Unix()
}

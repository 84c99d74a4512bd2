package models

import "time"

// Document is the owning aggregate for uploaded files.
type Document struct {
	ID        UUID   `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// TableName returns the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (d *Document) CreatedAtTime() time.Time {
	return time.Unix(d.CreatedAt, 0)
}

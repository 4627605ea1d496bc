package domain

import "time"

// File is a stored binary (imported images).
type File struct {
	ID          int64     `db:"id"`
	Key         string    `db:"storage_key"`
	Backend     string    `db:"backend"`
	SourceURL   string    `db:"source_url"`
	PublicURL   string    `db:"public_url"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size"`
	CreatedAt   time.Time `db:"created_at"`
}

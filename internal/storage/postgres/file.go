package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"content_import/internal/domain"
)

// FileStore keeps stored file metadata.
type FileStore struct {
	db *sqlx.DB
}

func NewFileStore(db *sqlx.DB) *FileStore {
	return &FileStore{db: db}
}

// Insert sets f.ID and f.CreatedAt.
func (s *FileStore) Insert(ctx context.Context, f *domain.File) error {
	query := `
		INSERT INTO files (storage_key, backend, source_url, public_url, content_type, size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		f.Key, f.Backend, f.SourceURL, f.PublicURL, f.ContentType, f.Size,
	).Scan(&f.ID, &f.CreatedAt)
}

func (s *FileStore) Delete(ctx context.Context, id int64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, "DELETE FROM files WHERE id = $1", id)
	return err
}

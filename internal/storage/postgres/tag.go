package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"content_import/internal/domain"
)

type TagStore struct {
	db *sqlx.DB
}

func NewTagStore(db *sqlx.DB) *TagStore {
	return &TagStore{db: db}
}

// Dispense finds the tag with title and language or creates it.
func (s *TagStore) Dispense(ctx context.Context, title, language string) (*domain.Tag, error) {
	query := `
		INSERT INTO tags (title, language) VALUES ($1, $2)
		ON CONFLICT (title, language) DO UPDATE SET title = EXCLUDED.title
		RETURNING id, title, language`

	var tag domain.Tag
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &tag, query, title, language); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *TagStore) GetByContentID(ctx context.Context, contentID int64) ([]domain.Tag, error) {
	query := `
		SELECT t.id, t.title, t.language
		FROM tags t
		INNER JOIN content_tags ct ON ct.tag_id = t.id
		WHERE ct.content_id = $1
		ORDER BY t.id`

	var tags []domain.Tag
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &tags, query, contentID)
	return tags, err
}

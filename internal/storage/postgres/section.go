package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"content_import/internal/domain"
)

type SectionStore struct {
	db *sqlx.DB
}

func NewSectionStore(db *sqlx.DB) *SectionStore {
	return &SectionStore{db: db}
}

// FindByTitle returns nil, nil when no section matches.
func (s *SectionStore) FindByTitle(ctx context.Context, title, language string) (*domain.Section, error) {
	var section domain.Section
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &section,
		"SELECT id, title, language FROM sections WHERE title = $1 AND language = $2",
		title, language,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (s *SectionStore) Create(ctx context.Context, section *domain.Section) error {
	return sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &section.ID,
		"INSERT INTO sections (title, language) VALUES ($1, $2) RETURNING id",
		section.Title, section.Language,
	)
}

// List returns sections of language, or all sections when language is empty.
func (s *SectionStore) List(ctx context.Context, language string) ([]domain.Section, error) {
	query := `
		SELECT id, title, language
		FROM sections
		WHERE $1::text = '' OR language = $1
		ORDER BY language, title`

	var sections []domain.Section
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &sections, query, language)
	return sections, err
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"content_import/internal/domain"
)

const importerColumns = `
	id, driver, driver_opts, description, owner, content_model, content_author,
	content_section, content_status, content_language, add_tags, enabled, errors,
	last_error, paused_till, created_at, updated_at`

type importerRow struct {
	domain.Importer
	DriverOptsJSON types.JSONText `db:"driver_opts"`
	AddTagsArray   pq.StringArray `db:"add_tags"`
}

func (r *importerRow) toDomain() (domain.Importer, error) {
	imp := r.Importer
	imp.AddTags = []string(r.AddTagsArray)
	imp.DriverOpts = map[string]string{}
	if len(r.DriverOptsJSON) > 0 {
		if err := r.DriverOptsJSON.Unmarshal(&imp.DriverOpts); err != nil {
			return imp, fmt.Errorf("importer %d: decode driver options: %w", imp.ID, err)
		}
	}
	return imp, nil
}

type ImporterStore struct {
	db *sqlx.DB
}

func NewImporterStore(db *sqlx.DB) *ImporterStore {
	return &ImporterStore{db: db}
}

// FindDue returns enabled importers that are not paused at now, least failing first.
func (s *ImporterStore) FindDue(ctx context.Context, now time.Time) ([]domain.Importer, error) {
	query := `SELECT ` + importerColumns + `
		FROM importers
		WHERE enabled AND (paused_till IS NULL OR paused_till < $1)
		ORDER BY errors ASC, id ASC`

	return s.selectImporters(ctx, query, now)
}

// List returns importers of language, or all importers when language is empty.
func (s *ImporterStore) List(ctx context.Context, language string) ([]domain.Importer, error) {
	query := `SELECT ` + importerColumns + `
		FROM importers
		WHERE $1::text = '' OR content_language = $1
		ORDER BY id`

	return s.selectImporters(ctx, query, language)
}

func (s *ImporterStore) Get(ctx context.Context, id int64) (*domain.Importer, error) {
	var row importerRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row,
		`SELECT `+importerColumns+` FROM importers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	imp, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

func (s *ImporterStore) Create(ctx context.Context, imp *domain.Importer) error {
	opts, err := encodeOpts(imp.DriverOpts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO importers (
			driver, driver_opts, description, owner, content_model, content_author,
			content_section, content_status, content_language, add_tags, enabled
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING id, created_at, updated_at`

	return GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		imp.Driver,
		opts,
		imp.Description,
		imp.Owner,
		imp.ContentModel,
		imp.ContentAuthor,
		imp.ContentSection,
		imp.ContentStatus,
		imp.ContentLanguage,
		pq.StringArray(nonNil(imp.AddTags)),
		imp.Enabled,
	).Scan(&imp.ID, &imp.CreatedAt, &imp.UpdatedAt)
}

// Save writes the run state of imp back.
func (s *ImporterStore) Save(ctx context.Context, imp *domain.Importer) error {
	query := `
		UPDATE importers SET
			enabled = $2,
			errors = $3,
			last_error = $4,
			paused_till = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		imp.ID, imp.Enabled, imp.Errors, imp.LastError, imp.PausedTill,
	).Scan(&imp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// Enable re-enables an importer and clears its error state.
func (s *ImporterStore) Enable(ctx context.Context, id int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		UPDATE importers
		SET enabled = TRUE, errors = 0, paused_till = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *ImporterStore) selectImporters(ctx context.Context, query string, args ...any) ([]domain.Importer, error) {
	var rows []importerRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, args...); err != nil {
		return nil, err
	}

	result := make([]domain.Importer, 0, len(rows))
	for i := range rows {
		imp, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, imp)
	}
	return result, nil
}

func encodeOpts(opts map[string]string) (types.JSONText, error) {
	if opts == nil {
		opts = map[string]string{}
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encode driver options: %w", err)
	}
	return types.JSONText(b), nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"content_import/internal/domain"
)

type ContentStore struct {
	db *sqlx.DB
	tm *TransactionManager
}

func NewContentStore(db *sqlx.DB, tm *TransactionManager) *ContentStore {
	return &ContentStore{db: db, tm: tm}
}

func (s *ContentStore) Model(ctx context.Context, name string) (*domain.ContentModel, error) {
	var row struct {
		Name   string         `db:"name"`
		Fields pq.StringArray `db:"fields"`
	}

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row,
		"SELECT name, fields FROM content_models WHERE name = $1", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &domain.ContentModel{Name: row.Name, Fields: row.Fields}, nil
}

func (s *ContentStore) CountByExtLink(ctx context.Context, model, language, link string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM contents
		WHERE model = $1 AND language = $2 AND $3 = ANY(ext_links)`

	var n int
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &n, query, model, language, link); err != nil {
		return 0, err
	}
	return n, nil
}

// Save inserts c with its tag and image links in one transaction and sets
// c.ID and c.CreatedAt.
func (s *ContentStore) Save(ctx context.Context, c *domain.Content) error {
	if c.Model == nil {
		return errors.New("content has no model")
	}

	provenance, err := json.Marshal(c.Import)
	if err != nil {
		return fmt.Errorf("marshal provenance: %w", err)
	}

	var sectionID sql.NullInt64
	if c.Section != nil && c.Section.ID != 0 {
		sectionID = sql.NullInt64{Int64: c.Section.ID, Valid: true}
	}

	query := `
		INSERT INTO contents (
			model, author, status, language, title, publish_time, description,
			section_id, video_links, body, ext_links, content_import
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING id, created_at`

	return s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		exec := GetExecutor(ctx, s.db)

		err := exec.QueryRowxContext(ctx, query,
			c.Model.Name,
			c.Author,
			c.Status,
			c.Language,
			c.Title,
			c.PublishTime,
			c.Description,
			sectionID,
			pq.StringArray(nonNil(c.VideoLinks)),
			c.Body,
			pq.StringArray(nonNil(c.ExtLinks)),
			types.JSONText(provenance),
		).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert content: %w", err)
		}

		if err := s.linkTags(ctx, exec, c); err != nil {
			return err
		}
		return s.linkImages(ctx, exec, c)
	})
}

func (s *ContentStore) linkTags(ctx context.Context, exec sqlx.ExtContext, c *domain.Content) error {
	if len(c.Tags) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO content_tags (content_id, tag_id) VALUES ")
	args := make([]any, 0, len(c.Tags)+1)
	args = append(args, c.ID)

	for i, tag := range c.Tags {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($1, $" + strconv.Itoa(i+2) + ")")
		args = append(args, tag.ID)
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")

	if _, err := exec.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("link tags: %w", err)
	}
	return nil
}

func (s *ContentStore) linkImages(ctx context.Context, exec sqlx.ExtContext, c *domain.Content) error {
	if len(c.Images) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO content_images (content_id, file_id, position) VALUES ")
	args := make([]any, 0, len(c.Images)*2+1)
	args = append(args, c.ID)

	for i, img := range c.Images {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := len(args)
		sb.WriteString("($1, $" + strconv.Itoa(n+1) + ", $" + strconv.Itoa(n+2) + ")")
		args = append(args, img.ID, i)
	}

	if _, err := exec.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("link images: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

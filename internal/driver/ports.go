package driver

import (
	"context"

	"content_import/internal/domain"
	"content_import/internal/httpfetch"
)

// ContentStore is the part of the content store drivers read from.
type ContentStore interface {
	Model(ctx context.Context, name string) (*domain.ContentModel, error)
	// CountByExtLink counts entities of model+language (any status, publish
	// time ignored) whose ext_links contain link.
	CountByExtLink(ctx context.Context, model, language, link string) (int, error)
}

// SectionStore returns nil, nil when no section has the title.
type SectionStore interface {
	FindByTitle(ctx context.Context, title, language string) (*domain.Section, error)
}

// TagStore dispenses tags: finds one by title and language or creates it.
type TagStore interface {
	Dispense(ctx context.Context, title, language string) (*domain.Tag, error)
}

type FileDeleter interface {
	Delete(ctx context.Context, file *domain.File) error
}

// FileStore downloads url into storage.
type FileStore interface {
	FileDeleter
	Create(ctx context.Context, url string) (*domain.File, error)
}

type Fetcher interface {
	Get(ctx context.Context, url string) (*httpfetch.Response, error)
}

package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"iter"
	"time"

	"golang.org/x/text/language"

	"content_import/internal/domain"
	"content_import/internal/driver"
)

type ImporterStore interface {
	FindDue(ctx context.Context, now time.Time) ([]domain.Importer, error)
	Save(ctx context.Context, imp *domain.Importer) error
}

type ContentStore interface {
	Save(ctx context.Context, c *domain.Content) error
}

type TagStore interface {
	Dispense(ctx context.Context, title, language string) (*domain.Tag, error)
}

type FileStore interface {
	Delete(ctx context.Context, file *domain.File) error
}

type Drivers interface {
	Get(name string) (driver.Driver, error)
}

// Driver mirrors driver.Driver so a mock can be generated alongside the stores.
type Driver interface {
	Name() string
	Description(lang language.Tag) string
	Schema() driver.Schema
	Fetch(ctx context.Context, opts driver.Options) (iter.Seq2[*domain.Content, error], error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event domain.ImportEvent) error
	Close() error
}

// Package driver defines the fetch-and-map contract implemented by every
// import source, the registry drivers are looked up in, and the candidate
// mapper shared by the feed based drivers.
package driver

import (
	"context"
	"iter"

	"golang.org/x/text/language"

	"content_import/internal/domain"
)

// Driver turns a remote source into candidate content entities.
type Driver interface {
	// Name is the registry key stored in importer records.
	Name() string

	// Description is a human readable label for listings, in lang.
	Description(lang language.Tag) string

	// Schema describes the driver specific options.
	Schema() Schema

	// Fetch validates the target content model and returns a lazy, finite
	// sequence of candidates. The source is only contacted while the sequence
	// is consumed; calling Fetch again starts over. A non-nil error yielded by
	// the sequence ends it.
	Fetch(ctx context.Context, opts Options) (iter.Seq2[*domain.Content, error], error)
}

// RequiredFields must be declared by any content model a driver imports into.
var RequiredFields = []string{
	domain.FieldAuthor,
	domain.FieldStatus,
	domain.FieldLanguage,
	domain.FieldTitle,
	domain.FieldPublishTime,
	domain.FieldExtLinks,
	domain.FieldSection,
}

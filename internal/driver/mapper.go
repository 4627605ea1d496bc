package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"content_import/internal/domain"
)

// Stores bundles the collaborators the mapper needs.
type Stores struct {
	Contents ContentStore
	Sections SectionStore
	Tags     TagStore
	Files    FileStore
}

// Mapper turns entries into candidate content entities.
type Mapper struct {
	stores Stores
	logger *slog.Logger
}

func NewMapper(stores Stores, logger *slog.Logger) *Mapper {
	return &Mapper{stores: stores, logger: logger}
}

// Model loads the target content model and checks it declares RequiredFields.
func (m *Mapper) Model(ctx context.Context, name string) (*domain.ContentModel, error) {
	model, err := m.stores.Contents.Model(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load content model %q: %w", name, err)
	}

	for _, f := range RequiredFields {
		if !model.HasField(f) {
			return nil, fmt.Errorf("%w: model %q doesn't define field %q", domain.ErrSchemaMismatch, name, f)
		}
	}
	return model, nil
}

// Map builds a candidate from e. It returns nil, nil when an entity with the
// same link already exists for the model and language.
func (m *Mapper) Map(ctx context.Context, model *domain.ContentModel, opts Options, e Entry) (*domain.Content, error) {
	if e.Link != "" {
		n, err := m.stores.Contents.CountByExtLink(ctx, model.Name, opts.ContentLanguage, e.Link)
		if err != nil {
			return nil, fmt.Errorf("check duplicate %q: %w", e.Link, err)
		}
		if n > 0 {
			m.logger.Debug("skipping duplicate item", "link", e.Link)
			return nil, nil
		}
	}

	c := domain.NewContent(model)
	c.Author = opts.ContentAuthor
	c.Status = opts.ContentStatus
	c.Language = opts.ContentLanguage
	c.Title = e.Title
	c.PublishTime = e.Published

	if e.Description != "" && c.HasField(domain.FieldDescription) {
		c.Description = StripTags(e.Description)
	}

	section, err := m.section(ctx, opts, e.Categories)
	if err != nil {
		return nil, err
	}
	c.Section = section

	if c.HasField(domain.FieldTags) {
		for _, title := range e.Tags {
			tag, err := m.stores.Tags.Dispense(ctx, title, opts.ContentLanguage)
			if err != nil {
				return nil, fmt.Errorf("dispense tag %q: %w", title, err)
			}
			c.AddTag(*tag)
		}
	}

	if c.HasField(domain.FieldVideoLinks) {
		c.VideoLinks = append(c.VideoLinks, e.VideoLinks...)
	}

	if e.Body != "" && c.HasField(domain.FieldBody) {
		c.Body = e.Body
	}

	// Images embedded in the body win over enclosures.
	if c.HasField(domain.FieldImages) && !strings.Contains(c.Body, "<img") {
		if err := m.attachImages(ctx, c, e.Enclosures); err != nil {
			return nil, err
		}
	}

	if e.Link != "" {
		c.Import.SourceLink = e.Link
		c.Import.SourceDomain = domainOf(e.Link)
		c.ExtLinks = append(c.ExtLinks, e.Link)
	}

	if e.Author != "" {
		c.Import.SourceAuthor = e.Author
		if email, name, ok := ParseAuthor(e.Author); ok {
			c.Import.SourceAuthorEmail = email
			c.Import.SourceAuthorName = name
		}
	}

	return c, nil
}

func (m *Mapper) section(ctx context.Context, opts Options, categories []string) (*domain.Section, error) {
	for _, title := range categories {
		s, err := m.stores.Sections.FindByTitle(ctx, title, opts.ContentLanguage)
		if err != nil {
			return nil, fmt.Errorf("find section %q: %w", title, err)
		}
		if s != nil {
			return s, nil
		}
	}
	return &domain.Section{ID: opts.ContentSection, Language: opts.ContentLanguage}, nil
}

func (m *Mapper) attachImages(ctx context.Context, c *domain.Content, enclosures []Enclosure) error {
	for _, enc := range enclosures {
		if !strings.HasPrefix(enc.Type, "image") || enc.URL == "" {
			continue
		}

		f, err := m.stores.Files.Create(ctx, enc.URL)
		if err != nil {
			return errors.Join(
				fmt.Errorf("create image %q: %w", enc.URL, err),
				ReleaseImages(ctx, m.stores.Files, c),
			)
		}
		c.Images = append(c.Images, *f)
	}
	return nil
}

// ReleaseImages deletes the files attached to c and detaches them.
func ReleaseImages(ctx context.Context, files FileDeleter, c *domain.Content) error {
	var errs []error
	for i := range c.Images {
		if err := files.Delete(ctx, &c.Images[i]); err != nil {
			errs = append(errs, fmt.Errorf("delete image %d: %w", c.Images[i].ID, err))
		}
	}
	c.Images = nil
	return errors.Join(errs...)
}

func domainOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Host
}

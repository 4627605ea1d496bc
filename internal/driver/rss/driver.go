// Package rss implements the RSS 2.0 import driver, including the custom tag
// and full text extensions, Media RSS players and content:encoded bodies.
package rss

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"content_import/internal/domain"
	"content_import/internal/driver"
)

const Name = "rss"

type Driver struct {
	fetcher driver.Fetcher
	mapper  *driver.Mapper
	logger  *slog.Logger
	now     func() time.Time
}

func New(fetcher driver.Fetcher, stores driver.Stores, logger *slog.Logger) *Driver {
	logger = logger.With("driver", Name)
	return &Driver{
		fetcher: fetcher,
		mapper:  driver.NewMapper(stores, logger),
		logger:  logger,
		now:     time.Now,
	}
}

func (d *Driver) Name() string {
	return Name
}

func (d *Driver) Description(lang language.Tag) string {
	return driver.Translate(lang, driver.MsgRSS)
}

func (d *Driver) Schema() driver.Schema {
	return driver.Schema{Fields: []driver.Field{
		{Name: "url", Label: driver.MsgFeedURL, Required: true, Rule: driver.RuleURL},
	}}
}

func (d *Driver) Fetch(ctx context.Context, opts driver.Options) (iter.Seq2[*domain.Content, error], error) {
	if err := d.Schema().Validate(opts.Extra); err != nil {
		return nil, err
	}

	model, err := d.mapper.Model(ctx, opts.ContentModel)
	if err != nil {
		return nil, err
	}

	url := opts.Get("url")

	return func(yield func(*domain.Content, error) bool) {
		resp, err := d.fetcher.Get(ctx, url)
		if err != nil {
			yield(nil, fmt.Errorf("fetch feed: %w", err))
			return
		}
		defer resp.Body.Close()

		for item, err := range NewReader(resp.Body).Items() {
			if err != nil {
				yield(nil, err)
				return
			}

			entry, err := d.entry(item)
			if err != nil {
				yield(nil, err)
				return
			}
			if entry.Link == "" {
				d.logger.Warn("skipping item without link", "title", entry.Title)
				continue
			}

			c, err := d.mapper.Map(ctx, model, opts, entry)
			if err != nil {
				yield(nil, fmt.Errorf("map item %q: %w", entry.Title, err))
				return
			}
			if c == nil {
				continue
			}
			if !yield(c, nil) {
				return
			}
		}
	}, nil
}

func (d *Driver) entry(item *Element) (driver.Entry, error) {
	e := driver.Entry{
		Link:        item.TextOf(NSNone, "link"),
		Title:       item.TextOf(NSNone, "title"),
		Description: item.TextOf(NSNone, "description"),
		Author:      item.TextOf(NSNone, "author"),
		Body:        body(item),
	}

	e.Published = d.now()
	if pub := item.TextOf(NSNone, "pubDate"); pub != "" {
		t, err := ParseRFC822(pub)
		if err != nil {
			return e, fmt.Errorf("item %q: %w", e.Title, err)
		}
		e.Published = t
	}

	for _, c := range item.ChildrenOf(NSNone, "category") {
		e.Categories = append(e.Categories, c.Text)
	}

	for _, t := range item.ChildrenOf(NSCustom, "tag") {
		if t.Text != "" {
			e.Tags = append(e.Tags, t.Text)
		}
	}

	for _, g := range item.ChildrenOf(NSMedia, "group") {
		if p := g.First(NSMedia, "player"); p != nil && p.Attr("url") != "" {
			e.VideoLinks = append(e.VideoLinks, p.Attr("url"))
		}
	}

	for _, enc := range item.ChildrenOf(NSNone, "enclosure") {
		e.Enclosures = append(e.Enclosures, driver.Enclosure{
			URL:  enc.Attr("url"),
			Type: enc.Attr("type"),
		})
	}

	return e, nil
}

// body picks the first non-empty full text variant.
func body(item *Element) string {
	candidates := []string{
		item.TextOf(NSCustom, "fullText"),
		item.TextOf(NSContent, "encoded"),
		item.TextOf(NSYandex, "full-text"),
	}
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// Package feed imports any format the universal gofeed parser understands
// (RSS, Atom and JSON Feed). Custom namespaces beyond Media RSS players are
// not read; use the rss driver for those.
package feed

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"golang.org/x/text/language"

	"content_import/internal/domain"
	"content_import/internal/driver"
)

const Name = "feed"

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
	return driver.Translate(lang, driver.MsgFeed)
}

func (d *Driver) Schema() driver.Schema {
	return driver.Schema{Fields: []driver.Field{
		{Name: "url", Label: driver.MsgFeedURL, Required: true, Rule: driver.RuleURL},
	}}
}

// Fetch parses the whole document on first pull, then maps items one by one.
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

		parsed, err := gofeed.NewParser().Parse(resp.Body)
		if err != nil {
			yield(nil, fmt.Errorf("parse feed: %w", err))
			return
		}

		for _, item := range parsed.Items {
			entry := d.entry(item)
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

func (d *Driver) entry(item *gofeed.Item) driver.Entry {
	e := driver.Entry{
		Link:        item.Link,
		Title:       item.Title,
		Description: item.Description,
		Categories:  item.Categories,
		Body:        item.Content,
		Author:      author(item.Authors),
		VideoLinks:  players(item.Extensions),
	}

	if e.Body == "" {
		e.Body = item.Description
	}

	switch {
	case item.PublishedParsed != nil:
		e.Published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		e.Published = *item.UpdatedParsed
	default:
		e.Published = d.now()
	}

	for _, enc := range item.Enclosures {
		e.Enclosures = append(e.Enclosures, driver.Enclosure{URL: enc.URL, Type: enc.Type})
	}
	if item.Image != nil && item.Image.URL != "" && len(e.Enclosures) == 0 {
		e.Enclosures = append(e.Enclosures, driver.Enclosure{URL: item.Image.URL, Type: "image"})
	}

	return e
}

// author renders the first author in the RSS "email (name)" form.
func author(people []*gofeed.Person) string {
	if len(people) == 0 || people[0] == nil {
		return ""
	}
	p := people[0]
	switch {
	case p.Email != "" && p.Name != "":
		return fmt.Sprintf("%s (%s)", p.Email, p.Name)
	case p.Email != "":
		return p.Email
	default:
		return strings.TrimSpace(p.Name)
	}
}

func players(extensions ext.Extensions) []string {
	var links []string
	for _, group := range extensions["media"]["group"] {
		for _, player := range group.Children["player"] {
			if u := player.Attrs["url"]; u != "" {
				links = append(links, u)
				break
			}
		}
	}
	return links
}

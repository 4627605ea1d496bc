package domain

import (
	"slices"
	"time"
)

// Fields a content model may declare.
const (
	FieldAuthor      = "author"
	FieldStatus      = "status"
	FieldLanguage    = "language"
	FieldTitle       = "title"
	FieldPublishTime = "publish_time"
	FieldDescription = "description"
	FieldSection     = "section"
	FieldTags        = "tags"
	FieldVideoLinks  = "video_links"
	FieldBody        = "body"
	FieldImages      = "images"
	FieldExtLinks    = "ext_links"
)

// ContentModel is a content type registered in the host store.
type ContentModel struct {
	Name   string
	Fields []string
}

func (m *ContentModel) HasField(name string) bool {
	return slices.Contains(m.Fields, name)
}

// Provenance records where an imported entity came from.
type Provenance struct {
	SourceLink        string `json:"source_link,omitempty"`
	SourceDomain      string `json:"source_domain,omitempty"`
	SourceAuthor      string `json:"source_author,omitempty"`
	SourceAuthorEmail string `json:"source_author_email,omitempty"`
	SourceAuthorName  string `json:"source_author_name,omitempty"`
}

// Content is a content entity. Drivers build candidates, the runner persists them.
type Content struct {
	ID          int64
	Model       *ContentModel
	Author      string
	Status      string
	Language    string
	Title       string
	PublishTime time.Time
	Description string
	Section     *Section
	Tags        []Tag
	VideoLinks  []string
	Body        string
	Images      []File
	ExtLinks    []string
	Import      Provenance
	CreatedAt   time.Time
}

// NewContent dispenses an empty entity of the given model.
func NewContent(model *ContentModel) *Content {
	return &Content{Model: model}
}

func (c *Content) HasField(name string) bool {
	return c.Model != nil && c.Model.HasField(name)
}

// AddTag attaches a tag unless it is already attached.
func (c *Content) AddTag(tag Tag) {
	for _, t := range c.Tags {
		if t.ID == tag.ID {
			return
		}
	}
	c.Tags = append(c.Tags, tag)
}

package publisher

import (
	"context"
	"log/slog"
	"time"

	"content_import/internal/domain"
)

// ImportMessage is the wire form of domain.ImportEvent.
type ImportMessage struct {
	Event     string         `json:"event"`
	Driver    string         `json:"driver"`
	Content   ContentMessage `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

type ContentMessage struct {
	ID          int64             `json:"id"`
	Model       string            `json:"model"`
	Title       string            `json:"title"`
	Language    string            `json:"language"`
	Status      string            `json:"status"`
	Author      string            `json:"author"`
	PublishTime time.Time         `json:"publish_time"`
	SectionID   int64             `json:"section_id,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Images      []string          `json:"images,omitempty"`
	VideoLinks  []string          `json:"video_links,omitempty"`
	ExtLinks    []string          `json:"ext_links"`
	Import      domain.Provenance `json:"content_import"`
}

func NewImportMessage(event domain.ImportEvent, now time.Time) ImportMessage {
	msg := ImportMessage{
		Event:     domain.EventImported,
		Driver:    event.Driver,
		Timestamp: now,
	}

	c := event.Content
	if c == nil {
		return msg
	}

	msg.Content = ContentMessage{
		ID:          c.ID,
		Title:       c.Title,
		Language:    c.Language,
		Status:      c.Status,
		Author:      c.Author,
		PublishTime: c.PublishTime,
		VideoLinks:  c.VideoLinks,
		ExtLinks:    c.ExtLinks,
		Import:      c.Import,
	}
	if c.Model != nil {
		msg.Content.Model = c.Model.Name
	}
	if c.Section != nil {
		msg.Content.SectionID = c.Section.ID
	}
	for _, t := range c.Tags {
		msg.Content.Tags = append(msg.Content.Tags, t.Title)
	}
	for _, f := range c.Images {
		msg.Content.Images = append(msg.Content.Images, f.PublicURL)
	}

	return msg
}

// Log writes import events to the logger. Used when no broker is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Publish(_ context.Context, event domain.ImportEvent) error {
	msg := NewImportMessage(event, time.Now().UTC())
	l.logger.Info(msg.Event,
		"driver", msg.Driver,
		"content_id", msg.Content.ID,
		"title", msg.Content.Title,
		"source_link", msg.Content.Import.SourceLink,
	)
	return nil
}

func (l *Log) Close() error {
	return nil
}

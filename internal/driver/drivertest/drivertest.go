// Package drivertest provides in-memory collaborators for driver tests.
package drivertest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"content_import/internal/domain"
	"content_import/internal/driver"
	"content_import/internal/httpfetch"
)

// AllFields is a content model declaring every known field.
var AllFields = []string{
	domain.FieldAuthor, domain.FieldStatus, domain.FieldLanguage, domain.FieldTitle,
	domain.FieldPublishTime, domain.FieldDescription, domain.FieldSection, domain.FieldTags,
	domain.FieldVideoLinks, domain.FieldBody, domain.FieldImages, domain.FieldExtLinks,
}

// Memory implements the driver store ports.
type Memory struct {
	mu       sync.Mutex
	nextID   int64
	models   map[string]*domain.ContentModel
	links    map[string][]string
	sections []domain.Section
	tags     []domain.Tag

	Files    []domain.File
	Deleted  []int64
	FileErrs map[string]error
}

func NewMemory() *Memory {
	m := &Memory{
		models:   make(map[string]*domain.ContentModel),
		links:    make(map[string][]string),
		FileErrs: make(map[string]error),
	}
	m.AddModel("article", AllFields...)
	return m
}

func (m *Memory) Stores() driver.Stores {
	return driver.Stores{Contents: m, Sections: m, Tags: m, Files: m}
}

func (m *Memory) AddModel(name string, fields ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[name] = &domain.ContentModel{Name: name, Fields: fields}
}

// AddExisting records an already imported link for model+language.
func (m *Memory) AddExisting(model, language, link string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := model + "|" + language
	m.links[key] = append(m.links[key], link)
}

func (m *Memory) AddSection(title, language string) domain.Section {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s := domain.Section{ID: m.nextID, Title: title, Language: language}
	m.sections = append(m.sections, s)
	return s
}

func (m *Memory) TagTitles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, t := range m.tags {
		out = append(out, t.Title)
	}
	return out
}

func (m *Memory) Model(_ context.Context, name string) (*domain.ContentModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	model, ok := m.models[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return model, nil
}

func (m *Memory) CountByExtLink(_ context.Context, model, language, link string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.links[model+"|"+language] {
		if l == link {
			n++
		}
	}
	return n, nil
}

func (m *Memory) FindByTitle(_ context.Context, title, language string) (*domain.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sections {
		if s.Title == title && s.Language == language {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *Memory) Dispense(_ context.Context, title, language string) (*domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.Title == title && t.Language == language {
			return &t, nil
		}
	}
	m.nextID++
	t := domain.Tag{ID: m.nextID, Title: title, Language: language}
	m.tags = append(m.tags, t)
	return &t, nil
}

func (m *Memory) Create(_ context.Context, url string) (*domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FileErrs[url]; err != nil {
		return nil, err
	}
	m.nextID++
	f := domain.File{ID: m.nextID, SourceURL: url, Backend: "memory", Key: fmt.Sprintf("file-%d", m.nextID)}
	m.Files = append(m.Files, f)
	return &f, nil
}

func (m *Memory) Delete(_ context.Context, file *domain.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, file.ID)
	m.Files = slices.DeleteFunc(m.Files, func(f domain.File) bool { return f.ID == file.ID })
	return nil
}

// Fetcher serves fixed bodies by URL.
type Fetcher struct {
	mu     sync.Mutex
	Bodies map[string]string
	Calls  int
}

func NewFetcher(bodies map[string]string) *Fetcher {
	return &Fetcher{Bodies: bodies}
}

func (f *Fetcher) Get(_ context.Context, url string) (*httpfetch.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	body, ok := f.Bodies[url]
	if !ok {
		return nil, &httpfetch.StatusError{URL: url, Code: 404}
	}
	return &httpfetch.Response{
		URL:  url,
		Body: io.NopCloser(strings.NewReader(body)),
		Size: int64(len(body)),
	}, nil
}

// Package filestore downloads remote files (feed images) into a storage
// backend and keeps their metadata.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"content_import/internal/domain"
	"content_import/internal/httpfetch"
)

// DefaultMaxSize caps a single download.
const DefaultMaxSize = 20 << 20

type Metadata interface {
	Insert(ctx context.Context, f *domain.File) error
	Delete(ctx context.Context, id int64) error
}

type Fetcher interface {
	Get(ctx context.Context, url string) (*httpfetch.Response, error)
}

type Store struct {
	backend Backend
	meta    Metadata
	fetcher Fetcher
	maxSize int64
	logger  *slog.Logger
}

func New(backend Backend, meta Metadata, fetcher Fetcher, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		meta:    meta,
		fetcher: fetcher,
		maxSize: DefaultMaxSize,
		logger:  logger.With("file_store", backend.Type()),
	}
}

// Create downloads src and stores it under a fresh key.
func (s *Store) Create(ctx context.Context, src string) (*domain.File, error) {
	resp, err := s.fetcher.Get(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", src, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("file %s exceeds %d bytes", src, s.maxSize)
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	key := uuid.NewString() + extension(src, contentType)
	if err := s.backend.Put(ctx, key, data, contentType); err != nil {
		return nil, err
	}

	f := &domain.File{
		Key:         key,
		Backend:     s.backend.Type(),
		SourceURL:   src,
		PublicURL:   s.backend.URL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if err := s.meta.Insert(ctx, f); err != nil {
		return nil, errors.Join(
			fmt.Errorf("insert file metadata: %w", err),
			s.backend.Delete(ctx, key),
		)
	}

	s.logger.Debug("file stored", "key", key, "source", src, "size", f.Size)
	return f, nil
}

func (s *Store) Delete(ctx context.Context, f *domain.File) error {
	if err := s.backend.Delete(ctx, f.Key); err != nil {
		return err
	}
	if f.ID == 0 {
		return nil
	}
	if err := s.meta.Delete(ctx, f.ID); err != nil {
		return fmt.Errorf("delete file metadata %d: %w", f.ID, err)
	}
	return nil
}

func extension(src, contentType string) string {
	if u, err := url.Parse(src); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

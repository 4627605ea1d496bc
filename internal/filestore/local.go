package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"content_import/internal/config"
)

const TypeLocal = "local"

type localBackend struct {
	dir       string
	publicURL string
}

func init() {
	Register(TypeLocal, createLocalBackend)
}

func createLocalBackend(_ context.Context, cfg config.FileStoreConfig) (Backend, error) {
	if cfg.Local.Dir == "" {
		return nil, fmt.Errorf("file_store.local.dir is required")
	}
	return &localBackend{dir: cfg.Local.Dir, publicURL: cfg.Local.PublicURL}, nil
}

func (b *localBackend) Type() string {
	return TypeLocal
}

func (b *localBackend) URL(key string) string {
	return strings.TrimSuffix(b.publicURL, "/") + "/" + key
}

func (b *localBackend) Put(_ context.Context, key string, data []byte, _ string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid file key %q", key)
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(b.dir, key), data, 0o644)
}

func (b *localBackend) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid file key %q", key)
	}
	err := os.Remove(filepath.Join(b.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

package filestore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"content_import/internal/config"
)

// Backend stores objects under flat keys.
type Backend interface {
	Type() string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type Factory func(ctx context.Context, cfg config.FileStoreConfig) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// NewBackend builds the backend selected by cfg.Type.
func NewBackend(ctx context.Context, cfg config.FileStoreConfig) (Backend, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}

	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("unsupported file store type %q", cfg.Type)
	}
	return factory(ctx, cfg)
}

func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && key != "." && key != ".."
}

package filestorage

import (
	"context"
	"errors"
	"fmt"
	"hemnet-images/internal/core/domain"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// BlobFileStorageAdapter реализует BlobStoragePort поверх каталога на диске.
// Каждый ключ - отдельный файл. Подходит для локальных запусков.
type BlobFileStorageAdapter struct {
	dir string
}

// NewBlobFileStorageAdapter создает адаптер и сам каталог, если его нет.
func NewBlobFileStorageAdapter(dir string) (*BlobFileStorageAdapter, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory '%s': %w", dir, err)
	}
	return &BlobFileStorageAdapter{dir: dir}, nil
}

func (a *BlobFileStorageAdapter) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(a.dir, key), nil
}

// Put записывает данные через временный файл, чтобы читатель не увидел половину изображения.
func (a *BlobFileStorageAdapter) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return domain.NewError(domain.KindImageStore, "put "+key, err)
	}
	target, err := a.path(key)
	if err != nil {
		return domain.NewError(domain.KindImageStore, "put "+key, err)
	}

	tmp, err := os.CreateTemp(a.dir, "."+key+".*")
	if err != nil {
		return domain.NewError(domain.KindImageStore, "put "+key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.NewError(domain.KindImageStore, "put "+key, fmt.Errorf("failed to write '%s': %w", tmp.Name(), err))
	}
	if err := tmp.Close(); err != nil {
		return domain.NewError(domain.KindImageStore, "put "+key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return domain.NewError(domain.KindImageStore, "put "+key, err)
	}

	slog.DebugContext(ctx, "FileStorageAdapter: blob saved", slog.String("key", key), slog.String("path", target))
	return nil
}

// Get читает blob целиком.
func (a *BlobFileStorageAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewError(domain.KindImageRetrieval, "get "+key, err)
	}
	target, err := a.path(key)
	if err != nil {
		return nil, domain.NewError(domain.KindImageRetrieval, "get "+key, err)
	}

	data, err := os.ReadFile(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.Errorf(domain.KindImageRetrieval, "get "+key, "blob does not exist")
	}
	if err != nil {
		return nil, domain.NewError(domain.KindImageRetrieval, "get "+key, err)
	}
	return data, nil
}

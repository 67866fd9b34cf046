// Package diskcache is the filesystem implementation of storage.BlobStore,
// used as the local disk cache for rendered binary artifacts.
package diskcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsbattig/share-things-sub002/internal/common"
	"github.com/jsbattig/share-things-sub002/internal/filex"
)

type DiskCache struct {
	root string
}

// New creates the cache directory if needed and returns a store rooted there.
func New(root string) (*DiskCache, error) {
	if err := filex.EnsureDir(root); err != nil {
		return nil, err
	}
	return &DiskCache{root: root}, nil
}

func (d *DiskCache) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(d.root, key), nil
}

func (d *DiskCache) Store(ctx context.Context, key string, data []byte) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (d *DiskCache) Retrieve(ctx context.Context, key string) ([]byte, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", key, common.ErrNotFound)
		}
		return nil, fmt.Errorf("retrieve %s: %w", key, err)
	}
	return data, nil
}

func (d *DiskCache) Delete(ctx context.Context, key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

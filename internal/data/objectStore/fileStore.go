package objectStore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore serves file:// locators from the local disk, optionally jailed under Root.
type FileStore struct {
	Root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root}
}

func (f *FileStore) resolve(loc Locator) (string, error) {
	if f.Root == "" {
		return filepath.Clean(loc.Key), nil
	}
	root := filepath.Clean(f.Root)
	path := filepath.Join(root, loc.Key)
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes %s", loc.Key, f.Root)
	}
	return path, nil
}

func (f *FileStore) Exists(ctx context.Context, loc Locator) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := f.resolve(loc)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (f *FileStore) Get(ctx context.Context, loc Locator) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.resolve(loc)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

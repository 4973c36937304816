package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNoRoot indicates a Directory without a root path.
var ErrNoRoot = errors.New("storage root is not set")

// Storage reports how much data a backing store holds.
type Storage interface {
	Size(ctx context.Context) (int64, error)
}

// Directory is a data store backed by a local directory tree.
type Directory struct {
	Root string
}

// NewDirectory returns a Directory rooted at root.
func NewDirectory(root string) *Directory {
	return &Directory{Root: root}
}

// Size sums the sizes of all regular files below the root. A root that does
// not exist holds nothing.
func (d *Directory) Size(ctx context.Context) (int64, error) {
	if d.Root == "" {
		return 0, ErrNoRoot
	}

	var total int64
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measure %s: %w", d.Root, err)
	}
	return total, nil
}

// Ensure creates the root directory and its parents.
func (d *Directory) Ensure() error {
	if d.Root == "" {
		return ErrNoRoot
	}
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", d.Root, err)
	}
	return nil
}

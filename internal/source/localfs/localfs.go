// Package localfs reads images from a directory tree on local disk.
package localfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/hejijunhao/tagger/internal/model"
	"github.com/hejijunhao/tagger/internal/source"
)

func init() {
	source.Register("localfs", func(cfg source.Config) (source.Source, error) {
		return New(cfg.Path)
	})
}

// Source walks a root directory. Keys are slash-separated paths relative to
// the root.
type Source struct {
	root string
}

// New validates that dir exists and is a directory.
func New(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, model.WrapError(model.ErrConfiguration, "localfs.new", err)
	}
	if !info.IsDir() {
		return nil, model.WrapError(model.ErrConfiguration, "localfs.new",
			fmt.Errorf("%s is not a directory", dir))
	}
	return &Source{root: dir}, nil
}

// List returns image files under the root in lexical order. Hidden
// directories are skipped.
func (s *Source) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if !source.IsImage(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("localfs: list %s: %w", s.root, err)
	}
	slices.Sort(keys)
	return keys, nil
}

// Open opens key relative to the root. Keys cannot escape the root.
func (s *Source) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.OpenInRoot(s.root, filepath.FromSlash(key))
	if err != nil {
		return nil, model.WrapError(model.ErrInput, "localfs.open", err)
	}
	return f, nil
}

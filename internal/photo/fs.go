package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FSStore keeps photos as files below Root.
type FSStore struct {
	Root string
}

func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root}
}

func (s *FSStore) Save(_ context.Context, dir string, data []byte) (string, error) {
	ref, err := cleanRef(newRef(dir))
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.Root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}
	// write to a temp file first so a crash never leaves a half-written photo
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp photo: %w", err)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store photo: %w", err)
	}
	return ref, nil
}

func (s *FSStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	c, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Root, filepath.FromSlash(c)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return f, err
}

func (s *FSStore) Delete(_ context.Context, ref string) error {
	c, err := cleanRef(ref)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.Root, filepath.FromSlash(c)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the refs of every stored photo, sorted.
func (s *FSStore) List(_ context.Context) ([]string, error) {
	refs := []string{}
	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.Root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || d.Name()[0] == '.' {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		refs = append(refs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(refs)
	return refs, nil
}

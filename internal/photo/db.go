package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"immigration/internal/apperr"
	"immigration/internal/repo"
)

// DBStore keeps photos in the photo_blobs table.
type DBStore struct {
	blobs repo.BlobRepository
}

func NewDBStore(blobs repo.BlobRepository) *DBStore {
	return &DBStore{blobs: blobs}
}

func (s *DBStore) Save(ctx context.Context, dir string, data []byte) (string, error) {
	ref, err := cleanRef(newRef(dir))
	if err != nil {
		return "", err
	}
	created, err := s.blobs.CreateIfAbsent(ctx, ref, ContentType, data)
	if err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	if !created {
		return "", fmt.Errorf("store photo: key %s already taken", ref)
	}
	return ref, nil
}

func (s *DBStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	b, err := s.blobs.Get(ctx, ref)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

func (s *DBStore) Delete(ctx context.Context, ref string) error {
	return s.blobs.Delete(ctx, ref)
}

func (s *DBStore) List(ctx context.Context) ([]string, error) {
	return s.blobs.ListKeys(ctx)
}

// Package photo normalises uploaded portraits and stores them either on disk
// under the media root or in the database.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Media sub-directories of travel document photos. Form member photos live in
// model.FormKind.PhotoDir.
const (
	DirDocuments = "travel_documents/photos"
	DirChildren  = "travel_documents/children"
)

const ContentType = "image/jpeg"

var (
	ErrNotImage = errors.New("file is not a supported image")
	ErrTooLarge = errors.New("image is too large")
	ErrNotFound = errors.New("photo not found")
	ErrBadRef   = errors.New("invalid photo reference")
)

// Store keeps normalised photos addressed by a relative slash-separated ref.
type Store interface {
	// Save stores data under dir and returns the new ref.
	Save(ctx context.Context, dir string, data []byte) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Delete removes ref. Missing refs are not an error.
	Delete(ctx context.Context, ref string) error
	List(ctx context.Context) ([]string, error)
}

// Normalize decodes a jpeg, png or gif payload, shrinks it to fit a
// maxPx x maxPx box and re-encodes it as JPEG. maxBytes bounds the upload.
func Normalize(data []byte, maxPx int, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), maxBytes)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if maxPx > 0 {
		b := img.Bounds()
		if b.Dx() > maxPx || b.Dy() > maxPx {
			img = imaging.Fit(img, maxPx, maxPx, imaging.Lanczos)
		}
	}
	return encode(img)
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// newRef returns a fresh ref under dir.
func newRef(dir string) string {
	return path.Join(dir, uuid.NewString()+".jpg")
}

// cleanRef rejects absolute refs and refs escaping the media root.
func cleanRef(ref string) (string, error) {
	c := path.Clean(ref)
	if ref == "" || c == "." || strings.HasPrefix(c, "/") || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: %q", ErrBadRef, ref)
	}
	return c, nil
}

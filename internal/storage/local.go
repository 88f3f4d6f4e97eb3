// Package storage keeps uploaded listing images and identity documents on
// the local filesystem.  Images live under <root>/images and are served
// publicly; documents live under <root>/documents and never are.  Callers
// only ever see paths relative to root, such as "images/1700000000-<uuid>.png".
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Kind selects the subdirectory and the content types accepted for it.
type Kind string

const (
	KindImage    Kind = "images"
	KindDocument Kind = "documents"
)

var allowedTypes = map[Kind][]string{
	KindImage:    {"image/jpeg", "image/png", "image/gif", "image/webp"},
	KindDocument: {"image/jpeg", "image/png", "application/pdf"},
}

var (
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupportedType is returned when the sniffed content type is not
	// allowed for the kind.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrInvalidPath is returned for paths outside the storage root.
	ErrInvalidPath = errors.New("invalid file path")
)

// sniffLen is how much of the upload is inspected to detect its type.
const sniffLen = 3072

// LocalStore implements file storage on the local filesystem.
type LocalStore struct {
	root     string
	maxBytes int64
}

// NewLocalStore creates root/images and root/documents if needed.
func NewLocalStore(root string, maxBytes int64) (*LocalStore, error) {
	for _, k := range []Kind{KindImage, KindDocument} {
		if err := os.MkdirAll(filepath.Join(root, string(k)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", k, err)
		}
	}
	return &LocalStore{root: root, maxBytes: maxBytes}, nil
}

// ImagesDir returns the directory served under /uploads/images.
func (s *LocalStore) ImagesDir() string { return filepath.Join(s.root, string(KindImage)) }

// MaxBytes returns the per-file size limit.
func (s *LocalStore) MaxBytes() int64 { return s.maxBytes }

// Save streams r to a new file of the given kind and returns its relative
// path.  The content type is sniffed from the leading bytes, never taken
// from the client.  Nothing is left on disk when Save fails.
func (s *LocalStore) Save(ctx context.Context, kind Kind, r io.Reader) (string, error) {
	allowed, ok := allowedTypes[kind]
	if !ok {
		return "", fmt.Errorf("unknown storage kind %q", kind)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", ErrUnsupportedType
	}
	mt := mimetype.Detect(head)
	if !mimetype.EqualsAny(mt.String(), allowed...) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString(), mt.Extension())
	rel := string(kind) + "/" + name
	full := filepath.Join(s.root, string(kind), name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	src := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(f, io.LimitReader(src, s.maxBytes+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("failed to write file: %w", err)
	case written > s.maxBytes:
		err = ErrTooLarge
	case closeErr != nil:
		err = fmt.Errorf("failed to write file: %w", closeErr)
	case ctx.Err() != nil:
		err = ctx.Err()
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}
	return rel, nil
}

// Delete removes a file previously returned by Save.  A missing file is
// not an error.
func (s *LocalStore) Delete(ctx context.Context, rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	dir, _ := filepath.Split(clean)
	switch filepath.Clean(dir) {
	case string(KindImage), string(KindDocument):
	default:
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, clean), nil
}

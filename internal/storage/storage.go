// Package storage keeps uploaded play images on local disk and decides
// their keys.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ImageDir is the key prefix of every play image.
const ImageDir = "uploads/plays"

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// IsImageExt reports whether the extension of filename is an accepted
// image type.  The comparison ignores case.
func IsImageExt(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ImageKey names the blob for a play image: the slug of the title, a fresh
// UUID and the uploaded file's extension.  Two uploads of the same title
// never share a key.
func ImageKey(title, filename string) string {
	return fmt.Sprintf("%s/%s-%s%s", ImageDir, slug.Make(title), uuid.New().String(), filepath.Ext(filename))
}

// FileStorage stores blobs by key.
type FileStorage interface {
	Save(key string, data io.Reader) error
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
	Exists(key string) bool
}

type fileStorage struct {
	basePath string
}

// NewFileStorage returns a FileStorage rooted at basePath.
func NewFileStorage(basePath string) FileStorage {
	return &fileStorage{basePath: basePath}
}

func (s *fileStorage) fullPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

// Save writes data to a temp file next to the target and renames it so a
// half-written image is never visible.
func (s *fileStorage) Save(key string, data io.Reader) error {
	full, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), full)
}

func (s *fileStorage) Open(key string) (io.ReadCloser, error) {
	full, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *fileStorage) Delete(key string) error {
	full, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fileStorage) Exists(key string) bool {
	full, err := s.fullPath(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// URL joins the public media prefix and a key.
func URL(mediaURL, key string) string {
	return strings.TrimRight(mediaURL, "/") + "/" + strings.TrimLeft(key, "/")
}

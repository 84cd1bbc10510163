// Package storage stores uploaded chat files and avatars on the local
// filesystem and hands back download URLs.
package storage

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"unihub/internal/models"

	"github.com/google/uuid"
)

const maxUploadBytes = 10 << 20

// FileStore writes uploads under root and serves them from publicURL.
type FileStore struct {
	root      string
	publicURL string
}

// NewFileStore creates the content root if needed.
func NewFileStore(root, publicURL string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FileStore{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Save writes the content under a generated key and returns the download
// URL. The original filename only contributes its extension.
func (f *FileStore) Save(filename, contentType string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" && contentType != "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	key := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(f.root, key))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	n, err := io.Copy(dst, io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		_ = os.Remove(filepath.Join(f.root, key))
		return "", fmt.Errorf("write upload: %w", err)
	}
	if n > maxUploadBytes {
		_ = os.Remove(filepath.Join(f.root, key))
		return "", models.NewValidationError("File exceeds the 10 MB upload limit")
	}

	return f.publicURL + "/" + key, nil
}

// Open returns the stored file for a key. Keys with path separators are
// rejected to prevent traversal.
func (f *FileStore) Open(key string) (*os.File, error) {
	if key == "" || key != path.Base(key) || strings.Contains(key, "..") {
		return nil, models.NewValidationError("Invalid file key")
	}
	file, err := os.Open(filepath.Join(f.root, key))
	if os.IsNotExist(err) {
		return nil, models.NewNotFoundError("file", key)
	}
	return file, err
}

// Root returns the content root directory.
func (f *FileStore) Root() string { return f.root }

// Package storage keeps uploaded documents and generated PDFs on local disk.
// Paths stored in the database are relative to the root directory.
package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrOutsideRoot is returned for paths that resolve outside the storage root
var ErrOutsideRoot = errors.New("path escapes storage root")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Local stores files under a root directory
type Local struct {
	root string
}

// NewLocal creates the root directory if needed
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: root}, nil
}

// Root returns the storage root
func (l *Local) Root() string {
	return l.root
}

// SafeName turns an arbitrary string into a file-name-safe token
func SafeName(name string) string {
	cleaned := strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// Abs resolves a stored relative path, refusing anything outside the root
func (l *Local) Abs(rel string) (string, error) {
	full := filepath.Join(l.root, filepath.FromSlash(rel))
	root, err := filepath.Abs(l.root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return abs, nil
}

// Save writes data to dir/name and returns the relative path
func (l *Local) Save(dir, name string, data []byte) (string, error) {
	rel := filepath.ToSlash(filepath.Join(dir, SafeName(name)))
	abs, err := l.Abs(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return rel, nil
}

// DecodeBase64 accepts raw base64 or a data URI and returns bytes and mime type
func DecodeBase64(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	mimeType := ""
	if strings.HasPrefix(payload, "data:") {
		comma := strings.Index(payload, ",")
		if comma < 0 {
			return nil, "", errors.New("malformed data URI")
		}
		meta := strings.TrimPrefix(payload[:comma], "data:")
		mimeType = strings.TrimSuffix(meta, ";base64")
		payload = payload[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// SaveBase64 decodes payload and stores it under dir. The extension is
// derived from the mime type when name has none.
func (l *Local) SaveBase64(dir, name, payload string) (path, mimeType string, err error) {
	data, mimeType, err := DecodeBase64(payload)
	if err != nil {
		return "", "", err
	}
	if filepath.Ext(name) == "" {
		if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
			name += exts[0]
		}
	}
	path, err = l.Save(dir, name, data)
	return path, mimeType, err
}

// Read returns a stored file
func (l *Local) Read(rel string) ([]byte, error) {
	abs, err := l.Abs(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// Remove deletes a stored file. Missing files are not an error.
func (l *Local) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	abs, err := l.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

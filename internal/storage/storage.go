package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/railconcession/concession_backend/internal/utils"
)

// DocumentKind selects the directory an uploaded document is filed under.
type DocumentKind string

const (
	CasteCertificate DocumentKind = "caste-certificates"
	AadharCard       DocumentKind = "aadhar-cards"
)

// defaultExt is used when the uploaded filename carries no extension.
const defaultExt = ".jpg"

// DocumentStore persists uploaded documents and returns the path recorded on the application.
type DocumentStore interface {
	Save(fh *multipart.FileHeader, kind DocumentKind, name string) (string, error)
	Remove(path string) error
}

// LocalStorage writes documents below basePath/<kind>/.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	for _, kind := range []DocumentKind{CasteCertificate, AadharCard} {
		dir := filepath.Join(basePath, string(kind))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	log.Info().Str("path", basePath).Msg("document storage ready")
	return &LocalStorage{basePath: basePath}, nil
}

// Save copies the upload to basePath/<kind>/<name> and returns that path with
// forward slashes. The file is created exclusively so an existing document is never overwritten.
func (ls *LocalStorage) Save(fh *multipart.FileHeader, kind DocumentKind, name string) (string, error) {
	if fh == nil {
		return "", fmt.Errorf("no file to save")
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid document name %q", name)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(ls.basePath, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	dst := filepath.Join(dir, name)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return filepath.ToSlash(dst), nil
}

// Remove deletes a stored document. Paths outside basePath are refused.
func (ls *LocalStorage) Remove(path string) error {
	if path == "" {
		return nil
	}
	full := filepath.Clean(filepath.FromSlash(path))
	rel, err := filepath.Rel(filepath.Clean(ls.basePath), full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove %s outside storage root", path)
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DocumentName builds "<studentID>_<tag>_<8 hex chars><ext>", taking the
// extension from the original filename.
func DocumentName(studentID, tag, originalFilename string) (string, error) {
	suffix, err := utils.RandomHex(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s_%s%s", sanitize(studentID), tag, suffix, Extension(originalFilename)), nil
}

// Extension returns the lower-cased extension of filename including the dot, or ".jpg" when it has none.
func Extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" || ext == "." {
		return defaultExt
	}
	return ext
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '-'
	}, s)
}

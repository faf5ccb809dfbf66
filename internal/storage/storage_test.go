package storage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a real multipart.FileHeader by round-tripping a form through a request.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestLocalStorageSaveAndRemove(t *testing.T) {
	base := t.TempDir()
	ls, err := NewLocalStorage(base)
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(base, "caste-certificates"))
	assert.DirExists(t, filepath.Join(base, "aadhar-cards"))

	fh := fileHeader(t, "card.pdf", []byte("%PDF-1.4"))
	path, err := ls.Save(fh, AadharCard, "TU4F2222016_aadhar_0a1b2c3d.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(base, "aadhar-cards", "TU4F2222016_aadhar_0a1b2c3d.pdf")), path)

	data, err := os.ReadFile(filepath.FromSlash(path))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = ls.Save(fh, AadharCard, "TU4F2222016_aadhar_0a1b2c3d.pdf")
	assert.Error(t, err, "existing documents are never overwritten")

	require.NoError(t, ls.Remove(path))
	assert.NoFileExists(t, filepath.FromSlash(path))
	assert.NoError(t, ls.Remove(path), "removing twice is not an error")
}

func TestLocalStorageRejectsBadPaths(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = ls.Save(fileHeader(t, "x.png", []byte("x")), CasteCertificate, "../escape.png")
	assert.Error(t, err)

	assert.Error(t, ls.Remove("/etc/passwd"))
	_, err = ls.Save(nil, CasteCertificate, "a.png")
	assert.Error(t, err)
}

func TestDocumentName(t *testing.T) {
	name, err := DocumentName("TU4F2222016", "caste", "Certificate.PNG")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TU4F2222016_caste_[0-9a-f]{8}\.png$`), name)

	name, err = DocumentName("TU/../x", "aadhar", "noext")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TU----x_aadhar_[0-9a-f]{8}\.jpg$`), name)

	a, _ := DocumentName("S1", "aadhar", "a.pdf")
	b, _ := DocumentName("S1", "aadhar", "a.pdf")
	assert.NotEqual(t, a, b)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".pdf", Extension("scan.PDF"))
	assert.Equal(t, ".jpeg", Extension("dir/photo.jpeg"))
	assert.Equal(t, ".jpg", Extension("photo"))
	assert.Equal(t, ".jpg", Extension(""))
}

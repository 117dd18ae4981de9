package attach

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadImage_PNG(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cat.png", pngHeader)

	uri, err := LoadImage(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), uri)
	assert.Equal(t, "image/png", DataURIMime(uri))
	assert.Equal(t, len(pngHeader), DataURISize(uri))
}

func TestLoadImage_SVGByExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "logo.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`))

	uri, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", DataURIMime(uri))
}

func TestLoadImage_Rejects(t *testing.T) {
	dir := t.TempDir()
	textFile := writeFile(t, dir, "notes.txt", []byte("just some notes"))
	fakePNG := writeFile(t, dir, "fake.png", []byte("this is plain text"))

	tests := []struct {
		name    string
		path    string
		notImg  bool
	}{
		{"text file", textFile, true},
		{"text with image extension", fakePNG, true},
		{"directory", dir, false},
		{"missing", filepath.Join(dir, "missing.png"), false},
		{"empty path", "  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadImage(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.notImg, errors.Is(err, ErrNotImage))
		})
	}
}

func TestResolvePath_Home(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ResolvePath("~/pics/a.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "pics", "a.png"), got)
}

func TestValidatePath_Sensitive(t *testing.T) {
	dir := t.TempDir()
	sshDir := filepath.Join(dir, ".ssh")
	require.NoError(t, os.MkdirAll(sshDir, 0755))
	key := writeFile(t, sshDir, "id_rsa", []byte("key"))

	err := ValidatePath(key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sensitive")
}

func TestDataURIHelpers_Malformed(t *testing.T) {
	assert.Empty(t, DataURIMime("not a uri"))
	assert.Empty(t, DataURIMime("data:image/png"))
	assert.Zero(t, DataURISize("data:image/png,raw"))
	assert.Equal(t, "data:text/plain;base64,aGk=", EncodeDataURI("text/plain", []byte("hi")))
}

// internal/attach/image.go
package attach

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotImage is returned for files that are not a supported image type
var ErrNotImage = errors.New("not an image file")

// imageTypes mirrors what an "image/*" file picker offers
var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// LoadImage reads an image file and returns it encoded as a data URI.
// Only image files are accepted; there is no size limit.
func LoadImage(path string) (string, error) {
	absPath, err := ResolvePath(path)
	if err != nil {
		return "", err
	}

	if err := ValidatePath(absPath); err != nil {
		return "", err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", absPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	mime, err := DetectImageType(absPath, data)
	if err != nil {
		return "", err
	}

	return EncodeDataURI(mime, data), nil
}

// EncodeDataURI builds a base64 data URI
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DetectImageType picks the MIME type from content, falling back to the
// extension for formats the sniffer does not know (svg, ico).
func DetectImageType(path string, data []byte) (string, error) {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := imageTypes[ext]; ok {
		// The sniffer reports text for svg; anything binary-looking with
		// an image extension is trusted.
		if ext == ".svg" || ext == ".ico" || !strings.HasPrefix(sniffed, "text/") {
			return mime, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotImage, filepath.Base(path))
}

// ResolvePath expands a leading ~ and makes the path absolute
func ResolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return absPath, nil
}

// ValidatePath checks that the path exists and is not a credential store
func ValidatePath(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	} else if err != nil {
		return fmt.Errorf("cannot access path: %w", err)
	}

	if isSensitivePath(path) {
		return fmt.Errorf("access to sensitive path denied")
	}
	return nil
}

// DataURIMime returns the MIME type of a data URI, or "" if malformed
func DataURIMime(uri string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ""
	}
	mime, _, ok := strings.Cut(rest, ";")
	if !ok {
		return ""
	}
	return mime
}

// DataURISize returns the decoded payload size of a base64 data URI
func DataURISize(uri string) int {
	_, payload, ok := strings.Cut(uri, ";base64,")
	if !ok {
		return 0
	}
	return base64.StdEncoding.DecodedLen(len(payload))
}

func isSensitivePath(path string) bool {
	sensitive := []string{
		"/.ssh/",
		"/.gnupg/",
		"/.aws/",
		"/etc/shadow",
		"/.netrc",
		"id_rsa",
		"id_ed25519",
	}

	lowerPath := strings.ToLower(path)
	for _, s := range sensitive {
		if strings.Contains(lowerPath, s) {
			return true
		}
	}
	return false
}

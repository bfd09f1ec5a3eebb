package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// TokenNotFoundError reports a device token file missing from its
// configured path.
type TokenNotFoundError struct {
	Path string
}

func (e *TokenNotFoundError) Error() string {
	return fmt.Sprintf("reMarkable token not found at %s", e.Path)
}

// ResolveToken returns the device token to authenticate with: the
// directly configured value when present, otherwise the trimmed
// contents of the token file at path.
func ResolveToken(token, path string) (string, error) {
	if token != "" {
		return token, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &TokenNotFoundError{Path: path}
		}
		return "", fmt.Errorf("failed to read token file %s: %w", path, err)
	}

	return strings.TrimSpace(string(data)), nil
}

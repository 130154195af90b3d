package data

import (
	"fmt"
	"strings"
)

// NormalizePath cleans a caller-supplied path into backend key form:
// UTF-8, forward-slash separated, no leading slash, no repeated slashes.
// A trailing slash is preserved as a directory marker.
func NormalizePath(path string) (string, error) {
	if strings.ContainsRune(path, '\\') {
		return "", invalidPath(path, "backslash separator")
	}
	if strings.ContainsRune(path, 0) {
		return "", invalidPath(path, "NUL byte")
	}

	isDir := strings.HasSuffix(path, "/")

	parts := strings.Split(path, "/")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", invalidPath(path, "parent traversal")
		}
		cleaned = append(cleaned, part)
	}

	key := strings.Join(cleaned, "/")
	if isDir && key != "" {
		key += "/"
	}

	return key, nil
}

// IsDirPath reports whether the key carries a directory marker.
func IsDirPath(key string) bool {
	return key == "" || strings.HasSuffix(key, "/")
}

// HasPrefix checks if key falls under the given prefix.
// Both keys should be normalized before calling.
func HasPrefix(key, prefix string) bool {
	// Root matches everything
	if prefix == "" {
		return true
	}

	if key == prefix {
		return true
	}

	return strings.HasPrefix(key, prefix)
}

// BaseName returns the final element of the key, directory markers included.
func BaseName(key string) string {
	key = strings.TrimSuffix(key, "/")
	if idx := strings.LastIndexByte(key, '/'); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

func invalidPath(path, reason string) error {
	return NewError(KindUnexpected, "", path).
		WithCause(fmt.Errorf("invalid path: %s", reason))
}

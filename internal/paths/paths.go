package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// CleanRelative turns an absolute URI path into a slash-separated path
// relative to a served root.
// - The path must start with "/"
// - Any ".." segment rejects the path outright instead of being folded away
// - NUL bytes are rejected
// - Duplicate and trailing slashes and "." segments are removed
// The root itself is returned as "".
func CleanRelative(uriPath string) (string, bool) {
	if !strings.HasPrefix(uriPath, "/") || strings.ContainsRune(uriPath, 0) {
		return "", false
	}
	for _, seg := range strings.Split(uriPath, "/") {
		if seg == ".." {
			return "", false
		}
	}
	rel := strings.TrimPrefix(path.Clean(uriPath), "/")
	return rel, true
}

// Join joins a root directory with a slash-separated relative path.
func Join(root, rel string) string {
	if rel == "" {
		return filepath.Clean(root)
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// CanonicalizePath converts a path to a root-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to root
// - Converts backslashes to forward slashes
func CanonicalizePath(target string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = target
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", err
	}
	absRoot, err := filepath.Abs(rootResolved)
	if err != nil {
		return "", err
	}

	relativePath, err := filepath.Rel(absRoot, absResolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithin checks if a path, after symlink resolution, stays inside root.
func IsWithin(target string, root string) bool {
	canonical, err := CanonicalizePath(target, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

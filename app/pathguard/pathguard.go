// Package pathguard validates user-supplied workspace paths. Resolution
// is purely lexical: no filesystem access, no side effects, so every
// rejection happens before any I/O.
package pathguard

import (
	"fmt"
	"path"
	"strings"

	"sandbox-svc/app/domains"
)

// Resolve joins relativePath onto root and verifies the result stays
// inside root. It rejects empty and absolute inputs up front, then
// normalizes the joined path and re-checks that it is root or a
// descendant of root. Returns the cleaned absolute path on success and
// an error wrapping domains.ErrPathEscape on any containment failure.
func Resolve(root, relativePath string) (string, error) {
	base := path.Clean(strings.TrimSpace(root))
	if base == "" || base == "." || base == "/" {
		return "", fmt.Errorf("invalid workspace root %q", root)
	}

	raw := strings.TrimSpace(relativePath)
	if raw == "" {
		return "", fmt.Errorf("%w: empty path", domains.ErrPathEscape)
	}
	if isAbsolute(raw) {
		return "", fmt.Errorf("%w: absolute path %q", domains.ErrPathEscape, relativePath)
	}

	candidate := path.Clean(path.Join(base, raw))
	if candidate != base && !strings.HasPrefix(candidate, base+"/") {
		return "", fmt.Errorf("%w: %q", domains.ErrPathEscape, relativePath)
	}
	return candidate, nil
}

// Relative resolves relativePath against root and returns the cleaned
// path relative to root ("." for the root itself).
func Relative(root, relativePath string) (string, error) {
	abs, err := Resolve(root, relativePath)
	if err != nil {
		return "", err
	}
	base := path.Clean(strings.TrimSpace(root))
	if abs == base {
		return ".", nil
	}
	return strings.TrimPrefix(abs, base+"/"), nil
}

// isAbsolute reports whether the input names an absolute location in
// any form a container or host path could interpret: rooted slash,
// backslash, or a drive letter.
func isAbsolute(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return true
	}
	if len(p) >= 2 && p[1] == ':' {
		c := p[0]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			return true
		}
	}
	return false
}

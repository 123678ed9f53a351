package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sandbox-svc/app/domains"
	"sandbox-svc/app/pathguard"
)

// DefaultMaxFileSize caps file reads at 10 MiB.
const DefaultMaxFileSize = 10 << 20

// HostFiles implements workspace file operations directly on the host
// filesystem, for deployments where session workspaces are bind-mounted
// directories instead of named volumes. Beyond the lexical path check
// it re-verifies containment against resolved symlinks, since workspace
// content is attacker-writable.
type HostFiles struct {
	maxFileSize int64
}

// NewHostFiles returns a host bridge with the given read cap.
// Non-positive caps fall back to DefaultMaxFileSize.
func NewHostFiles(maxFileSize int64) *HostFiles {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &HostFiles{maxFileSize: maxFileSize}
}

// List returns the entries of a directory inside the workspace.
func (h *HostFiles) List(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) ([]domains.FileEntry, error) {
	abs, err := h.resolve(ws, relativePath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domains.ErrNotADirectory, relativePath)
	}
	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	entries := make([]domains.FileEntry, 0, len(dirEntries))
	for _, e := range dirEntries {
		entryType := domains.FileTypeFile
		if e.IsDir() {
			entryType = domains.FileTypeDirectory
		}
		entries = append(entries, domains.FileEntry{Name: e.Name(), Type: entryType})
	}
	return entries, nil
}

// Read returns the contents of a regular file inside the workspace.
func (h *HostFiles) Read(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) ([]byte, error) {
	abs, err := h.resolve(ws, relativePath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domains.ErrNotAFile, relativePath)
	}
	if info.Size() > h.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", domains.ErrFileTooLarge, relativePath, info.Size())
	}
	return os.ReadFile(abs)
}

// Write creates or overwrites a file, creating parent directories.
func (h *HostFiles) Write(ctx context.Context, ws domains.WorkspaceVolume, relativePath string, content []byte) error {
	abs, err := h.resolve(ws, relativePath)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", domains.ErrNotAFile, relativePath)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	return os.WriteFile(abs, content, 0644)
}

// Delete removes a file or directory tree. Deleting a missing path
// succeeds; deleting the workspace root is refused.
func (h *HostFiles) Delete(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) error {
	abs, err := h.resolve(ws, relativePath)
	if err != nil {
		return err
	}
	if abs == filepath.Clean(ws.RootPath) {
		return domains.ErrRootDelete
	}
	return os.RemoveAll(abs)
}

// MakeDir creates a directory and any missing parents.
func (h *HostFiles) MakeDir(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) error {
	abs, err := h.resolve(ws, relativePath)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return fmt.Errorf("%w: %s", domains.ErrNotADirectory, relativePath)
	}
	return os.MkdirAll(abs, 0755)
}

// Stat returns the size of a regular file.
func (h *HostFiles) Stat(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) (int64, error) {
	abs, err := h.resolve(ws, relativePath)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s", domains.ErrNotAFile, relativePath)
	}
	return info.Size(), nil
}

// resolve applies the lexical containment check, then re-checks the
// nearest existing ancestor with symlinks resolved. A symlink planted
// inside the workspace pointing outside it fails here even though the
// lexical path looked fine.
func (h *HostFiles) resolve(ws domains.WorkspaceVolume, relativePath string) (string, error) {
	if ws.RootPath == "" {
		return "", fmt.Errorf("workspace %s has no host path", ws.Name)
	}
	abs, err := pathguard.Resolve(ws.RootPath, relativePath)
	if err != nil {
		return "", err
	}
	if err := containReal(filepath.Clean(ws.RootPath), abs); err != nil {
		return "", err
	}
	return abs, nil
}

// containReal verifies that abs, with symlinks resolved, still lives
// under root. For not-yet-existing paths the nearest existing ancestor
// is checked instead.
func containReal(root, abs string) error {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("resolving workspace root: %w", err)
	}

	probe := abs
	for {
		if _, err := os.Lstat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	realProbe, err := filepath.EvalSymlinks(probe)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if realProbe != realRoot && !strings.HasPrefix(realProbe, realRoot+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %s", domains.ErrPathEscape, abs)
	}
	return nil
}

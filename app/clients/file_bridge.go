package clients

import (
	"context"

	"sandbox-svc/app/domains"
)

// FileBridge defines the interface for workspace file operations. A
// bridge receives paths relative to the workspace root and must reject
// anything that resolves outside it. Missing files surface as errors
// wrapping fs.ErrNotExist regardless of the backing implementation.
type FileBridge interface {
	List(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) ([]domains.FileEntry, error)
	Read(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) ([]byte, error)
	Write(ctx context.Context, ws domains.WorkspaceVolume, relativePath string, content []byte) error
	Delete(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) error
	MakeDir(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) error
	// Stat returns the size in bytes of a regular file.
	Stat(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) (int64, error)
}

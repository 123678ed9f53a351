package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandbox-svc/app/domains"
)

func newTestWorkspace(t *testing.T) domains.WorkspaceVolume {
	t.Helper()
	return domains.WorkspaceVolume{
		Name:     "sandbox_session_test",
		RootPath: t.TempDir(),
	}
}

func TestHostFilesWriteReadRoundTrip(t *testing.T) {
	bridge := NewHostFiles(0)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	require.NoError(t, bridge.Write(ctx, ws, "a.txt", []byte("hello")))

	content, err := bridge.Read(ctx, ws, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestHostFilesWriteCreatesParents(t *testing.T) {
	bridge := NewHostFiles(0)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	require.NoError(t, bridge.Write(ctx, ws, "deep/nested/dir/f.txt", []byte("x")))

	entries, err := bridge.List(ctx, ws, "deep/nested/dir")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f.txt", entries[0].Name)
	assert.Equal(t, domains.FileTypeFile, entries[0].Type)
}

func TestHostFilesListTypes(t *testing.T) {
	bridge := NewHostFiles(0)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	require.NoError(t, bridge.Write(ctx, ws, "file.txt", []byte("x")))
	require.NoError(t, bridge.MakeDir(ctx, ws, "subdir"))

	entries, err := bridge.List(ctx, ws, ".")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]string{}
	for _, e := range entries {
		byName[e.Name] = e.Type
	}
	assert.Equal(t, domains.FileTypeFile, byName["file.txt"])
	assert.Equal(t, domains.FileTypeDirectory, byName["subdir"])
}

func TestHostFilesMissingPaths(t *testing.T) {
	bridge := NewHostFiles(0)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	_, err := bridge.Read(ctx, ws, "nope.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = bridge.List(ctx, ws, "nodir")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = bridge.Stat(ctx, ws, "nope.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	// rm -rf semantics: deleting a missing path succeeds.
	assert.NoError(t, bridge.Delete(ctx, ws, "nope.txt"))
}

func TestHostFilesTypeMismatches(t *testing.T) {
	bridge := NewHostFiles(0)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	require.NoError(t, bridge.Write(ctx, ws, "f.txt", []byte("x")))
	require.NoError(t, bridge.MakeDir(ctx, ws, "d"))

	_, err := bridge.Read(ctx, ws, "d")
	assert.ErrorIs(t, err, domains.ErrNotAFile)

	_, err = bridge.Stat(ctx, ws, "d")
	assert.ErrorIs(t, err, domains.ErrNotAFile)

	err = bridge.Write(ctx, ws, "d", []byte("x"))
	assert.ErrorIs(t, err, domains.ErrNotAFile)

	_, err = bridge.List(ctx, ws, "f.txt")
	assert.ErrorIs(t, err, domains.ErrNotADirectory)

	err = bridge.MakeDir(ctx, ws, "f.txt")
	assert.ErrorIs(t, err, domains.ErrNotADirectory)
}

func TestHostFilesRejectsEscapes(t *testing.T) {
	bridge := NewHostFiles(0)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	err := bridge.Write(ctx, ws, "../../etc/passwd", []byte("owned"))
	assert.ErrorIs(t, err, domains.ErrPathEscape)

	_, err = bridge.Read(ctx, ws, "../secret")
	assert.ErrorIs(t, err, domains.ErrPathEscape)

	err = bridge.Delete(ctx, ws, "/etc")
	assert.ErrorIs(t, err, domains.ErrPathEscape)
}

func TestHostFilesRejectsSymlinkEscape(t *testing.T) {
	bridge := NewHostFiles(0)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s3cret"), 0644))
	require.NoError(t, os.Symlink(outside, filepath.Join(ws.RootPath, "link")))

	_, err := bridge.Read(ctx, ws, "link/secret.txt")
	assert.ErrorIs(t, err, domains.ErrPathEscape)

	err = bridge.Write(ctx, ws, "link/new.txt", []byte("x"))
	assert.ErrorIs(t, err, domains.ErrPathEscape)
}

func TestHostFilesRootDeleteRefused(t *testing.T) {
	bridge := NewHostFiles(0)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	err := bridge.Delete(ctx, ws, ".")
	assert.ErrorIs(t, err, domains.ErrRootDelete)

	// The workspace itself must still be usable.
	require.NoError(t, bridge.Write(ctx, ws, "still-here.txt", []byte("x")))
}

func TestHostFilesDeleteRecursive(t *testing.T) {
	bridge := NewHostFiles(0)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	require.NoError(t, bridge.Write(ctx, ws, "tree/a/b.txt", []byte("x")))
	require.NoError(t, bridge.Delete(ctx, ws, "tree"))

	_, err := bridge.List(ctx, ws, "tree")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestHostFilesReadCap(t *testing.T) {
	bridge := NewHostFiles(4)
	ws := newTestWorkspace(t)
	ctx := context.Background()

	require.NoError(t, bridge.Write(ctx, ws, "big.txt", []byte("12345")))

	_, err := bridge.Read(ctx, ws, "big.txt")
	assert.ErrorIs(t, err, domains.ErrFileTooLarge)

	size, err := bridge.Stat(ctx, ws, "big.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}

package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"sandbox-svc/app/domains"
	"sandbox-svc/app/executor"
	"sandbox-svc/app/pathguard"
)

// Helper scripts run under /bin/sh -c with the target path (and content)
// supplied as positional arguments, so user input is never interpolated
// into a shell string. The scripts report outcomes through fixed exit
// codes instead of stderr text, which varies across images.
//
//	0 - success
//	2 - path does not exist
//	3 - path exists but has the wrong type
const (
	fileOpExitMissing   = 2
	fileOpExitWrongType = 3

	listScript   = `[ -e "$1" ] || exit 2; [ -d "$1" ] || exit 3; cd -- "$1" && ls -pA`
	readScript   = `[ -e "$1" ] || exit 2; [ -f "$1" ] || exit 3; cat -- "$1"`
	writeScript  = `[ -d "$1" ] && exit 3; mkdir -p -- "$(dirname -- "$1")" && printf %s "$2" | base64 -d > "$1"`
	deleteScript = `rm -rf -- "$1"`
	mkdirScript  = `if [ -e "$1" ] && [ ! -d "$1" ]; then exit 3; fi; mkdir -p -- "$1"`
	statScript   = `[ -e "$1" ] || exit 2; [ -f "$1" ] || exit 3; wc -c < "$1"`
)

// ContainerFilesOptions configures the container-backed file bridge.
type ContainerFilesOptions struct {
	Image       string // helper image, usually the sandbox image
	MaxFileSize int64  // read cap in bytes
}

// ContainerFiles implements workspace file operations by running short
// helper containers against the session volume, for deployments where
// the workspace is a named volume the host cannot see. Paths are
// validated against the in-container workspace root before any
// container is launched.
type ContainerFiles struct {
	exec *executor.ContainerExecutor
	opts ContainerFilesOptions
}

// NewContainerFiles returns a bridge that runs file operations through
// exec. A non-positive read cap falls back to DefaultMaxFileSize.
func NewContainerFiles(exec *executor.ContainerExecutor, opts ContainerFilesOptions) *ContainerFiles {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &ContainerFiles{exec: exec, opts: opts}
}

// List returns the entries of a directory inside the workspace.
func (c *ContainerFiles) List(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) ([]domains.FileEntry, error) {
	res, err := c.run(ctx, ws, listScript, relativePath, 0)
	if err != nil {
		return nil, err
	}
	if err := c.checkExit(res, relativePath, domains.ErrNotADirectory); err != nil {
		return nil, err
	}
	return parseListing(res.Stdout), nil
}

// Read returns the contents of a regular file inside the workspace.
func (c *ContainerFiles) Read(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) ([]byte, error) {
	res, err := c.run(ctx, ws, readScript, relativePath, int(c.opts.MaxFileSize)+1)
	if err != nil {
		return nil, err
	}
	if err := c.checkExit(res, relativePath, domains.ErrNotAFile); err != nil {
		return nil, err
	}
	if res.StdoutTruncated || int64(len(res.Stdout)) > c.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %s", domains.ErrFileTooLarge, relativePath)
	}
	return []byte(res.Stdout), nil
}

// Write creates or overwrites a file, creating parent directories. The
// content travels base64-encoded as a positional argument so arbitrary
// bytes survive the argv boundary.
func (c *ContainerFiles) Write(ctx context.Context, ws domains.WorkspaceVolume, relativePath string, content []byte) error {
	encoded := base64.StdEncoding.EncodeToString(content)
	res, err := c.run(ctx, ws, writeScript, relativePath, 0, encoded)
	if err != nil {
		return err
	}
	return c.checkExit(res, relativePath, domains.ErrNotAFile)
}

// Delete removes a file or directory tree. Deleting a missing path
// succeeds; deleting the workspace root is refused.
func (c *ContainerFiles) Delete(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) error {
	rel, err := pathguard.Relative(executor.WorkspaceMountPath, relativePath)
	if err != nil {
		return err
	}
	if rel == "." {
		return domains.ErrRootDelete
	}
	res, err := c.run(ctx, ws, deleteScript, relativePath, 0)
	if err != nil {
		return err
	}
	return c.checkExit(res, relativePath, nil)
}

// MakeDir creates a directory and any missing parents.
func (c *ContainerFiles) MakeDir(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) error {
	res, err := c.run(ctx, ws, mkdirScript, relativePath, 0)
	if err != nil {
		return err
	}
	return c.checkExit(res, relativePath, domains.ErrNotADirectory)
}

// Stat returns the size of a regular file.
func (c *ContainerFiles) Stat(ctx context.Context, ws domains.WorkspaceVolume, relativePath string) (int64, error) {
	res, err := c.run(ctx, ws, statScript, relativePath, 0)
	if err != nil {
		return 0, err
	}
	if err := c.checkExit(res, relativePath, domains.ErrNotAFile); err != nil {
		return 0, err
	}
	size, err := strconv.ParseInt(strings.TrimSpace(res.Stdout), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected stat output %q: %w", res.Stdout, err)
	}
	return size, nil
}

// run validates the path, then executes one helper script in a fresh
// container mounted on the workspace. Helpers never get network access.
func (c *ContainerFiles) run(ctx context.Context, ws domains.WorkspaceVolume, script, relativePath string, maxOutput int, extraArgs ...string) (domains.ExecutionResult, error) {
	abs, err := pathguard.Resolve(executor.WorkspaceMountPath, relativePath)
	if err != nil {
		return domains.ExecutionResult{}, err
	}

	argv := append([]string{"/bin/sh", "-c", script, "fileop", abs}, extraArgs...)
	req := domains.ExecutionRequest{
		Kind:           domains.KindFileOp,
		Argv:           argv,
		Image:          c.opts.Image,
		NetworkMode:    "none",
		MaxOutputBytes: maxOutput,
	}
	return c.exec.Run(ctx, ws, req)
}

// checkExit maps the helper's exit code to the bridge's error contract.
func (c *ContainerFiles) checkExit(res domains.ExecutionResult, relativePath string, wrongType error) error {
	if res.TimedOut {
		return fmt.Errorf("file operation on %s timed out", relativePath)
	}
	if res.ExitCode == nil {
		return fmt.Errorf("file operation on %s reported no exit code", relativePath)
	}
	switch *res.ExitCode {
	case 0:
		return nil
	case fileOpExitMissing:
		return fmt.Errorf("%s: %w", relativePath, fs.ErrNotExist)
	case fileOpExitWrongType:
		if wrongType != nil {
			return fmt.Errorf("%w: %s", wrongType, relativePath)
		}
	}
	return fmt.Errorf("file operation on %s failed with exit %d: %s", relativePath, *res.ExitCode, strings.TrimSpace(res.Stderr))
}

// parseListing converts ls -pA output into entries; -p marks
// directories with a trailing slash.
func parseListing(out string) []domains.FileEntry {
	lines := strings.Split(out, "\n")
	entries := make([]domains.FileEntry, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "/") {
			entries = append(entries, domains.FileEntry{
				Name: strings.TrimSuffix(line, "/"),
				Type: domains.FileTypeDirectory,
			})
			continue
		}
		entries = append(entries, domains.FileEntry{Name: line, Type: domains.FileTypeFile})
	}
	return entries
}

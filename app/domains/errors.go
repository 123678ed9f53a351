package domains

import "errors"

// Sentinel errors for the execution engine. Handlers map these to HTTP
// status codes with errors.Is; everything else surfaces as an internal
// error.
var (
	// ErrSessionNotFound is returned by operations that require an
	// existing session when the id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned when an execution is attempted against
	// a session that already has one in flight and queueing is disabled.
	ErrSessionBusy = errors.New("session busy: execution already in flight")

	// ErrInvalidRequest is returned when a payload is structurally valid
	// but semantically empty, such as a whitespace-only command.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrPathEscape is returned when a file operation path resolves
	// outside the session workspace. The operation is refused before any
	// storage is touched.
	ErrPathEscape = errors.New("path resolves outside the workspace root")

	// ErrContainerLaunch is returned when the runtime cannot start a
	// container (missing image, engine unreachable). Never retried.
	ErrContainerLaunch = errors.New("container launch failed")

	// ErrResourceLimit is returned when requested or default limits are
	// rejected before or by the runtime.
	ErrResourceLimit = errors.New("resource limit rejected")

	// ErrWorkspaceCreate is returned when the storage backend fails to
	// provision a session workspace.
	ErrWorkspaceCreate = errors.New("workspace creation failed")
)

// File operation errors. These refine the generic not-found/invalid
// cases for the workspace file surface; plain fs.ErrNotExist covers
// missing paths.
var (
	// ErrNotAFile is returned by read and stat when the path names a
	// directory.
	ErrNotAFile = errors.New("path is a directory, not a file")

	// ErrNotADirectory is returned when a directory operation hits an
	// existing regular file.
	ErrNotADirectory = errors.New("path exists and is not a directory")

	// ErrRootDelete is returned for attempts to delete the workspace
	// root itself.
	ErrRootDelete = errors.New("cannot delete the workspace root")

	// ErrFileTooLarge is returned by read when the file exceeds the
	// configured response cap.
	ErrFileTooLarge = errors.New("file exceeds maximum readable size")
)

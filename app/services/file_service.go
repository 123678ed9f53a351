package services

import (
	"context"

	"sandbox-svc/app/clients"
	"sandbox-svc/app/domains"
)

// FileService exposes workspace file operations. Paths are always
// workspace-relative and containment-checked by the bridge before any
// I/O. File operations take the same per-session slot as executions,
// so a workspace is never mutated by a container and a file op at the
// same time.
type FileService struct {
	registry *SessionRegistry
	bridge   clients.FileBridge
}

// NewFileService creates a new file service
func NewFileService(registry *SessionRegistry, bridge clients.FileBridge) *FileService {
	return &FileService{registry: registry, bridge: bridge}
}

// List returns the entries of a workspace directory.
func (s *FileService) List(ctx context.Context, sessionID, relativePath string) ([]domains.FileEntry, error) {
	sess, release, err := leaseSession(ctx, s.registry, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	entries, err := s.bridge.List(ctx, sess.Workspace, relativePath)
	if err != nil {
		return nil, err
	}
	s.registry.Touch(ctx, sessionID)
	return entries, nil
}

// Read returns the raw bytes of a workspace file.
func (s *FileService) Read(ctx context.Context, sessionID, relativePath string) ([]byte, error) {
	sess, release, err := leaseSession(ctx, s.registry, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	content, err := s.bridge.Read(ctx, sess.Workspace, relativePath)
	if err != nil {
		return nil, err
	}
	s.registry.Touch(ctx, sessionID)
	return content, nil
}

// Write creates or overwrites a workspace file, creating parents.
func (s *FileService) Write(ctx context.Context, sessionID, relativePath string, content []byte) error {
	sess, release, err := leaseSession(ctx, s.registry, sessionID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.bridge.Write(ctx, sess.Workspace, relativePath, content); err != nil {
		return err
	}
	s.registry.Touch(ctx, sessionID)
	return nil
}

// Delete removes a workspace file or directory tree. The workspace
// root itself is not deletable; that is what Teardown is for.
func (s *FileService) Delete(ctx context.Context, sessionID, relativePath string) error {
	sess, release, err := leaseSession(ctx, s.registry, sessionID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.bridge.Delete(ctx, sess.Workspace, relativePath); err != nil {
		return err
	}
	s.registry.Touch(ctx, sessionID)
	return nil
}

// MakeDir creates a workspace directory and any missing parents.
func (s *FileService) MakeDir(ctx context.Context, sessionID, relativePath string) error {
	sess, release, err := leaseSession(ctx, s.registry, sessionID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.bridge.MakeDir(ctx, sess.Workspace, relativePath); err != nil {
		return err
	}
	s.registry.Touch(ctx, sessionID)
	return nil
}

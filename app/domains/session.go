package domains

import (
	"regexp"
	"time"
)

// Session status values.
const (
	SessionActive  = "active"
	SessionExpired = "expired"
)

// SessionVolumePrefix is prepended to the sanitized session id to form
// the durable volume name.
const SessionVolumePrefix = "sandbox_session_"

// SessionIDLabel is the label key carrying the original (unsanitized)
// session id on workspace volumes, used to rehydrate the registry.
const SessionIDLabel = "sandbox.session_id"

var volumeNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// SanitizeSessionID reduces a session id to characters that are safe in
// a volume name and caps the result at 50 characters.
func SanitizeSessionID(sessionID string) string {
	sanitized := volumeNameSanitizer.ReplaceAllString(sessionID, "_")
	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	return sanitized
}

// VolumeNameForSession derives the durable workspace name for a session
// id. The mapping is deterministic so workspaces survive restarts.
func VolumeNameForSession(sessionID string) string {
	return SessionVolumePrefix + SanitizeSessionID(sessionID)
}

// WorkspaceVolume identifies one session's durable storage. Name is
// derived deterministically from the session id. RootPath is set only
// in bind mode, where the workspace is a host directory; volume mode
// mounts by Name.
type WorkspaceVolume struct {
	Name     string
	RootPath string
}

// MountSource returns the source the container runtime should mount at
// the workspace path: a host directory in bind mode, a named volume
// otherwise.
func (w WorkspaceVolume) MountSource() string {
	if w.RootPath != "" {
		return w.RootPath
	}
	return w.Name
}

// Session represents a caller-scoped durable workspace identity.
type Session struct {
	ID         string
	Workspace  WorkspaceVolume
	CreatedAt  time.Time
	LastUsedAt time.Time
	Status     string
}

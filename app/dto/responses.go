package dto

import (
	"time"

	"sandbox-svc/app/domains"
)

// ExecutionResultResponse represents the outcome of one run. ExitCode
// is null exactly when TimedOut is true.
type ExecutionResultResponse struct {
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExitCode        *int   `json:"exit_code"`
	TimedOut        bool   `json:"timed_out"`
	DurationMs      int64  `json:"duration_ms"`
	StdoutTruncated bool   `json:"stdout_truncated,omitempty"`
	StderrTruncated bool   `json:"stderr_truncated,omitempty"`
}

// NewExecutionResultResponse converts an execution result
func NewExecutionResultResponse(res domains.ExecutionResult) ExecutionResultResponse {
	return ExecutionResultResponse{
		Stdout:          res.Stdout,
		Stderr:          res.Stderr,
		ExitCode:        res.ExitCode,
		TimedOut:        res.TimedOut,
		DurationMs:      res.DurationMs,
		StdoutTruncated: res.StdoutTruncated,
		StderrTruncated: res.StderrTruncated,
	}
}

// SessionResponse represents one session
type SessionResponse struct {
	SessionID  string    `json:"session_id"`
	Workspace  string    `json:"workspace"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	Status     string    `json:"status"`
}

// NewSessionResponse converts a session
func NewSessionResponse(s domains.Session) SessionResponse {
	return SessionResponse{
		SessionID:  s.ID,
		Workspace:  s.Workspace.Name,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
		Status:     s.Status,
	}
}

// NewSessionListResponse converts a session list
func NewSessionListResponse(sessions []domains.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, NewSessionResponse(s))
	}
	return out
}

// FileEntryResponse represents one directory entry
type FileEntryResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ListFilesResponse represents a directory listing
type ListFilesResponse struct {
	Path    string              `json:"path"`
	Entries []FileEntryResponse `json:"entries"`
}

// NewListFilesResponse converts a directory listing
func NewListFilesResponse(path string, entries []domains.FileEntry) ListFilesResponse {
	out := ListFilesResponse{Path: path, Entries: make([]FileEntryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, FileEntryResponse{Name: e.Name, Type: e.Type})
	}
	return out
}

// StatusResponse represents a plain ok/failed outcome
type StatusResponse struct {
	OK bool `json:"ok"`
}

// BrowserTaskResponse represents a browser task outcome
type BrowserTaskResponse struct {
	Status    string                  `json:"status"`
	Result    string                  `json:"result,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Execution ExecutionResultResponse `json:"execution"`
}

// NewBrowserTaskResponse converts a browser task result
func NewBrowserTaskResponse(res domains.BrowserTaskResult) BrowserTaskResponse {
	return BrowserTaskResponse{
		Status:    res.Status,
		Result:    res.Result,
		Error:     res.Error,
		Execution: NewExecutionResultResponse(res.Execution),
	}
}

// ArtifactResponse represents a workspace artifact reference
type ArtifactResponse struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
}

// NewArtifactResponse converts an artifact reference
func NewArtifactResponse(ref domains.ArtifactRef) ArtifactResponse {
	return ArtifactResponse{Path: ref.Path, SizeBytes: ref.SizeBytes, MimeType: ref.MimeType}
}

// ExecutionRecordResponse represents one history row
type ExecutionRecordResponse struct {
	ExecutionID string    `json:"execution_id"`
	Kind        string    `json:"kind"`
	Command     string    `json:"command"`
	ExitCode    *int      `json:"exit_code"`
	TimedOut    bool      `json:"timed_out"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewExecutionHistoryResponse converts history rows
func NewExecutionHistoryResponse(records []domains.ExecutionRecord) []ExecutionRecordResponse {
	out := make([]ExecutionRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, ExecutionRecordResponse{
			ExecutionID: rec.ExecutionID,
			Kind:        rec.Kind,
			Command:     rec.Command,
			ExitCode:    rec.ExitCode,
			TimedOut:    rec.TimedOut,
			DurationMs:  rec.DurationMs,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return out
}

// TokenResponse represents an issued bearer token
type TokenResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

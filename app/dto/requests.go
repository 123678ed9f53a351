package dto

// ExecuteShellRequest represents a shell execution request
type ExecuteShellRequest struct {
	SessionID      string `json:"session_id" validate:"required"`
	Command        string `json:"command" validate:"required"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	MemoryLimit    string `json:"memory_limit,omitempty"`
}

// ExecuteScriptRequest represents a script execution request
type ExecuteScriptRequest struct {
	SessionID      string `json:"session_id" validate:"required"`
	ScriptBody     string `json:"script_body" validate:"required"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	MemoryLimit    string `json:"memory_limit,omitempty"`
}

// WriteFileRequest represents a file write request. Content is UTF-8
// text unless Encoding is "base64", which carries arbitrary bytes.
type WriteFileRequest struct {
	Path     string `json:"path" validate:"required"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty" validate:"omitempty,oneof=utf8 base64"`
}

// MakeDirectoryRequest represents a directory creation request
type MakeDirectoryRequest struct {
	Path string `json:"path" validate:"required"`
}

// BrowserTaskRequest represents a browser automation request. The
// credential is optional; when absent the server-configured one is
// injected instead. Either way it exists only in the task container's
// environment and is never logged or persisted.
type BrowserTaskRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	Task       string `json:"task" validate:"required"`
	Credential string `json:"credential,omitempty"`
}

// ScreenshotRequest represents a navigate-and-capture request
type ScreenshotRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	URL        string `json:"url" validate:"required,url"`
	Credential string `json:"credential,omitempty"`
}

// TokenRequest represents a session token issue request
type TokenRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

package domains

import (
	"fmt"
	"time"
)

// ExecutionKind is the closed set of request kinds the engine executes.
type ExecutionKind string

const (
	KindShell       ExecutionKind = "shell"
	KindScript      ExecutionKind = "script"
	KindFileOp      ExecutionKind = "file_op"
	KindBrowserTask ExecutionKind = "browser_task"
)

// ExecutionRequest describes one bounded container run. Argv is passed
// to the container entrypoint as a literal vector; the host never
// interprets it through a shell.
type ExecutionRequest struct {
	Kind           ExecutionKind
	Argv           []string
	Env            []string // KEY=VALUE pairs, merged over session defaults
	Image          string   // empty means the configured default
	TimeoutSeconds int
	MemoryLimit    string // go-units form, e.g. "256m"
	NetworkMode    string
	WorkingDir     string
	MaxOutputBytes int // per-stream capture cap override, 0 means the configured default
}

// Validate rejects requests whose kind is outside the closed variant
// set or whose command vector is empty.
func (r ExecutionRequest) Validate() error {
	switch r.Kind {
	case KindShell, KindScript, KindFileOp, KindBrowserTask:
	default:
		return fmt.Errorf("unknown execution kind %q", r.Kind)
	}
	if len(r.Argv) == 0 {
		return fmt.Errorf("empty command vector")
	}
	return nil
}

// ExecutionResult is the terminal outcome of one container run.
// ExitCode is nil exactly when TimedOut is true.
type ExecutionResult struct {
	Stdout          string
	Stderr          string
	ExitCode        *int
	TimedOut        bool
	DurationMs      int64
	StdoutTruncated bool
	StderrTruncated bool
}

// Browser task status values. Success and error come from the in-container
// agent's envelope; timeout and unknown are assigned by the runner.
const (
	TaskStatusSuccess = "success"
	TaskStatusError   = "error"
	TaskStatusTimeout = "timeout"
	TaskStatusUnknown = "unknown"
)

// BrowserTaskResult is the parsed outcome of a browser automation run.
// Raw carries the unparsed stdout when the agent emitted no structured
// envelope.
type BrowserTaskResult struct {
	Status    string
	Result    string
	Error     string
	Raw       string
	Execution ExecutionResult
}

// ArtifactRef points at a binary artifact inside a session workspace,
// fetched separately through the file read path.
type ArtifactRef struct {
	Path      string
	SizeBytes int64
	MimeType  string
}

// ExecutionRecord is the persisted trace of a completed run.
type ExecutionRecord struct {
	ID          int64
	ExecutionID string
	SessionID   string
	Kind        string
	Command     string
	ExitCode    *int
	TimedOut    bool
	DurationMs  int64
	CreatedAt   time.Time
}

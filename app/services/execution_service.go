package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"sandbox-svc/app/domains"
	"sandbox-svc/app/executor"
	"sandbox-svc/app/storage"
	"sandbox-svc/app/utils"
)

// commandSummaryLimit caps the command text persisted with each run.
// History is a trace, not a transcript; full payloads stay out of the
// store.
const commandSummaryLimit = 500

// RunOptions carries the caller-tunable knobs for one run. Zero values
// fall back to the configured defaults; the executor clamps timeouts
// into the allowed range.
type RunOptions struct {
	TimeoutSeconds int
	MemoryLimit    string
}

// ExecutionService coordinates command and browser runs against session
// workspaces. Every run resolves the session, takes its execution slot,
// executes, then refreshes liveness and records the outcome. The
// browser credential configured here is a fallback only; a per-request
// credential always wins, and neither is ever logged or persisted.
type ExecutionService struct {
	registry          *SessionRegistry
	executor          *executor.ContainerExecutor
	browser           *executor.BrowserRunner
	store             *storage.Store
	browserCredential string
}

// NewExecutionService creates a new execution service
func NewExecutionService(registry *SessionRegistry, exec *executor.ContainerExecutor, browser *executor.BrowserRunner, store *storage.Store, browserCredential string) *ExecutionService {
	return &ExecutionService{
		registry:          registry,
		executor:          exec,
		browser:           browser,
		store:             store,
		browserCredential: browserCredential,
	}
}

// ExecuteShell runs a shell command in the session's workspace. The
// command string is handed to /bin/sh inside the container as a single
// argv element; the host never interprets it.
func (s *ExecutionService) ExecuteShell(ctx context.Context, sessionID, command string, opts RunOptions) (domains.ExecutionResult, error) {
	if strings.TrimSpace(command) == "" {
		return domains.ExecutionResult{}, fmt.Errorf("%w: empty command", domains.ErrInvalidRequest)
	}

	sess, release, err := leaseSession(ctx, s.registry, sessionID)
	if err != nil {
		return domains.ExecutionResult{}, err
	}
	defer release()

	req := domains.ExecutionRequest{
		Kind:           domains.KindShell,
		Argv:           []string{"/bin/sh", "-c", command},
		TimeoutSeconds: opts.TimeoutSeconds,
		MemoryLimit:    opts.MemoryLimit,
	}
	res, err := s.executor.Run(ctx, sess.Workspace, req)
	if err != nil {
		return domains.ExecutionResult{}, err
	}

	s.registry.Touch(ctx, sessionID)
	s.record(ctx, sessionID, domains.KindShell, command, res)
	return res, nil
}

// ExecuteScript runs Python source in the session's workspace. The
// code is wrapped in the guarded chart-saving template and travels as
// one literal argv element, like shell commands. Any figure the code
// leaves open lands in the workspace as a PNG.
func (s *ExecutionService) ExecuteScript(ctx context.Context, sessionID, code string, opts RunOptions) (domains.ExecutionResult, error) {
	if strings.TrimSpace(code) == "" {
		return domains.ExecutionResult{}, fmt.Errorf("%w: empty script", domains.ErrInvalidRequest)
	}

	sess, release, err := leaseSession(ctx, s.registry, sessionID)
	if err != nil {
		return domains.ExecutionResult{}, err
	}
	defer release()

	chartFile := "chart-" + utils.GenerateUUID() + ".png"
	req := domains.ExecutionRequest{
		Kind:           domains.KindScript,
		Argv:           []string{"python3", "-c", wrapScript(code, chartFile)},
		TimeoutSeconds: opts.TimeoutSeconds,
		MemoryLimit:    opts.MemoryLimit,
	}
	res, err := s.executor.Run(ctx, sess.Workspace, req)
	if err != nil {
		return domains.ExecutionResult{}, err
	}

	s.registry.Touch(ctx, sessionID)
	s.record(ctx, sessionID, domains.KindScript, code, res)
	return res, nil
}

// RunBrowserTask executes a natural-language browser task against the
// session workspace. An empty credential falls back to the configured
// default; whichever is used exists only in the task container's
// environment and never reaches the logs or the history store.
func (s *ExecutionService) RunBrowserTask(ctx context.Context, sessionID, task, credential string) (domains.BrowserTaskResult, error) {
	sess, release, err := leaseSession(ctx, s.registry, sessionID)
	if err != nil {
		return domains.BrowserTaskResult{}, err
	}
	defer release()

	if credential == "" {
		credential = s.browserCredential
	}
	result, err := s.browser.RunTask(ctx, sess.Workspace, task, credential)
	if err != nil {
		return domains.BrowserTaskResult{}, err
	}

	s.registry.Touch(ctx, sessionID)
	s.record(ctx, sessionID, domains.KindBrowserTask, task, result.Execution)
	return result, nil
}

// CaptureScreenshot navigates to a URL and returns a reference to the
// PNG left in the workspace. The run is recorded even when no artifact
// was produced, so failed captures still show up in history.
func (s *ExecutionService) CaptureScreenshot(ctx context.Context, sessionID, url, credential string) (domains.ArtifactRef, error) {
	sess, release, err := leaseSession(ctx, s.registry, sessionID)
	if err != nil {
		return domains.ArtifactRef{}, err
	}
	defer release()

	if credential == "" {
		credential = s.browserCredential
	}
	ref, result, err := s.browser.CaptureScreenshot(ctx, sess.Workspace, url, credential)
	if result.Status != "" {
		s.registry.Touch(ctx, sessionID)
		s.record(ctx, sessionID, domains.KindBrowserTask, "screenshot "+url, result.Execution)
	}
	if err != nil {
		return domains.ArtifactRef{}, err
	}
	return ref, nil
}

// History returns the most recent runs for an existing session. Unknown
// sessions are an error here; history never creates a workspace.
func (s *ExecutionService) History(ctx context.Context, sessionID string, limit int) ([]domains.ExecutionRecord, error) {
	if _, err := s.registry.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListExecutions(ctx, sessionID, limit)
}

func (s *ExecutionService) record(ctx context.Context, sessionID string, kind domains.ExecutionKind, command string, res domains.ExecutionResult) {
	rec := domains.ExecutionRecord{
		ExecutionID: utils.GenerateUUID(),
		SessionID:   sessionID,
		Kind:        string(kind),
		Command:     summarize(command),
		ExitCode:    res.ExitCode,
		TimedOut:    res.TimedOut,
		DurationMs:  res.DurationMs,
	}
	if err := s.store.RecordExecution(ctx, rec); err != nil {
		log.Printf("executions: failed to record run for session %s: %v", sessionID, err)
	}
}

// summarize caps the persisted command text, cutting on a rune boundary
// so multi-byte input never leaves invalid UTF-8 in the store.
func summarize(command string) string {
	if len(command) <= commandSummaryLimit {
		return command
	}
	cut := commandSummaryLimit
	for cut > 0 && !utf8.RuneStart(command[cut]) {
		cut--
	}
	return command[:cut] + "..."
}

package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sandbox-svc/app/clients"
	"sandbox-svc/app/domains"
	"sandbox-svc/app/utils"
)

// credentialEnvVar is the environment variable the in-container browser
// agent reads its API key from. It exists only for the lifetime of the
// one container running the task.
const credentialEnvVar = "OPENAI_API_KEY"

// screenshotMimeType is the artifact type the capture instruction asks for.
const screenshotMimeType = "image/png"

// BrowserRunnerOptions holds the browser-specific execution defaults.
// Browser containers are the one case that gets outbound network access,
// and they get a longer deadline than plain commands to absorb page
// loads and multi-step interactions.
type BrowserRunnerOptions struct {
	Image          string
	NetworkMode    string
	MemoryLimit    string
	TimeoutSeconds int
}

// BrowserRunner executes natural-language browser tasks in ephemeral
// containers. The task is the container's single entrypoint argument;
// the agent inside reports its outcome as a JSON envelope on the last
// stdout line.
type BrowserRunner struct {
	exec   *ContainerExecutor
	bridge clients.FileBridge
	opts   BrowserRunnerOptions
}

// NewBrowserRunner creates a browser task runner on top of exec. The
// bridge is used to locate artifacts the agent leaves in the workspace.
func NewBrowserRunner(exec *ContainerExecutor, bridge clients.FileBridge, opts BrowserRunnerOptions) *BrowserRunner {
	if opts.NetworkMode == "" {
		opts.NetworkMode = "bridge"
	}
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 300
	}
	return &BrowserRunner{exec: exec, bridge: bridge, opts: opts}
}

// taskEnvelope is the structured outcome the in-container agent prints
// as its final stdout line.
type taskEnvelope struct {
	Status string `json:"status"`
	Result string `json:"result"`
	Error  string `json:"error"`
}

// RunTask executes one browser automation task against the session
// workspace. The credential is injected into this container's
// environment only; it is never written to the workspace, recorded, or
// reused. Callers that have no credential may pass an empty string and
// the agent runs unauthenticated.
func (r *BrowserRunner) RunTask(ctx context.Context, ws domains.WorkspaceVolume, task, credential string) (domains.BrowserTaskResult, error) {
	if strings.TrimSpace(task) == "" {
		return domains.BrowserTaskResult{}, fmt.Errorf("%w: empty task description", domains.ErrInvalidRequest)
	}

	req := domains.ExecutionRequest{
		Kind:           domains.KindBrowserTask,
		Argv:           []string{task},
		Image:          r.opts.Image,
		TimeoutSeconds: r.opts.TimeoutSeconds,
		MemoryLimit:    r.opts.MemoryLimit,
		NetworkMode:    r.opts.NetworkMode,
	}
	if credential != "" {
		req.Env = []string{credentialEnvVar + "=" + credential}
	}

	res, err := r.exec.Run(ctx, ws, req)
	if err != nil {
		return domains.BrowserTaskResult{}, err
	}
	return parseTaskResult(res), nil
}

// CaptureScreenshot runs a navigate-and-capture task and returns a
// reference to the PNG the agent wrote into the workspace. The bytes
// are fetched separately through the file read path. The task result is
// returned alongside the reference whenever the container actually ran,
// so callers can trace the run even when no artifact appeared.
func (r *BrowserRunner) CaptureScreenshot(ctx context.Context, ws domains.WorkspaceVolume, url, credential string) (domains.ArtifactRef, domains.BrowserTaskResult, error) {
	if strings.TrimSpace(url) == "" {
		return domains.ArtifactRef{}, domains.BrowserTaskResult{}, fmt.Errorf("%w: empty screenshot url", domains.ErrInvalidRequest)
	}

	filename := "screenshot-" + utils.GenerateUUID() + ".png"
	task := fmt.Sprintf(
		"Open %s, wait for the page to finish loading, and save a full-page screenshot as %s in the working directory.",
		url, filename,
	)

	result, err := r.RunTask(ctx, ws, task, credential)
	if err != nil {
		return domains.ArtifactRef{}, domains.BrowserTaskResult{}, err
	}

	size, statErr := r.bridge.Stat(ctx, ws, filename)
	if statErr != nil {
		if result.Error != "" {
			return domains.ArtifactRef{}, result, fmt.Errorf("screenshot not produced: %s", result.Error)
		}
		return domains.ArtifactRef{}, result, fmt.Errorf("screenshot not produced: %w", statErr)
	}

	ref := domains.ArtifactRef{
		Path:      filename,
		SizeBytes: size,
		MimeType:  screenshotMimeType,
	}
	return ref, result, nil
}

// parseTaskResult extracts the agent's envelope from the last non-empty
// stdout line, falling back to the raw stream when no structure is
// present.
func parseTaskResult(res domains.ExecutionResult) domains.BrowserTaskResult {
	out := domains.BrowserTaskResult{Raw: res.Stdout, Execution: res}
	if res.TimedOut {
		out.Status = domains.TaskStatusTimeout
		out.Error = "browser task did not finish before the deadline"
		return out
	}

	if line := lastNonEmptyLine(res.Stdout); line != "" {
		var env taskEnvelope
		if err := json.Unmarshal([]byte(line), &env); err == nil && env.Status != "" {
			out.Status = env.Status
			out.Result = env.Result
			out.Error = env.Error
			return out
		}
	}

	out.Status = domains.TaskStatusUnknown
	out.Result = strings.TrimSpace(res.Stdout)
	return out
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

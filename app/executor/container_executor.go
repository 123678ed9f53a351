package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/docker/go-units"

	"sandbox-svc/app/clients"
	"sandbox-svc/app/domains"
	"sandbox-svc/app/utils"
)

// WorkspaceMountPath is where every session workspace lands inside a
// container, regardless of the storage backend.
const WorkspaceMountPath = "/workspace"

// Options holds the executor's defaults and global bounds.
type Options struct {
	Image             string // default container image
	MemoryLimit       string // default memory cap, go-units form
	NetworkMode       string // default network mode
	TimeoutSeconds    int    // default per-run timeout
	MaxTimeoutSeconds int    // hard cap on requested timeouts
	MaxConcurrent     int    // containers allowed in flight at once
	MaxOutputBytes    int    // per-stream capture cap
}

// ContainerExecutor runs one ephemeral container per request. Every
// run, whatever its outcome, leaves no container behind: removal is
// deferred from the moment of creation. A fixed slot pool bounds how
// many containers are in flight across all sessions.
type ContainerExecutor struct {
	runtime clients.RuntimeAdapter
	capture *ResultCapture
	opts    Options
	slots   chan struct{}
}

// NewContainerExecutor creates a new container executor
func NewContainerExecutor(runtime clients.RuntimeAdapter, opts Options) *ContainerExecutor {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 60
	}
	if opts.MaxTimeoutSeconds < opts.TimeoutSeconds {
		opts.MaxTimeoutSeconds = opts.TimeoutSeconds
	}
	return &ContainerExecutor{
		runtime: runtime,
		capture: NewResultCapture(opts.MaxOutputBytes),
		opts:    opts,
		slots:   make(chan struct{}, opts.MaxConcurrent),
	}
}

// Run executes one request inside a fresh container mounted on the
// session workspace and blocks until it finishes, times out, or ctx is
// cancelled. A timeout is a normal outcome: the container is killed and
// the result comes back with TimedOut set and no exit code.
func (e *ContainerExecutor) Run(ctx context.Context, ws domains.WorkspaceVolume, req domains.ExecutionRequest) (domains.ExecutionResult, error) {
	if err := req.Validate(); err != nil {
		return domains.ExecutionResult{}, err
	}

	image := req.Image
	if image == "" {
		image = e.opts.Image
	}
	timeout := e.timeoutFor(req.TimeoutSeconds)
	networkMode := req.NetworkMode
	if networkMode == "" {
		networkMode = e.opts.NetworkMode
	}
	memory := req.MemoryLimit
	if memory == "" {
		memory = e.opts.MemoryLimit
	}
	memoryBytes, err := units.RAMInBytes(memory)
	if err != nil {
		return domains.ExecutionResult{}, fmt.Errorf("%w: invalid memory limit %q: %v", domains.ErrResourceLimit, memory, err)
	}
	workingDir := req.WorkingDir
	if workingDir == "" {
		workingDir = WorkspaceMountPath
	}

	select {
	case e.slots <- struct{}{}:
		defer func() { <-e.slots }()
	case <-ctx.Done():
		return domains.ExecutionResult{}, ctx.Err()
	}

	if err := e.runtime.EnsureImage(ctx, image); err != nil {
		return domains.ExecutionResult{}, err
	}

	spec := clients.LaunchSpec{
		Name:        "sandbox-" + string(req.Kind) + "-" + utils.GenerateUUID(),
		Image:       image,
		Argv:        req.Argv,
		Env:         append(sessionEnv(), req.Env...),
		WorkingDir:  workingDir,
		NetworkMode: networkMode,
		MemoryBytes: memoryBytes,
		MountSource: ws.MountSource(),
		MountTarget: WorkspaceMountPath,
		Labels: map[string]string{
			"sandbox.workspace": ws.Name,
			"sandbox.kind":      string(req.Kind),
		},
	}

	containerID, err := e.runtime.CreateContainer(ctx, spec)
	if err != nil {
		return domains.ExecutionResult{}, err
	}
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.runtime.RemoveContainer(removeCtx, containerID); err != nil {
			log.Printf("executor: failed to remove container %s: %v", containerID, err)
		}
	}()

	if err := e.runtime.StartContainer(ctx, containerID); err != nil {
		return domains.ExecutionResult{}, err
	}

	start := time.Now()
	waitCtx, cancelWait := context.WithTimeout(ctx, timeout)
	defer cancelWait()

	exitCode, waitErr := e.runtime.WaitContainer(waitCtx, containerID)
	elapsed := time.Since(start)

	timedOut := false
	if waitErr != nil {
		switch {
		case waitCtx.Err() != nil && ctx.Err() == nil:
			// Deadline hit while the caller is still waiting.
			timedOut = true
			e.kill(containerID)
		case ctx.Err() != nil:
			e.kill(containerID)
			return domains.ExecutionResult{}, ctx.Err()
		default:
			e.kill(containerID)
			return domains.ExecutionResult{}, fmt.Errorf("%w: %v", domains.ErrContainerLaunch, waitErr)
		}
	}

	// The request context may already be dead; logs and removal run on
	// their own deadlines.
	logsCtx, cancelLogs := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelLogs()
	stdout, stderr, logsErr := e.runtime.ContainerLogs(logsCtx, containerID)
	if logsErr != nil {
		log.Printf("executor: failed to collect logs from %s: %v", containerID, logsErr)
	}

	var exitPtr *int
	if !timedOut && waitErr == nil {
		exitPtr = &exitCode
	}
	capture := e.capture
	if req.MaxOutputBytes > 0 {
		capture = NewResultCapture(req.MaxOutputBytes)
	}
	return capture.Assemble(stdout, stderr, exitPtr, timedOut, elapsed), nil
}

// timeoutFor clamps a requested timeout into the configured bounds.
func (e *ContainerExecutor) timeoutFor(requestedSec int) time.Duration {
	sec := requestedSec
	if sec <= 0 {
		sec = e.opts.TimeoutSeconds
	}
	if sec > e.opts.MaxTimeoutSeconds {
		sec = e.opts.MaxTimeoutSeconds
	}
	return time.Duration(sec) * time.Second
}

func (e *ContainerExecutor) kill(containerID string) {
	killCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.runtime.KillContainer(killCtx, containerID); err != nil {
		log.Printf("executor: failed to kill container %s: %v", containerID, err)
	}
}

// sessionEnv is the base environment every workspace container gets.
// PYTHONUSERBASE keeps pip --user installs inside the workspace so they
// persist across runs of the same session.
func sessionEnv() []string {
	return []string{
		"PYTHONUSERBASE=" + WorkspaceMountPath + "/.local",
		"PATH=" + WorkspaceMountPath + "/.local/bin:/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
	}
}

package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandbox-svc/app/clients"
	"sandbox-svc/app/domains"
)

func testOptions() Options {
	return Options{
		Image:             "sandbox:latest",
		MemoryLimit:       "256m",
		NetworkMode:       "none",
		TimeoutSeconds:    60,
		MaxTimeoutSeconds: 600,
		MaxConcurrent:     10,
	}
}

func testWorkspace() domains.WorkspaceVolume {
	return domains.WorkspaceVolume{Name: "sandbox_session_user-123"}
}

func shellRequest(command string) domains.ExecutionRequest {
	return domains.ExecutionRequest{
		Kind: domains.KindShell,
		Argv: []string{"/bin/sh", "-c", command},
	}
}

func TestRunSuccess(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = "hello\n"
	fake.Stderr = "warn\n"
	fake.ExitCode = 0
	exec := NewContainerExecutor(fake, testOptions())

	res, err := exec.Run(context.Background(), testWorkspace(), shellRequest("echo hello"))
	require.NoError(t, err)

	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "warn\n", res.Stderr)
	assert.False(t, res.StdoutTruncated)

	specs := fake.CreatedSpecs()
	require.Len(t, specs, 1)
	spec := specs[0]
	assert.True(t, strings.HasPrefix(spec.Name, "sandbox-shell-"))
	assert.Equal(t, "sandbox:latest", spec.Image)
	assert.Equal(t, []string{"/bin/sh", "-c", "echo hello"}, spec.Argv)
	assert.Equal(t, "sandbox_session_user-123", spec.MountSource)
	assert.Equal(t, WorkspaceMountPath, spec.MountTarget)
	assert.Equal(t, WorkspaceMountPath, spec.WorkingDir)
	assert.Equal(t, "none", spec.NetworkMode)
	assert.Equal(t, int64(256<<20), spec.MemoryBytes)
	assert.Contains(t, spec.Env, "PYTHONUSERBASE=/workspace/.local")

	// One container in, one container out.
	assert.Len(t, fake.StartedIDs(), 1)
	assert.Len(t, fake.RemovedIDs(), 1)
	assert.Empty(t, fake.KilledIDs())
}

func TestRunNonZeroExit(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.ExitCode = 3
	exec := NewContainerExecutor(fake, testOptions())

	res, err := exec.Run(context.Background(), testWorkspace(), shellRequest("exit 3"))
	require.NoError(t, err, "a failing command is a result, not an error")
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestRunTimeoutKillsAndRemoves(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.HangUntilCancel = true
	exec := NewContainerExecutor(fake, testOptions())

	req := shellRequest("sleep 300")
	req.TimeoutSeconds = 1

	start := time.Now()
	res, err := exec.Run(context.Background(), testWorkspace(), req)
	require.NoError(t, err, "timeout is a normal outcome")

	assert.True(t, res.TimedOut)
	assert.Nil(t, res.ExitCode)
	assert.GreaterOrEqual(t, res.DurationMs, int64(900))
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Len(t, fake.KilledIDs(), 1)
	assert.Len(t, fake.RemovedIDs(), 1)
}

func TestRunCallerCancellation(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.HangUntilCancel = true
	exec := NewContainerExecutor(fake, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := exec.Run(ctx, testWorkspace(), shellRequest("sleep 300"))
	assert.ErrorIs(t, err, context.Canceled)

	// Cancellation still kills and removes the container.
	assert.Len(t, fake.KilledIDs(), 1)
	assert.Len(t, fake.RemovedIDs(), 1)
}

func TestRunCreateFailure(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.CreateErr = errors.New("no such image")
	exec := NewContainerExecutor(fake, testOptions())

	_, err := exec.Run(context.Background(), testWorkspace(), shellRequest("echo hi"))
	require.Error(t, err)
	assert.Empty(t, fake.StartedIDs())
	assert.Empty(t, fake.RemovedIDs(), "nothing was created, nothing to remove")
}

func TestRunStartFailureStillRemoves(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.StartErr = errors.New("engine rejected start")
	exec := NewContainerExecutor(fake, testOptions())

	_, err := exec.Run(context.Background(), testWorkspace(), shellRequest("echo hi"))
	require.Error(t, err)
	assert.Len(t, fake.RemovedIDs(), 1, "a created container is removed even when start fails")
}

func TestRunWaitFailure(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.OnWait = func(ctx context.Context, containerID string) (int, error) {
		return 0, errors.New("daemon connection lost")
	}
	exec := NewContainerExecutor(fake, testOptions())

	_, err := exec.Run(context.Background(), testWorkspace(), shellRequest("echo hi"))
	assert.ErrorIs(t, err, domains.ErrContainerLaunch)
	assert.Len(t, fake.KilledIDs(), 1)
	assert.Len(t, fake.RemovedIDs(), 1)
}

func TestRunRemoveFailureDoesNotMaskResult(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = "fine\n"
	fake.RemoveErr = errors.New("removal conflict")
	exec := NewContainerExecutor(fake, testOptions())

	res, err := exec.Run(context.Background(), testWorkspace(), shellRequest("echo fine"))
	require.NoError(t, err)
	assert.Equal(t, "fine\n", res.Stdout)
}

func TestRunInvalidMemoryLimit(t *testing.T) {
	fake := clients.NewFakeRuntime()
	exec := NewContainerExecutor(fake, testOptions())

	req := shellRequest("echo hi")
	req.MemoryLimit = "tenmegs"

	_, err := exec.Run(context.Background(), testWorkspace(), req)
	assert.ErrorIs(t, err, domains.ErrResourceLimit)
	assert.Empty(t, fake.CreatedSpecs(), "rejected before any container exists")
}

func TestRunInvalidRequest(t *testing.T) {
	fake := clients.NewFakeRuntime()
	exec := NewContainerExecutor(fake, testOptions())

	_, err := exec.Run(context.Background(), testWorkspace(), domains.ExecutionRequest{Kind: "banana", Argv: []string{"x"}})
	assert.Error(t, err)

	_, err = exec.Run(context.Background(), testWorkspace(), domains.ExecutionRequest{Kind: domains.KindShell})
	assert.Error(t, err)
	assert.Empty(t, fake.CreatedSpecs())
}

func TestRunRespectsConcurrencyBound(t *testing.T) {
	fake := clients.NewFakeRuntime()
	opts := testOptions()
	opts.MaxConcurrent = 2
	exec := NewContainerExecutor(fake, opts)

	var inFlight atomic.Int32
	bothRunning := make(chan struct{})
	gate := make(chan struct{})
	fake.OnWait = func(ctx context.Context, containerID string) (int, error) {
		if inFlight.Add(1) == 2 {
			close(bothRunning)
		}
		<-gate
		return 0, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.Run(context.Background(), testWorkspace(), shellRequest("work"))
			assert.NoError(t, err)
		}()
	}

	<-bothRunning
	close(gate)
	wg.Wait()

	assert.Equal(t, 2, fake.MaxRunningSeen())
	assert.Len(t, fake.RemovedIDs(), 5)
}

func TestRunPerRequestOutputCap(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = "0123456789"
	exec := NewContainerExecutor(fake, testOptions())

	req := shellRequest("spam")
	req.MaxOutputBytes = 4

	res, err := exec.Run(context.Background(), testWorkspace(), req)
	require.NoError(t, err)
	assert.Equal(t, "0123", res.Stdout)
	assert.True(t, res.StdoutTruncated)
}

func TestTimeoutClamping(t *testing.T) {
	exec := NewContainerExecutor(clients.NewFakeRuntime(), Options{
		TimeoutSeconds:    60,
		MaxTimeoutSeconds: 600,
	})

	tests := []struct {
		requested int
		want      time.Duration
	}{
		{0, 60 * time.Second},
		{-5, 60 * time.Second},
		{30, 30 * time.Second},
		{600, 600 * time.Second},
		{9999, 600 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exec.timeoutFor(tt.requested), "requested %d", tt.requested)
	}
}

package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandbox-svc/app/clients"
	"sandbox-svc/app/domains"
)

// fakeBridge stubs workspace file access for artifact lookups.
type fakeBridge struct {
	statSize int64
	statErr  error
	statPath string
}

func (b *fakeBridge) List(ctx context.Context, ws domains.WorkspaceVolume, path string) ([]domains.FileEntry, error) {
	return nil, nil
}
func (b *fakeBridge) Read(ctx context.Context, ws domains.WorkspaceVolume, path string) ([]byte, error) {
	return nil, nil
}
func (b *fakeBridge) Write(ctx context.Context, ws domains.WorkspaceVolume, path string, content []byte) error {
	return nil
}
func (b *fakeBridge) Delete(ctx context.Context, ws domains.WorkspaceVolume, path string) error {
	return nil
}
func (b *fakeBridge) MakeDir(ctx context.Context, ws domains.WorkspaceVolume, path string) error {
	return nil
}
func (b *fakeBridge) Stat(ctx context.Context, ws domains.WorkspaceVolume, path string) (int64, error) {
	b.statPath = path
	return b.statSize, b.statErr
}

func newTestRunner(fake *clients.FakeRuntime, bridge clients.FileBridge) *BrowserRunner {
	exec := NewContainerExecutor(fake, testOptions())
	return NewBrowserRunner(exec, bridge, BrowserRunnerOptions{
		Image:       "browser:latest",
		MemoryLimit: "1g",
	})
}

func TestRunTaskParsesEnvelope(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = "starting browser\nnavigating\n" +
		`{"status":"success","result":"Order #42 placed"}` + "\n"
	runner := newTestRunner(fake, &fakeBridge{})

	res, err := runner.RunTask(context.Background(), testWorkspace(), "Place the order", "")
	require.NoError(t, err)

	assert.Equal(t, domains.TaskStatusSuccess, res.Status)
	assert.Equal(t, "Order #42 placed", res.Result)
	assert.Empty(t, res.Error)
	assert.Contains(t, res.Raw, "starting browser")
	require.NotNil(t, res.Execution.ExitCode)
	assert.Equal(t, 0, *res.Execution.ExitCode)
}

func TestRunTaskErrorEnvelope(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = `{"status":"error","error":"login page did not load"}` + "\n"
	fake.ExitCode = 1
	runner := newTestRunner(fake, &fakeBridge{})

	res, err := runner.RunTask(context.Background(), testWorkspace(), "Log in", "")
	require.NoError(t, err)
	assert.Equal(t, domains.TaskStatusError, res.Status)
	assert.Equal(t, "login page did not load", res.Error)
}

func TestRunTaskUnstructuredOutput(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = "Traceback (most recent call last):\n  something broke\n"
	runner := newTestRunner(fake, &fakeBridge{})

	res, err := runner.RunTask(context.Background(), testWorkspace(), "Do the thing", "")
	require.NoError(t, err)
	assert.Equal(t, domains.TaskStatusUnknown, res.Status)
	assert.Contains(t, res.Result, "something broke")
	assert.Equal(t, fake.Stdout, res.Raw)
}

func TestRunTaskContainerShape(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = `{"status":"success"}` + "\n"
	runner := newTestRunner(fake, &fakeBridge{})

	_, err := runner.RunTask(context.Background(), testWorkspace(), "Check the news", "sk-secret")
	require.NoError(t, err)

	specs := fake.CreatedSpecs()
	require.Len(t, specs, 1)
	spec := specs[0]
	assert.Equal(t, "browser:latest", spec.Image)
	assert.Equal(t, []string{"Check the news"}, spec.Argv)
	assert.Equal(t, "bridge", spec.NetworkMode, "browser containers get egress")
	assert.Contains(t, spec.Env, "OPENAI_API_KEY=sk-secret")
	assert.Len(t, fake.RemovedIDs(), 1)
}

func TestRunTaskWithoutCredential(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = `{"status":"success"}` + "\n"
	runner := newTestRunner(fake, &fakeBridge{})

	_, err := runner.RunTask(context.Background(), testWorkspace(), "Check the news", "")
	require.NoError(t, err)

	specs := fake.CreatedSpecs()
	require.Len(t, specs, 1)
	for _, kv := range specs[0].Env {
		assert.False(t, strings.HasPrefix(kv, "OPENAI_API_KEY="), "no credential, no env entry")
	}
}

func TestRunTaskEmptyDescription(t *testing.T) {
	fake := clients.NewFakeRuntime()
	runner := newTestRunner(fake, &fakeBridge{})

	_, err := runner.RunTask(context.Background(), testWorkspace(), "   ", "")
	assert.ErrorIs(t, err, domains.ErrInvalidRequest)
	assert.Empty(t, fake.CreatedSpecs())
}

func TestParseTaskResultTimeout(t *testing.T) {
	res := parseTaskResult(domains.ExecutionResult{TimedOut: true, Stdout: "partial output"})
	assert.Equal(t, domains.TaskStatusTimeout, res.Status)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, "partial output", res.Raw)
}

func TestCaptureScreenshotReturnsArtifact(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = `{"status":"success","result":"captured"}` + "\n"
	bridge := &fakeBridge{statSize: 20480}
	runner := newTestRunner(fake, bridge)

	ref, result, err := runner.CaptureScreenshot(context.Background(), testWorkspace(), "https://example.com", "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref.Path, "screenshot-"))
	assert.True(t, strings.HasSuffix(ref.Path, ".png"))
	assert.Equal(t, int64(20480), ref.SizeBytes)
	assert.Equal(t, "image/png", ref.MimeType)
	assert.Equal(t, ref.Path, bridge.statPath)
	assert.Equal(t, domains.TaskStatusSuccess, result.Status)

	// The instruction names both the target and the artifact.
	specs := fake.CreatedSpecs()
	require.Len(t, specs, 1)
	assert.Contains(t, specs[0].Argv[0], "https://example.com")
	assert.Contains(t, specs[0].Argv[0], ref.Path)
}

func TestCaptureScreenshotMissingArtifact(t *testing.T) {
	fake := clients.NewFakeRuntime()
	fake.Stdout = `{"status":"error","error":"page crashed"}` + "\n"
	bridge := &fakeBridge{statErr: errors.New("no such file")}
	runner := newTestRunner(fake, bridge)

	_, result, err := runner.CaptureScreenshot(context.Background(), testWorkspace(), "https://example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "screenshot not produced")
	assert.Contains(t, err.Error(), "page crashed")
	assert.Equal(t, domains.TaskStatusError, result.Status)
}

func TestCaptureScreenshotEmptyURL(t *testing.T) {
	fake := clients.NewFakeRuntime()
	runner := newTestRunner(fake, &fakeBridge{})

	_, _, err := runner.CaptureScreenshot(context.Background(), testWorkspace(), "", "")
	assert.ErrorIs(t, err, domains.ErrInvalidRequest)
	assert.Empty(t, fake.CreatedSpecs())
}

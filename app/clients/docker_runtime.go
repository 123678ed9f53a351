package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"

	"sandbox-svc/app/domains"
)

// DockerRuntime implements RuntimeAdapter against the local Docker
// daemon. Errors from create and start are classified into the domain
// sentinels so callers never inspect Docker error types themselves.
type DockerRuntime struct {
	cli *client.Client
}

// NewDockerRuntime creates a Docker-backed runtime from the environment
// (DOCKER_HOST et al) and verifies the daemon is reachable.
func NewDockerRuntime(ctx context.Context) (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client init failed: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker daemon unavailable: %w", err)
	}
	return &DockerRuntime{cli: cli}, nil
}

// Ping checks daemon liveness.
func (r *DockerRuntime) Ping(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unavailable: %w", err)
	}
	return nil
}

// EnsureImage makes the image available locally, pulling it on first use.
func (r *DockerRuntime) EnsureImage(ctx context.Context, img string) error {
	if _, err := r.cli.ImageInspect(ctx, img); err == nil {
		return nil
	}
	rc, err := r.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("%w: image %s unavailable: %v", domains.ErrContainerLaunch, img, err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("%w: pulling image %s: %v", domains.ErrContainerLaunch, img, err)
	}
	return nil
}

// CreateContainer creates (but does not start) a container for spec.
func (r *DockerRuntime) CreateContainer(ctx context.Context, spec LaunchSpec) (string, error) {
	cfg := &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Argv,
		WorkingDir: spec.WorkingDir,
		Env:        spec.Env,
		Labels:     spec.Labels,
	}
	hostCfg := &container.HostConfig{
		NetworkMode: container.NetworkMode(spec.NetworkMode),
		SecurityOpt: []string{"no-new-privileges"},
	}
	if spec.MountSource != "" {
		hostCfg.Binds = []string{spec.MountSource + ":" + spec.MountTarget}
	}
	if spec.MemoryBytes > 0 {
		hostCfg.Memory = spec.MemoryBytes
	}

	resp, err := r.cli.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, spec.Name)
	if err != nil {
		if errdefs.IsInvalidParameter(err) {
			return "", fmt.Errorf("%w: %v", domains.ErrResourceLimit, err)
		}
		return "", fmt.Errorf("%w: create: %v", domains.ErrContainerLaunch, err)
	}
	return resp.ID, nil
}

// StartContainer starts a created container.
func (r *DockerRuntime) StartContainer(ctx context.Context, containerID string) error {
	if err := r.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("%w: start: %v", domains.ErrContainerLaunch, err)
	}
	return nil
}

// WaitContainer blocks until the container is no longer running and
// returns its exit code. When ctx expires first the container keeps
// running and ctx's error is returned.
func (r *DockerRuntime) WaitContainer(ctx context.Context, containerID string) (int, error) {
	waitCh, errCh := r.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case resp := <-waitCh:
		return int(resp.StatusCode), nil
	case err := <-errCh:
		return 0, fmt.Errorf("waiting for container: %w", err)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// KillContainer sends SIGKILL. Callers treat failure as best-effort
// since the container may have exited in the meantime.
func (r *DockerRuntime) KillContainer(ctx context.Context, containerID string) error {
	return r.cli.ContainerKill(ctx, containerID, "KILL")
}

// ContainerLogs fetches the full demultiplexed stdout and stderr of a
// stopped container.
func (r *DockerRuntime) ContainerLogs(ctx context.Context, containerID string) ([]byte, []byte, error) {
	rc, err := r.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, nil, fmt.Errorf("fetching logs: %w", err)
	}
	defer rc.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("demuxing logs: %w", err)
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// RemoveContainer force-removes the container. Already-gone is fine.
func (r *DockerRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	err := r.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("removing container: %w", err)
	}
	return nil
}

// CreateVolume creates a named local volume. Creating an existing name
// with the same driver is a no-op on the daemon side, which is what
// makes session workspaces durable across calls.
func (r *DockerRuntime) CreateVolume(ctx context.Context, name string, labels map[string]string) error {
	_, err := r.cli.VolumeCreate(ctx, volume.CreateOptions{
		Name:   name,
		Driver: "local",
		Labels: labels,
	})
	if err != nil {
		return fmt.Errorf("%w: volume %s: %v", domains.ErrWorkspaceCreate, name, err)
	}
	return nil
}

// VolumeExists reports whether a volume with this name is present.
func (r *DockerRuntime) VolumeExists(ctx context.Context, name string) (bool, error) {
	_, err := r.cli.VolumeInspect(ctx, name)
	if err == nil {
		return true, nil
	}
	if client.IsErrNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("inspecting volume %s: %w", name, err)
}

// ListVolumes returns volumes carrying the given label key.
func (r *DockerRuntime) ListVolumes(ctx context.Context, labelKey string) ([]VolumeInfo, error) {
	resp, err := r.cli.VolumeList(ctx, volume.ListOptions{
		Filters: filters.NewArgs(filters.Arg("label", labelKey)),
	})
	if err != nil {
		return nil, fmt.Errorf("listing volumes: %w", err)
	}
	infos := make([]VolumeInfo, 0, len(resp.Volumes))
	for _, v := range resp.Volumes {
		if v == nil {
			continue
		}
		infos = append(infos, VolumeInfo{Name: v.Name, Labels: v.Labels})
	}
	return infos, nil
}

// RemoveVolume force-removes the volume. Already-gone is fine.
func (r *DockerRuntime) RemoveVolume(ctx context.Context, name string) error {
	err := r.cli.VolumeRemove(ctx, name, true)
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("removing volume %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *DockerRuntime) Close() error {
	return r.cli.Close()
}

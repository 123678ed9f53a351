package clients

import (
	"context"
)

// LaunchSpec describes one ephemeral container: the command it runs and
// the limits it runs under. MountSource is either a named volume or a
// host directory; either way it lands on MountTarget inside the
// container.
type LaunchSpec struct {
	Name        string
	Image       string
	Argv        []string
	Env         []string
	WorkingDir  string
	NetworkMode string
	MemoryBytes int64
	MountSource string
	MountTarget string
	Labels      map[string]string
}

// VolumeInfo is the subset of volume metadata the service tracks.
type VolumeInfo struct {
	Name   string
	Labels map[string]string
}

// RuntimeAdapter defines the interface for container runtime operations.
type RuntimeAdapter interface {
	Ping(ctx context.Context) error
	EnsureImage(ctx context.Context, image string) error
	CreateContainer(ctx context.Context, spec LaunchSpec) (string, error)
	StartContainer(ctx context.Context, containerID string) error
	// WaitContainer blocks until the container stops and returns its
	// exit code, or returns early with ctx's error.
	WaitContainer(ctx context.Context, containerID string) (int, error)
	KillContainer(ctx context.Context, containerID string) error
	ContainerLogs(ctx context.Context, containerID string) (stdout, stderr []byte, err error)
	RemoveContainer(ctx context.Context, containerID string) error
	CreateVolume(ctx context.Context, name string, labels map[string]string) error
	VolumeExists(ctx context.Context, name string) (bool, error)
	ListVolumes(ctx context.Context, labelKey string) ([]VolumeInfo, error)
	RemoveVolume(ctx context.Context, name string) error
	Close() error
}

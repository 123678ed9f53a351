package clients

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeRuntime is an in-memory RuntimeAdapter for tests. Outcomes are
// controlled through the exported knobs; every lifecycle call is
// recorded so tests can assert cleanup happened on each exit path.
// Safe for concurrent use.
type FakeRuntime struct {
	// Error injection. Each applies to the correspondingly named call.
	PingErr         error
	EnsureImageErr  error
	CreateErr       error
	StartErr        error
	LogsErr         error
	RemoveErr       error
	CreateVolumeErr error

	// Default run outcome when OnWait is nil.
	ExitCode  int
	Stdout    string
	Stderr    string
	WaitDelay time.Duration
	// HangUntilCancel makes WaitContainer block until ctx is done,
	// simulating a command that outlives its deadline.
	HangUntilCancel bool

	// OnWait, when set, decides the outcome per container.
	OnWait func(ctx context.Context, containerID string) (int, error)
	// OnLogs, when set, supplies per-container output.
	OnLogs func(containerID string, spec LaunchSpec) (stdout, stderr []byte, err error)

	mu         sync.Mutex
	nextID     int
	specs      map[string]LaunchSpec
	created    []LaunchSpec
	started    []string
	killed     []string
	removed    []string
	pulled     []string
	volumes    map[string]map[string]string
	volRemoved []string
	running    int
	maxRunning int
}

// NewFakeRuntime returns an empty fake with no volumes.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{
		specs:   make(map[string]LaunchSpec),
		volumes: make(map[string]map[string]string),
	}
}

func (f *FakeRuntime) Ping(ctx context.Context) error { return f.PingErr }

func (f *FakeRuntime) EnsureImage(ctx context.Context, img string) error {
	if f.EnsureImageErr != nil {
		return f.EnsureImageErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled = append(f.pulled, img)
	return nil
}

func (f *FakeRuntime) CreateContainer(ctx context.Context, spec LaunchSpec) (string, error) {
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("ctr-%d", f.nextID)
	f.specs[id] = spec
	f.created = append(f.created, spec)
	return id, nil
}

func (f *FakeRuntime) StartContainer(ctx context.Context, containerID string) error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, containerID)
	f.running++
	if f.running > f.maxRunning {
		f.maxRunning = f.running
	}
	return nil
}

func (f *FakeRuntime) WaitContainer(ctx context.Context, containerID string) (int, error) {
	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	if f.OnWait != nil {
		return f.OnWait(ctx, containerID)
	}
	if f.HangUntilCancel {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if f.WaitDelay > 0 {
		select {
		case <-time.After(f.WaitDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.ExitCode, nil
}

func (f *FakeRuntime) KillContainer(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, containerID)
	return nil
}

func (f *FakeRuntime) ContainerLogs(ctx context.Context, containerID string) ([]byte, []byte, error) {
	if f.LogsErr != nil {
		return nil, nil, f.LogsErr
	}
	if f.OnLogs != nil {
		f.mu.Lock()
		spec := f.specs[containerID]
		f.mu.Unlock()
		return f.OnLogs(containerID, spec)
	}
	return []byte(f.Stdout), []byte(f.Stderr), nil
}

func (f *FakeRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, containerID)
	return nil
}

func (f *FakeRuntime) CreateVolume(ctx context.Context, name string, labels map[string]string) error {
	if f.CreateVolumeErr != nil {
		return f.CreateVolumeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.volumes[name]; !ok {
		copied := make(map[string]string, len(labels))
		for k, v := range labels {
			copied[k] = v
		}
		f.volumes[name] = copied
	}
	return nil
}

func (f *FakeRuntime) VolumeExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.volumes[name]
	return ok, nil
}

func (f *FakeRuntime) ListVolumes(ctx context.Context, labelKey string) ([]VolumeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var infos []VolumeInfo
	for name, labels := range f.volumes {
		if _, ok := labels[labelKey]; ok {
			infos = append(infos, VolumeInfo{Name: name, Labels: labels})
		}
	}
	return infos, nil
}

func (f *FakeRuntime) RemoveVolume(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.volumes, name)
	f.volRemoved = append(f.volRemoved, name)
	return nil
}

func (f *FakeRuntime) Close() error { return nil }

// CreatedSpecs returns every LaunchSpec passed to CreateContainer.
func (f *FakeRuntime) CreatedSpecs() []LaunchSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LaunchSpec(nil), f.created...)
}

// SpecFor returns the LaunchSpec a container was created with.
func (f *FakeRuntime) SpecFor(containerID string) LaunchSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.specs[containerID]
}

// VolumeNames returns the names of all volumes currently present.
func (f *FakeRuntime) VolumeNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.volumes))
	for name := range f.volumes {
		names = append(names, name)
	}
	return names
}

// SeedVolume registers a volume as if it already existed, for
// rehydration tests.
func (f *FakeRuntime) SeedVolume(name string, labels map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	f.volumes[name] = copied
}

// StartedIDs returns the ids passed to StartContainer.
func (f *FakeRuntime) StartedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// KilledIDs returns the ids passed to KillContainer.
func (f *FakeRuntime) KilledIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.killed...)
}

// RemovedIDs returns the ids passed to RemoveContainer.
func (f *FakeRuntime) RemovedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

// RemovedVolumes returns the names passed to RemoveVolume.
func (f *FakeRuntime) RemovedVolumes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.volRemoved...)
}

// MaxRunningSeen reports the highest number of containers that were
// started and not yet finished waiting at any single moment.
func (f *FakeRuntime) MaxRunningSeen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxRunning
}

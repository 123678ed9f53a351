package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"sandbox-svc/app/clients"
	"sandbox-svc/app/domains"
	"sandbox-svc/app/storage"
)

// Workspace deployment modes. In volume mode each session lives in a
// Docker named volume the host never touches directly; in bind mode it
// is a host directory under WorkspaceRoot, visible to both the host and
// the containers mounting it.
const (
	WorkspaceModeVolume = "volume"
	WorkspaceModeBind   = "bind"
)

// RegistryOptions configures session storage and scheduling behavior.
type RegistryOptions struct {
	Mode          string
	WorkspaceRoot string // bind mode base directory
	QueueOnBusy   bool   // queue concurrent work per session instead of rejecting
	IdleHours     int    // sessions idle longer than this report expired; 0 disables
}

// SessionRegistry owns the session id to workspace mapping and the
// per-session execution locks. Workspace naming is deterministic, so a
// session survives process restarts; the in-memory table is rebuilt on
// boot from the durable volumes plus the metadata store.
type SessionRegistry struct {
	runtime clients.RuntimeAdapter
	store   *storage.Store
	opts    RegistryOptions

	mu       sync.RWMutex
	sessions map[string]*domains.Session
	locks    *sessionLocks
}

// NewSessionRegistry creates an empty registry. Call Rehydrate before
// serving requests so sessions from earlier process lifetimes reappear.
func NewSessionRegistry(runtime clients.RuntimeAdapter, store *storage.Store, opts RegistryOptions) *SessionRegistry {
	if opts.Mode == "" {
		opts.Mode = WorkspaceModeVolume
	}
	return &SessionRegistry{
		runtime:  runtime,
		store:    store,
		opts:     opts,
		sessions: make(map[string]*domains.Session),
		locks:    newSessionLocks(),
	}
}

// Rehydrate rebuilds the registry from durable state. Volume mode
// trusts the labelled volumes as the source of truth and merges stored
// timestamps; rows whose volume has been reclaimed externally are
// dropped. Bind mode trusts the store, since plain directories carry no
// labels; missing directories are recreated on next use.
func (r *SessionRegistry) Rehydrate(ctx context.Context) error {
	rows, err := r.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("loading session records: %w", err)
	}
	byID := make(map[string]storage.SessionRow, len(rows))
	for _, row := range rows {
		byID[row.SessionID] = row
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.Mode == WorkspaceModeBind {
		for id, row := range byID {
			r.sessions[id] = &domains.Session{
				ID: id,
				Workspace: domains.WorkspaceVolume{
					Name:     row.VolumeName,
					RootPath: filepath.Join(r.opts.WorkspaceRoot, row.VolumeName),
				},
				CreatedAt:  row.CreatedAt,
				LastUsedAt: row.LastUsedAt,
				Status:     domains.SessionActive,
			}
		}
		log.Printf("registry: rehydrated %d sessions from store", len(r.sessions))
		return nil
	}

	vols, err := r.runtime.ListVolumes(ctx, domains.SessionIDLabel)
	if err != nil {
		return fmt.Errorf("listing workspace volumes: %w", err)
	}

	seen := make(map[string]bool, len(vols))
	for _, vol := range vols {
		id := vol.Labels[domains.SessionIDLabel]
		if id == "" {
			continue
		}
		seen[id] = true

		now := time.Now()
		sess := &domains.Session{
			ID:         id,
			Workspace:  domains.WorkspaceVolume{Name: vol.Name},
			CreatedAt:  now,
			LastUsedAt: now,
			Status:     domains.SessionActive,
		}
		if row, ok := byID[id]; ok {
			sess.CreatedAt = row.CreatedAt
			sess.LastUsedAt = row.LastUsedAt
		} else if err := r.store.UpsertSession(ctx, id, vol.Name); err != nil {
			log.Printf("registry: failed to record rehydrated session %s: %v", id, err)
		}
		r.sessions[id] = sess
	}

	for id := range byID {
		if seen[id] {
			continue
		}
		// The workspace volume is gone, so the session is too.
		if err := r.store.DeleteSession(ctx, id); err != nil {
			log.Printf("registry: failed to drop stale session record %s: %v", id, err)
		}
	}

	log.Printf("registry: rehydrated %d sessions from volumes", len(r.sessions))
	return nil
}

// ResolveOrCreate returns the session for an id, creating its workspace
// on first reference. Repeated calls with the same id resolve to the
// same underlying storage. A missing session is never an error here;
// only storage backend failures are.
func (r *SessionRegistry) ResolveOrCreate(ctx context.Context, sessionID string) (domains.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domains.Session{}, fmt.Errorf("session id must not be empty")
	}

	r.mu.RLock()
	if sess, ok := r.sessions[sessionID]; ok {
		out := *sess
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	// Provisioning is idempotent, so two concurrent first references
	// both succeed and land on the same storage.
	ws, err := r.provision(ctx, sessionID)
	if err != nil {
		return domains.Session{}, err
	}
	if err := r.store.UpsertSession(ctx, sessionID, ws.Name); err != nil {
		return domains.Session{}, fmt.Errorf("%w: recording session %s: %v", domains.ErrWorkspaceCreate, sessionID, err)
	}

	now := time.Now()
	r.mu.Lock()
	if existing, ok := r.sessions[sessionID]; ok {
		out := *existing
		r.mu.Unlock()
		return out, nil
	}
	sess := &domains.Session{
		ID:         sessionID,
		Workspace:  ws,
		CreatedAt:  now,
		LastUsedAt: now,
		Status:     domains.SessionActive,
	}
	r.sessions[sessionID] = sess
	out := *sess
	r.mu.Unlock()

	log.Printf("registry: created session %s workspace=%s", sessionID, ws.Name)
	return out, nil
}

// Get returns an existing session or ErrSessionNotFound.
func (r *SessionRegistry) Get(ctx context.Context, sessionID string) (domains.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return domains.Session{}, fmt.Errorf("%w: %s", domains.ErrSessionNotFound, sessionID)
	}
	out := *sess
	out.Status = statusFor(out.LastUsedAt, r.opts.IdleHours)
	return out, nil
}

// Touch refreshes the session's last-used time in memory and in the
// store. Persistence failures are logged, not surfaced; the in-memory
// time is what liveness decisions read.
func (r *SessionRegistry) Touch(ctx context.Context, sessionID string) {
	now := time.Now()
	r.mu.Lock()
	if sess, ok := r.sessions[sessionID]; ok {
		sess.LastUsedAt = now
		sess.Status = domains.SessionActive
	}
	r.mu.Unlock()

	if err := r.store.TouchSession(ctx, sessionID); err != nil {
		log.Printf("registry: failed to persist last-used time for %s: %v", sessionID, err)
	}
}

// List returns all known sessions, most recently used first.
func (r *SessionRegistry) List(ctx context.Context) []domains.Session {
	r.mu.RLock()
	out := make([]domains.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		c := *sess
		c.Status = statusFor(c.LastUsedAt, r.opts.IdleHours)
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastUsedAt.After(out[j].LastUsedAt) })
	return out
}

// Teardown removes the session's storage and registry entry. It waits
// for any in-flight execution first; nothing may run on a workspace
// while its storage is being removed. A later ResolveOrCreate with the
// same id starts over with a fresh, empty workspace.
func (r *SessionRegistry) Teardown(ctx context.Context, sessionID string) error {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	var ws domains.WorkspaceVolume
	if ok {
		ws = sess.Workspace
	}
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domains.ErrSessionNotFound, sessionID)
	}

	release, err := r.locks.acquire(ctx, sessionID, true)
	if err != nil {
		return err
	}
	defer release()

	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if r.opts.Mode == WorkspaceModeBind {
		if err := os.RemoveAll(ws.RootPath); err != nil {
			return fmt.Errorf("removing workspace directory %s: %w", ws.RootPath, err)
		}
	} else if err := r.runtime.RemoveVolume(ctx, ws.Name); err != nil {
		return err
	}

	if err := r.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("removing session record %s: %w", sessionID, err)
	}

	r.locks.drop(sessionID)
	log.Printf("registry: tore down session %s workspace=%s", sessionID, ws.Name)
	return nil
}

// AcquireExecution takes the session's execution slot, enforcing at
// most one in-flight container or file operation per session. Depending
// on configuration a busy session either queues the caller in FIFO
// order or fails fast with ErrSessionBusy.
func (r *SessionRegistry) AcquireExecution(ctx context.Context, sessionID string) (func(), error) {
	return r.locks.acquire(ctx, sessionID, r.opts.QueueOnBusy)
}

// leaseSession resolves the session and takes its execution slot. Both
// container runs and workspace file operations go through this, so a
// session's workspace is only ever mutated by one holder at a time.
func leaseSession(ctx context.Context, reg *SessionRegistry, sessionID string) (domains.Session, func(), error) {
	sess, err := reg.ResolveOrCreate(ctx, sessionID)
	if err != nil {
		return domains.Session{}, nil, err
	}
	release, err := reg.AcquireExecution(ctx, sessionID)
	if err != nil {
		return domains.Session{}, nil, err
	}
	return sess, release, nil
}

// provision makes the durable workspace exist, idempotently.
func (r *SessionRegistry) provision(ctx context.Context, sessionID string) (domains.WorkspaceVolume, error) {
	name := domains.VolumeNameForSession(sessionID)

	if r.opts.Mode == WorkspaceModeBind {
		root := filepath.Join(r.opts.WorkspaceRoot, name)
		if err := os.MkdirAll(root, 0755); err != nil {
			return domains.WorkspaceVolume{}, fmt.Errorf("%w: workspace directory %s: %v", domains.ErrWorkspaceCreate, root, err)
		}
		return domains.WorkspaceVolume{Name: name, RootPath: root}, nil
	}

	labels := map[string]string{domains.SessionIDLabel: sessionID}
	if err := r.runtime.CreateVolume(ctx, name, labels); err != nil {
		return domains.WorkspaceVolume{}, err
	}
	return domains.WorkspaceVolume{Name: name}, nil
}

func statusFor(lastUsed time.Time, idleHours int) string {
	if idleHours > 0 && time.Since(lastUsed) > time.Duration(idleHours)*time.Hour {
		return domains.SessionExpired
	}
	return domains.SessionActive
}

package build

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Artifact is what a successful pipeline run leaves behind. Dispose releases
// whatever the artifact holds (loaded modules, caches, watchers).
type Artifact interface {
	Dispose(ctx context.Context) error
}

// Handle is a versioned reference to an activated Artifact.
type Handle struct {
	ID          string
	Version     uint64
	Artifact    Artifact
	ActivatedAt time.Time
}

// Registry holds at most one active Handle. Versions increase with every
// activation.
type Registry struct {
	mu      sync.Mutex
	active  *Handle
	version uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Active returns the current handle, if any.
func (r *Registry) Active() (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != nil
}

// Version returns the version of the last activation (zero when none).
func (r *Registry) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// Teardown disposes the active handle and clears it. It reports whether a
// handle existed. The handle is cleared even when Dispose fails.
func (r *Registry) Teardown(ctx context.Context) (bool, error) {
	r.mu.Lock()
	h := r.active
	r.active = nil
	r.mu.Unlock()
	if h == nil {
		return false, nil
	}
	if h.Artifact == nil {
		return true, nil
	}
	return true, h.Artifact.Dispose(ctx)
}

// Activate makes a the active artifact under a new version. A handle that is
// still active is disposed first; its dispose error is returned alongside the
// new handle.
func (r *Registry) Activate(ctx context.Context, a Artifact) (*Handle, error) {
	r.mu.Lock()
	prev := r.active
	r.version++
	h := &Handle{
		ID:          uuid.NewString(),
		Version:     r.version,
		Artifact:    a,
		ActivatedAt: time.Now(),
	}
	r.active = h
	r.mu.Unlock()

	if prev != nil && prev.Artifact != nil {
		if err := prev.Artifact.Dispose(ctx); err != nil {
			return h, err
		}
	}
	return h, nil
}

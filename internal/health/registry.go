package health

import "sync"

// Registry maps mountpoint paths to their check state. The mutex guards
// only map membership; each entry carries its own lock, so concurrent
// checks of different mountpoints never contend with each other.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*MountState
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*MountState),
	}
}

// Reconcile synchronizes membership with the current list of mountpoints:
// entries whose path is no longer mounted are removed and newly mounted
// paths are inserted with initial state Alive. State for paths that remain
// present is untouched.
//
// Removing an entry that still holds an outstanding probe abandons the
// handle without a final reap. This is deliberate best-effort cleanup: the
// child already received SIGKILL when its deadline expired (or will orphan-
// exit), and waiting for it here would reintroduce the blocking this
// program exists to avoid.
func (r *Registry) Reconcile(paths []string) (added, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[string]bool, len(paths))
	for _, p := range paths {
		current[p] = true
	}

	for path := range r.entries {
		if !current[path] {
			delete(r.entries, path)
			removed = append(removed, path)
		}
	}

	for _, path := range paths {
		if _, ok := r.entries[path]; !ok {
			r.entries[path] = NewMountState(path)
			added = append(added, path)
		}
	}

	return added, removed
}

// Entries returns a snapshot slice of all tracked mount states. Membership
// only changes in Reconcile, so the slice is stable for the duration of a
// cycle's check pass.
func (r *Registry) Entries() []*MountState {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*MountState, 0, len(r.entries))
	for _, m := range r.entries {
		entries = append(entries, m)
	}
	return entries
}

// Get returns the state for path, or nil if it is not tracked.
func (r *Registry) Get(path string) *MountState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[path]
}

// Len returns the number of tracked mountpoints.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Counts returns the total number of tracked mountpoints and how many are
// dead. Only Alive counts as live; a mount with an outstanding probe has
// not proven liveness and counts as dead until it resolves.
func (r *Registry) Counts() (total, dead int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total = len(r.entries)
	for _, m := range r.entries {
		if m.Status() != StatusAlive {
			dead++
		}
	}
	return total, dead
}

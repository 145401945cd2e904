package keybind

import (
	"strings"
	"sync"
)

// Registry maps normalized stroke sequences to command ids. It holds no
// incremental-only state: Rebuild derives the whole mapping from the
// current catalog defaults plus persisted per-command overrides, so it can
// be reconstructed from scratch at any time.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]string)}
}

// Rebuild replaces the whole mapping. Input sequences may be in raw
// authored form; they are normalized here. Rebuilding with the same input
// is idempotent.
func (r *Registry) Rebuild(bindings map[string]string) {
	fresh := make(map[string]string, len(bindings))
	for seq, id := range bindings {
		norm := NormalizeSequence(seq)
		if norm == "" || id == "" {
			continue
		}
		fresh[norm] = id
	}
	r.mu.Lock()
	r.bindings = fresh
	r.mu.Unlock()
}

// Lookup returns the command id owning exactly the given normalized
// sequence.
func (r *Registry) Lookup(seq string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bindings[seq]
	return id, ok
}

// HasExtension reports whether any registered sequence strictly extends the
// given normalized prefix with further strokes.
func (r *Registry) HasExtension(prefix string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for seq := range r.bindings {
		if seq != prefix && strings.HasPrefix(seq, prefix+",") {
			return true
		}
	}
	return false
}

// HasConflict reports whether another command already owns the sequence.
// excludeID lets the keybinding-capture UI ignore the command being edited.
func (r *Registry) HasConflict(seq, excludeID string) (ownerID string, conflict bool) {
	norm := NormalizeSequence(seq)
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bindings[norm]
	if !ok || id == excludeID {
		return "", false
	}
	return id, true
}

// Sequences returns a copy of the current mapping, mainly for diagnostics.
func (r *Registry) Sequences() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.bindings))
	for seq, id := range r.bindings {
		out[seq] = id
	}
	return out
}

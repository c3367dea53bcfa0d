// Package observer provides a listener registry with strong and weak
// entries, pruned lazily while notifying.
package observer

import (
	"fmt"
	"weak"
)

// Handle identifies a registration. The zero Handle is never issued.
type Handle struct {
	id uint64
}

// Valid reports whether h was issued by a registry.
func (h Handle) Valid() bool {
	return h.id != 0
}

type entry[L any] struct {
	id      uint64
	resolve func() (L, bool)
	removed bool
}

// Registry holds listeners of type L. It is not safe for concurrent use;
// callers serialize access on their own update loop.
type Registry[L any] struct {
	entries []*entry[L]
	nextID  uint64
}

// Add registers l and keeps it alive until removed.
// Registering the same listener twice yields two notifications.
func (r *Registry[L]) Add(l L) Handle {
	return r.add(func() (L, bool) { return l, true })
}

// AddWeak registers p without keeping it alive. Once p is collected the
// entry is skipped and dropped on the next Notify.
func AddWeak[T any, L any](r *Registry[L], p *T) (Handle, error) {
	if p == nil {
		return Handle{}, fmt.Errorf("observer: nil listener")
	}
	if _, ok := any(p).(L); !ok {
		var zero *L
		return Handle{}, fmt.Errorf("observer: %T does not implement %T", p, zero)
	}

	wp := weak.Make(p)
	return r.add(func() (L, bool) {
		v := wp.Value()
		if v == nil {
			var zero L
			return zero, false
		}
		l, ok := any(v).(L)
		return l, ok
	}), nil
}

func (r *Registry[L]) add(resolve func() (L, bool)) Handle {
	r.nextID++
	r.entries = append(r.entries, &entry[L]{id: r.nextID, resolve: resolve})
	return Handle{id: r.nextID}
}

// Remove unregisters h. It is safe to call from inside Notify.
func (r *Registry[L]) Remove(h Handle) bool {
	for i, e := range r.entries {
		if e.id == h.id && !e.removed {
			e.removed = true
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len counts registrations, including weak entries not yet pruned.
func (r *Registry[L]) Len() int {
	return len(r.entries)
}

// Notify calls fn once per live listener in registration order and returns
// how many were called. Entries added during Notify are not visited.
func (r *Registry[L]) Notify(fn func(L)) int {
	snapshot := make([]*entry[L], len(r.entries))
	copy(snapshot, r.entries)

	called := 0
	stale := false
	for _, e := range snapshot {
		if e.removed {
			continue
		}
		l, ok := e.resolve()
		if !ok {
			stale = true
			continue
		}
		fn(l)
		called++
	}

	if stale {
		r.prune()
	}
	return called
}

func (r *Registry[L]) prune() {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if _, ok := e.resolve(); ok && !e.removed {
			kept = append(kept, e)
			continue
		}
		e.removed = true
	}
	clear(r.entries[len(kept):])
	r.entries = kept
}

// Collect returns every live listener without notifying.
func (r *Registry[L]) Collect() []L {
	out := make([]L, 0, len(r.entries))
	r.Notify(func(l L) { out = append(out, l) })
	return out
}

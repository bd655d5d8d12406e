package typeid

import (
	"reflect"
	"sync"

	"github.com/nanoagents/actorcore/pkg/types"
)

const maxRegisteredTypes = 256

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide registry every agent's OnType
// registration shares, constructing it lazily on first use so message
// type ids collide against one table regardless of which package
// registers first.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
	}
	return defaultRegistry
}

type typeInfo struct {
	id    types.MessageId
	typ   reflect.Type
	valid bool
}

// Registry is the runtime safety net for the compile-time recipe: two
// distinct types that happen to hash to the same 16-bit id are
// detected here instead of silently aliasing each other's messages.
type Registry struct {
	mu      sync.Mutex
	entries [maxRegisteredTypes]typeInfo
	count   int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register records T's type id. It returns false if the table is full
// or if a *different* type already occupies the same id; in the
// collision case the first registration is left untouched and T
// remains independently usable (callers still get a valid id from
// Of[T](), they just can't rely on the registry to prove uniqueness).
func (r *Registry) Register(id types.MessageId, t reflect.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < r.count; i++ {
		e := r.entries[i]
		if !e.valid {
			continue
		}
		if e.typ == t {
			return true // already registered, not a collision
		}
		if e.id == id {
			return false
		}
	}

	if r.count >= maxRegisteredTypes {
		return false
	}

	r.entries[r.count] = typeInfo{id: id, typ: t, valid: true}
	r.count++
	return true
}

// RegisterType is the generic convenience wrapper around Register.
func RegisterType[T any](r *Registry) bool {
	var zero T
	t := reflect.TypeOf(zero)
	return r.Register(Of[T](), t)
}

// FindCollisions enumerates every id that was claimed by more than one
// distinct registered type. Register never stores a second type under
// an id that is already taken, so for a registry filled through
// Register and RegisterType this returns an empty result.
func (r *Registry) FindCollisions() []types.MessageId {
	r.mu.Lock()
	defer r.mu.Unlock()

	var collisions []types.MessageId
	seen := make(map[types.MessageId]int, r.count)
	for i := 0; i < r.count; i++ {
		e := r.entries[i]
		if !e.valid {
			continue
		}
		seen[e.id]++
	}
	for id, n := range seen {
		if n > 1 {
			collisions = append(collisions, id)
		}
	}
	return collisions
}

// Count returns the number of distinct types currently registered.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// CheckCollisions is a pairwise collision check over a fixed list of
// ids, the Go analogue of the compile-time
// ASSERT_NO_TYPE_ID_COLLISIONS macro. Intended for use in a test that
// lists every message type the build defines.
func CheckCollisions(ids ...types.MessageId) []types.MessageId {
	var collisions []types.MessageId
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] == ids[j] {
				collisions = append(collisions, ids[i])
			}
		}
	}
	return collisions
}

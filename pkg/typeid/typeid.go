// Package typeid synthesizes a stable 16-bit fingerprint for any
// message payload type at the first call for that type, with no
// explicit runtime table lookup on the caller's part. The recipe is
// FNV-1a over the type's package-qualified name, mixed with its size,
// alignment, and triviality via the golden-ratio/Murmur-style
// multipliers, then compressed to 16 bits with the two reserved values
// remapped away. Go has no constexpr, so the cost moves from compile
// time to first use per type, amortized by the cache below.
package typeid

import (
	"hash/fnv"
	"reflect"
	"sync"

	"github.com/nanoagents/actorcore/pkg/types"
)

const (
	mulSize  = 0x9E3779B9
	mulTrait = 0x85EBCA6B
	mulAlign = 0xC2B2AE3D
)

var (
	cacheMu sync.RWMutex
	cache   = make(map[reflect.Type]types.MessageId)
)

// Of returns the type id for T, computing and memoizing it on first
// use. The result is stable for the lifetime of the process.
func Of[T any]() types.MessageId {
	var zero T
	t := reflect.TypeOf(zero)

	cacheMu.RLock()
	if id, ok := cache[t]; ok {
		cacheMu.RUnlock()
		return id
	}
	cacheMu.RUnlock()

	id := compute(t)

	cacheMu.Lock()
	cache[t] = id
	cacheMu.Unlock()
	return id
}

// compute runs the type-fingerprint recipe over a reflect.Type.
func compute(t reflect.Type) types.MessageId {
	name := t.PkgPath() + "." + t.Name()
	if name == "." {
		// Unnamed types (anonymous structs) still need a stable string;
		// String() includes field layout, which is exactly the
		// per-type text the recipe asks for.
		name = t.String()
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	hash := h.Sum32()

	sizeFactor := uint32(t.Size())
	alignFactor := uint32(t.Align())
	traitFactor := uint32(0)
	if isTriviallyCopyable(t) {
		traitFactor = 1
	}

	hash1 := hash ^ (sizeFactor * mulSize)
	hash2 := hash1 ^ (traitFactor * mulTrait)
	final := hash2 ^ (alignFactor * mulAlign)

	mixed := ((final >> 16) * mulTrait) ^ ((final & 0xFFFF) * mulSize)
	compressed := types.MessageId(uint16(mixed>>16) ^ uint16(mixed&0xFFFF))

	switch compressed {
	case types.ReservedMessageIDZero:
		return 1
	case types.ReservedMessageIDMax:
		return 0xFFFE
	default:
		return compressed
	}
}

// isTriviallyCopyable reports whether t contains no pointers,
// interfaces, or other reference-bearing fields anywhere in its
// layout, so a raw byte copy reproduces the value exactly. Message
// payloads must satisfy this; callers check with ValidatePayload and
// report UnsafeMessageType when they don't.
func isTriviallyCopyable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Array:
		return isTriviallyCopyable(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !isTriviallyCopyable(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		// Pointer, Slice, Map, Chan, Func, Interface, String, UnsafePointer.
		return false
	}
}

// ValidatePayload reports whether T is safe to store as a byte-copied
// message payload. Call this once per message type during setup, not
// on the send hot path.
func ValidatePayload[T any]() bool {
	var zero T
	return isTriviallyCopyable(reflect.TypeOf(zero))
}

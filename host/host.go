// Package host models the environment a Bridge runs in: a global scope that an
// external loader populates asynchronously, and a timer facility. Hosts
// without a global scope (server-side evaluation) degrade every capability to
// a no-op.
package host

import "time"

// Host exposes the capabilities reconciliation needs from its environment.
type Host interface {
	// Globals runs fn against the global scope. It reports false, without
	// calling fn, when the environment has no global scope.
	Globals(fn func(Globals)) bool
	// SetInterval schedules fn every period. It reports false when the
	// environment has no timer facility.
	SetInterval(every time.Duration, fn func(Globals)) (PollHandle, bool)
	// ClearInterval cancels a handle returned by SetInterval. Unknown or nil
	// handles are ignored.
	ClearInterval(PollHandle)
}

// Globals is the host's global object.
type Globals interface {
	// Namespace looks up an object-like global by name.
	Namespace(name string) (Namespace, bool)
	// Publish stores a zero-argument callback under key, replacing any
	// previous value.
	Publish(key string, fn func(Globals))
}

// Namespace is an object whose members are resolved by name.
type Namespace interface {
	Member(name string) (any, bool)
}

// Accessor is the canonical shape of a callable namespace member.
type Accessor func() (any, error)

// PollHandle identifies an interval created by a Host.
type PollHandle interface{}

// NamespaceFunc adapts a lookup function to Namespace.
type NamespaceFunc func(name string) (any, bool)

// Member implements Namespace.
func (fn NamespaceFunc) Member(name string) (any, bool) {
	if fn == nil {
		return nil, false
	}
	return fn(name)
}

// MapNamespace exposes a plain map as a Namespace.
type MapNamespace map[string]any

// Member implements Namespace.
func (m MapNamespace) Member(name string) (any, bool) {
	if m == nil {
		return nil, false
	}
	value, ok := m[name]
	return value, ok
}

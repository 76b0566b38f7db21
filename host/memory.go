package host

import (
	"sort"
	"sync"
	"time"
)

// Callback is the value Memory stores for published callbacks.
type Callback func()

// Memory is an in-process host whose global scope is a map. Values are
// typically namespaces (map[string]any or Namespace) and published callbacks.
type Memory struct {
	mu        sync.RWMutex
	values    map[string]any
	scheduler Scheduler
}

// MemoryOption configures a Memory host.
type MemoryOption func(*Memory)

// WithScheduler replaces the default TickerScheduler.
func WithScheduler(scheduler Scheduler) MemoryOption {
	return func(m *Memory) {
		if scheduler != nil {
			m.scheduler = scheduler
		}
	}
}

// WithGlobal seeds a global value.
func WithGlobal(key string, value any) MemoryOption {
	return func(m *Memory) {
		m.values[key] = value
	}
}

// NewMemory constructs an empty Memory host.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		values:    map[string]any{},
		scheduler: TickerScheduler{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Set stores value under key, replacing any previous value.
func (m *Memory) Set(key string, value any) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok
}

// Delete removes key from the global scope.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}

// Keys returns the global keys sorted alphabetically.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Invoke calls the callback published under key, the way an external script
// would. It reports false when key holds no callable value.
func (m *Memory) Invoke(key string) bool {
	value, ok := m.Get(key)
	if !ok {
		return false
	}
	switch fn := value.(type) {
	case Callback:
		if fn == nil {
			return false
		}
		fn()
	case func():
		if fn == nil {
			return false
		}
		fn()
	default:
		return false
	}
	return true
}

// Globals implements Host.
func (m *Memory) Globals(fn func(Globals)) bool {
	if fn == nil {
		return true
	}
	fn(memoryGlobals{host: m})
	return true
}

// SetInterval implements Host.
func (m *Memory) SetInterval(every time.Duration, fn func(Globals)) (PollHandle, bool) {
	if m.scheduler == nil || fn == nil {
		return nil, false
	}
	globals := memoryGlobals{host: m}
	stop := m.scheduler.Every(every, func() { fn(globals) })
	return &memoryHandle{stop: stop}, true
}

// ClearInterval implements Host.
func (m *Memory) ClearInterval(handle PollHandle) {
	h, ok := handle.(*memoryHandle)
	if !ok || h == nil {
		return
	}
	h.once.Do(func() {
		if h.stop != nil {
			h.stop()
		}
	})
}

type memoryHandle struct {
	once sync.Once
	stop func()
}

type memoryGlobals struct {
	host *Memory
}

func (g memoryGlobals) Namespace(name string) (Namespace, bool) {
	value, ok := g.host.Get(name)
	if !ok || value == nil {
		return nil, false
	}
	switch ns := value.(type) {
	case Namespace:
		return ns, true
	case map[string]any:
		return MapNamespace(ns), true
	default:
		return nil, false
	}
}

func (g memoryGlobals) Publish(key string, fn func(Globals)) {
	if fn == nil {
		g.host.Delete(key)
		return
	}
	g.host.Set(key, Callback(func() { fn(g) }))
}

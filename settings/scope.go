package settings

import (
	"errors"
	"fmt"
	"sort"
)

// Canonical scope priorities. Higher numbers win.
const (
	PriorityDefaults = 100
	PriorityFile     = 200
	PriorityStored   = 300
	PriorityEnv      = 400
	PriorityFlags    = 500
)

// Canonical scope names.
const (
	ScopeDefaults = "defaults"
	ScopeFile     = "file"
	ScopeStored   = "stored"
	ScopeEnv      = "env"
	ScopeFlags    = "flags"
)

// Scope is a named precedence bucket.
type Scope struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Priority int    `json:"priority"`
}

// NewScope builds a Scope. Validation happens when a Stack is built.
func NewScope(name string, priority int, label string) Scope {
	return Scope{Name: name, Label: label, Priority: priority}
}

// Layer pairs a scope with the snapshot it contributed.
type Layer[T any] struct {
	Scope      Scope
	Snapshot   T
	SnapshotID string
}

// NewLayer copies snapshot so later caller mutations do not leak into the
// layer.
func NewLayer[T any](scope Scope, snapshot T) Layer[T] {
	return Layer[T]{Scope: scope, Snapshot: Clone(snapshot)}
}

// WithSnapshotID returns a copy of the layer tagged with id.
func (l Layer[T]) WithSnapshotID(id string) Layer[T] {
	l.SnapshotID = id
	return l
}

// Layer helpers for the canonical scopes.

func DefaultsLayer() Layer[Settings] {
	return NewLayer(NewScope(ScopeDefaults, PriorityDefaults, "Defaults"), Defaults())
}

func FileLayer(s Settings) Layer[Settings] {
	return NewLayer(NewScope(ScopeFile, PriorityFile, "Config file"), s)
}

func StoredLayer(s Settings) Layer[Settings] {
	return NewLayer(NewScope(ScopeStored, PriorityStored, "Stored"), s)
}

func EnvLayer(s Settings) Layer[Settings] {
	return NewLayer(NewScope(ScopeEnv, PriorityEnv, "Environment"), s)
}

func FlagsLayer(s Settings) Layer[Settings] {
	return NewLayer(NewScope(ScopeFlags, PriorityFlags, "Flags"), s)
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("settings: scope name must be provided")
	// ErrDuplicateScopeName indicates two layers share a scope name.
	ErrDuplicateScopeName = errors.New("settings: scope names must be unique")
	// ErrPriorityOrder indicates two layers share a priority.
	ErrPriorityOrder = errors.New("settings: scope priorities must be strictly ordered")
	// ErrEmptyStack indicates a merge over no layers.
	ErrEmptyStack = errors.New("settings: stack must include at least one layer")
)

// Stack is an immutable set of layers ordered strongest first.
type Stack[T any] struct {
	layers []Layer[T]
}

// NewStack validates and sorts layers by descending priority.
func NewStack[T any](layers ...Layer[T]) (*Stack[T], error) {
	seen := make(map[string]struct{}, len(layers))
	copied := make([]Layer[T], len(layers))
	for i, layer := range layers {
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seen[layer.Scope.Name] = struct{}{}
		layer.Snapshot = Clone(layer.Snapshot)
		copied[i] = layer
	}

	sort.Slice(copied, func(i, j int) bool {
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})
	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority == copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}
	return &Stack[T]{layers: copied}, nil
}

// Layers returns copies of the layers, strongest first.
func (s *Stack[T]) Layers() []Layer[T] {
	if s == nil {
		return nil
	}
	out := make([]Layer[T], len(s.layers))
	for i, layer := range s.layers {
		layer.Snapshot = Clone(layer.Snapshot)
		out[i] = layer
	}
	return out
}

// Len returns the number of layers.
func (s *Stack[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Merge folds the layers into one snapshot.
func (s *Stack[T]) Merge() (T, error) {
	var zero T
	if s.Len() == 0 {
		return zero, ErrEmptyStack
	}
	snapshots := make([]T, len(s.layers))
	for i, layer := range s.layers {
		snapshots[i] = layer.Snapshot
	}
	return MergeLayers(snapshots...), nil
}

// Trace reports, for path, what every layer holds. Layers are listed
// strongest first; the first Found entry is the effective source.
func (s *Stack[T]) Trace(path string) (Trace, error) {
	trace := Trace{Path: path}
	if s == nil {
		return trace, nil
	}
	for _, layer := range s.layers {
		value, found, err := lookupPath(layer.Snapshot, path)
		if err != nil {
			return Trace{}, err
		}
		trace.Layers = append(trace.Layers, Provenance{
			Scope:      layer.Scope,
			SnapshotID: layer.SnapshotID,
			Path:       path,
			Value:      value,
			Found:      found,
		})
	}
	return trace, nil
}

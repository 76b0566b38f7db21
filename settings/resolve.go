package settings

import "fmt"

// Resolved is the outcome of layering settings over Defaults.
type Resolved struct {
	Merged    Settings
	Effective Effective
	stack     *Stack[Settings]
}

// Resolve stacks layers over the defaults layer, merges, and validates the
// result. A caller supplied defaults scope replaces the built-in one.
func Resolve(layers ...Layer[Settings]) (*Resolved, error) {
	all := make([]Layer[Settings], 0, len(layers)+1)
	hasDefaults := false
	for _, layer := range layers {
		if layer.Scope.Name == ScopeDefaults {
			hasDefaults = true
		}
		all = append(all, layer)
	}
	if !hasDefaults {
		all = append(all, DefaultsLayer())
	}

	stack, err := NewStack(all...)
	if err != nil {
		return nil, err
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, err
	}
	effective := merged.Effective()
	if err := effective.Validate(); err != nil {
		return nil, err
	}
	return &Resolved{
		Merged:    merged,
		Effective: effective,
		stack:     stack,
	}, nil
}

// Stack returns the layers that produced r.
func (r *Resolved) Stack() *Stack[Settings] {
	if r == nil {
		return nil
	}
	return r.stack
}

// Trace explains where the value at path came from.
func (r *Resolved) Trace(path string) (Trace, error) {
	if r == nil || r.stack == nil {
		return Trace{}, fmt.Errorf("settings: nothing resolved")
	}
	return r.stack.Trace(path)
}

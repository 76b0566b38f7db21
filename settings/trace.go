package settings

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Trace captures, for one path, what each layer of a stack contributed.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance is one layer's view of a traced path.
type Provenance struct {
	Scope      Scope  `json:"scope"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Path       string `json:"path"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// Winner returns the strongest layer that set the path.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// lookupPath walks dotted yaml field names, e.g. "bridge.poll_interval_ms".
// A nil pointer along the way means not found.
func lookupPath(value any, path string) (any, bool, error) {
	if strings.TrimSpace(path) == "" {
		return nil, false, fmt.Errorf("settings: trace path must not be empty")
	}
	current := reflect.ValueOf(value)
	for _, segment := range strings.Split(path, ".") {
		current = indirect(current)
		if !current.IsValid() {
			return nil, false, nil
		}
		if current.Kind() != reflect.Struct {
			return nil, false, fmt.Errorf("settings: trace path %q: %q is not a section", path, segment)
		}
		field, ok := fieldByTag(current, segment)
		if !ok {
			return nil, false, fmt.Errorf("settings: trace path %q: unknown field %q", path, segment)
		}
		current = field
	}
	current = indirect(current)
	if !current.IsValid() {
		return nil, false, nil
	}
	return current.Interface(), true, nil
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.Split(field.Tag.Get("yaml"), ",")[0]
		if tag == name || (tag == "" && strings.EqualFold(field.Name, name)) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

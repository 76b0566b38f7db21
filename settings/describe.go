package settings

import (
	"reflect"
	"strings"
)

// FieldDescriptor documents one leaf setting.
type FieldDescriptor struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Env     string `json:"env"`
	Default any    `json:"default"`
}

// Describe lists every leaf setting in declaration order with its type,
// environment variable and default value.
func Describe() []FieldDescriptor {
	var out []FieldDescriptor
	describe(reflect.TypeOf(Settings{}), reflect.ValueOf(Defaults()), "", EnvPrefix, &out)
	return out
}

// Paths lists every leaf path in declaration order.
func Paths() []string {
	fields := Describe()
	out := make([]string, len(fields))
	for i, field := range fields {
		out[i] = field.Path
	}
	return out
}

func describe(t reflect.Type, defaults reflect.Value, prefix, envPrefix string, out *[]FieldDescriptor) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := strings.Split(field.Tag.Get("yaml"), ",")[0]
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if field.Type.Kind() == reflect.Struct {
			describe(field.Type, defaults.Field(i), name, envPrefix+field.Tag.Get("envPrefix"), out)
			continue
		}
		elem := field.Type
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		descriptor := FieldDescriptor{
			Path: name,
			Type: elem.Kind().String(),
		}
		if env := field.Tag.Get("env"); env != "" {
			descriptor.Env = envPrefix + env
		}
		if value := indirect(defaults.Field(i)); value.IsValid() {
			descriptor.Default = value.Interface()
		}
		*out = append(*out, descriptor)
	}
}

package project

import (
	"fmt"
	"maps"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ExtensionType identifies the plugin-defined type of an Extension and the
// default values a fresh instance starts with.
type ExtensionType struct {
	Kind     string
	Defaults map[string]any
}

// Extension is a named, free-form configuration object attached to a
// Project. It is mutable during the configuration phase only.
type Extension struct {
	name    string
	kind    string
	project string
	values  map[string]cty.Value
	frozen  bool
}

func newExtension(projectPath, name string, typ ExtensionType) (*Extension, error) {
	ext := &Extension{
		name:    name,
		kind:    typ.Kind,
		project: projectPath,
		values:  make(map[string]cty.Value),
	}
	for key, v := range typ.Defaults {
		if err := ext.Set(key, v); err != nil {
			return nil, err
		}
	}
	return ext, nil
}

func (e *Extension) Name() string { return e.name }
func (e *Extension) Kind() string { return e.kind }

// Keys returns the configured keys in sorted order.
func (e *Extension) Keys() []string {
	return slices.Sorted(maps.Keys(e.values))
}

// Set converts v and stores it under key.
func (e *Extension) Set(key string, v any) error {
	val, err := ToValue(v)
	if err != nil {
		return fmt.Errorf("extension %q key %q: %w", e.name, key, err)
	}
	return e.SetValue(key, val)
}

// SetValue stores val under key.
func (e *Extension) SetValue(key string, val cty.Value) error {
	if e.frozen {
		return fmt.Errorf("extension %q in project %s: %w", e.name, e.project, ErrFrozen)
	}
	e.values[key] = val
	return nil
}

// Merge stores every entry of values, overriding existing keys.
func (e *Extension) Merge(values map[string]cty.Value) error {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if err := e.SetValue(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the raw value stored under key.
func (e *Extension) Value(key string) (cty.Value, bool) {
	val, ok := e.values[key]
	return val, ok
}

// Has reports whether key holds a non-null value.
func (e *Extension) Has(key string) bool {
	val, ok := e.values[key]
	return ok && !val.IsNull()
}

// Get returns the value under key converted to plain Go data.
func (e *Extension) Get(key string) (any, error) {
	val, ok := e.values[key]
	if !ok {
		return nil, nil
	}
	return FromValue(val)
}

// String returns the value under key as a string. Missing or null values
// yield "".
func (e *Extension) String(key string) (string, error) {
	val, err := e.convert(key, cty.String)
	if err != nil || val.IsNull() {
		return "", err
	}
	return val.AsString(), nil
}

// Bool returns the value under key as a bool. Missing or null values yield
// false.
func (e *Extension) Bool(key string) (bool, error) {
	val, err := e.convert(key, cty.Bool)
	if err != nil || val.IsNull() {
		return false, err
	}
	return val.True(), nil
}

// Strings returns the value under key as an ordered list of strings.
func (e *Extension) Strings(key string) ([]string, error) {
	val, err := e.convert(key, cty.List(cty.String))
	if err != nil || val.IsNull() {
		return nil, err
	}
	out := make([]string, 0, val.LengthInt())
	for _, elem := range val.AsValueSlice() {
		if elem.IsNull() {
			return nil, fmt.Errorf("extension %q key %q: list contains null", e.name, key)
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}

// StringMap returns the value under key as a map of strings.
func (e *Extension) StringMap(key string) (map[string]string, error) {
	val, err := e.convert(key, cty.Map(cty.String))
	if err != nil || val.IsNull() {
		return nil, err
	}
	out := make(map[string]string, val.LengthInt())
	for k, elem := range val.AsValueMap() {
		if !elem.IsNull() {
			out[k] = elem.AsString()
		}
	}
	return out, nil
}

func (e *Extension) convert(key string, want cty.Type) (cty.Value, error) {
	val, ok := e.values[key]
	if !ok || val.IsNull() {
		return cty.NullVal(want), nil
	}
	if !val.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("extension %q key %q: value is not known", e.name, key)
	}
	out, err := convert.Convert(val, want)
	if err != nil {
		return cty.NilVal, fmt.Errorf("extension %q key %q: expected %s: %w", e.name, key, want.FriendlyName(), err)
	}
	return out, nil
}

package sanitize

import (
	"encoding/json"
	"reflect"
	"strings"
)

var (
	stringType     = reflect.TypeOf("")
	jsonNumberType = reflect.TypeOf(json.Number(""))
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

// Value sanitizes an arbitrary value tree and returns a tree of the same shape
// and concrete types. It never panics; unrecognized values pass through.
func Value(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return String(t)
	case json.Number:
		return t
	case map[string]any:
		return mapOfAny(t)
	case []any:
		return sliceOfAny(t)
	}
	return newWalker().walk(reflect.ValueOf(v)).Interface()
}

// As is Value for statically typed callers.
func As[T any](v T) T {
	rv := reflect.ValueOf(&v).Elem()
	out, _ := newWalker().walk(rv).Interface().(T)
	return out
}

// mapOfAny is the fast path for decoded JSON objects.
func mapOfAny(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if IsSecretKey(k) && isScalar(reflect.ValueOf(v)) {
			out[k] = Mask
			continue
		}
		out[k] = Value(v)
	}
	return out
}

// sliceOfAny is the fast path for decoded JSON arrays.
func sliceOfAny(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = Value(v)
	}
	return out
}

// walker copies a value tree. Pointers already being copied map to their
// copy so cyclic structures terminate.
type walker struct {
	seen map[pointerKey]reflect.Value
}

// pointerKey includes the type because a struct and its first field share
// an address.
type pointerKey struct {
	addr uintptr
	typ  reflect.Type
}

func newWalker() *walker {
	return &walker{seen: make(map[pointerKey]reflect.Value)}
}

// walk returns a sanitized copy of rv with the same type as rv.
func (w *walker) walk(rv reflect.Value) reflect.Value {
	if !rv.IsValid() {
		return rv
	}
	if rv.Type().Implements(errorType) {
		return rv
	}

	switch rv.Kind() {
	case reflect.String:
		if rv.Type() == jsonNumberType {
			return rv
		}
		return reflect.ValueOf(String(rv.String())).Convert(rv.Type())

	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(w.walk(rv.Elem()))
		return out

	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		key := pointerKey{addr: rv.Pointer(), typ: rv.Type()}
		if cp, ok := w.seen[key]; ok {
			return cp
		}
		out := reflect.New(rv.Type().Elem())
		w.seen[key] = out
		out.Elem().Set(w.walk(rv.Elem()))
		return out

	case reflect.Struct:
		return w.walkStruct(rv)

	case reflect.Map:
		return w.walkMap(rv)

	case reflect.Slice:
		if rv.IsNil() || rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(w.walk(rv.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(w.walk(rv.Index(i)))
		}
		return out
	}

	return rv
}

// walkStruct copies rv and sanitizes its exported fields. A field is keyed
// by its json name, falling back to the Go name, so a struct is treated the
// way its JSON encoding would be. Unexported fields are copied as is.
func (w *walker) walkStruct(rv reflect.Value) reflect.Value {
	out := reflect.New(rv.Type()).Elem()
	out.Set(rv)
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Type().Field(i)
		if !f.IsExported() {
			continue
		}
		v := rv.Field(i)
		if !f.Anonymous && IsSecretKey(fieldKey(f)) && isScalar(v) {
			out.Field(i).Set(masked(f.Type))
			continue
		}
		out.Field(i).Set(w.walk(v))
	}
	return out
}

func fieldKey(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func (w *walker) walkMap(rv reflect.Value) reflect.Value {
	if rv.IsNil() {
		return rv
	}

	keyed := rv.Type().Key().Kind() == reflect.String
	out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, v := iter.Key(), iter.Value()
		if keyed && IsSecretKey(k.String()) && isScalar(v) {
			out.SetMapIndex(k, masked(v.Type()))
			continue
		}
		out.SetMapIndex(k, w.walk(v))
	}
	return out
}

// isScalar reports whether v is anything other than a map, a struct, a
// sequence or an array. Byte slices count as scalars, and so do nil
// interfaces and nil pointers.
func isScalar(v reflect.Value) bool {
	for v.IsValid() {
		if v.Type().Implements(errorType) {
			return true
		}
		if k := v.Kind(); k != reflect.Interface && k != reflect.Pointer {
			break
		}
		if v.IsNil() {
			return true
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Map, reflect.Array, reflect.Struct:
		return false
	case reflect.Slice:
		return v.Type().Elem().Kind() == reflect.Uint8
	}
	return true
}

// masked returns the mask token as a value of type t. Types that cannot hold
// a string get their zero value instead.
func masked(t reflect.Type) reflect.Value {
	switch {
	case t.Kind() == reflect.String:
		return reflect.ValueOf(Mask).Convert(t)
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.String:
		out := reflect.New(t.Elem())
		out.Elem().Set(masked(t.Elem()))
		return out
	case t.Kind() == reflect.Interface && stringType.Implements(t):
		out := reflect.New(t).Elem()
		out.Set(reflect.ValueOf(Mask))
		return out
	}
	return reflect.Zero(t)
}

// Package object implements the structural operation primitives of the
// bridge: read, write, has, delete, define, enumerate, apply, and
// construct against arbitrary Go values.
//
// The owner-side dispatcher executes every remote request through these
// functions, and the excluder proxy uses them locally. Maps, pointers to
// structs, structs, slices, and arrays are addressable by string key;
// slices and arrays expose their indices and a "length" pseudo-key.
package object

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// lengthKey is the pseudo-property exposing the element count of slices
// and arrays.
const lengthKey = "length"

// Get reads a property. The second result reports whether the property
// exists; reading an absent property is not an error.
func Get(target any, key string) (any, bool, error) {
	rv, err := resolve(target)
	if err != nil {
		return nil, false, err
	}
	switch rv.Kind() {
	case reflect.Map:
		kv, err := mapKey(rv, key)
		if err != nil {
			return nil, false, err
		}
		out := rv.MapIndex(kv)
		if !out.IsValid() {
			return nil, false, nil
		}
		return out.Interface(), true, nil

	case reflect.Struct:
		if f := rv.FieldByName(key); f.IsValid() && f.CanInterface() {
			return f.Interface(), true, nil
		}
		if m := methodByName(rv, target, key); m.IsValid() {
			return m.Interface(), true, nil
		}
		return nil, false, nil

	case reflect.Slice, reflect.Array:
		if key == lengthKey {
			return float64(rv.Len()), true, nil
		}
		i, err := strconv.Atoi(key)
		if err != nil {
			return nil, false, nil
		}
		if i < 0 || i >= rv.Len() {
			return nil, false, nil
		}
		return rv.Index(i).Interface(), true, nil

	default:
		return nil, false, fmt.Errorf("object: cannot read property of %T", target)
	}
}

// Set writes a property.
func Set(target any, key string, value any) error {
	rv, err := resolve(target)
	if err != nil {
		return err
	}
	switch rv.Kind() {
	case reflect.Map:
		kv, err := mapKey(rv, key)
		if err != nil {
			return err
		}
		ev, err := convert(value, rv.Type().Elem())
		if err != nil {
			return fmt.Errorf("object: set %q: %w", key, err)
		}
		rv.SetMapIndex(kv, ev)
		return nil

	case reflect.Struct:
		f := rv.FieldByName(key)
		if !f.IsValid() {
			return fmt.Errorf("object: no field %q on %T", key, target)
		}
		if !f.CanSet() {
			return fmt.Errorf("object: field %q of %T is not settable", key, target)
		}
		fv, err := convert(value, f.Type())
		if err != nil {
			return fmt.Errorf("object: set %q: %w", key, err)
		}
		f.Set(fv)
		return nil

	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("object: invalid index %q", key)
		}
		if i < 0 || i >= rv.Len() {
			return fmt.Errorf("object: index %d out of range (length %d)", i, rv.Len())
		}
		elem := rv.Index(i)
		if !elem.CanSet() {
			return fmt.Errorf("object: elements of %T are not settable", target)
		}
		ev, err := convert(value, elem.Type())
		if err != nil {
			return fmt.Errorf("object: set index %d: %w", i, err)
		}
		elem.Set(ev)
		return nil

	default:
		return fmt.Errorf("object: cannot write property of %T", target)
	}
}

// Has reports whether a property exists.
func Has(target any, key string) (bool, error) {
	_, found, err := Get(target, key)
	return found, err
}

// Delete removes a property. Only map entries can be deleted.
func Delete(target any, key string) error {
	rv, err := resolve(target)
	if err != nil {
		return err
	}
	if rv.Kind() != reflect.Map {
		return fmt.Errorf("object: cannot delete property of %T", target)
	}
	kv, err := mapKey(rv, key)
	if err != nil {
		return err
	}
	rv.SetMapIndex(kv, reflect.Value{})
	return nil
}

// Define installs a property. Go has no property descriptors, so define
// degenerates to a plain write.
func Define(target any, key string, value any) error {
	return Set(target, key, value)
}

// Keys enumerates the target's own keys. Map keys and slice indices are
// sorted for deterministic transfer; struct keys are the exported field
// names in declaration order.
func Keys(target any) ([]string, error) {
	rv, err := resolve(target)
	if err != nil {
		return nil, err
	}
	switch rv.Kind() {
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, fmt.Sprintf("%v", iter.Key().Interface()))
		}
		sort.Strings(keys)
		return keys, nil

	case reflect.Struct:
		t := rv.Type()
		keys := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.IsExported() {
				keys = append(keys, f.Name)
			}
		}
		return keys, nil

	case reflect.Slice, reflect.Array:
		keys := make([]string, 0, rv.Len()+1)
		for i := 0; i < rv.Len(); i++ {
			keys = append(keys, strconv.Itoa(i))
		}
		keys = append(keys, lengthKey)
		return keys, nil

	default:
		return nil, fmt.Errorf("object: cannot enumerate keys of %T", target)
	}
}

// Apply calls the target, which must be callable. Panics inside the
// callee are recovered and returned as errors so a dispatch failure can
// still produce a terminal response.
func Apply(target any, args []any) (result any, err error) {
	fn := reflect.ValueOf(target)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("object: %T is not callable", target)
	}
	in, err := callArguments(fn.Type(), args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("object: call panicked: %v", r)
		}
	}()
	return callResults(fn.Call(in))
}

// Construct invokes the target as a factory producing a new object. Go
// has no native construct operation; a callable that returns a value is
// the closest equivalent.
func Construct(target any, args []any) (any, error) {
	fn := reflect.ValueOf(target)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("object: %T is not constructable", target)
	}
	if fn.Type().NumOut() == 0 {
		return nil, fmt.Errorf("object: constructor %T returns nothing", target)
	}
	return Apply(target, args)
}

// Callable reports whether v can be the target of apply.
func Callable(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}

// ---------------------------------------------------------------------------
// Reflection plumbing
// ---------------------------------------------------------------------------

// resolve unwraps pointers and interfaces down to the addressable value
// the structural operations act on.
func resolve(target any) (reflect.Value, error) {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() {
		return reflect.Value{}, fmt.Errorf("object: nil target")
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("object: nil target")
		}
		rv = rv.Elem()
	}
	return rv, nil
}

// methodByName looks up a bound method on the original target, trying the
// pointer receiver set first.
func methodByName(resolved reflect.Value, target any, key string) reflect.Value {
	if m := reflect.ValueOf(target).MethodByName(key); m.IsValid() {
		return m
	}
	if resolved.CanAddr() {
		if m := resolved.Addr().MethodByName(key); m.IsValid() {
			return m
		}
	}
	return resolved.MethodByName(key)
}

// mapKey converts a string property key to the map's key type.
func mapKey(m reflect.Value, key string) (reflect.Value, error) {
	kt := m.Type().Key()
	kv, err := convert(key, kt)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("object: property key %q does not fit map key type %s", key, kt)
	}
	return kv, nil
}

// convert coerces a dynamic value into the given type. Numeric kinds
// convert freely because everything numeric crosses the wire as float64.
func convert(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot assign nil to %s", t)
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(t.Kind()) {
		return rv.Convert(t), nil
	}
	if key, ok := value.(string); ok && isNumeric(t.Kind()) {
		// Property keys arrive as strings even for numeric map keys.
		f, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert %q to %s", key, t)
		}
		return reflect.ValueOf(f).Convert(t), nil
	}
	if rv.Type().ConvertibleTo(t) && t.Kind() != reflect.String {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %T to %s", value, t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// callArguments converts dynamic arguments to the function's parameter
// types, expanding the variadic tail.
func callArguments(ft reflect.Type, args []any) ([]reflect.Value, error) {
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("object: call needs at least %d arguments, got %d", fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("object: call needs %d arguments, got %d", fixed, len(args))
	}

	in := make([]reflect.Value, 0, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if i < fixed {
			pt = ft.In(i)
		} else {
			pt = ft.In(ft.NumIn() - 1).Elem()
		}
		av, err := convert(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("object: argument %d: %w", i, err)
		}
		in = append(in, av)
	}
	return in, nil
}

// callResults collapses a call's results: a trailing error is split off,
// no results become nil, and multiple results become a slice.
func callResults(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errType {
		errv := out[n-1]
		out = out[:n-1]
		if !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		results := make([]any, len(out))
		for i, v := range out {
			results[i] = v.Interface()
		}
		return results, nil
	}
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

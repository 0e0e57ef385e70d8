package versync

import (
	"fmt"
	"reflect"
	"slices"

	"golang.org/x/exp/constraints"
)

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isNumericKind(k reflect.Kind) bool {
	return isScalarKind(k) && k != reflect.Bool && k != reflect.String
}

// readScalar returns the wire value of a scalar slot.
func readScalar(v reflect.Value) any {
	if p, ok := asProperty(v); ok {
		return p.propValue()
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		return v.Elem().Interface()
	}
	return v.Interface()
}

// sameScalar is strict equality; values of non-comparable types never match.
func sameScalar(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// convertTo turns a wire value into a value of type t. Numbers convert
// between numeric kinds, strings and bools only to their own kinds.
func convertTo(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	sv := reflect.ValueOf(v)
	st := sv.Type()
	if st.AssignableTo(t) {
		return sv, nil
	}
	sk, tk := st.Kind(), t.Kind()
	switch {
	case isNumericKind(sk) && isNumericKind(tk),
		sk == reflect.String && tk == reflect.String,
		sk == reflect.Bool && tk == reflect.Bool:
		return sv.Convert(t), nil
	case tk == reflect.Interface && st.Implements(t):
		return sv, nil
	case sk == reflect.String && tk == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		return sv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s into %s", ErrShapeMismatch, st, t)
}

func assign(dst reflect.Value, v any) error {
	if p, ok := asProperty(dst); ok {
		return p.propSet(v)
	}
	if !dst.CanSet() {
		return ErrNotAddressable
	}
	cv, err := convertTo(v, dst.Type())
	if err != nil {
		return err
	}
	dst.Set(cv)
	return nil
}

// toInt reads counts, indices and tags off the wire; decoders
// hand out any integer width.
func toInt(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == float64(int(f)) {
			return int(f), true
		}
	}
	return 0, false
}

func ordered[T constraints.Ordered](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// compareKeys gives map keys a stable order so that action lists and
// update lists come out the same on every scan.
func compareKeys(a, b any) int {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return ordered(boolInt(va.IsValid()), boolInt(vb.IsValid()))
	}
	ka, kb := va.Kind(), vb.Kind()
	switch {
	case isSigned(ka) && isSigned(kb):
		return ordered(va.Int(), vb.Int())
	case isUnsigned(ka) && isUnsigned(kb):
		return ordered(va.Uint(), vb.Uint())
	case (ka == reflect.Float32 || ka == reflect.Float64) && (kb == reflect.Float32 || kb == reflect.Float64):
		return ordered(va.Float(), vb.Float())
	case ka == reflect.String && kb == reflect.String:
		return ordered(va.String(), vb.String())
	case ka == reflect.Bool && kb == reflect.Bool:
		return ordered(boolInt(va.Bool()), boolInt(vb.Bool()))
	case ka != kb:
		return ordered(ka, kb)
	}
	return ordered(fmt.Sprint(a), fmt.Sprint(b))
}

func sortKeys(keys []any) {
	slices.SortFunc(keys, compareKeys)
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// deref follows pointers and interfaces down to the value a nested
// replicator binds to; ok is false for nil.
func deref(v reflect.Value) (inner reflect.Value, ok bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, true
}

// identity tells apart two different objects sitting in the same slot.
// Values stored inline have none: rebinding them is enough.
func identity(v reflect.Value) uintptr {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Pointer {
		return v.Pointer()
	}
	return 0
}

// addressable returns v itself or an addressable copy of it.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func maxVersion(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

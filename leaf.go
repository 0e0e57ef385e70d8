package versync

import (
	"fmt"
	"reflect"
)

// Vec3 is a leaf value with its own diff semantics: the whole
// triple travels as [x, y, z] whenever any component changed.
type Vec3 struct {
	X, Y, Z float64

	snap    [3]float64
	version uint64
	checked uint64
}

func (v *Vec3) GenDiff(from, to uint64) Diff {
	if to < from {
		return nil
	}
	if v.checked < to {
		cur := [3]float64{v.X, v.Y, v.Z}
		if cur != v.snap {
			v.snap = cur
			v.version = to
		}
		v.checked = to
	}
	if v.version <= from {
		return nil
	}
	return []any{v.snap[0], v.snap[1], v.snap[2]}
}

// Snapshot takes the current components as the state at version 0.
func (v *Vec3) Snapshot() {
	v.snap = [3]float64{v.X, v.Y, v.Z}
}

func (v *Vec3) ResetDiff(to uint64) Diff {
	v.GenDiff(0, to)
	return []any{v.X, v.Y, v.Z}
}

func (v *Vec3) ApplyDiff(diff Diff) error {
	if diff == nil {
		return nil
	}
	arr, ok := diff.([]any)
	if !ok || len(arr) != 3 {
		return fmt.Errorf("%w: vec3 %v", ErrShapeMismatch, diff)
	}
	var xyz [3]float64
	for i, c := range arr {
		f, err := convertTo(c, reflect.TypeOf(float64(0)))
		if err != nil {
			return err
		}
		xyz[i] = f.Float()
	}
	v.X, v.Y, v.Z = xyz[0], xyz[1], xyz[2]
	return nil
}

func (v *Vec3) Version() uint64 {
	return v.version
}

// property is a field wrapper that reports its own writes.
type property interface {
	propValue() any
	propSet(v any) error
	propBind(owner *TriggerObject, field int)
	propOwner() *TriggerObject
}

func asProperty(v reflect.Value) (property, bool) {
	if !v.IsValid() || v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		return nil, false
	}
	if !v.CanAddr() || !v.Addr().Type().Implements(propertyType) {
		return nil, false
	}
	return v.Addr().Interface().(property), true
}

// Value is a write-intercepting field for trigger-mode objects:
// Set marks the field dirty in the owning replicator the moment a
// different value is stored. Unbound values behave as plain fields.
type Value[T comparable] struct {
	v     T
	owner *TriggerObject
	field int
}

func NewValue[T comparable](v T) Value[T] {
	return Value[T]{v: v}
}

func (p *Value[T]) Get() T {
	return p.v
}

func (p *Value[T]) Set(v T) {
	if p.v == v {
		return
	}
	p.v = v
	if p.owner != nil {
		p.owner.markDirty(p.field)
	}
}

func (p *Value[T]) String() string {
	return fmt.Sprint(p.v)
}

func (p *Value[T]) propValue() any {
	return p.v
}

func (p *Value[T]) propSet(v any) error {
	cv, err := convertTo(v, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return err
	}
	p.v, _ = cv.Interface().(T)
	return nil
}

func (p *Value[T]) propBind(owner *TriggerObject, field int) {
	p.owner = owner
	p.field = field
}

func (p *Value[T]) propOwner() *TriggerObject {
	return p.owner
}

package versync

import (
	"fmt"
	"reflect"

	"github.com/drpcorg/versync/schema"
)

// elemHint is the hint passed down to container elements: only the
// change-detection mode survives.
func elemHint(hint *schema.ObjectOption) *schema.ObjectOption {
	if hint == nil || hint.Mode == 0 {
		return nil
	}
	return &schema.ObjectOption{Mode: hint.Mode}
}

func (c *Context) build(v reflect.Value, hint *schema.ObjectOption) node {
	return c.buildFor(v, hint, false)
}

// snapshotter takes the current state of the value as version 0.
type snapshotter interface {
	snapshot()
}

// buildFor builds the replicator of v. Replicators built to apply
// diffs are transient: they take no snapshot, do not take over
// properties, and containers of unknown elements take raw values.
func (c *Context) buildFor(v reflect.Value, hint *schema.ObjectOption, apply bool) node {
	n := c.newNode(v, hint, apply)
	if n == nil {
		return nil
	}
	if s, ok := n.(snapshotter); ok && !apply {
		s.snapshot()
	}
	return n
}

// newNode dispatches on the hinted kind first, then on the shape of v.
func (c *Context) newNode(v reflect.Value, hint *schema.ObjectOption, apply bool) node {
	v, ok := deref(v)
	if !ok {
		return nil
	}
	kind, elem := schema.KindAuto, schema.KindAuto
	if hint != nil {
		kind, elem = hint.Kind, hint.Elem
	}
	if kind == schema.KindAuto {
		kind = kindOf(v)
	}
	switch kind {
	case schema.KindLeaf:
		if l := newLeafNode(v); l != nil {
			return l
		}
	case schema.KindObject:
		if v.Kind() != reflect.Struct {
			break
		}
		mark := c.reg.Mark(v.Type(), true)
		if mark == nil {
			break
		}
		mode := mark.Mode
		if !mark.Declared && hint != nil && hint.Mode != 0 {
			mode = hint.Mode
		}
		if mode == schema.ModeTrigger && !apply {
			return newTriggerObject(c, mark, v, true)
		}
		return newScanObject(c, mark, v)
	case schema.KindTree:
		if t := newTree(c, v, apply); t != nil {
			return t
		}
	case schema.KindSequence:
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			break
		}
		if elem == schema.KindAuto {
			elem = elemKind(v.Type().Elem(), firstElem(v))
		}
		switch {
		case elem == schema.KindScalar, elem == schema.KindAuto && apply:
			return newScalarSequence(c, v)
		case elem != schema.KindAuto:
			return newObjectSequence(c, v, hint)
		}
	case schema.KindSet:
		if v.Kind() == reflect.Map {
			return newScalarSet(c, v)
		}
	case schema.KindMapping:
		if v.Kind() != reflect.Map {
			break
		}
		if elem == schema.KindAuto {
			elem = elemKind(v.Type().Elem(), firstElem(v))
		}
		switch {
		case elem == schema.KindScalar, elem == schema.KindAuto && apply:
			return newScalarMapping(c, v)
		case elem != schema.KindAuto:
			return newObjectMapping(c, v, hint)
		}
	}
	return nil
}

// applyValue makes the slot v follow diff, allocating pointers and
// containers on the way.
func (c *Context) applyValue(v reflect.Value, hint *schema.ObjectOption, diff Diff) error {
	switch v.Kind() {
	case reflect.Pointer:
		if diff == nil {
			return zero(v)
		}
		if v.IsNil() {
			if !v.CanSet() {
				return fmt.Errorf("%w: nil %s", ErrNotAddressable, v.Type())
			}
			v.Set(reflect.New(v.Type().Elem()))
		}
		return c.applyValue(v.Elem(), hint, diff)
	case reflect.Interface:
		if diff == nil || v.IsNil() {
			return assign(v, diff)
		}
		inner := v.Elem()
		if inner.Kind() == reflect.Pointer {
			return c.applyValue(inner, hint, diff)
		}
		if kindOf(inner) == schema.KindScalar {
			return assign(v, diff)
		}
		tmp := addressable(inner)
		err := c.applyValue(tmp, hint, diff)
		v.Set(tmp)
		return err
	}
	if diff == nil {
		return zero(v)
	}
	if kindOf(v) == schema.KindScalar {
		return assign(v, diff)
	}
	n := c.buildFor(v, hint, true)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnrepresentable, v.Type())
	}
	return n.ApplyDiff(diff)
}

func zero(v reflect.Value) error {
	if !v.CanSet() {
		return fmt.Errorf("%w: %s", ErrNotAddressable, v.Type())
	}
	v.SetZero()
	return nil
}

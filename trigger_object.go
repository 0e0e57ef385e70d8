package versync

import (
	"fmt"
	"reflect"

	"github.com/drpcorg/versync/schema"
)

// TriggerObject never re-reads fields on its own: writes go through
// Value[T].Set, Set or Touch, each of which marks the field dirty.
// Only dirty fields are read on the next GenDiff.
//
// A trigger object nested into another one notifies its parent once
// per change; the parent is then re-considered on its next GenDiff.
type TriggerObject struct {
	objectCore
	dirty      []bool
	anyDirty   bool
	childDirty bool
	// outer is the enclosing trigger object, if any; it does not own
	// this replicator
	outer      *TriggerObject
	outerField int
	notified   bool
}

func newTriggerObject(ctx *Context, mark *schema.Mark, target reflect.Value, own bool) *TriggerObject {
	o := &TriggerObject{}
	o.init(ctx, mark, target)
	o.trigger = o
	o.dirty = make([]bool, len(o.fields))
	if own {
		o.own()
	}
	return o
}

// own binds the property fields of the target to this replicator.
// A property already owned by another replicator stays with it.
func (o *TriggerObject) own() {
	for i := range o.fields {
		fv, ok := o.slot(i)
		if !ok {
			continue
		}
		p, ok := asProperty(fv)
		if !ok {
			continue
		}
		if owner := p.propOwner(); owner == nil || owner == o {
			p.propBind(o, i)
		}
	}
}

func (o *TriggerObject) markDirty(i int) {
	if i < 0 || i >= len(o.dirty) {
		return
	}
	o.dirty[i] = true
	o.anyDirty = true
	o.signal()
}

// signal walks up the outer chain until it meets a parent that has
// been told already.
func (o *TriggerObject) signal() {
	for t := o; t.outer != nil && !t.notified; t = t.outer {
		t.notified = true
		t.outer.childDirty = true
	}
}

// Set writes a field through the replicator, by Go field name.
func (o *TriggerObject) Set(name string, value any) error {
	i := o.fieldByName(name)
	if i < 0 {
		o.ctx.log.Warn("set: unknown field", "type", o.mark.Type.String(), "field", name)
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, o.mark.Type.Name(), name)
	}
	fv, ok := o.slot(i)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAddressable, name)
	}
	var old any
	scalar := o.fields[i].live == schema.KindScalar
	if scalar {
		old = readScalar(fv)
	}
	if err := assign(fv, value); err != nil {
		return err
	}
	if scalar && sameScalar(old, readScalar(fv)) {
		return nil
	}
	o.markDirty(i)
	return nil
}

// Touch marks a field dirty after the caller mutated it directly.
func (o *TriggerObject) Touch(name string) error {
	i := o.fieldByName(name)
	if i < 0 {
		o.ctx.log.Warn("touch: unknown field", "type", o.mark.Type.String(), "field", name)
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, o.mark.Type.Name(), name)
	}
	o.markDirty(i)
	return nil
}

// Dirty reports whether anything changed since the last diff.
func (o *TriggerObject) Dirty() bool {
	return o.anyDirty || o.childDirty
}

func (o *TriggerObject) flush(to uint64) {
	if o.anyDirty {
		for i, d := range o.dirty {
			if d {
				o.dirty[i] = false
				o.refresh(i, to)
			}
		}
		o.anyDirty = false
	}
	o.childDirty = false
	o.notified = false
}

func (o *TriggerObject) GenDiff(from, to uint64) Diff {
	if to < from {
		return nil
	}
	o.mark.Use()
	if !o.Dirty() && !o.passive() && from >= o.Version() {
		return nil
	}
	o.flush(to)
	return observe(schema.KindObject, o.collect(from, to, false))
}

func (o *TriggerObject) ResetDiff(to uint64) Diff {
	o.mark.Use()
	o.flush(to)
	return o.collect(0, to, true)
}

func (o *TriggerObject) ApplyDiff(diff Diff) error {
	return observeApply(schema.KindObject, o.apply(diff))
}

func (o *TriggerObject) bind(v reflect.Value) {
	o.target = v
	o.own()
}

func (o *TriggerObject) Kind() schema.Kind {
	return schema.KindObject
}

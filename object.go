package versync

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/drpcorg/versync/schema"
)

// objField is the per-instance record of one schema field.
type objField struct {
	schema.Field
	// kind is the declared kind, live the one seen on the last read;
	// they differ for interface-typed fields only.
	kind schema.Kind
	live schema.Kind
	// version is when the field was last seen different.
	version uint64
	value   any

	nested node
	ident  uintptr
	// since is when the current nested value got bound
	since  uint64
	bound  bool
	absent bool
}

// objectCore is the part scan and trigger objects share: the field
// table, the snapshot, output assembly and diff application.
type objectCore struct {
	ctx     *Context
	mark    *schema.Mark
	target  reflect.Value
	fields  []objField
	version uint64
	// trigger is non-nil for trigger-mode objects; nested trigger
	// objects get linked to it
	trigger *TriggerObject
}

func (o *objectCore) init(ctx *Context, mark *schema.Mark, target reflect.Value) {
	o.ctx, o.mark, o.target = ctx, mark, target
	fields := mark.Fields()
	o.fields = make([]objField, 0, len(fields))
	for _, f := range fields {
		of := objField{Field: f, kind: declaredKind(f)}
		of.live = of.kind
		if of.kind == schema.KindAuto || of.kind == schema.KindScalar {
			of.live = schema.KindScalar
			of.value = baseline(f)
		}
		o.fields = append(o.fields, of)
	}
}

func declaredKind(f schema.Field) schema.Kind {
	if f.Object != nil && f.Object.Kind != schema.KindAuto {
		return f.Object.Kind
	}
	return kindOfType(f.Type)
}

// baseline is what a scalar is diffed against until the snapshot is
// taken: the declared default, or else the zero value of the type.
func baseline(f schema.Field) any {
	if f.HasDefault() {
		return f.Default
	}
	if f.Type.Kind() == reflect.Interface {
		return nil
	}
	return readScalar(reflect.New(f.Type).Elem())
}

// snapshot takes the current values as the state at version 0.
// Fields with a declared default keep it as their baseline.
func (o *objectCore) snapshot() {
	for i := range o.fields {
		f := &o.fields[i]
		if f.live == schema.KindScalar && f.HasDefault() {
			continue
		}
		o.refresh(i, 0)
	}
}

func (o *objectCore) slot(i int) (reflect.Value, bool) {
	fv, err := o.target.FieldByIndexErr(o.fields[i].Index)
	if err != nil {
		return reflect.Value{}, false
	}
	return fv, true
}

func (o *objectCore) fieldByName(name string) int {
	for i := range o.fields {
		if o.fields[i].Name == name {
			return i
		}
	}
	return -1
}

func (o *objectCore) fieldByWire(wire string) int {
	for i := range o.fields {
		if o.fields[i].Wire() == wire {
			return i
		}
	}
	return -1
}

func (o *objectCore) bump(to uint64) {
	if to > o.version {
		o.version = to
	}
}

// refresh re-reads field i and stamps it with `to` if it changed.
func (o *objectCore) refresh(i int, to uint64) {
	f := &o.fields[i]
	fv, ok := o.slot(i)
	if !ok {
		return
	}
	k := f.kind
	if k == schema.KindAuto {
		k = kindOf(fv)
		if k == schema.KindAuto {
			k = schema.KindScalar
		}
	}
	if k == schema.KindScalar {
		if f.live != schema.KindScalar {
			f.nested, f.bound, f.absent = nil, false, false
			f.value = nil
			f.live = schema.KindScalar
		}
		cur := readScalar(fv)
		if !sameScalar(cur, f.value) {
			f.value = cur
			f.version = to
			o.bump(to)
		}
		return
	}
	f.live = k
	o.refreshNested(i, fv, to)
}

func (o *objectCore) refreshNested(i int, fv reflect.Value, to uint64) {
	f := &o.fields[i]
	inner, present := deref(fv)
	if !present {
		if f.bound && !f.absent {
			f.version = to
			o.bump(to)
		}
		f.nested, f.ident = nil, 0
		f.absent, f.bound = true, true
		return
	}
	id := identity(fv)
	if f.nested != nil && !f.absent && id == f.ident {
		f.nested.bind(inner)
		return
	}
	n := o.ctx.build(inner, f.Object)
	if n == nil {
		o.ctx.log.Debug("field value can not be replicated yet", "type", o.mark.Type.String(), "field", f.Name)
		return
	}
	f.nested, f.ident = n, id
	f.absent, f.bound = false, true
	f.since, f.version = to, to
	o.bump(to)
	if t, ok := n.(*TriggerObject); ok && o.trigger != nil {
		t.outer = o.trigger
		t.outerField = i
	}
}

// collect assembles the object diff from stamped versions; reset
// asks for every field regardless of versions.
func (o *objectCore) collect(from, to uint64, reset bool) Diff {
	out := make(map[string]any)
	for i := range o.fields {
		f := &o.fields[i]
		w := f.Wire()
		if f.live == schema.KindScalar {
			if reset || f.version > from {
				out[w] = f.value
			}
			continue
		}
		switch {
		case f.absent:
			if reset || f.version > from {
				out[w] = nil
			}
		case f.nested == nil:
		case reset || f.since > from:
			out[w] = f.nested.ResetDiff(to)
		default:
			if d := f.nested.GenDiff(from, to); d != nil {
				out[w] = d
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (o *objectCore) Version() (v uint64) {
	v = o.version
	for i := range o.fields {
		if n := o.fields[i].nested; n != nil {
			v = maxVersion(v, n.Version())
		}
	}
	return
}

// passive is true when some nested value has to be asked for its
// diff because it can not notify anybody of its changes.
func (o *objectCore) passive() bool {
	for i := range o.fields {
		if n := o.fields[i].nested; n != nil {
			if _, ok := n.(*TriggerObject); !ok {
				return true
			}
		}
	}
	return false
}

func (o *objectCore) apply(diff Diff) error {
	if diff == nil {
		return nil
	}
	m, ok := diff.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: object diff is %T", ErrShapeMismatch, diff)
	}
	var errs []error
	for wire, val := range m {
		i := o.fieldByWire(wire)
		if i < 0 {
			o.ctx.log.Warn("apply: unknown field", "type", o.mark.Type.String(), "field", wire)
			errs = append(errs, fmt.Errorf("%w: %s.%s", ErrUnknownField, o.mark.Type.Name(), wire))
			continue
		}
		if err := o.applyField(i, val); err != nil {
			o.ctx.log.Warn("apply: field skipped", "type", o.mark.Type.String(), "field", wire, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *objectCore) applyField(i int, val any) error {
	f := &o.fields[i]
	fv, ok := o.slot(i)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAddressable, f.Name)
	}
	switch f.kind {
	case schema.KindScalar:
		return assign(fv, val)
	case schema.KindAuto:
		switch kindOf(fv) {
		case schema.KindScalar, schema.KindAuto:
			return assign(fv, val)
		}
	}
	return o.ctx.applyValue(fv, f.Object, val)
}

func (o *objectCore) bind(v reflect.Value) {
	o.target = v
}

// ScanObject finds changes by re-reading every schema field and
// comparing it to the retained snapshot. Equality is strict: a
// nested value mutated in place is only seen through its own
// replicator.
type ScanObject struct {
	objectCore
	checked uint64
}

func newScanObject(ctx *Context, mark *schema.Mark, target reflect.Value) *ScanObject {
	o := &ScanObject{}
	o.init(ctx, mark, target)
	return o
}

func (o *ScanObject) scan(to uint64) {
	if o.checked >= to {
		return
	}
	for i := range o.fields {
		o.refresh(i, to)
	}
	o.checked = to
}

func (o *ScanObject) GenDiff(from, to uint64) Diff {
	if to < from {
		return nil
	}
	o.mark.Use()
	if o.checked >= to && from >= o.Version() {
		return nil
	}
	o.scan(to)
	return observe(schema.KindObject, o.collect(from, to, false))
}

func (o *ScanObject) ResetDiff(to uint64) Diff {
	o.mark.Use()
	o.scan(to)
	return o.collect(0, to, true)
}

func (o *ScanObject) ApplyDiff(diff Diff) error {
	return observeApply(schema.KindObject, o.apply(diff))
}

func (o *ScanObject) Kind() schema.Kind {
	return schema.KindObject
}

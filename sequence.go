package versync

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/drpcorg/versync/schema"
)

// ScalarSequence replicates a slice or array of scalars. The diff is
// [length, i, v, i, v, ...]: shrinking is told by the length alone,
// every element changed within the range comes with its index.
type ScalarSequence struct {
	ctx      *Context
	target   reflect.Value
	snap     []any
	versions []uint64
	// lenVersion is when the length last changed
	lenVersion uint64
	version    uint64
	checked    uint64
}

func newScalarSequence(ctx *Context, target reflect.Value) *ScalarSequence {
	return &ScalarSequence{ctx: ctx, target: target}
}

func (s *ScalarSequence) scan(to uint64) {
	if s.checked >= to {
		return
	}
	s.checked = to
	s.rescan(to)
}

func (s *ScalarSequence) snapshot() {
	s.rescan(0)
}

func (s *ScalarSequence) rescan(to uint64) {
	n, had := s.target.Len(), len(s.snap)
	for i := 0; i < max(n, had); i++ {
		switch {
		case i >= n:
		case i >= had:
			s.snap = append(s.snap, readScalar(s.target.Index(i)))
			s.versions = append(s.versions, to)
			s.version = to
		default:
			cur := readScalar(s.target.Index(i))
			if !sameScalar(cur, s.snap[i]) {
				s.snap[i] = cur
				s.versions[i] = to
				s.version = to
			}
		}
	}
	if n != had {
		s.snap = s.snap[:n]
		s.versions = s.versions[:n]
		s.lenVersion = to
		s.version = to
	}
}

func (s *ScalarSequence) GenDiff(from, to uint64) Diff {
	if to < from {
		return nil
	}
	s.scan(to)
	if from >= s.version {
		return nil
	}
	out := []any{len(s.snap)}
	for i, v := range s.versions {
		if v > from && v <= to {
			out = append(out, i, s.snap[i])
		}
	}
	if len(out) == 1 && s.lenVersion <= from {
		return nil
	}
	return observe(schema.KindSequence, out)
}

func (s *ScalarSequence) ResetDiff(to uint64) Diff {
	s.scan(to)
	out := make([]any, 0, 1+2*len(s.snap))
	out = append(out, len(s.snap))
	for i, v := range s.snap {
		out = append(out, i, v)
	}
	return out
}

func (s *ScalarSequence) ApplyDiff(diff Diff) error {
	err := applySequence(s.target, diff, s.ctx.opts.MaxLength, func(slot reflect.Value, val any) error {
		return assign(slot, val)
	})
	return observeApply(schema.KindSequence, err)
}

func (s *ScalarSequence) bind(v reflect.Value) {
	s.target = v
}

func (s *ScalarSequence) Version() uint64 {
	return s.version
}

func (s *ScalarSequence) Kind() schema.Kind {
	return schema.KindSequence
}

// applySequence resizes target to the length on the wire and hands
// every index/value pair to set. Lengths above limit are refused.
func applySequence(target reflect.Value, diff Diff, limit int, set func(slot reflect.Value, val any) error) error {
	if diff == nil {
		return nil
	}
	arr, ok := diff.([]any)
	if !ok || len(arr) == 0 || len(arr)%2 != 1 {
		return fmt.Errorf("%w: sequence diff %T", ErrShapeMismatch, diff)
	}
	n, ok := toInt(arr[0])
	if !ok || n < 0 || n > max(limit, target.Len()) {
		return fmt.Errorf("%w: sequence length %v", ErrShapeMismatch, arr[0])
	}
	if err := resize(target, n); err != nil {
		return err
	}
	var errs []error
	for i := 1; i < len(arr); i += 2 {
		idx, ok := toInt(arr[i])
		if !ok || idx < 0 || idx >= target.Len() {
			errs = append(errs, fmt.Errorf("%w: index %v of %d", ErrShapeMismatch, arr[i], target.Len()))
			continue
		}
		if err := set(target.Index(idx), arr[i+1]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func resize(target reflect.Value, n int) error {
	l := target.Len()
	if l == n {
		return nil
	}
	if target.Kind() == reflect.Array {
		return fmt.Errorf("%w: array of %d can not hold %d", ErrShapeMismatch, l, n)
	}
	if !target.CanSet() {
		return fmt.Errorf("%w: %s", ErrNotAddressable, target.Type())
	}
	if n < l {
		target.Set(target.Slice(0, n))
		return nil
	}
	target.Set(reflect.AppendSlice(target, reflect.MakeSlice(target.Type(), n-l, n-l)))
	return nil
}

type seqSlot struct {
	rep     node
	ident   uintptr
	present bool
	since   uint64
}

// ObjectSequence replicates a slice or array of complex values with
// a nested replicator per index. A value new at its index, by growth
// or by replacement, travels with its full state.
type ObjectSequence struct {
	ctx        *Context
	target     reflect.Value
	hint       *schema.ObjectOption
	slots      []seqSlot
	lenVersion uint64
	version    uint64
	checked    uint64
}

func newObjectSequence(ctx *Context, target reflect.Value, hint *schema.ObjectOption) *ObjectSequence {
	return &ObjectSequence{ctx: ctx, target: target, hint: elemHint(hint)}
}

func (s *ObjectSequence) scan(to uint64) {
	if s.checked >= to {
		return
	}
	s.checked = to
	s.rescan(to)
}

func (s *ObjectSequence) snapshot() {
	s.rescan(0)
}

func (s *ObjectSequence) rescan(to uint64) {
	n, had := s.target.Len(), len(s.slots)
	if n < had {
		s.slots = s.slots[:n]
	}
	for i := 0; i < n; i++ {
		ev := s.target.Index(i)
		inner, ok := entryValue(ev)
		id := identity(ev)
		if i < len(s.slots) {
			sl := &s.slots[i]
			if sl.ident == id && sl.present == ok {
				switch {
				case !ok:
				case sl.rep != nil:
					sl.rep.bind(inner)
				default:
					// not replicable when first seen, an empty []any for one
					if sl.rep = s.ctx.build(inner, s.hint); sl.rep != nil {
						sl.since = to
						s.version = to
					}
				}
				continue
			}
		}
		sl := seqSlot{ident: id, present: ok, since: to}
		if ok {
			sl.rep = s.ctx.build(inner, s.hint)
		}
		if i < len(s.slots) {
			s.slots[i] = sl
		} else {
			s.slots = append(s.slots, sl)
		}
		s.version = to
	}
	if n != had {
		s.lenVersion = to
		s.version = to
	}
}

func (s *ObjectSequence) GenDiff(from, to uint64) Diff {
	if to < from {
		return nil
	}
	s.scan(to)
	out := []any{len(s.slots)}
	for i := range s.slots {
		sl := &s.slots[i]
		switch {
		case sl.since > to:
		case sl.since > from:
			if !sl.present {
				out = append(out, i, nil)
			} else if sl.rep != nil {
				out = append(out, i, sl.rep.ResetDiff(to))
			}
		case sl.rep != nil:
			if d := sl.rep.GenDiff(from, to); d != nil {
				out = append(out, i, d)
			}
		}
	}
	if len(out) == 1 && s.lenVersion <= from {
		return nil
	}
	return observe(schema.KindSequence, out)
}

func (s *ObjectSequence) ResetDiff(to uint64) Diff {
	s.scan(to)
	out := make([]any, 0, 1+2*len(s.slots))
	out = append(out, len(s.slots))
	for i := range s.slots {
		sl := &s.slots[i]
		switch {
		case !sl.present:
			out = append(out, i, nil)
		case sl.rep != nil:
			out = append(out, i, sl.rep.ResetDiff(to))
		}
	}
	return out
}

func (s *ObjectSequence) ApplyDiff(diff Diff) error {
	err := applySequence(s.target, diff, s.ctx.opts.MaxLength, func(slot reflect.Value, val any) error {
		return s.ctx.applyValue(slot, s.hint, val)
	})
	return observeApply(schema.KindSequence, err)
}

func (s *ObjectSequence) bind(v reflect.Value) {
	s.target = v
}

func (s *ObjectSequence) Version() uint64 {
	v := s.version
	for i := range s.slots {
		if r := s.slots[i].rep; r != nil {
			v = maxVersion(v, r.Version())
		}
	}
	return v
}

func (s *ObjectSequence) Kind() schema.Kind {
	return schema.KindSequence
}

package versync

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/drpcorg/versync/schema"
)

// ScalarMapping replicates a map with scalar values. A new key and a
// changed value are both sent as Add.
type ScalarMapping struct {
	container
	clone map[any]any
}

func newScalarMapping(ctx *Context, target reflect.Value) *ScalarMapping {
	s := &ScalarMapping{clone: make(map[any]any)}
	s.init(ctx, target)
	return s
}

func (s *ScalarMapping) scan(to uint64) {
	if s.checked >= to {
		return
	}
	s.checked = to
	s.rescan(to)
}

func (s *ScalarMapping) snapshot() {
	s.rescan(0)
}

func (s *ScalarMapping) rescan(to uint64) {
	cur := make(map[any]any, s.target.Len())
	it := s.target.MapRange()
	for it.Next() {
		cur[it.Key().Interface()] = readScalar(it.Value())
	}
	if len(cur) == 0 && len(s.clone) > 0 {
		s.clone = cur
		s.record(to, true, nil, schema.KindMapping)
		return
	}
	var added, deleted []any
	for k, v := range cur {
		if old, ok := s.clone[k]; !ok || !sameScalar(old, v) {
			added = append(added, k)
		}
	}
	for k := range s.clone {
		if _, ok := cur[k]; !ok {
			deleted = append(deleted, k)
		}
	}
	sortKeys(added)
	sortKeys(deleted)
	var acts []any
	acts = appendAction(acts, ActAdd, len(added), pairs(added, cur))
	acts = appendAction(acts, ActDelete, len(deleted), deleted)
	s.clone = cur
	s.record(to, false, acts, schema.KindMapping)
}

func pairs(keys []any, m map[any]any) []any {
	out := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, k, m[k])
	}
	return out
}

func (s *ScalarMapping) GenDiff(from, to uint64) Diff {
	if to < from {
		return nil
	}
	s.scan(to)
	if from >= s.version {
		return nil
	}
	acts, _ := s.history(from, to, schema.KindMapping, s.ResetDiff)
	if len(acts) == 0 {
		return nil
	}
	return observe(schema.KindMapping, acts)
}

func (s *ScalarMapping) ResetDiff(to uint64) Diff {
	s.scan(to)
	keys := make([]any, 0, len(s.clone))
	for k := range s.clone {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return appendAction([]any{ActClear}, ActAdd, len(keys), pairs(keys, s.clone))
}

func (s *ScalarMapping) ApplyDiff(diff Diff) error {
	if diff == nil {
		return nil
	}
	m, err := s.writable()
	if err != nil {
		return observeApply(schema.KindMapping, err)
	}
	kt, vt := m.Type().Key(), m.Type().Elem()
	err = walkActions(diff, 2, func(tag ActionTag, items []any) error {
		var errs []error
		switch tag {
		case ActClear:
			m.Clear()
		case ActAdd:
			for i := 0; i < len(items); i += 2 {
				kv, err := convertTo(items[i], kt)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				vv, err := convertTo(items[i+1], vt)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				m.SetMapIndex(kv, vv)
			}
		case ActDelete:
			errs = append(errs, deleteKeys(m, items))
		case ActUpdate:
			errs = append(errs, fmt.Errorf("%w: update on scalar values", ErrBadAction))
		}
		return errors.Join(errs...)
	})
	return observeApply(schema.KindMapping, err)
}

func deleteKeys(m reflect.Value, keys []any) error {
	var errs []error
	kt := m.Type().Key()
	for _, k := range keys {
		kv, err := convertTo(k, kt)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.SetMapIndex(kv, reflect.Value{})
	}
	return errors.Join(errs...)
}

func (s *ScalarMapping) Version() uint64 {
	return s.version
}

func (s *ScalarMapping) Kind() schema.Kind {
	return schema.KindMapping
}

type mapEntry struct {
	rep   node
	ident uintptr
	// present is false for a nil value
	present bool
	// since is the version the entry got added at
	since uint64
}

// sendable tells whether the entry has a state to travel with: a nil
// value or a value with a replicator.
func (e *mapEntry) sendable() bool {
	return !e.present || e.rep != nil
}

// ObjectMapping replicates a map of complex values. Every entry has
// its own nested replicator: a new entry travels as an Add with its
// full state, later changes as Update with the nested diff.
type ObjectMapping struct {
	container
	hint    *schema.ObjectOption
	entries map[any]*mapEntry
}

func newObjectMapping(ctx *Context, target reflect.Value, hint *schema.ObjectOption) *ObjectMapping {
	s := &ObjectMapping{hint: elemHint(hint), entries: make(map[any]*mapEntry)}
	s.init(ctx, target)
	return s
}

// entryValue is the value a nested replicator binds to. Map values
// are not addressable, inline ones get read through a copy.
func entryValue(v reflect.Value) (reflect.Value, bool) {
	inner, ok := deref(v)
	if !ok {
		return inner, false
	}
	return addressable(inner), true
}

func (s *ObjectMapping) scan(to uint64) {
	if s.checked >= to {
		return
	}
	s.checked = to
	s.rescan(to)
}

func (s *ObjectMapping) snapshot() {
	s.rescan(0)
}

func (s *ObjectMapping) rescan(to uint64) {
	live := make(map[any]reflect.Value, s.target.Len())
	it := s.target.MapRange()
	for it.Next() {
		live[it.Key().Interface()] = it.Value()
	}
	if len(live) == 0 && len(s.entries) > 0 {
		s.entries = make(map[any]*mapEntry)
		s.record(to, true, nil, schema.KindMapping)
		return
	}
	var added, deleted []any
	for k, v := range live {
		e := s.entries[k]
		inner, ok := entryValue(v)
		id := identity(v)
		if e != nil && id == e.ident && e.present == ok {
			switch {
			case !ok:
			case e.rep != nil:
				e.rep.bind(inner)
			default:
				// announced once a replicator can be built for it
				if e.rep = s.ctx.build(inner, s.hint); e.rep != nil {
					e.since = to
					added = append(added, k)
				}
			}
			continue
		}
		e = &mapEntry{ident: id, present: ok, since: to}
		if ok {
			e.rep = s.ctx.build(inner, s.hint)
		}
		s.entries[k] = e
		if e.sendable() {
			added = append(added, k)
		}
	}
	for k := range s.entries {
		if _, ok := live[k]; !ok {
			deleted = append(deleted, k)
			delete(s.entries, k)
		}
	}
	if to == 0 {
		return
	}
	sortKeys(added)
	sortKeys(deleted)
	var acts []any
	acts = appendAction(acts, ActAdd, len(added), s.states(added, to))
	acts = appendAction(acts, ActDelete, len(deleted), deleted)
	s.record(to, false, acts, schema.KindMapping)
}

// states pairs the keys with the full state of their values.
func (s *ObjectMapping) states(keys []any, to uint64) []any {
	out := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		var state Diff
		if e := s.entries[k]; e != nil && e.rep != nil {
			state = e.rep.ResetDiff(to)
		}
		out = append(out, k, state)
	}
	return out
}

func (s *ObjectMapping) sortedKeys() []any {
	keys := make([]any, 0, len(s.entries))
	for k, e := range s.entries {
		if e.sendable() {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys
}

func (s *ObjectMapping) GenDiff(from, to uint64) Diff {
	if to < from {
		return nil
	}
	s.scan(to)
	acts, reset := s.history(from, to, schema.KindMapping, s.ResetDiff)
	if !reset {
		var updates []any
		n := 0
		for _, k := range s.sortedKeys() {
			e := s.entries[k]
			if e.rep == nil || e.since > to {
				continue
			}
			if d := e.rep.GenDiff(max(e.since, from), to); d != nil {
				updates = append(updates, k, d)
				n++
			}
		}
		acts = appendAction(acts, ActUpdate, n, updates)
	}
	if len(acts) == 0 {
		return nil
	}
	return observe(schema.KindMapping, acts)
}

func (s *ObjectMapping) ResetDiff(to uint64) Diff {
	s.scan(to)
	keys := s.sortedKeys()
	return appendAction([]any{ActClear}, ActAdd, len(keys), s.states(keys, to))
}

func (s *ObjectMapping) ApplyDiff(diff Diff) error {
	if diff == nil {
		return nil
	}
	m, err := s.writable()
	if err != nil {
		return observeApply(schema.KindMapping, err)
	}
	kt, vt := m.Type().Key(), m.Type().Elem()
	err = walkActions(diff, 2, func(tag ActionTag, items []any) error {
		var errs []error
		switch tag {
		case ActClear:
			m.Clear()
		case ActDelete:
			errs = append(errs, deleteKeys(m, items))
		case ActAdd, ActUpdate:
			for i := 0; i < len(items); i += 2 {
				kv, err := convertTo(items[i], kt)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				val := reflect.New(vt).Elem()
				if tag == ActUpdate {
					cur := m.MapIndex(kv)
					if !cur.IsValid() {
						s.ctx.log.Warn("apply: update for a missing key", "key", items[i])
						errs = append(errs, fmt.Errorf("%w: %v", ErrUnknownKey, items[i]))
						continue
					}
					val.Set(cur)
				}
				if items[i+1] != nil {
					if err := s.ctx.applyValue(val, s.hint, items[i+1]); err != nil {
						errs = append(errs, err)
					}
				}
				m.SetMapIndex(kv, val)
			}
		}
		return errors.Join(errs...)
	})
	return observeApply(schema.KindMapping, err)
}

func (s *ObjectMapping) Version() uint64 {
	v := s.version
	for _, e := range s.entries {
		if e.rep != nil {
			v = maxVersion(v, e.rep.Version())
		}
	}
	return v
}

func (s *ObjectMapping) Kind() schema.Kind {
	return schema.KindMapping
}

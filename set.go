package versync

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/drpcorg/versync/schema"
)

// container is what sets and mappings share: the bound map, the
// action log and the scan bookkeeping.
type container struct {
	ctx     *Context
	target  reflect.Value
	log     *ActionLog
	version uint64
	checked uint64
}

func (c *container) init(ctx *Context, target reflect.Value) {
	c.ctx = ctx
	c.target = target
	c.log = NewActionLog(ctx.opts.HistoryLimit)
}

func (c *container) bind(v reflect.Value) {
	c.target = v
}

// writable returns the bound map, allocating it if the slot allows.
func (c *container) writable() (reflect.Value, error) {
	m := c.target
	if m.IsNil() {
		if !m.CanSet() {
			return reflect.Value{}, fmt.Errorf("%w: nil %s", ErrNotAddressable, m.Type())
		}
		m.Set(reflect.MakeMap(m.Type()))
	}
	return m, nil
}

// record appends the actions observed by a scan at version to.
// Version 0 is the snapshot and leaves no history.
func (c *container) record(to uint64, clear bool, acts []any, kind schema.Kind) {
	switch {
	case to == 0:
		return
	case clear:
		c.log.Clear(to, acts)
	case len(acts) > 0:
		c.log.Append(to, acts)
	default:
		return
	}
	c.version = to
	observeHistory(kind, c.log.Len())
}

// history answers (from, to] from the log; a range reaching behind
// the retained log is answered with the full state.
func (c *container) history(from, to uint64, kind schema.Kind, reset func(uint64) Diff) ([]any, bool) {
	acts, ok := c.log.Since(from, to)
	if !ok {
		c.ctx.log.Debug("history range is gone, sending the full state", "kind", kind.String(), "from", from, "horizon", c.log.horizon)
		historyReset(kind)
		full, _ := reset(to).([]any)
		return full, true
	}
	return acts, false
}

func appendAction(acts []any, tag ActionTag, n int, items []any) []any {
	if n == 0 {
		return acts
	}
	acts = append(acts, tag, n)
	return append(acts, items...)
}

// walkActions splits an action list into actions. Add carries
// addWidth items per element, Update two, Delete one, Clear none.
func walkActions(diff Diff, addWidth int, fn func(tag ActionTag, items []any) error) error {
	arr, ok := diff.([]any)
	if !ok {
		return fmt.Errorf("%w: action list is %T", ErrShapeMismatch, diff)
	}
	var errs []error
	for i := 0; i < len(arr); {
		t, ok := toInt(arr[i])
		if !ok {
			return fmt.Errorf("%w: tag %v at %d", ErrBadAction, arr[i], i)
		}
		tag := ActionTag(t)
		i++
		if tag == ActClear {
			if err := fn(tag, nil); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		width := 0
		switch tag {
		case ActAdd:
			width = addWidth
		case ActDelete:
			width = 1
		case ActUpdate:
			width = 2
		default:
			return fmt.Errorf("%w: tag %d at %d", ErrBadAction, t, i-1)
		}
		if i >= len(arr) {
			return fmt.Errorf("%w: %s without count", ErrBadAction, tag)
		}
		n, ok := toInt(arr[i])
		i++
		if !ok || n < 0 || n > (len(arr)-i)/width {
			return fmt.Errorf("%w: bad %s count %v", ErrBadAction, tag, arr[i-1])
		}
		if err := fn(tag, arr[i:i+n*width]); err != nil {
			errs = append(errs, err)
		}
		i += n * width
	}
	return errors.Join(errs...)
}

// ScalarSet replicates a map[K]struct{} with add/delete actions.
type ScalarSet struct {
	container
	clone map[any]struct{}
}

func newScalarSet(ctx *Context, target reflect.Value) *ScalarSet {
	s := &ScalarSet{clone: make(map[any]struct{})}
	s.init(ctx, target)
	return s
}

func (s *ScalarSet) scan(to uint64) {
	if s.checked >= to {
		return
	}
	s.checked = to
	s.rescan(to)
}

func (s *ScalarSet) snapshot() {
	s.rescan(0)
}

func (s *ScalarSet) rescan(to uint64) {
	cur := make(map[any]struct{}, s.target.Len())
	for _, k := range s.target.MapKeys() {
		cur[k.Interface()] = struct{}{}
	}
	if len(cur) == 0 && len(s.clone) > 0 {
		s.clone = cur
		s.record(to, true, nil, schema.KindSet)
		return
	}
	var added, deleted []any
	for k := range cur {
		if _, ok := s.clone[k]; !ok {
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
	acts = appendAction(acts, ActAdd, len(added), added)
	acts = appendAction(acts, ActDelete, len(deleted), deleted)
	s.clone = cur
	s.record(to, false, acts, schema.KindSet)
}

func (s *ScalarSet) GenDiff(from, to uint64) Diff {
	if to < from {
		return nil
	}
	s.scan(to)
	if from >= s.version {
		return nil
	}
	acts, _ := s.history(from, to, schema.KindSet, s.ResetDiff)
	if len(acts) == 0 {
		return nil
	}
	return observe(schema.KindSet, acts)
}

// ResetDiff is [Clear, Add, n, keys...].
func (s *ScalarSet) ResetDiff(to uint64) Diff {
	s.scan(to)
	keys := make([]any, 0, len(s.clone))
	for k := range s.clone {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return appendAction([]any{ActClear}, ActAdd, len(keys), keys)
}

func (s *ScalarSet) ApplyDiff(diff Diff) error {
	if diff == nil {
		return nil
	}
	m, err := s.writable()
	if err != nil {
		return observeApply(schema.KindSet, err)
	}
	kt, present := m.Type().Key(), reflect.Zero(m.Type().Elem())
	err = walkActions(diff, 1, func(tag ActionTag, items []any) error {
		if tag == ActClear {
			m.Clear()
			return nil
		}
		if tag == ActUpdate {
			return fmt.Errorf("%w: update on a set", ErrBadAction)
		}
		var errs []error
		for _, k := range items {
			kv, err := convertTo(k, kt)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if tag == ActAdd {
				m.SetMapIndex(kv, present)
			} else {
				m.SetMapIndex(kv, reflect.Value{})
			}
		}
		return errors.Join(errs...)
	})
	return observeApply(schema.KindSet, err)
}

func (s *ScalarSet) Version() uint64 {
	return s.version
}

func (s *ScalarSet) Kind() schema.Kind {
	return schema.KindSet
}

package versync

import (
	"reflect"

	"github.com/drpcorg/versync/schema"
)

// Diff is the structural change of a value between two versions.
// nil means "no change". Objects and trees diff into map[string]any,
// sequences and containers into []any (see the wire shapes in the
// package docs).
type Diff = any

// Replicator is the capability every replicated value exposes.
// GenDiff describes the change in (from, to]; ApplyDiff makes the
// local value follow such a description. Versions are supplied by
// the caller and never generated here.
type Replicator interface {
	GenDiff(from, to uint64) Diff
	ApplyDiff(diff Diff) error
	Version() uint64
}

// Resetter describes the whole current state as a diff against a
// blank value. Replicators without it are reset with GenDiff(0, to).
type Resetter interface {
	ResetDiff(to uint64) Diff
}

// Reset describes the whole state of r at version to, for a copy
// that starts blank.
func Reset(r Replicator, to uint64) Diff {
	if rs, ok := r.(Resetter); ok {
		return rs.ResetDiff(to)
	}
	return r.GenDiff(0, to)
}

// node is what the built-in variants implement on top of Replicator;
// bind re-points a replicator at its target after the parent re-read
// the slot holding it.
type node interface {
	Replicator
	Resetter
	bind(v reflect.Value)
	Kind() schema.Kind
}

var (
	replicatorType = reflect.TypeOf((*Replicator)(nil)).Elem()
	propertyType   = reflect.TypeOf((*property)(nil)).Elem()
	treeNodeType   = reflect.TypeOf((*TreeNode)(nil)).Elem()
)

func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || (t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(iface))
}

// asReplicator finds a user-implemented Replicator in v or behind &v.
func asReplicator(v reflect.Value) (Replicator, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.Kind() != reflect.Pointer && v.CanAddr() && v.Addr().Type().Implements(replicatorType) {
		return v.Addr().Interface().(Replicator), true
	}
	if v.Type().Implements(replicatorType) && (v.Kind() != reflect.Pointer || !v.IsNil()) {
		r, ok := v.Interface().(Replicator)
		return r, ok
	}
	return nil, false
}

// leafNode adapts a user Replicator (a custom leaf like Vec3).
type leafNode struct {
	rep Replicator
}

func newLeafNode(v reflect.Value) *leafNode {
	rep, ok := asReplicator(v)
	if !ok {
		return nil
	}
	return &leafNode{rep: rep}
}

func (l *leafNode) GenDiff(from, to uint64) Diff {
	return observe(schema.KindLeaf, l.rep.GenDiff(from, to))
}

func (l *leafNode) ApplyDiff(diff Diff) error {
	return observeApply(schema.KindLeaf, l.rep.ApplyDiff(diff))
}

func (l *leafNode) Version() uint64 {
	return l.rep.Version()
}

func (l *leafNode) ResetDiff(to uint64) Diff {
	if r, ok := l.rep.(Resetter); ok {
		return r.ResetDiff(to)
	}
	return l.rep.GenDiff(0, to)
}

// snapshot is forwarded to leaves that keep a baseline of their own.
func (l *leafNode) snapshot() {
	if s, ok := l.rep.(interface{ Snapshot() }); ok {
		s.Snapshot()
	}
}

func (l *leafNode) bind(v reflect.Value) {
	if rep, ok := asReplicator(v); ok {
		l.rep = rep
	}
}

func (l *leafNode) Kind() schema.Kind {
	return schema.KindLeaf
}

package versync

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/drpcorg/versync/schema"
)

// TreeNode is a node of a composite tree. Names need to be stable,
// they make the path keys of the tree diff.
type TreeNode interface {
	TreeName() string
	TreeChildren() []TreeNode
}

// Attachments lists the components attached to a tree node.
type Attachments interface {
	TreeAttached() []any
}

type treeEntry struct {
	path string
	rep  node
}

// Tree replicates every registered object found in a tree of nodes:
// the nodes themselves and their attachments. The diff is keyed by
// path: ancestor names joined with "/", then ":Type" for attachments.
//
// The tree is walked once, when the replicator is built. Nodes added
// or removed later are not seen; build a new replicator for the new
// topology.
type Tree struct {
	ctx     *Context
	root    TreeNode
	entries []treeEntry
	paths   map[string]int
}

func newTree(ctx *Context, v reflect.Value, apply bool) *Tree {
	root, ok := treeNode(v)
	if !ok {
		return nil
	}
	t := &Tree{ctx: ctx, root: root, paths: make(map[string]int)}
	t.walk(root, "", apply)
	return t
}

func treeNode(v reflect.Value) (TreeNode, bool) {
	if v.CanAddr() {
		if n, ok := v.Addr().Interface().(TreeNode); ok {
			return n, true
		}
	}
	if v.CanInterface() {
		n, ok := v.Interface().(TreeNode)
		return n, ok
	}
	return nil, false
}

func (t *Tree) add(path string, rep node) {
	for n := 1; ; n++ {
		if _, taken := t.paths[path]; !taken {
			break
		}
		path = strings.TrimSuffix(path, "#"+strconv.Itoa(n-1)) + "#" + strconv.Itoa(n)
	}
	t.paths[path] = len(t.entries)
	t.entries = append(t.entries, treeEntry{path: path, rep: rep})
}

func (t *Tree) walk(n TreeNode, prefix string, apply bool) {
	path := n.TreeName()
	if prefix != "" {
		path = prefix + "/" + path
	}
	if v, ok := t.target(n); ok {
		if mark := t.ctx.reg.Mark(v.Type(), false); mark != nil {
			hint := &schema.ObjectOption{Kind: schema.KindObject, Mode: mark.Mode}
			if rep := t.ctx.buildFor(v, hint, apply); rep != nil {
				t.add(path, rep)
			}
		}
	}
	if a, ok := n.(Attachments); ok {
		for _, c := range a.TreeAttached() {
			v, ok := t.target(c)
			if !ok {
				continue
			}
			if t.ctx.reg.Mark(v.Type(), false) == nil && !implements(v.Type(), replicatorType) {
				continue
			}
			if rep := t.ctx.buildFor(v, nil, apply); rep != nil {
				t.add(path+":"+v.Type().Name(), rep)
			}
		}
	}
	for _, c := range n.TreeChildren() {
		if c != nil {
			t.walk(c, path, apply)
		}
	}
}

// target is the addressable struct behind a node or component.
func (t *Tree) target(x any) (reflect.Value, bool) {
	v, ok := deref(reflect.ValueOf(x))
	if !ok || !v.CanAddr() {
		return reflect.Value{}, false
	}
	return v, true
}

func (t *Tree) GenDiff(from, to uint64) Diff {
	if to < from {
		return nil
	}
	out := make(map[string]any)
	for _, e := range t.entries {
		if d := e.rep.GenDiff(from, to); d != nil {
			out[e.path] = d
		}
	}
	if len(out) == 0 {
		return nil
	}
	return observe(schema.KindTree, out)
}

func (t *Tree) ResetDiff(to uint64) Diff {
	out := make(map[string]any, len(t.entries))
	for _, e := range t.entries {
		if d := e.rep.ResetDiff(to); d != nil {
			out[e.path] = d
		}
	}
	return out
}

func (t *Tree) ApplyDiff(diff Diff) error {
	if diff == nil {
		return nil
	}
	m, ok := diff.(map[string]any)
	if !ok {
		return observeApply(schema.KindTree, fmt.Errorf("%w: tree diff is %T", ErrShapeMismatch, diff))
	}
	var errs []error
	for path, d := range m {
		i, ok := t.paths[path]
		if !ok {
			t.ctx.log.Warn("apply: unknown tree path", "path", path)
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownPath, path))
			continue
		}
		if err := t.entries[i].rep.ApplyDiff(d); err != nil {
			errs = append(errs, err)
		}
	}
	return observeApply(schema.KindTree, errors.Join(errs...))
}

func (t *Tree) Version() (v uint64) {
	for _, e := range t.entries {
		v = maxVersion(v, e.rep.Version())
	}
	return
}

// Paths lists the path keys in walk order.
func (t *Tree) Paths() []string {
	paths := make([]string, len(t.entries))
	for i, e := range t.entries {
		paths[i] = e.path
	}
	return paths
}

func (t *Tree) bind(reflect.Value) {}

func (t *Tree) Kind() schema.Kind {
	return schema.KindTree
}

package versync

import (
	"testing"

	"github.com/drpcorg/versync/schema"
	"github.com/stretchr/testify/assert"
)

type Node struct {
	Name  string
	Kids  []*Node
	Comps []any
}

func (n *Node) TreeName() string {
	return n.Name
}

func (n *Node) TreeChildren() []TreeNode {
	kids := make([]TreeNode, len(n.Kids))
	for i, k := range n.Kids {
		kids[i] = k
	}
	return kids
}

func (n *Node) TreeAttached() []any {
	return n.Comps
}

type Health struct {
	HP int
}

type Label struct {
	Text string
}

func scene() *Node {
	return &Node{Name: "root", Kids: []*Node{
		{Name: "a", Comps: []any{&Health{HP: 10}, &Label{Text: "unregistered"}}},
		{Name: "a", Comps: []any{&Health{HP: 5}, &Vec3{}}},
	}}
}

func TestTree(t *testing.T) {
	ctx := testContext()
	_, err := ctx.Register(Health{}, schema.Decl{})
	assert.Nil(t, err)

	root := scene()
	rep := ctx.Replicator(root)
	tree, ok := rep.(*Tree)
	assert.True(t, ok)
	assert.Equal(t, []string{"root/a:Health", "root/a:Health#1", "root/a:Vec3"}, tree.Paths())

	root.Kids[1].Comps[0].(*Health).HP = 4
	root.Kids[1].Comps[1].(*Vec3).Z = 1
	d := rep.GenDiff(0, 1)
	assert.Equal(t, map[string]any{
		"root/a:Health#1": map[string]any{"HP": 4},
		"root/a:Vec3":     []any{0.0, 0.0, 1.0},
	}, d)
	assert.Nil(t, rep.GenDiff(1, 2))

	other := scene()
	sinkRep := ctx.Replicator(other)
	assert.Nil(t, sinkRep.ApplyDiff(d))
	assert.Equal(t, 4, other.Kids[1].Comps[0].(*Health).HP)
	assert.Equal(t, 1.0, other.Kids[1].Comps[1].(*Vec3).Z)
	assert.Equal(t, 10, other.Kids[0].Comps[0].(*Health).HP)

	err = sinkRep.ApplyDiff(map[string]any{"root/b:Health": map[string]any{"HP": 1}})
	assert.ErrorIs(t, err, ErrUnknownPath)
}

func TestTreeNodes(t *testing.T) {
	ctx := testContext()
	_, err := ctx.Register(Node{}, schema.Decl{SyncProperty: []schema.Property{{Name: "Name"}}})
	assert.Nil(t, err)

	root := &Node{Name: "root", Kids: []*Node{{Name: "leaf"}}}
	rep := ctx.Replicator(root, &schema.ObjectOption{Kind: schema.KindTree})
	tree := rep.(*Tree)
	assert.Equal(t, []string{"root", "root/leaf"}, tree.Paths())

	root.Kids[0].Name = "renamed"
	assert.Equal(t, map[string]any{"root/leaf": map[string]any{"Name": "renamed"}}, rep.GenDiff(0, 1))
}

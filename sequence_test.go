package versync

import (
	"math"
	"testing"

	"github.com/drpcorg/versync/schema"
	"github.com/drpcorg/versync/utils"
	"github.com/stretchr/testify/assert"
)

func TestScalarSequence(t *testing.T) {
	ctx := testContext()
	xs := []int{1, 2, 3}
	rep := ctx.Replicator(&xs)
	_, ok := rep.(*ScalarSequence)
	assert.True(t, ok)

	sink := []int{1, 2, 3}
	sinkRep := ctx.Replicator(&sink)

	xs[1] = 20
	xs = append(xs, 4)
	d := rep.GenDiff(0, 1)
	assert.Equal(t, []any{4, 1, 20, 3, 4}, d)
	assert.Nil(t, sinkRep.ApplyDiff(d))
	assert.Equal(t, xs, sink)

	xs = xs[:2]
	d = rep.GenDiff(1, 2)
	assert.Equal(t, []any{2}, d)
	assert.Nil(t, sinkRep.ApplyDiff(d))
	assert.Equal(t, []int{1, 20}, sink)

	assert.Nil(t, rep.GenDiff(2, 3))
	assert.Equal(t, []any{2, 1, 20}, rep.GenDiff(0, 3))
	assert.Equal(t, []any{2, 0, 1, 1, 20}, Reset(rep, 3))

	assert.ErrorIs(t, sinkRep.ApplyDiff([]any{2, 5, 1}), ErrShapeMismatch)
	assert.ErrorIs(t, sinkRep.ApplyDiff([]any{2, 1}), ErrShapeMismatch)
}

func TestArraySequence(t *testing.T) {
	ctx := testContext()
	arr := [3]string{"a", "b", "c"}
	rep := ctx.Replicator(&arr)
	arr[2] = "z"
	assert.Equal(t, []any{3, 2, "z"}, rep.GenDiff(0, 1))

	sink := [3]string{}
	sinkRep := ctx.Replicator(&sink)
	assert.Nil(t, sinkRep.ApplyDiff(Reset(rep, 1)))
	assert.Equal(t, arr, sink)
	assert.ErrorIs(t, sinkRep.ApplyDiff([]any{4}), ErrShapeMismatch)
}

func TestObjectSequence(t *testing.T) {
	ctx := testContext()
	items := []*Item{{Count: 1}}
	rep := ctx.Replicator(&items)
	_, ok := rep.(*ObjectSequence)
	assert.True(t, ok)

	sink := []*Item{{Count: 1}}
	sinkRep := ctx.Replicator(&sink)

	items[0].Count = 5
	d := rep.GenDiff(0, 1)
	assert.Equal(t, []any{1, 0, map[string]any{"Count": 5}}, d)
	assert.Nil(t, sinkRep.ApplyDiff(d))

	items = append(items, &Item{Tag: "n"})
	d = rep.GenDiff(1, 2)
	assert.Equal(t, []any{2, 1, map[string]any{"Count": 0, "Tag": "n"}}, d)
	assert.Nil(t, sinkRep.ApplyDiff(d))
	assert.Equal(t, items, sink)

	items[0] = nil
	d = rep.GenDiff(2, 3)
	assert.Equal(t, []any{2, 0, nil}, d)
	assert.Nil(t, sinkRep.ApplyDiff(d))
	assert.Nil(t, sink[0])

	assert.Nil(t, rep.GenDiff(3, 4))
}

func TestSequenceHint(t *testing.T) {
	ctx := testContext()
	var empty []any
	assert.Nil(t, ctx.Replicator(&empty))

	rep := ctx.Replicator(&empty, &schema.ObjectOption{Kind: schema.KindSequence, Elem: schema.KindScalar})
	assert.NotNil(t, rep)
	empty = append(empty, "x", 2)
	assert.Equal(t, []any{2, 0, "x", 1, 2}, rep.GenDiff(0, 1))

	var sink []any
	assert.Nil(t, ctx.Replicator(&sink, &schema.ObjectOption{Kind: schema.KindSequence, Elem: schema.KindScalar}).ApplyDiff(Reset(rep, 1)))
	assert.Equal(t, empty, sink)
}

func TestSequenceLengthLimit(t *testing.T) {
	ctx := testContext()
	xs := []int{}
	rep := ctx.Replicator(&xs)
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, rep.ApplyDiff([]any{int64(1 << 50)}), ErrShapeMismatch)
		assert.ErrorIs(t, rep.ApplyDiff([]any{uint64(math.MaxUint64)}), ErrShapeMismatch)
	})
	assert.Empty(t, xs)

	small := NewContext(Options{MaxLength: 4, Logger: utils.NewDiscardLogger()})
	ys := []int{1}
	srep := small.Replicator(&ys)
	assert.ErrorIs(t, srep.ApplyDiff([]any{5}), ErrShapeMismatch)
	assert.Nil(t, srep.ApplyDiff([]any{4, 3, 7}))
	assert.Equal(t, []int{1, 0, 0, 7}, ys)

	items := []*Item{}
	irep := small.Replicator(&items)
	assert.ErrorIs(t, irep.ApplyDiff([]any{5, 4, map[string]any{"Count": 1}}), ErrShapeMismatch)
	assert.Empty(t, items)
}

func TestObjectSequenceLateElement(t *testing.T) {
	ctx := testContext()
	rows := [][]any{{}}
	rep := ctx.Replicator(&rows)
	_, ok := rep.(*ObjectSequence)
	assert.True(t, ok)

	sink := [][]any{}
	sinkRep := ctx.Replicator(&sink)
	assert.Nil(t, sinkRep.ApplyDiff(Reset(rep, 0)))
	assert.Len(t, sink, 1)

	// nothing to replicate an empty []any with until it gets values
	rows[0] = append(rows[0], 1, "x")
	d := rep.GenDiff(0, 1)
	assert.Equal(t, []any{1, 0, []any{2, 0, 1, 1, "x"}}, d)
	assert.Nil(t, sinkRep.ApplyDiff(d))
	assert.Equal(t, rows, sink)

	rows[0][1] = "y"
	d = rep.GenDiff(1, 2)
	assert.Equal(t, []any{1, 0, []any{2, 1, "y"}}, d)
	assert.Nil(t, sinkRep.ApplyDiff(d))
	assert.Equal(t, rows, sink)
	assert.Equal(t, []any{1, 0, []any{2, 0, 1, 1, "y"}}, Reset(rep, 2))
}

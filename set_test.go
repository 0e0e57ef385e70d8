package versync

import (
	"math"
	"testing"

	"github.com/drpcorg/versync/utils"
	"github.com/stretchr/testify/assert"
)

func TestScalarSet(t *testing.T) {
	ctx := testContext()
	s := map[int]struct{}{1: {}, 2: {}, 3: {}}
	rep := ctx.Replicator(s)
	_, ok := rep.(*ScalarSet)
	assert.True(t, ok)
	assert.Nil(t, rep.GenDiff(0, 1))

	s[4] = struct{}{}
	delete(s, 2)
	d := rep.GenDiff(1, 2)
	assert.Equal(t, []any{ActAdd, 1, 4, ActDelete, 1, 2}, d)

	sink := map[int]struct{}{1: {}, 2: {}, 3: {}}
	assert.Nil(t, ctx.Replicator(sink).ApplyDiff(d))
	assert.Equal(t, s, sink)

	assert.Equal(t, []any{ActClear, ActAdd, 3, 1, 3, 4}, Reset(rep, 2))
}

func TestScalarSetHistory(t *testing.T) {
	ctx := testContext()
	s := map[string]struct{}{}
	rep := ctx.Replicator(s)

	s["a"] = struct{}{}
	rep.GenDiff(0, 2)
	s["b"] = struct{}{}
	rep.GenDiff(2, 5)
	delete(s, "a")
	rep.GenDiff(5, 9)

	assert.Equal(t, []any{ActAdd, 1, "b", ActDelete, 1, "a"}, rep.GenDiff(3, 9))
	assert.Equal(t, []any{ActDelete, 1, "a"}, rep.GenDiff(5, 9))
	assert.Equal(t, []any{ActAdd, 1, "a", ActAdd, 1, "b"}, rep.GenDiff(0, 5))
	assert.Nil(t, rep.GenDiff(9, 10))

	// a cleared container forgets what was before the clear
	clear(s)
	assert.Equal(t, []any{ActClear}, rep.GenDiff(10, 12))
	assert.Equal(t, []any{ActClear}, rep.GenDiff(3, 12))
	assert.Equal(t, []any{ActClear}, rep.GenDiff(11, 12))

	s["c"] = struct{}{}
	assert.Equal(t, []any{ActClear, ActAdd, 1, "c"}, rep.GenDiff(11, 13))

	sink := map[string]struct{}{"x": {}}
	assert.Nil(t, ctx.Replicator(sink).ApplyDiff(rep.GenDiff(0, 13)))
	assert.Equal(t, s, sink)
}

func TestScalarSetHorizon(t *testing.T) {
	ctx := NewContext(Options{HistoryLimit: 2, Logger: utils.NewDiscardLogger()})
	s := map[int]struct{}{}
	rep := ctx.Replicator(s)
	for v := uint64(1); v <= 3; v++ {
		s[int(v)] = struct{}{}
		assert.Equal(t, []any{ActAdd, 1, int(v)}, rep.GenDiff(v-1, v))
	}
	assert.Equal(t, []any{ActAdd, 1, 2, ActAdd, 1, 3}, rep.GenDiff(1, 3))
	assert.Equal(t, []any{ActClear, ActAdd, 3, 1, 2, 3}, rep.GenDiff(0, 3))
}

func TestScalarSetApplyErrors(t *testing.T) {
	ctx := testContext()
	sink := map[int]struct{}{}
	rep := ctx.Replicator(sink)
	assert.ErrorIs(t, rep.ApplyDiff([]any{ActUpdate, 1, 1, 2}), ErrBadAction)
	assert.ErrorIs(t, rep.ApplyDiff([]any{ActAdd, 2, 1}), ErrBadAction)
	assert.ErrorIs(t, rep.ApplyDiff(map[string]any{}), ErrShapeMismatch)
	assert.ErrorIs(t, rep.ApplyDiff([]any{ActAdd, 2, 1, "two"}), ErrShapeMismatch)
	assert.Contains(t, sink, 1)

	var nilSet map[int]struct{}
	assert.Nil(t, ctx.Replicator(&nilSet).ApplyDiff([]any{ActAdd, 1, 7}))
	assert.Contains(t, nilSet, 7)
}

func TestActionCountsOutOfRange(t *testing.T) {
	ctx := testContext()
	m := map[string]int{}
	rep := ctx.Replicator(m)
	set := map[string]struct{}{}
	setRep := ctx.Replicator(set)
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, rep.ApplyDiff([]any{ActAdd, uint64(1 << 62), "a", 1}), ErrBadAction)
		assert.ErrorIs(t, rep.ApplyDiff([]any{ActUpdate, int64(math.MaxInt64), "a", 1}), ErrBadAction)
		assert.ErrorIs(t, setRep.ApplyDiff([]any{ActDelete, uint64(math.MaxUint64), "a"}), ErrBadAction)
		assert.ErrorIs(t, setRep.ApplyDiff([]any{ActAdd, 1e300, "a"}), ErrBadAction)
	})
	assert.Empty(t, m)
	assert.Empty(t, set)
}

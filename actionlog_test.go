package versync

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionLog(t *testing.T) {
	l := NewActionLog(3)
	l.Append(2, []any{ActAdd, 1, "a"})
	l.Append(2, []any{ActDelete, 1, "b"})
	l.Append(1, []any{ActAdd, 1, "late"})
	l.Append(4, nil)
	l.Append(5, []any{ActAdd, 1, "c"})
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, uint64(5), l.Last())
	assert.Equal(t, []any{ActAdd, 1, "a", ActDelete, 1, "b"}, l.Entries()[0].Actions)

	assert.Equal(t, 0, l.Search(0))
	assert.Equal(t, 1, l.Search(3))
	assert.Equal(t, 2, l.Search(6))

	acts, ok := l.Since(2, 5)
	assert.True(t, ok)
	assert.Equal(t, []any{ActAdd, 1, "c"}, acts)
	acts, ok = l.Since(0, 4)
	assert.True(t, ok)
	assert.Equal(t, []any{ActAdd, 1, "a", ActDelete, 1, "b"}, acts)

	l.Append(6, []any{ActAdd, 1, "d"})
	l.Append(7, []any{ActAdd, 1, "e"})
	assert.Equal(t, 3, l.Len())
	_, ok = l.Since(1, 7)
	assert.False(t, ok)
	acts, ok = l.Since(2, 7)
	assert.True(t, ok)
	assert.Len(t, acts, 9)

	l.Clear(9, []any{ActAdd, 1, "z"})
	assert.Equal(t, 1, l.Len())
	_, ok = l.Since(7, 9)
	assert.False(t, ok)
	acts, ok = l.Since(8, 9)
	assert.True(t, ok)
	assert.Equal(t, []any{ActClear, ActAdd, 1, "z"}, acts)

	acts, ok = l.Since(9, 9)
	assert.True(t, ok)
	assert.Nil(t, acts)
	acts, ok = l.Since(math.MaxUint64, math.MaxUint64)
	assert.True(t, ok)
	assert.Nil(t, acts)
}

func TestActionTagString(t *testing.T) {
	assert.Equal(t, "add", ActAdd.String())
	assert.Equal(t, "update", ActUpdate.String())
	assert.Equal(t, "unknown", ActionTag(9).String())
}

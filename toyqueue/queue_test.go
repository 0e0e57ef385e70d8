package toyqueue

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlockingRecordQueue_Drain(t *testing.T) {
	const N = 1 << 10
	const K = 1 << 4
	ctx := context.Background()

	queue := NewRecordQueue(1024).Blocking()

	for k := 0; k < K; k++ {
		go func(k int) {
			i := uint64(k) << 32
			for n := uint64(0); n < N; n++ {
				var b [8]byte
				binary.LittleEndian.PutUint64(b[:], i|n)
				err := queue.Drain(ctx, Records{b[:]})
				assert.Nil(t, err)
			}
		}(k)
	}

	check := [K]int{}
	for i := uint64(0); i < N*K; {
		nums, err := queue.Feed(ctx)
		assert.Nil(t, err)
		for _, num := range nums {
			assert.Equal(t, 8, len(num))
			j := binary.LittleEndian.Uint64(num)
			k := int(j >> 32)
			n := int(j & 0xffffffff)
			assert.Equal(t, check[k], n)
			check[k] = n + 1
			i++
		}
	}

	assert.Nil(t, queue.Close())
	assert.Equal(t, ErrClosed, queue.Drain(ctx, Records{{'a'}}))
	_, err := queue.Feed(ctx)
	assert.Equal(t, ErrClosed, err)
}

func TestRecordQueue_NonBlocking(t *testing.T) {
	ctx := context.Background()
	q := NewRecordQueue(2)
	assert.Nil(t, q.Drain(ctx, Records{{'a'}, {'b'}}))
	assert.Equal(t, ErrWouldBlock, q.Drain(ctx, Records{{'c'}}))
	recs, err := q.Feed(ctx)
	assert.Nil(t, err)
	assert.Equal(t, Records{{'a'}, {'b'}}, recs)
	_, err = q.Feed(ctx)
	assert.Equal(t, ErrWouldBlock, err)

	assert.Nil(t, q.Drain(ctx, Records{{'d'}}))
	assert.Nil(t, q.Close())
	recs, err = q.Feed(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(recs))
	_, err = q.Feed(ctx)
	assert.Equal(t, ErrClosed, err)
}

func TestBlockingFeed_Cancel(t *testing.T) {
	q := NewRecordQueue(4).Blocking()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Feed(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFanoutAndPump(t *testing.T) {
	ctx := context.Background()
	a, b := NewRecordQueue(8), NewRecordQueue(8)
	fan := Fanout{}
	fan.AddDrain(a)
	fan.AddDrain(b)
	assert.Equal(t, 2, fan.Len())

	src := NewRecordQueue(8)
	assert.Nil(t, src.Drain(ctx, Records{{'x'}, {'y'}}))
	assert.Nil(t, src.Close())
	assert.Equal(t, ErrClosed, Pump(ctx, src, &fan))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())

	assert.Nil(t, a.Close())
	err := fan.Drain(ctx, Records{{'z'}})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 1, fan.Len())
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, ErrNotKnown, fan.RemoveDrain(a))
}

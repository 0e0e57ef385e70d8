package toyqueue

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrWouldBlock = errors.New("the queue is over capacity")
	ErrClosed     = errors.New("queue is closed")
)

// RecordQueue is a bounded in-memory queue of records. The plain
// queue fails with ErrWouldBlock, the Blocking view waits instead.
type RecordQueue struct {
	recs   Records
	lock   sync.Mutex
	cond   sync.Cond
	Limit  int
	closed bool
}

func NewRecordQueue(limit int) *RecordQueue {
	q := &RecordQueue{Limit: limit}
	q.cond.L = &q.lock
	return q
}

func (q *RecordQueue) Drain(ctx context.Context, recs Records) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.closed {
		return ErrClosed
	}
	if len(q.recs)+len(recs) > q.Limit {
		return ErrWouldBlock
	}
	q.recs = append(q.recs, recs...)
	q.cond.Broadcast()
	return nil
}

func (q *RecordQueue) Feed(ctx context.Context) (recs Records, err error) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.recs) == 0 {
		if q.closed {
			return nil, ErrClosed
		}
		return nil, ErrWouldBlock
	}
	recs = q.recs
	q.recs = nil
	q.cond.Broadcast()
	return
}

// Close lets the queued records be fed, then Feed reports ErrClosed.
func (q *RecordQueue) Close() error {
	q.lock.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.lock.Unlock()
	return nil
}

func (q *RecordQueue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.recs)
}

func (q *RecordQueue) Blocking() FeedDrainCloser {
	return &blockingRecordQueue{q}
}

type blockingRecordQueue struct {
	queue *RecordQueue
}

func (bq *blockingRecordQueue) Close() error {
	return bq.queue.Close()
}

// wait blocks on the condition until woken or ctx is done.
func (q *RecordQueue) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		q.lock.Lock()
		q.cond.Broadcast()
		q.lock.Unlock()
	})
	q.cond.Wait()
	stop()
	return ctx.Err()
}

func (bq *blockingRecordQueue) Drain(ctx context.Context, recs Records) error {
	q := bq.queue
	q.lock.Lock()
	defer q.lock.Unlock()
	for len(recs) > 0 {
		for !q.closed && q.Limit <= len(q.recs) {
			if err := q.wait(ctx); err != nil {
				return err
			}
		}
		if q.closed {
			return ErrClosed
		}
		n := min(q.Limit-len(q.recs), len(recs))
		q.recs = append(q.recs, recs[:n]...)
		recs = recs[n:]
		q.cond.Broadcast()
	}
	return nil
}

func (bq *blockingRecordQueue) Feed(ctx context.Context) (recs Records, err error) {
	q := bq.queue
	q.lock.Lock()
	defer q.lock.Unlock()
	for len(q.recs) == 0 {
		if q.closed {
			return nil, ErrClosed
		}
		if err = q.wait(ctx); err != nil {
			return nil, err
		}
	}
	recs = q.recs
	q.recs = nil
	q.cond.Broadcast()
	return
}

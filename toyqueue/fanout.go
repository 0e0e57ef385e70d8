package toyqueue

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var ErrNotKnown = errors.New("unknown drain")

// Fanout drains every batch into each of its drains, e.g. one queue
// per subscriber of a stream.
type Fanout struct {
	drains []Drainer
	lock   sync.Mutex
}

func (f *Fanout) AddDrain(drain Drainer) {
	f.lock.Lock()
	f.drains = append(f.drains, drain)
	f.lock.Unlock()
}

func (f *Fanout) RemoveDrain(drain Drainer) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	i := slices.Index(f.drains, drain)
	if i < 0 {
		return ErrNotKnown
	}
	f.drains = slices.Delete(f.drains, i, i+1)
	return nil
}

// Drain hands the batch to every drain; a failing drain is dropped
// and its error returned.
func (f *Fanout) Drain(ctx context.Context, recs Records) error {
	f.lock.Lock()
	drains := slices.Clone(f.drains)
	f.lock.Unlock()
	var errs []error
	for _, d := range drains {
		if err := d.Drain(ctx, recs); err != nil {
			errs = append(errs, err)
			_ = f.RemoveDrain(d)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Len() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.drains)
}

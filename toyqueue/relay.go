package toyqueue

import "context"

// Relay moves one batch from feeder to drainer.
func Relay(ctx context.Context, feeder Feeder, drainer Drainer) error {
	recs, err := feeder.Feed(ctx)
	if len(recs) > 0 {
		if derr := drainer.Drain(ctx, recs); err == nil {
			err = derr
		}
	}
	return err
}

// Pump relays until either side fails.
func Pump(ctx context.Context, feeder Feeder, drainer Drainer) (err error) {
	for err == nil {
		err = Relay(ctx, feeder, drainer)
	}
	return
}

func PumpThenClose(ctx context.Context, feed FeedCloser, drain DrainCloser) error {
	err := Pump(ctx, feed, drain)
	_ = feed.Close()
	_ = drain.Close()
	return err
}

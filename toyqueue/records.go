// Package toyqueue moves batches of packet records between the
// producers and the consumers of diffs.
package toyqueue

import (
	"context"
	"io"

	"github.com/drpcorg/versync/protocol"
)

type Records = protocol.Records

type Feeder interface {
	// Feed returns the next batch. Like io.Reader, it may return
	// records along with an error.
	Feed(ctx context.Context) (recs Records, err error)
}

type FeedCloser interface {
	Feeder
	io.Closer
}

type Drainer interface {
	Drain(ctx context.Context, recs Records) error
}

type DrainCloser interface {
	Drainer
	io.Closer
}

type FeedDrainCloser interface {
	Feeder
	Drainer
	io.Closer
}

package versync

import (
	"context"
	"errors"
	"fmt"

	"github.com/drpcorg/versync/protocol"
	"github.com/drpcorg/versync/toyqueue"
	"github.com/drpcorg/versync/utils"
)

// Recorder keeps the packets a publisher sends, e.g. a journal.
type Recorder interface {
	Append(pkt protocol.DiffPacket) error
}

// Publisher turns the diffs of one replicator into packets of a
// named stream. The first packet carries the whole state, every next
// one the range since the previous, so a subscriber that got them all
// in order holds the same state.
type Publisher struct {
	Name    string
	Rep     Replicator
	Out     toyqueue.Drainer
	Journal Recorder
	last    uint64
	started bool
	// drains attached on the go, see Attach
	fanout toyqueue.Fanout
}

// Attach adds a drain that gets every packet from the next one on.
// A drain that fails is detached.
func (p *Publisher) Attach(drain toyqueue.Drainer) {
	p.fanout.AddDrain(drain)
}

func (p *Publisher) Detach(drain toyqueue.Drainer) error {
	return p.fanout.RemoveDrain(drain)
}

// Publish sends the changes up to version to; no change, no packet.
func (p *Publisher) Publish(ctx context.Context, to uint64) error {
	if to < p.last {
		return fmt.Errorf("%w: %s at %d, asked for %d", ErrOutOfOrder, p.Name, p.last, to)
	}
	var d Diff
	if p.started {
		d = p.Rep.GenDiff(p.last, to)
	} else {
		d = Reset(p.Rep, to)
	}
	if d == nil {
		return nil
	}
	body, err := protocol.EncodeDiff(d)
	if err != nil {
		return err
	}
	pkt := protocol.DiffPacket{Name: p.Name, From: p.last, To: to, Body: body}
	if p.Journal != nil {
		if err = p.Journal.Append(pkt); err != nil {
			return err
		}
	}
	recs := protocol.Records{pkt.Record()}
	if p.Out != nil {
		if err = p.Out.Drain(ctx, recs); err != nil {
			return err
		}
	}
	p.last, p.started = to, true
	if p.fanout.Len() > 0 {
		// the packet is sent; the error names the drains dropped
		return p.fanout.Drain(ctx, recs)
	}
	return nil
}

// Last is the end version of the last packet sent.
func (p *Publisher) Last() uint64 {
	return p.last
}

// Subscriber applies the packets of named streams to their sinks.
// A packet has to start at or before the end of the previous one of
// its stream, otherwise changes in between would be missed.
type Subscriber struct {
	sinks  map[string]Replicator
	last   map[string]uint64
	log    utils.Logger
	closed bool
}

func NewSubscriber(log utils.Logger) *Subscriber {
	if log == nil {
		log = utils.NewDiscardLogger()
	}
	return &Subscriber{
		sinks: make(map[string]Replicator),
		last:  make(map[string]uint64),
		log:   log,
	}
}

// Sink routes the stream to rep, starting after version from.
func (s *Subscriber) Sink(name string, rep Replicator, from uint64) {
	s.sinks[name] = rep
	s.last[name] = from
}

func (s *Subscriber) Last(name string) uint64 {
	return s.last[name]
}

// Apply handles one packet record. Errors of a partly applied diff
// are returned but the stream still moves on.
func (s *Subscriber) Apply(rec []byte) error {
	pkt, err := protocol.ParseDiffPacket(rec)
	if err != nil {
		return err
	}
	rep, ok := s.sinks[pkt.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSink, pkt.Name)
	}
	last := s.last[pkt.Name]
	if pkt.From > last {
		return fmt.Errorf("%w: %s at %d, packet %d..%d", ErrOutOfOrder, pkt.Name, last, pkt.From, pkt.To)
	}
	if pkt.To <= last {
		return nil
	}
	d, err := protocol.DecodeDiff(pkt.Body)
	if err != nil {
		return err
	}
	err = rep.ApplyDiff(d)
	s.last[pkt.Name] = pkt.To
	if err != nil {
		s.log.Warn("diff applied partly", "stream", pkt.Name, "to", pkt.To, "err", err)
	}
	return err
}

// Drain applies a batch of packet records. Packet errors are logged,
// they do not fail the batch.
func (s *Subscriber) Drain(ctx context.Context, recs toyqueue.Records) error {
	if s.closed {
		return toyqueue.ErrClosed
	}
	for _, rec := range recs {
		if err := s.Apply(rec); err != nil {
			s.log.WarnCtx(ctx, "packet skipped", "err", err)
		}
	}
	return ctx.Err()
}

// Close makes further batches fail with toyqueue.ErrClosed.
func (s *Subscriber) Close() error {
	s.closed = true
	return nil
}

// Run applies whatever the feeder yields until it is closed, fails
// or ctx ends.
func (s *Subscriber) Run(ctx context.Context, in toyqueue.Feeder) error {
	return endOfFeed(toyqueue.Pump(ctx, in, s))
}

// Follow runs the feed to its end, then closes both the feed and the
// subscriber.
func (s *Subscriber) Follow(ctx context.Context, in toyqueue.FeedCloser) error {
	return endOfFeed(toyqueue.PumpThenClose(ctx, in, s))
}

func endOfFeed(err error) error {
	if errors.Is(err, toyqueue.ErrClosed) {
		return nil
	}
	return err
}

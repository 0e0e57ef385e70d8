// Package journal persists diff packets in pebble so that a stream
// can be replayed into a fresh replica or inspected later.
//
// Keys are 'D' stream-name 0x00 big-endian(to). Values are the
// xxhash of the packet record followed by the record itself. The
// instance id lives under 'Y'.
package journal

import (
	"context"
	"encoding/binary"
	"math"
	"slices"

	"github.com/cespare/xxhash"
	"github.com/cockroachdb/pebble"
	"github.com/drpcorg/versync/protocol"
	"github.com/drpcorg/versync/toyqueue"
	"github.com/drpcorg/versync/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrChecksum   = errors.New("journal: packet checksum mismatch")
	ErrBadKey     = errors.New("journal: malformed key")
	ErrBadName    = errors.New("journal: stream name must not contain zero bytes")
	ErrNoInstance = errors.New("journal: no instance id")
)

const (
	packetPrefix = 'D'
	idKey        = 'Y'
)

type Options struct {
	// Sync makes every Append wait for the WAL to reach the disk.
	Sync   bool
	Logger utils.Logger
	// Pebble is passed to pebble.Open as is.
	Pebble *pebble.Options
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDiscardLogger()
	}
	if o.Pebble == nil {
		o.Pebble = &pebble.Options{}
	}
}

type Journal struct {
	db   *pebble.DB
	dir  string
	id   uuid.UUID
	opts Options
	log  utils.Logger
}

// Open opens or creates the journal in dir.
func Open(dir string, opts Options) (*Journal, error) {
	opts.SetDefaults()
	db, err := pebble.Open(dir, opts.Pebble)
	if err != nil {
		return nil, errors.Wrapf(err, "open journal %s", dir)
	}
	j := &Journal{db: db, dir: dir, opts: opts, log: opts.Logger}
	if err = j.loadID(); err != nil {
		_ = db.Close()
		return nil, err
	}
	j.log.Info("journal open", "dir", dir, "id", j.id.String())
	return j, nil
}

func (j *Journal) loadID() error {
	val, closer, err := j.db.Get([]byte{idKey})
	if err == nil {
		defer closer.Close()
		j.id, err = uuid.FromBytes(val)
		return errors.Wrap(err, "read instance id")
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return errors.Wrap(err, "read instance id")
	}
	j.id, err = uuid.NewV7()
	if err != nil {
		return errors.Wrap(err, "make instance id")
	}
	return errors.Wrap(j.db.Set([]byte{idKey}, j.id[:], pebble.Sync), "store instance id")
}

func (j *Journal) ID() uuid.UUID {
	return j.id
}

func (j *Journal) Dir() string {
	return j.dir
}

func (j *Journal) Close() error {
	return errors.Wrap(j.db.Close(), "close journal")
}

func streamPrefix(name string) []byte {
	key := make([]byte, 0, len(name)+2)
	key = append(key, packetPrefix)
	key = append(key, name...)
	return append(key, 0)
}

// PacketKey is the key of the packet of stream name ending at to.
func PacketKey(name string, to uint64) []byte {
	return binary.BigEndian.AppendUint64(streamPrefix(name), to)
}

func ParseKey(key []byte) (name string, to uint64, err error) {
	if len(key) < 10 || key[0] != packetPrefix || key[len(key)-9] != 0 {
		return "", 0, ErrBadKey
	}
	return string(key[1 : len(key)-9]), binary.BigEndian.Uint64(key[len(key)-8:]), nil
}

func checkName(name string) error {
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return ErrBadName
		}
	}
	return nil
}

func encodeValue(rec []byte) []byte {
	val := make([]byte, 8, 8+len(rec))
	binary.LittleEndian.PutUint64(val, xxhash.Sum64(rec))
	return append(val, rec...)
}

func decodeValue(val []byte) ([]byte, error) {
	if len(val) < 8 {
		return nil, ErrChecksum
	}
	rec := val[8:]
	if binary.LittleEndian.Uint64(val[:8]) != xxhash.Sum64(rec) {
		return nil, ErrChecksum
	}
	return rec, nil
}

// Append stores the packet under its stream and end version; a later
// packet with the same end version replaces it.
func (j *Journal) Append(pkt protocol.DiffPacket) error {
	if err := checkName(pkt.Name); err != nil {
		return err
	}
	wo := pebble.NoSync
	if j.opts.Sync {
		wo = pebble.Sync
	}
	err := j.db.Set(PacketKey(pkt.Name, pkt.To), encodeValue(pkt.Record()), wo)
	if err != nil {
		return errors.Wrapf(err, "append %s", pkt.String())
	}
	AppendedPackets.WithLabelValues(pkt.Name).Inc()
	return nil
}

// Range calls fn for every packet of the stream whose end version
// is in (from, to], in version order.
func (j *Journal) Range(name string, from, to uint64, fn func(pkt protocol.DiffPacket) error) error {
	if to <= from {
		return nil
	}
	upper := PacketKey(name, to+1)
	if to == math.MaxUint64 {
		upper = streamPrefix(name)
		upper[len(upper)-1] = 1
	}
	it, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: PacketKey(name, from+1),
		UpperBound: upper,
	})
	if err != nil {
		return errors.Wrap(err, "range")
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		rec, err := decodeValue(slices.Clone(it.Value()))
		if err != nil {
			return errors.Wrapf(err, "key %x", it.Key())
		}
		pkt, err := protocol.ParseDiffPacket(rec)
		if err != nil {
			return errors.Wrapf(err, "key %x", it.Key())
		}
		if err = fn(pkt); err != nil {
			return err
		}
	}
	return errors.Wrap(it.Error(), "range")
}

// Replay drains the packet records of the stream newer than from
// into out, batch by batch.
func (j *Journal) Replay(ctx context.Context, name string, from uint64, out toyqueue.Drainer) (last uint64, err error) {
	last = from
	var batch toyqueue.Records
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := out.Drain(ctx, batch)
		batch = nil
		return err
	}
	err = j.Range(name, from, math.MaxUint64, func(pkt protocol.DiffPacket) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, pkt.Record())
		last = pkt.To
		if len(batch) >= 64 {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	return
}

// Last is the end version of the newest packet of the stream, 0 if none.
func (j *Journal) Last(name string) (uint64, error) {
	upper := streamPrefix(name)
	upper[len(upper)-1] = 1
	it, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: streamPrefix(name),
		UpperBound: upper,
	})
	if err != nil {
		return 0, errors.Wrap(err, "last")
	}
	defer it.Close()
	if !it.Last() {
		return 0, errors.Wrap(it.Error(), "last")
	}
	_, to, err := ParseKey(it.Key())
	return to, err
}

// Streams lists the stream names present in the journal.
func (j *Journal) Streams() (names []string, err error) {
	it, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{packetPrefix},
		UpperBound: []byte{packetPrefix + 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "streams")
	}
	defer it.Close()
	for valid := it.First(); valid; {
		name, _, err := ParseKey(it.Key())
		if err != nil {
			return names, errors.Wrapf(err, "key %x", it.Key())
		}
		names = append(names, name)
		next := streamPrefix(name)
		next[len(next)-1] = 1
		valid = it.SeekGE(next)
	}
	return names, errors.Wrap(it.Error(), "streams")
}

// Truncate drops the packets of the stream ending at or before upTo.
func (j *Journal) Truncate(name string, upTo uint64) error {
	upper := PacketKey(name, upTo+1)
	if upTo == math.MaxUint64 {
		upper = streamPrefix(name)
		upper[len(upper)-1] = 1
	}
	err := j.db.DeleteRange(PacketKey(name, 0), upper, pebble.NoSync)
	return errors.Wrapf(err, "truncate %s", name)
}

func (j *Journal) Metrics() *pebble.Metrics {
	return j.db.Metrics()
}

package protocol

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// DiffPacket carries the diff of one named stream for the version
// range (From, To]. Body is the msgpack encoding of the diff.
type DiffPacket struct {
	Name string
	From uint64
	To   uint64
	Body []byte
}

const (
	PacketLit = 'D'
	NameLit   = 'N'
	FromLit   = 'F'
	ToLit     = 'T'
	BodyLit   = 'B'
)

func (p *DiffPacket) Record() []byte {
	return Record(PacketLit,
		TinyRecord(NameLit, []byte(p.Name)),
		TinyRecord(FromLit, ZipUint64(p.From)),
		TinyRecord(ToLit, ZipUint64(p.To)),
		Record(BodyLit, p.Body),
	)
}

func (p *DiffPacket) String() string {
	return fmt.Sprintf("%s (%d,%d] %d bytes", p.Name, p.From, p.To, len(p.Body))
}

func ParseDiffPacket(rec []byte) (p DiffPacket, err error) {
	body, _, err := TakeWary(PacketLit, rec)
	if err != nil {
		return
	}
	var name, from, to []byte
	if name, body, err = TakeWary(NameLit, body); err != nil {
		return
	}
	if from, body, err = TakeWary(FromLit, body); err != nil {
		return
	}
	if to, body, err = TakeWary(ToLit, body); err != nil {
		return
	}
	if p.Body, _, err = TakeWary(BodyLit, body); err != nil {
		return
	}
	p.Name = string(name)
	p.From = UnzipUint64(from)
	p.To = UnzipUint64(to)
	if p.To < p.From {
		err = fmt.Errorf("%w: range (%d,%d]", ErrBadRecord, p.From, p.To)
	}
	return
}

// EncodeDiff serializes a diff value: nested map[string]any, []any
// and scalars.
func EncodeDiff(d any) ([]byte, error) {
	return msgpack.Marshal(d)
}

// DecodeDiff is the inverse of EncodeDiff. Integers come back as
// int64 or uint64, maps as map[string]any.
func DecodeDiff(body []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(body))
	dec.UseLooseInterfaceDecoding(true)
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return nil, err
	}
	return normalize(v), nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	}
	return v
}

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffPacket(t *testing.T) {
	body, err := EncodeDiff(map[string]any{"hp": 50})
	assert.Nil(t, err)
	pkt := DiffPacket{Name: "player", From: 3, To: 300, Body: body}
	rec := pkt.Record()
	assert.Equal(t, byte(PacketLit), Lit(rec))

	back, err := ParseDiffPacket(rec)
	assert.Nil(t, err)
	assert.Equal(t, pkt, back)

	_, err = ParseDiffPacket(rec[:len(rec)-1])
	assert.ErrorIs(t, err, ErrIncomplete)

	bad := DiffPacket{Name: "x", From: 5, To: 4}
	_, err = ParseDiffPacket(bad.Record())
	assert.ErrorIs(t, err, ErrBadRecord)
}

func TestDiffCodec(t *testing.T) {
	diff := map[string]any{
		"name": "bob",
		"pos":  []any{1.5, 2.0, -3.25},
		"tags": []any{0, 1, "red", 1, 1, "blue"},
		"inv": map[string]any{
			"gold": nil,
		},
	}
	body, err := EncodeDiff(diff)
	assert.Nil(t, err)
	back, err := DecodeDiff(body)
	assert.Nil(t, err)

	m, ok := back.(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "bob", m["name"])
	assert.Equal(t, []any{1.5, 2.0, -3.25}, m["pos"])
	tags, ok := m["tags"].([]any)
	assert.True(t, ok)
	assert.Equal(t, 6, len(tags))
	assert.EqualValues(t, 1, tags[1])
	assert.Equal(t, "blue", tags[5])
	inv, ok := m["inv"].(map[string]any)
	assert.True(t, ok)
	v, present := inv["gold"]
	assert.True(t, present)
	assert.Nil(t, v)
}

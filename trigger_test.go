package versync

import (
	"testing"

	"github.com/drpcorg/versync/schema"
	"github.com/stretchr/testify/assert"
)

type Account struct {
	Owner   Value[string]
	Balance Value[int] `sync:"balance"`
	Note    string
}

type Wallet struct {
	Label string
	Acc   *Account
}

func triggerContext(t *testing.T) *Context {
	ctx := testContext()
	_, err := ctx.Register(Account{}, schema.Decl{Mode: schema.ModeTrigger})
	assert.Nil(t, err)
	_, err = ctx.Register(Wallet{}, schema.Decl{Mode: schema.ModeTrigger})
	assert.Nil(t, err)
	return ctx
}

func TestTriggerObject(t *testing.T) {
	ctx := triggerContext(t)
	a := &Account{Owner: NewValue("ann")}
	rep, ok := ctx.Replicator(a).(*TriggerObject)
	assert.True(t, ok)
	assert.False(t, rep.Dirty())

	// plain writes go unnoticed until touched
	a.Note = "x"
	assert.Nil(t, rep.GenDiff(0, 1))

	a.Balance.Set(10)
	assert.True(t, rep.Dirty())
	assert.Equal(t, map[string]any{"balance": 10}, rep.GenDiff(1, 2))
	assert.False(t, rep.Dirty())

	a.Balance.Set(10)
	assert.False(t, rep.Dirty())

	assert.Nil(t, rep.Touch("Note"))
	assert.Equal(t, map[string]any{"Note": "x"}, rep.GenDiff(2, 3))

	assert.Nil(t, rep.Set("Owner", "bob"))
	assert.Equal(t, "bob", a.Owner.Get())
	assert.Equal(t, map[string]any{"Owner": "bob"}, rep.GenDiff(3, 4))

	assert.ErrorIs(t, rep.Set("Nope", 1), ErrUnknownField)
	assert.ErrorIs(t, rep.Touch("Nope"), ErrUnknownField)

	assert.Equal(t, map[string]any{"balance": 10, "Note": "x", "Owner": "bob"}, rep.GenDiff(1, 4))

	sink := &Account{}
	assert.Nil(t, ctx.Replicator(sink).ApplyDiff(Reset(rep, 4)))
	assert.Equal(t, "bob", sink.Owner.Get())
	assert.Equal(t, 10, sink.Balance.Get())
	assert.Equal(t, "x", sink.Note)
}

func TestTriggerNested(t *testing.T) {
	ctx := triggerContext(t)
	w := &Wallet{Label: "main", Acc: &Account{}}
	rep := ctx.Replicator(w).(*TriggerObject)
	assert.False(t, rep.Dirty())

	w.Acc.Balance.Set(5)
	assert.True(t, rep.Dirty())
	d := rep.GenDiff(0, 1)
	assert.Equal(t, map[string]any{"Acc": map[string]any{"balance": 5}}, d)
	assert.False(t, rep.Dirty())
	assert.Nil(t, rep.GenDiff(1, 2))

	sink := &Wallet{}
	sinkRep := ctx.Replicator(sink)
	assert.Nil(t, sinkRep.ApplyDiff(Reset(rep, 2)))
	assert.NotNil(t, sink.Acc)
	assert.Equal(t, 5, sink.Acc.Balance.Get())
	assert.Equal(t, "main", sink.Label)

	w.Acc.Balance.Set(6)
	w.Acc.Balance.Set(7)
	assert.Nil(t, sinkRep.ApplyDiff(rep.GenDiff(2, 3)))
	assert.Equal(t, 7, sink.Acc.Balance.Get())
}

func TestValueUnbound(t *testing.T) {
	v := NewValue(3)
	v.Set(4)
	assert.Equal(t, 4, v.Get())
	assert.Equal(t, "4", v.String())
}

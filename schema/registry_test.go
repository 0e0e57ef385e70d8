package schema

import (
	"reflect"
	"testing"

	"github.com/drpcorg/versync/utils"
	"github.com/stretchr/testify/assert"
)

type Ship struct {
	Name   string
	Hull   int `sync:"hull"`
	Secret int `sync:"-"`
	Crew   []string
	cargo  int
}

func TestReflectFields(t *testing.T) {
	reg := NewRegistry(nil)
	assert.Nil(t, reg.Mark(reflect.TypeOf(Ship{}), false))

	mark := reg.MarkOf(&Ship{}, true)
	assert.NotNil(t, mark)
	assert.False(t, mark.Declared)
	assert.Equal(t, ModeScan, mark.Mode)
	assert.Equal(t, []string{"Name", "Hull", "Crew"}, mark.Fields().Names())

	f, ok := mark.ByWire("hull")
	assert.True(t, ok)
	assert.Equal(t, "Hull", f.Name)
	_, ok = mark.Field("Secret")
	assert.False(t, ok)
	assert.Same(t, mark, reg.Mark(reflect.TypeOf(&Ship{}), false))

	assert.Nil(t, reg.Mark(reflect.TypeOf(5), true))
}

func TestRegister(t *testing.T) {
	reg := NewRegistry(utils.NewDiscardLogger())
	mark, err := reg.Register(Ship{}, Decl{
		SyncProperty: []Property{
			{Name: "Hull", Setter: "h", Default: 10},
			{Name: "Name"},
			{Name: "Missing"},
			{Name: "cargo"},
			{Name: "Crew", Default: 3},
		},
		SkipProperty: []string{"Name"},
		Mode:         ModeTrigger,
	})
	assert.Nil(t, err)
	assert.True(t, mark.Declared)
	assert.Equal(t, ModeTrigger, mark.Mode)
	assert.Equal(t, []string{"Hull", "Crew"}, mark.Fields().Names())

	hull, _ := mark.Field("Hull")
	assert.Equal(t, "h", hull.Wire())
	assert.True(t, hull.HasDefault())
	assert.Equal(t, 10, hull.Default)
	crew, _ := mark.Field("Crew")
	assert.False(t, crew.HasDefault())

	again, err := reg.Register(&Ship{}, Decl{SkipProperty: []string{"Crew"}})
	assert.ErrorIs(t, err, ErrDeclared)
	assert.Same(t, mark, again)
	assert.Equal(t, []string{"Hull", "Crew"}, mark.Fields().Names())
	mark.Use()
	_, err = reg.Register(Ship{}, Decl{})
	assert.ErrorIs(t, err, ErrMarkInUse)
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Register(5, Decl{})
	assert.ErrorIs(t, err, ErrNotStruct)
}

func TestRegisterOverReflected(t *testing.T) {
	reg := NewRegistry(nil)
	reflected := reg.MarkOf(Ship{}, true)
	assert.False(t, reflected.Declared)

	mark, err := reg.Register(Ship{}, Decl{SkipProperty: []string{"Crew"}})
	assert.Nil(t, err)
	assert.NotSame(t, reflected, mark)
	assert.Same(t, mark, reg.MarkOf(Ship{}, false))
	assert.Equal(t, []string{"Name", "Hull"}, mark.Fields().Names())
}

func TestRegisterPrototypeDefaults(t *testing.T) {
	reg := NewRegistry(nil)
	mark, err := reg.Register(&Ship{Name: "boat", Hull: 7}, Decl{
		SyncProperty: []Property{
			{Name: "Name"},
			{Name: "Hull", Default: 9},
			{Name: "Crew"},
		},
	})
	assert.Nil(t, err)
	name, _ := mark.Field("Name")
	assert.Equal(t, "boat", name.Default)
	hull, _ := mark.Field("Hull")
	assert.Equal(t, 9, hull.Default)
	crew, _ := mark.Field("Crew")
	assert.False(t, crew.HasDefault())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "object", KindObject.String())
	assert.Equal(t, "auto", KindAuto.String())
}

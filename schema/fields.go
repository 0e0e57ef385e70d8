package schema

// A Mark describes one replicable Go struct type. Each Field
// is an exported struct field that takes part in replication.
// Fields keep declaration order; that order is also the order
// in which scan replicators walk them. A field may travel under
// an alternate wire name (the "setter"). Once a replicator has
// used a mark, its field set is frozen.

import (
	"reflect"
	"unicode/utf8"
)

// Kind is the value kind a replicator is built for.
type Kind byte

const (
	KindAuto     Kind = 0
	KindScalar   Kind = 'S'
	KindObject   Kind = 'O'
	KindSequence Kind = 'L'
	KindSet      Kind = 'E'
	KindMapping  Kind = 'M'
	KindTree     Kind = 'T'
	KindLeaf     Kind = 'X'
)

func (k Kind) String() string {
	switch k {
	case KindAuto:
		return "auto"
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindSequence:
		return "sequence"
	case KindSet:
		return "set"
	case KindMapping:
		return "mapping"
	case KindTree:
		return "tree"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Mode is the change-detection strategy of an object.
type Mode byte

const (
	ModeScan    Mode = 'S'
	ModeTrigger Mode = 'T'
)

// ObjectOption is the nested-value policy of a field: which container
// kind to build for it and how its elements diff. It disambiguates
// values whose shape cannot be inferred, e.g. an empty []any.
type ObjectOption struct {
	Kind Kind
	// Elem is KindScalar or KindObject for containers.
	Elem Kind
	// Mode applies to nested objects that have no mark of their own.
	Mode Mode
}

type Field struct {
	Name    string
	Setter  string
	Index   []int
	Type    reflect.Type
	Default any
	Object  *ObjectOption
}

// Wire is the key the field travels under.
func (f Field) Wire() string {
	if f.Setter != "" {
		return f.Setter
	}
	return f.Name
}

func (f Field) Valid() bool {
	for _, l := range f.Name {
		if l < ' ' {
			return false
		}
	}
	return len(f.Name) > 0 && utf8.ValidString(f.Name) && len(f.Index) > 0
}

// HasDefault reports whether the field declares an explicit default.
func (f Field) HasDefault() bool {
	return f.Default != nil
}

type Fields []Field

func (fs Fields) FindName(name string) int {
	for i := 0; i < len(fs); i++ {
		if fs[i].Name == name {
			return i
		}
	}
	return -1
}

func (fs Fields) FindWire(wire string) int {
	for i := 0; i < len(fs); i++ {
		if fs[i].Wire() == wire {
			return i
		}
	}
	return -1
}

func (fs Fields) Names() (names []string) {
	for _, f := range fs {
		names = append(names, f.Name)
	}
	return
}

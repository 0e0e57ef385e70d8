package schema

import (
	"errors"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/drpcorg/versync/utils"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	ErrNotStruct  = errors.New("versync: schema prototype is not a struct")
	ErrMarkInUse  = errors.New("versync: schema already used by a replicator")
	ErrDeclared   = errors.New("versync: schema already declared")
	ErrNoFields   = errors.New("versync: schema has no replicable fields")
	ErrBadDefault = errors.New("versync: default value does not fit the field")
)

// Property is one entry of an explicit SyncProperty list.
type Property struct {
	Name   string
	Setter string
	// Default is the baseline a scan replicator diffs the first read
	// against. Without one, a non-zero field of the prototype is taken.
	Default any
	Object  *ObjectOption
}

// Decl is the per-type declaration supplied at startup.
// An empty SyncProperty means "every exported field", minus SkipProperty.
type Decl struct {
	SyncProperty []Property
	SkipProperty []string
	Mode         Mode
}

type Mark struct {
	Type reflect.Type
	Mode Mode

	// Declared is set for marks that came from Register
	Declared bool

	fields Fields
	once   sync.Once
	used   atomic.Bool
}

func (m *Mark) Fields() Fields {
	return m.fields
}

func (m *Mark) Field(name string) (f Field, ok bool) {
	i := m.fields.FindName(name)
	if i < 0 {
		return
	}
	return m.fields[i], true
}

func (m *Mark) ByWire(wire string) (f Field, ok bool) {
	i := m.fields.FindWire(wire)
	if i < 0 {
		return
	}
	return m.fields[i], true
}

// Use freezes the mark; a replicator calls it before its first diff.
func (m *Mark) Use() {
	m.used.Store(true)
}

func (m *Mark) InUse() bool {
	return m.used.Load()
}

// build is idempotent, the first call wins.
func (m *Mark) build(t reflect.Type, proto reflect.Value, decl Decl, log utils.Logger) {
	m.once.Do(func() {
		m.Type = t
		m.Mode = decl.Mode
		if m.Mode == 0 {
			m.Mode = ModeScan
		}
		if len(decl.SyncProperty) > 0 {
			m.fields = explicitFields(t, proto, decl, log)
		} else {
			m.fields = reflectFields(t, decl.SkipProperty)
		}
	})
}

func explicitFields(t reflect.Type, proto reflect.Value, decl Decl, log utils.Logger) (fields Fields) {
	for _, p := range decl.SyncProperty {
		if slices.Contains(decl.SkipProperty, p.Name) || fields.FindName(p.Name) >= 0 {
			continue
		}
		sf, ok := t.FieldByName(p.Name)
		if !ok || !sf.IsExported() {
			log.Warn("schema: no such exported field", "type", t.String(), "field", p.Name)
			continue
		}
		f := Field{
			Name:   p.Name,
			Setter: p.Setter,
			Index:  sf.Index,
			Type:   sf.Type,
			Object: p.Object,
		}
		if p.Default != nil {
			dv := reflect.ValueOf(p.Default)
			if dv.Type().ConvertibleTo(sf.Type) {
				f.Default = dv.Convert(sf.Type).Interface()
			} else {
				log.Warn("schema: "+ErrBadDefault.Error(), "type", t.String(), "field", p.Name)
			}
		} else if proto.IsValid() {
			if pv, err := proto.FieldByIndexErr(sf.Index); err == nil && !pv.IsZero() {
				f.Default = pv.Interface()
			}
		}
		fields = append(fields, f)
	}
	return
}

func reflectFields(t reflect.Type, skip []string) (fields Fields) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || slices.Contains(skip, sf.Name) {
			continue
		}
		tag := sf.Tag.Get("sync")
		if tag == "-" {
			continue
		}
		fields = append(fields, Field{
			Name:   sf.Name,
			Setter: tag,
			Index:  sf.Index,
			Type:   sf.Type,
		})
	}
	return
}

// Registry maps Go struct types to their marks. It is owned by a
// replication context and handed to the factory explicitly.
type Registry struct {
	marks *xsync.MapOf[reflect.Type, *Mark]
	log   utils.Logger
}

func NewRegistry(log utils.Logger) *Registry {
	if log == nil {
		log = utils.NewDiscardLogger()
	}
	return &Registry{
		marks: xsync.NewMapOf[reflect.Type, *Mark](),
		log:   log,
	}
}

// StructType strips pointers; ok is false for anything but a struct.
func StructType(t reflect.Type) (reflect.Type, bool) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t, t != nil && t.Kind() == reflect.Struct
}

// Register declares the mark of the prototype's type, replacing a
// reflected one. A type is declared once: a used mark yields
// ErrMarkInUse, a declared one ErrDeclared, and the old mark stays.
func (r *Registry) Register(prototype any, decl Decl) (mark *Mark, err error) {
	t, ok := StructType(reflect.TypeOf(prototype))
	if !ok {
		return nil, ErrNotStruct
	}
	proto := reflect.ValueOf(prototype)
	for proto.Kind() == reflect.Pointer && !proto.IsNil() {
		proto = proto.Elem()
	}
	if proto.Kind() != reflect.Struct {
		proto = reflect.Value{}
	}
	mark, _ = r.marks.Compute(t, func(old *Mark, loaded bool) (*Mark, bool) {
		switch {
		case loaded && old.InUse():
			err = ErrMarkInUse
			return old, false
		case loaded && old.Declared:
			err = ErrDeclared
			return old, false
		}
		m := &Mark{Declared: true}
		m.build(t, proto, decl, r.log)
		return m, false
	})
	if err == nil && len(mark.fields) == 0 {
		r.log.Warn("schema: "+ErrNoFields.Error(), "type", t.String())
	}
	return
}

// Mark returns the mark of t, building it by reflection when autoCreate
// is set. Non-struct types never have a mark.
func (r *Registry) Mark(t reflect.Type, autoCreate bool) *Mark {
	t, ok := StructType(t)
	if !ok {
		return nil
	}
	if mark, ok := r.marks.Load(t); ok {
		return mark
	}
	if !autoCreate {
		return nil
	}
	mark, _ := r.marks.LoadOrCompute(t, func() *Mark {
		m := &Mark{}
		m.build(t, reflect.Value{}, Decl{}, r.log)
		return m
	})
	return mark
}

func (r *Registry) MarkOf(v any, autoCreate bool) *Mark {
	return r.Mark(reflect.TypeOf(v), autoCreate)
}

func (r *Registry) Logger() utils.Logger {
	return r.log
}

func (r *Registry) Len() int {
	return r.marks.Size()
}

package versync

import (
	"reflect"

	"github.com/drpcorg/versync/schema"
)

var emptyStruct = reflect.TypeOf(struct{}{})

// kindOfType classifies a static type. Interface types give KindAuto:
// only a value can tell what they hold.
func kindOfType(t reflect.Type) schema.Kind {
	if t == nil {
		return schema.KindAuto
	}
	if implements(t, propertyType) {
		return schema.KindScalar
	}
	if implements(t, replicatorType) {
		return schema.KindLeaf
	}
	if implements(t, treeNodeType) {
		return schema.KindTree
	}
	switch t.Kind() {
	case reflect.Pointer:
		switch kindOfType(t.Elem()) {
		case schema.KindScalar, schema.KindAuto:
			return schema.KindAuto
		default:
			return kindOfType(t.Elem())
		}
	case reflect.Struct:
		return schema.KindObject
	case reflect.Slice, reflect.Array:
		return schema.KindSequence
	case reflect.Map:
		if t.Elem() == emptyStruct {
			return schema.KindSet
		}
		return schema.KindMapping
	case reflect.Interface:
		return schema.KindAuto
	}
	if isScalarKind(t.Kind()) {
		return schema.KindScalar
	}
	return schema.KindAuto
}

// kindOf refines kindOfType with the dynamic content of v.
func kindOf(v reflect.Value) schema.Kind {
	if !v.IsValid() {
		return schema.KindAuto
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return schema.KindAuto
		}
		return kindOf(v.Elem())
	}
	return kindOfType(v.Type())
}

// elemKind says whether a container holds scalars or complex values,
// looking at the first element when the static type does not tell.
func elemKind(t reflect.Type, first reflect.Value) schema.Kind {
	k := kindOfType(t)
	if k == schema.KindAuto && t.Kind() == reflect.Interface {
		k = kindOf(first)
	}
	switch k {
	case schema.KindAuto:
		return schema.KindAuto
	case schema.KindScalar:
		return schema.KindScalar
	default:
		return schema.KindObject
	}
}

// firstElem is any element of a sequence or any value of a map.
func firstElem(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() > 0 {
			return v.Index(0)
		}
	case reflect.Map:
		it := v.MapRange()
		if it.Next() {
			return it.Value()
		}
	}
	return reflect.Value{}
}

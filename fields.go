package stasis

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// Field is a handle to one persistable field during a walk. The engines
// dispatch on Kind and use the typed accessors; they never inspect the
// underlying Go type themselves.
type Field struct {
	// Name is the field's declared name.
	Name string

	// Prefix is the nesting scope path: "" at the root, the joined path
	// of enclosing struct fields inside nested scopes ("Physics",
	// "Physics/Inner").
	Prefix string

	// Kind is the field's wire kind.
	Kind Kind

	val reflect.Value
}

// Bool returns the field's bool value.
func (f Field) Bool() bool { return f.val.Bool() }

// SetBool sets the field's bool value.
func (f Field) SetBool(v bool) { f.val.SetBool(v) }

// Int returns the field's integer value widened to int64.
func (f Field) Int() int64 {
	if f.val.CanUint() {
		return int64(f.val.Uint())
	}
	return f.val.Int()
}

// SetInt sets the field's integer value from an int64.
func (f Field) SetInt(v int64) {
	if f.val.CanUint() {
		f.val.SetUint(uint64(v))
		return
	}
	f.val.SetInt(v)
}

// Float returns the field's float value widened to float64.
func (f Field) Float() float64 { return f.val.Float() }

// SetFloat sets the field's float value.
func (f Field) SetFloat(v float64) { f.val.SetFloat(v) }

// Str returns the field's string value.
func (f Field) Str() string { return f.val.String() }

// SetStr sets the field's string value.
func (f Field) SetStr(v string) { f.val.SetString(v) }

// Vec3 returns the field's vector value.
func (f Field) Vec3() mgl64.Vec3 { return f.val.Interface().(mgl64.Vec3) }

// SetVec3 sets the field's vector value.
func (f Field) SetVec3(v mgl64.Vec3) { f.val.Set(reflect.ValueOf(v)) }

// Rot returns the field's rotation value.
func (f Field) Rot() cube.Rotation { return f.val.Interface().(cube.Rotation) }

// SetRot sets the field's rotation value.
func (f Field) SetRot(r cube.Rotation) { f.val.Set(reflect.ValueOf(r)) }

// Len returns the length of a slice field.
func (f Field) Len() int { return f.val.Len() }

// SetLen replaces a slice field with a fresh slice of length n.
func (f Field) SetLen(n int) { f.val.Set(reflect.MakeSlice(f.val.Type(), n, n)) }

// Index returns a handle to element i of a slice field.
func (f Field) Index(i int) Field {
	return Field{Name: f.Name, Prefix: f.Prefix, Kind: f.Kind.Elem(), val: f.val.Index(i)}
}

// Ref returns the reference plumbing of a Ref[T] field.
func (f Field) Ref() (refValue, bool) {
	if !f.val.CanAddr() {
		return nil, false
	}
	h, ok := f.val.Addr().Interface().(refValue)
	return h, ok
}

// FieldVisitor receives one callback per persistable field, in the stable
// order the provider defines. Nested struct fields arrive as an
// EnterStruct/LeaveStruct pair around their inner fields; only leaves
// arrive through VisitField.
type FieldVisitor interface {
	VisitField(f Field) error
	EnterStruct(f Field) error
	LeaveStruct(f Field) error
}

// FieldProvider enumerates an object's persistable fields in a stable,
// deterministic order. The order must not change between walks of the same
// type within one process; it is what the fast restore path relies on.
type FieldProvider interface {
	VisitFields(obj any, v FieldVisitor) error
}

// fieldInfo is the pre-computed walk plan for one field of a type.
type fieldInfo struct {
	index    int
	name     string
	kind     Kind
	children []fieldInfo
}

// TagProvider is the default FieldProvider. It enumerates exported struct
// fields tagged `stasis:"save"` in declaration order, recursing into tagged
// struct fields as nesting scopes. The walk plan for each type is computed
// once and cached.
type TagProvider struct {
	mu    sync.RWMutex
	types map[reflect.Type][]fieldInfo
}

// NewTagProvider returns an empty provider.
func NewTagProvider() *TagProvider {
	return &TagProvider{types: make(map[reflect.Type][]fieldInfo)}
}

// VisitFields walks obj's tagged fields. obj must be a non-nil pointer to a
// struct.
func (p *TagProvider) VisitFields(obj any, v FieldVisitor) error {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("stasis: object must be a non-nil struct pointer, got %T", obj)
	}
	sv := rv.Elem()
	return walkFields(sv, p.infos(sv.Type()), "", v)
}

// infos returns the cached walk plan for t, computing it on first use.
func (p *TagProvider) infos(t reflect.Type) []fieldInfo {
	p.mu.RLock()
	infos, ok := p.types[t]
	p.mu.RUnlock()
	if ok {
		return infos
	}

	infos = analyzeType(t)
	p.mu.Lock()
	p.types[t] = infos
	p.mu.Unlock()
	return infos
}

// analyzeType builds the walk plan for a struct type.
func analyzeType(t reflect.Type) []fieldInfo {
	var infos []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := parseTag(field.Tag.Get(tagName))
		if !tag.Save || tag.Skip {
			continue
		}

		info := fieldInfo{index: i, name: field.Name}
		if field.PkgPath != "" {
			// Tagged but unexported: nothing can be written back.
			info.kind = KindUnsupported
			infos = append(infos, info)
			continue
		}

		info.kind = kindOf(field.Type)
		if info.kind == KindStruct {
			info.children = analyzeType(field.Type)
		}
		infos = append(infos, info)
	}
	return infos
}

// kindOf maps a Go type onto its wire kind.
func kindOf(t reflect.Type) Kind {
	switch t {
	case reflect.TypeOf(mgl64.Vec3{}):
		return KindVec3
	case reflect.TypeOf(cube.Rotation{}):
		return KindRotation
	}
	if reflect.PointerTo(t).Implements(refValueType) {
		return KindRef
	}

	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	case reflect.Struct:
		return KindStruct
	case reflect.Slice:
		elem := kindOf(t.Elem())
		switch elem {
		case KindBool, KindInt, KindFloat, KindString, KindVec3, KindRotation, KindRef:
			return elem | KindSlice
		}
		return KindUnsupported
	default:
		return KindUnsupported
	}
}

// walkFields drives a visitor over a struct value using its walk plan.
func walkFields(sv reflect.Value, infos []fieldInfo, prefix string, v FieldVisitor) error {
	for _, info := range infos {
		f := Field{
			Name:   info.name,
			Prefix: prefix,
			Kind:   info.kind,
			val:    sv.Field(info.index),
		}

		if info.kind == KindStruct {
			if err := v.EnterStruct(f); err != nil {
				return err
			}
			child := info.name
			if prefix != "" {
				child = prefix + "/" + info.name
			}
			if err := walkFields(f.val, info.children, child, v); err != nil {
				return err
			}
			if err := v.LeaveStruct(f); err != nil {
				return err
			}
			continue
		}

		if err := v.VisitField(f); err != nil {
			return err
		}
	}
	return nil
}

// leafCollector gathers the live leaf descriptor sequence of an object,
// interned through a partition's catalog. Unsupported leaves are omitted,
// mirroring their omission at capture time.
type leafCollector struct {
	cat   *ClassCatalog
	props []PropertyDef
}

func (c *leafCollector) VisitField(f Field) error {
	if f.Kind == KindUnsupported {
		return nil
	}
	c.props = append(c.props, PropertyDef{
		NameID:   c.cat.intern(f.Name),
		PrefixID: c.cat.intern(f.Prefix),
		Kind:     f.Kind,
	})
	return nil
}

func (c *leafCollector) EnterStruct(Field) error { return nil }
func (c *leafCollector) LeaveStruct(Field) error { return nil }

// liveProps returns the live descriptor sequence for obj.
func liveProps(p FieldProvider, cat *ClassCatalog, obj any) ([]PropertyDef, error) {
	col := &leafCollector{cat: cat}
	if err := p.VisitFields(obj, col); err != nil {
		return nil, err
	}
	return col.props, nil
}

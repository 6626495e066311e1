package stasis

import (
	"log/slog"

	"github.com/google/uuid"
)

// capturer serializes one object's tagged fields, building the class def
// and the offset table as it walks. Nested struct fields open a new scope
// but consume no offset slot themselves.
type capturer struct {
	cat   *ClassCatalog
	def   *ClassDef
	log   *slog.Logger
	class string

	next    int
	buf     []byte
	offsets []uint32
}

func (c *capturer) VisitField(f Field) error {
	if f.Kind == KindUnsupported {
		c.log.Warn("stasis: field omitted from capture",
			"class", c.class,
			"field", f.Name,
			"error", ErrUnsupportedField)
		return nil
	}

	p := PropertyDef{
		NameID:   c.cat.intern(f.Name),
		PrefixID: c.cat.intern(f.Prefix),
		Kind:     f.Kind,
	}
	if err := c.def.ensure(c.next, p); err != nil {
		return err
	}
	c.offsets = append(c.offsets, uint32(len(c.buf)))
	c.next++

	c.buf = c.appendValue(c.buf, f)
	return nil
}

func (c *capturer) EnterStruct(Field) error { return nil }
func (c *capturer) LeaveStruct(Field) error { return nil }

func (c *capturer) appendValue(b []byte, f Field) []byte {
	if f.Kind.IsSlice() {
		n := f.Len()
		b = appendU32(b, uint32(n))
		for i := 0; i < n; i++ {
			b = c.appendValue(b, f.Index(i))
		}
		return b
	}

	switch f.Kind {
	case KindBool:
		return appendBool(b, f.Bool())
	case KindInt:
		return appendI64(b, f.Int())
	case KindFloat:
		return appendF64(b, f.Float())
	case KindString:
		return appendString(b, f.Str())
	case KindVec3:
		return appendVec3(b, f.Vec3())
	case KindRotation:
		return appendRotation(b, f.Rot())
	case KindRef:
		h, ok := f.Ref()
		if !ok {
			return appendUUID(b, uuid.Nil)
		}
		id := refID(h)
		if id == uuid.Nil && h.refTarget() != nil {
			c.log.Warn("stasis: reference target has no spawn id, stored as nil",
				"class", c.class,
				"field", f.Name)
		}
		return appendUUID(b, id)
	}
	return b
}

// captureObject serializes obj into a record. withCore controls whether the
// engine-owned core record is included: level objects carry one even when
// they persist nothing else, globals do not.
func captureObject(p FieldProvider, cat *ClassCatalog, obj any, withCore bool, log *slog.Logger) (ObjectData, error) {
	class := className(obj)
	def := cat.Define(class)

	if pre, ok := obj.(PreSaver); ok {
		pre.PreSave()
	}

	var data ObjectData
	if withCore {
		data.Core = encodeCore(captureCore(obj))
	}

	c := &capturer{cat: cat, def: def, log: log, class: class}
	if err := p.VisitFields(obj, c); err != nil {
		return ObjectData{}, err
	}
	data.Props = c.buf
	data.Offsets = c.offsets

	if fin, ok := obj.(SaveFinalizer); ok {
		w := &CustomWriter{}
		fin.FinalizeSave(w)
		data.Custom = w.buf
	}

	if post, ok := obj.(PostSaver); ok {
		post.PostSave()
	}

	return data, nil
}

package stasis

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// restoreContext carries the per-operation state of one restore batch: the
// id to object map references resolve through, and the per-class fast-path
// verdicts. A context never outlives its operation; the match cache is only
// valid while no schema can change under it.
type restoreContext struct {
	provider FieldProvider
	log      *slog.Logger

	// objects maps generated ids to live objects. It must be fully
	// populated before any field restoration starts: references may
	// point forward to an object restored later in the batch.
	objects map[uuid.UUID]any

	// matches caches the fast-path verdict per class.
	matches map[string]bool
}

func newRestoreContext(p FieldProvider, log *slog.Logger) *restoreContext {
	return &restoreContext{
		provider: p,
		log:      log,
		objects:  make(map[uuid.UUID]any),
		matches:  make(map[string]bool),
	}
}

// register makes obj resolvable under id for this batch.
func (ctx *restoreContext) register(id uuid.UUID, obj any) {
	if id != uuid.Nil {
		ctx.objects[id] = obj
	}
}

// resolve returns the live object registered under id.
func (ctx *restoreContext) resolve(id uuid.UUID) (any, bool) {
	obj, ok := ctx.objects[id]
	return obj, ok
}

// classMatches reports whether the stored def for a class is identical to
// the live layout, caching the verdict for the rest of the batch. The
// verdict is reused across every instance of the class.
func (ctx *restoreContext) classMatches(cat *ClassCatalog, def *ClassDef, obj any) (bool, error) {
	if v, ok := ctx.matches[def.Name]; ok {
		return v, nil
	}
	live, err := liveProps(ctx.provider, cat, obj)
	if err != nil {
		return false, err
	}
	v := def.matchesLive(live)
	ctx.matches[def.Name] = v
	return v, nil
}

// restorer writes stored values back onto one object's live fields. On the
// fast path, live leaves and stored descriptors are consumed in lockstep;
// scope markers consume no stored slot. On the slow path every leaf is
// resolved through the def's lookup, tolerating added, removed and
// reordered fields at the cost of a lookup each.
type restorer struct {
	ctx   *restoreContext
	cat   *ClassCatalog
	def   *ClassDef
	data  *ObjectData
	class string
	fast  bool

	next int
}

func (r *restorer) VisitField(f Field) error {
	if f.Kind == KindUnsupported {
		return nil
	}

	var idx int
	if r.fast {
		idx = r.next
		r.next++
		if idx >= len(r.def.Props) {
			return fmt.Errorf("stasis: class %s live layout ran past stored schema", r.class)
		}
	} else {
		nameID := r.cat.intern(f.Name)
		prefixID := r.cat.intern(f.Prefix)
		var ok bool
		idx, ok = r.def.indexOf(prefixID, nameID)
		if !ok {
			r.ctx.log.Debug("stasis: field not in save data",
				"class", r.class,
				"field", f.Name)
			return nil
		}
		if r.def.Props[idx].Kind != f.Kind {
			r.ctx.log.Warn("stasis: stored kind differs from live kind",
				"class", r.class,
				"field", f.Name,
				"stored", r.def.Props[idx].Kind,
				"live", f.Kind)
			return nil
		}
	}

	if idx >= len(r.data.Offsets) {
		r.ctx.log.Error("stasis: stored offset index out of range",
			"class", r.class,
			"field", f.Name,
			"index", idx)
		return nil
	}

	br := byteReader{b: r.data.Props, off: int(r.data.Offsets[idx])}
	r.readValue(&br, f)
	if br.err != nil {
		r.ctx.log.Warn("stasis: stored value truncated",
			"class", r.class,
			"field", f.Name,
			"error", br.err)
	}
	return nil
}

func (r *restorer) EnterStruct(Field) error { return nil }
func (r *restorer) LeaveStruct(Field) error { return nil }

func (r *restorer) readValue(br *byteReader, f Field) {
	if f.Kind.IsSlice() {
		n := int(br.u32())
		if br.err != nil {
			return
		}
		if n > br.remaining() {
			br.fail(fmt.Errorf("stasis: slice length %d exceeds record", n))
			return
		}
		f.SetLen(n)
		for i := 0; i < n; i++ {
			r.readValue(br, f.Index(i))
			if br.err != nil {
				return
			}
		}
		return
	}

	switch f.Kind {
	case KindBool:
		f.SetBool(br.bool())
	case KindInt:
		f.SetInt(br.i64())
	case KindFloat:
		f.SetFloat(br.f64())
	case KindString:
		f.SetStr(br.str())
	case KindVec3:
		f.SetVec3(br.vec3())
	case KindRotation:
		f.SetRot(br.rotation())
	case KindRef:
		id := br.id()
		if br.err != nil {
			return
		}
		h, ok := f.Ref()
		if !ok {
			return
		}
		if id == uuid.Nil {
			h.setRefTarget(nil)
			return
		}
		obj, found := r.ctx.resolve(id)
		if !found {
			r.ctx.log.Warn("stasis: reference target not in restore batch",
				"class", r.class,
				"field", f.Name,
				"id", id)
			h.setRefTarget(nil)
			return
		}
		if !h.setRefTarget(obj) {
			r.ctx.log.Warn("stasis: reference target has unexpected type",
				"class", r.class,
				"field", f.Name,
				"id", id)
		}
	}
}

// restoreObject writes one stored record back onto a live object. Every
// failure is scoped to the object; the caller logs it and moves on to the
// next one.
func restoreObject(ctx *restoreContext, cat *ClassCatalog, obj any, data *ObjectData) error {
	class := className(obj)
	def, err := cat.Lookup(class)
	if err != nil {
		return err
	}

	fast, err := ctx.classMatches(cat, def, obj)
	if err != nil {
		return err
	}
	def.freeze()

	if pre, ok := obj.(PreLoader); ok {
		pre.PreLoad()
	}

	if len(data.Core) > 0 {
		rec, err := decodeCore(data.Core)
		if err != nil {
			ctx.log.Warn("stasis: core restore skipped",
				"class", class,
				"error", err)
		} else {
			applyCore(obj, rec)
		}
	}

	r := &restorer{ctx: ctx, cat: cat, def: def, data: data, class: class, fast: fast}
	if err := ctx.provider.VisitFields(obj, r); err != nil {
		return err
	}

	if fin, ok := obj.(LoadFinalizer); ok {
		fin.FinalizeLoad(NewCustomReader(data.Custom))
	}
	if post, ok := obj.(PostLoader); ok {
		post.PostLoad()
	}
	return nil
}

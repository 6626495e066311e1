package stasis

import (
	"reflect"

	"github.com/google/uuid"
)

// Ref is a persistable reference to another persisted object. The type
// parameter T is the target's concrete type. On capture the reference is
// stored as the target's generated id; on restore it is resolved back to
// the live or freshly respawned object carrying that id, which may be an
// object restored later in the same batch.
//
// Usage:
//
//	type Mob struct {
//	    stasis.SpawnIdentity
//	    Target stasis.Ref[Player] `stasis:"save"`
//	}
type Ref[T any] struct {
	target *T
}

// Set points the reference at target. The target should carry a generated
// id by save time; a reference to an object without one is stored as nil.
func (r *Ref[T]) Set(target *T) {
	r.target = target
}

// Get returns the referenced object, or nil if unset.
func (r *Ref[T]) Get() *T {
	return r.target
}

// Clear removes the reference.
func (r *Ref[T]) Clear() {
	r.target = nil
}

// IsNil reports whether the reference is unset.
func (r *Ref[T]) IsNil() bool {
	return r.target == nil
}

// refTarget returns the raw target for capture.
func (r *Ref[T]) refTarget() any {
	if r.target == nil {
		return nil
	}
	return r.target
}

// setRefTarget points the reference at a resolved object. It reports false
// when the object is not a *T.
func (r *Ref[T]) setRefTarget(v any) bool {
	if v == nil {
		r.target = nil
		return true
	}
	t, ok := v.(*T)
	if !ok {
		return false
	}
	r.target = t
	return true
}

// refValue is the untyped plumbing the engines use to read and write Ref
// fields without knowing T.
type refValue interface {
	refTarget() any
	setRefTarget(v any) bool
}

var refValueType = reflect.TypeOf((*refValue)(nil)).Elem()

// refID returns the id a reference is stored as: the target's spawn id, or
// uuid.Nil when the reference is unset or the target carries no id.
func refID(h refValue) uuid.UUID {
	t := h.refTarget()
	if t == nil {
		return uuid.Nil
	}
	si, ok := t.(spawnIdentified)
	if !ok {
		return uuid.Nil
	}
	return si.SpawnID()
}

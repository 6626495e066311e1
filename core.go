package stasis

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// coreVersion is the current core record layout version. The decoder
// dispatches on the version embedded in each record, so old layouts stay
// readable when new ones are added.
const coreVersion = 1

// Transform is an object's placement in the world.
type Transform struct {
	Position mgl64.Vec3
	Rotation cube.Rotation
	Scale    float64
}

// CoreRecord holds the engine-owned infrastructure fields captured for
// every level object, separate from its tagged fields. It exists even for
// objects that persist nothing else.
type CoreRecord struct {
	Hidden          bool
	Transform       Transform
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

// Spatial is implemented by objects with a world transform. Objects without
// it contribute a zero transform to their core record and ignore the stored
// one on restore.
type Spatial interface {
	Transform() Transform
	SetTransform(t Transform)
}

// Physical is implemented by objects with motion state.
type Physical interface {
	Velocity() mgl64.Vec3
	SetVelocity(v mgl64.Vec3)
	AngularVelocity() mgl64.Vec3
	SetAngularVelocity(v mgl64.Vec3)
}

// Hidable is implemented by objects that can be hidden from view.
type Hidable interface {
	Hidden() bool
	SetHidden(hidden bool)
}

// captureCore reads an object's infrastructure state through the optional
// Spatial, Physical and Hidable interfaces.
func captureCore(obj any) CoreRecord {
	var rec CoreRecord
	if h, ok := obj.(Hidable); ok {
		rec.Hidden = h.Hidden()
	}
	if s, ok := obj.(Spatial); ok {
		rec.Transform = s.Transform()
	}
	if p, ok := obj.(Physical); ok {
		rec.Velocity = p.Velocity()
		rec.AngularVelocity = p.AngularVelocity()
	}
	return rec
}

// applyCore writes a core record back through the same interfaces.
func applyCore(obj any, rec CoreRecord) {
	if h, ok := obj.(Hidable); ok {
		h.SetHidden(rec.Hidden)
	}
	if s, ok := obj.(Spatial); ok {
		s.SetTransform(rec.Transform)
	}
	if p, ok := obj.(Physical); ok {
		p.SetVelocity(rec.Velocity)
		p.SetAngularVelocity(rec.AngularVelocity)
	}
}

// encodeCore packs a core record into its version 1 wire form.
func encodeCore(rec CoreRecord) []byte {
	b := make([]byte, 0, 99)
	b = appendU16(b, coreVersion)
	b = appendBool(b, rec.Hidden)
	b = appendVec3(b, rec.Transform.Position)
	b = appendRotation(b, rec.Transform.Rotation)
	b = appendF64(b, rec.Transform.Scale)
	b = appendVec3(b, rec.Velocity)
	b = appendVec3(b, rec.AngularVelocity)
	return b
}

// decodeCore unpacks a core record, dispatching on its embedded version.
func decodeCore(b []byte) (CoreRecord, error) {
	r := byteReader{b: b}
	version := r.u16()
	if r.err != nil {
		return CoreRecord{}, fmt.Errorf("stasis: core record truncated: %w", ErrCorruptCoreRecord)
	}

	switch version {
	case 1:
		var rec CoreRecord
		rec.Hidden = r.bool()
		rec.Transform.Position = r.vec3()
		rec.Transform.Rotation = r.rotation()
		rec.Transform.Scale = r.f64()
		rec.Velocity = r.vec3()
		rec.AngularVelocity = r.vec3()
		if r.err != nil {
			return CoreRecord{}, fmt.Errorf("stasis: core record truncated: %w", ErrCorruptCoreRecord)
		}
		return rec, nil
	default:
		return CoreRecord{}, fmt.Errorf("stasis: core record version %d: %w", version, ErrCorruptCoreRecord)
	}
}

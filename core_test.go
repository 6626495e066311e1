package stasis

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coreBody implements all three optional core interfaces.
type coreBody struct {
	hidden bool
	tf     Transform
	vel    mgl64.Vec3
	ang    mgl64.Vec3
}

func (b *coreBody) Hidden() bool { return b.hidden }

func (b *coreBody) SetHidden(hidden bool) { b.hidden = hidden }

func (b *coreBody) Transform() Transform { return b.tf }

func (b *coreBody) SetTransform(t Transform) { b.tf = t }

func (b *coreBody) Velocity() mgl64.Vec3 { return b.vel }

func (b *coreBody) SetVelocity(v mgl64.Vec3) { b.vel = v }

func (b *coreBody) AngularVelocity() mgl64.Vec3 { return b.ang }

func (b *coreBody) SetAngularVelocity(v mgl64.Vec3) { b.ang = v }

func TestCoreRecord_RoundTrip(t *testing.T) {
	rec := CoreRecord{
		Hidden: true,
		Transform: Transform{
			Position: mgl64.Vec3{10, 20, 30},
			Rotation: cube.Rotation{45, -10},
			Scale:    2,
		},
		Velocity:        mgl64.Vec3{1, 0, -1},
		AngularVelocity: mgl64.Vec3{0, 0.5, 0},
	}

	b := encodeCore(rec)
	require.Len(t, b, 99, "the packed core record should be 99 bytes")

	got, err := decodeCore(b)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeCore_UnknownVersion(t *testing.T) {
	b := appendU16(nil, 9)
	_, err := decodeCore(b)
	assert.ErrorIs(t, err, ErrCorruptCoreRecord)
}

func TestDecodeCore_Truncated(t *testing.T) {
	b := encodeCore(CoreRecord{})
	for _, n := range []int{0, 1, 10, len(b) - 1} {
		_, err := decodeCore(b[:n])
		assert.ErrorIs(t, err, ErrCorruptCoreRecord, "a record cut at %d bytes should be corrupt", n)
	}
}

func TestCore_CaptureApply(t *testing.T) {
	src := &coreBody{
		hidden: true,
		tf: Transform{
			Position: mgl64.Vec3{1, 2, 3},
			Rotation: cube.Rotation{5, 6},
			Scale:    1.5,
		},
		vel: mgl64.Vec3{7, 8, 9},
		ang: mgl64.Vec3{-1, -2, -3},
	}

	rec := captureCore(src)
	dst := &coreBody{}
	applyCore(dst, rec)
	assert.Equal(t, src, dst)
}

func TestCore_ObjectWithoutInterfaces(t *testing.T) {
	type bare struct{}
	assert.Equal(t, CoreRecord{}, captureCore(&bare{}), "an object without core interfaces should contribute a zero record")
	applyCore(&bare{}, CoreRecord{Hidden: true})
}

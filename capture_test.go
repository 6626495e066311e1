package stasis

import (
	"io"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// discardLogger silences engine logging in tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capPhysics struct {
	Mass float64 `stasis:"save"`
}

type capSubject struct {
	Health  int        `stasis:"save"`
	Name    string     `stasis:"save"`
	Physics capPhysics `stasis:"save"`
	Tags    []string   `stasis:"save"`
}

func TestCaptureObject_BuildsDefAndOffsets(t *testing.T) {
	cat := NewClassCatalog()
	obj := &capSubject{Health: 7, Name: "kit", Physics: capPhysics{Mass: 1.5}, Tags: []string{"a", "bc"}}

	data, err := captureObject(NewTagProvider(), cat, obj, false, discardLogger())
	require.NoError(t, err)

	def, err := cat.Lookup("capSubject")
	require.NoError(t, err)
	require.Len(t, def.Props, 4, "the nested struct itself should consume no slot")
	require.Len(t, data.Offsets, 4, "one offset per stored leaf")

	var names []string
	for _, p := range def.Props {
		name, ok := cat.NameOf(p.NameID)
		require.True(t, ok)
		names = append(names, name)
	}
	assert.Equal(t, []string{"Health", "Name", "Mass", "Tags"}, names)

	prefix, ok := cat.NameOf(def.Props[2].PrefixID)
	require.True(t, ok)
	assert.Equal(t, "Physics", prefix, "a nested leaf should carry its scope path")

	// Each offset marks where its value starts in the packed buffer.
	r := byteReader{b: data.Props, off: int(data.Offsets[0])}
	assert.Equal(t, int64(7), r.i64())
	r = byteReader{b: data.Props, off: int(data.Offsets[1])}
	assert.Equal(t, "kit", r.str())
	r = byteReader{b: data.Props, off: int(data.Offsets[2])}
	assert.Equal(t, 1.5, r.f64())
	r = byteReader{b: data.Props, off: int(data.Offsets[3])}
	assert.Equal(t, uint32(2), r.u32(), "a slice starts with its element count")
	require.NoError(t, r.err)

	assert.Empty(t, data.Core, "an object captured without core should carry no core record")
}

type capAwkward struct {
	Health int            `stasis:"save"`
	Lookup map[string]int `stasis:"save"`
	Name   string         `stasis:"save"`
}

func TestCaptureObject_UnsupportedOmitted(t *testing.T) {
	cat := NewClassCatalog()
	obj := &capAwkward{Health: 3, Lookup: map[string]int{"x": 1}, Name: "ok"}

	data, err := captureObject(NewTagProvider(), cat, obj, false, discardLogger())
	require.NoError(t, err, "an unsupported field is data loss, not a failure")

	def, err := cat.Lookup("capAwkward")
	require.NoError(t, err)
	require.Len(t, def.Props, 2, "the unsupported field should be omitted from the schema")
	require.Len(t, data.Offsets, 2)

	r := byteReader{b: data.Props, off: int(data.Offsets[1])}
	assert.Equal(t, "ok", r.str(), "offsets after the omission should stay aligned")
}

type capBody struct {
	coreBody
	Fuel float64 `stasis:"save"`
}

func TestCaptureObject_WithCore(t *testing.T) {
	cat := NewClassCatalog()
	obj := &capBody{Fuel: 3}
	obj.tf = Transform{Position: mgl64.Vec3{4, 5, 6}, Scale: 1}

	data, err := captureObject(NewTagProvider(), cat, obj, true, discardLogger())
	require.NoError(t, err)
	require.Len(t, data.Core, 99)

	rec, err := decodeCore(data.Core)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{4, 5, 6}, rec.Transform.Position)
}

type capHooked struct {
	Score int `stasis:"save"`
	calls []string
}

func (h *capHooked) PreSave() {
	h.calls = append(h.calls, "pre")
	h.Score++
}

func (h *capHooked) FinalizeSave(w *CustomWriter) {
	h.calls = append(h.calls, "finalize")
	w.WriteString("extra")
}

func (h *capHooked) PostSave() {
	h.calls = append(h.calls, "post")
}

func TestCaptureObject_HookOrder(t *testing.T) {
	obj := &capHooked{Score: 10}

	data, err := captureObject(NewTagProvider(), NewClassCatalog(), obj, false, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"pre", "finalize", "post"}, obj.calls)

	r := byteReader{b: data.Props, off: int(data.Offsets[0])}
	assert.Equal(t, int64(11), r.i64(), "PreSave mutations should be captured")

	cr := NewCustomReader(data.Custom)
	assert.Equal(t, "extra", cr.String())
	require.NoError(t, cr.Err())
}

type capTarget struct {
	SpawnIdentity
	HP int `stasis:"save"`
}

type capHolder struct {
	Friend Ref[capTarget] `stasis:"save"`
}

func TestCaptureObject_RefEncoding(t *testing.T) {
	target := &capTarget{}
	target.AssignSpawnID(uuid.MustParse("11111111-2222-3333-4444-555555555555"))

	holder := &capHolder{}
	holder.Friend.Set(target)

	data, err := captureObject(NewTagProvider(), NewClassCatalog(), holder, false, discardLogger())
	require.NoError(t, err)

	r := byteReader{b: data.Props, off: int(data.Offsets[0])}
	assert.Equal(t, target.SpawnID(), r.id(), "a reference should be stored as the target's id")
}

func TestCaptureObject_RefWithoutTargetID(t *testing.T) {
	unset := &capHolder{}
	noID := &capHolder{}
	noID.Friend.Set(&capTarget{})

	for _, holder := range []*capHolder{unset, noID} {
		data, err := captureObject(NewTagProvider(), NewClassCatalog(), holder, false, discardLogger())
		require.NoError(t, err)

		r := byteReader{b: data.Props, off: int(data.Offsets[0])}
		assert.Equal(t, uuid.Nil, r.id(), "an unresolvable reference should be stored as nil")
	}
}

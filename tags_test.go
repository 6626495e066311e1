package stasis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTag(t *testing.T) {
	assert.Equal(t, TagInfo{}, parseTag(""))
	assert.Equal(t, TagInfo{Save: true}, parseTag("save"))
	assert.Equal(t, TagInfo{Skip: true}, parseTag("-"))
	assert.Equal(t, TagInfo{Save: true, Skip: true}, parseTag("save, -"))
	assert.Equal(t, TagInfo{}, parseTag("bogus"))
}

func TestKind_SliceFlag(t *testing.T) {
	k := KindVec3 | KindSlice
	assert.True(t, k.IsSlice())
	assert.Equal(t, KindVec3, k.Elem())

	assert.False(t, KindVec3.IsSlice())
	assert.Equal(t, KindVec3, KindVec3.Elem(), "Elem of a scalar kind should be itself")
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Int", KindInt.String())
	assert.Equal(t, "Rotation", KindRotation.String())
	assert.Equal(t, "[]String", (KindString | KindSlice).String())
	assert.Equal(t, "Unknown", Kind(0xFF).String())
}

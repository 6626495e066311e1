package stasis

import (
	"strings"
)

// Tag constants
const (
	tagName = "stasis"
)

// Tag modifiers
const (
	modSave = "save" // Persisted field
	modSkip = "-"    // Explicitly not persisted
)

// Kind identifies the wire type of a persisted field. Kind values are part
// of the save format and must not be renumbered.
type Kind uint16

const (
	// KindInvalid is the zero Kind and never appears in save data.
	KindInvalid Kind = iota
	// KindBool is a bool stored as a single byte.
	KindBool
	// KindInt is any integer type stored as an int64.
	KindInt
	// KindFloat is a float32 or float64 stored as a float64.
	KindFloat
	// KindString is a length-prefixed UTF-8 string.
	KindString
	// KindVec3 is an mgl64.Vec3 stored as three float64s.
	KindVec3
	// KindRotation is a cube.Rotation stored as two float64s.
	KindRotation
	// KindRef is a Ref[T] stored as the target's 16-byte generated id.
	KindRef
	// KindStruct is a nested struct field. It opens a nesting scope and
	// is never stored itself.
	KindStruct
	// KindUnsupported is a field the provider cannot persist. It is
	// logged and omitted at capture time.
	KindUnsupported
)

// KindSlice flags a Kind as a slice of that element kind, stored as a
// count prefix followed by the elements.
const KindSlice Kind = 0x0100

// Elem returns the element kind with the slice flag stripped.
func (k Kind) Elem() Kind {
	return k &^ KindSlice
}

// IsSlice reports whether the slice flag is set.
func (k Kind) IsSlice() bool {
	return k&KindSlice != 0
}

// String returns the string representation of Kind.
func (k Kind) String() string {
	if k.IsSlice() {
		return "[]" + k.Elem().String()
	}
	switch k {
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindVec3:
		return "Vec3"
	case KindRotation:
		return "Rotation"
	case KindRef:
		return "Ref"
	case KindStruct:
		return "Struct"
	case KindUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// TagInfo holds parsed tag information.
type TagInfo struct {
	Save bool // stasis:"save"
	Skip bool // stasis:"-"
}

// parseTag parses a stasis struct tag.
func parseTag(tag string) TagInfo {
	info := TagInfo{}
	if tag == "" {
		return info
	}

	parts := strings.SplitSeq(tag, ",")
	for part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case modSave:
			info.Save = true
		case modSkip:
			info.Skip = true
		}
	}

	return info
}

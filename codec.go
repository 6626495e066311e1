package stasis

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// All multi-byte values in save data are little-endian.

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func appendU16(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}

func appendU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func appendI64(b []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(b, uint64(v))
}

func appendF64(b []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
}

func appendString(b []byte, s string) []byte {
	b = appendU32(b, uint32(len(s)))
	return append(b, s...)
}

func appendVec3(b []byte, v mgl64.Vec3) []byte {
	b = appendF64(b, v[0])
	b = appendF64(b, v[1])
	return appendF64(b, v[2])
}

func appendRotation(b []byte, r cube.Rotation) []byte {
	b = appendF64(b, r[0])
	return appendF64(b, r[1])
}

func appendUUID(b []byte, id uuid.UUID) []byte {
	return append(b, id[:]...)
}

// byteReader reads the primitive encodings back out of a byte slice. The
// first failure latches: every later read returns a zero value and err
// keeps the original failure.
type byteReader struct {
	b   []byte
	off int
	err error
}

func (r *byteReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.b) {
		r.fail(io.ErrUnexpectedEOF)
		return nil
	}
	b := r.b[r.off : r.off+n]
	r.off += n
	return b
}

func (r *byteReader) remaining() int {
	return len(r.b) - r.off
}

func (r *byteReader) bool() bool {
	b := r.take(1)
	return len(b) == 1 && b[0] != 0
}

func (r *byteReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *byteReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *byteReader) i64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (r *byteReader) f64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (r *byteReader) str() string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	return string(r.take(int(n)))
}

func (r *byteReader) vec3() mgl64.Vec3 {
	return mgl64.Vec3{r.f64(), r.f64(), r.f64()}
}

func (r *byteReader) rotation() cube.Rotation {
	return cube.Rotation{r.f64(), r.f64()}
}

func (r *byteReader) id() uuid.UUID {
	var id uuid.UUID
	copy(id[:], r.take(16))
	return id
}

// CustomWriter collects an object's opaque custom payload during
// SaveFinalizer.FinalizeSave. Values are read back in the same order with a
// CustomReader.
type CustomWriter struct {
	buf []byte
}

// WriteBool appends a bool.
func (w *CustomWriter) WriteBool(v bool) { w.buf = appendBool(w.buf, v) }

// WriteInt appends an int64.
func (w *CustomWriter) WriteInt(v int64) { w.buf = appendI64(w.buf, v) }

// WriteFloat appends a float64.
func (w *CustomWriter) WriteFloat(v float64) { w.buf = appendF64(w.buf, v) }

// WriteString appends a length-prefixed string.
func (w *CustomWriter) WriteString(s string) { w.buf = appendString(w.buf, s) }

// WriteVec3 appends a vector.
func (w *CustomWriter) WriteVec3(v mgl64.Vec3) { w.buf = appendVec3(w.buf, v) }

// WriteRotation appends a rotation.
func (w *CustomWriter) WriteRotation(r cube.Rotation) { w.buf = appendRotation(w.buf, r) }

// WriteBytes appends raw bytes without a length prefix.
func (w *CustomWriter) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

// Len returns the number of bytes written so far.
func (w *CustomWriter) Len() int { return len(w.buf) }

// CustomReader reads an object's custom payload during
// LoadFinalizer.FinalizeLoad. Reads past the end of the payload latch an
// error and return zero values; check Err after reading.
type CustomReader struct {
	r byteReader
}

// NewCustomReader returns a reader over a custom payload. It is exported
// for tests and tooling; objects receive one in FinalizeLoad.
func NewCustomReader(b []byte) *CustomReader {
	return &CustomReader{r: byteReader{b: b}}
}

// Bool reads a bool.
func (r *CustomReader) Bool() bool { return r.r.bool() }

// Int reads an int64.
func (r *CustomReader) Int() int64 { return r.r.i64() }

// Float reads a float64.
func (r *CustomReader) Float() float64 { return r.r.f64() }

// String reads a length-prefixed string.
func (r *CustomReader) String() string { return r.r.str() }

// Vec3 reads a vector.
func (r *CustomReader) Vec3() mgl64.Vec3 { return r.r.vec3() }

// Rotation reads a rotation.
func (r *CustomReader) Rotation() cube.Rotation { return r.r.rotation() }

// Bytes reads n raw bytes.
func (r *CustomReader) Bytes(n int) []byte { return r.r.take(n) }

// Remaining returns the number of unread bytes.
func (r *CustomReader) Remaining() int { return r.r.remaining() }

// Err returns the first read failure, or nil.
func (r *CustomReader) Err() error { return r.r.err }

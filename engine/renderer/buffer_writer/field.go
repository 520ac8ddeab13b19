package buffer_writer

import (
	"fmt"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/go-gl/mathgl/mgl32"
)

// FieldKind tags the type of a value emitted by a Source.
type FieldKind int

const (
	FieldScalar FieldKind = iota + 1
	FieldVec2
	FieldVec3
	FieldVec4
	// FieldColor is a straight-alpha normalized RGBA color.
	FieldColor
	// FieldMat4 is a 4x4 matrix in column-major order, matching WGSL mat4x4<f32> and mgl32.Mat4.
	FieldMat4
)

// Floats returns the number of 32-bit floats a field of this kind occupies.
//
// Returns:
//   - int: the float count, or 0 if the kind has no emission rule
func (k FieldKind) Floats() int {
	switch k {
	case FieldScalar:
		return 1
	case FieldVec2:
		return 2
	case FieldVec3:
		return 3
	case FieldVec4, FieldColor:
		return 4
	case FieldMat4:
		return 16
	default:
		return 0
	}
}

func (k FieldKind) String() string {
	switch k {
	case FieldScalar:
		return "scalar"
	case FieldVec2:
		return "vec2"
	case FieldVec3:
		return "vec3"
	case FieldVec4:
		return "vec4"
	case FieldColor:
		return "color"
	case FieldMat4:
		return "mat4"
	default:
		return "unknown"
	}
}

// Field is one tagged value in a Source's emission list.
type Field struct {
	Kind   FieldKind
	Values []float32
}

// Emitter collects the ordered, tagged field list of a Source. The order of calls is the wire layout:
// it must match the member order of the shader binding the data is written to.
type Emitter struct {
	fields []Field
	values []float32
}

// Scalar appends a single float.
func (e *Emitter) Scalar(v float32) {
	e.Emit(FieldScalar, v)
}

// Vec2 appends a 2-component vector.
func (e *Emitter) Vec2(v mgl32.Vec2) {
	e.Emit(FieldVec2, v[:]...)
}

// Vec3 appends a 3-component vector.
func (e *Emitter) Vec3(v mgl32.Vec3) {
	e.Emit(FieldVec3, v[:]...)
}

// Vec4 appends a 4-component vector.
func (e *Emitter) Vec4(v mgl32.Vec4) {
	e.Emit(FieldVec4, v[:]...)
}

// Color appends a normalized RGBA color.
func (e *Emitter) Color(c common.Color) {
	e.Emit(FieldColor, c[:]...)
}

// Mat4 appends a 4x4 matrix in column-major order.
func (e *Emitter) Mat4(m mgl32.Mat4) {
	e.Emit(FieldMat4, m[:]...)
}

// Emit appends a field of any kind. The values are copied. A kind or value count without an emission rule
// is recorded as given and rejected when the field list is packed.
//
// Parameters:
//   - kind: the field kind
//   - values: the field's floats
func (e *Emitter) Emit(kind FieldKind, values ...float32) {
	start := len(e.values)
	e.values = append(e.values, values...)
	e.fields = append(e.fields, Field{Kind: kind, Values: e.values[start:len(e.values):len(e.values)]})
}

// Fields returns the fields emitted since the last Reset. The slice is only valid until the next Reset.
//
// Returns:
//   - []Field: the ordered field list
func (e *Emitter) Fields() []Field {
	return e.fields
}

// Reset empties the emitter, keeping its storage for reuse.
func (e *Emitter) Reset() {
	e.fields = e.fields[:0]
	e.values = e.values[:0]
}

// Source is a value that can be flattened into a GPU buffer.
type Source interface {
	// ByteSize returns the exact number of bytes the source occupies when packed.
	//
	// Returns:
	//   - int: the packed size in bytes
	ByteSize() int

	// Emit appends the source's fields to e in their fixed wire order.
	//
	// Parameters:
	//   - e: the emitter to append to
	Emit(e *Emitter)
}

// Pack interprets a tagged field list and writes the floats into dst in order.
//
// Parameters:
//   - fields: the field list
//   - dst: the destination floats
//
// Returns:
//   - int: the number of floats written
//   - error: ErrUnsupportedLayout for a kind without an emission rule or a value count that does not match
//     the kind, ErrSizeMismatch if the fields overflow dst
func Pack(fields []Field, dst []float32) (int, error) {
	cursor := 0
	for i, f := range fields {
		n := f.Kind.Floats()
		if n == 0 || len(f.Values) != n {
			return cursor, fmt.Errorf("field %d: %s with %d values: %w", i, f.Kind, len(f.Values), common.ErrUnsupportedLayout)
		}
		if cursor+n > len(dst) {
			return cursor, fmt.Errorf("field %d: %s overflows %d floats at offset %d: %w", i, f.Kind, len(dst), cursor, common.ErrSizeMismatch)
		}
		copy(dst[cursor:cursor+n], f.Values)
		cursor += n
	}
	return cursor, nil
}

// SizeOf returns the packed byte size of a field list, ignoring kinds without an emission rule.
// Sources can use it to derive ByteSize from their own emission.
//
// Parameters:
//   - src: the source to measure
//
// Returns:
//   - int: the packed size in bytes
func SizeOf(src func(*Emitter)) int {
	var e Emitter
	src(&e)
	n := 0
	for _, f := range e.fields {
		n += f.Kind.Floats()
	}
	return n * 4
}

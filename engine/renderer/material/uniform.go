package material

import (
	"github.com/Carmen-Shannon/keel/engine/renderer/buffer_writer"
	"github.com/Carmen-Shannon/keel/engine/versioned"
)

// Uniform is a single typed value bound to a uniform binding of a material. It is serialized with a buffer
// writer and carries its own version, so changing one uniform only re-uploads that binding.
type Uniform struct {
	kind  buffer_writer.FieldKind
	value *versioned.Versioned[[]float32]
}

func newUniform(kind buffer_writer.FieldKind, values []float32) *Uniform {
	data := make([]float32, kind.Floats())
	copy(data, values)
	return &Uniform{kind: kind, value: versioned.New(data)}
}

// Kind returns the field kind of the uniform.
func (u *Uniform) Kind() buffer_writer.FieldKind {
	return u.kind
}

// Values returns the uniform's current floats.
func (u *Uniform) Values() []float32 {
	return u.value.Value()
}

// ByteSize returns the packed size of the uniform.
func (u *Uniform) ByteSize() int {
	return u.kind.Floats() * 4
}

// Emit writes the uniform as a single field.
func (u *Uniform) Emit(e *buffer_writer.Emitter) {
	e.Emit(u.kind, u.value.Value()...)
}

// Version returns the uniform's version.
func (u *Uniform) Version() uint64 {
	return u.value.Version()
}

// set replaces the value in place and bumps the version.
func (u *Uniform) set(kind buffer_writer.FieldKind, values []float32) {
	u.kind = kind
	copy(u.value.Value(), values)
	u.value.Increment()
}

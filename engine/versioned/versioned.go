// Package versioned provides a value container whose version counter advances on every mutation.
//
// Consumers decide staleness only by comparing versions, never by comparing values: slices are
// mutated in place, so identity and equality say nothing about whether a GPU copy is current.
package versioned

// InitialVersion is the version of a freshly constructed Versioned value.
const InitialVersion uint64 = 0

// Versioned wraps a value of type T with a monotonically increasing version counter.
// The zero value holds the zero T at InitialVersion and is ready to use.
//
// Versioned is not safe for concurrent use; the engine mutates it from the render-driving goroutine only.
type Versioned[T any] struct {
	value   T
	version uint64
}

// New creates a Versioned holding value at InitialVersion.
//
// Parameters:
//   - value: the initial value
//
// Returns:
//   - *Versioned[T]: the new container
func New[T any](value T) *Versioned[T] {
	return &Versioned[T]{value: value, version: InitialVersion}
}

// Get returns the current value together with its version.
//
// Returns:
//   - T: the current value
//   - uint64: the current version
func (v *Versioned[T]) Get() (T, uint64) {
	return v.value, v.version
}

// Value returns the current value. Callers that mutate the returned value in place must call Increment.
//
// Returns:
//   - T: the current value
func (v *Versioned[T]) Value() T {
	return v.value
}

// Version returns the current version.
//
// Returns:
//   - uint64: the current version
func (v *Versioned[T]) Version() uint64 {
	return v.version
}

// Set replaces the value and increments the version by exactly one.
//
// Parameters:
//   - value: the new value
func (v *Versioned[T]) Set(value T) {
	v.value = value
	v.version++
}

// Increment advances the version by exactly one without replacing the value.
// Used after the owning entity has written into the wrapped value in place.
func (v *Versioned[T]) Increment() {
	v.version++
}

// IsNewerThan reports whether the current version is past a previously observed version.
//
// Parameters:
//   - seen: a version snapshot taken earlier
//
// Returns:
//   - bool: true if the value has been mutated since seen
func (v *Versioned[T]) IsNewerThan(seen uint64) bool {
	return v.version > seen
}

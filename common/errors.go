package common

import "errors"

var (
	// ErrSizeMismatch is returned when a fixed-capacity contract is violated: a serialized source does not match its
	// destination buffer's byte capacity, or a setter received input of the wrong length.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrAlreadyDestroyed is returned when an operation is attempted on an entity that has already been destroyed.
	ErrAlreadyDestroyed = errors.New("already destroyed")

	// ErrUnsupportedLayout is returned when a value kind presented to the buffer writer has no emission rule.
	ErrUnsupportedLayout = errors.New("unsupported layout")

	// ErrUnknownBinding is returned when a material binding is looked up by a name its shaders do not declare.
	ErrUnknownBinding = errors.New("unknown binding")

	// ErrDeviceLost is returned when the GPU device rejects command submission for the current frame.
	ErrDeviceLost = errors.New("device lost")
)

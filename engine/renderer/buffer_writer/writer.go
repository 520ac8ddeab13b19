package buffer_writer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
)

// Writer flattens a Source into a GPU buffer of a fixed capacity.
//
// A writer is bound to one source and one buffer for its lifetime. Every Upload re-emits the source from
// scratch, so the buffer always receives the source's current values.
type Writer interface {
	// Source returns the source the writer serializes.
	//
	// Returns:
	//   - Source: the bound source
	Source() Source

	// Buffer returns the destination buffer.
	//
	// Returns:
	//   - gpu.BufferID: the bound buffer
	Buffer() gpu.BufferID

	// Capacity returns the destination buffer size in bytes.
	//
	// Returns:
	//   - int: the capacity in bytes
	Capacity() int

	// Cursor returns the staging write position in floats. It is zero between uploads.
	//
	// Returns:
	//   - int: the current cursor
	Cursor() int

	// Upload emits the source, packs it into the staging area and writes it to the buffer in one call.
	//
	// Returns:
	//   - error: ErrSizeMismatch if the emitted fields do not exactly fill the capacity,
	//     ErrUnsupportedLayout if a field has no emission rule, or any device write error
	Upload() error
}

var _ Writer = &writer{}

type writer struct {
	source   Source
	device   gpu.Device
	buffer   gpu.BufferID
	capacity int
	emitter  Emitter
	staging  []float32
	bytes    []byte
	cursor   int
}

// NewWriter binds a source to a destination buffer.
//
// Parameters:
//   - source: the value to serialize
//   - device: the device owning the buffer
//   - buffer: the destination buffer
//   - capacity: the buffer size in bytes
//
// Returns:
//   - Writer: the bound writer
//   - error: ErrSizeMismatch if the source's byte size differs from capacity
func NewWriter(source Source, device gpu.Device, buffer gpu.BufferID, capacity int) (Writer, error) {
	if size := source.ByteSize(); size != capacity {
		return nil, fmt.Errorf("source is %d bytes, buffer is %d: %w", size, capacity, common.ErrSizeMismatch)
	}
	if capacity%4 != 0 {
		return nil, fmt.Errorf("capacity %d is not a whole number of floats: %w", capacity, common.ErrUnsupportedLayout)
	}
	return &writer{
		source:   source,
		device:   device,
		buffer:   buffer,
		capacity: capacity,
		staging:  make([]float32, capacity/4),
		bytes:    make([]byte, capacity),
	}, nil
}

func (w *writer) Source() Source {
	return w.source
}

func (w *writer) Buffer() gpu.BufferID {
	return w.buffer
}

func (w *writer) Capacity() int {
	return w.capacity
}

func (w *writer) Cursor() int {
	return w.cursor
}

func (w *writer) Upload() error {
	defer w.reset()

	w.source.Emit(&w.emitter)
	n, err := Pack(w.emitter.Fields(), w.staging)
	w.cursor = n
	if err != nil {
		return err
	}
	if n != len(w.staging) {
		return fmt.Errorf("emitted %d bytes into a %d byte buffer: %w", n*4, w.capacity, common.ErrSizeMismatch)
	}

	for i, v := range w.staging {
		binary.LittleEndian.PutUint32(w.bytes[i*4:], math.Float32bits(v))
	}
	if err := w.device.WriteBuffer(w.buffer, 0, w.bytes); err != nil {
		return fmt.Errorf("failed to write buffer %d: %w", w.buffer, err)
	}
	return nil
}

func (w *writer) reset() {
	w.emitter.Reset()
	w.cursor = 0
}

package geometry

import (
	"fmt"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/lifecycle"
	"github.com/Carmen-Shannon/keel/engine/versioned"
)

// geometry is the implementation of the Geometry interface.
type geometry struct {
	allocator *Allocator
	id        uint64
	label     string

	vertexCount int
	indexCount  int
	indexWidth  IndexWidth

	buffers  map[Slot]*versioned.Versioned[[]float32]
	indices  *versioned.Versioned[[]uint32]
	channels map[Slot]bool

	// initial data staged by builder options, consumed by Allocator.New
	initial        map[Slot][]float32
	initialIndices []uint32

	cachedBounds       *common.Box3
	boundsComputations int

	notifier lifecycle.Notifier
}

// Geometry is a fixed-size set of typed, versioned buffers describing a mesh: positions, optional colors and
// texture coordinates, and 32-bit indices.
//
// Every setter writes into the existing storage and increments the affected buffer's version by exactly one.
// Callers must never write into a buffer returned by Buffer or Indices without going through a setter,
// or GPU synchronization will not see the change.
type Geometry interface {
	// ID returns the identifier assigned by the Allocator that created this geometry.
	//
	// Returns:
	//   - uint64: the geometry ID
	ID() uint64

	// Label returns the debug label, or an empty string.
	//
	// Returns:
	//   - string: the label
	Label() string

	// VertexCount returns the fixed number of vertices.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// IndexCount returns the fixed number of indices.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// IndexWidth returns the narrowest index width permitted for this geometry's index count.
	// Index data is always stored and uploaded as 32-bit regardless of this value.
	//
	// Returns:
	//   - IndexWidth: IndexWidth16 when IndexCount <= MaxIndex16Count, otherwise IndexWidth32
	IndexWidth() IndexWidth

	// HasSlot reports whether the buffer for slot is allocated.
	//
	// Parameters:
	//   - slot: the slot to check
	//
	// Returns:
	//   - bool: true if allocated; SlotPosition and SlotIndex are always allocated
	HasSlot(slot Slot) bool

	// Buffer returns the versioned float buffer for a vertex slot, or nil if it is not allocated.
	//
	// Parameters:
	//   - slot: SlotPosition, SlotColor or SlotTexCoord
	//
	// Returns:
	//   - *versioned.Versioned[[]float32]: the buffer or nil
	Buffer(slot Slot) *versioned.Versioned[[]float32]

	// Indices returns the versioned 32-bit index buffer.
	//
	// Returns:
	//   - *versioned.Versioned[[]uint32]: the index buffer
	Indices() *versioned.Versioned[[]uint32]

	// Ensure allocates the buffer for an optional slot if it is not already allocated. It never changes a version:
	// allocation is not a content mutation. Colors are filled with opaque white and texture coordinates with zeros.
	//
	// Parameters:
	//   - slot: the slot to allocate
	//
	// Returns:
	//   - error: ErrAlreadyDestroyed after Destroy
	Ensure(slot Slot) error

	// SetPositions overwrites the position buffer. When data is the geometry's own position storage it is adopted
	// without copying. Invalidates the cached bounds and increments the position version.
	//
	// Parameters:
	//   - data: flat xyz positions of length VertexCount()*3
	//
	// Returns:
	//   - error: ErrSizeMismatch on a length mismatch, ErrAlreadyDestroyed after Destroy
	SetPositions(data []float32) error

	// SetColors writes vertex colors, allocating the color buffer on first use. A single color is broadcast to
	// every vertex; otherwise one color per vertex is required. Always increments the color version.
	//
	// Parameters:
	//   - colors: one color, or exactly VertexCount() colors
	//
	// Returns:
	//   - error: ErrSizeMismatch on a count mismatch, ErrAlreadyDestroyed after Destroy
	SetColors(colors ...common.Color) error

	// SetTexCoords writes texture coordinates, allocating the texcoord buffer on first use. When coords is nil
	// the call only ensures allocation and does not increment the version.
	//
	// Parameters:
	//   - coords: flat uv coordinates of length VertexCount()*2, or nil
	//
	// Returns:
	//   - error: ErrSizeMismatch on a length mismatch, ErrAlreadyDestroyed after Destroy
	SetTexCoords(coords []float32) error

	// SetIndices overwrites the index buffer and increments its version.
	//
	// Parameters:
	//   - data: indices of length IndexCount()
	//
	// Returns:
	//   - error: ErrSizeMismatch on a length mismatch, ErrAlreadyDestroyed after Destroy
	SetIndices(data []uint32) error

	// Bounds returns the local-space bounding box of the positions. The box is cached and only recomputed
	// after a buffer mutation.
	//
	// Returns:
	//   - common.Box3: the bounds
	Bounds() common.Box3

	// Observe registers a destroy observer.
	//
	// Parameters:
	//   - o: the observer
	//
	// Returns:
	//   - error: ErrAlreadyDestroyed after Destroy
	Observe(o lifecycle.DestroyObserver) error

	// Unobserve removes a destroy observer.
	//
	// Parameters:
	//   - o: the observer
	Unobserve(o lifecycle.DestroyObserver)

	// Destroy notifies every observer exactly once. The geometry is unusable afterwards.
	//
	// Returns:
	//   - error: ErrAlreadyDestroyed on a second call
	Destroy() error

	// Destroyed reports whether Destroy has been called.
	//
	// Returns:
	//   - bool: true after Destroy
	Destroyed() bool

	// Clone creates an independent deep copy with a new ID from the same Allocator, fresh versions and no observers.
	//
	// Returns:
	//   - Geometry: the copy
	//   - error: ErrAlreadyDestroyed after Destroy
	Clone() (Geometry, error)
}

var _ Geometry = &geometry{}

func (g *geometry) ID() uint64 {
	return g.id
}

func (g *geometry) Label() string {
	return g.label
}

func (g *geometry) VertexCount() int {
	return g.vertexCount
}

func (g *geometry) IndexCount() int {
	return g.indexCount
}

func (g *geometry) IndexWidth() IndexWidth {
	return g.indexWidth
}

func (g *geometry) HasSlot(slot Slot) bool {
	if slot == SlotIndex {
		return true
	}
	_, ok := g.buffers[slot]
	return ok
}

func (g *geometry) Buffer(slot Slot) *versioned.Versioned[[]float32] {
	return g.buffers[slot]
}

func (g *geometry) Indices() *versioned.Versioned[[]uint32] {
	return g.indices
}

func (g *geometry) Ensure(slot Slot) error {
	if err := g.checkAlive("ensure " + slot.String()); err != nil {
		return err
	}
	switch slot {
	case SlotPosition, SlotColor, SlotTexCoord:
		g.ensure(slot)
	case SlotIndex:
	default:
		return fmt.Errorf("geometry %d: ensure slot %d: %w", g.id, slot, common.ErrUnsupportedLayout)
	}
	return nil
}

func (g *geometry) SetPositions(data []float32) error {
	if err := g.checkAlive("set positions"); err != nil {
		return err
	}
	if err := g.checkLength(SlotPosition, len(data)); err != nil {
		return err
	}
	item := g.buffers[SlotPosition]
	if !sameStorage(item.Value(), data) {
		copy(item.Value(), data)
	}
	g.invalidate(item.Increment)
	return nil
}

func (g *geometry) SetColors(colors ...common.Color) error {
	if err := g.checkAlive("set colors"); err != nil {
		return err
	}
	if len(colors) != 1 && len(colors) != g.vertexCount {
		return fmt.Errorf("set colors: got %d colors for %d vertices: %w", len(colors), g.vertexCount, common.ErrSizeMismatch)
	}
	item := g.ensure(SlotColor)
	buf := item.Value()
	for i := range g.vertexCount {
		c := colors[0]
		if len(colors) > 1 {
			c = colors[i]
		}
		copy(buf[i*4:i*4+4], c[:])
	}
	g.invalidate(item.Increment)
	return nil
}

func (g *geometry) SetTexCoords(coords []float32) error {
	if err := g.checkAlive("set texcoords"); err != nil {
		return err
	}
	if coords == nil {
		g.ensure(SlotTexCoord)
		return nil
	}
	if err := g.checkLength(SlotTexCoord, len(coords)); err != nil {
		return err
	}
	item := g.ensure(SlotTexCoord)
	copy(item.Value(), coords)
	g.invalidate(item.Increment)
	return nil
}

func (g *geometry) SetIndices(data []uint32) error {
	if err := g.checkAlive("set indices"); err != nil {
		return err
	}
	if err := g.checkLength(SlotIndex, len(data)); err != nil {
		return err
	}
	copy(g.indices.Value(), data)
	g.invalidate(g.indices.Increment)
	return nil
}

func (g *geometry) Bounds() common.Box3 {
	if g.cachedBounds == nil {
		b := common.Box3FromPositions(g.buffers[SlotPosition].Value())
		g.cachedBounds = &b
		g.boundsComputations++
	}
	return *g.cachedBounds
}

func (g *geometry) Observe(o lifecycle.DestroyObserver) error {
	return g.notifier.Observe(o)
}

func (g *geometry) Unobserve(o lifecycle.DestroyObserver) {
	g.notifier.Unobserve(o)
}

func (g *geometry) Destroy() error {
	if err := g.notifier.Destroy(g); err != nil {
		return fmt.Errorf("geometry %d: %w", g.id, err)
	}
	common.Logger().Debug("geometry destroyed", "id", g.id, "label", g.label)
	return nil
}

func (g *geometry) Destroyed() bool {
	return g.notifier.Destroyed()
}

func (g *geometry) Clone() (Geometry, error) {
	if err := g.checkAlive("clone"); err != nil {
		return nil, err
	}
	options := []GeometryBuilderOption{
		WithLabel(g.label),
		WithPositions(g.buffers[SlotPosition].Value()),
		WithIndices(g.indices.Value()),
	}
	if c, ok := g.buffers[SlotColor]; ok {
		options = append(options, func(clone *geometry) {
			clone.initial[SlotColor] = c.Value()
			clone.enableChannel(SlotColor)
		})
	}
	if tc, ok := g.buffers[SlotTexCoord]; ok {
		options = append(options, WithTexCoords(tc.Value()))
	}
	return g.allocator.New(g.vertexCount, g.indexCount, options...)
}

// enableChannel marks an optional slot to be allocated at construction.
func (g *geometry) enableChannel(slot Slot) {
	g.channels[slot] = true
}

// allocate returns new storage for slot filled with the slot's neutral value.
func (g *geometry) allocate(slot Slot) []float32 {
	buf := make([]float32, g.vertexCount*slot.Components())
	if slot == SlotColor {
		for i := range buf {
			buf[i] = 1
		}
	}
	return buf
}

// ensure allocates slot if needed and returns its buffer without touching the version.
func (g *geometry) ensure(slot Slot) *versioned.Versioned[[]float32] {
	if item, ok := g.buffers[slot]; ok {
		return item
	}
	item := versioned.New(g.allocate(slot))
	g.buffers[slot] = item
	return item
}

// invalidate bumps a buffer version and drops the cached bounds.
func (g *geometry) invalidate(increment func()) {
	increment()
	g.cachedBounds = nil
}

func (g *geometry) checkAlive(op string) error {
	if g.notifier.Destroyed() {
		return fmt.Errorf("geometry %d: %s: %w", g.id, op, common.ErrAlreadyDestroyed)
	}
	return nil
}

func (g *geometry) checkLength(slot Slot, got int) error {
	count := g.vertexCount
	if slot == SlotIndex {
		count = g.indexCount
	}
	if want := count * slot.Components(); got != want {
		return fmt.Errorf("geometry %d: %s buffer expects %d elements, got %d: %w", g.id, slot, want, got, common.ErrSizeMismatch)
	}
	return nil
}

// sameStorage reports whether a and b share their first element.
func sameStorage(a, b []float32) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

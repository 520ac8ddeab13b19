package geometry

import (
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/versioned"
)

// Allocator creates geometries and owns the monotonic counter that gives each one its ID.
// IDs are unique per Allocator; separate allocators produce independent ID sequences.
type Allocator struct {
	next atomic.Uint64
}

// NewAllocator creates an Allocator whose first geometry receives ID 1.
//
// Returns:
//   - *Allocator: the new allocator
func NewAllocator() *Allocator {
	return &Allocator{}
}

// nextID returns the next unused ID.
func (a *Allocator) nextID() uint64 {
	return a.next.Add(1)
}

// New creates a Geometry with fixed vertex and index counts. The position and index buffers are always allocated
// (zero-filled unless initial data is supplied); optional channels are allocated only when requested by an option.
// All buffers start at versioned.InitialVersion.
//
// Parameters:
//   - vertexCount: the number of vertices, fixed for the geometry's lifetime
//   - indexCount: the number of indices, fixed for the geometry's lifetime
//   - options: builder options declaring optional channels and initial data
//
// Returns:
//   - Geometry: the new geometry
//   - error: ErrSizeMismatch if a count is negative or initial data has the wrong length
func (a *Allocator) New(vertexCount, indexCount int, options ...GeometryBuilderOption) (Geometry, error) {
	if vertexCount < 0 || indexCount < 0 {
		return nil, fmt.Errorf("geometry counts (%d, %d) must be non-negative: %w", vertexCount, indexCount, common.ErrSizeMismatch)
	}

	g := &geometry{
		allocator:   a,
		vertexCount: vertexCount,
		indexCount:  indexCount,
		indexWidth:  indexWidthFor(indexCount),
		buffers:     make(map[Slot]*versioned.Versioned[[]float32], len(VertexSlots)),
		channels:    make(map[Slot]bool),
		initial:     make(map[Slot][]float32),
	}
	for _, option := range options {
		option(g)
	}

	for _, slot := range VertexSlots {
		data, supplied := g.initial[slot]
		if !supplied && slot != SlotPosition && !g.channels[slot] {
			continue
		}
		buf := g.allocate(slot)
		if supplied {
			if err := g.checkLength(slot, len(data)); err != nil {
				return nil, err
			}
			copy(buf, data)
		}
		g.buffers[slot] = versioned.New(buf)
	}

	indices := make([]uint32, indexCount)
	if g.initialIndices != nil {
		if err := g.checkLength(SlotIndex, len(g.initialIndices)); err != nil {
			return nil, err
		}
		copy(indices, g.initialIndices)
	}
	g.indices = versioned.New(indices)

	g.initial = nil
	g.initialIndices = nil
	g.id = a.nextID()

	common.Logger().Debug("geometry created", "id", g.id, "label", g.label, "vertices", vertexCount, "indices", indexCount)
	return g, nil
}

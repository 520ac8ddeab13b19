package geometry

import "github.com/Carmen-Shannon/keel/common"

// GeometryBuilderOption is a functional option applied to a geometry during construction via Allocator.New.
type GeometryBuilderOption func(*geometry)

// WithLabel sets a debug label used in logs and GPU resource labels.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - GeometryBuilderOption: a function that applies the label option to a geometry
func WithLabel(label string) GeometryBuilderOption {
	return func(g *geometry) {
		g.label = label
	}
}

// WithColorChannel declares that the geometry uses per-vertex colors. The channel is allocated up front
// and filled with opaque white.
//
// Returns:
//   - GeometryBuilderOption: a function that enables the color channel
func WithColorChannel() GeometryBuilderOption {
	return func(g *geometry) {
		g.enableChannel(SlotColor)
	}
}

// WithTexCoordChannel declares that the geometry uses texture coordinates. The channel is allocated up front
// and zero-filled.
//
// Returns:
//   - GeometryBuilderOption: a function that enables the texcoord channel
func WithTexCoordChannel() GeometryBuilderOption {
	return func(g *geometry) {
		g.enableChannel(SlotTexCoord)
	}
}

// WithPositions supplies initial xyz positions. The data is copied and its length must equal vertexCount*3.
//
// Parameters:
//   - positions: flat xyz positions
//
// Returns:
//   - GeometryBuilderOption: a function that stages the initial positions
func WithPositions(positions []float32) GeometryBuilderOption {
	return func(g *geometry) {
		g.initial[SlotPosition] = positions
	}
}

// WithColors supplies initial per-vertex colors and enables the color channel. The number of colors must
// equal vertexCount.
//
// Parameters:
//   - colors: one color per vertex
//
// Returns:
//   - GeometryBuilderOption: a function that stages the initial colors
func WithColors(colors []common.Color) GeometryBuilderOption {
	return func(g *geometry) {
		flat := make([]float32, 0, len(colors)*4)
		for _, c := range colors {
			flat = append(flat, c[:]...)
		}
		g.initial[SlotColor] = flat
		g.enableChannel(SlotColor)
	}
}

// WithTexCoords supplies initial uv coordinates and enables the texcoord channel. The length must equal vertexCount*2.
//
// Parameters:
//   - coords: flat uv coordinates
//
// Returns:
//   - GeometryBuilderOption: a function that stages the initial texture coordinates
func WithTexCoords(coords []float32) GeometryBuilderOption {
	return func(g *geometry) {
		g.initial[SlotTexCoord] = coords
		g.enableChannel(SlotTexCoord)
	}
}

// WithIndices supplies initial indices. The data is copied and its length must equal indexCount.
//
// Parameters:
//   - indices: the vertex indices
//
// Returns:
//   - GeometryBuilderOption: a function that stages the initial indices
func WithIndices(indices []uint32) GeometryBuilderOption {
	return func(g *geometry) {
		g.initialIndices = indices
	}
}

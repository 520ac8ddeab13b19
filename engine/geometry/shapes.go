package geometry

import (
	"github.com/Carmen-Shannon/keel/common"
	"github.com/go-gl/mathgl/mgl32"
)

// quadIndices are two counter-clockwise triangles over the corners bottom-left, bottom-right, top-right, top-left.
var quadIndices = []uint32{0, 1, 2, 2, 3, 0}

// wireQuadIndices are the four edges of a quad as a line list.
var wireQuadIndices = []uint32{0, 1, 1, 2, 2, 3, 3, 0}

// Quad creates a textured rectangle in the XY plane facing +Z.
// Texture coordinates put (0, 0) at the top-left corner.
//
// Parameters:
//   - alloc: the allocator that assigns the geometry ID
//   - center: the rectangle center
//   - size: the rectangle width and height
//
// Returns:
//   - Geometry: a geometry with 4 vertices and 6 indices
//   - error: an error if construction fails
func Quad(alloc *Allocator, center, size mgl32.Vec2) (Geometry, error) {
	return alloc.New(4, 6,
		WithLabel("quad"),
		WithPositions(quadPositions(center, size)),
		WithTexCoords([]float32{0, 1, 1, 1, 1, 0, 0, 0}),
		WithIndices(quadIndices),
	)
}

// ScreenQuad creates a quad covering the whole viewport in normalized device coordinates.
// Used with an identity transform and no camera to draw full-screen images.
//
// Parameters:
//   - alloc: the allocator that assigns the geometry ID
//
// Returns:
//   - Geometry: a geometry with 4 vertices and 6 indices
//   - error: an error if construction fails
func ScreenQuad(alloc *Allocator) (Geometry, error) {
	g, err := Quad(alloc, mgl32.Vec2{0, 0}, mgl32.Vec2{2, 2})
	if err != nil {
		return nil, err
	}
	g.(*geometry).label = "screen quad"
	return g, nil
}

// WireQuad creates the outline of a rectangle in the XY plane, drawn as a line list.
//
// Parameters:
//   - alloc: the allocator that assigns the geometry ID
//   - center: the rectangle center
//   - size: the rectangle width and height
//
// Returns:
//   - Geometry: a geometry with 4 vertices and 8 indices
//   - error: an error if construction fails
func WireQuad(alloc *Allocator, center, size mgl32.Vec2) (Geometry, error) {
	return alloc.New(4, 8,
		WithLabel("wire quad"),
		WithPositions(quadPositions(center, size)),
		WithTexCoordChannel(),
		WithColors([]common.Color{common.ColorWhite, common.ColorWhite, common.ColorWhite, common.ColorWhite}),
		WithIndices(wireQuadIndices),
	)
}

// WireCube creates the edges of a unit cube centered on the origin, drawn as a line list.
// Every face outline is listed, so shared edges appear twice.
//
// Parameters:
//   - alloc: the allocator that assigns the geometry ID
//
// Returns:
//   - Geometry: a geometry with 8 vertices and 48 indices
//   - error: an error if construction fails
func WireCube(alloc *Allocator) (Geometry, error) {
	const (
		a, b, c, d = 0, 1, 2, 3 // bottom, y = -0.5
		e, f, g, h = 4, 5, 6, 7 // top, y = +0.5
		lo, hi     = -0.5, 0.5
	)
	positions := []float32{
		lo, lo, lo, // a
		hi, lo, lo, // b
		hi, lo, hi, // c
		lo, lo, hi, // d
		lo, hi, lo, // e
		hi, hi, lo, // f
		hi, hi, hi, // g
		lo, hi, hi, // h
	}
	indices := []uint32{
		a, b, b, c, c, d, d, a, // bottom
		e, h, h, g, g, f, f, e, // top
		d, a, a, e, e, h, h, d, // left
		c, b, b, f, f, g, g, c, // right
		d, c, c, g, g, h, h, d, // back
		a, b, b, f, f, e, e, a, // front
	}

	cube, err := alloc.New(8, len(indices),
		WithLabel("wire cube"),
		WithPositions(positions),
		WithIndices(indices),
	)
	if err != nil {
		return nil, err
	}
	if err = cube.SetTexCoords(nil); err != nil {
		return nil, err
	}
	if err = cube.SetColors(common.ColorWhite); err != nil {
		return nil, err
	}
	return cube, nil
}

func quadPositions(center, size mgl32.Vec2) []float32 {
	x0, x1 := center[0]-size[0]/2, center[0]+size[0]/2
	y0, y1 := center[1]-size[1]/2, center[1]+size[1]/2
	return []float32{
		x0, y0, 0,
		x1, y0, 0,
		x1, y1, 0,
		x0, y1, 0,
	}
}

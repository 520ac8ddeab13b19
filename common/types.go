// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Box3 is an axis-aligned bounding box in 3D space.
// An empty box has Min set to +Inf and Max set to -Inf on every axis so that expanding it by any point yields that point.
type Box3 struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyBox3 returns a Box3 that contains no points.
//
// Returns:
//   - Box3: the empty box
func EmptyBox3() Box3 {
	inf := float32(math.Inf(1))
	return Box3{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// Box3FromPositions computes the bounding box of a flat xyz position array.
// Trailing values that do not form a complete triple are ignored.
//
// Parameters:
//   - positions: flat array of positions, 3 floats per vertex
//
// Returns:
//   - Box3: the bounding box, or an empty box if there are no positions
func Box3FromPositions(positions []float32) Box3 {
	b := EmptyBox3()
	for i := 0; i+2 < len(positions); i += 3 {
		b = b.ExpandByPoint(mgl32.Vec3{positions[i], positions[i+1], positions[i+2]})
	}
	return b
}

// IsEmpty reports whether the box contains no points.
//
// Returns:
//   - bool: true if any axis has Min greater than Max
func (b Box3) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Center returns the midpoint of the box.
//
// Returns:
//   - mgl32.Vec3: the center, or the zero vector for an empty box
func (b Box3) Center() mgl32.Vec3 {
	if b.IsEmpty() {
		return mgl32.Vec3{}
	}
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box along each axis.
//
// Returns:
//   - mgl32.Vec3: Max - Min, or the zero vector for an empty box
func (b Box3) Size() mgl32.Vec3 {
	if b.IsEmpty() {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// ExpandByPoint returns a copy of the box grown to include p.
//
// Parameters:
//   - p: the point to include
//
// Returns:
//   - Box3: the expanded box
func (b Box3) ExpandByPoint(p mgl32.Vec3) Box3 {
	for i := range 3 {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Transform returns the axis-aligned box enclosing the eight corners of b transformed by m.
//
// Parameters:
//   - m: the column-major transform to apply
//
// Returns:
//   - Box3: the transformed bounds, or an empty box if b is empty
func (b Box3) Transform(m mgl32.Mat4) Box3 {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox3()
	for i := range 8 {
		corner := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.ExpandByPoint(mgl32.TransformCoordinate(corner, m))
	}
	return out
}

package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// ExtractFrustum extracts frustum planes from a combined view-projection matrix using the Gribb/Hartmann method.
// The near plane follows the WebGPU clip-space convention where depth ranges over [0, 1].
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the column-major view-projection matrix
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Rows()

	rows := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r2,         // near (z >= 0)
		r3.Sub(r2), // far
	}

	var f Frustum
	for i, r := range rows {
		n := r.Vec3()
		l := n.Len()
		if l > 0 {
			f.Planes[i] = Plane{Normal: n.Mul(1 / l), Distance: r[3] / l}
		} else {
			f.Planes[i] = Plane{Normal: n, Distance: r[3]}
		}
	}
	return f
}

// DistanceTo returns the signed distance from the plane to p. Positive values lie inside the frustum.
//
// Parameters:
//   - p: the point to test
//
// Returns:
//   - float32: the signed distance
func (p Plane) DistanceTo(v mgl32.Vec3) float32 {
	return p.Normal.Dot(v) + p.Distance
}

// IntersectsBox reports whether any part of the box lies inside the frustum.
// Uses the positive-vertex test, which is conservative: some boxes near frustum corners are reported visible.
//
// Parameters:
//   - b: the world-space bounding box
//
// Returns:
//   - bool: false only when the box lies completely outside one plane; empty boxes are never visible
func (f Frustum) IntersectsBox(b Box3) bool {
	if b.IsEmpty() {
		return false
	}
	for _, p := range f.Planes {
		positive := b.Min
		for i := range 3 {
			if p.Normal[i] >= 0 {
				positive[i] = b.Max[i]
			}
		}
		if p.DistanceTo(positive) < 0 {
			return false
		}
	}
	return true
}

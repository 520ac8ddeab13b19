// Package scene is the scene graph consumed by the renderer: nodes with local transforms, meshes pairing a
// geometry with a material, and the traversal that flattens a tree into a per-frame drawable list.
package scene

import (
	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/geometry"
	"github.com/Carmen-Shannon/keel/engine/renderer/material"
	"github.com/Carmen-Shannon/keel/engine/versioned"
	"github.com/go-gl/mathgl/mgl32"
)

// Drawable is one geometry, material and world transform submitted for rendering in a frame.
type Drawable struct {
	Geometry  geometry.Geometry
	Material  material.Material
	Transform *versioned.Versioned[mgl32.Mat4]
	// Owner is the node the drawable was collected from. Per-object GPU state is keyed by it and released
	// when it is destroyed.
	Owner Node
}

// CollectDrawables walks the tree under root depth first, updates world matrices, and returns the visible
// meshes in traversal order. Hidden subtrees, destroyed entities and meshes without a geometry or a material
// are skipped. With WithFrustum, meshes whose world-space bounds lie outside the frustum are culled.
//
// Parameters:
//   - root: the root node; nil yields no drawables
//   - options: collection options
//
// Returns:
//   - []Drawable: the draw list in render order
func CollectDrawables(root Node, options ...CollectOption) []Drawable {
	if root == nil {
		return nil
	}
	cfg := &collectConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	var drawables []Drawable
	culled := 0
	var walk func(n Node, parentWorld mgl32.Mat4)
	walk = func(n Node, parentWorld mgl32.Mat4) {
		if n.Destroyed() || !n.Visible() {
			return
		}
		world := parentWorld.Mul4(n.LocalMatrix())
		updateWorld(n.WorldMatrix(), world)

		if m, ok := n.(Mesh); ok {
			g, mat := m.Geometry(), m.Material()
			switch {
			case g == nil || mat == nil || g.Destroyed() || mat.Destroyed():
			case cfg.frustum != nil && !cfg.frustum.IntersectsBox(g.Bounds().Transform(world)):
				culled++
			default:
				drawables = append(drawables, Drawable{Geometry: g, Material: mat, Transform: n.WorldMatrix(), Owner: m})
			}
		}
		for _, child := range n.Children() {
			walk(child, world)
		}
	}
	walk(root, mgl32.Ident4())

	if culled > 0 {
		common.Logger().Debug("frustum culled meshes", "culled", culled, "drawn", len(drawables))
	}
	return drawables
}

// updateWorld stores world only when it differs, so the version tracks actual changes.
func updateWorld(v *versioned.Versioned[mgl32.Mat4], world mgl32.Mat4) {
	if v.Value() != world {
		v.Set(world)
	}
}

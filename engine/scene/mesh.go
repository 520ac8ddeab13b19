package scene

import (
	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/geometry"
	"github.com/Carmen-Shannon/keel/engine/renderer/material"
)

type mesh struct {
	*node

	geometry geometry.Geometry
	material material.Material
}

// Mesh is a node drawn with a geometry and a material. Geometries and materials may be shared between meshes;
// destroying a mesh does not destroy them.
type Mesh interface {
	Node

	// Geometry returns the mesh's geometry.
	//
	// Returns:
	//   - geometry.Geometry: the geometry
	Geometry() geometry.Geometry

	// SetGeometry replaces the mesh's geometry.
	//
	// Parameters:
	//   - g: the new geometry
	SetGeometry(g geometry.Geometry)

	// Material returns the mesh's material.
	//
	// Returns:
	//   - material.Material: the material
	Material() material.Material

	// SetMaterial replaces the mesh's material.
	//
	// Parameters:
	//   - m: the new material
	SetMaterial(m material.Material)
}

var _ Mesh = &mesh{}

// NewMesh creates a mesh node.
//
// Parameters:
//   - g: the geometry to draw
//   - m: the material to draw it with
//   - options: builder options
//
// Returns:
//   - Mesh: the mesh
func NewMesh(g geometry.Geometry, m material.Material, options ...NodeBuilderOption) Mesh {
	label := "mesh"
	if g != nil {
		label = common.Coalesce(g.Label(), label)
	}
	me := &mesh{
		node:     newNode(label, options...),
		geometry: g,
		material: m,
	}
	me.self = me
	return me
}

func (m *mesh) Geometry() geometry.Geometry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geometry
}

func (m *mesh) SetGeometry(g geometry.Geometry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geometry = g
}

func (m *mesh) Material() material.Material {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.material
}

func (m *mesh) SetMaterial(mat material.Material) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.material = mat
}

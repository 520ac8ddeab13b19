package scene

import "github.com/go-gl/mathgl/mgl32"

// NodeBuilderOption is a functional option used to configure a Node or Mesh during construction.
type NodeBuilderOption func(*node)

// WithLabel sets the node's debug label.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - NodeBuilderOption: a function that sets the label
func WithLabel(label string) NodeBuilderOption {
	return func(n *node) {
		n.label = label
	}
}

// WithPosition sets the node's initial local position.
//
// Parameters:
//   - p: the local position
//
// Returns:
//   - NodeBuilderOption: a function that sets the position
func WithPosition(p mgl32.Vec3) NodeBuilderOption {
	return func(n *node) {
		n.position = p
	}
}

// WithRotation sets the node's initial local rotation.
//
// Parameters:
//   - q: the local rotation
//
// Returns:
//   - NodeBuilderOption: a function that sets the rotation
func WithRotation(q mgl32.Quat) NodeBuilderOption {
	return func(n *node) {
		n.rotation = q.Normalize()
	}
}

// WithScale sets the node's initial local scale.
//
// Parameters:
//   - s: the local scale
//
// Returns:
//   - NodeBuilderOption: a function that sets the scale
func WithScale(s mgl32.Vec3) NodeBuilderOption {
	return func(n *node) {
		n.scale = s
	}
}

// WithVisible sets whether the node starts visible.
//
// Parameters:
//   - visible: false to hide the subtree
//
// Returns:
//   - NodeBuilderOption: a function that sets the visibility
func WithVisible(visible bool) NodeBuilderOption {
	return func(n *node) {
		n.visible = visible
	}
}

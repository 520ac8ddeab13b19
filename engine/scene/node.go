package scene

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/lifecycle"
	"github.com/Carmen-Shannon/keel/engine/versioned"
	"github.com/go-gl/mathgl/mgl32"
)

type node struct {
	mu *sync.Mutex

	// self is the outermost value wrapping this node (a Mesh for mesh nodes). It is what parents, children
	// and destroy observers see.
	self Node

	label    string
	visible  bool
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	parent   Node
	children []Node

	world    *versioned.Versioned[mgl32.Mat4]
	notifier lifecycle.Notifier
}

// Node is an element of the scene graph with a local transform and ordered children.
//
// A node's world matrix is its parent's world matrix times its local translation, rotation and scale. World
// matrices are recomputed during CollectDrawables, and their version only advances when the value changes, so
// a static node never re-uploads its transform.
type Node interface {
	lifecycle.Observable

	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Visible reports whether the node and its subtree are drawn.
	//
	// Returns:
	//   - bool: false if the subtree is hidden
	Visible() bool

	// SetVisible shows or hides the node and its subtree.
	//
	// Parameters:
	//   - visible: false to hide the subtree
	SetVisible(visible bool)

	// Position returns the translation relative to the parent.
	//
	// Returns:
	//   - mgl32.Vec3: the local position
	Position() mgl32.Vec3

	// SetPosition sets the translation relative to the parent.
	//
	// Parameters:
	//   - p: the local position
	SetPosition(p mgl32.Vec3)

	// Rotation returns the rotation relative to the parent.
	//
	// Returns:
	//   - mgl32.Quat: the local rotation
	Rotation() mgl32.Quat

	// SetRotation sets the rotation relative to the parent.
	//
	// Parameters:
	//   - q: the local rotation
	SetRotation(q mgl32.Quat)

	// SetEuler sets the rotation from XYZ Euler angles in radians.
	//
	// Parameters:
	//   - x, y, z: rotation around each axis
	SetEuler(x, y, z float32)

	// Scale returns the scale relative to the parent.
	//
	// Returns:
	//   - mgl32.Vec3: the local scale
	Scale() mgl32.Vec3

	// SetScale sets the scale relative to the parent.
	//
	// Parameters:
	//   - s: the local scale
	SetScale(s mgl32.Vec3)

	// LocalMatrix returns translation * rotation * scale.
	//
	// Returns:
	//   - mgl32.Mat4: the local transform
	LocalMatrix() mgl32.Mat4

	// WorldMatrix returns the versioned world transform computed by the last traversal.
	//
	// Returns:
	//   - *versioned.Versioned[mgl32.Mat4]: the world transform
	WorldMatrix() *versioned.Versioned[mgl32.Mat4]

	// Parent returns the parent node, or nil for a root.
	//
	// Returns:
	//   - Node: the parent or nil
	Parent() Node

	// Children returns a copy of the children in draw order.
	//
	// Returns:
	//   - []Node: the children
	Children() []Node

	// Add appends children, detaching each from its previous parent.
	//
	// Parameters:
	//   - children: the nodes to add
	//
	// Returns:
	//   - error: ErrAlreadyDestroyed if any node is destroyed, or an error if a child is an ancestor of the node
	Add(children ...Node) error

	// Remove detaches a child. Removing a node that is not a child does nothing.
	//
	// Parameters:
	//   - child: the node to remove
	Remove(child Node)

	// Traverse visits the node and its descendants depth first, parents before children.
	// Returning false from fn skips the visited node's children.
	//
	// Parameters:
	//   - fn: the visitor
	Traverse(fn func(Node) bool)

	// Destroy detaches the node from its parent and destroys it and every descendant, notifying observers
	// so they release per-node GPU state.
	//
	// Returns:
	//   - error: ErrAlreadyDestroyed on a second call
	Destroy() error

	base() *node
}

var _ Node = &node{}

// NewNode creates an empty group node at the origin.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Node: the node
func NewNode(options ...NodeBuilderOption) Node {
	n := newNode("node", options...)
	n.self = n
	return n
}

func newNode(label string, options ...NodeBuilderOption) *node {
	n := &node{
		mu:       &sync.Mutex{},
		label:    label,
		visible:  true,
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
		world:    versioned.New(mgl32.Ident4()),
	}
	for _, opt := range options {
		opt(n)
	}
	return n
}

func (n *node) base() *node {
	return n
}

func (n *node) Label() string {
	return n.label
}

func (n *node) Visible() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visible
}

func (n *node) SetVisible(visible bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visible = visible
}

func (n *node) Position() mgl32.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position
}

func (n *node) SetPosition(p mgl32.Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.position = p
}

func (n *node) Rotation() mgl32.Quat {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rotation
}

func (n *node) SetRotation(q mgl32.Quat) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rotation = q.Normalize()
}

func (n *node) SetEuler(x, y, z float32) {
	n.SetRotation(mgl32.AnglesToQuat(x, y, z, mgl32.XYZ))
}

func (n *node) Scale() mgl32.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.scale
}

func (n *node) SetScale(s mgl32.Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scale = s
}

func (n *node) LocalMatrix() mgl32.Mat4 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return mgl32.Translate3D(n.position[0], n.position[1], n.position[2]).
		Mul4(n.rotation.Mat4()).
		Mul4(mgl32.Scale3D(n.scale[0], n.scale[1], n.scale[2]))
}

func (n *node) WorldMatrix() *versioned.Versioned[mgl32.Mat4] {
	return n.world
}

func (n *node) Parent() Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent
}

func (n *node) Children() []Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.children)
}

func (n *node) Add(children ...Node) error {
	if n.Destroyed() {
		return fmt.Errorf("add to node %s: %w", n.label, common.ErrAlreadyDestroyed)
	}
	for _, child := range children {
		if child.Destroyed() {
			return fmt.Errorf("add node %s: %w", child.Label(), common.ErrAlreadyDestroyed)
		}
		for a := Node(n.self); a != nil; a = a.Parent() {
			if a == child {
				return fmt.Errorf("add node %s to %s: node is an ancestor", child.Label(), n.label)
			}
		}
	}
	for _, child := range children {
		c := child.base()
		if old := c.Parent(); old != nil {
			old.Remove(child)
		}
		c.mu.Lock()
		c.parent = n.self
		c.mu.Unlock()

		n.mu.Lock()
		n.children = append(n.children, child)
		n.mu.Unlock()
	}
	return nil
}

func (n *node) Remove(child Node) {
	n.mu.Lock()
	i := slices.Index(n.children, child)
	if i < 0 {
		n.mu.Unlock()
		return
	}
	n.children = slices.Delete(n.children, i, i+1)
	n.mu.Unlock()

	c := child.base()
	c.mu.Lock()
	c.parent = nil
	c.mu.Unlock()
}

func (n *node) Traverse(fn func(Node) bool) {
	if !fn(n.self) {
		return
	}
	for _, child := range n.Children() {
		child.Traverse(fn)
	}
}

func (n *node) Observe(o lifecycle.DestroyObserver) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.notifier.Observe(o)
}

func (n *node) Unobserve(o lifecycle.DestroyObserver) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifier.Unobserve(o)
}

func (n *node) Destroyed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.notifier.Destroyed()
}

func (n *node) Destroy() error {
	if n.Destroyed() {
		return fmt.Errorf("node %s: %w", n.label, common.ErrAlreadyDestroyed)
	}
	if p := n.Parent(); p != nil {
		p.Remove(n.self)
	}
	n.destroyTree()
	return nil
}

// destroyTree destroys the node and its descendants, children first. Observers run without the node locked.
func (n *node) destroyTree() {
	for _, child := range n.Children() {
		child.base().destroyTree()
	}
	if err := n.notifier.Destroy(n.self); err != nil {
		return
	}
	common.Logger().Debug("node destroyed", "label", n.label)
}

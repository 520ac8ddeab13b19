package geometry

// Slot names the logical role of a geometry buffer. It identifies what the data means, not where it lives.
type Slot int

const (
	// SlotPosition holds xyz positions, 3 floats per vertex. Always allocated.
	SlotPosition Slot = iota
	// SlotColor holds straight-alpha RGBA colors, 4 floats per vertex. Optional.
	SlotColor
	// SlotTexCoord holds uv texture coordinates, 2 floats per vertex. Optional.
	SlotTexCoord
	// SlotIndex holds 32-bit vertex indices, one per index.
	SlotIndex
)

// VertexSlots lists the per-vertex float slots in binding order.
var VertexSlots = []Slot{SlotPosition, SlotColor, SlotTexCoord}

// Components returns the number of elements each vertex (or index) contributes to the slot's buffer.
//
// Returns:
//   - int: 3 for positions, 4 for colors, 2 for texcoords, 1 for indices, 0 for unknown slots
func (s Slot) Components() int {
	switch s {
	case SlotPosition:
		return 3
	case SlotColor:
		return 4
	case SlotTexCoord:
		return 2
	case SlotIndex:
		return 1
	default:
		return 0
	}
}

func (s Slot) String() string {
	switch s {
	case SlotPosition:
		return "position"
	case SlotColor:
		return "color"
	case SlotTexCoord:
		return "texcoord"
	case SlotIndex:
		return "index"
	default:
		return "unknown"
	}
}

// IndexWidth is the element width, in bits, that the index data would need in a fixed-function index buffer.
// Index data is always stored and uploaded as 32-bit so shaders can read it from storage bindings.
type IndexWidth int

const (
	IndexWidth16 IndexWidth = 16
	IndexWidth32 IndexWidth = 32
)

// MaxIndex16Count is the largest index count that still permits 16-bit indices.
const MaxIndex16Count = 65536

// indexWidthFor returns the narrowest permitted index width for indexCount indices.
func indexWidthFor(indexCount int) IndexWidth {
	if indexCount > MaxIndex16Count {
		return IndexWidth32
	}
	return IndexWidth16
}

package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
)

// Layout is the merged binding set of the shaders of one render pipeline.
type Layout struct {
	bindings []Binding
	byName   map[string]int
}

// Merge combines the bindings of several stages. A binding declared by more than one stage must agree on
// name and type; its visibility is the union of the declaring stages and its size the largest declared.
//
// Parameters:
//   - shaders: the pipeline's shaders
//
// Returns:
//   - Layout: the merged layout
//   - error: ErrUnsupportedLayout if two stages disagree about a binding slot or reuse a name for two slots
func Merge(shaders ...Shader) (Layout, error) {
	type slot struct{ group, binding uint32 }
	bySlot := make(map[slot]int)
	l := Layout{byName: make(map[string]int)}

	for _, s := range shaders {
		for _, b := range s.Bindings() {
			key := slot{b.Group, b.Binding}
			i, ok := bySlot[key]
			if !ok {
				if j, taken := l.byName[b.Name]; taken {
					other := l.bindings[j]
					return Layout{}, fmt.Errorf("%q declared at @group(%d) @binding(%d) and @group(%d) @binding(%d): %w",
						b.Name, other.Group, other.Binding, b.Group, b.Binding, common.ErrUnsupportedLayout)
				}
				bySlot[key] = len(l.bindings)
				l.byName[b.Name] = len(l.bindings)
				l.bindings = append(l.bindings, b)
				continue
			}
			existing := &l.bindings[i]
			if existing.Name != b.Name || existing.Type != b.Type {
				return Layout{}, fmt.Errorf("@group(%d) @binding(%d) is %s %q in one stage and %s %q in %s: %w",
					b.Group, b.Binding, existing.Type, existing.Name, b.Type, b.Name, s.Label(), common.ErrUnsupportedLayout)
			}
			existing.Visibility |= b.Visibility
			existing.Size = max(existing.Size, b.Size)
		}
	}

	sortBindings(l.bindings)
	for i, b := range l.bindings {
		l.byName[b.Name] = i
	}
	return l, nil
}

// Bindings returns every binding ordered by group then binding.
func (l Layout) Bindings() []Binding {
	return l.bindings
}

// Binding looks a binding up by name.
//
// Parameters:
//   - name: the WGSL variable name
//
// Returns:
//   - Binding: the binding
//   - error: ErrUnknownBinding if no stage declares the name
func (l Layout) Binding(name string) (Binding, error) {
	i, ok := l.byName[name]
	if !ok {
		return Binding{}, fmt.Errorf("%q: %w", name, common.ErrUnknownBinding)
	}
	return l.bindings[i], nil
}

// Group returns the bindings of one bind group.
//
// Parameters:
//   - group: the group index
//
// Returns:
//   - []Binding: the group's bindings ordered by binding index
func (l Layout) Group(group uint32) []Binding {
	var out []Binding
	for _, b := range l.bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

// Groups returns the sorted distinct group indices.
func (l Layout) Groups() []uint32 {
	var out []uint32
	for _, b := range l.bindings {
		if len(out) == 0 || out[len(out)-1] != b.Group {
			out = append(out, b.Group)
		}
	}
	return out
}

// BindGroupLayouts converts the layout into the per-group layouts of a pipeline descriptor.
//
// Returns:
//   - []gpu.BindGroupLayout: one layout per group, ordered by group index
func (l Layout) BindGroupLayouts() []gpu.BindGroupLayout {
	var out []gpu.BindGroupLayout
	for _, group := range l.Groups() {
		bgl := gpu.BindGroupLayout{Group: group}
		for _, b := range l.Group(group) {
			bgl.Entries = append(bgl.Entries, gpu.LayoutEntry{
				Binding:        b.Binding,
				Type:           b.Type,
				Visibility:     b.Visibility,
				MinBindingSize: b.Size,
			})
		}
		out = append(out, bgl)
	}
	return out
}

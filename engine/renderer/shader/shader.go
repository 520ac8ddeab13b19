// Package shader compiles WGSL sources through naga and reflects their resource bindings, so materials can
// look bindings up by name and the renderer can derive bind group layouts without hand-written tables.
package shader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Binding is one reflected resource binding of a shader.
type Binding struct {
	Name    string
	Group   uint32
	Binding uint32
	Type    gpu.BindingType

	// Size is the byte size of a buffer binding's type, or of one element for a runtime-sized array.
	// It is 0 for textures and samplers.
	Size uint64

	// Visibility holds every stage the binding is declared in.
	Visibility gpu.ShaderStage
}

// shader is the implementation of the Shader interface.
type shader struct {
	label      string
	source     string
	stage      gpu.ShaderStage
	entryPoint string
	bindings   []Binding
	byName     map[string]int
}

// Shader is a validated WGSL module for one programmable stage.
type Shader interface {
	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Source returns the WGSL source after include expansion.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// Stage returns the programmable stage of the shader's entry point.
	//
	// Returns:
	//   - gpu.ShaderStage: ShaderStageVertex or ShaderStageFragment
	Stage() gpu.ShaderStage

	// EntryPoint returns the name of the entry point for Stage.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// Bindings returns every resource binding, ordered by group then binding.
	//
	// Returns:
	//   - []Binding: the bindings
	Bindings() []Binding

	// Binding looks a resource binding up by its WGSL variable name.
	//
	// Parameters:
	//   - name: the variable name
	//
	// Returns:
	//   - Binding: the binding
	//   - error: ErrUnknownBinding if the shader declares no such variable
	Binding(name string) (Binding, error)

	// Descriptor returns the stage descriptor used to build a render pipeline.
	//
	// Returns:
	//   - gpu.ShaderStageDescriptor: the descriptor
	Descriptor() gpu.ShaderStageDescriptor
}

var _ Shader = &shader{}

// NewShader expands, parses, validates and reflects a WGSL source.
//
// Parameters:
//   - label: a debug label used in errors and GPU object labels
//   - stage: the programmable stage to take the entry point for
//   - source: the WGSL source, which may contain include directives
//   - options: builder options
//
// Returns:
//   - Shader: the compiled shader
//   - error: an error if the source does not expand, parse, lower or validate, or declares no entry point
//     for stage
func NewShader(label string, stage gpu.ShaderStage, source string, options ...ShaderBuilderOption) (Shader, error) {
	cfg := shaderConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	if cfg.preProcessor != nil {
		expanded, err := cfg.preProcessor.Process(source)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", label, err)
		}
		source = expanded
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}
	problems, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}
	if len(problems) > 0 {
		errs := make([]error, 0, len(problems))
		for _, p := range problems {
			errs = append(errs, p)
		}
		return nil, fmt.Errorf("shader %s: validation failed: %w", label, errors.Join(errs...))
	}

	s := &shader{
		label:  label,
		source: source,
		stage:  stage,
		byName: make(map[string]int),
	}
	if s.entryPoint, err = findEntryPoint(module, stage, cfg.entryPoint); err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}
	if s.bindings, err = reflectBindings(module, stage); err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}
	for i, b := range s.bindings {
		s.byName[b.Name] = i
	}

	common.Logger().Debug("shader compiled", "label", label, "entry", s.entryPoint, "bindings", len(s.bindings))
	return s, nil
}

func (s *shader) Label() string {
	return s.label
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Stage() gpu.ShaderStage {
	return s.stage
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) Binding(name string) (Binding, error) {
	i, ok := s.byName[name]
	if !ok {
		return Binding{}, fmt.Errorf("shader %s: %q: %w", s.label, name, common.ErrUnknownBinding)
	}
	return s.bindings[i], nil
}

func (s *shader) Descriptor() gpu.ShaderStageDescriptor {
	return gpu.ShaderStageDescriptor{
		Label:      s.label,
		Source:     s.source,
		EntryPoint: s.entryPoint,
	}
}

// findEntryPoint returns the named entry point, or the only entry point of the stage when name is empty.
func findEntryPoint(module *ir.Module, stage gpu.ShaderStage, name string) (string, error) {
	want := ir.StageVertex
	if stage == gpu.ShaderStageFragment {
		want = ir.StageFragment
	}

	var found []string
	for _, ep := range module.EntryPoints {
		if ep.Stage != want {
			continue
		}
		if name != "" && ep.Name == name {
			return ep.Name, nil
		}
		found = append(found, ep.Name)
	}
	switch {
	case name != "":
		return "", fmt.Errorf("no %s entry point named %q", stageName(stage), name)
	case len(found) == 0:
		return "", fmt.Errorf("no %s entry point", stageName(stage))
	case len(found) > 1:
		return "", fmt.Errorf("%d %s entry points %v, select one with WithEntryPoint", len(found), stageName(stage), found)
	}
	return found[0], nil
}

// reflectBindings maps every bound global variable to a Binding.
func reflectBindings(module *ir.Module, stage gpu.ShaderStage) ([]Binding, error) {
	var out []Binding
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		b := Binding{
			Name:       gv.Name,
			Group:      gv.Binding.Group,
			Binding:    gv.Binding.Binding,
			Visibility: stage,
		}
		switch gv.Space {
		case ir.SpaceUniform:
			b.Type = gpu.BindingTypeUniform
			b.Size = uint64(ir.TypeSize(module, gv.Type))
		case ir.SpaceStorage:
			b.Type = gpu.BindingTypeStorage
			if gv.Access == ir.StorageRead {
				b.Type = gpu.BindingTypeReadOnlyStorage
			}
			b.Size = uint64(ir.TypeSize(module, gv.Type))
		case ir.SpaceHandle:
			switch module.Types[gv.Type].Inner.(type) {
			case ir.ImageType:
				b.Type = gpu.BindingTypeTexture
			case ir.SamplerType:
				b.Type = gpu.BindingTypeSampler
			default:
				return nil, fmt.Errorf("binding %q: %w", gv.Name, common.ErrUnsupportedLayout)
			}
		default:
			return nil, fmt.Errorf("binding %q in address space %d: %w", gv.Name, gv.Space, common.ErrUnsupportedLayout)
		}
		out = append(out, b)
	}
	sortBindings(out)
	return out, nil
}

func sortBindings(b []Binding) {
	sort.Slice(b, func(i, j int) bool {
		if b[i].Group != b[j].Group {
			return b[i].Group < b[j].Group
		}
		return b[i].Binding < b[j].Binding
	})
}

func stageName(stage gpu.ShaderStage) string {
	if stage == gpu.ShaderStageFragment {
		return "fragment"
	}
	return "vertex"
}

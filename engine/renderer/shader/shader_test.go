package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
)

const testVertex = `
struct Camera {
    viewProj: mat4x4<f32>,
    viewport: vec4<f32>,
}

@group(0) @binding(0) var<uniform> camera: Camera;
@group(2) @binding(0) var<uniform> transform: mat4x4<f32>;
@group(2) @binding(1) var<storage, read> indices: array<u32>;
@group(2) @binding(2) var<storage, read> positions: array<f32>;

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    let index = indices[vi];
    let p = vec3<f32>(positions[index * 3u], positions[index * 3u + 1u], positions[index * 3u + 2u]);
    return camera.viewProj * transform * vec4<f32>(p, 1.0);
}
`

const testFragment = `
@group(1) @binding(0) var<uniform> color: vec4<f32>;
@group(1) @binding(1) var colorTexture: texture_2d<f32>;
@group(1) @binding(2) var colorSampler: sampler;

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return color * textureSample(colorTexture, colorSampler, pos.xy);
}
`

func mustShader(t *testing.T, label string, stage gpu.ShaderStage, src string, options ...ShaderBuilderOption) Shader {
	t.Helper()
	s, err := NewShader(label, stage, src, options...)
	if err != nil {
		t.Fatalf("NewShader(%s) error = %v", label, err)
	}
	return s
}

func TestReflectBindings(t *testing.T) {
	vs := mustShader(t, "vs", gpu.ShaderStageVertex, testVertex)
	fs := mustShader(t, "fs", gpu.ShaderStageFragment, testFragment)

	if vs.EntryPoint() != "vs_main" || fs.EntryPoint() != "fs_main" {
		t.Errorf("EntryPoint() = %q, %q, want vs_main, fs_main", vs.EntryPoint(), fs.EntryPoint())
	}

	tests := []struct {
		shader  Shader
		name    string
		group   uint32
		binding uint32
		typ     gpu.BindingType
		size    uint64
	}{
		{vs, "camera", 0, 0, gpu.BindingTypeUniform, 80},
		{vs, "transform", 2, 0, gpu.BindingTypeUniform, 64},
		{vs, "indices", 2, 1, gpu.BindingTypeReadOnlyStorage, 4},
		{vs, "positions", 2, 2, gpu.BindingTypeReadOnlyStorage, 4},
		{fs, "color", 1, 0, gpu.BindingTypeUniform, 16},
		{fs, "colorTexture", 1, 1, gpu.BindingTypeTexture, 0},
		{fs, "colorSampler", 1, 2, gpu.BindingTypeSampler, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.shader.Binding(tt.name)
			if err != nil {
				t.Fatalf("Binding(%q) error = %v", tt.name, err)
			}
			if b.Group != tt.group || b.Binding != tt.binding {
				t.Errorf("slot = @group(%d) @binding(%d), want @group(%d) @binding(%d)", b.Group, b.Binding, tt.group, tt.binding)
			}
			if b.Type != tt.typ {
				t.Errorf("Type = %v, want %v", b.Type, tt.typ)
			}
			if b.Size != tt.size {
				t.Errorf("Size = %d, want %d", b.Size, tt.size)
			}
		})
	}

	if _, err := fs.Binding("missing"); !errors.Is(err, common.ErrUnknownBinding) {
		t.Errorf("Binding(missing) error = %v, want ErrUnknownBinding", err)
	}

	bindings := vs.Bindings()
	for i := 1; i < len(bindings); i++ {
		prev, cur := bindings[i-1], bindings[i]
		if prev.Group > cur.Group || (prev.Group == cur.Group && prev.Binding >= cur.Binding) {
			t.Errorf("Bindings() not ordered at %d: %+v before %+v", i, prev, cur)
		}
	}
}

func TestNewShaderErrors(t *testing.T) {
	twoVertex := `
@vertex fn a() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@vertex fn b() -> @builtin(position) vec4<f32> { return vec4<f32>(1.0); }
`
	tests := []struct {
		name    string
		stage   gpu.ShaderStage
		source  string
		options []ShaderBuilderOption
		wantErr bool
	}{
		{name: "syntax error", stage: gpu.ShaderStageVertex, source: "fn (", wantErr: true},
		{name: "no fragment entry", stage: gpu.ShaderStageFragment, source: testVertex, wantErr: true},
		{name: "ambiguous entry", stage: gpu.ShaderStageVertex, source: twoVertex, wantErr: true},
		{name: "selected entry", stage: gpu.ShaderStageVertex, source: twoVertex, options: []ShaderBuilderOption{WithEntryPoint("b")}},
		{name: "missing named entry", stage: gpu.ShaderStageVertex, source: twoVertex, options: []ShaderBuilderOption{WithEntryPoint("c")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShader(tt.name, tt.stage, tt.source, tt.options...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewShader() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	vs := mustShader(t, "vs", gpu.ShaderStageVertex, testVertex)
	fs := mustShader(t, "fs", gpu.ShaderStageFragment, testFragment)

	layout, err := Merge(vs, fs)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got := layout.Groups(); len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("Groups() = %v, want [0 1 2]", got)
	}
	bgls := layout.BindGroupLayouts()
	if len(bgls) != 3 || len(bgls[2].Entries) != 3 {
		t.Fatalf("BindGroupLayouts() = %+v", bgls)
	}
	if bgls[1].Entries[0].Visibility != gpu.ShaderStageFragment {
		t.Errorf("color visibility = %v, want fragment", bgls[1].Entries[0].Visibility)
	}

	shared := `
@group(1) @binding(0) var<uniform> color: vec4<f32>;
@fragment fn main() -> @location(0) vec4<f32> { return color; }
`
	sharedVS := `
@group(1) @binding(0) var<uniform> color: vec4<f32>;
@vertex fn main() -> @builtin(position) vec4<f32> { return color; }
`
	merged, err := Merge(mustShader(t, "svs", gpu.ShaderStageVertex, sharedVS), mustShader(t, "sfs", gpu.ShaderStageFragment, shared))
	if err != nil {
		t.Fatalf("Merge(shared) error = %v", err)
	}
	b, _ := merged.Binding("color")
	if b.Visibility != gpu.ShaderStageVertex|gpu.ShaderStageFragment {
		t.Errorf("shared visibility = %v, want vertex|fragment", b.Visibility)
	}

	conflict := `
@group(1) @binding(0) var<uniform> tint: vec4<f32>;
@fragment fn main() -> @location(0) vec4<f32> { return tint; }
`
	_, err = Merge(mustShader(t, "svs", gpu.ShaderStageVertex, sharedVS), mustShader(t, "cfs", gpu.ShaderStageFragment, conflict))
	if !errors.Is(err, common.ErrUnsupportedLayout) {
		t.Errorf("Merge(conflict) error = %v, want ErrUnsupportedLayout", err)
	}
}

func TestPreProcessor(t *testing.T) {
	p := NewPreProcessor(map[string]string{
		"camera": "struct Camera { viewProj: mat4x4<f32>, viewport: vec4<f32>, }",
		"scene":  "// @keel:include camera\n@group(0) @binding(0) var<uniform> camera: Camera;",
	})

	src := "// @keel:include scene\n// @keel:include camera\n@vertex fn main() -> @builtin(position) vec4<f32> { return camera.viewport; }"
	out, err := p.Process(src)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if n := strings.Count(out, "struct Camera"); n != 1 {
		t.Errorf("struct Camera emitted %d times, want 1", n)
	}

	s := mustShader(t, "included", gpu.ShaderStageVertex, src, WithPreProcessor(p))
	if _, err := s.Binding("camera"); err != nil {
		t.Errorf("Binding(camera) error = %v", err)
	}

	if _, err := p.Process("// @keel:include nope"); err == nil {
		t.Error("Process(unknown) error = nil, want error")
	}

	p.Register("a", "// @keel:include b")
	p.Register("b", "// @keel:include a")
	if _, err := p.Process("// @keel:include a"); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("Process(cycle) error = %v, want cycle error", err)
	}
}

package material

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/buffer_writer"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/texture"
	"github.com/go-gl/mathgl/mgl32"
)

func mustBasic(t *testing.T, options ...MaterialBuilderOption) *BasicMaterial {
	t.Helper()
	m, err := NewBasicMaterial(options...)
	if err != nil {
		t.Fatalf("NewBasicMaterial() error = %v", err)
	}
	return m
}

func TestRenderingMode(t *testing.T) {
	tests := []struct {
		mode     RenderingMode
		topology gpu.PrimitiveTopology
		vertices uint32
	}{
		{RenderingModeTriangleList, gpu.PrimitiveTopologyTriangleList, 6},
		{RenderingModeLineList, gpu.PrimitiveTopologyLineList, 6},
		{RenderingModePointList, gpu.PrimitiveTopologyTriangleList, 36},
		{RenderingModeTriangleLines, gpu.PrimitiveTopologyLineList, 12},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := tt.mode.Topology(); got != tt.topology {
				t.Errorf("Topology() = %v, want %v", got, tt.topology)
			}
			if got := tt.mode.VertexCount(6); got != tt.vertices {
				t.Errorf("VertexCount(6) = %d, want %d", got, tt.vertices)
			}
		})
	}
}

func TestBuiltinMaterialsCompile(t *testing.T) {
	for _, mode := range []RenderingMode{RenderingModeTriangleList, RenderingModeLineList, RenderingModePointList, RenderingModeTriangleLines} {
		m := mustBasic(t, WithRenderingMode(mode))
		for _, name := range []string{"camera", "transform", "indices", "positions", "colors", "texcoords", "color", "colorTexture", "colorSampler"} {
			if _, err := m.Layout().Binding(name); err != nil {
				t.Errorf("%s: Layout().Binding(%q) error = %v", mode, name, err)
			}
		}
		_, err := m.Layout().Binding("pointSize")
		if hasPointSize := err == nil; hasPointSize != (mode == RenderingModePointList) {
			t.Errorf("%s: pointSize declared = %v", mode, hasPointSize)
		}
	}

	inv, err := NewInvertColors()
	if err != nil {
		t.Fatalf("NewInvertColors() error = %v", err)
	}
	col, err := NewColorimetry(0.5)
	if err != nil {
		t.Fatalf("NewColorimetry() error = %v", err)
	}
	wave, err := NewSinWave(0.01, 30)
	if err != nil {
		t.Fatalf("NewSinWave() error = %v", err)
	}
	for _, m := range []Material{inv, col, wave} {
		if m.Stage() != StagePostProcess {
			t.Errorf("%s: Stage() = %v, want StagePostProcess", m.Label(), m.Stage())
		}
		if test, write := m.Depth(); test || write {
			t.Errorf("%s: Depth() = %v, %v, want false, false", m.Label(), test, write)
		}
		for _, name := range []string{"sourceTexture", "sourceSampler"} {
			if _, err := m.Layout().Binding(name); err != nil {
				t.Errorf("%s: Layout().Binding(%q) error = %v", m.Label(), name, err)
			}
		}
	}
	if u, ok := col.Uniform("saturation"); !ok || u.Values()[0] != 0.5 {
		t.Errorf("saturation uniform = %v, %v, want 0.5", u, ok)
	}
	if u, ok := wave.Uniform("phase"); !ok || u.Values()[0] != 0 {
		t.Errorf("phase uniform = %v, %v, want 0", u, ok)
	}
}

func TestBasicMaterialDefaults(t *testing.T) {
	m := mustBasic(t)
	u, ok := m.Uniform("color")
	if !ok {
		t.Fatal("color uniform not set")
	}
	var got common.Color
	copy(got[:], u.Values())
	if got != common.ColorWhite {
		t.Errorf("color = %v, want white", got)
	}
	if u.Kind() != buffer_writer.FieldColor || u.ByteSize() != 16 {
		t.Errorf("color kind = %v size %d, want color 16", u.Kind(), u.ByteSize())
	}
	if _, ok := m.Uniform("pointSize"); ok {
		t.Error("pointSize set on a triangle material")
	}
	if err := m.SetPointSize(4); err == nil {
		t.Error("SetPointSize() on a triangle material error = nil")
	}

	points := mustBasic(t, WithRenderingMode(RenderingModePointList))
	if u, ok := points.Uniform("pointSize"); !ok || u.Values()[0] != DefaultPointSize {
		t.Errorf("pointSize = %v, %v, want %d", u, ok, DefaultPointSize)
	}
}

func TestUniformValidation(t *testing.T) {
	m := mustBasic(t)
	tests := []struct {
		name string
		set  func() error
		want error
	}{
		{"unknown name", func() error { return m.SetScalar("missing", 1) }, common.ErrUnknownBinding},
		{"wrong size", func() error { return m.SetScalar("color", 1) }, common.ErrSizeMismatch},
		{"mat4 into vec4", func() error { return m.SetMat4("color", mgl32.Ident4()) }, common.ErrSizeMismatch},
		{"storage binding", func() error { return m.SetScalar("positions", 1) }, common.ErrUnsupportedLayout},
		{"texture as uniform", func() error { return m.SetVec4("colorTexture", mgl32.Vec4{}) }, common.ErrUnsupportedLayout},
		{"uniform as texture", func() error { return m.SetTexture("color", nil) }, common.ErrUnsupportedLayout},
		{"vec4 into color", func() error { return m.SetVec4("color", mgl32.Vec4{1, 0, 0, 1}) }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set()
			if tt.want == nil {
				if err != nil {
					t.Errorf("error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVersions(t *testing.T) {
	m := mustBasic(t)
	u, _ := m.Uniform("color")
	before := u.Version()
	if err := m.SetDiffuseColor(common.NewColor(1, 0, 0, 1)); err != nil {
		t.Fatalf("SetDiffuseColor() error = %v", err)
	}
	if u.Version() != before+1 {
		t.Errorf("uniform version = %d, want %d", u.Version(), before+1)
	}
	if same, _ := m.Uniform("color"); same != u {
		t.Error("setting a uniform replaced its value object")
	}

	state := m.Version()
	m.SetCullMode(gpu.CullModeFront)
	m.SetFrontFace(gpu.FrontFaceCW)
	m.SetBlend(nil)
	m.SetDepth(true, false)
	m.IncrementVersion()
	if m.Version() != state+5 {
		t.Errorf("Version() = %d, want %d", m.Version(), state+5)
	}
	if m.Blend() != nil {
		t.Error("Blend() != nil after SetBlend(nil)")
	}
	if u.Version() != before+1 {
		t.Errorf("pipeline-state changes moved the uniform version to %d", u.Version())
	}
}

func TestTextures(t *testing.T) {
	m := mustBasic(t)
	tex, _ := texture.NewTexture(1, 1)
	if err := m.SetColorTexture(tex); err != nil {
		t.Fatalf("SetColorTexture() error = %v", err)
	}
	if got, ok := m.Texture("colorTexture"); !ok || got != tex {
		t.Errorf("Texture() = %v, %v, want the set texture", got, ok)
	}
	m.SetColorTexture(nil)
	if _, ok := m.Texture("colorTexture"); ok {
		t.Error("Texture() still set after clearing")
	}
}

func TestDestroy(t *testing.T) {
	m := mustBasic(t)
	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := m.SetDiffuseColor(common.ColorBlack); !errors.Is(err, common.ErrAlreadyDestroyed) {
		t.Errorf("SetDiffuseColor() after Destroy error = %v, want ErrAlreadyDestroyed", err)
	}
	if err := m.Destroy(); !errors.Is(err, common.ErrAlreadyDestroyed) {
		t.Errorf("second Destroy() error = %v, want ErrAlreadyDestroyed", err)
	}
}

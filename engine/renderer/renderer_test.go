package renderer

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/camera"
	"github.com/Carmen-Shannon/keel/engine/geometry"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/keel/engine/renderer/material"
	"github.com/Carmen-Shannon/keel/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) (*gputest.Device, Renderer) {
	t.Helper()
	dev := gputest.NewDevice(320, 240)
	r, err := NewRenderer(dev, options...)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return dev, r
}

func quadScene(t *testing.T) (scene.Node, geometry.Geometry, *material.BasicMaterial) {
	t.Helper()
	g, err := geometry.Quad(geometry.NewAllocator(), mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1})
	if err != nil {
		t.Fatalf("Quad() error = %v", err)
	}
	m, err := material.NewBasicMaterial(material.WithLabel("quad"))
	if err != nil {
		t.Fatalf("NewBasicMaterial() error = %v", err)
	}
	root := scene.NewNode(scene.WithLabel("root"))
	if err := root.Add(scene.NewMesh(g, m)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return root, g, m
}

func mustStage(t *testing.T, build func() (material.Material, error)) material.Material {
	t.Helper()
	m, err := build()
	if err != nil {
		t.Fatalf("stage constructor error = %v", err)
	}
	return m
}

func colorimetry(saturation float32) func() (material.Material, error) {
	return func() (material.Material, error) {
		return material.NewColorimetry(saturation)
	}
}

func sinWave(amplitude, frequency float32) func() (material.Material, error) {
	return func() (material.Material, error) {
		return material.NewSinWave(amplitude, frequency)
	}
}

func TestRenderQuad(t *testing.T) {
	dev, r := newTestRenderer(t, WithClearColor(common.Color{0.1, 0.2, 0.3, 1}))
	root, _, _ := quadScene(t)

	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if len(dev.Passes) != 1 {
		t.Fatalf("passes = %d, want 1", len(dev.Passes))
	}
	main := dev.Passes[0]
	if main.Desc.Target != dev.SurfaceTexture || !main.Desc.DepthStencil || !main.Ended {
		t.Errorf("main pass = %+v, want an ended depth pass on the surface", main.Desc)
	}
	if main.Desc.ClearColor != (common.Color{0.1, 0.2, 0.3, 1}) {
		t.Errorf("ClearColor = %v, want the configured color", main.Desc.ClearColor)
	}
	if len(main.Draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(main.Draws))
	}
	draw := main.Draws[0]
	if draw.VertexCount != 6 || draw.InstanceCount != 1 {
		t.Errorf("Draw(%d, %d), want Draw(6, 1)", draw.VertexCount, draw.InstanceCount)
	}
	if len(draw.BindGroups) != 3 {
		t.Errorf("bind groups = %d, want 3", len(draw.BindGroups))
	}
	if _, ok := dev.Pipelines[draw.Pipeline]; !ok {
		t.Errorf("draw uses unknown pipeline %d", draw.Pipeline)
	}

	stats := r.Stats()
	want := FrameStats{Drawables: 1, DrawCalls: 1, StagePasses: 0, Uploads: stats.Uploads, Pipelines: 1, BindGroups: 3}
	if stats != want || stats.Uploads == 0 {
		t.Errorf("Stats() = %+v, want %+v with uploads", stats, want)
	}
	if dev.Frames != 1 || dev.Submits != 1 || dev.Presents != 1 {
		t.Errorf("frames, submits, presents = %d, %d, %d, want 1, 1, 1", dev.Frames, dev.Submits, dev.Presents)
	}
}

func TestRenderUploadsOnlyChanges(t *testing.T) {
	dev, r := newTestRenderer(t)
	root, g, m := quadScene(t)

	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	writes := dev.TotalBufferWrites()
	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := r.Stats().Uploads; got != 0 {
		t.Errorf("Stats().Uploads for an unchanged frame = %d, want 0", got)
	}
	if dev.TotalBufferWrites() != writes {
		t.Errorf("TotalBufferWrites() = %d, want %d", dev.TotalBufferWrites(), writes)
	}
	if len(dev.Pipelines) != 1 {
		t.Errorf("pipelines = %d, want 1", len(dev.Pipelines))
	}

	if err := g.SetPositions(make([]float32, 12)); err != nil {
		t.Fatalf("SetPositions() error = %v", err)
	}
	if err := m.SetDiffuseColor(common.Color{1, 0, 0, 1}); err != nil {
		t.Fatalf("SetDiffuseColor() error = %v", err)
	}
	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := r.Stats().Uploads; got != 2 {
		t.Errorf("Stats().Uploads after two changes = %d, want 2", got)
	}
}

func TestRenderSkipsEmptyGeometry(t *testing.T) {
	dev, r := newTestRenderer(t)
	root, _, m := quadScene(t)
	empty, err := geometry.NewAllocator().New(0, 0, geometry.WithLabel("empty"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := root.Add(scene.NewMesh(empty, m)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if dev.Presents != 1 {
		t.Errorf("Presents = %d, want 1", dev.Presents)
	}
	if got := dev.DrawCount(); got != 1 {
		t.Errorf("DrawCount() = %d, want 1", got)
	}
	if stats := r.Stats(); stats.Drawables != 2 || stats.DrawCalls != 1 {
		t.Errorf("Stats() = %+v, want 2 drawables and 1 draw call", stats)
	}
}

func TestRenderDestroyedGeometryError(t *testing.T) {
	_, r := newTestRenderer(t)
	_, g, m := quadScene(t)
	if err := g.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	err := r.RenderDrawables([]scene.Drawable{{Geometry: g, Material: m}}, nil)
	if !errors.Is(err, common.ErrAlreadyDestroyed) {
		t.Fatalf("RenderDrawables() error = %v, want %v", err, common.ErrAlreadyDestroyed)
	}
	if n := strings.Count(err.Error(), "geometry"); n != 1 {
		t.Errorf("RenderDrawables() error = %q, want the geometry named once", err)
	}
}

func TestRenderEmptyScene(t *testing.T) {
	stage := mustStage(t, material.NewInvertColors)
	dev, r := newTestRenderer(t, WithRenderStages(stage))

	if err := r.Render(nil, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(dev.Passes) != 2 {
		t.Fatalf("passes = %d, want main pass and one stage pass", len(dev.Passes))
	}
	if len(dev.Passes[0].Draws) != 0 {
		t.Errorf("main pass draws = %d, want 0", len(dev.Passes[0].Draws))
	}
	if dev.Passes[0].Desc.Target == dev.SurfaceTexture {
		t.Error("main pass renders to the surface while a stage is active")
	}
	if dev.Passes[1].Desc.Target != dev.SurfaceTexture || len(dev.Passes[1].Draws) != 1 {
		t.Errorf("stage pass = %+v, want one draw presented to the surface", dev.Passes[1])
	}
	if got := dev.Passes[1].Draws[0].VertexCount; got != 3 {
		t.Errorf("stage draw vertices = %d, want 3", got)
	}
	if s := r.Stats(); s.Drawables != 0 || s.StagePasses != 1 {
		t.Errorf("Stats() = %+v, want 0 drawables and 1 stage pass", s)
	}
}

func TestRenderStageChain(t *testing.T) {
	a := mustStage(t, material.NewInvertColors)
	b := mustStage(t, colorimetry(0.5))
	c := mustStage(t, sinWave(0.1, 4))
	dev, r := newTestRenderer(t)
	root, _, _ := quadScene(t)

	if err := r.SetRenderStages(a, b); err != nil {
		t.Fatalf("SetRenderStages() error = %v", err)
	}
	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(dev.Passes) != 3 {
		t.Fatalf("passes = %d, want 3", len(dev.Passes))
	}

	main, first, second := dev.Passes[0], dev.Passes[1], dev.Passes[2]
	if first.Desc.Target == main.Desc.Target || first.Desc.Target == dev.SurfaceTexture {
		t.Errorf("first stage target = %d, want the second offscreen target", first.Desc.Target)
	}
	if second.Desc.Target != dev.SurfaceTexture {
		t.Errorf("last stage target = %d, want the surface", second.Desc.Target)
	}
	sourceOf := func(p *gputest.Pass) gpu.TextureID {
		bg := dev.BindGroups[p.Draws[0].BindGroups[0]]
		return bg.Entries[0].Texture
	}
	if sourceOf(first) != main.Desc.Target || sourceOf(second) != first.Desc.Target {
		t.Error("stages do not read the previous pass output")
	}

	stagePipelines := []gpu.PipelineID{first.Draws[0].Pipeline, second.Draws[0].Pipeline}
	stageGroups := []gpu.BindGroupID{first.Draws[0].BindGroups[0], second.Draws[0].BindGroups[0]}
	var saturation gpu.BufferID
	for id, buf := range dev.Buffers {
		if strings.HasSuffix(buf.Desc.Label, "uniform-saturation") {
			saturation = id
		}
	}
	if saturation == 0 {
		t.Fatal("no saturation uniform buffer was created")
	}

	if err := r.SetRenderStages(c); err != nil {
		t.Fatalf("SetRenderStages() error = %v", err)
	}
	if got := r.Stages().Stages(); len(got) != 1 || got[0] != c {
		t.Errorf("Stages() = %v, want only the sin wave stage", got)
	}
	for _, id := range stagePipelines {
		if !slices.Contains(dev.ReleasedPipelines, id) {
			t.Errorf("pipeline %d of a removed stage was not released", id)
		}
	}
	for _, id := range stageGroups {
		if !slices.Contains(dev.ReleasedBindGroups, id) {
			t.Errorf("bind group %d of a removed stage was not released", id)
		}
	}
	if !slices.Contains(dev.ReleasedBuffers, saturation) {
		t.Error("uniform buffer of a removed stage was not released")
	}

	passes := len(dev.Passes)
	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := len(dev.Passes) - passes; got != 2 {
		t.Errorf("passes after SetRenderStages(c) = %d, want 2", got)
	}
	if r.Stats().StagePasses != 1 {
		t.Errorf("Stats().StagePasses = %d, want 1", r.Stats().StagePasses)
	}
}

func TestSetRenderStagesErrors(t *testing.T) {
	basic, err := material.NewBasicMaterial()
	if err != nil {
		t.Fatalf("NewBasicMaterial() error = %v", err)
	}
	destroyed := mustStage(t, material.NewInvertColors)
	if err := destroyed.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	kept := mustStage(t, material.NewInvertColors)

	tests := []struct {
		name   string
		stages []material.Material
		want   error
	}{
		{"scene material", []material.Material{kept, basic}, common.ErrUnsupportedLayout},
		{"destroyed stage", []material.Material{destroyed}, common.ErrAlreadyDestroyed},
		{"nil stage", []material.Material{nil}, common.ErrUnsupportedLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r := newTestRenderer(t, WithRenderStages(kept))
			if err := r.SetRenderStages(tt.stages...); !errors.Is(err, tt.want) {
				t.Fatalf("SetRenderStages() error = %v, want %v", err, tt.want)
			}
			if got := r.Stages().Stages(); len(got) != 1 || got[0] != kept {
				t.Errorf("Stages() = %v, want the chain unchanged", got)
			}
		})
	}

	if _, err := NewRenderer(gputest.NewDevice(8, 8), WithRenderStages(basic)); !errors.Is(err, common.ErrUnsupportedLayout) {
		t.Errorf("NewRenderer() error = %v, want ErrUnsupportedLayout", err)
	}
}

func TestRenderSceneMaterialAsStageRejected(t *testing.T) {
	dev, r := newTestRenderer(t)
	g, err := geometry.Quad(geometry.NewAllocator(), mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1})
	if err != nil {
		t.Fatalf("Quad() error = %v", err)
	}
	stage := mustStage(t, material.NewInvertColors)

	err = r.RenderDrawables([]scene.Drawable{{Geometry: g, Material: stage}}, nil)
	if !errors.Is(err, common.ErrUnsupportedLayout) {
		t.Fatalf("RenderDrawables() error = %v, want ErrUnsupportedLayout", err)
	}
	if dev.Frames != 0 {
		t.Errorf("Frames = %d, want no frame begun", dev.Frames)
	}
}

func TestRenderSubmitFailure(t *testing.T) {
	dev, r := newTestRenderer(t)
	root, _, m := quadScene(t)

	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := m.SetDiffuseColor(common.Color{0, 1, 0, 1}); err != nil {
		t.Fatalf("SetDiffuseColor() error = %v", err)
	}
	dev.FailSubmit = errors.New("device removed")
	if err := r.Render(root, nil); !errors.Is(err, common.ErrDeviceLost) {
		t.Fatalf("Render() error = %v, want ErrDeviceLost", err)
	}
	if dev.Presents != 1 {
		t.Errorf("Presents = %d, want the failed frame not presented", dev.Presents)
	}
	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() after failure error = %v", err)
	}
	if dev.Submits != 2 || dev.Presents != 2 {
		t.Errorf("submits, presents = %d, %d, want 2, 2", dev.Submits, dev.Presents)
	}
}

func TestRenderFrustumCulling(t *testing.T) {
	cam := camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, 5}))
	dev, r := newTestRenderer(t, WithCamera(cam), WithFrustumCulling(true))
	root, _, _ := quadScene(t)
	far := root.Children()[0]

	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if dev.DrawCount() != 1 {
		t.Fatalf("DrawCount() = %d, want 1", dev.DrawCount())
	}

	far.SetPosition(mgl32.Vec3{100, 0, 0})
	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if s := r.Stats(); s.Drawables != 0 || s.DrawCalls != 0 {
		t.Errorf("Stats() = %+v, want the mesh culled", s)
	}

	r.SetFrustumCulling(false)
	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if s := r.Stats(); s.DrawCalls != 1 {
		t.Errorf("Stats().DrawCalls without culling = %d, want 1", s.DrawCalls)
	}
}

func TestRendererResize(t *testing.T) {
	stage := mustStage(t, material.NewInvertColors)
	dev, r := newTestRenderer(t, WithRenderStages(stage))

	if err := r.Render(nil, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	before := dev.Passes[0].Desc.Target

	r.Resize(640, 480)
	if dev.Resizes != 1 {
		t.Errorf("Resizes = %d, want 1", dev.Resizes)
	}
	if !slices.Contains(dev.ReleasedTextures, before) {
		t.Error("stage target was not released on resize")
	}
	if w, h := r.Camera().Viewport(); w != 640 || h != 480 {
		t.Errorf("Viewport() = %d, %d, want 640, 480", w, h)
	}

	if err := r.Render(nil, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	target := dev.Textures[dev.Passes[2].Desc.Target]
	if target == nil || target.Desc.Width != 640 || target.Desc.Height != 480 {
		t.Errorf("stage target = %+v, want 640x480", target)
	}

	r.Resize(0, 10)
	if dev.Resizes != 1 {
		t.Errorf("Resizes after an empty size = %d, want 1", dev.Resizes)
	}
}

func TestRendererDestroy(t *testing.T) {
	dev, r := newTestRenderer(t)
	root, _, _ := quadScene(t)
	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if err := r.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if !dev.Released {
		t.Error("device was not released")
	}
	if len(dev.Buffers) != 0 || len(dev.Pipelines) != 0 || len(dev.BindGroups) != 0 {
		t.Errorf("live buffers, pipelines, bind groups = %d, %d, %d, want none",
			len(dev.Buffers), len(dev.Pipelines), len(dev.BindGroups))
	}

	if err := r.Destroy(); !errors.Is(err, common.ErrAlreadyDestroyed) {
		t.Errorf("second Destroy() error = %v, want ErrAlreadyDestroyed", err)
	}
	if err := r.Render(root, nil); !errors.Is(err, common.ErrAlreadyDestroyed) {
		t.Errorf("Render() after Destroy error = %v, want ErrAlreadyDestroyed", err)
	}
	if err := r.SetRenderStages(); !errors.Is(err, common.ErrAlreadyDestroyed) {
		t.Errorf("SetRenderStages() after Destroy error = %v, want ErrAlreadyDestroyed", err)
	}
}

func TestDestroyedMeshReleasesObjectState(t *testing.T) {
	dev, r := newTestRenderer(t)
	root, _, _ := quadScene(t)
	mesh := root.Children()[0]

	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	groups := r.Stats().BindGroups
	if err := mesh.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if len(dev.ReleasedBindGroups) != 1 {
		t.Errorf("released bind groups = %d, want the object group", len(dev.ReleasedBindGroups))
	}
	if err := r.Render(root, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if s := r.Stats(); s.DrawCalls != 0 || s.BindGroups != groups-1 {
		t.Errorf("Stats() = %+v, want no draws and %d bind groups", s, groups-1)
	}
}

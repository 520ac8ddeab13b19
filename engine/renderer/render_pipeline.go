package renderer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/camera"
	"github.com/Carmen-Shannon/keel/engine/geometry"
	"github.com/Carmen-Shannon/keel/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/keel/engine/renderer/buffer_writer"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/material"
	"github.com/Carmen-Shannon/keel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/keel/engine/renderer/resource_sync"
	"github.com/Carmen-Shannon/keel/engine/renderer/shader"
	"github.com/Carmen-Shannon/keel/engine/renderer/texture"
	"github.com/Carmen-Shannon/keel/engine/scene"
	"github.com/Carmen-Shannon/keel/engine/versioned"
	"github.com/go-gl/mathgl/mgl32"
)

// Binding names the renderer resolves itself. Every other binding is looked up on the material.
const (
	bindingCamera        = "camera"
	bindingTransform     = "transform"
	bindingSourceTexture = "sourceTexture"
	bindingSourceSampler = "sourceSampler"
)

// geometryBindings maps the vertex-pulling storage bindings to geometry slots.
var geometryBindings = map[string]geometry.Slot{
	"indices":   geometry.SlotIndex,
	"positions": geometry.SlotPosition,
	"colors":    geometry.SlotColor,
	"texcoords": geometry.SlotTexCoord,
}

// fullscreenVertices is the vertex count of the full-screen triangle drawn by every stage.
const fullscreenVertices = 3

// FrameStats describes the last successfully submitted frame.
type FrameStats struct {
	// Drawables is the length of the draw list.
	Drawables int
	// DrawCalls is the number of draws issued in the main pass.
	DrawCalls int
	// StagePasses is the number of post-processing passes executed.
	StagePasses int
	// Uploads is the number of buffer and texture uploads made while preparing the frame.
	Uploads int
	// Pipelines is the number of cached pipeline states after the frame.
	Pipelines int
	// BindGroups is the number of cached bind groups after the frame.
	BindGroups int
}

// scope orders the owners a bind group can belong to, from least to most specific.
type scope int

const (
	scopeMaterial scope = iota
	scopeCamera
	scopeStage
	scopeObject
)

// stageSlot identifies the bind groups of one position in the stage chain.
type stageSlot struct {
	material material.Material
	index    int
}

// transformSource serializes a versioned world matrix.
type transformSource struct {
	matrix *versioned.Versioned[mgl32.Mat4]
}

func (t transformSource) ByteSize() int {
	return 64
}

func (t transformSource) Emit(e *buffer_writer.Emitter) {
	e.Mat4(t.matrix.Value())
}

func (t transformSource) Version() uint64 {
	return t.matrix.Version()
}

// bindContext carries the per-draw resources bindings are resolved against.
type bindContext struct {
	drawable *scene.Drawable
	camera   camera.Camera
	buffers  map[geometry.Slot]gpu.BufferID
	source   gpu.TextureID
	stage    stageSlot
}

// groupBinding is one bind group set before a draw.
type groupBinding struct {
	group uint32
	id    gpu.BindGroupID
}

// drawCall is a fully prepared draw.
type drawCall struct {
	label    string
	pipeline gpu.PipelineID
	groups   []groupBinding
	vertices uint32
}

func (d drawCall) record(pass gpu.RenderPass) {
	pass.SetPipeline(d.pipeline)
	for _, g := range d.groups {
		pass.SetBindGroup(g.group, g.id)
	}
	pass.Draw(d.vertices, 1)
}

// renderPipeline is the implementation of the RenderPipeline interface.
type renderPipeline struct {
	mu *sync.Mutex

	device     gpu.Device
	sync       resource_sync.ResourceSync
	pipelines  pipeline.Cache
	bindGroups bind_group_provider.BindGroupProvider
	chain      *stageChain

	clearColor common.Color
	fallback   texture.Texture
	identity   *versioned.Versioned[mgl32.Mat4]
	sampler    gpu.SamplerID
	targets    [2]gpu.TextureID
	stats      FrameStats
}

// RenderPipeline runs the per-frame protocol: clear the main target, synchronize and draw every drawable,
// run the stage chain against the main pass output, and present.
//
// GPU buffer records, pipeline states and bind groups are owned by the pipeline and created lazily on first
// use. A frame that fails while recording is aborted before submission and nothing is presented.
type RenderPipeline interface {
	// Stages returns the post-processing stage chain.
	//
	// Returns:
	//   - StageChain: the chain
	Stages() StageChain

	// ClearColor returns the main pass clear color.
	//
	// Returns:
	//   - common.Color: the clear color
	ClearColor() common.Color

	// SetClearColor sets the main pass clear color.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c common.Color)

	// Frame renders and presents one frame. An empty draw list still clears and runs the stage chain.
	//
	// Parameters:
	//   - drawables: the draw list in render order
	//   - cam: the camera bound to materials that declare a camera uniform; may be nil if none do
	//
	// Returns:
	//   - error: the first synchronization, pipeline or submission error
	Frame(drawables []scene.Drawable, cam camera.Camera) error

	// Resize releases the offscreen stage targets so they are recreated at the new surface size.
	Resize()

	// Stats returns statistics of the last submitted frame.
	//
	// Returns:
	//   - FrameStats: the statistics
	Stats() FrameStats

	// Release releases every GPU resource owned by the pipeline.
	Release()
}

var _ RenderPipeline = &renderPipeline{}

// NewRenderPipeline creates a render pipeline drawing with device.
//
// Parameters:
//   - device: the GPU device
//
// Returns:
//   - RenderPipeline: the pipeline
//   - error: an error if the default texture cannot be created
func NewRenderPipeline(device gpu.Device) (RenderPipeline, error) {
	return newRenderPipeline(device)
}

func newRenderPipeline(device gpu.Device) (*renderPipeline, error) {
	fallback, err := texture.NewTexture(1, 1,
		texture.WithLabel("default-white"),
		texture.WithPixels([]byte{0xff, 0xff, 0xff, 0xff}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create default texture: %w", err)
	}

	bindGroups := bind_group_provider.NewBindGroupProvider(device)
	p := &renderPipeline{
		mu:         &sync.Mutex{},
		device:     device,
		sync:       resource_sync.NewResourceSync(device),
		bindGroups: bindGroups,
		pipelines:  pipeline.NewCache(device, pipeline.WithReleaseHook(bindGroups.ReleasePipeline)),
		clearColor: common.ColorBlack,
		fallback:   fallback,
		identity:   versioned.New(mgl32.Ident4()),
	}
	p.chain = newStageChain(p.releaseStage)
	return p, nil
}

func (p *renderPipeline) Stages() StageChain {
	return p.chain
}

func (p *renderPipeline) ClearColor() common.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clearColor
}

func (p *renderPipeline) SetClearColor(c common.Color) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearColor = c
}

func (p *renderPipeline) Stats() FrameStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *renderPipeline) Frame(drawables []scene.Drawable, cam camera.Camera) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	uploads := p.sync.Uploads()
	format := p.device.SurfaceFormat()
	stages := p.chain.Stages()
	if len(stages) == 0 {
		p.releaseTargets()
	} else if err := p.ensureTargets(format); err != nil {
		return err
	}

	draws := make([]drawCall, 0, len(drawables))
	for i := range drawables {
		dc, err := p.prepareDraw(&drawables[i], cam, format)
		if err != nil {
			return err
		}
		if dc.vertices > 0 {
			draws = append(draws, dc)
		}
	}
	stageDraws := make([]drawCall, 0, len(stages))
	for i, stage := range stages {
		dc, err := p.prepareStage(stage, i, format)
		if err != nil {
			return err
		}
		stageDraws = append(stageDraws, dc)
	}

	surface, err := p.device.BeginFrame()
	if err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}
	if err := p.record(surface, draws, stageDraws); err != nil {
		p.device.AbortFrame()
		return err
	}
	if err := p.device.EndFrame(); err != nil {
		return fmt.Errorf("failed to submit frame: %w", err)
	}
	p.device.Present()

	p.stats = FrameStats{
		Drawables:   len(drawables),
		DrawCalls:   len(draws),
		StagePasses: len(stageDraws),
		Uploads:     p.sync.Uploads() - uploads,
		Pipelines:   p.pipelines.Len(),
		BindGroups:  p.bindGroups.Len(),
	}
	return nil
}

func (p *renderPipeline) Resize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseTargets()
}

func (p *renderPipeline) Release() {
	p.chain.Clear()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseTargets()
	p.pipelines.Release()
	p.bindGroups.Release()
	p.sync.Release()
	if p.sampler != 0 {
		p.device.ReleaseSampler(p.sampler)
		p.sampler = 0
	}
}

// record encodes the main pass and the stage passes of a frame.
func (p *renderPipeline) record(surface gpu.TextureID, draws, stages []drawCall) error {
	target := surface
	if len(stages) > 0 {
		target = p.targets[0]
	}
	pass, err := p.device.BeginRenderPass(gpu.RenderPassDescriptor{
		Label:        "main",
		Target:       target,
		ClearColor:   p.clearColor,
		DepthStencil: true,
	})
	if err != nil {
		return fmt.Errorf("failed to begin main pass: %w", err)
	}
	for _, dc := range draws {
		dc.record(pass)
	}
	pass.End()

	for i, dc := range stages {
		target = surface
		if i < len(stages)-1 {
			target = p.targets[(i+1)%2]
		}
		pass, err := p.device.BeginRenderPass(gpu.RenderPassDescriptor{Label: dc.label, Target: target})
		if err != nil {
			return fmt.Errorf("failed to begin stage pass %s: %w", dc.label, err)
		}
		dc.record(pass)
		pass.End()
	}
	return nil
}

// prepareDraw synchronizes a drawable's resources and resolves its pipeline state and bind groups.
func (p *renderPipeline) prepareDraw(d *scene.Drawable, cam camera.Camera, format gpu.TextureFormat) (drawCall, error) {
	if d.Geometry == nil || d.Material == nil {
		return drawCall{}, fmt.Errorf("drawable without geometry or material: %w", common.ErrUnsupportedLayout)
	}
	m := d.Material
	if m.Stage() != material.StageScene {
		return drawCall{}, fmt.Errorf("material %s is a post-process material: %w", m.Label(), common.ErrUnsupportedLayout)
	}
	state, err := p.pipelines.Get(m, format, true)
	if err != nil {
		return drawCall{}, err
	}
	// Nothing to draw; skipped by Frame.
	vertices := state.VertexCount(d.Geometry.IndexCount())
	if vertices == 0 {
		return drawCall{}, nil
	}

	var slots []geometry.Slot
	for _, b := range state.Layout.Bindings() {
		if slot, ok := geometryBindings[b.Name]; ok {
			slots = append(slots, slot)
		}
	}
	buffers, err := p.sync.SyncGeometry(d.Geometry, slots...)
	if err != nil {
		return drawCall{}, err
	}

	ctx := &bindContext{drawable: d, camera: cam, buffers: buffers}
	groups, err := p.bindGroupsFor(state, m, ctx)
	if err != nil {
		return drawCall{}, err
	}
	return drawCall{
		label:    m.Label(),
		pipeline: state.ID,
		groups:   groups,
		vertices: vertices,
	}, nil
}

// prepareStage resolves the pipeline state and bind groups of stage index i, which samples targets[i%2].
func (p *renderPipeline) prepareStage(m material.Material, i int, format gpu.TextureFormat) (drawCall, error) {
	state, err := p.pipelines.Get(m, format, false)
	if err != nil {
		return drawCall{}, err
	}
	if p.sampler == 0 {
		settings := texture.SamplerSettings{
			AddressModeU: gpu.AddressModeClampToEdge,
			AddressModeV: gpu.AddressModeClampToEdge,
			MagFilter:    gpu.FilterModeLinear,
			MinFilter:    gpu.FilterModeLinear,
		}
		p.sampler, err = p.device.CreateSampler(settings.Descriptor("stage-source"))
		if err != nil {
			return drawCall{}, fmt.Errorf("failed to create stage sampler: %w", err)
		}
	}

	ctx := &bindContext{source: p.targets[i%2], stage: stageSlot{material: m.Base(), index: i}}
	groups, err := p.bindGroupsFor(state, m, ctx)
	if err != nil {
		return drawCall{}, err
	}
	return drawCall{
		label:    fmt.Sprintf("stage-%d-%s", i, m.Label()),
		pipeline: state.ID,
		groups:   groups,
		vertices: fullscreenVertices,
	}, nil
}

// bindGroupsFor resolves every bind group of the state's layout.
func (p *renderPipeline) bindGroupsFor(state *pipeline.State, m material.Material, ctx *bindContext) ([]groupBinding, error) {
	groups := state.Layout.Groups()
	out := make([]groupBinding, 0, len(groups))
	for _, g := range groups {
		bindings := state.Layout.Group(g)
		entries := make([]gpu.BindGroupEntry, 0, len(bindings))
		owner, ownerScope := any(m.Base()), scopeMaterial
		for _, b := range bindings {
			entry, s, err := p.resolve(b, m, ctx)
			if err != nil {
				return nil, fmt.Errorf("material %s: binding %s: %w", m.Label(), b.Name, err)
			}
			entries = append(entries, entry)
			if s > ownerScope {
				owner, ownerScope = p.ownerOf(s, ctx), s
			}
		}
		id, err := p.bindGroups.Get(state.ID, g, owner, entries)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", m.Label(), err)
		}
		out = append(out, groupBinding{group: g, id: id})
	}
	return out, nil
}

// resolve finds the GPU resource for one binding and the scope of the entity that owns it.
func (p *renderPipeline) resolve(b shader.Binding, m material.Material, ctx *bindContext) (gpu.BindGroupEntry, scope, error) {
	entry := gpu.BindGroupEntry{Binding: b.Binding}

	switch name := b.Name; {
	case name == bindingCamera:
		if ctx.camera == nil {
			return entry, 0, fmt.Errorf("no camera: %w", common.ErrUnknownBinding)
		}
		id, err := p.sync.SyncUniform(ctx.camera, name, ctx.camera)
		entry.Buffer = id
		return entry, scopeCamera, err

	case name == bindingTransform && ctx.drawable != nil:
		matrix := common.Coalesce(ctx.drawable.Transform, p.identity)
		id, err := p.sync.SyncUniform(p.ownerOf(scopeObject, ctx), name, transformSource{matrix: matrix})
		entry.Buffer = id
		return entry, scopeObject, err

	case ctx.drawable != nil && isGeometryBinding(name):
		entry.Buffer = ctx.buffers[geometryBindings[name]]
		return entry, scopeObject, nil

	case name == bindingSourceTexture:
		entry.Texture = ctx.source
		return entry, scopeStage, nil

	case name == bindingSourceSampler:
		entry.Sampler = p.sampler
		return entry, scopeStage, nil
	}

	switch {
	case b.Type.IsBuffer():
		u, ok := m.Uniform(b.Name)
		if !ok {
			return entry, 0, fmt.Errorf("uniform has no value: %w", common.ErrUnknownBinding)
		}
		id, err := p.sync.SyncUniform(m.Base(), b.Name, u)
		entry.Buffer = id
		return entry, scopeMaterial, err

	case b.Type == gpu.BindingTypeTexture:
		id, _, err := p.sync.SyncTexture(p.textureFor(m, b.Name))
		entry.Texture = id
		return entry, scopeMaterial, err

	case b.Type == gpu.BindingTypeSampler:
		_, id, err := p.sync.SyncTexture(p.textureFor(m, samplerTexture(b.Name)))
		entry.Sampler = id
		return entry, scopeMaterial, err
	}
	return entry, 0, fmt.Errorf("%s binding: %w", b.Type, common.ErrUnsupportedLayout)
}

// ownerOf returns the identity bind groups and records of the given scope are keyed by.
func (p *renderPipeline) ownerOf(s scope, ctx *bindContext) any {
	switch s {
	case scopeCamera:
		return ctx.camera
	case scopeStage:
		return ctx.stage
	case scopeObject:
		if ctx.drawable.Owner != nil {
			return ctx.drawable.Owner
		}
		return ctx.drawable.Geometry
	}
	return nil
}

// textureFor returns the material's texture for a binding, or the default white texture.
func (p *renderPipeline) textureFor(m material.Material, name string) texture.Texture {
	if t, ok := m.Texture(name); ok && !t.Destroyed() {
		return t
	}
	return p.fallback
}

// ensureTargets creates the ping-pong stage targets at the surface size.
func (p *renderPipeline) ensureTargets(format gpu.TextureFormat) error {
	if p.targets[0] != 0 {
		return nil
	}
	width, height := p.device.SurfaceSize()
	for i := range p.targets {
		id, err := p.device.CreateTexture(gpu.TextureDescriptor{
			Label:  fmt.Sprintf("stage-target-%d", i),
			Width:  uint32(width),
			Height: uint32(height),
			Format: format,
			Usage:  gpu.TextureUsageRenderAttachment | gpu.TextureUsageTextureBinding,
		})
		if err != nil {
			p.releaseTargets()
			return fmt.Errorf("failed to create stage target: %w", err)
		}
		p.targets[i] = id
	}
	common.Logger().Debug("stage targets created", "width", width, "height", height)
	return nil
}

func (p *renderPipeline) releaseTargets() {
	for i, id := range p.targets {
		if id != 0 {
			p.device.ReleaseTexture(id)
			p.targets[i] = 0
		}
	}
}

// releaseStage frees the pipeline states, bind groups and uniform buffers of a removed stage.
func (p *renderPipeline) releaseStage(m material.Material) {
	p.pipelines.Evict(m)
	p.sync.Evict(m)
	common.Logger().Debug("render stage released", "label", m.Label())
}

func isGeometryBinding(name string) bool {
	_, ok := geometryBindings[name]
	return ok
}

// samplerTexture returns the texture binding a sampler binding samples: "colorSampler" samples "colorTexture".
func samplerTexture(name string) string {
	return strings.TrimSuffix(name, "Sampler") + "Texture"
}

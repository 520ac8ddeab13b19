// Package wgpu_backend implements gpu.Device on top of WebGPU through github.com/cogentcore/webgpu.
package wgpu_backend

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

type texture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	desc    gpu.TextureDescriptor
}

type renderPipeline struct {
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
	groups   []*wgpu.BindGroupLayout
	modules  []*wgpu.ShaderModule
}

func (p *renderPipeline) release() {
	p.pipeline.Release()
	p.layout.Release()
	for _, g := range p.groups {
		g.Release()
	}
	for _, m := range p.modules {
		m.Release()
	}
}

// device is the WebGPU implementation of gpu.Device.
type device struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	format        gpu.TextureFormat
	presentMode   wgpu.PresentMode
	width, height int
	depthTexture  *wgpu.Texture
	depthView     *wgpu.TextureView

	nextID     uint64
	buffers    map[gpu.BufferID]*wgpu.Buffer
	textures   map[gpu.TextureID]*texture
	samplers   map[gpu.SamplerID]*wgpu.Sampler
	pipelines  map[gpu.PipelineID]*renderPipeline
	bindGroups map[gpu.BindGroupID]*wgpu.BindGroup

	// Frame state between BeginFrame and Present
	surfaceID    gpu.TextureID
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	framePass    *pass

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
}

var _ gpu.Device = &device{}

// NewDevice acquires a WebGPU adapter and device for the given surface and configures the surface.
// It locks the calling goroutine to its OS thread, as the surface must be driven from the thread that
// created it, and panics if no adapter or device can be acquired.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, typically from window.Window.SurfaceDescriptor
//   - options: the builder options
//
// Returns:
//   - gpu.Device: the device
func NewDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...DeviceBuilderOption) gpu.Device {
	runtime.LockOSThread()
	d := &device{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		width:       1,
		height:      1,
		buffers:     make(map[gpu.BufferID]*wgpu.Buffer),
		textures:    make(map[gpu.TextureID]*texture),
		samplers:    make(map[gpu.SamplerID]*wgpu.Sampler),
		pipelines:   make(map[gpu.PipelineID]*renderPipeline),
		bindGroups:  make(map[gpu.BindGroupID]*wgpu.BindGroup),
	}
	for _, opt := range options {
		opt(d)
	}
	d.surfaceID = gpu.TextureID(d.id())
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		panic(err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "keel device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat, d.format = surfaceFormat(capabilities.Formats)
	d.configure()

	common.Logger().Info("wgpu device created",
		"width", d.width, "height", d.height, "fallback", d.forceFallbackAdapter)
	return d
}

func (d *device) id() uint64 {
	d.nextID++
	return d.nextID
}

// configure (re)configures the surface and the depth buffer at the current size.
func (d *device) configure() {
	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(d.width),
		Height:      uint32(d.height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if d.depthView != nil {
		d.depthView.Release()
		d.depthTexture.Release()
	}
	depthTexture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "depth",
		Size: wgpu.Extent3D{
			Width:              uint32(d.width),
			Height:             uint32(d.height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	d.depthTexture = depthTexture
	d.depthView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
}

func (d *device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create buffer %s: %w", desc.Label, err)
	}
	id := gpu.BufferID(d.id())
	d.buffers[id] = buf
	return id, nil
}

func (d *device) WriteBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("write to unknown buffer %d", id)
	}
	d.queue.WriteBuffer(buf, offset, data)
	return nil
}

func (d *device) ReleaseBuffer(id gpu.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[id]
	if !ok {
		common.Logger().Warn("release of unknown buffer", "id", id)
		return
	}
	buf.Release()
	delete(d.buffers, id)
}

func (d *device) CreateTexture(desc gpu.TextureDescriptor) (gpu.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	format, ok := textureFormats[desc.Format]
	if !ok {
		return 0, fmt.Errorf("texture %s: format %d: %w", desc.Label, desc.Format, common.ErrUnsupportedLayout)
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     textureUsage(desc.Usage),
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create texture %s: %w", desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("failed to create texture view %s: %w", desc.Label, err)
	}
	id := gpu.TextureID(d.id())
	d.textures[id] = &texture{texture: tex, view: view, desc: desc}
	return id, nil
}

func (d *device) WriteTexture(id gpu.TextureID, pixels []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("write to unknown texture %d", id)
	}
	bytesPerRow := t.desc.Width * uint32(t.desc.Format.BytesPerPixel())
	if want := int(bytesPerRow * t.desc.Height); len(pixels) != want {
		return fmt.Errorf("texture %s: %d bytes, want %d: %w", t.desc.Label, len(pixels), want, common.ErrSizeMismatch)
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: t.desc.Height,
		},
		&wgpu.Extent3D{
			Width:              t.desc.Width,
			Height:             t.desc.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *device) ReleaseTexture(id gpu.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[id]
	if !ok {
		common.Logger().Warn("release of unknown texture", "id", id)
		return
	}
	t.view.Release()
	t.texture.Release()
	delete(d.textures, id)
}

func (d *device) CreateSampler(desc gpu.SamplerDescriptor) (gpu.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  addressModes[desc.AddressModeU],
		AddressModeV:  addressModes[desc.AddressModeV],
		AddressModeW:  addressModes[desc.AddressModeW],
		MagFilter:     filterModes[desc.MagFilter],
		MinFilter:     filterModes[desc.MinFilter],
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create sampler %s: %w", desc.Label, err)
	}
	id := gpu.SamplerID(d.id())
	d.samplers[id] = s
	return id, nil
}

func (d *device) ReleaseSampler(id gpu.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.samplers[id]
	if !ok {
		common.Logger().Warn("release of unknown sampler", "id", id)
		return
	}
	s.Release()
	delete(d.samplers, id)
}

func (d *device) CreateRenderPipeline(desc gpu.RenderPipelineDescriptor) (gpu.PipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Vertex.Source == "" || desc.Fragment.Source == "" {
		return 0, errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}
	format, ok := textureFormats[desc.TargetFormat]
	if !ok {
		return 0, fmt.Errorf("pipeline %s: target format %d: %w", desc.Label, desc.TargetFormat, common.ErrUnsupportedLayout)
	}

	p := &renderPipeline{}
	fail := func(err error) (gpu.PipelineID, error) {
		for _, m := range p.modules {
			m.Release()
		}
		for _, g := range p.groups {
			if g != nil {
				g.Release()
			}
		}
		if p.layout != nil {
			p.layout.Release()
		}
		return 0, fmt.Errorf("failed to create pipeline %s: %w", desc.Label, err)
	}

	for _, stage := range []gpu.ShaderStageDescriptor{desc.Vertex, desc.Fragment} {
		m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label: stage.Label,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: stage.Source,
			},
		})
		if err != nil {
			return fail(err)
		}
		p.modules = append(p.modules, m)
	}

	// Group indices must be dense, gaps get an empty layout.
	maxGroup := -1
	for _, l := range desc.Layouts {
		maxGroup = max(maxGroup, int(l.Group))
	}
	entries := make([][]wgpu.BindGroupLayoutEntry, maxGroup+1)
	for _, l := range desc.Layouts {
		for _, e := range l.Entries {
			entries[l.Group] = append(entries[l.Group], layoutEntry(e))
		}
	}
	for g, groupEntries := range entries {
		layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s-group-%d", desc.Label, g),
			Entries: groupEntries,
		})
		if err != nil {
			return fail(fmt.Errorf("bind group layout %d: %w", g, err))
		}
		p.groups = append(p.groups, layout)
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.groups,
	})
	if err != nil {
		return fail(err)
	}
	p.layout = layout

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthStencil {
		compare := wgpu.CompareFunctionLess
		if !desc.DepthTest {
			compare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      compare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     p.modules[0],
			EntryPoint: desc.Vertex.EntryPoint,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.modules[1],
			EntryPoint: desc.Fragment.EntryPoint,
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     blendState(desc.Blend),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topologies[desc.Topology],
			FrontFace: frontFace(desc.FrontFace),
			CullMode:  cullModes[desc.CullMode],
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return fail(err)
	}
	p.pipeline = created

	id := gpu.PipelineID(d.id())
	d.pipelines[id] = p
	return id, nil
}

func (d *device) ReleaseRenderPipeline(id gpu.PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pipelines[id]
	if !ok {
		common.Logger().Warn("release of unknown pipeline", "id", id)
		return
	}
	p.release()
	delete(d.pipelines, id)
}

func (d *device) CreateBindGroup(desc gpu.BindGroupDescriptor) (gpu.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pipelines[desc.Pipeline]
	if !ok || int(desc.Group) >= len(p.groups) {
		return 0, fmt.Errorf("bind group %s: pipeline %d has no group %d: %w", desc.Label, desc.Pipeline, desc.Group, common.ErrUnknownBinding)
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != 0:
			buf, ok := d.buffers[e.Buffer]
			if !ok {
				return 0, fmt.Errorf("bind group %s: unknown buffer %d", desc.Label, e.Buffer)
			}
			entry.Buffer, entry.Offset, entry.Size = buf, 0, wgpu.WholeSize
		case e.Texture != 0:
			t, ok := d.textures[e.Texture]
			if !ok {
				return 0, fmt.Errorf("bind group %s: unknown texture %d", desc.Label, e.Texture)
			}
			entry.TextureView = t.view
		case e.Sampler != 0:
			s, ok := d.samplers[e.Sampler]
			if !ok {
				return 0, fmt.Errorf("bind group %s: unknown sampler %d", desc.Label, e.Sampler)
			}
			entry.Sampler = s
		default:
			return 0, fmt.Errorf("bind group %s: binding %d has no resource: %w", desc.Label, e.Binding, common.ErrUnknownBinding)
		}
		entries[i] = entry
	}

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  p.groups[desc.Group],
		Entries: entries,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create bind group %s: %w", desc.Label, err)
	}
	id := gpu.BindGroupID(d.id())
	d.bindGroups[id] = bg
	return id, nil
}

func (d *device) ReleaseBindGroup(id gpu.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	bg, ok := d.bindGroups[id]
	if !ok {
		common.Logger().Warn("release of unknown bind group", "id", id)
		return
	}
	bg.Release()
	delete(d.bindGroups, id)
}

func (d *device) SurfaceFormat() gpu.TextureFormat {
	return d.format
}

func (d *device) SurfaceSize() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

func (d *device) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width <= 0 || height <= 0 || (width == d.width && height == d.height) {
		return
	}
	d.width, d.height = width, height
	d.configure()
}

func (d *device) BeginFrame() (gpu.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A held surface image means the previous frame was never presented.
	if d.frameSurface != nil {
		return 0, errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return 0, fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return 0, err
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return 0, err
	}

	d.frameEncoder = encoder
	d.frameSurface = surfaceTexture
	d.frameView = view
	return d.surfaceID, nil
}

func (d *device) BeginRenderPass(desc gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameEncoder == nil {
		return nil, errors.New("render pass outside frame")
	}
	if d.framePass != nil && !d.framePass.ended {
		return nil, errors.New("previous render pass not ended")
	}

	target := d.frameView
	if desc.Target != d.surfaceID {
		t, ok := d.textures[desc.Target]
		if !ok {
			return nil, fmt.Errorf("render pass %s targets unknown texture %d", desc.Label, desc.Target)
		}
		target = t.view
	}

	c := desc.ClearColor
	rp := &wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    target,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3]),
			},
		}},
	}
	if desc.DepthStencil {
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	d.framePass = &pass{device: d, encoder: d.frameEncoder.BeginRenderPass(rp)}
	return d.framePass, nil
}

func (d *device) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameEncoder == nil {
		return errors.New("no frame in progress")
	}
	d.framePass = nil
	commandBuffer, err := d.frameEncoder.Finish(nil)
	d.frameEncoder.Release()
	d.frameEncoder = nil
	if err != nil {
		d.releaseFrameSurface()
		return fmt.Errorf("%w: %w", common.ErrDeviceLost, err)
	}

	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (d *device) AbortFrame() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameEncoder != nil {
		d.frameEncoder.Release()
		d.frameEncoder = nil
	}
	d.framePass = nil
	d.releaseFrameSurface()
}

func (d *device) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return
	}
	d.surface.Present()
	d.releaseFrameSurface()
}

func (d *device) releaseFrameSurface() {
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameSurface != nil {
		d.frameSurface.Release()
		d.frameSurface = nil
	}
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, bg := range d.bindGroups {
		bg.Release()
		delete(d.bindGroups, id)
	}
	for id, p := range d.pipelines {
		p.release()
		delete(d.pipelines, id)
	}
	for id, s := range d.samplers {
		s.Release()
		delete(d.samplers, id)
	}
	for id, t := range d.textures {
		t.view.Release()
		t.texture.Release()
		delete(d.textures, id)
	}
	for id, buf := range d.buffers {
		buf.Release()
		delete(d.buffers, id)
	}
	d.releaseFrameSurface()
	if d.depthView != nil {
		d.depthView.Release()
		d.depthTexture.Release()
		d.depthView, d.depthTexture = nil, nil
	}
	d.queue.Release()
	d.device.Release()
	d.surface.Release()
	d.adapter.Release()
	d.instance.Release()
	common.Logger().Info("wgpu device released")
}

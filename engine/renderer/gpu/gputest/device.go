// Package gputest provides an in-memory gpu.Device that records every call, for tests of code above the backend.
package gputest

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
)

// Buffer is the recorded state of a buffer.
type Buffer struct {
	Desc   gpu.BufferDescriptor
	Data   []byte
	Writes int
}

// Texture is the recorded state of a texture.
type Texture struct {
	Desc   gpu.TextureDescriptor
	Pixels []byte
	Writes int
}

// Draw is one recorded draw call.
type Draw struct {
	Pipeline      gpu.PipelineID
	BindGroups    map[uint32]gpu.BindGroupID
	VertexCount   uint32
	InstanceCount uint32
}

// Pass is one recorded render pass.
type Pass struct {
	Desc  gpu.RenderPassDescriptor
	Draws []Draw
	Ended bool

	pipeline   gpu.PipelineID
	bindGroups map[uint32]gpu.BindGroupID
}

// Device is a recording gpu.Device. All fields are exported for assertions; the zero value is not usable,
// use NewDevice.
type Device struct {
	Width, Height int
	Format        gpu.TextureFormat

	// SurfaceTexture is the presentation target returned by every BeginFrame.
	SurfaceTexture gpu.TextureID

	Buffers    map[gpu.BufferID]*Buffer
	Textures   map[gpu.TextureID]*Texture
	Samplers   map[gpu.SamplerID]gpu.SamplerDescriptor
	Pipelines  map[gpu.PipelineID]gpu.RenderPipelineDescriptor
	BindGroups map[gpu.BindGroupID]gpu.BindGroupDescriptor

	ReleasedBuffers    []gpu.BufferID
	ReleasedTextures   []gpu.TextureID
	ReleasedSamplers   []gpu.SamplerID
	ReleasedPipelines  []gpu.PipelineID
	ReleasedBindGroups []gpu.BindGroupID

	// Passes holds the passes of every frame, in submission order.
	Passes []*Pass

	Frames   int
	Submits  int
	Aborts   int
	Presents int
	Resizes  int
	Released bool

	// FailSubmit, when set, makes the next EndFrame fail with it.
	FailSubmit error

	nextID  uint64
	inFrame bool
	current *Pass
}

var _ gpu.Device = &Device{}

// NewDevice creates a recording device with a surface of the given size and a BGRA8 sRGB format.
//
// Parameters:
//   - width, height: the surface size in pixels
//
// Returns:
//   - *Device: the device
func NewDevice(width, height int) *Device {
	d := &Device{
		Width:      width,
		Height:     height,
		Format:     gpu.TextureFormatBGRA8UnormSrgb,
		Buffers:    make(map[gpu.BufferID]*Buffer),
		Textures:   make(map[gpu.TextureID]*Texture),
		Samplers:   make(map[gpu.SamplerID]gpu.SamplerDescriptor),
		Pipelines:  make(map[gpu.PipelineID]gpu.RenderPipelineDescriptor),
		BindGroups: make(map[gpu.BindGroupID]gpu.BindGroupDescriptor),
	}
	d.SurfaceTexture = gpu.TextureID(d.id())
	return d
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// BufferWrites returns the number of writes made to a live buffer, or -1 if it is unknown.
func (d *Device) BufferWrites(id gpu.BufferID) int {
	b, ok := d.Buffers[id]
	if !ok {
		return -1
	}
	return b.Writes
}

// TotalBufferWrites returns the number of writes across all live buffers.
func (d *Device) TotalBufferWrites() int {
	n := 0
	for _, b := range d.Buffers {
		n += b.Writes
	}
	return n
}

// DrawCount returns the number of draws recorded across all passes.
func (d *Device) DrawCount() int {
	n := 0
	for _, p := range d.Passes {
		n += len(p.Draws)
	}
	return n
}

func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.BufferID, error) {
	if desc.Size == 0 {
		return 0, errors.New("gputest: zero-sized buffer")
	}
	id := gpu.BufferID(d.id())
	d.Buffers[id] = &Buffer{Desc: desc, Data: make([]byte, desc.Size)}
	return id, nil
}

func (d *Device) WriteBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	b, ok := d.Buffers[id]
	if !ok {
		return fmt.Errorf("gputest: write to unknown buffer %d", id)
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		return fmt.Errorf("gputest: write of %d bytes at %d overflows buffer %d of %d bytes", len(data), offset, id, len(b.Data))
	}
	copy(b.Data[offset:], data)
	b.Writes++
	return nil
}

func (d *Device) ReleaseBuffer(id gpu.BufferID) {
	if _, ok := d.Buffers[id]; !ok {
		return
	}
	delete(d.Buffers, id)
	d.ReleasedBuffers = append(d.ReleasedBuffers, id)
}

func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.TextureID, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return 0, errors.New("gputest: zero-sized texture")
	}
	id := gpu.TextureID(d.id())
	d.Textures[id] = &Texture{Desc: desc}
	return id, nil
}

func (d *Device) WriteTexture(id gpu.TextureID, pixels []byte) error {
	t, ok := d.Textures[id]
	if !ok {
		return fmt.Errorf("gputest: write to unknown texture %d", id)
	}
	want := int(t.Desc.Width) * int(t.Desc.Height) * t.Desc.Format.BytesPerPixel()
	if len(pixels) != want {
		return fmt.Errorf("gputest: texture %d expects %d bytes, got %d", id, want, len(pixels))
	}
	t.Pixels = append(t.Pixels[:0], pixels...)
	t.Writes++
	return nil
}

func (d *Device) ReleaseTexture(id gpu.TextureID) {
	if _, ok := d.Textures[id]; !ok {
		return
	}
	delete(d.Textures, id)
	d.ReleasedTextures = append(d.ReleasedTextures, id)
}

func (d *Device) CreateSampler(desc gpu.SamplerDescriptor) (gpu.SamplerID, error) {
	id := gpu.SamplerID(d.id())
	d.Samplers[id] = desc
	return id, nil
}

func (d *Device) ReleaseSampler(id gpu.SamplerID) {
	if _, ok := d.Samplers[id]; !ok {
		return
	}
	delete(d.Samplers, id)
	d.ReleasedSamplers = append(d.ReleasedSamplers, id)
}

func (d *Device) CreateRenderPipeline(desc gpu.RenderPipelineDescriptor) (gpu.PipelineID, error) {
	if desc.Vertex.Source == "" || desc.Fragment.Source == "" {
		return 0, errors.New("gputest: pipeline requires vertex and fragment sources")
	}
	id := gpu.PipelineID(d.id())
	d.Pipelines[id] = desc
	return id, nil
}

func (d *Device) ReleaseRenderPipeline(id gpu.PipelineID) {
	if _, ok := d.Pipelines[id]; !ok {
		return
	}
	delete(d.Pipelines, id)
	d.ReleasedPipelines = append(d.ReleasedPipelines, id)
}

func (d *Device) CreateBindGroup(desc gpu.BindGroupDescriptor) (gpu.BindGroupID, error) {
	if _, ok := d.Pipelines[desc.Pipeline]; !ok {
		return 0, fmt.Errorf("gputest: bind group for unknown pipeline %d", desc.Pipeline)
	}
	for _, e := range desc.Entries {
		switch {
		case e.Buffer != 0:
			if _, ok := d.Buffers[e.Buffer]; !ok {
				return 0, fmt.Errorf("gputest: binding %d references unknown buffer %d", e.Binding, e.Buffer)
			}
		case e.Texture != 0:
			if _, ok := d.Textures[e.Texture]; !ok {
				return 0, fmt.Errorf("gputest: binding %d references unknown texture %d", e.Binding, e.Texture)
			}
		case e.Sampler != 0:
			if _, ok := d.Samplers[e.Sampler]; !ok {
				return 0, fmt.Errorf("gputest: binding %d references unknown sampler %d", e.Binding, e.Sampler)
			}
		default:
			return 0, fmt.Errorf("gputest: binding %d has no resource", e.Binding)
		}
	}
	id := gpu.BindGroupID(d.id())
	d.BindGroups[id] = desc
	return id, nil
}

func (d *Device) ReleaseBindGroup(id gpu.BindGroupID) {
	if _, ok := d.BindGroups[id]; !ok {
		return
	}
	delete(d.BindGroups, id)
	d.ReleasedBindGroups = append(d.ReleasedBindGroups, id)
}

func (d *Device) SurfaceFormat() gpu.TextureFormat {
	return d.Format
}

func (d *Device) SurfaceSize() (int, int) {
	return d.Width, d.Height
}

func (d *Device) Resize(width, height int) {
	d.Width, d.Height = width, height
	d.Resizes++
}

func (d *Device) BeginFrame() (gpu.TextureID, error) {
	if d.inFrame {
		return 0, errors.New("gputest: frame already in progress")
	}
	d.inFrame = true
	d.Frames++
	return d.SurfaceTexture, nil
}

func (d *Device) BeginRenderPass(desc gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	if !d.inFrame {
		return nil, errors.New("gputest: render pass outside frame")
	}
	if d.current != nil && !d.current.Ended {
		return nil, errors.New("gputest: previous render pass not ended")
	}
	if _, ok := d.Textures[desc.Target]; !ok && desc.Target != d.SurfaceTexture {
		return nil, fmt.Errorf("gputest: render pass targets unknown texture %d", desc.Target)
	}
	p := &Pass{Desc: desc, bindGroups: make(map[uint32]gpu.BindGroupID)}
	d.Passes = append(d.Passes, p)
	d.current = p
	return p, nil
}

func (d *Device) EndFrame() error {
	if !d.inFrame {
		return errors.New("gputest: no frame in progress")
	}
	d.inFrame = false
	d.current = nil
	if err := d.FailSubmit; err != nil {
		d.FailSubmit = nil
		return fmt.Errorf("gputest: submit: %w: %w", common.ErrDeviceLost, err)
	}
	d.Submits++
	return nil
}

func (d *Device) AbortFrame() {
	if !d.inFrame {
		return
	}
	d.inFrame = false
	d.current = nil
	d.Aborts++
}

func (d *Device) Present() {
	d.Presents++
}

func (d *Device) Release() {
	d.Released = true
}

func (p *Pass) SetPipeline(id gpu.PipelineID) {
	p.pipeline = id
}

func (p *Pass) SetBindGroup(group uint32, id gpu.BindGroupID) {
	p.bindGroups[group] = id
}

func (p *Pass) Draw(vertexCount, instanceCount uint32) {
	groups := make(map[uint32]gpu.BindGroupID, len(p.bindGroups))
	for k, v := range p.bindGroups {
		groups[k] = v
	}
	p.Draws = append(p.Draws, Draw{
		Pipeline:      p.pipeline,
		BindGroups:    groups,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
	})
}

func (p *Pass) End() {
	p.Ended = true
}

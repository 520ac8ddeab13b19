// Package pipeline caches GPU render pipeline states derived from materials.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/lifecycle"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/material"
	"github.com/Carmen-Shannon/keel/engine/renderer/shader"
)

// Key identifies a cached pipeline state: the material's identity and rendering mode, plus the
// attachments of the pass it is used in.
type Key struct {
	Material     material.Material
	Mode         material.RenderingMode
	Format       gpu.TextureFormat
	DepthStencil bool
}

// State is a cached pipeline state.
type State struct {
	// ID is the GPU render pipeline.
	ID gpu.PipelineID
	// Key is the cache key the state was built for.
	Key Key
	// Version is the material version the state reflects.
	Version uint64
	// Layout is the material's merged binding layout.
	Layout shader.Layout
	// Mode is the rendering mode, used to derive vertex counts.
	Mode material.RenderingMode
}

// VertexCount returns the number of vertices to draw for indexCount indices.
func (s *State) VertexCount(indexCount int) uint32 {
	return s.Mode.VertexCount(indexCount)
}

// cache is the implementation of the Cache interface.
type cache struct {
	label     string
	device    gpu.Device
	mu        *sync.Mutex
	states    map[Key]*State
	observed  map[material.Material]bool
	onRelease func(gpu.PipelineID)
	creations int
}

// Cache lazily creates and retains render pipeline states.
//
// A state is created on first request for a key and reused until the material's version advances, at which
// point the stale state is released and rebuilt. Destroying a material releases every state built from it.
type Cache interface {
	lifecycle.DestroyObserver

	// Get returns the pipeline state for a material in a pass with the given attachments.
	//
	// Parameters:
	//   - m: the material
	//   - format: the color target format of the pass
	//   - depthStencil: whether the pass has a depth attachment
	//
	// Returns:
	//   - *State: the cached or newly built state
	//   - error: ErrAlreadyDestroyed for a destroyed material, or a device error
	Get(m material.Material, format gpu.TextureFormat, depthStencil bool) (*State, error)

	// Evict releases every state built from a material.
	//
	// Parameters:
	//   - m: the material
	Evict(m material.Material)

	// Len returns the number of cached states.
	//
	// Returns:
	//   - int: the state count
	Len() int

	// Creations returns how many pipeline states have been built, including rebuilds.
	//
	// Returns:
	//   - int: the creation count
	Creations() int

	// Release releases every cached state.
	Release()
}

var _ Cache = &cache{}

// NewCache creates an empty pipeline-state cache.
//
// Parameters:
//   - device: the GPU device
//   - options: builder options
//
// Returns:
//   - Cache: the cache
func NewCache(device gpu.Device, options ...CacheBuilderOption) Cache {
	c := &cache{
		label:    "pipeline",
		device:   device,
		mu:       &sync.Mutex{},
		states:   make(map[Key]*State),
		observed: make(map[material.Material]bool),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cache) Get(m material.Material, format gpu.TextureFormat, depthStencil bool) (*State, error) {
	m = m.Base()
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.Destroyed() {
		return nil, fmt.Errorf("pipeline for material %s: %w", m.Label(), common.ErrAlreadyDestroyed)
	}
	key := Key{Material: m, Mode: m.RenderingMode(), Format: format, DepthStencil: depthStencil}
	version := m.Version()
	if s, ok := c.states[key]; ok {
		if s.Version == version {
			return s, nil
		}
		c.release(key, s)
	}

	if !c.observed[m] {
		if err := m.Observe(c); err != nil {
			return nil, fmt.Errorf("pipeline for material %s: %w", m.Label(), err)
		}
		c.observed[m] = true
	}

	test, write := m.Depth()
	desc := gpu.RenderPipelineDescriptor{
		Label:        fmt.Sprintf("%s-%s-%s", c.label, m.Label(), key.Mode),
		Vertex:       m.VertexShader().Descriptor(),
		Fragment:     m.FragmentShader().Descriptor(),
		Layouts:      m.Layout().BindGroupLayouts(),
		Topology:     key.Mode.Topology(),
		CullMode:     m.CullMode(),
		FrontFace:    m.FrontFace(),
		Blend:        m.Blend(),
		TargetFormat: format,
		DepthStencil: depthStencil,
		DepthTest:    test && depthStencil,
		DepthWrite:   write && depthStencil,
	}
	id, err := c.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline %s: %w", desc.Label, err)
	}

	s := &State{ID: id, Key: key, Version: version, Layout: m.Layout(), Mode: key.Mode}
	c.states[key] = s
	c.creations++
	common.Logger().Debug("pipeline state created", "label", desc.Label, "version", version)
	return s, nil
}

func (c *cache) OnDestroy(owner any) {
	m, ok := owner.(material.Material)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evict(m)
	delete(c.observed, m)
}

func (c *cache) Evict(m material.Material) {
	m = m.Base()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evict(m)
	if c.observed[m] {
		m.Unobserve(c)
		delete(c.observed, m)
	}
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

func (c *cache) Creations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creations
}

func (c *cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, s := range c.states {
		c.release(key, s)
	}
	for m := range c.observed {
		m.Unobserve(c)
	}
	clear(c.observed)
}

func (c *cache) evict(m material.Material) {
	for key, s := range c.states {
		if key.Material == m {
			c.release(key, s)
		}
	}
}

func (c *cache) release(key Key, s *State) {
	delete(c.states, key)
	if c.onRelease != nil {
		c.onRelease(s.ID)
	}
	c.device.ReleaseRenderPipeline(s.ID)
}

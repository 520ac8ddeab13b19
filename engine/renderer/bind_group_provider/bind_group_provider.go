package bind_group_provider

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/lifecycle"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
)

// groupKey identifies one cached bind group.
type groupKey struct {
	pipeline gpu.PipelineID
	group    uint32
	owner    any
}

// boundGroup is a created bind group and the entries it was created with.
type boundGroup struct {
	id      gpu.BindGroupID
	entries []gpu.BindGroupEntry
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label prefixed to every bind group.
	label  string
	device gpu.Device

	mu        *sync.Mutex
	groups    map[groupKey]*boundGroup
	observed  map[lifecycle.Observable]bool
	creations int
}

// BindGroupProvider creates bind groups on demand and keeps them until the resources they reference change.
//
// Usage pattern:
//  1. The renderer resolves the GPU resources of one bind group index of a pipeline for an owner
//     (a node, a material, the camera)
//  2. The renderer calls Get with the entries; the cached group is returned when the entries are unchanged
//  3. When any entry refers to a different resource the stale group is released and a new one created
//  4. Groups are released when their owner is destroyed or their pipeline is released
type BindGroupProvider interface {
	lifecycle.DestroyObserver

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Get returns a bind group for group index group of pipeline holding exactly entries.
	// An owner implementing lifecycle.Observable is observed so its groups are released on destroy.
	//
	// Parameters:
	//   - pipeline: the pipeline whose layout the group is created against
	//   - group: the bind group index
	//   - owner: a comparable identity the group belongs to; nil for shared groups
	//   - entries: the resources to bind
	//
	// Returns:
	//   - gpu.BindGroupID: the cached or newly created bind group
	//   - error: ErrAlreadyDestroyed for a destroyed owner, or a device error
	Get(pipeline gpu.PipelineID, group uint32, owner any, entries []gpu.BindGroupEntry) (gpu.BindGroupID, error)

	// ReleasePipeline releases every group created against a pipeline.
	//
	// Parameters:
	//   - pipeline: the released pipeline
	ReleasePipeline(pipeline gpu.PipelineID)

	// ReleaseOwner releases every group belonging to owner.
	//
	// Parameters:
	//   - owner: the owner identity passed to Get
	ReleaseOwner(owner any)

	// Len returns the number of cached groups.
	//
	// Returns:
	//   - int: the group count
	Len() int

	// Creations returns how many bind groups have been created, including rebuilds.
	//
	// Returns:
	//   - int: the creation count
	Creations() int

	// Release releases every cached group.
	// It will stop observing every owner.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty bind group cache.
//
// Parameters:
//   - device: the GPU device
//   - options: builder options
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(device gpu.Device, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    "bind-group",
		device:   device,
		mu:       &sync.Mutex{},
		groups:   make(map[groupKey]*boundGroup),
		observed: make(map[lifecycle.Observable]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Get(pipeline gpu.PipelineID, group uint32, owner any, entries []gpu.BindGroupEntry) (gpu.BindGroupID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if obs, ok := owner.(lifecycle.Observable); ok && !p.observed[obs] {
		if obs.Destroyed() {
			return 0, fmt.Errorf("bind group %d: %w", group, common.ErrAlreadyDestroyed)
		}
		if err := obs.Observe(p); err != nil {
			return 0, fmt.Errorf("bind group %d: %w", group, err)
		}
		p.observed[obs] = true
	}

	key := groupKey{pipeline: pipeline, group: group, owner: owner}
	if bg, ok := p.groups[key]; ok {
		if slices.Equal(bg.entries, entries) {
			return bg.id, nil
		}
		p.release(key, bg)
	}

	id, err := p.device.CreateBindGroup(gpu.BindGroupDescriptor{
		Label:    fmt.Sprintf("%s-%d-%d", p.label, pipeline, group),
		Pipeline: pipeline,
		Group:    group,
		Entries:  entries,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create bind group %d for pipeline %d: %w", group, pipeline, err)
	}
	p.groups[key] = &boundGroup{id: id, entries: slices.Clone(entries)}
	p.creations++
	return id, nil
}

func (p *bindGroupProvider) OnDestroy(owner any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseOwner(owner)
	if obs, ok := owner.(lifecycle.Observable); ok {
		delete(p.observed, obs)
	}
}

func (p *bindGroupProvider) ReleasePipeline(pipeline gpu.PipelineID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, bg := range p.groups {
		if key.pipeline == pipeline {
			p.release(key, bg)
		}
	}
}

func (p *bindGroupProvider) ReleaseOwner(owner any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseOwner(owner)
}

func (p *bindGroupProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.groups)
}

func (p *bindGroupProvider) Creations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creations
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, bg := range p.groups {
		p.release(key, bg)
	}
	for obs := range p.observed {
		obs.Unobserve(p)
	}
	clear(p.observed)
}

func (p *bindGroupProvider) releaseOwner(owner any) {
	for key, bg := range p.groups {
		if key.owner == owner {
			p.release(key, bg)
		}
	}
}

func (p *bindGroupProvider) release(key groupKey, bg *boundGroup) {
	delete(p.groups, key)
	p.device.ReleaseBindGroup(bg.id)
}

// Package resource_sync mirrors versioned CPU-side data into GPU buffers and textures, uploading only what
// has changed since the last sync.
package resource_sync

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/geometry"
	"github.com/Carmen-Shannon/keel/engine/lifecycle"
	"github.com/Carmen-Shannon/keel/engine/renderer/buffer_writer"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/texture"
)

// UniformSource is a versioned structured value serialized through a buffer writer.
type UniformSource interface {
	buffer_writer.Source

	// Version returns the source's current version. It must increase whenever an emitted value changes.
	//
	// Returns:
	//   - uint64: the version
	Version() uint64
}

// recordKey identifies one GPU resource: an owning entity plus the logical role of the resource on it.
type recordKey struct {
	owner any
	name  string
}

// record is the GPU mirror of one versioned source.
type record struct {
	label      string
	buffer     gpu.BufferID
	texture    gpu.TextureID
	sampler    gpu.SamplerID
	capacity   int
	writer     buffer_writer.Writer
	synced     bool
	lastSynced uint64
}

func (r *record) stale(version uint64) bool {
	return !r.synced || version > r.lastSynced
}

func (r *record) markSynced(version uint64) {
	r.synced = true
	r.lastSynced = version
}

// resourceSync is the implementation of the ResourceSync interface.
type resourceSync struct {
	label   string
	device  gpu.Device
	mu      *sync.Mutex
	records map[recordKey]*record
	owners  map[any][]recordKey
	uploads int
}

// ResourceSync owns the mapping from CPU sources to GPU resources.
//
// Records are created lazily on first sync and uploaded immediately. Afterwards a record is re-uploaded
// only when its source version has advanced past the last synced version, so per-frame traffic is
// proportional to the number of changed sources. A failed upload leaves the record stale and is retried by
// the next sync. When an owning entity is destroyed its records are evicted and their GPU resources
// released.
type ResourceSync interface {
	lifecycle.DestroyObserver

	// SyncGeometry mirrors the requested slots of a geometry into storage buffers. Optional vertex
	// channels the geometry has not allocated are ensured first (color filled white, texcoords zeroed)
	// without changing their version. Index data is always uploaded as 32-bit values.
	//
	// Parameters:
	//   - g: the geometry
	//   - slots: the slots to mirror
	//
	// Returns:
	//   - map[geometry.Slot]gpu.BufferID: the GPU buffer per requested slot
	//   - error: ErrAlreadyDestroyed for a destroyed geometry, ErrSizeMismatch if a slot no longer fits
	//     its buffer, or any device error
	SyncGeometry(g geometry.Geometry, slots ...geometry.Slot) (map[geometry.Slot]gpu.BufferID, error)

	// SyncUniform mirrors a structured source into a uniform buffer of exactly its byte size.
	//
	// Parameters:
	//   - owner: the entity the uniform belongs to; if it is lifecycle.Observable its destroy evicts the record
	//   - name: the binding name of the uniform on the owner
	//   - src: the source to serialize, compared by identity; use a pointer
	//
	// Returns:
	//   - gpu.BufferID: the uniform buffer
	//   - error: ErrAlreadyDestroyed for a destroyed owner, ErrSizeMismatch if the source size differs from
	//     the existing buffer, or any serialization or device error
	SyncUniform(owner any, name string, src UniformSource) (gpu.BufferID, error)

	// SyncTexture mirrors a texture and creates its sampler.
	//
	// Parameters:
	//   - t: the texture
	//
	// Returns:
	//   - gpu.TextureID: the GPU texture
	//   - gpu.SamplerID: the sampler
	//   - error: ErrAlreadyDestroyed for a destroyed texture, or any device error
	SyncTexture(t texture.Texture) (gpu.TextureID, gpu.SamplerID, error)

	// Evict releases every GPU resource recorded for owner.
	//
	// Parameters:
	//   - owner: the owning entity
	Evict(owner any)

	// Records returns the number of live GPU resource records.
	//
	// Returns:
	//   - int: the record count
	Records() int

	// Uploads returns the total number of uploads performed, including initial uploads.
	//
	// Returns:
	//   - int: the upload count
	Uploads() int

	// Release releases every recorded GPU resource and stops observing all owners.
	Release()
}

var _ ResourceSync = &resourceSync{}

// NewResourceSync creates a ResourceSync that allocates from device.
//
// Parameters:
//   - device: the GPU device
//   - options: builder options
//
// Returns:
//   - ResourceSync: the new resource sync
func NewResourceSync(device gpu.Device, options ...ResourceSyncBuilderOption) ResourceSync {
	s := &resourceSync{
		label:   "resource-sync",
		device:  device,
		mu:      &sync.Mutex{},
		records: make(map[recordKey]*record),
		owners:  make(map[any][]recordKey),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *resourceSync) SyncGeometry(g geometry.Geometry, slots ...geometry.Slot) (map[geometry.Slot]gpu.BufferID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.track(g); err != nil {
		return nil, fmt.Errorf("geometry %d: %w", g.ID(), err)
	}

	out := make(map[geometry.Slot]gpu.BufferID, len(slots))
	for _, slot := range slots {
		var data []byte
		var version uint64
		if slot == geometry.SlotIndex {
			indices, v := g.Indices().Get()
			data, version = common.SliceToBytes(indices), v
		} else {
			if !g.HasSlot(slot) {
				if err := g.Ensure(slot); err != nil {
					return nil, fmt.Errorf("geometry %d: %w", g.ID(), err)
				}
			}
			values, v := g.Buffer(slot).Get()
			data, version = common.SliceToBytes(values), v
		}

		label := fmt.Sprintf("%s-geometry-%d-%s", s.label, g.ID(), slot)
		id, err := s.syncRaw(recordKey{owner: g, name: slot.String()}, label, data, version)
		if err != nil {
			return nil, fmt.Errorf("geometry %d: %w", g.ID(), err)
		}
		out[slot] = id
	}
	return out, nil
}

func (s *resourceSync) SyncUniform(owner any, name string, src UniformSource) (gpu.BufferID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.track(owner); err != nil {
		return 0, fmt.Errorf("uniform %s: %w", name, err)
	}

	key := recordKey{owner: owner, name: name}
	size := src.ByteSize()
	r, ok := s.records[key]
	if !ok {
		label := fmt.Sprintf("%s-uniform-%s", s.label, name)
		id, err := s.device.CreateBuffer(gpu.BufferDescriptor{
			Label: label,
			Size:  uint64(size),
			Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to create uniform buffer %s: %w", name, err)
		}
		r = &record{label: label, buffer: id, capacity: size}
		s.insert(key, r)
	}
	if size != r.capacity {
		return 0, fmt.Errorf("uniform %s is %d bytes, buffer holds %d: %w", name, size, r.capacity, common.ErrSizeMismatch)
	}
	if r.writer == nil || r.writer.Source() != src {
		w, err := buffer_writer.NewWriter(src, s.device, r.buffer, r.capacity)
		if err != nil {
			return 0, fmt.Errorf("uniform %s: %w", name, err)
		}
		r.writer = w
		r.synced = false
	}

	version := src.Version()
	if r.stale(version) {
		if err := r.writer.Upload(); err != nil {
			return 0, fmt.Errorf("uniform %s: %w", name, err)
		}
		r.markSynced(version)
		s.uploads++
		common.Logger().Debug("uniform uploaded", "label", r.label, "version", version)
	}
	return r.buffer, nil
}

func (s *resourceSync) SyncTexture(t texture.Texture) (gpu.TextureID, gpu.SamplerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.track(t); err != nil {
		return 0, 0, fmt.Errorf("texture %q: %w", t.Label(), err)
	}

	key := recordKey{owner: t, name: "texture"}
	r, ok := s.records[key]
	if !ok {
		width, height := t.Size()
		label := fmt.Sprintf("%s-texture-%s", s.label, t.Label())
		id, err := s.device.CreateTexture(gpu.TextureDescriptor{
			Label:  label,
			Width:  uint32(width),
			Height: uint32(height),
			Format: t.Format(),
			Usage:  gpu.TextureUsageTextureBinding | gpu.TextureUsageCopyDst,
		})
		if err != nil {
			return 0, 0, fmt.Errorf("failed to create texture %q: %w", t.Label(), err)
		}
		sampler, err := s.device.CreateSampler(t.Sampler().Descriptor(label + "-sampler"))
		if err != nil {
			s.device.ReleaseTexture(id)
			return 0, 0, fmt.Errorf("failed to create sampler for texture %q: %w", t.Label(), err)
		}
		r = &record{label: label, texture: id, sampler: sampler, capacity: width * height * 4}
		s.insert(key, r)
	}

	pixels, version := t.Pixels().Get()
	if r.stale(version) {
		if err := s.device.WriteTexture(r.texture, pixels); err != nil {
			return 0, 0, fmt.Errorf("failed to write texture %q: %w", t.Label(), err)
		}
		r.markSynced(version)
		s.uploads++
		common.Logger().Debug("texture uploaded", "label", r.label, "version", version)
	}
	return r.texture, r.sampler, nil
}

func (s *resourceSync) OnDestroy(owner any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(owner)
}

func (s *resourceSync) Evict(owner any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := owner.(lifecycle.Observable); ok {
		o.Unobserve(s)
	}
	s.evict(owner)
}

func (s *resourceSync) Records() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *resourceSync) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

func (s *resourceSync) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for owner := range s.owners {
		if o, ok := owner.(lifecycle.Observable); ok {
			o.Unobserve(s)
		}
		s.evict(owner)
	}
}

// syncRaw mirrors an already flat byte view into a storage buffer.
func (s *resourceSync) syncRaw(key recordKey, label string, data []byte, version uint64) (gpu.BufferID, error) {
	r, ok := s.records[key]
	if !ok {
		if len(data) == 0 {
			return 0, fmt.Errorf("%s is empty: %w", key.name, common.ErrSizeMismatch)
		}
		id, err := s.device.CreateBuffer(gpu.BufferDescriptor{
			Label: label,
			Size:  uint64(len(data)),
			Usage: gpu.BufferUsageStorage | gpu.BufferUsageCopyDst,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to create %s buffer: %w", key.name, err)
		}
		r = &record{label: label, buffer: id, capacity: len(data)}
		s.insert(key, r)
	}
	if len(data) != r.capacity {
		return 0, fmt.Errorf("%s is %d bytes, buffer holds %d: %w", key.name, len(data), r.capacity, common.ErrSizeMismatch)
	}
	if r.stale(version) {
		if err := s.device.WriteBuffer(r.buffer, 0, data); err != nil {
			return 0, fmt.Errorf("failed to upload %s: %w", key.name, err)
		}
		r.markSynced(version)
		s.uploads++
		common.Logger().Debug("buffer uploaded", "label", label, "version", version, "bytes", len(data))
	}
	return r.buffer, nil
}

// track rejects destroyed owners and registers for destroy notification on first encounter.
func (s *resourceSync) track(owner any) error {
	o, ok := owner.(lifecycle.Observable)
	if !ok {
		return nil
	}
	if o.Destroyed() {
		return fmt.Errorf("sync: %w", common.ErrAlreadyDestroyed)
	}
	if _, seen := s.owners[owner]; seen {
		return nil
	}
	return o.Observe(s)
}

func (s *resourceSync) insert(key recordKey, r *record) {
	s.records[key] = r
	s.owners[key.owner] = append(s.owners[key.owner], key)
}

func (s *resourceSync) evict(owner any) {
	keys, ok := s.owners[owner]
	if !ok {
		return
	}
	for _, key := range keys {
		r := s.records[key]
		if r.buffer != 0 {
			s.device.ReleaseBuffer(r.buffer)
		}
		if r.texture != 0 {
			s.device.ReleaseTexture(r.texture)
		}
		if r.sampler != 0 {
			s.device.ReleaseSampler(r.sampler)
		}
		delete(s.records, key)
	}
	delete(s.owners, owner)
	common.Logger().Debug("resources evicted", "records", len(keys))
}

package resource_sync

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/geometry"
	"github.com/Carmen-Shannon/keel/engine/renderer/buffer_writer"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/keel/engine/renderer/texture"
	"github.com/go-gl/mathgl/mgl32"
)

type testUniform struct {
	value   float32
	version uint64
	emitted int
}

func (u *testUniform) ByteSize() int { return 4 }

func (u *testUniform) Emit(e *buffer_writer.Emitter) {
	for i := 0; i < u.emitted; i++ {
		e.Scalar(u.value)
	}
}

func (u *testUniform) Version() uint64 { return u.version }

func (u *testUniform) set(v float32) {
	u.value = v
	u.version++
}

type wideUniform struct{ testUniform }

func (u *wideUniform) ByteSize() int { return 8 }

func newQuad(t *testing.T) geometry.Geometry {
	t.Helper()
	g, err := geometry.Quad(geometry.NewAllocator(), mgl32.Vec2{}, mgl32.Vec2{1, 1})
	if err != nil {
		t.Fatalf("Quad() error = %v", err)
	}
	return g
}

func TestSyncGeometryCreatesAndUploadsOnFirstEncounter(t *testing.T) {
	d := gputest.NewDevice(4, 4)
	s := NewResourceSync(d)
	g := newQuad(t)

	ids, err := s.SyncGeometry(g, geometry.SlotPosition, geometry.SlotIndex)
	if err != nil {
		t.Fatalf("SyncGeometry() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("SyncGeometry() returned %d buffers, want 2", len(ids))
	}
	if got := d.Buffers[ids[geometry.SlotPosition]].Desc.Size; got != 4*3*4 {
		t.Errorf("position buffer size = %d, want %d", got, 4*3*4)
	}
	if got := d.Buffers[ids[geometry.SlotIndex]].Desc.Size; got != 6*4 {
		t.Errorf("index buffer size = %d, want %d (32-bit indices)", got, 6*4)
	}
	for slot, id := range ids {
		if d.BufferWrites(id) != 1 {
			t.Errorf("%s writes = %d, want 1", slot, d.BufferWrites(id))
		}
	}
	if s.Records() != 2 || s.Uploads() != 2 {
		t.Errorf("Records() = %d, Uploads() = %d, want 2 and 2", s.Records(), s.Uploads())
	}

	again, _ := s.SyncGeometry(g, geometry.SlotPosition, geometry.SlotIndex)
	if again[geometry.SlotPosition] != ids[geometry.SlotPosition] {
		t.Error("second sync allocated a new position buffer")
	}
	if s.Uploads() != 2 {
		t.Errorf("Uploads() after unchanged sync = %d, want 2", s.Uploads())
	}
}

func TestSyncUploadsOncePerObservedVersion(t *testing.T) {
	d := gputest.NewDevice(4, 4)
	s := NewResourceSync(d)
	g := newQuad(t)
	positions := make([]float32, 12)

	// Steps are mutations (m) and syncs (s); uploads follow the distinct versions seen at sync time.
	steps := "smmsssmsmmms"
	distinct := 0
	last := uint64(math.MaxUint64)
	var id uint64
	for _, step := range steps {
		switch step {
		case 'm':
			positions[0]++
			if err := g.SetPositions(positions); err != nil {
				t.Fatalf("SetPositions() error = %v", err)
			}
		case 's':
			ids, err := s.SyncGeometry(g, geometry.SlotPosition)
			if err != nil {
				t.Fatalf("SyncGeometry() error = %v", err)
			}
			id = uint64(ids[geometry.SlotPosition])
			if v := g.Buffer(geometry.SlotPosition).Version(); v != last {
				distinct++
				last = v
			}
		}
	}

	if got := d.TotalBufferWrites(); got != distinct {
		t.Errorf("uploads = %d, want %d distinct versions", got, distinct)
	}
	data := d.Buffers[gpu.BufferID(id)].Data
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data)); got != positions[0] {
		t.Errorf("uploaded x = %v, want %v", got, positions[0])
	}
}

func TestSyncGeometryEnsuresMissingChannels(t *testing.T) {
	d := gputest.NewDevice(4, 4)
	s := NewResourceSync(d)
	g, _ := geometry.NewAllocator().New(2, 3)

	ids, err := s.SyncGeometry(g, geometry.SlotColor, geometry.SlotTexCoord)
	if err != nil {
		t.Fatalf("SyncGeometry() error = %v", err)
	}
	if !g.HasSlot(geometry.SlotColor) || !g.HasSlot(geometry.SlotTexCoord) {
		t.Fatal("missing channels were not ensured")
	}
	if v := g.Buffer(geometry.SlotColor).Version(); v != 0 {
		t.Errorf("color version = %d, want 0", v)
	}
	data := d.Buffers[ids[geometry.SlotColor]].Data
	for i := 0; i < len(data); i += 4 {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(data[i:])); got != 1 {
			t.Fatalf("color float %d = %v, want 1", i/4, got)
		}
	}
}

func TestDestroyEvictsRecords(t *testing.T) {
	d := gputest.NewDevice(4, 4)
	s := NewResourceSync(d)
	g := newQuad(t)
	keep := newQuad(t)

	ids, _ := s.SyncGeometry(g, geometry.SlotPosition, geometry.SlotIndex)
	if _, err := s.SyncGeometry(keep, geometry.SlotPosition); err != nil {
		t.Fatalf("SyncGeometry() error = %v", err)
	}

	if err := g.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if s.Records() != 1 {
		t.Errorf("Records() after destroy = %d, want 1", s.Records())
	}
	for _, id := range ids {
		if _, ok := d.Buffers[id]; ok {
			t.Errorf("buffer %d still allocated after destroy", id)
		}
	}
	if len(d.ReleasedBuffers) != 2 {
		t.Errorf("released %d buffers, want 2", len(d.ReleasedBuffers))
	}

	_, err := s.SyncGeometry(g, geometry.SlotPosition)
	if !errors.Is(err, common.ErrAlreadyDestroyed) {
		t.Errorf("SyncGeometry() after destroy error = %v, want ErrAlreadyDestroyed", err)
	}
	if s.Records() != 1 {
		t.Errorf("sync of destroyed geometry created records: %d", s.Records())
	}
}

func TestSyncUniform(t *testing.T) {
	d := gputest.NewDevice(4, 4)
	s := NewResourceSync(d)
	owner := &struct{ name string }{"material"}
	u := &testUniform{value: 1, emitted: 1}

	id, err := s.SyncUniform(owner, "color", u)
	if err != nil {
		t.Fatalf("SyncUniform() error = %v", err)
	}
	if _, err := s.SyncUniform(owner, "color", u); err != nil {
		t.Fatalf("SyncUniform() error = %v", err)
	}
	if d.BufferWrites(id) != 1 {
		t.Errorf("writes = %d, want 1", d.BufferWrites(id))
	}

	u.set(2)
	if _, err := s.SyncUniform(owner, "color", u); err != nil {
		t.Fatalf("SyncUniform() error = %v", err)
	}
	if d.BufferWrites(id) != 2 {
		t.Errorf("writes after change = %d, want 2", d.BufferWrites(id))
	}

	wide := &wideUniform{testUniform{emitted: 2}}
	if _, err := s.SyncUniform(owner, "color", wide); !errors.Is(err, common.ErrSizeMismatch) {
		t.Errorf("SyncUniform(wider) error = %v, want ErrSizeMismatch", err)
	}
}

func TestFailedUploadIsRetried(t *testing.T) {
	d := gputest.NewDevice(4, 4)
	s := NewResourceSync(d)
	owner := &struct{}{}
	u := &testUniform{value: 3}

	id, err := s.SyncUniform(owner, "params", u)
	if !errors.Is(err, common.ErrSizeMismatch) {
		t.Fatalf("SyncUniform(underfilled) error = %v, want ErrSizeMismatch", err)
	}
	if id != 0 {
		t.Errorf("SyncUniform() returned buffer %d on failure", id)
	}

	u.emitted = 1
	id, err = s.SyncUniform(owner, "params", u)
	if err != nil {
		t.Fatalf("SyncUniform() retry error = %v", err)
	}
	if d.BufferWrites(id) != 1 {
		t.Errorf("writes after retry = %d, want 1", d.BufferWrites(id))
	}
}

func TestSyncTexture(t *testing.T) {
	d := gputest.NewDevice(4, 4)
	s := NewResourceSync(d)
	tex, _ := texture.NewTexture(1, 1, texture.WithLabel("pixel"))

	id, sampler, err := s.SyncTexture(tex)
	if err != nil {
		t.Fatalf("SyncTexture() error = %v", err)
	}
	if _, ok := d.Samplers[sampler]; !ok {
		t.Error("sampler was not created")
	}
	s.SyncTexture(tex)
	if d.Textures[id].Writes != 1 {
		t.Errorf("texture writes = %d, want 1", d.Textures[id].Writes)
	}

	tex.SetPixels([]byte{1, 2, 3, 4})
	s.SyncTexture(tex)
	if d.Textures[id].Writes != 2 {
		t.Errorf("texture writes after change = %d, want 2", d.Textures[id].Writes)
	}

	tex.Destroy()
	if _, ok := d.Textures[id]; ok {
		t.Error("texture still allocated after destroy")
	}
	if _, ok := d.Samplers[sampler]; ok {
		t.Error("sampler still allocated after destroy")
	}
}

func TestRelease(t *testing.T) {
	d := gputest.NewDevice(4, 4)
	s := NewResourceSync(d)
	g := newQuad(t)
	s.SyncGeometry(g, geometry.SlotPosition, geometry.SlotIndex)
	s.SyncUniform(g, "transform", &testUniform{emitted: 1})

	s.Release()
	if s.Records() != 0 {
		t.Errorf("Records() after Release = %d, want 0", s.Records())
	}
	if len(d.Buffers) != 0 {
		t.Errorf("%d buffers still allocated", len(d.Buffers))
	}
	if err := g.Destroy(); err != nil {
		t.Errorf("Destroy() after Release error = %v", err)
	}
}

package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/buffer_writer"
	"github.com/go-gl/mathgl/mgl32"
)

func TestCameraUniform(t *testing.T) {
	c := NewCamera(WithViewport(800, 600))
	if got := buffer_writer.SizeOf(c.Emit); got != c.ByteSize() {
		t.Fatalf("emitted %d bytes, ByteSize() = %d", got, c.ByteSize())
	}

	var e buffer_writer.Emitter
	c.Emit(&e)
	fields := e.Fields()
	if len(fields) != 2 || fields[0].Kind != buffer_writer.FieldMat4 || fields[1].Kind != buffer_writer.FieldVec4 {
		t.Fatalf("Fields() = %+v, want mat4 then vec4", fields)
	}
	want := []float32{800, 600, 1.0 / 800, 1.0 / 600}
	for i, v := range want {
		if fields[1].Values[i] != v {
			t.Errorf("viewport[%d] = %v, want %v", i, fields[1].Values[i], v)
		}
	}
	if got := c.Aspect(); math.Abs(float64(got)-800.0/600.0) > 1e-6 {
		t.Errorf("Aspect() = %v, want %v", got, 800.0/600.0)
	}
}

func TestCameraDepthRange(t *testing.T) {
	tests := []struct {
		name   string
		camera Camera
	}{
		{"perspective", NewCamera(WithClipPlanes(1, 10), WithPosition(mgl32.Vec3{0, 0, 0}), WithTarget(mgl32.Vec3{0, 0, -1}))},
		{"orthographic", NewOrthographicCamera(2, WithClipPlanes(1, 10), WithPosition(mgl32.Vec3{0, 0, 0}), WithTarget(mgl32.Vec3{0, 0, -1}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := tt.camera.ViewProjectionMatrix()
			for _, d := range []struct {
				z, depth float32
			}{{-1, 0}, {-10, 1}} {
				clip := vp.Mul4x1(mgl32.Vec4{0, 0, d.z, 1})
				if got := clip.Z() / clip.W(); math.Abs(float64(got-d.depth)) > 1e-5 {
					t.Errorf("depth at z=%v is %v, want %v", d.z, got, d.depth)
				}
			}
		})
	}
}

func TestCameraVersion(t *testing.T) {
	c := NewCamera()
	v := c.Version()

	c.SetPosition(mgl32.Vec3{1, 2, 3})
	c.LookAt(mgl32.Vec3{0, 1, 0})
	c.SetFov(mgl32.DegToRad(60))
	c.SetViewport(640, 480)
	if got := c.Version(); got != v+4 {
		t.Errorf("Version() = %d after 4 changes, want %d", got, v+4)
	}

	c.SetViewport(640, 480)
	c.SetViewport(0, 100)
	c.Update()
	if got := c.Version(); got != v+4 {
		t.Errorf("Version() = %d after no-op changes, want %d", got, v+4)
	}
}

func TestCameraFrustum(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 0, 5}), WithClipPlanes(0.1, 100))
	f := c.Frustum()

	tests := []struct {
		name    string
		box     common.Box3
		visible bool
	}{
		{"origin", common.Box3{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}, true},
		{"behind", common.Box3{Min: mgl32.Vec3{-1, -1, 8}, Max: mgl32.Vec3{1, 1, 10}}, false},
		{"far left", common.Box3{Min: mgl32.Vec3{-60, -1, -1}, Max: mgl32.Vec3{-50, 1, 1}}, false},
		{"past far plane", common.Box3{Min: mgl32.Vec3{-1, -1, -200}, Max: mgl32.Vec3{1, 1, -150}}, false},
	}
	for _, tt := range tests {
		if got := f.IntersectsBox(tt.box); got != tt.visible {
			t.Errorf("%s: IntersectsBox() = %v, want %v", tt.name, got, tt.visible)
		}
	}
}

func TestOrbitController(t *testing.T) {
	oc := NewOrbitController(WithRadius(10), WithAngles(0, 0), WithRadiusBounds(2, 20))
	if got := oc.Position(); !got.ApproxEqualThreshold(mgl32.Vec3{0, 0, 10}, 1e-5) {
		t.Errorf("Position() = %v, want (0, 0, 10)", got)
	}

	oc.Zoom(100)
	if got := oc.Radius(); got != 2 {
		t.Errorf("Radius() after zoom in = %v, want 2", got)
	}
	oc.Orbit(0, 1000)
	if got := oc.Elevation(); got >= float32(math.Pi/2) {
		t.Errorf("Elevation() = %v, want clamped below pi/2", got)
	}

	before := oc.Position().Sub(oc.Target())
	oc.Pan(3, 0)
	if after := oc.Position().Sub(oc.Target()); !after.ApproxEqualThreshold(before, 1e-5) {
		t.Errorf("Pan() changed the orbit offset from %v to %v", before, after)
	}

	c := NewCamera(WithController(oc))
	v := c.Version()
	oc.Orbit(1, 0)
	c.Update()
	if c.Version() != v+1 || c.Position() != oc.Position() {
		t.Errorf("Update() did not follow the controller: version %d, position %v", c.Version(), c.Position())
	}
}

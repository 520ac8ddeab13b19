package scene

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/camera"
	"github.com/Carmen-Shannon/keel/engine/geometry"
	"github.com/Carmen-Shannon/keel/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

type destroyRecorder struct {
	owners []any
}

func (d *destroyRecorder) OnDestroy(owner any) {
	d.owners = append(d.owners, owner)
}

func fixtures(t *testing.T) (geometry.Geometry, material.Material) {
	t.Helper()
	g, err := geometry.Quad(geometry.NewAllocator(), mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1})
	if err != nil {
		t.Fatalf("Quad() error = %v", err)
	}
	m, err := material.NewBasicMaterial()
	if err != nil {
		t.Fatalf("NewBasicMaterial() error = %v", err)
	}
	return g, m
}

func labels(drawables []Drawable) []string {
	out := make([]string, len(drawables))
	for i, d := range drawables {
		out[i] = d.Owner.Label()
	}
	return out
}

func TestCollectDrawablesOrder(t *testing.T) {
	g, m := fixtures(t)
	root := NewNode(WithLabel("root"))
	a := NewMesh(g, m, WithLabel("a"))
	b := NewMesh(g, m, WithLabel("b"))
	c := NewMesh(g, m, WithLabel("c"))
	hidden := NewMesh(g, m, WithLabel("hidden"), WithVisible(false))
	underHidden := NewMesh(g, m, WithLabel("under-hidden"))
	bare := NewMesh(g, nil, WithLabel("bare"))

	for _, err := range []error{
		root.Add(a, c, hidden, bare),
		a.Add(b),
		hidden.Add(underHidden),
	} {
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	got := labels(CollectDrawables(root))
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("CollectDrawables() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CollectDrawables()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if CollectDrawables(nil) != nil {
		t.Error("CollectDrawables(nil) returned drawables")
	}
}

func TestWorldMatrices(t *testing.T) {
	g, m := fixtures(t)
	parent := NewNode(WithPosition(mgl32.Vec3{1, 0, 0}), WithScale(mgl32.Vec3{2, 2, 2}))
	child := NewMesh(g, m, WithPosition(mgl32.Vec3{0, 1, 0}))
	if err := parent.Add(child); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	CollectDrawables(parent)
	world, v := child.WorldMatrix().Get()
	if origin := mgl32.TransformCoordinate(mgl32.Vec3{}, world); !origin.ApproxEqualThreshold(mgl32.Vec3{1, 2, 0}, 1e-5) {
		t.Errorf("child origin = %v, want (1, 2, 0)", origin)
	}

	CollectDrawables(parent)
	if got := child.WorldMatrix().Version(); got != v {
		t.Errorf("Version() after unchanged traversal = %d, want %d", got, v)
	}

	parent.SetEuler(0, 0, mgl32.DegToRad(90))
	CollectDrawables(parent)
	if got := child.WorldMatrix().Version(); got != v+1 {
		t.Errorf("Version() after parent rotation = %d, want %d", got, v+1)
	}
	world = child.WorldMatrix().Value()
	if origin := mgl32.TransformCoordinate(mgl32.Vec3{}, world); !origin.ApproxEqualThreshold(mgl32.Vec3{-1, 0, 0}, 1e-5) {
		t.Errorf("rotated child origin = %v, want (-1, 0, 0)", origin)
	}
}

func TestFrustumCulling(t *testing.T) {
	g, m := fixtures(t)
	root := NewNode()
	near := NewMesh(g, m, WithLabel("near"))
	far := NewMesh(g, m, WithLabel("far"), WithPosition(mgl32.Vec3{100, 0, 0}))
	if err := root.Add(near, far); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	cam := camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, 5}))

	tests := []struct {
		name    string
		options []CollectOption
		want    int
	}{
		{"no culling", nil, 2},
		{"culling", []CollectOption{WithFrustum(cam.Frustum())}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CollectDrawables(root, tt.options...)
			if len(got) != tt.want {
				t.Errorf("CollectDrawables() = %v, want %d drawables", labels(got), tt.want)
			}
		})
	}
}

func TestAddRemove(t *testing.T) {
	a, b, c := NewNode(WithLabel("a")), NewNode(WithLabel("b")), NewNode(WithLabel("c"))
	if err := a.Add(b); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := b.Add(c); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := c.Add(a); err == nil {
		t.Error("Add() of an ancestor succeeded")
	}
	if err := a.Add(a); err == nil {
		t.Error("Add() of itself succeeded")
	}

	if err := a.Add(c); err != nil {
		t.Fatalf("Add() reparent error = %v", err)
	}
	if c.Parent() != a || len(b.Children()) != 0 || len(a.Children()) != 2 {
		t.Errorf("reparent: parent = %v, b children = %d, a children = %d", c.Parent(), len(b.Children()), len(a.Children()))
	}

	a.Remove(b)
	if b.Parent() != nil || len(a.Children()) != 1 {
		t.Errorf("Remove(): parent = %v, a children = %d", b.Parent(), len(a.Children()))
	}
	a.Remove(b)
}

func TestDestroySubtree(t *testing.T) {
	g, m := fixtures(t)
	root := NewNode(WithLabel("root"))
	branch := NewNode(WithLabel("branch"))
	leaf := NewMesh(g, m, WithLabel("leaf"))
	if err := root.Add(branch); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := branch.Add(leaf); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rec := &destroyRecorder{}
	for _, n := range []Node{branch, leaf} {
		if err := n.Observe(rec); err != nil {
			t.Fatalf("Observe() error = %v", err)
		}
	}
	if err := branch.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	if len(rec.owners) != 2 || rec.owners[0] != leaf || rec.owners[1] != branch {
		t.Errorf("destroy notifications = %v, want leaf then branch", rec.owners)
	}
	if len(root.Children()) != 0 {
		t.Error("destroyed branch still attached")
	}
	if g.Destroyed() || m.Destroyed() {
		t.Error("destroying a mesh destroyed its shared geometry or material")
	}
	if err := branch.Destroy(); !errors.Is(err, common.ErrAlreadyDestroyed) {
		t.Errorf("second Destroy() error = %v, want ErrAlreadyDestroyed", err)
	}
	if err := root.Add(leaf); !errors.Is(err, common.ErrAlreadyDestroyed) {
		t.Errorf("Add() of destroyed node error = %v, want ErrAlreadyDestroyed", err)
	}
}

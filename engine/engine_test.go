package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/keel/engine/scene"
	"github.com/Carmen-Shannon/keel/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// fakeWindow runs a bounded message loop without a platform window.
type fakeWindow struct {
	frames  int
	running bool
	stopped bool
	closes  int

	update func()
	resize func(width, height int)
	scroll func(delta float32)
	drag   func(button window.MouseButton, dx, dy float32)
}

func (w *fakeWindow) SetUpdateCallback(callback func())                  { w.update = callback }
func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.resize = callback }
func (w *fakeWindow) SetScrollCallback(callback func(delta float32))     { w.scroll = callback }
func (w *fakeWindow) SetKeyCallback(func(key glfw.Key, down bool))       {}
func (w *fakeWindow) SetDragCallback(callback func(button window.MouseButton, dx, dy float32)) {
	w.drag = callback
}
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) SetTitle(string)                            {}
func (w *fakeWindow) Size() (int, int)                           { return 320, 240 }
func (w *fakeWindow) IsRunning() bool                            { return w.running }

func (w *fakeWindow) ProcessMessages() {
	for i := 0; i < w.frames && w.running && !w.stopped; i++ {
		if w.update != nil {
			w.update()
		}
	}
}

func (w *fakeWindow) Stop() { w.stopped = true }

func (w *fakeWindow) Close() error {
	if !w.running {
		return errors.New("window already closed")
	}
	w.running = false
	w.closes++
	return nil
}

// stepClock advances by step on every reading.
func stepClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func newTestEngine(t *testing.T, frames int, options ...EngineBuilderOption) (*engine, *fakeWindow, *gputest.Device) {
	t.Helper()
	w := &fakeWindow{frames: frames, running: true}
	dev := gputest.NewDevice(320, 240)
	r, err := renderer.NewRenderer(dev)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	e := newEngine(append([]EngineBuilderOption{WithWindow(w)}, options...)...)
	e.attach(r)
	return e, w, dev
}

func TestEngineRunTicksAndRenders(t *testing.T) {
	e, w, dev := newTestEngine(t, 3, WithTickRate(60), WithRoot(scene.NewNode()))
	e.now = stepClock(time.Second / 30)

	ticks, renders := 0, 0
	e.SetTickCallback(func(dt float32) {
		ticks++
		if dt <= 0 {
			t.Errorf("tick dt = %v, want > 0", dt)
		}
	})
	e.SetRenderCallback(func(float32) { renders++ })

	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ticks != 6 {
		t.Errorf("ticks = %d, want 6", ticks)
	}
	if renders != 3 {
		t.Errorf("renders = %d, want 3", renders)
	}
	if dev.Presents != 3 {
		t.Errorf("Presents = %d, want 3", dev.Presents)
	}
	if !dev.Released {
		t.Error("device not released after Run()")
	}
	if w.running || w.closes != 1 {
		t.Errorf("window running = %v closes = %d, want closed once", w.running, w.closes)
	}
}

func TestEngineTickCatchUpIsBounded(t *testing.T) {
	e, _, _ := newTestEngine(t, 1, WithTickRate(100))
	e.now = stepClock(time.Second)

	ticks := 0
	e.SetTickCallback(func(float32) { ticks++ })
	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ticks != maxTicksPerFrame {
		t.Errorf("ticks = %d, want %d", ticks, maxTicksPerFrame)
	}
	if e.accumulator != 0 {
		t.Errorf("accumulator = %v, want 0 after a stall", e.accumulator)
	}
}

func TestEngineQuitsOnDeviceLost(t *testing.T) {
	e, w, dev := newTestEngine(t, 5)
	e.now = stepClock(time.Millisecond)
	dev.FailSubmit = errors.New("lost")

	err := e.Run()
	if !errors.Is(err, common.ErrDeviceLost) {
		t.Fatalf("Run() error = %v, want %v", err, common.ErrDeviceLost)
	}
	if dev.Frames != 1 {
		t.Errorf("Frames = %d, want 1", dev.Frames)
	}
	if !w.stopped || w.closes != 1 {
		t.Errorf("stopped = %v closes = %d, want stopped and closed once", w.stopped, w.closes)
	}
}

func TestEngineQuit(t *testing.T) {
	e, w, dev := newTestEngine(t, 10)
	e.now = stepClock(time.Millisecond)
	e.SetRenderCallback(func(float32) { e.Quit() })

	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if dev.Frames != 1 {
		t.Errorf("Frames = %d, want 1", dev.Frames)
	}
	e.Quit()
	if w.closes != 1 {
		t.Errorf("closes = %d, want 1", w.closes)
	}
}

func TestEngineResizeCallback(t *testing.T) {
	e, w, dev := newTestEngine(t, 0)
	w.resize(640, 480)
	if width, height := dev.SurfaceSize(); width != 640 || height != 480 {
		t.Errorf("SurfaceSize() = %d, %d, want 640, 480", width, height)
	}
	if width, height := e.Renderer().Camera().Viewport(); width != 640 || height != 480 {
		t.Errorf("Viewport() = %d, %d, want 640, 480", width, height)
	}
}

func TestEngineOrbitControls(t *testing.T) {
	e, w, _ := newTestEngine(t, 0, WithOrbitControls(true))
	cam := e.Renderer().Camera()
	start := cam.Position()

	w.scroll(1)
	w.drag(window.MouseButtonLeft, 10, 0)
	cam.Update()

	ctrl := cam.Controller()
	if ctrl == nil {
		t.Fatal("Controller() = nil, want an orbit controller")
	}
	if cam.Position() == start {
		t.Errorf("Position() = %v, want a moved camera", cam.Position())
	}
}

func TestEngineWithoutOrbitControls(t *testing.T) {
	_, w, _ := newTestEngine(t, 0)
	if w.scroll != nil || w.drag != nil {
		t.Error("input callbacks registered without orbit controls")
	}
}

func TestEngineProfilerToggle(t *testing.T) {
	e, _, _ := newTestEngine(t, 0, WithProfiling(true))
	if !e.profilingEnabled {
		t.Error("profilingEnabled = false, want true")
	}
	e.DisableProfiler()
	if e.profilingEnabled {
		t.Error("profilingEnabled = true after DisableProfiler()")
	}
	e.SetRenderFrameLimit(0)
	if e.renderFrameLimit != 0 {
		t.Errorf("renderFrameLimit = %v, want 0", e.renderFrameLimit)
	}
	e.SetTickRate(0)
	if e.tickRate != time.Second/60 {
		t.Errorf("tickRate = %v, want %v", e.tickRate, time.Second/60)
	}
}

package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/camera"
	"github.com/Carmen-Shannon/keel/engine/profiler"
	"github.com/Carmen-Shannon/keel/engine/renderer"
	"github.com/Carmen-Shannon/keel/engine/renderer/wgpu_backend"
	"github.com/Carmen-Shannon/keel/engine/scene"
	"github.com/Carmen-Shannon/keel/engine/window"
)

// maxTicksPerFrame bounds the fixed-step catch-up after a stall.
const maxTicksPerFrame = 8

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	window   window.Window
	renderer renderer.Renderer
	root     scene.Node

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickRate         time.Duration
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	tickCallback     func(deltaTime float32)
	renderCallback   func(deltaTime float32)
	orbitControls    bool
	now              func() time.Time

	// Frame loop state
	lastFrame   time.Time
	accumulator time.Duration
	err         error
	quitOnce    sync.Once

	// Pre-creation config collected from builder options
	deviceOptions   []wgpu_backend.DeviceBuilderOption
	rendererOptions []renderer.RendererBuilderOption
}

// Engine drives a window, a renderer and a scene graph.
//
// All work runs on the window thread: each message loop iteration runs the tick callback at a fixed rate,
// then the render callback, then renders the scene root.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer drawing into the window.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Root returns the scene graph root rendered each frame.
	//
	// Returns:
	//   - scene.Node: the root node
	Root() scene.Node

	// SetRoot replaces the scene graph root.
	//
	// Parameters:
	//   - root: the new root; nil renders an empty scene
	SetRoot(root scene.Node)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic and animation updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the fixed tick duration in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each frame before the scene is rendered.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run runs the message loop until the window closes or Quit is called, then destroys the renderer and
	// closes the window.
	//
	// Returns:
	//   - error: the render error that stopped the loop, or nil
	Run() error

	// Quit stops the loop after the current frame. Run then destroys the renderer before closing the window.
	// Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a window (unless WithWindow supplies one), a WebGPU device for its surface and a
// renderer drawing with that device.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the renderer cannot be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := newEngine(options...)
	if e.window == nil {
		e.window = window.NewWindow()
	}
	width, height := e.window.Size()
	device := wgpu_backend.NewDevice(e.window.SurfaceDescriptor(),
		append([]wgpu_backend.DeviceBuilderOption{wgpu_backend.WithSurfaceSize(width, height)}, e.deviceOptions...)...)
	r, err := renderer.NewRenderer(device, e.rendererOptions...)
	if err != nil {
		device.Release()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	e.attach(r)
	return e, nil
}

func newEngine(options ...EngineBuilderOption) *engine {
	e := &engine{
		mu:       &sync.Mutex{},
		profiler: profiler.NewProfiler(),
		tickRate: time.Second / 60,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// attach wires the renderer and the window input to the engine.
func (e *engine) attach(r renderer.Renderer) {
	e.renderer = r
	e.window.SetResizeCallback(func(width, height int) {
		e.renderer.Resize(width, height)
	})
	e.window.SetUpdateCallback(e.frame)
	if !e.orbitControls {
		return
	}
	e.window.SetScrollCallback(func(delta float32) {
		if ctrl := e.controller(); ctrl != nil {
			ctrl.Zoom(delta)
		}
	})
	e.window.SetDragCallback(func(button window.MouseButton, dx, dy float32) {
		ctrl := e.controller()
		if ctrl == nil {
			return
		}
		switch button {
		case window.MouseButtonLeft:
			ctrl.Orbit(-dx, dy)
		case window.MouseButtonMiddle, window.MouseButtonRight:
			ctrl.Pan(-dx, dy)
		}
	})
}

// controller returns the orbit controller of the renderer's camera, attaching a new one on first use.
func (e *engine) controller() *camera.OrbitController {
	cam := e.renderer.Camera()
	if ctrl := cam.Controller(); ctrl != nil {
		return ctrl
	}
	ctrl := camera.NewOrbitController(camera.WithOrbitTarget(cam.Target()))
	cam.SetController(ctrl)
	return ctrl
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Root() scene.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

func (e *engine) SetRoot(root scene.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.root = root
}

func (e *engine) Run() error {
	e.lastFrame = e.now()
	e.window.ProcessMessages()

	var errs []error
	if err := e.renderer.Destroy(); err != nil && !errors.Is(err, common.ErrAlreadyDestroyed) {
		errs = append(errs, err)
	}
	if err := e.window.Close(); err != nil {
		common.Logger().Debug("window already closed", "error", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Join(append([]error{e.err}, errs...)...)
}

func (e *engine) Quit() {
	e.quitOnce.Do(e.window.Stop)
}

// frame runs one message loop iteration: fixed-rate ticks, the render callback, then the render.
func (e *engine) frame() {
	now := e.now()
	elapsed := now.Sub(e.lastFrame)
	e.lastFrame = now

	e.mu.Lock()
	tickRate, tick, render, root := e.tickRate, e.tickCallback, e.renderCallback, e.root
	profiling, limit := e.profilingEnabled, e.renderFrameLimit
	e.mu.Unlock()

	e.accumulator += elapsed
	for ticks := 0; e.accumulator >= tickRate; ticks++ {
		if ticks == maxTicksPerFrame {
			e.accumulator = 0
			break
		}
		e.accumulator -= tickRate
		if tick != nil {
			tick(float32(tickRate.Seconds()))
		}
	}

	if render != nil {
		render(float32(elapsed.Seconds()))
	}
	e.renderer.Camera().Update()
	if err := e.renderer.Render(root, nil); err != nil {
		if errors.Is(err, common.ErrDeviceLost) || errors.Is(err, common.ErrAlreadyDestroyed) {
			e.mu.Lock()
			e.err = err
			e.mu.Unlock()
			e.Quit()
			return
		}
		common.Logger().Warn("frame failed", "error", err)
	}

	if profiling {
		e.profiler.Tick(e.renderer.Stats())
	}

	if limit > 0 {
		if remaining := limit - e.now().Sub(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickRate = tickDuration(fps)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameLimit(fps)
}

func tickDuration(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

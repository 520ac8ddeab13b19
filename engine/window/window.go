package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// MouseButton identifies the mouse button held during a drag.
type MouseButton int

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// Window provides a platform window, its WebGPU surface and input events.
type Window interface {
	// SetUpdateCallback sets the function called once per message loop iteration, after events are polled.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyCallback sets the callback for key presses, repeats and releases.
	//
	// Parameters:
	//   - callback: function receiving the key and whether it is held down
	SetKeyCallback(callback func(key glfw.Key, down bool))

	// SetDragCallback sets the callback for cursor movement while a mouse button is held.
	//
	// Parameters:
	//   - callback: function receiving the held button and the cursor movement in pixels
	SetDragCallback(callback func(button MouseButton, dx, dy float32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// SetTitle replaces the title bar text.
	//
	// Parameters:
	//   - title: the new title
	SetTitle(title string)

	// Size returns the current framebuffer size in pixels.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (int, int)

	// IsRunning returns true if the window is still open.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls the update callback each iteration.
	ProcessMessages()

	// Stop asks ProcessMessages to return after the current iteration. The window stays open until Close.
	Stop()

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window is already closed
	Close() error
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title         string
	width, height int
	resizable     bool

	platform *glfwWindow

	onUpdate func()
	onResize func(width, height int)
	onScroll func(delta float32)
	onKey    func(key glfw.Key, down bool)
	onDrag   func(button MouseButton, dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// The calling goroutine is locked to its OS thread, which must also drive ProcessMessages.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "keel",
		width:     1280,
		height:    720,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key glfw.Key, down bool)) {
	w.onKey = callback
}

func (w *engineWindow) SetDragCallback(callback func(button MouseButton, dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformSurfaceDescriptor(w)
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	if w.platform != nil {
		w.platform.window.SetTitle(title)
	}
}

func (w *engineWindow) Size() (int, int) {
	return w.width, w.height
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunning(w)
}

func (w *engineWindow) Stop() {
	platformStop(w)
}

func (w *engineWindow) Close() error {
	return platformClose(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if !platformPollEvents(w) {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

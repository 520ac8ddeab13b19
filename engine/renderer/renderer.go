package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/camera"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/material"
	"github.com/Carmen-Shannon/keel/engine/scene"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device   gpu.Device
	pipeline *renderPipeline

	camera         camera.Camera
	frustumCulling bool
	destroyed      bool

	// Pre-creation config collected from builder options
	pendingClearColor *common.Color
	pendingStages     []material.Material
}

// Renderer is the top-level entry of the rendering system.
//
// It collects the drawables of a scene graph each frame and forwards them to a RenderPipeline, which keeps
// the GPU copies of geometry, material uniforms and textures in sync, caches pipeline states per material and
// rendering mode, and runs the post-processing stage chain before presenting.
type Renderer interface {
	// Device returns the GPU device the renderer draws with.
	//
	// Returns:
	//   - gpu.Device: the device
	Device() gpu.Device

	// ClearColor returns the color the main pass is cleared to.
	//
	// Returns:
	//   - common.Color: the clear color
	ClearColor() common.Color

	// SetClearColor sets the color the main pass is cleared to.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c common.Color)

	// Camera returns the camera used when Render is called without one.
	//
	// Returns:
	//   - camera.Camera: the default camera
	Camera() camera.Camera

	// SetCamera replaces the default camera. A nil camera is ignored.
	//
	// Parameters:
	//   - cam: the new default camera
	SetCamera(cam camera.Camera)

	// FrustumCulling reports whether meshes outside the camera frustum are skipped.
	//
	// Returns:
	//   - bool: true if frustum culling is enabled
	FrustumCulling() bool

	// SetFrustumCulling enables or disables frustum culling.
	//
	// Parameters:
	//   - enabled: true to cull meshes outside the camera frustum
	SetFrustumCulling(enabled bool)

	// Stages returns the post-processing stage chain.
	//
	// Returns:
	//   - StageChain: the chain
	Stages() StageChain

	// SetRenderStages replaces the post-processing stage chain. Stages no longer in the chain have their GPU
	// resources released. The chain is left unchanged if any stage is invalid.
	//
	// Parameters:
	//   - stages: the post-process materials in render order; none clears the chain
	//
	// Returns:
	//   - error: ErrUnsupportedLayout for a scene material, ErrAlreadyDestroyed for a destroyed one
	SetRenderStages(stages ...material.Material) error

	// Render draws the scene graph under root and presents the result.
	//
	// Parameters:
	//   - root: the scene root; nil renders an empty scene
	//   - cam: the camera to render with; nil uses the default camera
	//
	// Returns:
	//   - error: the first error raised while synchronizing, drawing or submitting the frame
	Render(root scene.Node, cam camera.Camera) error

	// RenderDrawables draws an already collected draw list and presents the result.
	//
	// Parameters:
	//   - drawables: the draw list in render order
	//   - cam: the camera to render with; nil uses the default camera
	//
	// Returns:
	//   - error: the first error raised while synchronizing, drawing or submitting the frame
	RenderDrawables(drawables []scene.Drawable, cam camera.Camera) error

	// Resize reconfigures the surface and invalidates the offscreen stage targets.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// Stats returns statistics of the last submitted frame.
	//
	// Returns:
	//   - FrameStats: the statistics
	Stats() FrameStats

	// Destroy releases the stage chain, every cached GPU resource and the device.
	//
	// Returns:
	//   - error: ErrAlreadyDestroyed on a second call
	Destroy() error
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing with device. The default camera is a perspective camera sized to
// the device surface.
//
// Parameters:
//   - device: the GPU device
//   - options: the builder options
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if an initial render stage is invalid
func NewRenderer(device gpu.Device, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:     &sync.Mutex{},
		device: device,
	}
	for _, opt := range options {
		opt(r)
	}

	p, err := newRenderPipeline(device)
	if err != nil {
		return nil, err
	}
	r.pipeline = p
	if r.pendingClearColor != nil {
		p.SetClearColor(*r.pendingClearColor)
	}
	if r.camera == nil {
		r.camera = camera.NewCamera(camera.WithViewport(device.SurfaceSize()))
	}
	if len(r.pendingStages) > 0 {
		if err := p.chain.set(r.pendingStages); err != nil {
			p.Release()
			return nil, err
		}
	}
	r.pendingClearColor, r.pendingStages = nil, nil

	width, height := device.SurfaceSize()
	common.Logger().Info("renderer created", "width", width, "height", height, "format", device.SurfaceFormat())
	return r, nil
}

func (r *renderer) Device() gpu.Device {
	return r.device
}

func (r *renderer) ClearColor() common.Color {
	return r.pipeline.ClearColor()
}

func (r *renderer) SetClearColor(c common.Color) {
	r.pipeline.SetClearColor(c)
}

func (r *renderer) Camera() camera.Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}

func (r *renderer) SetCamera(cam camera.Camera) {
	if cam == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera = cam
}

func (r *renderer) FrustumCulling() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frustumCulling
}

func (r *renderer) SetFrustumCulling(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frustumCulling = enabled
}

func (r *renderer) Stages() StageChain {
	return r.pipeline.Stages()
}

func (r *renderer) SetRenderStages(stages ...material.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return fmt.Errorf("set render stages: %w", common.ErrAlreadyDestroyed)
	}
	return r.pipeline.chain.set(stages)
}

func (r *renderer) Render(root scene.Node, cam camera.Camera) error {
	cam, culling, err := r.frameCamera(cam)
	if err != nil {
		return err
	}

	var drawables []scene.Drawable
	if root != nil {
		var opts []scene.CollectOption
		if culling {
			opts = append(opts, scene.WithFrustum(cam.Frustum()))
		}
		drawables = scene.CollectDrawables(root, opts...)
	}
	return r.pipeline.Frame(drawables, cam)
}

func (r *renderer) RenderDrawables(drawables []scene.Drawable, cam camera.Camera) error {
	cam, _, err := r.frameCamera(cam)
	if err != nil {
		return err
	}
	return r.pipeline.Frame(drawables, cam)
}

// frameCamera resolves the camera of a frame and sizes its viewport to the surface.
func (r *renderer) frameCamera(cam camera.Camera) (camera.Camera, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return nil, false, fmt.Errorf("render: %w", common.ErrAlreadyDestroyed)
	}
	if cam == nil {
		cam = r.camera
	}
	cam.SetViewport(r.device.SurfaceSize())
	return cam, r.frustumCulling, nil
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || width <= 0 || height <= 0 {
		return
	}
	r.device.Resize(width, height)
	r.pipeline.Resize()
	r.camera.SetViewport(width, height)
	common.Logger().Debug("renderer resized", "width", width, "height", height)
}

func (r *renderer) Stats() FrameStats {
	return r.pipeline.Stats()
}

func (r *renderer) Destroy() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return fmt.Errorf("destroy renderer: %w", common.ErrAlreadyDestroyed)
	}
	r.destroyed = true
	r.pipeline.Release()
	r.device.Release()
	common.Logger().Info("renderer destroyed")
	return nil
}

package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/buffer_writer"
	"github.com/Carmen-Shannon/keel/engine/versioned"
	"github.com/go-gl/mathgl/mgl32"
)

// Projection selects how the camera maps view space to clip space.
type Projection int

const (
	ProjectionPerspective Projection = iota
	ProjectionOrthographic
)

func (p Projection) String() string {
	if p == ProjectionOrthographic {
		return "orthographic"
	}
	return "perspective"
}

// UniformSize is the byte size of the camera uniform: a view-projection mat4x4 and a viewport vec4.
const UniformSize = 80

// depthRemap maps OpenGL clip depth [-w, w] onto the WebGPU range [0, w].
var depthRemap = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

type cameraImpl struct {
	mu *sync.Mutex

	projection Projection
	position   mgl32.Vec3
	target     mgl32.Vec3
	up         mgl32.Vec3

	fov        float32
	orthoSize  float32
	near       float32
	far        float32
	width      int
	height     int
	autoAspect bool
	aspect     float32

	view           mgl32.Mat4
	projectionMat  mgl32.Mat4
	viewProjection mgl32.Mat4

	controller *OrbitController
	state      versioned.Versioned[struct{}]
}

// Camera defines the interface for the camera system.
// The camera holds projection settings and a look-at pose, and computes the view and projection matrices
// from them. Every change increments its Version, so the renderer uploads the camera uniform only when it
// changed. Matrices are column-major and map depth onto [0, 1].
type Camera interface {
	buffer_writer.Source

	// Version returns the camera's version, incremented on every change.
	//
	// Returns:
	//   - uint64: the version
	Version() uint64

	// Projection returns the projection kind.
	//
	// Returns:
	//   - Projection: perspective or orthographic
	Projection() Projection

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: the world-space target
	Target() mgl32.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians. Unused by orthographic cameras.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Viewport returns the size of the render target in pixels.
	//
	// Returns:
	//   - int, int: width and height
	Viewport() (int, int)

	// ViewMatrix returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns the combined view-projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view-projection matrix
	ViewProjectionMatrix() mgl32.Mat4

	// Frustum returns the world-space view frustum, used for culling.
	//
	// Returns:
	//   - common.Frustum: the frustum
	Frustum() common.Frustum

	// Controller returns the attached orbit controller, or nil.
	//
	// Returns:
	//   - *OrbitController: the attached controller or nil
	Controller() *OrbitController

	// Update reads position and target from the controller and recomputes matrices.
	// Should be called once per frame. If no controller is attached, this method does nothing.
	Update()

	// SetPosition moves the camera.
	//
	// Parameters:
	//   - p: the world-space eye position
	SetPosition(p mgl32.Vec3)

	// LookAt points the camera at a world-space target.
	//
	// Parameters:
	//   - target: the look-at point
	LookAt(target mgl32.Vec3)

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - up: the up vector
	SetUp(up mgl32.Vec3)

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect fixes the aspect ratio. Until it is called the aspect follows the viewport.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetClipPlanes sets the near and far clipping plane distances.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	SetClipPlanes(near, far float32)

	// SetViewport sets the render target size. The renderer calls it on resize.
	//
	// Parameters:
	//   - width, height: the target size in pixels
	SetViewport(width, height int)

	// SetController attaches an orbit controller. nil detaches it.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl *OrbitController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a perspective camera at (0, 0, 5) looking at the origin with a 45 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		projection: ProjectionPerspective,
		position:   mgl32.Vec3{0, 0, 5},
		up:         mgl32.Vec3{0, 1, 0},
		fov:        mgl32.DegToRad(45),
		orthoSize:  1,
		near:       0.1,
		far:        100,
		width:      1,
		height:     1,
		autoAspect: true,
		aspect:     1,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.position, c.target = c.controller.Position(), c.controller.Target()
	}
	c.updateMatrices()
	return c
}

// NewOrthographicCamera creates an orthographic camera showing size world units above and below the target.
//
// Parameters:
//   - size: half the visible height in world units
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewOrthographicCamera(size float32, options ...CameraBuilderOption) Camera {
	return NewCamera(append([]CameraBuilderOption{withOrthographic(size)}, options...)...)
}

func (c *cameraImpl) ByteSize() int {
	return UniformSize
}

func (c *cameraImpl) Emit(e *buffer_writer.Emitter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, h := float32(c.width), float32(c.height)
	e.Mat4(c.viewProjection)
	e.Vec4(mgl32.Vec4{w, h, 1 / w, 1 / h})
}

func (c *cameraImpl) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Version()
}

func (c *cameraImpl) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Viewport() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMat
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjection
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractFrustum(c.viewProjection)
}

func (c *cameraImpl) Controller() *OrbitController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	position, target := c.controller.Position(), c.controller.Target()
	if position == c.position && target == c.target {
		return
	}
	c.position, c.target = position, target
	c.updateMatrices()
}

func (c *cameraImpl) SetPosition(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
	c.updateMatrices()
}

func (c *cameraImpl) LookAt(target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.autoAspect = false
	c.updateMatrices()
}

func (c *cameraImpl) SetClipPlanes(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near, c.far = near, far
	c.updateMatrices()
}

func (c *cameraImpl) SetViewport(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if width <= 0 || height <= 0 || (width == c.width && height == c.height) {
		return
	}
	c.width, c.height = width, height
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl *OrbitController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// updateMatrices recalculates the view, projection and view-projection matrices and increments the version.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.autoAspect {
		c.aspect = float32(c.width) / float32(c.height)
	}

	c.view = mgl32.LookAtV(c.position, c.target, c.up)
	switch c.projection {
	case ProjectionOrthographic:
		w := c.orthoSize * c.aspect
		c.projectionMat = depthRemap.Mul4(mgl32.Ortho(-w, w, -c.orthoSize, c.orthoSize, c.near, c.far))
	default:
		c.projectionMat = depthRemap.Mul4(mgl32.Perspective(c.fov, c.aspect, c.near, c.far))
	}
	c.viewProjection = c.projectionMat.Mul4(c.view)
	if !finite(c.viewProjection) {
		common.Logger().Warn("camera matrices are degenerate", "position", c.position, "target", c.target)
	}
	c.state.Increment()
}

func finite(m mgl32.Mat4) bool {
	for _, v := range m {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

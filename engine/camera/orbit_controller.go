package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// OrbitController owns a look-at pose expressed as spherical coordinates around a target.
// Orbit methods change the angles and recompute the position; pan methods translate both position and
// target along the camera's local axes, preserving the orbit relationship. A Camera reads the pose on Update.
type OrbitController struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed float32
	zoomSpeed  float32
	panSpeed   float32
}

// NewOrbitController creates an orbit controller 5 units from the origin, 30 degrees above the horizon.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - *OrbitController: the newly created controller
func NewOrbitController(options ...OrbitControllerOption) *OrbitController {
	oc := &OrbitController{
		mu:           &sync.Mutex{},
		radius:       5,
		elevation:    float32(math.Pi / 6),
		minRadius:    0.5,
		maxRadius:    500,
		minElevation: -float32(math.Pi/2 - 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),
		orbitSpeed:   0.03,
		zoomSpeed:    0.5,
		panSpeed:     0.1,
	}
	for _, option := range options {
		option(oc)
	}
	oc.radius = mgl32.Clamp(oc.radius, oc.minRadius, oc.maxRadius)
	oc.elevation = mgl32.Clamp(oc.elevation, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
	return oc
}

// Position returns the camera's world-space position.
//
// Returns:
//   - mgl32.Vec3: the eye position
func (oc *OrbitController) Position() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.position
}

// Target returns the look-at point.
//
// Returns:
//   - mgl32.Vec3: the pivot
func (oc *OrbitController) Target() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target
}

// SetTarget moves the pivot and recomputes the position.
//
// Parameters:
//   - target: the new pivot
func (oc *OrbitController) SetTarget(target mgl32.Vec3) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.target = target
	oc.updatePosition()
}

// Radius returns the current distance from the target.
//
// Returns:
//   - float32: the orbit radius
func (oc *OrbitController) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

// Elevation returns the current vertical angle from the horizontal plane in radians.
//
// Returns:
//   - float32: the elevation
func (oc *OrbitController) Elevation() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.elevation
}

// Orbit rotates around the target by steps of the orbit speed. Elevation is clamped to its bounds.
//
// Parameters:
//   - azimuthSteps: horizontal steps, positive to the right
//   - elevationSteps: vertical steps, positive upward
func (oc *OrbitController) Orbit(azimuthSteps, elevationSteps float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth += azimuthSteps * oc.orbitSpeed
	oc.elevation = mgl32.Clamp(oc.elevation+elevationSteps*oc.orbitSpeed, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
}

// Zoom moves toward the target. Positive delta zooms in. The radius is clamped to its bounds.
//
// Parameters:
//   - delta: zoom amount scaled by the zoom speed
func (oc *OrbitController) Zoom(delta float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = mgl32.Clamp(oc.radius-delta*oc.zoomSpeed, oc.minRadius, oc.maxRadius)
	oc.updatePosition()
}

// Pan translates position and target along the camera's local right and up axes.
//
// Parameters:
//   - right: pan amount along the right axis, scaled by the pan speed
//   - up: pan amount along the up axis, scaled by the pan speed
func (oc *OrbitController) Pan(right, up float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	r, u, ok := oc.localAxes()
	if !ok {
		return
	}
	offset := r.Mul(right * oc.panSpeed).Add(u.Mul(up * oc.panSpeed))
	oc.target = oc.target.Add(offset)
	oc.position = oc.position.Add(offset)
}

// updatePosition recomputes the camera position from spherical coordinates.
// Caller must hold the mutex.
func (oc *OrbitController) updatePosition() {
	sinElev, cosElev := math.Sincos(float64(oc.elevation))
	sinAzim, cosAzim := math.Sincos(float64(oc.azimuth))
	oc.position = oc.target.Add(mgl32.Vec3{
		oc.radius * float32(cosElev*sinAzim),
		oc.radius * float32(sinElev),
		oc.radius * float32(cosElev*cosAzim),
	})
}

// localAxes returns the right and up axes of the look-at basis, or false when position and target coincide.
// Caller must hold the mutex.
func (oc *OrbitController) localAxes() (right, up mgl32.Vec3, ok bool) {
	back := oc.position.Sub(oc.target)
	if back.Len() < 1e-6 {
		return right, up, false
	}
	back = back.Normalize()
	right = mgl32.Vec3{0, 1, 0}.Cross(back)
	if right.Len() < 1e-6 {
		return right, up, false
	}
	right = right.Normalize()
	return right, back.Cross(right), true
}

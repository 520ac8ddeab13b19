package camera

import "github.com/go-gl/mathgl/mgl32"

// OrbitControllerOption is a functional option used to configure an OrbitController during construction.
type OrbitControllerOption func(*OrbitController)

// WithOrbitTarget sets the pivot the controller orbits.
//
// Parameters:
//   - target: the world-space pivot
//
// Returns:
//   - OrbitControllerOption: a function that sets the pivot
func WithOrbitTarget(target mgl32.Vec3) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.target = target
	}
}

// WithRadius sets the initial distance from the target.
//
// Parameters:
//   - radius: the orbit radius
//
// Returns:
//   - OrbitControllerOption: a function that sets the radius
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.radius = radius
	}
}

// WithAngles sets the initial azimuth and elevation in radians.
//
// Parameters:
//   - azimuth: horizontal angle around the Y axis
//   - elevation: vertical angle from the horizontal plane
//
// Returns:
//   - OrbitControllerOption: a function that sets the angles
func WithAngles(azimuth, elevation float32) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.azimuth, oc.elevation = azimuth, elevation
	}
}

// WithRadiusBounds sets the minimum and maximum orbit radius.
//
// Parameters:
//   - min, max: the radius bounds
//
// Returns:
//   - OrbitControllerOption: a function that sets the bounds
func WithRadiusBounds(min, max float32) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.minRadius, oc.maxRadius = min, max
	}
}

// WithSpeeds sets the orbit, zoom and pan speed multipliers.
//
// Parameters:
//   - orbit: radians per orbit step
//   - zoom: radius change per zoom unit
//   - pan: distance per pan unit
//
// Returns:
//   - OrbitControllerOption: a function that sets the speeds
func WithSpeeds(orbit, zoom, pan float32) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.orbitSpeed, oc.zoomSpeed, oc.panSpeed = orbit, zoom, pan
	}
}

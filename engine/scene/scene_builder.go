package scene

import "github.com/Carmen-Shannon/keel/common"

type collectConfig struct {
	frustum *common.Frustum
}

// CollectOption is a functional option applied to a CollectDrawables call.
type CollectOption func(*collectConfig)

// WithFrustum culls meshes whose world-space bounds lie outside the frustum.
//
// Parameters:
//   - f: the world-space view frustum
//
// Returns:
//   - CollectOption: a function that enables frustum culling
func WithFrustum(f common.Frustum) CollectOption {
	return func(c *collectConfig) {
		c.frustum = &f
	}
}

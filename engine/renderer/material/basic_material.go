package material

import (
	"fmt"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/texture"
)

// DefaultPointSize is the point size in pixels of a BasicMaterial in RenderingModePointList.
const DefaultPointSize = 2

// BasicMaterial is an unlit material: vertex colors multiplied by a diffuse color and an optional color
// texture.
type BasicMaterial struct {
	Material
}

// NewBasicMaterial creates an unlit material with a white diffuse color.
//
// Parameters:
//   - options: builder options, typically WithRenderingMode, WithCullMode and WithFrontFace
//
// Returns:
//   - *BasicMaterial: the material
//   - error: an error if the built-in shaders fail to compile
func NewBasicMaterial(options ...MaterialBuilderOption) (*BasicMaterial, error) {
	fs, err := basicFragmentShader()
	if err != nil {
		return nil, err
	}
	m, err := NewMaterial(fs, append([]MaterialBuilderOption{WithLabel("basic")}, options...)...)
	if err != nil {
		return nil, err
	}

	b := &BasicMaterial{Material: m}
	if err := b.SetDiffuseColor(common.ColorWhite); err != nil {
		return nil, err
	}
	if m.RenderingMode() == RenderingModePointList {
		if err := b.SetPointSize(DefaultPointSize); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// SetDiffuseColor sets the color every fragment is multiplied by.
//
// Parameters:
//   - c: the diffuse color
//
// Returns:
//   - error: ErrAlreadyDestroyed after Destroy
func (b *BasicMaterial) SetDiffuseColor(c common.Color) error {
	return b.SetColor("color", c)
}

// SetColorTexture sets the texture sampled with the geometry's texcoords. nil restores plain color.
//
// Parameters:
//   - t: the texture or nil
//
// Returns:
//   - error: ErrAlreadyDestroyed after Destroy
func (b *BasicMaterial) SetColorTexture(t texture.Texture) error {
	return b.SetTexture("colorTexture", t)
}

// SetPointSize sets the size of points in pixels.
//
// Parameters:
//   - size: the point size in pixels
//
// Returns:
//   - error: an error unless the material uses RenderingModePointList
func (b *BasicMaterial) SetPointSize(size float32) error {
	if b.RenderingMode() != RenderingModePointList {
		return fmt.Errorf("material %s: point size requires %s, not %s", b.Label(), RenderingModePointList, b.RenderingMode())
	}
	return b.SetScalar("pointSize", size)
}

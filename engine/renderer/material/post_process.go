package material

import (
	"github.com/Carmen-Shannon/keel/engine/renderer/shader"
)

// NewPostProcessMaterial creates a post-processing stage around a fragment shader. The shader reads the
// previous pass through sourceTexture and sourceSampler.
//
// Parameters:
//   - fragment: the fragment shader
//   - options: builder options
//
// Returns:
//   - Material: the stage material
//   - error: an error if the layouts conflict
func NewPostProcessMaterial(fragment shader.Shader, options ...MaterialBuilderOption) (Material, error) {
	return NewMaterial(fragment, append(options, WithPostProcess())...)
}

// NewInvertColors creates a stage that inverts the RGB channels of the previous pass.
//
// Returns:
//   - Material: the stage material
//   - error: an error if the built-in shaders fail to compile
func NewInvertColors() (Material, error) {
	fs, err := invertColorsFragmentShader()
	if err != nil {
		return nil, err
	}
	return NewPostProcessMaterial(fs, WithLabel("invert-colors"))
}

// Colorimetry is a stage that scales color saturation.
type Colorimetry struct {
	Material
}

// NewColorimetry creates a saturation stage. A saturation of 0 produces grayscale, 1 leaves colors
// unchanged and values above 1 over-saturate.
//
// Parameters:
//   - saturation: the initial saturation
//
// Returns:
//   - *Colorimetry: the stage material
//   - error: an error if the built-in shaders fail to compile
func NewColorimetry(saturation float32) (*Colorimetry, error) {
	fs, err := colorimetryFragmentShader()
	if err != nil {
		return nil, err
	}
	m, err := NewPostProcessMaterial(fs, WithLabel("colorimetry"))
	if err != nil {
		return nil, err
	}
	c := &Colorimetry{Material: m}
	if err := c.SetSaturation(saturation); err != nil {
		return nil, err
	}
	return c, nil
}

// SetSaturation changes the saturation factor.
func (c *Colorimetry) SetSaturation(saturation float32) error {
	return c.SetScalar("saturation", saturation)
}

// SinWave is a stage that displaces the previous pass horizontally along a sine wave.
type SinWave struct {
	Material
}

// NewSinWave creates a wave distortion stage.
//
// Parameters:
//   - amplitude: the horizontal displacement in texture coordinates
//   - frequency: the number of radians per unit of vertical texture coordinate
//
// Returns:
//   - *SinWave: the stage material
//   - error: an error if the built-in shaders fail to compile
func NewSinWave(amplitude, frequency float32) (*SinWave, error) {
	fs, err := sinWaveFragmentShader()
	if err != nil {
		return nil, err
	}
	m, err := NewPostProcessMaterial(fs, WithLabel("sin-wave"))
	if err != nil {
		return nil, err
	}
	w := &SinWave{Material: m}
	for name, v := range map[string]float32{"amplitude": amplitude, "frequency": frequency, "phase": 0} {
		if err := w.SetScalar(name, v); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// SetAmplitude changes the displacement amplitude.
func (w *SinWave) SetAmplitude(amplitude float32) error {
	return w.SetScalar("amplitude", amplitude)
}

// SetFrequency changes the wave frequency.
func (w *SinWave) SetFrequency(frequency float32) error {
	return w.SetScalar("frequency", frequency)
}

// SetPhase changes the wave phase in radians. Animate it to make the wave move.
func (w *SinWave) SetPhase(phase float32) error {
	return w.SetScalar("phase", phase)
}

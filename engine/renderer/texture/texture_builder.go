package texture

import "github.com/Carmen-Shannon/keel/engine/renderer/gpu"

// TextureBuilderOption is a functional option applied to a texture during construction.
type TextureBuilderOption func(*texture)

// WithLabel sets the debug label.
func WithLabel(label string) TextureBuilderOption {
	return func(t *texture) {
		t.label = label
	}
}

// WithPixels supplies the initial pixel data, width*height*4 bytes. The data is copied.
func WithPixels(pixels []byte) TextureBuilderOption {
	return func(t *texture) {
		t.initial = pixels
	}
}

// WithLinearColor stores the texture as linear RGBA8 instead of sRGB. Use it for data textures
// such as lookup tables.
func WithLinearColor() TextureBuilderOption {
	return func(t *texture) {
		t.format = gpu.TextureFormatRGBA8Unorm
	}
}

// WithAddressMode sets the wrapping mode for both texture axes.
func WithAddressMode(mode gpu.AddressMode) TextureBuilderOption {
	return func(t *texture) {
		t.sampler.AddressModeU = mode
		t.sampler.AddressModeV = mode
	}
}

// WithFilter sets the magnification and minification filters.
func WithFilter(mag, min gpu.FilterMode) TextureBuilderOption {
	return func(t *texture) {
		t.sampler.MagFilter = mag
		t.sampler.MinFilter = min
	}
}

// Package texture holds CPU-side RGBA8 images that are mirrored to GPU textures by the renderer.
package texture

import (
	"fmt"
	"image"
	"io"

	// Decoders registered for Decode.
	_ "image/jpeg"
	_ "image/png"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/lifecycle"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/versioned"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// SamplerSettings is the sampling state the renderer creates alongside the GPU texture.
type SamplerSettings struct {
	AddressModeU gpu.AddressMode
	AddressModeV gpu.AddressMode
	MagFilter    gpu.FilterMode
	MinFilter    gpu.FilterMode
}

// Descriptor converts the settings into a sampler descriptor.
//
// Parameters:
//   - label: the sampler debug label
//
// Returns:
//   - gpu.SamplerDescriptor: the descriptor
func (s SamplerSettings) Descriptor(label string) gpu.SamplerDescriptor {
	return gpu.SamplerDescriptor{
		Label:        label,
		AddressModeU: s.AddressModeU,
		AddressModeV: s.AddressModeV,
		AddressModeW: gpu.AddressModeClampToEdge,
		MagFilter:    s.MagFilter,
		MinFilter:    s.MinFilter,
	}
}

// texture is the implementation of the Texture interface.
type texture struct {
	label   string
	width   int
	height  int
	format  gpu.TextureFormat
	sampler SamplerSettings
	pixels  *versioned.Versioned[[]byte]

	initial  []byte
	notifier lifecycle.Notifier
}

// Texture is a fixed-size RGBA8 image with a version counter. Its pixel storage is allocated once at
// construction and replaced in place by SetPixels.
type Texture interface {
	lifecycle.Observable

	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Size returns the texture dimensions in pixels.
	//
	// Returns:
	//   - int: width
	//   - int: height
	Size() (int, int)

	// Format returns the GPU texture format.
	//
	// Returns:
	//   - gpu.TextureFormat: RGBA8Unorm or RGBA8UnormSrgb
	Format() gpu.TextureFormat

	// Sampler returns the sampling state.
	//
	// Returns:
	//   - SamplerSettings: the sampler settings
	Sampler() SamplerSettings

	// Pixels returns the versioned pixel storage, width*height*4 bytes in row-major order.
	//
	// Returns:
	//   - *versioned.Versioned[[]byte]: the pixel cell
	Pixels() *versioned.Versioned[[]byte]

	// SetPixels copies new pixel data into the texture and increments its version.
	//
	// Parameters:
	//   - pixels: width*height*4 bytes
	//
	// Returns:
	//   - error: ErrSizeMismatch on a wrong length, ErrAlreadyDestroyed after Destroy
	SetPixels(pixels []byte) error

	// Destroy notifies observers and makes the texture unusable.
	//
	// Returns:
	//   - error: ErrAlreadyDestroyed on a second call
	Destroy() error
}

var _ Texture = &texture{}

// NewTexture creates a texture of the given size, zero filled unless WithPixels is supplied.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//   - options: builder options
//
// Returns:
//   - Texture: the texture
//   - error: an error for non-positive dimensions or ErrSizeMismatch for wrongly sized initial pixels
func NewTexture(width, height int, options ...TextureBuilderOption) (Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texture size %dx%d must be positive", width, height)
	}
	t := &texture{
		width:  width,
		height: height,
		format: gpu.TextureFormatRGBA8UnormSrgb,
		sampler: SamplerSettings{
			AddressModeU: gpu.AddressModeRepeat,
			AddressModeV: gpu.AddressModeRepeat,
			MagFilter:    gpu.FilterModeLinear,
			MinFilter:    gpu.FilterModeLinear,
		},
	}
	for _, opt := range options {
		opt(t)
	}

	data := make([]byte, width*height*4)
	if t.initial != nil {
		if len(t.initial) != len(data) {
			return nil, fmt.Errorf("texture %dx%d needs %d bytes, got %d: %w", width, height, len(data), len(t.initial), common.ErrSizeMismatch)
		}
		copy(data, t.initial)
		t.initial = nil
	}
	t.pixels = versioned.New(data)
	common.Logger().Debug("texture created", "label", t.label, "width", width, "height", height)
	return t, nil
}

// NewTextureFromImage converts any image to RGBA8 and wraps it in a texture.
//
// Parameters:
//   - img: the source image
//   - options: builder options
//
// Returns:
//   - Texture: the texture
//   - error: an error if the image is empty
func NewTextureFromImage(img image.Image, options ...TextureBuilderOption) (Texture, error) {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	return NewTexture(bounds.Dx(), bounds.Dy(), append([]TextureBuilderOption{WithPixels(rgba.Pix)}, options...)...)
}

// Decode reads a PNG, JPEG, BMP or WebP image and wraps it in a texture.
//
// Parameters:
//   - r: the encoded image
//   - options: builder options
//
// Returns:
//   - Texture: the texture
//   - error: an error if decoding fails
func Decode(r io.Reader, options ...TextureBuilderOption) (Texture, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture: %w", err)
	}
	common.Logger().Debug("texture decoded", "format", format)
	return NewTextureFromImage(img, options...)
}

func (t *texture) Label() string {
	return t.label
}

func (t *texture) Size() (int, int) {
	return t.width, t.height
}

func (t *texture) Format() gpu.TextureFormat {
	return t.format
}

func (t *texture) Sampler() SamplerSettings {
	return t.sampler
}

func (t *texture) Pixels() *versioned.Versioned[[]byte] {
	return t.pixels
}

func (t *texture) SetPixels(pixels []byte) error {
	if t.notifier.Destroyed() {
		return fmt.Errorf("texture %q: set pixels: %w", t.label, common.ErrAlreadyDestroyed)
	}
	data := t.pixels.Value()
	if len(pixels) != len(data) {
		return fmt.Errorf("texture %q: expected %d bytes, got %d: %w", t.label, len(data), len(pixels), common.ErrSizeMismatch)
	}
	copy(data, pixels)
	t.pixels.Increment()
	return nil
}

func (t *texture) Observe(o lifecycle.DestroyObserver) error {
	return t.notifier.Observe(o)
}

func (t *texture) Unobserve(o lifecycle.DestroyObserver) {
	t.notifier.Unobserve(o)
}

func (t *texture) Destroy() error {
	if err := t.notifier.Destroy(t); err != nil {
		return fmt.Errorf("texture %q: %w", t.label, err)
	}
	return nil
}

func (t *texture) Destroyed() bool {
	return t.notifier.Destroyed()
}

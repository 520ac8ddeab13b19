package common

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"
)

// Color is a straight (non-premultiplied) RGBA color with each channel normalized to [0, 1].
// This is the representation written to GPU buffers for color values.
type Color [4]float32

var (
	// ColorBlack is opaque black, the default renderer clear color.
	ColorBlack = ColorFromStd(colornames.Black)
	// ColorWhite is opaque white, the default material diffuse color.
	ColorWhite = ColorFromStd(colornames.White)
)

// NewColor creates a Color from normalized channel values.
//
// Parameters:
//   - r, g, b, a: channel values in [0, 1]
//
// Returns:
//   - Color: the color
func NewColor(r, g, b, a float32) Color {
	return Color{r, g, b, a}
}

// ColorFromStd converts any image/color value to a normalized straight-alpha Color.
//
// Parameters:
//   - c: the color to convert
//
// Returns:
//   - Color: the normalized color; fully transparent colors convert to all zeros
func ColorFromStd(c color.Color) Color {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return Color{}
	}
	// RGBA() is alpha-premultiplied in [0, 0xffff].
	fa := float32(a)
	return Color{float32(r) / fa, float32(g) / fa, float32(b) / fa, fa / 0xffff}
}

// NamedColor looks up an opaque SVG 1.1 color keyword such as "pink" or "gray".
//
// Parameters:
//   - name: the lower-case color keyword
//
// Returns:
//   - Color: the color, or the zero Color if the name is unknown
//   - bool: true if the name was found
func NamedColor(name string) (Color, bool) {
	c, ok := colornames.Map[name]
	if !ok {
		return Color{}, false
	}
	return ColorFromStd(c), true
}

// Vec4 returns the color as an mgl32.Vec4.
//
// Returns:
//   - mgl32.Vec4: the RGBA channels
func (c Color) Vec4() mgl32.Vec4 {
	return mgl32.Vec4(c)
}

// WithAlpha returns a copy of the color with its alpha channel replaced.
//
// Parameters:
//   - a: the new alpha in [0, 1]
//
// Returns:
//   - Color: the modified color
func (c Color) WithAlpha(a float32) Color {
	c[3] = a
	return c
}

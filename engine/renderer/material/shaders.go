package material

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/shader"
)

// Include chunks shared by the built-in shaders.
var (
	//go:embed assets/varyings.wgsl
	varyingsSource string
	//go:embed assets/object.wgsl
	objectSource string
	//go:embed assets/stage_varyings.wgsl
	stageVaryingsSource string
	//go:embed assets/stage.wgsl
	stageSource string
)

// Vertex shaders, one per rendering mode plus the full-screen stage triangle.
var (
	//go:embed assets/default.vert.wgsl
	defaultVertexSource string
	//go:embed assets/wireframe.vert.wgsl
	wireframeVertexSource string
	//go:embed assets/points.vert.wgsl
	pointsVertexSource string
	//go:embed assets/fullscreen.vert.wgsl
	fullscreenVertexSource string
)

// Fragment shaders of the built-in materials.
var (
	//go:embed assets/basic.frag.wgsl
	basicFragmentSource string
	//go:embed assets/invert_colors.frag.wgsl
	invertColorsFragmentSource string
	//go:embed assets/colorimetry.frag.wgsl
	colorimetryFragmentSource string
	//go:embed assets/sin_wave.frag.wgsl
	sinWaveFragmentSource string
)

// NewPreProcessor returns a pre-processor with the engine's include chunks registered:
//   - varyings: the VertexOutput struct shared by scene vertex and fragment shaders
//   - object: camera (group 0) and object (group 2) bindings plus vertex pulling helpers
//   - stage_varyings: the StageOutput struct of post-processing stages
//   - stage: the sourceTexture/sourceSampler bindings of post-processing stages
//
// Custom materials can include these to match the renderer's binding conventions.
//
// Returns:
//   - shader.PreProcessor: the pre-processor
func NewPreProcessor() shader.PreProcessor {
	return shader.NewPreProcessor(map[string]string{
		"varyings":       varyingsSource,
		"object":         objectSource,
		"stage_varyings": stageVaryingsSource,
		"stage":          stageSource,
	})
}

// compileOnce returns a function compiling a built-in shader on first use and caching the result.
func compileOnce(label string, stage gpu.ShaderStage, source string) func() (shader.Shader, error) {
	return sync.OnceValues(func() (shader.Shader, error) {
		return shader.NewShader(label, stage, source, shader.WithPreProcessor(NewPreProcessor()))
	})
}

var (
	defaultVertexShader    = compileOnce("default.vert", gpu.ShaderStageVertex, defaultVertexSource)
	wireframeVertexShader  = compileOnce("wireframe.vert", gpu.ShaderStageVertex, wireframeVertexSource)
	pointsVertexShader     = compileOnce("points.vert", gpu.ShaderStageVertex, pointsVertexSource)
	fullscreenVertexShader = compileOnce("fullscreen.vert", gpu.ShaderStageVertex, fullscreenVertexSource)

	basicFragmentShader        = compileOnce("basic.frag", gpu.ShaderStageFragment, basicFragmentSource)
	invertColorsFragmentShader = compileOnce("invert_colors.frag", gpu.ShaderStageFragment, invertColorsFragmentSource)
	colorimetryFragmentShader  = compileOnce("colorimetry.frag", gpu.ShaderStageFragment, colorimetryFragmentSource)
	sinWaveFragmentShader      = compileOnce("sin_wave.frag", gpu.ShaderStageFragment, sinWaveFragmentSource)
)

// vertexShaderFor returns the built-in vertex shader of a stage kind and rendering mode.
func vertexShaderFor(stage Stage, mode RenderingMode) (shader.Shader, error) {
	if stage == StagePostProcess {
		return fullscreenVertexShader()
	}
	switch mode {
	case RenderingModeTriangleList, RenderingModeLineList:
		return defaultVertexShader()
	case RenderingModeTriangleLines:
		return wireframeVertexShader()
	case RenderingModePointList:
		return pointsVertexShader()
	default:
		return nil, fmt.Errorf("unknown rendering mode %d", mode)
	}
}

package shader

// shaderConfig collects the options of NewShader.
type shaderConfig struct {
	entryPoint   string
	preProcessor PreProcessor
}

// ShaderBuilderOption is a functional option applied during NewShader.
type ShaderBuilderOption func(*shaderConfig)

// WithEntryPoint selects an entry point by name when a source declares several for the same stage.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderBuilderOption: a function that applies the entry point option
func WithEntryPoint(name string) ShaderBuilderOption {
	return func(c *shaderConfig) {
		c.entryPoint = name
	}
}

// WithPreProcessor expands include directives with p before compiling.
//
// Parameters:
//   - p: the pre-processor
//
// Returns:
//   - ShaderBuilderOption: a function that applies the pre-processor option
func WithPreProcessor(p PreProcessor) ShaderBuilderOption {
	return func(c *shaderConfig) {
		c.preProcessor = p
	}
}

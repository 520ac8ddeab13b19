package pipeline

import "github.com/Carmen-Shannon/keel/engine/renderer/gpu"

// CacheBuilderOption is a functional option used to configure a Cache during construction.
type CacheBuilderOption func(*cache)

// WithLabel sets the prefix of pipeline debug labels.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - CacheBuilderOption: a function that applies the label option
func WithLabel(label string) CacheBuilderOption {
	return func(c *cache) {
		c.label = label
	}
}

// WithReleaseHook registers a function called with every pipeline right before it is released, so
// resources derived from it (bind groups) can be released too. The hook runs with the cache locked and
// must not call back into the cache.
//
// Parameters:
//   - hook: the release hook
//
// Returns:
//   - CacheBuilderOption: a function that applies the hook option
func WithReleaseHook(hook func(gpu.PipelineID)) CacheBuilderOption {
	return func(c *cache) {
		c.onRelease = hook
	}
}

package resource_sync

// ResourceSyncBuilderOption is a functional option applied to a ResourceSync during construction.
type ResourceSyncBuilderOption func(*resourceSync)

// WithLabel sets the prefix of every GPU resource label the sync creates.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - ResourceSyncBuilderOption: a function that applies the label option
func WithLabel(label string) ResourceSyncBuilderOption {
	return func(s *resourceSync) {
		s.label = label
	}
}

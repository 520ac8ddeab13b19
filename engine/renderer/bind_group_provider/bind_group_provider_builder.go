package bind_group_provider

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithLabel sets the debug label prefixed to every bind group.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - BindGroupProviderOption: a function that sets the label for this provider
func WithLabel(label string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.label = label
	}
}

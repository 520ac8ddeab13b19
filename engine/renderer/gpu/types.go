// Package gpu defines the backend-neutral GPU contract used by the renderer: opaque resource handles,
// fixed-function enums, resource descriptors and the Device interface.
//
// Keeping this layer free of any concrete graphics API lets everything above it run against the
// in-memory recording device in package gputest.
package gpu

import "github.com/Carmen-Shannon/keel/common"

// Opaque resource handles. The zero value of every handle means "no resource".
type (
	BufferID    uint64
	TextureID   uint64
	SamplerID   uint64
	PipelineID  uint64
	BindGroupID uint64
)

// BufferUsage describes how a buffer will be used. Values can be OR'd together.
type BufferUsage uint32

const (
	BufferUsageMapRead  BufferUsage = 1 << 0
	BufferUsageMapWrite BufferUsage = 1 << 1
	BufferUsageCopySrc  BufferUsage = 1 << 2
	BufferUsageCopyDst  BufferUsage = 1 << 3
	BufferUsageIndex    BufferUsage = 1 << 4
	BufferUsageVertex   BufferUsage = 1 << 5
	BufferUsageUniform  BufferUsage = 1 << 6
	BufferUsageStorage  BufferUsage = 1 << 7
)

// TextureUsage describes how a texture will be used. Values can be OR'd together.
type TextureUsage uint32

const (
	TextureUsageCopySrc          TextureUsage = 1 << 0
	TextureUsageCopyDst          TextureUsage = 1 << 1
	TextureUsageTextureBinding   TextureUsage = 1 << 2
	TextureUsageStorageBinding   TextureUsage = 1 << 3
	TextureUsageRenderAttachment TextureUsage = 1 << 4
)

// TextureFormat is the pixel format of a texture.
type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb
)

// BytesPerPixel returns the texel size of the format, or 0 for TextureFormatUndefined.
func (f TextureFormat) BytesPerPixel() int {
	if f == TextureFormatUndefined {
		return 0
	}
	return 4
}

// PrimitiveTopology selects how vertices are assembled into primitives.
type PrimitiveTopology int

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyLineList
	PrimitiveTopologyPointList
	PrimitiveTopologyLineStrip
	PrimitiveTopologyTriangleStrip
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// FrontFace selects the winding order of front-facing triangles.
type FrontFace int

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// BlendFactor is a multiplier applied to a blend source or destination.
type BlendFactor int

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrc
	BlendFactorOneMinusSrc
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDst
	BlendFactorOneMinusDst
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
)

// BlendOperation combines the weighted source and destination.
type BlendOperation int

const (
	BlendOperationAdd BlendOperation = iota
	BlendOperationSubtract
	BlendOperationReverseSubtract
	BlendOperationMin
	BlendOperationMax
)

// BlendComponent describes blending for either the color or the alpha channel.
type BlendComponent struct {
	Operation BlendOperation
	SrcFactor BlendFactor
	DstFactor BlendFactor
}

// BlendState describes color and alpha blending for a render target.
type BlendState struct {
	Color BlendComponent
	Alpha BlendComponent
}

// AddressMode controls texture coordinate wrapping outside [0, 1].
type AddressMode int

const (
	AddressModeClampToEdge AddressMode = iota
	AddressModeRepeat
	AddressModeMirrorRepeat
)

// FilterMode controls texel filtering.
type FilterMode int

const (
	FilterModeNearest FilterMode = iota
	FilterModeLinear
)

// ShaderStage is a bit set of programmable stages that can see a binding.
type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 1 << 0
	ShaderStageFragment ShaderStage = 1 << 1
)

// BindingType is the kind of resource a bind group entry refers to.
type BindingType int

const (
	BindingTypeUniform BindingType = iota
	BindingTypeReadOnlyStorage
	BindingTypeStorage
	BindingTypeTexture
	BindingTypeSampler
)

func (b BindingType) String() string {
	switch b {
	case BindingTypeUniform:
		return "uniform"
	case BindingTypeReadOnlyStorage:
		return "read-only storage"
	case BindingTypeStorage:
		return "storage"
	case BindingTypeTexture:
		return "texture"
	case BindingTypeSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// IsBuffer reports whether the binding refers to a buffer.
func (b BindingType) IsBuffer() bool {
	return b == BindingTypeUniform || b == BindingTypeReadOnlyStorage || b == BindingTypeStorage
}

// LayoutEntry describes one binding slot of a bind group layout.
type LayoutEntry struct {
	Binding        uint32
	Type           BindingType
	Visibility     ShaderStage
	MinBindingSize uint64
}

// BindGroupLayout describes every binding of one bind group index.
type BindGroupLayout struct {
	Group   uint32
	Entries []LayoutEntry
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// TextureDescriptor describes a 2D texture to create.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format TextureFormat
	Usage  TextureUsage
}

// SamplerDescriptor describes a sampler to create.
type SamplerDescriptor struct {
	Label        string
	AddressModeU AddressMode
	AddressModeV AddressMode
	AddressModeW AddressMode
	MagFilter    FilterMode
	MinFilter    FilterMode
}

// ShaderStageDescriptor is the WGSL source and entry point of one programmable stage.
type ShaderStageDescriptor struct {
	Label      string
	Source     string
	EntryPoint string
}

// RenderPipelineDescriptor describes a render pipeline to create.
//
// Pipelines are created without vertex buffer layouts: vertex data is read by the shaders from storage
// bindings ("vertex pulling").
type RenderPipelineDescriptor struct {
	Label        string
	Vertex       ShaderStageDescriptor
	Fragment     ShaderStageDescriptor
	Layouts      []BindGroupLayout
	Topology     PrimitiveTopology
	CullMode     CullMode
	FrontFace    FrontFace
	Blend        *BlendState
	TargetFormat TextureFormat
	// DepthStencil is true when the pipeline will be used in a pass with a depth attachment.
	DepthStencil bool
	DepthTest    bool
	DepthWrite   bool
}

// BindGroupEntry binds one resource. Exactly one of Buffer, Texture or Sampler is set.
type BindGroupEntry struct {
	Binding uint32
	Buffer  BufferID
	Texture TextureID
	Sampler SamplerID
}

// BindGroupDescriptor describes a bind group for group index Group of a pipeline's layout.
type BindGroupDescriptor struct {
	Label    string
	Pipeline PipelineID
	Group    uint32
	Entries  []BindGroupEntry
}

// RenderPassDescriptor describes a render pass clearing Target to ClearColor.
type RenderPassDescriptor struct {
	Label      string
	Target     TextureID
	ClearColor common.Color
	// DepthStencil attaches the device-managed depth buffer, sized to the surface.
	DepthStencil bool
}

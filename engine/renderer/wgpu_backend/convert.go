package wgpu_backend

import (
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

var textureFormats = map[gpu.TextureFormat]wgpu.TextureFormat{
	gpu.TextureFormatRGBA8Unorm:     wgpu.TextureFormatRGBA8Unorm,
	gpu.TextureFormatRGBA8UnormSrgb: wgpu.TextureFormatRGBA8UnormSrgb,
	gpu.TextureFormatBGRA8Unorm:     wgpu.TextureFormatBGRA8Unorm,
	gpu.TextureFormatBGRA8UnormSrgb: wgpu.TextureFormatBGRA8UnormSrgb,
}

var topologies = map[gpu.PrimitiveTopology]wgpu.PrimitiveTopology{
	gpu.PrimitiveTopologyTriangleList:  wgpu.PrimitiveTopologyTriangleList,
	gpu.PrimitiveTopologyLineList:      wgpu.PrimitiveTopologyLineList,
	gpu.PrimitiveTopologyPointList:     wgpu.PrimitiveTopologyPointList,
	gpu.PrimitiveTopologyLineStrip:     wgpu.PrimitiveTopologyLineStrip,
	gpu.PrimitiveTopologyTriangleStrip: wgpu.PrimitiveTopologyTriangleStrip,
}

var cullModes = map[gpu.CullMode]wgpu.CullMode{
	gpu.CullModeNone:  wgpu.CullModeNone,
	gpu.CullModeFront: wgpu.CullModeFront,
	gpu.CullModeBack:  wgpu.CullModeBack,
}

var blendFactors = map[gpu.BlendFactor]wgpu.BlendFactor{
	gpu.BlendFactorZero:             wgpu.BlendFactorZero,
	gpu.BlendFactorOne:              wgpu.BlendFactorOne,
	gpu.BlendFactorSrc:              wgpu.BlendFactorSrc,
	gpu.BlendFactorOneMinusSrc:      wgpu.BlendFactorOneMinusSrc,
	gpu.BlendFactorSrcAlpha:         wgpu.BlendFactorSrcAlpha,
	gpu.BlendFactorOneMinusSrcAlpha: wgpu.BlendFactorOneMinusSrcAlpha,
	gpu.BlendFactorDst:              wgpu.BlendFactorDst,
	gpu.BlendFactorOneMinusDst:      wgpu.BlendFactorOneMinusDst,
	gpu.BlendFactorDstAlpha:         wgpu.BlendFactorDstAlpha,
	gpu.BlendFactorOneMinusDstAlpha: wgpu.BlendFactorOneMinusDstAlpha,
}

var blendOperations = map[gpu.BlendOperation]wgpu.BlendOperation{
	gpu.BlendOperationAdd:             wgpu.BlendOperationAdd,
	gpu.BlendOperationSubtract:        wgpu.BlendOperationSubtract,
	gpu.BlendOperationReverseSubtract: wgpu.BlendOperationReverseSubtract,
	gpu.BlendOperationMin:             wgpu.BlendOperationMin,
	gpu.BlendOperationMax:             wgpu.BlendOperationMax,
}

var addressModes = map[gpu.AddressMode]wgpu.AddressMode{
	gpu.AddressModeClampToEdge:  wgpu.AddressModeClampToEdge,
	gpu.AddressModeRepeat:       wgpu.AddressModeRepeat,
	gpu.AddressModeMirrorRepeat: wgpu.AddressModeMirrorRepeat,
}

var filterModes = map[gpu.FilterMode]wgpu.FilterMode{
	gpu.FilterModeNearest: wgpu.FilterModeNearest,
	gpu.FilterModeLinear:  wgpu.FilterModeLinear,
}

// surfaceFormat picks the first surface format the renderer can describe, preferring sRGB.
func surfaceFormat(formats []wgpu.TextureFormat) (wgpu.TextureFormat, gpu.TextureFormat) {
	for _, want := range []gpu.TextureFormat{gpu.TextureFormatBGRA8UnormSrgb, gpu.TextureFormatRGBA8UnormSrgb} {
		for _, f := range formats {
			if f == textureFormats[want] {
				return f, want
			}
		}
	}
	for _, f := range formats {
		for k, v := range textureFormats {
			if v == f {
				return f, k
			}
		}
	}
	return wgpu.TextureFormatBGRA8Unorm, gpu.TextureFormatBGRA8Unorm
}

func bufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	flags := []struct {
		from gpu.BufferUsage
		to   wgpu.BufferUsage
	}{
		{gpu.BufferUsageMapRead, wgpu.BufferUsageMapRead},
		{gpu.BufferUsageMapWrite, wgpu.BufferUsageMapWrite},
		{gpu.BufferUsageCopySrc, wgpu.BufferUsageCopySrc},
		{gpu.BufferUsageCopyDst, wgpu.BufferUsageCopyDst},
		{gpu.BufferUsageIndex, wgpu.BufferUsageIndex},
		{gpu.BufferUsageVertex, wgpu.BufferUsageVertex},
		{gpu.BufferUsageUniform, wgpu.BufferUsageUniform},
		{gpu.BufferUsageStorage, wgpu.BufferUsageStorage},
	}
	for _, f := range flags {
		if u&f.from != 0 {
			out |= f.to
		}
	}
	return out
}

func textureUsage(u gpu.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	flags := []struct {
		from gpu.TextureUsage
		to   wgpu.TextureUsage
	}{
		{gpu.TextureUsageCopySrc, wgpu.TextureUsageCopySrc},
		{gpu.TextureUsageCopyDst, wgpu.TextureUsageCopyDst},
		{gpu.TextureUsageTextureBinding, wgpu.TextureUsageTextureBinding},
		{gpu.TextureUsageStorageBinding, wgpu.TextureUsageStorageBinding},
		{gpu.TextureUsageRenderAttachment, wgpu.TextureUsageRenderAttachment},
	}
	for _, f := range flags {
		if u&f.from != 0 {
			out |= f.to
		}
	}
	return out
}

func shaderStage(s gpu.ShaderStage) wgpu.ShaderStage {
	out := wgpu.ShaderStageNone
	if s&gpu.ShaderStageVertex != 0 {
		out |= wgpu.ShaderStageVertex
	}
	if s&gpu.ShaderStageFragment != 0 {
		out |= wgpu.ShaderStageFragment
	}
	return out
}

func frontFace(f gpu.FrontFace) wgpu.FrontFace {
	if f == gpu.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func blendState(b *gpu.BlendState) *wgpu.BlendState {
	if b == nil {
		return nil
	}
	component := func(c gpu.BlendComponent) wgpu.BlendComponent {
		return wgpu.BlendComponent{
			Operation: blendOperations[c.Operation],
			SrcFactor: blendFactors[c.SrcFactor],
			DstFactor: blendFactors[c.DstFactor],
		}
	}
	return &wgpu.BlendState{Color: component(b.Color), Alpha: component(b.Alpha)}
}

// layoutEntry converts a reflected binding into a bind group layout entry.
func layoutEntry(e gpu.LayoutEntry) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: shaderStage(e.Visibility),
	}
	switch e.Type {
	case gpu.BindingTypeUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = e.MinBindingSize
	case gpu.BindingTypeReadOnlyStorage:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		entry.Buffer.MinBindingSize = e.MinBindingSize
	case gpu.BindingTypeStorage:
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		entry.Buffer.MinBindingSize = e.MinBindingSize
	case gpu.BindingTypeTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case gpu.BindingTypeSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	}
	return entry
}

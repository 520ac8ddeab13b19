package gpu

// Device is the GPU backend consumed by the renderer.
//
// Resource lifecycle:
//   - Resources are created via Create* methods and must be released via the matching Release* method
//   - Releasing an unknown or already released handle is a no-op
//   - Handles are never reused after release
//
// Frame lifecycle: BeginFrame, then any number of BeginRenderPass/End pairs, then EndFrame and Present.
// AbortFrame discards a frame that failed part way through. Submission is fire-and-forget: no method
// waits for the GPU to finish executing submitted work.
type Device interface {
	// CreateBuffer allocates a buffer of exactly desc.Size bytes.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - BufferID: the new buffer handle
	//   - error: an error if allocation fails
	CreateBuffer(desc BufferDescriptor) (BufferID, error)

	// WriteBuffer queues a copy of data into the buffer at offset. The data is copied before returning.
	//
	// Parameters:
	//   - id: the destination buffer
	//   - offset: the byte offset into the buffer
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the buffer is unknown or the write would overflow it
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// ReleaseBuffer releases a buffer.
	//
	// Parameters:
	//   - id: the buffer to release
	ReleaseBuffer(id BufferID)

	// CreateTexture allocates a 2D texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - TextureID: the new texture handle
	//   - error: an error if allocation fails
	CreateTexture(desc TextureDescriptor) (TextureID, error)

	// WriteTexture replaces the full contents of a texture. pixels must be tightly packed rows.
	//
	// Parameters:
	//   - id: the destination texture
	//   - pixels: width*height*bytesPerPixel bytes
	//
	// Returns:
	//   - error: an error if the texture is unknown or pixels has the wrong size
	WriteTexture(id TextureID, pixels []byte) error

	// ReleaseTexture releases a texture.
	//
	// Parameters:
	//   - id: the texture to release
	ReleaseTexture(id TextureID)

	// CreateSampler creates a sampler.
	//
	// Parameters:
	//   - desc: the sampler descriptor
	//
	// Returns:
	//   - SamplerID: the new sampler handle
	//   - error: an error if creation fails
	CreateSampler(desc SamplerDescriptor) (SamplerID, error)

	// ReleaseSampler releases a sampler.
	//
	// Parameters:
	//   - id: the sampler to release
	ReleaseSampler(id SamplerID)

	// CreateRenderPipeline compiles shaders and creates a render pipeline with explicit bind group layouts.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - PipelineID: the new pipeline handle
	//   - error: an error if shader compilation or pipeline creation fails
	CreateRenderPipeline(desc RenderPipelineDescriptor) (PipelineID, error)

	// ReleaseRenderPipeline releases a render pipeline and its layouts.
	//
	// Parameters:
	//   - id: the pipeline to release
	ReleaseRenderPipeline(id PipelineID)

	// CreateBindGroup creates a bind group against group desc.Group of a pipeline's layout.
	//
	// Parameters:
	//   - desc: the bind group descriptor
	//
	// Returns:
	//   - BindGroupID: the new bind group handle
	//   - error: an error if a referenced resource or the layout is unknown
	CreateBindGroup(desc BindGroupDescriptor) (BindGroupID, error)

	// ReleaseBindGroup releases a bind group.
	//
	// Parameters:
	//   - id: the bind group to release
	ReleaseBindGroup(id BindGroupID)

	// SurfaceFormat returns the presentation surface's texture format.
	//
	// Returns:
	//   - TextureFormat: the surface format
	SurfaceFormat() TextureFormat

	// SurfaceSize returns the presentation surface's size in pixels.
	//
	// Returns:
	//   - width, height: the surface size
	SurfaceSize() (width, height int)

	// Resize reconfigures the surface and the device-managed depth buffer.
	//
	// Parameters:
	//   - width, height: the new surface size in pixels
	Resize(width, height int)

	// BeginFrame acquires the next presentation texture and starts recording commands.
	//
	// Returns:
	//   - TextureID: the presentation target for this frame
	//   - error: an error if no target could be acquired or a frame is already in progress
	BeginFrame() (TextureID, error)

	// BeginRenderPass starts a render pass that clears its target. The previous pass must have been ended.
	//
	// Parameters:
	//   - desc: the pass descriptor
	//
	// Returns:
	//   - RenderPass: the pass encoder
	//   - error: an error if no frame is in progress or the target is unknown
	BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error)

	// EndFrame finishes recording and submits the frame's commands.
	//
	// Returns:
	//   - error: ErrDeviceLost-wrapped error if submission fails
	EndFrame() error

	// AbortFrame discards the frame in progress without submitting it.
	AbortFrame()

	// Present presents the frame's target to the display.
	Present()

	// Release releases the device and every resource it still owns.
	Release()
}

// RenderPass records draw commands into one pass.
type RenderPass interface {
	// SetPipeline selects the pipeline for subsequent draws.
	SetPipeline(id PipelineID)

	// SetBindGroup binds a bind group at a group index for subsequent draws.
	SetBindGroup(group uint32, id BindGroupID)

	// Draw issues a non-indexed draw. Vertex data is fetched by the shader.
	//
	// Parameters:
	//   - vertexCount: the number of vertex invocations
	//   - instanceCount: the number of instances
	Draw(vertexCount, instanceCount uint32)

	// End finishes the pass.
	End()
}

package wgpu_backend

import (
	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// pass records draws into a WebGPU render pass encoder.
type pass struct {
	device  *device
	encoder *wgpu.RenderPassEncoder
	ended   bool
}

var _ gpu.RenderPass = &pass{}

func (p *pass) SetPipeline(id gpu.PipelineID) {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()

	rp, ok := p.device.pipelines[id]
	if !ok {
		common.Logger().Warn("set of unknown pipeline", "id", id)
		return
	}
	p.encoder.SetPipeline(rp.pipeline)
}

func (p *pass) SetBindGroup(group uint32, id gpu.BindGroupID) {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()

	bg, ok := p.device.bindGroups[id]
	if !ok {
		common.Logger().Warn("set of unknown bind group", "group", group, "id", id)
		return
	}
	p.encoder.SetBindGroup(group, bg, nil)
}

func (p *pass) Draw(vertexCount, instanceCount uint32) {
	p.encoder.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *pass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.encoder.End()
	p.encoder.Release()
}

package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// ComputePipelineInfo describes a compute pipeline. EntryPoint defaults to
// "main".
type ComputePipelineInfo struct {
	Shader      Shader
	EntryPoint  string
	Descriptors []Descriptor
}

// ComputePipeline is a compute pipeline and the layout it owns.
type ComputePipeline struct {
	Handle
	VKPipeline vk.Pipeline
	Layout     *PipelineLayout
}

// CreateComputePipeline builds a pipeline layout visible to the compute stage
// from info.Descriptors, then a compute pipeline running info.Shader.
func (c *Context) CreateComputePipeline(info ComputePipelineInfo) (*ComputePipeline, error) {
	h, err := newHandle(c, "compute pipeline")
	if err != nil {
		return nil, err
	}
	if info.Shader == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "compute pipeline: nil shader")
	}
	entryPoint := info.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}

	layout, err := c.CreatePipelineLayout(PipelineLayoutInfo{
		Descriptors: info.Descriptors,
		Stages:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
	})
	if err != nil {
		return nil, errors.Wrap(err, "compute pipeline")
	}

	var pipelineCreateInfo = vk.ComputePipelineCreateInfo{}
	pipelineCreateInfo.SType = vk.StructureTypeComputePipelineCreateInfo
	pipelineCreateInfo.Stage = VKPipelineShaderStageCreateInfo(info.Shader, vk.ShaderStageComputeBit, entryPoint)
	pipelineCreateInfo.Layout = layout.VKPipelineLayout

	pipeline, err := c.driver.CreateComputePipeline(&pipelineCreateInfo)
	if err != nil {
		layout.Destroy()
		return nil, errors.Wrap(err, "compute pipeline: create")
	}

	var ret ComputePipeline
	ret.Handle = h
	ret.VKPipeline = pipeline
	ret.Layout = layout

	c.log.Debug("compute pipeline created", slog.String("entryPoint", entryPoint),
		slog.Int("descriptors", len(info.Descriptors)))

	return &ret, nil
}

// Destroy releases the pipeline, then its layout.
func (p *ComputePipeline) Destroy() {
	c, ok := p.release()
	if !ok {
		return
	}
	c.driver.DestroyPipeline(p.VKPipeline)
	p.Layout.Destroy()
}

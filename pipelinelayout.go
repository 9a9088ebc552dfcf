package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// PipelineLayoutInfo lists the buffers exposed to the shader stages in Stages.
type PipelineLayoutInfo struct {
	Descriptors []Descriptor
	Stages      vk.ShaderStageFlags
}

// PipelineLayout is a pipeline layout together with the single descriptor set
// it binds, plus the set layout and pool backing that set.
//
// A layout built from no descriptors is disabled: it has no set, pool or set
// layout and the pipeline layout references zero sets.
type PipelineLayout struct {
	Handle

	VKSetLayout      vk.DescriptorSetLayout
	VKPool           vk.DescriptorPool
	VKSet            vk.DescriptorSet
	VKPipelineLayout vk.PipelineLayout

	Enabled   bool
	PoolSizes []vk.DescriptorPoolSize
	MaxSets   uint32
}

// DescriptorPoolSizes returns one pool size per descriptor type used in
// descriptors, ordered by type, each sized to the number of descriptors of that
// type.
func DescriptorPoolSizes(descriptors []Descriptor) []vk.DescriptorPoolSize {
	tally := make(map[vk.DescriptorType]uint32)
	for _, d := range descriptors {
		tally[d.Type]++
	}
	types := maps.Keys(tally)
	slices.Sort(types)

	sizes := make([]vk.DescriptorPoolSize, 0, len(types))
	for _, t := range types {
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            t,
			DescriptorCount: tally[t],
		})
	}
	return sizes
}

// CreatePipelineLayout derives a descriptor set layout and an exactly sized pool
// from info.Descriptors, allocates and writes one descriptor set, and creates a
// pipeline layout referencing the set layout.
func (c *Context) CreatePipelineLayout(info PipelineLayoutInfo) (*PipelineLayout, error) {
	h, err := newHandle(c, "pipeline layout")
	if err != nil {
		return nil, err
	}
	drv := c.driver

	var ret PipelineLayout
	ret.Handle = h
	ret.Enabled = len(info.Descriptors) > 0

	// undo runs in reverse on failure
	var undo []func()
	fail := func(err error, step string) (*PipelineLayout, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return nil, errors.Wrapf(err, "pipeline layout: %s", step)
	}

	var setLayouts []vk.DescriptorSetLayout

	if ret.Enabled {
		seen := make(map[uint32]bool, len(info.Descriptors))
		bindings := make([]vk.DescriptorSetLayoutBinding, 0, len(info.Descriptors))
		for _, d := range info.Descriptors {
			if d.Buffer == nil {
				return nil, errors.Wrapf(ErrInvalidArgument, "pipeline layout: descriptor at binding %d has no buffer", d.Binding)
			}
			if d.Buffer.Owner() != c {
				return nil, errors.Wrapf(ErrForeignResource, "pipeline layout: descriptor at binding %d", d.Binding)
			}
			if seen[d.Binding] {
				return nil, errors.Wrapf(ErrInvalidArgument, "pipeline layout: binding %d declared twice", d.Binding)
			}
			seen[d.Binding] = true

			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:         d.Binding,
				DescriptorType:  d.Type,
				DescriptorCount: 1,
				StageFlags:      info.Stages,
			})
		}

		descriptorSetLayoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}
		ret.VKSetLayout, err = drv.CreateDescriptorSetLayout(&descriptorSetLayoutCreateInfo)
		if err != nil {
			return fail(err, "create descriptor set layout")
		}
		undo = append(undo, func() { drv.DestroyDescriptorSetLayout(ret.VKSetLayout) })

		ret.PoolSizes = DescriptorPoolSizes(info.Descriptors)
		ret.MaxSets = uint32(len(info.Descriptors))

		descriptorPoolCreateInfo := vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			MaxSets:       ret.MaxSets,
			PoolSizeCount: uint32(len(ret.PoolSizes)),
			PPoolSizes:    ret.PoolSizes,
		}
		ret.VKPool, err = drv.CreateDescriptorPool(&descriptorPoolCreateInfo)
		if err != nil {
			return fail(err, "create descriptor pool")
		}
		undo = append(undo, func() { drv.DestroyDescriptorPool(ret.VKPool) })

		descriptorSetAllocateInfo := vk.DescriptorSetAllocateInfo{}
		descriptorSetAllocateInfo.SType = vk.StructureTypeDescriptorSetAllocateInfo
		descriptorSetAllocateInfo.DescriptorPool = ret.VKPool
		descriptorSetAllocateInfo.DescriptorSetCount = 1
		descriptorSetAllocateInfo.PSetLayouts = []vk.DescriptorSetLayout{ret.VKSetLayout}

		ret.VKSet, err = drv.AllocateDescriptorSet(&descriptorSetAllocateInfo)
		if err != nil {
			return fail(err, "allocate descriptor set")
		}

		writes := make([]vk.WriteDescriptorSet, 0, len(info.Descriptors))
		for _, d := range info.Descriptors {
			var writeDescriptorSet = vk.WriteDescriptorSet{}
			writeDescriptorSet.SType = vk.StructureTypeWriteDescriptorSet
			writeDescriptorSet.DstSet = ret.VKSet
			writeDescriptorSet.DstBinding = d.Binding
			writeDescriptorSet.DescriptorCount = 1
			writeDescriptorSet.DescriptorType = d.Type
			writeDescriptorSet.PBufferInfo = []vk.DescriptorBufferInfo{d.VKDescriptorBufferInfo()}
			writes = append(writes, writeDescriptorSet)
		}
		drv.UpdateDescriptorSets(writes)

		setLayouts = []vk.DescriptorSetLayout{ret.VKSetLayout}
	}

	var pipelineLayoutCreateInfo = vk.PipelineLayoutCreateInfo{}
	pipelineLayoutCreateInfo.SType = vk.StructureTypePipelineLayoutCreateInfo
	pipelineLayoutCreateInfo.SetLayoutCount = uint32(len(setLayouts))
	pipelineLayoutCreateInfo.PSetLayouts = setLayouts

	ret.VKPipelineLayout, err = drv.CreatePipelineLayout(&pipelineLayoutCreateInfo)
	if err != nil {
		return fail(err, "create pipeline layout")
	}

	c.log.Debug("pipeline layout created", slog.Int("descriptors", len(info.Descriptors)),
		slog.Int("poolSizes", len(ret.PoolSizes)))

	return &ret, nil
}

// Destroy releases the set layout, then the pool along with its set, then the
// pipeline layout.
func (p *PipelineLayout) Destroy() {
	c, ok := p.release()
	if !ok {
		return
	}
	drv := c.driver
	if p.Enabled {
		drv.DestroyDescriptorSetLayout(p.VKSetLayout)
		drv.DestroyDescriptorPool(p.VKPool)
	}
	drv.DestroyPipelineLayout(p.VKPipelineLayout)
}

package vkres

import (
	vk "github.com/vulkan-go/vulkan"
)

// Binding describes how a buffer feeds a vertex input binding slot. Views hold
// no native objects and must not outlive their buffer.
type Binding struct {
	Buffer *Buffer
	Slot   uint32
	Stride uint32
}

// Attribute returns a vertex attribute read from the binding at offset, made of
// width components of type t.
func (b Binding) Attribute(location uint32, t ComponentType, width int, offset uint32) (Attribute, error) {
	format, err := t.Format(width)
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{Binding: b, Location: location, Format: format, Offset: offset}, nil
}

func (b Binding) VKVertexInputBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   b.Slot,
		Stride:    b.Stride,
		InputRate: vk.VertexInputRateVertex,
	}
}

type Attribute struct {
	Binding  Binding
	Location uint32
	Format   vk.Format
	Offset   uint32
}

func (a Attribute) VKVertexInputAttributeDescription() vk.VertexInputAttributeDescription {
	return vk.VertexInputAttributeDescription{
		Location: a.Location,
		Binding:  a.Binding.Slot,
		Format:   a.Format,
		Offset:   a.Offset,
	}
}

// Descriptor exposes a buffer to shaders at a binding slot of a descriptor set.
type Descriptor struct {
	Buffer  *Buffer
	Binding uint32
	Type    vk.DescriptorType
}

// VKDescriptorBufferInfo covers the whole buffer.
func (d Descriptor) VKDescriptorBufferInfo() vk.DescriptorBufferInfo {
	var descriptorBufferInfo = vk.DescriptorBufferInfo{}
	descriptorBufferInfo.Buffer = d.Buffer.VKBuffer()
	descriptorBufferInfo.Offset = 0
	descriptorBufferInfo.Range = vk.DeviceSize(d.Buffer.Size)
	return descriptorBufferInfo
}

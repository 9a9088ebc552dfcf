package vkdriver

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkres"
)

// Device is a logical device. It implements vkres.Driver on top of the Vulkan
// loader.
type Device struct {
	Instance       *Instance
	PhysicalDevice *PhysicalDevice
	QueueFamily    *QueueFamily
	VKDevice       vk.Device
	VKQueue        vk.Queue

	// VKSurface is the surface the device presents to, vk.NullSurface for
	// compute-only devices.
	VKSurface vk.Surface

	memoryProperties vk.PhysicalDeviceMemoryProperties
}

var _ vkres.Driver = (*Device)(nil)

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s QueueFamily: %s }", d.PhysicalDevice, d.QueueFamily)
}

// Queue returns the queue a vkres.Context should submit to.
func (d *Device) Queue() vkres.Queue {
	return vkres.Queue{VKQueue: d.VKQueue, FamilyIndex: uint32(d.QueueFamily.Index)}
}

func (d *Device) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	return d.memoryProperties
}

func (d *Device) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	var buffer vk.Buffer
	err := vkres.Check("vkCreateBuffer", vk.CreateBuffer(d.VKDevice, info, nil, &buffer))
	return buffer, err
}

func (d *Device) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.VKDevice, buffer, nil)
}

func (d *Device) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.VKDevice, buffer, &memoryRequirements)
	memoryRequirements.Deref()
	return memoryRequirements
}

func (d *Device) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset uint64) error {
	return vkres.Check("vkBindBufferMemory", vk.BindBufferMemory(d.VKDevice, buffer, memory, vk.DeviceSize(offset)))
}

func (d *Device) AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error) {
	var deviceMemory vk.DeviceMemory
	err := vkres.Check("vkAllocateMemory", vk.AllocateMemory(d.VKDevice, info, nil, &deviceMemory))
	return deviceMemory, err
}

func (d *Device) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.VKDevice, memory, nil)
}

func (d *Device) MapMemory(memory vk.DeviceMemory, offset, size uint64) ([]byte, error) {
	var res unsafe.Pointer
	err := vkres.Check("vkMapMemory", vk.MapMemory(d.VKDevice, memory, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &res))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(res), size), nil
}

func (d *Device) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.VKDevice, memory)
}

func (d *Device) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	var descriptorSetLayout vk.DescriptorSetLayout
	err := vkres.Check("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(d.VKDevice, info, nil, &descriptorSetLayout))
	return descriptorSetLayout, err
}

func (d *Device) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.VKDevice, layout, nil)
}

func (d *Device) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	var descriptorPool vk.DescriptorPool
	err := vkres.Check("vkCreateDescriptorPool", vk.CreateDescriptorPool(d.VKDevice, info, nil, &descriptorPool))
	return descriptorPool, err
}

func (d *Device) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.VKDevice, pool, nil)
}

func (d *Device) AllocateDescriptorSet(info *vk.DescriptorSetAllocateInfo) (vk.DescriptorSet, error) {
	var descriptorSet vk.DescriptorSet
	err := vkres.Check("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(d.VKDevice, info, &descriptorSet))
	return descriptorSet, err
}

func (d *Device) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.VKDevice, uint32(len(writes)), writes, 0, nil)
}

func (d *Device) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var pipelineLayout vk.PipelineLayout
	err := vkres.Check("vkCreatePipelineLayout", vk.CreatePipelineLayout(d.VKDevice, info, nil, &pipelineLayout))
	return pipelineLayout, err
}

func (d *Device) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.VKDevice, layout, nil)
}

func (d *Device) CreateComputePipeline(info *vk.ComputePipelineCreateInfo) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	err := vkres.Check("vkCreateComputePipelines", vk.CreateComputePipelines(
		d.VKDevice, vk.PipelineCache(vk.NullHandle),
		1, []vk.ComputePipelineCreateInfo{*info},
		nil, pipelines))
	if err != nil {
		return vk.Pipeline(vk.NullHandle), err
	}
	return pipelines[0], nil
}

func (d *Device) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(d.VKDevice, pipeline, nil)
}

func (d *Device) CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	err := vkres.Check("vkCreateShaderModule", vk.CreateShaderModule(d.VKDevice, info, nil, &module))
	return module, err
}

func (d *Device) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.VKDevice, module, nil)
}

func (d *Device) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	err := vkres.Check("vkCreateImageView", vk.CreateImageView(d.VKDevice, info, nil, &view))
	return view, err
}

func (d *Device) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.VKDevice, view, nil)
}

func (d *Device) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	err := vkres.Check("vkCreateFramebuffer", vk.CreateFramebuffer(d.VKDevice, info, nil, &framebuffer))
	return framebuffer, err
}

func (d *Device) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(d.VKDevice, framebuffer, nil)
}

func (d *Device) CreateSemaphore(info *vk.SemaphoreCreateInfo) (vk.Semaphore, error) {
	var sem vk.Semaphore
	err := vkres.Check("vkCreateSemaphore", vk.CreateSemaphore(d.VKDevice, info, nil, &sem))
	return sem, err
}

func (d *Device) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.VKDevice, semaphore, nil)
}

func (d *Device) CreateFence(info *vk.FenceCreateInfo) (vk.Fence, error) {
	var fence vk.Fence
	err := vkres.Check("vkCreateFence", vk.CreateFence(d.VKDevice, info, nil, &fence))
	return fence, err
}

func (d *Device) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(d.VKDevice, fence, nil)
}

func (d *Device) WaitForFence(fence vk.Fence, timeout uint64) error {
	return vkres.Check("vkWaitForFences", vk.WaitForFences(d.VKDevice, 1, []vk.Fence{fence}, vk.True, timeout))
}

func (d *Device) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	var commandPool vk.CommandPool
	err := vkres.Check("vkCreateCommandPool", vk.CreateCommandPool(d.VKDevice, info, nil, &commandPool))
	return commandPool, err
}

func (d *Device) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(d.VKDevice, pool, nil)
}

func (d *Device) AllocateCommandBuffer(info *vk.CommandBufferAllocateInfo) (vk.CommandBuffer, error) {
	commandBuffers := make([]vk.CommandBuffer, 1)
	err := vkres.Check("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(d.VKDevice, info, commandBuffers))
	if err != nil {
		return nil, err
	}
	return commandBuffers[0], nil
}

func (d *Device) FreeCommandBuffer(pool vk.CommandPool, commandBuffer vk.CommandBuffer) {
	vk.FreeCommandBuffers(d.VKDevice, pool, 1, []vk.CommandBuffer{commandBuffer})
}

func (d *Device) BeginCommandBuffer(commandBuffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	return vkres.Check("vkBeginCommandBuffer", vk.BeginCommandBuffer(commandBuffer, info))
}

func (d *Device) EndCommandBuffer(commandBuffer vk.CommandBuffer) error {
	return vkres.Check("vkEndCommandBuffer", vk.EndCommandBuffer(commandBuffer))
}

func (d *Device) CmdCopyBuffer(commandBuffer vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(commandBuffer, src, dst, uint32(len(regions)), regions)
}

func (d *Device) CmdBindPipeline(commandBuffer vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(commandBuffer, bindPoint, pipeline)
}

func (d *Device) CmdBindDescriptorSets(commandBuffer vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(commandBuffer, bindPoint, layout, firstSet, uint32(len(sets)), sets, 0, nil)
}

func (d *Device) CmdDispatch(commandBuffer vk.CommandBuffer, x, y, z uint32) {
	vk.CmdDispatch(commandBuffer, x, y, z)
}

func (d *Device) CmdBeginRenderPass(commandBuffer vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	vk.CmdBeginRenderPass(commandBuffer, info, contents)
}

func (d *Device) CmdEndRenderPass(commandBuffer vk.CommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer)
}

func (d *Device) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	return vkres.Check("vkQueueSubmit", vk.QueueSubmit(queue, uint32(len(submits)), submits, fence))
}

func (d *Device) QueueWaitIdle(queue vk.Queue) error {
	return vkres.Check("vkQueueWaitIdle", vk.QueueWaitIdle(queue))
}

func (d *Device) DeviceWaitIdle() error {
	return vkres.Check("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.VKDevice))
}

func (d *Device) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	err := vkres.Check("vkCreateSwapchainKHR", vk.CreateSwapchain(d.VKDevice, info, nil, &swapchain))
	return swapchain, err
}

func (d *Device) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(d.VKDevice, swapchain, nil)
}

func (d *Device) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	var imageCount uint32
	err := vkres.Check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(d.VKDevice, swapchain, &imageCount, nil))
	if err != nil {
		return nil, err
	}

	swapchainImages := make([]vk.Image, imageCount)
	err = vkres.Check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(d.VKDevice, swapchain, &imageCount, swapchainImages))
	if err != nil {
		return nil, err
	}
	return swapchainImages[:imageCount], nil
}

func (d *Device) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore, fence vk.Fence) (uint32, error) {
	var index uint32
	err := vkres.Check("vkAcquireNextImageKHR", vk.AcquireNextImage(d.VKDevice, swapchain, timeout, semaphore, fence, &index))
	return index, err
}

func (d *Device) QueuePresent(queue vk.Queue, info *vk.PresentInfo) error {
	return vkres.Check("vkQueuePresentKHR", vk.QueuePresent(queue, info))
}

// CreateColorRenderPass creates a render pass with a single color attachment of
// the given format that is cleared on load and left ready for presentation.
func (d *Device) CreateColorRenderPass(format vk.Format) (vk.RenderPass, error) {
	attachmentDescriptions := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpassDescriptions := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachments,
	}}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    uint32(len(subpassDescriptions)),
		PSubpasses:      subpassDescriptions,
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	err := vkres.Check("vkCreateRenderPass", vk.CreateRenderPass(d.VKDevice, &renderPassCreateInfo, nil, &renderPass))
	if err != nil {
		return vk.NullRenderPass, errors.Wrap(err, "color render pass")
	}
	return renderPass, nil
}

func (d *Device) DestroyRenderPass(renderPass vk.RenderPass) {
	vk.DestroyRenderPass(d.VKDevice, renderPass, nil)
}

// Destroy waits for the device to go idle, then releases the device, the
// surface and the instance. Every vkres.Context using the device must have been
// destroyed.
func (d *Device) Destroy() {
	vk.DeviceWaitIdle(d.VKDevice)
	vk.DestroyDevice(d.VKDevice, nil)
	if d.VKSurface != vk.NullSurface {
		vk.DestroySurface(d.Instance.VKInstance, d.VKSurface, nil)
	}
	d.Instance.Destroy()
}

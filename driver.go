package vkres

import (
	vk "github.com/vulkan-go/vulkan"
)

// Driver is the set of native device entry points the resources in this package
// are built on. vkdriver.Device implements it on top of the Vulkan loader.
//
// Every call that can fail returns an *APIError (see Check) so the failing
// entry point and result code reach the caller unchanged.
type Driver interface {
	MemoryProperties() vk.PhysicalDeviceMemoryProperties

	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error)
	DestroyBuffer(buffer vk.Buffer)
	BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset uint64) error

	AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error)
	FreeMemory(memory vk.DeviceMemory)
	// MapMemory maps size bytes of memory starting at offset. The returned slice
	// is only valid until UnmapMemory.
	MapMemory(memory vk.DeviceMemory, offset, size uint64) ([]byte, error)
	UnmapMemory(memory vk.DeviceMemory)

	CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSet(info *vk.DescriptorSetAllocateInfo) (vk.DescriptorSet, error)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)

	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateComputePipeline(info *vk.ComputePipelineCreateInfo) (vk.Pipeline, error)
	DestroyPipeline(pipeline vk.Pipeline)

	CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, error)
	DestroyShaderModule(module vk.ShaderModule)

	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)
	CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error)
	DestroyFramebuffer(framebuffer vk.Framebuffer)

	CreateSemaphore(info *vk.SemaphoreCreateInfo) (vk.Semaphore, error)
	DestroySemaphore(semaphore vk.Semaphore)
	CreateFence(info *vk.FenceCreateInfo) (vk.Fence, error)
	DestroyFence(fence vk.Fence)
	// WaitForFence blocks until fence is signaled or timeout nanoseconds pass.
	WaitForFence(fence vk.Fence, timeout uint64) error

	CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error)
	DestroyCommandPool(pool vk.CommandPool)
	AllocateCommandBuffer(info *vk.CommandBufferAllocateInfo) (vk.CommandBuffer, error)
	FreeCommandBuffer(pool vk.CommandPool, commandBuffer vk.CommandBuffer)
	BeginCommandBuffer(commandBuffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error
	EndCommandBuffer(commandBuffer vk.CommandBuffer) error

	CmdCopyBuffer(commandBuffer vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
	CmdBindPipeline(commandBuffer vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline)
	CmdBindDescriptorSets(commandBuffer vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet)
	CmdDispatch(commandBuffer vk.CommandBuffer, x, y, z uint32)
	CmdBeginRenderPass(commandBuffer vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents)
	CmdEndRenderPass(commandBuffer vk.CommandBuffer)

	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error
	QueueWaitIdle(queue vk.Queue) error
	DeviceWaitIdle() error

	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	DestroySwapchain(swapchain vk.Swapchain)
	SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error)
	// AcquireNextImage waits at most timeout nanoseconds for a presentable image and
	// returns its index. semaphore is signaled once the image can be rendered to.
	AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore, fence vk.Fence) (uint32, error)
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) error
}

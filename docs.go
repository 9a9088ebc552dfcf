/*
Package vkres manages the lifetime of Vulkan resources and moves data between
the host and device-local memory. Vulkan leaves the order in which objects are
created and destroyed, where memory lives and when the GPU is done with it up to
the application; this package takes care of those details for a small set of
resources while exposing every native handle, prefixed with 'VK', so nothing
stops an application from reaching past it.

Context

Every resource is created against a Context. The Context holds the Driver, the
memory properties of the physical device, the queue work is submitted to and a
command pool for one-shot command buffers. vkdriver.Open provides a Driver
backed by the Vulkan loader:

	dev, err := vkdriver.Open(vkdriver.Config{AppName: "app"})
	...
	ctx, err := vkres.NewContext(dev, dev.Queue(), vkres.DefaultOptions())

Resources

	Buffer		device-local memory filled and read through host-visible staging memory
	PipelineLayout	a descriptor set, its layout and pool, and a pipeline layout, all derived from a list of Descriptors
	ComputePipeline	a compute pipeline together with the PipelineLayout it owns
	ImageView	a 2D view over an image
	Framebuffer	a single image view wrapped into a single-layer framebuffer
	Swapchain	a ring of presentable images, each with its own ImageView and Framebuffer
	Semaphore	device-side synchronization passed to acquire, submit and present
	Fence		host-side wait for submitted work
	ShaderModule	compiled SPIR-V
	CommandBuffer	recorded commands submitted with Context.Submit

Each resource embeds a Handle and is released with Destroy, which releases the
resource's own native objects before the children it owns. Calling Destroy a
second time does nothing.

Transfers

Buffer.SubData, Buffer.ReadData and CopyBuffer record a one-shot copy, submit it
and wait for it on a fence before returning, so staging memory is never released
while the GPU is still reading or writing it. With StagingDynamic a staging
buffer the size of the transfer is created for each call; with StagingStatic a
staging buffer the size of the Buffer lives as long as the Buffer does.

Views

Binding, Attribute and Descriptor describe how a Buffer is consumed by a vertex
input or a descriptor set. They hold no native objects and must not outlive
their Buffer. Attribute formats come from FormatFor, which maps a component
size, vector width and ScalarKind to a vk.Format.
*/
package vkres

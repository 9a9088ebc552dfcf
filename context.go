package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Queue is the device queue a Context submits transfer, compute and present
// work to.
type Queue struct {
	VKQueue     vk.Queue
	FamilyIndex uint32
}

// Context is the owning context every resource is created against. It holds the
// driver, the physical memory properties, a single queue and a command pool for
// one-shot command buffers. Resources keep a non-owning reference to it.
//
// The Context does not own the device itself; whoever opened the device tears it
// down after calling Destroy.
type Context struct {
	driver           Driver
	queue            Queue
	memoryProperties vk.PhysicalDeviceMemoryProperties
	commandPool      vk.CommandPool
	opts             Options
	log              *slog.Logger
	destroyed        bool
}

// NewContext creates a Context submitting to queue through drv.
func NewContext(drv Driver, queue Queue, opts Options) (*Context, error) {
	if drv == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "context: nil driver")
	}
	opts = opts.withDefaults()

	var commandPoolCreateInfo = vk.CommandPoolCreateInfo{}
	commandPoolCreateInfo.SType = vk.StructureTypeCommandPoolCreateInfo
	commandPoolCreateInfo.Flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit)
	commandPoolCreateInfo.QueueFamilyIndex = queue.FamilyIndex

	pool, err := drv.CreateCommandPool(&commandPoolCreateInfo)
	if err != nil {
		return nil, errors.Wrap(err, "context: create command pool")
	}

	var ret Context
	ret.driver = drv
	ret.queue = queue
	ret.memoryProperties = drv.MemoryProperties()
	ret.commandPool = pool
	ret.opts = opts
	ret.log = opts.Logger

	ret.log.Debug("context created", slog.Uint64("queueFamily", uint64(queue.FamilyIndex)),
		slog.Uint64("memoryTypes", uint64(ret.memoryProperties.MemoryTypeCount)))

	return &ret, nil
}

// Driver returns the native entry points resources call through.
func (c *Context) Driver() Driver {
	return c.driver
}

// Queue returns the queue work is submitted to.
func (c *Context) Queue() Queue {
	return c.queue
}

// MemoryProperties returns the memory types and heaps of the physical device.
func (c *Context) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	return c.memoryProperties
}

func (c *Context) Options() Options {
	return c.opts
}

func (c *Context) Logger() *slog.Logger {
	return c.log
}

// WaitIdle blocks until the context's queue has drained.
func (c *Context) WaitIdle() error {
	return c.driver.QueueWaitIdle(c.queue.VKQueue)
}

// Destroy waits for outstanding work and releases the command pool. Every
// resource created against the context must be destroyed first. A second
// Destroy does nothing.
func (c *Context) Destroy() {
	if c.destroyed {
		c.log.Warn("context: destroy called twice")
		return
	}
	c.destroyed = true
	if err := c.driver.DeviceWaitIdle(); err != nil {
		c.log.Warn("context: wait idle before destroy", slog.Any("error", err))
	}
	c.driver.DestroyCommandPool(c.commandPool)
	c.log.Debug("context destroyed")
}

// findMemoryTypeIndex picks a memory type of this device for a resource with the
// given requirements.
func (c *Context) findMemoryTypeIndex(typeFilter uint32, required vk.MemoryPropertyFlags) (uint32, error) {
	return FindMemoryTypeIndex(c.memoryProperties, typeFilter, required)
}

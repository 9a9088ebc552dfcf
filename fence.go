package vkres

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Fence is a host-waitable completion signal.
type Fence struct {
	Handle
	VKFence vk.Fence
}

// CreateFence creates an unsignaled fence.
func (c *Context) CreateFence() (*Fence, error) {
	h, err := newHandle(c, "fence")
	if err != nil {
		return nil, err
	}

	var fenceCreateInfo = vk.FenceCreateInfo{}
	fenceCreateInfo.SType = vk.StructureTypeFenceCreateInfo
	fenceCreateInfo.Flags = 0

	fence, err := c.driver.CreateFence(&fenceCreateInfo)
	if err != nil {
		return nil, errors.Wrap(err, "fence: create")
	}

	var ret Fence
	ret.Handle = h
	ret.VKFence = fence
	return &ret, nil
}

// Wait blocks until the fence is signaled or timeout passes.
func (f *Fence) Wait(timeout time.Duration) error {
	drv := f.Driver()
	if drv == nil {
		return errors.Wrap(ErrNoContext, "fence: wait")
	}
	return drv.WaitForFence(f.VKFence, uint64(timeout.Nanoseconds()))
}

func (f *Fence) Destroy() {
	c, ok := f.release()
	if !ok {
		return
	}
	c.driver.DestroyFence(f.VKFence)
}

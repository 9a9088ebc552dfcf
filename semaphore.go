package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Semaphore is an opaque device-side synchronization handle passed to acquire,
// submit and present calls. It has no signaling logic of its own.
type Semaphore struct {
	Handle
	VKSemaphore vk.Semaphore
}

// CreateSemaphore creates a semaphore with default parameters.
func (c *Context) CreateSemaphore() (*Semaphore, error) {
	h, err := newHandle(c, "semaphore")
	if err != nil {
		return nil, err
	}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	sema, err := c.driver.CreateSemaphore(&semaphoreCreateInfo)
	if err != nil {
		return nil, errors.Wrap(err, "semaphore: create")
	}

	var ret Semaphore
	ret.Handle = h
	ret.VKSemaphore = sema
	return &ret, nil
}

func (s *Semaphore) Destroy() {
	c, ok := s.release()
	if !ok {
		return
	}
	c.driver.DestroySemaphore(s.VKSemaphore)
}

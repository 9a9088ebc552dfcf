package vkdriver

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkres"
)

type PhysicalDevice struct {
	DeviceName                 string
	VKPhysicalDevice           vk.PhysicalDevice
	VKPhysicalDeviceProperties vk.PhysicalDeviceProperties
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

func (p *PhysicalDevice) QueueFamilies() QueueFamilySlice {
	var queueFamilyCount uint32

	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, nil)

	if queueFamilyCount == 0 {
		return nil
	}

	queues := make([]vk.QueueFamilyProperties, queueFamilyCount)

	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, queues)

	ret := make([]*QueueFamily, queueFamilyCount)
	for i, queue := range queues {
		ret[i] = &QueueFamily{Index: i, PhysicalDevice: p, VKQueueFamilyProperties: queue}
		ret[i].VKQueueFamilyProperties.Deref()
	}

	return ret
}

// VKPhysicalDeviceMemoryProperties returns the memory types and heaps with every
// nested structure already dereferenced.
func (p *PhysicalDevice) VKPhysicalDeviceMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var memoryProperties vk.PhysicalDeviceMemoryProperties

	vk.GetPhysicalDeviceMemoryProperties(p.VKPhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	var i uint32
	for i = 0; i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
	}
	for i = 0; i < memoryProperties.MemoryHeapCount; i++ {
		memoryProperties.MemoryHeaps[i].Deref()
	}
	return memoryProperties
}

func (p *PhysicalDevice) SurfaceCapabilities(surface vk.Surface) (*vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	err := vkres.Check("vkGetPhysicalDeviceSurfaceCapabilitiesKHR",
		vk.GetPhysicalDeviceSurfaceCapabilities(p.VKPhysicalDevice, surface, &caps))
	if err != nil {
		return nil, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	return &caps, nil
}

func (p *PhysicalDevice) SurfaceFormats(surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	err := vkres.Check("vkGetPhysicalDeviceSurfaceFormatsKHR",
		vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, nil))
	if err != nil {
		return nil, err
	}

	f := make([]vk.SurfaceFormat, count)
	err = vkres.Check("vkGetPhysicalDeviceSurfaceFormatsKHR",
		vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, f))
	if err != nil {
		return nil, err
	}
	for i := range f {
		f[i].Deref()
	}

	return f, nil
}

// SupportsSurfaceFormat reports whether surface can present images of format.
func (p *PhysicalDevice) SupportsSurfaceFormat(surface vk.Surface, format vk.Format) (bool, error) {
	formats, err := p.SurfaceFormats(surface)
	if err != nil {
		return false, err
	}
	for _, f := range formats {
		// A single undefined entry means any format is accepted.
		if f.Format == format || (len(formats) == 1 && f.Format == vk.FormatUndefined) {
			return true, nil
		}
	}
	return false, nil
}

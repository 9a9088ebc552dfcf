package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

const (
	hostMemoryProperties  = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	localMemoryProperties = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

// FindMemoryTypeIndex returns the first memory type whose bit is set in
// typeFilter and whose property flags contain every flag in required.
//
// See the documentation of VkPhysicalDeviceMemoryProperties for how the search
// is meant to work. If no type matches the error wraps ErrResourceAllocation.
func FindMemoryTypeIndex(props vk.PhysicalDeviceMemoryProperties, typeFilter uint32, required vk.MemoryPropertyFlags) (uint32, error) {
	count := props.MemoryTypeCount
	if int(count) > len(props.MemoryTypes) {
		count = uint32(len(props.MemoryTypes))
	}
	var i uint32
	for i = 0; i < count; i++ {
		mt := props.MemoryTypes[i]
		if typeFilter&(1<<i) != 0 && mt.PropertyFlags&required == required {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrResourceAllocation,
		"no memory type matches filter %#x with properties %#x", typeFilter, uint32(required))
}

// bufferMemory is a native buffer together with the dedicated memory bound to it.
type bufferMemory struct {
	VKBuffer       vk.Buffer
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	Usage          vk.BufferUsageFlags
}

// createBufferMemory creates a buffer, allocates memory with the requested
// properties for it and binds the two. Nothing is leaked on failure.
func createBufferMemory(c *Context, size uint64, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*bufferMemory, error) {
	drv := c.driver

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	buffer, err := drv.CreateBuffer(&bufferCreateInfo)
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}

	mr := drv.BufferMemoryRequirements(buffer)

	memoryTypeIndex, err := c.findMemoryTypeIndex(mr.MemoryTypeBits, props)
	if err != nil {
		drv.DestroyBuffer(buffer)
		return nil, err
	}

	var allocateInfo = vk.MemoryAllocateInfo{}
	allocateInfo.SType = vk.StructureTypeMemoryAllocateInfo
	allocateInfo.AllocationSize = mr.Size
	allocateInfo.MemoryTypeIndex = memoryTypeIndex

	memory, err := drv.AllocateMemory(&allocateInfo)
	if err != nil {
		drv.DestroyBuffer(buffer)
		return nil, errors.Wrap(err, "allocate memory")
	}

	if err := drv.BindBufferMemory(buffer, memory, 0); err != nil {
		drv.FreeMemory(memory)
		drv.DestroyBuffer(buffer)
		return nil, errors.Wrap(err, "bind buffer memory")
	}

	var ret bufferMemory
	ret.VKBuffer = buffer
	ret.VKDeviceMemory = memory
	ret.Size = size
	ret.Usage = usage

	return &ret, nil
}

func createHostBufferMemory(c *Context, size uint64, usage vk.BufferUsageFlags) (*bufferMemory, error) {
	return createBufferMemory(c, size, usage, hostMemoryProperties)
}

// mapCopyUnmap maps len(data) bytes at offset, copies data in and unmaps.
func (m *bufferMemory) mapCopyUnmap(drv Driver, offset uint64, data []byte) error {
	mapped, err := drv.MapMemory(m.VKDeviceMemory, offset, uint64(len(data)))
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	copy(mapped, data)
	drv.UnmapMemory(m.VKDeviceMemory)
	return nil
}

// mapReadUnmap maps size bytes at offset and returns a copy of them.
func (m *bufferMemory) mapReadUnmap(drv Driver, offset, size uint64) ([]byte, error) {
	mapped, err := drv.MapMemory(m.VKDeviceMemory, offset, size)
	if err != nil {
		return nil, errors.Wrap(err, "map memory")
	}
	out := make([]byte, size)
	copy(out, mapped)
	drv.UnmapMemory(m.VKDeviceMemory)
	return out, nil
}

func (m *bufferMemory) destroy(drv Driver) {
	drv.FreeMemory(m.VKDeviceMemory)
	drv.DestroyBuffer(m.VKBuffer)
}

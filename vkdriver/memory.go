package vkdriver

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
	vk "github.com/vulkan-go/vulkan"
)

var memoryPropertyNames = []struct {
	bit  vk.MemoryPropertyFlagBits
	name string
}{
	{vk.MemoryPropertyDeviceLocalBit, "DeviceLocal"},
	{vk.MemoryPropertyHostVisibleBit, "HostVisible"},
	{vk.MemoryPropertyHostCoherentBit, "HostCoherent"},
	{vk.MemoryPropertyHostCachedBit, "HostCached"},
	{vk.MemoryPropertyLazilyAllocatedBit, "LazilyAllocated"},
	{vk.MemoryPropertyProtectedBit, "Protected"},
}

// MemoryPropertyString names the bits set in f, e.g. "HostVisible|HostCoherent (6)".
func MemoryPropertyString(f vk.MemoryPropertyFlags) string {
	var names []string
	for _, p := range memoryPropertyNames {
		if f&vk.MemoryPropertyFlags(p.bit) != 0 {
			names = append(names, p.name)
		}
	}
	return fmt.Sprintf("%s (%x)", strings.Join(names, "|"), uint32(f))
}

// DescribeMemoryHeaps lists each heap's size in human units and whether it is
// device local.
func DescribeMemoryHeaps(props vk.PhysicalDeviceMemoryProperties) []string {
	ret := make([]string, 0, props.MemoryHeapCount)
	var i uint32
	for i = 0; i < props.MemoryHeapCount && int(i) < len(props.MemoryHeaps); i++ {
		h := props.MemoryHeaps[i]
		s := units.BytesSize(float64(h.Size))
		if h.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			s += " local"
		}
		ret = append(ret, s)
	}
	return ret
}

// DescribeMemoryTypes lists each memory type's heap index and property flags.
func DescribeMemoryTypes(props vk.PhysicalDeviceMemoryProperties) []string {
	ret := make([]string, 0, props.MemoryTypeCount)
	var i uint32
	for i = 0; i < props.MemoryTypeCount && int(i) < len(props.MemoryTypes); i++ {
		mt := props.MemoryTypes[i]
		ret = append(ret, fmt.Sprintf("heap %d: %s", mt.HeapIndex, MemoryPropertyString(mt.PropertyFlags)))
	}
	return ret
}

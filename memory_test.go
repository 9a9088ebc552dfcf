package vkres_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkres"
)

func memoryProperties(types ...vk.MemoryPropertyFlags) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = uint32(len(types))
	for i, flags := range types {
		props.MemoryTypes[i] = vk.MemoryType{PropertyFlags: flags}
	}
	return props
}

func TestFindMemoryTypeIndex(t *testing.T) {
	local := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	visible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	coherent := vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	cached := vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit)

	props := memoryProperties(local, visible|coherent|cached, visible|coherent, local|visible|coherent)

	tests := []struct {
		name     string
		filter   uint32
		required vk.MemoryPropertyFlags
		want     uint32
		fail     bool
	}{
		{"first local", 0xf, local, 0, false},
		{"superset matches", 0xf, visible | coherent, 1, false},
		{"filter skips type", 0xd, visible | coherent, 2, false},
		{"only last allowed", 0x8, local, 3, false},
		{"no flags required", 0x4, 0, 2, false},
		{"filter excludes every match", 0x6, local, 0, true},
		{"filter bit past count", 0x10, 0, 0, true},
		{"empty filter", 0, 0, 0, true},
	}

	for _, tt := range tests {
		got, err := vkres.FindMemoryTypeIndex(props, tt.filter, tt.required)
		if tt.fail {
			if !errors.Is(err, vkres.ErrResourceAllocation) {
				t.Errorf("%s: got %d, %v, want ErrResourceAllocation", tt.name, got, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestFindMemoryTypeIndexNoTypes(t *testing.T) {
	_, err := vkres.FindMemoryTypeIndex(memoryProperties(), 0xffffffff, 0)
	if !errors.Is(err, vkres.ErrResourceAllocation) {
		t.Errorf("got %v", err)
	}
}

package vkres_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkres"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		size  int
		width int
		kind  vkres.ScalarKind
		want  vk.Format
	}{
		{4, 3, vkres.Float, vk.FormatR32g32b32Sfloat},
		{4, 1, vkres.Float, vk.FormatR32Sfloat},
		{4, 4, vkres.Uint, vk.FormatR32g32b32a32Uint},
		{1, 4, vkres.Uint, vk.FormatR8g8b8a8Uint},
		{1, 2, vkres.Sint, vk.FormatR8g8Sint},
		{2, 2, vkres.Float, vk.FormatR16g16Sfloat},
		{2, 3, vkres.Sint, vk.FormatR16g16b16Sint},
		{8, 1, vkres.Float, vk.FormatR64Sfloat},
		{8, 4, vkres.Sint, vk.FormatR64g64b64a64Sint},
	}
	for _, tt := range tests {
		got, err := vkres.FormatFor(tt.size, tt.width, tt.kind)
		if err != nil {
			t.Errorf("FormatFor(%d, %d, %s): %v", tt.size, tt.width, tt.kind, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatFor(%d, %d, %s) = %d, want %d", tt.size, tt.width, tt.kind, got, tt.want)
		}
	}
}

func TestFormatForEveryWidth(t *testing.T) {
	for _, size := range []int{1, 2, 4, 8} {
		for width := 1; width <= 4; width++ {
			for _, kind := range []vkres.ScalarKind{vkres.Uint, vkres.Sint, vkres.Float} {
				_, err := vkres.FormatFor(size, width, kind)
				if size == 1 && kind == vkres.Float {
					if !errors.Is(err, vkres.ErrUnsupportedFormat) {
						t.Errorf("8-bit float x%d: got %v", width, err)
					}
					continue
				}
				if err != nil {
					t.Errorf("FormatFor(%d, %d, %s): %v", size, width, kind, err)
				}
			}
		}
	}
}

func TestFormatForUnsupported(t *testing.T) {
	tests := []struct {
		size  int
		width int
		kind  vkres.ScalarKind
	}{
		{4, 0, vkres.Float},
		{4, 5, vkres.Float},
		{3, 1, vkres.Uint},
		{16, 1, vkres.Float},
		{4, 2, vkres.ScalarKind(7)},
	}
	for _, tt := range tests {
		got, err := vkres.FormatFor(tt.size, tt.width, tt.kind)
		if !errors.Is(err, vkres.ErrUnsupportedFormat) {
			t.Errorf("FormatFor(%d, %d, %s): got %v", tt.size, tt.width, tt.kind, err)
		}
		if got != vk.FormatUndefined {
			t.Errorf("FormatFor(%d, %d, %s) = %d on failure", tt.size, tt.width, tt.kind, got)
		}
	}
}

func TestComponentTypeFormat(t *testing.T) {
	f, err := vkres.Float32.Format(2)
	if err != nil || f != vk.FormatR32g32Sfloat {
		t.Errorf("Float32.Format(2) = %d, %v", f, err)
	}
	f, err = vkres.Uint8.Format(4)
	if err != nil || f != vk.FormatR8g8b8a8Uint {
		t.Errorf("Uint8.Format(4) = %d, %v", f, err)
	}
	if vkres.ScalarKind(9).String() != "unknown" {
		t.Errorf("unknown kind prints %q", vkres.ScalarKind(9).String())
	}
}

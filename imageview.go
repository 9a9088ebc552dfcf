package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ImageViewInfo describes a 2D view over a single-level image. AspectMask
// defaults to the color aspect.
type ImageViewInfo struct {
	Image      vk.Image
	Format     vk.Format
	AspectMask vk.ImageAspectFlags
}

type ImageView struct {
	Handle
	VKImageView vk.ImageView
	Format      vk.Format
}

func (c *Context) CreateImageView(info ImageViewInfo) (*ImageView, error) {
	h, err := newHandle(c, "image view")
	if err != nil {
		return nil, err
	}
	mask := info.AspectMask
	if mask == 0 {
		mask = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}

	createImage := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    info.Image,
		ViewType: vk.ImageViewType2d,
		Format:   info.Format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: mask,
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	view, err := c.driver.CreateImageView(createImage)
	if err != nil {
		return nil, errors.Wrap(err, "image view: create")
	}

	var ret ImageView
	ret.Handle = h
	ret.VKImageView = view
	ret.Format = info.Format

	return &ret, nil
}

func (i *ImageView) Destroy() {
	c, ok := i.release()
	if !ok {
		return
	}
	c.driver.DestroyImageView(i.VKImageView)
}

package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// FramebufferInfo describes a framebuffer with View as its only attachment.
type FramebufferInfo struct {
	RenderPass vk.RenderPass
	View       *ImageView
	Width      uint32
	Height     uint32
}

// Framebuffer wraps one image view into a single-layer framebuffer. It does not
// own the view. Framebuffers are immutable once created.
type Framebuffer struct {
	Handle
	VKFramebuffer vk.Framebuffer
	View          *ImageView
	Width         uint32
	Height        uint32
}

func (c *Context) CreateFramebuffer(info FramebufferInfo) (*Framebuffer, error) {
	h, err := newHandle(c, "framebuffer")
	if err != nil {
		return nil, err
	}
	if info.View == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "framebuffer: nil image view")
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "framebuffer: extent %dx%d", info.Width, info.Height)
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      info.RenderPass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{info.View.VKImageView},
		Width:           info.Width,
		Height:          info.Height,
		Layers:          1,
	}

	fb, err := c.driver.CreateFramebuffer(&framebufferCreateInfo)
	if err != nil {
		return nil, errors.Wrap(err, "framebuffer: create")
	}

	var ret Framebuffer
	ret.Handle = h
	ret.VKFramebuffer = fb
	ret.View = info.View
	ret.Width = info.Width
	ret.Height = info.Height

	return &ret, nil
}

func (f *Framebuffer) Destroy() {
	c, ok := f.release()
	if !ok {
		return
	}
	c.driver.DestroyFramebuffer(f.VKFramebuffer)
}

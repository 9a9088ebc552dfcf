package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// SwapchainInfo describes a swapchain presenting to Surface. Zero fields take
// the defaults: two images, B8G8R8A8 unorm in the sRGB nonlinear color space,
// FIFO presentation. A zero PresentMode selects FIFO, so immediate
// presentation cannot be requested.
type SwapchainInfo struct {
	Surface    vk.Surface
	RenderPass vk.RenderPass
	Width      uint32
	Height     uint32

	MinImageCount uint32
	Format        vk.Format
	ColorSpace    vk.ColorSpace
	PresentMode   vk.PresentMode
}

func (info SwapchainInfo) withDefaults() SwapchainInfo {
	if info.MinImageCount == 0 {
		info.MinImageCount = 2
	}
	if info.Format == vk.FormatUndefined {
		info.Format = vk.FormatB8g8r8a8Unorm
	}
	if info.PresentMode == vk.PresentModeImmediate {
		info.PresentMode = vk.PresentModeFifo
	}
	return info
}

// SwapchainImage is one presentable image with the view and framebuffer
// rendering into it.
type SwapchainImage struct {
	VKImage     vk.Image
	View        *ImageView
	Framebuffer *Framebuffer
}

// Swapchain is a ring of presentable images, each wrapped in an image view and a
// framebuffer of the swapchain's size.
//
// A swapchain alternates between idle and acquired: AcquireNextIndex moves it to
// acquired and Present moves it back. Calling either out of turn returns
// ErrSwapchainState.
type Swapchain struct {
	Handle
	VKSwapchain vk.Swapchain
	Images      []SwapchainImage
	ImageCount  int
	Width       uint32
	Height      uint32
	Format      vk.Format

	currentIndex uint32
	acquired     bool
}

func (c *Context) CreateSwapchain(info SwapchainInfo) (*Swapchain, error) {
	h, err := newHandle(c, "swapchain")
	if err != nil {
		return nil, err
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "swapchain: extent %dx%d", info.Width, info.Height)
	}
	info = info.withDefaults()
	drv := c.driver

	createInfo := &vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         info.Surface,
		MinImageCount:   info.MinImageCount,
		ImageFormat:     info.Format,
		ImageColorSpace: info.ColorSpace,
		ImageExtent: vk.Extent2D{
			Width:  info.Width,
			Height: info.Height,
		},
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      vk.SharingModeExclusive,
		QueueFamilyIndexCount: 0,
		PQueueFamilyIndices:   nil,
		PreTransform:          vk.SurfaceTransformIdentityBit,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           info.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          vk.NullSwapchain,
	}

	swapchain, err := drv.CreateSwapchain(createInfo)
	if err != nil {
		return nil, errors.Wrap(err, "swapchain: create")
	}

	var ret Swapchain
	ret.Handle = h
	ret.VKSwapchain = swapchain
	ret.Width = info.Width
	ret.Height = info.Height
	ret.Format = info.Format

	images, err := drv.SwapchainImages(swapchain)
	if err != nil {
		drv.DestroySwapchain(swapchain)
		return nil, errors.Wrap(err, "swapchain: get images")
	}
	if len(images) < 2 {
		drv.DestroySwapchain(swapchain)
		return nil, errors.Wrapf(ErrResourceAllocation, "swapchain: %d images, need at least 2", len(images))
	}

	for _, image := range images {
		view, err := c.CreateImageView(ImageViewInfo{
			Image:  image,
			Format: info.Format,
		})
		if err != nil {
			ret.destroyImages()
			drv.DestroySwapchain(swapchain)
			return nil, errors.Wrap(err, "swapchain")
		}

		fb, err := c.CreateFramebuffer(FramebufferInfo{
			RenderPass: info.RenderPass,
			View:       view,
			Width:      info.Width,
			Height:     info.Height,
		})
		if err != nil {
			view.Destroy()
			ret.destroyImages()
			drv.DestroySwapchain(swapchain)
			return nil, errors.Wrap(err, "swapchain")
		}

		ret.Images = append(ret.Images, SwapchainImage{
			VKImage:     image,
			View:        view,
			Framebuffer: fb,
		})
	}
	ret.ImageCount = len(ret.Images)

	c.log.Debug("swapchain created", slog.Int("images", ret.ImageCount),
		slog.Uint64("width", uint64(info.Width)), slog.Uint64("height", uint64(info.Height)))

	return &ret, nil
}

// AcquireNextIndex acquires the next presentable image, waiting at most the
// context's AcquireTimeout. signal is signaled once the image may be rendered to.
//
// A vk.Suboptimal result still acquires the image: the index is returned along
// with the error and the image must be presented as usual.
func (s *Swapchain) AcquireNextIndex(signal *Semaphore) (uint32, error) {
	c := s.Owner()
	if c == nil {
		return 0, errors.Wrap(ErrNoContext, "swapchain: acquire")
	}
	if s.acquired {
		return 0, errors.Wrapf(ErrSwapchainState, "swapchain: acquire while image %d is still acquired", s.currentIndex)
	}

	sem := vk.NullSemaphore
	if signal != nil {
		sem = signal.VKSemaphore
	}
	index, err := c.driver.AcquireNextImage(s.VKSwapchain, uint64(c.opts.AcquireTimeout.Nanoseconds()), sem, vk.NullFence)
	if err != nil {
		if res, _ := ResultOf(err); res != vk.Suboptimal {
			return 0, errors.Wrap(err, "swapchain: acquire")
		}
	}
	if int(index) >= len(s.Images) {
		return 0, errors.Wrapf(ErrOutOfRange, "swapchain: acquired index %d of %d images", index, len(s.Images))
	}

	s.currentIndex = index
	s.acquired = true
	c.log.Debug("swapchain image acquired", slog.Uint64("index", uint64(index)))

	return index, errors.Wrap(err, "swapchain: acquire")
}

// NextFramebuffer acquires the next image and returns its framebuffer. Like
// AcquireNextIndex it returns both on vk.Suboptimal.
func (s *Swapchain) NextFramebuffer(signal *Semaphore) (*Framebuffer, error) {
	index, err := s.AcquireNextIndex(signal)
	if res, _ := ResultOf(err); err != nil && res != vk.Suboptimal {
		return nil, err
	}
	return s.Images[index].Framebuffer, err
}

// CurrentIndex returns the acquired image index. ok is false outside an
// acquire/present pair.
func (s *Swapchain) CurrentIndex() (index uint32, ok bool) {
	return s.currentIndex, s.acquired
}

// Present queues the acquired image for display once wait is signaled. The
// swapchain returns to idle even when presentation fails.
func (s *Swapchain) Present(wait *Semaphore) error {
	c := s.Owner()
	if c == nil {
		return errors.Wrap(ErrNoContext, "swapchain: present")
	}
	if !s.acquired {
		return errors.Wrap(ErrSwapchainState, "swapchain: present without an acquired image")
	}
	s.acquired = false

	var waitSemaphores []vk.Semaphore
	if wait != nil {
		waitSemaphores = []vk.Semaphore{wait.VKSemaphore}
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitSemaphores)),
		PWaitSemaphores:    waitSemaphores,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.VKSwapchain},
		PImageIndices:      []uint32{s.currentIndex},
	}

	if err := c.driver.QueuePresent(c.queue.VKQueue, &presentInfo); err != nil {
		return errors.Wrap(err, "swapchain: present")
	}
	c.log.Debug("swapchain image presented", slog.Uint64("index", uint64(s.currentIndex)))
	return nil
}

// Destroy releases each image's framebuffer then view, then the swapchain.
func (s *Swapchain) Destroy() {
	c, ok := s.release()
	if !ok {
		return
	}
	s.destroyImages()
	c.driver.DestroySwapchain(s.VKSwapchain)
	s.acquired = false
}

func (s *Swapchain) destroyImages() {
	for _, img := range s.Images {
		img.Framebuffer.Destroy()
		img.View.Destroy()
	}
	s.Images = nil
}

package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// CommandBufferInfo describes a command buffer allocated from the context pool.
type CommandBufferInfo struct {
	Level vk.CommandBufferLevel
	// OneTime marks the buffer as recorded, submitted and discarded once.
	OneTime bool
}

// CommandBuffers describe a sequence of commands that will be executed upon being
// submitted with Context.Submit. Only the commands this package needs are wrapped;
// VKCommandBuffer can be handed to the native APIs for anything else.
type CommandBuffer struct {
	Handle
	VKCommandBuffer vk.CommandBuffer
	OneTime         bool
}

// CreateCommandBuffer allocates a command buffer from the context pool.
func (c *Context) CreateCommandBuffer(info CommandBufferInfo) (*CommandBuffer, error) {
	h, err := newHandle(c, "command buffer")
	if err != nil {
		return nil, err
	}

	var commandBufferAllocateInfo = vk.CommandBufferAllocateInfo{}
	commandBufferAllocateInfo.SType = vk.StructureTypeCommandBufferAllocateInfo
	commandBufferAllocateInfo.CommandPool = c.commandPool
	commandBufferAllocateInfo.Level = info.Level
	commandBufferAllocateInfo.CommandBufferCount = 1

	cb, err := c.driver.AllocateCommandBuffer(&commandBufferAllocateInfo)
	if err != nil {
		return nil, errors.Wrap(err, "command buffer: allocate")
	}

	var ret CommandBuffer
	ret.Handle = h
	ret.VKCommandBuffer = cb
	ret.OneTime = info.OneTime

	return &ret, nil
}

// Begin starts recording.
func (cb *CommandBuffer) Begin() error {
	drv := cb.Driver()
	if drv == nil {
		return errors.Wrap(ErrNoContext, "command buffer: begin")
	}
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	if cb.OneTime {
		beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return errors.Wrap(drv.BeginCommandBuffer(cb.VKCommandBuffer, &beginInfo), "command buffer: begin")
}

// End finishes recording.
func (cb *CommandBuffer) End() error {
	drv := cb.Driver()
	if drv == nil {
		return errors.Wrap(ErrNoContext, "command buffer: end")
	}
	return errors.Wrap(drv.EndCommandBuffer(cb.VKCommandBuffer), "command buffer: end")
}

// The recording methods below do nothing once the command buffer is destroyed;
// End reports ErrNoContext in that case.

// CopyBuffer records a single region copy between two native buffers.
func (cb *CommandBuffer) CopyBuffer(src vk.Buffer, srcOffset uint64, dst vk.Buffer, dstOffset uint64, size uint64) {
	drv := cb.Driver()
	if drv == nil {
		return
	}
	drv.CmdCopyBuffer(cb.VKCommandBuffer, src, dst, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}})
}

// BindComputePipeline binds p and, when its layout has one, its descriptor set.
func (cb *CommandBuffer) BindComputePipeline(p *ComputePipeline) {
	drv := cb.Driver()
	if drv == nil {
		return
	}
	drv.CmdBindPipeline(cb.VKCommandBuffer, vk.PipelineBindPointCompute, p.VKPipeline)
	if p.Layout.Enabled {
		drv.CmdBindDescriptorSets(cb.VKCommandBuffer, vk.PipelineBindPointCompute,
			p.Layout.VKPipelineLayout, 0, []vk.DescriptorSet{p.Layout.VKSet})
	}
}

func (cb *CommandBuffer) Dispatch(x, y, z uint32) {
	if drv := cb.Driver(); drv != nil {
		drv.CmdDispatch(cb.VKCommandBuffer, x, y, z)
	}
}

// BeginRenderPass begins renderPass on fb, clearing the single color attachment.
func (cb *CommandBuffer) BeginRenderPass(renderPass vk.RenderPass, fb *Framebuffer, clearColor [4]float32) {
	drv := cb.Driver()
	if drv == nil {
		return
	}
	clearValues := []vk.ClearValue{vk.NewClearValue(clearColor[:])}
	renderPassBeginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: fb.VKFramebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: fb.Width, Height: fb.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	drv.CmdBeginRenderPass(cb.VKCommandBuffer, &renderPassBeginInfo, vk.SubpassContentsInline)
}

func (cb *CommandBuffer) EndRenderPass() {
	if drv := cb.Driver(); drv != nil {
		drv.CmdEndRenderPass(cb.VKCommandBuffer)
	}
}

// Destroy returns the command buffer to the context pool.
func (cb *CommandBuffer) Destroy() {
	c, ok := cb.release()
	if !ok {
		return
	}
	c.driver.FreeCommandBuffer(c.commandPool, cb.VKCommandBuffer)
}

// SubmitInfo describes one submission to the context queue.
type SubmitInfo struct {
	CommandBuffer *CommandBuffer

	// Wait lists semaphores the submission waits on, WaitStages the stage each
	// one gates. Missing stages default to all-commands.
	Wait       []*Semaphore
	WaitStages []vk.PipelineStageFlags

	// Signal lists semaphores signaled when the submission completes.
	Signal []*Semaphore

	// Blocking makes Submit wait, up to Options.TransferTimeout, for the work to
	// finish on the device before returning.
	Blocking bool
}

// Submit queues a recorded command buffer on the context queue.
func (c *Context) Submit(info SubmitInfo) error {
	if info.CommandBuffer == nil {
		return errors.Wrap(ErrInvalidArgument, "submit: nil command buffer")
	}

	waitSemaphores := make([]vk.Semaphore, len(info.Wait))
	waitStages := make([]vk.PipelineStageFlags, len(info.Wait))
	for i, s := range info.Wait {
		waitSemaphores[i] = s.VKSemaphore
		if i < len(info.WaitStages) {
			waitStages[i] = info.WaitStages[i]
		} else {
			waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
		}
	}
	signalSemaphores := make([]vk.Semaphore, len(info.Signal))
	for i, s := range info.Signal {
		signalSemaphores[i] = s.VKSemaphore
	}

	var submitInfo = vk.SubmitInfo{}
	submitInfo.SType = vk.StructureTypeSubmitInfo
	submitInfo.WaitSemaphoreCount = uint32(len(waitSemaphores))
	submitInfo.PWaitSemaphores = waitSemaphores
	submitInfo.PWaitDstStageMask = waitStages
	submitInfo.CommandBufferCount = 1
	submitInfo.PCommandBuffers = []vk.CommandBuffer{info.CommandBuffer.VKCommandBuffer}
	submitInfo.SignalSemaphoreCount = uint32(len(signalSemaphores))
	submitInfo.PSignalSemaphores = signalSemaphores

	if !info.Blocking {
		err := c.driver.QueueSubmit(c.queue.VKQueue, []vk.SubmitInfo{submitInfo}, vk.NullFence)
		return errors.Wrap(err, "submit")
	}

	fence, err := c.CreateFence()
	if err != nil {
		return errors.Wrap(err, "submit")
	}

	err = c.driver.QueueSubmit(c.queue.VKQueue, []vk.SubmitInfo{submitInfo}, fence.VKFence)
	if err != nil {
		fence.Destroy()
		return errors.Wrap(err, "submit")
	}
	if err := fence.Wait(c.opts.TransferTimeout); err != nil {
		// The work may still be queued. Nothing it uses can be released until the
		// queue is drained.
		if drainErr := c.driver.QueueWaitIdle(c.queue.VKQueue); drainErr != nil {
			c.log.Warn("submit: queue not drained, keeping in-flight objects",
				slog.Any("error", err), slog.Any("drain", drainErr))
			return errors.Mark(errors.Wrap(err, "submit: wait for completion"), ErrWorkInFlight)
		}
		fence.Destroy()
		return errors.Wrap(err, "submit: wait for completion")
	}
	fence.Destroy()
	return nil
}

func inFlight(err error) bool {
	return errors.Is(err, ErrWorkInFlight)
}

// copyBuffer records and submits a one-shot copy between two native buffers and
// waits for it to complete, so both buffers may be released as soon as it
// returns.
func (c *Context) copyBuffer(src vk.Buffer, srcOffset uint64, dst vk.Buffer, dstOffset uint64, size uint64) error {
	cb, err := c.CreateCommandBuffer(CommandBufferInfo{
		Level:   vk.CommandBufferLevelPrimary,
		OneTime: true,
	})
	if err != nil {
		return err
	}

	if err := cb.Begin(); err != nil {
		cb.Destroy()
		return err
	}
	cb.CopyBuffer(src, srcOffset, dst, dstOffset, size)
	if err := cb.End(); err != nil {
		cb.Destroy()
		return err
	}

	err = c.Submit(SubmitInfo{
		CommandBuffer: cb,
		Blocking:      true,
	})
	if !inFlight(err) {
		cb.Destroy()
	}
	return err
}

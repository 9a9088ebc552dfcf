package vkres_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkres"
	"github.com/celer/vkres/internal/fakedriver"
)

func TestNewContext(t *testing.T) {
	if _, err := vkres.NewContext(nil, vkres.Queue{}, vkres.Options{}); !errors.Is(err, vkres.ErrInvalidArgument) {
		t.Errorf("nil driver: got %v", err)
	}

	drv := fakedriver.New()
	drv.FailOn("CreateCommandPool", vk.ErrorOutOfHostMemory)
	if _, err := vkres.NewContext(drv, vkres.Queue{}, vkres.Options{}); err == nil {
		t.Error("context created without a command pool")
	}

	ctx, drv := newTestContext(t)
	opts := ctx.Options()
	if opts.AcquireTimeout != vkres.DefaultAcquireTimeout || opts.TransferTimeout != vkres.DefaultTransferTimeout {
		t.Errorf("defaults not applied: %+v", opts)
	}
	if ctx.MemoryProperties().MemoryTypeCount != 2 {
		t.Errorf("memory types %d", ctx.MemoryProperties().MemoryTypeCount)
	}
	if ctx.Driver() != vkres.Driver(drv) {
		t.Error("context reports another driver")
	}
	if err := ctx.WaitIdle(); err != nil {
		t.Error(err)
	}
	finish(t, ctx, drv)
}

func TestContextDestroyDrainsWork(t *testing.T) {
	ctx, drv := newTestContext(t)

	cb, err := ctx.CreateCommandBuffer(vkres.CommandBufferInfo{Level: vk.CommandBufferLevelPrimary})
	if err != nil {
		t.Fatal(err)
	}
	if err := cb.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Submit(vkres.SubmitInfo{CommandBuffer: cb}); err != nil {
		t.Fatal(err)
	}
	if drv.Pending() != 1 {
		t.Fatalf("non-blocking submit ran immediately")
	}
	if err := ctx.WaitIdle(); err != nil {
		t.Fatal(err)
	}
	if drv.Pending() != 0 {
		t.Error("WaitIdle left work pending")
	}
	cb.Destroy()
	finish(t, ctx, drv)
}

func TestResourcesNeedContext(t *testing.T) {
	var ctx *vkres.Context
	if _, err := ctx.CreateBuffer(vkres.BufferInfo{Size: 4}); !errors.Is(err, vkres.ErrNoContext) {
		t.Errorf("buffer: got %v", err)
	}
	if _, err := ctx.CreateSemaphore(); !errors.Is(err, vkres.ErrNoContext) {
		t.Errorf("semaphore: got %v", err)
	}
	if _, err := ctx.CreatePipelineLayout(vkres.PipelineLayoutInfo{}); !errors.Is(err, vkres.ErrNoContext) {
		t.Errorf("pipeline layout: got %v", err)
	}
	if _, err := ctx.CreateSwapchain(vkres.SwapchainInfo{Width: 1, Height: 1}); !errors.Is(err, vkres.ErrNoContext) {
		t.Errorf("swapchain: got %v", err)
	}
}

func TestDoubleDestroy(t *testing.T) {
	ctx, drv := newTestContext(t)

	sem, err := ctx.CreateSemaphore()
	if err != nil {
		t.Fatal(err)
	}
	fence, err := ctx.CreateFence()
	if err != nil {
		t.Fatal(err)
	}
	buf, err := ctx.CreateBuffer(vkres.BufferInfo{Size: 4, Staging: vkres.StagingStatic})
	if err != nil {
		t.Fatal(err)
	}

	if sem.Owner() != ctx || sem.Destroyed() {
		t.Error("live semaphore has no owner")
	}

	for i := 0; i < 2; i++ {
		sem.Destroy()
		fence.Destroy()
		buf.Destroy()
	}
	if sem.Owner() != nil || !sem.Destroyed() || sem.Driver() != nil {
		t.Error("destroyed semaphore keeps its owner")
	}
	if got := len(drv.CallsWithPrefix("DestroySemaphore")); got != 1 {
		t.Errorf("semaphore destroyed %d times", got)
	}
	if got := len(drv.CallsWithPrefix("DestroyBuffer")); got != 2 {
		t.Errorf("%d native buffers destroyed, want 2", got)
	}
	finish(t, ctx, drv)
}

func TestSubmitSemaphores(t *testing.T) {
	ctx, drv := newTestContext(t)

	wait, err := ctx.CreateSemaphore()
	if err != nil {
		t.Fatal(err)
	}
	signal, err := ctx.CreateSemaphore()
	if err != nil {
		t.Fatal(err)
	}
	cb, err := ctx.CreateCommandBuffer(vkres.CommandBufferInfo{Level: vk.CommandBufferLevelPrimary})
	if err != nil {
		t.Fatal(err)
	}
	cb.Begin()
	cb.End()

	err = ctx.Submit(vkres.SubmitInfo{
		CommandBuffer: cb,
		Wait:          []*vkres.Semaphore{wait},
		Signal:        []*vkres.Semaphore{signal},
		Blocking:      true,
	})
	if err != nil {
		t.Fatal(err)
	}

	s := drv.Submits[0]
	if !reflect.DeepEqual(s.PWaitSemaphores, []vk.Semaphore{wait.VKSemaphore}) {
		t.Errorf("waits on %v", s.PWaitSemaphores)
	}
	if !reflect.DeepEqual(s.PSignalSemaphores, []vk.Semaphore{signal.VKSemaphore}) {
		t.Errorf("signals %v", s.PSignalSemaphores)
	}
	if !reflect.DeepEqual(s.PWaitDstStageMask, []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)}) {
		t.Errorf("wait stages %v", s.PWaitDstStageMask)
	}
	if drv.Pending() != 0 {
		t.Error("blocking submit returned before its work ran")
	}

	if err := ctx.Submit(vkres.SubmitInfo{}); !errors.Is(err, vkres.ErrInvalidArgument) {
		t.Errorf("submit without command buffer: got %v", err)
	}

	cb.Destroy()
	wait.Destroy()
	signal.Destroy()
	finish(t, ctx, drv)
}

func TestFenceWait(t *testing.T) {
	ctx, drv := newTestContext(t)

	fence, err := ctx.CreateFence()
	if err != nil {
		t.Fatal(err)
	}
	err = fence.Wait(time.Millisecond)
	if res, ok := vkres.ResultOf(err); !ok || res != vk.Timeout {
		t.Errorf("wait on unsignaled fence: %v", err)
	}
	fence.Destroy()
	if err := fence.Wait(time.Millisecond); !errors.Is(err, vkres.ErrNoContext) {
		t.Errorf("wait after destroy: %v", err)
	}
	finish(t, ctx, drv)
}

func TestAPIError(t *testing.T) {
	if err := vkres.Check("vkCreateBuffer", vk.Success); err != nil {
		t.Errorf("success yields %v", err)
	}
	err := errors.Wrap(vkres.Check("vkCreateBuffer", vk.ErrorOutOfDeviceMemory), "buffer")
	res, ok := vkres.ResultOf(err)
	if !ok || res != vk.ErrorOutOfDeviceMemory {
		t.Errorf("ResultOf = %v, %v", res, ok)
	}
	var apiErr *vkres.APIError
	if !errors.As(err, &apiErr) || apiErr.Call != "vkCreateBuffer" {
		t.Errorf("As = %+v", apiErr)
	}
	if !strings.Contains(err.Error(), "vkCreateBuffer") {
		t.Errorf("message %q lacks the call", err.Error())
	}
	if _, ok := vkres.ResultOf(vkres.ErrOutOfRange); ok {
		t.Error("sentinel error carries a result")
	}
}

func TestBytes(t *testing.T) {
	type vertex struct {
		X, Y float32
	}
	b := vkres.Bytes([]vertex{{1, 2}, {3, 4}})
	if len(b) != 16 {
		t.Errorf("%d bytes", len(b))
	}
	if vkres.Bytes([]uint32(nil)) != nil {
		t.Error("empty slice yields bytes")
	}
}

func TestContextDoubleDestroy(t *testing.T) {
	ctx, drv := newTestContext(t)
	ctx.Destroy()
	ctx.Destroy()
	if got := len(drv.CallsWithPrefix("DestroyCommandPool")); got != 1 {
		t.Errorf("command pool destroyed %d times", got)
	}
	if _, err := ctx.CreateSemaphore(); !errors.Is(err, vkres.ErrNoContext) {
		t.Errorf("semaphore from destroyed context: got %v", err)
	}
	for _, v := range drv.Violations() {
		t.Errorf("violation: %s", v)
	}
}

func TestCommandBufferRecordAfterDestroy(t *testing.T) {
	ctx, drv := newTestContext(t)

	cb, err := ctx.CreateCommandBuffer(vkres.CommandBufferInfo{Level: vk.CommandBufferLevelPrimary})
	if err != nil {
		t.Fatal(err)
	}
	cb.Destroy()
	before := len(drv.Calls)

	cb.CopyBuffer(vk.NullBuffer, 0, vk.NullBuffer, 0, 4)
	cb.BindComputePipeline(nil)
	cb.Dispatch(1, 1, 1)
	cb.BeginRenderPass(vk.NullRenderPass, nil, [4]float32{})
	cb.EndRenderPass()
	if len(drv.Calls) != before {
		t.Errorf("destroyed command buffer recorded %v", drv.Calls[before:])
	}
	if err := cb.End(); !errors.Is(err, vkres.ErrNoContext) {
		t.Errorf("End after destroy: got %v", err)
	}
	finish(t, ctx, drv)
}

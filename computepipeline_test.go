package vkres_test

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkres"
	"github.com/celer/vkres/internal/fakedriver"
)

// spirvHeader is the first two words of a SPIR-V module: the magic number and
// version 1.0.
var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func TestShaderModule(t *testing.T) {
	ctx, drv := newTestContext(t)

	for _, n := range []int{0, 3, 9} {
		if _, err := ctx.CreateShaderModule(make([]byte, n)); !errors.Is(err, vkres.ErrInvalidArgument) {
			t.Errorf("%d bytes: got %v", n, err)
		}
	}

	shader, err := ctx.CreateShaderModule(spirvHeader)
	if err != nil {
		t.Fatal(err)
	}
	shader.Destroy()

	path := filepath.Join(t.TempDir(), "shader.spv")
	if err := os.WriteFile(path, spirvHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	loaded, err := vkres.LoadShaderModule(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	loaded.Destroy()

	if _, err := vkres.LoadShaderModule(ctx, filepath.Join(t.TempDir(), "missing.spv")); err == nil {
		t.Error("loading a missing file succeeded")
	}

	finish(t, ctx, drv)
}

func TestComputePipeline(t *testing.T) {
	ctx, drv := newTestContext(t)

	shader, err := ctx.CreateShaderModule(spirvHeader)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := ctx.CreateBuffer(vkres.BufferInfo{
		Size:  64,
		Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
	})
	if err != nil {
		t.Fatal(err)
	}

	pipeline, err := ctx.CreateComputePipeline(vkres.ComputePipelineInfo{
		Shader:      shader,
		Descriptors: []vkres.Descriptor{buf.Descriptor(0, vk.DescriptorTypeStorageBuffer)},
	})
	if err != nil {
		t.Fatal(err)
	}

	info := drv.ComputePipelineInfos[0]
	if info.Stage.PName != "main\x00" {
		t.Errorf("entry point %q", info.Stage.PName)
	}
	if info.Stage.Stage != vk.ShaderStageComputeBit || info.Stage.Module != shader.VKShaderModule() {
		t.Errorf("stage %+v", info.Stage)
	}
	if info.Layout != pipeline.Layout.VKPipelineLayout {
		t.Error("pipeline created against another layout")
	}
	if b := drv.DescriptorSetLayoutInfos[0].PBindings[0]; b.StageFlags != vk.ShaderStageFlags(vk.ShaderStageComputeBit) {
		t.Errorf("descriptor visible to stages %#x", b.StageFlags)
	}

	// The shader module may go as soon as the pipeline exists.
	shader.Destroy()

	before := len(drv.Calls)
	pipeline.Destroy()
	want := []string{"DestroyPipeline", "DestroyDescriptorSetLayout", "DestroyDescriptorPool", "DestroyPipelineLayout"}
	if got := drv.Calls[before:]; !reflect.DeepEqual(got, want) {
		t.Errorf("teardown %v, want %v", got, want)
	}
	if !pipeline.Layout.Destroyed() {
		t.Error("owned layout not destroyed")
	}

	buf.Destroy()
	finish(t, ctx, drv)
}

func TestComputePipelineFailureReleasesLayout(t *testing.T) {
	ctx, drv := newTestContext(t)

	shader, err := ctx.CreateShaderModule(spirvHeader)
	if err != nil {
		t.Fatal(err)
	}
	drv.FailOn("CreateComputePipeline", vk.ErrorOutOfDeviceMemory)

	_, err = ctx.CreateComputePipeline(vkres.ComputePipelineInfo{Shader: shader, EntryPoint: "run"})
	if res, ok := vkres.ResultOf(err); !ok || res != vk.ErrorOutOfDeviceMemory {
		t.Errorf("got %v", err)
	}
	if kinds := drv.LiveKinds(); kinds["pipeline layout"] != 0 {
		t.Errorf("layout leaked: %v", kinds)
	}

	if _, err := ctx.CreateComputePipeline(vkres.ComputePipelineInfo{}); !errors.Is(err, vkres.ErrInvalidArgument) {
		t.Errorf("nil shader: got %v", err)
	}

	shader.Destroy()
	finish(t, ctx, drv)
}

// TestComputeDispatch runs a pipeline whose fake shader doubles every byte of
// the buffer at binding 0.
func TestComputeDispatch(t *testing.T) {
	ctx, drv := newTestContext(t)

	var dispatched [3]uint32
	drv.OnDispatch = func(d *fakedriver.Driver, pipeline vk.Pipeline, sets []vk.DescriptorSet, x, y, z uint32) {
		dispatched = [3]uint32{x, y, z}
		data := d.BufferData(d.SetBuffers(sets[0])[0])
		for i := range data {
			data[i] *= 2
		}
	}

	shader, err := ctx.CreateShaderModule(spirvHeader)
	if err != nil {
		t.Fatal(err)
	}

	buf, err := ctx.CreateBuffer(vkres.BufferInfo{
		Size:     8,
		Usage:    vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
		Readable: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.SubData(0, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 0, 0); err != nil {
		t.Fatal(err)
	}

	pipeline, err := ctx.CreateComputePipeline(vkres.ComputePipelineInfo{
		Shader:      shader,
		Descriptors: []vkres.Descriptor{buf.Descriptor(0, vk.DescriptorTypeStorageBuffer)},
	})
	if err != nil {
		t.Fatal(err)
	}

	cb, err := ctx.CreateCommandBuffer(vkres.CommandBufferInfo{Level: vk.CommandBufferLevelPrimary, OneTime: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := cb.Begin(); err != nil {
		t.Fatal(err)
	}
	cb.BindComputePipeline(pipeline)
	cb.Dispatch(8, 1, 1)
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}
	if got := drv.Commands(cb.VKCommandBuffer); !reflect.DeepEqual(got, []string{"CmdBindPipeline", "CmdBindDescriptorSets", "CmdDispatch"}) {
		t.Errorf("recorded %v", got)
	}

	if err := ctx.Submit(vkres.SubmitInfo{CommandBuffer: cb, Blocking: true}); err != nil {
		t.Fatal(err)
	}
	if dispatched != [3]uint32{8, 1, 1} {
		t.Errorf("dispatched %v", dispatched)
	}

	got, err := buf.ReadData(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{2, 4, 6, 8, 10, 12, 14, 16}; !bytes.Equal(got, want) {
		t.Errorf("read %v, want %v", got, want)
	}

	cb.Destroy()
	pipeline.Destroy()
	buf.Destroy()
	shader.Destroy()
	finish(t, ctx, drv)
}

package vkres_test

import (
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkres"
)

func storageBuffers(t *testing.T, ctx *vkres.Context, n int) []*vkres.Buffer {
	t.Helper()
	bufs := make([]*vkres.Buffer, n)
	for i := range bufs {
		b, err := ctx.CreateBuffer(vkres.BufferInfo{
			Size:  uint64(16 * (i + 1)),
			Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit | vk.BufferUsageUniformBufferBit),
		})
		if err != nil {
			t.Fatal(err)
		}
		bufs[i] = b
	}
	return bufs
}

func destroyAll(bufs []*vkres.Buffer) {
	for _, b := range bufs {
		b.Destroy()
	}
}

func TestPipelineLayoutSameType(t *testing.T) {
	ctx, drv := newTestContext(t)
	bufs := storageBuffers(t, ctx, 2)

	layout, err := ctx.CreatePipelineLayout(vkres.PipelineLayoutInfo{
		Descriptors: []vkres.Descriptor{
			bufs[0].Descriptor(0, vk.DescriptorTypeStorageBuffer),
			bufs[1].Descriptor(1, vk.DescriptorTypeStorageBuffer),
		},
		Stages: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
	})
	if err != nil {
		t.Fatal(err)
	}

	if !layout.Enabled {
		t.Error("layout with descriptors is disabled")
	}
	want := []vk.DescriptorPoolSize{{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 2}}
	if !reflect.DeepEqual(layout.PoolSizes, want) {
		t.Errorf("pool sizes %+v, want %+v", layout.PoolSizes, want)
	}
	if layout.MaxSets != 2 {
		t.Errorf("max sets %d, want 2", layout.MaxSets)
	}

	pool := drv.DescriptorPoolInfos[0]
	if pool.MaxSets != 2 || pool.PoolSizeCount != 1 {
		t.Errorf("descriptor pool created with %+v", pool)
	}

	setLayout := drv.DescriptorSetLayoutInfos[0]
	if setLayout.BindingCount != 2 {
		t.Fatalf("set layout has %d bindings", setLayout.BindingCount)
	}
	for i, b := range setLayout.PBindings {
		if b.Binding != uint32(i) || b.DescriptorCount != 1 ||
			b.StageFlags != vk.ShaderStageFlags(vk.ShaderStageComputeBit) {
			t.Errorf("binding %d: %+v", i, b)
		}
	}

	if pl := drv.PipelineLayoutInfos[0]; pl.SetLayoutCount != 1 || pl.PSetLayouts[0] != layout.VKSetLayout {
		t.Errorf("pipeline layout references %d set layouts", pl.SetLayoutCount)
	}

	written := drv.SetBuffers(layout.VKSet)
	if written[0] != bufs[0].VKBuffer() || written[1] != bufs[1].VKBuffer() {
		t.Errorf("descriptor set holds %v", written)
	}
	for _, w := range drv.DescriptorWrites {
		if w.PBufferInfo[0].Offset != 0 {
			t.Errorf("descriptor write at offset %d", w.PBufferInfo[0].Offset)
		}
	}

	layout.Destroy()
	destroyAll(bufs)
	finish(t, ctx, drv)
}

func TestPipelineLayoutPoolSizes(t *testing.T) {
	ctx, drv := newTestContext(t)
	bufs := storageBuffers(t, ctx, 5)

	types := []vk.DescriptorType{
		vk.DescriptorTypeStorageBuffer,
		vk.DescriptorTypeUniformBuffer,
		vk.DescriptorTypeStorageBuffer,
		vk.DescriptorTypeUniformBuffer,
		vk.DescriptorTypeStorageBuffer,
	}
	descriptors := make([]vkres.Descriptor, len(bufs))
	for i, b := range bufs {
		descriptors[i] = b.Descriptor(uint32(i), types[i])
	}

	layout, err := ctx.CreatePipelineLayout(vkres.PipelineLayoutInfo{
		Descriptors: descriptors,
		Stages:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 3},
	}
	if !reflect.DeepEqual(layout.PoolSizes, want) {
		t.Errorf("pool sizes %+v, want %+v", layout.PoolSizes, want)
	}
	if !reflect.DeepEqual(vkres.DescriptorPoolSizes(descriptors), want) {
		t.Errorf("DescriptorPoolSizes disagrees with the layout")
	}
	if layout.MaxSets != 5 {
		t.Errorf("max sets %d, want 5", layout.MaxSets)
	}
	if n := len(drv.DescriptorWrites); n != 5 {
		t.Errorf("%d descriptor writes, want 5", n)
	}

	layout.Destroy()
	destroyAll(bufs)
	finish(t, ctx, drv)
}

func TestPipelineLayoutDisabled(t *testing.T) {
	ctx, drv := newTestContext(t)

	layout, err := ctx.CreatePipelineLayout(vkres.PipelineLayoutInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if layout.Enabled {
		t.Error("layout without descriptors is enabled")
	}
	if len(drv.DescriptorSetLayoutInfos) != 0 || len(drv.DescriptorPoolInfos) != 0 {
		t.Error("disabled layout created descriptor objects")
	}
	if pl := drv.PipelineLayoutInfos[0]; pl.SetLayoutCount != 0 {
		t.Errorf("disabled layout references %d set layouts", pl.SetLayoutCount)
	}

	layout.Destroy()
	if got := drv.CallsWithPrefix("Destroy"); !reflect.DeepEqual(got, []string{"DestroyPipelineLayout"}) {
		t.Errorf("teardown %v", got)
	}
	finish(t, ctx, drv)
}

func TestPipelineLayoutTeardownOrder(t *testing.T) {
	ctx, drv := newTestContext(t)
	bufs := storageBuffers(t, ctx, 1)

	layout, err := ctx.CreatePipelineLayout(vkres.PipelineLayoutInfo{
		Descriptors: []vkres.Descriptor{bufs[0].Descriptor(0, vk.DescriptorTypeUniformBuffer)},
		Stages:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	})
	if err != nil {
		t.Fatal(err)
	}

	before := len(drv.Calls)
	layout.Destroy()
	layout.Destroy()
	got := drv.Calls[before:]
	want := []string{"DestroyDescriptorSetLayout", "DestroyDescriptorPool", "DestroyPipelineLayout"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("teardown %v, want %v", got, want)
	}
	if !layout.Destroyed() {
		t.Error("layout not marked destroyed")
	}

	destroyAll(bufs)
	finish(t, ctx, drv)
}

func TestPipelineLayoutErrors(t *testing.T) {
	ctx, drv := newTestContext(t)
	other, otherDrv := newTestContext(t)
	bufs := storageBuffers(t, ctx, 2)
	foreign := storageBuffers(t, other, 1)

	_, err := ctx.CreatePipelineLayout(vkres.PipelineLayoutInfo{
		Descriptors: []vkres.Descriptor{
			bufs[0].Descriptor(0, vk.DescriptorTypeStorageBuffer),
			bufs[1].Descriptor(0, vk.DescriptorTypeStorageBuffer),
		},
	})
	if !errors.Is(err, vkres.ErrInvalidArgument) {
		t.Errorf("duplicate binding: got %v", err)
	}

	_, err = ctx.CreatePipelineLayout(vkres.PipelineLayoutInfo{
		Descriptors: []vkres.Descriptor{foreign[0].Descriptor(0, vk.DescriptorTypeStorageBuffer)},
	})
	if !errors.Is(err, vkres.ErrForeignResource) {
		t.Errorf("foreign buffer: got %v", err)
	}

	// A failure halfway through releases what was already created.
	drv.FailOn("CreatePipelineLayout", vk.ErrorOutOfHostMemory)
	_, err = ctx.CreatePipelineLayout(vkres.PipelineLayoutInfo{
		Descriptors: []vkres.Descriptor{bufs[0].Descriptor(0, vk.DescriptorTypeStorageBuffer)},
	})
	if res, ok := vkres.ResultOf(err); !ok || res != vk.ErrorOutOfHostMemory {
		t.Errorf("failed pipeline layout: %v", err)
	}
	if kinds := drv.LiveKinds(); kinds["descriptor set layout"] != 0 || kinds["descriptor pool"] != 0 {
		t.Errorf("failed layout leaked %v", kinds)
	}

	destroyAll(bufs)
	destroyAll(foreign)
	finish(t, ctx, drv)
	finish(t, other, otherDrv)
}

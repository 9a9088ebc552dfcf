// Package fakedriver is an in-memory vkres.Driver for tests.
//
// Handles are opaque counters. Memory is plain byte slices. Submitted command
// buffers are not executed at submit time: they are queued and only run when a
// fence they signal is waited on or the queue or device is waited idle. Any
// object destroyed while queued work still references it, and any queued work
// touching a destroyed object, is recorded as a violation.
package fakedriver

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkres"
)

const (
	HostMemory  = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	LocalMemory = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

// Option configures a Driver.
type Option func(d *Driver)

// WithMemoryTypes replaces the default memory types, device-local then
// host-visible and coherent.
func WithMemoryTypes(types ...vk.MemoryPropertyFlags) Option {
	return func(d *Driver) {
		d.memoryTypes = types
	}
}

// WithSwapchainImages sets how many images every swapchain gets, 3 by default.
func WithSwapchainImages(n int) Option {
	return func(d *Driver) {
		d.SwapchainImageCount = n
	}
}

type object struct {
	kind  string
	alive bool
}

type buffer struct {
	size   uint64
	memory uintptr
	offset uint64
}

type memory struct {
	data      []byte
	typeIndex uint32
	mapped    bool
}

type command struct {
	name     string
	src, dst uintptr
	regions  []vk.BufferCopy
	pipeline uintptr
	sets     []vk.DescriptorSet
	x, y, z  uint32
}

type commandBuffer struct {
	commands  []command
	recording bool
}

type submission struct {
	commandBuffers []uintptr
	commands       [][]command
	fence          uintptr
}

type failure struct {
	nth    int
	result vk.Result
}

// Present is one recorded present call.
type Present struct {
	Swapchain vk.Swapchain
	Index     uint32
	Wait      []vk.Semaphore
}

// Acquire is one recorded acquire call.
type Acquire struct {
	Swapchain vk.Swapchain
	Timeout   uint64
	Semaphore vk.Semaphore
}

// Driver is the fake device. The zero value is not usable; use New.
type Driver struct {
	// SwapchainImageCount is the image count of swapchains created from now on.
	SwapchainImageCount int

	// AcquireIndices, when not empty, supplies the indices returned by
	// AcquireNextImage in order. Otherwise images are handed out round robin.
	AcquireIndices []uint32

	// OnDispatch runs when a recorded dispatch executes.
	OnDispatch func(d *Driver, pipeline vk.Pipeline, sets []vk.DescriptorSet, x, y, z uint32)

	// Calls logs the name of every Driver method invoked, in order.
	Calls []string

	// Recorded create infos and commands, for inspection.
	DescriptorSetLayoutInfos []vk.DescriptorSetLayoutCreateInfo
	DescriptorPoolInfos      []vk.DescriptorPoolCreateInfo
	DescriptorWrites         []vk.WriteDescriptorSet
	PipelineLayoutInfos      []vk.PipelineLayoutCreateInfo
	ComputePipelineInfos     []vk.ComputePipelineCreateInfo
	FramebufferInfos         []vk.FramebufferCreateInfo
	SwapchainInfos           []vk.SwapchainCreateInfo
	Submits                  []vk.SubmitInfo
	Acquires                 []Acquire
	Presents                 []Present

	memoryTypes []vk.MemoryPropertyFlags
	next        uintptr

	objects        map[uintptr]*object
	buffers        map[uintptr]*buffer
	memories       map[uintptr]*memory
	commandBuffers map[uintptr]*commandBuffer
	signaled       map[uintptr]bool
	swapchains     map[uintptr][]vk.Image
	lastAcquired   map[uintptr]int
	setWrites      map[uintptr]map[uint32]vk.Buffer

	pending    []submission
	violations []string
	failures   map[string]failure
	callCounts map[string]int
}

var _ vkres.Driver = (*Driver)(nil)

// New returns a fake device with the given options applied.
func New(opts ...Option) *Driver {
	d := &Driver{
		SwapchainImageCount: 3,
		memoryTypes:         []vk.MemoryPropertyFlags{LocalMemory, HostMemory},
		next:                0x100000,
		objects:             make(map[uintptr]*object),
		buffers:             make(map[uintptr]*buffer),
		memories:            make(map[uintptr]*memory),
		commandBuffers:      make(map[uintptr]*commandBuffer),
		signaled:            make(map[uintptr]bool),
		swapchains:          make(map[uintptr][]vk.Image),
		lastAcquired:        make(map[uintptr]int),
		setWrites:           make(map[uintptr]map[uint32]vk.Buffer),
		failures:            make(map[string]failure),
		callCounts:          make(map[string]int),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// mint returns a new handle of type T. Handle values are never dereferenced.
func mint[T any](d *Driver, kind string) T {
	d.next += 0x10
	v := d.next
	d.objects[v] = &object{kind: kind, alive: true}
	return *(*T)(unsafe.Pointer(&v))
}

func key[T any](h T) uintptr {
	return *(*uintptr)(unsafe.Pointer(&h))
}

// FailOn makes every call to the named Driver method fail with res.
func (d *Driver) FailOn(call string, res vk.Result) {
	d.failures[call] = failure{nth: 0, result: res}
}

// FailNth makes the nth call, counting from 1, to the named Driver method fail
// with res.
func (d *Driver) FailNth(call string, n int, res vk.Result) {
	d.failures[call] = failure{nth: n, result: res}
}

func (d *Driver) call(name string) error {
	d.Calls = append(d.Calls, name)
	d.callCounts[name]++
	f, ok := d.failures[name]
	if !ok {
		return nil
	}
	if f.nth == 0 || f.nth == d.callCounts[name] {
		return vkres.Check(name, f.result)
	}
	return nil
}

func (d *Driver) violate(format string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

// Violations returns every misuse observed so far.
func (d *Driver) Violations() []string {
	return d.violations
}

// Live returns the number of objects created and not yet destroyed.
func (d *Driver) Live() int {
	n := 0
	for _, o := range d.objects {
		if o.alive {
			n++
		}
	}
	return n
}

// LiveKinds returns the kinds of the live objects and how many there are of
// each.
func (d *Driver) LiveKinds() map[string]int {
	ret := make(map[string]int)
	for _, o := range d.objects {
		if o.alive {
			ret[o.kind]++
		}
	}
	return ret
}

// Pending returns the number of submissions not yet executed.
func (d *Driver) Pending() int {
	return len(d.pending)
}

// CallsWithPrefix filters Calls to the names starting with prefix.
func (d *Driver) CallsWithPrefix(prefix string) []string {
	var ret []string
	for _, c := range d.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			ret = append(ret, c)
		}
	}
	return ret
}

func (d *Driver) alive(k uintptr) bool {
	o, ok := d.objects[k]
	return ok && o.alive
}

func (d *Driver) destroy(k uintptr, kind string) {
	if k == 0 {
		return
	}
	o, ok := d.objects[k]
	if !ok {
		d.violate("destroy of unknown %s %#x", kind, k)
		return
	}
	if !o.alive {
		d.violate("double destroy of %s %#x", kind, k)
		return
	}
	if o.kind != kind {
		d.violate("destroy of %s %#x as %s", o.kind, k, kind)
	}
	if d.inUse(k) {
		d.violate("%s %#x destroyed while queued work uses it", kind, k)
	}
	o.alive = false
}

// inUse reports whether any pending submission references k directly or
// through a buffer bound to it.
func (d *Driver) inUse(k uintptr) bool {
	for _, s := range d.pending {
		for _, cb := range s.commandBuffers {
			if cb == k {
				return true
			}
		}
		if s.fence == k {
			return true
		}
		for _, cmds := range s.commands {
			for _, c := range cmds {
				if c.src == k || c.dst == k || c.pipeline == k {
					return true
				}
				for _, b := range []uintptr{c.src, c.dst} {
					if buf, ok := d.buffers[b]; ok && buf.memory == k {
						return true
					}
				}
			}
		}
	}
	return false
}

func (d *Driver) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = uint32(len(d.memoryTypes))
	for i, flags := range d.memoryTypes {
		props.MemoryTypes[i] = vk.MemoryType{PropertyFlags: flags, HeapIndex: 0}
	}
	props.MemoryHeapCount = 1
	props.MemoryHeaps[0] = vk.MemoryHeap{Size: 1 << 30}
	return props
}

func (d *Driver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	if err := d.call("CreateBuffer"); err != nil {
		return vk.NullBuffer, err
	}
	b := mint[vk.Buffer](d, "buffer")
	d.buffers[key(b)] = &buffer{size: uint64(info.Size)}
	return b, nil
}

func (d *Driver) DestroyBuffer(b vk.Buffer) {
	d.call("DestroyBuffer")
	d.destroy(key(b), "buffer")
}

func (d *Driver) BufferMemoryRequirements(b vk.Buffer) vk.MemoryRequirements {
	d.call("BufferMemoryRequirements")
	buf := d.buffers[key(b)]
	var size uint64
	if buf != nil {
		size = buf.size
	}
	return vk.MemoryRequirements{
		Size:           vk.DeviceSize(size),
		Alignment:      16,
		MemoryTypeBits: 1<<uint(len(d.memoryTypes)) - 1,
	}
}

func (d *Driver) BindBufferMemory(b vk.Buffer, m vk.DeviceMemory, offset uint64) error {
	if err := d.call("BindBufferMemory"); err != nil {
		return err
	}
	buf, mem := d.buffers[key(b)], d.memories[key(m)]
	if buf == nil || mem == nil || !d.alive(key(b)) || !d.alive(key(m)) {
		d.violate("bind of dead buffer %#x or memory %#x", key(b), key(m))
		return vkres.Check("BindBufferMemory", vk.ErrorInitializationFailed)
	}
	if offset+buf.size > uint64(len(mem.data)) {
		d.violate("buffer %#x of %d bytes bound past the end of memory %#x", key(b), buf.size, key(m))
	}
	buf.memory = key(m)
	buf.offset = offset
	return nil
}

func (d *Driver) AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error) {
	if err := d.call("AllocateMemory"); err != nil {
		return vk.NullDeviceMemory, err
	}
	if int(info.MemoryTypeIndex) >= len(d.memoryTypes) {
		d.violate("allocation from memory type %d of %d", info.MemoryTypeIndex, len(d.memoryTypes))
		return vk.NullDeviceMemory, vkres.Check("AllocateMemory", vk.ErrorOutOfDeviceMemory)
	}
	m := mint[vk.DeviceMemory](d, "memory")
	d.memories[key(m)] = &memory{
		data:      make([]byte, info.AllocationSize),
		typeIndex: info.MemoryTypeIndex,
	}
	return m, nil
}

func (d *Driver) FreeMemory(m vk.DeviceMemory) {
	d.call("FreeMemory")
	if mem := d.memories[key(m)]; mem != nil && mem.mapped {
		d.violate("memory %#x freed while mapped", key(m))
	}
	d.destroy(key(m), "memory")
}

func (d *Driver) MapMemory(m vk.DeviceMemory, offset, size uint64) ([]byte, error) {
	if err := d.call("MapMemory"); err != nil {
		return nil, err
	}
	mem := d.memories[key(m)]
	if mem == nil || !d.alive(key(m)) {
		d.violate("map of dead memory %#x", key(m))
		return nil, vkres.Check("MapMemory", vk.ErrorMemoryMapFailed)
	}
	if d.memoryTypes[mem.typeIndex]&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		d.violate("map of memory %#x which is not host visible", key(m))
		return nil, vkres.Check("MapMemory", vk.ErrorMemoryMapFailed)
	}
	if mem.mapped {
		d.violate("memory %#x mapped twice", key(m))
		return nil, vkres.Check("MapMemory", vk.ErrorMemoryMapFailed)
	}
	if offset+size > uint64(len(mem.data)) {
		d.violate("map of [%d, %d) past %d bytes of memory %#x", offset, offset+size, len(mem.data), key(m))
		return nil, vkres.Check("MapMemory", vk.ErrorMemoryMapFailed)
	}
	mem.mapped = true
	return mem.data[offset : offset+size : offset+size], nil
}

func (d *Driver) UnmapMemory(m vk.DeviceMemory) {
	d.call("UnmapMemory")
	mem := d.memories[key(m)]
	if mem == nil || !mem.mapped {
		d.violate("unmap of memory %#x which is not mapped", key(m))
		return
	}
	mem.mapped = false
}

// BufferData returns the bytes of the memory bound to b. Writes to the result
// change the buffer contents.
func (d *Driver) BufferData(b vk.Buffer) []byte {
	buf := d.buffers[key(b)]
	if buf == nil {
		return nil
	}
	mem := d.memories[buf.memory]
	if mem == nil {
		return nil
	}
	return mem.data[buf.offset : buf.offset+buf.size]
}

func (d *Driver) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	if err := d.call("CreateDescriptorSetLayout"); err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	d.DescriptorSetLayoutInfos = append(d.DescriptorSetLayoutInfos, *info)
	return mint[vk.DescriptorSetLayout](d, "descriptor set layout"), nil
}

func (d *Driver) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	d.call("DestroyDescriptorSetLayout")
	d.destroy(key(layout), "descriptor set layout")
}

func (d *Driver) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	if err := d.call("CreateDescriptorPool"); err != nil {
		return vk.NullDescriptorPool, err
	}
	d.DescriptorPoolInfos = append(d.DescriptorPoolInfos, *info)
	return mint[vk.DescriptorPool](d, "descriptor pool"), nil
}

func (d *Driver) DestroyDescriptorPool(pool vk.DescriptorPool) {
	d.call("DestroyDescriptorPool")
	d.destroy(key(pool), "descriptor pool")
}

func (d *Driver) AllocateDescriptorSet(info *vk.DescriptorSetAllocateInfo) (vk.DescriptorSet, error) {
	if err := d.call("AllocateDescriptorSet"); err != nil {
		return nil, err
	}
	if !d.alive(key(info.DescriptorPool)) {
		d.violate("descriptor set allocated from dead pool %#x", key(info.DescriptorPool))
	}
	var v vk.DescriptorSet
	d.next += 0x10
	n := d.next
	v = *(*vk.DescriptorSet)(unsafe.Pointer(&n))
	d.setWrites[n] = make(map[uint32]vk.Buffer)
	return v, nil
}

func (d *Driver) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	d.call("UpdateDescriptorSets")
	d.DescriptorWrites = append(d.DescriptorWrites, writes...)
	for _, w := range writes {
		set := d.setWrites[key(w.DstSet)]
		if set == nil {
			d.violate("write to unknown descriptor set %#x", key(w.DstSet))
			continue
		}
		for _, info := range w.PBufferInfo {
			if !d.alive(key(info.Buffer)) {
				d.violate("descriptor write of dead buffer %#x", key(info.Buffer))
			}
			set[w.DstBinding] = info.Buffer
		}
	}
}

// SetBuffers returns the buffers written to each binding of set.
func (d *Driver) SetBuffers(set vk.DescriptorSet) map[uint32]vk.Buffer {
	return d.setWrites[key(set)]
}

func (d *Driver) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	if err := d.call("CreatePipelineLayout"); err != nil {
		return nil, err
	}
	d.PipelineLayoutInfos = append(d.PipelineLayoutInfos, *info)
	return mint[vk.PipelineLayout](d, "pipeline layout"), nil
}

func (d *Driver) DestroyPipelineLayout(layout vk.PipelineLayout) {
	d.call("DestroyPipelineLayout")
	d.destroy(key(layout), "pipeline layout")
}

func (d *Driver) CreateComputePipeline(info *vk.ComputePipelineCreateInfo) (vk.Pipeline, error) {
	if err := d.call("CreateComputePipeline"); err != nil {
		return nil, err
	}
	if !d.alive(key(info.Layout)) {
		d.violate("compute pipeline created with dead layout %#x", key(info.Layout))
	}
	if !d.alive(key(info.Stage.Module)) {
		d.violate("compute pipeline created with dead shader module %#x", key(info.Stage.Module))
	}
	d.ComputePipelineInfos = append(d.ComputePipelineInfos, *info)
	return mint[vk.Pipeline](d, "pipeline"), nil
}

func (d *Driver) DestroyPipeline(pipeline vk.Pipeline) {
	d.call("DestroyPipeline")
	d.destroy(key(pipeline), "pipeline")
}

func (d *Driver) CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, error) {
	if err := d.call("CreateShaderModule"); err != nil {
		return nil, err
	}
	if int(info.CodeSize) != 4*len(info.PCode) {
		d.violate("shader module code size %d for %d words", info.CodeSize, len(info.PCode))
	}
	return mint[vk.ShaderModule](d, "shader module"), nil
}

func (d *Driver) DestroyShaderModule(module vk.ShaderModule) {
	d.call("DestroyShaderModule")
	d.destroy(key(module), "shader module")
}

func (d *Driver) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	if err := d.call("CreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	return mint[vk.ImageView](d, "image view"), nil
}

func (d *Driver) DestroyImageView(view vk.ImageView) {
	d.call("DestroyImageView")
	d.destroy(key(view), "image view")
}

func (d *Driver) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	if err := d.call("CreateFramebuffer"); err != nil {
		return nil, err
	}
	for _, v := range info.PAttachments {
		if !d.alive(key(v)) {
			d.violate("framebuffer created with dead image view %#x", key(v))
		}
	}
	d.FramebufferInfos = append(d.FramebufferInfos, *info)
	return mint[vk.Framebuffer](d, "framebuffer"), nil
}

func (d *Driver) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	d.call("DestroyFramebuffer")
	d.destroy(key(framebuffer), "framebuffer")
}

func (d *Driver) CreateSemaphore(info *vk.SemaphoreCreateInfo) (vk.Semaphore, error) {
	if err := d.call("CreateSemaphore"); err != nil {
		return vk.NullSemaphore, err
	}
	return mint[vk.Semaphore](d, "semaphore"), nil
}

func (d *Driver) DestroySemaphore(semaphore vk.Semaphore) {
	d.call("DestroySemaphore")
	d.destroy(key(semaphore), "semaphore")
}

func (d *Driver) CreateFence(info *vk.FenceCreateInfo) (vk.Fence, error) {
	if err := d.call("CreateFence"); err != nil {
		return vk.NullFence, err
	}
	f := mint[vk.Fence](d, "fence")
	d.signaled[key(f)] = info.Flags&vk.FenceCreateFlags(vk.FenceCreateSignaledBit) != 0
	return f, nil
}

func (d *Driver) DestroyFence(fence vk.Fence) {
	d.call("DestroyFence")
	d.destroy(key(fence), "fence")
}

// WaitForFence executes queued work up to and including the submission that
// signals fence.
func (d *Driver) WaitForFence(fence vk.Fence, timeout uint64) error {
	if err := d.call("WaitForFence"); err != nil {
		return err
	}
	k := key(fence)
	if !d.alive(k) {
		d.violate("wait on dead fence %#x", k)
		return vkres.Check("WaitForFence", vk.ErrorDeviceLost)
	}
	for i, s := range d.pending {
		if s.fence == k {
			d.execute(i + 1)
			break
		}
	}
	if !d.signaled[k] {
		return vkres.Check("WaitForFence", vk.Timeout)
	}
	return nil
}

func (d *Driver) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	if err := d.call("CreateCommandPool"); err != nil {
		return nil, err
	}
	return mint[vk.CommandPool](d, "command pool"), nil
}

func (d *Driver) DestroyCommandPool(pool vk.CommandPool) {
	d.call("DestroyCommandPool")
	d.destroy(key(pool), "command pool")
}

func (d *Driver) AllocateCommandBuffer(info *vk.CommandBufferAllocateInfo) (vk.CommandBuffer, error) {
	if err := d.call("AllocateCommandBuffer"); err != nil {
		return nil, err
	}
	if !d.alive(key(info.CommandPool)) {
		d.violate("command buffer allocated from dead pool %#x", key(info.CommandPool))
	}
	cb := mint[vk.CommandBuffer](d, "command buffer")
	d.commandBuffers[key(cb)] = &commandBuffer{}
	return cb, nil
}

func (d *Driver) FreeCommandBuffer(pool vk.CommandPool, cb vk.CommandBuffer) {
	d.call("FreeCommandBuffer")
	d.destroy(key(cb), "command buffer")
}

func (d *Driver) BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	if err := d.call("BeginCommandBuffer"); err != nil {
		return err
	}
	rec := d.commandBuffers[key(cb)]
	if rec == nil || !d.alive(key(cb)) {
		d.violate("begin of dead command buffer %#x", key(cb))
		return vkres.Check("BeginCommandBuffer", vk.ErrorInitializationFailed)
	}
	rec.commands = nil
	rec.recording = true
	return nil
}

func (d *Driver) EndCommandBuffer(cb vk.CommandBuffer) error {
	if err := d.call("EndCommandBuffer"); err != nil {
		return err
	}
	rec := d.commandBuffers[key(cb)]
	if rec == nil || !rec.recording {
		d.violate("end of command buffer %#x which is not recording", key(cb))
		return vkres.Check("EndCommandBuffer", vk.ErrorInitializationFailed)
	}
	rec.recording = false
	return nil
}

func (d *Driver) record(cb vk.CommandBuffer, c command) {
	d.call(c.name)
	rec := d.commandBuffers[key(cb)]
	if rec == nil || !rec.recording {
		d.violate("%s recorded into command buffer %#x which is not recording", c.name, key(cb))
		return
	}
	rec.commands = append(rec.commands, c)
}

func (d *Driver) CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	d.record(cb, command{name: "CmdCopyBuffer", src: key(src), dst: key(dst), regions: regions})
}

func (d *Driver) CmdBindPipeline(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	d.record(cb, command{name: "CmdBindPipeline", pipeline: key(pipeline)})
}

func (d *Driver) CmdBindDescriptorSets(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet) {
	d.record(cb, command{name: "CmdBindDescriptorSets", sets: sets})
}

func (d *Driver) CmdDispatch(cb vk.CommandBuffer, x, y, z uint32) {
	d.record(cb, command{name: "CmdDispatch", x: x, y: y, z: z})
}

func (d *Driver) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	d.record(cb, command{name: "CmdBeginRenderPass"})
}

func (d *Driver) CmdEndRenderPass(cb vk.CommandBuffer) {
	d.record(cb, command{name: "CmdEndRenderPass"})
}

// Commands returns the names of the commands recorded into cb.
func (d *Driver) Commands(cb vk.CommandBuffer) []string {
	rec := d.commandBuffers[key(cb)]
	if rec == nil {
		return nil
	}
	names := make([]string, len(rec.commands))
	for i, c := range rec.commands {
		names[i] = c.name
	}
	return names
}

// QueueSubmit queues the submitted command buffers without running them.
func (d *Driver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	if err := d.call("QueueSubmit"); err != nil {
		return err
	}
	d.Submits = append(d.Submits, submits...)
	var s submission
	s.fence = key(fence)
	for _, info := range submits {
		for _, cb := range info.PCommandBuffers {
			rec := d.commandBuffers[key(cb)]
			if rec == nil || !d.alive(key(cb)) {
				d.violate("submit of dead command buffer %#x", key(cb))
				continue
			}
			if rec.recording {
				d.violate("submit of command buffer %#x still recording", key(cb))
			}
			s.commandBuffers = append(s.commandBuffers, key(cb))
			s.commands = append(s.commands, append([]command(nil), rec.commands...))
		}
	}
	d.pending = append(d.pending, s)
	return nil
}

// execute runs the first n pending submissions.
func (d *Driver) execute(n int) {
	run := d.pending[:n]
	d.pending = append([]submission(nil), d.pending[n:]...)

	for _, s := range run {
		for i, cb := range s.commandBuffers {
			if !d.alive(cb) {
				d.violate("command buffer %#x executed after it was freed", cb)
				continue
			}
			var pipeline vk.Pipeline
			var sets []vk.DescriptorSet
			for _, c := range s.commands[i] {
				switch c.name {
				case "CmdCopyBuffer":
					d.copyBuffer(c)
				case "CmdBindPipeline":
					pipeline = *(*vk.Pipeline)(unsafe.Pointer(&c.pipeline))
				case "CmdBindDescriptorSets":
					sets = c.sets
				case "CmdDispatch":
					if d.OnDispatch != nil {
						d.OnDispatch(d, pipeline, sets, c.x, c.y, c.z)
					}
				}
			}
		}
		if s.fence != 0 {
			d.signaled[s.fence] = true
		}
	}
}

func (d *Driver) copyBuffer(c command) {
	for _, k := range []uintptr{c.src, c.dst} {
		buf := d.buffers[k]
		if buf == nil || !d.alive(k) {
			d.violate("copy touches buffer %#x after it was destroyed", k)
			return
		}
		if !d.alive(buf.memory) {
			d.violate("copy touches buffer %#x whose memory %#x was freed", k, buf.memory)
			return
		}
	}
	src, dst := d.buffers[c.src], d.buffers[c.dst]
	srcData := d.memories[src.memory].data[src.offset : src.offset+src.size]
	dstData := d.memories[dst.memory].data[dst.offset : dst.offset+dst.size]
	for _, r := range c.regions {
		so, do, n := uint64(r.SrcOffset), uint64(r.DstOffset), uint64(r.Size)
		if so+n > src.size || do+n > dst.size {
			d.violate("copy region %d bytes from %d to %d out of bounds (%d, %d)", n, so, do, src.size, dst.size)
			continue
		}
		copy(dstData[do:do+n], srcData[so:so+n])
	}
}

func (d *Driver) QueueWaitIdle(queue vk.Queue) error {
	if err := d.call("QueueWaitIdle"); err != nil {
		return err
	}
	d.execute(len(d.pending))
	return nil
}

func (d *Driver) DeviceWaitIdle() error {
	if err := d.call("DeviceWaitIdle"); err != nil {
		return err
	}
	d.execute(len(d.pending))
	return nil
}

func (d *Driver) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	if err := d.call("CreateSwapchain"); err != nil {
		return vk.NullSwapchain, err
	}
	d.SwapchainInfos = append(d.SwapchainInfos, *info)
	sc := mint[vk.Swapchain](d, "swapchain")
	images := make([]vk.Image, d.SwapchainImageCount)
	for i := range images {
		// Images belong to the swapchain and are never destroyed on their own.
		d.next += 0x10
		n := d.next
		images[i] = *(*vk.Image)(unsafe.Pointer(&n))
	}
	d.swapchains[key(sc)] = images
	d.lastAcquired[key(sc)] = -1
	return sc, nil
}

func (d *Driver) DestroySwapchain(swapchain vk.Swapchain) {
	d.call("DestroySwapchain")
	d.destroy(key(swapchain), "swapchain")
}

func (d *Driver) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	if err := d.call("SwapchainImages"); err != nil {
		return nil, err
	}
	return append([]vk.Image(nil), d.swapchains[key(swapchain)]...), nil
}

// AcquireNextImage hands out images round robin, or from AcquireIndices when
// set. An injected vk.Suboptimal still hands out an image.
func (d *Driver) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore, fence vk.Fence) (uint32, error) {
	err := d.call("AcquireNextImage")
	if res, _ := vkres.ResultOf(err); err != nil && res != vk.Suboptimal {
		return 0, err
	}
	d.Acquires = append(d.Acquires, Acquire{Swapchain: swapchain, Timeout: timeout, Semaphore: semaphore})
	k := key(swapchain)
	if !d.alive(k) {
		d.violate("acquire from dead swapchain %#x", k)
		return 0, vkres.Check("AcquireNextImage", vk.ErrorSurfaceLost)
	}
	if len(d.AcquireIndices) > 0 {
		index := d.AcquireIndices[0]
		d.AcquireIndices = d.AcquireIndices[1:]
		return index, err
	}
	next := (d.lastAcquired[k] + 1) % len(d.swapchains[k])
	d.lastAcquired[k] = next
	return uint32(next), err
}

func (d *Driver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) error {
	if err := d.call("QueuePresent"); err != nil {
		return err
	}
	for i, sc := range info.PSwapchains {
		d.Presents = append(d.Presents, Present{
			Swapchain: sc,
			Index:     info.PImageIndices[i],
			Wait:      info.PWaitSemaphores,
		})
	}
	return nil
}

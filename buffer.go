package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// StagingMode selects how a Buffer moves data between the host and its
// device-local memory.
type StagingMode int

const (
	// StagingDynamic creates a temporary host-visible buffer for each transfer
	// and frees it once the transfer has completed.
	StagingDynamic StagingMode = iota
	// StagingStatic keeps one host-visible buffer the size of the local buffer
	// for the whole life of the Buffer.
	StagingStatic
)

func (m StagingMode) String() string {
	switch m {
	case StagingStatic:
		return "static"
	case StagingDynamic:
		return "dynamic"
	}
	return "unknown"
}

// BufferInfo describes a Buffer to create.
type BufferInfo struct {
	Size  uint64
	Usage vk.BufferUsageFlags

	Staging StagingMode

	// Readable allows ReadData and using the buffer as a copy source.
	Readable bool
}

// Buffer is device-local memory filled and read back through host-visible
// staging memory.
type Buffer struct {
	Handle

	Size     uint64
	Usage    vk.BufferUsageFlags
	Staging  StagingMode
	Readable bool

	// HostUsage and LocalUsage are the usage flags the staging and the
	// device-local buffers are created with.
	HostUsage  vk.BufferUsageFlags
	LocalUsage vk.BufferUsageFlags

	host  *bufferMemory
	local *bufferMemory
}

// CreateBuffer creates a device-local buffer and, for StagingStatic, its
// persistent staging buffer.
func (c *Context) CreateBuffer(info BufferInfo) (*Buffer, error) {
	h, err := newHandle(c, "buffer")
	if err != nil {
		return nil, err
	}
	if info.Size == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "buffer: size must be greater than zero")
	}

	var ret Buffer
	ret.Handle = h
	ret.Size = info.Size
	ret.Usage = info.Usage
	ret.Staging = info.Staging
	ret.Readable = info.Readable

	ret.HostUsage = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	ret.LocalUsage = info.Usage | vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	if info.Readable {
		ret.HostUsage |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
		ret.LocalUsage |= vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	}

	ret.local, err = createBufferMemory(c, info.Size, ret.LocalUsage, localMemoryProperties)
	if err != nil {
		return nil, errors.Wrap(err, "buffer: allocate device-local memory")
	}

	if info.Staging == StagingStatic {
		ret.host, err = createHostBufferMemory(c, info.Size, ret.HostUsage)
		if err != nil {
			ret.local.destroy(c.driver)
			return nil, errors.Wrap(err, "buffer: allocate staging memory")
		}
	}

	c.log.Debug("buffer created", slog.Uint64("size", info.Size),
		slog.String("staging", info.Staging.String()), slog.Bool("readable", info.Readable))

	return &ret, nil
}

// VKBuffer returns the device-local buffer.
func (b *Buffer) VKBuffer() vk.Buffer {
	return b.local.VKBuffer
}

// SubData uploads data[srcOffset:srcOffset+length] to the buffer at dstOffset.
// A zero length uploads the rest of data. It returns once the device copy has
// completed.
func (b *Buffer) SubData(dstOffset uint64, data []byte, srcOffset, length uint64) error {
	c := b.Owner()
	if c == nil {
		return errors.Wrap(ErrNoContext, "buffer: sub data")
	}
	if srcOffset > uint64(len(data)) {
		return errors.Wrapf(ErrOutOfRange, "buffer: source offset %d past %d bytes of data", srcOffset, len(data))
	}
	if length == 0 {
		length = uint64(len(data)) - srcOffset
	}
	if length == 0 {
		return nil
	}
	if srcOffset+length > uint64(len(data)) {
		return errors.Wrapf(ErrOutOfRange, "buffer: source range [%d, %d) past %d bytes of data", srcOffset, srcOffset+length, len(data))
	}
	if err := b.checkRange(dstOffset, length); err != nil {
		return err
	}
	src := data[srcOffset : srcOffset+length]

	if b.Staging == StagingStatic {
		if err := b.host.mapCopyUnmap(c.driver, dstOffset, src); err != nil {
			return errors.Wrap(err, "buffer: fill staging memory")
		}
		err := c.copyBuffer(b.host.VKBuffer, dstOffset, b.local.VKBuffer, dstOffset, length)
		return errors.Wrap(err, "buffer: copy staging to device")
	}

	staging, err := createHostBufferMemory(c, length, b.HostUsage)
	if err != nil {
		return errors.Wrap(err, "buffer: allocate staging memory")
	}

	if err := staging.mapCopyUnmap(c.driver, 0, src); err != nil {
		staging.destroy(c.driver)
		return errors.Wrap(err, "buffer: fill staging memory")
	}
	err = c.copyBuffer(staging.VKBuffer, 0, b.local.VKBuffer, dstOffset, length)
	b.releaseStaging(c, staging, err)
	return errors.Wrap(err, "buffer: copy staging to device")
}

// ReadData copies length bytes starting at offset back to the host. A zero
// length reads to the end of the buffer. The returned slice belongs to the
// caller.
func (b *Buffer) ReadData(offset, length uint64) ([]byte, error) {
	c := b.Owner()
	if c == nil {
		return nil, errors.Wrap(ErrNoContext, "buffer: read data")
	}
	if !b.Readable {
		return nil, errors.Wrap(ErrNotReadable, "buffer: read data")
	}
	if offset > b.Size {
		return nil, errors.Wrapf(ErrOutOfRange, "buffer: offset %d past size %d", offset, b.Size)
	}
	if length == 0 {
		length = b.Size - offset
	}
	if length == 0 {
		return []byte{}, nil
	}
	if err := b.checkRange(offset, length); err != nil {
		return nil, err
	}

	if b.Staging == StagingStatic {
		if err := c.copyBuffer(b.local.VKBuffer, offset, b.host.VKBuffer, offset, length); err != nil {
			return nil, errors.Wrap(err, "buffer: copy device to staging")
		}
		out, err := b.host.mapReadUnmap(c.driver, offset, length)
		return out, errors.Wrap(err, "buffer: read staging memory")
	}

	staging, err := createHostBufferMemory(c, length, b.HostUsage)
	if err != nil {
		return nil, errors.Wrap(err, "buffer: allocate staging memory")
	}

	if err := c.copyBuffer(b.local.VKBuffer, offset, staging.VKBuffer, 0, length); err != nil {
		b.releaseStaging(c, staging, err)
		return nil, errors.Wrap(err, "buffer: copy device to staging")
	}
	out, err := staging.mapReadUnmap(c.driver, 0, length)
	staging.destroy(c.driver)
	return out, errors.Wrap(err, "buffer: read staging memory")
}

// releaseStaging frees a temporary staging buffer unless the transfer using it
// could not be drained.
func (b *Buffer) releaseStaging(c *Context, staging *bufferMemory, err error) {
	if inFlight(err) {
		c.log.Warn("buffer: staging memory left alive for in-flight transfer",
			slog.Uint64("size", staging.Size))
		return
	}
	staging.destroy(c.driver)
}

// CopyBuffer copies size bytes from src at srcOffset to dst at dstOffset on the
// device. Both buffers must belong to the same context and src must be
// readable. A zero size copies as much as fits in both buffers.
func CopyBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset uint64, size uint64) error {
	c := src.Owner()
	if c == nil || dst.Owner() == nil {
		return errors.Wrap(ErrNoContext, "buffer: copy")
	}
	if dst.Owner() != c {
		return errors.Wrap(ErrForeignResource, "buffer: copy")
	}
	if !src.Readable {
		return errors.Wrap(ErrNotReadable, "buffer: copy source")
	}
	if srcOffset > src.Size || dstOffset > dst.Size {
		return errors.Wrapf(ErrOutOfRange, "buffer: copy offsets %d/%d", srcOffset, dstOffset)
	}
	if size == 0 {
		size = src.Size - srcOffset
		if rest := dst.Size - dstOffset; rest < size {
			size = rest
		}
	}
	if size == 0 {
		return nil
	}
	if err := src.checkRange(srcOffset, size); err != nil {
		return err
	}
	if err := dst.checkRange(dstOffset, size); err != nil {
		return err
	}

	err := c.copyBuffer(src.local.VKBuffer, srcOffset, dst.local.VKBuffer, dstOffset, size)
	return errors.Wrap(err, "buffer: copy")
}

// CopyTo copies the whole of b, as far as it fits, to the start of dst.
func (b *Buffer) CopyTo(dst *Buffer) error {
	return CopyBuffer(b, 0, dst, 0, 0)
}

// Binding returns a vertex-binding view of the buffer.
func (b *Buffer) Binding(slot, stride uint32) Binding {
	return Binding{Buffer: b, Slot: slot, Stride: stride}
}

// DefaultBinding is Binding(0, 1).
func (b *Buffer) DefaultBinding() Binding {
	return b.Binding(0, 1)
}

// Descriptor returns a descriptor view of the buffer.
func (b *Buffer) Descriptor(binding uint32, typ vk.DescriptorType) Descriptor {
	return Descriptor{Buffer: b, Binding: binding, Type: typ}
}

// Destroy releases the staging buffer, if any, then the device-local buffer.
func (b *Buffer) Destroy() {
	c, ok := b.release()
	if !ok {
		return
	}
	if b.host != nil {
		b.host.destroy(c.driver)
		b.host = nil
	}
	b.local.destroy(c.driver)
	c.log.Debug("buffer destroyed", slog.Uint64("size", b.Size))
}

func (b *Buffer) checkRange(offset, length uint64) error {
	if offset > b.Size || length > b.Size-offset {
		return errors.Wrapf(ErrOutOfRange, "buffer: range [%d, %d) past size %d", offset, offset+length, b.Size)
	}
	return nil
}
